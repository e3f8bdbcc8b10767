package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Service is the catalog record store. It has no invariants of its own; the
// scheduling and billing cores consume it read-only through GetOffer.
type Service interface {
	CreateSchool(ctx context.Context, req CreateSchoolRequest) (*School, error)
	ListSchools(ctx context.Context) ([]School, error)
	GetSchool(ctx context.Context, id snowflake.ID) (*School, error)

	CreateOffer(ctx context.Context, req CreateOfferRequest) (*Offer, error)
	ListOffersBySchool(ctx context.Context, schoolID snowflake.ID) ([]Offer, error)
	GetOffer(ctx context.Context, id snowflake.ID) (*Offer, error)

	CreateMonitor(ctx context.Context, req CreateMonitorRequest) (*Monitor, error)
	ListMonitorsBySchool(ctx context.Context, schoolID snowflake.ID) ([]Monitor, error)
}

type CreateSchoolRequest struct {
	Name    string
	City    string
	Address string
	Phone   string
}

type CreateOfferRequest struct {
	SchoolID    snowflake.ID
	Name        string
	Description string
	Price       int64
	Hours       int
	PermitType  string
}

type CreateMonitorRequest struct {
	SchoolID  snowflake.ID
	FirstName string
	LastName  string
	Phone     string
}

var (
	ErrSchoolNotFound = errors.New("school_not_found")
	ErrOfferNotFound  = errors.New("offer_not_found")
	ErrInvalidSchool  = errors.New("invalid_school")
	ErrInvalidOffer   = errors.New("invalid_offer")
	ErrInvalidMonitor = errors.New("invalid_monitor")
)
