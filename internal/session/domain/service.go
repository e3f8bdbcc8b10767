package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Service drives the session lifecycle. Hour effects of transitions flow
// through the enrollment hour ledger exactly once per effective transition.
type Service interface {
	Create(ctx context.Context, req CreateSessionRequest) (*Session, error)
	Get(ctx context.Context, id snowflake.ID) (*Session, error)

	// Transition moves a session to newStatus, applying the hour delta to the
	// owning enrollment before the status write. Illegal moves fail with
	// ErrInvalidTransition and have no side effect.
	Transition(ctx context.Context, id snowflake.ID, newStatus SessionStatus) (*Session, error)

	// Delete removes a session, first crediting back its hours when it was
	// COMPLETED.
	Delete(ctx context.Context, id snowflake.ID) error

	ListBySchool(ctx context.Context, schoolID snowflake.ID) ([]SessionView, error)
	ListByMonitor(ctx context.Context, monitorID snowflake.ID) ([]SessionView, error)
	ListByEnrollment(ctx context.Context, enrollmentID snowflake.ID) ([]Session, error)
}

type CreateSessionRequest struct {
	EnrollmentID snowflake.ID
	MonitorID    *snowflake.ID
	Date         time.Time
	StartTime    *time.Time
	EndTime      *time.Time
	MeetingPoint string
	Notes        string
	// Status is optional; SCHEDULED when empty.
	Status SessionStatus
}

var (
	ErrSessionNotFound   = errors.New("session_not_found")
	ErrInvalidSession    = errors.New("invalid_session")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidTransition = errors.New("invalid_transition")
)
