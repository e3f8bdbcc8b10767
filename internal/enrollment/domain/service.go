package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Service owns the enrollment aggregate and the consumed-hours invariant
// 0 <= hours_consumed <= hours_purchased.
type Service interface {
	Create(ctx context.Context, req CreateEnrollmentRequest) (*Enrollment, error)
	Get(ctx context.Context, id snowflake.ID) (*Enrollment, error)
	ListBySchool(ctx context.Context, schoolID snowflake.ID) ([]Enrollment, error)
	ListByStudent(ctx context.Context, studentID snowflake.ID) ([]Enrollment, error)

	// AdjustConsumed applies a signed hour delta to the enrollment's consumed
	// counter. A positive delta that would exceed hours_purchased fails with an
	// InsufficientHoursError; a negative delta that would drop below zero is
	// clamped to zero. The write is a compare-and-swap on the enrollment's
	// version with a bounded retry, so concurrent adjustments never lose an
	// update.
	AdjustConsumed(ctx context.Context, id snowflake.ID, deltaHours int) (*Enrollment, error)
}

type CreateEnrollmentRequest struct {
	StudentID snowflake.ID
	SchoolID  snowflake.ID
	OfferID   snowflake.ID
}

var (
	ErrEnrollmentNotFound = errors.New("enrollment_not_found")
	ErrInvalidEnrollment  = errors.New("invalid_enrollment")
	ErrInsufficientHours  = errors.New("insufficient_hours")
	ErrConflict           = errors.New("conflict")
)

// InsufficientHoursError reports how many hours were requested against what
// remained. errors.Is(err, ErrInsufficientHours) matches it.
type InsufficientHoursError struct {
	Requested int
	Remaining int
}

func (e *InsufficientHoursError) Error() string {
	return fmt.Sprintf("insufficient hours: %dh requested, %dh remaining", e.Requested, e.Remaining)
}

func (e *InsufficientHoursError) Unwrap() error { return ErrInsufficientHours }
