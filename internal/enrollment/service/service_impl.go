package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/drivelane/drivelane/internal/catalog/domain"
	"github.com/drivelane/drivelane/internal/clock"
	enrollmentdomain "github.com/drivelane/drivelane/internal/enrollment/domain"
	"github.com/drivelane/drivelane/internal/events"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// casRetryLimit bounds optimistic-concurrency retries before surfacing a
// conflict to the caller.
const casRetryLimit = 5

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Outbox     *events.Outbox
	CatalogSvc catalogdomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	outbox     *events.Outbox
	catalogSvc catalogdomain.Service
}

func NewService(p Params) enrollmentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("enrollment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		outbox:     p.Outbox,
		catalogSvc: p.CatalogSvc,
	}
}

func (s *Service) Create(ctx context.Context, req enrollmentdomain.CreateEnrollmentRequest) (*enrollmentdomain.Enrollment, error) {
	if req.StudentID == 0 || req.SchoolID == 0 || req.OfferID == 0 {
		return nil, enrollmentdomain.ErrInvalidEnrollment
	}

	offer, err := s.catalogSvc.GetOffer(ctx, req.OfferID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	enrollment := enrollmentdomain.Enrollment{
		ID:             s.genID.Generate(),
		StudentID:      req.StudentID,
		SchoolID:       req.SchoolID,
		OfferID:        req.OfferID,
		HoursPurchased: offer.Hours,
		HoursConsumed:  0,
		Status:         enrollmentdomain.EnrollmentStatusActive,
		Version:        0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.db.WithContext(ctx).Create(&enrollment).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*enrollmentdomain.Enrollment, error) {
	var enrollment enrollmentdomain.Enrollment
	err := s.db.WithContext(ctx).First(&enrollment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, enrollmentdomain.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (s *Service) ListBySchool(ctx context.Context, schoolID snowflake.ID) ([]enrollmentdomain.Enrollment, error) {
	var enrollments []enrollmentdomain.Enrollment
	if err := s.db.WithContext(ctx).Where("school_id = ?", schoolID).Order("created_at DESC").Find(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}

func (s *Service) ListByStudent(ctx context.Context, studentID snowflake.ID) ([]enrollmentdomain.Enrollment, error) {
	var enrollments []enrollmentdomain.Enrollment
	if err := s.db.WithContext(ctx).Where("student_id = ?", studentID).Order("created_at DESC").Find(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}

// AdjustConsumed is the single choke point for hour mutations. Every write is
// conditioned on the version read, so two concurrent adjustments on the same
// enrollment cannot lose an update; the losing writer reloads and retries.
func (s *Service) AdjustConsumed(ctx context.Context, id snowflake.ID, deltaHours int) (*enrollmentdomain.Enrollment, error) {
	if id == 0 {
		return nil, enrollmentdomain.ErrEnrollmentNotFound
	}

	for attempt := 0; attempt < casRetryLimit; attempt++ {
		enrollment, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		next := enrollment.HoursConsumed + deltaHours
		clamped := false
		if next < 0 {
			// A reversal larger than the committed balance points at a
			// double-reversal upstream. Absorb it at zero rather than driving
			// the counter negative, but leave a trace for reconciliation.
			next = 0
			clamped = true
		}
		if next > enrollment.HoursPurchased {
			return nil, &enrollmentdomain.InsufficientHoursError{
				Requested: deltaHours,
				Remaining: enrollment.HoursRemaining(),
			}
		}

		now := s.clock.Now()
		res := s.db.WithContext(ctx).Exec(
			`UPDATE enrollments
			 SET hours_consumed = ?, version = version + 1, updated_at = ?
			 WHERE id = ? AND version = ?`,
			next,
			now,
			id,
			enrollment.Version,
		)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}

		if clamped {
			s.log.Warn("negative hour adjustment clamped to zero",
				zap.Int64("enrollment_id", int64(id)),
				zap.Int("delta_hours", deltaHours),
				zap.Int("hours_consumed", enrollment.HoursConsumed),
			)
			if err := s.outbox.Publish(ctx, events.Event{
				Type: events.TypeHoursClamped,
				Payload: events.HoursClampedPayload{
					EnrollmentID:  id.String(),
					DeltaHours:    deltaHours,
					HoursConsumed: enrollment.HoursConsumed,
				}.ToMap(),
			}); err != nil {
				s.log.Warn("publish hours clamped event", zap.Error(err))
			}
		}

		enrollment.HoursConsumed = next
		enrollment.Version++
		enrollment.UpdatedAt = now
		return enrollment, nil
	}

	return nil, enrollmentdomain.ErrConflict
}
