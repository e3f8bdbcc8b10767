package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/drivelane/drivelane/internal/clock"
	enrollmentdomain "github.com/drivelane/drivelane/internal/enrollment/domain"
	sessiondomain "github.com/drivelane/drivelane/internal/session/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const casRetryLimit = 5

// liveStatuses are the states whose sessions still hold a claim on the
// enrollment's remaining hours.
var liveStatuses = []sessiondomain.SessionStatus{
	sessiondomain.SessionStatusScheduled,
	sessiondomain.SessionStatusConfirmed,
	sessiondomain.SessionStatusInProgress,
}

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	EnrollmentSvc enrollmentdomain.Service
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	enrollmentSvc enrollmentdomain.Service
}

func NewService(p Params) sessiondomain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("session.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		enrollmentSvc: p.EnrollmentSvc,
	}
}

// Create schedules a lesson against the enrollment's remaining balance.
// Creation does not consume hours; it claims the enrollment's version token
// and, inside the same transaction, counts the hours already held by live
// sessions before inserting. The claim UPDATE runs first so a concurrent
// create blocks on the row lock until this insert commits; the blocked
// writer's claim then affects zero rows and it retries against a count
// that includes this session.
func (s *Service) Create(ctx context.Context, req sessiondomain.CreateSessionRequest) (*sessiondomain.Session, error) {
	if req.EnrollmentID == 0 || req.Date.IsZero() {
		return nil, sessiondomain.ErrInvalidSession
	}
	if req.StartTime != nil && req.EndTime != nil && !req.EndTime.After(*req.StartTime) {
		return nil, sessiondomain.ErrInvalidSession
	}

	status := req.Status
	if status == "" {
		status = sessiondomain.SessionStatusScheduled
	}
	if !sessiondomain.ValidStatus(status) {
		return nil, sessiondomain.ErrInvalidStatus
	}

	session := sessiondomain.Session{
		ID:           s.genID.Generate(),
		EnrollmentID: req.EnrollmentID,
		MonitorID:    req.MonitorID,
		Date:         req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Status:       status,
		MeetingPoint: req.MeetingPoint,
		Notes:        req.Notes,
	}
	duration := session.DurationHours()

	for attempt := 0; attempt < casRetryLimit; attempt++ {
		enrollment, err := s.enrollmentSvc.Get(ctx, req.EnrollmentID)
		if err != nil {
			return nil, err
		}

		now := s.clock.Now()
		claimed := false
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Exec(
				`UPDATE enrollments
				 SET version = version + 1, updated_at = ?
				 WHERE id = ? AND version = ?`,
				now,
				enrollment.ID,
				enrollment.Version,
			)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			claimed = true

			outstanding, err := outstandingHours(tx, req.EnrollmentID)
			if err != nil {
				return err
			}
			available := enrollment.HoursRemaining() - outstanding
			if available < duration {
				return &enrollmentdomain.InsufficientHoursError{
					Requested: duration,
					Remaining: available,
				}
			}

			session.CreatedAt = now
			session.UpdatedAt = now
			return tx.Create(&session).Error
		})
		if err != nil {
			return nil, err
		}
		if !claimed {
			continue
		}
		return &session, nil
	}

	return nil, enrollmentdomain.ErrConflict
}

func outstandingHours(tx *gorm.DB, enrollmentID snowflake.ID) (int, error) {
	var sessions []sessiondomain.Session
	err := tx.
		Where("enrollment_id = ? AND status IN ?", enrollmentID, liveStatuses).
		Find(&sessions).Error
	if err != nil {
		return 0, err
	}
	total := 0
	for _, session := range sessions {
		total += session.DurationHours()
	}
	return total, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*sessiondomain.Session, error) {
	var session sessiondomain.Session
	err := s.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, sessiondomain.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Transition applies the hour delta first, then flips the status with a write
// conditioned on the status it read. The ledger write is the durable fact; a
// lost status race is compensated by reversing the delta, so hours are never
// committed without the matching status or vice versa.
func (s *Service) Transition(ctx context.Context, id snowflake.ID, newStatus sessiondomain.SessionStatus) (*sessiondomain.Session, error) {
	if !sessiondomain.ValidStatus(newStatus) {
		return nil, sessiondomain.ErrInvalidStatus
	}

	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := session.Status
	if !sessiondomain.CanTransition(oldStatus, newStatus) {
		return nil, sessiondomain.ErrInvalidTransition
	}

	delta := sessiondomain.HourDelta(oldStatus, newStatus, session.DurationHours())
	if delta != 0 {
		if _, err := s.enrollmentSvc.AdjustConsumed(ctx, session.EnrollmentID, delta); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	res := s.db.WithContext(ctx).Exec(
		`UPDATE sessions
		 SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		newStatus,
		now,
		id,
		oldStatus,
	)
	if res.Error != nil || res.RowsAffected == 0 {
		if delta != 0 {
			if _, revErr := s.enrollmentSvc.AdjustConsumed(ctx, session.EnrollmentID, -delta); revErr != nil {
				s.log.Error("failed to reverse hour delta after lost status write",
					zap.Int64("session_id", int64(id)),
					zap.Int("delta_hours", delta),
					zap.Error(revErr),
				)
			}
		}
		if res.Error != nil {
			return nil, res.Error
		}
		return nil, enrollmentdomain.ErrConflict
	}

	session.Status = newStatus
	session.UpdatedAt = now
	return session, nil
}

// Delete removes a session. A COMPLETED session has its hours credited back
// first; the delete is conditioned on the status read so a racing transition
// cannot slip a commit past the reversal.
func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	for attempt := 0; attempt < casRetryLimit; attempt++ {
		session, err := s.Get(ctx, id)
		if err != nil {
			return err
		}

		if session.Status == sessiondomain.SessionStatusCompleted {
			if _, err := s.enrollmentSvc.AdjustConsumed(ctx, session.EnrollmentID, -session.DurationHours()); err != nil {
				return err
			}
		}

		res := s.db.WithContext(ctx).Exec(
			`DELETE FROM sessions WHERE id = ? AND status = ?`,
			id,
			session.Status,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}

		// The status moved underneath us. Undo the credit if one was applied
		// and retry against the fresh state.
		if session.Status == sessiondomain.SessionStatusCompleted {
			if _, err := s.enrollmentSvc.AdjustConsumed(ctx, session.EnrollmentID, session.DurationHours()); err != nil {
				return err
			}
		}
	}
	return enrollmentdomain.ErrConflict
}

func (s *Service) ListBySchool(ctx context.Context, schoolID snowflake.ID) ([]sessiondomain.SessionView, error) {
	return s.listViews(ctx, "enrollments.school_id = ?", schoolID)
}

func (s *Service) ListByMonitor(ctx context.Context, monitorID snowflake.ID) ([]sessiondomain.SessionView, error) {
	return s.listViews(ctx, "sessions.monitor_id = ?", monitorID)
}

func (s *Service) listViews(ctx context.Context, where string, arg any) ([]sessiondomain.SessionView, error) {
	var views []sessiondomain.SessionView
	err := s.db.WithContext(ctx).
		Table("sessions").
		Select(`sessions.*,
			COALESCE(monitors.first_name || ' ' || monitors.last_name, '') AS monitor_name,
			COALESCE(offers.name, '') AS offer_name`).
		Joins("JOIN enrollments ON enrollments.id = sessions.enrollment_id").
		Joins("LEFT JOIN monitors ON monitors.id = sessions.monitor_id").
		Joins("LEFT JOIN offers ON offers.id = enrollments.offer_id").
		Where(where, arg).
		Order("sessions.session_date, sessions.start_time").
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return views, nil
}

func (s *Service) ListByEnrollment(ctx context.Context, enrollmentID snowflake.ID) ([]sessiondomain.Session, error) {
	var sessions []sessiondomain.Session
	err := s.db.WithContext(ctx).
		Where("enrollment_id = ?", enrollmentID).
		Order("session_date, start_time").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}
