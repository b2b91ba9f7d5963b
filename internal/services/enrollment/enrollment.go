// Package services содержит запись пользователей на занятия и учёт
// занятых мест. Счётчик мест занятия меняется только в той же транзакции,
// что и запись, под блокировкой строки занятия.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/magabrotheeeer/gym-management/internal/config"
	"github.com/magabrotheeeer/gym-management/internal/metrics"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

// EnrollmentRepository методы хранилища для записей на занятия.
type EnrollmentRepository interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockSchedule(ctx context.Context, id int64) (*models.Schedule, error)
	AdjustScheduleCapacity(ctx context.Context, id int64, delta int) error
	CreateEnrollment(ctx context.Context, userID, scheduleID int64) (int64, error)
	GetEnrollment(ctx context.Context, id int64) (*models.Enrollment, error)
	FindEnrollment(ctx context.Context, userID, scheduleID int64) (*models.Enrollment, error)
	LockEnrollment(ctx context.Context, id int64) (*models.Enrollment, error)
	ListEnrollments(ctx context.Context, filter models.EnrollmentFilter) ([]*models.Enrollment, error)
	SetEnrollmentStatus(ctx context.Context, id int64, status models.EnrollmentStatus) error
	UpdateEnrollmentDetails(ctx context.Context, id int64, upd models.EnrollmentUpdate) error
	DeleteEnrollment(ctx context.Context, id int64) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// EnrollmentService реализует запись на занятия.
type EnrollmentService struct {
	repo              EnrollmentRepository
	requireMembership bool
	tracer            trace.Tracer
	now               func() time.Time
	log               *slog.Logger
}

// NewEnrollmentService создает новый экземпляр EnrollmentService.
func NewEnrollmentService(repo EnrollmentRepository, cfg config.Enrollment, log *slog.Logger) *EnrollmentService {
	return &EnrollmentService{
		repo:              repo,
		requireMembership: cfg.RequireActiveMembership,
		tracer:            otel.Tracer("gym/enrollment"),
		now:               time.Now,
		log:               log,
	}
}

// Enroll записывает actor на занятие. Проверки идут в порядке: занятие
// существует, повторная запись, свободные места. Отменённая ранее запись
// на то же занятие переиспользуется.
func (s *EnrollmentService) Enroll(ctx context.Context, actor models.Actor, scheduleID int64) (*models.Enrollment, error) {
	const op = "services.enrollment.Enroll"
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("user.id", actor.ID),
		attribute.Int64("schedule.id", scheduleID),
	))
	defer span.End()

	if s.requireMembership {
		user, err := s.repo.GetUserByID(ctx, actor.ID)
		if err != nil {
			return nil, s.fail(span, op, err)
		}
		if !user.HasActiveMembership(s.now()) {
			return nil, s.fail(span, op, models.ErrMembershipRequired)
		}
	}

	var id int64
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		sc, err := s.repo.LockSchedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		if !sc.CourseActive {
			return models.ErrInactiveItem
		}

		existing, err := s.repo.FindEnrollment(ctx, actor.ID, scheduleID)
		switch {
		case err == nil && existing.Status != models.EnrollmentCancelled:
			return models.ErrAlreadyEnrolled
		case err != nil && !errors.Is(err, models.ErrNotFound):
			return err
		}

		if sc.Full() {
			return models.ErrScheduleFull
		}

		if existing != nil {
			id = existing.ID
			if err := s.repo.SetEnrollmentStatus(ctx, id, models.EnrollmentEnrolled); err != nil {
				return err
			}
		} else {
			if id, err = s.repo.CreateEnrollment(ctx, actor.ID, scheduleID); err != nil {
				return err
			}
		}
		return s.repo.AdjustScheduleCapacity(ctx, scheduleID, 1)
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrScheduleFull):
			metrics.Enrollments.WithLabelValues(metrics.ResultFull).Inc()
		case errors.Is(err, models.ErrAlreadyEnrolled):
			metrics.Enrollments.WithLabelValues(metrics.ResultDuplicate).Inc()
		default:
			metrics.Enrollments.WithLabelValues(metrics.ResultError).Inc()
		}
		return nil, s.fail(span, op, err)
	}
	metrics.Enrollments.WithLabelValues(metrics.ResultOK).Inc()
	s.log.Info("user enrolled", slog.Int64("user_id", actor.ID), slog.Int64("schedule_id", scheduleID),
		slog.Int64("enrollment_id", id))

	e, err := s.repo.GetEnrollment(ctx, id)
	if err != nil {
		return nil, s.fail(span, op, err)
	}
	return e, nil
}

// Cancel отменяет запись. Место освобождается только если запись была
// активной, повторная отмена ничего не меняет.
func (s *EnrollmentService) Cancel(ctx context.Context, actor models.Actor, id int64) (*models.Enrollment, error) {
	const op = "services.enrollment.Cancel"
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("enrollment.id", id)))
	defer span.End()

	err := s.withLocked(ctx, id, func(ctx context.Context, e *models.Enrollment) error {
		if !actor.Owns(e.UserID) {
			return models.ErrForbidden
		}
		return s.cancelLocked(ctx, e)
	})
	if err != nil {
		return nil, s.fail(span, op, err)
	}
	e, err := s.repo.GetEnrollment(ctx, id)
	if err != nil {
		return nil, s.fail(span, op, err)
	}
	return e, nil
}

// Delete удаляет запись, освобождая место, если запись была активной.
func (s *EnrollmentService) Delete(ctx context.Context, actor models.Actor, id int64) error {
	const op = "services.enrollment.Delete"
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("enrollment.id", id)))
	defer span.End()

	err := s.withLocked(ctx, id, func(ctx context.Context, e *models.Enrollment) error {
		if !canAccess(actor, e) {
			return models.ErrForbidden
		}
		if e.Status == models.EnrollmentEnrolled {
			if err := s.repo.AdjustScheduleCapacity(ctx, e.ScheduleID, -1); err != nil {
				return err
			}
		}
		return s.repo.DeleteEnrollment(ctx, e.ID)
	})
	if err != nil {
		return s.fail(span, op, err)
	}
	return nil
}

// Update меняет статус и детали записи. Переходы статусов:
// enrolled -> cancelled и enrolled -> completed освобождают место,
// cancelled -> enrolled занимает место с проверкой вместимости,
// cancelled -> completed недопустим. Счётчик занятия всегда равен числу
// записей в статусе enrolled.
func (s *EnrollmentService) Update(ctx context.Context, actor models.Actor, id int64, upd models.EnrollmentUpdate) (*models.Enrollment, error) {
	const op = "services.enrollment.Update"
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("enrollment.id", id)))
	defer span.End()

	err := s.withLocked(ctx, id, func(ctx context.Context, e *models.Enrollment) error {
		if !canAccess(actor, e) {
			return models.ErrForbidden
		}
		if upd.Status != nil && *upd.Status != e.Status {
			if err := s.transition(ctx, e, *upd.Status); err != nil {
				return err
			}
		}
		if upd.Attendance == nil && upd.Feedback == nil && upd.Rating == nil {
			return nil
		}
		return s.repo.UpdateEnrollmentDetails(ctx, e.ID, upd)
	})
	if err != nil {
		return nil, s.fail(span, op, err)
	}
	e, err := s.repo.GetEnrollment(ctx, id)
	if err != nil {
		return nil, s.fail(span, op, err)
	}
	return e, nil
}

// Get возвращает запись владельцу, инструктору курса или администратору.
func (s *EnrollmentService) Get(ctx context.Context, actor models.Actor, id int64) (*models.Enrollment, error) {
	const op = "services.enrollment.Get"
	e, err := s.repo.GetEnrollment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !canAccess(actor, e) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	return e, nil
}

// List возвращает записи, видимые actor: администратору все, инструктору
// записи на его курсы, остальным собственные.
func (s *EnrollmentService) List(ctx context.Context, actor models.Actor, filter models.EnrollmentFilter) ([]*models.Enrollment, error) {
	const op = "services.enrollment.List"
	switch {
	case actor.IsAdmin():
	case actor.Role == models.RoleStaff:
		filter.InstructorID = actor.ID
	default:
		filter.UserID = actor.ID
	}
	enrollments, err := s.repo.ListEnrollments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return enrollments, nil
}

// withLocked блокирует сначала занятие, затем запись, и вызывает fn в транзакции.
// Порядок блокировок тот же, что и в Enroll.
func (s *EnrollmentService) withLocked(ctx context.Context, id int64, fn func(ctx context.Context, e *models.Enrollment) error) error {
	return s.repo.InTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetEnrollment(ctx, id)
		if err != nil {
			return err
		}
		if _, err := s.repo.LockSchedule(ctx, current.ScheduleID); err != nil {
			return err
		}
		locked, err := s.repo.LockEnrollment(ctx, id)
		if err != nil {
			return err
		}
		return fn(ctx, locked)
	})
}

func (s *EnrollmentService) cancelLocked(ctx context.Context, e *models.Enrollment) error {
	switch e.Status {
	case models.EnrollmentCancelled:
		return nil
	case models.EnrollmentEnrolled:
		if err := s.repo.AdjustScheduleCapacity(ctx, e.ScheduleID, -1); err != nil {
			return err
		}
	}
	return s.repo.SetEnrollmentStatus(ctx, e.ID, models.EnrollmentCancelled)
}

func (s *EnrollmentService) transition(ctx context.Context, e *models.Enrollment, to models.EnrollmentStatus) error {
	switch to {
	case models.EnrollmentCancelled:
		return s.cancelLocked(ctx, e)
	case models.EnrollmentCompleted:
		if e.Status != models.EnrollmentEnrolled {
			return models.ErrInvalidTransition
		}
		if err := s.repo.AdjustScheduleCapacity(ctx, e.ScheduleID, -1); err != nil {
			return err
		}
		return s.repo.SetEnrollmentStatus(ctx, e.ID, models.EnrollmentCompleted)
	case models.EnrollmentEnrolled:
		if e.Status != models.EnrollmentCancelled {
			return models.ErrAlreadyEnrolled
		}
		sc, err := s.repo.LockSchedule(ctx, e.ScheduleID)
		if err != nil {
			return err
		}
		if sc.Full() {
			return models.ErrScheduleFull
		}
		if err := s.repo.SetEnrollmentStatus(ctx, e.ID, models.EnrollmentEnrolled); err != nil {
			return err
		}
		return s.repo.AdjustScheduleCapacity(ctx, e.ScheduleID, 1)
	}
	return models.ErrInvalidTransition
}

func (s *EnrollmentService) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return fmt.Errorf("%s: %w", op, err)
}

func canAccess(actor models.Actor, e *models.Enrollment) bool {
	if actor.Owns(e.UserID) {
		return true
	}
	return actor.Role == models.RoleStaff && e.InstructorID != nil && *e.InstructorID == actor.ID
}
