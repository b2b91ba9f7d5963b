// Package services содержит периодические задачи планировщика: поиск
// абонементов, которые заканчиваются завтра, и публикацию напоминаний.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/gym-management/internal/lib/day"
	"github.com/magabrotheeeer/gym-management/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/gym-management/internal/lib/sl"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

// ReminderRepository поиск абонементов по дате окончания.
type ReminderRepository interface {
	FindMembershipsEndingOn(ctx context.Context, date time.Time) ([]models.MembershipReminder, error)
}

// Publisher отправляет сообщение в брокер.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// SchedulerService рассылает напоминания об окончании абонемента.
type SchedulerService struct {
	repo ReminderRepository
	pub  Publisher
	now  func() time.Time
	log  *slog.Logger
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo ReminderRepository, pub Publisher, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo: repo,
		pub:  pub,
		now:  time.Now,
		log:  log,
	}
}

// RunMembershipReminders запускает поиск сразу и затем каждые 24 часа до отмены ctx.
func (s *SchedulerService) RunMembershipReminders(ctx context.Context) {
	s.runMembershipReminders(ctx)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runMembershipReminders(ctx)
		}
	}
}

func (s *SchedulerService) runMembershipReminders(ctx context.Context) {
	s.log.Info("looking for memberships ending tomorrow")
	n, err := s.RemindExpiring(ctx)
	if err != nil {
		s.log.Error("failed to send reminders", sl.Err(err))
	}
	s.log.Info("membership reminders published", slog.Int("count", n))
}

// RemindExpiring публикует напоминание для каждого активного абонемента,
// который заканчивается завтра. Ошибка публикации одного напоминания не
// останавливает остальные.
func (s *SchedulerService) RemindExpiring(ctx context.Context) (int, error) {
	const op = "services.scheduler.RemindExpiring"
	tomorrow := day.Add(s.now(), 1)
	reminders, err := s.repo.FindMembershipsEndingOn(ctx, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var published int
	for _, r := range reminders {
		if err := s.pub.Publish(rabbitmq.RoutingMembershipExpiring, r); err != nil {
			s.log.Error("failed to publish reminder", slog.Int64("user_id", r.UserID), sl.Err(err))
			continue
		}
		published++
	}
	return published, nil
}
