// Package services содержит тарифные планы и абонементы пользователей.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/gym-management/internal/lib/day"
	"github.com/magabrotheeeer/gym-management/internal/lib/sl"
	"github.com/magabrotheeeer/gym-management/internal/metrics"
	"github.com/magabrotheeeer/gym-management/internal/models"
	"github.com/magabrotheeeer/gym-management/internal/roles"
)

const planTTL = time.Hour

// Источники активации абонемента.
const (
	SourceOrder = "order"
	SourceAdmin = "admin"
)

// defaultDuration длительность плана в днях, если она не указана явно.
var defaultDuration = map[models.PlanType]int{
	models.PlanMonthly:   30,
	models.PlanQuarterly: 90,
	models.PlanYearly:    365,
}

// MembershipRepository методы хранилища для планов и абонементов.
type MembershipRepository interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreatePlan(ctx context.Context, in models.PlanInput) (int64, error)
	GetPlan(ctx context.Context, id int64) (*models.MembershipPlan, error)
	ListPlans(ctx context.Context, onlyActive bool) ([]*models.MembershipPlan, error)
	UpdatePlan(ctx context.Context, id int64, in models.PlanInput) error
	DeletePlan(ctx context.Context, id int64) error

	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	LockUser(ctx context.Context, id int64) (*models.User, error)
	SaveMembership(ctx context.Context, id int64, m models.Membership, role models.Role) error
	ExpireMembership(ctx context.Context, id int64, today time.Time) (bool, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// MembershipService реализует планы и активацию абонементов.
type MembershipService struct {
	repo  MembershipRepository
	cache Cache
	now   func() time.Time
	log   *slog.Logger
}

// NewMembershipService создает новый экземпляр MembershipService.
func NewMembershipService(repo MembershipRepository, cache Cache, log *slog.Logger) *MembershipService {
	return &MembershipService{
		repo:  repo,
		cache: cache,
		now:   time.Now,
		log:   log,
	}
}

func planKey(id int64) string {
	return fmt.Sprintf("plan:%d", id)
}

// ListPlans возвращает планы. Не сотрудникам показываются только активные.
func (s *MembershipService) ListPlans(ctx context.Context, staff bool) ([]*models.MembershipPlan, error) {
	const op = "services.membership.ListPlans"
	plans, err := s.repo.ListPlans(ctx, !staff)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plans, nil
}

// GetPlan возвращает план из кеша или из хранилища.
func (s *MembershipService) GetPlan(ctx context.Context, id int64, staff bool) (*models.MembershipPlan, error) {
	const op = "services.membership.GetPlan"
	plan, err := s.plan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !plan.IsActive && !staff {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return plan, nil
}

func (s *MembershipService) plan(ctx context.Context, id int64) (*models.MembershipPlan, error) {
	key := planKey(id)
	var cached models.MembershipPlan
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	plan, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, plan, planTTL); err != nil {
		s.log.Warn("failed to save to cache", slog.String("key", key), sl.Err(err))
	}
	return plan, nil
}

func (s *MembershipService) invalidatePlan(ctx context.Context, id int64) {
	key := planKey(id)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", key), sl.Err(err))
	}
}

func withDefaultDuration(in models.PlanInput) models.PlanInput {
	if in.DurationDays == 0 {
		in.DurationDays = defaultDuration[in.PlanType]
	}
	return in
}

// CreatePlan создаёт план.
func (s *MembershipService) CreatePlan(ctx context.Context, in models.PlanInput) (*models.MembershipPlan, error) {
	const op = "services.membership.CreatePlan"
	id, err := s.repo.CreatePlan(ctx, withDefaultDuration(in))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	plan, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plan, nil
}

// UpdatePlan меняет план и сбрасывает его кеш.
func (s *MembershipService) UpdatePlan(ctx context.Context, id int64, in models.PlanInput) (*models.MembershipPlan, error) {
	const op = "services.membership.UpdatePlan"
	if err := s.repo.UpdatePlan(ctx, id, withDefaultDuration(in)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidatePlan(ctx, id)
	plan, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plan, nil
}

// DeletePlan удаляет план.
func (s *MembershipService) DeletePlan(ctx context.Context, id int64) error {
	const op = "services.membership.DeletePlan"
	if err := s.repo.DeletePlan(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidatePlan(ctx, id)
	return nil
}

// Activate оформляет абонемент по плану: срок с сегодняшнего дня на
// DurationDays дней, роль по таблице переходов. Повторная активация тем же
// планом даёт тот же результат в пределах одного дня.
func (s *MembershipService) Activate(ctx context.Context, userID, planID int64, source string) (*models.MembershipInfo, error) {
	const op = "services.membership.Activate"
	log := s.log.With(slog.String("op", op), slog.Int64("user_id", userID), slog.Int64("plan_id", planID))

	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		user, err := s.repo.LockUser(ctx, userID)
		if err != nil {
			return err
		}
		plan, err := s.repo.GetPlan(ctx, planID)
		if err != nil {
			return err
		}
		role, err := roles.Apply(user.Role, roles.MembershipActivated)
		if err != nil {
			return err
		}

		start := day.Of(s.now())
		end := day.Add(start, plan.DurationDays)
		m := models.Membership{
			MemberID: user.MemberID,
			Status:   models.MembershipActive,
			Start:    &start,
			End:      &end,
			Type:     plan.PlanType,
			PlanID:   &plan.ID,
			PlanName: plan.Name,
		}
		if m.MemberID == "" {
			m.MemberID = fmt.Sprintf("M%06d", user.ID)
		}
		return s.repo.SaveMembership(ctx, userID, m, role)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.MembershipActivations.WithLabelValues(source).Inc()
	log.Info("membership activated", slog.String("source", source))

	return s.GetMembership(ctx, userID)
}

// GetMembership возвращает абонемент пользователя. Абонемент, срок которого
// прошёл, помечается истёкшим перед ответом.
func (s *MembershipService) GetMembership(ctx context.Context, userID int64) (*models.MembershipInfo, error) {
	const op = "services.membership.GetMembership"
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	today := day.Of(s.now())
	if user.MembershipLapsed(today) {
		changed, err := s.repo.ExpireMembership(ctx, userID, today)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if changed {
			s.log.Info("membership expired", slog.Int64("user_id", userID))
		}
		user.Status = models.MembershipExpired
	}

	info := &models.MembershipInfo{
		UserID:     user.ID,
		Membership: user.Membership,
		Role:       user.Role,
	}
	if user.HasActiveMembership(today) {
		info.DaysRemaining = day.Between(today, *user.End)
	}
	if user.PlanID != nil {
		plan, err := s.plan(ctx, *user.PlanID)
		switch {
		case err == nil:
			info.Plan = plan
		case !errors.Is(err, models.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return info, nil
}
