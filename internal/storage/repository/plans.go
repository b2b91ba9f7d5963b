package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/gym-management/internal/models"
)

const planColumns = `id, name, plan_type, duration_days, price, description, benefits, is_active, created_at, updated_at`

func scanPlan(row rowScanner) (*models.MembershipPlan, error) {
	var p models.MembershipPlan
	err := row.Scan(&p.ID, &p.Name, &p.PlanType, &p.DurationDays, &p.Price, &p.Description, &p.Benefits,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func planActive(in models.PlanInput) bool {
	return in.IsActive == nil || *in.IsActive
}

// CreatePlan создаёт тарифный план.
func (s *Storage) CreatePlan(ctx context.Context, in models.PlanInput) (int64, error) {
	const op = "storage.CreatePlan"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO membership_plans (name, plan_type, duration_days, price, description, benefits, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		in.Name, string(in.PlanType), in.DurationDays, in.Price, in.Description, in.Benefits, planActive(in),
	).Scan(&id)
	if err != nil {
		return 0, wrap(op, err)
	}
	return id, nil
}

// GetPlan возвращает тарифный план по идентификатору.
func (s *Storage) GetPlan(ctx context.Context, id int64) (*models.MembershipPlan, error) {
	const op = "storage.GetPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	p, err := scanPlan(s.conn(ctx).QueryRowContext(ctx, `SELECT `+planColumns+` FROM membership_plans WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return p, nil
}

// ListPlans возвращает тарифы, при onlyActive только активные.
func (s *Storage) ListPlans(ctx context.Context, onlyActive bool) ([]*models.MembershipPlan, error) {
	const op = "storage.ListPlans"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT `+planColumns+` FROM membership_plans WHERE is_active OR NOT $1 ORDER BY price, id`, onlyActive)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var plans []*models.MembershipPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return plans, nil
}

// UpdatePlan заменяет поля тарифа.
func (s *Storage) UpdatePlan(ctx context.Context, id int64, in models.PlanInput) error {
	const op = "storage.UpdatePlan"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE membership_plans SET
			name = $2, plan_type = $3, duration_days = $4, price = $5, description = $6,
			benefits = $7, is_active = $8, updated_at = NOW()
		WHERE id = $1`,
		id, in.Name, string(in.PlanType), in.DurationDays, in.Price, in.Description, in.Benefits, planActive(in),
	)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}

// DeletePlan удаляет тарифный план. Снимки абонементов пользователей не меняются.
func (s *Storage) DeletePlan(ctx context.Context, id int64) error {
	const op = "storage.DeletePlan"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM membership_plans WHERE id = $1`, id)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}
