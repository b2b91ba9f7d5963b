package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/gym-management/internal/models"
)

// GetProfile возвращает фитнес-анкету пользователя.
func (s *Storage) GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	const op = "storage.GetProfile"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var (
		p              models.UserProfile
		height, weight sql.NullFloat64
		goal, level    sql.NullString
	)
	err := s.conn(ctx).QueryRowContext(ctx, `
		SELECT user_id, height::float8, weight::float8, health_condition, fitness_goal, fitness_level,
			notes, medical_conditions, emergency_contact, created_at, updated_at
		FROM user_profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &height, &weight, &p.HealthCondition, &goal, &level,
		&p.Notes, &p.MedicalConditions, &p.EmergencyContact, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, wrap(op, err)
	}
	p.Height = floatPtr(height)
	p.Weight = floatPtr(weight)
	p.FitnessGoal = models.FitnessGoal(goal.String)
	p.FitnessLevel = models.FitnessLevel(level.String)
	return &p, nil
}

// UpsertProfile создаёт или перезаписывает анкету целиком.
func (s *Storage) UpsertProfile(ctx context.Context, p *models.UserProfile) error {
	const op = "storage.UpsertProfile"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	err := s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO user_profiles (user_id, height, weight, health_condition, fitness_goal, fitness_level,
			notes, medical_conditions, emergency_contact)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			height = EXCLUDED.height,
			weight = EXCLUDED.weight,
			health_condition = EXCLUDED.health_condition,
			fitness_goal = EXCLUDED.fitness_goal,
			fitness_level = EXCLUDED.fitness_level,
			notes = EXCLUDED.notes,
			medical_conditions = EXCLUDED.medical_conditions,
			emergency_contact = EXCLUDED.emergency_contact,
			updated_at = NOW()
		RETURNING created_at, updated_at`,
		p.UserID, nullFloat(p.Height), nullFloat(p.Weight), p.HealthCondition,
		nullString(string(p.FitnessGoal)), nullString(string(p.FitnessLevel)),
		p.Notes, p.MedicalConditions, p.EmergencyContact,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return wrap(op, err)
	}
	return nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
