package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/gym-management/internal/models"
)

// CreateCategory создаёт категорию курсов.
func (s *Storage) CreateCategory(ctx context.Context, in models.CategoryInput) (int64, error) {
	const op = "storage.CreateCategory"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var id int64
	err := s.conn(ctx).QueryRowContext(ctx,
		`INSERT INTO course_categories (name, description) VALUES ($1, $2) RETURNING id`,
		in.Name, in.Description,
	).Scan(&id)
	if err != nil {
		return 0, wrap(op, err)
	}
	return id, nil
}

// GetCategory возвращает категорию по идентификатору.
func (s *Storage) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	const op = "storage.GetCategory"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var c models.Category
	err := s.conn(ctx).QueryRowContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM course_categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &c, nil
}

// ListCategories возвращает все категории по алфавиту.
func (s *Storage) ListCategories(ctx context.Context) ([]*models.Category, error) {
	const op = "storage.ListCategories"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.conn(ctx).QueryContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM course_categories ORDER BY name`)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, wrap(op, err)
		}
		categories = append(categories, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return categories, nil
}

// UpdateCategory заменяет название и описание категории.
func (s *Storage) UpdateCategory(ctx context.Context, id int64, in models.CategoryInput) error {
	const op = "storage.UpdateCategory"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE course_categories SET name = $2, description = $3, updated_at = NOW() WHERE id = $1`,
		id, in.Name, in.Description)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}

// DeleteCategory удаляет категорию. Курсы категории удаляются каскадно.
func (s *Storage) DeleteCategory(ctx context.Context, id int64) error {
	const op = "storage.DeleteCategory"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM course_categories WHERE id = $1`, id)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}
