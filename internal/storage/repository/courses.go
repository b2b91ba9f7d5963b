package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/gym-management/internal/models"
)

const courseSelect = `SELECT c.id, c.name, c.description, c.category_id, cat.name, c.instructor_id,
	COALESCE(u.username, ''), c.price, c.duration_minutes, c.capacity, c.difficulty, c.is_active,
	c.created_at, c.updated_at
	FROM courses c
	JOIN course_categories cat ON cat.id = c.category_id
	LEFT JOIN users u ON u.id = c.instructor_id`

func scanCourse(row rowScanner) (*models.Course, error) {
	var (
		c            models.Course
		instructorID sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CategoryID, &c.CategoryName, &instructorID,
		&c.InstructorName, &c.Price, &c.DurationMinutes, &c.Capacity, &c.Difficulty, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.InstructorID = int64Ptr(instructorID)
	return &c, nil
}

func courseActive(in models.CourseInput) bool {
	if in.IsActive == nil {
		return true
	}
	return *in.IsActive
}

func courseDifficulty(in models.CourseInput) models.Difficulty {
	if in.Difficulty == "" {
		return models.DifficultyBeginner
	}
	return in.Difficulty
}

// CreateCourse создаёт курс.
func (s *Storage) CreateCourse(ctx context.Context, in models.CourseInput) (int64, error) {
	const op = "storage.CreateCourse"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO courses (name, description, category_id, instructor_id, price, duration_minutes,
			capacity, difficulty, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		in.Name, in.Description, in.CategoryID, nullInt64(in.InstructorID), in.Price, in.DurationMinutes,
		in.Capacity, courseDifficulty(in), courseActive(in),
	).Scan(&id)
	if err != nil {
		return 0, wrap(op, err)
	}
	return id, nil
}

// GetCourse возвращает курс с названием категории и логином инструктора.
func (s *Storage) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	const op = "storage.GetCourse"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	course, err := scanCourse(s.conn(ctx).QueryRowContext(ctx, courseSelect+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return course, nil
}

// ListCourses возвращает курсы по фильтру.
func (s *Storage) ListCourses(ctx context.Context, filter models.CourseFilter) ([]*models.Course, error) {
	const op = "storage.ListCourses"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var (
		where []string
		args  []any
	)
	if filter.CategoryID > 0 {
		args = append(args, filter.CategoryID)
		where = append(where, "c.category_id = $"+strconv.Itoa(len(args)))
	}
	if filter.InstructorID > 0 {
		args = append(args, filter.InstructorID)
		where = append(where, "c.instructor_id = $"+strconv.Itoa(len(args)))
	}
	if filter.OnlyActive {
		where = append(where, "c.is_active")
	}
	query := courseSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY c.id"

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var courses []*models.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return courses, nil
}

// UpdateCourse заменяет поля курса.
func (s *Storage) UpdateCourse(ctx context.Context, id int64, in models.CourseInput) error {
	const op = "storage.UpdateCourse"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE courses SET
			name = $2, description = $3, category_id = $4, instructor_id = $5, price = $6,
			duration_minutes = $7, capacity = $8, difficulty = $9, is_active = $10, updated_at = NOW()
		WHERE id = $1`,
		id, in.Name, in.Description, in.CategoryID, nullInt64(in.InstructorID), in.Price,
		in.DurationMinutes, in.Capacity, courseDifficulty(in), courseActive(in),
	)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}

// DeleteCourse удаляет курс вместе с расписанием и записями.
func (s *Storage) DeleteCourse(ctx context.Context, id int64) error {
	const op = "storage.DeleteCourse"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}
