package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/gym-management/internal/models"
)

const scheduleSelect = `SELECT s.id, s.course_id, c.name, c.instructor_id, s.start_time, s.end_time, s.location,
	s.current_capacity, c.capacity, c.is_active, s.created_at, s.updated_at
	FROM schedules s
	JOIN courses c ON c.id = s.course_id`

func scanSchedule(row rowScanner) (*models.Schedule, error) {
	var (
		sc           models.Schedule
		instructorID sql.NullInt64
	)
	err := row.Scan(&sc.ID, &sc.CourseID, &sc.CourseName, &instructorID, &sc.StartTime, &sc.EndTime,
		&sc.Location, &sc.CurrentCapacity, &sc.Capacity, &sc.CourseActive, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sc.InstructorID = int64Ptr(instructorID)
	sc.AvailableSlots = max(sc.Capacity-sc.CurrentCapacity, 0)
	return &sc, nil
}

// CreateSchedule создаёт занятие с нулевым счётчиком записанных.
func (s *Storage) CreateSchedule(ctx context.Context, in models.ScheduleInput) (int64, error) {
	const op = "storage.CreateSchedule"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO schedules (course_id, start_time, end_time, location)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		in.CourseID, in.StartTime, in.EndTime, in.Location,
	).Scan(&id)
	if err != nil {
		return 0, wrap(op, err)
	}
	return id, nil
}

// GetSchedule возвращает занятие с названием и вместимостью курса.
func (s *Storage) GetSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	const op = "storage.GetSchedule"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	sc, err := scanSchedule(s.conn(ctx).QueryRowContext(ctx, scheduleSelect+` WHERE s.id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return sc, nil
}

// LockSchedule читает занятие и блокирует его строку до конца транзакции.
// Все изменения счётчика записанных выполняются под этой блокировкой.
func (s *Storage) LockSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	const op = "storage.LockSchedule"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	sc, err := scanSchedule(s.conn(ctx).QueryRowContext(ctx, scheduleSelect+` WHERE s.id = $1 FOR UPDATE OF s`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return sc, nil
}

// ListSchedules возвращает занятия по фильтру в порядке начала.
func (s *Storage) ListSchedules(ctx context.Context, filter models.ScheduleFilter) ([]*models.Schedule, error) {
	const op = "storage.ListSchedules"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var (
		where []string
		args  []any
	)
	if filter.CourseID > 0 {
		args = append(args, filter.CourseID)
		where = append(where, "s.course_id = $"+strconv.Itoa(len(args)))
	}
	if filter.OnlyActive {
		where = append(where, "c.is_active")
	}
	query := scheduleSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY s.start_time, s.id"

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var schedules []*models.Schedule
	for rows.Next() {
		sc, err := scanSchedule(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		schedules = append(schedules, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return schedules, nil
}

// UpdateSchedule меняет курс, время и место занятия. Счётчик не трогает.
func (s *Storage) UpdateSchedule(ctx context.Context, id int64, in models.ScheduleInput) error {
	const op = "storage.UpdateSchedule"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE schedules SET course_id = $2, start_time = $3, end_time = $4, location = $5, updated_at = NOW()
		WHERE id = $1`,
		id, in.CourseID, in.StartTime, in.EndTime, in.Location,
	)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}

// DeleteSchedule удаляет занятие вместе с записями на него.
func (s *Storage) DeleteSchedule(ctx context.Context, id int64) error {
	const op = "storage.DeleteSchedule"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}

// AdjustScheduleCapacity меняет счётчик записанных на delta. Счётчик не
// выходит за пределы [0, вместимость курса]: если условие не выполнено,
// строка не меняется и возвращается ErrScheduleFull при увеличении или
// ErrInvalidTransition при уменьшении.
func (s *Storage) AdjustScheduleCapacity(ctx context.Context, id int64, delta int) error {
	const op = "storage.AdjustScheduleCapacity"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE schedules s SET current_capacity = s.current_capacity + $2, updated_at = NOW()
		FROM courses c
		WHERE s.id = $1 AND c.id = s.course_id
			AND s.current_capacity + $2 >= 0
			AND s.current_capacity + $2 <= c.capacity`,
		id, delta,
	)
	if err != nil {
		return wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		if delta > 0 {
			return fmt.Errorf("%s: %w", op, models.ErrScheduleFull)
		}
		return fmt.Errorf("%s: %w", op, models.ErrInvalidTransition)
	}
	return nil
}
