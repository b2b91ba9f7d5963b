package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/magabrotheeeer/gym-management/internal/models"
)

const enrollmentSelect = `SELECT e.id, e.user_id, u.username, e.schedule_id, s.course_id, c.name, c.instructor_id,
	s.start_time, e.status, e.attendance, e.feedback, e.rating, e.created_at, e.updated_at
	FROM enrollments e
	JOIN users u ON u.id = e.user_id
	JOIN schedules s ON s.id = e.schedule_id
	JOIN courses c ON c.id = s.course_id`

func scanEnrollment(row rowScanner) (*models.Enrollment, error) {
	var (
		e            models.Enrollment
		instructorID sql.NullInt64
		attendance   sql.NullBool
		rating       sql.NullInt32
	)
	err := row.Scan(&e.ID, &e.UserID, &e.Username, &e.ScheduleID, &e.CourseID, &e.CourseName, &instructorID,
		&e.StartTime, &e.Status, &attendance, &e.Feedback, &rating, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.InstructorID = int64Ptr(instructorID)
	if attendance.Valid {
		v := attendance.Bool
		e.Attendance = &v
	}
	if rating.Valid {
		v := int(rating.Int32)
		e.Rating = &v
	}
	return &e, nil
}

// CreateEnrollment создаёт запись со статусом enrolled. Счётчик занятия
// меняется отдельно через AdjustScheduleCapacity в той же транзакции.
func (s *Storage) CreateEnrollment(ctx context.Context, userID, scheduleID int64) (int64, error) {
	const op = "storage.CreateEnrollment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO enrollments (user_id, schedule_id, status)
		VALUES ($1, $2, 'enrolled')
		RETURNING id`,
		userID, scheduleID,
	).Scan(&id)
	if err != nil {
		return 0, wrap(op, err)
	}
	return id, nil
}

// GetEnrollment возвращает запись по идентификатору.
func (s *Storage) GetEnrollment(ctx context.Context, id int64) (*models.Enrollment, error) {
	const op = "storage.GetEnrollment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	e, err := scanEnrollment(s.conn(ctx).QueryRowContext(ctx, enrollmentSelect+` WHERE e.id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return e, nil
}

// FindEnrollment возвращает запись пользователя на занятие в любом статусе.
func (s *Storage) FindEnrollment(ctx context.Context, userID, scheduleID int64) (*models.Enrollment, error) {
	const op = "storage.FindEnrollment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	e, err := scanEnrollment(s.conn(ctx).QueryRowContext(ctx,
		enrollmentSelect+` WHERE e.user_id = $1 AND e.schedule_id = $2`, userID, scheduleID))
	if err != nil {
		return nil, wrap(op, err)
	}
	return e, nil
}

// LockEnrollment читает запись с блокировкой строки.
func (s *Storage) LockEnrollment(ctx context.Context, id int64) (*models.Enrollment, error) {
	const op = "storage.LockEnrollment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	e, err := scanEnrollment(s.conn(ctx).QueryRowContext(ctx, enrollmentSelect+` WHERE e.id = $1 FOR UPDATE OF e`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return e, nil
}

// ListEnrollments возвращает записи по фильтру, новые первыми.
func (s *Storage) ListEnrollments(ctx context.Context, filter models.EnrollmentFilter) ([]*models.Enrollment, error) {
	const op = "storage.ListEnrollments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, cond+" = $"+strconv.Itoa(len(args)))
	}
	if filter.UserID > 0 {
		add("e.user_id", filter.UserID)
	}
	if filter.InstructorID > 0 {
		add("c.instructor_id", filter.InstructorID)
	}
	if filter.ScheduleID > 0 {
		add("e.schedule_id", filter.ScheduleID)
	}
	if filter.Status != "" {
		add("e.status", string(filter.Status))
	}
	query := enrollmentSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY e.created_at DESC, e.id DESC"

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var enrollments []*models.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return enrollments, nil
}

// SetEnrollmentStatus меняет статус записи.
func (s *Storage) SetEnrollmentStatus(ctx context.Context, id int64, status models.EnrollmentStatus) error {
	const op = "storage.SetEnrollmentStatus"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE enrollments SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}

// UpdateEnrollmentDetails меняет посещение, отзыв и оценку. nil оставляет поле без изменений.
func (s *Storage) UpdateEnrollmentDetails(ctx context.Context, id int64, upd models.EnrollmentUpdate) error {
	const op = "storage.UpdateEnrollmentDetails"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE enrollments SET
			attendance = COALESCE($2, attendance),
			feedback = COALESCE($3, feedback),
			rating = COALESCE($4, rating),
			updated_at = NOW()
		WHERE id = $1`,
		id, upd.Attendance, upd.Feedback, upd.Rating,
	)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}

// DeleteEnrollment удаляет запись.
func (s *Storage) DeleteEnrollment(ctx context.Context, id int64) error {
	const op = "storage.DeleteEnrollment"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}
