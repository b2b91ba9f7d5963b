package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/gym-management/internal/models"
)

const userColumns = `u.id, u.username, u.email, u.password_hash, u.first_name, u.last_name, u.phone, u.role,
	u.avatar, u.address, u.birth_date, u.gender, u.member_id, u.membership_status, u.membership_start,
	u.membership_end, u.membership_type, u.membership_plan_id, u.membership_plan_name, u.created_at, u.updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u                                         models.User
		gender, memberID, status, mType, planName sql.NullString
		birthDate, start, end                     sql.NullTime
		planID                                    sql.NullInt64
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.Role,
		&u.Avatar, &u.Address, &birthDate, &gender, &memberID, &status, &start, &end, &mType, &planID, &planName,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.BirthDate = timePtr(birthDate)
	u.Gender = models.Gender(gender.String)
	u.MemberID = memberID.String
	u.Status = models.MembershipStatus(status.String)
	u.Start = timePtr(start)
	u.End = timePtr(end)
	u.Type = models.PlanType(mType.String)
	u.PlanID = int64Ptr(planID)
	u.PlanName = planName.String
	return &u, nil
}

// CreateUser сохраняет нового пользователя и возвращает его идентификатор.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (int64, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var id int64
	err := s.conn(ctx).QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, first_name, last_name, phone, role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		user.Username, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Phone, user.Role,
	).Scan(&id)
	if err != nil {
		return 0, wrap(op, err)
	}
	return id, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (s *Storage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.GetUserByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, wrap(op, err)
	}
	return user, nil
}

// GetUserByUsername возвращает пользователя по логину.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.username = $1`, username)
	user, err := scanUser(row)
	if err != nil {
		return nil, wrap(op, err)
	}
	return user, nil
}

// LockUser читает пользователя с блокировкой строки до конца транзакции.
func (s *Storage) LockUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.LockUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	row := s.conn(ctx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1 FOR UPDATE`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, wrap(op, err)
	}
	return user, nil
}

// ListUsers возвращает пользователей по фильтру, упорядоченных по id.
func (s *Storage) ListUsers(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	const op = "storage.ListUsers"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.Role != "" {
		where = append(where, "u.role = "+arg(string(filter.Role)))
	}
	if len(filter.ExcludeRoles) > 0 {
		excluded := make([]string, 0, len(filter.ExcludeRoles))
		for _, r := range filter.ExcludeRoles {
			excluded = append(excluded, string(r))
		}
		where = append(where, "u.role <> ALL("+arg(excluded)+")")
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(u.username ILIKE %[1]s OR u.email ILIKE %[1]s OR u.first_name ILIKE %[1]s OR u.last_name ILIKE %[1]s)", p))
	}

	query := `SELECT ` + userColumns + ` FROM users u`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY u.id"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := s.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, wrap(op, err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return users, nil
}

// UpdateUserProfile меняет переданные поля профиля. Роль здесь не меняется.
func (s *Storage) UpdateUserProfile(ctx context.Context, id int64, upd models.UserUpdate) error {
	const op = "storage.UpdateUserProfile"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE users SET
			email = COALESCE($2, email),
			first_name = COALESCE($3, first_name),
			last_name = COALESCE($4, last_name),
			phone = COALESCE($5, phone),
			avatar = COALESCE($6, avatar),
			address = COALESCE($7, address),
			birth_date = COALESCE($8::date, birth_date),
			gender = COALESCE($9, gender),
			updated_at = NOW()
		WHERE id = $1`,
		id, upd.Email, upd.FirstName, upd.LastName, upd.Phone,
		upd.Avatar, upd.Address, upd.BirthDate, upd.Gender,
	)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}

// UpdateUserRole меняет роль пользователя.
func (s *Storage) UpdateUserRole(ctx context.Context, id int64, role models.Role) error {
	const op = "storage.UpdateUserRole"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, role)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}

// UpdatePassword сохраняет новый хэш пароля.
func (s *Storage) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const op = "storage.UpdatePassword"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}

// DeleteUser удаляет пользователя вместе с его записями и заказами.
func (s *Storage) DeleteUser(ctx context.Context, id int64) error {
	const op = "storage.DeleteUser"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}

// SaveMembership записывает снимок абонемента и роль пользователя.
func (s *Storage) SaveMembership(ctx context.Context, id int64, m models.Membership, role models.Role) error {
	const op = "storage.SaveMembership"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE users SET
			member_id = $2,
			membership_status = $3,
			membership_start = $4,
			membership_end = $5,
			membership_type = $6,
			membership_plan_id = $7,
			membership_plan_name = $8,
			role = $9,
			updated_at = NOW()
		WHERE id = $1`,
		id, nullString(m.MemberID), nullString(string(m.Status)), m.Start, m.End,
		nullString(string(m.Type)), nullInt64(m.PlanID), nullString(m.PlanName), role,
	)
	if err != nil {
		return wrap(op, err)
	}
	return expectAffected(op, res)
}

// ExpireMembership помечает абонемент истёкшим, если он всё ещё активен и
// его срок закончился раньше today. Возвращает true, если строка изменена.
func (s *Storage) ExpireMembership(ctx context.Context, id int64, today time.Time) (bool, error) {
	const op = "storage.ExpireMembership"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.conn(ctx).ExecContext(ctx, `
		UPDATE users SET membership_status = 'expired', updated_at = NOW()
		WHERE id = $1 AND membership_status = 'active' AND membership_end < $2::date`,
		id, today,
	)
	if err != nil {
		return false, wrap(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}

// FindMembershipsEndingOn возвращает активные абонементы, которые заканчиваются в date.
func (s *Storage) FindMembershipsEndingOn(ctx context.Context, date time.Time) ([]models.MembershipReminder, error) {
	const op = "storage.FindMembershipsEndingOn"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.conn(ctx).QueryContext(ctx, `
		SELECT id, username, email, COALESCE(membership_plan_name, ''), membership_end
		FROM users
		WHERE membership_status = 'active' AND membership_end = $1::date
		ORDER BY id`, date)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var reminders []models.MembershipReminder
	for rows.Next() {
		var r models.MembershipReminder
		if err := rows.Scan(&r.UserID, &r.Username, &r.Email, &r.PlanName, &r.MembershipEnd); err != nil {
			return nil, wrap(op, err)
		}
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op, err)
	}
	return reminders, nil
}
