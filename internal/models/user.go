// Package models содержит доменные структуры спортзала: пользователей с их
// абонементом, каталог курсов и расписаний, записи на занятия, тарифы,
// заказы и события outbox. Структуры используются в бизнес‑логике,
// хранилище и HTTP-слое.
package models

import (
	"time"

	"github.com/magabrotheeeer/gym-management/internal/lib/day"
)

// Role роль пользователя.
type Role string

const (
	RoleUser   Role = "user"
	RoleMember Role = "member"
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
)

// Valid сообщает, является ли роль одной из известных.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleMember, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// IsStaff true для сотрудников и администраторов.
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// MembershipStatus статус абонемента.
type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "active"
	MembershipExpired   MembershipStatus = "expired"
	MembershipSuspended MembershipStatus = "suspended"
	MembershipCancelled MembershipStatus = "cancelled"
)

// Membership снимок абонемента, хранящийся в записи пользователя.
// Пустые строки и nil соответствуют NULL в базе.
type Membership struct {
	MemberID string           `json:"member_id,omitempty"`
	Status   MembershipStatus `json:"membership_status,omitempty"`
	Start    *time.Time       `json:"membership_start,omitempty"`
	End      *time.Time       `json:"membership_end,omitempty"`
	Type     PlanType         `json:"membership_type,omitempty"`
	PlanID   *int64           `json:"membership_plan_id,omitempty"`
	PlanName string           `json:"membership_plan_name,omitempty"`
}

// User зарегистрированный пользователь системы.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Phone        string     `json:"phone"`
	Role         Role       `json:"role"`
	Avatar       string     `json:"avatar"`
	Address      string     `json:"address"`
	BirthDate    *time.Time `json:"birth_date,omitempty"`
	Gender       Gender     `json:"gender,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Membership
}

// HasActiveMembership сравнивает дату окончания абонемента с today напрямую,
// не полагаясь на то, что статус уже исправлен.
func (u *User) HasActiveMembership(today time.Time) bool {
	if u.Status != MembershipActive || u.End == nil {
		return false
	}
	return !day.Before(*u.End, today)
}

// MembershipLapsed true, если абонемент помечен активным, но его срок уже прошёл.
func (u *User) MembershipLapsed(today time.Time) bool {
	return u.Status == MembershipActive && u.End != nil && day.Before(*u.End, today)
}

// Actor пользователь, от имени которого выполняется операция.
type Actor struct {
	ID       int64
	Username string
	Role     Role
}

// IsAdmin true для администратора.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Owns true, если actor владелец ресурса или администратор.
func (a Actor) Owns(userID int64) bool { return a.IsAdmin() || a.ID == userID }

// RegisterRequest данные регистрации.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=150"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	Phone     string `json:"phone" validate:"max=20"`
}

// CreateUserRequest создание пользователя администратором.
type CreateUserRequest struct {
	RegisterRequest
	Role Role `json:"role" validate:"omitempty,oneof=user member staff admin"`
}

// LoginRequest данные входа.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest запрос на обновление или отзыв refresh-токена.
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// ChangePasswordRequest смена пароля.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// UserUpdate частичное обновление профиля. Role меняет только администратор.
type UserUpdate struct {
	Email     *string    `json:"email" validate:"omitempty,email"`
	FirstName *string    `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string    `json:"last_name" validate:"omitempty,max=150"`
	Phone     *string    `json:"phone" validate:"omitempty,max=20"`
	Avatar    *string    `json:"avatar" validate:"omitempty,max=500"`
	Address   *string    `json:"address" validate:"omitempty,max=1000"`
	BirthDate *time.Time `json:"birth_date"`
	Gender    *Gender    `json:"gender" validate:"omitempty,oneof=male female other"`
	Role      *Role      `json:"role" validate:"omitempty,oneof=user member staff admin"`
}

// UserFilter фильтр списка пользователей.
type UserFilter struct {
	Role         Role
	ExcludeRoles []Role
	Search       string
	Limit        int
	Offset       int
}

// TokenPair пара токенов, выдаваемая при входе.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AuthResult ответ регистрации и входа.
type AuthResult struct {
	User   *User     `json:"user"`
	Tokens TokenPair `json:"tokens"`
}
