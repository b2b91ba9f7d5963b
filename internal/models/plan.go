package models

import "time"

// PlanType тип тарифного плана.
type PlanType string

const (
	PlanMonthly   PlanType = "monthly"
	PlanQuarterly PlanType = "quarterly"
	PlanYearly    PlanType = "yearly"
)

// MembershipPlan тарифный план абонемента. Цена в копейках.
type MembershipPlan struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	PlanType     PlanType  `json:"plan_type"`
	DurationDays int       `json:"duration"`
	Price        int64     `json:"price"`
	Description  string    `json:"description"`
	Benefits     string    `json:"benefits"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PlanInput данные для создания и изменения плана.
type PlanInput struct {
	Name         string   `json:"name" validate:"required,max=100"`
	PlanType     PlanType `json:"plan_type" validate:"required,oneof=monthly quarterly yearly"`
	DurationDays int      `json:"duration" validate:"omitempty,min=1,max=3660"`
	Price        int64    `json:"price" validate:"min=0"`
	Description  string   `json:"description"`
	Benefits     string   `json:"benefits"`
	IsActive     *bool    `json:"is_active"`
}

// ActivateMembershipRequest ручная активация абонемента администратором.
type ActivateMembershipRequest struct {
	UserID int64 `json:"user_id" validate:"required,min=1"`
	PlanID int64 `json:"plan_id" validate:"required,min=1"`
}

// MembershipInfo ответ на запрос абонемента пользователя.
type MembershipInfo struct {
	UserID int64 `json:"user_id"`
	Membership
	Role          Role            `json:"role"`
	DaysRemaining int             `json:"days_remaining"`
	Plan          *MembershipPlan `json:"plan,omitempty"`
}
