package models

import (
	"encoding/json"
	"time"
)

// EventMembershipActivate тип события активации абонемента после оплаты.
const EventMembershipActivate = "membership.activate"

// OutboxStatus состояние события outbox.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxPublished OutboxStatus = "published"
	OutboxProcessed OutboxStatus = "processed"
	OutboxFailed    OutboxStatus = "failed"
)

// OutboxEvent событие, записанное в той же транзакции, что и изменение,
// которое его породило.
type OutboxEvent struct {
	ID          int64           `json:"id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	Status      OutboxStatus    `json:"status"`
	Attempts    int             `json:"attempts"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}

// OutboxMessage сообщение, публикуемое в брокер.
type OutboxMessage struct {
	EventID   int64           `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
}

// MembershipActivatePayload данные события активации.
type MembershipActivatePayload struct {
	OrderID int64 `json:"order_id"`
	UserID  int64 `json:"user_id"`
	PlanID  int64 `json:"plan_id"`
}

// MembershipReminder уведомление об окончании абонемента.
type MembershipReminder struct {
	UserID        int64     `json:"user_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PlanName      string    `json:"plan_name"`
	MembershipEnd time.Time `json:"membership_end"`
}
