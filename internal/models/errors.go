package models

import "errors"

// Ошибки предметной области. Хранилище и сервисы оборачивают их через %w,
// HTTP-слой сопоставляет их со статусами ответа через errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrDuplicate             = errors.New("already exists")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidToken          = errors.New("invalid token")
	ErrScheduleFull          = errors.New("this course is full")
	ErrAlreadyEnrolled       = errors.New("you are already enrolled in this schedule")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrPaymentMethodRequired = errors.New("payment method is required to mark an order as paid")
	ErrMembershipRequired    = errors.New("an active membership is required")
	ErrInactiveItem          = errors.New("item is not available")
	ErrInvalidRole           = errors.New("invalid role")
	ErrInvalidSchedule       = errors.New("end time must be after start time")
	ErrCapacityTooLow        = errors.New("capacity is lower than the number of enrolled users")
)
