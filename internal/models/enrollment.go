package models

import "time"

// EnrollmentStatus статус записи на занятие.
type EnrollmentStatus string

const (
	EnrollmentEnrolled  EnrollmentStatus = "enrolled"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
	EnrollmentCompleted EnrollmentStatus = "completed"
)

// Enrollment запись пользователя на занятие. Пара (UserID, ScheduleID) уникальна.
type Enrollment struct {
	ID           int64            `json:"id"`
	UserID       int64            `json:"user_id"`
	Username     string           `json:"username"`
	ScheduleID   int64            `json:"schedule_id"`
	CourseID     int64            `json:"course_id"`
	CourseName   string           `json:"course_name"`
	InstructorID *int64           `json:"-"`
	StartTime    time.Time        `json:"start_time"`
	Status       EnrollmentStatus `json:"status"`
	Attendance   *bool            `json:"attendance"`
	Feedback     string           `json:"feedback"`
	Rating       *int             `json:"rating"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// EnrollRequest запрос на запись.
type EnrollRequest struct {
	ScheduleID int64 `json:"schedule" validate:"required,min=1"`
}

// EnrollmentUpdate частичное обновление записи.
type EnrollmentUpdate struct {
	Status     *EnrollmentStatus `json:"status" validate:"omitempty,oneof=enrolled cancelled completed"`
	Attendance *bool             `json:"attendance"`
	Feedback   *string           `json:"feedback" validate:"omitempty,max=2000"`
	Rating     *int              `json:"rating" validate:"omitempty,min=1,max=5"`
}

// EnrollmentFilter фильтр списка записей.
type EnrollmentFilter struct {
	UserID       int64
	InstructorID int64
	ScheduleID   int64
	Status       EnrollmentStatus
}
