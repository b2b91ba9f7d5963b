package models

import "time"

// Category категория курсов.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategoryInput данные для создания и изменения категории.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

// Difficulty уровень сложности курса.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Course курс, который ведёт инструктор. Цена хранится в копейках.
type Course struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	CategoryID      int64      `json:"category_id"`
	CategoryName    string     `json:"category_name"`
	InstructorID    *int64     `json:"instructor_id"`
	InstructorName  string     `json:"instructor_name,omitempty"`
	Price           int64      `json:"price"`
	DurationMinutes int        `json:"duration"`
	Capacity        int        `json:"capacity"`
	Difficulty      Difficulty `json:"difficulty"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CourseInput данные для создания и изменения курса.
type CourseInput struct {
	Name            string     `json:"name" validate:"required,max=100"`
	Description     string     `json:"description"`
	CategoryID      int64      `json:"category_id" validate:"required,min=1"`
	InstructorID    *int64     `json:"instructor_id" validate:"omitempty,min=1"`
	Price           int64      `json:"price" validate:"min=0"`
	DurationMinutes int        `json:"duration" validate:"required,min=1"`
	Capacity        int        `json:"capacity" validate:"required,min=1"`
	Difficulty      Difficulty `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
	IsActive        *bool      `json:"is_active"`
}

// CourseFilter фильтр списка курсов.
type CourseFilter struct {
	CategoryID   int64
	InstructorID int64
	OnlyActive   bool
}

// Schedule занятие курса в конкретное время. CurrentCapacity счётчик
// записанных, Capacity берётся из курса.
type Schedule struct {
	ID              int64     `json:"id"`
	CourseID        int64     `json:"course_id"`
	CourseName      string    `json:"course_name"`
	InstructorID    *int64    `json:"instructor_id,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Location        string    `json:"location"`
	CurrentCapacity int       `json:"current_capacity"`
	Capacity        int       `json:"capacity"`
	AvailableSlots  int       `json:"available_slots"`
	CourseActive    bool      `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Full сообщает, что свободных мест нет.
func (s *Schedule) Full() bool {
	return s.CurrentCapacity >= s.Capacity
}

// ScheduleInput данные для создания и изменения занятия.
type ScheduleInput struct {
	CourseID  int64     `json:"course_id" validate:"required,min=1"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	Location  string    `json:"location" validate:"required,max=100"`
}

// ScheduleFilter фильтр списка занятий.
type ScheduleFilter struct {
	CourseID   int64
	OnlyActive bool
}
