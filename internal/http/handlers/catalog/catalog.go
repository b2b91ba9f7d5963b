// Package catalog содержит HTTP-обработчики категорий, курсов и расписания.
// Чтение доступно анонимно, неактивные курсы видят только сотрудники.
package catalog

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/gym-management/internal/http/request"
	"github.com/magabrotheeeer/gym-management/internal/http/response"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

// Service описывает операции каталога.
type Service interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error)
	UpdateCategory(ctx context.Context, id int64, in models.CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, id int64) error

	ListCourses(ctx context.Context, filter models.CourseFilter, staff bool) ([]*models.Course, error)
	GetCourse(ctx context.Context, id int64, staff bool) (*models.Course, error)
	CreateCourse(ctx context.Context, actor models.Actor, in models.CourseInput) (*models.Course, error)
	UpdateCourse(ctx context.Context, actor models.Actor, id int64, in models.CourseInput) (*models.Course, error)
	DeleteCourse(ctx context.Context, actor models.Actor, id int64) error

	ListSchedules(ctx context.Context, filter models.ScheduleFilter, staff bool) ([]*models.Schedule, error)
	GetSchedule(ctx context.Context, id int64, staff bool) (*models.Schedule, error)
	CreateSchedule(ctx context.Context, actor models.Actor, in models.ScheduleInput) (*models.Schedule, error)
	UpdateSchedule(ctx context.Context, actor models.Actor, id int64, in models.ScheduleInput) (*models.Schedule, error)
	DeleteSchedule(ctx context.Context, actor models.Actor, id int64) error
}

// Handler обработчики /courses.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ListCategories godoc
// @Summary Категории курсов
// @Tags catalog
// @Produce json
// @Success 200 {object} response.Response{data=[]models.Category}
// @Router /courses/categories/ [get]
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.ListCategories"
	log := request.Log(h.log, r, op)

	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, categories)
}

// GetCategory godoc
// @Summary Категория
// @Tags catalog
// @Produce json
// @Param id path int true "ID категории"
// @Success 200 {object} response.Response{data=models.Category}
// @Failure 404 {object} response.ErrorResponse
// @Router /courses/categories/{id}/ [get]
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.GetCategory"
	log := request.Log(h.log, r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	category, err := h.service.GetCategory(r.Context(), id)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, category)
}

// CreateCategory godoc
// @Summary Новая категория
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CategoryInput true "Категория"
// @Success 201 {object} response.Response{data=models.Category}
// @Failure 400 {object} response.ErrorResponse
// @Router /courses/categories/ [post]
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.CreateCategory"
	log := request.Log(h.log, r, op)

	var in models.CategoryInput
	if err := request.Decode(r, h.validate, &in); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	category, err := h.service.CreateCategory(r.Context(), in)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("category created", slog.Int64("id", category.ID))
	response.OK(w, r, http.StatusCreated, category)
}

// UpdateCategory godoc
// @Summary Изменение категории
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID категории"
// @Param request body models.CategoryInput true "Категория"
// @Success 200 {object} response.Response{data=models.Category}
// @Failure 404 {object} response.ErrorResponse
// @Router /courses/categories/{id}/ [put]
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.UpdateCategory"
	log := request.Log(h.log, r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	var in models.CategoryInput
	if err := request.Decode(r, h.validate, &in); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	category, err := h.service.UpdateCategory(r.Context(), id, in)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, category)
}

// DeleteCategory godoc
// @Summary Удаление категории
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID категории"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /courses/categories/{id}/ [delete]
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.DeleteCategory"
	log := request.Log(h.log, r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("category deleted", slog.Int64("id", id))
	response.OK(w, r, http.StatusOK, nil)
}

// ListCourses godoc
// @Summary Курсы
// @Tags catalog
// @Produce json
// @Param category_id query int false "Категория"
// @Param instructor_id query int false "Инструктор"
// @Success 200 {object} response.Response{data=[]models.Course}
// @Router /courses/ [get]
func (h *Handler) ListCourses(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.ListCourses"
	log := request.Log(h.log, r, op)

	var filter models.CourseFilter
	category, err := request.Int64(r, "category_id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	instructor, err := request.Int64(r, "instructor_id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if category != nil {
		filter.CategoryID = *category
	}
	if instructor != nil {
		filter.InstructorID = *instructor
	}

	courses, err := h.service.ListCourses(r.Context(), filter, request.IsStaff(r))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, courses)
}

// GetCourse godoc
// @Summary Курс
// @Tags catalog
// @Produce json
// @Param id path int true "ID курса"
// @Success 200 {object} response.Response{data=models.Course}
// @Failure 404 {object} response.ErrorResponse
// @Router /courses/{id}/ [get]
func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.GetCourse"
	log := request.Log(h.log, r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	course, err := h.service.GetCourse(r.Context(), id, request.IsStaff(r))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, course)
}

// CreateCourse godoc
// @Summary Новый курс
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CourseInput true "Курс"
// @Success 201 {object} response.Response{data=models.Course}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /courses/ [post]
func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.CreateCourse"
	log := request.Log(h.log, r, op)

	actor, err := request.Actor(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	var in models.CourseInput
	if err := request.Decode(r, h.validate, &in); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	course, err := h.service.CreateCourse(r.Context(), actor, in)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("course created", slog.Int64("id", course.ID))
	response.OK(w, r, http.StatusCreated, course)
}

// UpdateCourse godoc
// @Summary Изменение курса
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID курса"
// @Param request body models.CourseInput true "Курс"
// @Success 200 {object} response.Response{data=models.Course}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /courses/{id}/ [put]
func (h *Handler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.UpdateCourse"
	log := request.Log(h.log, r, op)

	actor, err := request.Actor(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	var in models.CourseInput
	if err := request.Decode(r, h.validate, &in); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	course, err := h.service.UpdateCourse(r.Context(), actor, id, in)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, course)
}

// DeleteCourse godoc
// @Summary Удаление курса
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID курса"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /courses/{id}/ [delete]
func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.DeleteCourse"
	log := request.Log(h.log, r, op)

	actor, err := request.Actor(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if err := h.service.DeleteCourse(r.Context(), actor, id); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("course deleted", slog.Int64("id", id))
	response.OK(w, r, http.StatusOK, nil)
}

// ListSchedules godoc
// @Summary Расписание
// @Tags catalog
// @Produce json
// @Param course_id query int false "Курс"
// @Success 200 {object} response.Response{data=[]models.Schedule}
// @Router /courses/schedules/ [get]
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.ListSchedules"
	log := request.Log(h.log, r, op)

	var filter models.ScheduleFilter
	course, err := request.Int64(r, "course_id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if course != nil {
		filter.CourseID = *course
	}

	schedules, err := h.service.ListSchedules(r.Context(), filter, request.IsStaff(r))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, schedules)
}

// GetSchedule godoc
// @Summary Занятие
// @Tags catalog
// @Produce json
// @Param id path int true "ID занятия"
// @Success 200 {object} response.Response{data=models.Schedule}
// @Failure 404 {object} response.ErrorResponse
// @Router /courses/schedules/{id}/ [get]
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.GetSchedule"
	log := request.Log(h.log, r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	schedule, err := h.service.GetSchedule(r.Context(), id, request.IsStaff(r))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, schedule)
}

// CreateSchedule godoc
// @Summary Новое занятие
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ScheduleInput true "Занятие"
// @Success 201 {object} response.Response{data=models.Schedule}
// @Failure 400 {object} response.ErrorResponse
// @Router /courses/schedules/ [post]
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.CreateSchedule"
	log := request.Log(h.log, r, op)

	actor, err := request.Actor(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	var in models.ScheduleInput
	if err := request.Decode(r, h.validate, &in); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	schedule, err := h.service.CreateSchedule(r.Context(), actor, in)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("schedule created", slog.Int64("id", schedule.ID), slog.Int64("course_id", schedule.CourseID))
	response.OK(w, r, http.StatusCreated, schedule)
}

// UpdateSchedule godoc
// @Summary Изменение занятия
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID занятия"
// @Param request body models.ScheduleInput true "Занятие"
// @Success 200 {object} response.Response{data=models.Schedule}
// @Failure 400 {object} response.ErrorResponse
// @Router /courses/schedules/{id}/ [put]
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.UpdateSchedule"
	log := request.Log(h.log, r, op)

	actor, err := request.Actor(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	var in models.ScheduleInput
	if err := request.Decode(r, h.validate, &in); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	schedule, err := h.service.UpdateSchedule(r.Context(), actor, id, in)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, schedule)
}

// DeleteSchedule godoc
// @Summary Удаление занятия
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID занятия"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /courses/schedules/{id}/ [delete]
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.catalog.DeleteSchedule"
	log := request.Log(h.log, r, op)

	actor, err := request.Actor(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if err := h.service.DeleteSchedule(r.Context(), actor, id); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("schedule deleted", slog.Int64("id", id))
	response.OK(w, r, http.StatusOK, nil)
}
