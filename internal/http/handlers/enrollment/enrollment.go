// Package enrollment содержит HTTP-обработчики записи на занятия.
package enrollment

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/gym-management/internal/http/request"
	"github.com/magabrotheeeer/gym-management/internal/http/response"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

// Service описывает операции записи на занятия.
type Service interface {
	Enroll(ctx context.Context, actor models.Actor, scheduleID int64) (*models.Enrollment, error)
	Cancel(ctx context.Context, actor models.Actor, id int64) (*models.Enrollment, error)
	Delete(ctx context.Context, actor models.Actor, id int64) error
	Update(ctx context.Context, actor models.Actor, id int64, upd models.EnrollmentUpdate) (*models.Enrollment, error)
	Get(ctx context.Context, actor models.Actor, id int64) (*models.Enrollment, error)
	List(ctx context.Context, actor models.Actor, filter models.EnrollmentFilter) ([]*models.Enrollment, error)
}

// Handler обработчики /courses/enrollments.
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

// Enroll godoc
// @Summary Запись на занятие
// @Tags enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.EnrollRequest true "Занятие"
// @Success 201 {object} response.Response{data=models.Enrollment}
// @Failure 400 {object} response.ErrorResponse "Мест нет или запись уже есть"
// @Failure 404 {object} response.ErrorResponse
// @Router /courses/enrollments/ [post]
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.enrollment.Enroll"
	log := request.Log(h.log, r, op)

	actor, err := request.Actor(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	var req models.EnrollRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	e, err := h.service.Enroll(r.Context(), actor, req.ScheduleID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("user enrolled",
		slog.Int64("user_id", actor.ID),
		slog.Int64("schedule_id", req.ScheduleID),
		slog.Int64("enrollment_id", e.ID),
	)
	response.OK(w, r, http.StatusCreated, e)
}

// List godoc
// @Summary Записи
// @Description Администратор видит все записи, инструктор записи на свои курсы, остальные только свои
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param schedule_id query int false "Занятие"
// @Param status query string false "Статус"
// @Success 200 {object} response.Response{data=[]models.Enrollment}
// @Router /courses/enrollments/ [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.enrollment.List"
	log := request.Log(h.log, r, op)

	actor, err := request.Actor(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	filter := models.EnrollmentFilter{Status: models.EnrollmentStatus(r.URL.Query().Get("status"))}
	schedule, err := request.Int64(r, "schedule_id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if schedule != nil {
		filter.ScheduleID = *schedule
	}

	list, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, list)
}

// Get godoc
// @Summary Запись
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID записи"
// @Success 200 {object} response.Response{data=models.Enrollment}
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /courses/enrollments/{id}/ [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.enrollment.Get"
	log := request.Log(h.log, r, op)

	actor, id, err := actorAndID(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	e, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, e)
}

// Update godoc
// @Summary Изменение записи
// @Description Статус, посещаемость, отзыв и оценка. Переход в cancelled освобождает место
// @Tags enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID записи"
// @Param request body models.EnrollmentUpdate true "Изменения"
// @Success 200 {object} response.Response{data=models.Enrollment}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /courses/enrollments/{id}/ [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.enrollment.Update"
	log := request.Log(h.log, r, op)

	actor, id, err := actorAndID(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	var upd models.EnrollmentUpdate
	if err := request.Decode(r, h.validate, &upd); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	e, err := h.service.Update(r.Context(), actor, id, upd)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("enrollment updated", slog.Int64("enrollment_id", id), slog.String("status", string(e.Status)))
	response.OK(w, r, http.StatusOK, e)
}

// Delete godoc
// @Summary Удаление записи
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID записи"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /courses/enrollments/{id}/ [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.enrollment.Delete"
	log := request.Log(h.log, r, op)

	actor, id, err := actorAndID(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("enrollment deleted", slog.Int64("enrollment_id", id))
	response.OK(w, r, http.StatusOK, nil)
}

// Cancel godoc
// @Summary Отмена записи
// @Tags enrollments
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID записи"
// @Success 200 {object} response.Response{data=models.Enrollment}
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /courses/enrollments/{id}/cancel/ [post]
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.enrollment.Cancel"
	log := request.Log(h.log, r, op)

	actor, id, err := actorAndID(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	e, err := h.service.Cancel(r.Context(), actor, id)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("enrollment cancelled", slog.Int64("enrollment_id", id))
	response.OK(w, r, http.StatusOK, e)
}

func actorAndID(r *http.Request) (models.Actor, int64, error) {
	actor, err := request.Actor(r)
	if err != nil {
		return models.Actor{}, 0, err
	}
	id, err := request.ID(r, "id")
	if err != nil {
		return models.Actor{}, 0, err
	}
	return actor, id, nil
}
