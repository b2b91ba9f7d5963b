// Package membership содержит HTTP-обработчики тарифов и абонементов.
package membership

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/gym-management/internal/http/request"
	"github.com/magabrotheeeer/gym-management/internal/http/response"
	"github.com/magabrotheeeer/gym-management/internal/models"
	services "github.com/magabrotheeeer/gym-management/internal/services/membership"
)

// Service описывает операции с тарифами и абонементами.
type Service interface {
	ListPlans(ctx context.Context, staff bool) ([]*models.MembershipPlan, error)
	GetPlan(ctx context.Context, id int64, staff bool) (*models.MembershipPlan, error)
	CreatePlan(ctx context.Context, in models.PlanInput) (*models.MembershipPlan, error)
	UpdatePlan(ctx context.Context, id int64, in models.PlanInput) (*models.MembershipPlan, error)
	DeletePlan(ctx context.Context, id int64) error
	Activate(ctx context.Context, userID, planID int64, source string) (*models.MembershipInfo, error)
	GetMembership(ctx context.Context, userID int64) (*models.MembershipInfo, error)
}

// Handler обработчики /orders/membership-plans и /users/membership.
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

// ListPlans godoc
// @Summary Тарифы
// @Description Неактивные тарифы видят только сотрудники
// @Tags membership
// @Produce json
// @Success 200 {object} response.Response{data=[]models.MembershipPlan}
// @Router /orders/membership-plans/ [get]
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.ListPlans"
	log := request.Log(h.log, r, op)

	plans, err := h.service.ListPlans(r.Context(), request.IsStaff(r))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, plans)
}

// GetPlan godoc
// @Summary Тариф
// @Tags membership
// @Produce json
// @Param id path int true "ID тарифа"
// @Success 200 {object} response.Response{data=models.MembershipPlan}
// @Failure 404 {object} response.ErrorResponse
// @Router /orders/membership-plans/{id}/ [get]
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.GetPlan"
	log := request.Log(h.log, r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	plan, err := h.service.GetPlan(r.Context(), id, request.IsStaff(r))
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, plan)
}

// CreatePlan godoc
// @Summary Новый тариф
// @Description Если длительность не задана, берётся по типу: 30, 90 или 365 дней
// @Tags membership
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.PlanInput true "Тариф"
// @Success 201 {object} response.Response{data=models.MembershipPlan}
// @Failure 400 {object} response.ErrorResponse
// @Router /orders/membership-plans/ [post]
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.CreatePlan"
	log := request.Log(h.log, r, op)

	var in models.PlanInput
	if err := request.Decode(r, h.validate, &in); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	plan, err := h.service.CreatePlan(r.Context(), in)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("plan created", slog.Int64("plan_id", plan.ID))
	response.OK(w, r, http.StatusCreated, plan)
}

// UpdatePlan godoc
// @Summary Изменение тарифа
// @Tags membership
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID тарифа"
// @Param request body models.PlanInput true "Тариф"
// @Success 200 {object} response.Response{data=models.MembershipPlan}
// @Failure 404 {object} response.ErrorResponse
// @Router /orders/membership-plans/{id}/ [put]
func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.UpdatePlan"
	log := request.Log(h.log, r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	var in models.PlanInput
	if err := request.Decode(r, h.validate, &in); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	plan, err := h.service.UpdatePlan(r.Context(), id, in)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, plan)
}

// DeletePlan godoc
// @Summary Удаление тарифа
// @Tags membership
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID тарифа"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /orders/membership-plans/{id}/ [delete]
func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.DeletePlan"
	log := request.Log(h.log, r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if err := h.service.DeletePlan(r.Context(), id); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("plan deleted", slog.Int64("plan_id", id))
	response.OK(w, r, http.StatusOK, nil)
}

// My godoc
// @Summary Мой абонемент
// @Description Просроченный абонемент помечается expired при чтении
// @Tags membership
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.MembershipInfo}
// @Router /users/membership/ [get]
func (h *Handler) My(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.My"
	log := request.Log(h.log, r, op)

	actor, err := request.Actor(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	info, err := h.service.GetMembership(r.Context(), actor.ID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, info)
}

// ForUser godoc
// @Summary Абонемент пользователя
// @Tags membership
// @Produce json
// @Security BearerAuth
// @Param user_id path int true "ID пользователя"
// @Success 200 {object} response.Response{data=models.MembershipInfo}
// @Failure 404 {object} response.ErrorResponse
// @Router /users/membership/{user_id}/ [get]
func (h *Handler) ForUser(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.ForUser"
	log := request.Log(h.log, r, op)

	userID, err := request.ID(r, "user_id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	info, err := h.service.GetMembership(r.Context(), userID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, info)
}

// Activate godoc
// @Summary Активация абонемента администратором
// @Tags membership
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ActivateMembershipRequest true "Пользователь и тариф"
// @Success 201 {object} response.Response{data=models.MembershipInfo}
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /users/membership/create/ [post]
func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.membership.Activate"
	log := request.Log(h.log, r, op)

	var req models.ActivateMembershipRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	info, err := h.service.Activate(r.Context(), req.UserID, req.PlanID, services.SourceAdmin)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("membership activated",
		slog.Int64("user_id", req.UserID),
		slog.Int64("plan_id", req.PlanID),
	)
	response.OK(w, r, http.StatusCreated, info)
}
