// Package order содержит HTTP-обработчики заказов.
package order

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/gym-management/internal/http/request"
	"github.com/magabrotheeeer/gym-management/internal/http/response"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

// Service описывает операции с заказами.
type Service interface {
	Create(ctx context.Context, actor models.Actor, in models.OrderInput) (*models.Order, error)
	Get(ctx context.Context, actor models.Actor, id int64) (*models.Order, error)
	List(ctx context.Context, actor models.Actor, filter models.OrderFilter) ([]*models.Order, error)
	Update(ctx context.Context, actor models.Actor, id int64, upd models.OrderUpdate) (*models.Order, error)
	Cancel(ctx context.Context, actor models.Actor, id int64) (*models.Order, error)
}

// Handler обработчики /orders.
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

// Create godoc
// @Summary Новый заказ
// @Description Цены позиций берутся из каталога. Заказ создаётся в статусе pending или сразу paid, тогда нужен payment_method и ставится в очередь активация абонемента
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.OrderInput true "Позиции заказа"
// @Success 201 {object} response.Response{data=models.Order}
// @Failure 400 {object} response.ErrorResponse
// @Router /orders/ [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.order.Create"
	log := request.Log(h.log, r, op)

	actor, err := request.Actor(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	var in models.OrderInput
	if err := request.Decode(r, h.validate, &in); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	order, err := h.service.Create(r.Context(), actor, in)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("order created",
		slog.Int64("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.Int64("total", order.TotalAmount),
	)
	response.OK(w, r, http.StatusCreated, order)
}

// List godoc
// @Summary Заказы
// @Description Сотрудники видят все заказы, остальные только свои
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param status query string false "Статус"
// @Param user_id query int false "Пользователь (для сотрудников)"
// @Success 200 {object} response.Response{data=[]models.Order}
// @Router /orders/ [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.order.List"
	log := request.Log(h.log, r, op)

	actor, err := request.Actor(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	filter := models.OrderFilter{Status: models.OrderStatus(r.URL.Query().Get("status"))}
	userID, err := request.Int64(r, "user_id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if userID != nil {
		filter.UserID = *userID
	}

	orders, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, orders)
}

// Get godoc
// @Summary Заказ
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заказа"
// @Success 200 {object} response.Response{data=models.Order}
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /orders/{id}/ [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.order.Get"
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
	order, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, order)
}

// Update godoc
// @Summary Смена статуса заказа
// @Description pending→paid требует способ оплаты и активирует абонементы из заказа; paid→refunded только администратор
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заказа"
// @Param request body models.OrderUpdate true "Новый статус"
// @Success 200 {object} response.Response{data=models.Order}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /orders/{id}/ [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.order.Update"
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
	var upd models.OrderUpdate
	if err := request.Decode(r, h.validate, &upd); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	order, err := h.service.Update(r.Context(), actor, id, upd)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("order updated", slog.Int64("order_id", id), slog.String("status", string(order.Status)))
	response.OK(w, r, http.StatusOK, order)
}

// Cancel godoc
// @Summary Отмена заказа
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заказа"
// @Success 200 {object} response.Response{data=models.Order}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /orders/{id}/cancel/ [post]
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.order.Cancel"
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
	order, err := h.service.Cancel(r.Context(), actor, id)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("order cancelled", slog.Int64("order_id", id))
	response.OK(w, r, http.StatusOK, order)
}
