// Package outbox содержит административные HTTP-обработчики событий outbox.
package outbox

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/gym-management/internal/http/request"
	"github.com/magabrotheeeer/gym-management/internal/http/response"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

// Service описывает просмотр и повтор событий.
type Service interface {
	List(ctx context.Context, status models.OutboxStatus) ([]*models.OutboxEvent, error)
	Retry(ctx context.Context, id int64) (*models.OutboxEvent, error)
}

// Handler обработчики /admin/outbox.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// List godoc
// @Summary События outbox
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, published, processed или failed"
// @Success 200 {object} response.Response{data=[]models.OutboxEvent}
// @Router /admin/outbox/ [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.outbox.List"
	log := request.Log(h.log, r, op)

	status := models.OutboxStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.OutboxPending, models.OutboxPublished, models.OutboxProcessed, models.OutboxFailed:
	default:
		response.Fail(w, r, log, response.BadRequest("invalid status"))
		return
	}

	events, err := h.service.List(r.Context(), status)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, events)
}

// Retry godoc
// @Summary Повтор события
// @Description Возвращает событие в pending со сброшенным счётчиком попыток
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID события"
// @Success 200 {object} response.Response{data=models.OutboxEvent}
// @Failure 404 {object} response.ErrorResponse
// @Router /admin/outbox/{id}/retry/ [post]
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.outbox.Retry"
	log := request.Log(h.log, r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	ev, err := h.service.Retry(r.Context(), id)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("outbox event requeued", slog.Int64("event_id", id))
	response.OK(w, r, http.StatusOK, ev)
}
