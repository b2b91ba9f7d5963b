// Package health отдаёт состояние сервиса и его зависимостей.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/gym-management/internal/http/request"
	"github.com/magabrotheeeer/gym-management/internal/http/response"
	"github.com/magabrotheeeer/gym-management/internal/lib/sl"
)

const checkTimeout = 2 * time.Second

// Pinger зависимость, доступность которой проверяется.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler проверяет все зависимости и отвечает 200 или 503.
type Handler struct {
	log     *slog.Logger
	version string
	checks  map[string]Pinger
}

// New создает Handler. checks — зависимости по имени, например "postgres" и "redis".
func New(log *slog.Logger, version string, checks map[string]Pinger) *Handler {
	return &Handler{
		log:     log,
		version: version,
		checks:  checks,
	}
}

// ServeHTTP godoc
// @Summary Состояние сервиса
// @Tags health
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	log := request.Log(h.log, r, op)

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	code := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			log.Error("dependency is down", slog.String("dependency", name), sl.Err(err))
			deps[name] = "down"
			code = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	status := "ok"
	if code != http.StatusOK {
		status = "degraded"
	}
	render.Status(r, code)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"status":       status,
		"version":      h.version,
		"dependencies": deps,
	}))
}
