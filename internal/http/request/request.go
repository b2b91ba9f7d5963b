// Package request разбирает тело, параметры пути и query HTTP-запроса.
// Ошибки разбора возвращаются как response.BadRequest, ошибки валидации
// как validator.ValidationErrors, чтобы response.Fail отдал их клиенту с кодом 400.
package request

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/gym-management/internal/http/middlewarectx"
	"github.com/magabrotheeeer/gym-management/internal/http/response"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

// Log добавляет к логгеру op и request_id.
func Log(log *slog.Logger, r *http.Request, op string) *slog.Logger {
	return log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Actor возвращает пользователя запроса или ошибку 401, если он не аутентифицирован.
func Actor(r *http.Request) (models.Actor, error) {
	actor, ok := middlewarectx.ActorFrom(r.Context())
	if !ok {
		return models.Actor{}, fmt.Errorf("request.Actor: %w", models.ErrInvalidToken)
	}
	return actor, nil
}

// IsStaff true, если запрос пришёл от сотрудника или администратора.
func IsStaff(r *http.Request) bool {
	actor, ok := middlewarectx.ActorFrom(r.Context())
	return ok && actor.Role.IsStaff()
}

// Decode читает JSON из тела в dst и проверяет его тегами validate.
func Decode(r *http.Request, validate *validator.Validate, dst any) error {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		if errors.Is(err, io.EOF) {
			return response.BadRequest("request body is empty")
		}
		return response.BadRequest("failed to decode request")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return verrs
		}
		return response.BadRequest("invalid request")
	}
	return nil
}

// ID возвращает числовой параметр пути.
func ID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, response.BadRequest("invalid " + name)
	}
	return id, nil
}

// Int64 возвращает необязательный числовой query‑параметр.
func Int64(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, response.BadRequest("invalid " + name)
	}
	return &v, nil
}

// Int возвращает query‑параметр или def, если он не передан.
func Int(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, response.BadRequest("invalid " + name)
	}
	return v, nil
}

// List разбивает query‑параметр по запятым.
func List(r *http.Request, name string) []string {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
