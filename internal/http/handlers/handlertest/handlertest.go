// Package handlertest собирает запросы для тестов HTTP-обработчиков:
// тело JSON, пользователь в контексте, параметры маршрута chi и request id.
package handlertest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gym-management/internal/http/middlewarectx"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

// NoopLogger логгер, который ничего не пишет.
func NoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

// Request описывает тестовый запрос. Body строкой передаётся как есть,
// остальные значения сериализуются в JSON.
type Request struct {
	Method string
	URL    string
	Body   any
	Actor  *models.Actor
	Params map[string]string
}

// New собирает *http.Request.
func New(t *testing.T, req Request) *http.Request {
	t.Helper()

	var body io.Reader
	switch b := req.Body.(type) {
	case nil:
	case string:
		body = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(req.Method, req.URL, body)
	r.Header.Set("Content-Type", "application/json")

	ctx := context.WithValue(r.Context(), middleware.RequestIDKey, "req-id")
	if req.Actor != nil {
		ctx = middlewarectx.WithActor(ctx, *req.Actor)
	}
	rctx := chi.NewRouteContext()
	for k, v := range req.Params {
		rctx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// Serve выполняет h и возвращает ответ.
func Serve(t *testing.T, h http.HandlerFunc, req Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h(w, New(t, req))
	return w
}
