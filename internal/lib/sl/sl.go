// Package sl собирает логгер сервисов и хелперы для атрибутов slog.
package sl

import (
	"io"
	"log/slog"
)

// Окружения из конфига.
const (
	envLocal = "local"
	envProd  = "prod"
)

// New создаёт логгер для окружения env: в local текст с уровнем debug,
// в prod JSON с уровнем info, в остальных текст с уровнем info.
func New(env string, w io.Writer) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}

// Err возвращает атрибут "error" с текстом ошибки.
//
//	log.Error("failed to enroll", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.String("error", err.Error())
}
