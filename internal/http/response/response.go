// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате.
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status — статус запроса ("OK" или "Error").
// Поле Error — текст ошибки (опционально, при неуспехе).
// Поле Fields — ошибки валидации по полям.
// Поле Data — данные ответа (опционально, при успехе).
type Response struct {
	Status string            `json:"status"`
	Error  string            `json:"error,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
	Data   any               `json:"data,omitempty"`
}

// ErrorResponse — структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string            `json:"status" example:"Error"`
	Error  string            `json:"error" example:"invalid request body"`
	Fields map[string]string `json:"fields,omitempty"`
}

const (
	// StatusOK — значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError — значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// OK отправляет data с кодом code.
func OK(w http.ResponseWriter, r *http.Request, code int, data any) {
	render.Status(r, code)
	render.JSON(w, r, StatusOKWithData(data))
}

// ValidationError формирует ответ со статусом Error на основе ошибок валидации.
// Каждое нарушение попадает в Fields по имени поля, а общий текст собирается через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	fields := make(map[string]string, len(errs))
	msgs := make([]string, 0, len(errs))

	for _, err := range errs {
		var msg string
		switch err.ActualTag() {
		case "required":
			msg = fmt.Sprintf("field %s is a required field", err.Field())
		case "email":
			msg = fmt.Sprintf("field %s must be a valid email", err.Field())
		case "min":
			msg = fmt.Sprintf("field %s must be at least %s", err.Field(), err.Param())
		case "max":
			msg = fmt.Sprintf("field %s must be at most %s", err.Field(), err.Param())
		case "oneof":
			msg = fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param())
		default:
			msg = fmt.Sprintf("field %s is not valid", err.Field())
		}
		fields[err.Field()] = msg
		msgs = append(msgs, msg)
	}
	return ErrorResponse{
		Status: StatusError,
		Error:  strings.Join(msgs, ", "),
		Fields: fields,
	}
}
