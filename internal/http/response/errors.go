package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/gym-management/internal/lib/sl"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

// ErrBadRequest сообщает, что запрос не удалось разобрать.
var ErrBadRequest = errors.New("bad request")

type badRequestError struct{ msg string }

func (e badRequestError) Error() string        { return e.msg }
func (e badRequestError) Is(target error) bool { return target == ErrBadRequest }

// BadRequest возвращает ошибку разбора запроса с текстом msg для клиента.
func BadRequest(msg string) error {
	return badRequestError{msg: msg}
}

var statuses = []struct {
	err  error
	code int
}{
	{models.ErrNotFound, http.StatusNotFound},
	{models.ErrForbidden, http.StatusForbidden},
	{models.ErrInvalidCredentials, http.StatusUnauthorized},
	{models.ErrInvalidToken, http.StatusUnauthorized},
	{models.ErrDuplicate, http.StatusBadRequest},
	{models.ErrScheduleFull, http.StatusBadRequest},
	{models.ErrAlreadyEnrolled, http.StatusBadRequest},
	{models.ErrInvalidTransition, http.StatusBadRequest},
	{models.ErrPaymentMethodRequired, http.StatusBadRequest},
	{models.ErrMembershipRequired, http.StatusBadRequest},
	{models.ErrInactiveItem, http.StatusBadRequest},
	{models.ErrInvalidRole, http.StatusBadRequest},
	{models.ErrInvalidSchedule, http.StatusBadRequest},
	{models.ErrCapacityTooLow, http.StatusBadRequest},
}

// StatusFor подбирает HTTP‑код и текст для клиента по ошибке сервиса.
// Неизвестные ошибки превращаются в 500 без подробностей.
func StatusFor(err error) (int, string) {
	var br badRequestError
	if errors.As(err, &br) {
		return http.StatusBadRequest, br.msg
	}
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.code, s.err.Error()
		}
	}
	return http.StatusInternalServerError, "internal error"
}

// Fail пишет ответ с ошибкой. Ошибки валидации отдаются с разбивкой по полям.
func Fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		log.Info("invalid request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ValidationError(verrs))
		return
	}

	code, msg := StatusFor(err)
	if code >= http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
	} else {
		log.Info("request rejected", slog.Int("status", code), sl.Err(err))
	}
	render.Status(r, code)
	render.JSON(w, r, Error(msg))
}
