// Package auth содержит HTTP-обработчики регистрации, входа, обновления
// и отзыва токенов, а также получения текущего пользователя.
package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/gym-management/internal/http/request"
	"github.com/magabrotheeeer/gym-management/internal/http/response"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

// Service описывает операции аутентификации.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error)
	Refresh(ctx context.Context, refresh string) (string, error)
	Logout(ctx context.Context, refresh string) error
	Me(ctx context.Context, userID int64) (*models.User, error)
}

// Handler обработчики /auth.
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

// LoginResponse ответ на вход.
type LoginResponse struct {
	Access  string       `json:"access"`
	Refresh string       `json:"refresh"`
	User    *models.User `json:"user"`
}

// AccessResponse новый access-токен.
type AccessResponse struct {
	Access string `json:"access"`
}

// Register godoc
// @Summary Регистрация
// @Description Создаёт пользователя с ролью user и возвращает его вместе с токенами
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Данные пользователя"
// @Success 201 {object} response.Response{data=models.AuthResult}
// @Failure 400 {object} response.ErrorResponse
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Register"
	log := request.Log(h.log, r, op)

	var req models.RegisterRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	res, err := h.service.Register(r.Context(), req)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("user registered", slog.Int64("user_id", res.User.ID))
	response.OK(w, r, http.StatusCreated, res)
}

// Login godoc
// @Summary Вход
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Учётные данные"
// @Success 200 {object} response.Response{data=LoginResponse}
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Login"
	log := request.Log(h.log, r, op)

	var req models.LoginRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("user logged in", slog.String("username", req.Username))
	response.OK(w, r, http.StatusOK, LoginResponse{
		Access:  res.Tokens.Access,
		Refresh: res.Tokens.Refresh,
		User:    res.User,
	})
}

// Refresh godoc
// @Summary Новый access-токен
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RefreshRequest true "Refresh-токен"
// @Success 200 {object} response.Response{data=AccessResponse}
// @Failure 401 {object} response.ErrorResponse
// @Router /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Refresh"
	log := request.Log(h.log, r, op)

	var req models.RefreshRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	access, err := h.service.Refresh(r.Context(), req.Refresh)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, AccessResponse{Access: access})
}

// Logout godoc
// @Summary Выход
// @Description Отзывает refresh-токен
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.RefreshRequest true "Refresh-токен"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Logout"
	log := request.Log(h.log, r, op)

	var req models.RefreshRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if err := h.service.Logout(r.Context(), req.Refresh); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("refresh token revoked")
	response.OK(w, r, http.StatusOK, nil)
}

// Me godoc
// @Summary Текущий пользователь
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=models.User}
// @Failure 401 {object} response.ErrorResponse
// @Router /auth/user [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Me"
	log := request.Log(h.log, r, op)

	actor, err := request.Actor(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	user, err := h.service.Me(r.Context(), actor.ID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, user)
}
