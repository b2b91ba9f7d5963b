// Package user содержит HTTP-обработчики управления пользователями и инструкторами.
package user

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/gym-management/internal/http/request"
	"github.com/magabrotheeeer/gym-management/internal/http/response"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

const defaultLimit = 50

// Service описывает операции над пользователями.
type Service interface {
	List(ctx context.Context, filter models.UserFilter) ([]*models.User, error)
	Get(ctx context.Context, actor models.Actor, id int64) (*models.User, error)
	Update(ctx context.Context, actor models.Actor, id int64, upd models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id int64) error
	ChangePassword(ctx context.Context, userID int64, req models.ChangePasswordRequest) error
	ListInstructors(ctx context.Context) ([]*models.User, error)
	CreateInstructor(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error)
	GetProfile(ctx context.Context, actor models.Actor, userID int64) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, actor models.Actor, userID int64, upd models.ProfileUpdate) (*models.UserProfile, error)
}

// Handler обработчики /users.
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

// List godoc
// @Summary Список пользователей
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param role query string false "Роль"
// @Param exclude_roles query string false "Исключить роли, через запятую"
// @Param search query string false "Поиск по имени и email"
// @Param limit query int false "Лимит"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response{data=[]models.User}
// @Failure 403 {object} response.ErrorResponse
// @Router /users/ [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.List"
	log := request.Log(h.log, r, op)

	filter := models.UserFilter{
		Role:   models.Role(r.URL.Query().Get("role")),
		Search: r.URL.Query().Get("search"),
	}
	if filter.Role != "" && !filter.Role.Valid() {
		response.Fail(w, r, log, models.ErrInvalidRole)
		return
	}
	for _, role := range request.List(r, "exclude_roles") {
		filter.ExcludeRoles = append(filter.ExcludeRoles, models.Role(role))
	}
	var err error
	if filter.Limit, err = request.Int(r, "limit", defaultLimit); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if filter.Offset, err = request.Int(r, "offset", 0); err != nil {
		response.Fail(w, r, log, err)
		return
	}

	users, err := h.service.List(r.Context(), filter)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, users)
}

// Create godoc
// @Summary Создание пользователя администратором
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateUserRequest true "Пользователь"
// @Success 201 {object} response.Response{data=models.User}
// @Failure 400 {object} response.ErrorResponse
// @Router /users/ [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.Create"
	log := request.Log(h.log, r, op)

	var req models.CreateUserRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	user, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("user created", slog.Int64("user_id", user.ID), slog.String("role", string(user.Role)))
	response.OK(w, r, http.StatusCreated, user)
}

// Get godoc
// @Summary Пользователь
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID пользователя"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{id}/ [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.Get"
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
	user, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, user)
}

// Update godoc
// @Summary Изменение профиля
// @Description Роль может менять только администратор
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID пользователя"
// @Param request body models.UserUpdate true "Изменения"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /users/{id}/ [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.Update"
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
	var upd models.UserUpdate
	if err := request.Decode(r, h.validate, &upd); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	user, err := h.service.Update(r.Context(), actor, id, upd)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("user updated", slog.Int64("user_id", id))
	response.OK(w, r, http.StatusOK, user)
}

// Delete godoc
// @Summary Удаление пользователя
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID пользователя"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{id}/ [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.Delete"
	log := request.Log(h.log, r, op)

	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("user deleted", slog.Int64("user_id", id))
	response.OK(w, r, http.StatusOK, nil)
}

// GetProfile godoc
// @Summary Фитнес-анкета
// @Description Доступна владельцу и администратору
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param user_id path int true "ID пользователя"
// @Success 200 {object} response.Response{data=models.UserProfile}
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /users/profile/{user_id}/ [get]
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.GetProfile"
	log := request.Log(h.log, r, op)

	actor, err := request.Actor(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	userID, err := request.ID(r, "user_id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	profile, err := h.service.GetProfile(r.Context(), actor, userID)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary Изменение фитнес-анкеты
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param user_id path int true "ID пользователя"
// @Param request body models.ProfileUpdate true "Изменения"
// @Success 200 {object} response.Response{data=models.UserProfile}
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /users/profile/{user_id}/ [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.UpdateProfile"
	log := request.Log(h.log, r, op)

	actor, err := request.Actor(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	userID, err := request.ID(r, "user_id")
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	var upd models.ProfileUpdate
	if err := request.Decode(r, h.validate, &upd); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	profile, err := h.service.UpdateProfile(r.Context(), actor, userID, upd)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("fitness profile updated", slog.Int64("user_id", userID))
	response.OK(w, r, http.StatusOK, profile)
}

// ChangePassword godoc
// @Summary Смена пароля
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ChangePasswordRequest true "Старый и новый пароль"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /users/change-password/ [post]
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.ChangePassword"
	log := request.Log(h.log, r, op)

	actor, err := request.Actor(r)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	var req models.ChangePasswordRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	if err := h.service.ChangePassword(r.Context(), actor.ID, req); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("password changed", slog.Int64("user_id", actor.ID))
	response.OK(w, r, http.StatusOK, nil)
}

// ListInstructors godoc
// @Summary Инструкторы
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]models.User}
// @Router /users/instructors/ [get]
func (h *Handler) ListInstructors(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.ListInstructors"
	log := request.Log(h.log, r, op)

	users, err := h.service.ListInstructors(r.Context())
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	response.OK(w, r, http.StatusOK, users)
}

// CreateInstructor godoc
// @Summary Новый инструктор
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.RegisterRequest true "Инструктор"
// @Success 201 {object} response.Response{data=models.User}
// @Failure 400 {object} response.ErrorResponse
// @Router /users/instructors/ [post]
func (h *Handler) CreateInstructor(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.CreateInstructor"
	log := request.Log(h.log, r, op)

	var req models.RegisterRequest
	if err := request.Decode(r, h.validate, &req); err != nil {
		response.Fail(w, r, log, err)
		return
	}
	user, err := h.service.CreateInstructor(r.Context(), req)
	if err != nil {
		response.Fail(w, r, log, err)
		return
	}
	log.Info("instructor created", slog.Int64("user_id", user.ID))
	response.OK(w, r, http.StatusCreated, user)
}
