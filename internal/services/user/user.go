// Package services содержит управление пользователями: профили, роли,
// инструкторов и учётную запись администратора по умолчанию.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/gym-management/internal/config"
	"github.com/magabrotheeeer/gym-management/internal/lib/password"
	"github.com/magabrotheeeer/gym-management/internal/models"
	"github.com/magabrotheeeer/gym-management/internal/roles"
)

// UserRepository методы хранилища, нужные сервису.
type UserRepository interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateUser(ctx context.Context, user models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	LockUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context, filter models.UserFilter) ([]*models.User, error)
	UpdateUserProfile(ctx context.Context, id int64, upd models.UserUpdate) error
	UpdateUserRole(ctx context.Context, id int64, role models.Role) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	DeleteUser(ctx context.Context, id int64) error
	GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error)
	UpsertProfile(ctx context.Context, p *models.UserProfile) error
}

// UserService реализует операции над пользователями.
type UserService struct {
	repo UserRepository
	log  *slog.Logger
}

// NewUserService создает новый экземпляр UserService.
func NewUserService(repo UserRepository, log *slog.Logger) *UserService {
	return &UserService{
		repo: repo,
		log:  log,
	}
}

// List возвращает пользователей по фильтру.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	const op = "services.user.List"
	users, err := s.repo.ListUsers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// Get возвращает пользователя. Доступно владельцу и администратору.
func (s *UserService) Get(ctx context.Context, actor models.Actor, id int64) (*models.User, error) {
	const op = "services.user.Get"
	if !actor.Owns(id) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Update меняет профиль. Роль может поменять только администратор,
// и только через таблицу переходов ролей.
func (s *UserService) Update(ctx context.Context, actor models.Actor, id int64, upd models.UserUpdate) (*models.User, error) {
	const op = "services.user.Update"
	if !actor.Owns(id) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	if upd.Role != nil && !actor.IsAdmin() {
		return nil, fmt.Errorf("%s: role change: %w", op, models.ErrForbidden)
	}

	var updated *models.User
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.LockUser(ctx, id)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateUserProfile(ctx, id, upd); err != nil {
			return err
		}
		if upd.Role != nil && *upd.Role != current.Role {
			next, err := roles.Apply(current.Role, roles.AdminAssigned, *upd.Role)
			if err != nil {
				return err
			}
			if err := s.repo.UpdateUserRole(ctx, id, next); err != nil {
				return err
			}
			s.log.Info("role changed", slog.Int64("user_id", id),
				slog.String("from", string(current.Role)), slog.String("to", string(next)))
		}
		updated, err = s.repo.GetUserByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// Delete удаляет пользователя.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	const op = "services.user.Delete"
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user deleted", slog.Int64("user_id", id))
	return nil
}

// GetProfile возвращает фитнес-анкету владельцу или администратору.
// Для пользователя без анкеты возвращается пустая.
func (s *UserService) GetProfile(ctx context.Context, actor models.Actor, userID int64) (*models.UserProfile, error) {
	const op = "services.user.GetProfile"
	if !actor.Owns(userID) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	profile, err := s.repo.GetProfile(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.repo.GetUserByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.UserProfile{UserID: userID}, nil
}

// UpdateProfile частично обновляет анкету, создавая её при первом сохранении.
// Строка пользователя блокируется, чтобы параллельные правки не затирали друг друга.
func (s *UserService) UpdateProfile(ctx context.Context, actor models.Actor, userID int64, upd models.ProfileUpdate) (*models.UserProfile, error) {
	const op = "services.user.UpdateProfile"
	if !actor.Owns(userID) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}

	var profile *models.UserProfile
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.LockUser(ctx, userID); err != nil {
			return err
		}
		current, err := s.repo.GetProfile(ctx, userID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			current = &models.UserProfile{UserID: userID}
		case err != nil:
			return err
		}
		current.Apply(upd)
		if err := s.repo.UpsertProfile(ctx, current); err != nil {
			return err
		}
		profile = current
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("fitness profile updated", slog.Int64("user_id", userID), slog.Int64("actor_id", actor.ID))
	return profile, nil
}

// ChangePassword проверяет старый пароль и сохраняет новый.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, req models.ChangePasswordRequest) error {
	const op = "services.user.ChangePassword"
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, req.OldPassword); err != nil {
		return fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	hashed, err := password.GetHash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListInstructors возвращает сотрудников.
func (s *UserService) ListInstructors(ctx context.Context) ([]*models.User, error) {
	return s.List(ctx, models.UserFilter{Role: models.RoleStaff})
}

// CreateInstructor создаёт учётную запись инструктора.
func (s *UserService) CreateInstructor(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	const op = "services.user.CreateInstructor"
	role, err := roles.Apply("", roles.InstructorCreated)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user, err := s.create(ctx, req, role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// CreateUser создаёт пользователя с ролью, выбранной администратором.
func (s *UserService) CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	const op = "services.user.CreateUser"
	role, err := roles.Apply("", roles.Registered)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if req.Role != "" {
		if role, err = roles.Apply(role, roles.AdminAssigned, req.Role); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	user, err := s.create(ctx, req.RegisterRequest, role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// EnsureAdmin создаёт администратора из конфигурации, если его ещё нет.
// Пустой логин в конфигурации отключает создание.
func (s *UserService) EnsureAdmin(ctx context.Context, cfg config.BootstrapAdmin) error {
	const op = "services.user.EnsureAdmin"
	if cfg.AdminUsername == "" {
		return nil
	}
	_, err := s.repo.GetUserByUsername(ctx, cfg.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.CreateUser(ctx, models.CreateUserRequest{
		RegisterRequest: models.RegisterRequest{
			Username: cfg.AdminUsername,
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
		},
		Role: models.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("bootstrap admin created", slog.Int64("user_id", user.ID))
	return nil
}

func (s *UserService) create(ctx context.Context, req models.RegisterRequest, role models.Role) (*models.User, error) {
	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.CreateUser(ctx, models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashed,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         role,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetUserByID(ctx, id)
}
