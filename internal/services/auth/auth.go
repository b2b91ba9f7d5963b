// Package services содержит логику регистрации, входа и обновления токенов.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/gym-management/internal/lib/jwt"
	"github.com/magabrotheeeer/gym-management/internal/lib/password"
	"github.com/magabrotheeeer/gym-management/internal/lib/sl"
	"github.com/magabrotheeeer/gym-management/internal/models"
	"github.com/magabrotheeeer/gym-management/internal/roles"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает его ID.
	CreateUser(ctx context.Context, user models.User) (int64, error)
	// GetUserByID возвращает пользователя по ID.
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	// GetUserByUsername возвращает пользователя по имени или ErrNotFound.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// TokenStore хранит отозванные refresh-токены.
type TokenStore interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthService отвечает за регистрацию, вход и выпуск JWT.
type AuthService struct {
	users    UserRepository
	jwtMaker jwt.Maker
	tokens   TokenStore
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, jwtMaker jwt.Maker, tokens TokenStore, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		jwtMaker: jwtMaker,
		tokens:   tokens,
		log:      log,
	}
}

// Register создает пользователя с ролью user и сразу выдаёт ему токены.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error) {
	const op = "services.auth.Register"

	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	role, err := roles.Apply("", roles.Registered)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hashed,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         role,
	}
	id, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	created, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tokens, err := s.issueTokens(created)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user registered", slog.Int64("user_id", id), slog.String("username", created.Username))
	return &models.AuthResult{User: created, Tokens: tokens}, nil
}

// Login проверяет пароль и выдаёт пару токенов. Неизвестный логин и
// неверный пароль дают одну и ту же ошибку ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error) {
	const op = "services.auth.Login"

	user, err := s.users.GetUserByUsername(ctx, req.Username)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, req.Password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.AuthResult{User: user, Tokens: tokens}, nil
}

// Refresh выдаёт новый access-токен по действующему refresh-токену.
// Роль берётся из базы, а не из старого токена.
func (s *AuthService) Refresh(ctx context.Context, refresh string) (string, error) {
	const op = "services.auth.Refresh"

	claims, err := s.parseRefresh(ctx, refresh)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	userID, _ := claims.UserID()
	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", op, models.ErrInvalidToken)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	access, err := s.jwtMaker.GenerateToken(user.ID, user.Username, string(user.Role), jwt.Access)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return access, nil
}

// Logout отзывает refresh-токен до окончания его срока действия.
func (s *AuthService) Logout(ctx context.Context, refresh string) error {
	const op = "services.auth.Logout"

	claims, err := s.parseRefresh(ctx, refresh)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := s.tokens.RevokeToken(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Me возвращает текущего пользователя.
func (s *AuthService) Me(ctx context.Context, userID int64) (*models.User, error) {
	const op = "services.auth.Me"
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (s *AuthService) parseRefresh(ctx context.Context, refresh string) (*jwt.CustomClaims, error) {
	claims, err := s.jwtMaker.ParseToken(refresh)
	if err != nil {
		s.log.Debug("refresh token rejected", sl.Err(err))
		return nil, models.ErrInvalidToken
	}
	if claims.TokenType != jwt.Refresh {
		return nil, models.ErrInvalidToken
	}
	revoked, err := s.tokens.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, models.ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) issueTokens(user *models.User) (models.TokenPair, error) {
	access, err := s.jwtMaker.GenerateToken(user.ID, user.Username, string(user.Role), jwt.Access)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, err := s.jwtMaker.GenerateToken(user.ID, user.Username, string(user.Role), jwt.Refresh)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{Access: access, Refresh: refresh}, nil
}
