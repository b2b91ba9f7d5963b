package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	customjwt "github.com/magabrotheeeer/gym-management/internal/lib/jwt"
	"github.com/magabrotheeeer/gym-management/internal/lib/password"
	"github.com/magabrotheeeer/gym-management/internal/models"
	services "github.com/magabrotheeeer/gym-management/internal/services/auth"
)

type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) CreateUser(ctx context.Context, user models.User) (int64, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(int64), args.Error(1)
}

func (m *UserRepoMock) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type TokenStoreMock struct {
	mock.Mock
}

func (m *TokenStoreMock) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	return m.Called(ctx, tokenID, ttl).Error(0)
}

func (m *TokenStoreMock) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newMaker() *customjwt.MakerImpl {
	return customjwt.NewJWTMaker("secret", 15*time.Minute, time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(r *UserRepoMock)
		wantErr    error
	}{
		{
			name: "success",
			setupMocks: func(r *UserRepoMock) {
				r.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
					return u.Username == "alice" && u.Role == models.RoleUser &&
						password.CompareHash(u.PasswordHash, "password123") == nil
				})).Return(int64(7), nil).Once()
				r.On("GetUserByID", mock.Anything, int64(7)).
					Return(&models.User{ID: 7, Username: "alice", Role: models.RoleUser}, nil).Once()
			},
		},
		{
			name: "duplicate username",
			setupMocks: func(r *UserRepoMock) {
				r.On("CreateUser", mock.Anything, mock.Anything).Return(int64(0), models.ErrDuplicate).Once()
			},
			wantErr: models.ErrDuplicate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			tt.setupMocks(repo)
			maker := newMaker()
			svc := services.NewAuthService(repo, maker, new(TokenStoreMock), newNoopLogger())

			res, err := svc.Register(context.Background(), models.RegisterRequest{
				Username: "alice",
				Email:    "alice@example.com",
				Password: "password123",
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(7), res.User.ID)

			claims, err := maker.ParseToken(res.Tokens.Access)
			require.NoError(t, err)
			assert.Equal(t, customjwt.Access, claims.TokenType)
			assert.Equal(t, "user", claims.Role)
			repo.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hash, err := password.GetHash("password123")
	require.NoError(t, err)
	user := &models.User{ID: 3, Username: "bob", PasswordHash: hash, Role: models.RoleMember}

	tests := []struct {
		name     string
		username string
		password string
		setup    func(r *UserRepoMock)
		wantErr  error
	}{
		{
			name:     "success",
			username: "bob",
			password: "password123",
			setup: func(r *UserRepoMock) {
				r.On("GetUserByUsername", mock.Anything, "bob").Return(user, nil).Once()
			},
		},
		{
			name:     "wrong password",
			username: "bob",
			password: "nope",
			setup: func(r *UserRepoMock) {
				r.On("GetUserByUsername", mock.Anything, "bob").Return(user, nil).Once()
			},
			wantErr: models.ErrInvalidCredentials,
		},
		{
			name:     "unknown user",
			username: "ghost",
			password: "password123",
			setup: func(r *UserRepoMock) {
				r.On("GetUserByUsername", mock.Anything, "ghost").Return(nil, models.ErrNotFound).Once()
			},
			wantErr: models.ErrInvalidCredentials,
		},
		{
			name:     "db error",
			username: "bob",
			password: "password123",
			setup: func(r *UserRepoMock) {
				r.On("GetUserByUsername", mock.Anything, "bob").Return(nil, errors.New("db down")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			tt.setup(repo)
			svc := services.NewAuthService(repo, newMaker(), new(TokenStoreMock), newNoopLogger())

			res, err := svc.Login(context.Background(), models.LoginRequest{Username: tt.username, Password: tt.password})
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.name == "db error":
				require.Error(t, err)
				assert.NotErrorIs(t, err, models.ErrInvalidCredentials)
			default:
				require.NoError(t, err)
				assert.NotEmpty(t, res.Tokens.Access)
				assert.NotEmpty(t, res.Tokens.Refresh)
			}
		})
	}
}

func TestAuthService_RefreshAndLogout(t *testing.T) {
	maker := newMaker()
	user := &models.User{ID: 5, Username: "carol", Role: models.RoleMember}
	refresh, err := maker.GenerateToken(5, "carol", "user", customjwt.Refresh)
	require.NoError(t, err)
	access, err := maker.GenerateToken(5, "carol", "user", customjwt.Access)
	require.NoError(t, err)
	claims, err := maker.ParseToken(refresh)
	require.NoError(t, err)

	t.Run("refresh uses current role", func(t *testing.T) {
		repo := new(UserRepoMock)
		store := new(TokenStoreMock)
		repo.On("GetUserByID", mock.Anything, int64(5)).Return(user, nil).Once()
		store.On("IsRevoked", mock.Anything, claims.ID).Return(false, nil).Once()
		svc := services.NewAuthService(repo, maker, store, newNoopLogger())

		newAccess, err := svc.Refresh(context.Background(), refresh)
		require.NoError(t, err)
		got, err := maker.ParseToken(newAccess)
		require.NoError(t, err)
		assert.Equal(t, "member", got.Role)
		assert.Equal(t, customjwt.Access, got.TokenType)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		svc := services.NewAuthService(new(UserRepoMock), maker, new(TokenStoreMock), newNoopLogger())
		_, err := svc.Refresh(context.Background(), access)
		require.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("revoked refresh", func(t *testing.T) {
		store := new(TokenStoreMock)
		store.On("IsRevoked", mock.Anything, claims.ID).Return(true, nil).Once()
		svc := services.NewAuthService(new(UserRepoMock), maker, store, newNoopLogger())
		_, err := svc.Refresh(context.Background(), refresh)
		require.ErrorIs(t, err, models.ErrInvalidToken)
	})

	t.Run("logout revokes until expiry", func(t *testing.T) {
		store := new(TokenStoreMock)
		store.On("IsRevoked", mock.Anything, claims.ID).Return(false, nil).Once()
		store.On("RevokeToken", mock.Anything, claims.ID, mock.MatchedBy(func(ttl time.Duration) bool {
			return ttl > 50*time.Minute && ttl <= time.Hour
		})).Return(nil).Once()
		svc := services.NewAuthService(new(UserRepoMock), maker, store, newNoopLogger())

		require.NoError(t, svc.Logout(context.Background(), refresh))
		store.AssertExpectations(t)
	})

	t.Run("garbage token", func(t *testing.T) {
		svc := services.NewAuthService(new(UserRepoMock), maker, new(TokenStoreMock), newNoopLogger())
		require.ErrorIs(t, svc.Logout(context.Background(), "not-a-jwt"), models.ErrInvalidToken)
	})
}
