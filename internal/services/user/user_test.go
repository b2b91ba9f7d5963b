package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gym-management/internal/config"
	"github.com/magabrotheeeer/gym-management/internal/lib/password"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *RepoMock) CreateUser(ctx context.Context, user models.User) (int64, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepoMock) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) LockUser(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *RepoMock) ListUsers(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *RepoMock) UpdateUserProfile(ctx context.Context, id int64, upd models.UserUpdate) error {
	return m.Called(ctx, id, upd).Error(0)
}

func (m *RepoMock) UpdateUserRole(ctx context.Context, id int64, role models.Role) error {
	return m.Called(ctx, id, role).Error(0)
}

func (m *RepoMock) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *RepoMock) DeleteUser(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *RepoMock) GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *RepoMock) UpsertProfile(ctx context.Context, p *models.UserProfile) error {
	return m.Called(ctx, p).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestUserService_Update(t *testing.T) {
	member := models.RoleMember
	invalid := models.Role("coach")
	phone := "+7000"

	tests := []struct {
		name    string
		actor   models.Actor
		upd     models.UserUpdate
		setup   func(r *RepoMock)
		wantErr error
	}{
		{
			name:  "owner updates profile",
			actor: models.Actor{ID: 2, Role: models.RoleUser},
			upd:   models.UserUpdate{Phone: &phone},
			setup: func(r *RepoMock) {
				r.On("LockUser", mock.Anything, int64(2)).Return(&models.User{ID: 2, Role: models.RoleUser}, nil).Once()
				r.On("UpdateUserProfile", mock.Anything, int64(2), mock.Anything).Return(nil).Once()
				r.On("GetUserByID", mock.Anything, int64(2)).Return(&models.User{ID: 2, Phone: phone}, nil).Once()
			},
		},
		{
			name:    "other user forbidden",
			actor:   models.Actor{ID: 3, Role: models.RoleStaff},
			upd:     models.UserUpdate{Phone: &phone},
			setup:   func(_ *RepoMock) {},
			wantErr: models.ErrForbidden,
		},
		{
			name:    "owner cannot change own role",
			actor:   models.Actor{ID: 2, Role: models.RoleUser},
			upd:     models.UserUpdate{Role: &member},
			setup:   func(_ *RepoMock) {},
			wantErr: models.ErrForbidden,
		},
		{
			name:  "admin assigns role",
			actor: models.Actor{ID: 1, Role: models.RoleAdmin},
			upd:   models.UserUpdate{Role: &member},
			setup: func(r *RepoMock) {
				r.On("LockUser", mock.Anything, int64(2)).Return(&models.User{ID: 2, Role: models.RoleUser}, nil).Once()
				r.On("UpdateUserProfile", mock.Anything, int64(2), mock.Anything).Return(nil).Once()
				r.On("UpdateUserRole", mock.Anything, int64(2), models.RoleMember).Return(nil).Once()
				r.On("GetUserByID", mock.Anything, int64(2)).Return(&models.User{ID: 2, Role: models.RoleMember}, nil).Once()
			},
		},
		{
			name:  "admin assigns unknown role",
			actor: models.Actor{ID: 1, Role: models.RoleAdmin},
			upd:   models.UserUpdate{Role: &invalid},
			setup: func(r *RepoMock) {
				r.On("LockUser", mock.Anything, int64(2)).Return(&models.User{ID: 2, Role: models.RoleUser}, nil).Once()
				r.On("UpdateUserProfile", mock.Anything, int64(2), mock.Anything).Return(nil).Once()
			},
			wantErr: models.ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setup(repo)
			svc := NewUserService(repo, newNoopLogger())

			user, err := svc.Update(context.Background(), tt.actor, 2, tt.upd)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, int64(2), user.ID)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestUserService_ChangePassword(t *testing.T) {
	hash, err := password.GetHash("old-password")
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetUserByID", mock.Anything, int64(4)).Return(&models.User{ID: 4, PasswordHash: hash}, nil).Once()
		repo.On("UpdatePassword", mock.Anything, int64(4), mock.MatchedBy(func(h string) bool {
			return password.CompareHash(h, "new-password") == nil
		})).Return(nil).Once()

		svc := NewUserService(repo, newNoopLogger())
		require.NoError(t, svc.ChangePassword(context.Background(), 4,
			models.ChangePasswordRequest{OldPassword: "old-password", NewPassword: "new-password"}))
		repo.AssertExpectations(t)
	})

	t.Run("wrong old password", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetUserByID", mock.Anything, int64(4)).Return(&models.User{ID: 4, PasswordHash: hash}, nil).Once()

		svc := NewUserService(repo, newNoopLogger())
		err := svc.ChangePassword(context.Background(), 4,
			models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "new-password"})
		require.ErrorIs(t, err, models.ErrInvalidCredentials)
		repo.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUserService_CreateInstructor(t *testing.T) {
	repo := new(RepoMock)
	repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.Role == models.RoleStaff && u.Username == "coach"
	})).Return(int64(9), nil).Once()
	repo.On("GetUserByID", mock.Anything, int64(9)).Return(&models.User{ID: 9, Role: models.RoleStaff}, nil).Once()

	svc := NewUserService(repo, newNoopLogger())
	user, err := svc.CreateInstructor(context.Background(), models.RegisterRequest{
		Username: "coach", Email: "coach@example.com", Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, user.Role)
	repo.AssertExpectations(t)
}

func TestUserService_EnsureAdmin(t *testing.T) {
	cfg := config.BootstrapAdmin{AdminUsername: "admin", AdminEmail: "admin@example.com", AdminPassword: "password123"}

	t.Run("creates missing admin", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetUserByUsername", mock.Anything, "admin").Return(nil, models.ErrNotFound).Once()
		repo.On("CreateUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.Role == models.RoleAdmin
		})).Return(int64(1), nil).Once()
		repo.On("GetUserByID", mock.Anything, int64(1)).Return(&models.User{ID: 1, Role: models.RoleAdmin}, nil).Once()

		svc := NewUserService(repo, newNoopLogger())
		require.NoError(t, svc.EnsureAdmin(context.Background(), cfg))
		repo.AssertExpectations(t)
	})

	t.Run("existing admin untouched", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("GetUserByUsername", mock.Anything, "admin").Return(&models.User{ID: 1}, nil).Once()

		svc := NewUserService(repo, newNoopLogger())
		require.NoError(t, svc.EnsureAdmin(context.Background(), cfg))
		repo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("disabled", func(t *testing.T) {
		svc := NewUserService(new(RepoMock), newNoopLogger())
		require.NoError(t, svc.EnsureAdmin(context.Background(), config.BootstrapAdmin{}))
	})
}

func TestUserService_GetProfile(t *testing.T) {
	owner := models.Actor{ID: 5, Role: models.RoleMember}
	admin := models.Actor{ID: 1, Role: models.RoleAdmin}
	height := 170.0

	tests := []struct {
		name       string
		actor      models.Actor
		setupMock  func(*RepoMock)
		wantErr    error
		wantHeight *float64
	}{
		{
			name:  "владелец видит анкету",
			actor: owner,
			setupMock: func(m *RepoMock) {
				m.On("GetProfile", mock.Anything, int64(5)).
					Return(&models.UserProfile{UserID: 5, Height: &height}, nil).Once()
			},
			wantHeight: &height,
		},
		{
			name:  "пустая анкета до первого сохранения",
			actor: admin,
			setupMock: func(m *RepoMock) {
				m.On("GetProfile", mock.Anything, int64(5)).Return(nil, models.ErrNotFound).Once()
				m.On("GetUserByID", mock.Anything, int64(5)).Return(&models.User{ID: 5}, nil).Once()
			},
		},
		{
			name:  "нет пользователя",
			actor: admin,
			setupMock: func(m *RepoMock) {
				m.On("GetProfile", mock.Anything, int64(5)).Return(nil, models.ErrNotFound).Once()
				m.On("GetUserByID", mock.Anything, int64(5)).Return(nil, models.ErrNotFound).Once()
			},
			wantErr: models.ErrNotFound,
		},
		{
			name:      "чужая анкета",
			actor:     models.Actor{ID: 6, Role: models.RoleStaff},
			setupMock: func(_ *RepoMock) {},
			wantErr:   models.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setupMock(repo)
			profile, err := NewUserService(repo, newNoopLogger()).GetProfile(context.Background(), tt.actor, 5)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(5), profile.UserID)
			assert.Equal(t, tt.wantHeight, profile.Height)
			repo.AssertExpectations(t)
		})
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	owner := models.Actor{ID: 5, Role: models.RoleMember}
	weight := 72.5
	level := models.LevelIntermediate
	contact := "+79991112233"

	t.Run("первое сохранение создаёт анкету", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("LockUser", mock.Anything, int64(5)).Return(&models.User{ID: 5}, nil).Once()
		repo.On("GetProfile", mock.Anything, int64(5)).Return(nil, models.ErrNotFound).Once()
		repo.On("UpsertProfile", mock.Anything, mock.MatchedBy(func(p *models.UserProfile) bool {
			return p.UserID == 5 && p.Weight != nil && *p.Weight == weight && p.FitnessLevel == level
		})).Return(nil).Once()

		profile, err := NewUserService(repo, newNoopLogger()).UpdateProfile(context.Background(), owner, 5,
			models.ProfileUpdate{Weight: &weight, FitnessLevel: &level})
		require.NoError(t, err)
		assert.Equal(t, level, profile.FitnessLevel)
		repo.AssertExpectations(t)
	})

	t.Run("незаданные поля сохраняются", func(t *testing.T) {
		height := 180.0
		repo := new(RepoMock)
		repo.On("LockUser", mock.Anything, int64(5)).Return(&models.User{ID: 5}, nil).Once()
		repo.On("GetProfile", mock.Anything, int64(5)).
			Return(&models.UserProfile{UserID: 5, Height: &height, FitnessGoal: models.GoalFitness}, nil).Once()
		repo.On("UpsertProfile", mock.Anything, mock.AnythingOfType("*models.UserProfile")).Return(nil).Once()

		profile, err := NewUserService(repo, newNoopLogger()).UpdateProfile(context.Background(),
			models.Actor{ID: 1, Role: models.RoleAdmin}, 5, models.ProfileUpdate{EmergencyContact: &contact})
		require.NoError(t, err)
		assert.Equal(t, &height, profile.Height)
		assert.Equal(t, models.GoalFitness, profile.FitnessGoal)
		assert.Equal(t, contact, profile.EmergencyContact)
		repo.AssertExpectations(t)
	})

	t.Run("чужая анкета", func(t *testing.T) {
		repo := new(RepoMock)
		_, err := NewUserService(repo, newNoopLogger()).UpdateProfile(context.Background(),
			models.Actor{ID: 6, Role: models.RoleMember}, 5, models.ProfileUpdate{Weight: &weight})
		require.ErrorIs(t, err, models.ErrForbidden)
		repo.AssertNotCalled(t, "UpsertProfile", mock.Anything, mock.Anything)
	})

	t.Run("нет пользователя", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("LockUser", mock.Anything, int64(5)).Return(nil, models.ErrNotFound).Once()
		_, err := NewUserService(repo, newNoopLogger()).UpdateProfile(context.Background(), owner, 5,
			models.ProfileUpdate{Weight: &weight})
		require.ErrorIs(t, err, models.ErrNotFound)
		repo.AssertNotCalled(t, "UpsertProfile", mock.Anything, mock.Anything)
	})
}
