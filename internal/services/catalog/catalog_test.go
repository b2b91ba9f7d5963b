package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gym-management/internal/cache"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

type RepoMock struct{ mock.Mock }

type txKey struct{}

// InTx помечает контекст, чтобы моки могли проверить, что вызов сделан в транзакции.
func (m *RepoMock) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(context.WithValue(ctx, txKey{}, true))
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

func (m *RepoMock) LockSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Schedule), args.Error(1)
}

func (m *RepoMock) CreateCategory(ctx context.Context, in models.CategoryInput) (int64, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepoMock) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *RepoMock) ListCategories(ctx context.Context) ([]*models.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Category), args.Error(1)
}

func (m *RepoMock) UpdateCategory(ctx context.Context, id int64, in models.CategoryInput) error {
	return m.Called(ctx, id, in).Error(0)
}

func (m *RepoMock) DeleteCategory(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *RepoMock) CreateCourse(ctx context.Context, in models.CourseInput) (int64, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepoMock) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *RepoMock) ListCourses(ctx context.Context, filter models.CourseFilter) ([]*models.Course, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Course), args.Error(1)
}

func (m *RepoMock) UpdateCourse(ctx context.Context, id int64, in models.CourseInput) error {
	return m.Called(ctx, id, in).Error(0)
}

func (m *RepoMock) DeleteCourse(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *RepoMock) CreateSchedule(ctx context.Context, in models.ScheduleInput) (int64, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepoMock) GetSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Schedule), args.Error(1)
}

func (m *RepoMock) ListSchedules(ctx context.Context, filter models.ScheduleFilter) ([]*models.Schedule, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Schedule), args.Error(1)
}

func (m *RepoMock) UpdateSchedule(ctx context.Context, id int64, in models.ScheduleInput) error {
	return m.Called(ctx, id, in).Error(0)
}

func (m *RepoMock) DeleteSchedule(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *RepoMock) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func newTestCache(t *testing.T) (*cache.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &cache.Cache{Db: client}, mr
}

func ptr[T any](v T) *T { return &v }

func TestCatalogService_GetCourseCached(t *testing.T) {
	repo := new(RepoMock)
	c, mr := newTestCache(t)
	svc := NewCatalogService(repo, c, newNoopLogger())
	ctx := context.Background()

	course := &models.Course{ID: 1, Name: "Yoga", Capacity: 10, IsActive: true}
	repo.On("GetCourse", mock.Anything, int64(1)).Return(course, nil).Once()

	got, err := svc.GetCourse(ctx, 1, false)
	require.NoError(t, err)
	assert.Equal(t, "Yoga", got.Name)
	assert.True(t, mr.Exists("course:1"))

	// второй запрос из кеша, без обращения к хранилищу
	got, err = svc.GetCourse(ctx, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Capacity)
	repo.AssertNumberOfCalls(t, "GetCourse", 1)

	mr.FastForward(courseTTL + time.Second)
	assert.False(t, mr.Exists("course:1"))
}

func TestCatalogService_InactiveCourseHidden(t *testing.T) {
	repo := new(RepoMock)
	c, _ := newTestCache(t)
	svc := NewCatalogService(repo, c, newNoopLogger())

	repo.On("GetCourse", mock.Anything, int64(2)).Return(&models.Course{ID: 2, IsActive: false}, nil).Once()

	_, err := svc.GetCourse(context.Background(), 2, false)
	require.ErrorIs(t, err, models.ErrNotFound)

	got, err := svc.GetCourse(context.Background(), 2, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)
}

func TestCatalogService_ListCoursesOnlyActiveForVisitors(t *testing.T) {
	repo := new(RepoMock)
	c, _ := newTestCache(t)
	svc := NewCatalogService(repo, c, newNoopLogger())

	repo.On("ListCourses", mock.Anything, models.CourseFilter{CategoryID: 3, OnlyActive: true}).Return([]*models.Course{}, nil).Once()
	repo.On("ListCourses", mock.Anything, models.CourseFilter{CategoryID: 3}).Return([]*models.Course{}, nil).Once()

	_, err := svc.ListCourses(context.Background(), models.CourseFilter{CategoryID: 3}, false)
	require.NoError(t, err)
	_, err = svc.ListCourses(context.Background(), models.CourseFilter{CategoryID: 3}, true)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCatalogService_CreateCourse(t *testing.T) {
	staff := models.Actor{ID: 5, Role: models.RoleStaff}
	admin := models.Actor{ID: 1, Role: models.RoleAdmin}
	in := models.CourseInput{Name: "Pilates", CategoryID: 1, DurationMinutes: 45, Capacity: 12}

	tests := []struct {
		name    string
		actor   models.Actor
		in      models.CourseInput
		setup   func(r *RepoMock)
		wantErr error
	}{
		{
			name:  "staff becomes instructor",
			actor: staff,
			in:    in,
			setup: func(r *RepoMock) {
				r.On("GetUserByID", mock.Anything, int64(5)).Return(&models.User{ID: 5, Role: models.RoleStaff}, nil).Once()
				r.On("CreateCourse", mock.Anything, mock.MatchedBy(func(c models.CourseInput) bool {
					return c.InstructorID != nil && *c.InstructorID == 5
				})).Return(int64(10), nil).Once()
				r.On("GetCourse", mock.Anything, int64(10)).Return(&models.Course{ID: 10, InstructorID: ptr(int64(5))}, nil).Once()
			},
		},
		{
			name:  "staff cannot assign another instructor",
			actor: staff,
			in: func() models.CourseInput {
				c := in
				c.InstructorID = ptr(int64(6))
				return c
			}(),
			setup:   func(_ *RepoMock) {},
			wantErr: models.ErrForbidden,
		},
		{
			name:    "member cannot create",
			actor:   models.Actor{ID: 7, Role: models.RoleMember},
			in:      in,
			setup:   func(_ *RepoMock) {},
			wantErr: models.ErrForbidden,
		},
		{
			name:  "admin assigns non-staff instructor",
			actor: admin,
			in: func() models.CourseInput {
				c := in
				c.InstructorID = ptr(int64(8))
				return c
			}(),
			setup: func(r *RepoMock) {
				r.On("GetUserByID", mock.Anything, int64(8)).Return(&models.User{ID: 8, Role: models.RoleUser}, nil).Once()
			},
			wantErr: models.ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setup(repo)
			c, _ := newTestCache(t)
			svc := NewCatalogService(repo, c, newNoopLogger())

			course, err := svc.CreateCourse(context.Background(), tt.actor, tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, int64(10), course.ID)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestCatalogService_UpdateCourseInvalidatesCache(t *testing.T) {
	repo := new(RepoMock)
	c, mr := newTestCache(t)
	svc := NewCatalogService(repo, c, newNoopLogger())
	ctx := context.Background()
	admin := models.Actor{ID: 1, Role: models.RoleAdmin}

	old := &models.Course{ID: 3, Name: "Old", Capacity: 10, IsActive: true}
	require.NoError(t, c.Set(ctx, "course:3", old, time.Hour))

	in := models.CourseInput{Name: "New", CategoryID: 1, DurationMinutes: 30, Capacity: 10}
	repo.On("GetCourse", mock.Anything, int64(3)).Return(old, nil).Once()
	repo.On("UpdateCourse", mock.Anything, int64(3), in).Return(nil).Once()
	repo.On("GetCourse", mock.Anything, int64(3)).Return(&models.Course{ID: 3, Name: "New", Capacity: 10, IsActive: true}, nil).Once()

	got, err := svc.UpdateCourse(ctx, admin, 3, in)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)

	cached, err := mr.Get("course:3")
	require.NoError(t, err)
	assert.Contains(t, cached, `"New"`)
}

func TestCatalogService_UpdateCourseCapacityBelowEnrolled(t *testing.T) {
	admin := models.Actor{ID: 1, Role: models.RoleAdmin}
	txCtx := mock.MatchedBy(inTx)

	tests := []struct {
		name    string
		listed  []*models.Schedule
		locked  map[int64]int
		wantErr error
	}{
		{
			name:    "занято больше новой вместимости",
			listed:  []*models.Schedule{{ID: 4, CurrentCapacity: 6}},
			locked:  map[int64]int{4: 6},
			wantErr: models.ErrCapacityTooLow,
		},
		{
			name:    "запись прошла между чтением списка и блокировкой",
			listed:  []*models.Schedule{{ID: 5, CurrentCapacity: 5}, {ID: 4, CurrentCapacity: 1}},
			locked:  map[int64]int{4: 1, 5: 6},
			wantErr: models.ErrCapacityTooLow,
		},
		{
			name:   "все занятия помещаются",
			listed: []*models.Schedule{{ID: 5, CurrentCapacity: 5}, {ID: 4, CurrentCapacity: 1}},
			locked: map[int64]int{4: 1, 5: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			c, _ := newTestCache(t)
			svc := NewCatalogService(repo, c, newNoopLogger())
			in := models.CourseInput{Name: "Yoga", CategoryID: 1, DurationMinutes: 30, Capacity: 5}

			repo.On("GetCourse", mock.Anything, int64(3)).Return(&models.Course{ID: 3, Capacity: 10}, nil).Once()
			repo.On("ListSchedules", txCtx, models.ScheduleFilter{CourseID: 3}).Return(tt.listed, nil).Once()
			var lockOrder []int64
			for id, current := range tt.locked {
				repo.On("LockSchedule", txCtx, id).
					Run(func(args mock.Arguments) { lockOrder = append(lockOrder, args.Get(1).(int64)) }).
					Return(&models.Schedule{ID: id, CurrentCapacity: current}, nil).Maybe()
			}
			if tt.wantErr == nil {
				repo.On("UpdateCourse", txCtx, int64(3), in).Return(nil).Once()
				repo.On("GetCourse", mock.Anything, int64(3)).Return(&models.Course{ID: 3, Capacity: 5}, nil).Once()
			}

			_, err := svc.UpdateCourse(context.Background(), admin, 3, in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				repo.AssertNotCalled(t, "UpdateCourse", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []int64{4, 5}, lockOrder)
			repo.AssertExpectations(t)
		})
	}
}

func TestCatalogService_CreateSchedule(t *testing.T) {
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	staff := models.Actor{ID: 5, Role: models.RoleStaff}

	tests := []struct {
		name    string
		actor   models.Actor
		in      models.ScheduleInput
		setup   func(r *RepoMock)
		wantErr error
	}{
		{
			name:  "instructor of course",
			actor: staff,
			in:    models.ScheduleInput{CourseID: 1, StartTime: start, EndTime: start.Add(time.Hour), Location: "A"},
			setup: func(r *RepoMock) {
				r.On("GetCourse", mock.Anything, int64(1)).Return(&models.Course{ID: 1, Capacity: 5, InstructorID: ptr(int64(5))}, nil).Once()
				r.On("CreateSchedule", mock.Anything, mock.Anything).Return(int64(20), nil).Once()
				r.On("GetSchedule", mock.Anything, int64(20)).Return(&models.Schedule{ID: 20, Capacity: 5, AvailableSlots: 5}, nil).Once()
			},
		},
		{
			name:    "end before start",
			actor:   staff,
			in:      models.ScheduleInput{CourseID: 1, StartTime: start, EndTime: start, Location: "A"},
			setup:   func(_ *RepoMock) {},
			wantErr: models.ErrInvalidSchedule,
		},
		{
			name:  "other instructor's course",
			actor: staff,
			in:    models.ScheduleInput{CourseID: 2, StartTime: start, EndTime: start.Add(time.Hour), Location: "A"},
			setup: func(r *RepoMock) {
				r.On("GetCourse", mock.Anything, int64(2)).Return(&models.Course{ID: 2, InstructorID: ptr(int64(6))}, nil).Once()
			},
			wantErr: models.ErrForbidden,
		},
		{
			name:  "unknown course",
			actor: staff,
			in:    models.ScheduleInput{CourseID: 9, StartTime: start, EndTime: start.Add(time.Hour), Location: "A"},
			setup: func(r *RepoMock) {
				r.On("GetCourse", mock.Anything, int64(9)).Return(nil, models.ErrNotFound).Once()
			},
			wantErr: models.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			tt.setup(repo)
			c, _ := newTestCache(t)
			svc := NewCatalogService(repo, c, newNoopLogger())

			sc, err := svc.CreateSchedule(context.Background(), tt.actor, tt.in)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, 5, sc.AvailableSlots)
			}
			repo.AssertExpectations(t)
		})
	}
}
