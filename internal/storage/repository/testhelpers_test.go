package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/gym-management/internal/migrations"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

const pgPort = nat.Port("5432/tcp")

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{string(pgPort)},
		Env: map[string]string{
			"POSTGRES_DB":       "testdb",
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(pgPort),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(3 * time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, pgPort)
	require.NoError(t, err, "failed to get port")

	connStr := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())

	// Пробуем подключиться несколько раз с ретраями
	var storage *Storage
	for i := 0; i < 10; i++ {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")
	t.Cleanup(func() { _ = storage.Close() })

	migrationsPath, err := filepath.Abs("../../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))
	require.NoError(t, CheckDatabaseReady(ctx, storage))

	return storage
}

// TestDataFactory создаёт тестовые данные через методы Storage.
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создаёт фабрику тестовых данных.
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreateUser создаёт пользователя с уникальным логином и почтой.
func (f *TestDataFactory) CreateUser(t *testing.T, role models.Role) int64 {
	t.Helper()
	name := "user_" + uuid.NewString()[:8]
	id, err := f.storage.CreateUser(context.Background(), models.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hashedpassword",
		Role:         role,
	})
	require.NoError(t, err)
	return id
}

// CreateCourse создаёт категорию и курс с заданной вместимостью.
func (f *TestDataFactory) CreateCourse(t *testing.T, capacity int, instructorID *int64) int64 {
	t.Helper()
	ctx := context.Background()
	catID, err := f.storage.CreateCategory(ctx, models.CategoryInput{Name: "cat_" + uuid.NewString()[:8]})
	require.NoError(t, err)
	id, err := f.storage.CreateCourse(ctx, models.CourseInput{
		Name:            "Yoga",
		CategoryID:      catID,
		InstructorID:    instructorID,
		Price:           150000,
		DurationMinutes: 60,
		Capacity:        capacity,
	})
	require.NoError(t, err)
	return id
}

// CreateSchedule создаёт занятие курса на завтра.
func (f *TestDataFactory) CreateSchedule(t *testing.T, courseID int64) int64 {
	t.Helper()
	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	id, err := f.storage.CreateSchedule(context.Background(), models.ScheduleInput{
		CourseID:  courseID,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Location:  "Hall A",
	})
	require.NoError(t, err)
	return id
}

// CreatePlan создаёт активный тарифный план.
func (f *TestDataFactory) CreatePlan(t *testing.T, durationDays int) int64 {
	t.Helper()
	id, err := f.storage.CreatePlan(context.Background(), models.PlanInput{
		Name:         "Monthly",
		PlanType:     models.PlanMonthly,
		DurationDays: durationDays,
		Price:        300000,
	})
	require.NoError(t, err)
	return id
}
