// Package services содержит каталог: категории, курсы и расписание занятий.
// Карточки курсов кешируются в Redis.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/magabrotheeeer/gym-management/internal/lib/sl"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

const courseTTL = time.Hour

// CatalogRepository методы хранилища для каталога.
type CatalogRepository interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateCategory(ctx context.Context, in models.CategoryInput) (int64, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
	UpdateCategory(ctx context.Context, id int64, in models.CategoryInput) error
	DeleteCategory(ctx context.Context, id int64) error

	CreateCourse(ctx context.Context, in models.CourseInput) (int64, error)
	GetCourse(ctx context.Context, id int64) (*models.Course, error)
	ListCourses(ctx context.Context, filter models.CourseFilter) ([]*models.Course, error)
	UpdateCourse(ctx context.Context, id int64, in models.CourseInput) error
	DeleteCourse(ctx context.Context, id int64) error

	CreateSchedule(ctx context.Context, in models.ScheduleInput) (int64, error)
	GetSchedule(ctx context.Context, id int64) (*models.Schedule, error)
	LockSchedule(ctx context.Context, id int64) (*models.Schedule, error)
	ListSchedules(ctx context.Context, filter models.ScheduleFilter) ([]*models.Schedule, error)
	UpdateSchedule(ctx context.Context, id int64, in models.ScheduleInput) error
	DeleteSchedule(ctx context.Context, id int64) error

	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(ctx context.Context, key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(ctx context.Context, key string) error
}

// CatalogService реализует бизнес-логику каталога.
type CatalogService struct {
	repo  CatalogRepository
	cache Cache
	log   *slog.Logger
}

// NewCatalogService создает новый экземпляр CatalogService.
func NewCatalogService(repo CatalogRepository, cache Cache, log *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

func courseKey(id int64) string {
	return fmt.Sprintf("course:%d", id)
}

func (s *CatalogService) invalidateCourse(ctx context.Context, id int64) {
	key := courseKey(id)
	if err := s.cache.Invalidate(ctx, key); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", key), sl.Err(err))
	}
}

// ListCategories возвращает все категории.
func (s *CatalogService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	const op = "services.catalog.ListCategories"
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return categories, nil
}

// GetCategory возвращает категорию.
func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	const op = "services.catalog.GetCategory"
	category, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return category, nil
}

// CreateCategory создаёт категорию.
func (s *CatalogService) CreateCategory(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	const op = "services.catalog.CreateCategory"
	id, err := s.repo.CreateCategory(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.GetCategory(ctx, id)
}

// UpdateCategory меняет категорию.
func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, in models.CategoryInput) (*models.Category, error) {
	const op = "services.catalog.UpdateCategory"
	if err := s.repo.UpdateCategory(ctx, id, in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// в карточке курса хранится название категории
	courses, err := s.repo.ListCourses(ctx, models.CourseFilter{CategoryID: id})
	if err == nil {
		for _, c := range courses {
			s.invalidateCourse(ctx, c.ID)
		}
	}
	return s.GetCategory(ctx, id)
}

// DeleteCategory удаляет категорию вместе с курсами.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	const op = "services.catalog.DeleteCategory"
	courses, err := s.repo.ListCourses(ctx, models.CourseFilter{CategoryID: id})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, c := range courses {
		s.invalidateCourse(ctx, c.ID)
	}
	return nil
}

// ListCourses возвращает курсы. Не сотрудникам показываются только активные.
func (s *CatalogService) ListCourses(ctx context.Context, filter models.CourseFilter, staff bool) ([]*models.Course, error) {
	const op = "services.catalog.ListCourses"
	if !staff {
		filter.OnlyActive = true
	}
	courses, err := s.repo.ListCourses(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return courses, nil
}

// GetCourse возвращает курс из кеша или хранилища. Неактивный курс
// для не сотрудников не существует.
func (s *CatalogService) GetCourse(ctx context.Context, id int64, staff bool) (*models.Course, error) {
	const op = "services.catalog.GetCourse"
	course, err := s.course(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !course.IsActive && !staff {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return course, nil
}

func (s *CatalogService) course(ctx context.Context, id int64) (*models.Course, error) {
	var cached models.Course
	key := courseKey(id)
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.log.Warn("failed to read cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	course, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, course, courseTTL); err != nil {
		s.log.Warn("failed to add to cache", slog.String("key", key), sl.Err(err))
	}
	return course, nil
}

// checkInstructor проверяет, что инструктор курса сотрудник.
func (s *CatalogService) checkInstructor(ctx context.Context, instructorID *int64) error {
	if instructorID == nil {
		return nil
	}
	instructor, err := s.repo.GetUserByID(ctx, *instructorID)
	if err != nil {
		return err
	}
	if instructor.Role != models.RoleStaff {
		return fmt.Errorf("instructor %d: %w", *instructorID, models.ErrInvalidRole)
	}
	return nil
}

// canManage true, если actor может менять курс с инструктором instructorID.
func canManage(actor models.Actor, instructorID *int64) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.Role == models.RoleStaff && instructorID != nil && *instructorID == actor.ID
}

// CreateCourse создаёт курс. Сотрудник без явного инструктора становится
// инструктором сам и не может назначить другого.
func (s *CatalogService) CreateCourse(ctx context.Context, actor models.Actor, in models.CourseInput) (*models.Course, error) {
	const op = "services.catalog.CreateCourse"
	if !actor.Role.IsStaff() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	if !actor.IsAdmin() {
		if in.InstructorID == nil {
			id := actor.ID
			in.InstructorID = &id
		}
		if *in.InstructorID != actor.ID {
			return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
		}
	}
	if err := s.checkInstructor(ctx, in.InstructorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := s.repo.CreateCourse(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("course created", slog.Int64("id", id), slog.Int64("actor", actor.ID))
	return s.GetCourse(ctx, id, true)
}

// UpdateCourse заменяет поля курса.
func (s *CatalogService) UpdateCourse(ctx context.Context, actor models.Actor, id int64, in models.CourseInput) (*models.Course, error) {
	const op = "services.catalog.UpdateCourse"
	current, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !canManage(actor, current.InstructorID) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	if !actor.IsAdmin() && (in.InstructorID == nil || *in.InstructorID != actor.ID) {
		in.InstructorID = current.InstructorID
	}
	if err := s.checkInstructor(ctx, in.InstructorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	err = s.repo.InTx(ctx, func(ctx context.Context) error {
		if in.Capacity < current.Capacity {
			if err := s.checkCapacity(ctx, id, in.Capacity); err != nil {
				return err
			}
		}
		return s.repo.UpdateCourse(ctx, id, in)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidateCourse(ctx, id)
	return s.GetCourse(ctx, id, true)
}

// checkCapacity блокирует занятия курса в порядке id и проверяет, что ни на
// одном не записано больше capacity человек. Запись на занятие ждёт этой
// блокировки, поэтому проверка и смена вместимости не разъезжаются.
func (s *CatalogService) checkCapacity(ctx context.Context, courseID int64, capacity int) error {
	schedules, err := s.repo.ListSchedules(ctx, models.ScheduleFilter{CourseID: courseID})
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(schedules))
	for _, sc := range schedules {
		ids = append(ids, sc.ID)
	}
	slices.Sort(ids)
	for _, scheduleID := range ids {
		sc, err := s.repo.LockSchedule(ctx, scheduleID)
		if err != nil {
			return err
		}
		if sc.CurrentCapacity > capacity {
			return fmt.Errorf("schedule %d: %w", sc.ID, models.ErrCapacityTooLow)
		}
	}
	return nil
}

// DeleteCourse удаляет курс.
func (s *CatalogService) DeleteCourse(ctx context.Context, actor models.Actor, id int64) error {
	const op = "services.catalog.DeleteCourse"
	current, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !canManage(actor, current.InstructorID) {
		return fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	s.invalidateCourse(ctx, id)
	if err := s.repo.DeleteCourse(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListSchedules возвращает занятия. Не сотрудникам только занятия активных курсов.
func (s *CatalogService) ListSchedules(ctx context.Context, filter models.ScheduleFilter, staff bool) ([]*models.Schedule, error) {
	const op = "services.catalog.ListSchedules"
	if !staff {
		filter.OnlyActive = true
	}
	schedules, err := s.repo.ListSchedules(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return schedules, nil
}

// GetSchedule возвращает занятие со свободными местами.
func (s *CatalogService) GetSchedule(ctx context.Context, id int64, staff bool) (*models.Schedule, error) {
	const op = "services.catalog.GetSchedule"
	sc, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !sc.CourseActive && !staff {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return sc, nil
}

func (s *CatalogService) checkScheduleInput(ctx context.Context, actor models.Actor, in models.ScheduleInput, enrolled int) error {
	if !in.EndTime.After(in.StartTime) {
		return models.ErrInvalidSchedule
	}
	course, err := s.repo.GetCourse(ctx, in.CourseID)
	if err != nil {
		return err
	}
	if !canManage(actor, course.InstructorID) {
		return models.ErrForbidden
	}
	if course.Capacity < enrolled {
		return models.ErrCapacityTooLow
	}
	return nil
}

// CreateSchedule создаёт занятие курса.
func (s *CatalogService) CreateSchedule(ctx context.Context, actor models.Actor, in models.ScheduleInput) (*models.Schedule, error) {
	const op = "services.catalog.CreateSchedule"
	if err := s.checkScheduleInput(ctx, actor, in, 0); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	id, err := s.repo.CreateSchedule(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.GetSchedule(ctx, id, true)
}

// UpdateSchedule меняет занятие. Перенос на другой курс требует прав на оба курса.
func (s *CatalogService) UpdateSchedule(ctx context.Context, actor models.Actor, id int64, in models.ScheduleInput) (*models.Schedule, error) {
	const op = "services.catalog.UpdateSchedule"
	current, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !canManage(actor, current.InstructorID) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	if err := s.checkScheduleInput(ctx, actor, in, current.CurrentCapacity); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.UpdateSchedule(ctx, id, in); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.GetSchedule(ctx, id, true)
}

// DeleteSchedule удаляет занятие вместе с записями.
func (s *CatalogService) DeleteSchedule(ctx context.Context, actor models.Actor, id int64) error {
	const op = "services.catalog.DeleteSchedule"
	current, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !canManage(actor, current.InstructorID) {
		return fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	if err := s.repo.DeleteSchedule(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
