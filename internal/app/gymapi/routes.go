// Package gymapi собирает HTTP API клуба и gRPC health-сервер.
package gymapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/magabrotheeeer/gym-management/docs"
	"github.com/magabrotheeeer/gym-management/internal/config"
	"github.com/magabrotheeeer/gym-management/internal/http/handlers/auth"
	"github.com/magabrotheeeer/gym-management/internal/http/handlers/catalog"
	"github.com/magabrotheeeer/gym-management/internal/http/handlers/enrollment"
	"github.com/magabrotheeeer/gym-management/internal/http/handlers/health"
	"github.com/magabrotheeeer/gym-management/internal/http/handlers/membership"
	"github.com/magabrotheeeer/gym-management/internal/http/handlers/order"
	"github.com/magabrotheeeer/gym-management/internal/http/handlers/outbox"
	"github.com/magabrotheeeer/gym-management/internal/http/handlers/user"
	"github.com/magabrotheeeer/gym-management/internal/http/middlewarectx"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

// Handlers обработчики всех ресурсов API.
type Handlers struct {
	Auth       *auth.Handler
	User       *user.Handler
	Catalog    *catalog.Handler
	Enrollment *enrollment.Handler
	Membership *membership.Handler
	Order      *order.Handler
	Outbox     *outbox.Handler
	Health     *health.Handler
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, parser middlewarectx.TokenParser, limit config.RateLimit, h Handlers) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		middlewarectx.Tracing,
		middlewarectx.Metrics,
	)

	optional := middlewarectx.OptionalJWT(parser, logger)
	required := middlewarectx.JWTMiddleware(parser, logger)
	admin := middlewarectx.RequireRole(logger, models.RoleAdmin)
	staff := middlewarectx.RequireRole(logger, models.RoleStaff, models.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(limit, logger))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.Post("/refresh", h.Auth.Refresh)
			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Post("/logout", h.Auth.Logout)
				r.Get("/user", h.Auth.Me)
			})
		})

		r.Route("/courses", func(r chi.Router) {
			// Каталог открыт всем, токен нужен только чтобы сотрудники видели неактивное
			r.Group(func(r chi.Router) {
				r.Use(optional)
				r.Get("/categories/", h.Catalog.ListCategories)
				r.Get("/categories/{id}/", h.Catalog.GetCategory)
				r.Get("/", h.Catalog.ListCourses)
				r.Get("/{id}/", h.Catalog.GetCourse)
				r.Get("/schedules/", h.Catalog.ListSchedules)
				r.Get("/schedules/{id}/", h.Catalog.GetSchedule)
			})

			r.Group(func(r chi.Router) {
				r.Use(required, admin)
				r.Post("/categories/", h.Catalog.CreateCategory)
				r.Put("/categories/{id}/", h.Catalog.UpdateCategory)
				r.Delete("/categories/{id}/", h.Catalog.DeleteCategory)
			})

			r.Group(func(r chi.Router) {
				r.Use(required, staff)
				r.Post("/", h.Catalog.CreateCourse)
				r.Put("/{id}/", h.Catalog.UpdateCourse)
				r.Delete("/{id}/", h.Catalog.DeleteCourse)
				r.Post("/schedules/", h.Catalog.CreateSchedule)
				r.Put("/schedules/{id}/", h.Catalog.UpdateSchedule)
				r.Delete("/schedules/{id}/", h.Catalog.DeleteSchedule)
			})

			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Get("/enrollments/", h.Enrollment.List)
				r.Post("/enrollments/", h.Enrollment.Enroll)
				r.Get("/enrollments/{id}/", h.Enrollment.Get)
				r.Put("/enrollments/{id}/", h.Enrollment.Update)
				r.Delete("/enrollments/{id}/", h.Enrollment.Delete)
				r.Post("/enrollments/{id}/cancel/", h.Enrollment.Cancel)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(optional)
				r.Get("/membership-plans/", h.Membership.ListPlans)
				r.Get("/membership-plans/{id}/", h.Membership.GetPlan)
			})

			r.Group(func(r chi.Router) {
				r.Use(required, admin)
				r.Post("/membership-plans/", h.Membership.CreatePlan)
				r.Put("/membership-plans/{id}/", h.Membership.UpdatePlan)
				r.Delete("/membership-plans/{id}/", h.Membership.DeletePlan)
			})

			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Get("/", h.Order.List)
				r.Post("/", h.Order.Create)
				r.Get("/{id}/", h.Order.Get)
				r.Put("/{id}/", h.Order.Update)
				r.Post("/{id}/cancel/", h.Order.Cancel)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(required)

			// Владелец или администратор, проверяется в сервисе
			r.Get("/{id}/", h.User.Get)
			r.Put("/{id}/", h.User.Update)
			r.Post("/change-password/", h.User.ChangePassword)
			r.Get("/profile/{user_id}/", h.User.GetProfile)
			r.Put("/profile/{user_id}/", h.User.UpdateProfile)
			r.Get("/membership/", h.Membership.My)

			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Get("/", h.User.List)
				r.Post("/", h.User.Create)
				r.Delete("/{id}/", h.User.Delete)
				r.Get("/instructors/", h.User.ListInstructors)
				r.Post("/instructors/", h.User.CreateInstructor)
				r.Get("/membership/{user_id}/", h.Membership.ForUser)
				r.Post("/membership/create/", h.Membership.Activate)
			})
		})

		r.Route("/admin/outbox", func(r chi.Router) {
			r.Use(required, admin)
			r.Get("/", h.Outbox.List)
			r.Post("/{id}/retry/", h.Outbox.Retry)
		})
	})

	r.Method(http.MethodGet, "/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
