// Package middlewarectx содержит HTTP middleware для обработки и проверки JWT токенов,
// проверки ролей, ограничения частоты запросов, метрик и трейсинга.
//
// JWTMiddleware проверяет наличие и валидность access-токена в заголовке Authorization
// и в случае успеха добавляет в контекст идентификатор, имя пользователя и роль.
// В случае ошибки проверки возвращает HTTP 401 Unauthorized с сообщением об ошибке.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/gym-management/internal/http/response"
	"github.com/magabrotheeeer/gym-management/internal/lib/jwt"
	"github.com/magabrotheeeer/gym-management/internal/lib/sl"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// User — ключ для имени пользователя в контексте
	User Key = "username"
	// Role — ключ для роли пользователя в контексте
	Role Key = "role"
	// UserID — ключ для идентификатора пользователя в контексте
	UserID Key = "user_id"
)

// TokenParser разбирает и проверяет JWT.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// JWTMiddleware возвращает HTTP middleware, который требует валидный access-токен
// в заголовке Authorization.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return authenticate(parser, log, true)
}

// OptionalJWT пропускает анонимные запросы, но если заголовок Authorization
// передан, токен в нём должен быть валиден.
func OptionalJWT(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return authenticate(parser, log, false)
}

func authenticate(parser TokenParser, log *slog.Logger, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" && !required {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Info("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := parser.ParseToken(tokenStr)
			if err != nil || claims.TokenType != jwt.Access {
				log.Info("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			id, _ := claims.UserID()

			ctx := context.WithValue(r.Context(), User, claims.Username)
			ctx = context.WithValue(ctx, Role, models.Role(claims.Role))
			ctx = context.WithValue(ctx, UserID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFrom возвращает пользователя запроса. ok false для анонимного запроса.
func ActorFrom(ctx context.Context) (models.Actor, bool) {
	id, ok := ctx.Value(UserID).(int64)
	if !ok {
		return models.Actor{}, false
	}
	username, _ := ctx.Value(User).(string)
	role, _ := ctx.Value(Role).(models.Role)
	return models.Actor{ID: id, Username: username, Role: role}, true
}

// WithActor кладёт пользователя в контекст. Используется в тестах обработчиков.
func WithActor(ctx context.Context, actor models.Actor) context.Context {
	ctx = context.WithValue(ctx, User, actor.Username)
	ctx = context.WithValue(ctx, Role, actor.Role)
	return context.WithValue(ctx, UserID, actor.ID)
}

// RequireRole пропускает только пользователей с одной из ролей.
func RequireRole(log *slog.Logger, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("authentication required"))
				return
			}
			for _, role := range roles {
				if actor.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			log.Info("access denied",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.Int64("user_id", actor.ID),
				slog.String("role", string(actor.Role)),
			)
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error(models.ErrForbidden.Error()))
		})
	}
}
