package jwtmiddleware

import (
	"context"
	"net/http"
	"strings"

	security "github.com/matintgp/ecommerce-proj/internal/jwt-new"
)

type contextKey string

const (
	UserIDKey  contextKey = "userID"
	IsStaffKey contextKey = "isStaff"
)

func mustSecret() []byte {
	secret, err := security.Secret()
	if err != nil {
		panic("JWT_SECRET is not set")
	}
	return secret
}

// bearer извлекает токен из заголовка Authorization (формат: "Bearer <token>")
func bearer(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", "missing token"
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "invalid token format"
	}
	return parts[1], ""
}

func withClaims(ctx context.Context, claims *security.Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	return context.WithValue(ctx, IsStaffKey, claims.IsStaff)
}

// NewJWTMiddleware создаёт middleware для проверки access-токена, секрет берётся из переменной окружения.
func NewJWTMiddleware() func(http.Handler) http.Handler {
	secret := mustSecret()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, problem := bearer(r)
			if problem != "" {
				http.Error(w, problem, http.StatusUnauthorized)
				return
			}

			claims, err := security.Parse(tokenStr, secret, security.TypeAccess)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// NewOptionalJWTMiddleware пропускает анонимные запросы (гостевая корзина),
// но переданный токен обязан быть валидным.
func NewOptionalJWTMiddleware() func(http.Handler) http.Handler {
	secret := mustSecret()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			tokenStr, problem := bearer(r)
			if problem != "" {
				http.Error(w, problem, http.StatusUnauthorized)
				return
			}
			claims, err := security.Parse(tokenStr, secret, security.TypeAccess)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// FromContext извлекает userID из контекста.
func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok
}

// IsStaff - false для анонимных запросов
func IsStaff(ctx context.Context) bool {
	staff, _ := ctx.Value(IsStaffKey).(bool)
	return staff
}
