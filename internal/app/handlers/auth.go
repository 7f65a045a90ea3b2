package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	security "github.com/matintgp/ecommerce-proj/internal/jwt-new"
	"github.com/matintgp/ecommerce-proj/internal/service"
)

type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*models.User, security.TokenPair, error)
	Login(ctx context.Context, username, password string) (*models.User, security.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	GetProfile(ctx context.Context, userID int64) (*models.User, error)
	UpdateProfile(ctx context.Context, userID int64, upd service.ProfileUpdate) (*models.User, error)
}

type CodeSender interface {
	SendCode(ctx context.Context, email string) error
}

type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=150"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
	OTPCode   string `json:"otp_code" validate:"required,len=6,numeric"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse - пользователь и пара токенов
type AuthResponse struct {
	User    *models.User `json:"user"`
	Access  string       `json:"access"`
	Refresh string       `json:"refresh"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type UpdateProfileRequest struct {
	Username  *string `json:"username" validate:"omitempty,min=3,max=150"`
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
}

// VerifyEmailHandler обрабатывает POST /api/accounts/verify-email
func VerifyEmailHandler(log *slog.Logger, sender CodeSender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.VerifyEmailHandler"))

		var req VerifyEmailRequest
		if err := decodeRequest(r, &req); err != nil {
			writeError(w, logger, err)
			return
		}
		if err := sender.SendCode(r.Context(), req.Email); err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"message": "verification code sent"})
	}
}

// RegisterHandler обрабатывает POST /api/accounts/register
func RegisterHandler(log *slog.Logger, authService AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.RegisterHandler"))

		var req RegisterRequest
		if err := decodeRequest(r, &req); err != nil {
			logger.Warn("invalid register request", slog.Any("error", err))
			writeError(w, logger, err)
			return
		}

		user, pair, err := authService.Register(r.Context(), service.RegisterInput{
			Username:  req.Username,
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			OTPCode:   req.OTPCode,
		})
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, AuthResponse{User: user, Access: pair.Access, Refresh: pair.Refresh})
	}
}

// LoginHandler обрабатывает POST /api/accounts/login
func LoginHandler(log *slog.Logger, authService AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.LoginHandler"))

		var req LoginRequest
		if err := decodeRequest(r, &req); err != nil {
			writeError(w, logger, err)
			return
		}

		user, pair, err := authService.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, AuthResponse{User: user, Access: pair.Access, Refresh: pair.Refresh})
	}
}

// RefreshHandler обрабатывает POST /api/accounts/token/refresh
func RefreshHandler(log *slog.Logger, authService AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.RefreshHandler"))

		var req RefreshRequest
		if err := decodeRequest(r, &req); err != nil {
			writeError(w, logger, err)
			return
		}
		access, err := authService.Refresh(r.Context(), req.Refresh)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"access": access})
	}
}

func ProfileHandler(log *slog.Logger, authService AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.ProfileHandler"))

		actor, ok := actorFrom(r)
		if !ok {
			writeError(w, logger, service.ErrUnauthorized)
			return
		}
		user, err := authService.GetProfile(r.Context(), actor.UserID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, user)
	}
}

func UpdateProfileHandler(log *slog.Logger, authService AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.UpdateProfileHandler"))

		actor, ok := actorFrom(r)
		if !ok {
			writeError(w, logger, service.ErrUnauthorized)
			return
		}
		var req UpdateProfileRequest
		if err := decodeRequest(r, &req); err != nil {
			writeError(w, logger, err)
			return
		}

		user, err := authService.UpdateProfile(r.Context(), actor.UserID, service.ProfileUpdate{
			Username:  req.Username,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, user)
	}
}
