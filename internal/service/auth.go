package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	security "github.com/matintgp/ecommerce-proj/internal/jwt-new"
	"github.com/matintgp/ecommerce-proj/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	log          *slog.Logger
	userRepo     storage.UserStorage
	verification *VerificationService
	accessTTL    time.Duration
	refreshTTL   time.Duration
}

func NewAuthService(log *slog.Logger, userRepo storage.UserStorage, verification *VerificationService, accessTTL, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		log:          log,
		userRepo:     userRepo,
		verification: verification,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
	}
}

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	OTPCode   string
}

// Register создаёт пользователя после проверки кода, отправленного на e-mail, и сразу выпускает токены.
// Код удаляется только после успешного создания.
func (a *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, security.TokenPair, error) {
	const op = "service.AuthService.Register"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("username", in.Username),
		slog.String("email", in.Email),
	)
	logger.Info("registering user")

	if err := a.verification.Check(ctx, in.Email, in.OTPCode); err != nil {
		if errors.Is(err, ErrInvalidOTP) {
			logger.Warn("invalid verification code")
			return nil, security.TokenPair{}, err
		}
		logger.Error("failed to check verification code", slog.Any("error", err))
		return nil, security.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	// bcrypt сам добавляет соль
	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", slog.Any("error", err))
		return nil, security.TokenPair{}, fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	user, err := a.userRepo.CreateUser(ctx, &models.User{
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		PassHash:  passHash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			logger.Warn("user already exists", slog.Any("error", err))
			return nil, security.TokenPair{}, validationErr("username", "user with this username or email already exists")
		}
		logger.Error("failed to create user", slog.Any("error", err))
		return nil, security.TokenPair{}, fmt.Errorf("%s: failed to create user: %w", op, err)
	}

	a.verification.Consume(ctx, in.Email)

	pair, err := security.NewTokenPair(user, a.accessTTL, a.refreshTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return nil, security.TokenPair{}, fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user registered", slog.Int64("userID", user.ID))
	return user, pair, nil
}

// Login проверяет пароль и выпускает пару токенов.
// Несуществующий пользователь и неверный пароль неразличимы для клиента.
func (a *AuthService) Login(ctx context.Context, username, password string) (*models.User, security.TokenPair, error) {
	const op = "service.AuthService.Login"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("username", username),
	)
	logger.Info("checking user")

	user, err := a.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			logger.Warn("user not found")
			return nil, security.TokenPair{}, ErrInvalidCredentials
		}
		logger.Error("failed to get user", slog.Any("error", err))
		return nil, security.TokenPair{}, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		logger.Warn("invalid password")
		return nil, security.TokenPair{}, ErrInvalidCredentials
	}

	// секрет подписи берётся из переменной окружения JWT_SECRET
	pair, err := security.NewTokenPair(user, a.accessTTL, a.refreshTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return nil, security.TokenPair{}, fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("user logged in successfully", slog.Int64("userID", user.ID))
	return user, pair, nil
}

// Refresh обменивает refresh-токен на новый access-токен.
// Флаг staff перечитывается из БД.
func (a *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	const op = "service.AuthService.Refresh"
	logger := a.log.With(slog.String("op", op))

	secret, err := security.Secret()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	claims, err := security.Parse(refreshToken, secret, security.TypeRefresh)
	if err != nil {
		logger.Warn("invalid refresh token", slog.Any("error", err))
		return "", ErrUnauthorized
	}

	user, err := a.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return "", ErrUnauthorized
		}
		return "", fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	access, err := security.NewToken(user, security.TypeAccess, a.accessTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}
	return access, nil
}

func (a *AuthService) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	const op = "service.AuthService.GetProfile"

	user, err := a.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// ProfileUpdate - частичное обновление, nil поля не меняются
type ProfileUpdate struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
}

func (a *AuthService) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) (*models.User, error) {
	const op = "service.AuthService.UpdateProfile"
	logger := a.log.With(slog.String("op", op), slog.Int64("userID", userID))

	user, err := a.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if upd.Username != nil {
		if strings.TrimSpace(*upd.Username) == "" {
			return nil, validationErr("username", "must not be empty")
		}
		user.Username = *upd.Username
	}
	if upd.Email != nil {
		if strings.TrimSpace(*upd.Email) == "" {
			return nil, validationErr("email", "must not be empty")
		}
		user.Email = *upd.Email
	}
	if upd.FirstName != nil {
		user.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		user.LastName = *upd.LastName
	}

	if err := a.userRepo.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, validationErr("username", "user with this username or email already exists")
		}
		logger.Error("failed to update user", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to update user: %w", op, err)
	}

	logger.Info("profile updated")
	return user, nil
}
