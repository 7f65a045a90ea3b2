package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/matintgp/ecommerce-proj/internal/notify"
	"github.com/matintgp/ecommerce-proj/internal/storage"
)

const otpLength = 6

type VerificationService struct {
	log      *slog.Logger
	otpRepo  storage.OTPStorage
	notifier notify.VerificationNotifier
	codeTTL  time.Duration
	now      func() time.Time
}

func NewVerificationService(log *slog.Logger, otpRepo storage.OTPStorage, notifier notify.VerificationNotifier, codeTTL time.Duration) *VerificationService {
	return &VerificationService{
		log:      log,
		otpRepo:  otpRepo,
		notifier: notifier,
		codeTTL:  codeTTL,
		now:      time.Now,
	}
}

// randomDigits возвращает строку из n случайных цифр
func randomDigits(n int) (string, error) {
	var sb strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}

// SendCode генерирует новый код, сохраняет его с TTL и отправляет запрос на доставку.
// Повторный вызов заменяет предыдущий код.
func (s *VerificationService) SendCode(ctx context.Context, email string) error {
	const op = "service.VerificationService.SendCode"
	logger := s.log.With(slog.String("op", op), slog.String("email", email))

	code, err := randomDigits(otpLength)
	if err != nil {
		logger.Error("failed to generate code", slog.Any("error", err))
		return fmt.Errorf("%s: failed to generate code: %w", op, err)
	}

	if err := s.otpRepo.SaveOTP(ctx, email, code, s.codeTTL); err != nil {
		logger.Error("failed to save code", slog.Any("error", err))
		return fmt.Errorf("%s: failed to save code: %w", op, err)
	}

	expiresAt := s.now().Add(s.codeTTL)
	if err := s.notifier.SendVerificationCode(ctx, email, code, expiresAt); err != nil {
		logger.Error("failed to send code", slog.Any("error", err))
		return fmt.Errorf("%s: failed to send code: %w", op, err)
	}

	logger.Info("verification code sent")
	return nil
}

// Check сверяет код; отсутствующий или просроченный код - ErrInvalidOTP
func (s *VerificationService) Check(ctx context.Context, email, code string) error {
	const op = "service.VerificationService.Check"

	stored, err := s.otpRepo.GetOTP(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrOTPNotFound) {
			return ErrInvalidOTP
		}
		return fmt.Errorf("%s: failed to get code: %w", op, err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return ErrInvalidOTP
	}
	return nil
}

// Consume удаляет использованный код
func (s *VerificationService) Consume(ctx context.Context, email string) {
	if err := s.otpRepo.DeleteOTP(ctx, email); err != nil {
		s.log.Warn("failed to delete used verification code",
			slog.String("email", email), slog.Any("error", err))
	}
}
