package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/storage"
)

type AddressService struct {
	log         *slog.Logger
	db          *sql.DB
	addressRepo storage.AddressStorage
}

func NewAddressService(log *slog.Logger, db *sql.DB, addressRepo storage.AddressStorage) *AddressService {
	return &AddressService{log: log, db: db, addressRepo: addressRepo}
}

func (s *AddressService) List(ctx context.Context, userID int64) ([]*models.UserAddress, error) {
	const op = "service.AddressService.List"

	addresses, err := s.addressRepo.ListAddresses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return addresses, nil
}

// Create добавляет адрес. Новый адрес по умолчанию снимает флаг с остальных
// адресов пользователя в той же транзакции.
func (s *AddressService) Create(ctx context.Context, addr *models.UserAddress) error {
	const op = "service.AddressService.Create"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", addr.UserID))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	if addr.IsDefault {
		if err := s.addressRepo.ClearDefaultTx(ctx, tx, addr.UserID); err != nil {
			rollback(logger, tx)
			logger.Error("failed to clear default address", slog.Any("error", err))
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := s.addressRepo.CreateAddressTx(ctx, tx, addr); err != nil {
		rollback(logger, tx)
		logger.Error("failed to create address", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("address created", slog.Int64("addressID", addr.ID))
	return nil
}

func (s *AddressService) Delete(ctx context.Context, userID, addressID int64) error {
	const op = "service.AddressService.Delete"

	if err := s.addressRepo.DeleteAddress(ctx, userID, addressID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
