package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/service"
)

type AddressService interface {
	List(ctx context.Context, userID int64) ([]*models.UserAddress, error)
	Create(ctx context.Context, addr *models.UserAddress) error
	Delete(ctx context.Context, userID, addressID int64) error
}

type AddressRequest struct {
	Address    string `json:"address" validate:"required,max=255"`
	City       string `json:"city" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
	IsDefault  bool   `json:"is_default"`
}

func ListAddressesHandler(log *slog.Logger, addresses AddressService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.ListAddressesHandler"))

		actor, ok := actorFrom(r)
		if !ok {
			writeError(w, logger, service.ErrUnauthorized)
			return
		}
		list, err := addresses.List(r.Context(), actor.UserID)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if list == nil {
			list = []*models.UserAddress{}
		}
		writeJSON(w, logger, http.StatusOK, list)
	}
}

func CreateAddressHandler(log *slog.Logger, addresses AddressService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.CreateAddressHandler"))

		actor, ok := actorFrom(r)
		if !ok {
			writeError(w, logger, service.ErrUnauthorized)
			return
		}
		var req AddressRequest
		if err := decodeRequest(r, &req); err != nil {
			writeError(w, logger, err)
			return
		}

		addr := &models.UserAddress{
			UserID:     actor.UserID,
			Address:    req.Address,
			City:       req.City,
			PostalCode: req.PostalCode,
			Country:    req.Country,
			IsDefault:  req.IsDefault,
		}
		if err := addresses.Create(r.Context(), addr); err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, addr)
	}
}

func DeleteAddressHandler(log *slog.Logger, addresses AddressService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.DeleteAddressHandler"))

		actor, ok := actorFrom(r)
		if !ok {
			writeError(w, logger, service.ErrUnauthorized)
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if err := addresses.Delete(r.Context(), actor.UserID, id); err != nil {
			writeError(w, logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
