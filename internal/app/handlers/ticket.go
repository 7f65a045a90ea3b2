package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/service"
)

type TicketService interface {
	Categories(ctx context.Context) ([]*models.TicketCategory, error)
	Create(ctx context.Context, userID int64, in service.CreateTicketInput) (*models.Ticket, error)
	List(ctx context.Context, actor service.Actor, status, priority string) ([]*models.Ticket, error)
	Get(ctx context.Context, actor service.Actor, id int64) (*models.Ticket, error)
	Manage(ctx context.Context, actor service.Actor, id int64, upd service.TicketUpdate) (*models.Ticket, error)
}

type CreateTicketRequest struct {
	CategoryID  *int64 `json:"category_id" validate:"omitempty,gt=0"`
	Subject     string `json:"subject" validate:"required,max=255"`
	Description string `json:"description" validate:"required"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

type ManageTicketRequest struct {
	CategoryID  *int64  `json:"category_id" validate:"omitempty,gt=0"`
	Subject     *string `json:"subject" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Status      *string `json:"status" validate:"omitempty,oneof=open in_progress waiting_for_user resolved closed"`
	AssignedTo  *int64  `json:"assigned_to" validate:"omitempty,gt=0"`
}

func TicketCategoriesHandler(log *slog.Logger, tickets TicketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.TicketCategoriesHandler"))

		categories, err := tickets.Categories(r.Context())
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, categories)
	}
}

func CreateTicketHandler(log *slog.Logger, tickets TicketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.CreateTicketHandler"))

		actor, ok := actorFrom(r)
		if !ok {
			writeError(w, logger, service.ErrUnauthorized)
			return
		}
		var req CreateTicketRequest
		if err := decodeRequest(r, &req); err != nil {
			writeError(w, logger, err)
			return
		}

		ticket, err := tickets.Create(r.Context(), actor.UserID, service.CreateTicketInput{
			CategoryID:  req.CategoryID,
			Subject:     req.Subject,
			Description: req.Description,
			Priority:    req.Priority,
		})
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusCreated, ticket)
	}
}

// ListTicketsHandler обрабатывает GET /api/support/tickets?status=&priority=
func ListTicketsHandler(log *slog.Logger, tickets TicketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(slog.String("op", "handlers.ListTicketsHandler"))

		actor, ok := actorFrom(r)
		if !ok {
			writeError(w, logger, service.ErrUnauthorized)
			return
		}
		q := r.URL.Query()
		list, err := tickets.List(r.Context(), actor, q.Get("status"), q.Get("priority"))
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, logger, http.StatusOK, list)
	}
}

func GetTicketHandler(log *slog.Logger, tickets TicketService) http.HandlerFunc {
	return orderAction(log, "handlers.GetTicketHandler", func(r *http.Request, actor service.Actor, id int64) (any, error) {
		return tickets.Get(r.Context(), actor, id)
	})
}

// ManageTicketHandler обрабатывает POST /api/support/tickets/{id}/manage
func ManageTicketHandler(log *slog.Logger, tickets TicketService) http.HandlerFunc {
	return orderAction(log, "handlers.ManageTicketHandler", func(r *http.Request, actor service.Actor, id int64) (any, error) {
		var req ManageTicketRequest
		if err := decodeRequest(r, &req); err != nil {
			return nil, err
		}
		return tickets.Manage(r.Context(), actor, id, service.TicketUpdate{
			CategoryID:  req.CategoryID,
			Subject:     req.Subject,
			Description: req.Description,
			Priority:    req.Priority,
			Status:      req.Status,
			AssignedTo:  req.AssignedTo,
		})
	})
}
