package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/storage"
)

type TicketService struct {
	log        *slog.Logger
	ticketRepo storage.TicketStorage
	userRepo   storage.UserStorage
	now        func() time.Time
}

func NewTicketService(log *slog.Logger, ticketRepo storage.TicketStorage, userRepo storage.UserStorage) *TicketService {
	return &TicketService{log: log, ticketRepo: ticketRepo, userRepo: userRepo, now: time.Now}
}

func validPriority(p string) bool {
	switch p {
	case models.TicketPriorityLow, models.TicketPriorityMedium, models.TicketPriorityHigh, models.TicketPriorityUrgent:
		return true
	}
	return false
}

func validTicketStatus(s string) bool {
	switch s {
	case models.TicketStatusOpen, models.TicketStatusInProgress, models.TicketStatusWaitingForUser,
		models.TicketStatusResolved, models.TicketStatusClosed:
		return true
	}
	return false
}

func (s *TicketService) Categories(ctx context.Context) ([]*models.TicketCategory, error) {
	const op = "service.TicketService.Categories"

	categories, err := s.ticketRepo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if categories == nil {
		categories = []*models.TicketCategory{}
	}
	return categories, nil
}

type CreateTicketInput struct {
	CategoryID  *int64
	Subject     string
	Description string
	Priority    string
}

func (s *TicketService) checkCategory(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	category, err := s.ticketRepo.GetCategory(ctx, *id)
	if err != nil {
		if errors.Is(err, storage.ErrCategoryNotFound) {
			return validationErr("category_id", "unknown category")
		}
		return err
	}
	if !category.IsActive {
		return validationErr("category_id", "category is not active")
	}
	return nil
}

// Create открывает тикет от имени пользователя, приоритет по умолчанию medium
func (s *TicketService) Create(ctx context.Context, userID int64, in CreateTicketInput) (*models.Ticket, error) {
	const op = "service.TicketService.Create"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	if strings.TrimSpace(in.Subject) == "" {
		return nil, validationErr("subject", "must not be empty")
	}
	priority := in.Priority
	if priority == "" {
		priority = models.TicketPriorityMedium
	}
	if !validPriority(priority) {
		return nil, validationErr("priority", "must be one of: low, medium, high, urgent")
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ticket := &models.Ticket{
		UserID:      userID,
		CategoryID:  in.CategoryID,
		Subject:     in.Subject,
		Description: in.Description,
		Priority:    priority,
		Status:      models.TicketStatusOpen,
	}
	if err := s.ticketRepo.CreateTicket(ctx, ticket); err != nil {
		logger.Error("failed to create ticket", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("ticket created", slog.Int64("ticketID", ticket.ID))
	return ticket, nil
}

// List - пользователь видит только свои тикеты, персонал видит все
func (s *TicketService) List(ctx context.Context, actor Actor, status, priority string) ([]*models.Ticket, error) {
	const op = "service.TicketService.List"

	filter := storage.TicketFilter{Status: status, Priority: priority}
	if !actor.IsStaff {
		userID := actor.UserID
		filter.UserID = &userID
	}
	tickets, err := s.ticketRepo.ListTickets(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if tickets == nil {
		tickets = []*models.Ticket{}
	}
	return tickets, nil
}

func (s *TicketService) Get(ctx context.Context, actor Actor, id int64) (*models.Ticket, error) {
	const op = "service.TicketService.Get"

	ticket, err := s.ticketRepo.GetTicket(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !actor.IsStaff && ticket.UserID != actor.UserID {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrTicketNotFound)
	}
	return ticket, nil
}

// TicketUpdate - частичное изменение тикета, nil поля не меняются.
// Status и AssignedTo может менять только персонал.
type TicketUpdate struct {
	CategoryID  *int64
	Subject     *string
	Description *string
	Priority    *string
	Status      *string
	AssignedTo  *int64
}

func (s *TicketService) Manage(ctx context.Context, actor Actor, id int64, upd TicketUpdate) (*models.Ticket, error) {
	const op = "service.TicketService.Manage"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", actor.UserID), slog.Int64("ticketID", id))

	ticket, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsStaff {
		if upd.Status != nil || upd.AssignedTo != nil {
			logger.Warn("non-staff tried to change status or assignee")
			return nil, ErrForbidden
		}
		if ticket.IsFinished() {
			logger.Warn("ticket is already finished", slog.String("status", ticket.Status))
			return nil, ErrForbidden
		}
	}

	if upd.Subject != nil {
		if strings.TrimSpace(*upd.Subject) == "" {
			return nil, validationErr("subject", "must not be empty")
		}
		ticket.Subject = *upd.Subject
	}
	if upd.Description != nil {
		ticket.Description = *upd.Description
	}
	if upd.Priority != nil {
		if !validPriority(*upd.Priority) {
			return nil, validationErr("priority", "must be one of: low, medium, high, urgent")
		}
		ticket.Priority = *upd.Priority
	}
	if upd.CategoryID != nil {
		if err := s.checkCategory(ctx, upd.CategoryID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ticket.CategoryID = upd.CategoryID
	}
	if upd.AssignedTo != nil {
		assignee, err := s.userRepo.GetUserByID(ctx, *upd.AssignedTo)
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return nil, validationErr("assigned_to", "unknown user")
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if !assignee.IsStaff {
			return nil, validationErr("assigned_to", "tickets can only be assigned to staff")
		}
		ticket.AssignedTo = upd.AssignedTo
	}
	if upd.Status != nil {
		if !validTicketStatus(*upd.Status) {
			return nil, validationErr("status", fmt.Sprintf("unknown status %q", *upd.Status))
		}
		ticket.SetStatus(*upd.Status, s.now())
	}

	if err := s.ticketRepo.UpdateTicket(ctx, ticket); err != nil {
		logger.Error("failed to update ticket", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("ticket updated", slog.String("status", ticket.Status))
	return ticket, nil
}
