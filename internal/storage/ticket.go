package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
)

// TicketFilter - фильтры списка тикетов, пустые поля не применяются
type TicketFilter struct {
	UserID   *int64
	Status   string
	Priority string
}

type TicketStorage interface {
	ListCategories(ctx context.Context) ([]*models.TicketCategory, error)
	GetCategory(ctx context.Context, id int64) (*models.TicketCategory, error)
	CreateTicket(ctx context.Context, t *models.Ticket) error
	ListTickets(ctx context.Context, filter TicketFilter) ([]*models.Ticket, error)
	GetTicket(ctx context.Context, id int64) (*models.Ticket, error)
	UpdateTicket(ctx context.Context, t *models.Ticket) error
}

type ticketRepository struct {
	db *sql.DB
}

func NewTicketRepository(db *sql.DB) TicketStorage {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) ListCategories(ctx context.Context) ([]*models.TicketCategory, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, description, is_active, created_at FROM ticket_categories WHERE is_active ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query ticket categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.TicketCategory
	for rows.Next() {
		c := &models.TicketCategory{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *ticketRepository) GetCategory(ctx context.Context, id int64) (*models.TicketCategory, error) {
	c := &models.TicketCategory{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, is_active, created_at FROM ticket_categories WHERE id = $1", id).
		Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return c, nil
}

const ticketColumns = `id, user_id, category_id, subject, description, priority, status, assigned_to,
	created_at, updated_at, resolved_at`

func scanTicket(row scanner) (*models.Ticket, error) {
	t := &models.Ticket{}
	err := row.Scan(&t.ID, &t.UserID, &t.CategoryID, &t.Subject, &t.Description, &t.Priority, &t.Status,
		&t.AssignedTo, &t.CreatedAt, &t.UpdatedAt, &t.ResolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *ticketRepository) CreateTicket(ctx context.Context, t *models.Ticket) error {
	query := `
		INSERT INTO tickets (user_id, category_id, subject, description, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, t.UserID, t.CategoryID, t.Subject, t.Description, t.Priority, t.Status).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}
	return nil
}

// ListTickets собирает WHERE из непустых полей фильтра
func (r *ticketRepository) ListTickets(ctx context.Context, filter TicketFilter) ([]*models.Ticket, error) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Priority != "" {
		args = append(args, filter.Priority)
		conds = append(conds, fmt.Sprintf("priority = $%d", len(args)))
	}

	query := "SELECT " + ticketColumns + " FROM tickets"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) GetTicket(ctx context.Context, id int64) (*models.Ticket, error) {
	return scanTicket(r.db.QueryRowContext(ctx, "SELECT "+ticketColumns+" FROM tickets WHERE id = $1", id))
}

func (r *ticketRepository) UpdateTicket(ctx context.Context, t *models.Ticket) error {
	query := `
		UPDATE tickets SET category_id = $1, subject = $2, description = $3, priority = $4, status = $5,
		       assigned_to = $6, resolved_at = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, t.CategoryID, t.Subject, t.Description, t.Priority, t.Status,
		t.AssignedTo, t.ResolvedAt, t.ID).Scan(&t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTicketNotFound
		}
		return fmt.Errorf("failed to update ticket: %w", err)
	}
	return nil
}
