package models

import "time"

const (
	TicketPriorityLow    = "low"
	TicketPriorityMedium = "medium"
	TicketPriorityHigh   = "high"
	TicketPriorityUrgent = "urgent"
)

const (
	TicketStatusOpen           = "open"
	TicketStatusInProgress     = "in_progress"
	TicketStatusWaitingForUser = "waiting_for_user"
	TicketStatusResolved       = "resolved"
	TicketStatusClosed         = "closed"
)

type TicketCategory struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ticket - обращение в поддержку
type Ticket struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	Subject     string     `json:"subject"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	AssignedTo  *int64     `json:"assigned_to,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// SetStatus меняет статус и поддерживает resolved_at в согласованном состоянии
func (t *Ticket) SetStatus(status string, now time.Time) {
	if status == TicketStatusResolved {
		if t.ResolvedAt == nil {
			t.ResolvedAt = &now
		}
	} else {
		t.ResolvedAt = nil
	}
	t.Status = status
}

// IsFinished - закрытые и решённые тикеты пользователь менять не может
func (t *Ticket) IsFinished() bool {
	return t.Status == TicketStatusResolved || t.Status == TicketStatusClosed
}
