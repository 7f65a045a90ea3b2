package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matintgp/ecommerce-proj/internal/domain/models"
	"github.com/matintgp/ecommerce-proj/internal/service"
)

type ticketFixture struct {
	tickets *fakeTicketRepo
	users   *fakeUserRepo
	svc     *service.TicketService
	owner   service.Actor
	staff   service.Actor
}

func newTicketFixture() *ticketFixture {
	f := &ticketFixture{tickets: newFakeTicketRepo(), users: newFakeUserRepo()}
	f.tickets.categories[1] = &models.TicketCategory{ID: 1, Name: "Shipping", IsActive: true}
	f.tickets.categories[2] = &models.TicketCategory{ID: 2, Name: "Legacy", IsActive: false}

	customer := f.users.add(&models.User{Username: "bob"})
	agent := f.users.add(&models.User{Username: "alice", IsStaff: true})
	f.owner = service.Actor{UserID: customer.ID}
	f.staff = service.Actor{UserID: agent.ID, IsStaff: true}

	f.svc = service.NewTicketService(newLogger(), f.tickets, f.users)
	return f
}

func (f *ticketFixture) open(t *testing.T) *models.Ticket {
	t.Helper()
	ticket, err := f.svc.Create(context.Background(), f.owner.UserID, service.CreateTicketInput{
		CategoryID: ptr(int64(1)),
		Subject:    "Where is my parcel?",
	})
	require.NoError(t, err)
	return ticket
}

func TestTicketService_Create(t *testing.T) {
	f := newTicketFixture()
	ctx := context.Background()

	ticket := f.open(t)
	assert.Equal(t, models.TicketPriorityMedium, ticket.Priority)
	assert.Equal(t, models.TicketStatusOpen, ticket.Status)
	assert.Equal(t, f.owner.UserID, ticket.UserID)

	var vErr *service.ValidationError
	_, err := f.svc.Create(ctx, f.owner.UserID, service.CreateTicketInput{Subject: " "})
	assert.ErrorAs(t, err, &vErr)

	_, err = f.svc.Create(ctx, f.owner.UserID, service.CreateTicketInput{Subject: "x", Priority: "asap"})
	assert.ErrorAs(t, err, &vErr)

	_, err = f.svc.Create(ctx, f.owner.UserID, service.CreateTicketInput{Subject: "x", CategoryID: ptr(int64(2))})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "category_id", vErr.Field)

	_, err = f.svc.Create(ctx, f.owner.UserID, service.CreateTicketInput{Subject: "x", CategoryID: ptr(int64(404))})
	assert.ErrorAs(t, err, &vErr)

	categories, err := f.svc.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestTicketService_Visibility(t *testing.T) {
	f := newTicketFixture()
	ctx := context.Background()
	ticket := f.open(t)
	_, err := f.svc.Create(ctx, f.staff.UserID, service.CreateTicketInput{Subject: "internal", Priority: "high"})
	require.NoError(t, err)

	mine, err := f.svc.List(ctx, f.owner, "", "")
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := f.svc.List(ctx, f.staff, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	high, err := f.svc.List(ctx, f.staff, "", "high")
	require.NoError(t, err)
	assert.Len(t, high, 1)

	_, err = f.svc.Get(ctx, service.Actor{UserID: 777}, ticket.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.svc.Get(ctx, f.staff, ticket.ID)
	assert.NoError(t, err)
}

func TestTicketService_Manage_Owner(t *testing.T) {
	f := newTicketFixture()
	ctx := context.Background()
	ticket := f.open(t)

	updated, err := f.svc.Manage(ctx, f.owner, ticket.ID, service.TicketUpdate{
		Subject:  ptr("Parcel lost"),
		Priority: ptr(models.TicketPriorityHigh),
	})
	require.NoError(t, err)
	assert.Equal(t, "Parcel lost", updated.Subject)
	assert.Equal(t, models.TicketPriorityHigh, updated.Priority)

	_, err = f.svc.Manage(ctx, f.owner, ticket.ID, service.TicketUpdate{Status: ptr(models.TicketStatusClosed)})
	assert.ErrorIs(t, err, service.ErrForbidden)

	_, err = f.svc.Manage(ctx, f.owner, ticket.ID, service.TicketUpdate{AssignedTo: ptr(f.staff.UserID)})
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestTicketService_Manage_Staff(t *testing.T) {
	f := newTicketFixture()
	ctx := context.Background()
	ticket := f.open(t)
	resolvedAt := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	service.SetTicketClock(f.svc, func() time.Time { return resolvedAt })

	var vErr *service.ValidationError
	_, err := f.svc.Manage(ctx, f.staff, ticket.ID, service.TicketUpdate{AssignedTo: ptr(f.owner.UserID)})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "assigned_to", vErr.Field)

	_, err = f.svc.Manage(ctx, f.staff, ticket.ID, service.TicketUpdate{AssignedTo: ptr(int64(404))})
	assert.ErrorAs(t, err, &vErr)

	updated, err := f.svc.Manage(ctx, f.staff, ticket.ID, service.TicketUpdate{
		AssignedTo: ptr(f.staff.UserID),
		Status:     ptr(models.TicketStatusResolved),
	})
	require.NoError(t, err)
	assert.Equal(t, f.staff.UserID, *updated.AssignedTo)
	assert.Equal(t, resolvedAt, *updated.ResolvedAt)

	// решённый тикет владелец уже не меняет
	_, err = f.svc.Manage(ctx, f.owner, ticket.ID, service.TicketUpdate{Description: ptr("any news?")})
	assert.ErrorIs(t, err, service.ErrForbidden)

	// переоткрытие сбрасывает resolved_at
	reopened, err := f.svc.Manage(ctx, f.staff, ticket.ID, service.TicketUpdate{Status: ptr(models.TicketStatusInProgress)})
	require.NoError(t, err)
	assert.Nil(t, reopened.ResolvedAt)

	_, err = f.svc.Manage(ctx, f.staff, ticket.ID, service.TicketUpdate{Status: ptr("archived")})
	assert.ErrorAs(t, err, &vErr)
}
