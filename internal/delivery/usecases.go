package delivery

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gobazar/bazar-backend/internal/auth"
	"github.com/gobazar/bazar-backend/internal/orders"
)

// UserDirectory looks up a user for role checks at assignment time.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*auth.User, error)
}

type UseCase struct {
	repo  Repository
	users UserDirectory
	log   zerolog.Logger
}

func NewUseCase(repo Repository, users UserDirectory, log zerolog.Logger) *UseCase {
	return &UseCase{repo: repo, users: users, log: log}
}

// deliveryStatuses are the fulfillment states delivery staff may set.
var deliveryStatuses = map[string]bool{
	orders.StatusShipped:        true,
	orders.StatusOutForDelivery: true,
	orders.StatusDelivered:      true,
}

// Assign puts an order in a delivery person's queue, moves it to
// Processing and opens its tracking history.
func (u *UseCase) Assign(ctx context.Context, orderID, personID string) error {
	person, err := u.users.GetUser(ctx, personID)
	if err != nil {
		return err
	}
	if person.Role != auth.RoleDelivery {
		return ErrNotDeliveryStaff
	}

	ok, err := u.repo.Assign(ctx, orderID, personID)
	if err != nil {
		return err
	}
	if !ok {
		return orders.ErrOrderNotFound
	}
	if err := u.repo.AppendTracking(ctx, orderID, orders.StatusProcessing, "assigned to delivery"); err != nil {
		return err
	}
	u.log.Info().Str("order_id", orderID).Str("delivery_person_id", personID).Msg("order assigned")
	return nil
}

// UpdateStatus advances an assigned order's fulfillment state and appends
// a tracking entry. Only the assigned person or an admin may call it.
func (u *UseCase) UpdateStatus(ctx context.Context, orderID, callerID, callerRole, status, note string) error {
	if !deliveryStatuses[status] {
		return ErrInvalidStatus
	}

	assigned, err := u.repo.AssignedPerson(ctx, orderID)
	if err != nil {
		return err
	}
	if callerRole != auth.RoleAdmin && assigned != callerID {
		return ErrNotAssigned
	}

	ok, err := u.repo.SetOrderStatus(ctx, orderID, status)
	if err != nil {
		return err
	}
	if !ok {
		return orders.ErrOrderNotFound
	}
	if err := u.repo.AppendTracking(ctx, orderID, status, note); err != nil {
		return err
	}
	u.log.Info().Str("order_id", orderID).Str("status", status).Msg("delivery status updated")
	return nil
}

func (u *UseCase) MyDeliveries(ctx context.Context, personID string) ([]Assignment, error) {
	return u.repo.ListAssignments(ctx, personID)
}

// Tracking returns the order's status history, oldest first.
func (u *UseCase) Tracking(ctx context.Context, orderID string) ([]TrackingEntry, error) {
	return u.repo.ListTracking(ctx, orderID)
}
