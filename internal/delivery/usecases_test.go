package delivery

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobazar/bazar-backend/internal/auth"
	"github.com/gobazar/bazar-backend/internal/orders"
)

type memDeliveryRepo struct {
	assigned map[string]string
	statuses map[string]string
	tracking map[string][]TrackingEntry
}

func newMemDeliveryRepo(orderIDs ...string) *memDeliveryRepo {
	r := &memDeliveryRepo{
		assigned: map[string]string{},
		statuses: map[string]string{},
		tracking: map[string][]TrackingEntry{},
	}
	for _, id := range orderIDs {
		r.statuses[id] = orders.StatusPending
	}
	return r
}

func (r *memDeliveryRepo) Assign(ctx context.Context, orderID, personID string) (bool, error) {
	if _, ok := r.statuses[orderID]; !ok {
		return false, nil
	}
	r.assigned[orderID] = personID
	r.statuses[orderID] = orders.StatusProcessing
	return true, nil
}

func (r *memDeliveryRepo) AssignedPerson(ctx context.Context, orderID string) (string, error) {
	if _, ok := r.statuses[orderID]; !ok {
		return "", orders.ErrOrderNotFound
	}
	return r.assigned[orderID], nil
}

func (r *memDeliveryRepo) SetOrderStatus(ctx context.Context, orderID, status string) (bool, error) {
	if _, ok := r.statuses[orderID]; !ok {
		return false, nil
	}
	r.statuses[orderID] = status
	return true, nil
}

func (r *memDeliveryRepo) AppendTracking(ctx context.Context, orderID, status, note string) error {
	r.tracking[orderID] = append(r.tracking[orderID], TrackingEntry{
		OrderID: orderID, Status: status, Note: note,
	})
	return nil
}

func (r *memDeliveryRepo) ListTracking(ctx context.Context, orderID string) ([]TrackingEntry, error) {
	return r.tracking[orderID], nil
}

func (r *memDeliveryRepo) ListAssignments(ctx context.Context, personID string) ([]Assignment, error) {
	var out []Assignment
	for orderID, assigned := range r.assigned {
		if assigned == personID {
			out = append(out, Assignment{OrderID: orderID, OrderStatus: r.statuses[orderID]})
		}
	}
	return out, nil
}

type fakeUsers map[string]string

func (f fakeUsers) GetUser(ctx context.Context, id string) (*auth.User, error) {
	role, ok := f[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &auth.User{ID: id, Role: role}, nil
}

func TestAssignRequiresDeliveryRole(t *testing.T) {
	repo := newMemDeliveryRepo("o1")
	uc := NewUseCase(repo, fakeUsers{"rider": auth.RoleDelivery, "shopper": auth.RoleCustomer}, zerolog.Nop())

	err := uc.Assign(context.Background(), "o1", "shopper")
	assert.ErrorIs(t, err, ErrNotDeliveryStaff)

	require.NoError(t, uc.Assign(context.Background(), "o1", "rider"))
	assert.Equal(t, "rider", repo.assigned["o1"])
	assert.Equal(t, orders.StatusProcessing, repo.statuses["o1"])
	require.Len(t, repo.tracking["o1"], 1)
	assert.Equal(t, orders.StatusProcessing, repo.tracking["o1"][0].Status)
}

func TestAssignUnknownOrder(t *testing.T) {
	uc := NewUseCase(newMemDeliveryRepo(), fakeUsers{"rider": auth.RoleDelivery}, zerolog.Nop())

	err := uc.Assign(context.Background(), "ghost", "rider")
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestUpdateStatusOnlyAssignedOrAdmin(t *testing.T) {
	repo := newMemDeliveryRepo("o1")
	uc := NewUseCase(repo, fakeUsers{"rider": auth.RoleDelivery}, zerolog.Nop())
	require.NoError(t, uc.Assign(context.Background(), "o1", "rider"))

	err := uc.UpdateStatus(context.Background(), "o1", "other-rider", auth.RoleDelivery, orders.StatusShipped, "")
	assert.ErrorIs(t, err, ErrNotAssigned)

	require.NoError(t, uc.UpdateStatus(context.Background(), "o1", "rider", auth.RoleDelivery, orders.StatusShipped, "picked up"))
	assert.Equal(t, orders.StatusShipped, repo.statuses["o1"])

	// Admin may update regardless of assignment.
	require.NoError(t, uc.UpdateStatus(context.Background(), "o1", "boss", auth.RoleAdmin, orders.StatusDelivered, ""))
	assert.Equal(t, orders.StatusDelivered, repo.statuses["o1"])
}

func TestUpdateStatusRejectsNonDeliveryStates(t *testing.T) {
	repo := newMemDeliveryRepo("o1")
	uc := NewUseCase(repo, fakeUsers{"rider": auth.RoleDelivery}, zerolog.Nop())
	require.NoError(t, uc.Assign(context.Background(), "o1", "rider"))

	for _, s := range []string{orders.StatusPending, orders.StatusCancelled, "Lost", ""} {
		err := uc.UpdateStatus(context.Background(), "o1", "rider", auth.RoleDelivery, s, "")
		assert.ErrorIs(t, err, ErrInvalidStatus, s)
	}
}

func TestTrackingHistoryIsAppendOnly(t *testing.T) {
	repo := newMemDeliveryRepo("o1")
	uc := NewUseCase(repo, fakeUsers{"rider": auth.RoleDelivery}, zerolog.Nop())
	require.NoError(t, uc.Assign(context.Background(), "o1", "rider"))
	require.NoError(t, uc.UpdateStatus(context.Background(), "o1", "rider", auth.RoleDelivery, orders.StatusShipped, ""))
	require.NoError(t, uc.UpdateStatus(context.Background(), "o1", "rider", auth.RoleDelivery, orders.StatusDelivered, ""))

	entries, err := uc.Tracking(context.Background(), "o1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, orders.StatusProcessing, entries[0].Status)
	assert.Equal(t, orders.StatusShipped, entries[1].Status)
	assert.Equal(t, orders.StatusDelivered, entries[2].Status)
}
