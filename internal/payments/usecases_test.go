package payments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobazar/bazar-backend/internal/inventory"
	"github.com/gobazar/bazar-backend/internal/orders"
	"github.com/gobazar/bazar-backend/internal/storage"
)

type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }

type fakeDB struct{}

func (fakeDB) Begin(ctx context.Context) (storage.Tx, error) { return fakeTx{}, nil }

// memStore keeps orders in memory with the same CAS semantics as the
// Postgres repository.
type memStore struct {
	mu     sync.Mutex
	orders map[string]*orders.Order
	stale  []string
}

func newMemStore(os ...*orders.Order) *memStore {
	s := &memStore{orders: map[string]*orders.Order{}}
	for _, o := range os {
		s.orders[o.ID] = o
	}
	return s
}

func (s *memStore) byTranID(tranID string) (*orders.Order, bool) {
	for _, o := range s.orders {
		if o.TransactionID == tranID {
			return o, true
		}
	}
	return nil, false
}

func (s *memStore) GetOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) GetByTransactionID(ctx context.Context, tranID string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byTranID(tranID)
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) GetByTransactionIDForUpdate(ctx context.Context, tx storage.Tx, tranID string) (*orders.Order, error) {
	return s.GetByTransactionID(ctx, tranID)
}

func (s *memStore) MarkPaid(ctx context.Context, tranID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byTranID(tranID)
	if !ok || o.PaymentStatus != orders.PaymentPending {
		return false, nil
	}
	o.PaymentStatus = orders.PaymentSuccess
	o.OrderStatus = orders.StatusProcessing
	return true, nil
}

func (s *memStore) SetPaymentStatusTx(ctx context.Context, tx storage.Tx, orderID, paymentStatus, orderStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return orders.ErrOrderNotFound
	}
	o.PaymentStatus = paymentStatus
	o.OrderStatus = orderStatus
	return nil
}

func (s *memStore) ListStalePending(ctx context.Context, before time.Time, limit int) ([]string, error) {
	return s.stale, nil
}

// memLedger tracks stock and release movements.
type memLedger struct {
	mu        sync.Mutex
	stock     map[string]int
	releases  map[string]int
	movements map[string]map[string]bool
}

func newMemLedger() *memLedger {
	return &memLedger{
		stock:     map[string]int{},
		releases:  map[string]int{},
		movements: map[string]map[string]bool{},
	}
}

func (l *memLedger) Reserve(ctx context.Context, tx storage.Tx, orderID, productID string, quantity int) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stock[productID] < quantity {
		return 0, inventory.ErrOutOfStock
	}
	l.stock[productID] -= quantity
	return 0, nil
}

func (l *memLedger) Release(ctx context.Context, tx storage.Tx, orderID, productID string, quantity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stock[productID] += quantity
	l.releases[orderID]++
	if l.movements[orderID] == nil {
		l.movements[orderID] = map[string]bool{}
	}
	l.movements[orderID][inventory.MovementReleased] = true
	return nil
}

func (l *memLedger) MovementExists(ctx context.Context, tx storage.Tx, orderID, movementType string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.movements[orderID][movementType], nil
}

type fakeGateway struct {
	url  string
	err  error
	last SessionRequest
}

func (g *fakeGateway) CreateSession(ctx context.Context, req SessionRequest) (string, error) {
	g.last = req
	if g.err != nil {
		return "", g.err
	}
	return g.url, nil
}

type fakeContacts struct{}

func (fakeContacts) Contact(ctx context.Context, userID string) (string, string, string, error) {
	return "Test Customer", "test@example.com", "01700000000", nil
}

func pendingOrder() *orders.Order {
	return orders.NewOrder("o1", "TXN-abc", "c1",
		[]orders.Item{{ProductID: "p1", Quantity: 1, PriceAtPurchase: 500}},
		"House 7, Road 3, Dhanmondi, Dhaka", "01800000000")
}

func testURLs() URLs {
	return URLs{PublicBase: "https://api.example.com", FrontendBase: "https://shop.example.com"}
}

func newTestUseCase(store *memStore, ledger *memLedger, gw Gateway) *UseCase {
	return NewUseCase(fakeDB{}, store, ledger, gw, fakeContacts{}, nil, testURLs(), zerolog.Nop())
}

func TestStartCheckoutBuildsSession(t *testing.T) {
	store := newMemStore(pendingOrder())
	gw := &fakeGateway{url: "https://gateway.example.com/pay/abc"}
	uc := newTestUseCase(store, newMemLedger(), gw)

	redirect, err := uc.StartCheckout(context.Background(), "o1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.example.com/pay/abc", redirect)

	assert.Equal(t, "TXN-abc", gw.last.TransactionID)
	assert.Equal(t, 500.0, gw.last.Amount)
	assert.Equal(t, "BDT", gw.last.Currency)
	assert.Equal(t, "https://api.example.com/api/payments/success/TXN-abc", gw.last.SuccessURL)
	assert.Equal(t, "https://api.example.com/api/payments/fail/TXN-abc", gw.last.FailURL)
	assert.Equal(t, "https://api.example.com/api/payments/cancel/TXN-abc", gw.last.CancelURL)
}

func TestStartCheckoutRejectsForeignOrder(t *testing.T) {
	store := newMemStore(pendingOrder())
	uc := newTestUseCase(store, newMemLedger(), &fakeGateway{url: "x"})

	_, err := uc.StartCheckout(context.Background(), "o1", "intruder")
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestStartCheckoutRejectsSettledOrder(t *testing.T) {
	o := pendingOrder()
	require.NoError(t, o.MarkPaid())
	store := newMemStore(o)
	uc := newTestUseCase(store, newMemLedger(), &fakeGateway{url: "x"})

	_, err := uc.StartCheckout(context.Background(), "o1", "c1")
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestStartCheckoutGatewayRejectionReleasesStock(t *testing.T) {
	store := newMemStore(pendingOrder())
	ledger := newMemLedger()
	gw := &fakeGateway{err: ErrGateway}
	uc := newTestUseCase(store, ledger, gw)

	_, err := uc.StartCheckout(context.Background(), "o1", "c1")
	require.ErrorIs(t, err, ErrGateway)

	o, err := store.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentFailed, o.PaymentStatus)
	assert.Equal(t, orders.StatusCancelled, o.OrderStatus)
	assert.Equal(t, 1, ledger.releases["o1"])
}

func TestHandleSuccessIsIdempotent(t *testing.T) {
	store := newMemStore(pendingOrder())
	ledger := newMemLedger()
	uc := newTestUseCase(store, ledger, &fakeGateway{})

	require.NoError(t, uc.HandleSuccess(context.Background(), "TXN-abc"))
	require.NoError(t, uc.HandleSuccess(context.Background(), "TXN-abc"))

	o, err := store.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentSuccess, o.PaymentStatus)
	assert.Equal(t, orders.StatusProcessing, o.OrderStatus)
	assert.Equal(t, 0, ledger.releases["o1"])
}

func TestHandleSuccessUnknownTransaction(t *testing.T) {
	uc := newTestUseCase(newMemStore(), newMemLedger(), &fakeGateway{})

	err := uc.HandleSuccess(context.Background(), "TXN-ghost")
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestHandleFailureReleasesExactlyOnce(t *testing.T) {
	store := newMemStore(pendingOrder())
	ledger := newMemLedger()
	uc := newTestUseCase(store, ledger, &fakeGateway{})

	require.NoError(t, uc.HandleFailure(context.Background(), "TXN-abc"))
	require.NoError(t, uc.HandleFailure(context.Background(), "TXN-abc"))

	o, err := store.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentFailed, o.PaymentStatus)
	assert.Equal(t, orders.StatusCancelled, o.OrderStatus)
	assert.Equal(t, 1, ledger.releases["o1"])
	assert.Equal(t, 1, ledger.stock["p1"])
}

func TestSuccessNeverOverwritesFailed(t *testing.T) {
	store := newMemStore(pendingOrder())
	ledger := newMemLedger()
	uc := newTestUseCase(store, ledger, &fakeGateway{})

	require.NoError(t, uc.HandleFailure(context.Background(), "TXN-abc"))
	require.NoError(t, uc.HandleSuccess(context.Background(), "TXN-abc"))

	o, err := store.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentFailed, o.PaymentStatus)
}

func TestFailureAfterSuccessIsNoOp(t *testing.T) {
	store := newMemStore(pendingOrder())
	ledger := newMemLedger()
	uc := newTestUseCase(store, ledger, &fakeGateway{})

	require.NoError(t, uc.HandleSuccess(context.Background(), "TXN-abc"))
	require.NoError(t, uc.HandleFailure(context.Background(), "TXN-abc"))

	o, err := store.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentSuccess, o.PaymentStatus)
	assert.Equal(t, 0, ledger.releases["o1"])
}

func TestSweepStalePending(t *testing.T) {
	first := pendingOrder()
	second := orders.NewOrder("o2", "TXN-def", "c2",
		[]orders.Item{{ProductID: "p2", Quantity: 2, PriceAtPurchase: 30}},
		"House 9, Road 5, Gulshan, Dhaka", "")
	store := newMemStore(first, second)
	store.stale = []string{"TXN-abc", "TXN-def"}
	ledger := newMemLedger()
	uc := newTestUseCase(store, ledger, &fakeGateway{})

	swept, err := uc.SweepStalePending(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, swept)

	for _, id := range []string{"o1", "o2"} {
		o, err := store.GetOrder(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, orders.PaymentFailed, o.PaymentStatus)
	}
}

func TestSweepSkipsAlreadySettled(t *testing.T) {
	o := pendingOrder()
	require.NoError(t, o.MarkPaid())
	store := newMemStore(o)
	store.stale = []string{"TXN-abc"}
	ledger := newMemLedger()
	uc := newTestUseCase(store, ledger, &fakeGateway{})

	swept, err := uc.SweepStalePending(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	// The failure handler no-ops on a paid order but it still counts as
	// reconciled, and stock stays untouched.
	assert.Equal(t, 1, swept)
	assert.Equal(t, 0, ledger.releases["o1"])

	got, err := store.GetOrder(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentSuccess, got.PaymentStatus)
}
