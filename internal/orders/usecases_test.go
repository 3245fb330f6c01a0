package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobazar/bazar-backend/internal/inventory"
	"github.com/gobazar/bazar-backend/internal/storage"
)

// fakeTx collects undo closures so the in-memory fakes honor rollback the
// way a database transaction would.
type fakeTx struct {
	mu        sync.Mutex
	committed bool
	rolled    bool
	undo      []func()
}

func (t *fakeTx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed = true
	t.undo = nil
	return nil
}

func (t *fakeTx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed || t.rolled {
		return nil
	}
	t.rolled = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	return nil
}

func (t *fakeTx) onRollback(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.undo = append(t.undo, fn)
}

type fakeDB struct{}

func (fakeDB) Begin(ctx context.Context) (storage.Tx, error) {
	return &fakeTx{}, nil
}

// memLedger mimics the conditional-decrement semantics of the real ledger.
type memLedger struct {
	mu        sync.Mutex
	stock     map[string]int
	prices    map[string]float64
	movements map[string]map[string]bool
}

func newMemLedger() *memLedger {
	return &memLedger{
		stock:     map[string]int{},
		prices:    map[string]float64{},
		movements: map[string]map[string]bool{},
	}
}

func (l *memLedger) addProduct(id string, price float64, stock int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prices[id] = price
	l.stock[id] = stock
}

func (l *memLedger) stockOf(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stock[id]
}

func (l *memLedger) setPrice(id string, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prices[id] = price
}

func (l *memLedger) Reserve(ctx context.Context, tx storage.Tx, orderID, productID string, quantity int) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	price, ok := l.prices[productID]
	if !ok {
		return 0, inventory.ErrProductNotFound
	}
	if l.stock[productID] < quantity {
		return 0, inventory.ErrOutOfStock
	}
	l.stock[productID] -= quantity
	l.record(orderID, inventory.MovementReserved)
	if ft, ok := tx.(*fakeTx); ok {
		ft.onRollback(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.stock[productID] += quantity
		})
	}
	return price, nil
}

func (l *memLedger) Release(ctx context.Context, tx storage.Tx, orderID, productID string, quantity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.prices[productID]; ok {
		l.stock[productID] += quantity
	}
	l.record(orderID, inventory.MovementReleased)
	return nil
}

func (l *memLedger) MovementExists(ctx context.Context, tx storage.Tx, orderID, movementType string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.movements[orderID][movementType], nil
}

func (l *memLedger) record(orderID, movementType string) {
	if l.movements[orderID] == nil {
		l.movements[orderID] = map[string]bool{}
	}
	l.movements[orderID][movementType] = true
}

// memRepo stores orders in memory, honoring rollback on insert.
type memRepo struct {
	mu     sync.Mutex
	orders map[string]*Order
}

func newMemRepo() *memRepo {
	return &memRepo{orders: map[string]*Order{}}
}

func (r *memRepo) CreateOrder(ctx context.Context, tx storage.Tx, order *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	r.orders[order.ID] = &cp
	if ft, ok := tx.(*fakeTx); ok {
		ft.onRollback(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			delete(r.orders, order.ID)
		})
	}
	return nil
}

func (r *memRepo) get(id string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memRepo) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return r.get(orderID)
}

func (r *memRepo) GetByTransactionID(ctx context.Context, transactionID string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.TransactionID == transactionID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrOrderNotFound
}

func (r *memRepo) GetByTransactionIDForUpdate(ctx context.Context, tx storage.Tx, transactionID string) (*Order, error) {
	return r.GetByTransactionID(ctx, transactionID)
}

func (r *memRepo) GetOrderForUpdate(ctx context.Context, tx storage.Tx, orderID string) (*Order, error) {
	return r.get(orderID)
}

func (r *memRepo) MarkPaid(ctx context.Context, transactionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.TransactionID == transactionID && o.PaymentStatus == PaymentPending {
			o.PaymentStatus = PaymentSuccess
			o.OrderStatus = StatusProcessing
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) SetPaymentStatusTx(ctx context.Context, tx storage.Tx, orderID, paymentStatus, orderStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	o.PaymentStatus = paymentStatus
	o.OrderStatus = orderStatus
	return nil
}

func (r *memRepo) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	o.OrderStatus = status
	return nil
}

func (r *memRepo) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *memRepo) ListAll(ctx context.Context, page, limit int) ([]Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.orders {
		out = append(out, *o)
	}
	return out, len(out), nil
}

func (r *memRepo) ListByVendorUser(ctx context.Context, userID string) ([]Order, error) {
	return nil, nil
}

func (r *memRepo) ListStalePending(ctx context.Context, before time.Time, limit int) ([]string, error) {
	return nil, nil
}

func (r *memRepo) Delete(ctx context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, orderID)
	return nil
}

type fakeGuard struct {
	fresh bool
}

func (g *fakeGuard) Claim(ctx context.Context, key string) (bool, error) {
	return g.fresh, nil
}

func newTestUseCase(ledger *memLedger, repo *memRepo) *UseCase {
	return NewUseCase(fakeDB{}, repo, ledger, nil, nil, zerolog.Nop())
}

// Product ids in placement input must be uuid-shaped, so the fixtures are.
// Lexically ascending, so reservation order matches declaration order.
const (
	prodA = "2b1d8f4a-6c3e-4a5b-9d7f-1e2a3b4c5d6e"
	prodB = "7e4a2c9b-1f5d-4b8e-a3c6-9d0e1f2a3b4c"
	prodC = "c9f1b3d5-7a2e-4c6f-8b0d-3e5a7c9b1d2f"
)

func validInput(items ...ItemInput) PlacementInput {
	return PlacementInput{
		Items:           items,
		ShippingAddress: "House 7, Road 3, Dhanmondi, Dhaka",
		Phone:           "01700000000",
	}
}

func TestPlaceOrderReservesStockAndSnapshotsPrices(t *testing.T) {
	ledger := newMemLedger()
	ledger.addProduct(prodA, 100, 5)
	ledger.addProduct(prodB, 50, 5)
	repo := newMemRepo()
	uc := newTestUseCase(ledger, repo)

	order, err := uc.PlaceOrder(context.Background(), "c1",
		validInput(ItemInput{ProductID: prodA, Quantity: 2}, ItemInput{ProductID: prodB, Quantity: 1}), "")
	require.NoError(t, err)

	assert.Equal(t, 250.0, order.TotalAmount)
	assert.Equal(t, PaymentPending, order.PaymentStatus)
	assert.True(t, len(order.TransactionID) > 4 && order.TransactionID[:4] == "TXN-")
	assert.Equal(t, 3, ledger.stockOf(prodA))
	assert.Equal(t, 4, ledger.stockOf(prodB))

	stored, err := repo.get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.TotalAmount, stored.TotalAmount)
}

func TestPlaceOrderIsAllOrNothing(t *testing.T) {
	ledger := newMemLedger()
	ledger.addProduct(prodA, 10, 5)
	ledger.addProduct(prodB, 10, 5)
	ledger.addProduct(prodC, 10, 1)
	repo := newMemRepo()
	uc := newTestUseCase(ledger, repo)

	_, err := uc.PlaceOrder(context.Background(), "c1", validInput(
		ItemInput{ProductID: prodA, Quantity: 2},
		ItemInput{ProductID: prodB, Quantity: 2},
		ItemInput{ProductID: prodC, Quantity: 2},
	), "")
	require.ErrorIs(t, err, inventory.ErrOutOfStock)

	// The failed third reservation rolled back the first two.
	assert.Equal(t, 5, ledger.stockOf(prodA))
	assert.Equal(t, 5, ledger.stockOf(prodB))
	assert.Equal(t, 1, ledger.stockOf(prodC))
	assert.Empty(t, repo.orders)
}

func TestPlaceOrderUnknownProduct(t *testing.T) {
	ledger := newMemLedger()
	repo := newMemRepo()
	uc := newTestUseCase(ledger, repo)

	_, err := uc.PlaceOrder(context.Background(), "c1",
		validInput(ItemInput{ProductID: prodA, Quantity: 1}), "")
	assert.ErrorIs(t, err, inventory.ErrProductNotFound)
	assert.Empty(t, repo.orders)
}

func TestPlaceOrderDuplicateIdempotencyKey(t *testing.T) {
	ledger := newMemLedger()
	ledger.addProduct(prodA, 10, 5)
	repo := newMemRepo()
	uc := NewUseCase(fakeDB{}, repo, ledger, &fakeGuard{fresh: false}, nil, zerolog.Nop())

	_, err := uc.PlaceOrder(context.Background(), "c1",
		validInput(ItemInput{ProductID: prodA, Quantity: 1}), "req-1")
	assert.ErrorIs(t, err, ErrDuplicateRequest)
	assert.Equal(t, 5, ledger.stockOf(prodA))
}

func TestPlaceOrderSnapshotSurvivesPriceChange(t *testing.T) {
	ledger := newMemLedger()
	ledger.addProduct(prodA, 100, 5)
	repo := newMemRepo()
	uc := newTestUseCase(ledger, repo)

	order, err := uc.PlaceOrder(context.Background(), "c1",
		validInput(ItemInput{ProductID: prodA, Quantity: 1}), "")
	require.NoError(t, err)

	ledger.setPrice(prodA, 175)

	stored, err := repo.get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, stored.Items[0].PriceAtPurchase)
	assert.Equal(t, 100.0, stored.TotalAmount)
}

func TestConcurrentPlacementNeverOversells(t *testing.T) {
	ledger := newMemLedger()
	ledger.addProduct(prodA, 5, 5)
	repo := newMemRepo()
	uc := newTestUseCase(ledger, repo)

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.PlaceOrder(context.Background(), "c1",
				validInput(ItemInput{ProductID: prodA, Quantity: 1}), "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	placed := 0
	for err := range results {
		if err == nil {
			placed++
		} else {
			assert.ErrorIs(t, err, inventory.ErrOutOfStock)
		}
	}
	assert.Equal(t, 5, placed)
	assert.Equal(t, 0, ledger.stockOf(prodA))
	assert.Len(t, repo.orders, 5)
}

func TestCancelPendingReleasesStockOnce(t *testing.T) {
	ledger := newMemLedger()
	ledger.addProduct(prodA, 10, 3)
	repo := newMemRepo()
	uc := newTestUseCase(ledger, repo)

	order, err := uc.PlaceOrder(context.Background(), "c1",
		validInput(ItemInput{ProductID: prodA, Quantity: 2}), "")
	require.NoError(t, err)
	require.Equal(t, 1, ledger.stockOf(prodA))

	require.NoError(t, uc.CancelPending(context.Background(), order.ID, "c1"))
	assert.Equal(t, 3, ledger.stockOf(prodA))

	stored, err := repo.get(order.ID)
	require.NoError(t, err)
	assert.Equal(t, PaymentFailed, stored.PaymentStatus)
	assert.Equal(t, StatusCancelled, stored.OrderStatus)

	// A second cancel is rejected and must not release again.
	err = uc.CancelPending(context.Background(), order.ID, "c1")
	assert.ErrorIs(t, err, ErrNotPending)
	assert.Equal(t, 3, ledger.stockOf(prodA))
}

func TestCancelPendingRejectsForeignOrder(t *testing.T) {
	ledger := newMemLedger()
	ledger.addProduct(prodA, 10, 3)
	repo := newMemRepo()
	uc := newTestUseCase(ledger, repo)

	order, err := uc.PlaceOrder(context.Background(), "c1",
		validInput(ItemInput{ProductID: prodA, Quantity: 1}), "")
	require.NoError(t, err)

	err = uc.CancelPending(context.Background(), order.ID, "someone-else")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Equal(t, 2, ledger.stockOf(prodA))
}
