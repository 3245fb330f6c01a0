package orders

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/gobazar/bazar-backend/internal/events"
	"github.com/gobazar/bazar-backend/internal/inventory"
	"github.com/gobazar/bazar-backend/internal/storage"
)

// EventPublisher is the slice of the event producer the use case needs.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, ev events.OrderEvent) error
}

// IdempotencyGuard claims client-supplied idempotency keys. Claim returns
// false when the key was already used.
type IdempotencyGuard interface {
	Claim(ctx context.Context, key string) (bool, error)
}

// UseCase contains the order business logic.
type UseCase struct {
	db        storage.Beginner
	repo      Repository
	ledger    inventory.Ledger
	guard     IdempotencyGuard
	publisher EventPublisher
	tracer    trace.Tracer
	placed    metric.Int64Counter
	log       zerolog.Logger
}

// NewUseCase wires the order use case. guard and publisher may be nil in
// tests; both are optional collaborators.
func NewUseCase(db storage.Beginner, repo Repository, ledger inventory.Ledger,
	guard IdempotencyGuard, publisher EventPublisher, log zerolog.Logger) *UseCase {

	meter := otel.Meter("bazar/orders")
	placed, err := meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders placed, by outcome"))
	if err != nil {
		log.Warn().Err(err).Msg("failed to create orders.placed counter")
	}

	return &UseCase{
		db:        db,
		repo:      repo,
		ledger:    ledger,
		guard:     guard,
		publisher: publisher,
		tracer:    otel.Tracer("bazar/orders"),
		placed:    placed,
		log:       log,
	}
}

// PlaceOrder runs the placement transaction: validate, reserve every line
// item, snapshot prices, persist the Pending order. All-or-nothing: any
// failure aborts the transaction, so no stock changes and no order exists.
func (uc *UseCase) PlaceOrder(ctx context.Context, customerID string, in PlacementInput, idempotencyKey string) (*Order, error) {
	ctx, span := uc.tracer.Start(ctx, "place_order")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	if idempotencyKey != "" && uc.guard != nil {
		fresh, err := uc.guard.Claim(ctx, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
		if !fresh {
			return nil, ErrDuplicateRequest
		}
	}

	// Reserve in a stable order so two orders sharing two products cannot
	// take row locks in opposite order.
	items := make([]ItemInput, len(in.Items))
	copy(items, in.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })

	orderID := uuid.New().String()
	transactionID := "TXN-" + uuid.New().String()

	span.SetAttributes(
		attribute.String("order_id", orderID),
		attribute.String("customer_id", customerID),
		attribute.Int("line_items", len(items)),
	)

	tx, err := uc.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	snapshot := make([]Item, 0, len(items))
	for _, it := range items {
		price, err := uc.ledger.Reserve(ctx, tx, orderID, it.ProductID, it.Quantity)
		if err != nil {
			uc.log.Warn().Err(err).Str("order_id", orderID).Str("product_id", it.ProductID).
				Msg("reservation failed, aborting placement")
			uc.countPlaced(ctx, "rejected")
			return nil, err
		}
		snapshot = append(snapshot, Item{
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			PriceAtPurchase: price,
		})
	}

	order := NewOrder(orderID, transactionID, customerID, snapshot, in.ShippingAddress, in.Phone)
	if err := uc.repo.CreateOrder(ctx, tx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	uc.log.Info().Str("order_id", order.ID).Str("tran_id", order.TransactionID).
		Float64("total", order.TotalAmount).Msg("order placed")
	uc.countPlaced(ctx, "placed")
	uc.publish(ctx, events.OrderEvent{
		Type:          events.TypeOrderCreated,
		OrderID:       order.ID,
		TransactionID: order.TransactionID,
		CustomerID:    order.CustomerID,
		TotalAmount:   order.TotalAmount,
		Status:        order.PaymentStatus,
	})

	return order, nil
}

// CancelPending cancels the customer's own Pending order and releases its
// reservations. The movement guard keeps the release exactly-once even if a
// gateway failure callback races this cancellation.
func (uc *UseCase) CancelPending(ctx context.Context, orderID, customerID string) error {
	tx, err := uc.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := uc.repo.GetOrderForUpdate(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if order.CustomerID != customerID {
		return ErrOrderNotFound
	}
	if order.PaymentStatus != PaymentPending {
		return ErrNotPending
	}

	released, err := uc.ledger.MovementExists(ctx, tx, order.ID, inventory.MovementReleased)
	if err != nil {
		return fmt.Errorf("failed to check release movement: %w", err)
	}
	if !released {
		for _, it := range order.Items {
			if err := uc.ledger.Release(ctx, tx, order.ID, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}
	}

	if err := uc.repo.SetPaymentStatusTx(ctx, tx, order.ID, PaymentFailed, StatusCancelled); err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}

	uc.log.Info().Str("order_id", order.ID).Msg("order cancelled by customer")
	uc.publish(ctx, events.OrderEvent{
		Type:          events.TypeOrderFailed,
		OrderID:       order.ID,
		TransactionID: order.TransactionID,
		CustomerID:    order.CustomerID,
		TotalAmount:   order.TotalAmount,
		Status:        PaymentFailed,
	})
	return nil
}

// GetOrder loads one order.
func (uc *UseCase) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return uc.repo.GetOrder(ctx, orderID)
}

// Track returns the order behind a public tracking id (the transaction id).
func (uc *UseCase) Track(ctx context.Context, trackingID string) (*Order, error) {
	return uc.repo.GetByTransactionID(ctx, trackingID)
}

// MyOrders lists the customer's orders, newest first.
func (uc *UseCase) MyOrders(ctx context.Context, customerID string) ([]Order, error) {
	return uc.repo.ListByCustomer(ctx, customerID)
}

// AllOrders lists every order, paginated.
func (uc *UseCase) AllOrders(ctx context.Context, page, limit int) ([]Order, int, error) {
	return uc.repo.ListAll(ctx, page, limit)
}

// VendorOrders lists orders containing products of the vendor behind userID.
func (uc *UseCase) VendorOrders(ctx context.Context, userID string) ([]Order, error) {
	return uc.repo.ListByVendorUser(ctx, userID)
}

// UpdateStatus sets the fulfillment status. Payment status is out of reach
// here; only gateway callbacks may touch it.
func (uc *UseCase) UpdateStatus(ctx context.Context, orderID, status string) error {
	if !ValidOrderStatus(status) {
		return &ValidationError{Fields: []string{"status"}}
	}
	if err := uc.repo.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return err
	}
	uc.publish(ctx, events.OrderEvent{
		Type:    events.TypeOrderStatusChanged,
		OrderID: orderID,
		Status:  status,
	})
	return nil
}

// Delete removes an order entirely (admin only at the HTTP layer).
func (uc *UseCase) Delete(ctx context.Context, orderID string) error {
	return uc.repo.Delete(ctx, orderID)
}

func (uc *UseCase) countPlaced(ctx context.Context, outcome string) {
	if uc.placed == nil {
		return
	}
	uc.placed.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (uc *UseCase) publish(ctx context.Context, ev events.OrderEvent) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.PublishOrderEvent(ctx, ev); err != nil {
		uc.log.Error().Err(err).Str("order_id", ev.OrderID).Str("type", ev.Type).
			Msg("failed to publish order event")
	}
}
