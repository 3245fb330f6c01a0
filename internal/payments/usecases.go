package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gobazar/bazar-backend/internal/events"
	"github.com/gobazar/bazar-backend/internal/inventory"
	"github.com/gobazar/bazar-backend/internal/orders"
	"github.com/gobazar/bazar-backend/internal/storage"
)

// ErrAlreadyPaid is returned when checkout is requested for a settled order.
var ErrAlreadyPaid = errors.New("order already paid")

// OrderStore is the slice of the order repository the adapter needs.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*orders.Order, error)
	GetByTransactionIDForUpdate(ctx context.Context, tx storage.Tx, transactionID string) (*orders.Order, error)
	MarkPaid(ctx context.Context, transactionID string) (bool, error)
	SetPaymentStatusTx(ctx context.Context, tx storage.Tx, orderID, paymentStatus, orderStatus string) error
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]string, error)
}

// ContactDirectory resolves the customer contact fields for the session
// request. Implemented by the auth repository.
type ContactDirectory interface {
	Contact(ctx context.Context, userID string) (name, email, phone string, err error)
}

// EventPublisher mirrors orders.EventPublisher for this package.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, ev events.OrderEvent) error
}

// URLs groups the addresses the adapter builds callbacks and redirects from.
type URLs struct {
	// PublicBase is this service's externally reachable base URL; the
	// provider posts callbacks there.
	PublicBase string
	// FrontendBase is where customers land after the provider is done.
	FrontendBase string
}

// UseCase reconciles gateway outcomes with the order aggregate. Every
// stock-affecting transition is guarded by the order's current
// payment_status and applied atomically with the status change.
type UseCase struct {
	db       storage.Beginner
	store    OrderStore
	ledger   inventory.Ledger
	gateway  Gateway
	contacts ContactDirectory
	pub      EventPublisher
	urls     URLs
	tracer   trace.Tracer
	log      zerolog.Logger
}

// NewUseCase wires the payment use case.
func NewUseCase(db storage.Beginner, store OrderStore, ledger inventory.Ledger,
	gateway Gateway, contacts ContactDirectory, pub EventPublisher, urls URLs,
	log zerolog.Logger) *UseCase {
	return &UseCase{
		db:       db,
		store:    store,
		ledger:   ledger,
		gateway:  gateway,
		contacts: contacts,
		pub:      pub,
		urls:     urls,
		tracer:   otel.Tracer("bazar/payments"),
		log:      log,
	}
}

// StartCheckout opens a hosted checkout session for a Pending order and
// returns the redirect URL. When the provider rejects the session, the
// Pending order is reconciled as failed so no orphaned reservation survives.
func (uc *UseCase) StartCheckout(ctx context.Context, orderID, customerID string) (string, error) {
	ctx, span := uc.tracer.Start(ctx, "start_checkout")
	defer span.End()

	order, err := uc.store.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order.CustomerID != customerID {
		return "", orders.ErrOrderNotFound
	}
	if order.PaymentStatus == orders.PaymentSuccess {
		return "", ErrAlreadyPaid
	}
	if order.PaymentStatus != orders.PaymentPending {
		return "", orders.ErrNotPending
	}

	name, email, phone, err := uc.contacts.Contact(ctx, order.CustomerID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve customer contact: %w", err)
	}
	if phone == "" {
		phone = order.Phone
	}

	span.SetAttributes(attribute.String("tran_id", order.TransactionID))

	redirectURL, err := uc.gateway.CreateSession(ctx, SessionRequest{
		TransactionID:   order.TransactionID,
		Amount:          order.TotalAmount,
		Currency:        "BDT",
		CustomerName:    name,
		CustomerEmail:   email,
		CustomerPhone:   phone,
		ShippingAddress: order.ShippingAddress,
		SuccessURL:      uc.urls.PublicBase + "/api/payments/success/" + order.TransactionID,
		FailURL:         uc.urls.PublicBase + "/api/payments/fail/" + order.TransactionID,
		CancelURL:       uc.urls.PublicBase + "/api/payments/cancel/" + order.TransactionID,
	})
	if err != nil {
		uc.log.Error().Err(err).Str("order_id", order.ID).Str("tran_id", order.TransactionID).
			Msg("gateway session failed, cleaning up pending order")
		if cerr := uc.HandleFailure(ctx, order.TransactionID); cerr != nil {
			uc.log.Error().Err(cerr).Str("order_id", order.ID).
				Msg("failed to clean up order after gateway rejection")
		}
		return "", err
	}

	uc.log.Info().Str("order_id", order.ID).Str("tran_id", order.TransactionID).
		Msg("checkout session created")
	return redirectURL, nil
}

// HandleSuccess applies the provider's success callback: a compare-and-set
// Pending -> Success. A duplicate callback is a no-op; a callback for a
// Failed transaction never overwrites the terminal state.
func (uc *UseCase) HandleSuccess(ctx context.Context, transactionID string) error {
	ctx, span := uc.tracer.Start(ctx, "payment_success")
	defer span.End()
	span.SetAttributes(attribute.String("tran_id", transactionID))

	updated, err := uc.store.MarkPaid(ctx, transactionID)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	if updated {
		uc.log.Info().Str("tran_id", transactionID).Msg("payment confirmed")
		if order, err := uc.store.GetByTransactionID(ctx, transactionID); err == nil {
			uc.publish(ctx, events.OrderEvent{
				Type:          events.TypeOrderPaid,
				OrderID:       order.ID,
				TransactionID: order.TransactionID,
				CustomerID:    order.CustomerID,
				TotalAmount:   order.TotalAmount,
				Status:        orders.PaymentSuccess,
			})
		}
		return nil
	}

	// No transition happened: missing order, duplicate callback, or a
	// terminal Failed state. Only the first is reported to the caller.
	order, err := uc.store.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return err
	}
	uc.log.Info().Str("tran_id", transactionID).Str("payment_status", order.PaymentStatus).
		Msg("success callback ignored, order not pending")
	return nil
}

// HandleFailure applies a fail or cancel callback: compare-and-set
// Pending -> Failed plus the stock release, in one transaction. The release
// movement record keeps stock restoration exactly-once across replays.
func (uc *UseCase) HandleFailure(ctx context.Context, transactionID string) error {
	ctx, span := uc.tracer.Start(ctx, "payment_failure")
	defer span.End()
	span.SetAttributes(attribute.String("tran_id", transactionID))

	tx, err := uc.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := uc.store.GetByTransactionIDForUpdate(ctx, tx, transactionID)
	if err != nil {
		return err
	}
	if order.PaymentStatus != orders.PaymentPending {
		uc.log.Info().Str("tran_id", transactionID).Str("payment_status", order.PaymentStatus).
			Msg("failure callback ignored, order not pending")
		return nil
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

	if err := uc.store.SetPaymentStatusTx(ctx, tx, order.ID, orders.PaymentFailed, orders.StatusCancelled); err != nil {
		return fmt.Errorf("failed to mark order failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit failure reconciliation: %w", err)
	}

	uc.log.Info().Str("tran_id", transactionID).Str("order_id", order.ID).
		Msg("payment failed, stock released")
	uc.publish(ctx, events.OrderEvent{
		Type:          events.TypeOrderFailed,
		OrderID:       order.ID,
		TransactionID: order.TransactionID,
		CustomerID:    order.CustomerID,
		TotalAmount:   order.TotalAmount,
		Status:        orders.PaymentFailed,
	})
	return nil
}

// SweepStalePending fails every Pending order created before the cutoff and
// releases its stock. Returns the number of orders reconciled.
func (uc *UseCase) SweepStalePending(ctx context.Context, olderThan time.Duration) (int, error) {
	ids, err := uc.store.ListStalePending(ctx, time.Now().Add(-olderThan), 100)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale pending orders: %w", err)
	}

	swept := 0
	for _, tranID := range ids {
		if err := uc.HandleFailure(ctx, tranID); err != nil {
			uc.log.Error().Err(err).Str("tran_id", tranID).Msg("failed to expire stale order")
			continue
		}
		swept++
	}
	return swept, nil
}

func (uc *UseCase) publish(ctx context.Context, ev events.OrderEvent) {
	if uc.pub == nil {
		return
	}
	if err := uc.pub.PublishOrderEvent(ctx, ev); err != nil {
		uc.log.Error().Err(err).Str("order_id", ev.OrderID).Str("type", ev.Type).
			Msg("failed to publish order event")
	}
}
