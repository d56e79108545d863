// Package lifecycle implements the Order Lifecycle (spec §4.D): the
// only two transitions out of pending, each time-bounded and
// authorization-gated.
package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"order-core/internal/apperr"
	"order-core/internal/authz"
	"order-core/internal/models"
	"order-core/internal/repository"
)

// eventPublisher is the narrow slice of *events.Publisher this component
// needs; accepting the interface rather than the concrete type lets
// tests substitute a fake instead of a live NATS connection.
type eventPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
}

// Lifecycle places or lazily rejects pending orders.
type Lifecycle struct {
	orders         repository.OrderRepository
	publisher      eventPublisher
	pendingTimeout time.Duration
	logger         *logrus.Entry
}

// NewLifecycle creates a new Lifecycle.
func NewLifecycle(orders repository.OrderRepository, publisher eventPublisher, pendingTimeout time.Duration, logger *logrus.Logger) *Lifecycle {
	return &Lifecycle{
		orders:         orders,
		publisher:      publisher,
		pendingTimeout: pendingTimeout,
		logger:         logger.WithField("component", "lifecycle"),
	}
}

// Place implements `place(order_id, payment_authorization?)` (spec §4.D).
// If now() is within the pending window, the order is placed and the
// order/order/created event emitted. If the window has elapsed, the
// order is lazily rejected and a timeout error returned — no
// background sweeper runs; rejection only happens on the next place
// attempt past the window.
func (l *Lifecycle) Place(ctx context.Context, orderID uuid.UUID, callerID uuid.UUID, paymentAuth *models.PaymentAuthorization) (*models.Order, error) {
	order, err := l.orders.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireOwner(callerID, order.UserID); err != nil {
		return nil, err
	}

	deadline := order.CreatedAt.Add(l.pendingTimeout)
	if time.Now().UTC().After(deadline) {
		if _, rejectErr := l.orders.Reject(orderID, models.RejectionReasonTimeout); rejectErr != nil {
			return nil, rejectErr
		}
		return nil, apperr.New(apperr.KindTimeoutRejected, "order", orderID.String(), "pending window elapsed")
	}

	var authJSON *models.JSONB
	if paymentAuth != nil {
		encoded, err := encodePaymentAuth(paymentAuth)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStorageError, "order", orderID.String(), err)
		}
		authJSON = &encoded
	}

	placed, err := l.orders.Place(orderID, time.Now().UTC(), authJSON)
	if err != nil {
		return nil, err
	}

	if err := l.publisher.PublishOrderCreated(ctx, placed); err != nil {
		l.logger.WithField("order_id", orderID).WithError(err).Error("failed to publish order created event")
	}

	return placed, nil
}
