// Package compensation implements the Compensation Engine (spec §4.E):
// idempotent partial-order compensation triggered by shipment-failure
// events.
package compensation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"order-core/internal/apperr"
	"order-core/internal/models"
	"order-core/internal/repository"
)

// Engine consumes shipment-failure events and records compensations.
type Engine interface {
	// Compensate handles one shipment/shipment/creation-failed delivery.
	Compensate(orderID uuid.UUID, orderItemIDs []uuid.UUID) error
}

// eventPublisher is the narrow slice of *events.Publisher this engine
// needs; accepting the interface rather than the concrete type lets
// tests substitute a fake instead of a live NATS connection.
type eventPublisher interface {
	PublishOrderCompensationCreated(ctx context.Context, compensation *models.OrderCompensation) error
}

type engine struct {
	orders        repository.OrderRepository
	compensations repository.CompensationRepository
	publisher     eventPublisher
	logger        *logrus.Entry
}

// NewEngine creates a new compensation Engine.
func NewEngine(orders repository.OrderRepository, compensations repository.CompensationRepository, publisher eventPublisher, logger *logrus.Logger) Engine {
	return &engine{
		orders:        orders,
		compensations: compensations,
		publisher:     publisher,
		logger:        logger.WithField("component", "compensation"),
	}
}

// Compensate implements the §4.E algorithm: verify the order exists,
// verify none of the item ids has been compensated before (checked
// globally across every order — spec §9 open question — so
// double-delivery of the same failure event is rejected here, giving
// at-most-once compensation), sum the matching items' compensatable
// amounts, record the compensation, and publish the outbound event.
// The Order's status is never changed by this engine. An empty
// orderItemIDs is trivially accepted and records a zero-amount
// compensation.
func (e *engine) Compensate(orderID uuid.UUID, orderItemIDs []uuid.UUID) error {
	order, err := e.orders.GetByID(orderID)
	if err != nil {
		return err
	}

	alreadyCompensated, err := e.compensations.AlreadyCompensated(orderItemIDs)
	if err != nil {
		return err
	}
	if alreadyCompensated {
		return apperr.New(apperr.KindAlreadyCompensated, "order_compensation", orderID.String(), "one or more order items already compensated")
	}

	wanted := make(map[uuid.UUID]struct{}, len(orderItemIDs))
	for _, id := range orderItemIDs {
		wanted[id] = struct{}{}
	}

	var amount uint64
	matched := make([]uuid.UUID, 0, len(orderItemIDs))
	for _, item := range order.Items {
		if _, ok := wanted[item.ID]; ok {
			amount += item.CompensatableAmount
			matched = append(matched, item.ID)
		}
	}

	idsJSON, err := json.Marshal(matched)
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "order_compensation", orderID.String(), err)
	}

	compensation := &models.OrderCompensation{
		ID:                 uuid.New(),
		OrderID:            orderID,
		OrderItemIDs:       models.JSONB(idsJSON),
		TriggeredAt:        time.Now().UTC(),
		AmountToCompensate: amount,
	}
	if err := e.compensations.Create(compensation); err != nil {
		return err
	}

	if err := e.publisher.PublishOrderCompensationCreated(context.Background(), compensation); err != nil {
		e.logger.WithError(err).WithField("compensation_id", compensation.ID).Error("failed to publish compensation event")
	}

	return nil
}
