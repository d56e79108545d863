package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tesseract-Nexus/go-shared/events"

	"order-core/internal/models"
)

// Publisher wraps the go-shared events publisher for order-core's own
// outbound events (spec §4.D, §4.E).
type Publisher struct {
	publisher *events.Publisher
	logger    *logrus.Entry
}

// NewPublisher creates a new order-core events publisher and ensures its
// stream exists.
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	config := events.DefaultPublisherConfig(natsURL)
	config.Name = "order-core"

	publisher, err := events.NewPublisher(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create events publisher: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := publisher.EnsureStream(ctx, StreamOrderCore, []string{"order/>"}); err != nil {
		logger.WithError(err).Warn("failed to ensure order core stream (may already exist)")
	}

	return &Publisher{
		publisher: publisher,
		logger:    logger.WithField("component", "order-core-events"),
	}, nil
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.publisher != nil {
		p.publisher.Close()
	}
}

// PublishOrderCreated publishes the full order snapshot on successful
// placement (spec §4.D).
func (p *Publisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	event := &OrderEvent{
		OrderID:                  order.ID.String(),
		UserID:                   order.UserID.String(),
		CreatedAt:                order.CreatedAt.Format(time.RFC3339Nano),
		OrderStatus:              string(order.Status),
		ShipmentAddressID:        order.ShipmentAddressID.String(),
		InvoiceAddressID:         order.InvoiceAddressID.String(),
		CompensatableOrderAmount: order.CompensatableOrderAmount,
		PaymentInformationID:     order.PaymentInformationID.String(),
		VATNumber:                order.VATNumber,
	}
	event.EventType = OrderCreatedSubject
	event.Timestamp = time.Now().UTC()

	if order.PlacedAt != nil {
		event.PlacedAt = order.PlacedAt.Format(time.RFC3339Nano)
	}
	if order.RejectionReason != nil {
		event.RejectionReason = string(*order.RejectionReason)
	}
	if order.PaymentAuthorization != nil {
		event.PaymentAuthorization = order.PaymentAuthorization
	}

	event.OrderItems = make([]OrderItemDTO, len(order.Items))
	for i, item := range order.Items {
		var discountIDs []string
		_ = unmarshalIfPresent(item.DiscountIDs, &discountIDs)
		event.OrderItems[i] = OrderItemDTO{
			ID:                      item.ID.String(),
			ProductVariantID:        item.ProductVariantID.String(),
			ProductVariantVersionID: item.ProductVariantVersionID.String(),
			TaxRateVersionID:        item.TaxRateVersionID.String(),
			ShoppingCartItemID:      item.ShoppingCartItemID.String(),
			ShipmentMethodID:        item.ShipmentMethodID.String(),
			Count:                   item.Count,
			CompensatableAmount:     item.CompensatableAmount,
			DiscountIDs:             discountIDs,
		}
	}

	return p.publish(ctx, event)
}

// PublishOrderCompensationCreated publishes a compensation record
// (spec §4.E).
func (p *Publisher) PublishOrderCompensationCreated(ctx context.Context, compensation *models.OrderCompensation) error {
	event := &OrderCompensationEvent{
		CompensationID:     compensation.ID.String(),
		AmountToCompensate: compensation.AmountToCompensate,
	}
	event.EventType = OrderCompensationCreatedSubject
	event.Timestamp = time.Now().UTC()

	return p.publish(ctx, event)
}

// routableEvent is satisfied by every locally defined event type; the
// shared publisher dispatches on GetSubject/GetStream the same way it
// does for every other service's custom event types.
type routableEvent interface {
	GetSubject() string
	GetStream() string
}

// publish is a helper that logs and publishes events asynchronously, so a
// slow or unreachable broker never blocks the caller's request path.
func (p *Publisher) publish(ctx context.Context, event routableEvent) error {
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := p.publisher.Publish(pubCtx, event); err != nil {
			p.logger.WithField("subject", event.GetSubject()).WithError(err).Error("failed to publish event")
		} else {
			p.logger.WithField("subject", event.GetSubject()).Info("event published successfully")
		}
	}()
	return nil
}

func unmarshalIfPresent(raw models.JSONB, target interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}
