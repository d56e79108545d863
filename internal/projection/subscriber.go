package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gosharedevents "github.com/Tesseract-Nexus/go-shared/events"
	"github.com/sirupsen/logrus"
)

// streamProjectionEvents is the JetStream stream carrying every inbound
// topic this service routes on. The publishing services are responsible
// for ensuring it exists; this subscriber only attaches to it.
const streamProjectionEvents = "ORDER_CORE_PROJECTION_EVENTS"

// Subscriber attaches to every topic in Topics and dispatches deliveries
// to a Projector. An unrecognized topic, or any storage failure while
// applying one, is reported back to JetStream as an error so the
// message is redelivered (spec §4.A failure semantics).
type Subscriber struct {
	subscriber *gosharedevents.Subscriber
	projector  *Projector
	logger     *logrus.Entry
	cancel     context.CancelFunc
}

// NewSubscriber creates a new projection event subscriber.
func NewSubscriber(natsURL string, projector *Projector, logger *logrus.Logger) (*Subscriber, error) {
	config := gosharedevents.DefaultSubscriberConfig(natsURL, "order-core-projection")
	config.Name = "order-core-projection-subscriber"
	config.DeliverPolicy = "new"
	config.MaxDeliver = 3
	config.AckWait = 30 * time.Second

	subscriber, err := gosharedevents.NewSubscriber(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create projection subscriber: %w", err)
	}

	return &Subscriber{
		subscriber: subscriber,
		projector:  projector,
		logger:     logger.WithField("component", "projection-subscriber"),
	}, nil
}

// Start begins listening for every topic the projection endpoint handles.
func (s *Subscriber) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.logger.WithField("topics", Topics).Info("starting projection event subscription")
	return s.subscriber.Subscribe(ctx, streamProjectionEvents, Topics, s.handleMessage)
}

// Stop cancels the subscription.
func (s *Subscriber) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// handleMessage dispatches one inbound delivery by topic (spec §6
// inbound event envelope: `{ topic, data }`, redelivered on any
// non-nil error returned here).
func (s *Subscriber) handleMessage(ctx context.Context, msg *gosharedevents.Message) error {
	switch msg.Subject {
	case TopicUserCreated:
		var event IDEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return s.malformed(msg.Subject, err)
		}
		return s.projector.HandleUserCreated(event)

	case TopicCouponCreated:
		var event IDEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return s.malformed(msg.Subject, err)
		}
		return s.projector.HandleCouponCreated(event)

	case TopicShipmentMethodCreated:
		var event IDEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return s.malformed(msg.Subject, err)
		}
		return s.projector.HandleShipmentMethodCreated(event)

	case TopicUserAddressCreated:
		var event UserAddressEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return s.malformed(msg.Subject, err)
		}
		return s.projector.HandleUserAddressCreated(event)

	case TopicUserAddressArchived:
		var event UserAddressEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return s.malformed(msg.Subject, err)
		}
		return s.projector.HandleUserAddressArchived(event)

	case TopicProductVariantVersionCreated:
		var event ProductVariantVersionCreatedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return s.malformed(msg.Subject, err)
		}
		return s.projector.HandleProductVariantVersionCreated(event)

	case TopicProductVariantUpdated:
		var event ProductVariantUpdatedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return s.malformed(msg.Subject, err)
		}
		return s.projector.HandleProductVariantUpdated(event)

	case TopicTaxRateVersionCreated:
		var event TaxRateVersionCreatedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return s.malformed(msg.Subject, err)
		}
		return s.projector.HandleTaxRateVersionCreated(event)

	case TopicShipmentCreationFailed:
		var event ShipmentCreationFailedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return s.malformed(msg.Subject, err)
		}
		return s.projector.HandleShipmentCreationFailed(event)

	default:
		s.logger.WithField("topic", msg.Subject).Error("unrecognized topic")
		return fmt.Errorf("unrecognized topic: %s", msg.Subject)
	}
}

func (s *Subscriber) malformed(topic string, err error) error {
	s.logger.WithField("topic", topic).WithError(err).Error("failed to unmarshal event payload")
	return err
}
