package events

import "github.com/Tesseract-Nexus/go-shared/events"

// Outbound subjects published by the Order Lifecycle and Compensation
// Engine (spec §4.D, §4.E).
const (
	OrderCreatedSubject             = "order/order/created"
	OrderCompensationCreatedSubject = "order/order-compensation/created"
)

// StreamOrderCore is the JetStream stream carrying every event this
// service publishes.
const StreamOrderCore = "ORDER_CORE_EVENTS"

// OrderItemDTO mirrors one line of the order snapshot carried on the wire
// (spec §6).
type OrderItemDTO struct {
	ID                      string   `json:"id"`
	ProductVariantID        string   `json:"productVariantId"`
	ProductVariantVersionID string   `json:"productVariantVersionId"`
	TaxRateVersionID        string   `json:"taxRateVersionId"`
	ShoppingCartItemID      string   `json:"shoppingCartItemId"`
	ShipmentMethodID        string   `json:"shipmentMethodId"`
	Count                   uint32   `json:"count"`
	CompensatableAmount     uint64   `json:"compensatableAmount"`
	DiscountIDs             []string `json:"discountIds"`
}

// OrderEvent is the order/order/created payload (spec §6): a full
// OrderDTO snapshot. It embeds events.BaseEvent so it rides the same
// envelope (id, event type, occurred-at) every other event in the
// platform uses, while carrying order-core's own field set instead of
// reusing the unrelated shape of go-shared's OrderEvent.
type OrderEvent struct {
	events.BaseEvent
	OrderID                  string         `json:"id"`
	UserID                   string         `json:"userId"`
	CreatedAt                string         `json:"createdAt"`
	OrderStatus              string         `json:"orderStatus"`
	PlacedAt                 string         `json:"placedAt,omitempty"`
	RejectionReason          string         `json:"rejectionReason,omitempty"`
	OrderItems               []OrderItemDTO `json:"orderItems"`
	ShipmentAddressID        string         `json:"shipmentAddressId"`
	InvoiceAddressID         string         `json:"invoiceAddressId"`
	CompensatableOrderAmount uint64         `json:"compensatableOrderAmount"`
	PaymentInformationID     string         `json:"paymentInformationId"`
	PaymentAuthorization     interface{}    `json:"paymentAuthorization,omitempty"`
	VATNumber                string         `json:"vatNumber,omitempty"`
}

// GetSubject implements the publisher's routable-event interface.
func (e *OrderEvent) GetSubject() string { return OrderCreatedSubject }

// GetStream implements the publisher's routable-event interface.
func (e *OrderEvent) GetStream() string { return StreamOrderCore }

// OrderCompensationEvent is the order/order-compensation/created payload
// (spec §6): `{ id, amountToCompensate }` alongside the fields of the
// embedded events.BaseEvent envelope.
type OrderCompensationEvent struct {
	events.BaseEvent
	CompensationID     string `json:"id"`
	AmountToCompensate uint64 `json:"amountToCompensate"`
}

// GetSubject implements the publisher's routable-event interface.
func (e *OrderCompensationEvent) GetSubject() string { return OrderCompensationCreatedSubject }

// GetStream implements the publisher's routable-event interface.
func (e *OrderCompensationEvent) GetStream() string { return StreamOrderCore }
