package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle status of an Order (spec §3, §4.D).
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusPlaced   OrderStatus = "placed"
	OrderStatusRejected OrderStatus = "rejected"
)

// RejectionReason names why a pending order was rejected.
// "timeout" is a forward-compatible extension (spec §9 design note);
// the two construction-time reasons never actually reach a persisted
// order today because construction aborts before the durable insert,
// but the type keeps the enum the spec's data model names.
type RejectionReason string

const (
	RejectionReasonInvalidOrderData           RejectionReason = "invalid_order_data"
	RejectionReasonInventoryReservationFailed RejectionReason = "inventory_reservation_failed"
	RejectionReasonTimeout                    RejectionReason = "timeout"
)

// PaymentAuthorization is a tagged variant. Only one variant is defined
// today (CVC), but the representation stays open to more (spec §9).
type PaymentAuthorization struct {
	Type string  `json:"type"` // "cvc" is the only variant currently defined
	CVC  *uint16 `json:"cvc,omitempty"`
}

// NewCVCAuthorization constructs the one currently-defined payment
// authorization variant.
func NewCVCAuthorization(cvc uint16) PaymentAuthorization {
	return PaymentAuthorization{Type: "cvc", CVC: &cvc}
}

// Order is the durable aggregate owned by this service (spec §3).
type Order struct {
	ID                       uuid.UUID        `json:"id" gorm:"type:uuid;primary_key"`
	UserID                   uuid.UUID        `json:"userId" gorm:"type:uuid;not null;index:idx_orders_user"`
	CreatedAt                time.Time        `json:"createdAt" gorm:"not null;index:idx_orders_created"`
	PlacedAt                 *time.Time       `json:"placedAt,omitempty"`
	Status                   OrderStatus      `json:"status" gorm:"type:varchar(20);not null;default:'pending';index:idx_orders_status"`
	RejectionReason          *RejectionReason `json:"rejectionReason,omitempty" gorm:"type:varchar(30)"`
	Items                    []OrderItem      `json:"orderItems" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ShipmentAddressID        uuid.UUID        `json:"shipmentAddressId" gorm:"type:uuid;not null"`
	InvoiceAddressID         uuid.UUID        `json:"invoiceAddressId" gorm:"type:uuid;not null"`
	PaymentInformationID     uuid.UUID        `json:"paymentInformationId" gorm:"type:uuid;not null"`
	PaymentAuthorization     *JSONB           `json:"paymentAuthorization,omitempty" gorm:"type:jsonb"`
	VATNumber                string           `json:"vatNumber,omitempty" gorm:"type:varchar(50)"`
	CompensatableOrderAmount uint64           `json:"compensatableOrderAmount" gorm:"not null"`
}

// TableName pins the durable collection name (spec §6 persisted state layout).
func (Order) TableName() string { return "orders" }

// OrderItem is a line within an Order (spec §3).
type OrderItem struct {
	ID                      uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	OrderID                 uuid.UUID `json:"-" gorm:"type:uuid;not null;index:idx_order_items_order"`
	CreatedAt               time.Time `json:"createdAt" gorm:"not null"`
	ProductVariantID        uuid.UUID `json:"productVariantId" gorm:"type:uuid;not null;index:idx_order_items_variant"`
	ProductVariantVersionID uuid.UUID `json:"productVariantVersionId" gorm:"type:uuid;not null"`
	TaxRateVersionID        uuid.UUID `json:"taxRateVersionId" gorm:"type:uuid;not null"`
	ShoppingCartItemID      uuid.UUID `json:"shoppingCartItemId" gorm:"type:uuid;not null"`
	ShipmentMethodID        uuid.UUID `json:"shipmentMethodId" gorm:"type:uuid;not null"`
	Count                   uint32    `json:"count" gorm:"not null"`
	CompensatableAmount     uint64    `json:"compensatableAmount" gorm:"not null"`
	DiscountIDs             JSONB     `json:"discountIds" gorm:"type:jsonb"` // []uuid.UUID, deduplicated and id-sorted
}

// TableName pins the durable collection name.
func (OrderItem) TableName() string { return "order_items" }

// OrderCompensation is an append-only compensation record (spec §3, §4.E).
type OrderCompensation struct {
	ID                 uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	OrderID            uuid.UUID `json:"orderId" gorm:"type:uuid;not null;index:idx_compensations_order"`
	OrderItemIDs       JSONB     `json:"orderItemIds" gorm:"type:jsonb;not null"` // []uuid.UUID, may be empty
	TriggeredAt        time.Time `json:"triggeredAt" gorm:"not null"`
	AmountToCompensate uint64    `json:"amountToCompensate" gorm:"not null"`
}

// TableName pins the durable collection name.
func (OrderCompensation) TableName() string { return "order_compensations" }
