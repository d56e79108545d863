// Package projection implements the Reference Projection (spec §4.A): an
// eventually consistent local copy of foreign entities, maintained purely
// from inbound events, that the Order Assembler reads without a
// synchronous round trip per lookup.
package projection

import "github.com/google/uuid"

// Topic names this service routes on (spec §4.A, §6).
const (
	TopicUserCreated                   = "user/user/created"
	TopicCouponCreated                 = "discount/coupon/created"
	TopicShipmentMethodCreated         = "shipment/shipment-method/created"
	TopicUserAddressCreated            = "address/user-address/created"
	TopicUserAddressArchived           = "address/user-address/archived"
	TopicProductVariantVersionCreated  = "catalog/product-variant-version/created"
	TopicProductVariantUpdated         = "catalog/product-variant/updated"
	TopicTaxRateVersionCreated         = "tax/tax-rate-version/created"
	TopicShipmentCreationFailed        = "shipment/shipment/creation-failed"
)

// Topics lists every topic this endpoint handles, in the order the
// subscription manifest reports them (spec §6).
var Topics = []string{
	TopicUserCreated,
	TopicCouponCreated,
	TopicShipmentMethodCreated,
	TopicUserAddressCreated,
	TopicUserAddressArchived,
	TopicProductVariantVersionCreated,
	TopicProductVariantUpdated,
	TopicTaxRateVersionCreated,
	TopicShipmentCreationFailed,
}

// IDEvent is the bit-exact shape of a uuid-only creation event
// (spec §6: "Uuid-only creation: { id }").
type IDEvent struct {
	ID uuid.UUID `json:"id"`
}

// UserAddressEvent is the shape of user-address created/archived events.
type UserAddressEvent struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"userId"`
}

// ProductVariantVersionCreatedEvent is the shape of a version-created event.
type ProductVariantVersionCreatedEvent struct {
	ID               uuid.UUID `json:"id"`
	RetailPrice      uint32    `json:"retailPrice"`
	TaxRateID        uuid.UUID `json:"taxRateId"`
	ProductVariantID uuid.UUID `json:"productVariantId"`
}

// ProductVariantUpdatedEvent is bit-exact to the upstream source: the wire
// field is a string, not a bool (spec §6, §9 open question).
type ProductVariantUpdatedEvent struct {
	ID                uuid.UUID `json:"id"`
	IsPubliclyVisible string    `json:"isPubliclyVisible"`
}

// TaxRateVersionCreatedEvent is the shape of a tax-rate-version-created event.
type TaxRateVersionCreatedEvent struct {
	ID        uuid.UUID `json:"id"`
	Rate      float64   `json:"rate"`
	Version   uint32    `json:"version"`
	TaxRateID uuid.UUID `json:"taxRateId"`
}

// ShipmentCreationFailedEvent hands an order's failed-shipment item set off
// to the Compensation Engine (spec §4.E).
type ShipmentCreationFailedEvent struct {
	OrderID      uuid.UUID   `json:"orderId"`
	OrderItemIDs []uuid.UUID `json:"orderItemIds"`
}
