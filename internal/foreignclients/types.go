// Package foreignclients holds the Foreign Data Client (spec §4.B): typed
// request/response contracts to the cart, inventory, discount, and
// shipment services consumed during order construction. Each client is a
// thin HTTP wrapper; no retry happens here, failures surface to the
// Order Assembler which aborts construction with a domain error naming
// the failing query.
package foreignclients

import "github.com/google/uuid"

// CartItem is one line of a user's shopping cart as returned by the
// cart service.
type CartItem struct {
	ShoppingCartItemID uuid.UUID `json:"shoppingCartItemId"`
	ProductVariantID   uuid.UUID `json:"productVariantId"`
	Count              uint32    `json:"count"`
}

// InventoryQueryItem is one variant/quantity pair checked for availability.
type InventoryQueryItem struct {
	ProductVariantID uuid.UUID `json:"productVariantId"`
	Requested        uint32    `json:"requested"`
}

// InventoryResult is the per-variant stock answer.
type InventoryResult struct {
	ProductVariantID uuid.UUID `json:"productVariantId"`
	Available        uint32    `json:"available"`
}

// DiscountQueryItem is one line of the discount query's per-variant input.
type DiscountQueryItem struct {
	ProductVariantID uuid.UUID  `json:"productVariantId"`
	Count            uint32     `json:"count"`
	CouponIDs        []uuid.UUID `json:"couponIds"`
}

// Discount is a single applicable discount: an id (for deterministic
// ordering) and a multiplicative factor in (0, 1].
type Discount struct {
	ID       uuid.UUID `json:"id"`
	Discount float64   `json:"discount"`
}

// ShipmentFeeQueryItem is one line of the shipment-fee query's input.
type ShipmentFeeQueryItem struct {
	ProductVariantVersionID uuid.UUID `json:"productVariantVersionId"`
	Quantity                uint32    `json:"quantity"`
	ShipmentMethodID        uuid.UUID `json:"shipmentMethodId"`
}
