// Package assembler implements the Order Assembler (spec §4.C): validates
// a create-order input, fans out to the Reference Projection and the
// Foreign Data Client, correlates results, and constructs the immutable
// order snapshot.
package assembler

import "github.com/google/uuid"

// OrderItemInput is one requested line of a create-order call.
type OrderItemInput struct {
	ShoppingCartItemID uuid.UUID
	ShipmentMethodID   uuid.UUID
	CouponIDs          []uuid.UUID
}

// CreateOrderInput is the Order Assembler's contract (spec §4.C).
type CreateOrderInput struct {
	UserID               uuid.UUID
	Items                []OrderItemInput
	ShipmentAddressID    uuid.UUID
	InvoiceAddressID     uuid.UUID
	PaymentInformationID uuid.UUID
	VATNumber            string
}
