package models

import "github.com/google/uuid"

// The types below are the Reference Projection's local, eventually
// consistent copies of foreign entities (spec §3, §4.A). They are never
// authoritative; they exist purely so the Order Assembler can resolve
// ids without a synchronous round trip for every lookup, and so a
// placed order's snapshot never changes shape under it.

// User is the projected owner of a set of addresses.
type User struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	UserAddressIDs JSONB     `json:"userAddressIds" gorm:"type:jsonb;not null"` // []uuid.UUID, append-ordered
}

// TableName pins the durable collection name.
func (User) TableName() string { return "users" }

// ProductVariantVersion is the immutable, versioned pricing/tax snapshot
// of a product variant at a point in time.
type ProductVariantVersion struct {
	ID               uuid.UUID `json:"id"`
	RetailPrice      uint32    `json:"retailPrice"`
	TaxRateID        uuid.UUID `json:"taxRateId"`
	ProductVariantID uuid.UUID `json:"productVariantId"`
}

// ProductVariant holds a pointer to its current version plus visibility.
type ProductVariant struct {
	ID                uuid.UUID              `json:"id" gorm:"type:uuid;primary_key"`
	CurrentVersion    ProductVariantVersion  `json:"currentVersion" gorm:"embedded;embeddedPrefix:current_version_"`
	IsPubliclyVisible bool                   `json:"isPubliclyVisible" gorm:"not null;default:true"`
}

// TableName pins the durable collection name.
func (ProductVariant) TableName() string { return "product_variants" }

// TaxRateVersion is the immutable, versioned tax rate at a point in time.
type TaxRateVersion struct {
	ID        uuid.UUID `json:"id"`
	Rate      float64   `json:"rate"`
	Version   uint32    `json:"version"` // monotonically increasing
	TaxRateID uuid.UUID `json:"taxRateId"`
}

// TaxRate holds a pointer to its current version.
type TaxRate struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primary_key"`
	CurrentVersion TaxRateVersion `json:"currentVersion" gorm:"embedded;embeddedPrefix:current_version_"`
}

// TableName pins the durable collection name.
func (TaxRate) TableName() string { return "tax_rates" }

// Coupon is an existence-tracking projection: order construction only
// needs to know a coupon id is real, never its discount terms (those
// come back from the discount query itself).
type Coupon struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
}

// TableName pins the durable collection name.
func (Coupon) TableName() string { return "coupons" }

// ShipmentMethod is an existence-tracking projection, same rationale as Coupon.
type ShipmentMethod struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
}

// TableName pins the durable collection name.
func (ShipmentMethod) TableName() string { return "shipment_methods" }
