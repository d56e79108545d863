package assembler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-core/internal/apperr"
	"order-core/internal/foreignclients"
	"order-core/internal/models"
)

type fakeProjection struct {
	users           map[uuid.UUID]*models.User
	variants        map[uuid.UUID]*models.ProductVariant
	taxRates        map[uuid.UUID]*models.TaxRate
	coupons         map[uuid.UUID]bool
	shipmentMethods map[uuid.UUID]bool
}

func (f *fakeProjection) UpsertUser(u *models.User) error { return nil }
func (f *fakeProjection) GetUser(id uuid.UUID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, apperr.New(apperr.KindNotFound, "user", id.String(), "not found")
}
func (f *fakeProjection) UpsertProductVariant(v *models.ProductVariant) error { return nil }
func (f *fakeProjection) GetProductVariant(id uuid.UUID) (*models.ProductVariant, error) {
	if v, ok := f.variants[id]; ok {
		return v, nil
	}
	return nil, apperr.New(apperr.KindNotFound, "product_variant", id.String(), "not found")
}
func (f *fakeProjection) UpsertTaxRate(t *models.TaxRate) error { return nil }
func (f *fakeProjection) GetTaxRate(id uuid.UUID) (*models.TaxRate, error) {
	if t, ok := f.taxRates[id]; ok {
		return t, nil
	}
	return nil, apperr.New(apperr.KindNotFound, "tax_rate", id.String(), "not found")
}
func (f *fakeProjection) UpsertCoupon(c *models.Coupon) error { return nil }
func (f *fakeProjection) CouponExists(id uuid.UUID) (bool, error) {
	return f.coupons[id], nil
}
func (f *fakeProjection) UpsertShipmentMethod(m *models.ShipmentMethod) error { return nil }
func (f *fakeProjection) ShipmentMethodExists(id uuid.UUID) (bool, error) {
	return f.shipmentMethods[id], nil
}

type fakeOrderRepo struct {
	created *models.Order
}

func (f *fakeOrderRepo) Create(order *models.Order) error { f.created = order; return nil }
func (f *fakeOrderRepo) GetByID(id uuid.UUID) (*models.Order, error) { return nil, nil }
func (f *fakeOrderRepo) Place(id uuid.UUID, placedAt time.Time, paymentAuth *models.JSONB) (*models.Order, error) {
	return nil, nil
}
func (f *fakeOrderRepo) Reject(id uuid.UUID, reason models.RejectionReason) (*models.Order, error) {
	return nil, nil
}
func (f *fakeOrderRepo) ListByUser(userID uuid.UUID) ([]models.Order, error) { return nil, nil }
func (f *fakeOrderRepo) GetItemByID(id uuid.UUID) (*models.OrderItem, error) { return nil, nil }

type fakeCart struct {
	items []foreignclients.CartItem
}

func (f *fakeCart) GetCart(userID uuid.UUID, callerIdentity string) ([]foreignclients.CartItem, error) {
	return f.items, nil
}

type fakeInventory struct {
	available map[uuid.UUID]uint32
}

func (f *fakeInventory) CheckStock(items []foreignclients.InventoryQueryItem) ([]foreignclients.InventoryResult, error) {
	results := make([]foreignclients.InventoryResult, 0, len(items))
	for _, item := range items {
		results = append(results, foreignclients.InventoryResult{ProductVariantID: item.ProductVariantID, Available: f.available[item.ProductVariantID]})
	}
	return results, nil
}

type fakeDiscount struct {
	byVariant map[uuid.UUID][]foreignclients.Discount
}

func (f *fakeDiscount) GetDiscounts(userID uuid.UUID, orderAmount uint64, items []foreignclients.DiscountQueryItem, callerIdentity string) (map[uuid.UUID][]foreignclients.Discount, error) {
	return f.byVariant, nil
}

type fakeShipment struct {
	fee uint64
}

func (f *fakeShipment) GetShipmentFee(items []foreignclients.ShipmentFeeQueryItem) (uint64, error) {
	return f.fee, nil
}

func encodeAddresses(t *testing.T, ids ...uuid.UUID) models.JSONB {
	t.Helper()
	data, err := json.Marshal(ids)
	require.NoError(t, err)
	return models.JSONB(data)
}

// fixture builds a single-variant assembler scenario: one user, one
// publicly visible variant with retail price 1000, sufficient stock,
// a shipment method and address the input references.
type fixture struct {
	userID            uuid.UUID
	variantID         uuid.UUID
	shipmentMethodID  uuid.UUID
	shipmentAddressID uuid.UUID
	invoiceAddressID  uuid.UUID
	cartItemID        uuid.UUID
	taxRateID         uuid.UUID
	versionID         uuid.UUID

	projection *fakeProjection
	orders     *fakeOrderRepo
	cart       *fakeCart
	inventory  *fakeInventory
	discount   *fakeDiscount
	shipment   *fakeShipment
}

func newFixture(t *testing.T, retailPrice uint32) *fixture {
	t.Helper()
	f := &fixture{
		userID:            uuid.New(),
		variantID:         uuid.New(),
		shipmentMethodID:  uuid.New(),
		shipmentAddressID: uuid.New(),
		invoiceAddressID:  uuid.New(),
		cartItemID:        uuid.New(),
		taxRateID:         uuid.New(),
		versionID:         uuid.New(),
	}

	f.projection = &fakeProjection{
		users: map[uuid.UUID]*models.User{
			f.userID: {ID: f.userID, UserAddressIDs: encodeAddresses(t, f.shipmentAddressID, f.invoiceAddressID)},
		},
		variants: map[uuid.UUID]*models.ProductVariant{
			f.variantID: {
				ID:                f.variantID,
				IsPubliclyVisible: true,
				CurrentVersion: models.ProductVariantVersion{
					ID: f.versionID, RetailPrice: retailPrice, TaxRateID: f.taxRateID, ProductVariantID: f.variantID,
				},
			},
		},
		taxRates: map[uuid.UUID]*models.TaxRate{
			f.taxRateID: {ID: f.taxRateID, CurrentVersion: models.TaxRateVersion{ID: uuid.New(), Rate: 0.1, TaxRateID: f.taxRateID}},
		},
		coupons:         map[uuid.UUID]bool{},
		shipmentMethods: map[uuid.UUID]bool{f.shipmentMethodID: true},
	}
	f.orders = &fakeOrderRepo{}
	f.cart = &fakeCart{items: []foreignclients.CartItem{{ShoppingCartItemID: f.cartItemID, ProductVariantID: f.variantID, Count: 2}}}
	f.inventory = &fakeInventory{available: map[uuid.UUID]uint32{f.variantID: 10}}
	f.discount = &fakeDiscount{byVariant: map[uuid.UUID][]foreignclients.Discount{}}
	f.shipment = &fakeShipment{fee: 500}
	return f
}

func (f *fixture) assembler() *Assembler {
	return NewAssembler(f.projection, f.orders, f.cart, f.inventory, f.discount, f.shipment, logrus.New())
}

func (f *fixture) input() CreateOrderInput {
	return CreateOrderInput{
		UserID:               f.userID,
		Items:                []OrderItemInput{{ShoppingCartItemID: f.cartItemID, ShipmentMethodID: f.shipmentMethodID}},
		ShipmentAddressID:    f.shipmentAddressID,
		InvoiceAddressID:     f.invoiceAddressID,
		PaymentInformationID: uuid.New(),
	}
}

func TestAssemble_HappyPath(t *testing.T) {
	f := newFixture(t, 1000)
	asm := f.assembler()

	order, err := asm.Assemble(context.Background(), f.input(), f.userID, "identity-token")
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	// compensatable_amount is the per-item retail price under the applied
	// discount factor (here 1.0, no discounts) — not multiplied by count.
	assert.Equal(t, uint64(1000), order.Items[0].CompensatableAmount)
	assert.Equal(t, uint64(1000), order.CompensatableOrderAmount)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Same(t, order, f.orders.created)
}

func TestAssemble_InsufficientStock_Fails(t *testing.T) {
	f := newFixture(t, 1000)
	f.inventory.available[f.variantID] = 1 // cart requests 2
	asm := f.assembler()

	_, err := asm.Assemble(context.Background(), f.input(), f.userID, "identity-token")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInventoryReservationFailed, apperr.KindOf(err))
}

func TestAssemble_WrongCaller_Denied(t *testing.T) {
	f := newFixture(t, 1000)
	asm := f.assembler()

	_, err := asm.Assemble(context.Background(), f.input(), uuid.New(), "identity-token")
	require.Error(t, err)
	assert.Equal(t, apperr.KindAuthDenied, apperr.KindOf(err))
}

func TestAssemble_NonPubliclyVisibleVariant_Rejected(t *testing.T) {
	f := newFixture(t, 1000)
	f.projection.variants[f.variantID].IsPubliclyVisible = false
	asm := f.assembler()

	_, err := asm.Assemble(context.Background(), f.input(), f.userID, "identity-token")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidOrderData, apperr.KindOf(err))
}

func TestAssemble_AddressNotOwnedByUser_Rejected(t *testing.T) {
	f := newFixture(t, 1000)
	asm := f.assembler()
	input := f.input()
	input.ShipmentAddressID = uuid.New() // not in user's address list

	_, err := asm.Assemble(context.Background(), input, f.userID, "identity-token")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidOrderData, apperr.KindOf(err))
}

func TestAssemble_UnknownShipmentMethod_Rejected(t *testing.T) {
	f := newFixture(t, 1000)
	asm := f.assembler()
	input := f.input()
	input.Items[0].ShipmentMethodID = uuid.New()

	_, err := asm.Assemble(context.Background(), input, f.userID, "identity-token")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidOrderData, apperr.KindOf(err))
}

// Discount composition is a left-fold over ids sorted ascending by
// string — order of arrival from the discount service must not change
// the resulting compensatable amount.
func TestAssemble_DiscountComposition_OrderIndependent(t *testing.T) {
	f := newFixture(t, 1000)
	discountA := foreignclients.Discount{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Discount: 0.9}
	discountB := foreignclients.Discount{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Discount: 0.5}

	f.discount.byVariant = map[uuid.UUID][]foreignclients.Discount{f.variantID: {discountB, discountA}}
	asm := f.assembler()
	orderForward, err := asm.Assemble(context.Background(), f.input(), f.userID, "identity-token")
	require.NoError(t, err)

	f2 := newFixture(t, 1000)
	f2.discount.byVariant = map[uuid.UUID][]foreignclients.Discount{f2.variantID: {discountA, discountB}}
	asm2 := f2.assembler()
	orderReversed, err := asm2.Assemble(context.Background(), f2.input(), f2.userID, "identity-token")
	require.NoError(t, err)

	assert.Equal(t, orderForward.Items[0].CompensatableAmount, orderReversed.Items[0].CompensatableAmount)
	assert.Equal(t, uint64(450), orderForward.Items[0].CompensatableAmount) // floor(1000 * 0.9 * 0.5)
}

func TestAssemble_DiscountComposition_DuplicateIDsDeduped(t *testing.T) {
	f := newFixture(t, 1000)
	discount := foreignclients.Discount{ID: uuid.New(), Discount: 0.5}
	f.discount.byVariant = map[uuid.UUID][]foreignclients.Discount{f.variantID: {discount, discount}}
	asm := f.assembler()

	order, err := asm.Assemble(context.Background(), f.input(), f.userID, "identity-token")
	require.NoError(t, err)
	// Applied once, not twice: floor(1000 * 0.5) = 500, not floor(1000*0.25).
	assert.Equal(t, uint64(500), order.Items[0].CompensatableAmount)
}

func TestAssemble_DuplicateProductVariantAcrossItems_Rejected(t *testing.T) {
	f := newFixture(t, 1000)
	secondCartItemID := uuid.New()
	f.cart.items = append(f.cart.items, foreignclients.CartItem{ShoppingCartItemID: secondCartItemID, ProductVariantID: f.variantID, Count: 1})
	asm := f.assembler()

	input := f.input()
	input.Items = append(input.Items, OrderItemInput{ShoppingCartItemID: secondCartItemID, ShipmentMethodID: f.shipmentMethodID})

	_, err := asm.Assemble(context.Background(), input, f.userID, "identity-token")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidOrderData, apperr.KindOf(err))
}

func TestAssemble_RejectsEmptyItemList(t *testing.T) {
	f := newFixture(t, 1000)
	asm := f.assembler()
	input := f.input()
	input.Items = nil

	_, err := asm.Assemble(context.Background(), input, f.userID, "identity-token")
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidOrderData, apperr.KindOf(err))
}
