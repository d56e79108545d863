package projection

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"order-core/internal/apperr"
	"order-core/internal/models"
)

type fakeRepo struct {
	users           map[uuid.UUID]*models.User
	variants        map[uuid.UUID]*models.ProductVariant
	taxRates        map[uuid.UUID]*models.TaxRate
	coupons         map[uuid.UUID]bool
	shipmentMethods map[uuid.UUID]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:           map[uuid.UUID]*models.User{},
		variants:        map[uuid.UUID]*models.ProductVariant{},
		taxRates:        map[uuid.UUID]*models.TaxRate{},
		coupons:         map[uuid.UUID]bool{},
		shipmentMethods: map[uuid.UUID]bool{},
	}
}

func (f *fakeRepo) UpsertUser(u *models.User) error { f.users[u.ID] = u; return nil }
func (f *fakeRepo) GetUser(id uuid.UUID) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, apperr.New(apperr.KindNotFound, "user", id.String(), "not found")
}
func (f *fakeRepo) UpsertProductVariant(v *models.ProductVariant) error { f.variants[v.ID] = v; return nil }
func (f *fakeRepo) GetProductVariant(id uuid.UUID) (*models.ProductVariant, error) {
	if v, ok := f.variants[id]; ok {
		return v, nil
	}
	return nil, apperr.New(apperr.KindNotFound, "product_variant", id.String(), "not found")
}
func (f *fakeRepo) UpsertTaxRate(t *models.TaxRate) error { f.taxRates[t.ID] = t; return nil }
func (f *fakeRepo) GetTaxRate(id uuid.UUID) (*models.TaxRate, error) {
	if t, ok := f.taxRates[id]; ok {
		return t, nil
	}
	return nil, apperr.New(apperr.KindNotFound, "tax_rate", id.String(), "not found")
}
func (f *fakeRepo) UpsertCoupon(c *models.Coupon) error { f.coupons[c.ID] = true; return nil }
func (f *fakeRepo) CouponExists(id uuid.UUID) (bool, error) { return f.coupons[id], nil }
func (f *fakeRepo) UpsertShipmentMethod(m *models.ShipmentMethod) error {
	f.shipmentMethods[m.ID] = true
	return nil
}
func (f *fakeRepo) ShipmentMethodExists(id uuid.UUID) (bool, error) { return f.shipmentMethods[id], nil }

type fakeCompensationEngine struct {
	calls []uuid.UUID
}

func (f *fakeCompensationEngine) Compensate(orderID uuid.UUID, orderItemIDs []uuid.UUID) error {
	f.calls = append(f.calls, orderID)
	return nil
}

func decodeIDs(t *testing.T, raw models.JSONB) []uuid.UUID {
	t.Helper()
	var ids []uuid.UUID
	require.NoError(t, json.Unmarshal(raw, &ids))
	return ids
}

func TestHandleUserAddressCreated_AppendsOnce(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	repo.users[userID] = &models.User{ID: userID, UserAddressIDs: models.JSONB("[]")}
	p := NewProjector(repo, &fakeCompensationEngine{}, logrus.New())

	addr := uuid.New()
	require.NoError(t, p.HandleUserAddressCreated(UserAddressEvent{ID: addr, UserID: userID}))
	require.NoError(t, p.HandleUserAddressCreated(UserAddressEvent{ID: addr, UserID: userID})) // replay

	ids := decodeIDs(t, repo.users[userID].UserAddressIDs)
	assert.Equal(t, []uuid.UUID{addr}, ids)
}

func TestHandleUserAddressArchived_RemovesAddress(t *testing.T) {
	repo := newFakeRepo()
	userID := uuid.New()
	addr1, addr2 := uuid.New(), uuid.New()
	encoded, err := json.Marshal([]uuid.UUID{addr1, addr2})
	require.NoError(t, err)
	repo.users[userID] = &models.User{ID: userID, UserAddressIDs: models.JSONB(encoded)}
	p := NewProjector(repo, &fakeCompensationEngine{}, logrus.New())

	require.NoError(t, p.HandleUserAddressArchived(UserAddressEvent{ID: addr1, UserID: userID}))

	ids := decodeIDs(t, repo.users[userID].UserAddressIDs)
	assert.Equal(t, []uuid.UUID{addr2}, ids)
}

func TestHandleProductVariantVersionCreated_CreatesVariantDefaultVisible(t *testing.T) {
	repo := newFakeRepo()
	p := NewProjector(repo, &fakeCompensationEngine{}, logrus.New())

	variantID, versionID, taxRateID := uuid.New(), uuid.New(), uuid.New()
	err := p.HandleProductVariantVersionCreated(ProductVariantVersionCreatedEvent{
		ID: versionID, RetailPrice: 1500, TaxRateID: taxRateID, ProductVariantID: variantID,
	})
	require.NoError(t, err)

	variant := repo.variants[variantID]
	require.NotNil(t, variant)
	assert.True(t, variant.IsPubliclyVisible)
	assert.Equal(t, uint32(1500), variant.CurrentVersion.RetailPrice)
}

func TestHandleProductVariantUpdated_ParsesWireBool(t *testing.T) {
	repo := newFakeRepo()
	variantID := uuid.New()
	repo.variants[variantID] = &models.ProductVariant{ID: variantID, IsPubliclyVisible: true}
	p := NewProjector(repo, &fakeCompensationEngine{}, logrus.New())

	require.NoError(t, p.HandleProductVariantUpdated(ProductVariantUpdatedEvent{ID: variantID, IsPubliclyVisible: "FALSE"}))
	assert.False(t, repo.variants[variantID].IsPubliclyVisible)

	require.NoError(t, p.HandleProductVariantUpdated(ProductVariantUpdatedEvent{ID: variantID, IsPubliclyVisible: "true"}))
	assert.True(t, repo.variants[variantID].IsPubliclyVisible)
}

func TestHandleProductVariantUpdated_RejectsInvalidWireValue(t *testing.T) {
	repo := newFakeRepo()
	variantID := uuid.New()
	repo.variants[variantID] = &models.ProductVariant{ID: variantID}
	p := NewProjector(repo, &fakeCompensationEngine{}, logrus.New())

	err := p.HandleProductVariantUpdated(ProductVariantUpdatedEvent{ID: variantID, IsPubliclyVisible: "yes"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidOrderData, apperr.KindOf(err))
}

func TestHandleShipmentCreationFailed_DelegatesToCompensationEngine(t *testing.T) {
	repo := newFakeRepo()
	engine := &fakeCompensationEngine{}
	p := NewProjector(repo, engine, logrus.New())

	orderID := uuid.New()
	require.NoError(t, p.HandleShipmentCreationFailed(ShipmentCreationFailedEvent{OrderID: orderID, OrderItemIDs: []uuid.UUID{uuid.New()}}))
	assert.Equal(t, []uuid.UUID{orderID}, engine.calls)
}
