package compensation

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
	"order-core/internal/models"
)

type fakeOrderRepo struct {
	order *models.Order
}

func (f *fakeOrderRepo) Create(order *models.Order) error { return nil }
func (f *fakeOrderRepo) GetByID(id uuid.UUID) (*models.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, apperr.New(apperr.KindNotFound, "order", id.String(), "not found")
	}
	return f.order, nil
}
func (f *fakeOrderRepo) Place(id uuid.UUID, placedAt time.Time, paymentAuth *models.JSONB) (*models.Order, error) {
	return nil, nil
}
func (f *fakeOrderRepo) Reject(id uuid.UUID, reason models.RejectionReason) (*models.Order, error) {
	return nil, nil
}
func (f *fakeOrderRepo) ListByUser(userID uuid.UUID) ([]models.Order, error) { return nil, nil }
func (f *fakeOrderRepo) GetItemByID(id uuid.UUID) (*models.OrderItem, error) { return nil, nil }

type fakeCompensationRepo struct {
	compensated map[uuid.UUID]bool
	created     []*models.OrderCompensation
}

func newFakeCompensationRepo() *fakeCompensationRepo {
	return &fakeCompensationRepo{compensated: map[uuid.UUID]bool{}}
}

func (f *fakeCompensationRepo) Create(c *models.OrderCompensation) error {
	f.created = append(f.created, c)
	var ids []uuid.UUID
	_ = json.Unmarshal(c.OrderItemIDs, &ids)
	for _, id := range ids {
		f.compensated[id] = true
	}
	return nil
}

func (f *fakeCompensationRepo) AlreadyCompensated(orderItemIDs []uuid.UUID) (bool, error) {
	for _, id := range orderItemIDs {
		if f.compensated[id] {
			return true, nil
		}
	}
	return false, nil
}

type fakePublisher struct {
	published []*models.OrderCompensation
}

func (f *fakePublisher) PublishOrderCompensationCreated(ctx context.Context, c *models.OrderCompensation) error {
	f.published = append(f.published, c)
	return nil
}

func testOrder(itemIDs []uuid.UUID, amounts []uint64) *models.Order {
	items := make([]models.OrderItem, len(itemIDs))
	for i, id := range itemIDs {
		items[i] = models.OrderItem{ID: id, CompensatableAmount: amounts[i]}
	}
	return &models.Order{ID: uuid.New(), Items: items}
}

func TestCompensate_SumsMatchingItemsOnly(t *testing.T) {
	item1, item2, item3 := uuid.New(), uuid.New(), uuid.New()
	order := testOrder([]uuid.UUID{item1, item2, item3}, []uint64{1000, 2000, 3000})

	orders := &fakeOrderRepo{order: order}
	compensations := newFakeCompensationRepo()
	publisher := &fakePublisher{}
	eng := NewEngine(orders, compensations, publisher, logrus.New())

	err := eng.Compensate(order.ID, []uuid.UUID{item1, item3})
	require.NoError(t, err)

	require.Len(t, compensations.created, 1)
	assert.Equal(t, uint64(4000), compensations.created[0].AmountToCompensate)
	require.Len(t, publisher.published, 1)
	assert.Equal(t, compensations.created[0].ID, publisher.published[0].ID)
}

func TestCompensate_EmptyItemListTriviallyAccepted(t *testing.T) {
	order := testOrder([]uuid.UUID{uuid.New()}, []uint64{1000})
	orders := &fakeOrderRepo{order: order}
	compensations := newFakeCompensationRepo()
	publisher := &fakePublisher{}
	eng := NewEngine(orders, compensations, publisher, logrus.New())

	err := eng.Compensate(order.ID, nil)
	require.NoError(t, err)

	require.Len(t, compensations.created, 1)
	assert.Equal(t, uint64(0), compensations.created[0].AmountToCompensate)
	var ids []uuid.UUID
	require.NoError(t, json.Unmarshal(compensations.created[0].OrderItemIDs, &ids))
	assert.Empty(t, ids)
	require.Len(t, publisher.published, 1)
}

func TestCompensate_RejectsUnknownOrder(t *testing.T) {
	orders := &fakeOrderRepo{}
	eng := NewEngine(orders, newFakeCompensationRepo(), &fakePublisher{}, logrus.New())

	err := eng.Compensate(uuid.New(), []uuid.UUID{uuid.New()})
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCompensate_GlobalDoubleCompensationRejected(t *testing.T) {
	item1 := uuid.New()
	order := testOrder([]uuid.UUID{item1}, []uint64{500})
	orders := &fakeOrderRepo{order: order}
	compensations := newFakeCompensationRepo()
	eng := NewEngine(orders, compensations, &fakePublisher{}, logrus.New())

	require.NoError(t, eng.Compensate(order.ID, []uuid.UUID{item1}))

	err := eng.Compensate(order.ID, []uuid.UUID{item1})
	require.Error(t, err)
	assert.Equal(t, apperr.KindAlreadyCompensated, apperr.KindOf(err))
}
