package lifecycle

import (
	"context"
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
	order    *models.Order
	placed   *models.Order
	rejected *models.Order
}

func (f *fakeOrderRepo) Create(order *models.Order) error { return nil }
func (f *fakeOrderRepo) GetByID(id uuid.UUID) (*models.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, apperr.New(apperr.KindNotFound, "order", id.String(), "not found")
	}
	return f.order, nil
}
func (f *fakeOrderRepo) Place(id uuid.UUID, placedAt time.Time, paymentAuth *models.JSONB) (*models.Order, error) {
	placed := *f.order
	placed.Status = models.OrderStatusPlaced
	placed.PlacedAt = &placedAt
	placed.PaymentAuthorization = paymentAuth
	f.placed = &placed
	return &placed, nil
}
func (f *fakeOrderRepo) Reject(id uuid.UUID, reason models.RejectionReason) (*models.Order, error) {
	rejected := *f.order
	rejected.Status = models.OrderStatusRejected
	rejected.RejectionReason = &reason
	f.rejected = &rejected
	return &rejected, nil
}
func (f *fakeOrderRepo) ListByUser(userID uuid.UUID) ([]models.Order, error) { return nil, nil }
func (f *fakeOrderRepo) GetItemByID(id uuid.UUID) (*models.OrderItem, error) { return nil, nil }

type fakePublisher struct {
	published []*models.Order
}

func (f *fakePublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	f.published = append(f.published, order)
	return nil
}

func pendingOrder(userID uuid.UUID, createdAt time.Time) *models.Order {
	return &models.Order{ID: uuid.New(), UserID: userID, CreatedAt: createdAt, Status: models.OrderStatusPending}
}

func TestPlace_WithinWindow_PlacesAndPublishes(t *testing.T) {
	userID := uuid.New()
	order := pendingOrder(userID, time.Now().UTC())
	repo := &fakeOrderRepo{order: order}
	pub := &fakePublisher{}
	lc := NewLifecycle(repo, pub, time.Hour, logrus.New())

	placed, err := lc.Place(context.Background(), order.ID, userID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPlaced, placed.Status)
	assert.NotNil(t, placed.PlacedAt)
	require.Len(t, pub.published, 1)
}

func TestPlace_PastDeadline_LazilyRejectsWithTimeout(t *testing.T) {
	userID := uuid.New()
	order := pendingOrder(userID, time.Now().UTC().Add(-2*time.Hour))
	repo := &fakeOrderRepo{order: order}
	lc := NewLifecycle(repo, &fakePublisher{}, time.Hour, logrus.New())

	_, err := lc.Place(context.Background(), order.ID, userID, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindTimeoutRejected, apperr.KindOf(err))
	require.NotNil(t, repo.rejected)
	assert.Equal(t, models.RejectionReasonTimeout, *repo.rejected.RejectionReason)
}

func TestPlace_WrongCaller_Denied(t *testing.T) {
	order := pendingOrder(uuid.New(), time.Now().UTC())
	repo := &fakeOrderRepo{order: order}
	lc := NewLifecycle(repo, &fakePublisher{}, time.Hour, logrus.New())

	_, err := lc.Place(context.Background(), order.ID, uuid.New(), nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindAuthDenied, apperr.KindOf(err))
}

func TestPlace_WithPaymentAuthorization_Encoded(t *testing.T) {
	userID := uuid.New()
	order := pendingOrder(userID, time.Now().UTC())
	repo := &fakeOrderRepo{order: order}
	lc := NewLifecycle(repo, &fakePublisher{}, time.Hour, logrus.New())

	cvc := uint16(123)
	auth := &models.PaymentAuthorization{Type: "cvc", CVC: &cvc}
	placed, err := lc.Place(context.Background(), order.ID, userID, auth)
	require.NoError(t, err)
	require.NotNil(t, placed.PaymentAuthorization)
	assert.Contains(t, string(*placed.PaymentAuthorization), "cvc")
}
