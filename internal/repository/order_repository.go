package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"order-core/internal/apperr"
	"order-core/internal/models"
)

// OrderRepository is the durable collection store for the Order aggregate
// (spec §3, §6 "orders" collection).
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uuid.UUID) (*models.Order, error)
	// Place atomically transitions a pending order to placed. It only
	// succeeds while the order is still pending, so a racing place call
	// and a lazy timeout rejection can never both apply (spec §5).
	Place(id uuid.UUID, placedAt time.Time, paymentAuth *models.JSONB) (*models.Order, error)
	// Reject atomically transitions a pending order to rejected.
	Reject(id uuid.UUID, reason models.RejectionReason) (*models.Order, error)
	ListByUser(userID uuid.UUID) ([]models.Order, error)
	GetItemByID(id uuid.UUID) (*models.OrderItem, error)
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts a new pending order and its items in one transaction
// (spec §4.C step j: a single logical transaction, no distributed 2PC).
func (r *orderRepository) Create(order *models.Order) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(order).Error
	})
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "order", order.ID.String(), err)
	}
	return nil
}

// GetByID retrieves an order with its items.
func (r *orderRepository) GetByID(id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.Preload("Items").First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "order", id.String(), "order not found")
		}
		return nil, apperr.Wrap(apperr.KindStorageError, "order", id.String(), err)
	}
	return &order, nil
}

// GetItemByID retrieves a single order item by id.
func (r *orderRepository) GetItemByID(id uuid.UUID) (*models.OrderItem, error) {
	var item models.OrderItem
	err := r.db.First(&item, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "order_item", id.String(), "order item not found")
		}
		return nil, apperr.Wrap(apperr.KindStorageError, "order_item", id.String(), err)
	}
	return &item, nil
}

// ListByUser returns every order owned by the given user, most recent first.
func (r *orderRepository) ListByUser(userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.Preload("Items").Where("user_id = ?", userID).
		Order("created_at DESC").Find(&orders).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageError, "order", "", err)
	}
	return orders, nil
}

func (r *orderRepository) Place(id uuid.UUID, placedAt time.Time, paymentAuth *models.JSONB) (*models.Order, error) {
	updates := map[string]interface{}{
		"status":    models.OrderStatusPlaced,
		"placed_at": placedAt,
	}
	if paymentAuth != nil {
		updates["payment_authorization"] = paymentAuth
	}

	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, models.OrderStatusPending).
		Updates(updates)
	if result.Error != nil {
		return nil, apperr.Wrap(apperr.KindStorageError, "order", id.String(), result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.New(apperr.KindNotFound, "order", id.String(), "order is not pending")
	}
	return r.GetByID(id)
}

func (r *orderRepository) Reject(id uuid.UUID, reason models.RejectionReason) (*models.Order, error) {
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":           models.OrderStatusRejected,
			"rejection_reason": reason,
		})
	if result.Error != nil {
		return nil, apperr.Wrap(apperr.KindStorageError, "order", id.String(), result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.New(apperr.KindNotFound, "order", id.String(), "order is not pending")
	}
	return r.GetByID(id)
}
