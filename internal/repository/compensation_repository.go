package repository

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"order-core/internal/apperr"
	"order-core/internal/models"
)

// CompensationRepository is the durable collection store for compensation
// records (spec §3, §4.E). Compensation double-application is checked
// globally across every order, not scoped to the order being compensated
// (spec §9 open question), so AlreadyCompensated inspects the whole table.
type CompensationRepository interface {
	Create(compensation *models.OrderCompensation) error
	// AlreadyCompensated reports whether any of the given order item ids
	// appear in any existing compensation record, across all orders.
	AlreadyCompensated(orderItemIDs []uuid.UUID) (bool, error)
}

type compensationRepository struct {
	db *gorm.DB
}

// NewCompensationRepository creates a new compensation repository.
func NewCompensationRepository(db *gorm.DB) CompensationRepository {
	return &compensationRepository{db: db}
}

func (r *compensationRepository) Create(compensation *models.OrderCompensation) error {
	if err := r.db.Create(compensation).Error; err != nil {
		return apperr.Wrap(apperr.KindStorageError, "order_compensation", compensation.ID.String(), err)
	}
	return nil
}

// AlreadyCompensated loads every compensation record's order_item_ids and
// checks set membership in Go rather than a jsonb containment operator, so
// the query does not depend on Postgres-specific jsonb operators.
func (r *compensationRepository) AlreadyCompensated(orderItemIDs []uuid.UUID) (bool, error) {
	seek := make(map[uuid.UUID]struct{}, len(orderItemIDs))
	for _, id := range orderItemIDs {
		seek[id] = struct{}{}
	}

	var rows []models.OrderCompensation
	if err := r.db.Select("order_item_ids").Find(&rows).Error; err != nil {
		return false, apperr.Wrap(apperr.KindStorageError, "order_compensation", "", err)
	}

	for _, row := range rows {
		var ids []uuid.UUID
		if len(row.OrderItemIDs) == 0 {
			continue
		}
		if err := json.Unmarshal(row.OrderItemIDs, &ids); err != nil {
			return false, apperr.Wrap(apperr.KindStorageError, "order_compensation", "", err)
		}
		for _, id := range ids {
			if _, found := seek[id]; found {
				return true, nil
			}
		}
	}
	return false, nil
}
