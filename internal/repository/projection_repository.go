package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"order-core/internal/apperr"
	"order-core/internal/models"
)

// projectionCacheTTL bounds how long a projected entity is trusted from
// cache before the next read falls back to the store. The projection
// itself is already eventually consistent, so a short TTL here only
// trims repeated-fetch latency, not correctness.
const projectionCacheTTL = 5 * time.Minute

// ProjectionRepository is the durable collection store for the Reference
// Projection's local copies of foreign entities (spec §4.A, §6). Every
// Upsert is idempotent: replaying the same event twice leaves the row
// unchanged the second time.
type ProjectionRepository interface {
	UpsertUser(user *models.User) error
	GetUser(id uuid.UUID) (*models.User, error)

	UpsertProductVariant(variant *models.ProductVariant) error
	GetProductVariant(id uuid.UUID) (*models.ProductVariant, error)

	UpsertTaxRate(taxRate *models.TaxRate) error
	GetTaxRate(id uuid.UUID) (*models.TaxRate, error)

	UpsertCoupon(coupon *models.Coupon) error
	CouponExists(id uuid.UUID) (bool, error)

	UpsertShipmentMethod(method *models.ShipmentMethod) error
	ShipmentMethodExists(id uuid.UUID) (bool, error)
}

type projectionRepository struct {
	db     *gorm.DB
	redis  *redis.Client
	logger *logrus.Logger
}

// NewProjectionRepository creates a new projection repository. redisClient
// may be nil, in which case every read goes straight to the store.
func NewProjectionRepository(db *gorm.DB, redisClient *redis.Client, logger *logrus.Logger) ProjectionRepository {
	return &projectionRepository{db: db, redis: redisClient, logger: logger}
}

func (r *projectionRepository) UpsertUser(user *models.User) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_address_ids"}),
	}).Create(user).Error
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "user", user.ID.String(), err)
	}
	r.invalidate("user", user.ID)
	return nil
}

func (r *projectionRepository) GetUser(id uuid.UUID) (*models.User, error) {
	ctx := context.Background()
	cacheKey := "order-core:projection:user:" + id.String()

	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var user models.User
			if jsonErr := json.Unmarshal([]byte(val), &user); jsonErr == nil {
				return &user, nil
			}
		}
	}

	var user models.User
	if err := r.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "user", id.String(), "user not found")
		}
		return nil, apperr.Wrap(apperr.KindStorageError, "user", id.String(), err)
	}

	if r.redis != nil {
		if data, err := json.Marshal(user); err == nil {
			if err := r.redis.Set(ctx, cacheKey, data, projectionCacheTTL).Err(); err != nil {
				r.logger.WithError(err).Warn("failed to cache projected user")
			}
		}
	}
	return &user, nil
}

func (r *projectionRepository) UpsertProductVariant(variant *models.ProductVariant) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_version_id",
			"current_version_retail_price",
			"current_version_tax_rate_id",
			"current_version_product_variant_id",
			"is_publicly_visible",
		}),
	}).Create(variant).Error
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "product_variant", variant.ID.String(), err)
	}
	r.invalidate("product_variant", variant.ID)
	return nil
}

func (r *projectionRepository) GetProductVariant(id uuid.UUID) (*models.ProductVariant, error) {
	ctx := context.Background()
	cacheKey := "order-core:projection:product_variant:" + id.String()

	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var variant models.ProductVariant
			if jsonErr := json.Unmarshal([]byte(val), &variant); jsonErr == nil {
				return &variant, nil
			}
		}
	}

	var variant models.ProductVariant
	if err := r.db.First(&variant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "product_variant", id.String(), "product variant not found")
		}
		return nil, apperr.Wrap(apperr.KindStorageError, "product_variant", id.String(), err)
	}

	if r.redis != nil {
		if data, err := json.Marshal(variant); err == nil {
			if err := r.redis.Set(ctx, cacheKey, data, projectionCacheTTL).Err(); err != nil {
				r.logger.WithError(err).Warn("failed to cache projected product variant")
			}
		}
	}
	return &variant, nil
}

func (r *projectionRepository) UpsertTaxRate(taxRate *models.TaxRate) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_version_id",
			"current_version_rate",
			"current_version_version",
			"current_version_tax_rate_id",
		}),
	}).Create(taxRate).Error
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "tax_rate", taxRate.ID.String(), err)
	}
	r.invalidate("tax_rate", taxRate.ID)
	return nil
}

func (r *projectionRepository) GetTaxRate(id uuid.UUID) (*models.TaxRate, error) {
	ctx := context.Background()
	cacheKey := "order-core:projection:tax_rate:" + id.String()

	if r.redis != nil {
		if val, err := r.redis.Get(ctx, cacheKey).Result(); err == nil {
			var taxRate models.TaxRate
			if jsonErr := json.Unmarshal([]byte(val), &taxRate); jsonErr == nil {
				return &taxRate, nil
			}
		}
	}

	var taxRate models.TaxRate
	if err := r.db.First(&taxRate, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "tax_rate", id.String(), "tax rate not found")
		}
		return nil, apperr.Wrap(apperr.KindStorageError, "tax_rate", id.String(), err)
	}

	if r.redis != nil {
		if data, err := json.Marshal(taxRate); err == nil {
			if err := r.redis.Set(ctx, cacheKey, data, projectionCacheTTL).Err(); err != nil {
				r.logger.WithError(err).Warn("failed to cache projected tax rate")
			}
		}
	}
	return &taxRate, nil
}

func (r *projectionRepository) UpsertCoupon(coupon *models.Coupon) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(coupon).Error
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "coupon", coupon.ID.String(), err)
	}
	return nil
}

func (r *projectionRepository) CouponExists(id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Coupon{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, apperr.Wrap(apperr.KindStorageError, "coupon", id.String(), err)
	}
	return count > 0, nil
}

func (r *projectionRepository) UpsertShipmentMethod(method *models.ShipmentMethod) error {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(method).Error
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "shipment_method", method.ID.String(), err)
	}
	return nil
}

func (r *projectionRepository) ShipmentMethodExists(id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.Model(&models.ShipmentMethod{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, apperr.Wrap(apperr.KindStorageError, "shipment_method", id.String(), err)
	}
	return count > 0, nil
}

// invalidate drops a cached projection so the next read observes the
// freshly upserted row instead of a stale cached copy.
func (r *projectionRepository) invalidate(entity string, id uuid.UUID) {
	if r.redis == nil {
		return
	}
	key := "order-core:projection:" + entity + ":" + id.String()
	if err := r.redis.Del(context.Background(), key).Err(); err != nil {
		r.logger.WithError(err).Warn("failed to invalidate projection cache entry")
	}
}
