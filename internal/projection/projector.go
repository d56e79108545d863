package projection

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"order-core/internal/apperr"
	"order-core/internal/compensation"
	"order-core/internal/models"
	"order-core/internal/repository"
)

// Projector applies inbound events to the durable projection store
// (spec §4.A). Every method is idempotent: replaying the same event
// twice leaves the row unchanged the second time.
type Projector struct {
	repo          repository.ProjectionRepository
	compensations compensation.Engine
	logger        *logrus.Entry
}

// NewProjector creates a new Projector.
func NewProjector(repo repository.ProjectionRepository, compensations compensation.Engine, logger *logrus.Logger) *Projector {
	return &Projector{
		repo:          repo,
		compensations: compensations,
		logger:        logger.WithField("component", "projection"),
	}
}

// HandleUserCreated creates a User with an empty address list.
func (p *Projector) HandleUserCreated(event IDEvent) error {
	return p.repo.UpsertUser(&models.User{ID: event.ID, UserAddressIDs: models.JSONB("[]")})
}

// HandleCouponCreated creates a Coupon.
func (p *Projector) HandleCouponCreated(event IDEvent) error {
	return p.repo.UpsertCoupon(&models.Coupon{ID: event.ID})
}

// HandleShipmentMethodCreated creates a ShipmentMethod.
func (p *Projector) HandleShipmentMethodCreated(event IDEvent) error {
	return p.repo.UpsertShipmentMethod(&models.ShipmentMethod{ID: event.ID})
}

// HandleUserAddressCreated appends the address id to the user's
// user_address_ids, a no-op if it is already present.
func (p *Projector) HandleUserAddressCreated(event UserAddressEvent) error {
	user, err := p.repo.GetUser(event.UserID)
	if err != nil {
		return err
	}

	ids, err := decodeUUIDList(user.UserAddressIDs)
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "user", event.UserID.String(), err)
	}
	for _, id := range ids {
		if id == event.ID {
			return nil
		}
	}
	ids = append(ids, event.ID)

	encoded, err := encodeUUIDList(ids)
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "user", event.UserID.String(), err)
	}
	user.UserAddressIDs = encoded
	return p.repo.UpsertUser(user)
}

// HandleUserAddressArchived removes the address id from the user's
// user_address_ids, a no-op if it is absent.
func (p *Projector) HandleUserAddressArchived(event UserAddressEvent) error {
	user, err := p.repo.GetUser(event.UserID)
	if err != nil {
		return err
	}

	ids, err := decodeUUIDList(user.UserAddressIDs)
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "user", event.UserID.String(), err)
	}

	filtered := ids[:0]
	for _, id := range ids {
		if id != event.ID {
			filtered = append(filtered, id)
		}
	}

	encoded, err := encodeUUIDList(filtered)
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "user", event.UserID.String(), err)
	}
	user.UserAddressIDs = encoded
	return p.repo.UpsertUser(user)
}

// HandleProductVariantVersionCreated sets the variant's current_version,
// creating the variant (publicly visible by default) if it does not yet
// exist. Because only the current-version pointer is stored, a
// reordered delivery relative to product-variant/updated may overwrite
// a newer version with an older one; order construction freezes the
// snapshot it reads at creation time, so this never retroactively
// mis-prices an already-placed order (spec §4.A ordering note).
func (p *Projector) HandleProductVariantVersionCreated(event ProductVariantVersionCreatedEvent) error {
	variant, err := p.repo.GetProductVariant(event.ProductVariantID)
	if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
		return err
	}
	if err != nil {
		variant = &models.ProductVariant{ID: event.ProductVariantID, IsPubliclyVisible: true}
	}

	variant.CurrentVersion = models.ProductVariantVersion{
		ID:               event.ID,
		RetailPrice:      event.RetailPrice,
		TaxRateID:        event.TaxRateID,
		ProductVariantID: event.ProductVariantID,
	}
	return p.repo.UpsertProductVariant(variant)
}

// HandleProductVariantUpdated sets is_publicly_visible on the variant. The
// wire value is a string, bit-exact to the upstream source (spec §9).
func (p *Projector) HandleProductVariantUpdated(event ProductVariantUpdatedEvent) error {
	visible, err := parseWireBool(event.IsPubliclyVisible)
	if err != nil {
		return apperr.New(apperr.KindInvalidOrderData, "product_variant", event.ID.String(), err.Error())
	}

	variant, err := p.repo.GetProductVariant(event.ID)
	if err != nil {
		return err
	}
	variant.IsPubliclyVisible = visible
	return p.repo.UpsertProductVariant(variant)
}

// HandleTaxRateVersionCreated upserts the TaxRate and sets its
// current_version to the new version.
func (p *Projector) HandleTaxRateVersionCreated(event TaxRateVersionCreatedEvent) error {
	taxRate, err := p.repo.GetTaxRate(event.TaxRateID)
	if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
		return err
	}
	if err != nil {
		taxRate = &models.TaxRate{ID: event.TaxRateID}
	}

	taxRate.CurrentVersion = models.TaxRateVersion{
		ID:        event.ID,
		Rate:      event.Rate,
		Version:   event.Version,
		TaxRateID: event.TaxRateID,
	}
	return p.repo.UpsertTaxRate(taxRate)
}

// HandleShipmentCreationFailed hands the event off to the Compensation
// Engine (spec §4.A, §4.E).
func (p *Projector) HandleShipmentCreationFailed(event ShipmentCreationFailedEvent) error {
	return p.compensations.Compensate(event.OrderID, event.OrderItemIDs)
}

// parseWireBool parses the case-insensitive "true"/"false" wire string
// the upstream source emits for is_publicly_visible (spec §9 decision:
// reject any other value rather than silently defaulting).
func parseWireBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid isPubliclyVisible value %q", raw)
	}
}

func decodeUUIDList(raw models.JSONB) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func encodeUUIDList(ids []uuid.UUID) (models.JSONB, error) {
	if ids == nil {
		ids = []uuid.UUID{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return models.JSONB(data), nil
}
