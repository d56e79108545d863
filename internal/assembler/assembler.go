package assembler

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"order-core/internal/apperr"
	"order-core/internal/authz"
	"order-core/internal/foreignclients"
	"order-core/internal/models"
	"order-core/internal/repository"
)

// Assembler implements the Order Assembler (spec §4.C).
type Assembler struct {
	projection repository.ProjectionRepository
	orders     repository.OrderRepository
	cart       foreignclients.CartClient
	inventory  foreignclients.InventoryClient
	discount   foreignclients.DiscountClient
	shipment   foreignclients.ShipmentClient
	logger     *logrus.Entry
}

// NewAssembler creates a new Assembler.
func NewAssembler(
	projection repository.ProjectionRepository,
	orders repository.OrderRepository,
	cart foreignclients.CartClient,
	inventory foreignclients.InventoryClient,
	discount foreignclients.DiscountClient,
	shipment foreignclients.ShipmentClient,
	logger *logrus.Logger,
) *Assembler {
	return &Assembler{
		projection: projection,
		orders:     orders,
		cart:       cart,
		inventory:  inventory,
		discount:   discount,
		shipment:   shipment,
		logger:     logger.WithField("component", "assembler"),
	}
}

// Assemble validates input, fans out to the projection and foreign
// clients, and persists a new pending Order (spec §4.C). callerID is
// checked against input.UserID (precondition 1); callerIdentity is the
// raw forwarded header value re-sent verbatim to the cart and discount
// queries, which require it.
func (a *Assembler) Assemble(ctx context.Context, input CreateOrderInput, callerID uuid.UUID, callerIdentity string) (*models.Order, error) {
	if err := authz.RequireOwner(callerID, input.UserID); err != nil {
		return nil, err
	}
	if len(input.Items) == 0 {
		return nil, apperr.New(apperr.KindInvalidOrderData, "order", "", "order must contain at least one item")
	}

	user, err := a.projection.GetUser(input.UserID)
	if err != nil {
		return nil, err
	}

	if err := a.checkShipmentMethodsExist(input.Items); err != nil {
		return nil, err
	}
	if err := a.checkCouponsExist(input.Items); err != nil {
		return nil, err
	}
	if err := a.checkAddressesBelongToUser(user, input.ShipmentAddressID, input.InvoiceAddressID); err != nil {
		return nil, err
	}

	// a. Resolve each input against the user's current cart.
	cartItems, err := a.cart.GetCart(input.UserID, callerIdentity)
	if err != nil {
		return nil, err
	}
	cartByItemID := make(map[uuid.UUID]foreignclients.CartItem, len(cartItems))
	for _, item := range cartItems {
		cartByItemID[item.ShoppingCartItemID] = item
	}

	counts := make(map[uuid.UUID]uint32, len(input.Items))       // M1
	inputsByVariant := make(map[uuid.UUID]OrderItemInput, len(input.Items)) // M2
	variantOrder := make([]uuid.UUID, 0, len(input.Items))
	seenVariants := make(map[uuid.UUID]bool, len(input.Items))
	for _, item := range input.Items {
		cartItem, ok := cartByItemID[item.ShoppingCartItemID]
		if !ok {
			return nil, apperr.New(apperr.KindInvalidOrderData, "shopping_cart_item", item.ShoppingCartItemID.String(), "cart item not found")
		}
		if seenVariants[cartItem.ProductVariantID] {
			return nil, apperr.New(apperr.KindInvalidOrderData, "product_variant", cartItem.ProductVariantID.String(), "duplicate product variant across order items")
		}
		seenVariants[cartItem.ProductVariantID] = true
		counts[cartItem.ProductVariantID] = cartItem.Count
		inputsByVariant[cartItem.ProductVariantID] = item
		variantOrder = append(variantOrder, cartItem.ProductVariantID)
	}

	// b. Fetch and validate visibility of each product variant.
	variants := make(map[uuid.UUID]*models.ProductVariant, len(counts))
	for variantID := range counts {
		variant, err := a.projection.GetProductVariant(variantID)
		if err != nil {
			return nil, err
		}
		if !variant.IsPubliclyVisible {
			return nil, apperr.New(apperr.KindInvalidOrderData, "product_variant", variantID.String(), "product variant is not publicly visible")
		}
		variants[variantID] = variant
	}

	// c. Project the current version for each variant.
	versions := make(map[uuid.UUID]models.ProductVariantVersion, len(variants)) // M3
	for variantID, variant := range variants {
		versions[variantID] = variant.CurrentVersion
	}

	// d, e, g have no inter-dependency after (b); fan them out concurrently.
	var (
		stockByVariant   map[uuid.UUID]uint32
		taxRatesByVariant map[uuid.UUID]models.TaxRateVersion
		shipmentFee      uint64
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		stockByVariant, err = a.fetchStock(counts)
		return err
	})
	group.Go(func() error {
		var err error
		taxRatesByVariant, err = a.fetchTaxRates(versions)
		return err
	})
	group.Go(func() error {
		fee, err := a.fetchShipmentFee(gctx, versions, counts, inputsByVariant)
		shipmentFee = fee
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}
	// The aggregate shipment fee is computed but not persisted to any
	// field in the present design (spec §9 open question); it is logged
	// only so the call is observably not a dead letter.
	a.logger.WithField("shipment_fee", shipmentFee).Debug("computed shipment fee (unused)")

	for variantID, requested := range counts {
		if stockByVariant[variantID] < requested {
			return nil, apperr.New(apperr.KindInventoryReservationFailed, "product_variant", variantID.String(), "insufficient stock")
		}
	}

	// f. Compute order amount for discount input and query discounts.
	var orderAmount uint64
	for variantID, count := range counts {
		orderAmount += uint64(versions[variantID].RetailPrice) * uint64(count)
	}

	discountQueryItems := make([]foreignclients.DiscountQueryItem, 0, len(counts))
	for _, variantID := range variantOrder {
		discountQueryItems = append(discountQueryItems, foreignclients.DiscountQueryItem{
			ProductVariantID: variantID,
			Count:            counts[variantID],
			CouponIDs:        inputsByVariant[variantID].CouponIDs,
		})
	}
	discountsByVariant, err := a.discount.GetDiscounts(input.UserID, orderAmount, discountQueryItems, callerIdentity)
	if err != nil {
		return nil, err
	}

	// h. Construct order items.
	now := time.Now().UTC()
	items := make([]models.OrderItem, 0, len(variantOrder))
	for _, variantID := range variantOrder {
		version := versions[variantID]
		taxVersion := taxRatesByVariant[variantID]
		input := inputsByVariant[variantID]

		discounts := append([]foreignclients.Discount(nil), discountsByVariant[variantID]...)
		sort.Slice(discounts, func(i, j int) bool {
			return discounts[i].ID.String() < discounts[j].ID.String()
		})

		factor := 1.0
		discountIDs := make([]uuid.UUID, 0, len(discounts))
		seen := make(map[uuid.UUID]struct{}, len(discounts))
		for _, d := range discounts {
			if _, ok := seen[d.ID]; ok {
				continue
			}
			seen[d.ID] = struct{}{}
			factor *= d.Discount
			discountIDs = append(discountIDs, d.ID)
		}

		compensatableAmount := uint64(math.Floor(float64(version.RetailPrice) * factor))
		discountIDsJSON, err := encodeUUIDList(discountIDs)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStorageError, "order_item", "", err)
		}

		items = append(items, models.OrderItem{
			ID:                      uuid.New(),
			CreatedAt:               now,
			ProductVariantID:        variantID,
			ProductVariantVersionID: version.ID,
			TaxRateVersionID:        taxVersion.ID,
			ShoppingCartItemID:      input.ShoppingCartItemID,
			ShipmentMethodID:        input.ShipmentMethodID,
			Count:                   counts[variantID],
			CompensatableAmount:     compensatableAmount,
			DiscountIDs:             discountIDsJSON,
		})
	}

	// i. Sum the order's compensatable amount.
	var orderTotal uint64
	for _, item := range items {
		orderTotal += item.CompensatableAmount
	}

	// j. Construct and persist the order.
	order := &models.Order{
		ID:                       uuid.New(),
		UserID:                   input.UserID,
		CreatedAt:                now,
		Status:                   models.OrderStatusPending,
		Items:                    items,
		ShipmentAddressID:        input.ShipmentAddressID,
		InvoiceAddressID:         input.InvoiceAddressID,
		PaymentInformationID:     input.PaymentInformationID,
		VATNumber:                input.VATNumber,
		CompensatableOrderAmount: orderTotal,
	}

	if err := a.orders.Create(order); err != nil {
		return nil, err
	}
	return order, nil
}

func (a *Assembler) checkShipmentMethodsExist(items []OrderItemInput) error {
	checked := make(map[uuid.UUID]struct{}, len(items))
	for _, item := range items {
		if _, ok := checked[item.ShipmentMethodID]; ok {
			continue
		}
		checked[item.ShipmentMethodID] = struct{}{}
		exists, err := a.projection.ShipmentMethodExists(item.ShipmentMethodID)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.New(apperr.KindInvalidOrderData, "shipment_method", item.ShipmentMethodID.String(), "shipment method does not exist")
		}
	}
	return nil
}

func (a *Assembler) checkCouponsExist(items []OrderItemInput) error {
	checked := make(map[uuid.UUID]struct{})
	for _, item := range items {
		for _, couponID := range item.CouponIDs {
			if _, ok := checked[couponID]; ok {
				continue
			}
			checked[couponID] = struct{}{}
			exists, err := a.projection.CouponExists(couponID)
			if err != nil {
				return err
			}
			if !exists {
				return apperr.New(apperr.KindInvalidOrderData, "coupon", couponID.String(), "coupon does not exist")
			}
		}
	}
	return nil
}

func (a *Assembler) checkAddressesBelongToUser(user *models.User, shipmentAddressID, invoiceAddressID uuid.UUID) error {
	addressIDs, err := decodeUUIDList(user.UserAddressIDs)
	if err != nil {
		return apperr.Wrap(apperr.KindStorageError, "user", user.ID.String(), err)
	}
	present := make(map[uuid.UUID]struct{}, len(addressIDs))
	for _, id := range addressIDs {
		present[id] = struct{}{}
	}
	if _, ok := present[shipmentAddressID]; !ok {
		return apperr.New(apperr.KindInvalidOrderData, "user_address", shipmentAddressID.String(), "shipment address does not belong to the user")
	}
	if _, ok := present[invoiceAddressID]; !ok {
		return apperr.New(apperr.KindInvalidOrderData, "user_address", invoiceAddressID.String(), "invoice address does not belong to the user")
	}
	return nil
}

func (a *Assembler) fetchStock(counts map[uuid.UUID]uint32) (map[uuid.UUID]uint32, error) {
	query := make([]foreignclients.InventoryQueryItem, 0, len(counts))
	for variantID, count := range counts {
		query = append(query, foreignclients.InventoryQueryItem{ProductVariantID: variantID, Requested: count})
	}
	results, err := a.inventory.CheckStock(query)
	if err != nil {
		return nil, err
	}
	byVariant := make(map[uuid.UUID]uint32, len(results))
	for _, r := range results {
		byVariant[r.ProductVariantID] = r.Available
	}
	return byVariant, nil
}

func (a *Assembler) fetchTaxRates(versions map[uuid.UUID]models.ProductVariantVersion) (map[uuid.UUID]models.TaxRateVersion, error) {
	byVariant := make(map[uuid.UUID]models.TaxRateVersion, len(versions))
	for variantID, version := range versions {
		taxRate, err := a.projection.GetTaxRate(version.TaxRateID)
		if err != nil {
			return nil, err
		}
		byVariant[variantID] = taxRate.CurrentVersion
	}
	return byVariant, nil
}

func (a *Assembler) fetchShipmentFee(_ context.Context, versions map[uuid.UUID]models.ProductVariantVersion, counts map[uuid.UUID]uint32, inputs map[uuid.UUID]OrderItemInput) (uint64, error) {
	query := make([]foreignclients.ShipmentFeeQueryItem, 0, len(versions))
	for variantID, version := range versions {
		query = append(query, foreignclients.ShipmentFeeQueryItem{
			ProductVariantVersionID: version.ID,
			Quantity:                counts[variantID],
			ShipmentMethodID:        inputs[variantID].ShipmentMethodID,
		})
	}
	return a.shipment.GetShipmentFee(query)
}
