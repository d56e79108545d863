package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"order-core/internal/apperr"
	"order-core/internal/assembler"
	"order-core/internal/lifecycle"
	"order-core/internal/middleware"
	"order-core/internal/models"
	"order-core/internal/repository"
)

// ErrorResponse is the uniform JSON error body for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// OrderHandler serves the caller-facing operations named in spec §6:
// create_order, place_order, get_order, get_order_item, list_user_orders.
type OrderHandler struct {
	assembler *assembler.Assembler
	lifecycle *lifecycle.Lifecycle
	orders    repository.OrderRepository
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(asm *assembler.Assembler, lc *lifecycle.Lifecycle, orders repository.OrderRepository) *OrderHandler {
	return &OrderHandler{assembler: asm, lifecycle: lc, orders: orders}
}

// createOrderItemRequest mirrors one requested line of CreateOrderRequest.
type createOrderItemRequest struct {
	ShoppingCartItemID uuid.UUID   `json:"shoppingCartItemId" binding:"required"`
	ShipmentMethodID   uuid.UUID   `json:"shipmentMethodId" binding:"required"`
	CouponIDs          []uuid.UUID `json:"couponIds"`
}

// CreateOrderRequest is the JSON body for create_order.
type CreateOrderRequest struct {
	UserID               uuid.UUID                `json:"userId" binding:"required"`
	Items                []createOrderItemRequest `json:"orderItems" binding:"required,min=1"`
	ShipmentAddressID    uuid.UUID                `json:"shipmentAddressId" binding:"required"`
	InvoiceAddressID     uuid.UUID                `json:"invoiceAddressId" binding:"required"`
	PaymentInformationID uuid.UUID                `json:"paymentInformationId" binding:"required"`
	VATNumber            string                   `json:"vatNumber"`
}

// CreateOrder handles create_order(input, identity) -> Order (spec §4.C, §6).
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	callerID, ok := middleware.GetCallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: string(apperr.KindAuthDenied), Message: "missing caller identity"})
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: string(apperr.KindInvalidOrderData), Message: err.Error()})
		return
	}

	items := make([]assembler.OrderItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = assembler.OrderItemInput{
			ShoppingCartItemID: item.ShoppingCartItemID,
			ShipmentMethodID:   item.ShipmentMethodID,
			CouponIDs:          item.CouponIDs,
		}
	}
	input := assembler.CreateOrderInput{
		UserID:               req.UserID,
		Items:                items,
		ShipmentAddressID:    req.ShipmentAddressID,
		InvoiceAddressID:     req.InvoiceAddressID,
		PaymentInformationID: req.PaymentInformationID,
		VATNumber:            req.VATNumber,
	}

	order, err := h.assembler.Assemble(c.Request.Context(), input, callerID, c.GetHeader(middleware.CallerIdentityHeader))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// PlaceOrderRequest is the JSON body for place_order.
type PlaceOrderRequest struct {
	PaymentAuthorization *models.PaymentAuthorization `json:"paymentAuthorization"`
}

// PlaceOrder handles place_order({id, payment_authorization?}, identity) -> Order (spec §4.D, §6).
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	callerID, ok := middleware.GetCallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: string(apperr.KindAuthDenied), Message: "missing caller identity"})
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: string(apperr.KindInvalidOrderData), Message: "invalid order id"})
		return
	}

	var req PlaceOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: string(apperr.KindInvalidOrderData), Message: err.Error()})
			return
		}
	}

	order, err := h.lifecycle.Place(c.Request.Context(), orderID, callerID, req.PaymentAuthorization)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetOrder handles get_order(id, identity) -> Order (spec §6).
func (h *OrderHandler) GetOrder(c *gin.Context) {
	callerID, ok := middleware.GetCallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: string(apperr.KindAuthDenied), Message: "missing caller identity"})
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: string(apperr.KindInvalidOrderData), Message: "invalid order id"})
		return
	}

	order, err := h.orders.GetByID(orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	if order.UserID != callerID {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: string(apperr.KindAuthDenied), Message: "caller does not own this resource"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetOrderItem handles get_order_item(id, identity) -> OrderItem (spec §6).
func (h *OrderHandler) GetOrderItem(c *gin.Context) {
	callerID, ok := middleware.GetCallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: string(apperr.KindAuthDenied), Message: "missing caller identity"})
		return
	}

	itemID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: string(apperr.KindInvalidOrderData), Message: "invalid order item id"})
		return
	}

	item, err := h.orders.GetItemByID(itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	order, err := h.orders.GetByID(item.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}
	if order.UserID != callerID {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: string(apperr.KindAuthDenied), Message: "caller does not own this resource"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// ListUserOrders handles list_user_orders(user_id, ...) -> OrderConnection (spec §6).
// Cursor/offset pagination is left to the gateway fronting this service
// (spec §1 non-goal); this returns the caller's full order list, newest first.
func (h *OrderHandler) ListUserOrders(c *gin.Context) {
	callerID, ok := middleware.GetCallerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: string(apperr.KindAuthDenied), Message: "missing caller identity"})
		return
	}

	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: string(apperr.KindInvalidOrderData), Message: "invalid user id"})
		return
	}
	if userID != callerID {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: string(apperr.KindAuthDenied), Message: "caller does not own this resource"})
		return
	}

	orders, err := h.orders.ListByUser(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "totalCount": len(orders)})
}

// respondError maps a typed apperr.Kind to its HTTP status (spec §7).
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindAuthDenied:
		status = http.StatusUnauthorized
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindInvalidOrderData:
		status = http.StatusBadRequest
	case apperr.KindInventoryReservationFailed:
		status = http.StatusConflict
	case apperr.KindTimeoutRejected:
		status = http.StatusConflict
	case apperr.KindAlreadyCompensated:
		status = http.StatusConflict
	case apperr.KindExternalServiceError:
		status = http.StatusBadGateway
	case apperr.KindStorageError:
		status = http.StatusInternalServerError
	}

	message := err.Error()
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Msg
		if message == "" {
			message = appErr.Error()
		}
	}
	c.JSON(status, ErrorResponse{Error: string(kind), Message: message})
}
