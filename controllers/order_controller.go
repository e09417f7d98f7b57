package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopwise/shopwise-api/config"
	"github.com/shopwise/shopwise-api/models"
	"github.com/shopwise/shopwise-api/services"
	"github.com/shopwise/shopwise-api/utils"
)

// OrderItemRequest is one line of a new order
type OrderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

// ShippingAddressRequest is the delivery address of a new order
type ShippingAddressRequest struct {
	Street     string `json:"street" binding:"required"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

// CreateOrderRequest represents the request body for creating an order
type CreateOrderRequest struct {
	Items           []OrderItemRequest     `json:"items" binding:"required,min=1,dive"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address" binding:"required"`
}

// UpdateOrderStatusRequest represents the request body for changing order and/or payment status
type UpdateOrderStatusRequest struct {
	OrderStatus   *string `json:"order_status"`
	PaymentStatus *string `json:"payment_status"`
}

func orderService() *services.OrderService {
	return services.NewOrderService(config.GetDB(), services.GetEventPublisher())
}

// CreateOrder handles POST /api/v1/orders - places an order for the current user
func CreateOrder(c *gin.Context) {
	user, ok := requireCurrentUser(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	items := make([]services.LineItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = services.LineItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	address := models.ShippingAddress{
		Street:     req.ShippingAddress.Street,
		City:       req.ShippingAddress.City,
		State:      req.ShippingAddress.State,
		PostalCode: req.ShippingAddress.PostalCode,
		Country:    req.ShippingAddress.Country,
	}

	order, err := orderService().PlaceOrder(c.Request.Context(), user.ID, items, address)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusCreated, order)
}

// ListOrders handles GET /api/v1/orders - lists every order (admin and employee only)
func ListOrders(c *gin.Context) {
	listOrders(c, nil)
}

// ListMyOrders handles GET /api/v1/orders/mine - lists the current user's orders
func ListMyOrders(c *gin.Context) {
	user, ok := requireCurrentUser(c)
	if !ok {
		return
	}
	listOrders(c, &user.ID)
}

func listOrders(c *gin.Context, userID *uint) {
	page, limit := utils.ParsePagination(c.Query("page"), c.Query("limit"), services.DefaultPageSize, services.MaxPageSize)

	result, err := orderService().ListOrders(c.Request.Context(), services.OrderListQuery{
		Page:   page,
		Limit:  limit,
		Status: c.Query("status"),
		UserID: userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondPage(c, result.Orders, result.Page, result.Limit, result.Total)
}

// GetOrder handles GET /api/v1/orders/:id
// Staff can view any order; customers only their own.
func GetOrder(c *gin.Context) {
	user, ok := requireCurrentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	order, err := orderService().GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	if !user.IsStaff() && order.UserID != user.ID {
		respondWithError(c, http.StatusForbidden, "FORBIDDEN", "You do not have permission to view this order")
		return
	}

	respondData(c, http.StatusOK, order)
}

// UpdateOrderStatus handles PUT /api/v1/orders/:id/status - admin and employee only
func UpdateOrderStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := orderService().UpdateStatus(c.Request.Context(), id, services.StatusUpdate{
		OrderStatus:   req.OrderStatus,
		PaymentStatus: req.PaymentStatus,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, order)
}

// DeleteOrder handles DELETE /api/v1/orders/:id - admin and employee only.
// Reserved stock is returned to the catalog.
func DeleteOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := orderService().DeleteOrder(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{"message": "Order deleted"})
}
