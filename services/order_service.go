package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopwise/shopwise-api/apperrors"
	"github.com/shopwise/shopwise-api/models"
	"github.com/shopwise/shopwise-api/utils"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// LineItem is a requested (product, quantity) pair
type LineItem struct {
	ProductID uint
	Quantity  int
}

// StatusUpdate carries the requested order and/or payment status
type StatusUpdate struct {
	OrderStatus   *string
	PaymentStatus *string
}

// OrderListQuery selects one page of orders
type OrderListQuery struct {
	Page   int
	Limit  int
	Status string
	UserID *uint
}

// OrderPage is one page of orders plus paging totals
type OrderPage struct {
	Orders     []models.Order
	Page       int
	Limit      int
	Total      int64
	TotalPages int
}

// OrderEvent is the payload of order events
type OrderEvent struct {
	OrderID       uint            `json:"order_id"`
	UserID        uint            `json:"user_id"`
	OrderStatus   string          `json:"order_status"`
	PaymentStatus string          `json:"payment_status"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Items         []LineItemEvent `json:"items"`
}

type LineItemEvent struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// OrderService implements the order/inventory workflow. Every operation that
// touches stock runs in a single transaction so that a failure leaves the
// catalog exactly as it was.
type OrderService struct {
	db        *gorm.DB
	catalog   CatalogStore
	publisher EventPublisher
}

// NewOrderService creates an order service on db
func NewOrderService(db *gorm.DB, publisher EventPublisher) *OrderService {
	return &OrderService{
		db:        db,
		catalog:   NewCatalogStore(db),
		publisher: publisher,
	}
}

// PlaceOrder reserves stock for every line item and persists the order.
// Either every line is reserved and the order exists, or nothing changes.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uint, items []LineItem, address models.ShippingAddress) (*models.Order, error) {
	if len(items) == 0 {
		return nil, apperrors.Validation("VALIDATION_ERROR", "An order needs at least one item")
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, apperrors.Validation("VALIDATION_ERROR", fmt.Sprintf("Quantity for product %d must be positive", item.ProductID))
		}
	}

	order := models.Order{
		UserID:          userID,
		ShippingAddress: address,
		OrderStatus:     models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		catalog := s.catalog.WithTx(tx)
		total := decimal.Zero

		// Rows are locked in ascending product id so that concurrent orders
		// over the same products cannot deadlock.
		reserveOrder := make([]int, len(items))
		for i := range reserveOrder {
			reserveOrder[i] = i
		}
		sort.SliceStable(reserveOrder, func(a, b int) bool {
			return items[reserveOrder[a]].ProductID < items[reserveOrder[b]].ProductID
		})

		lines := make([]models.OrderItem, len(items))
		for _, idx := range reserveOrder {
			item := items[idx]
			product, err := catalog.GetProduct(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if !product.IsActive {
				return apperrors.NotFound("PRODUCT_NOT_FOUND", fmt.Sprintf("Product %d not found", item.ProductID))
			}
			if item.Quantity > product.Stock {
				return apperrors.InsufficientStock(product.ID, item.Quantity, product.Stock)
			}

			if err := catalog.ApplyStockDelta(ctx, product.ID, -item.Quantity); err != nil {
				if apperrors.Is(err, apperrors.KindInvalidState) {
					// Another order took the stock between the read and the write
					return s.insufficientStock(ctx, catalog, product.ID, item.Quantity)
				}
				return err
			}

			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			lines[idx] = models.OrderItem{
				ProductID: product.ID,
				Quantity:  item.Quantity,
				UnitPrice: product.Price,
			}
		}

		order.Items = lines
		order.TotalPrice = total
		if err := tx.Create(&order).Error; err != nil {
			return apperrors.Unexpected(err, "Failed to create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.publisher, EventOrderPlaced, newOrderEvent(&order))

	return s.GetOrder(ctx, order.ID)
}

func (s *OrderService) insufficientStock(ctx context.Context, catalog CatalogStore, productID uint, requested int) error {
	current, err := catalog.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	return apperrors.InsufficientStock(productID, requested, current.Stock)
}

// GetOrder loads an order with its user and line items
func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("User").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") }).
		Preload("Items.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("ORDER_NOT_FOUND", "Order not found")
		}
		return nil, apperrors.Unexpected(err, "Failed to load order")
	}
	return &order, nil
}

// DeleteOrder returns reserved stock to the catalog and removes the order
func (s *OrderService) DeleteOrder(ctx context.Context, id uint) error {
	var deleted models.Order

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.loadForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !order.IsDeletable() {
			return apperrors.InvalidState("ORDER_NOT_DELETABLE", fmt.Sprintf("Orders with status %s cannot be deleted", order.OrderStatus))
		}

		if !order.StockReleased {
			if err := s.releaseStock(ctx, tx, order); err != nil {
				return err
			}
		}

		if err := tx.Delete(&models.Order{}, order.ID).Error; err != nil {
			return apperrors.Unexpected(err, "Failed to delete order")
		}
		deleted = *order
		return nil
	})
	if err != nil {
		return err
	}

	publishEvent(ctx, s.publisher, EventOrderDeleted, newOrderEvent(&deleted))
	return nil
}

// UpdateStatus moves an order along the order and payment status graphs.
// Cancelling returns the reserved stock in the same transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, update StatusUpdate) (*models.Order, error) {
	if update.OrderStatus == nil && update.PaymentStatus == nil {
		return nil, apperrors.Validation("VALIDATION_ERROR", "order_status or payment_status is required")
	}
	if update.OrderStatus != nil && !models.ValidOrderStatus(*update.OrderStatus) {
		return nil, apperrors.Validation("INVALID_STATUS", fmt.Sprintf("Unknown order status %q", *update.OrderStatus))
	}
	if update.PaymentStatus != nil && !models.ValidPaymentStatus(*update.PaymentStatus) {
		return nil, apperrors.Validation("INVALID_STATUS", fmt.Sprintf("Unknown payment status %q", *update.PaymentStatus))
	}

	var changed *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.loadForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if next := update.OrderStatus; next != nil && *next != order.OrderStatus {
			if !models.CanTransitionOrder(order.OrderStatus, *next) {
				return apperrors.InvalidState("INVALID_STATUS_TRANSITION",
					fmt.Sprintf("Order status cannot change from %s to %s", order.OrderStatus, *next))
			}
			if *next == models.OrderStatusCancelled && !order.StockReleased {
				if err := s.releaseStock(ctx, tx, order); err != nil {
					return err
				}
			}
			updates["order_status"] = *next
		}
		if next := update.PaymentStatus; next != nil && *next != order.PaymentStatus {
			if !models.CanTransitionPayment(order.PaymentStatus, *next) {
				return apperrors.InvalidState("INVALID_STATUS_TRANSITION",
					fmt.Sprintf("Payment status cannot change from %s to %s", order.PaymentStatus, *next))
			}
			updates["payment_status"] = *next
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			return apperrors.Unexpected(err, "Failed to update order status")
		}
		changed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	result, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if changed != nil {
		publishEvent(ctx, s.publisher, EventOrderStatusChanged, newOrderEvent(result))
	}
	return result, nil
}

// ListOrders returns one page of orders, newest first
func (s *OrderService) ListOrders(ctx context.Context, q OrderListQuery) (*OrderPage, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > utils.MaxPage {
		q.Page = utils.MaxPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if q.Status != "" && !models.ValidOrderStatus(q.Status) {
		return nil, apperrors.Validation("INVALID_STATUS", fmt.Sprintf("Unknown order status %q", q.Status))
	}

	query := s.db.WithContext(ctx).Model(&models.Order{})
	if q.Status != "" {
		query = query.Where("order_status = ?", q.Status)
	}
	if q.UserID != nil {
		query = query.Where("user_id = ?", *q.UserID)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Unexpected(err, "Failed to count orders")
	}

	var orders []models.Order
	if err := query.
		Preload("User").
		Preload("Items").
		Order("created_at DESC").Order("id DESC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&orders).Error; err != nil {
		return nil, apperrors.Unexpected(err, "Failed to fetch orders")
	}

	return &OrderPage{
		Orders:     orders,
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: utils.TotalPages(total, q.Limit),
	}, nil
}

func (s *OrderService) loadForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("ORDER_NOT_FOUND", "Order not found")
		}
		return nil, apperrors.Unexpected(err, "Failed to load order")
	}
	return &order, nil
}

// releaseStock adds every line item's quantity back to its product and marks
// the order so the stock is never returned twice
func (s *OrderService) releaseStock(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	catalog := s.catalog.WithTx(tx)
	for _, item := range order.Items {
		err := catalog.ApplyStockDelta(ctx, item.ProductID, item.Quantity)
		if apperrors.Is(err, apperrors.KindNotFound) {
			// Product was deleted since the order was placed; nothing to return it to
			continue
		}
		if err != nil {
			return err
		}
	}
	if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Update("stock_released", true).Error; err != nil {
		return apperrors.Unexpected(err, "Failed to update order")
	}
	order.StockReleased = true
	return nil
}

func newOrderEvent(order *models.Order) OrderEvent {
	event := OrderEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		OrderStatus:   order.OrderStatus,
		PaymentStatus: order.PaymentStatus,
		TotalPrice:    order.TotalPrice,
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, LineItemEvent{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return event
}
