package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopwise/shopwise-api/apperrors"
	"github.com/shopwise/shopwise-api/models"
)

// Product sort orders accepted by ListProducts
const (
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortRating    = "rating"
)

// ProductFilter narrows a product listing
type ProductFilter struct {
	CategoryID *uint
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	ActiveOnly bool
	Sort       string
	Offset     int
	Limit      int // 0 returns every match
}

// CatalogStore is the product storage used by the order and review workflows
type CatalogStore interface {
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product, updates map[string]interface{}) error

	// DeleteProduct soft-deletes a product. Products on open orders cannot be deleted.
	DeleteProduct(ctx context.Context, id uint) error

	// ApplyStockDelta atomically adds delta to the product's stock.
	// It fails with InvalidState if the result would be negative.
	ApplyStockDelta(ctx context.Context, id uint, delta int) error

	// UpdateAggregateRating overwrites the derived review aggregates
	UpdateAggregateRating(ctx context.Context, id uint, rating float64, numReviews int) error

	// WithTx returns a store bound to the given transaction
	WithTx(tx *gorm.DB) CatalogStore
}

// GormCatalogStore implements CatalogStore on top of GORM
type GormCatalogStore struct {
	db *gorm.DB
}

// NewCatalogStore creates a catalog store backed by db
func NewCatalogStore(db *gorm.DB) *GormCatalogStore {
	return &GormCatalogStore{db: db}
}

func (s *GormCatalogStore) WithTx(tx *gorm.DB) CatalogStore {
	return &GormCatalogStore{db: tx}
}

func (s *GormCatalogStore) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("PRODUCT_NOT_FOUND", fmt.Sprintf("Product %d not found", id))
		}
		return nil, apperrors.Unexpected(err, "Failed to load product")
	}
	return &p, nil
}

func (s *GormCatalogStore) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})

	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Unexpected(err, "Failed to count products")
	}

	switch filter.Sort {
	case SortPriceAsc:
		query = query.Order("price ASC").Order("id ASC")
	case SortPriceDesc:
		query = query.Order("price DESC").Order("id ASC")
	case SortRating:
		query = query.Order("rating DESC").Order("id ASC")
	default:
		query = query.Order("created_at DESC").Order("id DESC")
	}
	if filter.Limit > 0 {
		query = query.Offset(filter.Offset).Limit(filter.Limit)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, apperrors.Unexpected(err, "Failed to list products")
	}
	return products, total, nil
}

func (s *GormCatalogStore) CreateProduct(ctx context.Context, p *models.Product) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return apperrors.Unexpected(err, "Failed to create product")
	}
	return nil
}

func (s *GormCatalogStore) UpdateProduct(ctx context.Context, p *models.Product, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(p).Updates(updates).Error; err != nil {
		return apperrors.Unexpected(err, "Failed to update product")
	}
	return nil
}

func (s *GormCatalogStore) DeleteProduct(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		err := tx.Model(&models.OrderItem{}).
			Joins("JOIN orders ON orders.id = order_items.order_id").
			Where("order_items.product_id = ? AND orders.deleted_at IS NULL AND orders.order_status IN ?",
				id, []string{models.OrderStatusPending, models.OrderStatusProcessing}).
			Count(&open).Error
		if err != nil {
			return apperrors.Unexpected(err, "Failed to check open orders")
		}
		if open > 0 {
			return apperrors.Conflict("PRODUCT_HAS_OPEN_ORDERS",
				fmt.Sprintf("Product %d is part of %d open order(s) and cannot be deleted", id, open))
		}

		result := tx.Delete(&models.Product{}, id)
		if result.Error != nil {
			return apperrors.Unexpected(result.Error, "Failed to delete product")
		}
		if result.RowsAffected == 0 {
			return apperrors.NotFound("PRODUCT_NOT_FOUND", fmt.Sprintf("Product %d not found", id))
		}
		return nil
	})
}

func (s *GormCatalogStore) ApplyStockDelta(ctx context.Context, id uint, delta int) error {
	// The guard and the write are one statement, so concurrent callers
	// cannot both pass the check against the same stock value.
	result := s.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		Update("stock", gorm.Expr("stock + ?", delta))
	if result.Error != nil {
		return apperrors.Unexpected(result.Error, "Failed to update product stock")
	}
	if result.RowsAffected == 1 {
		return nil
	}

	// Nothing updated: either the product is gone or the guard rejected the delta
	if _, err := s.GetProduct(ctx, id); err != nil {
		return err
	}
	return apperrors.InvalidState("NEGATIVE_STOCK", fmt.Sprintf("Stock change of %d would make product %d stock negative", delta, id))
}

func (s *GormCatalogStore) UpdateAggregateRating(ctx context.Context, id uint, rating float64, numReviews int) error {
	result := s.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"rating": rating, "num_reviews": numReviews})
	if result.Error != nil {
		return apperrors.Unexpected(result.Error, "Failed to update product rating")
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound("PRODUCT_NOT_FOUND", fmt.Sprintf("Product %d not found", id))
	}
	return nil
}
