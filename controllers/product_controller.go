package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/shopwise/shopwise-api/apperrors"
	"github.com/shopwise/shopwise-api/config"
	"github.com/shopwise/shopwise-api/models"
	"github.com/shopwise/shopwise-api/services"
	"github.com/shopwise/shopwise-api/utils"
)

// Descriptions longer than this are summarized by the AI service
const summaryThreshold = 200

// CreateProductRequest represents the request body for creating a product
type CreateProductRequest struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price" binding:"required"`
	Stock       int              `json:"stock" binding:"gte=0"`
	CategoryID  *uint            `json:"category_id"`
}

// UpdateProductRequest represents the request body for updating a product.
// Absent fields are left unchanged.
type UpdateProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" binding:"omitempty,gte=0"`
	CategoryID  *uint            `json:"category_id"`
	IsActive    *bool            `json:"is_active"`
	ImageKey    *string          `json:"image_key"`
}

// ImageUploadRequest represents the request body for requesting an image upload URL
type ImageUploadRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

func catalogStore() services.CatalogStore {
	return services.NewCatalogStore(config.GetDB())
}

// ListProducts handles GET /api/v1/products - lists active products.
// With a query parameter, matches are ordered by semantic similarity.
func ListProducts(c *gin.Context) {
	ctx := c.Request.Context()

	categoryID, err := utils.ParseOptionalID(c.Query("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	minPrice, err := utils.ParseOptionalDecimal("min_price", c.Query("min_price"))
	if err != nil {
		respondError(c, err)
		return
	}
	maxPrice, err := utils.ParseOptionalDecimal("max_price", c.Query("max_price"))
	if err != nil {
		respondError(c, err)
		return
	}

	sort := c.Query("sort")
	switch sort {
	case "", services.SortPriceAsc, services.SortPriceDesc, services.SortRating:
	default:
		respondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", fmt.Sprintf("Unknown sort %q", sort))
		return
	}

	page, limit := utils.ParsePagination(c.Query("page"), c.Query("limit"), services.DefaultPageSize, services.MaxPageSize)
	filter := services.ProductFilter{
		CategoryID: categoryID,
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		ActiveOnly: true,
		Sort:       sort,
	}

	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		filter.Offset = (page - 1) * limit
		filter.Limit = limit
	}

	products, total, err := catalogStore().ListProducts(ctx, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	if query != "" {
		products = rankProducts(ctx, query, products)
		products = pageOf(products, page, limit)
	}

	for i := range products {
		attachImageURL(ctx, &products[i])
	}

	respondPage(c, products, page, limit, total)
}

// rankProducts orders products by similarity of their name and description to query
func rankProducts(ctx context.Context, query string, products []models.Product) []models.Product {
	if len(products) < 2 {
		return products
	}

	documents := make([]string, len(products))
	for i, p := range products {
		documents[i] = p.Name + ". " + p.Description
	}

	ranked := make([]models.Product, 0, len(products))
	for _, idx := range services.GetAIService().RankDocuments(ctx, query, documents) {
		ranked = append(ranked, products[idx])
	}
	return ranked
}

func pageOf(products []models.Product, page, limit int) []models.Product {
	start := (page - 1) * limit
	if start >= len(products) {
		return []models.Product{}
	}
	end := start + limit
	if end > len(products) {
		end = len(products)
	}
	return products[start:end]
}

// GetProduct handles GET /api/v1/products/:id
func GetProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	product, err := catalogStore().GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !product.IsActive {
		respondWithError(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found")
		return
	}

	attachImageURL(c.Request.Context(), product)
	respondData(c, http.StatusOK, product)
}

// CreateProduct handles POST /api/v1/products - admin and employee only
func CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if req.Price.IsNegative() {
		respondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "price must not be negative")
		return
	}

	ctx := c.Request.Context()
	if req.CategoryID != nil {
		if err := ensureCategoryExists(*req.CategoryID); err != nil {
			respondError(c, err)
			return
		}
	}

	product := models.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Summary:     summarize(ctx, req.Description),
		Price:       *req.Price,
		Stock:       req.Stock,
		CategoryID:  req.CategoryID,
		IsActive:    true,
	}

	store := catalogStore()
	if err := store.CreateProduct(ctx, &product); err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/v1/products/:id - admin and employee only.
// Setting image_key to a newly uploaded key replaces (and removes) the old image.
func UpdateProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	store := catalogStore()
	product, err := store.GetProduct(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			respondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "name must not be empty")
			return
		}
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
		updates["summary"] = summarize(ctx, *req.Description)
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			respondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "price must not be negative")
			return
		}
		updates["price"] = *req.Price
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if req.CategoryID != nil {
		if err := ensureCategoryExists(*req.CategoryID); err != nil {
			respondError(c, err)
			return
		}
		updates["category_id"] = *req.CategoryID
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	var replacedImage string
	if req.ImageKey != nil {
		prefix := fmt.Sprintf("products/%d/", product.ID)
		if *req.ImageKey != "" && !strings.HasPrefix(*req.ImageKey, prefix) {
			respondWithError(c, http.StatusBadRequest, "INVALID_IMAGE_KEY", "image_key must come from this product's upload URL")
			return
		}
		if product.ImageS3Key != nil && *product.ImageS3Key != *req.ImageKey {
			replacedImage = *product.ImageS3Key
		}
		if *req.ImageKey == "" {
			updates["image_s3_key"] = nil
		} else {
			updates["image_s3_key"] = *req.ImageKey
		}
	}

	if err := store.UpdateProduct(ctx, product, updates); err != nil {
		respondError(c, err)
		return
	}

	if replacedImage != "" {
		deleteImage(ctx, replacedImage)
	}

	updated, err := store.GetProduct(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	attachImageURL(ctx, updated)
	respondData(c, http.StatusOK, updated)
}

// DeleteProduct handles DELETE /api/v1/products/:id - admin and employee only
func DeleteProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	store := catalogStore()
	product, err := store.GetProduct(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := store.DeleteProduct(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	if product.ImageS3Key != nil {
		deleteImage(ctx, *product.ImageS3Key)
	}

	respondData(c, http.StatusOK, gin.H{"message": "Product deleted"})
}

// CreateProductImageUpload handles POST /api/v1/products/:id/image-upload-url.
// The client PUTs the image to the returned URL, then sets image_key on the product.
func CreateProductImageUpload(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	imageService := services.GetImageService()
	if imageService == nil {
		respondWithError(c, http.StatusServiceUnavailable, "IMAGES_DISABLED", "Image storage is not configured")
		return
	}

	var req ImageUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	if _, err := catalogStore().GetProduct(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	upload, err := imageService.CreateUploadURL(ctx, id, req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, upload)
}

// summarize returns an AI summary for long descriptions and the description itself otherwise
func summarize(ctx context.Context, description string) string {
	if utf8.RuneCountInString(description) <= summaryThreshold {
		return description
	}
	return services.GetAIService().Summarize(ctx, description)
}

func ensureCategoryExists(id uint) error {
	var count int64
	if err := config.GetDB().Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperrors.Unexpected(err, "Failed to check category")
	}
	if count == 0 {
		return apperrors.Validation("CATEGORY_NOT_FOUND", fmt.Sprintf("Category %d does not exist", id))
	}
	return nil
}

// attachImageURL fills the presigned image URL; failures leave it empty
func attachImageURL(ctx context.Context, product *models.Product) {
	imageService := services.GetImageService()
	if imageService == nil || product.ImageS3Key == nil || *product.ImageS3Key == "" {
		return
	}

	url, err := imageService.GetImageURL(ctx, *product.ImageS3Key)
	if err != nil {
		log.Warn().Err(err).Uint("product_id", product.ID).Msg("Failed to presign product image")
		return
	}
	product.ImageURL = &url
}

func deleteImage(ctx context.Context, key string) {
	imageService := services.GetImageService()
	if imageService == nil {
		return
	}
	if err := imageService.DeleteImage(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to delete product image")
	}
}
