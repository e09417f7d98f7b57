package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shopwise/shopwise-api/config"
	"github.com/shopwise/shopwise-api/models"
)

// CategoryRequest represents the request body for creating or updating a category
type CategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ParentID    *uint  `json:"parent_id"`
}

// CreateCategory handles POST /api/v1/categories - admin and employee only
func CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	db := config.GetDB()
	if req.ParentID != nil && !categoryExists(c, db, *req.ParentID) {
		return
	}

	category := models.Category{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		ParentID:    req.ParentID,
	}
	if err := db.Create(&category).Error; err != nil {
		if isUniqueViolation(err) {
			respondWithError(c, http.StatusConflict, "CATEGORY_EXISTS", "A category with this name already exists")
			return
		}
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create category")
		return
	}

	respondData(c, http.StatusCreated, category)
}

// ListCategories handles GET /api/v1/categories - returns root categories with their subcategories
func ListCategories(c *gin.Context) {
	var categories []models.Category
	if err := config.GetDB().Order("name ASC").Find(&categories).Error; err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch categories")
		return
	}

	respondData(c, http.StatusOK, buildCategoryTree(categories))
}

// buildCategoryTree nests every category under its parent; categories come in name order
func buildCategoryTree(categories []models.Category) []models.Category {
	children := make(map[uint][]models.Category)
	for _, category := range categories {
		if category.ParentID != nil {
			children[*category.ParentID] = append(children[*category.ParentID], category)
		}
	}

	var attach func(category models.Category) models.Category
	attach = func(category models.Category) models.Category {
		for _, child := range children[category.ID] {
			category.Subcategories = append(category.Subcategories, attach(child))
		}
		return category
	}

	tree := []models.Category{}
	for _, category := range categories {
		if category.ParentID == nil {
			tree = append(tree, attach(category))
		}
	}
	return tree
}

// GetCategory handles GET /api/v1/categories/:id - includes parent and direct subcategories
func GetCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var category models.Category
	err := config.GetDB().
		Preload("Parent").
		Preload("Subcategories", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC") }).
		First(&category, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondWithError(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found")
			return
		}
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch category")
		return
	}

	respondData(c, http.StatusOK, category)
}

// UpdateCategory handles PUT /api/v1/categories/:id - admin and employee only
func UpdateCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	db := config.GetDB()
	var category models.Category
	if err := db.First(&category, id).Error; err != nil {
		respondWithError(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found")
		return
	}

	if req.ParentID != nil {
		if *req.ParentID == category.ID {
			respondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "A category cannot be its own parent")
			return
		}
		if !categoryExists(c, db, *req.ParentID) {
			return
		}
	}

	updates := map[string]interface{}{
		"name":        strings.TrimSpace(req.Name),
		"description": req.Description,
		"parent_id":   req.ParentID,
	}
	if err := db.Model(&category).Updates(updates).Error; err != nil {
		if isUniqueViolation(err) {
			respondWithError(c, http.StatusConflict, "CATEGORY_EXISTS", "A category with this name already exists")
			return
		}
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update category")
		return
	}

	if err := db.Preload("Parent").First(&category, id).Error; err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch updated category")
		return
	}

	respondData(c, http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/v1/categories/:id - admin and employee only.
// Categories that still have subcategories cannot be deleted.
func DeleteCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	db := config.GetDB()
	var category models.Category
	if err := db.First(&category, id).Error; err != nil {
		respondWithError(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found")
		return
	}

	var subcategories int64
	if err := db.Model(&models.Category{}).Where("parent_id = ?", id).Count(&subcategories).Error; err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check subcategories")
		return
	}
	if subcategories > 0 {
		respondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Cannot delete category with subcategories")
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		// Products keep existing without a category
		if err := tx.Unscoped().Model(&models.Product{}).Where("category_id = ?", id).Update("category_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&category).Error
	})
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete category")
		return
	}

	respondData(c, http.StatusOK, gin.H{"message": "Category deleted successfully"})
}

// categoryExists writes a 400 and returns false when the parent category is missing
func categoryExists(c *gin.Context, db *gorm.DB, id uint) bool {
	var count int64
	if err := db.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		respondWithError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check parent category")
		return false
	}
	if count == 0 {
		respondWithError(c, http.StatusBadRequest, "CATEGORY_NOT_FOUND", "Parent category does not exist")
		return false
	}
	return true
}
