package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopwise/shopwise-api/config"
	"github.com/shopwise/shopwise-api/services"
)

// CreateReviewRequest represents the request body for reviewing a product
type CreateReviewRequest struct {
	ProductID uint   `json:"product_id" binding:"required"`
	Rating    int    `json:"rating" binding:"required"`
	Comment   string `json:"comment"`
}

// UpdateReviewRequest represents the request body for editing a review
type UpdateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

func reviewService() *services.ReviewService {
	return services.NewReviewService(config.GetDB(), services.GetAIService(), services.GetEventPublisher())
}

// CreateReview handles POST /api/v1/reviews
func CreateReview(c *gin.Context) {
	user, ok := requireCurrentUser(c)
	if !ok {
		return
	}

	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	review, err := reviewService().Create(c.Request.Context(), user.ID, services.ReviewInput{
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusCreated, review)
}

// ListProductReviews handles GET /api/v1/reviews/product/:productId - newest first
func ListProductReviews(c *gin.Context) {
	productID, ok := idParam(c, "productId")
	if !ok {
		return
	}

	reviews, err := reviewService().ListByProduct(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, reviews)
}

// UpdateReview handles PUT /api/v1/reviews/:id - author or admin only
func UpdateReview(c *gin.Context) {
	user, ok := requireCurrentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	review, err := reviewService().Update(c.Request.Context(), *user, id, services.ReviewUpdate{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, review)
}

// DeleteReview handles DELETE /api/v1/reviews/:id - author or admin only
func DeleteReview(c *gin.Context) {
	user, ok := requireCurrentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := reviewService().Delete(c.Request.Context(), *user, id); err != nil {
		respondError(c, err)
		return
	}

	respondData(c, http.StatusOK, gin.H{"message": "Review deleted"})
}
