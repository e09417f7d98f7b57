package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/shopwise/shopwise-api/apperrors"
	"github.com/shopwise/shopwise-api/models"
)

const sentimentJobTimeout = 30 * time.Second

// ReviewInput is a new review
type ReviewInput struct {
	ProductID uint
	Rating    int
	Comment   string
}

// ReviewUpdate carries the fields of a review to change
type ReviewUpdate struct {
	Rating  *int
	Comment *string
}

// ReviewEvent is the payload of review events
type ReviewEvent struct {
	ReviewID  uint `json:"review_id"`
	ProductID uint `json:"product_id"`
	UserID    uint `json:"user_id"`
	Rating    int  `json:"rating"`
}

// ReviewService manages reviews and keeps the product rating aggregates in
// step with them. Sentiment is filled in after the request returns.
type ReviewService struct {
	db        *gorm.DB
	catalog   CatalogStore
	ai        AIService
	publisher EventPublisher
}

var backgroundJobs sync.WaitGroup

// WaitForBackgroundJobs blocks until every queued sentiment job has finished
func WaitForBackgroundJobs() {
	backgroundJobs.Wait()
}

// NewReviewService creates a review service on db
func NewReviewService(db *gorm.DB, ai AIService, publisher EventPublisher) *ReviewService {
	return &ReviewService{
		db:        db,
		catalog:   NewCatalogStore(db),
		ai:        ai,
		publisher: publisher,
	}
}

// Create stores the caller's review of a product. A user reviews a product at most once.
func (s *ReviewService) Create(ctx context.Context, userID uint, input ReviewInput) (*models.Review, error) {
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}

	review := models.Review{
		UserID:    userID,
		ProductID: input.ProductID,
		Rating:    input.Rating,
		Comment:   strings.TrimSpace(input.Comment),
		Sentiment: models.SentimentNeutral,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.catalog.WithTx(tx).GetProduct(ctx, input.ProductID); err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.Review{}).
			Where("user_id = ? AND product_id = ?", userID, input.ProductID).
			Count(&existing).Error; err != nil {
			return apperrors.Unexpected(err, "Failed to check existing reviews")
		}
		if existing > 0 {
			return reviewExists()
		}

		if err := tx.Create(&review).Error; err != nil {
			if isDuplicateKeyError(err) {
				return reviewExists()
			}
			return apperrors.Unexpected(err, "Failed to create review")
		}

		return s.Recompute(ctx, tx, input.ProductID)
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.publisher, EventReviewCreated, ReviewEvent{
		ReviewID:  review.ID,
		ProductID: review.ProductID,
		UserID:    review.UserID,
		Rating:    review.Rating,
	})
	s.analyzeSentimentAsync(review.ID, review.Comment)

	return s.GetReview(ctx, review.ID)
}

func reviewExists() error {
	return apperrors.Conflict("REVIEW_EXISTS", "You have already reviewed this product")
}

// GetReview loads a review with its author
func (s *ReviewService) GetReview(ctx context.Context, id uint) (*models.Review, error) {
	var review models.Review
	if err := s.db.WithContext(ctx).Preload("User").First(&review, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("REVIEW_NOT_FOUND", "Review not found")
		}
		return nil, apperrors.Unexpected(err, "Failed to load review")
	}
	return &review, nil
}

// Update changes a review's rating and/or comment. Only the author or an admin may do so.
func (s *ReviewService) Update(ctx context.Context, actor models.User, id uint, update ReviewUpdate) (*models.Review, error) {
	if update.Rating != nil {
		if err := validateRating(*update.Rating); err != nil {
			return nil, err
		}
	}

	var reanalyze bool
	var comment string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		review, err := s.loadOwned(tx, actor, id)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if update.Rating != nil && *update.Rating != review.Rating {
			updates["rating"] = *update.Rating
		}
		if update.Comment != nil {
			comment = strings.TrimSpace(*update.Comment)
			if comment != review.Comment {
				updates["comment"] = comment
				if comment == "" {
					updates["sentiment"] = models.SentimentNeutral
				} else {
					reanalyze = true
				}
			}
		}
		if len(updates) == 0 {
			return nil
		}

		if err := tx.Model(&models.Review{}).Where("id = ?", review.ID).Updates(updates).Error; err != nil {
			return apperrors.Unexpected(err, "Failed to update review")
		}
		return s.Recompute(ctx, tx, review.ProductID)
	})
	if err != nil {
		return nil, err
	}

	if reanalyze {
		s.analyzeSentimentAsync(id, comment)
	}
	return s.GetReview(ctx, id)
}

// Delete removes a review. Only the author or an admin may do so.
func (s *ReviewService) Delete(ctx context.Context, actor models.User, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		review, err := s.loadOwned(tx, actor, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.Review{}, review.ID).Error; err != nil {
			return apperrors.Unexpected(err, "Failed to delete review")
		}

		err = s.Recompute(ctx, tx, review.ProductID)
		if apperrors.Is(err, apperrors.KindNotFound) {
			// The product itself has been removed
			return nil
		}
		return err
	})
}

// ListByProduct returns a product's reviews, newest first
func (s *ReviewService) ListByProduct(ctx context.Context, productID uint) ([]models.Review, error) {
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	var reviews []models.Review
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("product_id = ?", productID).
		Order("created_at DESC").Order("id DESC").
		Find(&reviews).Error; err != nil {
		return nil, apperrors.Unexpected(err, "Failed to list reviews")
	}
	return reviews, nil
}

// Recompute writes the count and mean rating of the product's current
// reviews onto the product. It must run in the transaction that changed them.
func (s *ReviewService) Recompute(ctx context.Context, tx *gorm.DB, productID uint) error {
	var agg struct {
		Count   int
		Average float64
	}
	if err := tx.WithContext(ctx).
		Model(&models.Review{}).
		Select("COUNT(*) AS count, CAST(COALESCE(AVG(rating), 0) AS FLOAT) AS average").
		Where("product_id = ?", productID).
		Scan(&agg).Error; err != nil {
		return apperrors.Unexpected(err, "Failed to aggregate reviews")
	}

	return s.catalog.WithTx(tx).UpdateAggregateRating(ctx, productID, agg.Average, agg.Count)
}

func (s *ReviewService) loadOwned(tx *gorm.DB, actor models.User, id uint) (*models.Review, error) {
	var review models.Review
	if err := tx.First(&review, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("REVIEW_NOT_FOUND", "Review not found")
		}
		return nil, apperrors.Unexpected(err, "Failed to load review")
	}
	if review.UserID != actor.ID && actor.Role != models.RoleAdmin {
		return nil, apperrors.Forbidden("FORBIDDEN", "You do not have permission to modify this review")
	}
	return &review, nil
}

// analyzeSentimentAsync classifies comment off the request path and stores
// the result, unless the comment has been edited again in the meantime
func (s *ReviewService) analyzeSentimentAsync(reviewID uint, comment string) {
	if s.ai == nil || comment == "" {
		return
	}

	backgroundJobs.Add(1)
	go func() {
		defer backgroundJobs.Done()

		ctx, cancel := context.WithTimeout(context.Background(), sentimentJobTimeout)
		defer cancel()

		sentiment := s.ai.Sentiment(ctx, comment)
		err := s.db.WithContext(ctx).
			Model(&models.Review{}).
			Where("id = ? AND comment = ?", reviewID, comment).
			Update("sentiment", sentiment).Error
		if err != nil {
			log.Warn().Err(err).Uint("review_id", reviewID).Msg("Failed to store review sentiment")
			return
		}
		log.Debug().Uint("review_id", reviewID).Str("sentiment", sentiment).Msg("Review sentiment updated")
	}()
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return apperrors.Validation("VALIDATION_ERROR", fmt.Sprintf("Rating must be between 1 and 5, got %d", rating))
	}
	return nil
}
