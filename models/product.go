package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog entry. Rating and NumReviews are derived from the
// product's reviews and only written by the review aggregator.
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Summary     string          `gorm:"type:text" json:"summary"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null;check:price >= 0" json:"price"`
	Stock       int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	Rating      float64         `gorm:"not null;default:0;check:rating >= 0 AND rating <= 5" json:"rating"`
	NumReviews  int             `gorm:"not null;default:0;check:num_reviews >= 0" json:"num_reviews"`
	CategoryID  *uint           `gorm:"index" json:"category_id"`
	Category    *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	IsActive    bool            `gorm:"not null;default:true" json:"is_active"`
	ImageS3Key  *string         `json:"image_s3_key"`                 // nullable, S3 key for the product image
	ImageURL    *string         `gorm:"-" json:"image_url,omitempty"` // computed field, presigned URL for image
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
