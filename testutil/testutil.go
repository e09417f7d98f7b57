package testutil

import (
	"fmt"
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shopwise/shopwise-api/models"
)

// RequireTestEnvironment ensures that tests are running in the test environment.
// This prevents accidental execution of tests against production or development databases.
// It will fail the test immediately if GO_ENV is not set to "test".
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: Tests must run with GO_ENV=test to prevent data loss. Current GO_ENV=%q. Set GO_ENV=test before running tests.", env)
	}
}

// NewTestDB opens a fresh in-memory SQLite database with every table migrated.
// The pool is limited to one connection so the database is shared by all
// queries and concurrent writers queue instead of failing with SQLITE_BUSY.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get test database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// NewPostgresTestDB connects to the database named by TEST_DATABASE_URL, migrates it
// and empties every table. Tests are skipped when the variable is unset.
func NewPostgresTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping PostgreSQL test")
	}
	RequireTestEnvironment(t)

	db, err := gorm.Open(postgres.Open(url), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get PostgreSQL handle: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate PostgreSQL database: %v", err)
	}
	truncate := "TRUNCATE chat_messages, tasks, attendance, employees, reviews, order_items, orders, products, categories, users RESTART IDENTITY CASCADE"
	if err := db.Exec(truncate).Error; err != nil {
		t.Fatalf("Failed to clean PostgreSQL database: %v", err)
	}

	return db
}

// CreateUser inserts a user with the given role; the subject is derived from the email
func CreateUser(t *testing.T, db *gorm.DB, email, role string) models.User {
	t.Helper()

	user := models.User{
		Subject:   "local|" + email,
		Email:     email,
		FirstName: "Test",
		LastName:  role,
		Role:      role,
		IsActive:  true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", email, err)
	}
	return user
}

// CreateProduct inserts an active product with the given price and stock
func CreateProduct(t *testing.T, db *gorm.DB, name, price string, stock int) models.Product {
	t.Helper()

	product := models.Product{
		Name:        name,
		Description: fmt.Sprintf("%s description", name),
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		IsActive:    true,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("Failed to create product %s: %v", name, err)
	}
	return product
}

// ProductStock reads the current stock of a product straight from the database
func ProductStock(t *testing.T, db *gorm.DB, productID uint) int {
	t.Helper()

	var product models.Product
	if err := db.Unscoped().First(&product, productID).Error; err != nil {
		t.Fatalf("Failed to load product %d: %v", productID, err)
	}
	return product.Stock
}
