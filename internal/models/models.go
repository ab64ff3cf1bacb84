package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered user of the store
type User struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"nom"`
	Email    string `db:"email" json:"email"`
	Password string `db:"password" json:"-"` // Password hash, not returned in JSON
}

// Product represents a catalog item with its current stock level
type Product struct {
	ID       int64           `db:"id" json:"id"`
	Name     string          `db:"name" json:"name"`
	Price    decimal.Decimal `db:"price" json:"price"`
	Stock    int             `db:"stock" json:"stock"`
	ImageURL *string         `db:"image_url" json:"image_url,omitempty"`
}

// Sale represents a sale of a product to a user. Its existence implies a
// historical stock decrement of Quantity units from the product.
type Sale struct {
	ID        int64     `db:"id" json:"id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	Date      time.Time `db:"date" json:"date"`
}

// SaleDetail is the denormalized read projection of a sale joined with the
// product's name/price and the user's name. UnitPrice and LineTotal reflect
// the product's current price, not a price frozen at sale time.
type SaleDetail struct {
	ID          int64           `db:"id" json:"id"`
	ProductID   int64           `db:"product_id" json:"product_id"`
	UserID      int64           `db:"user_id" json:"user_id"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Date        time.Time       `db:"date" json:"date"`
	ProductName string          `db:"product_name" json:"product_name"`
	UserName    string          `db:"user_name" json:"user_name"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	LineTotal   decimal.Decimal `db:"line_total" json:"line_total"`
}
