package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request models
type RegisterRequest struct {
	Name     string `json:"nom" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserUpdateRequest carries a partial user update; only non-nil fields are
// applied. A supplied password is re-hashed before storage.
type UserUpdateRequest struct {
	Name     *string `json:"nom"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type ProductCreateRequest struct {
	Name     string          `json:"name" binding:"required"`
	Price    decimal.Decimal `json:"price"`
	Stock    int             `json:"stock"`
	ImageURL *string         `json:"image_url"`
}

// ProductUpdateRequest carries a partial product update; only non-nil fields
// are applied.
type ProductUpdateRequest struct {
	Name     *string          `json:"name"`
	Price    *decimal.Decimal `json:"price"`
	Stock    *int             `json:"stock"`
	ImageURL *string          `json:"image_url"`
}

type SaleCreateRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	UserID    int64 `json:"user_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

// SaleUpdateRequest carries a partial sale update; only non-nil fields are
// applied. Quantity and product changes adjust the affected product stocks.
type SaleUpdateRequest struct {
	ProductID *int64 `json:"product_id"`
	UserID    *int64 `json:"user_id"`
	Quantity  *int   `json:"quantity"`
}

// Response models
type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"nom"`
	Email string `json:"email"`
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        UserResponse `json:"user"`
}

type StockCheckResponse struct {
	ProductID         int64 `json:"product_id"`
	RequestedQuantity int   `json:"requested_quantity"`
	IsAvailable       bool  `json:"is_available"`
}

type TotalAmountResponse struct {
	TotalAmount decimal.Decimal `json:"total_amount"`
	StartDate   *time.Time      `json:"start_date"`
	EndDate     *time.Time      `json:"end_date"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
