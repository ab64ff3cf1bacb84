package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opticstore/server/internal/domain"
	"github.com/opticstore/server/internal/models"
	"github.com/opticstore/server/internal/repository"
)

// SaleService defines the sale workflow: creation, update and deletion keep
// the referenced product's stock consistent with the recorded sales, and the
// read operations return the denormalized joined view.
type SaleService interface {
	CreateSale(ctx context.Context, req models.SaleCreateRequest) (*models.SaleDetail, error)
	GetSaleByID(ctx context.Context, id int64) (*models.SaleDetail, error)
	GetAllSales(ctx context.Context, skip, limit int) ([]models.SaleDetail, error)
	GetSalesByUser(ctx context.Context, userID int64) ([]models.SaleDetail, error)
	GetSalesByProduct(ctx context.Context, productID int64) ([]models.SaleDetail, error)
	GetSalesByDateRange(ctx context.Context, start, end time.Time) ([]models.SaleDetail, error)
	UpdateSale(ctx context.Context, id int64, req models.SaleUpdateRequest) (*models.SaleDetail, error)
	DeleteSale(ctx context.Context, id int64) error
	GetTotalSalesAmount(ctx context.Context, start, end *time.Time) (decimal.Decimal, error)
}

// DefaultSaleService implements the SaleService interface
type DefaultSaleService struct {
	repo repository.Repository
}

// NewSaleService creates a new DefaultSaleService
func NewSaleService(repo repository.Repository) SaleService {
	return &DefaultSaleService{repo: repo}
}

// CreateSale validates the referenced user and product, the quantity and the
// available stock before any write. The sale insert and the stock decrement
// then commit atomically in the repository.
func (s *DefaultSaleService) CreateSale(ctx context.Context, req models.SaleCreateRequest) (*models.SaleDetail, error) {
	user, err := s.repo.GetUserByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, &domain.NotFoundError{Entity: "user"}
	}

	product, err := s.repo.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("error getting product: %w", err)
	}
	if product == nil {
		return nil, &domain.NotFoundError{Entity: "product"}
	}

	if req.Quantity <= 0 {
		return nil, &domain.ValidationError{Message: "quantity must be greater than 0"}
	}

	if product.Stock < req.Quantity {
		return nil, &domain.InsufficientStockError{Available: product.Stock}
	}

	sale := &models.Sale{
		ProductID: req.ProductID,
		UserID:    req.UserID,
		Quantity:  req.Quantity,
	}

	if err := s.repo.CreateSale(ctx, sale); err != nil {
		return nil, err
	}

	return s.GetSaleByID(ctx, sale.ID)
}

func (s *DefaultSaleService) GetSaleByID(ctx context.Context, id int64) (*models.SaleDetail, error) {
	sale, err := s.repo.GetSaleByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting sale: %w", err)
	}

	if sale == nil {
		return nil, &domain.NotFoundError{Entity: "sale"}
	}

	return sale, nil
}

func (s *DefaultSaleService) GetAllSales(ctx context.Context, skip, limit int) ([]models.SaleDetail, error) {
	sales, err := s.repo.GetAllSales(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("error getting sales: %w", err)
	}

	return sales, nil
}

func (s *DefaultSaleService) GetSalesByUser(ctx context.Context, userID int64) ([]models.SaleDetail, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	if user == nil {
		return nil, &domain.NotFoundError{Entity: "user"}
	}

	sales, err := s.repo.GetSalesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting sales: %w", err)
	}

	return sales, nil
}

func (s *DefaultSaleService) GetSalesByProduct(ctx context.Context, productID int64) ([]models.SaleDetail, error) {
	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("error getting product: %w", err)
	}
	if product == nil {
		return nil, &domain.NotFoundError{Entity: "product"}
	}

	sales, err := s.repo.GetSalesByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("error getting sales: %w", err)
	}

	return sales, nil
}

func (s *DefaultSaleService) GetSalesByDateRange(ctx context.Context, start, end time.Time) ([]models.SaleDetail, error) {
	if start.After(end) {
		return nil, &domain.ValidationError{Message: "start date must be before end date"}
	}

	sales, err := s.repo.GetSalesByDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("error getting sales: %w", err)
	}

	return sales, nil
}

// UpdateSale applies only the supplied fields. A quantity change applies the
// delta against the sale's product; a product change restores the old
// product's stock and charges the new product in full. Both run atomically
// in the repository.
func (s *DefaultSaleService) UpdateSale(ctx context.Context, id int64, req models.SaleUpdateRequest) (*models.SaleDetail, error) {
	existing, err := s.repo.GetSaleByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting sale: %w", err)
	}
	if existing == nil {
		return nil, &domain.NotFoundError{Entity: "sale"}
	}

	if req.ProductID != nil {
		product, err := s.repo.GetProductByID(ctx, *req.ProductID)
		if err != nil {
			return nil, fmt.Errorf("error getting product: %w", err)
		}
		if product == nil {
			return nil, &domain.NotFoundError{Entity: "product"}
		}
	}

	if req.UserID != nil {
		user, err := s.repo.GetUserByID(ctx, *req.UserID)
		if err != nil {
			return nil, fmt.Errorf("error getting user: %w", err)
		}
		if user == nil {
			return nil, &domain.NotFoundError{Entity: "user"}
		}
	}

	if req.Quantity != nil && *req.Quantity <= 0 {
		return nil, &domain.ValidationError{Message: "quantity must be greater than 0"}
	}

	if err := s.repo.UpdateSale(ctx, id, req); err != nil {
		return nil, err
	}

	return s.GetSaleByID(ctx, id)
}

func (s *DefaultSaleService) DeleteSale(ctx context.Context, id int64) error {
	return s.repo.DeleteSale(ctx, id)
}

// GetTotalSalesAmount sums line totals over the sales in the given range, or
// over all sales when no range is supplied.
func (s *DefaultSaleService) GetTotalSalesAmount(ctx context.Context, start, end *time.Time) (decimal.Decimal, error) {
	var (
		sales []models.SaleDetail
		err   error
	)

	if start != nil && end != nil {
		sales, err = s.GetSalesByDateRange(ctx, *start, *end)
	} else {
		sales, err = s.repo.GetAllSales(ctx, 0, math.MaxInt32)
	}
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for i := range sales {
		total = total.Add(sales[i].LineTotal)
	}
	return total, nil
}
