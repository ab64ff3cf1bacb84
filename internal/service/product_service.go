package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/opticstore/server/internal/domain"
	"github.com/opticstore/server/internal/models"
	"github.com/opticstore/server/internal/repository"
)

// ProductService defines catalog operations over products
type ProductService interface {
	CreateProduct(ctx context.Context, req models.ProductCreateRequest) (*models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetAllProducts(ctx context.Context, skip, limit int) ([]models.Product, error)
	SearchProducts(ctx context.Context, term string) ([]models.Product, error)
	UpdateProduct(ctx context.Context, id int64, req models.ProductUpdateRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	CheckStockAvailability(ctx context.Context, id int64, quantity int) (bool, error)
}

// DefaultProductService implements the ProductService interface
type DefaultProductService struct {
	repo repository.Repository
}

// NewProductService creates a new DefaultProductService
func NewProductService(repo repository.Repository) ProductService {
	return &DefaultProductService{repo: repo}
}

func (s *DefaultProductService) CreateProduct(ctx context.Context, req models.ProductCreateRequest) (*models.Product, error) {
	if !req.Price.IsPositive() {
		return nil, &domain.ValidationError{Message: "price must be greater than 0"}
	}
	if req.Stock < 0 {
		return nil, &domain.ValidationError{Message: "stock cannot be negative"}
	}

	product := &models.Product{
		Name:     req.Name,
		Price:    req.Price,
		Stock:    req.Stock,
		ImageURL: req.ImageURL,
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("error creating product: %w", err)
	}

	return product, nil
}

func (s *DefaultProductService) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting product: %w", err)
	}

	if product == nil {
		return nil, &domain.NotFoundError{Entity: "product"}
	}

	return product, nil
}

func (s *DefaultProductService) GetAllProducts(ctx context.Context, skip, limit int) ([]models.Product, error) {
	products, err := s.repo.GetAllProducts(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("error getting products: %w", err)
	}

	return products, nil
}

func (s *DefaultProductService) SearchProducts(ctx context.Context, term string) ([]models.Product, error) {
	if len(strings.TrimSpace(term)) < 2 {
		return nil, &domain.ValidationError{Message: "search term must contain at least 2 characters"}
	}

	products, err := s.repo.SearchProducts(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("error searching products: %w", err)
	}

	return products, nil
}

func (s *DefaultProductService) UpdateProduct(ctx context.Context, id int64, req models.ProductUpdateRequest) (*models.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting product: %w", err)
	}

	if product == nil {
		return nil, &domain.NotFoundError{Entity: "product"}
	}

	// Validate only the supplied fields
	if req.Price != nil && !req.Price.IsPositive() {
		return nil, &domain.ValidationError{Message: "price must be greater than 0"}
	}
	if req.Stock != nil && *req.Stock < 0 {
		return nil, &domain.ValidationError{Message: "stock cannot be negative"}
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.ImageURL != nil {
		product.ImageURL = req.ImageURL
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		return nil, err
	}

	// A supplied stock value is a restock/correction; it goes through the
	// ledger as a delta rather than a direct write.
	if req.Stock != nil && *req.Stock != product.Stock {
		updated, err := s.repo.ApplyStockDelta(ctx, id, *req.Stock-product.Stock)
		if err != nil {
			return nil, err
		}
		product.Stock = updated.Stock
	}

	return product, nil
}

func (s *DefaultProductService) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

func (s *DefaultProductService) CheckStockAvailability(ctx context.Context, id int64, quantity int) (bool, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("error getting product: %w", err)
	}

	if product == nil {
		return false, &domain.NotFoundError{Entity: "product"}
	}

	return product.Stock >= quantity, nil
}
