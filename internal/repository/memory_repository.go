package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opticstore/server/internal/domain"
	"github.com/opticstore/server/internal/models"
)

// MemoryRepository is an in-process Repository implementation backed by
// maps. It mirrors the PostgreSQL semantics, including the conditional
// stock update and the restrict-on-delete policy, and serializes every
// operation behind one mutex. Used by the test suites so they run without
// a database.
type MemoryRepository struct {
	mu sync.Mutex

	users    map[int64]*models.User
	products map[int64]*models.Product
	sales    map[int64]*models.Sale

	nextUserID    int64
	nextProductID int64
	nextSaleID    int64
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:    make(map[int64]*models.User),
		products: make(map[int64]*models.Product),
		sales:    make(map[int64]*models.Sale),
	}
}

// User repository methods
func (r *MemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return &domain.ConflictError{Message: "this email is already registered"}
		}
	}

	r.nextUserID++
	user.ID = r.nextUserID
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

func (r *MemoryRepository) GetAllUsers(ctx context.Context, skip, limit int) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return page(users, skip, limit), nil
}

func (r *MemoryRepository) UpdateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return &domain.NotFoundError{Entity: "user"}
	}
	for _, u := range r.users {
		if u.ID != user.ID && u.Email == user.Email {
			return &domain.ConflictError{Message: "this email is already registered"}
		}
	}

	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *MemoryRepository) DeleteUser(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return &domain.NotFoundError{Entity: "user"}
	}
	for _, s := range r.sales {
		if s.UserID == id {
			return &domain.ConflictError{Message: "user has associated sales"}
		}
	}

	delete(r.users, id)
	return nil
}

// Product repository methods
func (r *MemoryRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextProductID++
	product.ID = r.nextProductID
	clone := *product
	r.products[product.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (r *MemoryRepository) GetAllProducts(ctx context.Context, skip, limit int) ([]models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	products := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		products = append(products, *p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return page(products, skip, limit), nil
}

func (r *MemoryRepository) SearchProducts(ctx context.Context, term string) ([]models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	needle := strings.ToLower(term)
	products := []models.Product{}
	for _, p := range r.products {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			products = append(products, *p)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (r *MemoryRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[product.ID]
	if !ok {
		return &domain.NotFoundError{Entity: "product"}
	}

	clone := *product
	clone.Stock = existing.Stock // stock only moves through ApplyStockDelta
	r.products[product.ID] = &clone
	return nil
}

func (r *MemoryRepository) DeleteProduct(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return &domain.NotFoundError{Entity: "product"}
	}
	for _, s := range r.sales {
		if s.ProductID == id {
			return &domain.ConflictError{Message: "product has associated sales"}
		}
	}

	delete(r.products, id)
	return nil
}

// Inventory ledger methods
func (r *MemoryRepository) ApplyStockDelta(ctx context.Context, productID int64, delta int) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.applyStockDeltaLocked(productID, delta)
}

func (r *MemoryRepository) applyStockDeltaLocked(productID int64, delta int) (*models.Product, error) {
	p, ok := r.products[productID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "product"}
	}
	if p.Stock+delta < 0 {
		return nil, &domain.InsufficientStockError{Available: p.Stock}
	}

	p.Stock += delta
	clone := *p
	return &clone, nil
}

// Sale workflow methods
func (r *MemoryRepository) CreateSale(ctx context.Context, sale *models.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[sale.UserID]; !ok {
		return &domain.NotFoundError{Entity: "user"}
	}
	if _, err := r.applyStockDeltaLocked(sale.ProductID, -sale.Quantity); err != nil {
		return err
	}

	if sale.Date.IsZero() {
		sale.Date = time.Now().UTC()
	}
	r.nextSaleID++
	sale.ID = r.nextSaleID
	clone := *sale
	r.sales[sale.ID] = &clone
	return nil
}

func (r *MemoryRepository) UpdateSale(ctx context.Context, saleID int64, upd models.SaleUpdateRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sale, ok := r.sales[saleID]
	if !ok {
		return &domain.NotFoundError{Entity: "sale"}
	}

	newProductID := sale.ProductID
	if upd.ProductID != nil {
		newProductID = *upd.ProductID
	}
	newUserID := sale.UserID
	if upd.UserID != nil {
		newUserID = *upd.UserID
	}
	newQuantity := sale.Quantity
	if upd.Quantity != nil {
		newQuantity = *upd.Quantity
	}

	if _, ok := r.users[newUserID]; !ok {
		return &domain.NotFoundError{Entity: "user"}
	}

	if newProductID != sale.ProductID {
		if _, err := r.applyStockDeltaLocked(newProductID, -newQuantity); err != nil {
			return err
		}
		if _, err := r.applyStockDeltaLocked(sale.ProductID, sale.Quantity); err != nil {
			return err
		}
	} else if delta := newQuantity - sale.Quantity; delta != 0 {
		if _, err := r.applyStockDeltaLocked(sale.ProductID, -delta); err != nil {
			return err
		}
	}

	sale.ProductID = newProductID
	sale.UserID = newUserID
	sale.Quantity = newQuantity
	return nil
}

func (r *MemoryRepository) DeleteSale(ctx context.Context, saleID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sale, ok := r.sales[saleID]
	if !ok {
		return &domain.NotFoundError{Entity: "sale"}
	}

	if _, err := r.applyStockDeltaLocked(sale.ProductID, sale.Quantity); err != nil {
		return err
	}

	delete(r.sales, saleID)
	return nil
}

// Sale read methods
func (r *MemoryRepository) GetSaleByID(ctx context.Context, id int64) (*models.SaleDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sale, ok := r.sales[id]
	if !ok {
		return nil, nil
	}
	detail := r.saleDetailLocked(sale)
	return &detail, nil
}

func (r *MemoryRepository) GetAllSales(ctx context.Context, skip, limit int) ([]models.SaleDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return page(r.saleDetailsLocked(nil), skip, limit), nil
}

func (r *MemoryRepository) GetSalesByUser(ctx context.Context, userID int64) ([]models.SaleDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.saleDetailsLocked(func(s *models.Sale) bool { return s.UserID == userID }), nil
}

func (r *MemoryRepository) GetSalesByProduct(ctx context.Context, productID int64) ([]models.SaleDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.saleDetailsLocked(func(s *models.Sale) bool { return s.ProductID == productID }), nil
}

func (r *MemoryRepository) GetSalesByDateRange(ctx context.Context, start, end time.Time) ([]models.SaleDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.saleDetailsLocked(func(s *models.Sale) bool {
		return !s.Date.Before(start) && !s.Date.After(end)
	}), nil
}

func (r *MemoryRepository) saleDetailsLocked(match func(*models.Sale) bool) []models.SaleDetail {
	details := []models.SaleDetail{}
	for _, s := range r.sales {
		if match != nil && !match(s) {
			continue
		}
		details = append(details, r.saleDetailLocked(s))
	}
	// Newest first, matching the SQL ordering
	sort.Slice(details, func(i, j int) bool {
		if details[i].Date.Equal(details[j].Date) {
			return details[i].ID > details[j].ID
		}
		return details[i].Date.After(details[j].Date)
	})
	return details
}

func (r *MemoryRepository) saleDetailLocked(sale *models.Sale) models.SaleDetail {
	detail := models.SaleDetail{
		ID:        sale.ID,
		ProductID: sale.ProductID,
		UserID:    sale.UserID,
		Quantity:  sale.Quantity,
		Date:      sale.Date,
	}
	if p, ok := r.products[sale.ProductID]; ok {
		detail.ProductName = p.Name
		detail.UnitPrice = p.Price
		detail.LineTotal = p.Price.Mul(decimal.NewFromInt(int64(sale.Quantity)))
	}
	if u, ok := r.users[sale.UserID]; ok {
		detail.UserName = u.Name
	}
	return detail
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
