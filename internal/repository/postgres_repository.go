package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/opticstore/server/internal/domain"
	"github.com/opticstore/server/internal/models"
)

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetAllUsers(ctx context.Context, skip, limit int) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error

	// Product operations
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetAllProducts(ctx context.Context, skip, limit int) ([]models.Product, error)
	SearchProducts(ctx context.Context, term string) ([]models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error

	// Inventory ledger. ApplyStockDelta is the only way any component may
	// mutate a product's stock; it rejects deltas that would drive stock
	// negative without mutating anything.
	ApplyStockDelta(ctx context.Context, productID int64, delta int) (*models.Product, error)

	// Sale workflow operations; each runs in a single transaction so the
	// sale row and the stock adjustment commit or roll back together.
	CreateSale(ctx context.Context, sale *models.Sale) error
	UpdateSale(ctx context.Context, saleID int64, upd models.SaleUpdateRequest) error
	DeleteSale(ctx context.Context, saleID int64) error

	// Sale read operations
	GetSaleByID(ctx context.Context, id int64) (*models.SaleDetail, error)
	GetAllSales(ctx context.Context, skip, limit int) ([]models.SaleDetail, error)
	GetSalesByUser(ctx context.Context, userID int64) ([]models.SaleDetail, error)
	GetSalesByProduct(ctx context.Context, productID int64) ([]models.SaleDetail, error)
	GetSalesByDateRange(ctx context.Context, start, end time.Time) ([]models.SaleDetail, error)
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, password)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query, user.Name, user.Email, user.Password).Scan(&user.ID)
	if isPqError(err, pqUniqueViolation) {
		return &domain.ConflictError{Message: "this email is already registered"}
	}
	return err
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT * FROM users WHERE email = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT * FROM users WHERE id = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetAllUsers(ctx context.Context, skip, limit int) ([]models.User, error) {
	query := `SELECT * FROM users ORDER BY id OFFSET $1 LIMIT $2`

	users := []models.User{}
	err := r.db.SelectContext(ctx, &users, query, skip, limit)
	if err != nil {
		return nil, err
	}

	return users, nil
}

func (r *PostgresRepository) UpdateUser(ctx context.Context, user *models.User) error {
	query := `UPDATE users SET name = $1, email = $2, password = $3 WHERE id = $4`

	res, err := r.db.ExecContext(ctx, query, user.Name, user.Email, user.Password, user.ID)
	if isPqError(err, pqUniqueViolation) {
		return &domain.ConflictError{Message: "this email is already registered"}
	}
	if err != nil {
		return err
	}

	return checkAffected(res, "user")
}

func (r *PostgresRepository) DeleteUser(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if isPqError(err, pqForeignKeyViolation) {
		return &domain.ConflictError{Message: "user has associated sales"}
	}
	if err != nil {
		return err
	}

	return checkAffected(res, "user")
}

// Product repository methods
func (r *PostgresRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (name, price, stock, image_url)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	return r.db.QueryRowContext(ctx, query,
		product.Name, product.Price, product.Stock, product.ImageURL).Scan(&product.ID)
}

func (r *PostgresRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT * FROM products WHERE id = $1`

	var product models.Product
	err := r.db.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Product not found
		}
		return nil, err
	}

	return &product, nil
}

func (r *PostgresRepository) GetAllProducts(ctx context.Context, skip, limit int) ([]models.Product, error) {
	query := `SELECT * FROM products ORDER BY id OFFSET $1 LIMIT $2`

	products := []models.Product{}
	err := r.db.SelectContext(ctx, &products, query, skip, limit)
	if err != nil {
		return nil, err
	}

	return products, nil
}

func (r *PostgresRepository) SearchProducts(ctx context.Context, term string) ([]models.Product, error) {
	query := `SELECT * FROM products WHERE name ILIKE '%' || $1 || '%' ORDER BY id`

	products := []models.Product{}
	err := r.db.SelectContext(ctx, &products, query, term)
	if err != nil {
		return nil, err
	}

	return products, nil
}

func (r *PostgresRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	query := `UPDATE products SET name = $1, price = $2, image_url = $3 WHERE id = $4`

	res, err := r.db.ExecContext(ctx, query,
		product.Name, product.Price, product.ImageURL, product.ID)
	if err != nil {
		return err
	}

	return checkAffected(res, "product")
}

func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if isPqError(err, pqForeignKeyViolation) {
		return &domain.ConflictError{Message: "product has associated sales"}
	}
	if err != nil {
		return err
	}

	return checkAffected(res, "product")
}

// Inventory ledger methods
func (r *PostgresRepository) ApplyStockDelta(ctx context.Context, productID int64, delta int) (*models.Product, error) {
	return applyStockDelta(ctx, r.db, productID, delta)
}

// applyStockDelta performs the check and the write as one conditional
// statement evaluated server-side, so two concurrent sales can never both
// pass the availability check and drive stock negative.
func applyStockDelta(ctx context.Context, ext sqlx.ExtContext, productID int64, delta int) (*models.Product, error) {
	query := `
		UPDATE products SET stock = stock + $2
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING id, name, price, stock, image_url
	`

	var product models.Product
	err := sqlx.GetContext(ctx, ext, &product, query, productID, delta)
	if err == nil {
		return &product, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// No row matched: either the product is missing or the delta would
	// make stock negative. Read the current stock to tell the two apart.
	var stock int
	err = sqlx.GetContext(ctx, ext, &stock, `SELECT stock FROM products WHERE id = $1`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "product"}
	}
	if err != nil {
		return nil, err
	}

	return nil, &domain.InsufficientStockError{Available: stock}
}

// Sale workflow methods
func (r *PostgresRepository) CreateSale(ctx context.Context, sale *models.Sale) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	if _, err = applyStockDelta(ctx, tx, sale.ProductID, -sale.Quantity); err != nil {
		return err
	}

	if sale.Date.IsZero() {
		sale.Date = time.Now().UTC()
	}

	query := `
		INSERT INTO sales (product_id, user_id, quantity, date)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err = tx.QueryRowContext(ctx, query,
		sale.ProductID, sale.UserID, sale.Quantity, sale.Date).Scan(&sale.ID)
	if err != nil {
		err = mapSaleFKViolation(err)
		return err
	}

	return tx.Commit()
}

func (r *PostgresRepository) UpdateSale(ctx context.Context, saleID int64, upd models.SaleUpdateRequest) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	// Lock the sale row so concurrent updates serialize on it.
	var sale models.Sale
	err = tx.GetContext(ctx, &sale, `SELECT * FROM sales WHERE id = $1 FOR UPDATE`, saleID)
	if errors.Is(err, sql.ErrNoRows) {
		err = &domain.NotFoundError{Entity: "sale"}
		return err
	}
	if err != nil {
		return err
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

	if newProductID != sale.ProductID {
		// The sale moves between products: restore the old product in
		// full, then charge the new one, validated against its stock.
		if _, err = applyStockDelta(ctx, tx, sale.ProductID, sale.Quantity); err != nil {
			return err
		}
		if _, err = applyStockDelta(ctx, tx, newProductID, -newQuantity); err != nil {
			return err
		}
	} else if delta := newQuantity - sale.Quantity; delta != 0 {
		if _, err = applyStockDelta(ctx, tx, sale.ProductID, -delta); err != nil {
			return err
		}
	}

	query := `UPDATE sales SET product_id = $1, user_id = $2, quantity = $3 WHERE id = $4`
	_, err = tx.ExecContext(ctx, query, newProductID, newUserID, newQuantity, saleID)
	if err != nil {
		err = mapSaleFKViolation(err)
		return err
	}

	return tx.Commit()
}

func (r *PostgresRepository) DeleteSale(ctx context.Context, saleID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	var sale models.Sale
	err = tx.GetContext(ctx, &sale, `SELECT * FROM sales WHERE id = $1 FOR UPDATE`, saleID)
	if errors.Is(err, sql.ErrNoRows) {
		err = &domain.NotFoundError{Entity: "sale"}
		return err
	}
	if err != nil {
		return err
	}

	// Deleting a sale reverses its stock effect in the same transaction.
	if _, err = applyStockDelta(ctx, tx, sale.ProductID, sale.Quantity); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, saleID); err != nil {
		return err
	}

	return tx.Commit()
}

// Sale read methods
const saleDetailQuery = `
	SELECT s.id, s.product_id, s.user_id, s.quantity, s.date,
	       p.name AS product_name, u.name AS user_name,
	       p.price AS unit_price, p.price * s.quantity AS line_total
	FROM sales s
	JOIN products p ON s.product_id = p.id
	JOIN users u ON s.user_id = u.id
`

func (r *PostgresRepository) GetSaleByID(ctx context.Context, id int64) (*models.SaleDetail, error) {
	query := saleDetailQuery + ` WHERE s.id = $1`

	var sale models.SaleDetail
	err := r.db.GetContext(ctx, &sale, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Sale not found
		}
		return nil, err
	}

	return &sale, nil
}

func (r *PostgresRepository) GetAllSales(ctx context.Context, skip, limit int) ([]models.SaleDetail, error) {
	query := saleDetailQuery + ` ORDER BY s.date DESC OFFSET $1 LIMIT $2`

	sales := []models.SaleDetail{}
	err := r.db.SelectContext(ctx, &sales, query, skip, limit)
	if err != nil {
		return nil, err
	}

	return sales, nil
}

func (r *PostgresRepository) GetSalesByUser(ctx context.Context, userID int64) ([]models.SaleDetail, error) {
	query := saleDetailQuery + ` WHERE s.user_id = $1 ORDER BY s.date DESC`

	sales := []models.SaleDetail{}
	err := r.db.SelectContext(ctx, &sales, query, userID)
	if err != nil {
		return nil, err
	}

	return sales, nil
}

func (r *PostgresRepository) GetSalesByProduct(ctx context.Context, productID int64) ([]models.SaleDetail, error) {
	query := saleDetailQuery + ` WHERE s.product_id = $1 ORDER BY s.date DESC`

	sales := []models.SaleDetail{}
	err := r.db.SelectContext(ctx, &sales, query, productID)
	if err != nil {
		return nil, err
	}

	return sales, nil
}

func (r *PostgresRepository) GetSalesByDateRange(ctx context.Context, start, end time.Time) ([]models.SaleDetail, error) {
	query := saleDetailQuery + ` WHERE s.date >= $1 AND s.date <= $2 ORDER BY s.date DESC`

	sales := []models.SaleDetail{}
	err := r.db.SelectContext(ctx, &sales, query, start, end)
	if err != nil {
		return nil, err
	}

	return sales, nil
}

// Error helpers
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func isPqError(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

// mapSaleFKViolation converts a foreign key violation on a sale write into
// the not-found error for the entity the violated constraint references.
func mapSaleFKViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqForeignKeyViolation {
		return err
	}
	if strings.Contains(pqErr.Constraint, "user") {
		return &domain.NotFoundError{Entity: "user"}
	}
	return &domain.NotFoundError{Entity: "product"}
}

func checkAffected(res sql.Result, entity string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &domain.NotFoundError{Entity: entity}
	}
	return nil
}
