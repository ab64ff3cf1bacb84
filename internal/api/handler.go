package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opticstore/server/internal/domain"
	"github.com/opticstore/server/internal/models"
	"github.com/opticstore/server/internal/service"
)

// Handler translates HTTP requests into service calls and maps domain
// errors to status codes
type Handler struct {
	auth     service.AuthService
	products service.ProductService
	sales    service.SaleService
}

// NewHandler creates a new API handler
func NewHandler(auth service.AuthService, products service.ProductService, sales service.SaleService) *Handler {
	return &Handler{
		auth:     auth,
		products: products,
		sales:    sales,
	}
}

// SetupRoutes registers all API routes. Reads are public; mutating routes
// require a bearer token.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.GET("/users/:id", h.GetUser)
		auth.GET("/users", h.GetAllUsers)

		protected := auth.Group("", AuthMiddleware())
		protected.PUT("/users/:id", h.UpdateUser)
		protected.DELETE("/users/:id", h.DeleteUser)
	}

	products := router.Group("/products")
	{
		products.GET("/:id", h.GetProduct)
		products.GET("", h.GetAllProducts)
		products.GET("/search", h.SearchProducts)
		products.GET("/:id/stock-check", h.CheckStock)

		protected := products.Group("", AuthMiddleware())
		protected.POST("", h.CreateProduct)
		protected.PUT("/:id", h.UpdateProduct)
		protected.DELETE("/:id", h.DeleteProduct)
	}

	sales := router.Group("/sales")
	{
		sales.GET("/:id", h.GetSale)
		sales.GET("", h.GetAllSales)
		sales.GET("/user/:id", h.GetSalesByUser)
		sales.GET("/product/:id", h.GetSalesByProduct)
		sales.GET("/date-range", h.GetSalesByDateRange)
		sales.GET("/stats/total-amount", h.GetTotalSalesAmount)

		protected := sales.Group("", AuthMiddleware())
		protected.POST("", h.CreateSale)
		protected.PUT("/:id", h.UpdateSale)
		protected.DELETE("/:id", h.DeleteSale)
	}
}

// Root is a banner endpoint to verify the API is reachable
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "optic store API",
		"endpoints": gin.H{
			"auth":     "/auth",
			"products": "/products",
			"sales":    "/sales",
		},
	})
}

// Health is a liveness endpoint
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Auth handlers
func (h *Handler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (h *Handler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	user, err := h.auth.GetUserByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) GetAllUsers(c *gin.Context) {
	skip, limit := pagination(c)

	users, err := h.auth.GetAllUsers(c.Request.Context(), skip, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	user, err := h.auth.UpdateUser(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.auth.DeleteUser(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Product handlers
func (h *Handler) CreateProduct(c *gin.Context) {
	var req models.ProductCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	product, err := h.products.CreateProduct(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

func (h *Handler) GetProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	product, err := h.products.GetProductByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) GetAllProducts(c *gin.Context) {
	skip, limit := pagination(c)

	products, err := h.products.GetAllProducts(c.Request.Context(), skip, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

func (h *Handler) SearchProducts(c *gin.Context) {
	products, err := h.products.SearchProducts(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.ProductUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	product, err := h.products.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.products.DeleteProduct(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) CheckStock(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	quantity, err := strconv.Atoi(c.Query("quantity"))
	if err != nil || quantity < 1 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "quantity must be a positive integer"})
		return
	}

	available, err := h.products.CheckStockAvailability(c.Request.Context(), id, quantity)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StockCheckResponse{
		ProductID:         id,
		RequestedQuantity: quantity,
		IsAvailable:       available,
	})
}

// Sale handlers
func (h *Handler) CreateSale(c *gin.Context) {
	var req models.SaleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	sale, err := h.sales.CreateSale(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sale)
}

func (h *Handler) GetSale(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	sale, err := h.sales.GetSaleByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sale)
}

func (h *Handler) GetAllSales(c *gin.Context) {
	skip, limit := pagination(c)

	sales, err := h.sales.GetAllSales(c.Request.Context(), skip, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sales)
}

func (h *Handler) GetSalesByUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	sales, err := h.sales.GetSalesByUser(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sales)
}

func (h *Handler) GetSalesByProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	sales, err := h.sales.GetSalesByProduct(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sales)
}

func (h *Handler) GetSalesByDateRange(c *gin.Context) {
	start, ok := queryDate(c, "start_date", true)
	if !ok {
		return
	}
	end, ok := queryDate(c, "end_date", true)
	if !ok {
		return
	}

	sales, err := h.sales.GetSalesByDateRange(c.Request.Context(), *start, *end)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sales)
}

func (h *Handler) UpdateSale(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req models.SaleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	sale, err := h.sales.UpdateSale(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sale)
}

func (h *Handler) DeleteSale(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.sales.DeleteSale(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) GetTotalSalesAmount(c *gin.Context) {
	start, ok := queryDate(c, "start_date", false)
	if !ok {
		return
	}
	end, ok := queryDate(c, "end_date", false)
	if !ok {
		return
	}

	total, err := h.sales.GetTotalSalesAmount(c.Request.Context(), start, end)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TotalAmountResponse{
		TotalAmount: total,
		StartDate:   start,
		EndDate:     end,
	})
}

// writeError translates a domain error into its status code. Unclassified
// failures surface as 500 with the underlying message.
func writeError(c *gin.Context, err error) {
	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		conflictErr   *domain.ConflictError
		authErr       *domain.AuthError
		stockErr      *domain.InsufficientStockError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validationErr), errors.As(err, &stockErr):
		status = http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		status = http.StatusNotFound
	case errors.As(err, &conflictErr):
		status = http.StatusConflict
	case errors.As(err, &authErr):
		status = http.StatusUnauthorized
	}

	c.JSON(status, models.ErrorResponse{Error: err.Error()})
}

// pathID parses the :id path parameter, writing a 400 response when it is
// not a valid id.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid id"})
		return 0, false
	}
	return id, true
}

// pagination reads skip/limit query parameters with the usual clamps
func pagination(c *gin.Context) (skip, limit int) {
	skip, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))
	if skip < 0 {
		skip = 0
	}

	limit = 100
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 1000 {
		limit = 1000
	}
	return skip, limit
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// queryDate parses a date query parameter accepting RFC3339 or plain dates.
// It writes a 400 response on a malformed value, or on a missing one when
// required, and reports success through its second return.
func queryDate(c *gin.Context, name string, required bool) (*time.Time, bool) {
	value := c.Query(name)
	if value == "" {
		if required {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: name + " is required"})
			return nil, false
		}
		return nil, true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, true
		}
	}

	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid " + name})
	return nil, false
}
