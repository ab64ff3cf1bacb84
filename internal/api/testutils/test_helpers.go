package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/opticstore/server/internal/api"
	"github.com/opticstore/server/internal/models"
	"github.com/opticstore/server/internal/repository"
	"github.com/opticstore/server/internal/service"
)

const testJWTSecret = "test-secret-key"

// TestContext holds all dependencies for tests
type TestContext struct {
	Router      *gin.Engine
	Repo        *repository.MemoryRepository
	TestUserID  int64
	TestUserJWT string
}

// SetupTestContext creates a new test context with an in-memory repository
// behind the full router stack
func SetupTestContext(t *testing.T) *TestContext {
	repo := repository.NewMemoryRepository()

	authSvc := service.NewAuthService(repo, testJWTSecret, 30*time.Minute)
	productSvc := service.NewProductService(repo)
	saleSvc := service.NewSaleService(repo)

	handler := api.NewHandler(authSvc, productSvc, saleSvc)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(testJWTSecret))
		c.Next()
	})

	handler.SetupRoutes(router)

	testUserID, token := createTestUser(t, repo)

	return &TestContext{
		Router:      router,
		Repo:        repo,
		TestUserID:  testUserID,
		TestUserJWT: token,
	}
}

// createTestUser seeds a known user and mints a token for it
func createTestUser(t *testing.T, repo repository.Repository) (int64, string) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("testpassword"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Name:     "Test User",
		Email:    "testuser@example.com",
		Password: string(hashedPassword),
	}

	err = repo.CreateUser(context.Background(), user)
	require.NoError(t, err, "Failed to create test user")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     user.Email,
		"user_id": user.ID,
		"exp":     time.Now().Add(30 * time.Minute).Unix(),
		"iat":     time.Now().Unix(),
	})

	tokenString, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err, "Failed to generate JWT token")

	return user.ID, tokenString
}

// CreateTestProduct seeds a product directly through the repository
func CreateTestProduct(t *testing.T, repo repository.Repository, name, price string, stock int) *models.Product {
	product := &models.Product{
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}

	err := repo.CreateProduct(context.Background(), product)
	require.NoError(t, err, "Failed to create test product")

	return product
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
