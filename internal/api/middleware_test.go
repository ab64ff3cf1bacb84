package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const middlewareTestSecret = "middleware-test-secret"

func middlewareTestRouter(logBuf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(middlewareTestSecret))
		c.Next()
	})
	router.Use(RequestID())
	router.Use(RequestLogger(zerolog.New(logBuf)))

	protected := router.Group("", AuthMiddleware())
	protected.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"email":   c.GetString("userEmail"),
			"user_id": c.GetInt64("userId"),
		})
	})

	return router
}

func mintMiddlewareToken(t *testing.T, email string, userID int64) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     email,
		"user_id": userID,
		"exp":     time.Now().Add(30 * time.Minute).Unix(),
		"iat":     time.Now().Unix(),
	})

	signed, err := token.SignedString([]byte(middlewareTestSecret))
	require.NoError(t, err)
	return signed
}

func TestAuthMiddlewarePropagatesIdentity(t *testing.T) {
	var logBuf bytes.Buffer
	router := middlewareTestRouter(&logBuf)

	req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+mintMiddlewareToken(t, "alice@example.com", 42))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Email  string `json:"email"`
		UserID int64  `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "alice@example.com", body.Email)
	assert.Equal(t, int64(42), body.UserID)

	// The request log line carries the authenticated caller
	assert.Contains(t, logBuf.String(), `"user_id":42`)
	assert.Contains(t, logBuf.String(), `"request_id"`)
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	var logBuf bytes.Buffer
	router := middlewareTestRouter(&logBuf)

	for _, header := range []string{
		"",
		"NotBearer token",
		"Bearer not-a-jwt",
	} {
		req, _ := http.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}

	// Unauthenticated requests log without a caller field
	assert.NotContains(t, logBuf.String(), `"user_id"`)
}
