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
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/olawanle/timebank-server/internal/api"
	"github.com/olawanle/timebank-server/internal/models"
	"github.com/olawanle/timebank-server/internal/repository"
	"github.com/olawanle/timebank-server/internal/service"
)

const testJWTSecret = "test-secret-key"

// TestContext holds all dependencies for tests
type TestContext struct {
	Router     *gin.Engine
	Repository repository.Repository
	Service    service.Service
	JWTSecret  []byte
}

// SetupTestContext wires the full router against an in-memory repository
func SetupTestContext(t *testing.T) *TestContext {
	t.Helper()

	repo := repository.NewMemoryRepository()
	svc := service.NewDefaultService(repo, testJWTSecret)
	handler := api.NewHandler(svc)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(testJWTSecret))
		c.Next()
	})

	handler.SetupRoutes(router)

	return &TestContext{
		Router:     router,
		Repository: repo,
		Service:    svc,
		JWTSecret:  []byte(testJWTSecret),
	}
}

// CreateTestUser seeds a user with the given balance and returns it with a
// valid bearer token. Seeded users carry no welcome ledger entry unless the
// balance is positive.
func CreateTestUser(t *testing.T, tc *TestContext, username string, balance float64) (*models.User, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("testpassword"), bcrypt.DefaultCost)
	require.NoError(t, err)

	user := &models.User{
		ID:              uuid.New().String(),
		Username:        username,
		Email:           username + "@example.com",
		PasswordHash:    string(hashedPassword),
		WalletAddress:   models.NewWalletAddress(),
		TokenBalance:    balance,
		ReputationScore: models.StartingReputation,
		CreatedAt:       time.Now().UTC(),
	}

	err = tc.Repository.CreateUser(context.Background(), user, "Test seed balance")
	require.NoError(t, err, "Failed to create test user")

	return user, SignToken(t, tc, user.ID)
}

// CreateTestAdmin seeds an admin user and returns it with a bearer token
func CreateTestAdmin(t *testing.T, tc *TestContext, username string) (*models.User, string) {
	t.Helper()

	user, token := CreateTestUser(t, tc, username, 1000.0)
	err := tc.Repository.GrantAdmin(context.Background(), user.ID)
	require.NoError(t, err)
	user.IsAdmin = true

	return user, token
}

// SignToken generates a JWT for the given user ID
func SignToken(t *testing.T, tc *TestContext, userID string) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})

	tokenString, err := token.SignedString(tc.JWTSecret)
	require.NoError(t, err, "Failed to generate JWT token")

	return tokenString
}

// GetUser re-reads a user from the repository
func GetUser(t *testing.T, tc *TestContext, userID string) *models.User {
	t.Helper()

	user, err := tc.Repository.GetUserByID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, user)
	return user
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
