package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/moviegraph/internal/validation"
	"github.com/temcen/moviegraph/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JWTClaims), args.Error(1)
}

type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) IsAllowed(ctx context.Context, userID, userTier string) (bool, *models.RateLimitInfo) {
	args := m.Called(ctx, userID, userTier)
	return args.Bool(0), args.Get(1).(*models.RateLimitInfo)
}

func whoAmI(c *gin.Context) {
	userID, tier, _ := GetUserFromContext(c)
	c.String(http.StatusOK, userID+"/"+tier)
}

func TestAuth(t *testing.T) {
	validator := new(MockTokenValidator)
	validator.On("ValidateToken", "good").Return(&models.JWTClaims{UserID: "u1", UserTier: "premium"}, nil)
	validator.On("ValidateToken", "bad").Return(nil, errors.New("expired"))

	router := gin.New()
	router.GET("/me", Auth(validator, quietLogger()), whoAmI)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid token", "Bearer good", http.StatusOK, "u1/premium"},
		{"lower case scheme", "bearer good", http.StatusOK, "u1/premium"},
		{"missing header", "", http.StatusUnauthorized, "MISSING_AUTHORIZATION"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "INVALID_AUTHORIZATION_FORMAT"},
		{"invalid token", "Bearer bad", http.StatusUnauthorized, "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}

func TestRateLimit(t *testing.T) {
	limiter := new(MockRateLimiter)
	limiter.On("IsAllowed", mock.Anything, "u1", "free").
		Return(true, &models.RateLimitInfo{Limit: 100, Remaining: 99, ResetTime: 1700000000})
	limiter.On("IsAllowed", mock.Anything, "u2", "free").
		Return(false, &models.RateLimitInfo{Limit: 100, Remaining: 0, ResetTime: 1700000000})

	router := gin.New()
	router.GET("/r", func(c *gin.Context) {
		c.Set(ContextUserID, c.Query("user"))
		c.Next()
	}, RateLimit(limiter, quietLogger()), whoAmI)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/r?user=u1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "99", w.Header().Get("X-RateLimit-Remaining"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/r?user=u2", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")

	limiter.AssertExpectations(t)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))
	assert.Len(t, w.Body.String(), 36)
}

func TestValidateBody(t *testing.T) {
	validator, err := validation.NewBuiltinValidator()
	require.NoError(t, err)

	router := gin.New()
	router.POST("/ratings", ValidateBody(validator, validation.SchemaRating), func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(body))
	})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"movie_id":"m1","rating":4}`, http.StatusOK},
		{"out of range", `{"movie_id":"m1","rating":6}`, http.StatusBadRequest},
		{"malformed", `{"movie_id":`, http.StatusBadRequest},
		{"empty", ``, http.StatusBadRequest},
		{"too large", `{"review":"` + strings.Repeat("x", maxBodyBytes) + `"}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ratings", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	router := gin.New()
	router.Use(Timeout(time.Second))
	router.GET("/t", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		if ok {
			c.Status(http.StatusNoContent)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(quietLogger()))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
}
