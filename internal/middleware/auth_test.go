package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func signToken(t *testing.T, userID int64, isStaff bool) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"is_staff": isStaff,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(viper.GetString("jwt.secret_key")))
	assert.NoError(t, err)
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	viper.Set("jwt.secret_key", "test-secret")
	InitAuthMiddleware(nil)

	protected := AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := r.Context().Value(UserIDKey).(int64)
		isStaff, _ := r.Context().Value(IsStaffKey).(bool)
		assert.Equal(t, int64(7), userID)
		assert.False(t, isStaff)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token populates context", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/accounts", nil)
		r.Header.Set("Authorization", "Bearer "+signToken(t, 7, false))
		w := httptest.NewRecorder()

		protected.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/accounts", nil)
		w := httptest.NewRecorder()

		protected.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/accounts", nil)
		r.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()

		protected.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token signed with wrong key", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": float64(7),
			"exp":     time.Now().Add(time.Hour).Unix(),
		})
		signed, _ := token.SignedString([]byte("other-secret"))

		r := httptest.NewRequest("GET", "/accounts", nil)
		r.Header.Set("Authorization", "Bearer "+signed)
		w := httptest.NewRecorder()

		protected.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("blacklisted token is revoked", func(t *testing.T) {
		redisClient, mock := redismock.NewClientMock()
		InitAuthMiddleware(redisClient)
		defer InitAuthMiddleware(nil)

		token := signToken(t, 7, false)
		mock.ExpectExists("blacklist:" + token).SetVal(1)

		r := httptest.NewRequest("GET", "/accounts", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		protected.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRequireStaff(t *testing.T) {
	viper.Set("jwt.secret_key", "test-secret")
	InitAuthMiddleware(nil)

	staffOnly := AuthMiddleware(RequireStaff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	t.Run("staff token passes", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/staff/search", nil)
		r.Header.Set("Authorization", "Bearer "+signToken(t, 1, true))
		w := httptest.NewRecorder()

		staffOnly.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("customer token is rejected", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/staff/search", nil)
		r.Header.Set("Authorization", "Bearer "+signToken(t, 7, false))
		w := httptest.NewRecorder()

		staffOnly.ServeHTTP(w, r)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
