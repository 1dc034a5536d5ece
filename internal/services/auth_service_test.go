package services

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func setupAuthConfig() {
	viper.Set("argon2.salt_length", 16)
	viper.Set("argon2.time", 1)
	viper.Set("argon2.memory", 64*1024)
	viper.Set("argon2.threads", 4)
	viper.Set("argon2.key_length", 32)
	viper.Set("jwt.secret_key", "test-secret")
	viper.Set("jwt.expiry_hours", 24)
	viper.Set("customer.default_rank", 2)
}

func TestAuthService_Register(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setupAuthConfig()
	service := NewAuthService(db, nil)

	t.Run("successful registration creates user, customer and account", func(t *testing.T) {
		req := RegisterRequest{
			Username:   "evelyn",
			Email:      "evelyn@smith.com",
			Password:   "password123",
			FirstName:  "Evelyn",
			LastName:   "Smith",
			PersonalID: "00010001",
			Phone:      "87351233",
		}

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO users").
			WithArgs(req.Username, req.Email, sqlmock.AnyArg(), req.FirstName, req.LastName).
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "first_name", "last_name", "is_staff", "created_at"}).
				AddRow(1, req.Username, req.Email, req.FirstName, req.LastName, false, time.Now()))
		mock.ExpectExec("INSERT INTO customers").
			WithArgs(int64(1), 2, req.PersonalID, req.Phone).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO accounts").
			WithArgs(int64(1), "Main account").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		body, _ := json.Marshal(req)
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response AuthResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.NotEmpty(t, response.Token)
		assert.Equal(t, req.Username, response.User.Username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate username", func(t *testing.T) {
		req := RegisterRequest{
			Username:   "evelyn",
			Email:      "evelyn@smith.com",
			Password:   "password123",
			FirstName:  "Evelyn",
			LastName:   "Smith",
			PersonalID: "00010001",
			Phone:      "87351233",
		}

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO users").
			WithArgs(req.Username, req.Email, sqlmock.AnyArg(), req.FirstName, req.LastName).
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		body, _ := json.Marshal(req)
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("invalid request body", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer([]byte("invalid")))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing fields fail validation", func(t *testing.T) {
		body, _ := json.Marshal(RegisterRequest{Username: "evelyn"})
		r := httptest.NewRequest("POST", "/auth/register", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Register(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthService_Login(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	setupAuthConfig()
	service := NewAuthService(db, nil)

	t.Run("successful login", func(t *testing.T) {
		hashedPassword, _ := hashPassword("password123")

		mock.ExpectQuery("SELECT id, username, email, first_name, last_name, is_staff, created_at, password FROM users").
			WithArgs("evelyn").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "first_name", "last_name", "is_staff", "created_at", "password"}).
				AddRow(1, "evelyn", "evelyn@smith.com", "Evelyn", "Smith", false, time.Now(), hashedPassword))
		mock.ExpectExec("UPDATE users SET last_login").
			WithArgs(sqlmock.AnyArg(), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		req := LoginRequest{Username: "evelyn", Password: "password123"}

		body, _ := json.Marshal(req)
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		var response AuthResponse
		json.Unmarshal(w.Body.Bytes(), &response)
		assert.NotEmpty(t, response.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		hashedPassword, _ := hashPassword("password123")

		mock.ExpectQuery("SELECT id, username, email, first_name, last_name, is_staff, created_at, password FROM users").
			WithArgs("evelyn").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "first_name", "last_name", "is_staff", "created_at", "password"}).
				AddRow(1, "evelyn", "evelyn@smith.com", "Evelyn", "Smith", false, time.Now(), hashedPassword))

		req := LoginRequest{Username: "evelyn", Password: "wrongpassword"}

		body, _ := json.Marshal(req)
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("user not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, username, email, first_name, last_name, is_staff, created_at, password FROM users").
			WithArgs("nonexistent").
			WillReturnError(sql.ErrNoRows)

		req := LoginRequest{Username: "nonexistent", Password: "password123"}

		body, _ := json.Marshal(req)
		r := httptest.NewRequest("POST", "/auth/login", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		service.Login(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPasswordHashing(t *testing.T) {
	setupAuthConfig()

	password := "testpassword"

	hashed, err := hashPassword(password)
	assert.NoError(t, err)
	assert.NotEmpty(t, hashed)

	assert.True(t, verifyPassword(password, hashed))
	assert.False(t, verifyPassword("wrongpassword", hashed))
}

func TestGenerateJWT(t *testing.T) {
	setupAuthConfig()

	token, err := generateJWT(123, false)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}
