package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/jiyashah21/meallink/internal/config"
	"github.com/jiyashah21/meallink/internal/database"
	"github.com/jiyashah21/meallink/internal/models"
	"github.com/jiyashah21/meallink/internal/routes"
)

// setupApp wires the full route table against a per-test in-memory
// database.
func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret:       "test-secret",
		TokenExpires:    time.Hour,
		DefaultImageURL: "/static/uploads/default.jpg",
	}

	app := fiber.New()
	routes.Register(app, db, cfg)
	return app, db
}

func httpDo(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

type authResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	User    struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
		Role string    `json:"role"`
	} `json:"user"`
}

func registerPayload(name, email, phone, role string) map[string]string {
	return map[string]string{
		"name":     name,
		"email":    email,
		"password": "secret123",
		"role":     role,
		"phone":    phone,
		"location": "Andheri",
	}
}

// registerUser creates an account through the API and returns its
// token and ID.
func registerUser(t *testing.T, app *fiber.App, name, email, phone, role string) (string, uuid.UUID) {
	t.Helper()
	resp := httpDo(t, app, "POST", "/api/auth/register", "", registerPayload(name, email, phone, role))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var body authResponse
	decodeBody(t, resp, &body)
	require.NotEmpty(t, body.Token)
	return body.Token, body.User.ID
}

func TestRegisterAndLogin(t *testing.T) {
	app, _ := setupApp(t)

	token, _ := registerUser(t, app, "Spice Villa", "villa@example.com", "9876543210", models.RoleRestaurant)
	require.NotEmpty(t, token)

	resp := httpDo(t, app, "POST", "/api/auth/login", "", map[string]string{
		"email": "villa@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body authResponse
	decodeBody(t, resp, &body)
	require.Equal(t, models.RoleRestaurant, body.User.Role)
	require.NotEmpty(t, body.Token)

	resp = httpDo(t, app, "POST", "/api/auth/login", "", map[string]string{
		"email": "villa@example.com", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = httpDo(t, app, "POST", "/api/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterDuplicates(t *testing.T) {
	app, db := setupApp(t)

	registerUser(t, app, "Spice Villa", "villa@example.com", "9876543210", models.RoleRestaurant)

	// Same email, different phone.
	resp := httpDo(t, app, "POST", "/api/auth/register", "",
		registerPayload("Copy Cat", "villa@example.com", "9876500000", models.RoleRestaurant))
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// Same phone, different email.
	resp = httpDo(t, app, "POST", "/api/auth/register", "",
		registerPayload("Copy Cat", "cat@example.com", "9876543210", models.RoleNGO))
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

// A registration that passes the duplicate pre-check can still lose to
// a concurrent registration at insert time; the unique index violation
// must surface as 409, not 500.
func TestRegisterDuplicateInsertRace(t *testing.T) {
	app, db := setupApp(t)

	fired := false
	err := db.Callback().Create().Before("gorm:create").Register("rival_register", func(tx *gorm.DB) {
		if fired {
			return
		}
		if _, ok := tx.Statement.Dest.(*models.User); !ok {
			return
		}
		fired = true
		// The rival lands after the pre-check, before the insert.
		require.NoError(t, tx.Session(&gorm.Session{NewDB: true}).Exec(
			`INSERT INTO users (id, created_at, updated_at, name, email, password_hash, role, phone, location)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), time.Now(), time.Now(),
			"Rival Villa", "villa@example.com", "x", models.RoleRestaurant, "9876543210", "Andheri",
		).Error)
	})
	require.NoError(t, err)

	resp := httpDo(t, app, "POST", "/api/auth/register", "",
		registerPayload("Spice Villa", "villa@example.com", "9876543210", models.RoleRestaurant))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.True(t, fired)
}

func TestRegisterValidation(t *testing.T) {
	app, _ := setupApp(t)

	cases := []struct {
		name    string
		payload map[string]string
	}{
		{"short phone", registerPayload("A", "a@example.com", "12345", models.RoleRestaurant)},
		{"non-numeric phone", registerPayload("A", "a@example.com", "98765abcde", models.RoleRestaurant)},
		{"unknown role", registerPayload("A", "a@example.com", "9876543210", "courier")},
		{"missing email", registerPayload("A", "", "9876543210", models.RoleNGO)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := httpDo(t, app, "POST", "/api/auth/register", "", tc.payload)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}
