package middleware

import (
	"database/sql"
	"database/sql/driver"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/campustransit/vehicle-booking-backend/internal/database"
	"github.com/campustransit/vehicle-booking-backend/internal/models"
	"github.com/campustransit/vehicle-booking-backend/pkg/jwt"
)

var userColumns = []string{
	"id", "name", "email", "password_hash", "google_id", "reg_number", "phone",
	"role", "status", "is_deleted", "deleted_at", "deleted_by", "created_at",
}

func userRow(userID uuid.UUID, role, status string) []driver.Value {
	return []driver.Value{
		userID, "Asha", "asha@bitsathy.ac.in", "hash", nil, "7376211CS239", nil,
		role, status, false, nil, nil, time.Now(),
	}
}

type authTestEnv struct {
	jwtService *jwt.Service
	mock       sqlmock.Sqlmock
	router     *gin.Engine
}

func newAuthTestEnv(t *testing.T, extra ...gin.HandlerFunc) (*authTestEnv, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	jwtService := jwt.NewService("test-secret", time.Hour, 15*time.Minute)
	users := database.NewUserRepository(&mockDatabase{db: db})

	router := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware(jwtService, users)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		user, _ := GetUser(c)
		c.JSON(http.StatusOK, gin.H{"user_id": user.ID})
	})
	router.GET("/protected", handlers...)

	return &authTestEnv{jwtService: jwtService, mock: mock, router: router}, func() { db.Close() }
}

func (e *authTestEnv) request(t *testing.T, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("Valid Token And Active Account", func(t *testing.T) {
		env, cleanup := newAuthTestEnv(t)
		defer cleanup()

		userID := uuid.New()
		token, err := env.jwtService.GenerateAccessToken(userID, "asha@bitsathy.ac.in", "student")
		require.NoError(t, err)

		env.mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(userRow(userID, "student", "active")...))

		w := env.request(t, "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("Missing Header", func(t *testing.T) {
		env, cleanup := newAuthTestEnv(t)
		defer cleanup()

		w := env.request(t, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Malformed Header", func(t *testing.T) {
		env, cleanup := newAuthTestEnv(t)
		defer cleanup()

		for _, header := range []string{"Basic abc123", "Bearer", "Bearer "} {
			w := env.request(t, header)
			assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
		}
	})

	t.Run("Garbage Token", func(t *testing.T) {
		env, cleanup := newAuthTestEnv(t)
		defer cleanup()

		w := env.request(t, "Bearer not.a.token")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Password Reset Token Cannot Authenticate", func(t *testing.T) {
		env, cleanup := newAuthTestEnv(t)
		defer cleanup()

		reset, err := env.jwtService.GeneratePasswordResetToken(uuid.New(), "asha@bitsathy.ac.in")
		require.NoError(t, err)

		w := env.request(t, "Bearer "+reset)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Deleted Account Loses Access", func(t *testing.T) {
		env, cleanup := newAuthTestEnv(t)
		defer cleanup()

		userID := uuid.New()
		token, err := env.jwtService.GenerateAccessToken(userID, "asha@bitsathy.ac.in", "student")
		require.NoError(t, err)

		env.mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
			WithArgs(userID).
			WillReturnError(sql.ErrNoRows)

		w := env.request(t, "Bearer "+token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Inactive Account Forbidden", func(t *testing.T) {
		env, cleanup := newAuthTestEnv(t)
		defer cleanup()

		userID := uuid.New()
		token, err := env.jwtService.GenerateAccessToken(userID, "asha@bitsathy.ac.in", "student")
		require.NoError(t, err)

		env.mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(userRow(userID, "student", "inactive")...))

		w := env.request(t, "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestRequireRole(t *testing.T) {
	issueFor := func(t *testing.T, env *authTestEnv, role string) string {
		userID := uuid.New()
		token, err := env.jwtService.GenerateAccessToken(userID, "asha@bitsathy.ac.in", role)
		require.NoError(t, err)
		env.mock.ExpectQuery(`SELECT (.+) FROM users WHERE id`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(userColumns).AddRow(userRow(userID, role, "active")...))
		return token
	}

	t.Run("Allowed Role Passes", func(t *testing.T) {
		env, cleanup := newAuthTestEnv(t, RequireRole(models.RoleWatchman, models.RoleAdmin))
		defer cleanup()

		w := env.request(t, "Bearer "+issueFor(t, env, "admin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Disallowed Role Forbidden", func(t *testing.T) {
		env, cleanup := newAuthTestEnv(t, RequireRole(models.RoleWatchman, models.RoleAdmin))
		defer cleanup()

		w := env.request(t, "Bearer "+issueFor(t, env, "student"))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("No User Context", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.GET("/bare", RequireRole(models.RoleAdmin), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/bare", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

// mockDatabase adapts a plain *sql.DB to the database.DB interface for tests.
type mockDatabase struct {
	db *sql.DB
}

func (m *mockDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return m.db.Exec(query, args...)
}

func (m *mockDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return m.db.Query(query, args...)
}

func (m *mockDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return m.db.QueryRow(query, args...)
}

func (m *mockDatabase) Get(dest interface{}, query string, args ...interface{}) error {
	return sql.ErrConnDone
}

func (m *mockDatabase) Select(dest interface{}, query string, args ...interface{}) error {
	return sql.ErrConnDone
}

func (m *mockDatabase) Close() error { return m.db.Close() }

func (m *mockDatabase) Ping() error { return m.db.Ping() }
