package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AngelAdrianVR/WashApp/internal/dto"
	"github.com/AngelAdrianVR/WashApp/internal/lifecycle"
	"github.com/AngelAdrianVR/WashApp/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const secret = "test-secret"

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
		fields  map[string]string
	}{
		{"string message", echo.NewHTTPError(http.StatusConflict, "slot taken"), http.StatusConflict, "slot taken", nil},
		{
			"structured message",
			echo.NewHTTPError(http.StatusUnprocessableEntity, dto.ErrorResponse{Message: "invalid", Errors: map[string]string{"name": "required"}}),
			http.StatusUnprocessableEntity, "invalid", map[string]string{"name": "required"},
		},
		{"other message", echo.NewHTTPError(http.StatusTeapot, 42), http.StatusTeapot, http.StatusText(http.StatusTeapot), nil},
		{"plain error", errors.New("dial tcp: refused"), http.StatusInternalServerError, "internal server error", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			ErrorHandler(tt.err, c)

			assert.Equal(t, tt.code, rec.Code)
			var body dto.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, tt.fields, body.Errors)
		})
	}
}

func TestErrorHandler_Committed(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, c.String(http.StatusOK, "done"))

	ErrorHandler(errors.New("late"), c)

	assert.Equal(t, "done", rec.Body.String())
}

func runAuth(t *testing.T, header string) (lifecycle.Actor, bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var actor lifecycle.Actor
	var called bool
	err := JWTAuth(secret)(func(c echo.Context) error {
		called = true
		actor, _ = ActorFromContext(c)
		return nil
	})(c)
	return actor, called, err
}

func TestJWTAuth_ValidToken(t *testing.T) {
	want := lifecycle.Actor{UserID: 42, Role: models.RoleEmployee}
	token, err := IssueToken(secret, want, time.Hour)
	require.NoError(t, err)

	actor, called, err := runAuth(t, "Bearer "+token)

	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, want, actor)
}

func TestJWTAuth_Rejects(t *testing.T) {
	expired, err := IssueToken(secret, lifecycle.Actor{UserID: 1, Role: models.RoleClient}, -time.Minute)
	require.NoError(t, err)
	foreign, err := IssueToken("other-secret", lifecycle.Actor{UserID: 1, Role: models.RoleClient}, time.Hour)
	require.NoError(t, err)
	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             "superuser",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "abc"},
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":     "",
		"garbage":     "Bearer not-a-token",
		"expired":     "Bearer " + expired,
		"wrong key":   "Bearer " + foreign,
		"bad role":    "Bearer " + badRole,
		"bad subject": "Bearer " + badSubject,
	} {
		t.Run(name, func(t *testing.T) {
			_, called, err := runAuth(t, header)

			assert.False(t, called)
			var he *echo.HTTPError
			require.True(t, errors.As(err, &he))
			assert.Equal(t, http.StatusUnauthorized, he.Code)
		})
	}
}

func TestIssueToken_RequiresSecret(t *testing.T) {
	_, err := IssueToken("", lifecycle.Actor{UserID: 1, Role: models.RoleAdmin}, time.Hour)
	assert.Error(t, err)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/fail", func(c echo.Context) error { return echo.NewHTTPError(http.StatusConflict, "taken") })

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusNoContent), entries[0].ContextMap()["status"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, int64(http.StatusConflict), entries[1].ContextMap()["status"])
}
