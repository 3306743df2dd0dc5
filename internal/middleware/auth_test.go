package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"membership-service/pkg/jwtutil"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStaffAuth(t *testing.T, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/members", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	}
	require.NoError(t, StaffAuthMiddleware(next)(c))
	return rec, c
}

func TestStaffAuthMiddleware_ValidToken(t *testing.T) {
	token, err := jwtutil.GenerateStaffToken(2, "Branch X", "branch-x")
	require.NoError(t, err)

	rec, c := runStaffAuth(t, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint(2), c.Get("branch_id"))
	assert.Equal(t, "branch-x", c.Get("branch_slug"))
}

func TestStaffAuthMiddleware_MissingHeader(t *testing.T) {
	rec, _ := runStaffAuth(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStaffAuthMiddleware_MalformedHeader(t *testing.T) {
	rec, _ := runStaffAuth(t, "Token abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStaffAuthMiddleware_InvalidToken(t *testing.T) {
	rec, _ := runStaffAuth(t, "Bearer invalid.token.here")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
