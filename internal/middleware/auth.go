package middleware

import (
	"net/http"
	"strings"

	"membership-service/pkg/jwtutil"
	"membership-service/pkg/logger"
	"membership-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// StaffAuthMiddleware validates the staff JWT token from the Authorization
// header. All admin endpoints sit behind it; the member-facing routes do not.
func StaffAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Validate the token
		claims, err := jwtutil.ValidateStaffToken(parts[1])
		if err != nil {
			log.Error("Invalid staff token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// Store branch info in context for later use
		c.Set("branch_id", claims.BranchID)
		c.Set("branch_name", claims.BranchName)
		c.Set("branch_slug", claims.BranchSlug)

		return next(c)
	}
}
