package handler

import (
	"errors"
	"net/http"
	"time"

	"membership-service/internal/model"
	"membership-service/pkg/database"
	"membership-service/pkg/jwtutil"
	"membership-service/pkg/logger"
	"membership-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// memberSession is the payload a member's client holds after login
type memberSession struct {
	ID             uint   `json:"id"`
	FullName       string `json:"full_name"`
	Mobile         string `json:"mobile"`
	MembershipType string `json:"membership_type"`
	EndDate        string `json:"end_date"`
}

func sessionFor(m *model.Member) memberSession {
	return memberSession{
		ID:             m.ID,
		FullName:       m.FullName,
		Mobile:         m.Mobile,
		MembershipType: m.MembershipType,
		EndDate:        m.EndDate.Format(dateLayout),
	}
}

// StaffLogin authenticates branch staff against the branch credential
func StaffLogin(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.WithLabelValues("staff").Inc()

	var req struct {
		BranchID uint   `json:"branch_id"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse staff login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.BranchID == 0 || req.Password == "" {
		prometheus.RecordAuthError("incomplete_staff_login")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Branch and password are required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var branch model.Branch
	if result := database.GetDB().First(&branch, req.BranchID); result.Error != nil {
		log.Error("Branch not found", zap.Uint("branch_id", req.BranchID))
		prometheus.RecordAuthError("branch_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Branch not found"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(branch.PasswordHash), []byte(req.Password)); err != nil {
		log.Error("Invalid branch password", zap.Uint("branch_id", req.BranchID))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Incorrect password"})
	}

	token, err := jwtutil.GenerateStaffToken(branch.ID, branch.Name, branch.Slug)
	if err != nil {
		log.Error("Failed to generate staff token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("Staff logged in",
		zap.Uint("branch_id", branch.ID),
		zap.String("slug", branch.Slug))

	return c.JSON(http.StatusOK, echo.Map{
		"branch": map[string]interface{}{
			"id":   branch.ID,
			"name": branch.Name,
			"slug": branch.Slug,
		},
		"token":   token,
		"message": "Login successful",
	})
}

// MemberLogin authenticates a member by mobile number and password.
// Membership state is checked before the password so an expired member
// is told to renew rather than handed a credential error.
func MemberLogin(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.WithLabelValues("member").Inc()

	var req struct {
		Mobile   string `json:"mobile"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse member login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Mobile == "" || req.Password == "" {
		prometheus.RecordAuthError("incomplete_member_login")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Mobile and password are required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var member model.Member
	result := database.GetDB().Where("mobile = ?", req.Mobile).First(&member)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			prometheus.RecordAuthError("member_not_found")
			return c.JSON(http.StatusNotFound, echo.Map{"error": "No member found with this mobile number"})
		}
		log.Error("Failed to look up member", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	if member.Status != model.StatusActive {
		prometheus.RecordAuthError("membership_inactive")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Your membership is not active. Please contact staff."})
	}

	if member.EndDate.Before(time.Now()) {
		prometheus.RecordAuthError("membership_expired")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Your membership has expired. Please renew."})
	}

	// First login: no password set yet
	if member.PasswordHash == "" {
		return c.JSON(http.StatusOK, echo.Map{
			"needs_password": true,
			"member_name":    member.FullName,
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(req.Password)); err != nil {
		log.Error("Invalid member password", zap.String("mobile", req.Mobile))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Incorrect password"})
	}

	token, err := jwtutil.GenerateMemberToken(member.ID, member.Mobile)
	if err != nil {
		log.Error("Failed to generate member token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("Member logged in", zap.Uint("member_id", member.ID))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Login successful",
		"token":   token,
		"member":  sessionFor(&member),
	})
}

// SetMemberPassword stores a member's password on first login. One-time
// operation; there is no reset path.
func SetMemberPassword(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Mobile   string `json:"mobile"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse set-password request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Mobile == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Mobile and password are required"})
	}

	if len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Password must be at least 6 characters"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var member model.Member
	result := database.GetDB().Where("mobile = ?", req.Mobile).First(&member)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Member not found"})
		}
		log.Error("Failed to look up member", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to set password"})
	}

	if member.Status != model.StatusActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Your membership is not active"})
	}

	if member.PasswordHash != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Password already set. Please login with your password."})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to set password"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Model(&member).Update("password_hash", string(hashedPassword)).Error; err != nil {
		log.Error("Failed to store password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to set password"})
	}

	log.Info("Member password set", zap.Uint("member_id", member.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Password set successfully"})
}
