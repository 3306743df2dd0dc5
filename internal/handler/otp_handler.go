package handler

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"membership-service/internal/model"
	"membership-service/pkg/database"
	"membership-service/pkg/jwtutil"
	"membership-service/pkg/logger"
	"membership-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// otpExpiry is how long a generated code stays valid
var otpExpiry = 5 * time.Minute

// SetOTPExpiry overrides the code lifetime from configuration
func SetOTPExpiry(d time.Duration) {
	if d > 0 {
		otpExpiry = d
	}
}

// generateOTPCode returns a random 6-digit code
func generateOTPCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000)
}

// GenerateOTP issues a one-time login code for an active member. The
// code is returned in the response; SMS dispatch is out of scope.
func GenerateOTP(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Mobile string `json:"mobile"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse OTP request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Mobile == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Mobile number is required"})
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
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to generate OTP"})
	}

	if member.Status != model.StatusActive {
		prometheus.RecordAuthError("membership_inactive")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Your membership is not active. Please contact staff."})
	}

	if member.EndDate.Before(time.Now()) {
		prometheus.RecordAuthError("membership_expired")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "Your membership has expired. Please renew."})
	}

	otp := generateOTPCode()
	expiresAt := time.Now().Add(otpExpiry)

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Model(&member).Updates(map[string]interface{}{
		"otp_code":       otp,
		"otp_expires_at": expiresAt,
	}).Error; err != nil {
		log.Error("Failed to store OTP", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to generate OTP"})
	}

	prometheus.OTPGeneratedCounter.Inc()
	log.Info("OTP generated", zap.Uint("member_id", member.ID))

	return c.JSON(http.StatusOK, echo.Map{
		"message":     "OTP sent",
		"otp":         otp,
		"member_name": member.FullName,
	})
}

// VerifyOTP checks a one-time code, clears it and returns the member
// session. A code can only be used once; verification clears the fields
// so a replay fails the match.
func VerifyOTP(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Mobile string `json:"mobile"`
		OTP    string `json:"otp"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse OTP verification request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Mobile == "" || req.OTP == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Mobile and OTP are required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var member model.Member
	result := database.GetDB().Where("mobile = ?", req.Mobile).First(&member)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			prometheus.RecordAuthError("member_not_found")
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Member not found"})
		}
		log.Error("Failed to look up member", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}

	if member.OTPCode == nil || *member.OTPCode != req.OTP {
		prometheus.RecordAuthError("invalid_otp")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid OTP"})
	}

	if member.OTPExpiresAt == nil || member.OTPExpiresAt.Before(time.Now()) {
		prometheus.RecordAuthError("expired_otp")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "OTP has expired"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Model(&member).Updates(map[string]interface{}{
		"otp_code":       nil,
		"otp_expires_at": nil,
	}).Error; err != nil {
		log.Error("Failed to clear OTP", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "verification failed"})
	}

	token, err := jwtutil.GenerateMemberToken(member.ID, member.Mobile)
	if err != nil {
		log.Error("Failed to generate member token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	prometheus.OTPVerifiedCounter.Inc()
	log.Info("OTP verified", zap.Uint("member_id", member.ID))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Verified",
		"token":   token,
		"member":  sessionFor(&member),
	})
}
