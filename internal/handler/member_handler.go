package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"membership-service/internal/model"
	"membership-service/pkg/database"
	"membership-service/pkg/logger"
	"membership-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// memberRow is a member as listed on the staff dashboard
type memberRow struct {
	model.Member
	BranchName    string `json:"branch_name"`
	DisplayStatus string `json:"display_status"`
}

// RegisterMember creates a pending member and a staff notification for
// the branch to review
func RegisterMember(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegistrationCounter.Inc()

	var req struct {
		FullName       string  `json:"full_name"`
		Mobile         string  `json:"mobile"`
		BranchID       uint    `json:"branch_id"`
		MembershipType string  `json:"membership_type"`
		StartDate      string  `json:"start_date"`
		EndDate        string  `json:"end_date"`
		PaymentAmount  float64 `json:"payment_amount"`
		PaymentMode    string  `json:"payment_mode"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.FullName == "" || req.Mobile == "" || req.BranchID == 0 || req.MembershipType == "" ||
		req.StartDate == "" || req.EndDate == "" || req.PaymentAmount == 0 || req.PaymentMode == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "All fields are required"})
	}

	if req.PaymentMode != model.PaymentModeUPI && req.PaymentMode != model.PaymentModeCash {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment_mode must be upi or cash"})
	}

	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date must be YYYY-MM-DD"})
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "end_date must be YYYY-MM-DD"})
	}

	// Unique mobile: pre-check gives a deterministic 409 message across
	// drivers; the column's unique index still backstops races.
	defer prometheus.TrackDBOperation("query")(time.Now())
	var existing model.Member
	if result := database.GetDB().Where("mobile = ?", req.Mobile).First(&existing); result.Error == nil {
		log.Error("Duplicate mobile on registration", zap.String("mobile", req.Mobile))
		return c.JSON(http.StatusConflict, echo.Map{"error": "A member with this mobile number already exists"})
	}

	member := model.Member{
		FullName:       req.FullName,
		Mobile:         req.Mobile,
		BranchID:       req.BranchID,
		MembershipType: req.MembershipType,
		StartDate:      startDate,
		EndDate:        endDate,
		PaymentAmount:  req.PaymentAmount,
		PaymentMode:    req.PaymentMode,
		Status:         model.StatusPending,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&member); result.Error != nil {
		log.Error("Failed to create member", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	// Staff notification is advisory; a failure here does not undo the
	// registration.
	notification := model.StaffNotification{
		BranchID: req.BranchID,
		MemberID: member.ID,
		Type:     model.NotificationNewRegistration,
		Message:  fmt.Sprintf("New registration: %s (%s) - %s plan", req.FullName, req.Mobile, req.MembershipType),
	}
	if result := database.GetDB().Create(&notification); result.Error != nil {
		log.Error("Failed to create staff notification", zap.Error(result.Error))
	}

	log.Info("Member registered",
		zap.Uint("member_id", member.ID),
		zap.Uint("branch_id", member.BranchID))

	return c.JSON(http.StatusOK, echo.Map{
		"member":  member,
		"message": "Registration submitted. Awaiting staff approval.",
	})
}

// ApproveMember applies a staff approve/reject decision. The status
// write lands first; notification cleanup afterwards is best effort and
// is never rolled into the same transaction.
func ApproveMember(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		MemberID uint   `json:"member_id"`
		Action   string `json:"action"`
		BranchID uint   `json:"branch_id"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse approval request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.MemberID == 0 || req.Action == "" || req.BranchID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "member_id, action, and branch_id are required"})
	}

	var updates map[string]interface{}
	var message string

	switch req.Action {
	case "approve":
		updates = map[string]interface{}{
			"status":      model.StatusActive,
			"approved_at": time.Now(),
			"approved_by": req.BranchID,
		}
		message = "Member approved"
	case "reject":
		updates = map[string]interface{}{
			"status": model.StatusRejected,
		}
		message = "Member rejected"
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid action"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Model(&model.Member{}).Where("id = ?", req.MemberID).Updates(updates).Error; err != nil {
		log.Error("Failed to update member status", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	deleteNotificationsForMember(c, req.MemberID)

	prometheus.ApprovalCounter.WithLabelValues(req.Action).Inc()
	log.Info("Approval decision applied",
		zap.Uint("member_id", req.MemberID),
		zap.String("action", req.Action),
		zap.Uint("branch_id", req.BranchID))

	return c.JSON(http.StatusOK, echo.Map{"message": message})
}

// ListMembers returns a branch's members, newest first, optionally
// filtered by stored status
func ListMembers(c echo.Context) error {
	log := logger.FromContext(c)

	branchID := c.QueryParam("branch_id")
	if branchID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "branch_id is required"})
	}

	query := database.GetDB().Where("branch_id = ?", branchID).Order("created_at DESC")
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var members []model.Member
	if result := query.Find(&members); result.Error != nil {
		log.Error("Failed to list members", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": result.Error.Error()})
	}

	var branch model.Branch
	branchName := ""
	if result := database.GetDB().Select("name").Where("id = ?", branchID).First(&branch); result.Error == nil {
		branchName = branch.Name
	}

	now := time.Now()
	rows := make([]memberRow, 0, len(members))
	for i := range members {
		rows = append(rows, memberRow{
			Member:        members[i],
			BranchName:    branchName,
			DisplayStatus: members[i].DisplayStatus(now),
		})
	}

	return c.JSON(http.StatusOK, rows)
}

// MemberStats aggregates a branch's dashboard counters. Everything is
// re-derived from DisplayStatus so the numbers can never drift from the
// member table.
func MemberStats(c echo.Context) error {
	log := logger.FromContext(c)

	branchID := c.QueryParam("branch_id")
	if branchID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "branch_id is required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var members []model.Member
	if result := database.GetDB().Where("branch_id = ?", branchID).Find(&members); result.Error != nil {
		log.Error("Failed to load members for stats", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": result.Error.Error()})
	}

	stats := model.ComputeStats(members, time.Now())
	prometheus.PendingMembersGauge.Set(float64(stats.Pending))

	return c.JSON(http.StatusOK, stats)
}

// RemoveMember permanently deletes a member. Notifications go first to
// satisfy referential integrity.
func RemoveMember(c echo.Context) error {
	log := logger.FromContext(c)

	id := c.QueryParam("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Member id is required"})
	}

	memberID, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Member id is required"})
	}

	deleteNotificationsForMember(c, uint(memberID))

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := database.GetDB().Delete(&model.Member{}, memberID).Error; err != nil {
		log.Error("Failed to delete member", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	log.Info("Member removed", zap.Uint64("member_id", memberID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Member removed"})
}

// MemberProfile returns a member's own view: the row, its branch name
// and the derived display status
func MemberProfile(c echo.Context) error {
	log := logger.FromContext(c)

	mobile := c.QueryParam("mobile")
	if mobile == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "mobile is required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var member model.Member
	result := database.GetDB().Where("mobile = ?", mobile).First(&member)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Member not found"})
		}
		log.Error("Failed to load member profile", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load profile"})
	}

	var branch model.Branch
	branchName := ""
	if result := database.GetDB().Select("name").First(&branch, member.BranchID); result.Error == nil {
		branchName = branch.Name
	}

	return c.JSON(http.StatusOK, memberRow{
		Member:        member,
		BranchName:    branchName,
		DisplayStatus: member.DisplayStatus(time.Now()),
	})
}
