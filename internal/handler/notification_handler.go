package handler

import (
	"net/http"
	"time"

	"membership-service/internal/model"
	"membership-service/pkg/database"
	"membership-service/pkg/logger"
	"membership-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// notificationRow is a staff notification joined with its member's
// name and mobile
type notificationRow struct {
	ID        uint      `json:"id"`
	BranchID  uint      `json:"branch_id"`
	MemberID  uint      `json:"member_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
	FullName  string    `json:"full_name"`
	Mobile    string    `json:"mobile"`
}

// ListNotifications returns a branch's most recent notifications,
// capped at 50
func ListNotifications(c echo.Context) error {
	log := logger.FromContext(c)

	branchID := c.QueryParam("branch_id")
	if branchID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "branch_id is required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var rows []notificationRow
	result := database.GetDB().
		Table("staff_notifications").
		Select("staff_notifications.id, staff_notifications.branch_id, staff_notifications.member_id, staff_notifications.type, staff_notifications.message, staff_notifications.is_read, staff_notifications.created_at, members.full_name, members.mobile").
		Joins("JOIN members ON members.id = staff_notifications.member_id").
		Where("staff_notifications.branch_id = ?", branchID).
		Order("staff_notifications.created_at DESC").
		Limit(50).
		Scan(&rows)
	if result.Error != nil {
		log.Error("Failed to list notifications", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": result.Error.Error()})
	}

	if rows == nil {
		rows = []notificationRow{}
	}
	return c.JSON(http.StatusOK, rows)
}

// MarkNotificationRead flips a notification's read flag
func MarkNotificationRead(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		ID uint `json:"id"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse mark-read request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.ID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Notification id is required"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if err := database.GetDB().Model(&model.StaffNotification{}).Where("id = ?", req.ID).Update("is_read", true).Error; err != nil {
		log.Error("Failed to mark notification read", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Marked as read"})
}

// deleteNotificationsForMember drops every notification referencing a
// member. Best effort: the caller's primary write is already committed,
// stale notifications are advisory only.
func deleteNotificationsForMember(c echo.Context, memberID uint) {
	log := logger.FromContext(c)

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := database.GetDB().Where("member_id = ?", memberID).Delete(&model.StaffNotification{}).Error; err != nil {
		log.Error("Failed to delete notifications for member",
			zap.Uint("member_id", memberID),
			zap.Error(err))
	}
}
