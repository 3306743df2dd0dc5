package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"membership-service/internal/model"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerPayload(branchID uint) map[string]interface{} {
	return map[string]interface{}{
		"full_name":       "Jane Doe",
		"mobile":          "9000000001",
		"branch_id":       branchID,
		"membership_type": "1 Month",
		"start_date":      "2024-01-01",
		"end_date":        "2024-02-01",
		"payment_amount":  1500,
		"payment_mode":    "upi",
	}
}

func TestRegisterMember_CreatesPendingMemberAndNotification(t *testing.T) {
	db := setupTestDB(t)
	branch := seedBranch(t, db, "Branch X", "branch-x", "staffpass")

	rec := doJSON(t, RegisterMember, http.MethodPost, "/api/register", registerPayload(branch.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Registration submitted. Awaiting staff approval.", body["message"])

	var member model.Member
	require.NoError(t, db.Where("mobile = ?", "9000000001").First(&member).Error)
	assert.Equal(t, model.StatusPending, member.Status)
	assert.Equal(t, "Jane Doe", member.FullName)
	assert.Nil(t, member.ApprovedAt)

	var notifications []model.StaffNotification
	require.NoError(t, db.Where("branch_id = ?", branch.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, model.NotificationNewRegistration, notifications[0].Type)
	assert.Equal(t, member.ID, notifications[0].MemberID)
	assert.Contains(t, notifications[0].Message, "Jane Doe")
	assert.Contains(t, notifications[0].Message, "9000000001")
	assert.Contains(t, notifications[0].Message, "1 Month")
}

func TestRegisterMember_DuplicateMobile(t *testing.T) {
	db := setupTestDB(t)
	branch := seedBranch(t, db, "Branch X", "branch-x", "staffpass")

	rec := doJSON(t, RegisterMember, http.MethodPost, "/api/register", registerPayload(branch.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, RegisterMember, http.MethodPost, "/api/register", registerPayload(branch.ID))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "A member with this mobile number already exists", decodeBody(t, rec)["error"])

	var count int64
	db.Model(&model.Member{}).Where("mobile = ?", "9000000001").Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestRegisterMember_MissingFields(t *testing.T) {
	db := setupTestDB(t)
	branch := seedBranch(t, db, "Branch X", "branch-x", "staffpass")

	payload := registerPayload(branch.ID)
	delete(payload, "mobile")

	rec := doJSON(t, RegisterMember, http.MethodPost, "/api/register", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "All fields are required", decodeBody(t, rec)["error"])
}

func TestRegisterMember_RejectsUnknownPaymentMode(t *testing.T) {
	db := setupTestDB(t)
	branch := seedBranch(t, db, "Branch X", "branch-x", "staffpass")

	payload := registerPayload(branch.ID)
	payload["payment_mode"] = "cheque"

	rec := doJSON(t, RegisterMember, http.MethodPost, "/api/register", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApproveMember_Approve(t *testing.T) {
	db := setupTestDB(t)
	branch := seedBranch(t, db, "Branch X", "branch-x", "staffpass")
	member := seedMember(t, db, model.Member{
		FullName: "Jane Doe", Mobile: "9000000001", BranchID: branch.ID,
		MembershipType: "1 Month", EndDate: futureDate(), PaymentAmount: 1500,
		PaymentMode: model.PaymentModeUPI, Status: model.StatusPending,
	})
	db.Create(&model.StaffNotification{BranchID: branch.ID, MemberID: member.ID, Type: model.NotificationNewRegistration, Message: "x"})

	rec := doJSON(t, ApproveMember, http.MethodPost, "/api/members/approve", map[string]interface{}{
		"member_id": member.ID, "action": "approve", "branch_id": branch.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Member approved", decodeBody(t, rec)["message"])

	var updated model.Member
	require.NoError(t, db.First(&updated, member.ID).Error)
	assert.Equal(t, model.StatusActive, updated.Status)
	require.NotNil(t, updated.ApprovedAt)
	require.NotNil(t, updated.ApprovedBy)
	assert.Equal(t, branch.ID, *updated.ApprovedBy)

	var count int64
	db.Model(&model.StaffNotification{}).Where("member_id = ?", member.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestApproveMember_Reject(t *testing.T) {
	db := setupTestDB(t)
	branch := seedBranch(t, db, "Branch X", "branch-x", "staffpass")
	member := seedMember(t, db, model.Member{
		FullName: "Jane Doe", Mobile: "9000000001", BranchID: branch.ID,
		EndDate: futureDate(), Status: model.StatusPending,
	})
	db.Create(&model.StaffNotification{BranchID: branch.ID, MemberID: member.ID, Type: model.NotificationNewRegistration, Message: "x"})

	rec := doJSON(t, ApproveMember, http.MethodPost, "/api/members/approve", map[string]interface{}{
		"member_id": member.ID, "action": "reject", "branch_id": branch.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Member rejected", decodeBody(t, rec)["message"])

	var updated model.Member
	require.NoError(t, db.First(&updated, member.ID).Error)
	assert.Equal(t, model.StatusRejected, updated.Status)
	assert.Nil(t, updated.ApprovedAt)

	var count int64
	db.Model(&model.StaffNotification{}).Where("member_id = ?", member.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestApproveMember_InvalidAction(t *testing.T) {
	db := setupTestDB(t)
	branch := seedBranch(t, db, "Branch X", "branch-x", "staffpass")
	member := seedMember(t, db, model.Member{
		Mobile: "9000000001", BranchID: branch.ID, Status: model.StatusPending,
	})

	rec := doJSON(t, ApproveMember, http.MethodPost, "/api/members/approve", map[string]interface{}{
		"member_id": member.ID, "action": "suspend", "branch_id": branch.ID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid action", decodeBody(t, rec)["error"])
}

func TestApproveMember_MissingFields(t *testing.T) {
	setupTestDB(t)

	rec := doJSON(t, ApproveMember, http.MethodPost, "/api/members/approve", map[string]interface{}{
		"member_id": 1, "action": "approve",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Sequential approve and reject are both accepted; the member ends in
// whatever state the last call wrote.
func TestApproveMember_LastWriteWins(t *testing.T) {
	db := setupTestDB(t)
	branch := seedBranch(t, db, "Branch X", "branch-x", "staffpass")
	member := seedMember(t, db, model.Member{
		Mobile: "9000000001", BranchID: branch.ID, EndDate: futureDate(), Status: model.StatusPending,
	})

	rec := doJSON(t, ApproveMember, http.MethodPost, "/api/members/approve", map[string]interface{}{
		"member_id": member.ID, "action": "approve", "branch_id": branch.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, ApproveMember, http.MethodPost, "/api/members/approve", map[string]interface{}{
		"member_id": member.ID, "action": "reject", "branch_id": branch.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var updated model.Member
	require.NoError(t, db.First(&updated, member.ID).Error)
	assert.Equal(t, model.StatusRejected, updated.Status)
}

func TestRemoveMember_DeletesMemberAndNotifications(t *testing.T) {
	db := setupTestDB(t)
	branch := seedBranch(t, db, "Branch X", "branch-x", "staffpass")
	member := seedMember(t, db, model.Member{
		Mobile: "9000000001", BranchID: branch.ID, Status: model.StatusPending,
	})
	db.Create(&model.StaffNotification{BranchID: branch.ID, MemberID: member.ID, Type: model.NotificationNewRegistration, Message: "x"})

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/members?id=%d", member.ID), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, RemoveMember(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var memberCount, notificationCount int64
	db.Model(&model.Member{}).Where("id = ?", member.ID).Count(&memberCount)
	db.Model(&model.StaffNotification{}).Where("member_id = ?", member.ID).Count(&notificationCount)
	assert.Equal(t, int64(0), memberCount)
	assert.Equal(t, int64(0), notificationCount)
}

func TestListMembers_NewestFirstWithDisplayStatus(t *testing.T) {
	db := setupTestDB(t)
	branch := seedBranch(t, db, "Branch X", "branch-x", "staffpass")

	older := seedMember(t, db, model.Member{
		FullName: "Old Member", Mobile: "9000000001", BranchID: branch.ID,
		EndDate: pastDate(), Status: model.StatusActive,
		CreatedAt: time.Now().Add(-2 * time.Hour),
	})
	newer := seedMember(t, db, model.Member{
		FullName: "New Member", Mobile: "9000000002", BranchID: branch.ID,
		EndDate: futureDate(), Status: model.StatusActive,
		CreatedAt: time.Now().Add(-1 * time.Hour),
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/members?branch_id=1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, ListMembers(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []struct {
		ID            uint   `json:"id"`
		BranchName    string `json:"branch_name"`
		DisplayStatus string `json:"display_status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)
	assert.Equal(t, "active", rows[0].DisplayStatus)
	assert.Equal(t, "expired", rows[1].DisplayStatus)
	assert.Equal(t, "Branch X", rows[0].BranchName)
}

func TestListMembers_StatusFilter(t *testing.T) {
	db := setupTestDB(t)
	branch := seedBranch(t, db, "Branch X", "branch-x", "staffpass")
	seedMember(t, db, model.Member{Mobile: "9000000001", BranchID: branch.ID, EndDate: futureDate(), Status: model.StatusActive})
	seedMember(t, db, model.Member{Mobile: "9000000002", BranchID: branch.ID, EndDate: futureDate(), Status: model.StatusPending})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/members?branch_id=1&status=pending", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, ListMembers(c))

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "9000000002", rows[0]["mobile"])
}

func TestListMembers_RequiresBranchID(t *testing.T) {
	setupTestDB(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/members", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, ListMembers(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMemberStats(t *testing.T) {
	db := setupTestDB(t)
	branch := seedBranch(t, db, "Branch X", "branch-x", "staffpass")

	seedMember(t, db, model.Member{Mobile: "9000000001", BranchID: branch.ID, EndDate: futureDate(), Status: model.StatusActive, PaymentAmount: 1500})
	seedMember(t, db, model.Member{Mobile: "9000000002", BranchID: branch.ID, EndDate: pastDate(), Status: model.StatusActive, PaymentAmount: 1000})
	seedMember(t, db, model.Member{Mobile: "9000000003", BranchID: branch.ID, EndDate: futureDate(), Status: model.StatusPending, PaymentAmount: 2000})
	seedMember(t, db, model.Member{Mobile: "9000000004", BranchID: branch.ID, EndDate: futureDate(), Status: model.StatusRejected, PaymentAmount: 2500})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/members/stats?branch_id=1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, MemberStats(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["active"])
	assert.Equal(t, float64(1), body["pending"])
	assert.Equal(t, float64(1), body["expired"])
	assert.Equal(t, float64(2500), body["total_revenue"])
}

func TestMemberProfile(t *testing.T) {
	db := setupTestDB(t)
	branch := seedBranch(t, db, "Branch X", "branch-x", "staffpass")
	seedMember(t, db, model.Member{
		FullName: "Jane Doe", Mobile: "9000000001", BranchID: branch.ID,
		EndDate: futureDate(), Status: model.StatusActive,
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/member/profile?mobile=9000000001", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, MemberProfile(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "Jane Doe", body["full_name"])
	assert.Equal(t, "Branch X", body["branch_name"])
	assert.Equal(t, "active", body["display_status"])
}

func TestMemberProfile_NotFound(t *testing.T) {
	setupTestDB(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/member/profile?mobile=9999999999", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, MemberProfile(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
