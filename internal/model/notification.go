package model

import (
	"time"
)

// Notification types
const (
	NotificationNewRegistration = "new_registration"
)

// StaffNotification is an advisory record prompting branch staff to
// review a member event. Not part of the authoritative membership
// state; deleted wholesale once the member is approved, rejected or
// removed.
type StaffNotification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BranchID  uint      `json:"branch_id" gorm:"index;not null"`
	MemberID  uint      `json:"member_id" gorm:"index;not null"`
	Type      string    `json:"type" gorm:"type:varchar(30)"`
	Message   string    `json:"message" gorm:"type:text"`
	IsRead    bool      `json:"is_read" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
}
