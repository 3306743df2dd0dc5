package model

import (
	"time"
)

// Stored member statuses. "expired" is never stored; it is derived at
// read time from EndDate, see DisplayStatus.
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusRejected = "rejected"
	StatusExpired  = "expired"
)

// Payment modes accepted at registration
const (
	PaymentModeUPI  = "upi"
	PaymentModeCash = "cash"
)

// Member represents a registered gym customer with a membership plan
// and paid period
type Member struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	FullName       string     `json:"full_name" gorm:"type:varchar(100)"`
	Mobile         string     `json:"mobile" gorm:"type:varchar(20);uniqueIndex"`
	BranchID       uint       `json:"branch_id" gorm:"index;not null"`
	MembershipType string     `json:"membership_type" gorm:"type:varchar(50)"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        time.Time  `json:"end_date"`
	PaymentAmount  float64    `json:"payment_amount"`
	PaymentMode    string     `json:"payment_mode" gorm:"type:varchar(10)"`
	Status         string     `json:"status" gorm:"type:varchar(10);default:pending;index"`
	PasswordHash   string     `json:"-" gorm:"type:varchar(255)"`
	OTPCode        *string    `json:"-" gorm:"type:varchar(6)"`
	OTPExpiresAt   *time.Time `json:"-"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	ApprovedBy     *uint      `json:"approved_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// DisplayStatus derives the status shown to users. An active member
// whose paid period ended is expired; nothing is ever stored as
// expired, so every surface must call this rather than trust the row.
func (m *Member) DisplayStatus(now time.Time) string {
	switch m.Status {
	case StatusPending:
		return StatusPending
	case StatusRejected:
		return StatusRejected
	case StatusActive:
		if m.EndDate.Before(now) {
			return StatusExpired
		}
		return StatusActive
	}
	return m.Status
}

// MemberStats aggregates a branch's member set for the staff dashboard
type MemberStats struct {
	Active       int     `json:"active"`
	Pending      int     `json:"pending"`
	Expired      int     `json:"expired"`
	TotalRevenue float64 `json:"total_revenue"`
}

// ComputeStats derives dashboard counts and revenue from a member set.
// Revenue sums payments of members who are or were active (display
// status active or expired), never pending or rejected ones.
func ComputeStats(members []Member, now time.Time) MemberStats {
	var stats MemberStats
	for i := range members {
		switch members[i].DisplayStatus(now) {
		case StatusActive:
			stats.Active++
			stats.TotalRevenue += members[i].PaymentAmount
		case StatusPending:
			stats.Pending++
		case StatusExpired:
			stats.Expired++
			stats.TotalRevenue += members[i].PaymentAmount
		}
	}
	return stats
}
