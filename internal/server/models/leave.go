package models

import "time"

type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "pending"
	LeaveStatusApproved LeaveStatus = "approved"
	LeaveStatusRejected LeaveStatus = "rejected"
)

type Leave struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	LeaveType     string      `json:"leave_type"`
	StartDate     string      `json:"start_date"`
	EndDate       string      `json:"end_date"`
	Reason        string      `json:"reason"`
	IsFullDay     bool        `json:"is_full_day"`
	Status        LeaveStatus `json:"status"`
	AttachmentKey string      `json:"attachment_key,omitempty"`
	DecidedBy     string      `json:"decided_by,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
