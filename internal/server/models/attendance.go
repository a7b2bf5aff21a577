package models

import "time"

type AttendanceAction string

const (
	ActionPunchIn  AttendanceAction = "punch_in"
	ActionPunchOut AttendanceAction = "punch_out"
)

type Attendance struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	ActionType AttendanceAction `json:"action_type"`
	Date       string           `json:"date"`
	Time       string           `json:"time"`
	Location   string           `json:"location"`
	Latitude   float64          `json:"latitude"`
	Longitude  float64          `json:"longitude"`
	CreatedAt  time.Time        `json:"created_at"`
}
