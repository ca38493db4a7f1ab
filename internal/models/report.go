package models

import "time"

// UserReport is the user-count report served by GET /api/reports/users and
// archived to object storage.
type UserReport struct {
	Timestamp          time.Time `json:"timestamp"`
	TotalUsers         int64     `json:"total_users"`
	NewUsersLast30Days int64     `json:"new_users_last_30_days"`
}
