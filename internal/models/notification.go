package models

import "time"

// NotificationKind classifies in-app alerts.
type NotificationKind string

const NotificationKindDividend NotificationKind = "dividend_received"

// Notification is an in-app alert for one user.
type Notification struct {
	Base
	UserID    string           `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind      NotificationKind `gorm:"type:varchar(32);not null" json:"kind"`
	Title     string           `gorm:"not null" json:"title"`
	Body      string           `json:"body"`
	Reference string           `json:"reference,omitempty"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
}
