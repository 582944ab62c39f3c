package entity

import (
	"time"

	"github.com/google/uuid"
)

// AlertSeverity grades admin alerts
type AlertSeverity string

const (
	SeverityLow    AlertSeverity = "low"
	SeverityMedium AlertSeverity = "medium"
	SeverityHigh   AlertSeverity = "high"
)

// Notification is a customer-facing message produced by the dispatcher.
// Delivery (email/push) happens downstream; this row is the record of intent.
type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Type      string
	Title     string
	Body      string
	Metadata  map[string]string
	CreatedAt time.Time
}

// NewNotification creates a notification record
func NewNotification(userID uuid.UUID, notifType, title, body string, metadata map[string]string) *Notification {
	return &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      notifType,
		Title:     title,
		Body:      body,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}

// AdminAlert is an operator-facing alert for failures that need a human
type AdminAlert struct {
	ID        uuid.UUID
	Severity  AlertSeverity
	Type      string
	Message   string
	Metadata  map[string]string
	CreatedAt time.Time
}

// NewAdminAlert creates an admin alert record
func NewAdminAlert(severity AlertSeverity, alertType, message string, metadata map[string]string) *AdminAlert {
	return &AdminAlert{
		ID:        uuid.New(),
		Severity:  severity,
		Type:      alertType,
		Message:   message,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}
