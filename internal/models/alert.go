package models

import "time"

// AlertType classifies a derived alert
type AlertType string

const (
	AlertRush    AlertType = "rush"
	AlertOverdue AlertType = "overdue"
	AlertItem86  AlertType = "item_86"
	AlertVIP     AlertType = "vip"
)

// Alert represents an ephemeral derived notification. Alerts are recomputed
// from the current snapshot on every refresh and never persisted.
type Alert struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	OrderID   int       `json:"order_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UnavailableItem represents a menu item marked 86
type UnavailableItem struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	MarkedAt        time.Time  `json:"marked_at"`
	EstimatedReturn *time.Time `json:"estimated_return,omitempty"`
}

// CookTimeAlert represents a backend-owned cook-time breach. The backend
// owns the per-item threshold; the core only displays these.
type CookTimeAlert struct {
	TicketID    string  `json:"ticket_id"`
	OrderID     int     `json:"order_id"`
	ItemName    string  `json:"item_name"`
	MinutesOver float64 `json:"minutes_over"`
	Threshold   float64 `json:"threshold"`
}
