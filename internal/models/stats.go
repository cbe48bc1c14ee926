package models

// KitchenStats represents the backend's aggregate counters for the service
// period. Treated as display-only; the core derives nothing from them.
type KitchenStats struct {
	OpenTickets       int     `json:"open_tickets"`
	InProgressTickets int     `json:"in_progress_tickets"`
	ReadyTickets      int     `json:"ready_tickets"`
	BumpedToday       int     `json:"bumped_today"`
	AvgTicketMinutes  float64 `json:"avg_ticket_minutes"`
}
