package board

import (
	"time"

	"brigade/internal/models"
	"brigade/internal/store"
	"brigade/internal/timing"
	"brigade/internal/views"
)

// TicketView is a ticket plus its clock-derived attributes, ready to render.
type TicketView struct {
	models.Ticket
	WaitMinutes     int                    `json:"wait_time_minutes"`
	TimerBucket     timing.Bucket          `json:"timer_bucket"`
	IsOverdue       bool                   `json:"is_overdue"`
	Rush            bool                   `json:"is_rush"`
	Allergens       bool                   `json:"has_allergens"`
	FireableCourses []views.FireableCourse `json:"fireable_courses,omitempty"`
}

// StationView is a station plus its derived load classification.
type StationView struct {
	models.Station
	LoadRatio    float64       `json:"load_ratio"`
	LoadBucket   timing.Bucket `json:"load_bucket"`
	OverdueCount int           `json:"overdue_count"`
}

// State is the full render payload for one instant: every projection the
// display needs, assembled from one snapshot and one clock reading.
type State struct {
	GeneratedAt time.Time `json:"generated_at"`
	FetchedAt   time.Time `json:"fetched_at"`

	Tickets  []TicketView       `json:"tickets"`
	Stations []StationView      `json:"stations"`
	Expo     []TicketView       `json:"expo"`
	AllDay   []views.AllDayRow  `json:"all_day"`
	History  []TicketView       `json:"history"`
	Alerts   []models.Alert     `json:"alerts"`

	BannerVisible bool     `json:"banner_visible"`
	BannerItems   []string `json:"banner_items,omitempty"`

	Items86    []models.UnavailableItem `json:"items_86"`
	Stats      models.KitchenStats      `json:"stats"`
	CookAlerts []models.CookTimeAlert   `json:"cook_time_alerts"`

	LastError        string              `json:"last_error,omitempty"`
	NotAuthenticated bool                `json:"not_authenticated,omitempty"`
	StaleFeeds       []store.Feed        `json:"stale_feeds,omitempty"`
	PendingPatches   []store.Patch       `json:"pending_patches,omitempty"`
}
