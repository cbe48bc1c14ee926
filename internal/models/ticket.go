package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// TicketStatus represents the lifecycle state of a kitchen ticket
type TicketStatus string

const (
	StatusNew        TicketStatus = "new"
	StatusInProgress TicketStatus = "in_progress"
	StatusReady      TicketStatus = "ready"
	StatusBumped     TicketStatus = "bumped"
	StatusRecalled   TicketStatus = "recalled"
	StatusVoided     TicketStatus = "voided"
)

// OrderType represents how the order reaches the guest
type OrderType string

const (
	OrderTypeDineIn    OrderType = "dine_in"
	OrderTypeTakeout   OrderType = "takeout"
	OrderTypeDelivery  OrderType = "delivery"
	OrderTypeDriveThru OrderType = "drive_thru"
)

// Course represents the service course an item belongs to
type Course string

const (
	CourseAppetizer Course = "appetizer"
	CourseMain      Course = "main"
	CourseDessert   Course = "dessert"
	CourseBeverage  Course = "beverage"
)

// RushPriority is the lowest priority value rendered with the rush treatment.
const RushPriority = 4

// Ticket represents one station's slice of a customer order
type Ticket struct {
	TicketID    string       `json:"ticket_id"`
	OrderID     int          `json:"order_id"`
	StationID   string       `json:"station_id"`
	TableNumber string       `json:"table_number,omitempty"`
	ServerName  string       `json:"server_name,omitempty"`
	GuestCount  int          `json:"guest_count,omitempty"`
	OrderType   OrderType    `json:"order_type"`
	SplitCheck  bool         `json:"split_check,omitempty"`
	Items       []OrderItem  `json:"items"`
	Status      TicketStatus `json:"status"`
	Priority    int          `json:"priority"`
	IsVIP       bool         `json:"is_vip"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	BumpedAt    *time.Time   `json:"bumped_at,omitempty"`
}

// OrderItem represents one line within a ticket
type OrderItem struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Quantity  int      `json:"quantity"`
	Seat      string   `json:"seat,omitempty"`
	Course    Course   `json:"course,omitempty"`
	Modifiers []string `json:"modifiers,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	Allergens []string `json:"allergens,omitempty"`
	IsVoided  bool     `json:"is_voided"`
	IsFired   bool     `json:"is_fired"`
}

// IsRush reports whether the ticket should get the rush treatment
func (t *Ticket) IsRush() bool {
	return t.Priority >= RushPriority
}

// HasAllergens reports whether any non-voided item carries an allergen
func (t *Ticket) HasAllergens() bool {
	for _, item := range t.Items {
		if !item.IsVoided && len(item.Allergens) > 0 {
			return true
		}
	}
	return false
}

// ActiveItemCount counts items excluding voided ones. Voided items stay on
// the ticket for audit display but never count toward work remaining.
func (t *Ticket) ActiveItemCount() int {
	n := 0
	for _, item := range t.Items {
		if !item.IsVoided {
			n++
		}
	}
	return n
}

// Active reports whether the ticket belongs on the primary display queue.
func (t *Ticket) Active() bool {
	return t.Status != StatusBumped
}

// TimestampsMonotonic checks created_at <= started_at <= bumped_at for the
// timestamps that are present.
func (t *Ticket) TimestampsMonotonic() bool {
	if t.StartedAt != nil && t.StartedAt.Before(t.CreatedAt) {
		return false
	}
	if t.BumpedAt != nil {
		if t.BumpedAt.Before(t.CreatedAt) {
			return false
		}
		if t.StartedAt != nil && t.BumpedAt.Before(*t.StartedAt) {
			return false
		}
	}
	return true
}

// TicketAction represents a lifecycle action a user can dispatch
type TicketAction string

const (
	ActionStart  TicketAction = "start"
	ActionBump   TicketAction = "bump"
	ActionRecall TicketAction = "recall"
	ActionRebump TicketAction = "rebump"
)

// transitionMap lists the statuses each action may be applied from.
var transitionMap = map[TicketAction][]TicketStatus{
	ActionStart:  {StatusNew},
	ActionBump:   {StatusNew, StatusInProgress, StatusReady},
	ActionRecall: {StatusBumped},
	ActionRebump: {StatusRecalled},
}

// CanTransition reports whether the action is valid from the given status.
func CanTransition(action TicketAction, from TicketStatus) bool {
	allowed, ok := transitionMap[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == from {
			return true
		}
	}
	return false
}

// ValidPriority reports whether p is inside the 1..5 priority scale.
func ValidPriority(p int) bool {
	return p >= 1 && p <= 5
}

// looseTicket mirrors Ticket with the alternate field shapes different
// backend versions emit. Decoding picks the first populated variant.
type looseTicket struct {
	TicketID     string      `json:"ticket_id"`
	AltTicketID  string      `json:"ticketId"`
	ID           string      `json:"id"`
	OrderID      looseInt    `json:"order_id"`
	StationID    string      `json:"station_id"`
	AltStationID string      `json:"stationId"`
	TableNumber  looseString `json:"table_number"`
	ServerName   string      `json:"server_name"`
	GuestCount   looseInt    `json:"guest_count"`
	OrderType    string      `json:"order_type"`
	SplitCheck   bool        `json:"split_check"`
	Items        []OrderItem `json:"items"`
	Status       string      `json:"status"`
	Priority     looseInt    `json:"priority"`
	IsVIP        bool        `json:"is_vip"`
	CreatedAt    time.Time   `json:"created_at"`
	StartedAt    *time.Time  `json:"started_at"`
	BumpedAt     *time.Time  `json:"bumped_at"`
}

// UnmarshalJSON parses the loose shapes the backend emits into the strict
// ticket type, failing closed to defaults rather than carrying untyped data
// inward.
func (t *Ticket) UnmarshalJSON(data []byte) error {
	var loose looseTicket
	if err := json.Unmarshal(data, &loose); err != nil {
		return err
	}

	*t = Ticket{
		TicketID:    firstNonEmpty(loose.TicketID, loose.AltTicketID, loose.ID),
		OrderID:     int(loose.OrderID),
		StationID:   firstNonEmpty(loose.StationID, loose.AltStationID),
		TableNumber: string(loose.TableNumber),
		ServerName:  loose.ServerName,
		GuestCount:  int(loose.GuestCount),
		OrderType:   normalizeOrderType(loose.OrderType),
		SplitCheck:  loose.SplitCheck,
		Items:       loose.Items,
		Status:      normalizeStatus(loose.Status),
		Priority:    clampPriority(int(loose.Priority)),
		IsVIP:       loose.IsVIP,
		CreatedAt:   loose.CreatedAt,
		StartedAt:   loose.StartedAt,
		BumpedAt:    loose.BumpedAt,
	}
	return nil
}

func normalizeStatus(s string) TicketStatus {
	switch TicketStatus(s) {
	case StatusNew, StatusInProgress, StatusReady, StatusBumped, StatusRecalled, StatusVoided:
		return TicketStatus(s)
	}
	// Unknown statuses fail closed to new so the ticket still renders.
	return StatusNew
}

func normalizeOrderType(s string) OrderType {
	switch OrderType(s) {
	case OrderTypeDineIn, OrderTypeTakeout, OrderTypeDelivery, OrderTypeDriveThru:
		return OrderType(s)
	}
	return OrderTypeDineIn
}

func clampPriority(p int) int {
	if p < 1 {
		return 1
	}
	if p > 5 {
		return 5
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// looseInt decodes a JSON number or a numeric string.
type looseInt int

func (n *looseInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*n = 0
			return nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			*n = 0
			return nil
		}
		*n = looseInt(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*n = 0
		return nil
	}
	*n = looseInt(int(f))
	return nil
}

// looseString decodes a JSON string or number into a string.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			*s = ""
			return nil
		}
		*s = looseString(v)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*s = ""
		return nil
	}
	*s = looseString(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}
