package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		action TicketAction
		from   TicketStatus
		want   bool
	}{
		{ActionStart, StatusNew, true},
		{ActionStart, StatusInProgress, false},
		{ActionBump, StatusNew, true},
		{ActionBump, StatusInProgress, true},
		{ActionBump, StatusReady, true},
		{ActionBump, StatusBumped, false},
		{ActionRecall, StatusBumped, true},
		{ActionRecall, StatusNew, false},
		{ActionRebump, StatusRecalled, true},
		{ActionRebump, StatusBumped, false},
		{TicketAction("unknown"), StatusNew, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.action, tc.from); got != tc.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.action, tc.from, got, tc.want)
		}
	}
}

func TestTimestampsMonotonic(t *testing.T) {
	created := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	started := created.Add(2 * time.Minute)
	bumped := created.Add(10 * time.Minute)
	early := created.Add(-time.Minute)

	ticket := Ticket{CreatedAt: created}
	assert.True(t, ticket.TimestampsMonotonic())

	ticket.StartedAt = &started
	ticket.BumpedAt = &bumped
	assert.True(t, ticket.TimestampsMonotonic())

	ticket.StartedAt = &early
	assert.False(t, ticket.TimestampsMonotonic())

	ticket.StartedAt = &bumped
	ticket.BumpedAt = &started
	assert.False(t, ticket.TimestampsMonotonic())
}

func TestTicketUnmarshalLooseShapes(t *testing.T) {
	// Alternate id casing, string-typed numbers, unknown status.
	payload := `{
		"ticketId": "t-77",
		"order_id": "412",
		"stationId": "grill",
		"table_number": 12,
		"guest_count": 4,
		"order_type": "dine_in",
		"status": "plating",
		"priority": 9,
		"created_at": "2025-03-01T18:00:00Z",
		"items": [{"id": "i-1", "name": "Burger", "quantity": 2}]
	}`

	var ticket Ticket
	err := json.Unmarshal([]byte(payload), &ticket)
	assert.NoError(t, err)
	assert.Equal(t, "t-77", ticket.TicketID)
	assert.Equal(t, 412, ticket.OrderID)
	assert.Equal(t, "grill", ticket.StationID)
	assert.Equal(t, "12", ticket.TableNumber)
	assert.Equal(t, 4, ticket.GuestCount)
	// Unknown status collapses to new, out-of-range priority clamps to 5.
	assert.Equal(t, StatusNew, ticket.Status)
	assert.Equal(t, 5, ticket.Priority)
	assert.Len(t, ticket.Items, 1)
}

func TestStationUnmarshalIDVariants(t *testing.T) {
	for _, payload := range []string{
		`{"station_id": "fry", "name": "Fry"}`,
		`{"stationId": "fry", "name": "Fry"}`,
		`{"id": "fry", "name": "Fry"}`,
		`{"id": 0, "station_id": "fry", "name": "Fry"}`,
	} {
		var station Station
		if err := json.Unmarshal([]byte(payload), &station); err != nil {
			t.Fatalf("unmarshal %s: %v", payload, err)
		}
		if station.StationID != "fry" {
			t.Errorf("payload %s: StationID = %q, want %q", payload, station.StationID, "fry")
		}
	}
}

func TestActiveItemCountExcludesVoided(t *testing.T) {
	ticket := Ticket{Items: []OrderItem{
		{ID: "a", Name: "Soup", Quantity: 1},
		{ID: "b", Name: "Steak", Quantity: 1, IsVoided: true},
		{ID: "c", Name: "Cola", Quantity: 2},
	}}

	assert.Equal(t, 2, ticket.ActiveItemCount())
}

func TestHasAllergensIgnoresVoidedItems(t *testing.T) {
	ticket := Ticket{Items: []OrderItem{
		{ID: "a", Name: "Satay", Allergens: []string{"peanut"}, IsVoided: true},
		{ID: "b", Name: "Rice"},
	}}
	assert.False(t, ticket.HasAllergens())

	ticket.Items[0].IsVoided = false
	assert.True(t, ticket.HasAllergens())
}

func TestIsRush(t *testing.T) {
	for priority, want := range map[int]bool{1: false, 3: false, 4: true, 5: true} {
		ticket := Ticket{Priority: priority}
		if got := ticket.IsRush(); got != want {
			t.Errorf("priority %d: IsRush() = %v, want %v", priority, got, want)
		}
	}
}
