// Package views holds the pure projections over a store snapshot: the
// priority-ordered active queue, the expo queue, the all-day rollup and the
// completed history. Everything recomputes from scratch per snapshot --
// ticket volumes are tens, not thousands, so correctness beats caching.
package views

import (
	"sort"

	"brigade/internal/models"
	"brigade/internal/store"
)

// ActiveTickets returns the tickets belonging on the primary display,
// optionally filtered to one station. Bumped tickets live in the expo and
// history projections instead.
func ActiveTickets(snap *store.Snapshot, stationID string) []models.Ticket {
	var active []models.Ticket
	for _, ticket := range snap.Tickets {
		if !ticket.Active() {
			continue
		}
		if stationID != "" && ticket.StationID != stationID {
			continue
		}
		active = append(active, ticket)
	}
	return active
}

// SortForDisplay orders tickets by priority descending, then age (older
// first). The sort is stable so equal tickets keep their snapshot order
// across renders.
func SortForDisplay(tickets []models.Ticket) []models.Ticket {
	sorted := append([]models.Ticket(nil), tickets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}
