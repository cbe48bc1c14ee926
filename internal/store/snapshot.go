package store

import (
	"time"

	"brigade/internal/models"
)

// Feed names one of the backend fetches that make up a refresh.
type Feed string

const (
	FeedStations  Feed = "stations"
	FeedTickets   Feed = "tickets"
	FeedExpo      Feed = "expo"
	FeedStats     Feed = "stats"
	FeedCookTimes Feed = "cook_times"
	Feed86        Feed = "86"
)

// Snapshot is one immutable view of the kitchen. Refreshes build a new
// snapshot and swap it in whole; nothing mutates a snapshot after the swap,
// so readers never observe a half-updated state.
type Snapshot struct {
	Stations    []models.Station
	Tickets     []models.Ticket
	ExpoTickets []models.Ticket
	Items86     []models.UnavailableItem
	Stats       models.KitchenStats
	CookAlerts  []models.CookTimeAlert

	// FetchedAt is when the snapshot was assembled. FeedErrors maps each
	// failed sub-fetch to its error string; those feeds carry data retained
	// from the previous snapshot.
	FetchedAt  time.Time
	FeedErrors map[Feed]string
}

// TicketsByStation groups the ticket list by owning station.
func (s *Snapshot) TicketsByStation() map[string][]models.Ticket {
	byStation := make(map[string][]models.Ticket)
	for _, ticket := range s.Tickets {
		byStation[ticket.StationID] = append(byStation[ticket.StationID], ticket)
	}
	return byStation
}

// FindTicket returns the ticket with the given id, or nil. The expo feed is
// searched as a fallback: when the tickets sub-fetch is stale a bumped ticket
// can be present only there, and expo controls still need to resolve it.
func (s *Snapshot) FindTicket(ticketID string) *models.Ticket {
	for i := range s.Tickets {
		if s.Tickets[i].TicketID == ticketID {
			return &s.Tickets[i]
		}
	}
	for i := range s.ExpoTickets {
		if s.ExpoTickets[i].TicketID == ticketID {
			return &s.ExpoTickets[i]
		}
	}
	return nil
}

// NewTicketCount counts tickets with status new. The sound gate compares
// this across consecutive refreshes.
func (s *Snapshot) NewTicketCount() int {
	n := 0
	for _, ticket := range s.Tickets {
		if ticket.Status == models.StatusNew {
			n++
		}
	}
	return n
}

// StatusCounts tallies tickets per lifecycle status.
func (s *Snapshot) StatusCounts() map[models.TicketStatus]int {
	counts := make(map[models.TicketStatus]int)
	for _, ticket := range s.Tickets {
		counts[ticket.Status]++
	}
	return counts
}

// Stale reports whether the given feed failed on the refresh that built
// this snapshot.
func (s *Snapshot) Stale(feed Feed) bool {
	_, ok := s.FeedErrors[feed]
	return ok
}

// clone copies the snapshot deeply enough that patching a ticket or the 86
// list in the copy cannot alias the original.
func (s *Snapshot) clone() *Snapshot {
	next := &Snapshot{
		Stations:    append([]models.Station(nil), s.Stations...),
		Tickets:     make([]models.Ticket, len(s.Tickets)),
		ExpoTickets: append([]models.Ticket(nil), s.ExpoTickets...),
		Items86:     append([]models.UnavailableItem(nil), s.Items86...),
		Stats:       s.Stats,
		CookAlerts:  append([]models.CookTimeAlert(nil), s.CookAlerts...),
		FetchedAt:   s.FetchedAt,
		FeedErrors:  make(map[Feed]string, len(s.FeedErrors)),
	}
	for i, ticket := range s.Tickets {
		ticket.Items = append([]models.OrderItem(nil), ticket.Items...)
		next.Tickets[i] = ticket
	}
	for feed, msg := range s.FeedErrors {
		next.FeedErrors[feed] = msg
	}
	return next
}
