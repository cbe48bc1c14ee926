// Package alerts derives the ephemeral notification layer: the 86 banner,
// rush/vip/overdue alerts and the new-ticket sound trigger. Nothing here is
// persisted; every refresh recomputes from the current snapshot.
package alerts

import (
	"fmt"
	"time"

	"brigade/internal/config"
	"brigade/internal/models"
	"brigade/internal/store"
	"brigade/internal/timing"
)

// Derive builds the alert list for the snapshot. 86 alerts come first so
// the banner content leads the feed.
func Derive(snap *store.Snapshot, now time.Time, timers config.Timers, colorCodingEnabled bool) []models.Alert {
	var alerts []models.Alert

	for _, item := range snap.Items86 {
		alerts = append(alerts, models.Alert{
			Type:      models.AlertItem86,
			Message:   fmt.Sprintf("86: %s is unavailable", item.Name),
			CreatedAt: now,
		})
	}

	for _, ticket := range snap.Tickets {
		if !ticket.Active() {
			continue
		}
		if ticket.IsRush() {
			alerts = append(alerts, models.Alert{
				Type:      models.AlertRush,
				Message:   fmt.Sprintf("Rush order #%d", ticket.OrderID),
				OrderID:   ticket.OrderID,
				CreatedAt: now,
			})
		}
		if ticket.IsVIP {
			alerts = append(alerts, models.Alert{
				Type:      models.AlertVIP,
				Message:   fmt.Sprintf("VIP order #%d", ticket.OrderID),
				OrderID:   ticket.OrderID,
				CreatedAt: now,
			})
		}
		wait := timing.WaitMinutes(ticket.CreatedAt, now)
		if timing.IsOverdue(wait, timers, colorCodingEnabled) {
			alerts = append(alerts, models.Alert{
				Type:      models.AlertOverdue,
				Message:   fmt.Sprintf("Order #%d waiting %d min", ticket.OrderID, wait),
				OrderID:   ticket.OrderID,
				CreatedAt: now,
			})
		}
	}

	return alerts
}

// BannerVisible reports whether the 86 banner should show: visible exactly
// while at least one item is marked unavailable.
func BannerVisible(snap *store.Snapshot) bool {
	return len(snap.Items86) > 0
}

// BannerNames lists the affected item names for the banner text.
func BannerNames(snap *store.Snapshot) []string {
	names := make([]string, 0, len(snap.Items86))
	for _, item := range snap.Items86 {
		names = append(names, item.Name)
	}
	return names
}

// SoundGate decides when the new-ticket chime plays. It compares the
// new-ticket count across consecutive refreshes and fires at most once per
// cycle; the very first load is suppressed so a display coming online does
// not chime for the whole existing queue.
type SoundGate struct {
	prevCount int
	primed    bool
}

// Check consumes one refresh cycle's new-ticket count and reports whether
// the sound should play.
func (g *SoundGate) Check(newCount int, enabled bool) bool {
	prev, primed := g.prevCount, g.primed
	g.prevCount = newCount
	g.primed = true

	if !enabled || !primed {
		return false
	}
	return newCount > prev && prev != 0
}
