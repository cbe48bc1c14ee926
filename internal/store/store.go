// Package store owns the client-side authoritative copy of the kitchen
// state. A fixed-interval refresh rebuilds the snapshot from the backend;
// between refreshes the only local edits are the optimistic fallback patches
// the dispatcher applies when a void or 86-unmark call fails remotely.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"brigade/internal/backend"
	"brigade/internal/models"

	"go.uber.org/zap"
)

// Fetcher is the slice of the backend client the store reads through.
type Fetcher interface {
	ListStations(ctx context.Context) ([]models.Station, error)
	ListTickets(ctx context.Context) ([]models.Ticket, error)
	ListExpo(ctx context.Context) ([]models.Ticket, error)
	GetStats(ctx context.Context) (*models.KitchenStats, error)
	ListCookTimeAlerts(ctx context.Context) ([]models.CookTimeAlert, error)
	List86(ctx context.Context) ([]models.UnavailableItem, error)
}

// PatchKind classifies an optimistic local patch
type PatchKind string

const (
	PatchVoidItem PatchKind = "void_item"
	PatchDrop86   PatchKind = "drop_86"
)

// Patch represents a locally applied fallback mutation awaiting
// reconciliation by the next successful refresh of its owning feed.
type Patch struct {
	Kind         PatchKind `json:"kind"`
	TicketID     string    `json:"ticket_id,omitempty"`
	ItemID       string    `json:"item_id"`
	PendingSince time.Time `json:"pending_since"`
}

// Store holds the current snapshot and the pending patch set.
type Store struct {
	fetcher Fetcher
	log     *zap.Logger

	mu      sync.RWMutex
	current *Snapshot
	patches []Patch
	lastErr error
}

// NewStore creates a store around the given fetcher.
func NewStore(fetcher Fetcher, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		fetcher: fetcher,
		log:     log,
		current: &Snapshot{FeedErrors: map[Feed]string{}},
	}
}

// Current returns the latest snapshot. Snapshots are immutable; callers may
// read them without coordination.
func (s *Store) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// LastError returns the aggregated error of the most recent refresh, or nil.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// NotAuthenticated reports whether the last refresh failed with a 401.
func (s *Store) NotAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return errors.Is(s.lastErr, backend.ErrUnauthorized)
}

// PendingPatches returns a copy of the unreconciled optimistic patches.
func (s *Store) PendingPatches() []Patch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Patch(nil), s.patches...)
}

type fetchResult struct {
	stations   []models.Station
	tickets    []models.Ticket
	expo       []models.Ticket
	stats      *models.KitchenStats
	cookAlerts []models.CookTimeAlert
	items86    []models.UnavailableItem
	errs       map[Feed]error
}

// Refresh pulls all feeds concurrently and swaps in a new snapshot. Feeds
// that fail keep their previous data and are marked stale; only when the
// swap happens is the new snapshot visible, never a partial merge. The
// returned error aggregates the failed feeds and is nil when all succeeded.
func (s *Store) Refresh(ctx context.Context) (*Snapshot, error) {
	res := fetchResult{errs: make(map[Feed]error)}
	var wg sync.WaitGroup
	var resMu sync.Mutex

	fetch := func(feed Feed, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil {
				resMu.Lock()
				res.errs[feed] = err
				resMu.Unlock()
			}
		}()
	}

	fetch(FeedStations, func() error {
		v, err := s.fetcher.ListStations(ctx)
		if err == nil {
			res.stations = v
		}
		return err
	})
	fetch(FeedTickets, func() error {
		v, err := s.fetcher.ListTickets(ctx)
		if err == nil {
			res.tickets = v
		}
		return err
	})
	fetch(FeedExpo, func() error {
		v, err := s.fetcher.ListExpo(ctx)
		if err == nil {
			res.expo = v
		}
		return err
	})
	fetch(FeedStats, func() error {
		v, err := s.fetcher.GetStats(ctx)
		if err == nil {
			res.stats = v
		}
		return err
	})
	fetch(FeedCookTimes, func() error {
		v, err := s.fetcher.ListCookTimeAlerts(ctx)
		if err == nil {
			res.cookAlerts = v
		}
		return err
	})
	fetch(Feed86, func() error {
		v, err := s.fetcher.List86(ctx)
		if err == nil {
			res.items86 = v
		}
		return err
	})

	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.current
	next := &Snapshot{
		FetchedAt:  time.Now(),
		FeedErrors: make(map[Feed]string, len(res.errs)),
	}

	apply := func(feed Feed, ok func(), keep func()) {
		if err, failed := res.errs[feed]; failed {
			keep()
			next.FeedErrors[feed] = err.Error()
			s.log.Warn("feed refresh failed",
				zap.String("feed", string(feed)),
				zap.Error(err))
		} else {
			ok()
		}
	}

	apply(FeedStations,
		func() { next.Stations = res.stations },
		func() { next.Stations = prev.Stations })
	apply(FeedTickets,
		func() { next.Tickets = res.tickets },
		func() { next.Tickets = prev.Tickets })
	apply(FeedExpo,
		func() { next.ExpoTickets = res.expo },
		func() { next.ExpoTickets = prev.ExpoTickets })
	apply(FeedStats,
		func() { next.Stats = *res.stats },
		func() { next.Stats = prev.Stats })
	apply(FeedCookTimes,
		func() { next.CookAlerts = res.cookAlerts },
		func() { next.CookAlerts = prev.CookAlerts })
	apply(Feed86,
		func() { next.Items86 = res.items86 },
		func() { next.Items86 = prev.Items86 })

	s.reconcilePatches(next, res.errs)

	s.current = next
	s.lastErr = aggregateErr(res.errs)
	return next, s.lastErr
}

// reconcilePatches drops patches whose owning feed refreshed successfully
// (the server is authoritative, whatever it now says) and re-applies the
// rest on top of retained data so the display stays responsive.
func (s *Store) reconcilePatches(next *Snapshot, errs map[Feed]error) {
	kept := s.patches[:0]
	for _, patch := range s.patches {
		switch patch.Kind {
		case PatchVoidItem:
			if _, failed := errs[FeedTickets]; !failed {
				continue
			}
			applyVoid(next, patch.TicketID, patch.ItemID)
		case PatchDrop86:
			if _, failed := errs[Feed86]; !failed {
				continue
			}
			apply86Drop(next, patch.ItemID)
		}
		kept = append(kept, patch)
	}
	s.patches = kept
}

// MarkItemVoided applies the void locally after a failed remote call. The
// patch stays pending until a successful ticket refresh reconciles it.
func (s *Store) MarkItemVoided(ticketID, itemID string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.clone()
	if !applyVoid(next, ticketID, itemID) {
		return
	}
	s.patches = append(s.patches, Patch{
		Kind:         PatchVoidItem,
		TicketID:     ticketID,
		ItemID:       itemID,
		PendingSince: now,
	})
	s.current = next
	s.log.Info("void applied locally pending reconciliation",
		zap.String("ticket_id", ticketID),
		zap.String("item_id", itemID))
}

// Drop86 removes an unavailable item locally after a failed unmark call.
func (s *Store) Drop86(itemID string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.clone()
	if !apply86Drop(next, itemID) {
		return
	}
	s.patches = append(s.patches, Patch{
		Kind:         PatchDrop86,
		ItemID:       itemID,
		PendingSince: now,
	})
	s.current = next
	s.log.Info("86 unmark applied locally pending reconciliation",
		zap.String("item_id", itemID))
}

func applyVoid(snap *Snapshot, ticketID, itemID string) bool {
	for i := range snap.Tickets {
		if snap.Tickets[i].TicketID != ticketID {
			continue
		}
		for j := range snap.Tickets[i].Items {
			if snap.Tickets[i].Items[j].ID == itemID {
				// Skip the write when already voided; retained feeds alias
				// the previous snapshot, which readers may still hold.
				if !snap.Tickets[i].Items[j].IsVoided {
					snap.Tickets[i].Items[j].IsVoided = true
				}
				return true
			}
		}
	}
	return false
}

func apply86Drop(snap *Snapshot, itemID string) bool {
	for i, item := range snap.Items86 {
		if item.ID == itemID {
			snap.Items86 = append(snap.Items86[:i:i], snap.Items86[i+1:]...)
			return true
		}
	}
	return false
}

func aggregateErr(errs map[Feed]error) error {
	if len(errs) == 0 {
		return nil
	}
	var joined error
	for feed, err := range errs {
		joined = errors.Join(joined, fmt.Errorf("%s: %w", feed, err))
	}
	return joined
}
