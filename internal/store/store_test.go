package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"brigade/internal/backend"
	"brigade/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves canned feed data with per-feed failure switches.
type fakeFetcher struct {
	stations []models.Station
	tickets  []models.Ticket
	expo     []models.Ticket
	stats    models.KitchenStats
	cook     []models.CookTimeAlert
	items86  []models.UnavailableItem

	fail map[Feed]error
}

func (f *fakeFetcher) feedErr(feed Feed) error {
	if f.fail == nil {
		return nil
	}
	return f.fail[feed]
}

func (f *fakeFetcher) ListStations(ctx context.Context) ([]models.Station, error) {
	return f.stations, f.feedErr(FeedStations)
}

func (f *fakeFetcher) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	return f.tickets, f.feedErr(FeedTickets)
}

func (f *fakeFetcher) ListExpo(ctx context.Context) ([]models.Ticket, error) {
	return f.expo, f.feedErr(FeedExpo)
}

func (f *fakeFetcher) GetStats(ctx context.Context) (*models.KitchenStats, error) {
	if err := f.feedErr(FeedStats); err != nil {
		return nil, err
	}
	stats := f.stats
	return &stats, nil
}

func (f *fakeFetcher) ListCookTimeAlerts(ctx context.Context) ([]models.CookTimeAlert, error) {
	return f.cook, f.feedErr(FeedCookTimes)
}

func (f *fakeFetcher) List86(ctx context.Context) ([]models.UnavailableItem, error) {
	return f.items86, f.feedErr(Feed86)
}

func ticketFixture(id string, status models.TicketStatus) models.Ticket {
	return models.Ticket{
		TicketID:  id,
		OrderID:   1,
		StationID: "grill",
		OrderType: models.OrderTypeDineIn,
		Status:    status,
		Priority:  2,
		CreatedAt: time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC),
		Items: []models.OrderItem{
			{ID: id + "-i1", Name: "Burger", Quantity: 1},
		},
	}
}

func TestRefreshReplacesSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{
		stations: []models.Station{{StationID: "grill", Name: "Grill"}},
		tickets:  []models.Ticket{ticketFixture("t-1", models.StatusNew)},
		items86:  []models.UnavailableItem{{ID: "m-1", Name: "Oysters"}},
		stats:    models.KitchenStats{OpenTickets: 1},
	}
	s := NewStore(fetcher, nil)

	snap, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Tickets, 1)
	assert.Len(t, snap.Items86, 1)
	assert.Equal(t, 1, snap.Stats.OpenTickets)
	assert.Empty(t, snap.FeedErrors)

	// The next refresh drops the bumped ticket entirely; no stale leftovers.
	fetcher.tickets = nil
	snap, err = s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Tickets)
}

func TestPartialFailureKeepsOnlyFailedFeedStale(t *testing.T) {
	fetcher := &fakeFetcher{
		stations: []models.Station{{StationID: "grill", Name: "Grill"}},
		tickets:  []models.Ticket{ticketFixture("t-1", models.StatusNew)},
	}
	s := NewStore(fetcher, nil)
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	fetcher.stations = []models.Station{{StationID: "grill"}, {StationID: "fry"}}
	fetcher.fail = map[Feed]error{FeedTickets: fmt.Errorf("upstream 503")}

	snap, err := s.Refresh(context.Background())
	require.Error(t, err)
	// Stations applied, tickets retained from the previous snapshot.
	assert.Len(t, snap.Stations, 2)
	assert.Len(t, snap.Tickets, 1)
	assert.True(t, snap.Stale(FeedTickets))
	assert.False(t, snap.Stale(FeedStations))
}

func TestFullFailureRetainsPreviousData(t *testing.T) {
	fetcher := &fakeFetcher{tickets: []models.Ticket{ticketFixture("t-1", models.StatusNew)}}
	s := NewStore(fetcher, nil)
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	boom := fmt.Errorf("connection refused")
	fetcher.fail = map[Feed]error{
		FeedStations: boom, FeedTickets: boom, FeedExpo: boom,
		FeedStats: boom, FeedCookTimes: boom, Feed86: boom,
	}

	snap, err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.Len(t, snap.Tickets, 1)
	assert.Len(t, snap.FeedErrors, 6)
	assert.Error(t, s.LastError())
}

func TestNotAuthenticated(t *testing.T) {
	fetcher := &fakeFetcher{
		fail: map[Feed]error{FeedTickets: fmt.Errorf("GET /kitchen/tickets: %w", backend.ErrUnauthorized)},
	}
	s := NewStore(fetcher, nil)
	_, err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, s.NotAuthenticated())
	assert.True(t, errors.Is(s.LastError(), backend.ErrUnauthorized))
}

func TestVoidFallbackReconciledByRefresh(t *testing.T) {
	fetcher := &fakeFetcher{tickets: []models.Ticket{ticketFixture("t-1", models.StatusNew)}}
	s := NewStore(fetcher, nil)
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	// The remote void failed; the local fallback applies immediately.
	s.MarkItemVoided("t-1", "t-1-i1", time.Now())
	snap := s.Current()
	require.True(t, snap.FindTicket("t-1").Items[0].IsVoided)
	require.Len(t, s.PendingPatches(), 1)
	assert.Equal(t, PatchVoidItem, s.PendingPatches()[0].Kind)

	// Ticket feed down: the patch survives on top of retained data.
	fetcher.fail = map[Feed]error{FeedTickets: fmt.Errorf("upstream 503")}
	snap, _ = s.Refresh(context.Background())
	assert.True(t, snap.FindTicket("t-1").Items[0].IsVoided)
	assert.Len(t, s.PendingPatches(), 1)

	// Server still says not voided: its word wins and the patch clears.
	fetcher.fail = nil
	snap, err = s.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, snap.FindTicket("t-1").Items[0].IsVoided)
	assert.Empty(t, s.PendingPatches())
}

func TestDrop86Fallback(t *testing.T) {
	fetcher := &fakeFetcher{items86: []models.UnavailableItem{{ID: "m-1", Name: "Oysters"}}}
	s := NewStore(fetcher, nil)
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	s.Drop86("m-1", time.Now())
	assert.Empty(t, s.Current().Items86)
	require.Len(t, s.PendingPatches(), 1)

	// Feed down keeps the local drop; recovery restores server truth.
	fetcher.fail = map[Feed]error{Feed86: fmt.Errorf("upstream 503")}
	snap, _ := s.Refresh(context.Background())
	assert.Empty(t, snap.Items86)

	fetcher.fail = nil
	snap, err = s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Items86, 1)
	assert.Empty(t, s.PendingPatches())
}

func TestFindTicketSearchesExpoFeed(t *testing.T) {
	snap := &Snapshot{
		Tickets:     []models.Ticket{ticketFixture("t-1", models.StatusNew)},
		ExpoTickets: []models.Ticket{ticketFixture("t-2", models.StatusBumped)},
	}

	require.NotNil(t, snap.FindTicket("t-1"))
	expoOnly := snap.FindTicket("t-2")
	require.NotNil(t, expoOnly)
	assert.Equal(t, models.StatusBumped, expoOnly.Status)
	assert.Nil(t, snap.FindTicket("t-404"))
}

func TestSnapshotGrouping(t *testing.T) {
	tickets := []models.Ticket{
		ticketFixture("t-1", models.StatusNew),
		ticketFixture("t-2", models.StatusInProgress),
	}
	tickets[1].StationID = "fry"

	snap := &Snapshot{Tickets: tickets}
	byStation := snap.TicketsByStation()
	assert.Len(t, byStation["grill"], 1)
	assert.Len(t, byStation["fry"], 1)
	assert.Equal(t, 1, snap.NewTicketCount())
	assert.Equal(t, 1, snap.StatusCounts()[models.StatusInProgress])
}
