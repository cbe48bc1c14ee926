// Package board runs the orchestration loop: a fixed-interval data poll and
// an independent derive tick, both cancellable, with fanout to display
// subscribers. The board owns no rendering; it can run headless.
package board

import (
	"context"
	"sort"
	"time"

	"brigade/internal/alerts"
	"brigade/internal/config"
	"brigade/internal/dispatch"
	"brigade/internal/metrics"
	"brigade/internal/models"
	"brigade/internal/store"
	"brigade/internal/timing"
	"brigade/internal/views"

	"go.uber.org/zap"
)

const feedCount = 6

// EventType classifies a fanout event
type EventType string

const (
	EventBoard EventType = "board"
	EventSound EventType = "sound"
)

// Event is one message pushed to subscribers.
type Event struct {
	Type  EventType `json:"type"`
	Board *State    `json:"board,omitempty"`
}

// Board coordinates the store, dispatcher, alert engine and subscribers.
type Board struct {
	cfg     *config.Config
	store   *store.Store
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time

	dispatcher *dispatch.Dispatcher
	gate       alerts.SoundGate

	subscribe   chan chan Event
	unsubscribe chan chan Event
	events      chan Event
	refreshReq  chan struct{}
	done        chan struct{}
}

// NewBoard creates a board. Attach the dispatcher before Run.
func NewBoard(cfg *config.Config, st *store.Store, m *metrics.Metrics, log *zap.Logger) *Board {
	if log == nil {
		log = zap.NewNop()
	}
	return &Board{
		cfg:         cfg,
		store:       st,
		metrics:     m,
		log:         log,
		now:         time.Now,
		subscribe:   make(chan chan Event),
		unsubscribe: make(chan chan Event),
		events:      make(chan Event, 16),
		refreshReq:  make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// AttachDispatcher closes the dispatcher/board cycle: the dispatcher calls
// ForceRefresh, the board resets its fired latches after each refresh.
func (b *Board) AttachDispatcher(d *dispatch.Dispatcher) {
	b.dispatcher = d
}

// SetClock replaces the wall clock, for tests.
func (b *Board) SetClock(now func() time.Time) {
	b.now = now
}

// Run drives the poll and tick loops until ctx is cancelled. One refresh
// happens immediately so the display is live before the first interval.
func (b *Board) Run(ctx context.Context) {
	b.refresh(ctx)

	poll := time.NewTicker(b.cfg.PollInterval())
	tick := time.NewTicker(b.cfg.TickInterval())
	defer poll.Stop()
	defer tick.Stop()

	subscribers := make(map[chan Event]struct{})

	defer close(b.done)

	for {
		select {
		case <-ctx.Done():
			for ch := range subscribers {
				close(ch)
			}
			b.log.Info("board stopped")
			return
		case <-poll.C:
			b.refresh(ctx)
		case <-b.refreshReq:
			b.refresh(ctx)
		case <-tick.C:
			// Derived attributes move with the clock even between polls.
			b.emit(Event{Type: EventBoard, Board: b.Compose("")})
		case ch := <-b.subscribe:
			subscribers[ch] = struct{}{}
		case ch := <-b.unsubscribe:
			if _, ok := subscribers[ch]; ok {
				delete(subscribers, ch)
				close(ch)
			}
		case ev := <-b.events:
			for ch := range subscribers {
				select {
				case ch <- ev:
				default:
					// Slow subscriber: drop rather than stall the loop.
				}
			}
		}
	}
}

// Subscribe registers a display connection. The channel closes on shutdown
// or Unsubscribe.
func (b *Board) Subscribe() chan Event {
	ch := make(chan Event, 8)
	select {
	case b.subscribe <- ch:
	case <-b.done:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a display connection.
func (b *Board) Unsubscribe(ch chan Event) {
	select {
	case b.unsubscribe <- ch:
	case <-b.done:
	}
}

// ForceRefresh schedules an immediate out-of-cycle refresh. Used by the
// manual retry control and by the dispatcher after successful actions.
func (b *Board) ForceRefresh(ctx context.Context) {
	select {
	case b.refreshReq <- struct{}{}:
	default:
		// A refresh is already queued.
	}
}

func (b *Board) refresh(ctx context.Context) {
	snap, err := b.store.Refresh(ctx)
	if b.metrics != nil {
		b.metrics.ObserveRefresh(len(snap.FeedErrors), feedCount)
	}
	if err != nil {
		b.log.Warn("refresh incomplete", zap.Error(err))
	}

	ticketsFresh := !snap.Stale(store.FeedTickets)
	if ticketsFresh {
		if b.dispatcher != nil {
			b.dispatcher.ResetFiredLatch()
		}
		if b.gate.Check(snap.NewTicketCount(), b.cfg.SoundEnabled) {
			if b.metrics != nil {
				b.metrics.SoundTriggers.Inc()
			}
			b.emit(Event{Type: EventSound})
		}
	}

	b.updateGauges(snap)
	b.emit(Event{Type: EventBoard, Board: b.Compose("")})
}

func (b *Board) emit(ev Event) {
	select {
	case b.events <- ev:
	default:
		// Fanout backlog: the next event carries fresher state anyway.
	}
}

func (b *Board) updateGauges(snap *store.Snapshot) {
	if b.metrics == nil {
		return
	}
	now := b.now()
	active, overdue := 0, 0
	for _, ticket := range snap.Tickets {
		if !ticket.Active() {
			continue
		}
		active++
		wait := timing.WaitMinutes(ticket.CreatedAt, now)
		if timing.IsOverdue(wait, b.cfg.Timers, b.cfg.ColorCodingEnabled) {
			overdue++
		}
	}
	b.metrics.ActiveTickets.Set(float64(active))
	b.metrics.OverdueTickets.Set(float64(overdue))
	b.metrics.Items86.Set(float64(len(snap.Items86)))
}

func (b *Board) ticketView(ticket models.Ticket, now time.Time) TicketView {
	wait := timing.WaitMinutes(ticket.CreatedAt, now)
	view := TicketView{
		Ticket:      ticket,
		WaitMinutes: wait,
		TimerBucket: timing.TimerBucket(wait, b.cfg.Timers),
		IsOverdue:   timing.IsOverdue(wait, b.cfg.Timers, b.cfg.ColorCodingEnabled),
		Rush:        ticket.IsRush(),
		Allergens:   ticket.HasAllergens(),
	}
	if courses := views.FireableCourses(&ticket); courses != nil {
		if b.dispatcher != nil {
			for i := range courses {
				if b.dispatcher.CourseFired(ticket.TicketID, courses[i].Course) {
					courses[i].Fired = true
				}
			}
		}
		view.FireableCourses = courses
	}
	return view
}

// Compose assembles the render payload for the given station filter from
// the current snapshot and clock.
func (b *Board) Compose(stationID string) *State {
	snap := b.store.Current()
	now := b.now()

	state := &State{
		GeneratedAt:   now,
		FetchedAt:     snap.FetchedAt,
		AllDay:        views.AllDay(snap),
		Alerts:        alerts.Derive(snap, now, b.cfg.Timers, b.cfg.ColorCodingEnabled),
		BannerVisible: alerts.BannerVisible(snap),
		Items86:       snap.Items86,
		Stats:         snap.Stats,
		CookAlerts:    snap.CookAlerts,
	}
	if state.BannerVisible {
		state.BannerItems = alerts.BannerNames(snap)
	}

	for _, ticket := range views.SortForDisplay(views.ActiveTickets(snap, stationID)) {
		state.Tickets = append(state.Tickets, b.ticketView(ticket, now))
	}
	for _, ticket := range views.ExpoQueue(snap) {
		state.Expo = append(state.Expo, b.ticketView(ticket, now))
	}
	for _, ticket := range views.History(snap, b.cfg.HistoryLimit) {
		state.History = append(state.History, b.ticketView(ticket, now))
	}

	overdueByStation := make(map[string]int)
	for _, ticket := range snap.Tickets {
		if !ticket.Active() {
			continue
		}
		wait := timing.WaitMinutes(ticket.CreatedAt, now)
		if timing.IsOverdue(wait, b.cfg.Timers, b.cfg.ColorCodingEnabled) {
			overdueByStation[ticket.StationID]++
		}
	}
	for _, station := range snap.Stations {
		ratio := timing.LoadRatio(station.CurrentLoad, station.MaxCapacity)
		state.Stations = append(state.Stations, StationView{
			Station:      station,
			LoadRatio:    ratio,
			LoadBucket:   timing.LoadBucket(ratio),
			OverdueCount: overdueByStation[station.StationID],
		})
	}
	sort.SliceStable(state.Stations, func(i, j int) bool {
		return state.Stations[i].Name < state.Stations[j].Name
	})

	if err := b.store.LastError(); err != nil {
		state.LastError = err.Error()
		state.NotAuthenticated = b.store.NotAuthenticated()
	}
	for feed := range snap.FeedErrors {
		state.StaleFeeds = append(state.StaleFeeds, feed)
	}
	sort.Slice(state.StaleFeeds, func(i, j int) bool {
		return state.StaleFeeds[i] < state.StaleFeeds[j]
	})
	state.PendingPatches = b.store.PendingPatches()

	return state
}
