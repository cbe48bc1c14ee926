// Package dispatch translates user lifecycle actions into backend calls and
// keeps the local store consistent afterwards. Every successful action
// triggers an immediate out-of-cycle refresh so the display converges in one
// round trip instead of waiting for the next poll.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"brigade/internal/metrics"
	"brigade/internal/models"
	"brigade/internal/store"
	"brigade/internal/views"

	"go.uber.org/zap"
)

// Actions is the mutating slice of the backend client.
type Actions interface {
	StartTicket(ctx context.Context, ticketID string) error
	BumpTicket(ctx context.Context, ticketID string) error
	RecallTicket(ctx context.Context, ticketID, reason string) error
	FireCourse(ctx context.Context, orderID int, course models.Course) error
	VoidItem(ctx context.Context, ticketID, itemID, reason string) error
	SetPriority(ctx context.Context, ticketID string, priority int) error
	Mark86(ctx context.Context, itemID, reason string) error
	Unmark86(ctx context.Context, itemID string) error
}

// Result reports how an action landed. AppliedLocally is set when the
// remote call failed but the optimistic fallback patched the store.
type Result struct {
	AppliedLocally bool
}

// Dispatcher issues lifecycle mutations against the backend.
type Dispatcher struct {
	client  Actions
	store   *store.Store
	refresh func(ctx context.Context)
	log     *zap.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	fired map[string]map[models.Course]bool
}

// NewDispatcher wires the dispatcher. refresh is invoked after every
// successful remote call; pass the board's ForceRefresh. A nil metrics
// bundle disables action counting.
func NewDispatcher(client Actions, st *store.Store, refresh func(ctx context.Context), log *zap.Logger, m *metrics.Metrics) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if refresh == nil {
		refresh = func(context.Context) {}
	}
	return &Dispatcher{
		client:  client,
		store:   st,
		refresh: refresh,
		log:     log,
		metrics: m,
		fired:   make(map[string]map[models.Course]bool),
	}
}

func (d *Dispatcher) ticket(ticketID string) (*models.Ticket, error) {
	ticket := d.store.Current().FindTicket(ticketID)
	if ticket == nil {
		return nil, fmt.Errorf("unknown ticket %q", ticketID)
	}
	return ticket, nil
}

func (d *Dispatcher) checkTransition(action models.TicketAction, ticketID string) (*models.Ticket, error) {
	ticket, err := d.ticket(ticketID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(action, ticket.Status) {
		return nil, fmt.Errorf("cannot %s ticket %s from status %s", action, ticketID, ticket.Status)
	}
	return ticket, nil
}

func (d *Dispatcher) finish(ctx context.Context, action string, ticketID string, err error) error {
	if err != nil {
		d.metrics.ObserveAction(action, "failed")
		d.log.Warn("action failed",
			zap.String("action", action),
			zap.String("ticket_id", ticketID),
			zap.Error(err))
		return fmt.Errorf("%s: %w", action, err)
	}
	d.metrics.ObserveAction(action, "ok")
	d.log.Info("action dispatched",
		zap.String("action", action),
		zap.String("ticket_id", ticketID))
	d.refresh(ctx)
	return nil
}

// Start moves a new ticket into preparation.
func (d *Dispatcher) Start(ctx context.Context, ticketID string) error {
	if _, err := d.checkTransition(models.ActionStart, ticketID); err != nil {
		return err
	}
	return d.finish(ctx, "start", ticketID, d.client.StartTicket(ctx, ticketID))
}

// Bump marks a ticket's preparation complete.
func (d *Dispatcher) Bump(ctx context.Context, ticketID string) error {
	if _, err := d.checkTransition(models.ActionBump, ticketID); err != nil {
		return err
	}
	return d.finish(ctx, "bump", ticketID, d.client.BumpTicket(ctx, ticketID))
}

// Recall reopens a bumped ticket for rework. A reason is required.
func (d *Dispatcher) Recall(ctx context.Context, ticketID, reason string) error {
	if reason == "" {
		return fmt.Errorf("recall requires a reason")
	}
	if _, err := d.checkTransition(models.ActionRecall, ticketID); err != nil {
		return err
	}
	return d.finish(ctx, "recall", ticketID, d.client.RecallTicket(ctx, ticketID, reason))
}

// Rebump completes a recalled ticket again. Same remote call as Bump; the
// separate entry point lets the display validate the recalled state.
func (d *Dispatcher) Rebump(ctx context.Context, ticketID string) error {
	if _, err := d.checkTransition(models.ActionRebump, ticketID); err != nil {
		return err
	}
	return d.finish(ctx, "rebump", ticketID, d.client.BumpTicket(ctx, ticketID))
}

// SetPriority changes a ticket's priority on the 1..5 scale.
func (d *Dispatcher) SetPriority(ctx context.Context, ticketID string, priority int) error {
	if !models.ValidPriority(priority) {
		return fmt.Errorf("priority %d out of range 1..5", priority)
	}
	if _, err := d.ticket(ticketID); err != nil {
		return err
	}
	return d.finish(ctx, "set_priority", ticketID, d.client.SetPriority(ctx, ticketID, priority))
}

// FireCourse fires every non-voided item of the course on a dine-in ticket.
// A fired course is latched locally until the next refresh so the control
// cannot double-fire inside one poll window.
func (d *Dispatcher) FireCourse(ctx context.Context, ticketID string, course models.Course) error {
	ticket, err := d.ticket(ticketID)
	if err != nil {
		return err
	}
	fireable := views.FireableCourses(ticket)
	found := false
	for _, fc := range fireable {
		if fc.Course == course {
			if fc.Fired {
				return fmt.Errorf("course %s already fired on ticket %s", course, ticketID)
			}
			found = true
		}
	}
	if !found {
		return fmt.Errorf("course %s is not fireable on ticket %s", course, ticketID)
	}

	// Latch before dispatching so a second request racing this one cannot
	// also reach the backend; a failed call releases the latch for retry.
	d.mu.Lock()
	if d.fired[ticketID][course] {
		d.mu.Unlock()
		return fmt.Errorf("course %s already fired on ticket %s", course, ticketID)
	}
	if d.fired[ticketID] == nil {
		d.fired[ticketID] = make(map[models.Course]bool)
	}
	d.fired[ticketID][course] = true
	d.mu.Unlock()

	if err := d.client.FireCourse(ctx, ticket.OrderID, course); err != nil {
		d.mu.Lock()
		delete(d.fired[ticketID], course)
		d.mu.Unlock()
		return d.finish(ctx, "fire_course", ticketID, err)
	}

	return d.finish(ctx, "fire_course", ticketID, nil)
}

// CourseFired reports whether the course is latched as fired locally.
func (d *Dispatcher) CourseFired(ticketID string, course models.Course) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fired[ticketID][course]
}

// ResetFiredLatch clears the local fired latches. The board calls this
// after every full refresh, when the tickets feed carries the truth.
func (d *Dispatcher) ResetFiredLatch() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fired = make(map[string]map[models.Course]bool)
}

// VoidItem voids one item on a ticket. A reason is required. When the
// remote call fails the void still applies locally so the display stays
// responsive; the pending patch reconciles on the next successful refresh.
func (d *Dispatcher) VoidItem(ctx context.Context, ticketID, itemID, reason string) (Result, error) {
	if reason == "" {
		return Result{}, fmt.Errorf("void requires a reason")
	}
	ticket, err := d.ticket(ticketID)
	if err != nil {
		return Result{}, err
	}
	itemFound := false
	for _, item := range ticket.Items {
		if item.ID == itemID {
			if item.IsVoided {
				return Result{}, fmt.Errorf("item %s already voided", itemID)
			}
			itemFound = true
			break
		}
	}
	if !itemFound {
		return Result{}, fmt.Errorf("unknown item %q on ticket %s", itemID, ticketID)
	}

	if err := d.client.VoidItem(ctx, ticketID, itemID, reason); err != nil {
		d.store.MarkItemVoided(ticketID, itemID, time.Now())
		d.metrics.ObserveAction("void", "fallback")
		d.log.Warn("void failed remotely, applied locally",
			zap.String("ticket_id", ticketID),
			zap.String("item_id", itemID),
			zap.Error(err))
		return Result{AppliedLocally: true}, fmt.Errorf("void: %w", err)
	}
	return Result{}, d.finish(ctx, "void", ticketID, nil)
}

// Mark86 marks a menu item unavailable.
func (d *Dispatcher) Mark86(ctx context.Context, itemID, reason string) error {
	if itemID == "" {
		return fmt.Errorf("86 requires an item id")
	}
	return d.finish(ctx, "mark_86", itemID, d.client.Mark86(ctx, itemID, reason))
}

// Unmark86 returns a menu item to availability, with the same local
// fallback as VoidItem when the remote call fails.
func (d *Dispatcher) Unmark86(ctx context.Context, itemID string) (Result, error) {
	if err := d.client.Unmark86(ctx, itemID); err != nil {
		d.store.Drop86(itemID, time.Now())
		d.metrics.ObserveAction("unmark_86", "fallback")
		d.log.Warn("86 unmark failed remotely, applied locally",
			zap.String("item_id", itemID),
			zap.Error(err))
		return Result{AppliedLocally: true}, fmt.Errorf("unmark 86: %w", err)
	}
	return Result{}, d.finish(ctx, "unmark_86", itemID, nil)
}
