// Package backend is the REST client for the kitchen service that owns
// tickets, stations and the 86 list. The client performs no retries -- the
// poll loop owns the cadence and simply tries again on the next cycle.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"brigade/internal/models"
)

// ErrUnauthorized marks an HTTP 401 from the backend. Callers surface it
// distinctly; re-authentication itself is someone else's job.
var ErrUnauthorized = errors.New("not authenticated")

// Client handles requests to the kitchen backend API
type Client struct {
	httpClient *http.Client
	BaseURL    string
	Token      string
}

// NewClient creates a backend client with a bearer credential.
func NewClient(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
		BaseURL: baseURL,
		Token:   token,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s: unexpected status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// ListStations retrieves all kitchen stations.
func (c *Client) ListStations(ctx context.Context) ([]models.Station, error) {
	var stations []models.Station
	if err := c.getJSON(ctx, "/kitchen/stations", &stations); err != nil {
		return nil, err
	}
	return stations, nil
}

// ListTickets retrieves all open, ready and recently bumped tickets.
func (c *Client) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	if err := c.getJSON(ctx, "/kitchen/tickets", &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// ListExpo retrieves the tickets that are ready for pickup.
func (c *Client) ListExpo(ctx context.Context) ([]models.Ticket, error) {
	var body struct {
		ReadyOrders []models.Ticket `json:"ready_orders"`
	}
	if err := c.getJSON(ctx, "/kitchen/expo", &body); err != nil {
		return nil, err
	}
	return body.ReadyOrders, nil
}

// GetStats retrieves the backend's aggregate counters.
func (c *Client) GetStats(ctx context.Context) (*models.KitchenStats, error) {
	var stats models.KitchenStats
	if err := c.getJSON(ctx, "/kitchen/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListCookTimeAlerts retrieves the backend-owned cook-time breaches.
func (c *Client) ListCookTimeAlerts(ctx context.Context) ([]models.CookTimeAlert, error) {
	var body struct {
		Alerts []models.CookTimeAlert `json:"alerts"`
	}
	if err := c.getJSON(ctx, "/kitchen/alerts/cook-time", &body); err != nil {
		return nil, err
	}
	return body.Alerts, nil
}

// List86 retrieves the unavailable-item list.
func (c *Client) List86(ctx context.Context) ([]models.UnavailableItem, error) {
	var items []models.UnavailableItem
	if err := c.getJSON(ctx, "/kitchen/86/list", &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Mark86 marks a menu item unavailable.
func (c *Client) Mark86(ctx context.Context, itemID, reason string) error {
	return c.post(ctx, "/kitchen/86", map[string]string{
		"item_id": itemID,
		"reason":  reason,
	})
}

// Unmark86 returns a menu item to availability.
func (c *Client) Unmark86(ctx context.Context, itemID string) error {
	resp, err := c.do(ctx, http.MethodDelete, "/kitchen/86/"+url.PathEscape(itemID), nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// StartTicket moves a ticket to in_progress.
func (c *Client) StartTicket(ctx context.Context, ticketID string) error {
	return c.post(ctx, "/kitchen/tickets/"+url.PathEscape(ticketID)+"/start", nil)
}

// BumpTicket marks a ticket's preparation complete.
func (c *Client) BumpTicket(ctx context.Context, ticketID string) error {
	return c.post(ctx, "/kitchen/tickets/"+url.PathEscape(ticketID)+"/bump", nil)
}

// RecallTicket reopens a bumped ticket for rework.
func (c *Client) RecallTicket(ctx context.Context, ticketID, reason string) error {
	return c.post(ctx, "/kitchen/tickets/"+url.PathEscape(ticketID)+"/recall", map[string]string{
		"reason": reason,
	})
}

// FireCourse fires every non-voided item of the course on the order.
func (c *Client) FireCourse(ctx context.Context, orderID int, course models.Course) error {
	return c.post(ctx, "/kitchen/fire-course", map[string]any{
		"order_id": orderID,
		"course":   string(course),
	})
}

// VoidItem voids one item on a ticket. The reason travels as a query
// parameter, matching the backend's contract.
func (c *Client) VoidItem(ctx context.Context, ticketID, itemID, reason string) error {
	path := "/kitchen/tickets/" + url.PathEscape(ticketID) + "/void?" + url.Values{
		"item_id": {itemID},
		"reason":  {reason},
	}.Encode()
	return c.post(ctx, path, nil)
}

// SetPriority changes a ticket's priority (1..5).
func (c *Client) SetPriority(ctx context.Context, ticketID string, priority int) error {
	path := "/kitchen/tickets/" + url.PathEscape(ticketID) + "/priority?priority=" + strconv.Itoa(priority)
	return c.post(ctx, path, nil)
}
