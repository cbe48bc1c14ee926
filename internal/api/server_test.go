package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"brigade/internal/board"
	"brigade/internal/config"
	"brigade/internal/dispatch"
	"brigade/internal/metrics"
	"brigade/internal/models"
	"brigade/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

type stubFetcher struct {
	tickets []models.Ticket
	items86 []models.UnavailableItem
}

func (f *stubFetcher) ListStations(ctx context.Context) ([]models.Station, error) { return nil, nil }
func (f *stubFetcher) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	return f.tickets, nil
}
func (f *stubFetcher) ListExpo(ctx context.Context) ([]models.Ticket, error) { return nil, nil }
func (f *stubFetcher) GetStats(ctx context.Context) (*models.KitchenStats, error) {
	return &models.KitchenStats{}, nil
}
func (f *stubFetcher) ListCookTimeAlerts(ctx context.Context) ([]models.CookTimeAlert, error) {
	return nil, nil
}
func (f *stubFetcher) List86(ctx context.Context) ([]models.UnavailableItem, error) {
	return f.items86, nil
}

type stubActions struct {
	failOn map[string]bool
	calls  []string
}

func (f *stubActions) call(name string) error {
	f.calls = append(f.calls, name)
	if f.failOn[name] {
		return fmt.Errorf("%s: unexpected status 500", name)
	}
	return nil
}

func (f *stubActions) StartTicket(ctx context.Context, id string) error { return f.call("start") }
func (f *stubActions) BumpTicket(ctx context.Context, id string) error  { return f.call("bump") }
func (f *stubActions) RecallTicket(ctx context.Context, id, reason string) error {
	return f.call("recall")
}
func (f *stubActions) FireCourse(ctx context.Context, orderID int, course models.Course) error {
	return f.call("fire")
}
func (f *stubActions) VoidItem(ctx context.Context, ticketID, itemID, reason string) error {
	return f.call("void")
}
func (f *stubActions) SetPriority(ctx context.Context, ticketID string, priority int) error {
	return f.call("priority")
}
func (f *stubActions) Mark86(ctx context.Context, itemID, reason string) error {
	return f.call("mark86")
}
func (f *stubActions) Unmark86(ctx context.Context, itemID string) error {
	return f.call("unmark86")
}

func newTestServer(t *testing.T, actions *stubActions) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rush := models.Ticket{
		TicketID: "t-rush", OrderID: 2, StationID: "grill",
		OrderType: models.OrderTypeDineIn, Status: models.StatusNew,
		Priority: 5, CreatedAt: baseTime.Add(-2 * time.Minute),
		Items: []models.OrderItem{{ID: "i-1", Name: "Steak", Quantity: 1}},
	}
	slow := models.Ticket{
		TicketID: "t-slow", OrderID: 1, StationID: "grill",
		OrderType: models.OrderTypeDineIn, Status: models.StatusNew,
		Priority: 1, CreatedAt: baseTime.Add(-10 * time.Minute),
		Items: []models.OrderItem{{ID: "i-2", Name: "Soup", Quantity: 2}},
	}

	st := store.NewStore(&stubFetcher{
		tickets: []models.Ticket{rush, slow},
		items86: []models.UnavailableItem{{ID: "m-1", Name: "Oysters"}},
	}, nil)
	_, err := st.Refresh(context.Background())
	require.NoError(t, err)

	b := board.NewBoard(config.Default(), st, metrics.New(), nil)
	b.SetClock(func() time.Time { return baseTime })
	d := dispatch.NewDispatcher(actions, st, b.ForceRefresh, nil, nil)
	b.AttachDispatcher(d)

	return NewServer(b, d, metrics.New(), nil)
}

func request(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, &stubActions{})
	w := request(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleBoard(t *testing.T) {
	s := newTestServer(t, &stubActions{})
	w := request(t, s, http.MethodGet, "/api/v1/board", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var state struct {
		Tickets []struct {
			TicketID    string `json:"ticket_id"`
			WaitMinutes int    `json:"wait_time_minutes"`
		} `json:"tickets"`
		BannerVisible bool     `json:"banner_visible"`
		BannerItems   []string `json:"banner_items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	require.Len(t, state.Tickets, 2)
	assert.Equal(t, "t-rush", state.Tickets[0].TicketID)
	assert.Equal(t, 2, state.Tickets[0].WaitMinutes)
	assert.True(t, state.BannerVisible)
	assert.Equal(t, []string{"Oysters"}, state.BannerItems)
}

func TestHandleBoardStationFilter(t *testing.T) {
	s := newTestServer(t, &stubActions{})
	w := request(t, s, http.MethodGet, "/api/v1/board?station=fry", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var state struct {
		Tickets []json.RawMessage `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Empty(t, state.Tickets)
}

func TestHandleAllDay(t *testing.T) {
	s := newTestServer(t, &stubActions{})
	w := request(t, s, http.MethodGet, "/api/v1/allday", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []struct {
			Name    string `json:"name"`
			Total   int    `json:"total"`
			Pending int    `json:"pending"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Soup", resp.Items[0].Name)
	assert.Equal(t, 2, resp.Items[0].Total)
}

func TestHandleStart(t *testing.T) {
	actions := &stubActions{}
	s := newTestServer(t, actions)
	w := request(t, s, http.MethodPost, "/api/v1/tickets/t-rush/start", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"start"}, actions.calls)
}

func TestHandleRecallRequiresReason(t *testing.T) {
	actions := &stubActions{}
	s := newTestServer(t, actions)
	w := request(t, s, http.MethodPost, "/api/v1/tickets/t-rush/recall", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, actions.calls)
}

func TestHandleVoidWithoutReason(t *testing.T) {
	s := newTestServer(t, &stubActions{})
	w := request(t, s, http.MethodPost, "/api/v1/tickets/t-rush/items/i-1/void", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleVoidFallbackReported(t *testing.T) {
	actions := &stubActions{failOn: map[string]bool{"void": true}}
	s := newTestServer(t, actions)
	w := request(t, s, http.MethodPost, "/api/v1/tickets/t-rush/items/i-1/void?reason=dropped", nil)
	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["applied_locally"])
}

func TestHandleMark86Validation(t *testing.T) {
	actions := &stubActions{}
	s := newTestServer(t, actions)

	w := request(t, s, http.MethodPost, "/api/v1/86", map[string]string{"reason": "out of stock"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(t, s, http.MethodPost, "/api/v1/86", map[string]string{"item_id": "m-2", "reason": "out of stock"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"mark86"}, actions.calls)
}

func TestHandlePriorityValidation(t *testing.T) {
	s := newTestServer(t, &stubActions{})
	w := request(t, s, http.MethodPost, "/api/v1/tickets/t-rush/priority", map[string]int{"priority": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRefresh(t *testing.T) {
	s := newTestServer(t, &stubActions{})
	w := request(t, s, http.MethodPost, "/api/v1/refresh", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
}
