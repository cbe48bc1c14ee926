package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

// KitchenServer serves the REST surface the KDS core polls.
type KitchenServer struct {
	Router *gin.Engine
	DB     *gorm.DB
	Auth   *AuthConfig
}

// NewKitchenServer wires routes and middleware.
func NewKitchenServer(db *gorm.DB, auth *AuthConfig) *KitchenServer {
	router := gin.Default()
	s := &KitchenServer{Router: router, DB: db, Auth: auth}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/auth/token", s.Auth.IssueToken)

	kitchen := router.Group("/kitchen")
	kitchen.Use(s.Auth.Middleware())
	{
		kitchen.GET("/stations", s.ListStations)
		kitchen.GET("/tickets", s.ListTickets)
		kitchen.GET("/expo", s.ListExpo)
		kitchen.GET("/stats", s.GetStats)
		kitchen.GET("/alerts/cook-time", s.ListCookTimeAlerts)

		kitchen.GET("/86/list", s.List86)
		kitchen.POST("/86", s.Mark86)
		kitchen.DELETE("/86/:itemId", s.Unmark86)

		kitchen.POST("/tickets/:id/start", s.StartTicket)
		kitchen.POST("/tickets/:id/bump", s.BumpTicket)
		kitchen.POST("/tickets/:id/recall", s.RecallTicket)
		kitchen.POST("/tickets/:id/void", s.VoidItem)
		kitchen.POST("/tickets/:id/priority", s.SetPriority)
		kitchen.POST("/fire-course", s.FireCourse)
	}

	return s
}

// JSON shapes

func itemJSON(item ItemRecord) gin.H {
	return gin.H{
		"id":        item.ItemID,
		"name":      item.Name,
		"quantity":  item.Quantity,
		"seat":      item.Seat,
		"course":    item.Course,
		"modifiers": splitList(item.Modifiers),
		"notes":     item.Notes,
		"allergens": splitList(item.Allergens),
		"is_voided": item.IsVoided,
		"is_fired":  item.IsFired,
	}
}

func ticketJSON(ticket TicketRecord) gin.H {
	items := make([]gin.H, 0, len(ticket.Items))
	for _, item := range ticket.Items {
		items = append(items, itemJSON(item))
	}
	body := gin.H{
		"ticket_id":    ticket.TicketID,
		"order_id":     ticket.OrderID,
		"station_id":   ticket.StationID,
		"table_number": ticket.TableNumber,
		"server_name":  ticket.ServerName,
		"guest_count":  ticket.GuestCount,
		"order_type":   ticket.OrderType,
		"split_check":  ticket.SplitCheck,
		"status":       ticket.Status,
		"priority":     ticket.Priority,
		"is_vip":       ticket.IsVIP,
		"created_at":   ticket.ReceivedAt,
		"items":        items,
	}
	if ticket.StartedAt != nil {
		body["started_at"] = ticket.StartedAt
	}
	if ticket.BumpedAt != nil {
		body["bumped_at"] = ticket.BumpedAt
	}
	return body
}

func (s *KitchenServer) activeCountByStation() map[string]int {
	var tickets []TicketRecord
	s.DB.Where("status <> ?", "bumped").Find(&tickets)
	counts := make(map[string]int)
	for _, ticket := range tickets {
		counts[ticket.StationID]++
	}
	return counts
}

// Read handlers

func (s *KitchenServer) ListStations(c *gin.Context) {
	var stations []StationRecord
	s.DB.Find(&stations)
	loads := s.activeCountByStation()

	out := make([]gin.H, 0, len(stations))
	for _, station := range stations {
		out = append(out, gin.H{
			"station_id":    station.StationID,
			"name":          station.Name,
			"type":          station.Type,
			"current_load":  loads[station.StationID],
			"max_capacity":  station.MaxCapacity,
			"avg_cook_time": station.AvgCookTime,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *KitchenServer) ListTickets(c *gin.Context) {
	var tickets []TicketRecord
	s.DB.Preload("Items").Order("received_at").Find(&tickets)

	out := make([]gin.H, 0, len(tickets))
	for _, ticket := range tickets {
		out = append(out, ticketJSON(ticket))
	}
	c.JSON(http.StatusOK, out)
}

func (s *KitchenServer) ListExpo(c *gin.Context) {
	var tickets []TicketRecord
	s.DB.Preload("Items").Where("status IN (?)", []string{"ready", "bumped"}).
		Order("bumped_at desc").Find(&tickets)

	out := make([]gin.H, 0, len(tickets))
	for _, ticket := range tickets {
		out = append(out, ticketJSON(ticket))
	}
	c.JSON(http.StatusOK, gin.H{"ready_orders": out})
}

func (s *KitchenServer) GetStats(c *gin.Context) {
	counts := map[string]int{}
	var tickets []TicketRecord
	s.DB.Find(&tickets)
	for _, ticket := range tickets {
		counts[ticket.Status]++
	}
	c.JSON(http.StatusOK, gin.H{
		"open_tickets":        counts["new"] + counts["recalled"],
		"in_progress_tickets": counts["in_progress"],
		"ready_tickets":       counts["ready"],
		"bumped_today":        counts["bumped"],
		"avg_ticket_minutes":  s.avgTicketMinutes(tickets),
	})
}

func (s *KitchenServer) avgTicketMinutes(tickets []TicketRecord) float64 {
	var total float64
	var n int
	for _, ticket := range tickets {
		if ticket.BumpedAt != nil {
			total += ticket.BumpedAt.Sub(ticket.ReceivedAt).Minutes()
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// cookTimeThreshold is the stub's per-ticket overdue line, in minutes.
const cookTimeThreshold = 15

func (s *KitchenServer) ListCookTimeAlerts(c *gin.Context) {
	var tickets []TicketRecord
	s.DB.Preload("Items").Where("status <> ?", "bumped").Find(&tickets)

	alerts := make([]gin.H, 0)
	now := time.Now()
	for _, ticket := range tickets {
		waited := now.Sub(ticket.ReceivedAt).Minutes()
		if waited < cookTimeThreshold {
			continue
		}
		for _, item := range ticket.Items {
			if item.IsVoided {
				continue
			}
			alerts = append(alerts, gin.H{
				"ticket_id":    ticket.TicketID,
				"order_id":     ticket.OrderID,
				"item_name":    item.Name,
				"minutes_over": waited - cookTimeThreshold,
				"threshold":    cookTimeThreshold,
			})
		}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}

func (s *KitchenServer) List86(c *gin.Context) {
	var records []UnavailableRecord
	s.DB.Find(&records)

	out := make([]gin.H, 0, len(records))
	for _, record := range records {
		entry := gin.H{
			"id":        record.ItemID,
			"name":      record.Name,
			"marked_at": record.MarkedAt,
		}
		if record.EstimatedReturn != nil {
			entry["estimated_return"] = record.EstimatedReturn
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, out)
}

// Mutation handlers

func (s *KitchenServer) findTicket(c *gin.Context) (*TicketRecord, bool) {
	var ticket TicketRecord
	if s.DB.Preload("Items").Where("ticket_id = ?", c.Param("id")).First(&ticket).RecordNotFound() {
		c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		return nil, false
	}
	return &ticket, true
}

func (s *KitchenServer) StartTicket(c *gin.Context) {
	ticket, ok := s.findTicket(c)
	if !ok {
		return
	}
	if ticket.Status != "new" {
		c.JSON(http.StatusConflict, gin.H{"error": "ticket is not new"})
		return
	}
	now := time.Now()
	ticket.Status = "in_progress"
	ticket.StartedAt = &now
	s.DB.Save(ticket)
	c.JSON(http.StatusOK, gin.H{"message": "ticket started"})
}

func (s *KitchenServer) BumpTicket(c *gin.Context) {
	ticket, ok := s.findTicket(c)
	if !ok {
		return
	}
	if ticket.Status == "bumped" {
		c.JSON(http.StatusConflict, gin.H{"error": "ticket already bumped"})
		return
	}
	now := time.Now()
	ticket.Status = "bumped"
	ticket.BumpedAt = &now
	s.DB.Save(ticket)
	c.JSON(http.StatusOK, gin.H{"message": "ticket bumped"})
}

func (s *KitchenServer) RecallTicket(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}
	ticket, ok := s.findTicket(c)
	if !ok {
		return
	}
	if ticket.Status != "bumped" {
		c.JSON(http.StatusConflict, gin.H{"error": "only bumped tickets can be recalled"})
		return
	}
	ticket.Status = "recalled"
	ticket.BumpedAt = nil
	s.DB.Save(ticket)
	c.JSON(http.StatusOK, gin.H{"message": "ticket recalled"})
}

func (s *KitchenServer) VoidItem(c *gin.Context) {
	reason := c.Query("reason")
	if reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}
	ticket, ok := s.findTicket(c)
	if !ok {
		return
	}
	itemID := c.Query("item_id")
	for i := range ticket.Items {
		if ticket.Items[i].ItemID == itemID {
			ticket.Items[i].IsVoided = true
			ticket.Items[i].VoidReason = reason
			s.DB.Save(&ticket.Items[i])
			c.JSON(http.StatusOK, gin.H{"message": "item voided"})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
}

func (s *KitchenServer) SetPriority(c *gin.Context) {
	priority, err := strconv.Atoi(c.Query("priority"))
	if err != nil || priority < 1 || priority > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be 1..5"})
		return
	}
	ticket, ok := s.findTicket(c)
	if !ok {
		return
	}
	ticket.Priority = priority
	s.DB.Save(ticket)
	c.JSON(http.StatusOK, gin.H{"message": "priority updated"})
}

func (s *KitchenServer) FireCourse(c *gin.Context) {
	var req struct {
		OrderID int    `json:"order_id"`
		Course  string `json:"course"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Course == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id and course are required"})
		return
	}

	var tickets []TicketRecord
	s.DB.Preload("Items").Where("order_id = ?", req.OrderID).Find(&tickets)
	if len(tickets) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	fired := 0
	for _, ticket := range tickets {
		for i := range ticket.Items {
			item := &ticket.Items[i]
			if item.Course == req.Course && !item.IsVoided && !item.IsFired {
				item.IsFired = true
				s.DB.Save(item)
				fired++
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "course fired", "items_fired": fired})
}

func (s *KitchenServer) Mark86(c *gin.Context) {
	var req struct {
		ItemID string `json:"item_id"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ItemID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id is required"})
		return
	}

	record := UnavailableRecord{
		ItemID:   req.ItemID,
		Name:     req.ItemID,
		Reason:   req.Reason,
		MarkedAt: time.Now(),
	}
	// Look up a friendlier name from any known item line.
	var item ItemRecord
	if !s.DB.Where("item_id = ?", req.ItemID).First(&item).RecordNotFound() {
		record.Name = item.Name
	}

	var existing UnavailableRecord
	if !s.DB.Where("item_id = ?", req.ItemID).First(&existing).RecordNotFound() {
		c.JSON(http.StatusConflict, gin.H{"error": "item already 86'd"})
		return
	}
	s.DB.Create(&record)
	c.JSON(http.StatusCreated, gin.H{"message": "item marked unavailable"})
}

func (s *KitchenServer) Unmark86(c *gin.Context) {
	var record UnavailableRecord
	if s.DB.Where("item_id = ?", c.Param("itemId")).First(&record).RecordNotFound() {
		c.JSON(http.StatusNotFound, gin.H{"error": "item is not 86'd"})
		return
	}
	s.DB.Delete(&record)
	c.JSON(http.StatusOK, gin.H{"message": "item available again"})
}
