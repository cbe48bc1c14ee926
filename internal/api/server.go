// Package api is the display surface of the KDS core: a gin server exposing
// the board projections, the lifecycle actions and a websocket push feed.
package api

import (
	"net/http"

	"brigade/internal/board"
	"brigade/internal/dispatch"
	"brigade/internal/metrics"
	"brigade/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server handles display and action requests.
type Server struct {
	router     *gin.Engine
	board      *board.Board
	dispatcher *dispatch.Dispatcher
	log        *zap.Logger
}

// NewServer wires the routes.
func NewServer(b *board.Board, d *dispatch.Dispatcher, m *metrics.Metrics, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		router:     gin.New(),
		board:      b,
		dispatcher: d,
		log:        log,
	}
	s.router.Use(gin.Recovery())
	s.setupRoutes(m)
	return s
}

// Router returns the gin router.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes(m *metrics.Metrics) {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if m != nil {
		s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))
	}
	s.router.GET("/ws", s.handleWebSocket)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/board", s.handleBoard)
		v1.GET("/expo", s.handleExpo)
		v1.GET("/allday", s.handleAllDay)
		v1.GET("/history", s.handleHistory)
		v1.GET("/alerts", s.handleAlerts)
		v1.GET("/86", s.handle86List)

		v1.POST("/refresh", s.handleRefresh)

		v1.POST("/tickets/:id/start", s.handleStart)
		v1.POST("/tickets/:id/bump", s.handleBump)
		v1.POST("/tickets/:id/recall", s.handleRecall)
		v1.POST("/tickets/:id/rebump", s.handleRebump)
		v1.POST("/tickets/:id/priority", s.handlePriority)
		v1.POST("/tickets/:id/fire", s.handleFire)
		v1.POST("/tickets/:id/items/:itemID/void", s.handleVoid)

		v1.POST("/86", s.handleMark86)
		v1.DELETE("/86/:itemID", s.handleUnmark86)
	}
}

// Display handlers

func (s *Server) handleBoard(c *gin.Context) {
	c.JSON(http.StatusOK, s.board.Compose(c.Query("station")))
}

func (s *Server) handleExpo(c *gin.Context) {
	state := s.board.Compose("")
	c.JSON(http.StatusOK, gin.H{"ready_orders": state.Expo})
}

func (s *Server) handleAllDay(c *gin.Context) {
	state := s.board.Compose("")
	c.JSON(http.StatusOK, gin.H{"items": state.AllDay})
}

func (s *Server) handleHistory(c *gin.Context) {
	state := s.board.Compose("")
	c.JSON(http.StatusOK, gin.H{"tickets": state.History})
}

func (s *Server) handleAlerts(c *gin.Context) {
	state := s.board.Compose("")
	c.JSON(http.StatusOK, gin.H{
		"alerts":           state.Alerts,
		"banner_visible":   state.BannerVisible,
		"banner_items":     state.BannerItems,
		"cook_time_alerts": state.CookAlerts,
	})
}

func (s *Server) handle86List(c *gin.Context) {
	state := s.board.Compose("")
	c.JSON(http.StatusOK, gin.H{"items": state.Items86})
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.board.ForceRefresh(c.Request.Context())
	c.JSON(http.StatusAccepted, gin.H{"message": "refresh scheduled"})
}

// Action handlers

func (s *Server) actionResult(c *gin.Context, result dispatch.Result, err error) {
	if err != nil {
		status := http.StatusBadGateway
		body := gin.H{"error": err.Error()}
		if result.AppliedLocally {
			body["applied_locally"] = true
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (s *Server) handleStart(c *gin.Context) {
	err := s.dispatcher.Start(c.Request.Context(), c.Param("id"))
	s.actionResult(c, dispatch.Result{}, err)
}

func (s *Server) handleBump(c *gin.Context) {
	err := s.dispatcher.Bump(c.Request.Context(), c.Param("id"))
	s.actionResult(c, dispatch.Result{}, err)
}

func (s *Server) handleRecall(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}
	err := s.dispatcher.Recall(c.Request.Context(), c.Param("id"), req.Reason)
	s.actionResult(c, dispatch.Result{}, err)
}

func (s *Server) handleRebump(c *gin.Context) {
	err := s.dispatcher.Rebump(c.Request.Context(), c.Param("id"))
	s.actionResult(c, dispatch.Result{}, err)
}

func (s *Server) handlePriority(c *gin.Context) {
	var req struct {
		Priority int `json:"priority"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !models.ValidPriority(req.Priority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be 1..5"})
		return
	}
	err := s.dispatcher.SetPriority(c.Request.Context(), c.Param("id"), req.Priority)
	s.actionResult(c, dispatch.Result{}, err)
}

func (s *Server) handleFire(c *gin.Context) {
	var req struct {
		Course string `json:"course"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Course == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "course is required"})
		return
	}
	err := s.dispatcher.FireCourse(c.Request.Context(), c.Param("id"), models.Course(req.Course))
	s.actionResult(c, dispatch.Result{}, err)
}

func (s *Server) handleVoid(c *gin.Context) {
	reason := c.Query("reason")
	if reason == "" {
		var req struct {
			Reason string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&req); err == nil {
			reason = req.Reason
		}
	}
	if reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}
	result, err := s.dispatcher.VoidItem(c.Request.Context(), c.Param("id"), c.Param("itemID"), reason)
	s.actionResult(c, result, err)
}

func (s *Server) handleMark86(c *gin.Context) {
	var req struct {
		ItemID string `json:"item_id"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ItemID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "item_id is required"})
		return
	}
	err := s.dispatcher.Mark86(c.Request.Context(), req.ItemID, req.Reason)
	s.actionResult(c, dispatch.Result{}, err)
}

func (s *Server) handleUnmark86(c *gin.Context) {
	result, err := s.dispatcher.Unmark86(c.Request.Context(), c.Param("itemID"))
	s.actionResult(c, result, err)
}
