package api

import (
	"encoding/json"
	"net/http"
	"time"

	"brigade/internal/board"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Displays connect from kiosk hosts on the kitchen LAN
	},
}

// wsConnection pipes board events to one display.
type wsConnection struct {
	conn   *websocket.Conn
	events chan board.Event
	log    *zap.Logger
}

// handleWebSocket upgrades the connection and streams board events. The
// current board goes out immediately so a reconnecting display is never
// blank while waiting for the next refresh.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	ws := &wsConnection{
		conn:   conn,
		events: s.board.Subscribe(),
		log:    s.log,
	}

	initial := board.Event{Type: board.EventBoard, Board: s.board.Compose(c.Query("station"))}
	if err := ws.write(initial); err != nil {
		s.board.Unsubscribe(ws.events)
		conn.Close()
		return
	}

	go ws.writePump(func() { s.board.Unsubscribe(ws.events) })
	go ws.readPump()
}

func (ws *wsConnection) write(ev board.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ws.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return ws.conn.WriteMessage(websocket.TextMessage, data)
}

// writePump pushes board events and keepalive pings until the subscription
// closes or a write fails.
func (ws *wsConnection) writePump(unsubscribe func()) {
	ping := time.NewTicker(30 * time.Second)
	defer func() {
		ping.Stop()
		unsubscribe()
		ws.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-ws.events:
			if !ok {
				ws.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				ws.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.write(ev); err != nil {
				return
			}
		case <-ping.C:
			ws.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := ws.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so pongs and closes are processed.
func (ws *wsConnection) readPump() {
	ws.conn.SetReadLimit(4 * 1024)
	ws.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	ws.conn.SetPongHandler(func(string) error {
		ws.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := ws.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				ws.log.Debug("websocket closed", zap.Error(err))
			}
			ws.conn.Close()
			return
		}
	}
}
