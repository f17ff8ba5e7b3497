package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"sla-tracker/internal/util"
)

// StreamEvent is the websocket payload pushed while an SLA is watched.
type StreamEvent struct {
	Type      string    `json:"type"`
	SLA       *SLADTO   `json:"sla,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	eventSnapshot  = "snapshot"
	eventCompleted = "completed"
	eventError     = "error"
)

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}

func (c *wsClient) closeWith(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = c.conn.Close()
	c.conn = nil
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if len(s.allowedOrigins) == 0 || origin == "" {
				return true
			}
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}
}

// handleStream pushes the SLA snapshot once per interval until the client
// leaves or the SLA is completed.
func (s *Server) handleStream(c *gin.Context) {
	id := c.Param("id")
	snap, err := s.tracker.Get(id)
	if err != nil {
		s.renderTrackerError(c, err)
		return
	}

	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}
	client := &wsClient{conn: conn}
	timer := util.StartTimer()
	log := logrus.WithFields(logrus.Fields{"sla_id": id, "remote": conn.RemoteAddr().String()})
	log.Info("sla stream connected")

	left := make(chan struct{})
	go func() {
		defer close(left)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.WithError(err).Warn("sla stream unexpected close")
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()
	loc := s.tracker.Calendar().Location()
	for {
		dto := FromSnapshot(snap, loc)
		event := StreamEvent{Type: eventSnapshot, SLA: &dto, Timestamp: time.Now().UTC()}
		if snap.SLA.Completed() {
			event.Type = eventCompleted
		}
		if err := client.writeJSON(event); err != nil {
			log.WithError(err).Debug("sla stream write failed")
			client.closeWith(websocket.CloseGoingAway, "")
			return
		}
		if snap.SLA.Completed() {
			client.closeWith(websocket.CloseNormalClosure, eventCompleted)
			log.WithField("duration_ms", timer.ElapsedMs()).Info("sla stream finished")
			return
		}

		select {
		case <-left:
			client.closeWith(websocket.CloseNormalClosure, "")
			log.WithField("duration_ms", timer.ElapsedMs()).Info("sla stream closed")
			return
		case <-ticker.C:
		}

		snap, err = s.tracker.Get(id)
		if err != nil {
			_ = client.writeJSON(StreamEvent{Type: eventError, Message: err.Error(), Timestamp: time.Now().UTC()})
			client.closeWith(websocket.CloseNormalClosure, eventError)
			return
		}
	}
}
