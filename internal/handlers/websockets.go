package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	defaultInterval  = 5 * time.Second
	maxInterval      = 60 * time.Second
	maxIntervalMilli = 60_000
)

// Envelope types sent on the event stream.
const (
	wsTypeStatus = "status"
	wsTypePoll   = "poll"
	wsTypeEvent  = "event"
	wsTypeError  = "error"
)

// Envelope used for WebSocket messages.
type wsEnvelope struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// CORS does not apply to websocket upgrades; the panel token in the query string
// is what authorizes the stream.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary      Session event stream
// @Description  Websocket. Sends the last status and poll state on connect, then every panel event as {"type":"event","data":...} and a poll snapshot every interval.
// @Tags         events
// @Param        token        query  string  true   "Panel token"
// @Param        interval     query  string  false  "Poll snapshot interval (Go duration, max 60s)"
// @Param        interval_ms  query  int     false  "Poll snapshot interval in ms"
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	sid, err := h.services.ParseToken(streamToken(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}
	interval := h.parseInterval(c)

	// Subscribe before the initial snapshot so that nothing in between is lost.
	events, unsubscribe := h.services.Subscribe(sid)
	defer unsubscribe()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	ctx := c.Request.Context()
	if err := h.sendInitial(ctx, conn, sid); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "session_id", sid, "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-ticker.C:
			if err := h.sendPoll(ctx, conn, sid); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "session_id", sid, "err", err)
				}
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEnvelope(conn, wsEnvelope{Type: wsTypeEvent, Data: ev}); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "session_id", sid, "err", err)
				}
				return
			}
		}
	}
}

// streamToken reads ?token= and falls back to a Bearer header.
func streamToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}

// Helper: parseInterval reads ?interval=10s or ?interval_ms=2000 with bounds.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	interval := defaultInterval

	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return interval
}

// Helper: startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

func (h *Handler) sendInitial(ctx context.Context, conn *websocket.Conn, sid string) error {
	snap, err := h.services.LastStatus(ctx, sid)
	if err != nil {
		_ = writeEnvelope(conn, wsEnvelope{Type: wsTypeError, Error: "failed to load status"})
		return err
	}
	if err := writeEnvelope(conn, wsEnvelope{Type: wsTypeStatus, Data: snap}); err != nil {
		return err
	}
	return h.sendPoll(ctx, conn, sid)
}

func (h *Handler) sendPoll(ctx context.Context, conn *websocket.Conn, sid string) error {
	ps, err := h.services.PollState(ctx, sid)
	if err != nil {
		_ = writeEnvelope(conn, wsEnvelope{Type: wsTypeError, Error: "session closed"})
		return err
	}
	return writeEnvelope(conn, wsEnvelope{Type: wsTypePoll, Data: ps})
}

func writeEnvelope(conn *websocket.Conn, env wsEnvelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(env)
}
