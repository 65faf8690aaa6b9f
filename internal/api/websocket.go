package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/serial-plotter/backend/internal/ingest"
	"github.com/serial-plotter/backend/internal/models"
	"golang.org/x/sync/errgroup"
)

// WebSocket message types for the live session protocol
const (
	// Client -> Server messages
	MsgTypeData  = "data"
	MsgTypeReset = "reset"
	MsgTypePing  = "ping"

	// Server -> Client messages
	MsgTypeSnapshot = "snapshot"
	MsgTypeAck      = "ack"
	MsgTypePong     = "pong"
	MsgTypeError    = "error"
)

// WSInbound is a client message. Text carries raw serial data for "data";
// only newline terminated lines are ingested.
type WSInbound struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// WSOutbound is a server message.
type WSOutbound struct {
	Type      string                 `json:"type"`
	Timestamp int64                  `json:"timestamp"`
	Snapshot  *models.SeriesSnapshot `json:"snapshot,omitempty"`
	Lines     int                    `json:"lines,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Code      string                 `json:"code,omitempty"`
}

var errClientGone = errors.New("client disconnected")

// WebSocketHandler streams throttled session snapshots and accepts raw data
type WebSocketHandler struct {
	sessions       SessionManager
	upgrader       websocket.Upgrader
	interval       time.Duration
	tail           int
	maxMessageSize int64
}

// NewWebSocketHandler creates a live session handler. Snapshots are pushed
// at most once per interval and carry the last tail samples of each series.
func NewWebSocketHandler(sessions SessionManager, interval time.Duration, tail int, maxMessageSize int64) *WebSocketHandler {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &WebSocketHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		interval:       interval,
		tail:           tail,
		maxMessageSize: maxMessageSize,
	}
}

// HandleSessionSocket upgrades the connection and runs the reader and the
// snapshot writer until either side fails.
func (wsh *WebSocketHandler) HandleSessionSocket(c echo.Context) error {
	id := c.Param("id")
	if _, err := wsh.sessions.Get(id); err != nil {
		return fromDomainError(err, id)
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	if wsh.maxMessageSize > 0 {
		ws.SetReadLimit(wsh.maxMessageSize)
	}

	fmt.Printf("[WebSocket %s] Client connected\n", shortID(id))

	out := make(chan WSOutbound, 16)
	g, ctx := errgroup.WithContext(c.Request().Context())

	g.Go(func() error {
		return wsh.readLoop(ctx, ws, id, out)
	})
	g.Go(func() error {
		return wsh.writeLoop(ctx, ws, id, out)
	})
	g.Go(func() error {
		<-ctx.Done()
		ws.Close()
		return nil
	})

	// The connection is hijacked; errors can only be logged.
	if err := g.Wait(); err != nil && !errors.Is(err, errClientGone) {
		fmt.Printf("[WebSocket %s] Closed: %v\n", shortID(id), err)
	}
	fmt.Printf("[WebSocket %s] Client disconnected\n", shortID(id))
	return nil
}

// readLoop feeds data messages as a byte stream: a message may end
// mid-line, and the tail waits for the next message. Whatever is still held
// when the client goes away is fed as a last line.
func (wsh *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, id string, out chan<- WSOutbound) error {
	var lines ingest.LineAssembler
	for {
		var msg WSInbound
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				fmt.Printf("[WebSocket %s] Connection error: %v\n", shortID(id), err)
			}
			if tail, ok := lines.Flush(); ok {
				wsh.sessions.Feed(id, tail)
			}
			return errClientGone
		}

		var reply WSOutbound
		switch msg.Type {
		case MsgTypeData:
			n, err := wsh.feed(id, lines.Push(msg.Text))
			if err != nil {
				reply = WSOutbound{Type: MsgTypeError, Message: err.Error(), Code: "FEED_FAILED"}
			} else {
				reply = WSOutbound{Type: MsgTypeAck, Lines: n}
			}
		case MsgTypeReset:
			lines.Discard()
			if err := wsh.sessions.Reset(id); err != nil {
				reply = WSOutbound{Type: MsgTypeError, Message: err.Error(), Code: "RESET_FAILED"}
			} else {
				reply = WSOutbound{Type: MsgTypeAck}
			}
		case MsgTypePing:
			wsh.sessions.Touch(id)
			reply = WSOutbound{Type: MsgTypePong}
		default:
			reply = WSOutbound{Type: MsgTypeError, Message: "Unknown message type: " + msg.Type, Code: "INVALID_TYPE"}
		}

		reply.Timestamp = time.Now().UnixMilli()
		select {
		case out <- reply:
		case <-ctx.Done():
			return nil
		}
	}
}

func (wsh *WebSocketHandler) feed(id string, lines []string) (int, error) {
	if len(lines) == 0 {
		// keeps an unknown session an error even when nothing completed
		_, err := wsh.sessions.Get(id)
		return 0, err
	}
	return wsh.sessions.Feed(id, strings.Join(lines, "\n")+"\n")
}

func (wsh *WebSocketHandler) writeLoop(ctx context.Context, ws *websocket.Conn, id string, out <-chan WSOutbound) error {
	ticker := time.NewTicker(wsh.interval)
	defer ticker.Stop()

	var (
		sent     bool
		lastLine int64
		lastSize int
		lastVars []models.Variable
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-out:
			if err := ws.WriteJSON(msg); err != nil {
				return errClientGone
			}
		case <-ticker.C:
			snap, err := wsh.sessions.Snapshot(id, wsh.tail)
			if err != nil {
				ws.WriteJSON(WSOutbound{Type: MsgTypeError, Timestamp: time.Now().UnixMilli(), Message: err.Error(), Code: "SESSION_GONE"})
				return err
			}
			if sent && snap.LineCount == lastLine && snap.ByteSize == lastSize && slices.Equal(snap.Variables, lastVars) {
				continue
			}
			if err := ws.WriteJSON(WSOutbound{Type: MsgTypeSnapshot, Timestamp: time.Now().UnixMilli(), Snapshot: &snap}); err != nil {
				return errClientGone
			}
			sent, lastLine, lastSize, lastVars = true, snap.LineCount, snap.ByteSize, snap.Variables
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
