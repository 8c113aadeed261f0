package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/emrahtokalak/supportflow/adapters"
	"github.com/emrahtokalak/supportflow/events"
	"github.com/emrahtokalak/supportflow/models"
	"github.com/emrahtokalak/supportflow/panel"
)

const writeTimeout = 10 * time.Second

// Console is the part of the panel a renderer talks to.
type Console interface {
	ConsoleID() string
	State() panel.State
	Transcript(ctx context.Context) ([]models.ChatMessage, error)
	Dispatch(ctx context.Context, cmd panel.Command) error
}

type WSHandler struct {
	console        Console
	events         events.Subscriber
	allowedOrigins map[string]bool
	upgrader       websocket.Upgrader
	log            zerolog.Logger
}

func NewWSHandler(console Console, sub events.Subscriber, allowedOrigins []string, log zerolog.Logger) *WSHandler {
	origins := make(map[string]bool)
	for _, o := range allowedOrigins {
		if o != "" {
			origins[o] = true
		}
	}
	h := &WSHandler{
		console:        console,
		events:         sub,
		allowedOrigins: origins,
		log:            log.With().Str("component", "ws").Logger(),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *WSHandler) checkOrigin(r *http.Request) bool {
	if len(h.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // allow non-browser clients
	}
	return h.allowedOrigins[origin]
}

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) write(ev models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(ev)
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer raw.Close()
	conn := &wsConn{conn: raw}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe before replaying so nothing emitted in between is lost.
	stream, unsubscribe, err := h.events.Subscribe(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to subscribe to panel events")
		return
	}
	defer unsubscribe()

	state := h.console.State()
	if err := conn.write(models.Event{
		ID:        uuid.New().String(),
		Type:      models.EventConnected,
		ConsoleID: state.ConsoleID,
		SessionID: state.SessionID,
		Connected: models.Bool(state.Connected),
		Available: models.Bool(state.EscalationAvailable),
		Phase:     string(state.Phase),
		Time:      time.Now(),
	}); err != nil {
		h.log.Warn().Err(err).Msg("Failed to send connected frame")
		return
	}
	if err := h.replay(ctx, conn); err != nil {
		h.log.Warn().Err(err).Msg("Failed to replay transcript")
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-stream:
				if !ok {
					return
				}
				if err := conn.write(ev); err != nil {
					h.log.Warn().Err(err).Msg("Failed to write to WebSocket")
					cancel()
					return
				}
			}
		}
	}()

	for {
		_, message, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Msg("WebSocket closed unexpectedly")
			}
			return
		}

		in, err := adapters.ParseWebFrame(message)
		if err != nil {
			h.log.Debug().Err(err).Msg("Invalid message format")
			h.writeError(conn, "Invalid message format. Send JSON with a 'type' field.")
			continue
		}
		cmd, err := adapters.NormalizeCommand(in)
		if err != nil {
			h.writeError(conn, err.Error())
			continue
		}

		if err := h.console.Dispatch(ctx, cmd); err != nil {
			// results and failures already reached the renderer as events
			h.log.Debug().Err(err).Str("command", string(cmd.Type)).Msg("Command did not complete")
		}
	}
}

func (h *WSHandler) replay(ctx context.Context, conn *wsConn) error {
	history, err := h.console.Transcript(ctx)
	if err != nil {
		return err
	}
	consoleID := h.console.ConsoleID()
	for i := range history {
		msg := history[i]
		if err := conn.write(models.Event{
			ID:        uuid.New().String(),
			Type:      models.EventMessage,
			ConsoleID: consoleID,
			Message:   &msg,
			Time:      msg.Time,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (h *WSHandler) writeError(conn *wsConn, text string) {
	if err := conn.write(models.Event{
		ID:   uuid.New().String(),
		Type: models.EventError,
		Text: text,
		Time: time.Now(),
	}); err != nil {
		h.log.Warn().Err(err).Msg("Failed to send error frame")
	}
}
