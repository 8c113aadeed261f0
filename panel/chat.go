package panel

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/emrahtokalak/supportflow/backend"
	"github.com/emrahtokalak/supportflow/intake"
	"github.com/emrahtokalak/supportflow/metrics"
	"github.com/emrahtokalak/supportflow/models"
	"github.com/emrahtokalak/supportflow/session"
)

type ChatBackend interface {
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

// ConnectionGate reports the latest known backend connectivity.
type ConnectionGate interface {
	Connected() bool
}

type ConnectionFunc func() bool

func (f ConnectionFunc) Connected() bool { return f() }

// Chat sends operator messages and turns backend replies into conversation events.
type Chat struct {
	backend    ChatBackend
	session    *session.State
	intake     *intake.Flow
	conn       ConnectionGate
	escalation *Escalation
	out        *emitter
	metrics    *metrics.Recorder
	model      string
	log        zerolog.Logger

	inFlight atomic.Bool
}

func (c *Chat) Busy() bool {
	return c.inFlight.Load()
}

// Send delivers text to the backend within the current session. Customer intake
// data rides along only while no session id has been assigned.
func (c *Chat) Send(ctx context.Context, text string) (*models.Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, c.out.refuse(ctx, "send", ErrEmptyMessage, false)
	}
	if !c.conn.Connected() {
		return nil, c.out.refuse(ctx, "send", ErrDisconnected, false)
	}
	if c.intake.Pending() {
		return nil, c.out.refuse(ctx, "send", ErrIntakePending, false)
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, c.out.refuse(ctx, "send", ErrSendInFlight, false)
	}
	defer func() {
		c.inFlight.Store(false)
		c.out.input(ctx, true)
	}()
	c.out.input(ctx, false)

	sessionID, gen := c.session.Snapshot()
	req := models.ChatRequest{Message: text, Model: c.model}
	if sessionID != "" {
		req.SessionID = &sessionID
	} else {
		req.CustomerInfo = c.intake.Info()
	}

	log := c.log.With().Str("session_id", sessionID).Logger()
	log.Debug().Bool("customer_info", req.CustomerInfo != nil).Msg("Sending message")
	c.out.message(ctx, models.SenderUser, text, models.MessageMeta{})

	resp, err := c.backend.Chat(ctx, req)
	if err != nil {
		log.Warn().Err(err).Bool("transport", backend.IsTransport(err)).Msg("Chat request failed")
		if c.session.Generation() == gen {
			c.out.message(ctx, models.SenderBot,
				fmt.Sprintf("Sorry, an error occurred: %s", backend.Detail(err)),
				models.MessageMeta{IsError: true})
		}
		return nil, err
	}

	turn := resp.Turn()
	adopted, stale := c.session.AdoptAt(gen, turn.SessionID)
	if stale {
		log.Info().Str("reply_session_id", turn.SessionID).Msg("Discarding reply to a request sent before the session was reset")
		return nil, ErrStaleReply
	}
	c.intake.Consume()
	if adopted {
		if sessionID == "" {
			c.metrics.IncSessionStarted()
			log.Info().Str("new_session_id", turn.SessionID).Msg("Session started")
		} else {
			log.Info().Str("new_session_id", turn.SessionID).Msg("Backend switched session")
		}
		c.out.sessionChanged(ctx, turn.SessionID)
	}

	c.out.message(ctx, models.SenderBot, turn.Reply, models.MessageMeta{
		Category:         turn.Category,
		TurnCount:        turn.TurnCount,
		RequiresHuman:    turn.RequiresHuman,
		EscalationReason: turn.EscalationReason,
	})
	if turn.RequiresHuman {
		c.escalation.Arm(ctx, turn.EscalationReason)
	}
	return &turn, nil
}
