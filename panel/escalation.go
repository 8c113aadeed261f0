package panel

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/emrahtokalak/supportflow/backend"
	"github.com/emrahtokalak/supportflow/metrics"
	"github.com/emrahtokalak/supportflow/models"
	"github.com/emrahtokalak/supportflow/session"
)

const escalationConfirmation = "This conversation has been flagged for a human agent. One of our representatives will contact you shortly."

type EscalationBackend interface {
	Escalate(ctx context.Context, req models.EscalateRequest) (*models.EscalateResponse, error)
}

// Escalation owns the "hand over to a human" affordance. It is armed by a reply that
// requires a human and retracted once the backend acknowledges the handoff.
type Escalation struct {
	backend EscalationBackend
	session *session.State
	out     *emitter
	metrics *metrics.Recorder
	agentID string
	log     zerolog.Logger

	mu         sync.Mutex
	available  bool
	reason     string
	escalating bool
}

func (e *Escalation) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.available
}

// Reason is the backend's reason from the reply that armed the affordance.
func (e *Escalation) Reason() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reason
}

func (e *Escalation) Arm(ctx context.Context, reason string) {
	e.mu.Lock()
	e.available = true
	e.reason = reason
	e.mu.Unlock()

	e.out.emit(ctx, models.Event{Type: models.EventEscalation, Available: models.Bool(true), Text: reason})
	e.out.notice(ctx, fmt.Sprintf("This conversation may need a human agent. Reason: %s", reason))
}

func (e *Escalation) Retract(ctx context.Context) {
	e.mu.Lock()
	was := e.available
	e.available = false
	e.reason = ""
	e.mu.Unlock()

	if was {
		e.out.emit(ctx, models.Event{Type: models.EventEscalation, Available: models.Bool(false)})
	}
}

// Escalate asks the backend to hand the active session to a human.
func (e *Escalation) Escalate(ctx context.Context, reason string) error {
	reason = strings.TrimSpace(reason)
	sessionID := e.session.ID()
	if sessionID == "" {
		return e.out.refuse(ctx, "escalate", ErrNoActiveSession, true)
	}
	if reason == "" {
		return e.out.refuse(ctx, "escalate", ErrEmptyReason, true)
	}

	e.mu.Lock()
	switch {
	case e.escalating:
		e.mu.Unlock()
		return e.out.refuse(ctx, "escalate", ErrEscalationInFlight, true)
	case !e.available:
		e.mu.Unlock()
		return e.out.refuse(ctx, "escalate", ErrEscalationUnavailable, true)
	}
	e.escalating = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.escalating = false
		e.mu.Unlock()
	}()

	log := e.log.With().Str("session_id", sessionID).Logger()
	_, err := e.backend.Escalate(ctx, models.EscalateRequest{
		SessionID:    sessionID,
		Reason:       reason,
		HumanAgentID: e.agentID,
	})
	if err != nil {
		e.metrics.IncEscalation("failed")
		log.Warn().Err(err).Msg("Escalation failed")
		e.out.notice(ctx, fmt.Sprintf("Escalation failed: %s", backend.Detail(err)))
		return err
	}

	e.metrics.IncEscalation("ok")
	log.Info().Str("reason", reason).Msg("Session escalated to a human agent")
	if e.session.ID() != sessionID {
		// the operator started a new session meanwhile; nothing left to confirm on screen
		return nil
	}
	e.out.message(ctx, models.SenderBot, escalationConfirmation, models.MessageMeta{IsEscalation: true})
	e.Retract(ctx)
	return nil
}
