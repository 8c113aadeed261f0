package panel

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/emrahtokalak/supportflow/models"
	"github.com/emrahtokalak/supportflow/session"
)

type StatusBackend interface {
	SessionStatus(ctx context.Context, sessionID string) (*models.SessionSnapshot, error)
}

// Inspector fetches a fresh snapshot of the active session on every call.
type Inspector struct {
	backend StatusBackend
	session *session.State
	out     *emitter
	log     zerolog.Logger
}

func (i *Inspector) Inspect(ctx context.Context) (*models.SessionSnapshot, error) {
	sessionID := i.session.ID()
	if sessionID == "" {
		return nil, i.out.refuse(ctx, "inspect", ErrNoActiveSession, true)
	}

	snap, err := i.backend.SessionStatus(ctx, sessionID)
	if err != nil {
		i.log.Warn().Err(err).Str("session_id", sessionID).Msg("Session status unavailable")
		return nil, errors.Wrap(err, "session status unavailable")
	}

	i.out.emit(ctx, models.Event{Type: models.EventSnapshot, SessionID: sessionID, Snapshot: snap})
	return snap, nil
}
