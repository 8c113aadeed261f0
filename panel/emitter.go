package panel

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emrahtokalak/supportflow/events"
	"github.com/emrahtokalak/supportflow/metrics"
	"github.com/emrahtokalak/supportflow/models"
	"github.com/emrahtokalak/supportflow/session"
)

// emitter stamps events for one console, keeps the transcript in step with the
// displayed messages, and forwards everything to the sink.
type emitter struct {
	consoleID  string
	session    *session.State
	sink       events.Sink
	transcript session.Transcript
	metrics    *metrics.Recorder
	log        zerolog.Logger
	now        func() time.Time
}

func (e *emitter) emit(ctx context.Context, ev models.Event) {
	ev.ID = uuid.New().String()
	ev.ConsoleID = e.consoleID
	if ev.SessionID == "" {
		ev.SessionID = e.session.ID()
	}
	ev.Time = e.now()
	e.sink.Emit(ctx, ev)
}

func (e *emitter) message(ctx context.Context, sender, text string, meta models.MessageMeta) models.ChatMessage {
	msg := models.ChatMessage{
		ID:     uuid.New().String(),
		Sender: sender,
		Text:   text,
		Meta:   meta,
		Time:   e.now(),
	}
	if err := e.transcript.Append(ctx, e.consoleID, msg); err != nil {
		e.log.Error().Err(err).Msg("Failed to append to transcript")
	}
	e.emit(ctx, models.Event{Type: models.EventMessage, Message: &msg})
	return msg
}

func (e *emitter) notice(ctx context.Context, text string) {
	e.emit(ctx, models.Event{Type: models.EventNotice, Text: text})
}

func (e *emitter) sessionChanged(ctx context.Context, id string) {
	// the id is stamped explicitly so a reset is visible as an empty session_id
	ev := models.Event{Type: models.EventSession, Text: models.ShortID(id)}
	ev.ID = uuid.New().String()
	ev.ConsoleID = e.consoleID
	ev.SessionID = id
	ev.Time = e.now()
	e.sink.Emit(ctx, ev)
}

func (e *emitter) input(ctx context.Context, enabled bool) {
	e.emit(ctx, models.Event{Type: models.EventInput, Enabled: models.Bool(enabled)})
}

func (e *emitter) clear(ctx context.Context) {
	if err := e.transcript.Clear(ctx, e.consoleID); err != nil {
		e.log.Error().Err(err).Msg("Failed to clear transcript")
	}
	e.emit(ctx, models.Event{Type: models.EventCleared})
}

// refuse records a local refusal. advise also shows the reason to the operator.
func (e *emitter) refuse(ctx context.Context, op string, reason error, advise bool) error {
	e.metrics.IncRefused(op, reasonCode(reason))
	e.log.Debug().Str("op", op).Str("reason", reasonCode(reason)).Msg("Operation refused")
	if advise {
		e.notice(ctx, reason.Error())
	}
	return &PreconditionError{Op: op, Reason: reason}
}
