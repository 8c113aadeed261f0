// Package panel is the operator-side session controller. It gates input on backend
// connectivity, keeps the conversation's session identity, collects customer
// intake once per session, and mediates escalation and inspection. All state is
// injected through Deps.
package panel

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emrahtokalak/supportflow/events"
	"github.com/emrahtokalak/supportflow/intake"
	"github.com/emrahtokalak/supportflow/metrics"
	"github.com/emrahtokalak/supportflow/models"
	"github.com/emrahtokalak/supportflow/session"
)

const (
	DefaultModel    = "gemma3:latest"
	DefaultGreeting = "Hello! How can I help you?"
)

type Phase string

const (
	PhaseIntake             Phase = "intake"
	PhaseAwaitingFirstReply Phase = "awaiting_first_reply"
	PhaseActive             Phase = "active"
)

type Backend interface {
	ChatBackend
	EscalationBackend
	StatusBackend
}

type Deps struct {
	Backend      Backend
	Connection   ConnectionGate
	Session      *session.State
	Intake       *intake.Flow
	Sink         events.Sink
	Transcript   session.Transcript
	Metrics      *metrics.Recorder
	Logger       zerolog.Logger
	ConsoleID    string
	Model        string
	AgentID      string
	Greeting     string
	QuickActions map[string]string
}

type Panel struct {
	consoleID    string
	session      *session.State
	intake       *intake.Flow
	conn         ConnectionGate
	transcript   session.Transcript
	greeting     string
	quickActions map[string]string
	out          *emitter
	log          zerolog.Logger

	chat       *Chat
	escalation *Escalation
	inspector  *Inspector
}

// State is the panel as a renderer needs it on (re)connect.
type State struct {
	ConsoleID           string `json:"console_id"`
	Phase               Phase  `json:"phase"`
	SessionID           string `json:"session_id,omitempty"`
	Connected           bool   `json:"connected"`
	Busy                bool   `json:"busy"`
	EscalationAvailable bool   `json:"escalation_available"`
	EscalationReason    string `json:"escalation_reason,omitempty"`
}

func New(d Deps) *Panel {
	if d.Session == nil {
		d.Session = session.NewState()
	}
	if d.Intake == nil {
		d.Intake = intake.NewFlow()
	}
	if d.Connection == nil {
		d.Connection = ConnectionFunc(func() bool { return false })
	}
	if d.Sink == nil {
		d.Sink = events.Nop{}
	}
	if d.Transcript == nil {
		d.Transcript = session.NewMemoryTranscript(0)
	}
	if d.ConsoleID == "" {
		d.ConsoleID = uuid.New().String()
	}
	if d.Model == "" {
		d.Model = DefaultModel
	}
	if d.Greeting == "" {
		d.Greeting = DefaultGreeting
	}
	log := d.Logger.With().Str("console_id", d.ConsoleID).Logger()

	out := &emitter{
		consoleID:  d.ConsoleID,
		session:    d.Session,
		sink:       d.Sink,
		transcript: d.Transcript,
		metrics:    d.Metrics,
		log:        log,
		now:        time.Now,
	}
	esc := &Escalation{
		backend: d.Backend,
		session: d.Session,
		out:     out,
		metrics: d.Metrics,
		agentID: d.AgentID,
		log:     log.With().Str("component", "escalation").Logger(),
	}
	return &Panel{
		consoleID:    d.ConsoleID,
		session:      d.Session,
		intake:       d.Intake,
		conn:         d.Connection,
		transcript:   d.Transcript,
		greeting:     d.Greeting,
		quickActions: d.QuickActions,
		out:          out,
		log:          log,
		chat: &Chat{
			backend:    d.Backend,
			session:    d.Session,
			intake:     d.Intake,
			conn:       d.Connection,
			escalation: esc,
			out:        out,
			metrics:    d.Metrics,
			model:      d.Model,
			log:        log.With().Str("component", "chat").Logger(),
		},
		escalation: esc,
		inspector: &Inspector{
			backend: d.Backend,
			session: d.Session,
			out:     out,
			log:     log.With().Str("component", "inspector").Logger(),
		},
	}
}

func (p *Panel) ConsoleID() string       { return p.consoleID }
func (p *Panel) Chat() *Chat             { return p.chat }
func (p *Panel) Escalation() *Escalation { return p.escalation }
func (p *Panel) Inspector() *Inspector   { return p.inspector }

func (p *Panel) Phase() Phase {
	switch {
	case p.intake.Pending():
		return PhaseIntake
	case !p.session.IsActive():
		return PhaseAwaitingFirstReply
	default:
		return PhaseActive
	}
}

func (p *Panel) State() State {
	return State{
		ConsoleID:           p.consoleID,
		Phase:               p.Phase(),
		SessionID:           p.session.ID(),
		Connected:           p.conn.Connected(),
		Busy:                p.chat.Busy(),
		EscalationAvailable: p.escalation.Available(),
		EscalationReason:    p.escalation.Reason(),
	}
}

// SubmitIntake completes intake with the given fields and opens a fresh conversation.
func (p *Panel) SubmitIntake(ctx context.Context, fields map[string]string) models.CustomerInfo {
	info := p.intake.Submit(fields)
	p.log.Info().Int("fields", len(info)).Msg("Customer intake submitted")
	p.startConversation(ctx)
	return info
}

// SkipIntake completes intake without customer details.
func (p *Panel) SkipIntake(ctx context.Context) {
	p.intake.Skip()
	p.log.Info().Msg("Customer intake skipped")
	p.startConversation(ctx)
}

// startConversation clears the display and greets locally; the backend is not contacted.
func (p *Panel) startConversation(ctx context.Context) {
	p.resetSession(ctx)
	p.out.clear(ctx)
	p.out.message(ctx, models.SenderBot, p.greeting, models.MessageMeta{})
}

// NewSession drops the current session and re-arms intake. The backend is not contacted.
func (p *Panel) NewSession(ctx context.Context) {
	p.log.Info().Str("session_id", p.session.ID()).Msg("Starting new session")
	p.resetSession(ctx)
	p.intake.Rearm()
	p.out.emit(ctx, models.Event{Type: models.EventIntake, Phase: string(PhaseIntake)})
}

func (p *Panel) resetSession(ctx context.Context) {
	had := p.session.IsActive()
	p.session.Reset()
	p.escalation.Retract(ctx)
	if had {
		p.out.sessionChanged(ctx, "")
	}
}

func (p *Panel) Send(ctx context.Context, text string) (*models.Turn, error) {
	return p.chat.Send(ctx, text)
}

// SendQuick sends one of the configured canned messages.
func (p *Panel) SendQuick(ctx context.Context, name string) (*models.Turn, error) {
	text, ok := p.quickActions[name]
	if !ok {
		return nil, p.out.refuse(ctx, "quick", ErrUnknownQuickAction, true)
	}
	return p.chat.Send(ctx, text)
}

func (p *Panel) Escalate(ctx context.Context, reason string) error {
	return p.escalation.Escalate(ctx, reason)
}

func (p *Panel) Inspect(ctx context.Context) (*models.SessionSnapshot, error) {
	return p.inspector.Inspect(ctx)
}

func (p *Panel) Transcript(ctx context.Context) ([]models.ChatMessage, error) {
	return p.transcript.Load(ctx, p.consoleID)
}
