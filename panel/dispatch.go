package panel

import (
	"context"

	"github.com/pkg/errors"
)

type CommandType string

const (
	CommandSend       CommandType = "send"
	CommandIntake     CommandType = "intake"
	CommandSkip       CommandType = "skip"
	CommandNewSession CommandType = "new_session"
	CommandEscalate   CommandType = "escalate"
	CommandStatus     CommandType = "status"
	CommandQuick      CommandType = "quick"
)

// Command is one operator action coming from a renderer.
type Command struct {
	ID     string
	Type   CommandType
	Text   string
	Reason string
	Name   string
	Fields map[string]string
}

// Dispatch runs cmd against the panel. Results reach the renderer as events; the
// returned error is for logging.
func (p *Panel) Dispatch(ctx context.Context, cmd Command) error {
	var err error
	switch cmd.Type {
	case CommandSend:
		_, err = p.Send(ctx, cmd.Text)
	case CommandQuick:
		_, err = p.SendQuick(ctx, cmd.Name)
	case CommandIntake:
		p.SubmitIntake(ctx, cmd.Fields)
	case CommandSkip:
		p.SkipIntake(ctx)
	case CommandNewSession:
		p.NewSession(ctx)
	case CommandEscalate:
		err = p.Escalate(ctx, cmd.Reason)
	case CommandStatus:
		_, err = p.Inspect(ctx)
	default:
		return errors.Errorf("unknown command %q", cmd.Type)
	}
	return errors.Wrapf(err, "%s command %s", cmd.Type, cmd.ID)
}
