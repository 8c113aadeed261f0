package adapters

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/emrahtokalak/supportflow/models"
	"github.com/emrahtokalak/supportflow/panel"
)

var knownCommands = map[panel.CommandType]bool{
	panel.CommandSend:       true,
	panel.CommandIntake:     true,
	panel.CommandSkip:       true,
	panel.CommandNewSession: true,
	panel.CommandEscalate:   true,
	panel.CommandStatus:     true,
	panel.CommandQuick:      true,
}

// ParseWebFrame decodes a raw websocket text frame. A frame without a type but with
// text is treated as a send, the way plain chat widgets talk.
func ParseWebFrame(raw []byte) (models.WSIncoming, error) {
	var in models.WSIncoming
	if err := json.Unmarshal(raw, &in); err != nil {
		return in, errors.Wrap(err, "invalid frame")
	}
	if in.Type == "" && in.Text != "" {
		in.Type = string(panel.CommandSend)
	}
	return in, nil
}

// NormalizeCommand converts a decoded frame into a panel command.
func NormalizeCommand(in models.WSIncoming) (panel.Command, error) {
	t := panel.CommandType(strings.ToLower(strings.TrimSpace(in.Type)))
	if !knownCommands[t] {
		return panel.Command{}, errors.Errorf("unknown command type %q", in.Type)
	}
	return panel.Command{
		ID:     uuid.New().String(),
		Type:   t,
		Text:   in.Text,
		Reason: in.Reason,
		Name:   in.Name,
		Fields: in.Fields,
	}, nil
}
