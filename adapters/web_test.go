package adapters

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emrahtokalak/supportflow/models"
	"github.com/emrahtokalak/supportflow/panel"
)

func TestParseWebFrame(t *testing.T) {
	in, err := ParseWebFrame([]byte(`{"text":"hi"}`))
	require.NoError(t, err)
	require.Equal(t, "send", in.Type)

	in, err = ParseWebFrame([]byte(`{"type":"escalate","reason":"angry"}`))
	require.NoError(t, err)
	require.Equal(t, "escalate", in.Type)
	require.Equal(t, "angry", in.Reason)

	_, err = ParseWebFrame([]byte(`not json`))
	require.Error(t, err)
}

func TestNormalizeCommand(t *testing.T) {
	cmd, err := NormalizeCommand(models.WSIncoming{Type: " Intake ", Fields: map[string]string{"name": "Ada"}})
	require.NoError(t, err)
	require.Equal(t, panel.CommandIntake, cmd.Type)
	require.Equal(t, "Ada", cmd.Fields["name"])
	require.Len(t, cmd.ID, 36)

	other, err := NormalizeCommand(models.WSIncoming{Type: "skip"})
	require.NoError(t, err)
	require.NotEqual(t, cmd.ID, other.ID)

	_, err = NormalizeCommand(models.WSIncoming{Type: "dance"})
	require.Error(t, err)

	_, err = NormalizeCommand(models.WSIncoming{})
	require.Error(t, err)
}
