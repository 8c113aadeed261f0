package intake

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/emrahtokalak/supportflow/models"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   map[string]string
		want models.CustomerInfo
	}{
		{"nil", nil, nil},
		{"all blank", map[string]string{FieldName: "  ", FieldPhone: ""}, nil},
		{"trims and drops", map[string]string{FieldName: " Ada Lovelace ", FieldPhone: " ", FieldEmail: "ada@example.com\n"},
			models.CustomerInfo{FieldName: "Ada Lovelace", FieldEmail: "ada@example.com"}},
		{"passes through unknown keys", map[string]string{"plan": " gold "}, models.CustomerInfo{"plan": "gold"}},
		{"drops blank keys", map[string]string{" ": "x"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestFlowLifecycle(t *testing.T) {
	f := NewFlow()
	require.True(t, f.Pending())
	require.Nil(t, f.Info())

	info := f.Submit(map[string]string{FieldName: " Ada "})
	require.False(t, f.Pending())
	require.Equal(t, models.CustomerInfo{FieldName: "Ada"}, info)
	require.Equal(t, info, f.Info())

	// callers get copies
	info[FieldName] = "mutated"
	require.Equal(t, "Ada", f.Info()[FieldName])

	f.Consume()
	require.Nil(t, f.Info())
	require.False(t, f.Pending())

	f.Rearm()
	require.True(t, f.Pending())
}

func TestBlankSubmitEqualsSkip(t *testing.T) {
	f := NewFlow()
	require.Nil(t, f.Submit(map[string]string{FieldName: " "}))
	require.False(t, f.Pending())
	require.Nil(t, f.Info())

	f.Rearm()
	f.Skip()
	require.False(t, f.Pending())
	require.Nil(t, f.Info())
}
