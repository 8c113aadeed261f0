package session

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/emrahtokalak/supportflow/models"
)

func msg(i int) models.ChatMessage {
	return models.ChatMessage{
		ID:     fmt.Sprintf("m%d", i),
		Sender: models.SenderBot,
		Text:   fmt.Sprintf("message %d", i),
		Meta:   models.MessageMeta{TurnCount: i, Category: "billing"},
		Time:   time.Unix(1_700_000_000+int64(i), 0),
	}
}

// exerciseTranscript runs the shared contract against any store.
func exerciseTranscript(t *testing.T, store Transcript) {
	t.Helper()
	ctx := context.Background()

	empty, err := store.Load(ctx, "console-1")
	require.NoError(t, err)
	require.Empty(t, empty)

	require.NoError(t, store.Append(ctx, "console-1", msg(1), msg(2)))
	require.NoError(t, store.Append(ctx, "console-1", msg(3), msg(4)))
	require.NoError(t, store.Append(ctx, "console-2", msg(9)))

	got, err := store.Load(ctx, "console-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "m2", got[0].ID)
	require.Equal(t, "m4", got[2].ID)
	require.Equal(t, 4, got[2].Meta.TurnCount)
	require.Equal(t, "billing", got[2].Meta.Category)
	require.True(t, msg(4).Time.Equal(got[2].Time))

	require.NoError(t, store.Clear(ctx, "console-1"))
	got, err = store.Load(ctx, "console-1")
	require.NoError(t, err)
	require.Empty(t, got)

	other, err := store.Load(ctx, "console-2")
	require.NoError(t, err)
	require.Len(t, other, 1)
}

func TestMemoryTranscript(t *testing.T) {
	exerciseTranscript(t, NewMemoryTranscript(3))
}

func TestRedisTranscript(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewRedisTranscript(rdb, time.Hour, 3)
	exerciseTranscript(t, store)

	require.NoError(t, store.Append(context.Background(), "console-3", msg(1)))
	require.Equal(t, time.Hour, mr.TTL("transcript:console-3"))
}

func TestSQLiteTranscript(t *testing.T) {
	store, err := OpenSQLiteTranscript(filepath.Join(t.TempDir(), "transcript.db"), 3)
	require.NoError(t, err)
	defer store.Close()

	exerciseTranscript(t, store)
}
