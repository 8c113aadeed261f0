package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/emrahtokalak/supportflow/models"
)

func receive(t *testing.T, ch <-chan models.Event) models.Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return models.Event{}
}

func TestBrokerFansOut(t *testing.T) {
	b := NewBroker(zerolog.Nop())
	ctx := context.Background()

	ch1, cancel1, err := b.Subscribe(ctx)
	require.NoError(t, err)
	ch2, cancel2, err := b.Subscribe(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, b.Count())

	b.Emit(ctx, models.Event{ID: "e1", Type: models.EventNotice, Text: "hello"})
	require.Equal(t, "e1", receive(t, ch1).ID)
	require.Equal(t, "e1", receive(t, ch2).ID)

	cancel1()
	cancel1()
	_, ok := <-ch1
	require.False(t, ok)
	require.Equal(t, 1, b.Count())
	cancel2()
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker(zerolog.Nop())
	b.buffer = 1
	ch, cancel, err := b.Subscribe(context.Background())
	require.NoError(t, err)
	defer cancel()

	b.Emit(context.Background(), models.Event{ID: "1"})
	b.Emit(context.Background(), models.Event{ID: "2"})
	require.Equal(t, "1", receive(t, ch).ID)
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %s", ev.ID)
	default:
	}
}

func TestBrokerUnsubscribesOnContextEnd(t *testing.T) {
	b := NewBroker(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	_, _, err := b.Subscribe(ctx)
	require.NoError(t, err)
	cancel()
	require.Eventually(t, func() bool { return b.Count() == 0 }, time.Second, 10*time.Millisecond)
}

func TestRedisBusRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	bus := NewRedisBus(rdb, "console-1", zerolog.Nop())
	require.Equal(t, "panel:console-1", bus.Channel())

	ctx := context.Background()
	ch, cancel, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	bus.Emit(ctx, models.Event{ID: "e1", Type: models.EventSession, SessionID: "abc"})
	ev := receive(t, ch)
	require.Equal(t, models.EventSession, ev.Type)
	require.Equal(t, "abc", ev.SessionID)
}

func TestMultiAndRecorder(t *testing.T) {
	var a, b Recorder
	m := Multi{&a, nil, &b}
	m.Emit(context.Background(), models.Event{Type: models.EventCleared})
	m.Emit(context.Background(), models.Event{Type: models.EventNotice})

	require.Len(t, a.Events(), 2)
	require.Len(t, b.OfType(models.EventNotice), 1)
	a.Reset()
	require.Empty(t, a.Events())
}
