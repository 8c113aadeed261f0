package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emrahtokalak/supportflow/events"
	"github.com/emrahtokalak/supportflow/models"
)

type proberFunc func(ctx context.Context) (*models.HealthResponse, error)

func (f proberFunc) Health(ctx context.Context) (*models.HealthResponse, error) { return f(ctx) }

func healthy(ctx context.Context) (*models.HealthResponse, error) {
	return &models.HealthResponse{Status: "healthy", Message: "API: Ready, Ollama: Connected", OllamaAvailable: true}, nil
}

func TestProbeHealthy(t *testing.T) {
	rec := &events.Recorder{}
	m := New(proberFunc(healthy), WithSink(rec))
	require.False(t, m.Connected())

	state := m.Probe(context.Background())
	require.True(t, state.Connected)
	require.Equal(t, "API: Ready, Ollama: Connected", state.Message)
	require.True(t, m.Connected())

	evs := rec.OfType(models.EventConnection)
	require.Len(t, evs, 1)
	require.True(t, *evs[0].Connected)
}

func TestProbeUnhealthyStatus(t *testing.T) {
	m := New(proberFunc(func(ctx context.Context) (*models.HealthResponse, error) {
		return &models.HealthResponse{Status: "unhealthy", Message: "API: Ready, Ollama: Disconnected"}, nil
	}))
	state := m.Probe(context.Background())
	require.False(t, state.Connected)
	require.Equal(t, "API: Ready, Ollama: Disconnected", state.Message)
}

func TestProbeTransportErrorFailsSoft(t *testing.T) {
	m := New(proberFunc(func(ctx context.Context) (*models.HealthResponse, error) {
		return nil, errors.New("dial tcp: connection refused")
	}))
	m.Probe(context.Background())
	state := m.State()
	require.False(t, state.Connected)
	require.Equal(t, unreachableMessage, state.Message)
}

func TestProbeReplacesPreviousState(t *testing.T) {
	var up atomic.Bool
	up.Store(true)
	m := New(proberFunc(func(ctx context.Context) (*models.HealthResponse, error) {
		if up.Load() {
			return healthy(ctx)
		}
		return nil, errors.New("down")
	}))

	require.True(t, m.Probe(context.Background()).Connected)
	up.Store(false)
	require.False(t, m.Probe(context.Background()).Connected)
	up.Store(true)
	require.True(t, m.Probe(context.Background()).Connected)
}

func TestSupersededProbeIsDropped(t *testing.T) {
	var calls atomic.Int32
	firstStarted := make(chan struct{})
	m := New(proberFunc(func(ctx context.Context) (*models.HealthResponse, error) {
		if calls.Add(1) == 1 {
			close(firstStarted)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return healthy(ctx)
	}))

	done := make(chan ConnectionState)
	go func() { done <- m.Probe(context.Background()) }()
	<-firstStarted

	require.True(t, m.Probe(context.Background()).Connected)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded probe was not cancelled")
	}
	require.True(t, m.Connected())
}

func TestRunProbesImmediatelyAndPeriodically(t *testing.T) {
	var calls atomic.Int32
	m := New(proberFunc(func(ctx context.Context) (*models.HealthResponse, error) {
		calls.Add(1)
		return healthy(ctx)
	}), WithInterval(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.True(t, m.Connected())
	cancel()
	<-done
}
