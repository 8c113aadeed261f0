// Package monitor tracks whether the support API is reachable and healthy.
//
// The monitor never returns errors: an unreachable or unhealthy backend is just a
// disconnected state with a message for the operator.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emrahtokalak/supportflow/events"
	"github.com/emrahtokalak/supportflow/metrics"
	"github.com/emrahtokalak/supportflow/models"
)

const (
	DefaultInterval     = 30 * time.Second
	DefaultProbeTimeout = 10 * time.Second

	unreachableMessage = "API connection could not be established"
)

type HealthProber interface {
	Health(ctx context.Context) (*models.HealthResponse, error)
}

type ConnectionState struct {
	Connected bool      `json:"connected"`
	Message   string    `json:"message"`
	CheckedAt time.Time `json:"checked_at"`
}

type Monitor struct {
	prober       HealthProber
	interval     time.Duration
	probeTimeout time.Duration
	sink         events.Sink
	metrics      *metrics.Recorder
	log          zerolog.Logger
	now          func() time.Time

	mu          sync.Mutex
	state       ConnectionState
	seq         uint64
	cancelProbe context.CancelFunc
}

type Option func(*Monitor)

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) { m.interval = d }
}

func WithProbeTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.probeTimeout = d }
}

func WithSink(s events.Sink) Option {
	return func(m *Monitor) { m.sink = s }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(m *Monitor) { m.metrics = r }
}

func WithLogger(l zerolog.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

func New(prober HealthProber, opts ...Option) *Monitor {
	m := &Monitor{
		prober:       prober,
		interval:     DefaultInterval,
		probeTimeout: DefaultProbeTimeout,
		sink:         events.Nop{},
		log:          zerolog.Nop(),
		now:          time.Now,
		state:        ConnectionState{Message: "Connecting..."},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Monitor) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Monitor) Connected() bool {
	return m.State().Connected
}

// Probe checks the backend once and applies the result unless a newer probe was
// started in the meantime. Starting a probe cancels any older one still in flight,
// so a superseded probe never overwrites fresher state.
func (m *Monitor) Probe(ctx context.Context) ConnectionState {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	m.mu.Lock()
	m.seq++
	seq := m.seq
	if m.cancelProbe != nil {
		m.cancelProbe()
	}
	m.cancelProbe = cancel
	m.mu.Unlock()

	next := m.check(probeCtx)

	m.mu.Lock()
	if seq != m.seq {
		current := m.state
		m.mu.Unlock()
		m.log.Debug().Uint64("seq", seq).Msg("Dropping superseded health probe")
		return current
	}
	changed := m.state.Connected != next.Connected
	m.state = next
	m.mu.Unlock()

	m.metrics.SetConnected(next.Connected)
	ev := m.log.Debug()
	if changed {
		ev = m.log.Info()
	}
	ev.Bool("connected", next.Connected).Str("message", next.Message).Msg("Connection state")

	m.sink.Emit(ctx, models.Event{
		ID:        uuid.New().String(),
		Type:      models.EventConnection,
		Text:      next.Message,
		Connected: models.Bool(next.Connected),
		Time:      next.CheckedAt,
	})
	return next
}

func (m *Monitor) check(ctx context.Context) ConnectionState {
	state := ConnectionState{CheckedAt: m.now()}
	health, err := m.prober.Health(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("Health probe failed")
		state.Message = unreachableMessage
		return state
	}
	m.log.Debug().
		Str("status", health.Status).
		Bool("ollama_available", health.OllamaAvailable).
		Msg("Health probe answered")
	state.Connected = health.Healthy()
	state.Message = health.Message
	if state.Message == "" {
		state.Message = health.Status
	}
	return state
}

// Run probes immediately and then on every interval tick until ctx ends.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	probe := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Probe(ctx)
		}()
	}

	probe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}
