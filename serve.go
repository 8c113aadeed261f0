package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/emrahtokalak/supportflow/config"
	"github.com/emrahtokalak/supportflow/events"
	"github.com/emrahtokalak/supportflow/handlers"
	"github.com/emrahtokalak/supportflow/metrics"
	"github.com/emrahtokalak/supportflow/monitor"
	"github.com/emrahtokalak/supportflow/panel"
)

const shutdownTimeout = 5 * time.Second

type bus interface {
	events.Sink
	events.Subscriber
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int
	var consoleID string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the operator console behind a websocket bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if port != 0 {
				cfg.Server.Port = port
			}
			if consoleID == "" {
				consoleID = uuid.New().String()
			}
			return serve(cmd.Context(), cfg, consoleID)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides config and PORT)")
	cmd.Flags().StringVar(&consoleID, "console-id", "", "Stable console id; keeps the transcript across restarts")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, consoleID string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewRecorder(reg)

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		var err error
		if rdb, err = connectRedis(ctx, cfg.Redis.URL); err != nil {
			return err
		}
		defer rdb.Close()
	}

	var eventBus bus = events.NewBroker(log.Logger)
	if rdb != nil {
		eventBus = events.NewRedisBus(rdb, consoleID, log.Logger)
	}

	transcript, closeTranscript, err := openTranscript(cfg, rdb)
	if err != nil {
		return err
	}
	defer closeTranscript()

	client := newClient(cfg, rec)
	mon := monitor.New(client,
		monitor.WithInterval(cfg.Backend.HealthInterval),
		monitor.WithProbeTimeout(cfg.Backend.ProbeTimeout),
		monitor.WithSink(eventBus),
		monitor.WithMetrics(rec),
		monitor.WithLogger(log.With().Str("component", "monitor").Logger()),
	)
	p := panel.New(panel.Deps{
		Backend:      client,
		Connection:   mon,
		Sink:         eventBus,
		Transcript:   transcript,
		Metrics:      rec,
		Logger:       log.Logger,
		ConsoleID:    consoleID,
		Model:        cfg.Backend.Model,
		AgentID:      cfg.Escalation.AgentID,
		Greeting:     cfg.Greeting,
		QuickActions: cfg.QuickActions,
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", handlers.NewWSHandler(p, eventBus, cfg.Server.AllowedOrigins, log.Logger))
	mux.HandleFunc("/api/state", handlers.StateHandler(p, log.Logger))
	mux.HandleFunc("/health", handlers.HealthHandler(mon, log.Logger))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		mon.Run(ctx)
		return nil
	})
	eg.Go(func() error {
		log.Info().
			Int("port", cfg.Server.Port).
			Str("console_id", consoleID).
			Str("backend", client.BaseURL()).
			Msg("Operator console listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server error")
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

// interruptible is used by the one-shot commands so Ctrl-C aborts a slow request.
func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}
