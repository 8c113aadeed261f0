package main

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/emrahtokalak/supportflow/backend"
	"github.com/emrahtokalak/supportflow/config"
	"github.com/emrahtokalak/supportflow/metrics"
	"github.com/emrahtokalak/supportflow/session"
)

type rootOptions struct {
	configPath string
	logLevel   string
	withCaller bool
	backendURL string
	agentID    string

	cfg *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("supportflow failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "supportflow",
		Short:         "Operator console for the customer-support chat API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.backendURL != "" {
				cfg.Backend.URL = opts.backendURL
			}
			if opts.agentID != "" {
				cfg.Escalation.AgentID = opts.agentID
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			if opts.withCaller {
				cfg.Log.WithCaller = true
			}
			opts.cfg = cfg
			return initLogger(cfg.Log)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "Path to the yaml config (default supportflow.yaml if present)")
	f.StringVar(&opts.logLevel, "log-level", "", "Global log level (trace, debug, info, warn, error)")
	f.BoolVar(&opts.withCaller, "with-caller", false, "Include caller (file:line) in logs")
	f.StringVar(&opts.backendURL, "backend-url", "", "Base URL of the support API")
	f.StringVar(&opts.agentID, "agent-id", "", "Human agent id sent with escalations")

	root.AddCommand(
		newServeCmd(opts),
		newChatCmd(opts),
		newStatusCmd(opts),
		newSessionsCmd(opts),
		newCleanupCmd(opts),
		newHealthCmd(opts),
	)
	return root
}

func initLogger(cfg config.LogConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", cfg.Level)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logger := zerolog.New(os.Stderr)
	if isTerminal(os.Stderr) {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
	ctx := logger.With().Timestamp()
	if cfg.WithCaller {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func newClient(cfg *config.Config, rec *metrics.Recorder) *backend.Client {
	return backend.New(cfg.Backend.URL,
		backend.WithTimeout(cfg.Backend.RequestTimeout),
		backend.WithLogger(log.Logger),
		backend.WithMetrics(rec),
	)
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrap(err, "failed to connect to redis")
	}
	log.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	return rdb, nil
}

// openTranscript returns the configured store and a func that releases it.
func openTranscript(cfg *config.Config, rdb *redis.Client) (session.Transcript, func(), error) {
	switch cfg.Transcript.Store {
	case config.StoreRedis:
		if rdb == nil {
			return nil, nil, errors.New("redis transcript store needs a redis connection")
		}
		return session.NewRedisTranscript(rdb, cfg.Transcript.TTL, cfg.Transcript.MaxMessages), func() {}, nil
	case config.StoreSQLite:
		t, err := session.OpenSQLiteTranscript(cfg.Transcript.Path, cfg.Transcript.MaxMessages)
		if err != nil {
			return nil, nil, err
		}
		return t, func() {
			if err := t.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close transcript database")
			}
		}, nil
	default:
		return session.NewMemoryTranscript(cfg.Transcript.MaxMessages), func() {}, nil
	}
}
