package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/emrahtokalak/supportflow/backend"
	"github.com/emrahtokalak/supportflow/config"
	"github.com/emrahtokalak/supportflow/events"
	"github.com/emrahtokalak/supportflow/intake"
	"github.com/emrahtokalak/supportflow/models"
	"github.com/emrahtokalak/supportflow/monitor"
	"github.com/emrahtokalak/supportflow/panel"
)

const chatHelp = `Commands:
  /status             show the backend's view of the current session
  /escalate <reason>  hand the session to a human agent
  /quick <name>       send a configured quick action
  /new                start a new session
  /quit               leave
Anything else is sent as a message.`

func newChatCmd(opts *rootOptions) *cobra.Command {
	var noIntake bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the support API from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible(cmd.Context())
			defer cancel()
			// the intake form needs a terminal; piped input goes straight to the conversation
			withIntake := !noIntake && isTerminal(os.Stdin)
			return runChat(ctx, opts.cfg, os.Stdin, cmd.OutOrStdout(), withIntake)
		},
	}
	cmd.Flags().BoolVar(&noIntake, "no-intake", false, "Skip the customer details form")
	return cmd
}

func runChat(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, withIntake bool) error {
	var rdb *redis.Client
	if cfg.Transcript.Store == config.StoreRedis {
		var err error
		if rdb, err = connectRedis(ctx, cfg.Redis.URL); err != nil {
			return err
		}
		defer rdb.Close()
	}
	transcript, closeTranscript, err := openTranscript(cfg, rdb)
	if err != nil {
		return err
	}
	defer closeTranscript()

	sink := newPrinter(out)
	client := newClient(cfg, nil)
	mon := monitor.New(client,
		monitor.WithInterval(cfg.Backend.HealthInterval),
		monitor.WithProbeTimeout(cfg.Backend.ProbeTimeout),
		monitor.WithSink(sink),
		monitor.WithLogger(log.With().Str("component", "monitor").Logger()),
	)
	p := panel.New(panel.Deps{
		Backend:      client,
		Connection:   mon,
		Sink:         sink,
		Transcript:   transcript,
		Logger:       log.Logger,
		ConsoleID:    uuid.New().String(),
		Model:        cfg.Backend.Model,
		AgentID:      cfg.Escalation.AgentID,
		Greeting:     cfg.Greeting,
		QuickActions: cfg.QuickActions,
	})

	mon.Probe(ctx)
	monCtx, stopMonitor := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		mon.Run(monCtx)
	}()
	defer func() {
		stopMonitor()
		wg.Wait()
	}()

	if err := startConversation(ctx, p, withIntake); err != nil {
		return err
	}
	fmt.Fprintln(out, "Type /help for commands.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		command, arg, _ := strings.Cut(line, " ")

		switch command {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Fprintln(out, chatHelp)
		case "/new":
			p.NewSession(ctx)
			if err := startConversation(ctx, p, withIntake); err != nil {
				return err
			}
		case "/status":
			if _, err := p.Inspect(ctx); err != nil && !panel.IsPrecondition(err) {
				fmt.Fprintf(out, "! Session status unavailable: %s\n", backend.Detail(err))
			}
		case "/escalate":
			// refusals and failures are already shown as notices
			_ = p.Escalate(ctx, arg)
		case "/quick":
			_, err := p.SendQuick(ctx, strings.TrimSpace(arg))
			reportSend(out, err)
		default:
			_, err := p.Send(ctx, line)
			reportSend(out, err)
		}
	}
}

func startConversation(ctx context.Context, p *panel.Panel, withIntake bool) error {
	if !withIntake {
		p.SkipIntake(ctx)
		return nil
	}
	fields, skipped, err := intake.Prompt(ctx)
	if err != nil {
		return err
	}
	if skipped {
		p.SkipIntake(ctx)
		return nil
	}
	p.SubmitIntake(ctx, fields)
	return nil
}

// reportSend prints refusals that the panel does not announce itself.
func reportSend(out io.Writer, err error) {
	var pe *panel.PreconditionError
	if errors.As(err, &pe) && pe.Reason != panel.ErrEmptyMessage && pe.Reason != panel.ErrUnknownQuickAction {
		fmt.Fprintf(out, "! %s\n", pe.Reason)
	}
}

// printer renders panel events as terminal lines.
type printer struct {
	mu        sync.Mutex
	out       io.Writer
	connected *bool
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out}
}

func (pr *printer) Emit(_ context.Context, ev models.Event) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	switch ev.Type {
	case models.EventMessage:
		m := ev.Message
		switch {
		case m.Sender == models.SenderUser:
			return
		case m.Meta.IsError, m.Meta.IsEscalation:
			fmt.Fprintf(pr.out, "bot ! %s\n", m.Text)
		case m.Meta.Category != "":
			fmt.Fprintf(pr.out, "bot [%s, turn %d]: %s\n", m.Meta.Category, m.Meta.TurnCount, m.Text)
		default:
			fmt.Fprintf(pr.out, "bot: %s\n", m.Text)
		}
	case models.EventNotice:
		fmt.Fprintf(pr.out, "! %s\n", ev.Text)
	case models.EventConnection:
		if pr.connected != nil && *pr.connected == *ev.Connected {
			return
		}
		pr.connected = ev.Connected
		if *ev.Connected {
			fmt.Fprintf(pr.out, "* Connected to the support API (%s)\n", ev.Text)
		} else {
			fmt.Fprintf(pr.out, "* Disconnected: %s\n", ev.Text)
		}
	case models.EventSession:
		if ev.SessionID != "" {
			fmt.Fprintf(pr.out, "* Session %s\n", ev.Text)
		}
	case models.EventEscalation:
		if ev.Available != nil && *ev.Available {
			fmt.Fprintln(pr.out, "* Type /escalate <reason> to hand over to a human agent")
		}
	case models.EventSnapshot:
		s := ev.Snapshot
		fmt.Fprintf(pr.out, "* Session %s active=%t turns=%d requires_human=%t duration=%.1fmin\n",
			models.ShortID(s.SessionID), s.IsActive, s.TurnCount, s.RequiresHuman, s.DurationMinutes)
	}
}

var _ events.Sink = (*printer)(nil)
