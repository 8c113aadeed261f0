package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/emrahtokalak/supportflow/models"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show the backend's view of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible(cmd.Context())
			defer cancel()

			snap, err := newClient(opts.cfg, nil).SessionStatus(ctx, args[0])
			if err != nil {
				return errors.Wrap(err, "session status")
			}
			printSnapshot(cmd, snap)
			return nil
		},
	}
}

func printSnapshot(cmd *cobra.Command, snap *models.SessionSnapshot) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Session:\t%s\n", snap.SessionID)
	fmt.Fprintf(w, "Active:\t%t\n", snap.IsActive)
	fmt.Fprintf(w, "Turns:\t%d\n", snap.TurnCount)
	fmt.Fprintf(w, "Requires human:\t%t\n", snap.RequiresHuman)
	if snap.EscalationReason != "" {
		fmt.Fprintf(w, "Escalation reason:\t%s\n", snap.EscalationReason)
	}
	fmt.Fprintf(w, "Duration:\t%.1f min\n", snap.DurationMinutes)
	if !snap.LastActivity.IsZero() {
		fmt.Fprintf(w, "Last activity:\t%s\n", snap.LastActivity.Format("2006-01-02 15:04:05"))
	}
	w.Flush()
}

func newSessionsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List sessions waiting for a human agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible(cmd.Context())
			defer cancel()

			resp, err := newClient(opts.cfg, nil).SessionsRequiringHuman(ctx)
			if err != nil {
				return errors.Wrap(err, "list sessions")
			}
			out := cmd.OutOrStdout()
			if resp.Count == 0 {
				fmt.Fprintln(out, "No sessions require a human agent.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SESSION\tTURNS\tREASON\tCUSTOMER\tLAST MESSAGE")
			for _, s := range resp.Sessions {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
					models.ShortID(s.SessionID), s.TurnCount, s.EscalationReason,
					s.CustomerInfo["name"], truncate(s.LastMessage, 40))
			}
			w.Flush()
			fmt.Fprintf(out, "%d session(s)\n", resp.Count)
			return nil
		},
	}
}

func newCleanupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Ask the backend to drop expired sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible(cmd.Context())
			defer cancel()

			resp, err := newClient(opts.cfg, nil).CleanupSessions(ctx)
			if err != nil {
				return errors.Wrap(err, "cleanup sessions")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d cleaned)\n", resp.Message, resp.CleanedSessions)
			return nil
		},
	}
}

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the support API once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := interruptible(cmd.Context())
			defer cancel()

			health, err := newClient(opts.cfg, nil).Health(ctx)
			if err != nil {
				return errors.Wrap(err, "API connection could not be established")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "status=%s ollama_available=%t message=%q\n",
				health.Status, health.OllamaAvailable, health.Message)
			if !health.Healthy() {
				return errors.Errorf("backend is %s", health.Status)
			}
			return nil
		},
	}
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
