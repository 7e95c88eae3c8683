package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/mpsl/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Kind     string // optional - filter to one event kind
}

// SessionSummary is one row of the session listing.
type SessionSummary struct {
	trace.Session
	Events int `json:"events"`
}

// TraceResult holds a session's timeline.
type TraceResult struct {
	Session  trace.Session  `json:"session"`
	Timeline []trace.Event  `json:"timeline"`
	Kinds    map[string]int `json:"kinds"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect stored traces",
		Long: `List the sessions stored in a trace database, or show one session's
timeline in seq order.

Examples:
  mpsl trace --db ./trace.db
  mpsl trace --db ./trace.db --session 0190c3e2-...
  mpsl trace --db ./trace.db --session 0190c3e2-... --kind deferred --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to show (default: list sessions)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter events to one kind")

	return cmd
}

// newPrinter formats numbers for human-readable output.
func newPrinter() *message.Printer {
	return message.NewPrinter(language.English)
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := trace.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Session == "" {
		return listSessions(ctx, st, formatter)
	}

	formatter.Session = opts.Session
	sess, err := st.ReadSession(ctx, opts.Session)
	if errors.Is(err, trace.ErrSessionNotFound) {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "unknown session", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	events, err := st.ReadEvents(ctx, opts.Session, opts.Kind)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	summary := trace.Summarize(events)
	result := TraceResult{Session: sess, Timeline: events, Kinds: summary.ByKind}
	if opts.Format == "json" {
		return formatter.Success(result)
	}

	p := newPrinter()
	w := formatter.Writer
	p.Fprintf(w, "Session %s (%s, signal %d)\n", sess.ID, sess.LFConfig, sess.Signal)
	if sess.Label != "" {
		p.Fprintf(w, "Label: %s\n", sess.Label)
	}
	fmt.Fprintln(w)
	_, _ = w.Write(trace.Text(events))
	fmt.Fprintln(w)
	for _, kind := range summary.Kinds() {
		p.Fprintf(w, "  %-12s %d\n", kind, summary.ByKind[kind])
	}
	p.Fprintf(w, "%d events\n", summary.Total)
	return nil
}

func listSessions(ctx context.Context, st *trace.Store, formatter *OutputFormatter) error {
	sessions, err := st.ReadSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read sessions", err)
	}

	rows := make([]SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		events, err := st.ReadEvents(ctx, sess.ID, "")
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read events", err)
		}
		rows = append(rows, SessionSummary{Session: sess, Events: len(events)})
	}

	if formatter.Format == "json" {
		return formatter.Success(rows)
	}

	w := formatter.Writer
	if len(rows) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return nil
	}
	p := newPrinter()
	for _, r := range rows {
		p.Fprintf(w, "%s  %s  %-12s %d events\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.ID, r.LFConfig, r.Events)
	}
	return nil
}
