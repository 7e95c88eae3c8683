package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/mpsl/internal/config"
	"github.com/roach88/mpsl/internal/irq"
	"github.com/roach88/mpsl/internal/mpsl"
	"github.com/roach88/mpsl/internal/sim"
	"github.com/roach88/mpsl/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config   string
	Database string
	For      time.Duration
	Cycles   int
}

// RunResult summarizes a simulated run.
type RunResult struct {
	Session      string         `json:"session"`
	LFConfig     string         `json:"lf_config"`
	Signal       irq.Signal     `json:"signal"`
	Duration     string         `json:"duration"`
	Cycles       int64          `json:"cycles"`
	HFStarts     int64          `json:"hf_starts"`
	Calibrations int64          `json:"calibrations"`
	Drains       int64          `json:"drains"`
	Asserts      int64          `json:"asserts"`
	Events       int            `json:"events"`
	Kinds        map[string]int `json:"kinds"`
	Stored       int            `json:"stored,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the layer against simulated hardware",
		Long: `Initialize the layer on simulated clock hardware and run a radio workload.

The workload requests the HF clock, raises a radio interrupt once it is
ready and releases the clock from the radio handler's low-priority
continuation, for the given number of cycles or until the time is up.
The RTC calibration timer runs throughout.

Examples:
  mpsl run
  mpsl run --config device.yaml --for 5s
  mpsl run --db trace.db --cycles 20 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to device configuration YAML")
	cmd.Flags().StringVar(&opts.Database, "db", "", "store the trace in this SQLite database")
	cmd.Flags().DurationVar(&opts.For, "for", 0, "run duration (default from config)")
	cmd.Flags().IntVar(&opts.Cycles, "cycles", 10, "radio workload cycles (0 = until time is up)")

	return cmd
}

func runRun(ctx context.Context, opts *RunOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadRunConfig(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if opts.LogFile == "" && cfg.Log.File != "" {
		closer, err := setupLogging(cfg.Log, opts.Verbose, cmd.ErrOrStderr())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to set up logging", err)
		}
		defer closer.Close()
	}

	wl := &workload{limit: int64(opts.Cycles)}
	dev := newDevice(cfg, mpsl.WithISRHook(irq.LineRadio, wl.isr))
	wl.layer = dev.layer

	runCtx, cancel := context.WithTimeout(ctx, cfg.Simulation.RunFor)
	defer cancel()

	var (
		asserts    atomic.Int64
		lastAssert atomic.Pointer[string]
	)
	// Runs under the layer's assert lock: record and stop, never call back.
	handler := mpsl.AssertFunc(func(file string, line uint32) {
		at := fmt.Sprintf("%s:%d", file, line)
		lastAssert.Store(&at)
		asserts.Add(1)
		slog.Error("assert", "file", file, "line", line)
		cancel()
	})

	if err := dev.layer.Initialize(cfg.LFClock, cfg.LowPrioritySignal, handler); err != nil {
		_ = formatter.Error(ErrCodeInitialize, err.Error(), nil)
		return WrapExitError(ExitFailure, "initialize failed", err)
	}
	session := dev.layer.Stats().Session
	formatter.Session = session
	formatter.VerboseLog("session %s: lf=%s signal=%d", session, cfg.EffectiveLF(), cfg.LowPrioritySignal)

	wl.done = cancel
	if err := wl.start(); err != nil {
		return WrapExitError(ExitFailure, "hf request failed", err)
	}

	started := time.Now()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = dev.line.Serve(runCtx, dev.layer.ProcessPending)
	}()
	go func() {
		defer wg.Done()
		_ = dev.rtc.Run(runCtx)
	}()
	<-runCtx.Done()
	wg.Wait()
	elapsed := time.Since(started)

	// Only this goroutine runs low-priority code now.
	for dev.layer.Stats().HFRequests > 0 {
		if err := dev.layer.HFRelease(); err != nil {
			break
		}
	}
	dev.layer.Uninitialize()

	events := dev.buf.Events()
	summary := trace.Summarize(events)
	result := RunResult{
		Session:      session,
		LFConfig:     cfg.EffectiveLF().String(),
		Signal:       cfg.LowPrioritySignal,
		Duration:     elapsed.Round(time.Millisecond).String(),
		Cycles:       wl.cycles.Load(),
		HFStarts:     dev.clk.HFStarts(),
		Calibrations: dev.clk.Calibrations(),
		Drains:       dev.line.Handled(),
		Asserts:      asserts.Load(),
		Events:       summary.Total,
		Kinds:        summary.ByKind,
	}

	if cfg.Trace.Path != "" {
		n, err := storeRun(cfg, session, dev.buf)
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to store trace", err)
		}
		result.Stored = n
	}

	var report AssertReport
	if at := lastAssert.Load(); at != nil {
		report = AssertReport{Count: result.Asserts, Last: *at}
	}
	return reportRun(formatter, result, report)
}

// reportRun writes the run result. A run in which the assert handler fired
// is reported as an E102 error and exits with ExitFailure.
func reportRun(f *OutputFormatter, r RunResult, report AssertReport) error {
	if report.Count == 0 {
		return outputRunResult(f, r)
	}
	if f.Format != "json" {
		if err := outputRunResult(f, r); err != nil {
			return err
		}
	}
	if err := f.Asserted(report, r); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("assert handler fired %d time(s)", report.Count))
}

func loadRunConfig(opts *RunOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}
	if opts.For > 0 {
		cfg.Simulation.RunFor = opts.For
	}
	if opts.Database != "" {
		cfg.Trace.Path = opts.Database
	}
	return &cfg, nil
}

// device wires a layer to timed simulated peripherals.
type device struct {
	layer *mpsl.Layer
	clk   *sim.Clock
	line  *sim.SignalLine
	rtc   *sim.RTC
	buf   *trace.Buffer
}

func newDevice(cfg *config.Config, opts ...mpsl.Option) *device {
	d := &device{
		clk: sim.NewClock(
			sim.WithHFStartup(cfg.Simulation.HFStartup),
			sim.WithLFStartup(cfg.Simulation.LFStartup),
			sim.WithCalibrationTime(cfg.Simulation.CalibrationTime),
		),
		line: sim.NewSignalLine(),
		buf:  trace.NewBuffer(),
	}

	opts = append([]mpsl.Option{
		mpsl.WithRecorder(d.buf),
		mpsl.WithThermometer(sim.NewThermometer(cfg.Simulation.Temperature)),
	}, opts...)

	d.layer = mpsl.New(d.clk, d.line, opts...)
	d.clk.Attach(d.layer.IRQClock)
	d.rtc = sim.NewRTC(cfg.Simulation.RTCPeriod, d.layer.IRQRTC0)
	return d
}

// workload is a radio protocol stand-in. Each cycle requests the HF clock,
// raises a radio interrupt once it is ready and releases the clock from the
// radio handler's low-priority continuation.
type workload struct {
	layer  *mpsl.Layer
	limit  int64
	done   func()
	cycles atomic.Int64
}

func (w *workload) start() error {
	return w.layer.HFRequest(w.ready)
}

// ready runs in the low tier.
func (w *workload) ready() {
	w.layer.IRQRadio()
}

// isr is the radio interrupt hook.
func (w *workload) isr() func() {
	return w.finish
}

// finish runs in the low tier.
func (w *workload) finish() {
	if err := w.layer.HFRelease(); err != nil {
		slog.Error("workload release failed", "error", err)
		return
	}
	n := w.cycles.Add(1)
	if w.limit > 0 && n >= w.limit {
		slog.Debug("workload complete", "cycles", n)
		w.done()
		return
	}
	if err := w.start(); err != nil {
		slog.Error("workload request failed", "error", err)
	}
}

func storeRun(cfg *config.Config, session string, buf *trace.Buffer) (int, error) {
	st, err := trace.Open(cfg.Trace.Path)
	if err != nil {
		return 0, err
	}
	defer st.Close()

	return trace.Flush(context.Background(), st, trace.Session{
		ID:       session,
		Label:    cfg.Trace.Label,
		LFConfig: cfg.EffectiveLF().String(),
		Signal:   int(cfg.LowPrioritySignal),
	}, buf)
}

func outputRunResult(f *OutputFormatter, r RunResult) error {
	if f.Format == "json" {
		return f.Success(r)
	}

	p := newPrinter()
	w := f.Writer
	p.Fprintf(w, "Session:      %s\n", r.Session)
	p.Fprintf(w, "LF clock:     %s (signal %d)\n", r.LFConfig, r.Signal)
	p.Fprintf(w, "Duration:     %s\n", r.Duration)
	p.Fprintf(w, "Cycles:       %d\n", r.Cycles)
	p.Fprintf(w, "HF starts:    %d\n", r.HFStarts)
	p.Fprintf(w, "Calibrations: %d\n", r.Calibrations)
	p.Fprintf(w, "Drains:       %d\n", r.Drains)
	p.Fprintf(w, "Events:       %d\n", r.Events)
	if r.Stored > 0 {
		p.Fprintf(w, "Stored:       %d\n", r.Stored)
	}
	if r.Asserts > 0 {
		p.Fprintf(w, "Asserts:      %d\n", r.Asserts)
	}
	return nil
}
