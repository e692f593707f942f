package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/sibexico/HexPager/monitoring"
	"github.com/sibexico/HexPager/pager"
	"github.com/sibexico/HexPager/recording"
)

type simulateOptions struct {
	tracePath     string
	configPath    string
	envFiles      []string
	frames        uint32
	sweepInterval time.Duration
	noSweep       bool
	pacingBatch   uint32
	pacingPause   time.Duration
	logLevel      string
	record        string
	monitor       bool
	monitorPort   int
	openBrowser   bool
	jsonOutput    bool
}

func newSimulateCmd() *cobra.Command {
	opts := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run an NRU simulation over a trace file.",
		Long: "`simulate --trace FILE --frames N` replays the trace and prints hits, misses, " +
			"the hit ratio and the estimated access time. Plain, LZ4 and Snappy traces are accepted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.tracePath, "trace", "", "Trace file to simulate")
	f.StringVar(&opts.configPath, "config", "", "JSON configuration file")
	f.StringSliceVar(&opts.envFiles, "env-file", nil, "Environment files to load (default .env)")
	f.Uint32Var(&opts.frames, "frames", 0, "Number of physical frames")
	f.DurationVar(&opts.sweepInterval, "sweep-interval", 0, "Period of the reference-bit sweeper")
	f.BoolVar(&opts.noSweep, "no-sweep", false, "Disable the reference-bit sweeper")
	f.Uint32Var(&opts.pacingBatch, "pacing-batch", 0, "References between engine pauses")
	f.DurationVar(&opts.pacingPause, "pacing-pause", 0, "Length of each engine pause (0 yields)")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&opts.record, "record", "", "Record the report to NAME.sqlite3 (empty picks a name)")
	f.BoolVar(&opts.monitor, "monitor", false, "Serve progress over HTTP while running")
	f.IntVar(&opts.monitorPort, "monitor-port", 0, "Port of the monitoring server (implies --monitor)")
	f.BoolVar(&opts.openBrowser, "open-browser", false, "Open the monitoring page in a browser")
	f.BoolVar(&opts.jsonOutput, "json", false, "Print the report as JSON")

	cmd.MarkFlagRequired("trace")

	return cmd
}

// loadConfig layers defaults, the config file, environment and flags
func loadConfig(cmd *cobra.Command, opts *simulateOptions) (*pager.Config, error) {
	if err := pager.LoadDotEnv(opts.envFiles...); err != nil {
		return nil, err
	}

	config := pager.DefaultConfig()
	if opts.configPath != "" {
		var err error
		config, err = pager.LoadConfigFromFile(opts.configPath)
		if err != nil {
			return nil, err
		}
	}
	pager.ApplyEnv(config)

	flags := cmd.Flags()
	if flags.Changed("frames") {
		config.NumFrames = opts.frames
	}
	if flags.Changed("sweep-interval") {
		config.SweepIntervalUs = uint32(opts.sweepInterval.Microseconds())
	}
	if opts.noSweep {
		config.SweepEnabled = false
	}
	if flags.Changed("pacing-batch") {
		config.PacingBatch = opts.pacingBatch
	}
	if flags.Changed("pacing-pause") {
		config.PacingPauseUs = uint32(opts.pacingPause.Microseconds())
	}
	if flags.Changed("log-level") {
		config.LogLevel = opts.logLevel
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func runSimulate(cmd *cobra.Command, opts *simulateOptions) error {
	config, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger := pager.NewLogger(config.LogLevel, cmd.ErrOrStderr())
	sessionOpts := []pager.SessionOption{pager.WithLogger(logger)}

	var monitor *monitoring.Monitor
	if opts.monitor || cmd.Flags().Changed("monitor-port") {
		monitor = monitoring.NewMonitor().
			WithPortNumber(opts.monitorPort).
			WithBrowser(opts.openBrowser).
			WithLogger(logger)
		sessionOpts = append(sessionOpts, pager.WithObserver(monitor))
	}

	session, err := pager.NewSession(config, sessionOpts...)
	if err != nil {
		return err
	}

	if monitor != nil {
		monitor.RegisterSession(session)
		if _, err := monitor.StartServer(); err != nil {
			return err
		}
		defer monitor.Close()
	}

	logger.Info("starting simulation",
		slog.String("session", session.ID()),
		slog.String("trace", opts.tracePath),
		slog.Uint64("frames", uint64(config.NumFrames)),
		slog.Bool("sweep", config.SweepEnabled),
	)

	report, err := session.Run(pager.FileSource{Path: opts.tracePath})
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("record") {
		if err := recordReport(opts.record, report); err != nil {
			return err
		}
	}

	return printReport(cmd, report, opts.jsonOutput)
}

func recordReport(name string, report *pager.Report) error {
	recorder, err := recording.New(name)
	if err != nil {
		return err
	}

	writer, err := recording.NewReportWriter(recorder)
	if err != nil {
		recorder.Close()
		return err
	}
	defer writer.Close()

	return writer.Write(report)
}

func printReport(cmd *cobra.Command, report *pager.Report, asJSON bool) error {
	out := cmd.OutOrStdout()

	if !asJSON {
		_, err := report.WriteTo(out)
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
