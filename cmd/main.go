package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/samaelod/aileron/capture"
	"github.com/samaelod/aileron/config"
	"github.com/samaelod/aileron/logging"
	"github.com/samaelod/aileron/mavlink"
	"github.com/samaelod/aileron/scenario"
	"github.com/samaelod/aileron/session"
	"github.com/samaelod/aileron/tui"
)

var version = "dev"

type runFlags struct {
	configPath    string
	server        string
	telemetryPath string
	capturePath   string
	logsDir       string
	verbose       bool
	jsonLogs      bool
	noJoystick    bool
}

func main() {
	var flags runFlags

	rootCmd := &cobra.Command{
		Use:   "aileron",
		Short: "Terminal console for a SITL flight simulator",
		Long: `Terminal console for a software-in-the-loop flight simulator.

Starts a session from the startup form or a Lua scenario, flies it from
the keyboard or a joystick, shows the instruments and traces the MAVLink
frames exchanged with the autopilot.

Example usage:
  aileron --server ws://localhost:8080 --capture logs/session.pcap`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(flags)
		},
	}

	rootCmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Config file (JSON or YAML)")
	rootCmd.Flags().StringVarP(&flags.server, "server", "s", "", "Simulator backend URL")
	rootCmd.Flags().StringVar(&flags.telemetryPath, "telemetry-path", "", "Telemetry channel path")
	rootCmd.Flags().StringVar(&flags.capturePath, "capture", "", "Record telemetry frames to a pcap file")
	rootCmd.Flags().StringVarP(&flags.logsDir, "log-dir", "l", "", "Log directory")
	rootCmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose logging")
	rootCmd.Flags().BoolVar(&flags.jsonLogs, "json-logs", false, "Write logs as JSON")
	rootCmd.Flags().BoolVar(&flags.noJoystick, "no-joystick", false, "Do not look for a joystick")

	rootCmd.AddCommand(scenarioCmd(), captureCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(flags runFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.server != "" {
		cfg.Server = flags.server
	}
	if flags.telemetryPath != "" {
		cfg.TelemetryPath = flags.telemetryPath
	}
	if flags.capturePath != "" {
		cfg.Capture = flags.capturePath
	}
	if flags.logsDir != "" {
		cfg.LogsDir = flags.logsDir
	}
	if flags.verbose {
		cfg.LogLevel = "debug"
	}

	// Fail on a bad backend URL before the terminal is taken over.
	if _, err := cfg.ControlURL(); err != nil {
		return err
	}
	if _, err := cfg.TelemetryURL(); err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Options{
		Dir:   cfg.LogsDir,
		Level: cfg.LogLevel,
		JSON:  flags.jsonLogs,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	logger.WithFields(logrus.Fields{
		"version": version,
		"server":  cfg.Server,
	}).Info("Starting console")

	opts := tui.Options{
		Config:     cfg,
		Logger:     logger,
		Version:    version,
		NoJoystick: flags.noJoystick,
	}

	if cfg.Capture != "" {
		w, err := capture.Create(cfg.Capture, logger)
		if err != nil {
			return err
		}
		defer w.Close()
		opts.Capture = w
	}

	return tui.Run(opts)
}

func scenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Work with Lua scenario files",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <file>",
		Short: "Write a scenario with the default starting conditions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flag := os.O_CREATE | os.O_WRONLY | os.O_EXCL
			if force {
				flag = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
			}
			f, err := os.OpenFile(args[0], flag, 0644)
			if err != nil {
				return err
			}
			if err := scenario.Template(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	checkCmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Parse scenarios and print their starting conditions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				s, err := scenario.Read(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				sc := s.Session
				fmt.Fprintf(out, "%s: %q alt=%.0fft speed=%.0fkts hdg=%.0f throttle=%d%% engine=%t\n",
					path, s.Name, sc.Altitude, sc.Speed, sc.Heading, sc.Throttle, sc.Engine)
			}
			return nil
		},
	}

	cmd.AddCommand(initCmd, checkCmd)
	return cmd
}

func captureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Inspect telemetry captures",
	}

	var detail bool
	dumpCmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "Print the frames of a capture written with --capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := capture.Read(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, r := range records {
				name := fmt.Sprintf("%d bytes", len(r.Data))
				if r.Frame != nil {
					name = r.Frame.Name()
				}
				fmt.Fprintf(out, "%5d %s +%-8s %s %s\n",
					i+1, r.At.Format("15:04:05.000"), r.Delta, r.Direction, name)
				if detail && r.Frame != nil {
					fmt.Fprintln(out, mavlink.Describe(r.Frame))
				}
			}
			return nil
		},
	}
	dumpCmd.Flags().BoolVarP(&detail, "detail", "d", false, "Print the decoded header of each frame")

	cmd.AddCommand(dumpCmd)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "aileron %s (default state period %s)\n", version, session.DefaultStatePeriod)
		},
	}
}
