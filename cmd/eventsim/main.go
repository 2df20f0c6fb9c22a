// Package main provides the CLI entry point for eventsim, a configuration
// driven event stream simulator.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"go.jacobcolvin.com/eventsim/config"
	"go.jacobcolvin.com/eventsim/log"
	"go.jacobcolvin.com/eventsim/profile"
	"go.jacobcolvin.com/eventsim/sim"
	"go.jacobcolvin.com/eventsim/sink"
	"go.jacobcolvin.com/eventsim/version"
)

func main() {
	logCfg := log.NewConfig()
	profileCfg := profile.NewConfig()

	var (
		configPath string
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:   "eventsim",
		Short: "Generate realistic event streams from YAML configuration",
		Long: `eventsim simulates event streams on a virtual clock. A YAML configuration
declares schemas, entities, event types, and scenarios; eventsim generates a
reproducible stream of correlated events and delivers it to stdout, files, or
Kafka.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if verbose {
				logCfg.Level = string(log.LevelDebug)
			}

			handler, err := logCfg.NewHandler(os.Stderr)
			if err != nil {
				return err
			}

			slog.SetDefault(slog.New(handler))

			return nil
		},
	}

	logCfg.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulation(cmd, configPath, profileCfg)
		},
	}
	profileCfg.RegisterFlags(runCmd.Flags())

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration file",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			slog.Info("configuration is valid", "path", configPath, "version", cfg.Version)

			return nil
		},
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Display information about a configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			printInfo(cmd.OutOrStdout(), cfg)

			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "eventsim %s (revision %s, %s, %s/%s)\n",
				version.Version, version.Revision, version.GoVersion, version.GoOS, version.GoArch)
		},
	}

	for _, cmd := range []*cobra.Command{runCmd, validateCmd, infoCmd} {
		cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")
		_ = cmd.MarkFlagRequired("config")
	}

	rootCmd.AddCommand(runCmd, validateCmd, infoCmd, versionCmd)

	completionErr := logCfg.RegisterCompletions(rootCmd)
	if completionErr != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", completionErr)
	}

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runSimulation(cmd *cobra.Command, configPath string, profileCfg *profile.Config) error {
	slog.Info("loading configuration", "path", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	profiler := profileCfg.NewProfiler()

	err = profiler.Start()
	if err != nil {
		return err
	}

	defer func() {
		stopErr := profiler.Stop()
		if stopErr != nil {
			slog.Error("stopping profiler", "error", stopErr)
		}
	}()

	sinks, err := sink.FromConfig(cfg.Outputs)
	if err != nil {
		return err
	}

	defer func() {
		for _, s := range sinks {
			closeErr := s.Close()
			if closeErr != nil {
				slog.Error("closing sink", "error", closeErr)
			}
		}
	}()

	orchestrator, err := sim.New(cfg, sinks)
	if err != nil {
		return err
	}

	err = orchestrator.Initialize()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return orchestrator.Run(ctx)
}

//nolint:cyclop // Sequential report sections.
func printInfo(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Configuration Information")
	fmt.Fprintln(w, "=========================")
	fmt.Fprintf(w, "Version: %s\n", orNotSet(cfg.Version))

	s := cfg.SimulationSettings

	fmt.Fprintln(w, "\nSimulation Settings:")
	fmt.Fprintf(w, "  Duration: %s\n", orNotSet(s.Duration))

	if s.TotalEvents != nil {
		fmt.Fprintf(w, "  Total Events: %d\n", *s.TotalEvents)
	} else {
		fmt.Fprintln(w, "  Total Events: not set")
	}

	if s.RandomSeed != nil {
		fmt.Fprintf(w, "  Random Seed: %d\n", *s.RandomSeed)
	} else {
		fmt.Fprintln(w, "  Random Seed: not set")
	}

	fmt.Fprintf(w, "  Start Time: %s\n", orNotSet(s.TimeProgression.StartTime))
	fmt.Fprintf(w, "  Time Multiplier: %g\n", s.TimeProgression.Multiplier())

	if len(s.InitialEntityCounts) > 0 {
		fmt.Fprintln(w, "\nInitial Entity Counts:")

		for _, name := range sortedKeys(s.InitialEntityCounts) {
			fmt.Fprintf(w, "  %s: %d\n", name, s.InitialEntityCounts[name])
		}
	}

	fmt.Fprintf(w, "\nSchemas: %d defined\n", len(cfg.Schemas))

	fmt.Fprintf(w, "\nEntities: %d defined\n", len(cfg.Entities))

	for _, name := range sortedKeys(cfg.Entities) {
		fmt.Fprintf(w, "  - %s\n", name)
	}

	fmt.Fprintf(w, "\nEvent Types: %d defined\n", len(cfg.EventTypes))

	for _, name := range sortedKeys(cfg.EventTypes) {
		fmt.Fprintf(w, "  - %s\n", name)
	}

	if len(cfg.Scenarios) > 0 {
		fmt.Fprintf(w, "\nScenarios: %d defined\n", len(cfg.Scenarios))

		for _, name := range sortedKeys(cfg.Scenarios) {
			fmt.Fprintf(w, "  - %s\n", name)
		}
	}

	if len(cfg.Outputs) > 0 {
		fmt.Fprintf(w, "\nOutputs: %d configured\n", len(cfg.Outputs))

		for _, out := range cfg.Outputs {
			state := "enabled"
			if !out.IsEnabled() {
				state = "disabled"
			}

			fmt.Fprintf(w, "  - %s (%s)\n", out.Type, state)
		}
	}
}

func orNotSet(s string) string {
	if s == "" {
		return "not set"
	}

	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
