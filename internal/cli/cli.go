// Package cli parses command-line arguments into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/mcrav/xdl/internal/app"
)

// ExitError is an error carrying a specific process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config, a
// boolean indicating the program should exit cleanly, or an ExitError.
//
// Usage is mode-first: `xdl MODE [options] FILE...`.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := flag.NewFlagSet("xdl", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
xdl - compile, schedule and execute chemistry procedures.

Usage:
  xdl compile  [options] PROCEDURE...
  xdl describe [options] PROCEDURE...
  xdl schedule [options] PROCEDURE...
  xdl execute  [options] ARTIFACT

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to a YAML defaults file. Flags override it.")
	graphFlag := flagSet.String("graph", "", "Path to the hardware graph HCL file.")
	outputFlag := flagSet.String("o", "", "Output path for artifacts or schedules.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")

	strategyFlag := flagSet.String("strategy", "", "Scheduling strategy: grid_search, random_search or genetic_algorithm.")
	generationsFlag := flagSet.Int("generations", 0, "Search rounds for sampling strategies.")
	seedFlag := flagSet.Int64("seed", 0, "Random seed for reproducible schedules.")
	workersFlag := flagSet.Int("workers", 0, "Concurrent workers for candidate evaluation. 0 uses all CPUs.")

	driverFlag := flagSet.String("driver", "", "Device driver: 'sim' or 'remote'.")
	rigURLFlag := flagSet.String("rig-url", "", "Rig server URL for the remote driver.")
	rigNamespaceFlag := flagSet.String("rig-namespace", "", "socket.io namespace on the rig server.")
	rigInsecureFlag := flagSet.Bool("rig-insecure", false, "Skip TLS verification for the rig server.")

	if len(args) == 0 {
		flagSet.Usage()
		return nil, true, nil
	}
	mode := args[0]
	if mode == "-h" || mode == "--help" || mode == "help" {
		flagSet.Usage()
		return nil, true, nil
	}

	if err := flagSet.Parse(args[1:]); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	cfg := app.Config{
		Mode:         mode,
		GraphPath:    *graphFlag,
		Procedures:   flagSet.Args(),
		OutputPath:   *outputFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		Strategy:     *strategyFlag,
		Generations:  *generationsFlag,
		Seed:         *seedFlag,
		Workers:      *workersFlag,
		Driver:       *driverFlag,
		RigURL:       *rigURLFlag,
		RigNamespace: *rigNamespaceFlag,
		RigInsecure:  *rigInsecureFlag,
	}

	if *configFlag != "" {
		fc, err := app.LoadFileConfig(*configFlag)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		applyFileDefaults(&cfg, fc, flagSet)
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return config, false, nil
}

// applyFileDefaults fills config fields from the YAML file for every flag
// the user did not set explicitly.
func applyFileDefaults(cfg *app.Config, fc *app.FileConfig, flagSet *flag.FlagSet) {
	set := map[string]bool{}
	flagSet.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["log-format"] && fc.LogFormat != "" {
		cfg.LogFormat = fc.LogFormat
	}
	if !set["log-level"] && fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if !set["strategy"] && fc.Strategy != "" {
		cfg.Strategy = fc.Strategy
	}
	if !set["generations"] && fc.Generations != 0 {
		cfg.Generations = fc.Generations
	}
	if !set["seed"] && fc.Seed != 0 {
		cfg.Seed = fc.Seed
	}
	if !set["workers"] && fc.Workers != 0 {
		cfg.Workers = fc.Workers
	}
	if !set["driver"] && fc.Driver != "" {
		cfg.Driver = fc.Driver
	}
	if !set["rig-url"] && fc.RigURL != "" {
		cfg.RigURL = fc.RigURL
	}
	if !set["rig-namespace"] && fc.RigNamespace != "" {
		cfg.RigNamespace = fc.RigNamespace
	}
	if !set["rig-insecure"] && fc.RigInsecure {
		cfg.RigInsecure = true
	}
}
