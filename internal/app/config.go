package app

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds everything an App instance needs to run one mode.
type Config struct {
	Mode       string   // compile, schedule, execute or describe
	GraphPath  string   // hardware graph HCL file
	Procedures []string // procedure or artifact HCL files
	OutputPath string   // artifact destination; empty writes next to the input

	LogFormat string
	LogLevel  string

	// Scheduling.
	Strategy    string
	Generations int
	Seed        int64
	Workers     int

	// Execution.
	Driver       string // sim or remote
	RigURL       string
	RigNamespace string
	RigInsecure  bool
}

// NewConfig validates a config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Mode {
	case "compile", "schedule", "execute", "describe":
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
	}
	if cfg.GraphPath == "" {
		return nil, errors.New("a hardware graph file is required (-graph)")
	}
	if len(cfg.Procedures) == 0 {
		return nil, errors.New("at least one procedure file is required")
	}
	if cfg.Mode == "execute" && len(cfg.Procedures) != 1 {
		return nil, errors.New("execute takes exactly one artifact")
	}

	if cfg.Strategy == "" {
		cfg.Strategy = "genetic_algorithm"
	}
	if cfg.Generations == 0 {
		cfg.Generations = 200
	}
	if cfg.Driver == "" {
		cfg.Driver = "sim"
	}
	if cfg.Driver == "remote" && cfg.RigURL == "" {
		return nil, errors.New("remote driver requires -rig-url")
	}
	return &cfg, nil
}

// FileConfig is the optional YAML defaults file. Flags always win over
// file values.
type FileConfig struct {
	LogFormat    string `yaml:"log_format"`
	LogLevel     string `yaml:"log_level"`
	Strategy     string `yaml:"strategy"`
	Generations  int    `yaml:"generations"`
	Seed         int64  `yaml:"seed"`
	Workers      int    `yaml:"workers"`
	Driver       string `yaml:"driver"`
	RigURL       string `yaml:"rig_url"`
	RigNamespace string `yaml:"rig_namespace"`
	RigInsecure  bool   `yaml:"rig_insecure"`
}

// LoadFileConfig reads the YAML defaults file.
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &fc, nil
}
