// Package config loads pipeline configuration from YAML with environment
// overrides for credentials.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all earlywarn configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Graph     GraphConfig     `yaml:"graph"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Update    UpdateConfig    `yaml:"update"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Output    OutputConfig    `yaml:"output"`
}

// LLMConfig configures the generation gateway.
type LLMConfig struct {
	APIKey          string  `yaml:"api_key"`
	Model           string  `yaml:"model"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
}

// GraphConfig bounds the workflow engine.
type GraphConfig struct {
	// MaxCorrectionAttempts caps the synthesis/skeptic loop. Exhausting it is
	// a graceful exit with a warning, not an error.
	MaxCorrectionAttempts int `yaml:"max_correction_attempts"`
	// MaxSteps is the hard ceiling on total graph steps; exceeding it aborts
	// the run.
	MaxSteps int `yaml:"max_steps"`
}

// RetrievalConfig configures the external data sources.
type RetrievalConfig struct {
	ReliefWeb ReliefWebConfig `yaml:"reliefweb"`
	GDELT     GDELTConfig     `yaml:"gdelt"`
	Seerist   SeeristConfig   `yaml:"seerist"`
}

// ReliefWebConfig configures the curated-report source.
type ReliefWebConfig struct {
	AppName     string `yaml:"appname"`
	BaseURL     string `yaml:"base_url"`
	MaxPerQuery int    `yaml:"max_per_query"`
}

// GDELTConfig configures the news-search source.
type GDELTConfig struct {
	BaseURL    string `yaml:"base_url"`
	MaxRecords int    `yaml:"max_records"`
}

// SeeristConfig configures the analyst-report source.
type SeeristConfig struct {
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	PageSize int    `yaml:"page_size"`
}

// UpdateConfig sets the default update window.
type UpdateConfig struct {
	PeriodDays int `yaml:"period_days"`
}

// ArchiveConfig configures the SQLite run archive.
type ArchiveConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// OutputConfig configures where batch reports are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Model:           "gemini-2.5-pro",
			Temperature:     0,
			MaxOutputTokens: 8192,
		},
		Graph: GraphConfig{
			MaxCorrectionAttempts: 3,
			MaxSteps:              50,
		},
		Retrieval: RetrievalConfig{
			ReliefWeb: ReliefWebConfig{
				AppName:     "wfp-early-warnings",
				BaseURL:     "https://api.reliefweb.int/v2/reports",
				MaxPerQuery: 50,
			},
			GDELT: GDELTConfig{
				BaseURL:    "https://api.gdeltproject.org/api/v2/doc/doc",
				MaxRecords: 50,
			},
			Seerist: SeeristConfig{
				BaseURL:  "https://api.seerist.com/hyperionapi/v1/wod",
				PageSize: 50,
			},
		},
		Update: UpdateConfig{PeriodDays: 60},
		Archive: ArchiveConfig{
			DatabasePath: "earlywarn.db",
		},
		Output: OutputConfig{Dir: "./active_warnings_outputs"},
	}
}

// Load reads YAML config from path, layered over defaults. A missing file is
// not an error: defaults plus environment overrides apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays credentials from the environment; env vars win over file
// values so deployments never need keys on disk.
func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("RELIEFWEB_APPNAME"); v != "" {
		c.Retrieval.ReliefWeb.AppName = v
	}
	if v := os.Getenv("SEERIST_API_KEY"); v != "" {
		c.Retrieval.Seerist.APIKey = v
	}
}
