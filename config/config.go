package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ReferenceConfig holds settings for the reference imagery provider
type ReferenceConfig struct {
	Endpoint       string `yaml:"endpoint"`
	APIKey         string `yaml:"api_key"`
	Size           string `yaml:"size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LabelsConfig holds settings for the label-classification service
type LabelsConfig struct {
	Endpoint       string  `yaml:"endpoint"`
	APIKey         string  `yaml:"api_key"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxResults     int     `yaml:"max_results"`
	MinScore       float64 `yaml:"min_score"`
}

// MatchingConfig holds the feature matching policy values.
// MinMatches is the minimum accepted correspondence count: a candidate is
// accepted when at least this many cross-checked pairs survive (default 11,
// i.e. more than 10).
type MatchingConfig struct {
	KeypointCap int  `yaml:"keypoint_cap"`
	CrossCheck  bool `yaml:"cross_check"`
	MinMatches  int  `yaml:"min_matches"`
}

// ScoringConfig holds the authenticity scoring policy values
type ScoringConfig struct {
	// NoMatchScore is assigned when no candidate matches the reference imagery
	NoMatchScore int `yaml:"no_match_score"`
}

// Config carries every tunable policy value of the engine.
// No component hard-wires any of these; callers construct components from a
// Config at process start and pass them by reference.
type Config struct {
	Reference ReferenceConfig `yaml:"reference"`
	Labels    LabelsConfig    `yaml:"labels"`
	Matching  MatchingConfig  `yaml:"matching"`
	Scoring   ScoringConfig   `yaml:"scoring"`

	// Workers bounds the number of candidates evaluated in parallel.
	// Zero means "pick a CGo-safe default from the CPU count".
	Workers int `yaml:"workers"`

	// DedupDistance is the maximum difference-hash Hamming distance at which
	// a candidate counts as a perceptual duplicate of a rejected one and is
	// skipped without extraction. Negative disables the prefilter.
	DedupDistance int `yaml:"dedup_distance"`
}

// Default returns the configuration with all documented default policy values
func Default() *Config {
	cfg := &Config{}
	cfg.Reference.Endpoint = "https://maps.googleapis.com/maps/api/streetview"
	cfg.Reference.Size = "640x640"
	cfg.Reference.TimeoutSeconds = 10
	cfg.Labels.Endpoint = "https://vision.googleapis.com/v1/images:annotate"
	cfg.Labels.TimeoutSeconds = 10
	cfg.Labels.MaxResults = 20
	cfg.Labels.MinScore = 0.5
	cfg.Matching.KeypointCap = 500
	cfg.Matching.CrossCheck = true
	cfg.Matching.MinMatches = 11
	cfg.Scoring.NoMatchScore = 40
	cfg.DedupDistance = 10
	return cfg
}

// Load builds the configuration from defaults, an optional YAML file and
// environment overrides (a .env file is honored when present)
func Load(path string) (*Config, error) {
	// Load .env first so env overrides below see its values
	godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("cannot read config file %s: %v", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %v", path, err)
		}
	}

	// API keys are usually supplied via environment rather than the file
	if key := os.Getenv("STREETVIEW_API_KEY"); key != "" {
		cfg.Reference.APIKey = key
	}
	if key := os.Getenv("VISION_API_KEY"); key != "" {
		cfg.Labels.APIKey = key
	}

	return cfg, nil
}

// ReferenceTimeout returns the reference acquisition timeout as a duration
func (c *Config) ReferenceTimeout() time.Duration {
	return time.Duration(c.Reference.TimeoutSeconds) * time.Second
}

// LabelsTimeout returns the label service timeout as a duration
func (c *Config) LabelsTimeout() time.Duration {
	return time.Duration(c.Labels.TimeoutSeconds) * time.Second
}
