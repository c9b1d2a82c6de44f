package config

import "time"

// File is the structure of the .metahunter configuration file.
// Every field is optional; zero values leave the defaults alone.
type File struct {
	// Workers overrides DefaultWorkers.
	Workers int `yaml:"workers,omitempty"`

	// Fingerprints lists extra hash algorithms (blake2b-256, blake3).
	Fingerprints []string `yaml:"fingerprints,omitempty"`

	// Recursive walks input directories recursively.
	Recursive bool `yaml:"recursive,omitempty"`

	// LogPath overrides DefaultLogPath.
	LogPath string `yaml:"log_path,omitempty"`

	// AI configures the remote summarizer.
	AI AIFile `yaml:"ai,omitempty"`

	// Risk tunes the risk heuristics.
	Risk RiskFile `yaml:"risk,omitempty"`

	// History configures the run history database.
	History HistoryFile `yaml:"history,omitempty"`
}

// AIFile is the ai section of the config file.
type AIFile struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	Model    string `yaml:"model,omitempty"`
	// APIKeyEnv names the environment variable that holds the API key.
	// The key itself never lives in the config file.
	APIKeyEnv string        `yaml:"api_key_env,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// RiskFile is the risk section of the config file.
type RiskFile struct {
	// ExtraAIKeywords are matched in addition to the built-in generator names.
	ExtraAIKeywords []string `yaml:"extra_ai_keywords,omitempty"`
}

// HistoryFile is the history section of the config file.
type HistoryFile struct {
	// Enabled turns run recording on or off. Nil keeps the default.
	Enabled *bool `yaml:"enabled,omitempty"`
	// DBDir overrides the XDG data directory.
	DBDir string `yaml:"db_dir,omitempty"`
}
