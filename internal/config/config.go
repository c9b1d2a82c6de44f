package config

import (
	"errors"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/metahunter/internal/digest"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "metahunter"

	// DefaultWorkers is the number of files analyzed concurrently.
	// Analysis is I/O bound on most disks, so a small pool saturates them
	// without thrashing on spinning media.
	DefaultWorkers = 4

	// DefaultLogPath is the JSONL event log used when --log-path is not given.
	DefaultLogPath = "logs/metahunter.jsonl"

	// DefaultAIEndpoint is an OpenAI compatible chat completions endpoint.
	DefaultAIEndpoint = "https://api.openai.com/v1/chat/completions"

	// DefaultAIModel is the model asked for the optional risk commentary.
	DefaultAIModel = "gpt-4o-mini"

	// DefaultAIAPIKeyEnv is the environment variable holding the API key.
	DefaultAIAPIKeyEnv = "OPENAI_API_KEY"

	// DefaultAITimeout bounds one summarizer request.
	DefaultAITimeout = 60 * time.Second

	// HistoryDBName is the SQLite file name inside DBDir.
	HistoryDBName = "history.db"
)

// Config holds all options of one metahunter invocation.
// It is populated from CLI flags and the optional config file and then
// passed down explicitly; nothing reads it from global state.
//
// Design decision: a single flat struct, as the option count is small.
type Config struct {
	// InputDir holds the raw files to process.
	InputDir string

	// OutputDir receives the cleaned copies. It must differ from InputDir.
	OutputDir string

	// LogPath is the JSONL event log. Events are appended.
	LogPath string

	// Recursive walks InputDir recursively instead of only its top level.
	Recursive bool

	// DryRun copies files without stripping anything.
	DryRun bool

	// Workers bounds concurrent per-file analysis.
	Workers int

	// Fingerprints lists extra hash algorithms recorded per file.
	Fingerprints []string

	// Verbose enables debug logging on the terminal.
	Verbose bool

	// UseAI writes the risk summary and the Markdown analysis report.
	// The remote commentary is added only when an API key is available.
	UseAI bool

	// StatsPath, AISummaryPath and AIReportPath override the run defaults
	// when not empty.
	StatsPath     string
	AISummaryPath string
	AIReportPath  string

	// IntegrityReportPath enables the integrity report when not empty.
	IntegrityReportPath string

	// AIEndpoint, AIModel and AIAPIKeyEnv configure the remote summarizer.
	AIEndpoint  string
	AIModel     string
	AIAPIKeyEnv string
	AITimeout   time.Duration

	// ExtraAIKeywords extend the AI generation heuristic.
	ExtraAIKeywords []string

	// ConfigFilePath is the config file given with --config.
	// When empty, .metahunter is searched in the current and home directory.
	ConfigFilePath string

	// DBDir is the directory holding the run history database.
	DBDir string

	// SaveToDB records every run in the history database.
	SaveToDB bool
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		LogPath:     DefaultLogPath,
		Workers:     DefaultWorkers,
		AIEndpoint:  DefaultAIEndpoint,
		AIModel:     DefaultAIModel,
		AIAPIKeyEnv: DefaultAIAPIKeyEnv,
		AITimeout:   DefaultAITimeout,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// XDGDataDir returns the metahunter data directory,
// e.g. ~/.local/share/metahunter on Linux.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the metahunter config directory.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// HistoryDBPath returns the history database location.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DBDir, HistoryDBName)
}

// ApplyFile copies the values set in f into c for every option the user
// did not pass explicitly. explicit reports whether a CLI flag was set.
func (c *Config) ApplyFile(f *File, explicit func(flag string) bool) {
	if f == nil {
		return
	}
	if explicit == nil {
		explicit = func(string) bool { return false }
	}

	if f.Workers > 0 && !explicit("workers") {
		c.Workers = f.Workers
	}
	if len(f.Fingerprints) > 0 && !explicit("fingerprint") {
		c.Fingerprints = append([]string(nil), f.Fingerprints...)
	}
	if f.Recursive && !explicit("recursive") {
		c.Recursive = true
	}
	if f.LogPath != "" && !explicit("log-path") {
		c.LogPath = f.LogPath
	}
	if f.AI.Endpoint != "" {
		c.AIEndpoint = f.AI.Endpoint
	}
	if f.AI.Model != "" {
		c.AIModel = f.AI.Model
	}
	if f.AI.APIKeyEnv != "" {
		c.AIAPIKeyEnv = f.AI.APIKeyEnv
	}
	if f.AI.Timeout > 0 {
		c.AITimeout = f.AI.Timeout
	}
	c.ExtraAIKeywords = append(c.ExtraAIKeywords, f.Risk.ExtraAIKeywords...)
	if f.History.Enabled != nil && !explicit("no-history") {
		c.SaveToDB = *f.History.Enabled
	}
	if f.History.DBDir != "" {
		c.DBDir = f.History.DBDir
	}
}

// Validate checks the options of a `run` invocation and returns the first
// problem found.
//
// Design decision: validation happens once after flag parsing so a bad
// option fails before any file is touched.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return ErrNoInputDir
	}
	if c.OutputDir == "" {
		return ErrNoOutputDir
	}
	if samePath(c.InputDir, c.OutputDir) {
		return ErrSameInputOutput
	}
	if c.LogPath == "" {
		return ErrNoLogPath
	}
	if err := c.ValidateAnalysis(); err != nil {
		return err
	}
	if c.AITimeout <= 0 {
		return ErrInvalidAITimeout
	}
	return nil
}

// ValidateAnalysis checks only the options that analysis uses.
// It is what `scan` needs, since scan has no output directory.
func (c *Config) ValidateAnalysis() error {
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if _, err := digest.ParseAlgorithms(c.Fingerprints); err != nil {
		return errors.Join(ErrInvalidFingerprint, err)
	}
	return nil
}

// FingerprintAlgorithms returns the parsed extra fingerprint algorithms.
// Call it after Validate.
func (c *Config) FingerprintAlgorithms() []digest.Algorithm {
	algs, err := digest.ParseAlgorithms(c.Fingerprints)
	if err != nil {
		return nil
	}
	return algs
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
