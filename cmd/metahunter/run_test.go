package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/metahunter/internal/config"
	"github.com/nao1215/metahunter/internal/database"
	"github.com/nao1215/metahunter/internal/integrity"
	"github.com/nao1215/metahunter/internal/log"
	"github.com/nao1215/metahunter/internal/model"
	"github.com/nao1215/metahunter/internal/runctx"
	"github.com/nao1215/metahunter/internal/testutil"
)

var testClock = runctx.FixedClock{T: time.Date(2025, 11, 20, 22, 51, 12, 0, time.UTC)}

type stubSummarizer struct{ comment string }

func (s stubSummarizer) Comment(context.Context, model.RiskSummary) (string, error) {
	return s.comment, nil
}

// writeInputs creates an input directory with a geotagged JPEG, a PDF with
// an author and a plain text file.
func writeInputs(t *testing.T, root string) string {
	t.Helper()

	dir := filepath.Join(root, "in")
	testutil.WriteFile(t, dir, "photo.jpg", testutil.JPEG(testutil.EXIF(testutil.EXIFFields{
		Make:      "Canon",
		Artist:    "Jane Doe",
		HasGPS:    true,
		Latitude:  35.6895,
		Longitude: 139.6917,
	}), ""))
	testutil.WriteFile(t, dir, "report.pdf", testutil.PDF([]testutil.PDFEntry{
		{Key: "Author", Value: "Jane Doe"},
	}, ""))
	testutil.WriteFile(t, dir, "notes.txt", []byte("plain text"))
	return dir
}

// testConfig returns a run configuration whose every output lives under root.
func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()

	cfg := config.NewConfig()
	cfg.InputDir = writeInputs(t, root)
	cfg.OutputDir = filepath.Join(root, "out")
	cfg.LogPath = filepath.Join(root, "logs", "events.jsonl")
	cfg.StatsPath = filepath.Join(root, "examples", "stats.json")
	cfg.AISummaryPath = filepath.Join(root, "examples", "ai_summary.json")
	cfg.AIReportPath = filepath.Join(root, "reports", "ai_report.md")
	cfg.DBDir = filepath.Join(root, "db")
	cfg.SaveToDB = false
	return cfg
}

func TestRunPipeline(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := testConfig(t, root)
	cfg.UseAI = true
	cfg.SaveToDB = true
	cfg.IntegrityReportPath = filepath.Join(root, "reports", "integrity.json")

	var out bytes.Buffer
	err := runPipeline(t.Context(), cfg, runOptions{
		logger:     log.NewDiscardLogger(),
		clock:      testClock,
		out:        &out,
		summarizer: stubSummarizer{comment: "Remove the GPS position from photo.jpg."},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("cleaned copies", func(t *testing.T) {
		for _, name := range []string{"photo.jpg", "report.pdf", "notes.txt"} {
			if _, err := os.Stat(filepath.Join(cfg.OutputDir, name)); err != nil {
				t.Errorf("%s was not written: %v", name, err)
			}
		}
	})

	t.Run("artifacts", func(t *testing.T) {
		for _, path := range []string{cfg.StatsPath, cfg.AISummaryPath, cfg.AIReportPath} {
			if _, err := os.Stat(path); err != nil {
				t.Errorf("%s was not written: %v", path, err)
			}
		}

		data, err := os.ReadFile(cfg.IntegrityReportPath)
		if err != nil {
			t.Fatalf("integrity report missing: %v", err)
		}
		var ir integrity.IntegrityReport
		if err := json.Unmarshal(data, &ir); err != nil {
			t.Fatalf("invalid integrity report: %v", err)
		}
		if ir.Algorithm != "SHA-256" || ir.FileCount() != 3 {
			t.Errorf("unexpected integrity report: %+v", ir)
		}
		hashes := make([]string, len(ir.Files))
		for i, f := range ir.Files {
			hashes[i] = f.Hash
		}
		root, err := integrity.BuildMerkleRoot(hashes)
		if err != nil {
			t.Fatal(err)
		}
		if root != ir.MerkleRoot {
			t.Errorf("merkle_root = %s, recomputed %s", ir.MerkleRoot, root)
		}
	})

	t.Run("event log", func(t *testing.T) {
		data, err := os.ReadFile(cfg.LogPath)
		if err != nil {
			t.Fatalf("event log missing: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if !strings.Contains(lines[0], `"event":"run_started"`) {
			t.Errorf("first event = %s", lines[0])
		}
		if !strings.Contains(lines[len(lines)-1], `"event":"run_finished"`) {
			t.Errorf("last event = %s", lines[len(lines)-1])
		}
		if !strings.Contains(string(data), `"run_id":"20251120T225112Z"`) {
			t.Error("events do not carry the run id")
		}
	})

	t.Run("terminal output", func(t *testing.T) {
		got := out.String()
		for _, want := range []string{
			"[cleaner] OK ",
			"[analyzer] Stats saved to " + cfg.StatsPath,
			"[ai_client] AI report in " + cfg.AIReportPath,
			"[integrity] Integrity report: " + cfg.IntegrityReportPath,
			"[metahunter] Run complete. Files processed: 3",
			"RISK SUMMARY",
			"Remove the GPS position from photo.jpg.",
		} {
			if !strings.Contains(got, want) {
				t.Errorf("output does not contain %q:\n%s", want, got)
			}
		}
		if strings.Contains(got, "\x1b[") {
			t.Error("output should not be colored")
		}
	})

	t.Run("history", func(t *testing.T) {
		db, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false})
		if err != nil {
			t.Fatalf("history database missing: %v", err)
		}
		defer db.Close()

		record, err := db.GetRun(context.Background(), "20251120T225112Z")
		if err != nil {
			t.Fatalf("run not recorded: %v", err)
		}
		if record.FileCount != 3 || record.Summary.TotalFiles != 3 {
			t.Errorf("unexpected record: %+v", record)
		}
	})
}

func TestRunPipeline_NoInputFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := testConfig(t, root)
	cfg.InputDir = filepath.Join(root, "empty")
	if err := os.Mkdir(cfg.InputDir, 0o750); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := runPipeline(t.Context(), cfg, runOptions{
		logger: log.NewDiscardLogger(),
		clock:  testClock,
		out:    &out,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(out.String(), "No files found in") {
		t.Errorf("unexpected output: %q", out.String())
	}
	if strings.Contains(out.String(), "RISK SUMMARY") {
		t.Error("summary should not be printed without input files")
	}
	if _, err := os.Stat(cfg.StatsPath); !os.IsNotExist(err) {
		t.Error("stats should not be written without input files")
	}

	data, err := os.ReadFile(cfg.LogPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"event":"no_input_files"`) || !strings.Contains(string(data), `"level":"WARNING"`) {
		t.Errorf("expected a no_input_files warning, got %s", data)
	}
}

func TestRunPipeline_IntegrityFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := testConfig(t, root)

	// A directory in place of the report file makes the write fail.
	cfg.IntegrityReportPath = filepath.Join(root, "blocked")
	if err := os.Mkdir(cfg.IntegrityReportPath, 0o750); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err := runPipeline(t.Context(), cfg, runOptions{
		logger: log.NewDiscardLogger(),
		clock:  testClock,
		out:    &out,
	})
	if err != nil {
		t.Fatalf("integrity failure must not fail the run: %v", err)
	}
	if !strings.Contains(out.String(), "[integrity] ERROR") {
		t.Errorf("expected an integrity error line:\n%s", out.String())
	}

	data, err := os.ReadFile(cfg.LogPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"event":"integrity_report_error"`) {
		t.Error("expected integrity_report_error event")
	}
	if !strings.Contains(string(data), `"event":"run_finished"`) {
		t.Error("run should still finish")
	}
}

func TestRunCmd(t *testing.T) {
	t.Parallel()

	t.Run("runs through the root command", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		in := writeInputs(t, root)
		var out bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{
			"run",
			"--input-dir", in,
			"--output-dir", filepath.Join(root, "out"),
			"--log-path", filepath.Join(root, "events.jsonl"),
			"--stats-path", filepath.Join(root, "stats.json"),
			"--no-history",
			"--dry-run",
			"--color", "off",
		})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out.String(), "Files processed: 3") {
			t.Errorf("unexpected output:\n%s", out.String())
		}

		// Dry runs copy the input unchanged.
		original, err := os.ReadFile(filepath.Join(in, "photo.jpg"))
		if err != nil {
			t.Fatal(err)
		}
		copied, err := os.ReadFile(filepath.Join(root, "out", "photo.jpg"))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(original, copied) {
			t.Error("dry run modified the file")
		}
	})

	tests := []struct {
		name    string
		args    func(root string) []string
		wantErr error
	}{
		{
			name:    "missing input dir",
			args:    func(root string) []string { return []string{"run", "--output-dir", root} },
			wantErr: config.ErrNoInputDir,
		},
		{
			name:    "missing output dir",
			args:    func(root string) []string { return []string{"run", "--input-dir", root} },
			wantErr: config.ErrNoOutputDir,
		},
		{
			name:    "same directories",
			args:    func(root string) []string { return []string{"run", "--input-dir", root, "--output-dir", root} },
			wantErr: config.ErrSameInputOutput,
		},
		{
			name: "invalid workers",
			args: func(root string) []string {
				return []string{"run", "--input-dir", root, "--output-dir", root + "-out", "--workers", "0"}
			},
			wantErr: config.ErrInvalidWorkers,
		},
		{
			name: "unknown fingerprint",
			args: func(root string) []string {
				return []string{"run", "--input-dir", root, "--output-dir", root + "-out", "--fingerprint", "md5"}
			},
			wantErr: config.ErrInvalidFingerprint,
		},
		{
			name: "missing explicit config file",
			args: func(root string) []string {
				return []string{"run", "--input-dir", root, "--output-dir", root + "-out",
					"--config", filepath.Join(root, "nope.yaml")}
			},
			wantErr: config.ErrConfigNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := NewRootCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args(t.TempDir()))

			if err := cmd.Execute(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRunCmd_ConfigFile(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	configPath := filepath.Join(root, "metahunter.yaml")
	content := "workers: 7\nfingerprints:\n  - blake3\nhistory:\n  enabled: false\n"
	if err := os.WriteFile(configPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("file values fill unset flags", func(t *testing.T) {
		t.Parallel()

		cmd := NewRunCmd()
		if err := cmd.ParseFlags([]string{"--config", configPath}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildRunConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Workers != 7 {
			t.Errorf("workers = %d, want 7", cfg.Workers)
		}
		if len(cfg.Fingerprints) != 1 || cfg.Fingerprints[0] != "blake3" {
			t.Errorf("fingerprints = %v", cfg.Fingerprints)
		}
		if cfg.SaveToDB {
			t.Error("history should be disabled by the file")
		}
	})

	t.Run("flags win over the file", func(t *testing.T) {
		t.Parallel()

		cmd := NewRunCmd()
		if err := cmd.ParseFlags([]string{"--config", configPath, "--workers", "2"}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildRunConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Workers != 2 {
			t.Errorf("workers = %d, want 2", cfg.Workers)
		}
	})
}
