package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/metahunter/internal/config"
	"github.com/nao1215/metahunter/internal/testutil"
)

func executeScan(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"scan", "--color", "off"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestScanCmd(t *testing.T) {
	t.Parallel()

	t.Run("simple summary", func(t *testing.T) {
		t.Parallel()

		dir := writeInputs(t, t.TempDir())
		out, err := executeScan(t, dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"RISK SUMMARY", "Total:   3", "photo.jpg"} {
			if !strings.Contains(out, want) {
				t.Errorf("output does not contain %q:\n%s", want, out)
			}
		}
	})

	t.Run("json lists every file in order", func(t *testing.T) {
		t.Parallel()

		dir := writeInputs(t, t.TempDir())
		out, err := executeScan(t, "--json", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var stats map[string]struct {
			SHA256   string `json:"sha256"`
			Advanced struct {
				RiskScore int    `json:"risk_score"`
				RiskLevel string `json:"risk_level"`
			} `json:"advanced"`
		}
		if err := json.Unmarshal([]byte(out), &stats); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if len(stats) != 3 {
			t.Fatalf("expected 3 files, got %d", len(stats))
		}
		photo, ok := stats[filepath.Join(dir, "photo.jpg")]
		if !ok {
			t.Fatalf("photo.jpg missing from %v", stats)
		}
		// GPS, author and a JPEG container score at least 60.
		if photo.Advanced.RiskScore < 60 || photo.Advanced.RiskLevel == "LOW" {
			t.Errorf("photo.jpg risk = %d (%s), want at least 60", photo.Advanced.RiskScore, photo.Advanced.RiskLevel)
		}
		if len(photo.SHA256) != 64 {
			t.Errorf("unexpected digest %q", photo.SHA256)
		}

		notes := strings.Index(out, "notes.txt")
		pdf := strings.Index(out, "report.pdf")
		if notes < 0 || pdf < 0 || notes > pdf {
			t.Error("files should be listed in sorted path order")
		}
	})

	t.Run("single file", func(t *testing.T) {
		t.Parallel()

		path := testutil.WriteFile(t, t.TempDir(), "only.txt", []byte("hello"))
		out, err := executeScan(t, "--json", path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "only.txt") {
			t.Errorf("unexpected output: %s", out)
		}
	})

	t.Run("markdown to file", func(t *testing.T) {
		t.Parallel()

		root := t.TempDir()
		dir := writeInputs(t, root)
		outPath := filepath.Join(root, "reports", "scan.md")
		if _, err := executeScan(t, "--markdown", "-o", outPath, dir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(outPath)
		if err != nil {
			t.Fatalf("report not written: %v", err)
		}
		if !strings.Contains(string(data), "# MetaHunter - Advanced analysis report") {
			t.Errorf("unexpected report:\n%s", data)
		}
	})

	t.Run("html", func(t *testing.T) {
		t.Parallel()

		dir := writeInputs(t, t.TempDir())
		out, err := executeScan(t, "--html", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "<html") || !strings.Contains(out, "<table>") {
			t.Errorf("unexpected HTML:\n%s", out)
		}
	})

	t.Run("conflicting formats", func(t *testing.T) {
		t.Parallel()

		_, err := executeScan(t, "--json", "--html", t.TempDir())
		if !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})

	t.Run("missing target", func(t *testing.T) {
		t.Parallel()

		_, err := executeScan(t, filepath.Join(t.TempDir(), "missing"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected os.ErrNotExist, got %v", err)
		}
	})

	t.Run("requires exactly one path", func(t *testing.T) {
		t.Parallel()

		if _, err := executeScan(t); err == nil {
			t.Error("expected error without a path")
		}
	})
}
