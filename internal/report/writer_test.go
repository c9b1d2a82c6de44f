package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/metahunter/internal/integrity"
	"github.com/nao1215/metahunter/internal/model"
)

var testTime = time.Date(2025, 11, 20, 22, 51, 12, 0, time.UTC)

func analysis(path, ext string, score int, ai bool) *model.FileAnalysis {
	return &model.FileAnalysis{
		Path:      path,
		Name:      filepath.Base(path),
		Extension: ext,
		Advanced: model.AdvancedAnalysis{
			RiskScore:   score,
			RiskLevel:   model.RiskLevelForScore(score),
			AIGenerated: ai,
		},
	}
}

// createTestReport creates a report with sample data for testing.
func createTestReport(comment string) *AnalysisReport {
	stats := model.NewStats(
		analysis("out/a.pdf", ".pdf", 35, false),
		analysis("out/b.jpg", ".jpg", 85, false),
		analysis("out/c.png", ".png", 45, true),
		analysis("out/README", "", 0, false),
	)
	return NewAnalysisReport("20251120T225112Z", testTime, stats, comment)
}

func TestNewAnalysisReport(t *testing.T) {
	t.Parallel()

	r := createTestReport("")
	if r.Summary.TotalFiles != 4 || r.Summary.RiskHigh != 1 || r.Summary.RiskMedium != 1 || r.Summary.RiskLow != 2 {
		t.Errorf("unexpected summary: %+v", r.Summary)
	}
	if len(r.TopFiles) != 4 || r.TopFiles[0].Path != "out/b.jpg" {
		t.Errorf("unexpected top files: %+v", r.TopFiles)
	}
}

func TestNewRunReport(t *testing.T) {
	t.Parallel()

	run := model.NewRun("20251120T225112Z", "in", "out", testTime)
	run.Stats = model.NewStats(analysis("out/a.pdf", ".pdf", 75, false))
	run.AIComment = "looks fine"
	run.SetArtifact(model.ArtifactStats, "examples/stats.json")

	r := NewRunReport(run, testTime)
	if r.Summary.RiskHigh != 1 {
		t.Errorf("RiskHigh = %d, want 1", r.Summary.RiskHigh)
	}
	if r.AIComment != "looks fine" {
		t.Errorf("AIComment = %q", r.AIComment)
	}

	run.SetArtifact(model.ArtifactStats, "changed")
	if r.Artifacts[model.ArtifactStats] != "examples/stats.json" {
		t.Error("report artifacts should not alias the run")
	}
}

// TestJSONWriter tests the JSON writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output is one line", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport("")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Errorf("expected a single line, got %q", buf.String())
		}

		var decoded AnalysisReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.RunID != "20251120T225112Z" {
			t.Errorf("run_id = %q", decoded.RunID)
		}
	})

	t.Run("pretty print indents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).WriteValue(map[string]int{"a": 1}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "{\n  \"a\": 1\n}\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("does not escape HTML or non-ASCII", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteValue(map[string]string{"company": "R&D <Pérez>"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "R&D <Pérez>") {
			t.Errorf("value was escaped: %s", buf.String())
		}
	})
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	t.Run("creates parent directories", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "a", "b", "stats.json")
		stats := model.NewStats(analysis("z.pdf", ".pdf", 10, false), analysis("a.pdf", ".pdf", 20, false))
		if err := WriteStatsFile(path, stats); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read: %v", err)
		}
		var decoded model.Stats
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid stats JSON: %v", err)
		}
		all := decoded.All()
		if len(all) != 2 || all[0].Path != "z.pdf" || all[1].Path != "a.pdf" {
			t.Errorf("stats order not preserved: %+v", all)
		}
	})

	t.Run("integrity report is owner only", func(t *testing.T) {
		t.Parallel()

		report, err := integrity.BuildIntegrityReport(integrity.NewFileHashes(
			integrity.FileDigest{Path: "out/a.pdf", Hash: strings.Repeat("a", integrity.DigestLength)},
		))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		path := filepath.Join(t.TempDir(), "reports", "integrity.json")
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatal(err)
		}
		// A pre-existing file with looser permissions is tightened.
		if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := WriteIntegrityFile(path, report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != IntegrityFileMode {
			t.Errorf("mode = %v, want %v", info.Mode().Perm(), IntegrityFileMode)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(string(data), "{\n  \"algorithm\": \"SHA-256\",\n  \"merkle_root\": ") {
			t.Errorf("unexpected integrity JSON:\n%s", data)
		}
	})

	t.Run("failed render leaves no file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "broken.json")
		errBoom := errors.New("boom")
		err := WriteFile(path, ArtifactFileMode, func(w io.Writer) error {
			_, _ = io.WriteString(w, "partial")
			return errBoom
		})
		if !errors.Is(err, errBoom) {
			t.Fatalf("expected render error, got %v", err)
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("expected %s to be removed, stat err = %v", path, err)
		}
	})

	t.Run("summary file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "ai_summary.json")
		if err := WriteSummaryFile(path, createTestReport("").Summary); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		var summary model.RiskSummary
		if err := json.Unmarshal(data, &summary); err != nil {
			t.Fatalf("invalid summary JSON: %v", err)
		}
		if summary.TotalFiles != 4 || summary.ByExtension[""] != 1 {
			t.Errorf("unexpected summary: %+v", summary)
		}
	})
}

// TestMarkdownWriter tests the advanced analysis report.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes all sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport("")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# MetaHunter - Advanced analysis report",
			"20251120T225112Z",
			"2025-11-20 22:51:12 UTC",
			"## Summary",
			"```mermaid",
			"## Distribution by file type",
			NoExtensionLabel,
			"## Files with the highest risk",
			"`out/b.jpg`",
			"## Risk interpretation",
			"[!CAUTION]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "AI-generated comment") {
			t.Error("comment section should be omitted without a comment")
		}
	})

	t.Run("extensions are sorted", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport("")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		jpg := strings.Index(output, "| .jpg")
		pdf := strings.Index(output, "| .pdf")
		png := strings.Index(output, "| .png")
		if jpg < 0 || pdf < 0 || png < 0 || jpg >= pdf || pdf >= png {
			t.Errorf("extension rows out of order: jpg=%d pdf=%d png=%d", jpg, pdf, png)
		}
	})

	t.Run("appends AI comment", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport("Remove GPS from b.jpg.\n")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		idx := strings.Index(output, "## AI-generated comment")
		if idx < 0 {
			t.Fatal("expected AI comment section")
		}
		if !strings.Contains(output[idx:], "Remove GPS from b.jpg.") {
			t.Error("expected comment text after the heading")
		}
		if !strings.Contains(output[:idx], "---") {
			t.Error("expected a rule before the comment")
		}
	})

	t.Run("empty run", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		r := NewAnalysisReport("x", testTime, model.NewStats(), "")
		if _, err := NewMarkdownWriter(&buf).Write(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if strings.Contains(output, "```mermaid") {
			t.Error("no chart expected for an empty run")
		}
		if !strings.Contains(output, "No files were analyzed.") {
			t.Error("expected empty-run note")
		}
	})
}

func TestHTMLWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewHTMLWriter(&buf).Write(createTestReport("")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>MetaHunter report 20251120T225112Z</title>",
		"<h1>MetaHunter - Advanced analysis report</h1>",
		"<table>",
		"</html>",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestRenderHTML(t *testing.T) {
	t.Parallel()

	out, err := RenderHTML([]byte("# Title\n\n<script>alert(1)</script>\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(out), "<h1>Title</h1>") {
		t.Errorf("unexpected HTML %s", out)
	}
	if strings.Contains(string(out), "<script>") {
		t.Error("raw HTML should not be rendered")
	}
}

// TestSimpleWriter tests the terminal summary writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport("")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"METAHUNTER ANALYSIS", "RISK SUMMARY", "HIGH:", "Total:   4", "TOP RISKY FILES", "out/b.jpg"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "\x1b[") {
			t.Error("colors should be off by default")
		}
		if strings.Contains(output, "ARTIFACTS") {
			t.Error("artifacts are verbose only")
		}
	})

	t.Run("color", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithColor(true)).Write(createTestReport("")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\x1b[") {
			t.Error("expected ANSI escape codes")
		}
	})

	t.Run("verbose lists artifacts", func(t *testing.T) {
		t.Parallel()

		r := createTestReport("All good.")
		r.Artifacts = map[string]string{model.ArtifactStats: "examples/stats_x.json"}

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "examples/stats_x.json") {
			t.Error("expected artifact path")
		}
		if !strings.Contains(output, "AI COMMENT") || !strings.Contains(output, "All good.") {
			t.Error("expected AI comment")
		}
	})
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		width int
		want  string
	}{
		{name: "fits", value: "a.pdf", width: 10, want: "a.pdf"},
		{name: "keeps the tail", value: "very/long/dir/a.pdf", width: 10, want: "...r/a.pdf"},
		{name: "wide runes", value: "写真/画像.jpg", width: 9, want: "...像.jpg"},
		{name: "tiny width", value: "abcdef", width: 2, want: "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := truncate(tt.value, tt.width); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.value, tt.width, got, tt.want)
			}
		})
	}
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	mw := NewMultiWriter(NewJSONWriter(&a), NewSimpleWriter(&b))
	n, err := mw.Write(createTestReport(""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != a.Len()+b.Len() {
		t.Errorf("n = %d, want %d", n, a.Len()+b.Len())
	}
}
