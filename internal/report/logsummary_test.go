package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/metahunter/internal/testutil"
)

const sampleLog = `{"timestamp":"2025-11-20T22:51:12.000000Z","run_id":"r1","module":"cli","level":"INFO","event":"run_started","details":{}}
{"timestamp":"2025-11-20T22:51:13.250000Z","run_id":"r1","module":"cleaner","level":"INFO","event":"file_cleaned","details":{}}

{"timestamp":"2025-11-20T22:51:14.000000Z","run_id":"r1","module":"cleaner","level":"ERROR","event":"file_clean_error","details":{}}
not json
{"time":"2025-11-20 22:50:00","task":"etl","status":"FAILED","duration_ms":120,"records_in":10,"records_out":"8","message":"a|b"}
{"name":"misc","duration_s":"0.5"}
`

func TestReadLogRecords(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteFile(t, dir, "b/run.jsonl", []byte(sampleLog))
	testutil.WriteFile(t, dir, "a/first.jsonl", []byte(`{"event":"x"}`+"\n"))
	testutil.WriteFile(t, dir, "a/ignored.txt", []byte(`{"event":"y"}`+"\n"))

	records, err := ReadLogRecords([]string{dir, filepath.Join(dir, "missing.jsonl")}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 6 {
		t.Fatalf("records = %d, want 6", len(records))
	}
	if filepath.Base(records[0].Source) != "first.jsonl" {
		t.Errorf("files should be read in sorted order, first source = %s", records[0].Source)
	}
}

func TestAggregateLogs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "run.jsonl", []byte(sampleLog))
	records, err := ReadLogRecords([]string{path}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := AggregateLogs(records)

	if s.TotalEvents != 5 {
		t.Errorf("total = %d, want 5", s.TotalEvents)
	}
	if s.Levels["info"] != 4 || s.Levels["error"] != 1 {
		t.Errorf("levels = %v", s.Levels)
	}
	if s.Status["ok"] != 3 || s.Status["error"] != 1 || s.Status["failed"] != 1 {
		t.Errorf("status = %v", s.Status)
	}
	if s.Tasks["cleaner"] != 2 || s.Tasks["etl"] != 1 || s.Tasks["misc"] != 1 || s.Tasks["cli"] != 1 {
		t.Errorf("tasks = %v", s.Tasks)
	}

	d := s.DurationMS
	if d.Count != 2 || *d.Min != 120 || *d.Max != 500 || *d.Sum != 620 || *d.Avg != 310 {
		t.Errorf("durations = count %d min %v max %v sum %v avg %v", d.Count, *d.Min, *d.Max, *d.Sum, *d.Avg)
	}
	if s.Records.In != 10 || s.Records.Out != 8 {
		t.Errorf("records = %+v", s.Records)
	}
	if *s.Window.Start != "2025-11-20T22:50:00" || *s.Window.End != "2025-11-20T22:51:14" {
		t.Errorf("window = %s -> %s", *s.Window.Start, *s.Window.End)
	}
	if len(s.Examples) != LogExampleCount {
		t.Fatalf("examples = %d, want %d", len(s.Examples), LogExampleCount)
	}
	if s.Examples[0].Message != "run_started" {
		t.Errorf("example message = %v, want the event name", s.Examples[0].Message)
	}
}

func TestAggregateLogs_Empty(t *testing.T) {
	t.Parallel()

	s := AggregateLogs(nil)

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for _, want := range []string{`"min":null`, `"start":null`, `"examples":[]`, `"levels":{}`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected %s in %s", want, data)
		}
	}
}

func TestLogSummaryWriters(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "run.jsonl", []byte(sampleLog))
	records, err := ReadLogRecords([]string{path}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := AggregateLogs(records)

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := WriteLogSummaryJSON(&buf, s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var decoded LogSummary
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.TotalEvents != 5 {
			t.Errorf("total_events = %d", decoded.TotalEvents)
		}
	})

	t.Run("csv", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := WriteLogSummaryCSV(&buf, s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rows, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		if len(rows) != 13 {
			t.Fatalf("rows = %d, want 13", len(rows))
		}
		got := make(map[string]string, len(rows))
		for _, r := range rows {
			got[r[0]] = r[1]
		}
		if got["metric"] != "value" || got["total_events"] != "5" || got["duration_ms.sum"] != "620" {
			t.Errorf("unexpected rows: %v", got)
		}
		if got["levels"] != `{"error":1,"info":4}` {
			t.Errorf("levels = %s", got["levels"])
		}
	})

	t.Run("markdown", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if err := WriteLogSummaryMarkdown(&buf, s); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output := buf.String()
		for _, want := range []string{
			"# MetaHunter execution report",
			"**Total events:** 5",
			"min=120, avg=310, max=500, sum=620",
			"2025-11-20T22:50:00 → 2025-11-20T22:51:14",
			"### Levels (level)",
			"### Sample events",
			"a/b",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Index(output, "| info") > strings.Index(output, "| error") {
			t.Error("counts should be sorted by descending count")
		}
	})
}
