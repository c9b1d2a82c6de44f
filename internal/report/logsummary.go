package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// LogExampleCount is how many events a LogSummary keeps verbatim.
const LogExampleCount = 5

// maxLogLine bounds a single JSONL line.
const maxLogLine = 4 << 20

// logTimeLayouts are the timestamp formats recognized in event logs.
var logTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LogRecord is one decoded JSONL event and the file it came from.
type LogRecord struct {
	Source string
	Fields map[string]any
}

// ReadLogRecords reads every event from the given paths. A directory is
// searched recursively for *.jsonl files in sorted order. Missing paths and
// lines that are not JSON objects are logged as warnings and skipped.
func ReadLogRecords(paths []string, logger *slog.Logger) ([]LogRecord, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var records []LogRecord
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			logger.Warn("log path not found", "path", p)
			continue
		}

		files := []string{p}
		if info.IsDir() {
			files, err = findJSONL(p)
			if err != nil {
				return nil, err
			}
		}

		for _, f := range files {
			read, err := readJSONL(f, logger)
			if err != nil {
				return nil, err
			}
			records = append(records, read...)
		}
	}
	return records, nil
}

func findJSONL(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s for logs: %w", root, err)
	}
	slices.Sort(files)
	return files, nil
}

func readJSONL(path string, logger *slog.Logger) ([]LogRecord, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open log %s: %w", path, err)
	}
	defer f.Close()

	var records []LogRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLogLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal([]byte(line), &fields); err != nil || fields == nil {
			logger.Warn("skipping invalid JSON line", "file", filepath.Base(path), "line", lineNo)
			continue
		}
		records = append(records, LogRecord{Source: path, Fields: fields})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log %s: %w", path, err)
	}
	return records, nil
}

// DurationStats summarizes event durations in milliseconds. The
// statistics are nil when no event carried a duration.
type DurationStats struct {
	Count int      `json:"count"`
	Min   *float64 `json:"min"`
	Avg   *float64 `json:"avg"`
	Max   *float64 `json:"max"`
	Sum   *float64 `json:"sum"`
}

// RecordCounts totals the records_in and records_out fields.
type RecordCounts struct {
	In  int64 `json:"in"`
	Out int64 `json:"out"`
}

// TimeWindow is the span between the earliest and latest event. Bounds
// are nil when no timestamp could be parsed.
type TimeWindow struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// LogExample is one event as shown in the summary. Values are copied
// from the event unchanged, so missing fields stay null.
type LogExample struct {
	SourceFile string `json:"source_file"`
	Timestamp  any    `json:"timestamp"`
	Task       string `json:"task"`
	Status     string `json:"status"`
	Level      string `json:"level"`
	Message    any    `json:"message"`
	RecordsIn  any    `json:"records_in"`
	RecordsOut any    `json:"records_out"`
	DurationMS any    `json:"duration_ms"`
}

// LogSummary aggregates a set of run event logs.
type LogSummary struct {
	TotalEvents int            `json:"total_events"`
	Levels      map[string]int `json:"levels"`
	Status      map[string]int `json:"status"`
	Tasks       map[string]int `json:"tasks"`
	DurationMS  DurationStats  `json:"duration_ms"`
	Records     RecordCounts   `json:"records"`
	Window      TimeWindow     `json:"window"`
	Examples    []LogExample   `json:"examples"`
}

// AggregateLogs builds the summary of records.
//
// An event's level defaults to "info". Its status falls back to "ok" for
// info and debug events and to the level otherwise. Its task is the first
// of task, module and name that is set.
func AggregateLogs(records []LogRecord) *LogSummary {
	s := &LogSummary{
		Levels:   make(map[string]int),
		Status:   make(map[string]int),
		Tasks:    make(map[string]int),
		Examples: []LogExample{},
	}

	var (
		durations   []float64
		first, last time.Time
	)

	for _, rec := range records {
		r := rec.Fields
		s.TotalEvents++

		level := strings.ToLower(stringField(r, "level"))
		if level == "" {
			level = "info"
		}
		status := strings.ToLower(stringField(r, "status"))
		if status == "" {
			status = level
			if level == "info" || level == "debug" {
				status = "ok"
			}
		}
		task := firstString(r, "task", "module", "name")
		if task == "" {
			task = "unknown"
		}

		s.Levels[level]++
		s.Status[status]++
		s.Tasks[task]++

		if d, ok := eventDuration(r); ok {
			durations = append(durations, d)
		}

		in, inOK := intField(r["records_in"])
		out, outOK := intField(r["records_out"])
		if inOK && outOK {
			s.Records.In += in
			s.Records.Out += out
		}

		ts := firstValue(r, "timestamp", "time", "@timestamp")
		if str, ok := ts.(string); ok {
			if t, ok := parseLogTime(str); ok {
				if first.IsZero() || t.Before(first) {
					first = t
				}
				if last.IsZero() || t.After(last) {
					last = t
				}
			}
		}

		if len(s.Examples) < LogExampleCount {
			s.Examples = append(s.Examples, LogExample{
				SourceFile: rec.Source,
				Timestamp:  ts,
				Task:       task,
				Status:     status,
				Level:      level,
				Message:    firstValue(r, "message", "msg", "event"),
				RecordsIn:  r["records_in"],
				RecordsOut: r["records_out"],
				DurationMS: firstValue(r, "duration_ms", "duration_s"),
			})
		}
	}

	s.DurationMS = durationStats(durations)
	if !first.IsZero() {
		start, end := formatLogTime(first), formatLogTime(last)
		s.Window = TimeWindow{Start: &start, End: &end}
	}
	return s
}

func durationStats(durations []float64) DurationStats {
	st := DurationStats{Count: len(durations)}
	if len(durations) == 0 {
		return st
	}
	lo, hi := slices.Min(durations), slices.Max(durations)
	var sum float64
	for _, d := range durations {
		sum += d
	}
	avg := sum / float64(len(durations))
	st.Min, st.Max, st.Sum, st.Avg = &lo, &hi, &sum, &avg
	return st
}

// eventDuration returns duration_ms, or duration_s converted to
// milliseconds.
func eventDuration(r map[string]any) (float64, bool) {
	if v, ok := r["duration_ms"]; ok && v != nil {
		f, isNum := v.(float64)
		return f, isNum
	}
	switch v := r["duration_s"].(type) {
	case float64:
		return v * 1000, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f * 1000, true
	default:
		return 0, false
	}
}

// intField converts a records count. Missing, null, false, zero and
// empty values count as zero.
func intField(v any) (int64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, true
	case float64:
		return int64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		if n == "" {
			return 0, true
		}
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func parseLogTime(s string) (time.Time, bool) {
	for _, layout := range logTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// formatLogTime writes t as an ISO 8601 local time without zone,
// with microseconds only when they are non-zero.
func formatLogTime(t time.Time) string {
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format("2006-01-02T15:04:05")
	}
	return t.Format("2006-01-02T15:04:05.000000")
}

func stringField(r map[string]any, key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// firstValue returns the first of keys holding a non-empty value.
func firstValue(r map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := r[k]; ok && !isEmptyValue(v) {
			return v
		}
	}
	return nil
}

func firstString(r map[string]any, keys ...string) string {
	v := firstValue(r, keys...)
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case float64:
		return x == 0
	case bool:
		return !x
	case map[string]any:
		return len(x) == 0
	case []any:
		return len(x) == 0
	default:
		return false
	}
}
