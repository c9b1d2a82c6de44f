package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Event log field names. One JSON object is written per line.
const (
	EventKeyTimestamp = "timestamp"
	EventKeyRunID     = "run_id"
	EventKeyModule    = "module"
	EventKeyLevel     = "level"
	EventKeyEvent     = "event"
	EventKeyDetails   = "details"
)

// Event levels as written to the event log.
const (
	EventLevelDebug   = "DEBUG"
	EventLevelInfo    = "INFO"
	EventLevelWarning = "WARNING"
	EventLevelError   = "ERROR"
)

// Clock supplies event timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// EventLogger appends structured run events as JSON lines:
//
//	{"timestamp":"...Z","level":"INFO","event":"file_cleaned","run_id":"...","module":"cleaner","details":{...}}
//
// Details pass through SecureHandler, so identifying metadata is masked
// here exactly as on the terminal. A nil *EventLogger discards events.
type EventLogger struct {
	handler slog.Handler
	runID   string
	clock   Clock
}

// EventOption configures an EventLogger.
type EventOption func(*EventLogger)

// WithEventClock sets the clock used for timestamps.
func WithEventClock(c Clock) EventOption {
	return func(l *EventLogger) {
		if c != nil {
			l.clock = c
		}
	}
}

// NewEventLogger returns an EventLogger writing to w for runID.
func NewEventLogger(w io.Writer, runID string, opts ...EventOption) *EventLogger {
	jsonHandler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: replaceEventAttr,
	})
	l := &EventLogger{
		handler: NewSecureHandler(jsonHandler),
		runID:   runID,
		clock:   systemClock{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// replaceEventAttr renames slog's built-in keys to the event log schema.
func replaceEventAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		return slog.String(EventKeyTimestamp, a.Value.Time().UTC().Format("2006-01-02T15:04:05.000000Z"))
	case slog.LevelKey:
		return slog.String(EventKeyLevel, eventLevelName(a.Value.Any()))
	case slog.MessageKey:
		return slog.String(EventKeyEvent, a.Value.String())
	}
	return a
}

func eventLevelName(v any) string {
	level, ok := v.(slog.Level)
	if !ok {
		return fmt.Sprint(v)
	}
	switch {
	case level >= slog.LevelError:
		return EventLevelError
	case level >= slog.LevelWarn:
		return EventLevelWarning
	case level >= slog.LevelInfo:
		return EventLevelInfo
	default:
		return EventLevelDebug
	}
}

// RunID returns the run identifier stamped on every event.
func (l *EventLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// Log writes one event.
func (l *EventLogger) Log(ctx context.Context, level slog.Level, module, event string, details ...slog.Attr) {
	if l == nil {
		return
	}
	r := slog.NewRecord(l.clock.Now(), level, event, 0)
	r.AddAttrs(slog.String(EventKeyRunID, l.runID), slog.String(EventKeyModule, module))
	if len(details) == 0 {
		// slog drops empty groups; an empty struct still renders as {}.
		r.AddAttrs(slog.Any(EventKeyDetails, struct{}{}))
	} else {
		r.AddAttrs(slog.Attr{Key: EventKeyDetails, Value: slog.GroupValue(details...)})
	}
	_ = l.handler.Handle(ctx, r) //nolint:errcheck // event logging is best effort
}

// Info writes an INFO event.
func (l *EventLogger) Info(ctx context.Context, module, event string, details ...slog.Attr) {
	l.Log(ctx, slog.LevelInfo, module, event, details...)
}

// Warning writes a WARNING event.
func (l *EventLogger) Warning(ctx context.Context, module, event string, details ...slog.Attr) {
	l.Log(ctx, slog.LevelWarn, module, event, details...)
}

// Error writes an ERROR event.
func (l *EventLogger) Error(ctx context.Context, module, event string, details ...slog.Attr) {
	l.Log(ctx, slog.LevelError, module, event, details...)
}

// Debug writes a DEBUG event.
func (l *EventLogger) Debug(ctx context.Context, module, event string, details ...slog.Attr) {
	l.Log(ctx, slog.LevelDebug, module, event, details...)
}

// OpenEventFile opens path for appending, creating parent directories.
func OpenEventFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // user-selected log path
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	return f, nil
}
