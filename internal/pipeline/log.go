package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// Entry is one diagnostic recorded during a build pass.
type Entry struct {
	Level     slog.Level
	Stage     Stage
	Processor string
	URL       string
	Path      string
	Message   string
	Err       error
}

// Log accumulates the diagnostics of one build pass and mirrors each entry
// to slog.
type Log struct {
	mu      sync.Mutex
	logger  *slog.Logger
	entries []Entry
}

// NewLog returns a log writing through logger (slog.Default when nil).
func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

// ItemError records err against item. Classified warnings are recorded at
// warning level and leave the item intact; anything else marks the item failed.
func (l *Log) ItemError(stage Stage, processor string, item *content.Item, err error) {
	level := levelFor(err)
	e := Entry{Level: level, Stage: stage, Processor: processor, Message: messageOf(err), Err: err}
	if item != nil {
		e.URL = item.URL
		e.Path = item.SourcePath
		if level >= slog.LevelError {
			item.MarkFailed()
		}
	}
	l.add(e)
}

// ItemWarning records a warning against item.
func (l *Log) ItemWarning(stage Stage, processor string, item *content.Item, msg string) {
	e := Entry{Level: slog.LevelWarn, Stage: stage, Processor: processor, Message: msg}
	if item != nil {
		e.URL = item.URL
		e.Path = item.SourcePath
	}
	l.add(e)
}

// Error records a stage-level error not bound to an item.
func (l *Log) Error(stage Stage, processor string, err error) {
	l.add(Entry{Level: levelFor(err), Stage: stage, Processor: processor, Message: messageOf(err), Err: err})
}

// Entries returns a copy of all entries in recording order.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

// Errors returns the entries at error level.
func (l *Log) Errors() []Entry {
	return l.filter(func(e Entry) bool { return e.Level >= slog.LevelError })
}

// Warnings returns the entries at warning level.
func (l *Log) Warnings() []Entry {
	return l.filter(func(e Entry) bool { return e.Level == slog.LevelWarn })
}

// Failed reports whether at least one error was recorded.
func (l *Log) Failed() bool { return len(l.Errors()) > 0 }

func (l *Log) add(e Entry) {
	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	attrs := []slog.Attr{logfields.Stage(e.Stage.String())}
	if e.Processor != "" {
		attrs = append(attrs, logfields.Processor(e.Processor))
	}
	if e.URL != "" {
		attrs = append(attrs, logfields.URL(e.URL))
	}
	if e.Path != "" {
		attrs = append(attrs, logfields.Path(e.Path))
	}
	if e.Err != nil {
		attrs = append(attrs, logfields.Error(e.Err))
	}
	l.logger.LogAttrs(context.Background(), e.Level, e.Message, attrs...)
}

func (l *Log) filter(keep func(Entry) bool) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Entry
	for _, e := range l.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func levelFor(err error) slog.Level {
	switch errors.GetSeverity(err) {
	case errors.SeverityWarning:
		return slog.LevelWarn
	case errors.SeverityInfo:
		return slog.LevelInfo
	default:
		return slog.LevelError
	}
}

func messageOf(err error) string {
	if ce, ok := errors.AsClassified(err); ok {
		return ce.Message()
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
