// Package testutil holds test helpers shared across packages.
package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// Entry is one captured log event with its attributes flattened. Attributes
// bound with Logger.With are included.
type Entry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// LogCapture is a slog.Handler that keeps every event in memory
type LogCapture struct {
	sink  *sink
	attrs []slog.Attr
	group string
}

type sink struct {
	mu      sync.Mutex
	entries []Entry
	t       testing.TB
}

// NewLogger returns a logger writing into a fresh capture. Events are also
// echoed to t.Log so failing tests show them.
func NewLogger(t testing.TB) (*slog.Logger, *LogCapture) {
	c := &LogCapture{sink: &sink{t: t}}
	return slog.New(c), c
}

func (c *LogCapture) Enabled(context.Context, slog.Level) bool { return true }

func (c *LogCapture) Handle(_ context.Context, r slog.Record) error {
	e := Entry{Level: r.Level, Message: r.Message, Attrs: make(map[string]any, r.NumAttrs()+len(c.attrs))}
	for _, a := range c.attrs {
		e.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if c.group != "" {
			key = c.group + "." + key
		}
		e.Attrs[key] = a.Value.Any()
		return true
	})

	c.sink.mu.Lock()
	c.sink.entries = append(c.sink.entries, e)
	c.sink.mu.Unlock()
	if c.sink.t != nil {
		c.sink.t.Logf("[%s] %s %v", r.Level, r.Message, e.Attrs)
	}
	return nil
}

func (c *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *c
	next.attrs = append(append([]slog.Attr{}, c.attrs...), attrs...)
	return &next
}

func (c *LogCapture) WithGroup(name string) slog.Handler {
	next := *c
	if next.group != "" {
		name = next.group + "." + name
	}
	next.group = name
	return &next
}

// Entries returns a copy of everything captured so far
func (c *LogCapture) Entries() []Entry {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	out := make([]Entry, len(c.sink.entries))
	copy(out, c.sink.entries)
	return out
}

// Find returns the first entry whose message contains msg
func (c *LogCapture) Find(msg string) (Entry, bool) {
	for _, e := range c.Entries() {
		if strings.Contains(e.Message, msg) {
			return e, true
		}
	}
	return Entry{}, false
}

// Has reports whether an entry at level contains msg
func (c *LogCapture) Has(level slog.Level, msg string) bool {
	for _, e := range c.Entries() {
		if e.Level == level && strings.Contains(e.Message, msg) {
			return true
		}
	}
	return false
}

// Count returns the number of entries at level
func (c *LogCapture) Count(level slog.Level) int {
	n := 0
	for _, e := range c.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Reset drops all captured entries
func (c *LogCapture) Reset() {
	c.sink.mu.Lock()
	c.sink.entries = nil
	c.sink.mu.Unlock()
}
