package logging

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Entry struct {
	Time    time.Time      `json:"timestamp"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Buffer keeps the most recent log lines in memory for the admin log viewer.
// It expects one zerolog JSON event per Write.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

func NewBuffer(size int) *Buffer {
	if size <= 0 {
		size = 500
	}
	return &Buffer{entries: make([]Entry, size)}
}

func (b *Buffer) Write(p []byte) (int, error) {
	e := parseEntry(p)

	b.mu.Lock()
	b.entries[b.next] = e
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
	b.mu.Unlock()
	return len(p), nil
}

// Recent returns up to limit entries, newest first.
func (b *Buffer) Recent(limit int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.next
	if b.full {
		n = len(b.entries)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (b.next - 1 - i + len(b.entries)) % len(b.entries)
		out = append(out, b.entries[idx])
	}
	return out
}

func parseEntry(p []byte) Entry {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		return Entry{Time: time.Now().UTC(), Level: zerolog.InfoLevel.String(), Message: strings.TrimSpace(string(p))}
	}
	e := Entry{Time: time.Now().UTC()}
	if v, ok := raw[zerolog.LevelFieldName].(string); ok {
		e.Level = v
	}
	if v, ok := raw[zerolog.MessageFieldName].(string); ok {
		e.Message = v
	}
	if v, ok := raw[zerolog.TimestampFieldName].(string); ok {
		if ts, err := time.Parse(zerolog.TimeFieldFormat, v); err == nil {
			e.Time = ts
		}
	}
	delete(raw, zerolog.LevelFieldName)
	delete(raw, zerolog.MessageFieldName)
	delete(raw, zerolog.TimestampFieldName)
	if len(raw) > 0 {
		e.Fields = raw
	}
	return e
}

// New builds the service logger. Dev environments get console output on stdout;
// every event is also copied into buf.
func New(level, env, service string, buf *Buffer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if env == "dev" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	if buf != nil {
		out = zerolog.MultiLevelWriter(out, buf)
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", service).Logger()
}
