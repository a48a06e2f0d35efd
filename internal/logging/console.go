package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// runIDWidth is how much of a run identifier the console prefix shows.
const runIDWidth = 8

// consoleHandler writes one line per record:
//
//	2026-10-18T09:30:00Z WARN  [3f2a9c1e/move] mover [asset-42]: move failed error="..."
//
// Run, stage, component and asset are lifted out of the attributes into the
// prefix; everything else follows the message as key=value pairs.
type consoleHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler

	head  lineHead
	attrs []field
	group string
}

// lineHead holds the attributes rendered ahead of the message.
type lineHead struct {
	run, stage, component, asset string
}

type field struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, level slog.Leveler) *consoleHandler {
	return &consoleHandler{mu: new(sync.Mutex), w: w, level: level}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = append([]field(nil), h.attrs...)
	for _, attr := range attrs {
		clone.collect(attr, h.group)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = joinKey(h.group, name)
	return &clone
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	line := *h
	line.attrs = append(make([]field, 0, len(h.attrs)+record.NumAttrs()), h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		line.collect(attr, h.group)
		return true
	})

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var buf bytes.Buffer
	buf.WriteString(ts.UTC().Format(time.RFC3339))
	fmt.Fprintf(&buf, " %-5s ", record.Level.String())
	line.head.write(&buf)

	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	buf.WriteString(msg)
	for _, f := range line.attrs {
		buf.WriteByte(' ')
		buf.WriteString(f.key)
		buf.WriteByte('=')
		buf.WriteString(consoleValue(f.value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// collect routes attr into the line head when it is one of the top-level
// context fields, and into the trailing pairs otherwise. Groups flatten to
// dotted keys.
func (h *consoleHandler) collect(attr slog.Attr, group string) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}
	if attr.Value.Kind() == slog.KindGroup {
		inner := group
		if attr.Key != "" {
			inner = joinKey(group, attr.Key)
		}
		for _, a := range attr.Value.Group() {
			h.collect(a, inner)
		}
		return
	}
	if group == "" && h.head.take(attr) {
		return
	}
	h.attrs = append(h.attrs, field{key: joinKey(group, attr.Key), value: attr.Value})
}

// take stores the first value seen for each head field.
func (l *lineHead) take(attr slog.Attr) bool {
	var slot *string
	switch attr.Key {
	case FieldRunID:
		slot = &l.run
	case FieldStage:
		slot = &l.stage
	case FieldComponent:
		slot = &l.component
	case FieldAssetID:
		slot = &l.asset
	default:
		return false
	}
	if *slot == "" {
		*slot = attr.Value.String()
	}
	return true
}

func (l lineHead) write(buf *bytes.Buffer) {
	run := l.run
	if len(run) > runIDWidth {
		run = run[:runIDWidth]
	}
	switch {
	case run != "" && l.stage != "":
		fmt.Fprintf(buf, "[%s/%s] ", run, l.stage)
	case run != "":
		fmt.Fprintf(buf, "[%s] ", run)
	case l.stage != "":
		fmt.Fprintf(buf, "[%s] ", l.stage)
	}
	if l.component != "" {
		buf.WriteString(l.component)
		buf.WriteByte(' ')
	}
	if l.asset != "" {
		fmt.Fprintf(buf, "[%s] ", l.asset)
	}
	if l.component != "" || l.asset != "" {
		buf.Truncate(buf.Len() - 1)
		buf.WriteString(": ")
	}
}

func joinKey(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}

func consoleValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindTime:
		s = v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}
