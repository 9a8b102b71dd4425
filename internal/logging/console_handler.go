package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const logTimestampLayout = "2006-01-02 15:04:05"

type prettyHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	flattenAttrs(&kvs, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})
	kvs = dedupeKVsByKey(kvs)

	var component, sessionID, action string
	fields := make([]kv, 0, len(kvs))
	for _, kv := range kvs {
		switch kv.key {
		case FieldComponent:
			component = attrString(kv.value)
			continue
		case FieldSessionID:
			sessionID = attrString(kv.value)
		case FieldAction:
			action = attrString(kv.value)
		}
		fields = append(fields, kv)
	}

	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var buf bytes.Buffer
	buf.Grow(192 + len(fields)*32)
	buf.WriteString(timestamp.In(time.Local).Format(logTimestampLayout))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	if component != "" {
		buf.WriteString(" [")
		buf.WriteString(component)
		buf.WriteByte(']')
	}
	if subject := composeSubject(sessionID, action); subject != "" {
		buf.WriteByte(' ')
		buf.WriteString(subject)
	}
	buf.WriteString(" – ")
	buf.WriteString(message)
	if h.addSource {
		if src := record.Source(); src != nil {
			buf.WriteString(" [")
			buf.WriteString(filepath.Base(src.File))
			buf.WriteByte(':')
			buf.WriteString(strconv.Itoa(src.Line))
			buf.WriteByte(']')
		}
	}
	buf.WriteByte('\n')

	debug := record.Level < slog.LevelInfo
	for _, field := range orderFields(fields) {
		if !debug && skipInfoKey(field.key) {
			continue
		}
		buf.WriteString("    - ")
		if debug {
			buf.WriteString(field.key)
		} else {
			buf.WriteString(displayLabel(field.key))
		}
		buf.WriteString(": ")
		buf.WriteString(formatValueForKey(field.key, field.value))
		buf.WriteByte('\n')
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func composeSubject(sessionID, action string) string {
	sessionID = strings.TrimSpace(sessionID)
	action = strings.TrimSpace(action)
	if len(sessionID) > 8 {
		sessionID = sessionID[:8]
	}
	switch {
	case sessionID != "" && action != "":
		return "Session " + sessionID + " (" + action + ")"
	case sessionID != "":
		return "Session " + sessionID
	case action != "":
		return "Command (" + action + ")"
	default:
		return ""
	}
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *prettyHandler) clone() *prettyHandler {
	clone := &prettyHandler{
		mu:        h.mu,
		writer:    h.writer,
		level:     h.level,
		addSource: h.addSource,
	}
	if len(h.attrs) > 0 {
		clone.attrs = make([]slog.Attr, len(h.attrs))
		copy(clone.attrs, h.attrs)
	}
	if len(h.groups) > 0 {
		clone.groups = make([]string, len(h.groups))
		copy(clone.groups, h.groups)
	}
	return clone
}

type kv struct {
	key   string
	value slog.Value
}

func dedupeKVsByKey(attrs []kv) []kv {
	if len(attrs) < 2 {
		return attrs
	}
	positions := make(map[string]int, len(attrs))
	deduped := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		if attr.key == "" {
			continue
		}
		if pos, ok := positions[attr.key]; ok {
			deduped[pos].value = attr.value
			continue
		}
		positions[attr.key] = len(deduped)
		deduped = append(deduped, attr)
	}
	return deduped
}

func flattenAttrs(dst *[]kv, prefix []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		flattenAttr(dst, prefix, attr)
	}
}

func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(append([]string{}, prefix...), attr.Key)
		}
		flattenAttrs(dst, next, attr.Value.Group())
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(append(append([]string{}, prefix...), key), ".")
	}
	*dst = append(*dst, kv{key: key, value: attr.Value})
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
