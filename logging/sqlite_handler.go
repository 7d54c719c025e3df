package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/icodeforyou/spotprice-go/database"
)

type LogAttrFormat string

const (
	LogAttrFormatText LogAttrFormat = "TEXT"
	LogAttrFormatJSON LogAttrFormat = "JSON"
)

type LogEntrySaver interface {
	SaveLogEntry(ctx context.Context, r database.LogEntryRow) error
}

// SQLiteHandler stores records in the log table. Groups are flattened into
// dotted attribute keys.
type SQLiteHandler struct {
	db       LogEntrySaver
	minLevel slog.Level
	format   LogAttrFormat
	attrs    []slog.Attr
	group    string
}

func NewSQLiteHandler(db LogEntrySaver, minLevel slog.Level, format LogAttrFormat) *SQLiteHandler {
	return &SQLiteHandler{db: db, minLevel: minLevel, format: format}
}

func (h *SQLiteHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < h.minLevel {
		return nil
	}

	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify(a))
		return true
	})

	return h.db.SaveLogEntry(context.WithoutCancel(ctx), database.LogEntryRow{
		Timestamp: r.Time,
		Level:     int(r.Level),
		Message:   r.Message,
		Attrs:     h.formatAttrs(attrs),
	})
}

func (h *SQLiteHandler) formatAttrs(attrs []slog.Attr) string {
	if len(attrs) == 0 {
		return ""
	}

	if h.format == LogAttrFormatText {
		var b strings.Builder
		for _, a := range attrs {
			if b.Len() > 0 {
				b.WriteString("; ")
			}
			b.WriteString(a.Key)
			b.WriteString("=")
			b.WriteString(strings.ReplaceAll(strings.ReplaceAll(a.Value.String(), "=", "\\="), ";", "\\;"))
		}
		return b.String()
	}

	pairs := make([]map[string]string, 0, len(attrs))
	for _, a := range attrs {
		pairs = append(pairs, map[string]string{a.Key: a.Value.String()})
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

func (h *SQLiteHandler) qualify(a slog.Attr) slog.Attr {
	if h.group != "" {
		a.Key = h.group + "." + a.Key
	}
	return a
}

func (h *SQLiteHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		h2.attrs = append(h2.attrs, h.qualify(a))
	}
	return &h2
}

func (h *SQLiteHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	if h.group != "" {
		h2.group = h.group + "." + name
	} else {
		h2.group = name
	}
	return &h2
}

func (h *SQLiteHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel
}
