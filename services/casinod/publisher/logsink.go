package publisher

import (
	"context"
	"log/slog"
	"sort"

	"wagerchain/core/events"
	"wagerchain/observability/logging"
)

// LogSink writes committed events to a structured logger. With redact set,
// only allowlisted attributes are logged verbatim.
type LogSink struct {
	log    *slog.Logger
	level  slog.Level
	redact bool
}

func NewLogSink(log *slog.Logger, level slog.Level, redact bool) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log.With("component", "events"), level: level, redact: redact}
}

// Emit implements events.Emitter.
func (s *LogSink) Emit(evt events.Event) {
	ctx := context.Background()
	if !s.log.Enabled(ctx, s.level) {
		return
	}
	payload := events.Unwrap(evt)
	if payload == nil {
		s.log.Log(ctx, s.level, "event", "type", evt.EventType())
		return
	}
	keys := make([]string, 0, len(payload.Attributes))
	for k := range payload.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]slog.Attr, 0, len(keys)+1)
	attrs = append(attrs, slog.String("type", payload.Type))
	for _, k := range keys {
		if s.redact {
			attrs = append(attrs, logging.MaskField(k, payload.Attributes[k]))
			continue
		}
		attrs = append(attrs, slog.String(k, payload.Attributes[k]))
	}
	s.log.LogAttrs(ctx, s.level, "event", attrs...)
}
