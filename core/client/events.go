package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/sdk/logger"
)

// Event is one client log record. Query events carry the statement.
type Event struct {
	Level     LogLevel
	Timestamp time.Time
	Message   string
	Target    string
	Query     string
	Params    []any
	Duration  time.Duration
}

// events routes log records to the logger or to registered handlers,
// according to the log definitions. Undefined levels are dropped.
type events struct {
	log  *logger.Logger
	defs map[LogLevel]Emit

	mu       sync.RWMutex
	handlers map[LogLevel][]func(Event)
}

func newEvents(log *logger.Logger, defs map[LogLevel]Emit) *events {
	return &events{log: log, defs: defs, handlers: map[LogLevel][]func(Event){}}
}

func (ev *events) on(level LogLevel, h func(Event)) {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	ev.handlers[level] = append(ev.handlers[level], h)
}

func (ev *events) query(q repositories.QueryEvent) {
	ev.emit(Event{
		Level:    LogQuery,
		Message:  q.Query,
		Target:   q.Target,
		Query:    q.Query,
		Params:   q.Params,
		Duration: q.Duration,
	})
}

func (ev *events) emit(e Event) {
	emit, ok := ev.defs[e.Level]
	if !ok {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if emit == EmitEvent {
		ev.mu.RLock()
		hs := ev.handlers[e.Level]
		ev.mu.RUnlock()
		for _, h := range hs {
			h(e)
		}
		return
	}

	attrs := []any{slog.String("target", e.Target)}
	if e.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", e.Duration))
	}
	ctx := context.Background()
	switch e.Level {
	case LogQuery:
		attrs = append(attrs, slog.Any("params", e.Params))
		ev.log.InfoContext(ctx, "query: "+e.Query, attrs...)
	case LogInfo:
		ev.log.InfoContext(ctx, e.Message, attrs...)
	case LogWarn:
		ev.log.WarnContext(ctx, e.Message, attrs...)
	case LogError:
		ev.log.ErrorContext(ctx, e.Message, attrs...)
	}
}
