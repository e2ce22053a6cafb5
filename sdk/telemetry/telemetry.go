// Package telemetry carries per-request trace values through a context.
package telemetry

import (
	"context"
	"time"

	"github.com/jrazmi/growlog/sdk/cryptids"
)

type telKey int

const (
	traceIDKey telKey = iota + 1
	valuesKey
)

// NoTrace is reported when a context carries no trace id.
const NoTrace = "--------NOTRACE--------"

// TraceValues describes one request.
type TraceValues struct {
	TraceID    string
	Now        time.Time
	StatusCode int
}

type Telemetry struct{}

// Creates a new telemetry instance
func NewTelemetry() Telemetry {
	return Telemetry{}
}

// SetTraceID stores id in ctx, generating one when id is empty.
func (t Telemetry) SetTraceID(ctx context.Context, id string) context.Context {
	if id == "" {
		var err error
		id, err = cryptids.GenerateID()
		if err != nil {
			id = NoTrace
		}
	}
	return context.WithValue(ctx, traceIDKey, id)
}

func (t Telemetry) GetTraceID(ctx context.Context) string {
	v, ok := ctx.Value(traceIDKey).(string)
	if !ok {
		return NoTrace
	}
	return v
}

// SetValues starts the trace values of a request.
func (t Telemetry) SetValues(ctx context.Context, now time.Time) (context.Context, *TraceValues) {
	v := &TraceValues{TraceID: t.GetTraceID(ctx), Now: now}
	return context.WithValue(ctx, valuesKey, v), v
}

// GetValues returns the trace values stored by SetValues.
func (t Telemetry) GetValues(ctx context.Context) *TraceValues {
	v, ok := ctx.Value(valuesKey).(*TraceValues)
	if !ok {
		return &TraceValues{TraceID: t.GetTraceID(ctx), Now: time.Now()}
	}
	return v
}
