// Package telemetry carries per-request trace values through the context.
package telemetry

import (
	"context"
	"time"

	"github.com/jrazmi/devcamper/sdk/cryptids"
)

type telKey int

const (
	traceValuesKey telKey = iota + 1
)

// NoTrace is reported when a context carries no trace values.
const NoTrace = "--------NOTRACE--------"

// TraceValues describes the request a context belongs to.
type TraceValues struct {
	TraceID    string
	Now        time.Time
	StatusCode int
}

type Telemetry struct{}

func NewTelemetry() Telemetry {
	return Telemetry{}
}

// SetTraceID starts a new trace for the request.
func (t Telemetry) SetTraceID(ctx context.Context) context.Context {
	tid, err := cryptids.GenerateID()
	if err != nil {
		tid = NoTrace
	}
	return context.WithValue(ctx, traceValuesKey, &TraceValues{
		TraceID: tid,
		Now:     time.Now().UTC(),
	})
}

func (t Telemetry) GetTraceID(ctx context.Context) string {
	v, ok := ctx.Value(traceValuesKey).(*TraceValues)
	if !ok {
		return NoTrace
	}
	return v.TraceID
}

// GetValues returns the trace values, or a fresh value stamped now.
func GetValues(ctx context.Context) *TraceValues {
	v, ok := ctx.Value(traceValuesKey).(*TraceValues)
	if !ok {
		return &TraceValues{TraceID: NoTrace, Now: time.Now().UTC()}
	}
	return v
}

// SetStatusCode records the status code written for the request.
func SetStatusCode(ctx context.Context, statusCode int) {
	if v, ok := ctx.Value(traceValuesKey).(*TraceValues); ok {
		v.StatusCode = statusCode
	}
}
