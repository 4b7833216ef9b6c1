package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestNoop_RecordsWithoutPanicking(t *testing.T) {
	o := NewNoop()
	ctx := context.Background()

	assert.NotPanics(t, func() {
		o.RecordBatch(ctx, "bulk", 4, map[string]int{"delivered": 3, "failed": 1}, 12*time.Millisecond)
		o.RecordJobProcessed(ctx, "success")
		o.RecordJobDuration(ctx, time.Second, "success")
		o.Shutdown(ctx)
	})
}

func TestNilObservability_IsSafe(t *testing.T) {
	var o *Observability
	assert.NotPanics(t, func() {
		o.RecordBatch(context.Background(), "single", 1, nil, 0)
		o.Shutdown(context.Background())
	})
}

func TestEnableTracing_EmptyEndpointIsNoop(t *testing.T) {
	o := NewNoop()
	assert.NoError(t, o.EnableTracing("svc", ""))

	_, span := StartSpan(context.Background(), "test", attribute.Int("n", 1))
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())
}
