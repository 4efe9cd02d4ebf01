package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"airgate/internal/gateway"
	"airgate/internal/models"
)

// InstrumentedGateway wraps a gateway.API implementation with OpenTelemetry
// tracing and metrics instrumentation. Besides latency and error series it
// records cache hit/miss and rate limit rejection counters, which are the
// gateway's primary operational signals.
type InstrumentedGateway struct {
	inner      gateway.API
	tracer     trace.Tracer
	duration   metric.Float64Histogram
	errors     metric.Int64Counter
	cacheReads metric.Int64Counter
	rejections metric.Int64Counter
}

var _ gateway.API = (*InstrumentedGateway)(nil)

// NewInstrumentedGateway creates a gateway wrapper that records trace spans,
// operation latency histograms, and the gateway counters for every call.
func NewInstrumentedGateway(inner gateway.API) (*InstrumentedGateway, error) {
	tracer := otel.Tracer("airgate/gateway")
	meter := otel.Meter("airgate/gateway")

	duration, err := meter.Float64Histogram(
		"gateway.operation.duration",
		metric.WithDescription("Duration of gateway operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"gateway.operation.errors",
		metric.WithDescription("Number of gateway operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	cacheReads, err := meter.Int64Counter(
		"gateway.cache.reads",
		metric.WithDescription("Cacheable reads partitioned by hit/miss result"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return nil, err
	}

	rejections, err := meter.Int64Counter(
		"gateway.ratelimit.rejections",
		metric.WithDescription("Operations denied by a rate limit ceiling"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedGateway{
		inner:      inner,
		tracer:     tracer,
		duration:   duration,
		errors:     errCounter,
		cacheReads: cacheReads,
		rejections: rejections,
	}, nil
}

func (g *InstrumentedGateway) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := g.tracer.Start(ctx, "gateway."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("gateway.operation", operation),
		}, attrs...)...),
	)
	return ctx, span
}

func (g *InstrumentedGateway) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("operation", operation))

	g.duration.Record(ctx, elapsed, attrs)

	if err != nil {
		if rle, ok := gateway.IsRateLimited(err); ok {
			g.rejections.Add(ctx, 1, metric.WithAttributes(
				attribute.String("operation", operation),
				attribute.String("scope", rle.Scope),
			))
		} else {
			g.errors.Add(ctx, 1, attrs)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (g *InstrumentedGateway) recordCacheRead(ctx context.Context, operation string, hit bool, err error) {
	if err != nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	g.cacheReads.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("result", result),
	))
}

func (g *InstrumentedGateway) ListBases(ctx context.Context) (*models.BaseListResponse, error) {
	ctx, span := g.startSpan(ctx, "ListBases")
	start := time.Now()
	result, err := g.inner.ListBases(ctx)
	g.record(ctx, span, "ListBases", start, err)
	g.recordCacheRead(ctx, "ListBases", result != nil && result.FromCache, err)
	return result, err
}

func (g *InstrumentedGateway) GetSchema(ctx context.Context, baseID string) (*models.SchemaResponse, error) {
	ctx, span := g.startSpan(ctx, "GetSchema", attribute.String("base_id", baseID))
	start := time.Now()
	result, err := g.inner.GetSchema(ctx, baseID)
	g.record(ctx, span, "GetSchema", start, err)
	g.recordCacheRead(ctx, "GetSchema", result != nil && result.FromCache, err)
	return result, err
}

func (g *InstrumentedGateway) ListRecords(ctx context.Context, baseID, tableID string, query models.ListRecordsQuery) (*models.RecordListResponse, error) {
	ctx, span := g.startSpan(ctx, "ListRecords",
		attribute.String("base_id", baseID),
		attribute.String("table_id", tableID),
	)
	start := time.Now()
	result, err := g.inner.ListRecords(ctx, baseID, tableID, query)
	g.record(ctx, span, "ListRecords", start, err)
	g.recordCacheRead(ctx, "ListRecords", result != nil && result.FromCache, err)
	return result, err
}

func (g *InstrumentedGateway) GetRecord(ctx context.Context, baseID, tableID, recordID string) (*models.RecordResponse, error) {
	ctx, span := g.startSpan(ctx, "GetRecord",
		attribute.String("base_id", baseID),
		attribute.String("table_id", tableID),
		attribute.String("record_id", recordID),
	)
	start := time.Now()
	result, err := g.inner.GetRecord(ctx, baseID, tableID, recordID)
	g.record(ctx, span, "GetRecord", start, err)
	g.recordCacheRead(ctx, "GetRecord", result != nil && result.FromCache, err)
	return result, err
}

func (g *InstrumentedGateway) CreateRecord(ctx context.Context, baseID, tableID string, fields map[string]any) (*models.RecordResponse, error) {
	ctx, span := g.startSpan(ctx, "CreateRecord",
		attribute.String("base_id", baseID),
		attribute.String("table_id", tableID),
	)
	start := time.Now()
	result, err := g.inner.CreateRecord(ctx, baseID, tableID, fields)
	g.record(ctx, span, "CreateRecord", start, err)
	return result, err
}

func (g *InstrumentedGateway) UpdateRecord(ctx context.Context, baseID, tableID, recordID string, fields map[string]any) (*models.RecordResponse, error) {
	ctx, span := g.startSpan(ctx, "UpdateRecord",
		attribute.String("base_id", baseID),
		attribute.String("table_id", tableID),
		attribute.String("record_id", recordID),
	)
	start := time.Now()
	result, err := g.inner.UpdateRecord(ctx, baseID, tableID, recordID, fields)
	g.record(ctx, span, "UpdateRecord", start, err)
	return result, err
}

func (g *InstrumentedGateway) DeleteRecord(ctx context.Context, baseID, tableID, recordID string) (*models.DeleteRecordResponse, error) {
	ctx, span := g.startSpan(ctx, "DeleteRecord",
		attribute.String("base_id", baseID),
		attribute.String("table_id", tableID),
		attribute.String("record_id", recordID),
	)
	start := time.Now()
	result, err := g.inner.DeleteRecord(ctx, baseID, tableID, recordID)
	g.record(ctx, span, "DeleteRecord", start, err)
	return result, err
}

func (g *InstrumentedGateway) BatchCreateRecords(ctx context.Context, baseID, tableID string, records []models.RecordFields) (*models.RecordListResponse, error) {
	ctx, span := g.startSpan(ctx, "BatchCreateRecords",
		attribute.String("base_id", baseID),
		attribute.String("table_id", tableID),
		attribute.Int("record_count", len(records)),
	)
	start := time.Now()
	result, err := g.inner.BatchCreateRecords(ctx, baseID, tableID, records)
	g.record(ctx, span, "BatchCreateRecords", start, err)
	return result, err
}

func (g *InstrumentedGateway) Health(ctx context.Context) map[string]string {
	return g.inner.Health(ctx)
}
