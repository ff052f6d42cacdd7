// Package telemetry records metrics and trace spans for server fan-out.
//
// Metrics are registered with the Prometheus default registry on package
// initialisation; spans go to whatever OpenTelemetry provider the process
// installed (a no-op provider by default).
package telemetry

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Namespace prefixes every metric name.
const Namespace = "fanout"

var tracer = otel.Tracer("fanout")

var (
	// serverRequests counts per-server requests by capability and result.
	serverRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "server_requests_total",
		Help:      "Per-server requests issued by fan-out, by capability and result",
	}, []string{"capability", "result"})

	// aggregationDuration tracks wall time from first request to merged result.
	aggregationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "aggregation_duration_seconds",
		Help:      "Time to collect all per-server batches",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	}, []string{"capability", "policy", "result"})

	// droppedItems counts result items discarded because a position did not map.
	droppedItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "dropped_items_total",
		Help:      "Result items dropped because their position could not be mapped",
	}, []string{"capability"})

	// inlayEvents counts inlay hint cache transitions.
	inlayEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "inlay_hint_events_total",
		Help:      "Inlay hint cache events by outcome",
	}, []string{"outcome"})
)

// Inlay hint cache outcomes.
const (
	InlaySkipped   = "skipped"
	InlayFetched   = "fetched"
	InlayInstalled = "installed"
	InlayCleared   = "cleared"
	InlayDiscarded = "discarded"
)

// StartAggregation opens a span covering one fan-out.
func StartAggregation(ctx context.Context, capability, id string, servers int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "aggregate.Collect",
		trace.WithAttributes(
			attribute.String("fanout.capability", capability),
			attribute.String("fanout.aggregation_id", id),
			attribute.Int("fanout.servers", servers),
		),
	)
}

// StartInlayFetch opens a span covering one inlay hint request.
func StartInlayFetch(ctx context.Context, document string, first, last int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "inlay.Fetch",
		trace.WithAttributes(
			attribute.String("fanout.document", document),
			attribute.Int("fanout.window.first", first),
			attribute.Int("fanout.window.last", last),
		),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordRequest counts one per-server request.
func RecordRequest(capability string, err error) {
	serverRequests.WithLabelValues(capability, result(err)).Inc()
}

// RecordAggregation observes the duration of one fan-out.
func RecordAggregation(capability, policy string, d time.Duration, err error) {
	aggregationDuration.WithLabelValues(capability, policy, result(err)).Observe(d.Seconds())
}

// RecordDropped counts items dropped for unmappable positions.
func RecordDropped(capability string, n int) {
	if n > 0 {
		droppedItems.WithLabelValues(capability).Add(float64(n))
	}
}

// RecordInlay counts an inlay hint cache event.
func RecordInlay(outcome string) {
	inlayEvents.WithLabelValues(outcome).Inc()
}

// WriteText writes this package's metrics in the Prometheus text format.
func WriteText(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), Namespace+"_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
