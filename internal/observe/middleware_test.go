package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newMiddlewareHarness wires a Middleware around the given handler with
// in-memory metric and span collection.
func newMiddlewareHarness(t *testing.T, h http.HandlerFunc) (http.Handler, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	exp := inMemoryTracing(t)
	return Middleware(m)(h), reader, exp
}

func collectDuration(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.Histogram[float64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	met := findMetric(rm, "taratil.http.request.duration")
	if met == nil {
		return nil
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("request duration metric is not a histogram")
	}
	return &hist
}

func TestMiddleware_CorrelationID(t *testing.T) {
	var cid string
	handler, _, _ := newMiddlewareHarness(t, func(w http.ResponseWriter, r *http.Request) {
		cid = CorrelationID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/verses", nil))

	if len(cid) != 32 {
		t.Errorf("correlation ID = %q, want 32 hex chars", cid)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != cid {
		t.Errorf("X-Correlation-ID header = %q, want %q", got, cid)
	}
}

func TestMiddleware_CorrelationID_FromTraceparent(t *testing.T) {
	const upstream = "4bf92f3577b34da6a3ce929d0e0e4736"

	var cid string
	handler, _, _ := newMiddlewareHarness(t, func(w http.ResponseWriter, r *http.Request) {
		cid = CorrelationID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/api/verses", nil)
	req.Header.Set("traceparent", "00-"+upstream+"-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if cid != upstream {
		t.Errorf("correlation ID = %q, want upstream trace ID %q", cid, upstream)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != upstream {
		t.Errorf("X-Correlation-ID header = %q, want %q", got, upstream)
	}
}

func TestMiddleware_SpanPerRequest(t *testing.T) {
	handler, _, exp := newMiddlewareHarness(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/verses/nope", nil))

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name != "HTTP GET /api/verses/nope" {
		t.Errorf("span name = %q", spans[0].Name)
	}

	var gotStatus int64
	for _, a := range spans[0].Attributes {
		if string(a.Key) == "http.response.status_code" {
			gotStatus = a.Value.AsInt64()
		}
	}
	if gotStatus != http.StatusNotFound {
		t.Errorf("span status attr = %d, want %d", gotStatus, http.StatusNotFound)
	}
}

func TestMiddleware_RecordsDuration(t *testing.T) {
	handler, reader, _ := newMiddlewareHarness(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/practice/score", nil))

	hist := collectDuration(t, reader)
	if hist == nil || len(hist.DataPoints) != 1 {
		t.Fatal("want exactly one duration sample")
	}
	dp := hist.DataPoints[0]
	if dp.Count != 1 {
		t.Errorf("sample count = %d, want 1", dp.Count)
	}

	want := map[string]string{"method": "POST", "path": "/api/practice/score"}
	for _, kv := range dp.Attributes.ToSlice() {
		if exp, ok := want[string(kv.Key)]; ok && kv.Value.AsString() == exp {
			delete(want, string(kv.Key))
		}
	}
	for k := range want {
		t.Errorf("duration sample missing attribute %q", k)
	}
}

func TestMiddleware_SkipsUpgradedConnections(t *testing.T) {
	handler, reader, _ := newMiddlewareHarness(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/ws/practice", nil))

	if hist := collectDuration(t, reader); hist != nil && len(hist.DataPoints) != 0 {
		t.Errorf("upgraded connection recorded %d duration samples, want 0", len(hist.DataPoints))
	}
}

func TestStatusRecorder_Unwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rec, statusCode: http.StatusOK}
	if sr.Unwrap() != rec {
		t.Error("Unwrap did not return the wrapped writer")
	}
}
