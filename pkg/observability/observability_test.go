package observability

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/pario-ai/sqlpilot/pkg/config"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "debug", JSON: true}, &buf)
	logger.Debug("hello", "k", "v")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "hello" || line["service"] != "sqlpilot" || line["k"] != "v" {
		t.Errorf("unexpected record: %v", line)
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "warn"}, &buf)
	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Errorf("level not applied: %q", out)
	}
}

func TestNewLoggerNilWriter(t *testing.T) {
	NewLogger(config.LogConfig{}, nil).Info("discarded")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetCounter().GetValue()
}

func sampleCount(t *testing.T, h prometheus.Observer) uint64 {
	t.Helper()
	var m dto.Metric
	if err := h.(prometheus.Histogram).Write(&m); err != nil {
		t.Fatal(err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestObserveGenerate(t *testing.T) {
	before := counterValue(t, generateRequestsTotal.WithLabelValues("mysql", OutcomeCached))
	ObserveGenerate("mysql", OutcomeCached)
	after := counterValue(t, generateRequestsTotal.WithLabelValues("mysql", OutcomeCached))
	if after-before != 1 {
		t.Errorf("expected counter +1, got %v", after-before)
	}

	before = counterValue(t, generateRequestsTotal.WithLabelValues("unknown", OutcomeUnsupported))
	ObserveGenerate("", OutcomeUnsupported)
	if counterValue(t, generateRequestsTotal.WithLabelValues("unknown", OutcomeUnsupported))-before != 1 {
		t.Error("empty dialect should be labelled unknown")
	}
}

func TestObserveCacheLookup(t *testing.T) {
	hits := counterValue(t, cacheLookupsTotal.WithLabelValues("hit"))
	misses := counterValue(t, cacheLookupsTotal.WithLabelValues("miss"))
	ObserveCacheLookup(true)
	ObserveCacheLookup(false)
	ObserveCacheLookup(false)
	if counterValue(t, cacheLookupsTotal.WithLabelValues("hit"))-hits != 1 {
		t.Error("expected one hit")
	}
	if counterValue(t, cacheLookupsTotal.WithLabelValues("miss"))-misses != 2 {
		t.Error("expected two misses")
	}
}

func TestObserveHistograms(t *testing.T) {
	before := sampleCount(t, backendLatencySeconds.WithLabelValues("openai"))
	ObserveBackendLatency("openai", 250*time.Millisecond)
	if sampleCount(t, backendLatencySeconds.WithLabelValues("openai"))-before != 1 {
		t.Error("expected one backend latency sample")
	}

	before = sampleCount(t, rateGateWaitSeconds)
	ObserveRateGateWait(0)
	if sampleCount(t, rateGateWaitSeconds)-before != 1 {
		t.Error("expected one rate gate sample")
	}
}

func TestMetricsMiddleware(t *testing.T) {
	h := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	before := counterValue(t, httpRequestsTotal.WithLabelValues("GET", "/x", "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	if counterValue(t, httpRequestsTotal.WithLabelValues("GET", "/x", "418"))-before != 1 {
		t.Error("expected request counted with status 418")
	}
}

func TestLoggingMiddlewareDoesNotPanic(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
}
