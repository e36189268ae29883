package core

import (
	"bytes"
	"context"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopImplementations(_ *testing.T) {
	o := defaultObservability()
	o.logger.Debug("d", "k", "v")
	o.logger.Info("i")
	o.logger.Warn("w")
	o.logger.Error("e")
	o.metrics.Observe(context.Background(), "op", true, time.Millisecond)
	_, span := o.tracer.Start(context.Background(), "op")
	span.End(nil)
	o.audit.Record(context.Background(), AuditEntry{})
}

func TestClockFuncNilFallsBackToUTC(t *testing.T) {
	var c ClockFunc
	if c.Now().Location() != time.UTC {
		t.Fatalf("expected UTC")
	}
	fixed := time.Unix(42, 0)
	if !ClockFunc(func() time.Time { return fixed }).Now().Equal(fixed) {
		t.Fatalf("clock func ignored")
	}
}

func TestExpvarMetricsRecorderExports(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "local_save", true, 10*time.Millisecond)
	rec.Observe(context.Background(), "local_save", false, 5*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Second)

	snap := rec.Snapshot()
	if snap.DurationsMS["local_save"] != 15 {
		t.Fatalf("unexpected duration total %+v", snap)
	}
	if snap.Results["local_save"]["success"] != 1 || snap.Results["local_save"]["error"] != 1 {
		t.Fatalf("unexpected results %+v", snap)
	}
	v := expvar.Get(rec.Name())
	if v == nil || !strings.Contains(v.String(), "local_save") {
		t.Fatalf("expvar export missing")
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	rec.Observe(context.Background(), "remote_upsert", true, 20*time.Millisecond)
	rec.Observe(context.Background(), "remote_upsert", false, 30*time.Millisecond)
	rec.Observe(context.Background(), "remote_upsert", false, 30*time.Millisecond)

	if got := testutil.ToFloat64(rec.total.WithLabelValues("remote_upsert", "error")); got != 2 {
		t.Fatalf("expected 2 errors, got %v", got)
	}
	if got := testutil.CollectAndCount(rec.duration); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestJSONTraceTracer(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "add_project")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "delete_agency")
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 || entries[0].Status != "success" || entries[1].Error != "boom" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if !strings.Contains(buf.String(), `"operation":"add_project"`) {
		t.Fatalf("missing JSON output: %q", buf.String())
	}
}

func TestLogAuditRecorder(t *testing.T) {
	log := &captureLogger{}
	rec := LogAuditRecorder{Logger: log}
	rec.Record(context.Background(), AuditEntry{Operation: "add_agency", Status: AuditStatusSuccess})
	rec.Record(context.Background(), AuditEntry{Operation: "delete_agency", Status: AuditStatusError, Error: "x"})
	if !log.has("i:audit") || !log.has("w:audit") {
		t.Fatalf("unexpected log calls %v", log.calls)
	}
	LogAuditRecorder{}.Record(context.Background(), AuditEntry{})
}

func TestMultiMetricsRecorder(t *testing.T) {
	a, b := &captureMetricsRecorder{}, &captureMetricsRecorder{}
	MultiMetricsRecorder(a, nil, b).Observe(context.Background(), "local_save", true, time.Millisecond)
	if !a.has("local_save", true) || !b.has("local_save", true) {
		t.Fatalf("observation not fanned out")
	}
}
