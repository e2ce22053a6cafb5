package metrics_test

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jrazmi/growlog/core/repositories"
	"github.com/jrazmi/growlog/infrastructure/metrics"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{fmt.Errorf("find: %w", repositories.ErrNotFound), "not_found"},
		{repositories.UniqueViolation("User", []string{"email"}), repositories.CodeUniqueViolation},
		{&repositories.ValidationError{Path: "where", Reason: "bad"}, "validation"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := metrics.Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestCollector(t *testing.T) {
	c := metrics.New(nil)

	c.Observe("Plant", "findMany", time.Millisecond, nil)
	c.Observe("Plant", "findMany", time.Millisecond, nil)
	c.Observe("User", "create", time.Millisecond, repositories.UniqueViolation("User", []string{"email"}))
	if got := testutil.ToFloat64(c.DelegateOps.WithLabelValues("Plant", "findMany", "ok")); got != 2 {
		t.Errorf("findMany ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.DelegateOps.WithLabelValues("User", "create", repositories.CodeUniqueViolation)); got != 1 {
		t.Errorf("create P2002 = %v, want 1", got)
	}

	pool := c.Pool()
	pool.WorkerStarted("sweeper")
	pool.TaskCompleted("sweeper", time.Second)
	if got := testutil.ToFloat64(c.WorkersActive.WithLabelValues("sweeper")); got != 1 {
		t.Errorf("workers active = %v, want 1", got)
	}

	c.ObserveHTTP("GET", "/v1/:model", 200, time.Millisecond)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{"growlog_delegate_operations_total", "growlog_http_requests_total", "growlog_worker_tasks_total"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition lacks %s", want)
		}
	}
}
