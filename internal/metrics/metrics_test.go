package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNilProviderIsSafe(t *testing.T) {
	var p *Provider
	p.RecordTick("s:0.0", "injected")
	p.RecordInjection("s:0.0", "numbered-yes")
	p.RecordSuppressed("s:0.0")
	p.RecordExcluded("s:0.0")
	p.RecordSourceError("s:0.0")
	p.RecordSinkError("s:0.0")
	p.WatcherStarted()
	p.WatcherStopped()
	if p.Registry() != nil {
		t.Fatal("expected nil registry")
	}
	if NewProvider(nil) != nil {
		t.Fatal("expected nil provider without registry")
	}
}

func scrape(t *testing.T, p *Provider) string {
	t.Helper()
	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	return rec.Body.String()
}

func TestProviderCountsInjections(t *testing.T) {
	p := NewProvider(prometheus.NewRegistry())
	p.RecordInjection("claude:0.0", "numbered-yes")
	p.RecordInjection("claude:0.0", "numbered-yes")
	p.RecordInjection("claude:0.0", "yes-no")

	body := scrape(t, p)
	if !strings.Contains(body, `promptwatch_injections_total{rule="numbered-yes",target="claude:0.0"} 2`) {
		t.Fatalf("numbered-yes counter missing:\n%s", body)
	}
	if !strings.Contains(body, `promptwatch_injections_total{rule="yes-no",target="claude:0.0"} 1`) {
		t.Fatalf("yes-no counter missing:\n%s", body)
	}
}

func TestProviderActiveWatchersGauge(t *testing.T) {
	p := NewProvider(prometheus.NewRegistry())
	p.WatcherStarted()
	p.WatcherStarted()
	p.WatcherStopped()
	if body := scrape(t, p); !strings.Contains(body, "promptwatch_active_watchers 1") {
		t.Fatalf("gauge missing:\n%s", body)
	}
}

func TestProviderHandlerExposesMetrics(t *testing.T) {
	p := NewProvider(prometheus.NewRegistry())
	p.RecordTick("claude:0.0", "no_prompt")

	body := scrape(t, p)
	if !strings.Contains(body, `promptwatch_ticks_total{outcome="no_prompt",target="claude:0.0"} 1`) {
		t.Fatalf("tick counter missing from exposition:\n%s", body)
	}
}
