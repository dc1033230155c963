package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findCounter は指定ラベルを持つカウンタ値を返す。見つからない場合はfalse。
func findCounter(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) (float64, bool) {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m.GetCounter().GetValue(), true
			}
		}
	}
	return 0, false
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := map[string]string{}
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestNewCollector_ReturnsNonNil(t *testing.T) {
	if c := NewCollector(prometheus.NewRegistry()); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordCreditsAwarded_SumsByReason は理由別にクレジットが合算されることを検証する。
func TestRecordCreditsAwarded_SumsByReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCreditsAwarded(ReasonSaveAward, 5)
	c.RecordCreditsAwarded(ReasonSaveAward, 5)
	c.RecordCreditsAwarded(ReasonLoginBonus, 10)
	c.RecordCreditsAwarded(ReasonAdjust, -3)

	if v, _ := findCounter(t, reg, "feedcredit_credits_awarded_total", map[string]string{"reason": ReasonSaveAward}); v != 10 {
		t.Errorf("save_award = %v, want 10", v)
	}
	if v, _ := findCounter(t, reg, "feedcredit_credits_awarded_total", map[string]string{"reason": ReasonLoginBonus}); v != 10 {
		t.Errorf("login_bonus = %v, want 10", v)
	}
	if _, ok := findCounter(t, reg, "feedcredit_credits_awarded_total", map[string]string{"reason": ReasonAdjust}); ok {
		t.Error("負の加算が記録されている")
	}
}

func TestRecordFeedSaved_SeparatesDuplicates(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFeedSaved(false)
	c.RecordFeedSaved(true)
	c.RecordFeedSaved(true)

	if v, _ := findCounter(t, reg, "feedcredit_feed_saves_total", map[string]string{"result": "saved"}); v != 1 {
		t.Errorf("saved = %v, want 1", v)
	}
	if v, _ := findCounter(t, reg, "feedcredit_feed_saves_total", map[string]string{"result": "duplicate"}); v != 2 {
		t.Errorf("duplicate = %v, want 2", v)
	}
}

func TestRecordUpstreamFetch(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordUpstreamFetch("reddit", true, 120*time.Millisecond)
	c.RecordUpstreamFetch("reddit", false, time.Second)

	if v, _ := findCounter(t, reg, "feedcredit_upstream_fetch_total", map[string]string{"source": "reddit", "result": "failure"}); v != 1 {
		t.Errorf("failure = %v, want 1", v)
	}
}

// TestHandler_ServesMetrics はHandlerがPrometheus形式でメトリクスを返すことを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordHTTPStatus(http.StatusCreated)
	c.RecordReport("report")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(w.Body)
	for _, want := range []string{
		`feedcredit_http_status_total{status_code="201"} 1`,
		`feedcredit_reports_total{action="report"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("body does not contain %q", want)
		}
	}
}

func TestNop_ImplementsRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordCreditsAwarded(ReasonSaveAward, 5)
	r.RecordUpstreamFetch("twitter", true, 0)
}
