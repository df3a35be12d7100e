package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClassifyStatus(t *testing.T) {
	tests := map[int]string{200: "2xx", 301: "3xx", 404: "4xx", 503: "5xx", 0: "unknown", 700: "unknown"}
	for code, want := range tests {
		if got := ClassifyStatus(code); got != want {
			t.Errorf("ClassifyStatus(%d) = %s, want %s", code, got, want)
		}
	}
}

func TestRecordersAppearInExposition(t *testing.T) {
	RecordFetch("yes24", "blocked", 20*time.Millisecond)
	RecordVendorResult("", "offer")
	RecordSyncProduct("with_offers")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		`vinylscout_fetch_requests_total{class="blocked",vendor="yes24"}`,
		`vinylscout_fetch_duration_seconds_count{vendor="yes24"}`,
		`vinylscout_vendor_results_total{outcome="offer",vendor="unknown"}`,
		`vinylscout_sync_products_total{result="with_offers"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %s", want)
		}
	}
}
