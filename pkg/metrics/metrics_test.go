package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetrics_RecordAndExpose(t *testing.T) {
	t.Parallel()

	m := NewMetrics("testns")
	m.RecordRequest("listen.prerecorded", "POST", "200", 120*time.Millisecond)
	m.RecordLiveSessionStart()
	m.RecordLiveAudio(3200)
	m.RecordLiveEvent("Transcript")
	m.RecordLiveSessionEnd("closed", 2*time.Second)
	m.RecordError("rate_limit_error")

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
	body := recorder.Body.String()

	for _, want := range []string{
		`testns_requests_total{endpoint="listen.prerecorded",method="POST",status="200"} 1`,
		`testns_live_sessions_total{status="closed"} 1`,
		`testns_live_audio_bytes_total 3200`,
		`testns_live_events_total{kind="Transcript"} 1`,
		`testns_errors_total{error_type="rate_limit_error"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestMetrics_NilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.RecordRequest("x", "GET", "200", time.Second)
	m.RecordLiveSessionStart()
	m.RecordLiveSessionEnd("closed", time.Second)
	m.RecordLiveAudio(1)
	m.RecordLiveEvent("Open")
	m.RecordError("api_error")
}
