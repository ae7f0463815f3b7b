package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSubmissionCreated()
	c.RecordSubmissionCreated()
	c.RecordReview("approved")
	c.RecordReview("approved")
	c.RecordReview("rejected")
	c.RecordUploadFailure("invalid_type")
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	if got := testutil.ToFloat64(c.submissionsCreated); got != 2 {
		t.Errorf("submissions_created = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.reviews.WithLabelValues("approved")); got != 2 {
		t.Errorf("reviews{approved} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.reviews.WithLabelValues("rejected")); got != 1 {
		t.Errorf("reviews{rejected} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.uploadFailures.WithLabelValues("invalid_type")); got != 1 {
		t.Errorf("upload_failures{invalid_type} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.httpStatus.WithLabelValues("404")); got != 1 {
		t.Errorf("http_status{404} = %v, want 1", got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordSubmissionCreated()
	c.RecordUploadLatency(150 * time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "trainingapp_submissions_created_total 1") {
		t.Errorf("metrics output should contain submissions counter:\n%s", body)
	}
	if !strings.Contains(body, "trainingapp_upload_latency_seconds_count 1") {
		t.Errorf("metrics output should contain latency histogram:\n%s", body)
	}
}

func TestNewCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("registering the same metrics twice should panic")
		}
	}()
	NewCollector(reg)
}
