package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAnalysis(t *testing.T) {
	before := testutil.ToFloat64(analysesTotal.WithLabelValues("physical-card", "exact"))
	RecordAnalysis("physical-card", "exact")
	assert.Equal(t, before+1, testutil.ToFloat64(analysesTotal.WithLabelValues("physical-card", "exact")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordJob("completed")
	RecordRejected("not_compatible")
	ObserveProcessing("apple-wallet", 150*time.Millisecond)

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "template_jobs_total")
	assert.Contains(t, body, "template_uploads_rejected_total")
	assert.Contains(t, body, "template_processing_duration_seconds")
}
