package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Records(t *testing.T) {
	m := New(true, "test")

	m.RecordStage("research", "research_complete", 2*time.Second)
	m.RecordStage("research", "research_complete", time.Second)
	m.JobStarted("standard")
	m.JobFinished("review_complete", time.Minute)
	m.ObserveQuality(75)
	m.RecordCheckpoint("save")
	m.ObserveHTTP(http.MethodGet, "/api/v1/projects", 200, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.stageRuns.WithLabelValues("research", "research_complete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobsStarted.WithLabelValues("standard")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeJobs))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkpoints.WithLabelValues("save")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/projects", "200")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New(true, "")
	m.RecordStage("write", "draft_complete", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `agency_stage_runs_total{stage="write",status="draft_complete"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_Disabled(t *testing.T) {
	for _, m := range []*Metrics{New(false, ""), nil} {
		assert.False(t, m.Enabled())
		m.RecordStage("x", "y", time.Second)
		m.JobStarted("quick")
		m.JobFinished("failed", time.Second)
		m.ObserveQuality(1)
		m.RecordCheckpoint("restore")
		m.ObserveHTTP("GET", "/", 200, 0)

		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
}
