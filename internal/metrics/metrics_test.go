package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAuthAttempt(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthAttempt("credentials", "success")
	c.RecordAuthAttempt("credentials", "success")
	c.RecordAuthAttempt("credentials", "invalid_credentials")
	c.RecordAuthAttempt("google", "success")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.authAttempts.WithLabelValues("credentials", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.authAttempts.WithLabelValues("credentials", "invalid_credentials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.authAttempts.WithLabelValues("google", "success")))
}

func TestRecordHTTPRequestUnmatchedRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(http.MethodGet, "", http.StatusNotFound, 5*time.Millisecond)
	c.RecordHTTPRequest(http.MethodGet, "/api/team", http.StatusOK, 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/team", "200")))
}

func TestContactAndTaskCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordContactSubmitted()
	c.RecordContactsPurged(7)
	c.RecordContactsPurged(0)
	c.RecordTaskProcessed("contacts.purge", "ok")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.contactsSubmitted))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.contactsPurged))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksProcessed.WithLabelValues("contacts.purge", "ok")))
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordAuthAttempt("credentials", "success")

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `site_auth_attempts_total{method="credentials",outcome="success"} 1`))
}

func TestNopSatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordAuthAttempt("credentials", "success")
	r.RecordContactsPurged(3)
}
