package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopMountMetrics(t *testing.T) {
	m := NewNoopMountMetrics()

	assert.NotPanics(t, func() {
		m.RecordOperation("global", "Add", time.Millisecond, nil)
		m.RecordNotification("create_mount", "user")
		m.RecordMalformedRecord("global")
		m.SetMountCount("global", 3)
		m.RecordProbe("smb", "ok", time.Millisecond)
		m.RecordStoreOperation("badger", "read", time.Millisecond, errors.New("boom"))
	})
}

func TestPrometheusMountMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newPrometheusMountMetrics(reg)

	m.RecordOperation("global", "Add", time.Millisecond, nil)
	m.RecordOperation("global", "Add", time.Millisecond, errors.New("failed"))
	m.RecordNotification("create_mount", "group")
	m.RecordNotification("create_mount", "group")
	m.RecordMalformedRecord("user")
	m.SetMountCount("global", 4)
	m.RecordProbe("s3", "error", 2*time.Millisecond)
	m.RecordStoreOperation("filesystem", "write", time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("global", "Add", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("global", "Add", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.notificationsTotal.WithLabelValues("create_mount", "group")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.malformedTotal.WithLabelValues("user")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.mounts.WithLabelValues("global")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.probesTotal.WithLabelValues("s3", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeOpsTotal.WithLabelValues("filesystem", "write", "success")))
}

func TestServerDisabledMetricsEndpoint(t *testing.T) {
	if IsEnabled() {
		t.Skip("registry already initialized in this process")
	}

	srv := NewServer(ServerConfig{})
	assert.Equal(t, 9091, srv.Port())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "/metrics")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
