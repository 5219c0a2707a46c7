package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveRoleTransition("local_ap", "attaching")
	pr.ObserveRoleTransition("attaching", "attached")
	pr.IncAttachResult(AttachStarted)
	pr.IncAttachResult(AttachSucceeded)
	pr.ObserveAttachDuration(1500 * time.Millisecond)
	pr.IncLinkLost()
	pr.SetServiceRunning("dashboard", true)
	pr.IncServiceStartFailure("uplink")
	pr.IncUplinkPublish(true)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `linkkeeper_role{role="attached"} 1`)
	assert.Contains(t, body, `linkkeeper_role{role="attaching"} 0`)
	assert.Contains(t, body, `linkkeeper_role_transitions_total{from="local_ap",to="attaching"} 1`)
	assert.Contains(t, body, `linkkeeper_service_running{service="dashboard"} 1`)
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.ObserveRoleTransition("a", "b")
		pr.IncAttachResult(AttachRejected)
		pr.IncLinkLost()
		pr.SetServiceRunning("x", false)
		pr.IncUplinkPublish(false)
	})
}

func TestHTTPHandler(t *testing.T) {
	reg := NewRegistry()
	NewPrometheusRecorder(reg).IncLinkLost()

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "linkkeeper_link_lost_total 1")
}
