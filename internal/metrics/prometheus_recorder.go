package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Roles tracked by the role gauge.
var roles = []string{"local_ap", "attaching", "attached", "fallback"}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	role            *prom.GaugeVec
	transitions     *prom.CounterVec
	attachResults   *prom.CounterVec
	attachDuration  prom.Histogram
	linkLost        prom.Counter
	serviceRunning  *prom.GaugeVec
	serviceFailures *prom.CounterVec
	uplinkPublishes *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the linkkeeper metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		role: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "linkkeeper",
			Name:      "role",
			Help:      "Current connectivity role (1 for the active role)",
		}, []string{"role"}),
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "linkkeeper",
			Name:      "role_transitions_total",
			Help:      "Role transitions by source and target role",
		}, []string{"from", "to"}),
		attachResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "linkkeeper",
			Name:      "attach_results_total",
			Help:      "Attach requests and outcomes",
		}, []string{"result"}),
		attachDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "linkkeeper",
			Name:      "attach_duration_seconds",
			Help:      "Time from attach request to link up",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}),
		linkLost: prom.NewCounter(prom.CounterOpts{
			Namespace: "linkkeeper",
			Name:      "link_lost_total",
			Help:      "Upstream link drops observed by the health check",
		}),
		serviceRunning: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "linkkeeper",
			Name:      "service_running",
			Help:      "Whether a dependent service is running",
		}, []string{"service"}),
		serviceFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "linkkeeper",
			Name:      "service_start_failures_total",
			Help:      "Dependent service start failures",
		}, []string{"service"}),
		uplinkPublishes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "linkkeeper",
			Name:      "uplink_publishes_total",
			Help:      "Telemetry publishes by result",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.role, pr.transitions, pr.attachResults, pr.attachDuration,
		pr.linkLost, pr.serviceRunning, pr.serviceFailures, pr.uplinkPublishes)
	return pr
}

func (p *PrometheusRecorder) ObserveRoleTransition(from, to string) {
	if p == nil || p.role == nil {
		return
	}
	for _, r := range roles {
		v := 0.0
		if r == to {
			v = 1
		}
		p.role.WithLabelValues(r).Set(v)
	}
	if from != to {
		p.transitions.WithLabelValues(from, to).Inc()
	}
}

func (p *PrometheusRecorder) IncAttachResult(result AttachResult) {
	if p == nil || p.attachResults == nil {
		return
	}
	p.attachResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveAttachDuration(d time.Duration) {
	if p == nil || p.attachDuration == nil {
		return
	}
	p.attachDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncLinkLost() {
	if p == nil || p.linkLost == nil {
		return
	}
	p.linkLost.Inc()
}

func (p *PrometheusRecorder) SetServiceRunning(service string, running bool) {
	if p == nil || p.serviceRunning == nil {
		return
	}
	v := 0.0
	if running {
		v = 1
	}
	p.serviceRunning.WithLabelValues(service).Set(v)
}

func (p *PrometheusRecorder) IncServiceStartFailure(service string) {
	if p == nil || p.serviceFailures == nil {
		return
	}
	p.serviceFailures.WithLabelValues(service).Inc()
}

func (p *PrometheusRecorder) IncUplinkPublish(success bool) {
	if p == nil || p.uplinkPublishes == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.uplinkPublishes.WithLabelValues(res).Inc()
}
