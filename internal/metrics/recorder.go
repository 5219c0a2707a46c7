package metrics

import "time"

// AttachResult labels the outcome of an attach request or attempt.
type AttachResult string

const (
	AttachStarted       AttachResult = "started"
	AttachRejected      AttachResult = "rejected"
	AttachNoCredentials AttachResult = "no_credentials"
	AttachSucceeded     AttachResult = "attached"
	AttachTimedOut      AttachResult = "timeout"
)

// Recorder defines observability hooks for the supervisor, lifecycle manager and uplink.
type Recorder interface {
	ObserveRoleTransition(from, to string)
	IncAttachResult(result AttachResult)
	ObserveAttachDuration(d time.Duration)
	IncLinkLost()
	SetServiceRunning(service string, running bool)
	IncServiceStartFailure(service string)
	IncUplinkPublish(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are disabled).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRoleTransition(string, string) {}
func (NoopRecorder) IncAttachResult(AttachResult)         {}
func (NoopRecorder) ObserveAttachDuration(time.Duration)  {}
func (NoopRecorder) IncLinkLost()                         {}
func (NoopRecorder) SetServiceRunning(string, bool)       {}
func (NoopRecorder) IncServiceStartFailure(string)        {}
func (NoopRecorder) IncUplinkPublish(bool)                {}

var (
	_ Recorder = NoopRecorder{}
	_ Recorder = (*PrometheusRecorder)(nil)
)
