// Package lifecycle reconciles dependent services with the connectivity
// state: services run exactly while the node is attached upstream.
package lifecycle

import (
	"context"
	"time"
)

// Status is the last known lifecycle status of a service.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusRunning    Status = "running"
	StatusStopped    Status = "stopped"
	StatusFailed     Status = "failed"
)

// HealthStatus is a service's self-reported health.
type HealthStatus struct {
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	CheckAt time.Time `json:"check_at"`
}

// Healthy returns a healthy status stamped now.
func Healthy() HealthStatus {
	return HealthStatus{Status: "healthy", CheckAt: time.Now()}
}

// Unhealthy returns an unhealthy status with message.
func Unhealthy(message string) HealthStatus {
	return HealthStatus{Status: "unhealthy", Message: message, CheckAt: time.Now()}
}

// Stopped returns the status reported by services that are not running.
func Stopped() HealthStatus {
	return HealthStatus{Status: "stopped", CheckAt: time.Now()}
}

// Service is a dependent service gated on the upstream attachment. Stop must
// release transport resources such as open duplex connections.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health() HealthStatus
	// Dependencies names services that must start before this one.
	Dependencies() []string
}

// ServiceInfo describes a registered service.
type ServiceInfo struct {
	Name         string       `json:"name"`
	Status       Status       `json:"status"`
	Running      bool         `json:"running"`
	Health       HealthStatus `json:"health"`
	Dependencies []string     `json:"dependencies,omitempty"`
	Starts       int          `json:"starts"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	StoppedAt    *time.Time   `json:"stopped_at,omitempty"`
	LastError    string       `json:"last_error,omitempty"`
}
