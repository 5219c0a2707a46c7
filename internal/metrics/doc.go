// Package metrics provides connectivity and service metrics for linkkeeper.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics collection needs no nil checks at call sites:
//
//	sup := supervisor.New(r, store, supervisor.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// PrometheusRecorder methods are also safe on a nil receiver.
package metrics
