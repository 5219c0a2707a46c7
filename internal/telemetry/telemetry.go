// Package telemetry builds the periodic status samples published by the
// uplink and broadcast to dashboard clients.
package telemetry

import (
	"context"
	"errors"
	"maps"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Sample is one telemetry record.
type Sample struct {
	Device    string             `json:"device"`
	Role      string             `json:"role"`
	UptimeSec int64              `json:"uptime_s"`
	Timestamp time.Time          `json:"ts"`
	Readings  map[string]float64 `json:"readings,omitempty"`
}

// Source produces named readings.
type Source interface {
	Readings(ctx context.Context) (map[string]float64, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (map[string]float64, error)

func (f SourceFunc) Readings(ctx context.Context) (map[string]float64, error) { return f(ctx) }

// Multi merges readings from several sources. Failing sources are skipped
// and their errors joined.
type Multi []Source

func (m Multi) Readings(ctx context.Context) (map[string]float64, error) {
	out := make(map[string]float64)
	var errs []error
	for _, src := range m {
		r, err := src.Readings(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		maps.Copy(out, r)
	}
	return out, errors.Join(errs...)
}

// RuntimeSource reports process statistics.
type RuntimeSource struct{}

func (RuntimeSource) Readings(context.Context) (map[string]float64, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return map[string]float64{
		"goroutines":       float64(runtime.NumGoroutine()),
		"heap_alloc_bytes": float64(ms.HeapAlloc),
	}, nil
}

// ThermalSource reads a Linux thermal zone in millidegrees Celsius.
type ThermalSource struct {
	Path string
	Name string
}

// DefaultThermalSource reads the first SoC thermal zone.
func DefaultThermalSource() ThermalSource {
	return ThermalSource{Path: "/sys/class/thermal/thermal_zone0/temp", Name: "cpu_temp_c"}
}

func (t ThermalSource) Readings(context.Context) (map[string]float64, error) {
	raw, err := os.ReadFile(t.Path)
	if err != nil {
		return nil, err
	}
	milli, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return nil, err
	}
	return map[string]float64{t.Name: milli / 1000}, nil
}

// Sampler assembles samples for one device.
type Sampler struct {
	Device  string
	Source  Source
	Started time.Time
	Now     func() time.Time
}

// Sample builds a record for role. Source errors are tolerated: the sample
// carries whatever readings were available.
func (s *Sampler) Sample(ctx context.Context, role string) Sample {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	t := now()
	sample := Sample{
		Device:    s.Device,
		Role:      role,
		UptimeSec: int64(t.Sub(s.Started).Seconds()),
		Timestamp: t.UTC(),
	}
	if s.Source != nil {
		if r, _ := s.Source.Readings(ctx); len(r) > 0 {
			sample.Readings = r
		}
	}
	return sample
}
