package daemon

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/linkkeeper/internal/logfields"
	"git.home.luguber.info/inful/linkkeeper/internal/supervisor"
)

// Jobs never take d.mu: Stop holds it while the scheduler drains them.

// pollPass advances a pending attach and reconciles dependent services.
func (d *Daemon) pollPass(ctx context.Context) {
	d.supervisor.Poll(ctx)
	d.reconcile(ctx)
}

// healthPass checks the upstream link; a drop stops dependents right away
// instead of waiting for the next poll.
func (d *Daemon) healthPass(ctx context.Context) {
	if d.supervisor.CheckHealth(ctx) {
		slog.Warn("Upstream link lost, services stopping", logfields.LastError(supervisor.ErrLinkLost.String()))
		d.reconcile(ctx)
	}
}

func (d *Daemon) reconcile(ctx context.Context) {
	if err := d.services.Reconcile(ctx, d.supervisor.State()); err != nil {
		slog.Debug("Reconcile incomplete", logfields.Error(err))
	}
}

// publishPass samples telemetry and fans it out to the running services.
func (d *Daemon) publishPass(ctx context.Context) {
	upRunning := d.uplink != nil && d.uplink.IsRunning()
	dashRunning := d.dashboard.IsRunning()
	if !upRunning && !dashRunning {
		return
	}

	sample := d.sampler.Sample(ctx, d.supervisor.State().Role.String())
	if upRunning {
		if err := d.uplink.Publish(ctx, sample); err != nil {
			slog.Warn("Telemetry publish failed", logfields.Error(err))
		}
	}
	if dashRunning {
		d.dashboard.Broadcast(sample)
	}
}
