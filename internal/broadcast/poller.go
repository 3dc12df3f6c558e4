package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Poller is the periodic trigger: it re-syncs upcoming broadcasts and
// reconciles the active session's status so transitions made outside this
// system (e.g. in the provider's own console) are picked up.
type Poller struct {
	svc        *Service
	operatorID string
	interval   time.Duration
	log        *slog.Logger
}

func NewPoller(svc *Service, operatorID string, interval time.Duration, log *slog.Logger) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{svc: svc, operatorID: operatorID, interval: interval, log: log}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	if _, err := p.svc.SyncUpcoming(ctx, p.operatorID); err != nil {
		p.log.Warn("periodic sync failed", "error", err)
	}

	active, err := p.svc.GetActiveSession()
	if err != nil {
		if !errors.Is(err, ErrNoActiveSession) {
			p.log.Warn("failed to load active session", "error", err)
		}
		return
	}

	if _, err := p.svc.CheckStatus(ctx, p.operatorID, active.RemoteBroadcastID); err != nil {
		p.log.Warn("periodic status check failed",
			"remote_broadcast_id", active.RemoteBroadcastID, "error", err)
	}
}
