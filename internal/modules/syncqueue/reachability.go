package syncqueue

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pinger is the reachability probe target. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Prober is the default reachability monitor: it pings the backing store on
// an interval and notifies the replayer on the offline-to-online edge. The
// engine never blocks on it; it is purely a trigger.
type Prober struct {
	db       Pinger
	interval time.Duration
	notify   func()
	log      *zap.Logger
	online   bool
}

func NewProber(db Pinger, interval time.Duration, notify func(), log *zap.Logger) *Prober {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Prober{db: db, interval: interval, notify: notify, log: log.Named("reachability")}
}

func (p *Prober) Run(ctx context.Context) {
	p.probe(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probe(ctx)
		}
	}
}

func (p *Prober) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	err := p.db.PingContext(probeCtx)
	wasOnline := p.online
	p.online = err == nil

	switch {
	case !wasOnline && p.online:
		p.log.Info("backing store reachable")
		p.notify()
	case wasOnline && !p.online:
		p.log.Warn("backing store unreachable", zap.Error(err))
	}
}
