package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/uq/internal/config"
	"github.com/mbeoliero/uq/pkg/metrics"
)

// retryDelay is the pause after a failed next-tick computation
const retryDelay = 30 * time.Second

// IdleMarker moves users that have been quiet since cutoff from online to away
type IdleMarker interface {
	MarkIdleAway(ctx context.Context, cutoff int64) (int64, error)
}

// Sweeper periodically demotes idle online users to away
type Sweeper struct {
	marker    IdleMarker
	cron      string
	awayAfter time.Duration
}

// NewSweeper creates a Sweeper, the cron expression must be valid
func NewSweeper(marker IdleMarker, cfg config.PresenceConfig) (*Sweeper, error) {
	if !gronx.IsValid(cfg.Cron) {
		return nil, fmt.Errorf("invalid presence cron expression: %s", cfg.Cron)
	}
	return &Sweeper{
		marker:    marker,
		cron:      cfg.Cron,
		awayAfter: cfg.AwayAfter,
	}, nil
}

// RunOnce marks users whose last_seen is older than now-awayAfter
func (s *Sweeper) RunOnce(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-s.awayAfter).UnixMilli()
	n, err := s.marker.MarkIdleAway(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.PresenceSwept.Add(float64(n))
		log.CtxInfo(ctx, "presence sweep: marked_away=%d, cutoff=%d", n, cutoff)
	}
	return n, nil
}

// Run sleeps until each cron tick and sweeps, until ctx is done
func (s *Sweeper) Run(ctx context.Context) {
	log.Info("presence sweeper started: cron=%s, away_after=%s", s.cron, s.awayAfter)
	for {
		next, err := gronx.NextTickAfter(s.cron, time.Now(), false)
		if err != nil {
			log.CtxError(ctx, "presence next tick failed: cron=%s, error=%v", s.cron, err)
			if !sleep(ctx, retryDelay) {
				return
			}
			continue
		}

		if !sleep(ctx, time.Until(next)) {
			log.Info("presence sweeper stopping")
			return
		}

		if _, err := s.RunOnce(ctx, time.Now()); err != nil {
			log.CtxError(ctx, "presence sweep failed: %v", err)
		}
	}
}

// sleep waits for d and reports false if ctx ended first
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
