package bidding

import (
	"context"
	"fmt"
	"time"

	"auction-marketplace/internal/lock"
	"auction-marketplace/utils"
)

const sweepLockKey = "auction:sweep"

// ExpirySweeper is the part of BiddingService the Sweeper drives
type ExpirySweeper interface {
	SweepExpiredAuctions(ctx context.Context) (int, error)
}

// Sweeper periodically closes expired auctions. Errors and panics inside a
// tick are logged and the loop keeps running.
type Sweeper struct {
	service  ExpirySweeper
	interval time.Duration
	locker   lock.Locker
}

// NewSweeper creates a sweeper; a nil locker means this is the only replica
func NewSweeper(service ExpirySweeper, interval time.Duration, locker lock.Locker) *Sweeper {
	if locker == nil {
		locker = lock.Noop{}
	}
	return &Sweeper{service: service, interval: interval, locker: locker}
}

// Run blocks until ctx is cancelled
func (s *Sweeper) Run(ctx context.Context) error {
	utils.Info("sweeper: started", map[string]any{"interval": s.interval.String()})
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.Info("sweeper: stopped", nil)
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one sweep and returns how many auctions it closed
func (s *Sweeper) Tick(ctx context.Context) (closed int) {
	defer func() {
		if r := recover(); r != nil {
			utils.Error("sweeper: sweep panicked", map[string]any{"panic": fmt.Sprint(r)})
			closed = 0
		}
	}()

	// the lease outlives a slow sweep by at most one interval
	unlock, ok, err := s.locker.TryLock(ctx, sweepLockKey, s.interval)
	if err != nil {
		utils.Warn("sweeper: lock unavailable, skipping tick", map[string]any{"error": err.Error()})
		return 0
	}
	if !ok {
		utils.Debug("sweeper: another replica holds the sweep lock", nil)
		return 0
	}
	defer unlock(context.WithoutCancel(ctx))

	closed, err = s.service.SweepExpiredAuctions(ctx)
	if err != nil {
		utils.Error("sweeper: sweep finished with errors", map[string]any{
			"closed": closed,
			"error":  err.Error(),
		})
		return closed
	}
	if closed > 0 {
		utils.Info("sweeper: closed expired auctions", map[string]any{"closed": closed})
	}
	return closed
}
