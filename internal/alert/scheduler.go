package alert

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Checker is the evaluation surface the scheduler drives.
type Checker interface {
	CheckPriceAlerts(ctx context.Context)
	CheckWalletAlerts(ctx context.Context)
}

// Scheduler drives the two monitoring cycles. Each cycle runs on its own
// ticker; a tick that arrives while the previous one is still being
// processed is dropped, not queued, so slow collaborators never pile up
// concurrent passes.
type Scheduler struct {
	checker     Checker
	priceEvery  time.Duration
	walletEvery time.Duration
}

func NewScheduler(checker Checker, priceEvery, walletEvery time.Duration) *Scheduler {
	if priceEvery <= 0 {
		priceEvery = 2 * time.Minute
	}
	if walletEvery <= 0 {
		walletEvery = 5 * time.Minute
	}
	return &Scheduler{checker: checker, priceEvery: priceEvery, walletEvery: walletEvery}
}

// Run starts both cycles and returns immediately. The cycles stop when ctx
// is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	go s.loop(ctx, s.priceEvery, s.checker.CheckPriceAlerts)
	go s.loop(ctx, s.walletEvery, s.checker.CheckWalletAlerts)
	log.Infof("🔍 alert monitoring started (price every %s, wallets every %s)", s.priceEvery, s.walletEvery)
}

func (s *Scheduler) loop(ctx context.Context, every time.Duration, check func(context.Context)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Running the check inline means a busy cycle simply misses
			// ticks; the ticker drops them.
			s.safeCheck(ctx, check)
		}
	}
}

func (s *Scheduler) safeCheck(ctx context.Context, check func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("🔥 panic recovered in alert cycle: %v", r)
		}
	}()
	check(ctx)
}
