package alert

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"basewatch/internal/types"
)

// recentTxWindow bounds how many recent transactions a wallet check fetches.
const recentTxWindow = 10

// CheckPriceAlerts runs one price cycle: every active price alert is
// evaluated against the rolling baseline. A failure on one alert never
// aborts the rest of the pass.
func (s *Service) CheckPriceAlerts(ctx context.Context) {
	alerts := s.activeAlerts(types.AlertType.IsPrice)
	if len(alerts) == 0 {
		return
	}

	log.Debugf("💰 checking %d price alerts", len(alerts))
	s.metrics.incPriceCycles()

	for _, a := range alerts {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.checkPriceAlert(a)
	}
}

func (s *Service) checkPriceAlert(a types.Alert) {
	s.metrics.incEvaluated()

	current := s.prices.GetPrice(a.Symbol)
	if current <= 0 {
		// Provider unavailable or symbol unknown. The baseline stays
		// untouched so the next cycle compares against the same reading.
		s.metrics.incErrors()
		log.Warnf("no price for %s, skipping alert %s this cycle", a.Symbol, a.ID)
		return
	}

	key := strings.ToUpper(a.Symbol)
	s.mu.Lock()
	previous, seen := s.lastPrices[key]
	s.lastPrices[key] = current
	s.mu.Unlock()

	if !seen {
		// First observation establishes the baseline and cannot trigger.
		log.Debugf("baseline for %s set to %.6f", key, current)
		return
	}

	percentChange := (current - previous) / previous * 100

	switch {
	case a.Type == types.AlertPriceIncrease && percentChange >= a.Threshold,
		a.Type == types.AlertPriceDecrease && percentChange <= -a.Threshold:
		s.trigger(a.ID, PriceTrigger{
			Symbol:        a.Symbol,
			CurrentPrice:  current,
			PreviousPrice: previous,
			PercentChange: percentChange,
		})
	}
}

// CheckWalletAlerts runs one wallet cycle: every active wallet alert is
// evaluated against the transactions newer than the wallet's watermark.
func (s *Service) CheckWalletAlerts(ctx context.Context) {
	alerts := s.activeAlerts(types.AlertType.IsWallet)
	if len(alerts) == 0 {
		return
	}

	log.Debugf("👛 checking %d wallet alerts", len(alerts))
	s.metrics.incWalletCycles()

	for _, a := range alerts {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.checkWalletAlert(ctx, a)
	}
}

func (s *Service) checkWalletAlert(ctx context.Context, a types.Alert) {
	s.metrics.incEvaluated()
	wallet := strings.ToLower(a.WalletAddress)

	txs, err := s.txs.TransactionHistory(ctx, a.WalletAddress, recentTxWindow)
	if err != nil {
		s.metrics.incErrors()
		log.Errorf("failed to fetch transactions for %s: %v", a.WalletAddress, err)
		// The watermark still advances: forward progress is guaranteed at
		// the cost of possibly missing activity a late fetch would have
		// recovered.
		s.advanceWatermark(wallet)
		return
	}

	mark := s.watermarkFor(wallet)
	for _, tx := range txs {
		if !tx.Timestamp.After(mark) {
			continue
		}

		switch a.Type {
		case types.AlertLargeTransaction:
			if tx.USDValue >= a.Threshold {
				s.trigger(a.ID, TransactionTrigger{Transaction: tx, WalletAddress: a.WalletAddress})
			}
		case types.AlertWalletActivity:
			s.trigger(a.ID, TransactionTrigger{Transaction: tx, WalletAddress: a.WalletAddress})
		}
	}

	s.advanceWatermark(wallet)
}

// TestAlert evaluates one alert immediately, outside the schedule, and
// reports whether it would fire. It is a dry run: baselines, watermarks,
// counters and history are left untouched.
func (s *Service) TestAlert(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	idx := s.findLocked(id)
	var a types.Alert
	if idx >= 0 {
		a = s.alerts[idx]
	}
	s.mu.RUnlock()

	if idx < 0 {
		return false, ErrAlertNotFound
	}

	switch {
	case a.Type.IsPrice():
		current := s.prices.GetPrice(a.Symbol)
		if current <= 0 {
			return false, errors.Errorf("no price available for %s", a.Symbol)
		}

		s.mu.RLock()
		previous, seen := s.lastPrices[strings.ToUpper(a.Symbol)]
		s.mu.RUnlock()
		if !seen {
			return false, nil
		}

		percentChange := (current - previous) / previous * 100
		if a.Type == types.AlertPriceIncrease {
			return percentChange >= a.Threshold, nil
		}
		return percentChange <= -a.Threshold, nil

	case a.Type.IsWallet():
		txs, err := s.txs.TransactionHistory(ctx, a.WalletAddress, recentTxWindow)
		if err != nil {
			return false, errors.Wrap(err, "could not fetch transactions")
		}

		mark := s.watermarkFor(strings.ToLower(a.WalletAddress))
		for _, tx := range txs {
			if !tx.Timestamp.After(mark) {
				continue
			}
			if a.Type == types.AlertWalletActivity || tx.USDValue >= a.Threshold {
				return true, nil
			}
		}
		return false, nil
	}

	return false, errors.Errorf("unsupported alert type: %s", a.Type)
}

func (s *Service) activeAlerts(match func(types.AlertType) bool) []types.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []types.Alert
	for _, a := range s.alerts {
		if a.IsActive && match(a.Type) {
			out = append(out, a)
		}
	}
	return out
}

func (s *Service) watermarkFor(wallet string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watermarks[wallet]
}

// advanceWatermark moves the wallet's watermark to the present. Watermarks
// only ever move forward.
func (s *Service) advanceWatermark(wallet string) {
	now := s.now()
	s.mu.Lock()
	if now.After(s.watermarks[wallet]) {
		s.watermarks[wallet] = now
	}
	s.mu.Unlock()
}
