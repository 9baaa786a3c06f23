package alert

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"basewatch/internal/types"
	"basewatch/lib/helpers"
)

// maxHistory bounds the notification history. Older entries are silently
// evicted from the tail.
const maxHistory = 1000

// TriggerEvent is the context a fired alert carries into its notification.
// The set of variants is closed: one per alert family.
type TriggerEvent interface {
	triggerEvent()
}

// PriceTrigger is the context of a price_increase or price_decrease trigger.
type PriceTrigger struct {
	Symbol        string  `json:"symbol"`
	CurrentPrice  float64 `json:"currentPrice"`
	PreviousPrice float64 `json:"previousPrice"`
	PercentChange float64 `json:"percentageChange"`
}

func (PriceTrigger) triggerEvent() {}

// TransactionTrigger is the context of a large_transaction or
// wallet_activity trigger.
type TransactionTrigger struct {
	types.Transaction
	WalletAddress string `json:"walletAddress"`
}

func (TransactionTrigger) triggerEvent() {}

// trigger records a notification for the alert, updates its counters,
// persists the whole state, and fans out to the optional notifier. History
// insert, counter update and persistence form one logical unit.
func (s *Service) trigger(alertID string, ev TriggerEvent) {
	s.mu.Lock()
	idx := s.findLocked(alertID)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	n := s.recordTriggerLocked(&s.alerts[idx], ev)
	s.mu.Unlock()

	s.persist()
	s.metrics.incNotifications(n.Type)

	log.Infof("🚨 alert triggered: %s", n.Title)
	log.Debugf("trigger context: %s", spew.Sdump(ev))

	if s.notifier != nil {
		if err := s.notifier.Notify(n); err != nil {
			log.Errorf("failed to deliver notification %s: %v", n.ID, err)
		}
	}
}

// recordTriggerLocked builds the notification, inserts it at the head of
// the history, truncates beyond maxHistory, and bumps the alert's counters.
func (s *Service) recordTriggerLocked(a *types.Alert, ev TriggerEvent) types.Notification {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("failed to encode trigger context: %v", err)
		data = nil
	}

	now := s.now()
	n := types.Notification{
		ID:        uuid.NewString(),
		AlertID:   a.ID,
		Type:      a.Type,
		Title:     titleFor(a, ev),
		Message:   messageFor(a, ev),
		Data:      data,
		Timestamp: now,
	}

	s.history = append([]types.Notification{n}, s.history...)
	if len(s.history) > maxHistory {
		s.history = s.history[:maxHistory]
	}

	a.TriggeredCount++
	t := now
	a.LastTriggered = &t
	return n
}

func titleFor(a *types.Alert, ev TriggerEvent) string {
	switch a.Type {
	case types.AlertPriceIncrease:
		return fmt.Sprintf("🚀 %s Price Surge!", a.Symbol)
	case types.AlertPriceDecrease:
		return fmt.Sprintf("📉 %s Price Drop!", a.Symbol)
	case types.AlertLargeTransaction:
		if t, ok := ev.(TransactionTrigger); ok {
			return fmt.Sprintf("🐋 Large %s Transaction", t.Asset)
		}
		return "🐋 Large Transaction"
	case types.AlertWalletActivity:
		return "👀 Wallet Activity Detected"
	}
	return "🔔 Alert Triggered"
}

func messageFor(a *types.Alert, ev TriggerEvent) string {
	switch t := ev.(type) {
	case PriceTrigger:
		direction := "increased"
		if a.Type == types.AlertPriceDecrease {
			direction = "decreased"
		}
		return fmt.Sprintf("%s %s by %.2f%% to $%s",
			t.Symbol, direction, math.Abs(t.PercentChange), helpers.FormatPriceUS(t.CurrentPrice, false))

	case TransactionTrigger:
		if a.Type == types.AlertLargeTransaction {
			direction := "Sent"
			if t.Direction == "in" {
				direction = "Received"
			}
			return fmt.Sprintf("%.4f %s ($%s) - %s",
				t.Value, t.Asset, humanize.CommafWithDigits(t.USDValue, 2), direction)
		}
		return fmt.Sprintf("Activity detected on monitored wallet %s", helpers.ShortAddress(t.WalletAddress))
	}
	return "Alert condition met"
}
