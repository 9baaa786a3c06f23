package alert

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"basewatch/internal/chain"
	"basewatch/internal/price"
	"basewatch/internal/store"
	"basewatch/internal/types"
)

// ErrAlertNotFound is returned by Update/Delete/Test when no alert has the
// given id.
var ErrAlertNotFound = errors.New("alert not found")

// ValidationError rejects malformed alert input before anything is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransactionSource delivers a wallet's recent normalized transactions,
// newest first.
type TransactionSource interface {
	TransactionHistory(ctx context.Context, address string, limit int) ([]types.Transaction, error)
}

// Notifier pushes a freshly persisted notification to an outbound channel.
// Delivery is best effort; failures are logged, never retried.
type Notifier interface {
	Notify(n types.Notification) error
}

// Service owns the alert definitions, the bounded notification history, the
// per-symbol price baselines and the per-wallet watermarks. The scheduler is
// the only writer of the baseline and watermark maps; query paths read
// concurrently under the shared lock.
type Service struct {
	mu         sync.RWMutex
	persistMu  sync.Mutex
	alerts     []types.Alert
	history    []types.Notification
	lastPrices map[string]float64
	watermarks map[string]time.Time

	store    store.Store
	prices   price.Provider
	txs      TransactionSource
	notifier Notifier
	metrics  *Metrics
	now      func() time.Time
}

// NewService loads the persisted state from st. A missing or unreadable
// store starts the service cold rather than failing startup.
func NewService(st store.Store, prices price.Provider, txs TransactionSource, metrics *Metrics) *Service {
	s := &Service{
		lastPrices: make(map[string]float64),
		watermarks: make(map[string]time.Time),
		store:      st,
		prices:     prices,
		txs:        txs,
		metrics:    metrics,
		now:        time.Now,
	}

	alerts, history, err := st.Load()
	if err != nil {
		log.Errorf("failed to load persisted alerts, starting empty: %v", err)
	}
	s.alerts = alerts
	s.history = history

	log.Infof("📋 loaded %d alerts and %d notifications", len(s.alerts), len(s.history))
	s.metrics.setActiveAlerts(s.countActiveLocked())
	return s
}

// SetNotifier attaches an outbound delivery channel. Optional.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// CreateAlertInput carries the user-supplied fields of a new alert.
type CreateAlertInput struct {
	Type          types.AlertType `json:"type"`
	Symbol        string          `json:"symbol"`
	WalletAddress string          `json:"walletAddress"`
	Threshold     float64         `json:"threshold"`
	Description   string          `json:"description"`
}

func (in *CreateAlertInput) validate() error {
	if !in.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown alert type %q", in.Type)}
	}
	if in.Threshold <= 0 {
		return &ValidationError{Field: "threshold", Reason: "must be a positive magnitude"}
	}
	if in.Type.IsPrice() && strings.TrimSpace(in.Symbol) == "" {
		return &ValidationError{Field: "symbol", Reason: "required for price alerts"}
	}
	if in.Type.IsWallet() {
		if strings.TrimSpace(in.WalletAddress) == "" {
			return &ValidationError{Field: "walletAddress", Reason: "required for wallet alerts"}
		}
		if !chain.IsValidAddress(in.WalletAddress) {
			return &ValidationError{Field: "walletAddress", Reason: "not a valid address"}
		}
	}
	return nil
}

// CreateAlert validates the input, assigns an id, and persists the new
// alert. New alerts start active with a zero trigger count.
func (s *Service) CreateAlert(in CreateAlertInput) (types.Alert, error) {
	if err := in.validate(); err != nil {
		return types.Alert{}, err
	}

	alert := types.Alert{
		ID:            uuid.NewString(),
		Type:          in.Type,
		Symbol:        strings.TrimSpace(in.Symbol),
		WalletAddress: strings.TrimSpace(in.WalletAddress),
		Threshold:     in.Threshold,
		Description:   in.Description,
		IsActive:      true,
		CreatedAt:     s.now(),
	}

	s.mu.Lock()
	s.alerts = append(s.alerts, alert)
	active := s.countActiveLocked()
	s.mu.Unlock()

	s.persist()
	s.metrics.setActiveAlerts(active)

	log.Infof("🔔 created %s alert for %s", alert.Type, alert.Target())
	return alert, nil
}

// ListAlerts returns alerts matching the filter, newest first.
func (s *Service) ListAlerts(f types.AlertFilter) []types.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if f.IsActive != nil && a.IsActive != *f.IsActive {
			continue
		}
		if f.WalletAddress != "" && !strings.EqualFold(a.WalletAddress, f.WalletAddress) {
			continue
		}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// AlertPatch carries the mutable fields of an alert. Nil fields are left
// unchanged.
type AlertPatch struct {
	Description *string  `json:"description"`
	IsActive    *bool    `json:"isActive"`
	Threshold   *float64 `json:"threshold"`
}

// UpdateAlert merges the patch into the alert and persists.
func (s *Service) UpdateAlert(id string, patch AlertPatch) (types.Alert, error) {
	if patch.Threshold != nil && *patch.Threshold <= 0 {
		return types.Alert{}, &ValidationError{Field: "threshold", Reason: "must be a positive magnitude"}
	}

	s.mu.Lock()
	idx := s.findLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return types.Alert{}, ErrAlertNotFound
	}

	a := &s.alerts[idx]
	if patch.Description != nil {
		a.Description = *patch.Description
	}
	if patch.IsActive != nil {
		a.IsActive = *patch.IsActive
	}
	if patch.Threshold != nil {
		a.Threshold = *patch.Threshold
	}
	updated := *a
	active := s.countActiveLocked()
	s.mu.Unlock()

	s.persist()
	s.metrics.setActiveAlerts(active)
	return updated, nil
}

// DeleteAlert removes the alert and persists. Notifications referencing the
// alert stay in the history with their original alertId.
func (s *Service) DeleteAlert(id string) (types.Alert, error) {
	s.mu.Lock()
	idx := s.findLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return types.Alert{}, ErrAlertNotFound
	}

	removed := s.alerts[idx]
	s.alerts = append(s.alerts[:idx], s.alerts[idx+1:]...)
	active := s.countActiveLocked()
	s.mu.Unlock()

	s.persist()
	s.metrics.setActiveAlerts(active)
	return removed, nil
}

// ListNotifications returns up to limit notifications matching the filter,
// newest first. Limit defaults to 50.
func (s *Service) ListNotifications(limit int, f types.NotificationFilter) []types.Notification {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Notification, 0, limit)
	for _, n := range s.history {
		if f.Type != "" && n.Type != f.Type {
			continue
		}
		if f.Read != nil && n.Read != *f.Read {
			continue
		}
		out = append(out, n)
		if len(out) == limit {
			break
		}
	}
	return out
}

// MarkRead flips the read flag on the given notifications and persists.
// Returns how many were marked.
func (s *Service) MarkRead(ids []string) int {
	idSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		idSet[id] = true
	}

	s.mu.Lock()
	marked := 0
	for i := range s.history {
		if idSet[s.history[i].ID] && !s.history[i].Read {
			s.history[i].Read = true
			marked++
		}
	}
	s.mu.Unlock()

	if marked > 0 {
		s.persist()
	}
	return marked
}

func (s *Service) Stats() types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := types.Stats{
		TotalAlerts:        len(s.alerts),
		TotalNotifications: len(s.history),
		AlertTypes:         make(map[types.AlertType]int),
	}
	for _, a := range s.alerts {
		stats.AlertTypes[a.Type]++
		if a.IsActive {
			stats.ActiveAlerts++
		}
	}
	for _, n := range s.history {
		if !n.Read {
			stats.UnreadNotifications++
		}
	}

	recent := len(s.history)
	if recent > 10 {
		recent = 10
	}
	stats.RecentActivity = append([]types.Notification(nil), s.history[:recent]...)
	return stats
}

func (s *Service) findLocked(id string) int {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Service) countActiveLocked() int {
	n := 0
	for _, a := range s.alerts {
		if a.IsActive {
			n++
		}
	}
	return n
}

func (s *Service) snapshotLocked() ([]types.Alert, []types.Notification) {
	alerts := append([]types.Alert(nil), s.alerts...)
	history := append([]types.Notification(nil), s.history...)
	return alerts, history
}

// persist snapshots the current collections and writes them. The persist
// lock serializes writers from both scheduler cycles and keeps snapshots in
// write order, so a save never lands after one taken from newer state. On
// failure the in-memory state stays authoritative for this process; the
// next mutating operation retries.
func (s *Service) persist() {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	alerts, history := s.snapshotLocked()
	s.mu.RUnlock()

	if err := s.store.Save(alerts, history); err != nil {
		log.Errorf("failed to persist alert state: %v", err)
	}
}
