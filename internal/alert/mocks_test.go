package alert

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"basewatch/internal/types"
)

type fakeProvider struct {
	mu     sync.Mutex
	prices map[string]float64
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{prices: make(map[string]float64)}
}

func (f *fakeProvider) set(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[strings.ToUpper(symbol)] = price
}

func (f *fakeProvider) GetPrice(symbol string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prices[strings.ToUpper(symbol)]
}

type fakeTxSource struct {
	mu    sync.Mutex
	txs   map[string][]types.Transaction
	err   error
	calls int
}

func newFakeTxSource() *fakeTxSource {
	return &fakeTxSource{txs: make(map[string][]types.Transaction)}
}

func (f *fakeTxSource) set(address string, txs []types.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs[strings.ToLower(address)] = txs
}

func (f *fakeTxSource) TransactionHistory(_ context.Context, address string, _ int) ([]types.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.txs[strings.ToLower(address)], nil
}

type memStore struct {
	mu       sync.Mutex
	alerts   []types.Alert
	history  []types.Notification
	saves    int
	loadErr  bool
	failSave bool
}

func (m *memStore) Load() ([]types.Alert, []types.Notification, error) {
	if m.loadErr {
		return nil, nil, errors.New("store unreadable")
	}
	return m.alerts, m.history, nil
}

func (m *memStore) Save(alerts []types.Alert, history []types.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errors.New("disk full")
	}
	m.alerts = alerts
	m.history = history
	m.saves++
	return nil
}

type fakeNotifier struct {
	sent []types.Notification
	err  error
}

func (f *fakeNotifier) Notify(n types.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

// fakeClock is an injectable time source for deterministic watermark and
// baseline tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	svc    *Service
	store  *memStore
	prices *fakeProvider
	txs    *fakeTxSource
	clock  *fakeClock
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store:  &memStore{},
		prices: newFakeProvider(),
		txs:    newFakeTxSource(),
		clock:  newFakeClock(),
	}
	env.svc = NewService(env.store, env.prices, env.txs, nil)
	env.svc.now = env.clock.Now
	return env
}

const (
	testWalletA = "0x1111111111111111111111111111111111111111"
	testWalletB = "0x2222222222222222222222222222222222222222"
)

func (e *testEnv) priceAlert(t types.AlertType, symbol string, threshold float64) types.Alert {
	a, err := e.svc.CreateAlert(CreateAlertInput{Type: t, Symbol: symbol, Threshold: threshold})
	if err != nil {
		panic(err)
	}
	return a
}

func (e *testEnv) walletAlert(t types.AlertType, address string, threshold float64) types.Alert {
	a, err := e.svc.CreateAlert(CreateAlertInput{Type: t, WalletAddress: address, Threshold: threshold})
	if err != nil {
		panic(err)
	}
	return a
}
