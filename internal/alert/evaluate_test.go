package alert

import (
	"context"
	"testing"
	"time"

	"basewatch/internal/types"
)

func TestFirstPriceObservationEstablishesBaseline(t *testing.T) {
	env := newTestEnv()
	env.priceAlert(types.AlertPriceIncrease, "ETH", 5)
	env.prices.set("ETH", 100)

	env.svc.CheckPriceAlerts(context.Background())

	if got := env.svc.ListNotifications(0, types.NotificationFilter{}); len(got) != 0 {
		t.Fatalf("expected no notifications on baseline establishment, got %d", len(got))
	}
	if env.svc.lastPrices["ETH"] != 100 {
		t.Errorf("expected baseline 100, got %v", env.svc.lastPrices["ETH"])
	}
}

func TestPriceIncreaseTriggers(t *testing.T) {
	env := newTestEnv()
	alert := env.priceAlert(types.AlertPriceIncrease, "ETH", 5)

	env.prices.set("ETH", 100)
	env.svc.CheckPriceAlerts(context.Background())
	env.prices.set("ETH", 106)
	env.svc.CheckPriceAlerts(context.Background())

	notifications := env.svc.ListNotifications(0, types.NotificationFilter{})
	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifications))
	}
	if notifications[0].AlertID != alert.ID {
		t.Errorf("notification references alert %s, want %s", notifications[0].AlertID, alert.ID)
	}
	if notifications[0].Message != "ETH increased by 6.00% to $106.00" {
		t.Errorf("unexpected message: %q", notifications[0].Message)
	}

	updated := env.svc.ListAlerts(types.AlertFilter{})[0]
	if updated.TriggeredCount != 1 {
		t.Errorf("expected triggeredCount 1, got %d", updated.TriggeredCount)
	}
	if updated.LastTriggered == nil {
		t.Error("expected lastTriggered to be set")
	}
}

func TestPriceIncreaseBelowThresholdDoesNotTrigger(t *testing.T) {
	env := newTestEnv()
	env.priceAlert(types.AlertPriceIncrease, "ETH", 5)

	env.prices.set("ETH", 100)
	env.svc.CheckPriceAlerts(context.Background())
	env.prices.set("ETH", 104)
	env.svc.CheckPriceAlerts(context.Background())

	if got := env.svc.ListNotifications(0, types.NotificationFilter{}); len(got) != 0 {
		t.Fatalf("expected no notifications for 4%% change, got %d", len(got))
	}
}

func TestPriceDecreaseTriggers(t *testing.T) {
	cases := []struct {
		name    string
		second  float64
		expects int
	}{
		{"fifteen percent drop fires", 85, 1},
		{"five percent drop does not", 95, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			env.priceAlert(types.AlertPriceDecrease, "ETH", 10)

			env.prices.set("ETH", 100)
			env.svc.CheckPriceAlerts(context.Background())
			env.prices.set("ETH", tc.second)
			env.svc.CheckPriceAlerts(context.Background())

			if got := env.svc.ListNotifications(0, types.NotificationFilter{}); len(got) != tc.expects {
				t.Fatalf("expected %d notifications, got %d", tc.expects, len(got))
			}
		})
	}
}

func TestPriceDeltaIsRollingNotCumulative(t *testing.T) {
	env := newTestEnv()
	env.priceAlert(types.AlertPriceIncrease, "ETH", 5)

	// 3% then 3% again: 6.1% from creation, but each step is below the
	// threshold against the immediately preceding reading.
	for _, p := range []float64{100, 103, 106.1} {
		env.prices.set("ETH", p)
		env.svc.CheckPriceAlerts(context.Background())
	}

	if got := env.svc.ListNotifications(0, types.NotificationFilter{}); len(got) != 0 {
		t.Fatalf("rolling delta must not accumulate, got %d notifications", len(got))
	}
}

func TestPriceProviderFailureLeavesBaseline(t *testing.T) {
	env := newTestEnv()
	env.priceAlert(types.AlertPriceIncrease, "ETH", 5)

	env.prices.set("ETH", 100)
	env.svc.CheckPriceAlerts(context.Background())

	// Provider returns 0: the contractual unavailable fallback.
	env.prices.set("ETH", 0)
	env.svc.CheckPriceAlerts(context.Background())
	if env.svc.lastPrices["ETH"] != 100 {
		t.Fatalf("baseline must survive a provider failure, got %v", env.svc.lastPrices["ETH"])
	}

	env.prices.set("ETH", 107)
	env.svc.CheckPriceAlerts(context.Background())
	if got := env.svc.ListNotifications(0, types.NotificationFilter{}); len(got) != 1 {
		t.Fatalf("expected trigger against the pre-failure baseline, got %d notifications", len(got))
	}
}

func TestLargeTransactionThreshold(t *testing.T) {
	env := newTestEnv()
	env.walletAlert(types.AlertLargeTransaction, testWalletA, 1000)

	ts := env.clock.Now().Add(-time.Minute)
	env.txs.set(testWalletA, []types.Transaction{
		{Hash: "0xbig", USDValue: 1500, Timestamp: ts, Asset: "ETH", Value: 0.5, Direction: "in"},
		{Hash: "0xsmall", USDValue: 500, Timestamp: ts, Asset: "ETH", Value: 0.1, Direction: "out"},
	})

	env.svc.CheckWalletAlerts(context.Background())

	notifications := env.svc.ListNotifications(0, types.NotificationFilter{})
	if len(notifications) != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", len(notifications))
	}
	if notifications[0].Type != types.AlertLargeTransaction {
		t.Errorf("unexpected type %s", notifications[0].Type)
	}
}

func TestWalletActivityFiresPerTransaction(t *testing.T) {
	env := newTestEnv()
	env.walletAlert(types.AlertWalletActivity, testWalletA, 1)

	ts := env.clock.Now().Add(-time.Minute)
	env.txs.set(testWalletA, []types.Transaction{
		{Hash: "0xbig", USDValue: 1500, Timestamp: ts},
		{Hash: "0xsmall", USDValue: 500, Timestamp: ts.Add(time.Second)},
	})

	env.svc.CheckWalletAlerts(context.Background())

	if got := env.svc.ListNotifications(0, types.NotificationFilter{}); len(got) != 2 {
		t.Fatalf("expected one notification per new transaction, got %d", len(got))
	}
}

func TestWatermarkPreventsReprocessing(t *testing.T) {
	env := newTestEnv()
	env.walletAlert(types.AlertWalletActivity, testWalletA, 1)

	env.txs.set(testWalletA, []types.Transaction{
		{Hash: "0xone", Timestamp: env.clock.Now().Add(-time.Minute)},
	})
	env.svc.CheckWalletAlerts(context.Background())
	if got := env.svc.ListNotifications(0, types.NotificationFilter{}); len(got) != 1 {
		t.Fatalf("expected first pass to fire, got %d", len(got))
	}

	// Same transactions on the next cycle: nothing is newer than the
	// watermark.
	env.clock.Advance(5 * time.Minute)
	env.svc.CheckWalletAlerts(context.Background())
	if got := env.svc.ListNotifications(0, types.NotificationFilter{}); len(got) != 1 {
		t.Fatalf("already-seen transaction re-fired, got %d notifications", len(got))
	}

	// A transaction newer than the watermark fires exactly once.
	env.txs.set(testWalletA, []types.Transaction{
		{Hash: "0xtwo", Timestamp: env.clock.Now().Add(time.Second)},
		{Hash: "0xone", Timestamp: env.clock.Now().Add(-6 * time.Minute)},
	})
	env.clock.Advance(5 * time.Minute)
	env.svc.CheckWalletAlerts(context.Background())
	if got := env.svc.ListNotifications(0, types.NotificationFilter{}); len(got) != 2 {
		t.Fatalf("expected exactly one more notification, got %d total", len(got))
	}
}

func TestWatermarkAtBoundaryIsNotReEmitted(t *testing.T) {
	env := newTestEnv()
	env.walletAlert(types.AlertWalletActivity, testWalletA, 1)

	// Transaction timestamp exactly at the watermark: strict greater-than
	// means no trigger.
	env.svc.CheckWalletAlerts(context.Background())
	env.txs.set(testWalletA, []types.Transaction{
		{Hash: "0xedge", Timestamp: env.svc.watermarkFor(testWalletA)},
	})
	env.svc.CheckWalletAlerts(context.Background())

	if got := env.svc.ListNotifications(0, types.NotificationFilter{}); len(got) != 0 {
		t.Fatalf("transaction at the watermark must not fire, got %d", len(got))
	}
}

func TestWalletFetchFailureStillAdvancesWatermark(t *testing.T) {
	env := newTestEnv()
	env.walletAlert(types.AlertWalletActivity, testWalletA, 1)

	env.txs.err = context.DeadlineExceeded
	env.svc.CheckWalletAlerts(context.Background())

	mark := env.svc.watermarkFor(testWalletA)
	if !mark.Equal(env.clock.Now()) {
		t.Fatalf("watermark must advance on fetch failure, got %v", mark)
	}

	// Activity older than the failed pass is not recovered later.
	env.txs.err = nil
	env.txs.set(testWalletA, []types.Transaction{
		{Hash: "0xlate", Timestamp: mark.Add(-time.Second)},
	})
	env.clock.Advance(5 * time.Minute)
	env.svc.CheckWalletAlerts(context.Background())
	if got := env.svc.ListNotifications(0, types.NotificationFilter{}); len(got) != 0 {
		t.Fatalf("late activity behind the watermark must stay skipped, got %d", len(got))
	}
}

func TestInactiveAlertIsSkipped(t *testing.T) {
	env := newTestEnv()
	alert := env.priceAlert(types.AlertPriceIncrease, "ETH", 5)

	env.prices.set("ETH", 100)
	env.svc.CheckPriceAlerts(context.Background())
	env.prices.set("ETH", 110)
	env.svc.CheckPriceAlerts(context.Background())

	inactive := false
	if _, err := env.svc.UpdateAlert(alert.ID, AlertPatch{IsActive: &inactive}); err != nil {
		t.Fatal(err)
	}

	env.prices.set("ETH", 130)
	env.svc.CheckPriceAlerts(context.Background())

	notifications := env.svc.ListNotifications(0, types.NotificationFilter{})
	if len(notifications) != 1 {
		t.Fatalf("inactive alert must not be evaluated, got %d notifications", len(notifications))
	}
	got := env.svc.ListAlerts(types.AlertFilter{})[0]
	if got.TriggeredCount != 1 {
		t.Errorf("toggling active must not touch counters, got %d", got.TriggeredCount)
	}
}

func TestEvaluationFailureIsolatedPerAlert(t *testing.T) {
	env := newTestEnv()
	env.priceAlert(types.AlertPriceIncrease, "MISSING", 5)
	env.priceAlert(types.AlertPriceIncrease, "ETH", 5)

	env.prices.set("ETH", 100)
	env.svc.CheckPriceAlerts(context.Background())
	env.prices.set("ETH", 110)
	env.svc.CheckPriceAlerts(context.Background())

	// The alert with no price data never blocks the healthy one.
	if got := env.svc.ListNotifications(0, types.NotificationFilter{}); len(got) != 1 {
		t.Fatalf("expected the healthy alert to fire, got %d notifications", len(got))
	}
}

func TestTestAlertIsDryRun(t *testing.T) {
	env := newTestEnv()
	alert := env.priceAlert(types.AlertPriceIncrease, "ETH", 5)

	env.prices.set("ETH", 100)
	env.svc.CheckPriceAlerts(context.Background())
	env.prices.set("ETH", 106)

	fired, err := env.svc.TestAlert(context.Background(), alert.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !fired {
		t.Error("expected test evaluation to fire")
	}
	if env.svc.lastPrices["ETH"] != 100 {
		t.Errorf("test run must not move the baseline, got %v", env.svc.lastPrices["ETH"])
	}
	if got := env.svc.ListNotifications(0, types.NotificationFilter{}); len(got) != 0 {
		t.Errorf("test run must not record notifications, got %d", len(got))
	}
	if got := env.svc.ListAlerts(types.AlertFilter{})[0]; got.TriggeredCount != 0 {
		t.Errorf("test run must not bump counters, got %d", got.TriggeredCount)
	}
}

func TestTestAlertWalletAndNotFound(t *testing.T) {
	env := newTestEnv()
	alert := env.walletAlert(types.AlertLargeTransaction, testWalletA, 1000)
	env.txs.set(testWalletA, []types.Transaction{
		{Hash: "0xbig", USDValue: 2000, Timestamp: env.clock.Now().Add(-time.Minute)},
	})

	fired, err := env.svc.TestAlert(context.Background(), alert.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !fired {
		t.Error("expected wallet test evaluation to fire")
	}
	if mark := env.svc.watermarkFor(testWalletA); !mark.IsZero() {
		t.Errorf("test run must not advance the watermark, got %v", mark)
	}

	if _, err := env.svc.TestAlert(context.Background(), "nope"); err != ErrAlertNotFound {
		t.Errorf("expected ErrAlertNotFound, got %v", err)
	}
}
