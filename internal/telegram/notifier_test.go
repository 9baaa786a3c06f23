package telegram

import (
	"testing"

	"basewatch/internal/types"
)

func TestFormatNotification(t *testing.T) {
	n := types.Notification{
		Title:   "🚀 ETH Price Surge!",
		Message: "ETH increased by 6.00% to $106.00",
	}

	want := "*🚀 ETH Price Surge\\!*\n\nETH increased by 6\\.00% to $106\\.00"
	if got := FormatNotification(n); got != want {
		t.Errorf("FormatNotification = %q, want %q", got, want)
	}
}

func TestFormatNotificationEscapesWalletMessages(t *testing.T) {
	n := types.Notification{
		Title:   "👀 Wallet Activity Detected",
		Message: "Activity detected on monitored wallet 0x111111...",
	}

	want := "*👀 Wallet Activity Detected*\n\nActivity detected on monitored wallet 0x111111\\.\\.\\."
	if got := FormatNotification(n); got != want {
		t.Errorf("FormatNotification = %q, want %q", got, want)
	}
}
