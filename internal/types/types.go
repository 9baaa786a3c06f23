package types

import (
	"encoding/json"
	"time"
)

// AlertType identifies the alert family. Price types compare successive
// observations of a symbol, wallet types watch on-chain activity.
type AlertType string

const (
	AlertPriceIncrease    AlertType = "price_increase"
	AlertPriceDecrease    AlertType = "price_decrease"
	AlertLargeTransaction AlertType = "large_transaction"
	AlertWalletActivity   AlertType = "wallet_activity"
)

func (t AlertType) Valid() bool {
	switch t {
	case AlertPriceIncrease, AlertPriceDecrease, AlertLargeTransaction, AlertWalletActivity:
		return true
	}
	return false
}

// IsPrice reports whether the alert compares price observations.
func (t AlertType) IsPrice() bool {
	return t == AlertPriceIncrease || t == AlertPriceDecrease
}

// IsWallet reports whether the alert watches wallet transactions.
func (t AlertType) IsWallet() bool {
	return t == AlertLargeTransaction || t == AlertWalletActivity
}

type Alert struct {
	ID             string     `json:"id"`
	Type           AlertType  `json:"type"`
	Symbol         string     `json:"symbol,omitempty"`
	WalletAddress  string     `json:"walletAddress,omitempty"`
	Threshold      float64    `json:"threshold"`
	Description    string     `json:"description,omitempty"`
	IsActive       bool       `json:"isActive"`
	TriggeredCount int        `json:"triggeredCount"`
	LastTriggered  *time.Time `json:"lastTriggered"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Target returns what the alert watches: the symbol for price alerts, the
// wallet address for wallet alerts.
func (a Alert) Target() string {
	if a.Type.IsPrice() {
		return a.Symbol
	}
	return a.WalletAddress
}

// Notification is one entry of the bounded alert history. AlertID may
// reference an alert that has since been deleted.
type Notification struct {
	ID        string          `json:"id"`
	AlertID   string          `json:"alertId"`
	Type      AlertType       `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Read      bool            `json:"read"`
}

// Transaction is a normalized on-chain transfer, enriched with USD values.
type Transaction struct {
	Hash         string    `json:"hash"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Value        float64   `json:"value"`
	Asset        string    `json:"asset"`
	TokenName    string    `json:"tokenName,omitempty"`
	TokenAddress string    `json:"tokenAddress,omitempty"`
	Direction    string    `json:"direction"`
	Type         string    `json:"type"`
	Status       string    `json:"status,omitempty"`
	BlockNumber  uint64    `json:"blockNumber"`
	Timestamp    time.Time `json:"timestamp"`
	GasUsed      float64   `json:"gasUsed"`
	GasPriceGwei float64   `json:"gasPrice"`
	USDValue     float64   `json:"usdValue"`
	GasCostUSD   float64   `json:"gasCostUsd"`
	ShortHash    string    `json:"shortHash,omitempty"`
	ExplorerURL  string    `json:"explorerUrl,omitempty"`
}

// TokenBalance is one position of a wallet portfolio.
type TokenBalance struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Decimals   int     `json:"decimals"`
	Balance    float64 `json:"balance"`
	Price      float64 `json:"price"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// Portfolio is the aggregated token view of a wallet.
type Portfolio struct {
	Tokens     []TokenBalance `json:"tokens"`
	TotalValue float64        `json:"totalValue"`
	TokenCount int            `json:"tokenCount"`
	Timestamp  time.Time      `json:"timestamp"`
}

// AlertFilter narrows ListAlerts results. Zero values match everything,
// WalletAddress compares case-insensitively.
type AlertFilter struct {
	Type          AlertType
	IsActive      *bool
	WalletAddress string
}

// NotificationFilter narrows ListNotifications results.
type NotificationFilter struct {
	Type AlertType
	Read *bool
}

type Stats struct {
	TotalAlerts         int               `json:"totalAlerts"`
	ActiveAlerts        int               `json:"activeAlerts"`
	TotalNotifications  int               `json:"totalNotifications"`
	UnreadNotifications int               `json:"unreadNotifications"`
	AlertTypes          map[AlertType]int `json:"alertTypes"`
	RecentActivity      []Notification    `json:"recentActivity"`
}
