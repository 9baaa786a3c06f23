package price

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	log "github.com/sirupsen/logrus"
)

// Provider returns the current USD price for a symbol. Implementations
// return 0 when the upstream is unavailable or the symbol is unknown; 0 is
// the contractual fallback, never an error.
type Provider interface {
	GetPrice(symbol string) float64
}

// Common Base chain assets mapped to their CoinPaprika coin IDs. USDbC is
// priced as USDC.
var defaultCoinIDs = map[string]string{
	"eth":      "eth-ethereum",
	"ethereum": "eth-ethereum",
	"weth":     "weth-weth",
	"btc":      "btc-bitcoin",
	"usdc":     "usdc-usd-coin",
	"usdbc":    "usdc-usd-coin",
	"dai":      "dai-dai",
}

// PaprikaProvider resolves symbols against the CoinPaprika API, falling back
// to a coin search for symbols outside the static table. Resolved IDs are
// cached for the lifetime of the process.
type PaprikaProvider struct {
	client *coinpaprika.Client

	mu  sync.RWMutex
	ids map[string]string
}

func NewPaprikaProvider(apiProKey string) *PaprikaProvider {
	httpClient := &http.Client{Timeout: 5 * time.Second}

	var client *coinpaprika.Client
	if apiProKey != "" {
		client = coinpaprika.NewClient(httpClient, coinpaprika.WithAPIKey(apiProKey))
	} else {
		client = coinpaprika.NewClient(httpClient)
	}

	return &PaprikaProvider{
		client: client,
		ids:    make(map[string]string),
	}
}

func (p *PaprikaProvider) GetPrice(symbol string) float64 {
	coinID, ok := p.resolveCoinID(symbol)
	if !ok {
		log.Debugf("no coin ID found for symbol %s", symbol)
		return 0
	}

	ticker, err := p.client.Tickers.GetByID(coinID, &coinpaprika.TickersOptions{Quotes: "USD"})
	if err != nil {
		log.Errorf("failed to fetch price for %s: %v", coinID, err)
		return 0
	}

	quote, ok := ticker.Quotes["USD"]
	if !ok || quote.Price == nil {
		return 0
	}
	return *quote.Price
}

// resolveCoinID maps a symbol to a CoinPaprika coin ID: static table first,
// then a cached symbol search.
func (p *PaprikaProvider) resolveCoinID(symbol string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(symbol))
	if s == "" {
		return "", false
	}
	if id, ok := defaultCoinIDs[s]; ok {
		return id, true
	}

	p.mu.RLock()
	id, ok := p.ids[s]
	p.mu.RUnlock()
	if ok {
		return id, true
	}

	id = p.searchCoinID(s)
	if id == "" {
		return "", false
	}
	p.mu.Lock()
	p.ids[s] = id
	p.mu.Unlock()
	return id, true
}

func (p *PaprikaProvider) searchCoinID(symbol string) string {
	searchOpts := &coinpaprika.SearchOptions{
		Query:      symbol,
		Categories: "currencies",
		Modifier:   "symbol_search",
	}
	result, err := p.client.Search.Search(searchOpts)
	if err != nil || len(result.Currencies) == 0 || result.Currencies[0].ID == nil {
		log.Debugf("no CoinPaprika match for symbol %s", symbol)
		return ""
	}
	return *result.Currencies[0].ID
}
