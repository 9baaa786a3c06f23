package wallet

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"basewatch/internal/chain"
	"basewatch/internal/price"
	"basewatch/internal/types"
	"basewatch/lib/helpers"
)

const (
	explorerTxURL = "https://basescan.org/tx/"

	// Transfer logs are filtered over this many recent blocks.
	transferLogWindow = 5000
)

// ChainReader is the subset of the chain client the wallet service needs.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	Block(ctx context.Context, number uint64, fullTx bool) (*chain.Block, error)
	BlockTime(ctx context.Context, number uint64) (time.Time, error)
	TransactionReceipt(ctx context.Context, hash string) (*chain.Receipt, error)
	TransferLogs(ctx context.Context, address string, fromBlock, toBlock uint64) ([]chain.TransferLog, error)
	TokenInfo(ctx context.Context, tokenAddress string) (chain.TokenInfo, error)
	TokenBalanceOf(ctx context.Context, wallet, tokenAddress string) (float64, chain.TokenInfo, error)
	ETHBalance(ctx context.Context, address string) (float64, error)
	GasPrice(ctx context.Context) (float64, error)
}

// Service assembles normalized, USD-enriched transaction histories and
// portfolio views on top of the raw chain client.
type Service struct {
	chain      ChainReader
	prices     price.Provider
	scanBlocks uint64
}

func NewService(chainClient ChainReader, prices price.Provider, scanBlocks uint64) *Service {
	if scanBlocks == 0 {
		scanBlocks = 25
	}
	return &Service{chain: chainClient, prices: prices, scanBlocks: scanBlocks}
}

// Well-known contracts on Base, used to classify transactions.
var knownContracts = map[string]struct{ Name, Type string }{
	"0x2626664c2603336e57b271c5c0b26f421741e481": {"Uniswap V3 Router", "dex"},
	"0x49048044d57e1c92a77f79988d21fa8faf74e97e": {"Base Bridge", "bridge"},
	"0x833589fcd6edb6e08f4c7c32d4f71b54bda02913": {"USDC Token", "token"},
	"0x4200000000000000000000000000000000000006": {"WETH Token", "token"},
}

// TransactionHistory returns the wallet's most recent transactions, native
// and ERC-20, newest first, enriched with USD values. Individual block or
// log failures are logged and skipped, never fatal.
func (s *Service) TransactionHistory(ctx context.Context, address string, limit int) ([]types.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	latest, err := s.chain.BlockNumber(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not resolve latest block")
	}

	txs := s.nativeTransactions(ctx, address, latest)
	txs = append(txs, s.tokenTransfers(ctx, address, latest)...)

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.After(txs[j].Timestamp)
	})
	if len(txs) > limit {
		txs = txs[:limit]
	}

	s.enrich(txs)
	return txs, nil
}

// nativeTransactions scans the last scanBlocks blocks for transfers where
// the wallet is sender or receiver.
func (s *Service) nativeTransactions(ctx context.Context, address string, latest uint64) []types.Transaction {
	wallet := strings.ToLower(address)
	var txs []types.Transaction

	for i := uint64(0); i < s.scanBlocks && i <= latest; i++ {
		block, err := s.chain.Block(ctx, latest-i, true)
		if err != nil {
			log.Warnf("skipping block %d: %v", latest-i, err)
			continue
		}

		for _, tx := range block.Transactions {
			from := strings.ToLower(tx.From)
			to := strings.ToLower(tx.To)
			if from != wallet && to != wallet {
				continue
			}

			receipt, err := s.chain.TransactionReceipt(ctx, tx.Hash)
			if err != nil {
				log.Warnf("skipping tx %s, no receipt: %v", tx.Hash, err)
				continue
			}

			status := "failed"
			if receipt.Status {
				status = "success"
			}
			direction := "in"
			if from == wallet {
				direction = "out"
			}

			txs = append(txs, types.Transaction{
				Hash:         tx.Hash,
				From:         tx.From,
				To:           tx.To,
				Value:        decimal.NewFromBigInt(tx.ValueWei, -18).InexactFloat64(),
				Asset:        "ETH",
				Direction:    direction,
				Type:         classify(tx.From, tx.To, wallet),
				Status:       status,
				BlockNumber:  block.Number,
				Timestamp:    block.Timestamp,
				GasUsed:      float64(receipt.GasUsed),
				GasPriceGwei: decimal.NewFromBigInt(tx.GasPriceWei, -9).InexactFloat64(),
			})
		}
	}
	return txs
}

// tokenTransfers decodes ERC-20 Transfer events touching the wallet over
// the recent log window.
func (s *Service) tokenTransfers(ctx context.Context, address string, latest uint64) []types.Transaction {
	wallet := strings.ToLower(address)
	fromBlock := uint64(0)
	if latest > transferLogWindow {
		fromBlock = latest - transferLogWindow
	}

	logs, err := s.chain.TransferLogs(ctx, address, fromBlock, latest)
	if err != nil {
		log.Warnf("could not fetch transfer logs for %s: %v", address, err)
		return nil
	}

	var txs []types.Transaction
	for _, l := range logs {
		info, err := s.chain.TokenInfo(ctx, l.TokenAddress)
		if err != nil {
			info = chain.TokenInfo{Address: l.TokenAddress, Symbol: "UNKNOWN", Name: "Unknown Token", Decimals: 18}
		}

		ts, err := s.chain.BlockTime(ctx, l.BlockNumber)
		if err != nil {
			log.Warnf("skipping transfer %s, no block time: %v", l.TxHash, err)
			continue
		}

		direction := "in"
		if strings.ToLower(l.From) == wallet {
			direction = "out"
		}

		txs = append(txs, types.Transaction{
			Hash:         l.TxHash,
			From:         l.From,
			To:           l.To,
			Value:        decimal.NewFromBigInt(l.RawValue, -int32(info.Decimals)).InexactFloat64(),
			Asset:        info.Symbol,
			TokenName:    info.Name,
			TokenAddress: l.TokenAddress,
			Direction:    direction,
			Type:         "token_transfer",
			BlockNumber:  l.BlockNumber,
			Timestamp:    ts,
		})
	}
	return txs
}

// enrich adds USD valuations in place. Valuation failures degrade to zero
// value, never abort: that is the contract, not an accident.
func (s *Service) enrich(txs []types.Transaction) {
	if len(txs) == 0 {
		return
	}
	ethPrice := s.prices.GetPrice("ETH")

	for i := range txs {
		tx := &txs[i]

		switch {
		case tx.Asset == "ETH":
			tx.USDValue = tx.Value * ethPrice
		case tx.Asset != "" && tx.Asset != "UNKNOWN":
			tx.USDValue = tx.Value * s.prices.GetPrice(tx.Asset)
		}

		tx.GasCostUSD = tx.GasUsed * tx.GasPriceGwei / 1e9 * ethPrice
		tx.ShortHash = helpers.ShortHash(tx.Hash)
		tx.ExplorerURL = explorerTxURL + tx.Hash
	}
}

func classify(from, to, wallet string) string {
	from = strings.ToLower(from)
	to = strings.ToLower(to)

	if contract, ok := knownContracts[to]; ok {
		return contract.Type
	}
	switch {
	case from == wallet && to == wallet:
		return "self"
	case from == wallet:
		return "send"
	case to == wallet:
		return "receive"
	}
	return "unknown"
}
