package wallet

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"basewatch/internal/types"
)

// Tokens checked for every portfolio request.
var commonTokens = []types.TokenBalance{
	{Address: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Symbol: "USDC", Name: "USD Coin", Decimals: 6},
	{Address: "0x4200000000000000000000000000000000000006", Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18},
	{Address: "0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb", Symbol: "DAI", Name: "Dai Stablecoin", Decimals: 18},
	{Address: "0xd9aAEc86B65D86f6A7B5B1b0c42FFA531710b6CA", Symbol: "USDbC", Name: "USD Base Coin", Decimals: 6},
}

// Overview is the quick wallet summary: native balance and current gas.
type Overview struct {
	Address      string    `json:"address"`
	ETHBalance   float64   `json:"ethBalance"`
	GasPriceGwei float64   `json:"gasPrice"`
	Timestamp    time.Time `json:"timestamp"`
}

func (s *Service) Overview(ctx context.Context, address string) (*Overview, error) {
	balance, err := s.chain.ETHBalance(ctx, address)
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch ETH balance")
	}
	gasPrice, err := s.chain.GasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch gas price")
	}
	return &Overview{
		Address:      address,
		ETHBalance:   balance,
		GasPriceGwei: gasPrice,
		Timestamp:    time.Now().UTC(),
	}, nil
}

// Portfolio returns the wallet's ETH plus common token positions with USD
// values and percentage allocation. Per-token failures are logged and the
// token skipped.
func (s *Service) Portfolio(ctx context.Context, address string) (*types.Portfolio, error) {
	ethBalance, err := s.chain.ETHBalance(ctx, address)
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch ETH balance")
	}
	ethPrice := s.prices.GetPrice("ETH")

	tokens := []types.TokenBalance{{
		Symbol:   "ETH",
		Name:     "Ethereum",
		Address:  "native",
		Decimals: 18,
		Balance:  ethBalance,
		Price:    ethPrice,
		Value:    ethBalance * ethPrice,
	}}

	for _, token := range commonTokens {
		balance, _, err := s.chain.TokenBalanceOf(ctx, address, token.Address)
		if err != nil {
			log.Warnf("could not fetch %s balance for %s: %v", token.Symbol, address, err)
			continue
		}
		if balance <= 0 {
			continue
		}

		tokenPrice := s.prices.GetPrice(token.Symbol)
		position := token
		position.Balance = balance
		position.Price = tokenPrice
		position.Value = balance * tokenPrice
		tokens = append(tokens, position)
	}

	var total float64
	for _, t := range tokens {
		total += t.Value
	}
	for i := range tokens {
		if total > 0 {
			tokens[i].Percentage = tokens[i].Value / total * 100
		}
	}

	return &types.Portfolio{
		Tokens:     tokens,
		TotalValue: total,
		TokenCount: len(tokens),
		Timestamp:  time.Now().UTC(),
	}, nil
}
