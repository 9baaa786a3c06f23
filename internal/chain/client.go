package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ERC-20 function selectors and the Transfer event signature.
const (
	selBalanceOf = "0x70a08231"
	selDecimals  = "0x313ce567"
	selSymbol    = "0x95d89b41"
	selName      = "0x06fdde03"

	transferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"
)

// Client talks JSON-RPC to a Base (or any EVM) node. All calls are bounded
// by the HTTP client timeout; failures are transient errors for the caller
// to log and retry.
type Client struct {
	rpcURL string
	http   *http.Client

	mu         sync.Mutex
	blockTimes map[uint64]time.Time
}

func NewClient(rpcURL string) *Client {
	return &Client{
		rpcURL:     rpcURL,
		http:       &http.Client{Timeout: 10 * time.Second},
		blockTimes: make(map[uint64]time.Time),
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return errors.Wrap(err, "could not encode rpc request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "could not build rpc request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "rpc call %s failed", method)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return errors.Wrapf(err, "could not decode rpc response for %s", method)
	}
	if rpcResp.Error != nil {
		return errors.Errorf("rpc call %s failed: %s (code %d)", method, rpcResp.Error.Message, rpcResp.Error.Code)
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return errors.Wrapf(err, "could not decode result for %s", method)
		}
	}
	return nil
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var raw string
	if err := c.call(ctx, "eth_blockNumber", nil, &raw); err != nil {
		return 0, err
	}
	return parseHexUint64(raw)
}

// ETHBalance returns the native balance of address in ether.
func (c *Client) ETHBalance(ctx context.Context, address string) (float64, error) {
	var raw string
	if err := c.call(ctx, "eth_getBalance", []interface{}{address, "latest"}, &raw); err != nil {
		return 0, err
	}
	wei, err := parseHexBig(raw)
	if err != nil {
		return 0, err
	}
	return weiToUnit(wei, 18), nil
}

// GasPrice returns the current gas price in gwei.
func (c *Client) GasPrice(ctx context.Context) (float64, error) {
	var raw string
	if err := c.call(ctx, "eth_gasPrice", nil, &raw); err != nil {
		return 0, err
	}
	wei, err := parseHexBig(raw)
	if err != nil {
		return 0, err
	}
	return weiToUnit(wei, 9), nil
}

// TokenInfo describes an ERC-20 contract.
type TokenInfo struct {
	Address  string
	Symbol   string
	Name     string
	Decimals int
}

// TokenInfo reads symbol, name and decimals from the token contract.
// Contracts that do not answer get the usual placeholders.
func (c *Client) TokenInfo(ctx context.Context, tokenAddress string) (TokenInfo, error) {
	if !IsValidAddress(tokenAddress) {
		return TokenInfo{}, errors.Errorf("invalid token address: %s", tokenAddress)
	}

	info := TokenInfo{Address: tokenAddress, Symbol: "UNKNOWN", Name: "Unknown Token", Decimals: 18}

	if raw, err := c.ethCall(ctx, tokenAddress, selDecimals); err == nil {
		if v, err := decodeUint(raw); err == nil {
			info.Decimals = int(v.Int64())
		}
	}
	if raw, err := c.ethCall(ctx, tokenAddress, selSymbol); err == nil {
		if s := decodeString(raw); s != "" {
			info.Symbol = s
		}
	}
	if raw, err := c.ethCall(ctx, tokenAddress, selName); err == nil {
		if s := decodeString(raw); s != "" {
			info.Name = s
		}
	}
	return info, nil
}

// TokenBalanceOf returns the balance of wallet for the given token, scaled
// by the token's decimals.
func (c *Client) TokenBalanceOf(ctx context.Context, wallet, tokenAddress string) (float64, TokenInfo, error) {
	info, err := c.TokenInfo(ctx, tokenAddress)
	if err != nil {
		return 0, TokenInfo{}, err
	}

	raw, err := c.ethCall(ctx, tokenAddress, selBalanceOf+padAddress(wallet))
	if err != nil {
		return 0, info, errors.Wrap(err, "could not read token balance")
	}
	amount, err := decodeUint(raw)
	if err != nil {
		return 0, info, errors.Wrap(err, "could not decode token balance")
	}
	return weiToUnit(amount, int32(info.Decimals)), info, nil
}

// Block is a subset of an EVM block, optionally with its transactions.
type Block struct {
	Number       uint64
	Timestamp    time.Time
	Transactions []BlockTransaction
}

type BlockTransaction struct {
	Hash        string
	From        string
	To          string
	ValueWei    *big.Int
	GasPriceWei *big.Int
}

type rawBlock struct {
	Number       string           `json:"number"`
	Timestamp    string           `json:"timestamp"`
	Transactions []rawTransaction `json:"transactions"`
}

type rawTransaction struct {
	Hash     string `json:"hash"`
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`
	GasPrice string `json:"gasPrice"`
}

// Block fetches a block by number, with full transactions when fullTx is set.
func (c *Client) Block(ctx context.Context, number uint64, fullTx bool) (*Block, error) {
	var raw rawBlock
	if err := c.call(ctx, "eth_getBlockByNumber", []interface{}{hexUint64(number), fullTx}, &raw); err != nil {
		return nil, err
	}
	if raw.Number == "" {
		return nil, errors.Errorf("block %d not found", number)
	}

	ts, err := parseHexUint64(raw.Timestamp)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse block timestamp")
	}

	block := &Block{Number: number, Timestamp: time.Unix(int64(ts), 0).UTC()}
	for _, tx := range raw.Transactions {
		value, err := parseHexBig(tx.Value)
		if err != nil {
			continue
		}
		gasPrice, err := parseHexBig(tx.GasPrice)
		if err != nil {
			gasPrice = big.NewInt(0)
		}
		block.Transactions = append(block.Transactions, BlockTransaction{
			Hash:        tx.Hash,
			From:        tx.From,
			To:          tx.To,
			ValueWei:    value,
			GasPriceWei: gasPrice,
		})
	}

	c.mu.Lock()
	c.blockTimes[number] = block.Timestamp
	c.mu.Unlock()
	return block, nil
}

// BlockTime returns the timestamp of a block, memoized per client.
func (c *Client) BlockTime(ctx context.Context, number uint64) (time.Time, error) {
	c.mu.Lock()
	ts, ok := c.blockTimes[number]
	c.mu.Unlock()
	if ok {
		return ts, nil
	}

	block, err := c.Block(ctx, number, false)
	if err != nil {
		return time.Time{}, err
	}
	return block.Timestamp, nil
}

// Receipt carries the execution outcome of a transaction.
type Receipt struct {
	GasUsed uint64
	Status  bool
}

func (c *Client) TransactionReceipt(ctx context.Context, hash string) (*Receipt, error) {
	var raw struct {
		GasUsed string `json:"gasUsed"`
		Status  string `json:"status"`
	}
	if err := c.call(ctx, "eth_getTransactionReceipt", []interface{}{hash}, &raw); err != nil {
		return nil, err
	}
	if raw.GasUsed == "" {
		return nil, errors.Errorf("receipt for %s not found", hash)
	}
	gasUsed, err := parseHexUint64(raw.GasUsed)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse gas used")
	}
	return &Receipt{GasUsed: gasUsed, Status: raw.Status == "0x1"}, nil
}

// TransferLog is a decoded ERC-20 Transfer event involving a watched wallet.
type TransferLog struct {
	TxHash       string
	TokenAddress string
	From         string
	To           string
	RawValue     *big.Int
	BlockNumber  uint64
}

// TransferLogs returns ERC-20 Transfer events where address is sender or
// receiver, within [fromBlock, toBlock].
func (c *Client) TransferLogs(ctx context.Context, address string, fromBlock, toBlock uint64) ([]TransferLog, error) {
	topic := "0x" + strings.Repeat("0", 24) + strings.ToLower(strings.TrimPrefix(strings.TrimSpace(address), "0x"))

	outgoing, err := c.getLogs(ctx, fromBlock, toBlock, []interface{}{transferTopic, topic})
	if err != nil {
		return nil, err
	}
	incoming, err := c.getLogs(ctx, fromBlock, toBlock, []interface{}{transferTopic, nil, topic})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var logs []TransferLog
	for _, l := range append(outgoing, incoming...) {
		key := l.TxHash + l.TokenAddress + l.From + l.To
		if seen[key] {
			continue
		}
		seen[key] = true
		logs = append(logs, l)
	}
	return logs, nil
}

type rawLog struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	BlockNumber     string   `json:"blockNumber"`
	TransactionHash string   `json:"transactionHash"`
}

func (c *Client) getLogs(ctx context.Context, fromBlock, toBlock uint64, topics []interface{}) ([]TransferLog, error) {
	filter := map[string]interface{}{
		"fromBlock": hexUint64(fromBlock),
		"toBlock":   hexUint64(toBlock),
		"topics":    topics,
	}

	var raws []rawLog
	if err := c.call(ctx, "eth_getLogs", []interface{}{filter}, &raws); err != nil {
		return nil, err
	}

	var logs []TransferLog
	for _, raw := range raws {
		if len(raw.Topics) < 3 {
			continue
		}
		value, err := parseHexBig(raw.Data)
		if err != nil {
			continue
		}
		blockNumber, err := parseHexUint64(raw.BlockNumber)
		if err != nil {
			continue
		}
		logs = append(logs, TransferLog{
			TxHash:       raw.TransactionHash,
			TokenAddress: raw.Address,
			From:         topicToAddress(raw.Topics[1]),
			To:           topicToAddress(raw.Topics[2]),
			RawValue:     value,
			BlockNumber:  blockNumber,
		})
	}
	return logs, nil
}

func (c *Client) ethCall(ctx context.Context, to, data string) (string, error) {
	var raw string
	params := []interface{}{map[string]string{"to": to, "data": data}, "latest"}
	if err := c.call(ctx, "eth_call", params, &raw); err != nil {
		return "", err
	}
	return raw, nil
}

func padAddress(address string) string {
	return strings.Repeat("0", 24) + strings.ToLower(strings.TrimPrefix(strings.TrimSpace(address), "0x"))
}

func topicToAddress(topic string) string {
	t := strings.TrimPrefix(topic, "0x")
	if len(t) < 40 {
		return topic
	}
	return ChecksumAddress("0x" + t[len(t)-40:])
}

func hexUint64(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

func parseHexUint64(s string) (uint64, error) {
	v, err := parseHexBig(s)
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

func parseHexBig(s string) (*big.Int, error) {
	t := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if t == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(t, 16)
	if !ok {
		return nil, errors.Errorf("invalid hex quantity: %s", s)
	}
	return v, nil
}

// weiToUnit scales a raw integer amount down by the given number of decimals.
func weiToUnit(v *big.Int, decimals int32) float64 {
	return decimal.NewFromBigInt(v, -decimals).InexactFloat64()
}

// decodeUint decodes a single uint256 return value.
func decodeUint(raw string) (*big.Int, error) {
	return parseHexBig(raw)
}

// decodeString decodes an ABI string return value. Handles both dynamic
// strings and legacy bytes32 symbols.
func decodeString(raw string) string {
	t := strings.TrimPrefix(raw, "0x")
	data, err := hex.DecodeString(t)
	if err != nil || len(data) == 0 {
		return ""
	}

	if len(data) >= 64 {
		offset := new(big.Int).SetBytes(data[:32]).Uint64()
		if offset+32 <= uint64(len(data)) {
			length := new(big.Int).SetBytes(data[offset : offset+32]).Uint64()
			if offset+32+length <= uint64(len(data)) {
				return strings.TrimSpace(string(data[offset+32 : offset+32+length]))
			}
		}
	}

	// bytes32-style value, right padded with zeros
	return strings.TrimRight(string(data[:min(32, len(data))]), "\x00")
}
