package chain

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/jonwraymond/abicache/abi"
	"github.com/jonwraymond/abicache/cache"
	"github.com/jonwraymond/abicache/health"
)

// RawABI is the answer of get_raw_abi.
type RawABI struct {
	AccountName string
	CodeHash    string
	ABIHash     string

	// ABI is the binary abi_def, nil when the account has no ABI.
	ABI []byte
}

// Info is the subset of get_info the service reports.
type Info struct {
	ServerVersion            string
	ServerVersionString      string
	ChainID                  string
	HeadBlockNum             uint32
	LastIrreversibleBlockNum uint32
	HeadBlockTime            time.Time
}

// nodeos timestamps carry no zone and are UTC.
const blockTimeLayout = "2006-01-02T15:04:05.999"

type accountRequest struct {
	AccountName string `json:"account_name"`
}

// GetRawABI returns the binary ABI of account.
func (c *Client) GetRawABI(ctx context.Context, account abi.Name) (*RawABI, error) {
	r, err := c.call(ctx, "get_raw_abi", accountRequest{AccountName: account.String()})
	if err != nil {
		return nil, err
	}

	raw := &RawABI{
		AccountName: r.Get("account_name").String(),
		CodeHash:    r.Get("code_hash").String(),
		ABIHash:     r.Get("abi_hash").String(),
	}
	if encoded := r.Get("abi").String(); encoded != "" {
		// nodeos versions differ on base64 padding.
		data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %w: abi of %s is not base64: %w", ErrTransport, ErrInvalidResponse, account, err)
		}
		raw.ABI = data
	}
	return raw, nil
}

// GetABI returns the decoded ABI of account from get_abi, or nil when the
// account has no ABI.
func (c *Client) GetABI(ctx context.Context, account abi.Name) (*abi.ABI, error) {
	r, err := c.call(ctx, "get_abi", accountRequest{AccountName: account.String()})
	if err != nil {
		return nil, err
	}

	doc := r.Get("abi")
	if !doc.IsObject() {
		return nil, nil
	}
	a, err := abi.FromJSON([]byte(doc.Raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w: abi of %s: %w", ErrTransport, ErrInvalidResponse, account, err)
	}
	return a, nil
}

// GetInfo returns the node's chain info.
func (c *Client) GetInfo(ctx context.Context) (*Info, error) {
	r, err := c.call(ctx, "get_info", nil)
	if err != nil {
		return nil, err
	}
	if !r.Get("chain_id").Exists() {
		return nil, fmt.Errorf("%w: %w: get_info has no chain_id", ErrTransport, ErrInvalidResponse)
	}

	info := &Info{
		ServerVersion:            r.Get("server_version").String(),
		ServerVersionString:      r.Get("server_version_string").String(),
		ChainID:                  r.Get("chain_id").String(),
		HeadBlockNum:             uint32(r.Get("head_block_num").Uint()),
		LastIrreversibleBlockNum: uint32(r.Get("last_irreversible_block_num").Uint()),
	}
	if t, err := time.ParseInLocation(blockTimeLayout, r.Get("head_block_time").String(), time.UTC); err == nil {
		info.HeadBlockTime = t
	}
	return info, nil
}

// FetchRawABI implements cache.Fetcher with get_raw_abi.
func (c *Client) FetchRawABI(ctx context.Context, account abi.Name) (*cache.FetchResult, error) {
	raw, err := c.GetRawABI(ctx, account)
	if err != nil {
		return nil, err
	}
	return &cache.FetchResult{Account: raw.AccountName, ABI: raw.ABI, Hash: raw.ABIHash}, nil
}

// Ping checks the node answers get_info.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.GetInfo(ctx)
	return err
}

// SlowPing is the get_info latency at which NewChecker reports degraded.
const SlowPing = 2 * time.Second

// NewChecker reports the node's reachability as the "chain" health check.
func NewChecker(c *Client) *health.PingChecker {
	return health.NewPingChecker("chain", c, health.WithSlowThreshold(SlowPing))
}

var (
	_ cache.Fetcher = (*Client)(nil)
	_ health.Pinger = (*Client)(nil)
)
