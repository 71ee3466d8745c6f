// Package alchemy reads ERC-20 balances and metadata through the Alchemy
// enhanced JSON-RPC API.
package alchemy

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/dshuvalov/jumper-challenge/core"
	"github.com/dshuvalov/jumper-challenge/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

// DefaultPageSize is the number of balances requested per page
const DefaultPageSize = 100

// URL returns the JSON-RPC endpoint for network and apiKey
func URL(network, apiKey string) string {
	return fmt.Sprintf("https://%s.g.alchemy.com/v2/%s", network, apiKey)
}

// Client is an Alchemy implementation of the TokenProvider interface
type Client struct {
	rpc      *rpc.Client
	pageSize int
}

// Dial connects to url with an HTTP client bounded by timeout
func Dial(ctx context.Context, url string, timeout time.Duration, pageSize int) (*Client, error) {
	c, err := rpc.DialOptions(ctx, url, rpc.WithHTTPClient(&http.Client{Timeout: timeout}))
	if err != nil {
		return nil, fmt.Errorf("failed to dial alchemy: %w", err)
	}

	return NewClient(c, pageSize), nil
}

// NewClient wraps an existing RPC client
func NewClient(c *rpc.Client, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{rpc: c, pageSize: pageSize}
}

// RPC exposes the underlying client for standard eth_* calls
func (c *Client) RPC() *rpc.Client {
	return c.rpc
}

// Close releases the underlying connection
func (c *Client) Close() {
	c.rpc.Close()
}

var _ ports.TokenProvider = (*Client)(nil)

type balanceOptions struct {
	PageKey  string `json:"pageKey,omitempty"`
	MaxCount int    `json:"maxCount,omitempty"`
}

type tokenBalance struct {
	ContractAddress common.Address `json:"contractAddress"`
	TokenBalance    *string        `json:"tokenBalance"`
	Error           *string        `json:"error"`
}

type balancesResult struct {
	Address       string         `json:"address"`
	TokenBalances []tokenBalance `json:"tokenBalances"`
	PageKey       string         `json:"pageKey,omitempty"`
}

type metadataResult struct {
	Name     *string `json:"name"`
	Symbol   *string `json:"symbol"`
	Decimals *int    `json:"decimals"`
	Logo     *string `json:"logo"`
}

// TokenBalances returns one page of ERC-20 balances held by owner
func (c *Client) TokenBalances(ctx context.Context, owner common.Address, pageKey string) (*core.TokenBalancePage, error) {
	var result balancesResult
	opts := balanceOptions{PageKey: pageKey, MaxCount: c.pageSize}
	if err := c.rpc.CallContext(ctx, &result, "alchemy_getTokenBalances", owner, "erc20", opts); err != nil {
		return nil, fmt.Errorf("failed to get token balances: %w", err)
	}

	page := &core.TokenBalancePage{
		Balances: make([]core.TokenBalance, 0, len(result.TokenBalances)),
		PageKey:  result.PageKey,
	}
	for _, tb := range result.TokenBalances {
		balance := core.TokenBalance{Contract: tb.ContractAddress}
		switch {
		case tb.Error != nil && *tb.Error != "":
			balance.Error = *tb.Error
		case tb.TokenBalance == nil:
			balance.Error = "missing balance"
		default:
			value, ok := parseQuantity(*tb.TokenBalance)
			if !ok {
				balance.Error = fmt.Sprintf("unparsable balance %q", *tb.TokenBalance)
			} else {
				balance.Balance = value
			}
		}
		page.Balances = append(page.Balances, balance)
	}

	return page, nil
}

// TokenMetadata returns name, symbol and decimals of contract
func (c *Client) TokenMetadata(ctx context.Context, contract common.Address) (*core.TokenMetadata, error) {
	var result metadataResult
	if err := c.rpc.CallContext(ctx, &result, "alchemy_getTokenMetadata", contract); err != nil {
		return nil, fmt.Errorf("failed to get token metadata: %w", err)
	}

	meta := &core.TokenMetadata{Decimals: result.Decimals}
	if result.Name != nil {
		meta.Name = *result.Name
	}
	if result.Symbol != nil {
		meta.Symbol = *result.Symbol
	}

	return meta, nil
}

// parseQuantity decodes a hex quantity. Alchemy zero-pads balances to 32
// bytes, which hexutil rejects, so leading zeros are accepted here.
func parseQuantity(s string) (*big.Int, bool) {
	digits, ok := strings.CutPrefix(s, "0x")
	if !ok || digits == "" {
		return nil, false
	}
	return new(big.Int).SetString(digits, 16)
}
