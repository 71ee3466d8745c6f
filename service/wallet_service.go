package service

import (
	"context"
	"log/slog"

	"github.com/dshuvalov/jumper-challenge/core"
	"github.com/dshuvalov/jumper-challenge/ports"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMetadataConcurrency bounds metadata lookups per listing
	DefaultMetadataConcurrency = 8

	unspecifiedName   = "Unspecified name"
	unspecifiedSymbol = "Unspecified symbol"
)

// WalletService lists ERC-20 holdings enriched with token metadata
type WalletService struct {
	provider    ports.TokenProvider
	logger      *slog.Logger
	concurrency int
}

// NewWalletService creates a new wallet service
func NewWalletService(provider ports.TokenProvider, logger *slog.Logger, concurrency int) *WalletService {
	if concurrency <= 0 {
		concurrency = DefaultMetadataConcurrency
	}
	return &WalletService{
		provider:    provider,
		logger:      logger,
		concurrency: concurrency,
	}
}

// ListTokens returns one page of tokens held by address. Tokens whose
// balance or metadata cannot be resolved are dropped. A failed balance
// lookup yields an empty list.
func (s *WalletService) ListTokens(ctx context.Context, address string, pageKey string) (*core.WalletTokens, error) {
	if !common.IsHexAddress(address) {
		return nil, core.ErrWalletNotFound
	}
	owner := common.HexToAddress(address)

	result := &core.WalletTokens{
		Address: owner.Hex(),
		Tokens:  []core.Token{},
	}

	page, err := s.provider.TokenBalances(ctx, owner, pageKey)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch token balances", "address", result.Address, "error", err)
		return result, nil
	}

	slots := make([]*core.Token, len(page.Balances))

	// Workers log and skip failed tokens and always return nil
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, balance := range page.Balances {
		if balance.Balance == nil {
			s.logger.WarnContext(ctx, "skipping token balance", "contract", balance.Contract.Hex(), "reason", balance.Error)
			continue
		}

		g.Go(func() error {
			meta, err := s.provider.TokenMetadata(ctx, balance.Contract)
			if err != nil {
				s.logger.WarnContext(ctx, "failed to fetch token metadata", "contract", balance.Contract.Hex(), "error", err)
				return nil
			}
			token := toToken(balance, meta)
			slots[i] = &token
			return nil
		})
	}
	g.Wait()

	for _, token := range slots {
		if token != nil {
			result.Tokens = append(result.Tokens, *token)
		}
	}
	result.TokensPageKey = page.PageKey

	return result, nil
}

func toToken(balance core.TokenBalance, meta *core.TokenMetadata) core.Token {
	decimals := 0
	if meta.Decimals != nil {
		decimals = *meta.Decimals
	}

	token := core.Token{
		ContractAddress: balance.Contract.Hex(),
		Name:            meta.Name,
		Symbol:          meta.Symbol,
		Balance:         FormatBalance(balance.Balance, decimals),
	}
	if token.Name == "" {
		token.Name = unspecifiedName
	}
	if token.Symbol == "" {
		token.Symbol = unspecifiedSymbol
	}

	return token
}
