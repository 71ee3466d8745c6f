package ports

import (
	"context"

	"github.com/dshuvalov/jumper-challenge/core"
	"github.com/ethereum/go-ethereum/common"
)

// TokenProvider reads ERC-20 holdings from a blockchain data provider
type TokenProvider interface {
	TokenBalances(ctx context.Context, owner common.Address, pageKey string) (*core.TokenBalancePage, error)
	TokenMetadata(ctx context.Context, contract common.Address) (*core.TokenMetadata, error)
}
