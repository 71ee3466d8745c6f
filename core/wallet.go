package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is an ERC-20 holding enriched with its metadata.
type Token struct {
	ContractAddress string `json:"contractAddress"`
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	Balance         string `json:"balance"` // Human readable, two decimals
}

// WalletTokens is one page of token holdings for a wallet.
type WalletTokens struct {
	Address       string  `json:"address"`
	Tokens        []Token `json:"tokens"`
	TokensPageKey string  `json:"tokensPageKey,omitempty"`
}

// TokenBalance is a raw balance as reported by the provider.
// Balance is nil when the provider reported Error or an unparsable value.
type TokenBalance struct {
	Contract common.Address
	Balance  *big.Int
	Error    string
}

// TokenBalancePage is one provider page of raw balances.
type TokenBalancePage struct {
	Balances []TokenBalance
	PageKey  string
}

// TokenMetadata describes an ERC-20 contract.
type TokenMetadata struct {
	Name     string
	Symbol   string
	Decimals *int
}
