package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/dshuvalov/jumper-challenge/core"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu       sync.Mutex
	pages    map[string]*core.TokenBalancePage
	metadata map[common.Address]*core.TokenMetadata
	err      error
	gotOwner common.Address
}

func (p *fakeProvider) TokenBalances(_ context.Context, owner common.Address, pageKey string) (*core.TokenBalancePage, error) {
	p.mu.Lock()
	p.gotOwner = owner
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	page, ok := p.pages[pageKey]
	if !ok {
		return nil, fmt.Errorf("unknown page key %q", pageKey)
	}
	return page, nil
}

func (p *fakeProvider) TokenMetadata(_ context.Context, contract common.Address) (*core.TokenMetadata, error) {
	meta, ok := p.metadata[contract]
	if !ok {
		return nil, errors.New("metadata unavailable")
	}
	return meta, nil
}

func contract(n int64) common.Address {
	return common.BigToAddress(big.NewInt(n))
}

func decimals(n int) *int {
	return &n
}

const walletAddress = "0x742d35cc6634c0532925a3b844bc454e4438f44e"

func TestWalletService_ListTokensPagination(t *testing.T) {
	provider := &fakeProvider{
		pages: map[string]*core.TokenBalancePage{
			"": {
				Balances: []core.TokenBalance{
					{Contract: contract(1), Balance: big.NewInt(1_234_567)},
					{Contract: contract(2), Balance: new(big.Int).Mul(big.NewInt(5), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))},
				},
				PageKey: "page-2",
			},
			"page-2": {
				Balances: []core.TokenBalance{
					{Contract: contract(3), Balance: big.NewInt(42)},
				},
			},
		},
		metadata: map[common.Address]*core.TokenMetadata{
			contract(1): {Name: "USD Coin", Symbol: "USDC", Decimals: decimals(6)},
			contract(2): {Name: "Dai", Symbol: "DAI", Decimals: decimals(18)},
			contract(3): {},
		},
	}
	s := NewWalletService(provider, discardLogger(), 2)
	ctx := context.Background()

	first, err := s.ListTokens(ctx, walletAddress, "")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(walletAddress).Hex(), first.Address)
	assert.Equal(t, common.HexToAddress(walletAddress), provider.gotOwner)
	assert.Equal(t, "page-2", first.TokensPageKey)
	assert.Equal(t, []core.Token{
		{ContractAddress: contract(1).Hex(), Name: "USD Coin", Symbol: "USDC", Balance: "1.23"},
		{ContractAddress: contract(2).Hex(), Name: "Dai", Symbol: "DAI", Balance: "5.00"},
	}, first.Tokens)

	second, err := s.ListTokens(ctx, walletAddress, first.TokensPageKey)
	require.NoError(t, err)
	assert.Empty(t, second.TokensPageKey)
	assert.Equal(t, []core.Token{
		{ContractAddress: contract(3).Hex(), Name: "Unspecified name", Symbol: "Unspecified symbol", Balance: "42.00"},
	}, second.Tokens)
}

func TestWalletService_PartialFailuresAreDropped(t *testing.T) {
	var balances []core.TokenBalance
	metadata := map[common.Address]*core.TokenMetadata{}
	for i := int64(1); i <= 20; i++ {
		balances = append(balances, core.TokenBalance{Contract: contract(i), Balance: big.NewInt(i * 100)})
		if i%5 != 0 {
			metadata[contract(i)] = &core.TokenMetadata{Name: fmt.Sprintf("Token %d", i), Symbol: fmt.Sprintf("T%d", i), Decimals: decimals(2)}
		}
	}
	balances = append(balances, core.TokenBalance{Contract: contract(99), Error: "execution reverted"})
	metadata[contract(99)] = &core.TokenMetadata{Name: "Broken"}

	provider := &fakeProvider{
		pages:    map[string]*core.TokenBalancePage{"": {Balances: balances}},
		metadata: metadata,
	}
	s := NewWalletService(provider, discardLogger(), 4)

	result, err := s.ListTokens(context.Background(), walletAddress, "")
	require.NoError(t, err)
	require.Len(t, result.Tokens, 16)

	want := int64(1)
	for _, token := range result.Tokens {
		if want%5 == 0 {
			want++
		}
		assert.Equal(t, contract(want).Hex(), token.ContractAddress, "provider order is kept")
		assert.Equal(t, fmt.Sprintf("%d.00", want), token.Balance)
		want++
	}
}

// slowProvider records metadata fan-out. Contract 1 fails.
type slowProvider struct {
	balances []core.TokenBalance

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	cancelled   int
}

func (p *slowProvider) TokenBalances(context.Context, common.Address, string) (*core.TokenBalancePage, error) {
	return &core.TokenBalancePage{Balances: p.balances}, nil
}

func (p *slowProvider) TokenMetadata(ctx context.Context, c common.Address) (*core.TokenMetadata, error) {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > p.maxInFlight {
		p.maxInFlight = p.inFlight
	}
	p.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight--
	if ctx.Err() != nil {
		p.cancelled++
	}
	if c == contract(1) {
		return nil, errors.New("metadata unavailable")
	}
	return &core.TokenMetadata{Name: "Token", Symbol: "TKN", Decimals: decimals(0)}, nil
}

func TestWalletService_MetadataFanOut(t *testing.T) {
	provider := &slowProvider{}
	for i := int64(1); i <= 12; i++ {
		provider.balances = append(provider.balances, core.TokenBalance{Contract: contract(i), Balance: big.NewInt(i)})
	}
	s := NewWalletService(provider, discardLogger(), 3)

	result, err := s.ListTokens(context.Background(), walletAddress, "")
	require.NoError(t, err)

	assert.Len(t, result.Tokens, 11)
	assert.LessOrEqual(t, provider.maxInFlight, 3)
	assert.Zero(t, provider.cancelled, "a failed token does not cancel the others")
}

func TestWalletService_ProviderFailureDegradesToEmpty(t *testing.T) {
	s := NewWalletService(&fakeProvider{err: errors.New("upstream 503")}, discardLogger(), 0)

	result, err := s.ListTokens(context.Background(), walletAddress, "")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(walletAddress).Hex(), result.Address)
	assert.NotNil(t, result.Tokens)
	assert.Empty(t, result.Tokens)
	assert.Empty(t, result.TokensPageKey)
}

func TestWalletService_InvalidAddress(t *testing.T) {
	s := NewWalletService(&fakeProvider{}, discardLogger(), 0)

	for _, address := range []string{"", "me", "0x1234", "not-an-address"} {
		_, err := s.ListTokens(context.Background(), address, "")
		assert.ErrorIs(t, err, core.ErrWalletNotFound, address)
	}
}

func TestFormatBalance(t *testing.T) {
	tests := []struct {
		raw      *big.Int
		decimals int
		want     string
	}{
		{big.NewInt(0), 18, "0.00"},
		{big.NewInt(1_000_000), 6, "1.00"},
		{big.NewInt(1_239_000), 6, "1.24"},
		{big.NewInt(7), 0, "7.00"},
		{big.NewInt(1), 18, "0.00"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBalance(tt.raw, tt.decimals))
	}
}
