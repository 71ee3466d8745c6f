package service

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dshuvalov/jumper-challenge/core"
	"github.com/dshuvalov/jumper-challenge/siwe"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSession struct {
	values    core.Session
	saves     int
	destroyed bool
	saveErr   error
}

func (s *fakeSession) Values() *core.Session { return &s.values }

func (s *fakeSession) Save(context.Context) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	return nil
}

func (s *fakeSession) Destroy(context.Context) error {
	s.destroyed = true
	s.values.Reset()
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	verified []string
	logouts  []string
	err      error
}

func (p *recordingPublisher) PublishVerified(_ context.Context, address string, _ int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verified = append(p.verified, address)
	return p.err
}

func (p *recordingPublisher) PublishLogout(_ context.Context, address string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logouts = append(p.logouts, address)
	return p.err
}

type countingVerifier struct {
	calls int
	err   error
}

func (v *countingVerifier) Verify(context.Context, common.Address, string, string) error {
	v.calls++
	return v.err
}

var errBoom = errors.New("boom")

// sequence returns a generator yielding nonces in order
func sequence(nonces ...string) NonceGenerator {
	i := 0
	return func() string {
		n := nonces[i%len(nonces)]
		i++
		return n
	}
}

type signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func newSigner(t *testing.T) *signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

func (s *signer) message(nonce string) *siwe.Message {
	return &siwe.Message{
		Domain:    "localhost:3000",
		Address:   s.address,
		Statement: "Sign in with Ethereum to the app.",
		URI:       "http://localhost:3000",
		Version:   siwe.Version,
		ChainID:   1,
		Nonce:     nonce,
		IssuedAt:  testNow.Add(-time.Minute),
	}
}

func (s *signer) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), s.key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}
