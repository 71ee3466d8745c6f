package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dshuvalov/jumper-challenge/core"
	"github.com/dshuvalov/jumper-challenge/ports"
	"github.com/dshuvalov/jumper-challenge/siwe"
	"github.com/jaevor/go-nanoid"
)

const (
	nonceAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	nonceLength   = 32
)

// NonceGenerator returns a fresh random nonce
type NonceGenerator func() string

// NewNonceGenerator returns a crypto-random alphanumeric generator of nonceLength characters
func NewNonceGenerator() (NonceGenerator, error) {
	gen, err := nanoid.CustomASCII(nonceAlphabet, nonceLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create nonce generator: %w", err)
	}
	return gen, nil
}

// AuthService handles authentication business logic
type AuthService struct {
	verifier ports.SignatureVerifier
	eventPub ports.EventPublisher
	logger   *slog.Logger

	newNonce            NonceGenerator
	now                 func() time.Time
	domain              string
	invalidateOnFailure bool
}

// AuthOption configures an AuthService
type AuthOption func(*AuthService)

// WithNonceGenerator overrides the nonce source
func WithNonceGenerator(gen NonceGenerator) AuthOption {
	return func(s *AuthService) {
		s.newNonce = gen
	}
}

// WithClock overrides the clock used for validity window checks
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		s.now = now
	}
}

// WithDomain requires messages to be issued for domain
func WithDomain(domain string) AuthOption {
	return func(s *AuthService) {
		s.domain = domain
	}
}

// WithNonceInvalidation clears the outstanding nonce after a failed
// signature or nonce check, forcing the client to request a new one.
func WithNonceInvalidation(enabled bool) AuthOption {
	return func(s *AuthService) {
		s.invalidateOnFailure = enabled
	}
}

// NewAuthService creates a new authentication service
func NewAuthService(
	verifier ports.SignatureVerifier,
	eventPub ports.EventPublisher,
	logger *slog.Logger,
	opts ...AuthOption,
) (*AuthService, error) {
	s := &AuthService{
		verifier: verifier,
		eventPub: eventPub,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.newNonce == nil {
		gen, err := NewNonceGenerator()
		if err != nil {
			return nil, err
		}
		s.newNonce = gen
	}

	return s, nil
}

// IssueNonce stores a fresh nonce in the session, replacing any outstanding one
func (s *AuthService) IssueNonce(ctx context.Context, session ports.Session) (string, error) {
	nonce := s.newNonce()
	session.Values().Nonce = nonce

	if err := session.Save(ctx); err != nil {
		return "", storeError("failed to save nonce", err)
	}

	return nonce, nil
}

// Verify authenticates the session with a signed SIWE message. Checks run
// in order: syntax, validity window and domain, signature, nonce.
func (s *AuthService) Verify(ctx context.Context, session ports.Session, rawMessage, signature string) (*siwe.Message, error) {
	msg, err := siwe.Parse(rawMessage)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedMessage, err)
	}

	if err := msg.ValidAt(s.now()); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMessageExpired, err)
	}
	if s.domain != "" && msg.Domain != s.domain {
		return nil, fmt.Errorf("%w: got %q", core.ErrDomainMismatch, msg.Domain)
	}

	values := session.Values()

	if err := s.verifier.Verify(ctx, msg.Address, rawMessage, signature); err != nil {
		if !errors.Is(err, core.ErrInvalidSignature) {
			return nil, fmt.Errorf("failed to verify signature: %w", err)
		}
		s.discardNonce(ctx, session)
		return nil, err
	}

	if values.Nonce == "" || subtle.ConstantTimeCompare([]byte(msg.Nonce), []byte(values.Nonce)) != 1 {
		s.discardNonce(ctx, session)
		return nil, core.ErrNonceMismatch
	}

	values.Nonce = ""
	values.WalletAddress = msg.Address.Hex()
	values.SIWE = msg

	if err := session.Save(ctx); err != nil {
		return nil, storeError("failed to save session", err)
	}

	if err := s.eventPub.PublishVerified(ctx, values.WalletAddress, msg.ChainID); err != nil {
		s.logger.WarnContext(ctx, "failed to publish verified event", "address", values.WalletAddress, "error", err)
	}

	return msg, nil
}

func (s *AuthService) discardNonce(ctx context.Context, session ports.Session) {
	values := session.Values()
	if !s.invalidateOnFailure || values.Nonce == "" {
		return
	}

	values.Nonce = ""
	if err := session.Save(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to discard nonce", "error", err)
	}
}

// Logout destroys the session
func (s *AuthService) Logout(ctx context.Context, session ports.Session) error {
	address := session.Values().WalletAddress

	if err := session.Destroy(ctx); err != nil {
		return storeError("failed to destroy session", err)
	}

	// Publishing is best effort once the session is destroyed
	if err := s.eventPub.PublishLogout(ctx, address); err != nil {
		s.logger.WarnContext(ctx, "failed to publish logout event", "address", address, "error", err)
	}

	return nil
}

// Me returns the wallet address bound to the session
func (s *AuthService) Me(session ports.Session) (string, error) {
	address := session.Values().WalletAddress
	if address == "" {
		return "", core.ErrNoWallet
	}
	return address, nil
}

func storeError(msg string, err error) error {
	if errors.Is(err, core.ErrStoreOperationFailed) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, core.ErrStoreOperationFailed, err)
}
