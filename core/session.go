package core

import (
	"time"

	"github.com/dshuvalov/jumper-challenge/siwe"
)

// AuthState is the authentication state derived from session contents.
type AuthState int

const (
	// StateUnauthenticated holds neither an outstanding nonce nor a wallet.
	StateUnauthenticated AuthState = iota
	// StateNonceIssued holds an outstanding nonce awaiting verification.
	StateNonceIssued
	// StateAuthenticated holds a verified wallet address.
	StateAuthenticated
)

func (s AuthState) String() string {
	switch s {
	case StateNonceIssued:
		return "nonce_issued"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Session is the server-side state bound to one client cookie.
type Session struct {
	Nonce         string        `json:"nonce,omitempty"`         // Outstanding single-use nonce
	WalletAddress string        `json:"walletAddress,omitempty"` // EIP-55 address, set only after verification
	SIWE          *siwe.Message `json:"siwe,omitempty"`          // Last verified message
	CreatedAt     time.Time     `json:"createdAt"`
}

// State reports the authentication state. A wallet binding wins over an
// outstanding nonce, which can coexist when a client re-requests a nonce
// after signing in.
func (s *Session) State() AuthState {
	switch {
	case s.WalletAddress != "":
		return StateAuthenticated
	case s.Nonce != "":
		return StateNonceIssued
	default:
		return StateUnauthenticated
	}
}

// Authenticated reports whether a wallet is bound to the session.
func (s *Session) Authenticated() bool {
	return s.WalletAddress != ""
}

// Reset clears every field, returning the session to the unauthenticated state.
func (s *Session) Reset() {
	*s = Session{}
}
