package core

import "errors"

var (
	ErrMalformedMessage     = errors.New("malformed siwe message")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrNonceMismatch        = errors.New("nonce mismatch")
	ErrMessageExpired       = errors.New("siwe message outside its validity window")
	ErrDomainMismatch       = errors.New("siwe message domain mismatch")
	ErrNoWallet             = errors.New("no wallet bound to session")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrSessionNotFound      = errors.New("session not found")
	ErrStoreOperationFailed = errors.New("store operation failed")
)
