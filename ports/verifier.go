package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// SignatureVerifier checks that signature over message is attributable to address
type SignatureVerifier interface {
	// Verify returns core.ErrInvalidSignature when the signature does not match.
	Verify(ctx context.Context, address common.Address, message string, signature string) error
}
