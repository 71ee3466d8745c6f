package verifier

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/dshuvalov/jumper-challenge/core"
	"github.com/dshuvalov/jumper-challenge/ports"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const erc1271ABI = `[{"name":"isValidSignature","type":"function","stateMutability":"view","inputs":[{"name":"hash","type":"bytes32"},{"name":"signature","type":"bytes"}],"outputs":[{"name":"magicValue","type":"bytes4"}]}]`

// erc1271MagicValue is bytes4(keccak256("isValidSignature(bytes32,bytes)"))
var erc1271MagicValue = []byte{0x16, 0x26, 0xba, 0x7e}

var parsedERC1271ABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc1271ABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// ContractCaller is the chain access needed to validate contract wallet signatures
type ContractCaller interface {
	CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Verifier checks EIP-191 personal_sign signatures. When a ContractCaller is
// configured, signatures that do not recover to the claimed address are
// checked against the address as an ERC-1271 contract wallet. Chain access
// failures are returned without core.ErrInvalidSignature.
type Verifier struct {
	caller ContractCaller
}

// NewVerifier creates a new signature verifier. caller may be nil.
func NewVerifier(caller ContractCaller) ports.SignatureVerifier {
	return &Verifier{caller: caller}
}

// Verify implements ports.SignatureVerifier
func (v *Verifier) Verify(ctx context.Context, address common.Address, message string, signature string) error {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return fmt.Errorf("%w: undecodable signature: %v", core.ErrInvalidSignature, err)
	}

	hash := accounts.TextHash([]byte(message))

	if len(sig) == crypto.SignatureLength {
		recovered, err := recoverAddress(hash, sig)
		if err == nil && recovered == address {
			return nil
		}
	}

	if v.caller != nil {
		ok, err := v.isValidContractSignature(ctx, address, hash, sig)
		if err != nil {
			return fmt.Errorf("contract wallet check failed: %w", err)
		}
		if ok {
			return nil
		}
	}

	return core.ErrInvalidSignature
}

func recoverAddress(hash, sig []byte) (common.Address, error) {
	rsv := make([]byte, len(sig))
	copy(rsv, sig)
	if rsv[crypto.RecoveryIDOffset] >= 27 {
		rsv[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(hash, rsv)
	if err != nil {
		return common.Address{}, err
	}

	return crypto.PubkeyToAddress(*pub), nil
}

func (v *Verifier) isValidContractSignature(ctx context.Context, address common.Address, hash, sig []byte) (bool, error) {
	code, err := v.caller.CodeAt(ctx, address, nil)
	if err != nil {
		return false, fmt.Errorf("failed to fetch code: %w", err)
	}
	if len(code) == 0 {
		return false, nil
	}

	var digest [32]byte
	copy(digest[:], hash)

	input, err := parsedERC1271ABI.Pack("isValidSignature", digest, sig)
	if err != nil {
		return false, fmt.Errorf("failed to pack call: %w", err)
	}

	out, err := v.caller.CallContract(ctx, ethereum.CallMsg{To: &address, Data: input}, nil)
	if err != nil {
		// Reverting contracts reject the signature
		return false, nil
	}

	return len(out) >= 4 && bytes.Equal(out[:4], erc1271MagicValue), nil
}
