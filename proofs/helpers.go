package proofs

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/colibri-go/verifier/core/types"
	"github.com/colibri-go/verifier/ssz"
	"github.com/colibri-go/verifier/verrors"
)

func hashTreeRootHash32(h types.Hash) [32]byte {
	return ssz.HashTreeRootBytes32([32]byte(h))
}

func hashTreeRootUint64(v uint64) [32]byte {
	return ssz.HashTreeRootUint64(v)
}

// bigFromBytes interprets big-endian bytes as a non-negative integer,
// treating a nil/empty slice as zero.
func bigFromBytes(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// firstArgAddress extracts the first positional JSON-RPC argument as an
// address, used to cross-check account/storage proofs against the
// request the caller claims to be answering.
func firstArgAddress(args []json.RawMessage) (types.Address, error) {
	if len(args) == 0 {
		return types.Address{}, fmt.Errorf("%w: method expects an address argument", verrors.ErrDataMismatch)
	}
	var s string
	if err := json.Unmarshal(args[0], &s); err != nil {
		return types.Address{}, fmt.Errorf("%w: decoding address argument: %v", verrors.ErrBadFormat, err)
	}
	return types.HexToAddress(s), nil
}
