package proofs

import (
	"encoding/json"
	"fmt"

	"github.com/colibri-go/verifier/core/types"
	"github.com/colibri-go/verifier/merkle"
	"github.com/colibri-go/verifier/request"
	"github.com/colibri-go/verifier/verrors"
)

// verifyBlock checks blockHash and blockNumber against body_root via a
// multi-leaf branch. When the caller also supplies the full SSZ-encoded
// execution payload header, it is decoded and cross-checked against the
// same two proven fields before being returned as the block result.
func verifyBlock(r Request, p *request.BlockProof) ([]byte, error) {
	leaves := []merkle.Leaf{
		{GIndex: BlockHashGIndex, Value: hashTreeRootHash32(p.BlockHash)},
		{GIndex: BlockNumberGIndex, Value: hashTreeRootUint64(p.BlockNumber)},
	}
	if err := merkle.VerifyMultiLeaf(p.Header.BodyRoot, leaves, p.Branch); err != nil {
		return nil, verrors.Wrap(verrors.ErrBadProof, "block inclusion branch", err)
	}

	if err := verifySignature(r, p.SigningEnvelope); err != nil {
		return nil, err
	}

	switch r.Method {
	case "eth_getBlockByHash", "eth_getBlockByNumber":
	default:
		return nil, fmt.Errorf("%w: %s is not backed by a block proof", verrors.ErrMethodNotProofable, r.Method)
	}

	if len(p.PayloadSSZ) == 0 {
		return json.Marshal(blockSummary{Hash: p.BlockHash, Number: p.BlockNumber})
	}

	header, err := types.SSZToHeader(p.PayloadSSZ)
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrBadFormat, "execution payload SSZ", err)
	}
	headerRoot, err := types.HeaderSSZRoot(header)
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrBadFormat, "execution payload root", err)
	}
	if headerRoot != p.BlockHash || header.Number.Uint64() != p.BlockNumber {
		return nil, fmt.Errorf("%w: decoded execution payload does not match the proven block", verrors.ErrDataMismatch)
	}
	return json.Marshal(header)
}

type blockSummary struct {
	Hash   types.Hash `json:"hash"`
	Number uint64     `json:"number"`
}
