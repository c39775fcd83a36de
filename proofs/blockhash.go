package proofs

import (
	"encoding/json"
	"fmt"

	"github.com/colibri-go/verifier/merkle"
	"github.com/colibri-go/verifier/request"
	"github.com/colibri-go/verifier/verrors"
)

// verifyBlockHash checks a branch from executionPayload.blockHash up to
// body_root, then the header signature, then that the claimed data (a
// 32-byte execution block hash) matches the proven value.
func verifyBlockHash(r Request, p *request.BlockHashProof) ([]byte, error) {
	leaf := hashTreeRootHash32(p.BlockHash)
	if err := merkle.VerifySingleLeaf(p.Header.BodyRoot, leaf, BlockHashGIndex, p.Branch); err != nil {
		return nil, verrors.Wrap(verrors.ErrBadProof, "blockhash branch", err)
	}
	if err := verifySignature(r, p.SigningEnvelope); err != nil {
		return nil, err
	}

	var claimed string
	if err := json.Unmarshal(r.ClaimedData, &claimed); err != nil {
		return nil, verrors.Wrap(verrors.ErrBadFormat, "claimed blockhash data", err)
	}
	if claimed != p.BlockHash.Hex() {
		return nil, fmt.Errorf("%w: claimed blockhash does not match proven value", verrors.ErrDataMismatch)
	}
	return json.Marshal(p.BlockHash.Hex())
}
