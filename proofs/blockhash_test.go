package proofs

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"testing"

	"github.com/colibri-go/verifier/chainconfig"
	"github.com/colibri-go/verifier/committee"
	"github.com/colibri-go/verifier/core/types"
	"github.com/colibri-go/verifier/merkle"
	"github.com/colibri-go/verifier/request"
	"github.com/colibri-go/verifier/storage"
	"github.com/colibri-go/verifier/verrors"
)

// fixedDepthLeaves builds a tree with as many leaves as the container depth
// used by gindex.go (2^9 = 512), seeded with distinct values so a wrong
// branch or a wrong generalized index both fail the check.
func fixedDepthLeaves() [][32]byte {
	leaves := make([][32]byte, 512)
	for i := range leaves {
		leaves[i] = sha256.Sum256([]byte{byte(i), byte(i >> 8)})
	}
	return leaves
}

func testRequest(kind request.ProofKind, method string, claimed any, store *committee.Store) Request {
	data, _ := json.Marshal(claimed)
	return Request{
		ClaimedData: data,
		Method:      method,
		Chain:       1,
		Config:      chainconfig.DefaultMainnet(),
		Store:       store,
	}
}

func newEmptyStore() *committee.Store {
	return committee.NewStore(storage.NewNullStorage(), committee.DefaultConfig())
}

func TestVerifyBlockHash_BranchThenCommitteeMissing(t *testing.T) {
	leaves := fixedDepthLeaves()
	blockHash := types.HexToHash("0xdeadbeef00000000000000000000000000000000000000000000000000ab")
	leafPos := BlockHashGIndex - (1 << merkle.DepthOf(BlockHashGIndex))
	leaves[leafPos] = hashTreeRootHash32(blockHash)

	tree, depth := merkle.BuildTree(leaves)
	root := tree[1]
	proven, branch := merkle.GenerateProof(tree, depth, []uint64{leafPos})
	if proven[0].GIndex != BlockHashGIndex {
		t.Fatalf("fixture leaf position does not map to BlockHashGIndex: got %d want %d", proven[0].GIndex, BlockHashGIndex)
	}

	p := &request.BlockHashProof{
		BlockHash: blockHash,
		Branch:    branch,
	}
	p.Header.BodyRoot = root

	r := testRequest(request.KindBlockHash, "eth_chainId", blockHash.Hex(), newEmptyStore())
	_, err := verifyBlockHash(r, p)

	var missing *verrors.CommitteeMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected the merkle branch to check out and fail at the committee lookup, got: %v", err)
	}
}

func TestVerifyBlockHash_WrongBranchRejected(t *testing.T) {
	leaves := fixedDepthLeaves()
	blockHash := types.HexToHash("0x0000000000000000000000000000000000000000000000000000000000ab")
	leafPos := BlockHashGIndex - (1 << merkle.DepthOf(BlockHashGIndex))
	leaves[leafPos] = hashTreeRootHash32(blockHash)

	tree, depth := merkle.BuildTree(leaves)
	_, branch := merkle.GenerateProof(tree, depth, []uint64{leafPos})
	// Corrupt one branch node so the recomputed root can't match.
	branch[0][0] ^= 0xff

	p := &request.BlockHashProof{
		BlockHash: blockHash,
		Branch:    branch,
	}
	p.Header.BodyRoot = tree[1]

	r := testRequest(request.KindBlockHash, "eth_chainId", blockHash.Hex(), newEmptyStore())
	if _, err := verifyBlockHash(r, p); !errors.Is(err, verrors.ErrBadProof) {
		t.Fatalf("expected ErrBadProof for a corrupted branch, got: %v", err)
	}
}
