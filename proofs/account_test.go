package proofs

import (
	"errors"
	"math/big"
	"testing"

	"github.com/colibri-go/verifier/core/types"
	"github.com/colibri-go/verifier/crypto"
	"github.com/colibri-go/verifier/merkle"
	"github.com/colibri-go/verifier/mpt"
	"github.com/colibri-go/verifier/request"
	"github.com/colibri-go/verifier/verrors"
)

// accountFixture builds a one-account state trie and the stateRoot branch
// binding it to a body root, returning the account proof and that root.
func accountFixture(t *testing.T, addr types.Address, nonce uint64, balance *big.Int) (*request.AccountProof, [32]byte) {
	t.Helper()
	storageHash := types.EmptyRootHash
	codeHash := types.EmptyCodeHash

	trie := mpt.New()
	addrHash := crypto.Keccak256(addr[:])
	if err := trie.Put(addrHash, mpt.EncodeAccountFields(nonce, balance, storageHash, codeHash)); err != nil {
		t.Fatalf("seeding account trie: %v", err)
	}
	accountNodes, err := trie.Prove(addrHash)
	if err != nil {
		t.Fatalf("proving account: %v", err)
	}
	stateRoot := trie.Hash()

	leaves := fixedDepthLeaves()
	rootPos := StateRootGIndex - (1 << merkle.DepthOf(StateRootGIndex))
	leaves[rootPos] = hashTreeRootHash32(stateRoot)
	tree, depth := merkle.BuildTree(leaves)
	_, branch := merkle.GenerateProof(tree, depth, []uint64{rootPos})

	p := &request.AccountProof{
		Address:         addr,
		Nonce:           nonce,
		Balance:         balance.Bytes(),
		StorageHash:     storageHash,
		CodeHash:        codeHash,
		StateRoot:       stateRoot,
		AccountNodes:    accountNodes,
		StateRootBranch: branch,
	}
	p.Header.BodyRoot = tree[1]
	return p, tree[1]
}

func TestVerifyAccount_BranchThenCommitteeMissing(t *testing.T) {
	addr := types.HexToAddress("0x000000000000000000000000000000000000aa")
	p, _ := accountFixture(t, addr, 5, big.NewInt(1000))

	r := testRequest(request.KindAccount, "eth_getTransactionCount", nil, newEmptyStore())
	_, err := verifyAccount(r, p)

	var missing *verrors.CommitteeMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected the trie and branch to check out and fail at the committee lookup, got: %v", err)
	}
}

func TestVerifyAccount_TamperedNonceRejected(t *testing.T) {
	addr := types.HexToAddress("0x000000000000000000000000000000000000aa")
	p, _ := accountFixture(t, addr, 5, big.NewInt(1000))
	p.Nonce = 6 // no longer matches the value proven by AccountNodes

	r := testRequest(request.KindAccount, "eth_getTransactionCount", nil, newEmptyStore())
	if _, err := verifyAccount(r, p); !errors.Is(err, verrors.ErrDataMismatch) {
		t.Fatalf("expected ErrDataMismatch for a tampered nonce, got: %v", err)
	}
}

func TestVerifyAccount_TamperedTrieNodeRejected(t *testing.T) {
	addr := types.HexToAddress("0x000000000000000000000000000000000000aa")
	p, _ := accountFixture(t, addr, 5, big.NewInt(1000))
	p.AccountNodes[0][0] ^= 0xff

	r := testRequest(request.KindAccount, "eth_getTransactionCount", nil, newEmptyStore())
	if _, err := verifyAccount(r, p); !errors.Is(err, verrors.ErrBadProof) {
		t.Fatalf("expected ErrBadProof for a corrupted trie node, got: %v", err)
	}
}
