package proofs

import (
	"errors"
	"testing"

	"github.com/colibri-go/verifier/core/types"
	"github.com/colibri-go/verifier/merkle"
	"github.com/colibri-go/verifier/mpt"
	"github.com/colibri-go/verifier/request"
	"github.com/colibri-go/verifier/rlp"
	"github.com/colibri-go/verifier/verrors"
)

// receiptFixture builds a one-receipt trie keyed by its RLP-encoded
// transaction index and the receiptsRoot branch binding it to a body root.
func receiptFixture(t *testing.T, txIndex uint64, receipt *types.Receipt) *request.ReceiptProof {
	t.Helper()
	receiptRLP, err := receipt.EncodeRLP()
	if err != nil {
		t.Fatalf("encoding fixture receipt: %v", err)
	}

	key, err := rlp.EncodeToBytes(txIndex)
	if err != nil {
		t.Fatalf("encoding trie key: %v", err)
	}
	trie := mpt.New()
	if err := trie.Put(key, receiptRLP); err != nil {
		t.Fatalf("seeding receipt trie: %v", err)
	}
	receiptNodes, err := trie.Prove(key)
	if err != nil {
		t.Fatalf("proving receipt: %v", err)
	}
	receiptsRoot := trie.Hash()

	leaves := fixedDepthLeaves()
	rootPos := ReceiptsRootGIndex - (1 << merkle.DepthOf(ReceiptsRootGIndex))
	leaves[rootPos] = hashTreeRootHash32(receiptsRoot)
	tree, depth := merkle.BuildTree(leaves)
	_, branch := merkle.GenerateProof(tree, depth, []uint64{rootPos})

	p := &request.ReceiptProof{
		TransactionIndex: txIndex,
		ReceiptRLP:       receiptRLP,
		ReceiptNodes:     receiptNodes,
		ReceiptsRoot:     receiptsRoot,
		Branch:           branch,
	}
	p.Header.BodyRoot = tree[1]
	return p
}

func sampleReceipt() *types.Receipt {
	return &types.Receipt{
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: 21000,
		Logs:              nil,
	}
}

func TestVerifyReceipt_BranchThenCommitteeMissing(t *testing.T) {
	p := receiptFixture(t, 0, sampleReceipt())

	r := testRequest(request.KindReceipt, "eth_getTransactionReceipt", nil, newEmptyStore())
	_, err := verifyReceipt(r, p)

	var missing *verrors.CommitteeMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected the trie and branch to check out and fail at the committee lookup, got: %v", err)
	}
}

func TestVerifyReceipt_TamperedRLPRejected(t *testing.T) {
	p := receiptFixture(t, 0, sampleReceipt())
	p.ReceiptRLP[0] ^= 0xff // no longer equals the trie-proven value

	r := testRequest(request.KindReceipt, "eth_getTransactionReceipt", nil, newEmptyStore())
	if _, err := verifyReceipt(r, p); !errors.Is(err, verrors.ErrDataMismatch) {
		t.Fatalf("expected ErrDataMismatch for a tampered receipt RLP, got: %v", err)
	}
}

func TestVerifyReceipt_TamperedTrieNodeRejected(t *testing.T) {
	p := receiptFixture(t, 0, sampleReceipt())
	p.ReceiptNodes[0][0] ^= 0xff

	r := testRequest(request.KindReceipt, "eth_getTransactionReceipt", nil, newEmptyStore())
	if _, err := verifyReceipt(r, p); !errors.Is(err, verrors.ErrBadProof) {
		t.Fatalf("expected ErrBadProof for a corrupted trie node, got: %v", err)
	}
}
