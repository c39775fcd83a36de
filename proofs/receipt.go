package proofs

import (
	"encoding/json"
	"fmt"

	"github.com/colibri-go/verifier/core/types"
	"github.com/colibri-go/verifier/merkle"
	"github.com/colibri-go/verifier/mpt"
	"github.com/colibri-go/verifier/request"
	"github.com/colibri-go/verifier/rlp"
	"github.com/colibri-go/verifier/verrors"
)

// verifyReceipt checks a Patricia proof of receipt[i] under receiptsRoot,
// the receiptsRoot branch up to body_root, the header signature, and the
// receipt fields the RPC method cares about.
func verifyReceipt(r Request, p *request.ReceiptProof) ([]byte, error) {
	key, err := rlp.EncodeToBytes(p.TransactionIndex)
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrBadFormat, "encoding receipt index key", err)
	}

	val, err := mpt.VerifyMPTProof(p.ReceiptsRoot, key, p.ReceiptNodes)
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrBadProof, "receipt trie proof", err)
	}
	if !val.Exists {
		return nil, fmt.Errorf("%w: receipt %d is absent from receiptsRoot", verrors.ErrBadProof, p.TransactionIndex)
	}
	if string(val.Value) != string(p.ReceiptRLP) {
		return nil, fmt.Errorf("%w: proven receipt RLP does not match claimed receipt", verrors.ErrDataMismatch)
	}

	receipt, err := types.DecodeReceiptRLP(p.ReceiptRLP)
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrBadFormat, "receipt RLP", err)
	}

	receiptsRootLeaf := hashTreeRootHash32(p.ReceiptsRoot)
	if err := merkle.VerifySingleLeaf(p.Header.BodyRoot, receiptsRootLeaf, ReceiptsRootGIndex, p.Branch); err != nil {
		return nil, verrors.Wrap(verrors.ErrBadProof, "receipts root branch", err)
	}

	if err := verifySignature(r, p.SigningEnvelope); err != nil {
		return nil, err
	}

	if r.Method != "eth_getTransactionReceipt" {
		return nil, fmt.Errorf("%w: %s is not backed by a receipt proof", verrors.ErrMethodNotProofable, r.Method)
	}
	return json.Marshal(receiptSummary{
		Status:            receipt.Status,
		CumulativeGasUsed: receipt.CumulativeGasUsed,
		LogsBloom:         receipt.Bloom,
		Logs:              receipt.Logs,
	})
}

type receiptSummary struct {
	Status            uint64       `json:"status"`
	CumulativeGasUsed uint64       `json:"cumulativeGasUsed"`
	LogsBloom         types.Bloom  `json:"logsBloom"`
	Logs              []*types.Log `json:"logs"`
}
