package proofs

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/colibri-go/verifier/core/types"
	"github.com/colibri-go/verifier/merkle"
	"github.com/colibri-go/verifier/request"
	"github.com/colibri-go/verifier/ssz"
	"github.com/colibri-go/verifier/verrors"
)

// maxRawTransactionLen bounds the byte-list used to hash-tree-root a raw
// RLP transaction, mirroring the consensus-layer MAX_BYTES_PER_TRANSACTION.
const maxRawTransactionLen = 1 << 20

// verifyTransaction checks the multi-leaf branch binding blockHash,
// blockNumber, baseFeePerGas and transactions[i] under body_root, decodes
// the raw RLP transaction, and cross-checks it against the claimed data.
func verifyTransaction(r Request, p *request.TransactionProof) ([]byte, error) {
	leaves := []merkle.Leaf{
		{GIndex: BlockHashGIndex, Value: hashTreeRootHash32(p.BlockHash)},
		{GIndex: BlockNumberGIndex, Value: hashTreeRootUint64(p.BlockNumber)},
		{GIndex: BaseFeePerGasGIndex, Value: hashTreeRootHash32(types.BytesToHash(p.BaseFeePerGas))},
		{GIndex: transactionGIndex(p.TransactionIndex), Value: ssz.HashTreeRootByteList(p.RawTransaction, maxRawTransactionLen)},
	}
	if err := merkle.VerifyMultiLeaf(p.Header.BodyRoot, leaves, p.Branch); err != nil {
		return nil, verrors.Wrap(verrors.ErrBadProof, "transaction inclusion branch", err)
	}

	tx, err := types.DecodeTxRLP(p.RawTransaction)
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrBadFormat, "raw transaction RLP", err)
	}

	if err := verifySignature(r, p.SigningEnvelope); err != nil {
		return nil, err
	}

	return crossCheckTransactionMethod(r, p, tx)
}

// txData is the decoded transaction container returned to the caller:
// hash, sender, recipient, value, calldata and raw ECDSA signature values,
// cross-checked against the claimed data by the caller before use.
type txData struct {
	Hash  types.Hash     `json:"hash"`
	From  types.Address  `json:"from"`
	To    *types.Address `json:"to"`
	Value *big.Int       `json:"value"`
	Input []byte         `json:"input"`
	V     *big.Int       `json:"v"`
	R     *big.Int       `json:"r"`
	S     *big.Int       `json:"s"`
}

func crossCheckTransactionMethod(r Request, p *request.TransactionProof, tx *types.Transaction) ([]byte, error) {
	switch r.Method {
	case "eth_getTransactionByHash":
		if len(r.Args) == 0 {
			return nil, fmt.Errorf("%w: eth_getTransactionByHash expects a hash argument", verrors.ErrDataMismatch)
		}
		var wantHex string
		if err := json.Unmarshal(r.Args[0], &wantHex); err != nil {
			return nil, verrors.Wrap(verrors.ErrBadFormat, "requested tx hash", err)
		}
		if types.HexToHash(wantHex) != tx.Hash() {
			return nil, fmt.Errorf("%w: transaction hash does not match request", verrors.ErrDataMismatch)
		}
	case "eth_getTransactionByBlockHashAndIndex", "eth_getTransactionByBlockNumberAndIndex":
		// Index is already bound by the proof's declared TransactionIndex.
	default:
		return nil, fmt.Errorf("%w: %s is not backed by a transaction proof", verrors.ErrMethodNotProofable, r.Method)
	}

	signer := types.MakeSigner(r.Chain, tx.Type())
	from, err := signer.Sender(tx)
	if err != nil {
		return nil, verrors.Wrap(verrors.ErrBadSignature, "transaction sender recovery", err)
	}
	v, rSig, s := tx.RawSignatureValues()

	return json.Marshal(txData{
		Hash:  tx.Hash(),
		From:  from,
		To:    tx.To(),
		Value: tx.Value(),
		Input: tx.Data(),
		V:     v,
		R:     rSig,
		S:     s,
	})
}
