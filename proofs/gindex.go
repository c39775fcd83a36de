package proofs

import "github.com/colibri-go/verifier/merkle"

// Generalized indices of executionPayload's fixed-size fields inside the
// beacon block body container. stateRoot, receiptsRoot and blockHash are
// given numerically; the remaining sibling fields used by the
// transaction-inclusion multi-leaf proof sit at the same container depth
// and are numbered the same way (field order: ... blockNumber (806) ...
// receiptsRoot (803) ... baseFeePerGas (811) ... blockHash (812) ...
// transactions (813) ...).
const (
	StateRootGIndex        uint64 = 802
	ReceiptsRootGIndex      uint64 = 803
	BlockNumberGIndex       uint64 = 806
	BaseFeePerGasGIndex     uint64 = 811
	BlockHashGIndex         uint64 = 812
	TransactionsListGIndex  uint64 = 813
)

// transactionsDepth bounds the transactions list at 2^20 entries, mirroring
// the consensus-layer MAX_TRANSACTIONS_PER_PAYLOAD order of magnitude.
const transactionsDepth = 20

// concatGIndex composes a generalized index for a node reached by first
// navigating to the subtree rooted at outer, then to inner within that
// subtree. This is the standard nested-gindex concatenation rule: shift
// outer left by inner's depth and OR in inner.
func concatGIndex(outer, inner uint64) uint64 {
	return outer<<merkle.DepthOf(inner) | inner
}

// transactionGIndex is the generalized index of transactions[index] within
// the beacon block body, given the top-level transactions-list gindex.
func transactionGIndex(index uint64) uint64 {
	return concatGIndex(TransactionsListGIndex, merkle.GeneralizedIndex(transactionsDepth, index))
}
