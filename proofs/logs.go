package proofs

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/holiman/bloomfilter/v2"

	"github.com/colibri-go/verifier/core/types"
	"github.com/colibri-go/verifier/request"
	"github.com/colibri-go/verifier/verrors"
)

// verifyLogs verifies one receipt proof per block that claims to contribute
// a matching log, reassembles the log set, and returns only the entries the
// caller's filter actually selects. The per-block bloom is consulted first
// as a cheap way to reject a proof bundle with no matching logs before
// decoding every receipt.
func verifyLogs(r Request, p *request.LogsProof) ([]byte, error) {
	if len(p.Receipts) == 0 {
		return nil, fmt.Errorf("%w: logs proof carries no receipts", verrors.ErrBadFormat)
	}

	var aggregateBloom types.Bloom
	decoded := make([]*types.Receipt, 0, len(p.Receipts))
	for i := range p.Receipts {
		rp := p.Receipts[i]
		if rp.BlockHash != p.BlockHash {
			return nil, fmt.Errorf("%w: receipt proof %d targets a different block", verrors.ErrDataMismatch, i)
		}
		if _, err := verifyReceiptInline(r, &rp); err != nil {
			return nil, err
		}
		receipt, err := types.DecodeReceiptRLP(rp.ReceiptRLP)
		if err != nil {
			return nil, verrors.Wrap(verrors.ErrBadFormat, "receipt RLP", err)
		}
		decoded = append(decoded, receipt)
		for j := range receipt.Bloom {
			aggregateBloom[j] |= receipt.Bloom[j]
		}
	}

	if !types.BloomMatchesFilter(aggregateBloom, &p.Filter) {
		return nil, fmt.Errorf("%w: aggregate bloom does not match the requested filter", verrors.ErrDataMismatch)
	}
	if !quickBloomCheck(decoded, &p.Filter) {
		return nil, fmt.Errorf("%w: fast bloom pre-check rejects the requested filter", verrors.ErrDataMismatch)
	}

	var all []*types.Log
	for _, receipt := range decoded {
		all = append(all, receipt.Logs...)
	}
	matched := types.FilterLogs(all, &p.Filter)

	if r.Method != "eth_getLogs" {
		return nil, fmt.Errorf("%w: %s is not backed by a logs proof", verrors.ErrMethodNotProofable, r.Method)
	}
	return json.Marshal(matched)
}

// verifyReceiptInline runs the same checks as verifyReceipt minus the
// method cross-check, which verifyLogs performs once over the assembled
// log set instead of once per receipt.
func verifyReceiptInline(r Request, p *request.ReceiptProof) ([]byte, error) {
	saved := r.Method
	r.Method = "eth_getTransactionReceipt"
	data, err := verifyReceipt(r, p)
	r.Method = saved
	return data, err
}

// quickBloomCheck builds a disposable k-hash Bloom filter over every log's
// address and topics and tests the requested filter terms against it
// before the precise, slower FilterMatch pass runs. A miss here is
// authoritative (the filter has no false negatives by construction); a hit
// still requires the exact check.
func quickBloomCheck(receipts []*types.Receipt, f *types.LogFilter) bool {
	var n uint64
	for _, r := range receipts {
		n += uint64(len(r.Logs))
	}
	if n == 0 {
		return len(f.Addresses) == 0 && len(f.Topics) == 0
	}
	filter, err := bloomfilter.New(n*10+1, 4)
	if err != nil {
		return true
	}
	for _, r := range receipts {
		for _, l := range r.Logs {
			filter.Add(bloomHash(l.Address.Bytes()))
			for _, t := range l.Topics {
				filter.Add(bloomHash(t.Bytes()))
			}
		}
	}
	if len(f.Addresses) > 0 {
		found := false
		for _, a := range f.Addresses {
			if filter.Contains(bloomHash(a.Bytes())) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, topicSet := range f.Topics {
		if len(topicSet) == 0 {
			continue
		}
		found := false
		for _, t := range topicSet {
			if filter.Contains(bloomHash(t.Bytes())) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func bloomHash(b []byte) bloomfilter.Hash64 {
	var sum uint64
	for i := 0; i+8 <= len(b); i += 8 {
		sum ^= binary.BigEndian.Uint64(b[i : i+8])
	}
	return bloomfilter.Hash64(sum)
}
