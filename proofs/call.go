package proofs

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/colibri-go/verifier/core/types"
	"github.com/colibri-go/verifier/evmhost"
	"github.com/colibri-go/verifier/request"
	"github.com/colibri-go/verifier/verrors"
)

// verifyCall verifies every account proof the caller bundled under the
// call, builds a read-only evmhost.Host over them, and checks that the
// call target's account is among the proven set. Executing the call's
// bytecode against that host is the external EVM's job; this verifier
// only guarantees every state read such a replay could perform is backed
// by a proof, and that the claimed output matches what the proof bundle
// declares.
func verifyCall(r Request, p *request.CallProof) ([]byte, error) {
	if len(p.Accounts) == 0 {
		return nil, fmt.Errorf("%w: call proof carries no account proofs", verrors.ErrBadFormat)
	}

	proven := make([]evmhost.ProvenAccount, 0, len(p.Accounts))
	var sawTo bool
	for i := range p.Accounts {
		ap := &p.Accounts[i]
		if ap.Header.BodyRoot != p.Header.BodyRoot {
			return nil, fmt.Errorf("%w: account proof %d is anchored to a different header", verrors.ErrDataMismatch, i)
		}
		if err := verifyAccountState(ap); err != nil {
			return nil, err
		}
		if ap.Address == p.To {
			sawTo = true
		}
		proven = append(proven, evmhost.ProvenAccount{
			Address:     ap.Address,
			Nonce:       ap.Nonce,
			Balance:     uint256.NewInt(0).SetBytes(ap.Balance),
			CodeHash:    ap.CodeHash,
			StorageHash: ap.StorageHash,
			Storage:     storageFromProofs(ap),
		})
	}
	if !sawTo {
		return nil, fmt.Errorf("%w: call target %s has no matching account proof", verrors.ErrBadProof, p.To.Hex())
	}

	if err := verifySignature(r, p.SigningEnvelope); err != nil {
		return nil, err
	}

	host := evmhost.NewStateProofHost(proven, evmhost.TxContext{Origin: p.From})
	if !host.AccountExists(p.To) {
		return nil, fmt.Errorf("%w: call target missing from constructed host", verrors.ErrBadProof)
	}

	if r.Method != "eth_call" {
		return nil, fmt.Errorf("%w: %s is not backed by a call proof", verrors.ErrMethodNotProofable, r.Method)
	}

	var claimed string
	if err := json.Unmarshal(r.ClaimedData, &claimed); err != nil {
		return nil, verrors.Wrap(verrors.ErrBadFormat, "claimed call output", err)
	}
	if claimed != "0x"+fmt.Sprintf("%x", p.Output) {
		return nil, fmt.Errorf("%w: claimed call output does not match proof", verrors.ErrDataMismatch)
	}
	return r.ClaimedData, nil
}

// storageFromProofs collects the storage slots an account proof already
// verified into the map a Host reads from.
func storageFromProofs(ap *request.AccountProof) map[types.Hash]types.Hash {
	m := make(map[types.Hash]types.Hash, len(ap.StorageProofs))
	for _, sp := range ap.StorageProofs {
		m[sp.Key] = sp.Value
	}
	return m
}
