package proofs

import (
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/colibri-go/verifier/core/types"
	"github.com/colibri-go/verifier/crypto"
	"github.com/colibri-go/verifier/merkle"
	"github.com/colibri-go/verifier/mpt"
	"github.com/colibri-go/verifier/request"
	"github.com/colibri-go/verifier/verrors"
)

// verifyAccount checks the account's RLP encoding under executionPayload's
// stateRoot, the stateRoot's own branch up to body_root, the header
// signature, every supplied storage sub-proof, and finally that the field
// the RPC method asked for matches the caller's claimed data.
func verifyAccount(r Request, p *request.AccountProof) ([]byte, error) {
	if err := verifyAccountState(p); err != nil {
		return nil, err
	}

	if err := verifySignature(r, p.SigningEnvelope); err != nil {
		return nil, err
	}

	return crossCheckAccountMethod(r, p)
}

// verifyAccountState checks the account's RLP encoding under its claimed
// stateRoot, the stateRoot's branch up to body_root, and every storage
// sub-proof, without touching the signing envelope or the RPC method —
// shared by verifyAccount and by the call verifier, which bundles several
// account proofs under one signature check.
func verifyAccountState(p *request.AccountProof) error {
	addrHash := crypto.Keccak256(p.Address[:])

	val, err := mpt.VerifyMPTProof(p.StateRoot, addrHash, p.AccountNodes)
	if err != nil {
		return verrors.Wrap(verrors.ErrBadProof, "account trie proof", err)
	}
	if val.Exists {
		nonce, balance, storageHash, codeHash, decErr := mpt.DecodeAccountFields(val.Value)
		if decErr != nil {
			return verrors.Wrap(verrors.ErrBadFormat, "account RLP", decErr)
		}
		if nonce != p.Nonce || storageHash != p.StorageHash || codeHash != p.CodeHash || balance.Cmp(bigFromBytes(p.Balance)) != 0 {
			return fmt.Errorf("%w: account fields do not match the proven trie value", verrors.ErrDataMismatch)
		}
	} else if p.Nonce != 0 || len(p.Balance) != 0 || p.StorageHash != types.EmptyRootHash || p.CodeHash != types.EmptyCodeHash {
		return fmt.Errorf("%w: account is proven absent but claims non-zero fields", verrors.ErrDataMismatch)
	}

	stateRootLeaf := hashTreeRootHash32(p.StateRoot)
	if err := merkle.VerifySingleLeaf(p.Header.BodyRoot, stateRootLeaf, StateRootGIndex, p.StateRootBranch); err != nil {
		return verrors.Wrap(verrors.ErrBadProof, "state root branch", err)
	}

	return verifyStorageProofs(p)
}

// verifyStorageProofs verifies every supplied storage sub-proof against
// the account's storageHash concurrently; each proof is an independent
// keccak256/RLP check with no shared mutable state.
func verifyStorageProofs(p *request.AccountProof) error {
	if len(p.StorageProofs) == 0 {
		return nil
	}
	var g errgroup.Group
	for i := range p.StorageProofs {
		sp := p.StorageProofs[i]
		g.Go(func() error {
			slotHash := crypto.Keccak256(sp.Key[:])
			val, err := mpt.VerifyMPTProof(p.StorageHash, slotHash, sp.Nodes)
			if err != nil {
				return verrors.Wrap(verrors.ErrBadProof, "storage slot proof", err)
			}
			if val.Exists && types.BytesToHash(val.Value) != sp.Value {
				return fmt.Errorf("%w: storage slot %x does not match proven value", verrors.ErrDataMismatch, sp.Key)
			}
			return nil
		})
	}
	return g.Wait()
}

// crossCheckAccountMethod determines, from the RPC method, which single
// field the claimed data must equal, and compares it.
func crossCheckAccountMethod(r Request, p *request.AccountProof) ([]byte, error) {
	addr, err := firstArgAddress(r.Args)
	if err != nil {
		return nil, err
	}
	if addr != p.Address {
		return nil, fmt.Errorf("%w: proof address does not match request argument", verrors.ErrDataMismatch)
	}

	switch r.Method {
	case "eth_getBalance":
		var claimed string
		if err := json.Unmarshal(r.ClaimedData, &claimed); err != nil {
			return nil, verrors.Wrap(verrors.ErrBadFormat, "claimed balance", err)
		}
		if bigFromBytes(p.Balance).Text(16) != trimHexPrefix(claimed) {
			return nil, fmt.Errorf("%w: claimed balance does not match proof", verrors.ErrDataMismatch)
		}
	case "eth_getTransactionCount":
		var claimed string
		if err := json.Unmarshal(r.ClaimedData, &claimed); err != nil {
			return nil, verrors.Wrap(verrors.ErrBadFormat, "claimed nonce", err)
		}
		if fmt.Sprintf("%x", p.Nonce) != trimHexPrefix(claimed) {
			return nil, fmt.Errorf("%w: claimed nonce does not match proof", verrors.ErrDataMismatch)
		}
	case "eth_getStorageAt":
		if len(p.StorageProofs) == 0 {
			return nil, fmt.Errorf("%w: eth_getStorageAt requires a storage proof", verrors.ErrMethodNotProofable)
		}
		var claimed string
		if err := json.Unmarshal(r.ClaimedData, &claimed); err != nil {
			return nil, verrors.Wrap(verrors.ErrBadFormat, "claimed storage value", err)
		}
		if types.HexToHash(claimed) != p.StorageProofs[0].Value {
			return nil, fmt.Errorf("%w: claimed storage value does not match proof", verrors.ErrDataMismatch)
		}
	default:
		return nil, fmt.Errorf("%w: %s is not backed by an account proof", verrors.ErrMethodNotProofable, r.Method)
	}
	return r.ClaimedData, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
