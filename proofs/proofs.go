// Package proofs implements the per-proof-kind verifiers: structural
// decode, trie/Merkle checks against execution-layer roots, the SSZ
// Merkle check linking those roots to a beacon body_root, the signature
// check delegated to the lightclient/blsverify stack, and the final
// cross-check against the caller's claimed RPC result.
package proofs

import (
	"encoding/json"
	"fmt"

	"github.com/colibri-go/verifier/chainconfig"
	"github.com/colibri-go/verifier/committee"
	"github.com/colibri-go/verifier/lightclient"
	"github.com/colibri-go/verifier/request"
	"github.com/colibri-go/verifier/verrors"
)

// Request is everything one proof verification needs: the decoded proof
// union member, the caller's claimed data and the RPC method/args that
// produced it, and the chain resources (fork schedule, committee store)
// needed for the signature check.
type Request struct {
	Proof                 request.Proof
	ClaimedData           json.RawMessage
	Method                string
	Args                  []json.RawMessage
	Chain                 uint64
	Config                *chainconfig.Config
	Store                 *committee.Store
	GenesisValidatorsRoot [32]byte
}

// Verify dispatches to the verifier for Proof.Kind and returns the
// re-serialized, verified data on success. A *verrors.CommitteeMissingError
// is returned unwrapped so the driver can recognize it with errors.As.
func Verify(r Request) ([]byte, error) {
	switch r.Proof.Kind {
	case request.KindBlockHash:
		if r.Proof.BlockHash == nil {
			return nil, missingPayload(r.Proof.Kind)
		}
		return verifyBlockHash(r, r.Proof.BlockHash)
	case request.KindAccount:
		if r.Proof.Account == nil {
			return nil, missingPayload(r.Proof.Kind)
		}
		return verifyAccount(r, r.Proof.Account)
	case request.KindTransaction:
		if r.Proof.Transaction == nil {
			return nil, missingPayload(r.Proof.Kind)
		}
		return verifyTransaction(r, r.Proof.Transaction)
	case request.KindReceipt:
		if r.Proof.Receipt == nil {
			return nil, missingPayload(r.Proof.Kind)
		}
		return verifyReceipt(r, r.Proof.Receipt)
	case request.KindLogs:
		if r.Proof.Logs == nil {
			return nil, missingPayload(r.Proof.Kind)
		}
		return verifyLogs(r, r.Proof.Logs)
	case request.KindCall:
		if r.Proof.Call == nil {
			return nil, missingPayload(r.Proof.Kind)
		}
		return verifyCall(r, r.Proof.Call)
	case request.KindBlock:
		if r.Proof.Block == nil {
			return nil, missingPayload(r.Proof.Kind)
		}
		return verifyBlock(r, r.Proof.Block)
	case request.KindSync:
		if r.Proof.Sync == nil {
			return nil, missingPayload(r.Proof.Kind)
		}
		return verifySync(r, r.Proof.Sync)
	default:
		return nil, fmt.Errorf("%w: %s", verrors.ErrUnsupportedMethod, r.Proof.Kind)
	}
}

func missingPayload(kind request.ProofKind) error {
	return fmt.Errorf("%w: %s proof carries no payload", verrors.ErrBadFormat, kind)
}

// verifySignature checks the signing envelope's header against the
// committee store for its chain, applying the domain/signing-root
// construction and the period-boundary fallback.
func verifySignature(r Request, env request.SigningEnvelope) error {
	return lightclient.VerifyHeaderSignature(r.Store, r.Config, r.Chain, env.Header, env.ParticipationBits, env.SyncAggregateSignature, r.GenesisValidatorsRoot)
}
