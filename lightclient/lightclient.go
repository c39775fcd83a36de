// Package lightclient consumes light-client updates to extend the
// sync-committee store and validates period transitions. It is the only
// component allowed to call committee.Store.PutValidators: every new
// committee record must first clear the acceptance rules below.
package lightclient

import (
	"errors"
	"sort"

	"github.com/colibri-go/verifier/blsverify"
	"github.com/colibri-go/verifier/chainconfig"
	"github.com/colibri-go/verifier/committee"
	"github.com/colibri-go/verifier/merkle"
	"github.com/colibri-go/verifier/ssz"
	"github.com/colibri-go/verifier/verrors"
)

// BeaconHeader is the 5-field beacon block header container whose tree
// root is signed by the sync committee.
type BeaconHeader struct {
	Slot          uint64
	ProposerIndex uint64
	ParentRoot    [32]byte
	StateRoot     [32]byte
	BodyRoot      [32]byte
}

// HashTreeRoot computes the SSZ tree root of the header.
func (h BeaconHeader) HashTreeRoot() [32]byte {
	return ssz.HashTreeRootContainer([][32]byte{
		ssz.HashTreeRootUint64(h.Slot),
		ssz.HashTreeRootUint64(h.ProposerIndex),
		ssz.HashTreeRootBytes32(h.ParentRoot),
		ssz.HashTreeRootBytes32(h.StateRoot),
		ssz.HashTreeRootBytes32(h.BodyRoot),
	})
}

func committeeRoot(pubkeys [][48]byte) [32]byte {
	roots := make([][32]byte, len(pubkeys))
	for i, pk := range pubkeys {
		roots[i] = ssz.HashTreeRootBytes48(pk)
	}
	return ssz.HashTreeRootVector(roots)
}

// Update is one SSZ light-client update: an attested header, the next
// sync committee and its Merkle branch into attested_header.state_root, a
// finalized header and its finality branch, and the aggregate signature
// over attested_header by the committee active at its slot.
type Update struct {
	AttestedHeader         BeaconHeader
	NextCommitteePubkeys   [][48]byte
	NextCommitteeBranch    [][32]byte
	FinalizedHeader        BeaconHeader
	FinalityBranch         [][32]byte
	SyncAggregateBits      []byte
	SyncAggregateSignature [96]byte
}

// Bootstrap carries the current sync committee and its Merkle branch for
// a trusted checkpoint header, used to leave the CHECKPOINT chain state.
type Bootstrap struct {
	Header                  BeaconHeader
	CurrentCommitteePubkeys [][48]byte
	CurrentCommitteeBranch  [][32]byte
}

var (
	ErrBootstrapChainNotPending = errors.New("lightclient: chain is not awaiting bootstrap")
	ErrBootstrapRootMismatch    = errors.New("lightclient: bootstrap header root does not match checkpoint")
)

// Handler applies light-client updates against one chain's committee
// store, gated by the acceptance rules in order: participation quorum,
// finality branch, next-committee branch, and signing-root verification.
type Handler struct {
	store                 *committee.Store
	cfg                   *chainconfig.Config
	chain                 uint64
	genesisValidatorsRoot [32]byte
}

// NewHandler builds a Handler for one chain.
func NewHandler(store *committee.Store, cfg *chainconfig.Config, chain uint64, genesisValidatorsRoot [32]byte) *Handler {
	return &Handler{store: store, cfg: cfg, chain: chain, genesisValidatorsRoot: genesisValidatorsRoot}
}

// ProcessBootstrap verifies a bootstrap object against a CHECKPOINT chain
// state and, on success, seeds the store with the current committee at
// period slot(header)/period_length.
func (h *Handler) ProcessBootstrap(bootstrap Bootstrap) error {
	state, err := h.store.ChainState(h.chain)
	if err != nil {
		return err
	}
	if state.Kind != committee.Checkpoint {
		return ErrBootstrapChainNotPending
	}

	headerRoot := bootstrap.Header.HashTreeRoot()
	if headerRoot != state.CheckpointRoot {
		return ErrBootstrapRootMismatch
	}

	root := committeeRoot(bootstrap.CurrentCommitteePubkeys)
	gindex := chainconfig.NextCommitteeGIndex(h.cfg.ForkAtSlot(chainconfig.Slot(bootstrap.Header.Slot)))
	if err := merkle.VerifySingleLeaf(bootstrap.Header.StateRoot, root, gindex, bootstrap.CurrentCommitteeBranch); err != nil {
		return verrors.Wrap(verrors.ErrBadProof, "bootstrap committee branch", err)
	}

	period := chainconfig.SlotToPeriod(chainconfig.Slot(bootstrap.Header.Slot))
	return h.store.PutValidators(h.chain, uint64(period), committee.Record{Pubkeys: bootstrap.CurrentCommitteePubkeys})
}

// ProcessUpdate validates and applies a single light-client update,
// applying the acceptance rules in order. If the committee needed for
// step 4 is not currently stored, it returns a *verrors.CommitteeMissingError
// instead of a hard error: this is not a verification failure, only a
// request for more data.
func (h *Handler) ProcessUpdate(u Update) error {
	const committeeSize = blsverify.SyncCommitteeSize

	// Rule 1: participation quorum.
	participants := blsverify.CountParticipants(u.SyncAggregateBits, committeeSize)
	if !blsverify.Quorum(participants, committeeSize) {
		return verrors.Wrap(verrors.ErrBadSignature, "sync committee participation below quorum", nil)
	}

	// Rule 2: finality branch under attested_header.state_root.
	finalizedRoot := u.FinalizedHeader.HashTreeRoot()
	if err := merkle.VerifySingleLeaf(u.AttestedHeader.StateRoot, finalizedRoot, chainconfig.FinalityBranchGIndex, u.FinalityBranch); err != nil {
		return verrors.Wrap(verrors.ErrBadProof, "finality branch", err)
	}

	// Rule 3: next-committee branch under attested_header.state_root, at
	// the fork-dependent generalized index selected by header slot.
	fork := h.cfg.ForkAtSlot(chainconfig.Slot(u.AttestedHeader.Slot))
	nextGIndex := chainconfig.NextCommitteeGIndex(fork)
	nextRoot := committeeRoot(u.NextCommitteePubkeys)
	if err := merkle.VerifySingleLeaf(u.AttestedHeader.StateRoot, nextRoot, nextGIndex, u.NextCommitteeBranch); err != nil {
		return verrors.Wrap(verrors.ErrBadProof, "next sync committee branch", err)
	}

	// Rule 4: signing root of attested_header against the committee for
	// slot(attested_header)/period_length, falling back to the predecessor
	// committee at the first slot of a period.
	signingCommittee, err := h.resolveSigningCommittee(u.AttestedHeader.Slot)
	if err != nil {
		return err
	}
	if err := VerifyHeaderSignature(h.store, h.cfg, h.chain, u.AttestedHeader, u.SyncAggregateBits, u.SyncAggregateSignature, h.genesisValidatorsRoot); err != nil {
		return err
	}

	// Rule 5: store the next committee under period(finalized_header) + 1.
	targetPeriod := chainconfig.SlotToPeriod(chainconfig.Slot(u.FinalizedHeader.Slot)) + 1
	rec := committee.Record{
		Pubkeys:             u.NextCommitteePubkeys,
		PreviousPubkeysHash: committee.HashPubkeys(signingCommittee.Pubkeys),
		HasPreviousHash:     true,
	}
	return h.store.PutValidators(h.chain, uint64(targetPeriod), rec)
}

// fallbackTrusted reports whether prev (period-1's committee record) is a
// legitimate stand-in for period's missing committee. prev must have been
// linked into the committee chain by a prior ProcessUpdate (HasPreviousHash),
// and if period-2's own record is still stored, prev's previous_pubkeys_hash
// must equal SHA-256 of period-2's actual pubkeys: "every stored period p's
// previous_pubkeys_hash equals SHA-256(pubkeys[p-1]) when pubkeys[p-1] is
// known". A record that fails either check was never chained from a
// verified committee and must not be trusted as a fallback.
func fallbackTrusted(store *committee.Store, chain uint64, period uint64, prev committee.Record) bool {
	if !prev.HasPreviousHash {
		return false
	}
	if period < 2 {
		return true
	}
	if older, ok := store.GetValidators(chain, period-2); ok {
		return committee.HashPubkeys(older.Pubkeys) == prev.PreviousPubkeysHash
	}
	return true
}

// resolveSigningCommittee returns the committee record VerifyHeaderSignature
// would use for slot, applying the same period-boundary fallback, so that
// ProcessUpdate can compute previous_pubkeys_hash for the stored record
// without re-deriving the fallback logic.
func (h *Handler) resolveSigningCommittee(slot uint64) (committee.Record, error) {
	period := chainconfig.SlotToPeriod(chainconfig.Slot(slot))
	if rec, ok := h.store.GetValidators(h.chain, uint64(period)); ok {
		return rec, nil
	}
	if slot%chainconfig.SlotsPerPeriod == 0 && period > 0 {
		if rec, ok := h.store.GetValidators(h.chain, uint64(period)-1); ok && fallbackTrusted(h.store, h.chain, uint64(period), rec) {
			return rec, nil
		}
	}
	return committee.Record{}, verrors.NewCommitteeMissing(h.chain, uint64(period))
}

// VerifyHeaderSignature checks header's signing root against the sync
// committee stored for its period, falling back to the predecessor
// committee when slot lands on a period boundary, the current period's
// committee is not yet known, and the predecessor's own previous_pubkeys_hash
// checks out (fallbackTrusted). Shared by ProcessUpdate and by the per-proof
// verifiers, which all need the same committee-lookup-plus-BLS-check.
func VerifyHeaderSignature(store *committee.Store, cfg *chainconfig.Config, chain uint64, header BeaconHeader, bits []byte, sig [96]byte, genesisValidatorsRoot [32]byte) error {
	period := chainconfig.SlotToPeriod(chainconfig.Slot(header.Slot))
	signingCommittee, ok := store.GetValidators(chain, uint64(period))
	if !ok {
		if header.Slot%chainconfig.SlotsPerPeriod == 0 && period > 0 {
			if prev, prevOK := store.GetValidators(chain, uint64(period)-1); prevOK && fallbackTrusted(store, chain, uint64(period), prev) {
				signingCommittee, ok = prev, true
			}
		}
		if !ok {
			return verrors.NewCommitteeMissing(chain, uint64(period))
		}
	}

	forkVersion := cfg.ForkVersion(chainconfig.Slot(header.Slot))
	blockRoot := header.HashTreeRoot()
	signingRoot := blsverify.SigningRoot(blockRoot, forkVersion, genesisValidatorsRoot)
	return blsverify.VerifyAggregate(signingCommittee.Pubkeys, bits, signingRoot[:], sig)
}

// ProcessUpdates applies updates in ascending attested-header-slot order,
// stopping at the first one that cannot be validated. A *verrors.CommitteeMissingError
// surfaces the period the caller should fetch light-client updates for
// next; any other error is a hard verification failure and none of the
// remaining updates are attempted.
func ProcessUpdates(h *Handler, updates []Update) (applied int, err error) {
	sorted := append([]Update(nil), updates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].AttestedHeader.Slot < sorted[j].AttestedHeader.Slot })

	for _, u := range sorted {
		if err := h.ProcessUpdate(u); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}
