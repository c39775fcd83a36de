// Package blsverify builds the sync-committee signing root and verifies
// aggregate BLS12-381 signatures over it. Signature arithmetic is
// delegated to the blst-backed crypto package; this package owns only the
// domain/signing-root construction and the 2/3-quorum participation check.
package blsverify

import (
	"github.com/colibri-go/verifier/crypto"
	"github.com/colibri-go/verifier/ssz"
	"github.com/colibri-go/verifier/verrors"
)

// SyncCommitteeSize is the fixed size of a beacon-chain sync committee.
const SyncCommitteeSize = 512

// DomainSyncCommittee is the 4-byte domain type prefixed to every
// sync-committee signing root.
var DomainSyncCommittee = [4]byte{0x07, 0x00, 0x00, 0x00}

// MinQuorumNumerator/Denominator express the 2/3 participation threshold.
const (
	MinQuorumNumerator   = 2
	MinQuorumDenominator = 3
)

// ForkData is the {version, genesis_validators_root} SSZ container hashed
// to produce fork_data_root.
type ForkData struct {
	Version               [4]byte
	GenesisValidatorsRoot [32]byte
}

// HashTreeRoot computes the SSZ tree root of a ForkData container: two
// fixed-size fields, each right-padded to 32 bytes before hashing.
func (f ForkData) HashTreeRoot() [32]byte {
	versionRoot := ssz.HashTreeRootBytes32(pad32(f.Version[:]))
	gvrRoot := ssz.HashTreeRootBytes32(f.GenesisValidatorsRoot)
	return ssz.HashTreeRootContainer([][32]byte{versionRoot, gvrRoot})
}

func pad32(b []byte) [32]byte {
	var out [32]byte
	copy(out[:], b)
	return out
}

// SigningData is the {object_root, domain} SSZ container whose root is
// what the committee actually signs.
type SigningData struct {
	ObjectRoot [32]byte
	Domain     [32]byte
}

func (s SigningData) HashTreeRoot() [32]byte {
	domainRoot := ssz.HashTreeRootBytes32(s.Domain)
	return ssz.HashTreeRootContainer([][32]byte{s.ObjectRoot, domainRoot})
}

// Domain builds the 32-byte signing domain: the 4-byte domain type
// followed by the first 28 bytes of fork_data_root.
func Domain(domainType [4]byte, forkVersion [4]byte, genesisValidatorsRoot [32]byte) [32]byte {
	forkDataRoot := ForkData{Version: forkVersion, GenesisValidatorsRoot: genesisValidatorsRoot}.HashTreeRoot()
	var domain [32]byte
	copy(domain[:4], domainType[:])
	copy(domain[4:], forkDataRoot[:28])
	return domain
}

// SigningRoot computes signing_root = hash_tree_root({block_root, domain})
// for a beacon header whose tree root is blockRoot, under the sync
// committee signing domain for the given fork version and genesis
// validators root.
func SigningRoot(blockRoot [32]byte, forkVersion [4]byte, genesisValidatorsRoot [32]byte) [32]byte {
	domain := Domain(DomainSyncCommittee, forkVersion, genesisValidatorsRoot)
	return SigningData{ObjectRoot: blockRoot, Domain: domain}.HashTreeRoot()
}

// Quorum reports whether participantCount of committeeSize meets the 2/3
// threshold required to accept a sync-committee signature.
func Quorum(participantCount, committeeSize int) bool {
	if committeeSize == 0 {
		return false
	}
	return participantCount*MinQuorumDenominator >= committeeSize*MinQuorumNumerator
}

// Participants returns the committee pubkeys selected by a 512-bit
// participation bitvector.
func Participants(pubkeys [][48]byte, bits []byte) [][48]byte {
	var out [][48]byte
	for i, pk := range pubkeys {
		byteIdx := i / 8
		bitIdx := uint(i % 8)
		if byteIdx < len(bits) && bits[byteIdx]&(1<<bitIdx) != 0 {
			out = append(out, pk)
		}
	}
	return out
}

// CountParticipants counts the set bits in a committeeSize-long bitvector.
func CountParticipants(bits []byte, committeeSize int) int {
	count := 0
	for i := 0; i < committeeSize; i++ {
		byteIdx := i / 8
		bitIdx := uint(i % 8)
		if byteIdx < len(bits) && bits[byteIdx]&(1<<bitIdx) != 0 {
			count++
		}
	}
	return count
}

// VerifyAggregate checks that sig is a valid BLS12-381 FastAggregateVerify
// signature over msg by the committee members marked in bits, requiring
// 2/3 quorum first. The pairing check itself runs through
// crypto.DefaultBLSBackend(), the blst-backed adapter, not the package's
// own from-scratch pairing engine.
func VerifyAggregate(pubkeys [][48]byte, bits []byte, msg []byte, sig [96]byte) error {
	if len(pubkeys) != SyncCommitteeSize {
		return verrors.Wrap(verrors.ErrBadFormat, "sync committee size", nil)
	}
	participants := Participants(pubkeys, bits)
	if !Quorum(len(participants), SyncCommitteeSize) {
		return verrors.Wrap(verrors.ErrBadSignature, "sync committee quorum not met", nil)
	}
	pks := make([][]byte, len(participants))
	for i := range participants {
		pks[i] = participants[i][:]
	}
	if !crypto.DefaultBLSBackend().FastAggregateVerify(pks, msg, sig[:]) {
		return verrors.Wrap(verrors.ErrBadSignature, "aggregate verification failed", nil)
	}
	return nil
}
