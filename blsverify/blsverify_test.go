package blsverify

import (
	"math/big"
	"testing"

	"github.com/colibri-go/verifier/crypto"
)

func testCommittee(size int) ([][48]byte, []*big.Int) {
	pubkeys := make([][48]byte, size)
	secrets := make([]*big.Int, size)
	for i := 0; i < size; i++ {
		sk := new(big.Int).SetUint64(uint64(i) + 1)
		secrets[i] = sk
		pubkeys[i] = crypto.BLSPubkeyFromSecret(sk)
	}
	return pubkeys, secrets
}

func signAll(secrets []*big.Int, bits []byte, msg []byte) [96]byte {
	var sigs [][96]byte
	for i, sk := range secrets {
		if bits[i/8]&(1<<uint(i%8)) != 0 {
			sigs = append(sigs, crypto.BLSSign(sk, msg))
		}
	}
	return crypto.AggregateSignatures(sigs)
}

func allBits(n int) []byte {
	bits := make([]byte, (n+7)/8)
	for i := 0; i < n; i++ {
		bits[i/8] |= 1 << uint(i%8)
	}
	return bits
}

func TestSigningRootDeterministic(t *testing.T) {
	blockRoot := [32]byte{1, 2, 3}
	gvr := [32]byte{9, 9, 9}
	fv := [4]byte{0x04, 0, 0, 0}
	r1 := SigningRoot(blockRoot, fv, gvr)
	r2 := SigningRoot(blockRoot, fv, gvr)
	if r1 != r2 {
		t.Fatal("signing root must be deterministic")
	}
	other := SigningRoot(blockRoot, [4]byte{0x05, 0, 0, 0}, gvr)
	if r1 == other {
		t.Fatal("signing root must depend on fork version")
	}
}

func TestQuorum(t *testing.T) {
	if Quorum(341, 512) {
		t.Error("341/512 should not meet quorum")
	}
	if !Quorum(342, 512) {
		t.Error("342/512 should meet quorum")
	}
}

func TestVerifyAggregate_HonestAndTampered(t *testing.T) {
	pubkeys, secrets := testCommittee(SyncCommitteeSize)
	bits := allBits(SyncCommitteeSize)
	msg := []byte("signing-root-placeholder-32-bytes")
	sig := signAll(secrets, bits, msg)

	if err := VerifyAggregate(pubkeys, bits, msg, sig); err != nil {
		t.Fatalf("honest aggregate should verify: %v", err)
	}

	if err := VerifyAggregate(pubkeys, bits, []byte("different message"), sig); err == nil {
		t.Fatal("wrong message should fail verification")
	}
}

func TestVerifyAggregate_BelowQuorum(t *testing.T) {
	pubkeys, secrets := testCommittee(SyncCommitteeSize)
	bits := make([]byte, SyncCommitteeSize/8)
	for i := 0; i < 100; i++ {
		bits[i/8] |= 1 << uint(i%8)
	}
	msg := []byte("msg")
	sig := signAll(secrets, bits, msg)
	if err := VerifyAggregate(pubkeys, bits, msg, sig); err == nil {
		t.Fatal("below-quorum participation must be rejected")
	}
}

func TestVerifyAggregate_WrongCommitteeSize(t *testing.T) {
	pubkeys, _ := testCommittee(10)
	if err := VerifyAggregate(pubkeys, nil, nil, [96]byte{}); err == nil {
		t.Fatal("wrong committee size must be rejected")
	}
}
