package rlp

import (
	"bytes"
	"math/big"
	"testing"

	gethrlp "github.com/ethereum/go-ethereum/rlp"
)

// TestCrossCheckAgainstGeth encodes a handful of representative values with
// this package's encoder and with go-ethereum's, and asserts byte-for-byte
// agreement. RLP has no alternative valid encoding for a given value, so any
// divergence here means one of the two encoders is wrong.
func TestCrossCheckAgainstGeth(t *testing.T) {
	cases := []interface{}{
		"",
		"dog",
		uint64(0),
		uint64(15),
		uint64(1024),
		big.NewInt(0),
		big.NewInt(1_000_000_007),
		[]byte{},
		[]byte{0x01, 0x02, 0x03},
		[]string{"cat", "dog"},
	}

	for _, v := range cases {
		ours, err := EncodeToBytes(v)
		if err != nil {
			t.Fatalf("EncodeToBytes(%#v): %v", v, err)
		}
		theirs, err := gethrlp.EncodeToBytes(v)
		if err != nil {
			t.Fatalf("geth EncodeToBytes(%#v): %v", v, err)
		}
		if !bytes.Equal(ours, theirs) {
			t.Errorf("%#v: ours=%x geth=%x", v, ours, theirs)
		}
	}
}
