package request

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/colibri-go/verifier/core/types"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		env  *Envelope
	}{
		{
			name: "BlockHash",
			env: &Envelope{
				Family: Ethereum,
				Data:   json.RawMessage(`"0xabc"`),
				Proof: Proof{
					Kind: KindBlockHash,
					BlockHash: &BlockHashProof{
						BlockHash: types.HexToHash("0x01"),
						Branch:    [][32]byte{{1}, {2}},
					},
				},
			},
		},
		{
			name: "Account",
			env: &Envelope{
				Family: Ethereum,
				Data:   json.RawMessage(`"0x64"`),
				Proof: Proof{
					Kind: KindAccount,
					Account: &AccountProof{
						Address: types.HexToAddress("0x00000000000000000000000000000000000001"),
						Nonce:   7,
					},
				},
			},
		},
		{
			name: "Sync",
			env: &Envelope{
				Family: Ethereum,
				Proof: Proof{
					Kind: KindSync,
					Sync: &SyncProof{},
				},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := tc.env.Encode()
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if raw[0] != byte(Ethereum) {
				t.Fatalf("expected leading chain-family byte %d, got %d", Ethereum, raw[0])
			}

			decoded, err := Decode(raw)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if decoded.Proof.Kind != tc.env.Proof.Kind {
				t.Fatalf("kind mismatch: got %v want %v", decoded.Proof.Kind, tc.env.Proof.Kind)
			}

			reencoded, err := decoded.Encode()
			if err != nil {
				t.Fatalf("re-Encode: %v", err)
			}
			if string(reencoded) != string(raw) {
				t.Fatalf("roundtrip mismatch:\n got: %s\nwant: %s", reencoded, raw)
			}
		})
	}
}

func TestDecode_EmptyEnvelope(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrEmptyEnvelope) {
		t.Fatalf("expected ErrEmptyEnvelope, got %v", err)
	}
	if _, err := Decode([]byte{}); !errors.Is(err, ErrEmptyEnvelope) {
		t.Fatalf("expected ErrEmptyEnvelope, got %v", err)
	}
}

func TestDecode_UnsupportedFamily(t *testing.T) {
	raw := append([]byte{0x02}, []byte(`{"proof_kind":1,"proof":{}}`)...)
	if _, err := Decode(raw); !errors.Is(err, ErrUnsupportedFamily) {
		t.Fatalf("expected ErrUnsupportedFamily, got %v", err)
	}
}

func TestDecode_MalformedBody(t *testing.T) {
	raw := append([]byte{byte(Ethereum)}, []byte(`not json`)...)
	if _, err := Decode(raw); !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("expected ErrMalformedEnvelope, got %v", err)
	}
}

func TestDecode_UnknownProofKind(t *testing.T) {
	raw := append([]byte{byte(Ethereum)}, []byte(`{"proof_kind":99,"proof":{}}`)...)
	if _, err := Decode(raw); !errors.Is(err, ErrUnknownProofKind) {
		t.Fatalf("expected ErrUnknownProofKind, got %v", err)
	}
}

func TestDecode_MalformedProofPayload(t *testing.T) {
	raw := append([]byte{byte(Ethereum)}, []byte(`{"proof_kind":1,"proof":"not an object"}`)...)
	if _, err := Decode(raw); !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("expected ErrMalformedEnvelope for a mistyped proof payload, got %v", err)
	}
}
