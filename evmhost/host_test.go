package evmhost

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"github.com/colibri-go/verifier/core/types"
)

func testHost() *StateProofHost {
	addr := types.HexToAddress("0x00000000000000000000000000000000000001")
	slot := types.HexToHash("0x01")
	value := types.HexToHash("0x2a")
	return NewStateProofHost([]ProvenAccount{
		{
			Address:     addr,
			Nonce:       3,
			Balance:     uint256.NewInt(1000),
			CodeHash:    types.EmptyCodeHash,
			StorageHash: types.EmptyRootHash,
			Storage:     map[types.Hash]types.Hash{slot: value},
		},
	}, TxContext{Origin: addr, BlockNumber: 42, BlockHash: types.HexToHash("0x99")})
}

func TestStateProofHost_ReadsProvenAccount(t *testing.T) {
	h := testHost()
	addr := types.HexToAddress("0x00000000000000000000000000000000000001")

	if !h.AccountExists(addr) {
		t.Fatal("expected the proven account to exist")
	}
	balance, err := h.GetBalance(addr)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance.Uint64() != 1000 {
		t.Fatalf("expected balance 1000, got %d", balance.Uint64())
	}

	slot := types.HexToHash("0x01")
	value, err := h.GetStorage(addr, slot)
	if err != nil {
		t.Fatalf("GetStorage: %v", err)
	}
	if value != types.HexToHash("0x2a") {
		t.Fatalf("unexpected storage value: %v", value)
	}
}

func TestStateProofHost_UnprovenAccountFailsClosed(t *testing.T) {
	h := testHost()
	other := types.HexToAddress("0x00000000000000000000000000000000000002")

	if h.AccountExists(other) {
		t.Fatal("expected an address with no account proof to not exist")
	}
	if _, err := h.GetBalance(other); !errors.Is(err, ErrAccountNotProven) {
		t.Fatalf("expected ErrAccountNotProven, got %v", err)
	}
	if _, err := h.GetCodeHash(other); !errors.Is(err, ErrAccountNotProven) {
		t.Fatalf("expected ErrAccountNotProven, got %v", err)
	}
	if _, err := h.GetStorage(other, types.Hash{}); !errors.Is(err, ErrAccountNotProven) {
		t.Fatalf("expected ErrAccountNotProven, got %v", err)
	}
}

func TestStateProofHost_MutationsRejected(t *testing.T) {
	h := testHost()
	addr := types.HexToAddress("0x00000000000000000000000000000000000001")

	if err := h.SetStorage(addr, types.Hash{}, types.Hash{}); !errors.Is(err, ErrMutationRejected) {
		t.Fatalf("expected ErrMutationRejected from SetStorage, got %v", err)
	}
	if err := h.SelfDestruct(addr, addr); !errors.Is(err, ErrMutationRejected) {
		t.Fatalf("expected ErrMutationRejected from SelfDestruct, got %v", err)
	}
	if _, _, err := h.Call(addr, nil, 0, nil); !errors.Is(err, ErrMutationRejected) {
		t.Fatalf("expected ErrMutationRejected from Call, got %v", err)
	}
	if err := h.EmitLog(addr, nil, nil); !errors.Is(err, ErrMutationRejected) {
		t.Fatalf("expected ErrMutationRejected from EmitLog, got %v", err)
	}
}

func TestStateProofHost_BlockHash(t *testing.T) {
	h := testHost()
	got, err := h.GetBlockHash(42)
	if err != nil {
		t.Fatalf("GetBlockHash: %v", err)
	}
	if got != types.HexToHash("0x99") {
		t.Fatalf("unexpected block hash: %v", got)
	}
	if got, _ := h.GetBlockHash(7); got != (types.Hash{}) {
		t.Fatalf("expected zero hash for a non-matching block number, got %v", got)
	}
}
