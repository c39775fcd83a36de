// Package evmhost defines the host interface an external EVM implementation
// uses to read state while replaying an eth_call, mirroring the EVMC host
// function set. Executing the call itself is out of scope here: this
// package only exposes the proven account and storage values a replay is
// allowed to read, and rejects any read the caller's proof set doesn't
// cover.
package evmhost

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/colibri-go/verifier/core/types"
)

// ErrAccountNotProven is returned for any state read whose address wasn't
// covered by one of the account proofs the call verifier was given.
var ErrAccountNotProven = errors.New("evmhost: address has no matching account proof")

// ErrMutationRejected is returned by every state-mutating host call: this
// host only replays reads against pre-verified proofs, it never commits
// writes back to a trie.
var ErrMutationRejected = errors.New("evmhost: host is read-only")

// TxContext carries the subset of block/transaction context an EVM
// replay needs to resolve opcodes like ORIGIN, GASPRICE, and BLOCKHASH.
type TxContext struct {
	Origin      types.Address
	GasPrice    *uint256.Int
	BlockNumber uint64
	BlockHash   types.Hash
	BaseFee     *uint256.Int
	ChainID     *uint256.Int
}

// Host is the read side of the EVMC host interface: account existence,
// balance, code, and storage reads, plus block-hash lookups for the
// BLOCKHASH opcode. An external EVM that accepts this interface can be
// driven entirely off a set of proven accounts without ever touching a
// live trie.
type Host interface {
	AccountExists(addr types.Address) bool
	GetBalance(addr types.Address) (*uint256.Int, error)
	GetCodeHash(addr types.Address) (types.Hash, error)
	GetCode(addr types.Address) ([]byte, error)
	GetCodeSize(addr types.Address) (int, error)
	GetStorage(addr types.Address, key types.Hash) (types.Hash, error)
	GetTxContext() TxContext
	GetBlockHash(number uint64) (types.Hash, error)

	// SetStorage, SelfDestruct, Call and EmitLog are present to satisfy an
	// EVMC-shaped host interface but always return ErrMutationRejected:
	// this host backs a stateless verifier, not a state-transition engine.
	SetStorage(addr types.Address, key, value types.Hash) error
	SelfDestruct(addr, beneficiary types.Address) error
	Call(to types.Address, input []byte, gas uint64, value *big.Int) ([]byte, uint64, error)
	EmitLog(addr types.Address, topics []types.Hash, data []byte) error
}

// ProvenAccount is one account plus its proven storage slots, ready to
// back a Host.
type ProvenAccount struct {
	Address     types.Address
	Nonce       uint64
	Balance     *uint256.Int
	CodeHash    types.Hash
	Code        []byte
	StorageHash types.Hash
	Storage     map[types.Hash]types.Hash
}

// StateProofHost is a Host backed by a fixed set of already-verified
// accounts. It never does I/O and never mutates; every read either
// resolves against the supplied set or fails closed.
type StateProofHost struct {
	accounts map[types.Address]ProvenAccount
	txCtx    TxContext
}

// NewStateProofHost builds a Host over a set of proven accounts and the
// transaction context the opcodes ORIGIN/GASPRICE/NUMBER/BLOCKHASH resolve
// against.
func NewStateProofHost(accounts []ProvenAccount, txCtx TxContext) *StateProofHost {
	m := make(map[types.Address]ProvenAccount, len(accounts))
	for _, a := range accounts {
		m[a.Address] = a
	}
	return &StateProofHost{accounts: m, txCtx: txCtx}
}

func (h *StateProofHost) AccountExists(addr types.Address) bool {
	_, ok := h.accounts[addr]
	return ok
}

func (h *StateProofHost) GetBalance(addr types.Address) (*uint256.Int, error) {
	a, ok := h.accounts[addr]
	if !ok {
		return nil, ErrAccountNotProven
	}
	if a.Balance == nil {
		return uint256.NewInt(0), nil
	}
	return a.Balance, nil
}

func (h *StateProofHost) GetCodeHash(addr types.Address) (types.Hash, error) {
	a, ok := h.accounts[addr]
	if !ok {
		return types.Hash{}, ErrAccountNotProven
	}
	return a.CodeHash, nil
}

func (h *StateProofHost) GetCode(addr types.Address) ([]byte, error) {
	a, ok := h.accounts[addr]
	if !ok {
		return nil, ErrAccountNotProven
	}
	return a.Code, nil
}

func (h *StateProofHost) GetCodeSize(addr types.Address) (int, error) {
	a, ok := h.accounts[addr]
	if !ok {
		return 0, ErrAccountNotProven
	}
	return len(a.Code), nil
}

func (h *StateProofHost) GetStorage(addr types.Address, key types.Hash) (types.Hash, error) {
	a, ok := h.accounts[addr]
	if !ok {
		return types.Hash{}, ErrAccountNotProven
	}
	v, ok := a.Storage[key]
	if !ok {
		return types.Hash{}, errors.New("evmhost: storage slot has no matching storage proof")
	}
	return v, nil
}

func (h *StateProofHost) GetTxContext() TxContext { return h.txCtx }

func (h *StateProofHost) GetBlockHash(number uint64) (types.Hash, error) {
	if number == h.txCtx.BlockNumber {
		return h.txCtx.BlockHash, nil
	}
	return types.Hash{}, errors.New("evmhost: block hash not proven")
}

func (h *StateProofHost) SetStorage(types.Address, types.Hash, types.Hash) error {
	return ErrMutationRejected
}

func (h *StateProofHost) SelfDestruct(types.Address, types.Address) error {
	return ErrMutationRejected
}

func (h *StateProofHost) Call(types.Address, []byte, uint64, *big.Int) ([]byte, uint64, error) {
	return nil, 0, ErrMutationRejected
}

func (h *StateProofHost) EmitLog(types.Address, []types.Hash, []byte) error {
	return ErrMutationRejected
}
