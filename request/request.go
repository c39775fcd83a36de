// Package request defines the wire-level request envelope, the
// discriminated proof union it carries, and the data-request model the
// driver uses to pull RPC/beacon-API responses from the caller.
package request

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/colibri-go/verifier/core/types"
	"github.com/colibri-go/verifier/lightclient"
)

// ChainFamily is the first byte of an encoded request envelope.
type ChainFamily byte

// Ethereum is the only chain family this verifier currently decodes.
const Ethereum ChainFamily = 1

var (
	ErrEmptyEnvelope       = errors.New("request: empty envelope")
	ErrUnsupportedFamily   = errors.New("request: unsupported chain family")
	ErrUnknownProofKind    = errors.New("request: unknown proof kind")
	ErrMalformedEnvelope   = errors.New("request: malformed envelope body")
)

// ProofKind discriminates the Ethereum proof union.
type ProofKind byte

const (
	KindBlockHash ProofKind = iota + 1
	KindAccount
	KindTransaction
	KindReceipt
	KindLogs
	KindCall
	KindBlock
	KindSync
)

func (k ProofKind) String() string {
	switch k {
	case KindBlockHash:
		return "BlockHashProof"
	case KindAccount:
		return "AccountProof"
	case KindTransaction:
		return "TransactionProof"
	case KindReceipt:
		return "ReceiptProof"
	case KindLogs:
		return "LogsProof"
	case KindCall:
		return "CallProof"
	case KindBlock:
		return "BlockProof"
	case KindSync:
		return "SyncProof"
	default:
		return fmt.Sprintf("ProofKind(%d)", byte(k))
	}
}

// SigningEnvelope is the portion every concrete proof carries: the beacon
// header it is anchored to, the participation bitvector of the committee
// that signed it, and the aggregate signature itself.
type SigningEnvelope struct {
	Header                 lightclient.BeaconHeader
	ParticipationBits       []byte // 64 bytes, one bit per committee member
	SyncAggregateSignature [96]byte
}

// BlockHashProof proves executionPayload.blockHash via a single-leaf
// branch (generalized index 812) up to body_root.
type BlockHashProof struct {
	SigningEnvelope
	BlockHash types.Hash
	Branch    [][32]byte
}

// StorageProof proves a single storage slot's value under an account's
// storageHash.
type StorageProof struct {
	Key   types.Hash
	Value types.Hash
	Nodes [][]byte
}

// AccountProof proves an account's RLP fields under the execution state
// root, plus a fixed set of storage sub-proofs.
type AccountProof struct {
	SigningEnvelope
	Address         types.Address
	Nonce           uint64
	Balance         []byte // big-endian, may be nil (zero)
	StorageHash     types.Hash
	CodeHash        types.Hash
	StateRoot       types.Hash // executionPayload.stateRoot
	AccountNodes    [][]byte   // MPT proof nodes under StateRoot
	StateRootBranch [][32]byte // StateRoot (gindex 802) up to body_root
	StorageProofs   []StorageProof
}

// TransactionProof proves a raw transaction's inclusion at a declared
// index inside executionPayload, alongside the sibling fields the branch
// binds together (blockHash, blockNumber, baseFeePerGas).
type TransactionProof struct {
	SigningEnvelope
	TransactionIndex uint64
	RawTransaction   []byte
	BlockHash        types.Hash
	BlockNumber      uint64
	BaseFeePerGas    []byte
	Branch           [][32]byte
}

// ReceiptProof proves a receipt's RLP encoding under receiptsRoot, plus
// the Merkle branch from receiptsRoot (gindex 803) up to body_root.
type ReceiptProof struct {
	SigningEnvelope
	TransactionIndex uint64
	ReceiptRLP       []byte
	ReceiptNodes     [][]byte
	ReceiptsRoot     types.Hash // executionPayload.receiptsRoot
	BlockHash        types.Hash
	BlockNumber      uint64
	Branch           [][32]byte
}

// LogsProof bundles one ReceiptProof per transaction whose receipt
// contributes at least one matching log, all sharing one execution block.
type LogsProof struct {
	SigningEnvelope
	BlockHash types.Hash
	Receipts  []ReceiptProof
	Filter    types.LogFilter
}

// CallProof replays an eth_call against a set of account/storage proofs
// supplied up front; the evmhost package enforces that every state read
// the replay performs is backed by one of these.
type CallProof struct {
	SigningEnvelope
	To        types.Address
	From      types.Address
	Data      []byte
	Value     []byte
	Gas       uint64
	Accounts  []AccountProof
	Output    []byte
}

// BlockProof proves the full execution payload container (or just its
// number and hash) against body_root.
type BlockProof struct {
	SigningEnvelope
	BlockNumber uint64
	BlockHash   types.Hash
	PayloadSSZ  []byte // nil when only number+hash are being proven
	Branch      [][32]byte
}

// SyncProof wraps one or more light-client updates (and an optional
// bootstrap) for the driver to hand to the lightclient handler.
type SyncProof struct {
	Bootstrap *lightclient.Bootstrap
	Updates   []lightclient.Update
}

// Proof is the decoded, typed view of one proof-union member.
type Proof struct {
	Kind         ProofKind
	BlockHash    *BlockHashProof
	Account      *AccountProof
	Transaction  *TransactionProof
	Receipt      *ReceiptProof
	Logs         *LogsProof
	Call         *CallProof
	Block        *BlockProof
	Sync         *SyncProof
}

// Envelope is the top-level decoded request: the claimed RPC result, the
// proof backing it, and any sync-committee updates the caller offers.
type Envelope struct {
	Family ChainFamily
	Data   json.RawMessage
	Proof  Proof
}

// wireEnvelope is the JSON body following the leading chain-family byte.
type wireEnvelope struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Kind  ProofKind       `json:"proof_kind"`
	Proof json.RawMessage `json:"proof"`
}

// Decode parses a tagged request envelope: one chain-family byte followed
// by a JSON body carrying the optional claimed data and the discriminated
// proof payload.
func Decode(raw []byte) (*Envelope, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyEnvelope
	}
	family := ChainFamily(raw[0])
	if family != Ethereum {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFamily, family)
	}

	var wire wireEnvelope
	if err := json.Unmarshal(raw[1:], &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	env := &Envelope{Family: family, Data: wire.Data, Proof: Proof{Kind: wire.Kind}}
	switch wire.Kind {
	case KindBlockHash:
		env.Proof.BlockHash = new(BlockHashProof)
		return env, unmarshalOrEmpty(wire.Proof, env.Proof.BlockHash)
	case KindAccount:
		env.Proof.Account = new(AccountProof)
		return env, unmarshalOrEmpty(wire.Proof, env.Proof.Account)
	case KindTransaction:
		env.Proof.Transaction = new(TransactionProof)
		return env, unmarshalOrEmpty(wire.Proof, env.Proof.Transaction)
	case KindReceipt:
		env.Proof.Receipt = new(ReceiptProof)
		return env, unmarshalOrEmpty(wire.Proof, env.Proof.Receipt)
	case KindLogs:
		env.Proof.Logs = new(LogsProof)
		return env, unmarshalOrEmpty(wire.Proof, env.Proof.Logs)
	case KindCall:
		env.Proof.Call = new(CallProof)
		return env, unmarshalOrEmpty(wire.Proof, env.Proof.Call)
	case KindBlock:
		env.Proof.Block = new(BlockProof)
		return env, unmarshalOrEmpty(wire.Proof, env.Proof.Block)
	case KindSync:
		env.Proof.Sync = new(SyncProof)
		return env, unmarshalOrEmpty(wire.Proof, env.Proof.Sync)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownProofKind, wire.Kind)
	}
}

func unmarshalOrEmpty(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return nil
}

// Encode serializes an Envelope back into the tagged binary form Decode
// accepts; used by tests and by the checkpoint-signing tooling.
func (e *Envelope) Encode() ([]byte, error) {
	var payload interface{}
	switch e.Proof.Kind {
	case KindBlockHash:
		payload = e.Proof.BlockHash
	case KindAccount:
		payload = e.Proof.Account
	case KindTransaction:
		payload = e.Proof.Transaction
	case KindReceipt:
		payload = e.Proof.Receipt
	case KindLogs:
		payload = e.Proof.Logs
	case KindCall:
		payload = e.Proof.Call
	case KindBlock:
		payload = e.Proof.Block
	case KindSync:
		payload = e.Proof.Sync
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownProofKind, e.Proof.Kind)
	}
	proofJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(wireEnvelope{Data: e.Data, Kind: e.Proof.Kind, Proof: proofJSON})
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1+len(body))
	out[0] = byte(e.Family)
	copy(out[1:], body)
	return out, nil
}

// DataRequestType distinguishes what service a data request targets.
type DataRequestType int

const (
	EthRPC DataRequestType = iota
	BeaconAPI
	RestAPI
)

// HTTPMethod is the subset of methods a data request may declare.
type HTTPMethod int

const (
	MethodGET HTTPMethod = iota
	MethodPOST
	MethodPUT
	MethodDELETE
)

func (m HTTPMethod) String() string {
	switch m {
	case MethodGET:
		return "GET"
	case MethodPOST:
		return "POST"
	case MethodPUT:
		return "PUT"
	case MethodDELETE:
		return "DELETE"
	default:
		return "GET"
	}
}

// Encoding is the wire encoding a data request's response is expected in.
type Encoding int

const (
	JSON Encoding = iota
	SSZ
)

// DataRequest is one external fetch the driver needs to complete
// verification: a sync-committee update range, a checkpoint bootstrap
// object, or (for the signing tool) an arbitrary beacon-API/REST call.
type DataRequest struct {
	Chain    uint64
	Type     DataRequestType
	Method   HTTPMethod
	URL      string
	Payload  []byte
	Encoding Encoding
	ID       [32]byte
}

// NewDataRequest builds a DataRequest, deriving its id as SHA-256(url).
// Two requests for the same URL therefore carry the same id, letting the
// driver de-duplicate outstanding fetches.
func NewDataRequest(chain uint64, typ DataRequestType, method HTTPMethod, url string, payload []byte, encoding Encoding) DataRequest {
	return DataRequest{
		Chain:    chain,
		Type:     typ,
		Method:   method,
		URL:      url,
		Payload:  payload,
		Encoding: encoding,
		ID:       sha256.Sum256([]byte(url)),
	}
}

// DataResponse is what the caller delivers back for a DataRequest's id:
// either the raw response bytes or an error description.
type DataResponse struct {
	ReqID [32]byte
	Bytes []byte
	Err   string
}

// PeriodRange encodes first/last missing sync-committee periods, used to
// build the URL of a light-client-updates range request.
type PeriodRange struct {
	First uint64
	Last  uint64
}

// LightClientUpdatesURL builds the canonical beacon-API path for fetching
// a contiguous range of light-client updates.
func LightClientUpdatesURL(r PeriodRange) string {
	return fmt.Sprintf("/eth/v1/beacon/light_client/updates?start_period=%d&count=%d", r.First, r.Last-r.First+1)
}
