// Package committee implements the sync-committee store: a keyed
// persistent mapping of chain id + period to committee record, with the
// chain-state machine (EMPTY/CHECKPOINT/PERIODS) and the eviction policy
// that bounds the number of periods kept per chain.
package committee

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"sort"
	"sync"

	"github.com/VictoriaMetrics/fastcache"

	"github.com/colibri-go/verifier/storage"
	"github.com/colibri-go/verifier/verrors"
)

// Record is one period's sync-committee data.
type Record struct {
	// Pubkeys holds the 512 committee members' 48-byte compressed BLS
	// public keys, in committee order.
	Pubkeys [][48]byte
	// PreviousPubkeysHash is SHA-256 of the prior period's pubkeys,
	// consulted during period-boundary fallback when a signature was made
	// against the predecessor committee.
	PreviousPubkeysHash [32]byte
	HasPreviousHash     bool
}

// HashPubkeys computes the previous_pubkeys_hash for a committee: SHA-256
// of the concatenated compressed pubkeys, in committee order.
func HashPubkeys(pubkeys [][48]byte) [32]byte {
	h := sha256.New()
	for _, pk := range pubkeys {
		h.Write(pk[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ChainStateKind distinguishes the three chain-state shapes a chain can be in.
type ChainStateKind int

const (
	Empty ChainStateKind = iota
	Checkpoint
	Periods
)

// ChainState is the persisted per-chain pointer: either empty, a trusted
// checkpoint root awaiting bootstrap, or the set of stored periods.
type ChainState struct {
	Kind            ChainStateKind
	CheckpointRoot  [32]byte
	StoredPeriods   []uint64
}

type chainStateWire struct {
	Kind           int      `json:"kind"`
	CheckpointRoot [32]byte `json:"checkpoint_root,omitempty"`
	StoredPeriods  []uint64 `json:"stored_periods,omitempty"`
}

func (s ChainState) marshal() []byte {
	w := chainStateWire{Kind: int(s.Kind), CheckpointRoot: s.CheckpointRoot, StoredPeriods: s.StoredPeriods}
	b, _ := json.Marshal(w)
	return b
}

func unmarshalChainState(data []byte) (ChainState, error) {
	var w chainStateWire
	if err := json.Unmarshal(data, &w); err != nil {
		return ChainState{}, verrors.Wrap(verrors.ErrStorageError, "decode chain state", err)
	}
	return ChainState{Kind: ChainStateKind(w.Kind), CheckpointRoot: w.CheckpointRoot, StoredPeriods: w.StoredPeriods}, nil
}

type recordWire struct {
	Pubkeys             [][48]byte `json:"pubkeys"`
	PreviousPubkeysHash [32]byte   `json:"previous_pubkeys_hash,omitempty"`
	HasPreviousHash     bool       `json:"has_previous_hash"`
}

func (r Record) marshal() []byte {
	b, _ := json.Marshal(recordWire{Pubkeys: r.Pubkeys, PreviousPubkeysHash: r.PreviousPubkeysHash, HasPreviousHash: r.HasPreviousHash})
	return b
}

func unmarshalRecord(data []byte) (Record, error) {
	var w recordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Record{}, verrors.Wrap(verrors.ErrStorageError, "decode committee record", err)
	}
	return Record{Pubkeys: w.Pubkeys, PreviousPubkeysHash: w.PreviousPubkeysHash, HasPreviousHash: w.HasPreviousHash}, nil
}

// Config parameterizes a Store; MaxSyncStates bounds the stored-period
// set kept per chain before the eviction policy kicks in.
type Config struct {
	MaxSyncStates int
}

// DefaultConfig returns the standard configuration (N=8), matching the
// teacher's struct+Default...() constructor convention.
func DefaultConfig() *Config {
	return &Config{MaxSyncStates: storage.DefaultMaxSyncStates}
}

// Store is the sync-committee store for one process: a thin layer over a
// storage.Plugin that owns the chain-state/period bookkeeping and an
// in-memory pubkey cache in front of it.
type Store struct {
	mu      sync.Mutex
	plugin  storage.Plugin
	cfg     *Config
	pkCache *fastcache.Cache
}

// NewStore constructs a Store backed by plugin.
func NewStore(plugin storage.Plugin, cfg *Config) *Store {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Store{
		plugin:  plugin,
		cfg:     cfg,
		pkCache: fastcache.New(4 * 1024 * 1024),
	}
}

// ChainState returns the persisted state pointer for a chain.
func (s *Store) ChainState(chain uint64) (ChainState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.plugin.Get(storage.StatesKey(chain))
	if !ok {
		return ChainState{Kind: Empty}, nil
	}
	return unmarshalChainState(raw)
}

// SetCheckpoint moves a chain into the CHECKPOINT state, recording the
// trusted header root the bootstrap update must match.
func (s *Store) SetCheckpoint(chain uint64, root [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := ChainState{Kind: Checkpoint, CheckpointRoot: root}
	s.plugin.Set(storage.StatesKey(chain), st.marshal())
	return nil
}

func cacheKey(chain, period uint64) []byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], chain)
	binary.BigEndian.PutUint64(b[8:], period)
	return b[:]
}

// GetValidators returns the committee record for chain+period, or
// ok=false if it is not currently stored.
func (s *Store) GetValidators(chain, period uint64) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.pkCache.HasGet(nil, cacheKey(chain, period)); ok {
		rec, err := unmarshalRecord(cached)
		if err == nil {
			return rec, true
		}
	}

	raw, ok := s.plugin.Get(storage.SyncKey(chain, period))
	if !ok {
		return Record{}, false
	}
	rec, err := unmarshalRecord(raw)
	if err != nil {
		return Record{}, false
	}
	s.pkCache.Set(cacheKey(chain, period), raw)
	return rec, true
}

// PutValidators stores a committee record for chain+period, atomically
// updating the chain's stored-period set and applying the eviction policy
// when the set would exceed MaxSyncStates.
func (s *Store) PutValidators(chain, period uint64, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.plugin.Get(storage.StatesKey(chain))
	var st ChainState
	if ok {
		var err error
		st, err = unmarshalChainState(raw)
		if err != nil {
			return err
		}
	}
	st.Kind = Periods

	periods := appendPeriodSet(st.StoredPeriods, period)
	evicted := evict(periods, s.cfg.MaxSyncStates)
	for _, p := range evicted {
		if p == period {
			continue
		}
		s.plugin.Del(storage.SyncKey(chain, p))
		s.pkCache.Del(cacheKey(chain, p))
	}
	st.StoredPeriods = subtract(periods, evicted)

	s.plugin.Set(storage.SyncKey(chain, period), rec.marshal())
	s.plugin.Set(storage.StatesKey(chain), st.marshal())
	s.pkCache.Set(cacheKey(chain, period), rec.marshal())
	return nil
}

func appendPeriodSet(periods []uint64, p uint64) []uint64 {
	for _, existing := range periods {
		if existing == p {
			return periods
		}
	}
	out := append(append([]uint64(nil), periods...), p)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// evict bounds the stored-period set to max entries: when it exceeds
// capacity, preserve the highest and lowest periods and drop the
// second-lowest, repeating until within capacity.
func evict(periods []uint64, max int) []uint64 {
	if max <= 0 || len(periods) <= max {
		return nil
	}
	var dropped []uint64
	working := append([]uint64(nil), periods...)
	for len(working) > max {
		if len(working) < 3 {
			break
		}
		dropped = append(dropped, working[1])
		working = append(append([]uint64{}, working[:1]...), working[2:]...)
	}
	return dropped
}

func subtract(periods, dropped []uint64) []uint64 {
	if len(dropped) == 0 {
		return periods
	}
	drop := make(map[uint64]bool, len(dropped))
	for _, p := range dropped {
		drop[p] = true
	}
	out := make([]uint64, 0, len(periods))
	for _, p := range periods {
		if !drop[p] {
			out = append(out, p)
		}
	}
	return out
}
