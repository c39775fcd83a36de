// Package chainconfig describes the per-chain timing and fork schedule the
// rest of the verifier needs: slot/epoch/period arithmetic, fork-version
// lookup for the signing domain, and the fork-dependent generalized index of
// the next sync-committee field inside a beacon state.
package chainconfig

import (
	"errors"
	"fmt"
)

// Epoch is a consensus-layer epoch number.
type Epoch uint64

// Slot is a consensus-layer slot number.
type Slot uint64

// Period is a sync-committee period number (one period spans SlotsPerPeriod slots).
type Period uint64

// FarFutureEpoch marks a fork that is not yet scheduled.
const FarFutureEpoch Epoch = ^Epoch(0)

// SlotsPerPeriod is the number of slots in one sync-committee period.
const SlotsPerPeriod uint64 = 8192

var (
	ErrInvalidSlotDuration = errors.New("chainconfig: seconds per slot must be > 0")
	ErrInvalidEpochLength  = errors.New("chainconfig: slots per epoch must be > 0")
	ErrForkScheduleOrder   = errors.New("chainconfig: fork schedule must be in ascending epoch order")
	ErrUnknownChain        = errors.New("chainconfig: unknown chain id")
)

// ForkName identifies a named fork boundary.
type ForkName string

const (
	ForkPhase0    ForkName = "phase0"
	ForkAltair    ForkName = "altair"
	ForkBellatrix ForkName = "bellatrix"
	ForkCapella   ForkName = "capella"
	ForkDeneb     ForkName = "deneb"
	ForkElectra   ForkName = "electra"
)

// ForkScheduleEntry records the activation epoch and the 4-byte fork
// version used to build the signing domain once that fork is active.
type ForkScheduleEntry struct {
	Name    ForkName
	Epoch   Epoch
	Version [4]byte
}

// FinalityBranchGIndex is the generalized index of finalized_checkpoint
// inside a beacon state, consulted when verifying a light-client update's
// finality branch against attested_header.state_root.
const FinalityBranchGIndex = 105

// NextCommitteeGIndex returns the fork-dependent generalized index of
// next_sync_committee inside BeaconState: 54 pre-Electra, 86 from Electra
// onward. The choice is keyed on the fork active at the header's slot.
func NextCommitteeGIndex(fork ForkName) uint64 {
	if fork == ForkElectra {
		return 86
	}
	return 54
}

// Config is the chain timing and fork-schedule configuration for one chain id.
type Config struct {
	ChainID        uint64
	SecondsPerSlot uint64
	SlotsPerEpoch  uint64
	ForkSchedule   []ForkScheduleEntry
}

// Validate checks the config for internal consistency.
func (c *Config) Validate() error {
	if c.SecondsPerSlot == 0 {
		return ErrInvalidSlotDuration
	}
	if c.SlotsPerEpoch == 0 {
		return ErrInvalidEpochLength
	}
	for i := 1; i < len(c.ForkSchedule); i++ {
		if c.ForkSchedule[i].Epoch < c.ForkSchedule[i-1].Epoch {
			return fmt.Errorf("%w: %s (%d) before %s (%d)", ErrForkScheduleOrder,
				c.ForkSchedule[i].Name, c.ForkSchedule[i].Epoch,
				c.ForkSchedule[i-1].Name, c.ForkSchedule[i-1].Epoch)
		}
	}
	return nil
}

// SlotToEpoch converts a slot number to its containing epoch.
func (c *Config) SlotToEpoch(slot Slot) Epoch {
	return Epoch(uint64(slot) / c.SlotsPerEpoch)
}

// SlotToPeriod converts a slot number to its sync-committee period.
func SlotToPeriod(slot Slot) Period {
	return Period(uint64(slot) / SlotsPerPeriod)
}

// ForkAtEpoch returns the most recent fork active at the given epoch.
func (c *Config) ForkAtEpoch(epoch Epoch) ForkScheduleEntry {
	var active ForkScheduleEntry
	for _, entry := range c.ForkSchedule {
		if epoch >= entry.Epoch {
			active = entry
		}
	}
	return active
}

// ForkVersion returns the 4-byte fork version active at the given slot,
// used to build the signing domain.
func (c *Config) ForkVersion(slot Slot) [4]byte {
	return c.ForkAtEpoch(c.SlotToEpoch(slot)).Version
}

// ForkAtSlot is a convenience wrapper returning the fork name active at slot,
// used to select the fork-dependent next-committee generalized index.
func (c *Config) ForkAtSlot(slot Slot) ForkName {
	return c.ForkAtEpoch(c.SlotToEpoch(slot)).Name
}

// Mainnet is Ethereum mainnet's chain id and fork schedule.
const Mainnet uint64 = 1

// DefaultMainnet returns the standard Ethereum mainnet configuration: 12s
// slots, 32 slots per epoch, and the fork schedule through Electra.
func DefaultMainnet() *Config {
	return &Config{
		ChainID:        Mainnet,
		SecondsPerSlot: 12,
		SlotsPerEpoch:  32,
		ForkSchedule: []ForkScheduleEntry{
			{Name: ForkPhase0, Epoch: 0, Version: [4]byte{0x00, 0x00, 0x00, 0x00}},
			{Name: ForkAltair, Epoch: 74240, Version: [4]byte{0x01, 0x00, 0x00, 0x00}},
			{Name: ForkBellatrix, Epoch: 144896, Version: [4]byte{0x02, 0x00, 0x00, 0x00}},
			{Name: ForkCapella, Epoch: 194048, Version: [4]byte{0x03, 0x00, 0x00, 0x00}},
			{Name: ForkDeneb, Epoch: 269568, Version: [4]byte{0x04, 0x00, 0x00, 0x00}},
			{Name: ForkElectra, Epoch: 364032, Version: [4]byte{0x05, 0x00, 0x00, 0x00}},
		},
	}
}

// registry maps chain ids known to this verifier to their configuration.
// Additional chains (L2s, testnets) register here; an unknown chain id is
// reported as ErrUnknownChain rather than guessed at.
var registry = map[uint64]*Config{
	Mainnet: DefaultMainnet(),
}

// ForChain looks up the configuration for a chain id.
func ForChain(chainID uint64) (*Config, error) {
	cfg, ok := registry[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}
	return cfg, nil
}

// Register adds or replaces the configuration for a chain id, used by
// callers wiring in additional chains (e.g. test networks) at startup.
func Register(cfg *Config) {
	registry[cfg.ChainID] = cfg
}
