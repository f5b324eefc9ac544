// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/trackmesh/trackmesh/trackmesh"
)

// Config is the process-wide, admin-mutable ledger configuration.
type Config struct {
	Admin    trackmesh.Address  `json:"admin"`
	Treasury *trackmesh.Address `json:"treasury,omitempty"`

	// ProofCount is the next assignable proof ID.
	ProofCount uint64 `json:"proofCount"`

	MinReputationThreshold int32 `json:"minReputationThreshold"`

	MinStakeTier1 *big.Int `json:"minStakeTier1"`
	MinStakeTier2 *big.Int `json:"minStakeTier2"`
	MinStakeTier3 *big.Int `json:"minStakeTier3"`

	DepositTier1 *big.Int `json:"depositTier1"`
	DepositTier2 *big.Int `json:"depositTier2"`
	DepositTier3 *big.Int `json:"depositTier3"`

	// UseWhitelist requires an explicit whitelist entry for registration.
	UseWhitelist bool `json:"useWhitelist"`

	// UnlockPeriod is the deposit unbonding delay in blocks.
	UnlockPeriod uint64 `json:"unlockPeriod"`

	// MaxBatchCount bounds the batch sequence of a single proof submission.
	MaxBatchCount uint32 `json:"maxBatchCount"`

	// DepositDenom is the denomination accepted for locked deposits.
	DepositDenom string `json:"depositDenom"`
}

// Validate checks the structural invariants of the configuration.
// Tier thresholds and deposit requirements must be non-decreasing with
// tier number.
func (c *Config) Validate() error {
	if c.Admin.IsZero() {
		return errors.New("config: admin address must be set")
	}
	if c.DepositDenom == "" {
		return errors.New("config: deposit denom must be set")
	}
	if c.MaxBatchCount == 0 {
		return errors.New("config: max batch count must be positive")
	}
	for _, v := range []*big.Int{
		c.MinStakeTier1, c.MinStakeTier2, c.MinStakeTier3,
		c.DepositTier1, c.DepositTier2, c.DepositTier3,
	} {
		if v == nil || v.Sign() < 0 {
			return errors.New("config: tier amounts must be non-negative")
		}
	}
	if c.MinStakeTier1.Cmp(c.MinStakeTier2) > 0 || c.MinStakeTier2.Cmp(c.MinStakeTier3) > 0 {
		return errors.New("config: tier stake thresholds must be non-decreasing")
	}
	if c.DepositTier1.Cmp(c.DepositTier2) > 0 || c.DepositTier2.Cmp(c.DepositTier3) > 0 {
		return errors.New("config: tier deposit requirements must be non-decreasing")
	}
	return nil
}

// Copy returns a deep copy of the config.
func (c *Config) Copy() *Config {
	cpy := *c
	if c.Treasury != nil {
		t := *c.Treasury
		cpy.Treasury = &t
	}
	cpy.MinStakeTier1 = new(big.Int).Set(c.MinStakeTier1)
	cpy.MinStakeTier2 = new(big.Int).Set(c.MinStakeTier2)
	cpy.MinStakeTier3 = new(big.Int).Set(c.MinStakeTier3)
	cpy.DepositTier1 = new(big.Int).Set(c.DepositTier1)
	cpy.DepositTier2 = new(big.Int).Set(c.DepositTier2)
	cpy.DepositTier3 = new(big.Int).Set(c.DepositTier3)
	return &cpy
}

// TierForStake selects the highest tier whose minimum-stake threshold is met,
// or 0 when even tier 1 is out of reach.
func (c *Config) TierForStake(stake *big.Int) uint8 {
	switch {
	case stake.Cmp(c.MinStakeTier3) >= 0:
		return 3
	case stake.Cmp(c.MinStakeTier2) >= 0:
		return 2
	case stake.Cmp(c.MinStakeTier1) >= 0:
		return 1
	default:
		return 0
	}
}

// DepositForTier returns the locked-deposit requirement of an operational tier.
func (c *Config) DepositForTier(tier uint8) *big.Int {
	switch tier {
	case 3:
		return c.DepositTier3
	case 2:
		return c.DepositTier2
	default:
		return c.DepositTier1
	}
}

// TierRequirements carries the per-tier stake thresholds and deposit
// requirements of the update-tier-requirements admin operation.
type TierRequirements struct {
	MinStakeTier1 *big.Int
	MinStakeTier2 *big.Int
	MinStakeTier3 *big.Int
	DepositTier1  *big.Int
	DepositTier2  *big.Int
	DepositTier3  *big.Int
}
