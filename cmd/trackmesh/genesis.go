// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"os"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/trackmesh/trackmesh/ledger"
	"github.com/trackmesh/trackmesh/trackmesh"
)

// genesisFile is the YAML shape of a genesis config. Amounts are decimal
// strings so large values survive the round trip.
type genesisFile struct {
	Admin                  string `yaml:"admin"`
	Treasury               string `yaml:"treasury"`
	MinReputationThreshold int32  `yaml:"minReputationThreshold"`
	MinStakeTier1          string `yaml:"minStakeTier1"`
	MinStakeTier2          string `yaml:"minStakeTier2"`
	MinStakeTier3          string `yaml:"minStakeTier3"`
	DepositTier1           string `yaml:"depositTier1"`
	DepositTier2           string `yaml:"depositTier2"`
	DepositTier3           string `yaml:"depositTier3"`
	UseWhitelist           bool   `yaml:"useWhitelist"`
	UnlockPeriod           uint64 `yaml:"unlockPeriod"`
	MaxBatchCount          uint32 `yaml:"maxBatchCount"`
	DepositDenom           string `yaml:"depositDenom"`
}

func parseAmount(field, raw string) (*big.Int, error) {
	if raw == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errors.Errorf("genesis: invalid amount for %s: %q", field, raw)
	}
	return v, nil
}

func (g *genesisFile) toConfig() (*ledger.Config, error) {
	admin, err := trackmesh.ParseAddress(g.Admin)
	if err != nil {
		return nil, errors.WithMessage(err, "genesis: admin")
	}
	cfg := &ledger.Config{
		Admin:                  *admin,
		MinReputationThreshold: g.MinReputationThreshold,
		UseWhitelist:           g.UseWhitelist,
		UnlockPeriod:           g.UnlockPeriod,
		MaxBatchCount:          g.MaxBatchCount,
		DepositDenom:           g.DepositDenom,
	}
	if g.Treasury != "" {
		treasury, err := trackmesh.ParseAddress(g.Treasury)
		if err != nil {
			return nil, errors.WithMessage(err, "genesis: treasury")
		}
		cfg.Treasury = treasury
	}
	fields := []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"minStakeTier1", g.MinStakeTier1, &cfg.MinStakeTier1},
		{"minStakeTier2", g.MinStakeTier2, &cfg.MinStakeTier2},
		{"minStakeTier3", g.MinStakeTier3, &cfg.MinStakeTier3},
		{"depositTier1", g.DepositTier1, &cfg.DepositTier1},
		{"depositTier2", g.DepositTier2, &cfg.DepositTier2},
		{"depositTier3", g.DepositTier3, &cfg.DepositTier3},
	}
	for _, f := range fields {
		v, err := parseAmount(f.name, f.raw)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return cfg, nil
}

// loadGenesis reads the genesis config named by -genesis. Returns nil when
// the flag is unset; the ledger then requires an already populated store.
func loadGenesis(ctx *cli.Context) (*ledger.Config, error) {
	path := ctx.String(genesisFlag.Name)
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithMessage(err, "read genesis file")
	}
	var g genesisFile
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, errors.WithMessage(err, "parse genesis file")
	}
	return g.toConfig()
}
