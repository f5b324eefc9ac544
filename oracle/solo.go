// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package oracle

import (
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/trackmesh/trackmesh/log"
	"github.com/trackmesh/trackmesh/trackmesh"
)

var logger = log.WithContext("pkg", "oracle")

// defaultSoloStake is the stake reported for every address in solo mode.
const defaultSoloStake = 1000

// SoloStake is a stake oracle that reports the same amount for every
// address. Used in solo mode to make any caller registrable.
type SoloStake struct {
	Amount *big.Int
}

func NewSoloStake(amount *big.Int) *SoloStake {
	if amount == nil {
		amount = big.NewInt(defaultSoloStake)
	}
	return &SoloStake{Amount: amount}
}

func (s *SoloStake) StakedAmount(trackmesh.Address) (*big.Int, error) {
	return new(big.Int).Set(s.Amount), nil
}

// SoloIdentity is an identity registry that accepts every claimed identity.
// Pattern validation still happens in the ledger.
type SoloIdentity struct{}

func (SoloIdentity) VerifyDID(did, category string) error {
	return nil
}

// ManualHeight is a height source advanced by hand, for solo mode and tests.
type ManualHeight struct {
	height atomic.Uint64
}

func (h *ManualHeight) BlockHeight() (uint64, error) {
	return h.height.Load(), nil
}

// Advance moves the height forward by n blocks and returns the new height.
func (h *ManualHeight) Advance(n uint64) uint64 {
	return h.height.Add(n)
}

func (h *ManualHeight) Set(height uint64) {
	h.height.Store(height)
}

// Transfer is a single outbound payment recorded by MemBank.
type Transfer struct {
	To     trackmesh.Address
	Amount *big.Int
	Denom  string
}

// MemBank records outbound transfers instead of executing them.
type MemBank struct {
	mu        sync.Mutex
	transfers []Transfer
}

func (b *MemBank) Send(to trackmesh.Address, amount *big.Int, denom string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transfers = append(b.transfers, Transfer{
		To:     to,
		Amount: new(big.Int).Set(amount),
		Denom:  denom,
	})
	logger.Debug("solo transfer recorded", "to", to, "amount", amount, "denom", denom)
	return nil
}

// Transfers returns a snapshot of all recorded transfers.
func (b *MemBank) Transfers() []Transfer {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Transfer, len(b.transfers))
	copy(out, b.transfers)
	return out
}
