// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/trackmesh/trackmesh/trackmesh"
)

// Node is a participant record. The registry doubles as the admin-curated
// whitelist: tier 0 encodes "known but not yet operational".
type Node struct {
	Address        trackmesh.Address `json:"address"`
	Reputation     int32             `json:"reputation"`
	AddedAt        uint64            `json:"addedAt"`
	Deposit        *big.Int          `json:"deposit"`
	Tier           uint8             `json:"tier"`
	ProofCount     uint64            `json:"proofCount"`
	DisputedProofs uint64            `json:"disputedProofs"`
	LastUpdated    uint64            `json:"lastUpdated"`
}

// Copy returns a deep copy of the node.
func (n *Node) Copy() *Node {
	cpy := *n
	cpy.Deposit = new(big.Int).Set(n.Deposit)
	return &cpy
}

// Operational returns whether the node may act on the ledger. Tier 0 nodes
// are whitelisted but not yet registered.
func (n *Node) Operational() bool {
	return n.Tier >= 1 && n.Tier <= trackmesh.MaxNodeTier
}

// UnlockingDeposit is a deposit in its unbonding period. At most one exists
// per participant.
type UnlockingDeposit struct {
	Owner     trackmesh.Address `json:"owner"`
	Amount    *big.Int          `json:"amount"`
	ReleaseAt uint64            `json:"releaseAt"` // block height at which the amount becomes claimable
}

// Copy returns a deep copy of the unlocking deposit.
func (u *UnlockingDeposit) Copy() *UnlockingDeposit {
	cpy := *u
	cpy.Amount = new(big.Int).Set(u.Amount)
	return &cpy
}

// BatchInfo describes a single gateway batch aggregated into a proof.
type BatchInfo struct {
	BatchID         string `json:"batchId"`
	GatewayDID      string `json:"gatewayDid"`
	DeviceCount     uint32 `json:"deviceCount"`
	SnapshotCount   uint32 `json:"snapshotCount"`
	BatchMerkleRoot string `json:"batchMerkleRoot"`
}

// Proof is an accepted proof record. Immutable once stored.
type Proof struct {
	ID           uint64            `json:"id"`
	WorkerDID    string            `json:"workerDid"`
	DataHash     string            `json:"dataHash"`
	TWStart      uint64            `json:"twStart"`
	TWEnd        uint64            `json:"twEnd"`
	Batches      []BatchInfo       `json:"batches"`
	MetadataJSON string            `json:"metadataJson,omitempty"`
	StoredAt     uint64            `json:"storedAt"`
	StoredBy     trackmesh.Address `json:"storedBy"`
}

// ProofSubmission carries the fields of a store-proof request.
type ProofSubmission struct {
	WorkerDID    string
	DataHash     string
	TWStart      uint64
	TWEnd        uint64
	Batches      []BatchInfo
	MetadataJSON string
}

// ProofEvent is emitted when a proof is accepted. GatewayDIDs aggregates the
// gateway of every batch, in batch order, duplicates included.
type ProofEvent struct {
	Proof       *Proof
	GatewayDIDs []string
}

// Coin is an attached fund of some denomination.
type Coin struct {
	Denom  string   `json:"denom"`
	Amount *big.Int `json:"amount"`
}

// Env is the per-call execution environment. Block height and time are
// read-only inputs supplied by the caller, never advanced by the ledger.
type Env struct {
	Caller      trackmesh.Address
	BlockHeight uint64
	Time        uint64
	Funds       []Coin
}

// SentAmount sums the attached funds of the given denomination.
func (e *Env) SentAmount(denom string) *big.Int {
	total := new(big.Int)
	for _, c := range e.Funds {
		if c.Denom == denom && c.Amount != nil {
			total.Add(total, c.Amount)
		}
	}
	return total
}

// hasForeignDenom reports whether any attached coin is of another denomination.
func (e *Env) hasForeignDenom(denom string) bool {
	for _, c := range e.Funds {
		if c.Denom != denom {
			return true
		}
	}
	return false
}

// NodeInfo is the composite answer of the node-info query. Node is nil for
// unknown addresses; Unlocking is reported even when no Node record exists.
type NodeInfo struct {
	Address       trackmesh.Address
	IsWhitelisted bool
	Reputation    int32
	Node          *Node
	StakedAmount  *big.Int
	Unlocking     *UnlockingDeposit
}
