// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package nodes

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/math"

	"github.com/trackmesh/trackmesh/ledger"
	"github.com/trackmesh/trackmesh/trackmesh"
)

// Coin is an attached fund in a mutating request.
type Coin struct {
	Denom  string                `json:"denom"`
	Amount *math.HexOrDecimal256 `json:"amount"`
}

func toLedgerFunds(coins []Coin) []ledger.Coin {
	funds := make([]ledger.Coin, 0, len(coins))
	for _, c := range coins {
		amount := new(big.Int)
		if c.Amount != nil {
			amount = (*big.Int)(c.Amount)
		}
		funds = append(funds, ledger.Coin{Denom: c.Denom, Amount: amount})
	}
	return funds
}

// Node is the JSON form of a registry entry.
type Node struct {
	Address        trackmesh.Address     `json:"address"`
	Reputation     int32                 `json:"reputation"`
	AddedAt        uint64                `json:"addedAt"`
	Deposit        *math.HexOrDecimal256 `json:"deposit"`
	Tier           uint8                 `json:"tier"`
	ProofCount     uint64                `json:"proofCount"`
	DisputedProofs uint64                `json:"disputedProofs"`
	LastUpdated    uint64                `json:"lastUpdated"`
}

func convertNode(n *ledger.Node) *Node {
	if n == nil {
		return nil
	}
	return &Node{
		Address:        n.Address,
		Reputation:     n.Reputation,
		AddedAt:        n.AddedAt,
		Deposit:        (*math.HexOrDecimal256)(n.Deposit),
		Tier:           n.Tier,
		ProofCount:     n.ProofCount,
		DisputedProofs: n.DisputedProofs,
		LastUpdated:    n.LastUpdated,
	}
}

// UnlockingDeposit is the JSON form of an unbonding deposit.
type UnlockingDeposit struct {
	Owner     trackmesh.Address     `json:"owner"`
	Amount    *math.HexOrDecimal256 `json:"amount"`
	ReleaseAt uint64                `json:"releaseAt"`
}

func convertUnlocking(u *ledger.UnlockingDeposit) *UnlockingDeposit {
	if u == nil {
		return nil
	}
	return &UnlockingDeposit{
		Owner:     u.Owner,
		Amount:    (*math.HexOrDecimal256)(u.Amount),
		ReleaseAt: u.ReleaseAt,
	}
}

// NodeInfo is the composite node-info response.
type NodeInfo struct {
	Address       trackmesh.Address     `json:"address"`
	IsWhitelisted bool                  `json:"isWhitelisted"`
	Reputation    int32                 `json:"reputation"`
	Node          *Node                 `json:"node"`
	StakedAmount  *math.HexOrDecimal256 `json:"stakedAmount"`
	Unlocking     *UnlockingDeposit     `json:"unlocking"`
}

func convertNodeInfo(info *ledger.NodeInfo) *NodeInfo {
	return &NodeInfo{
		Address:       info.Address,
		IsWhitelisted: info.IsWhitelisted,
		Reputation:    info.Reputation,
		Node:          convertNode(info.Node),
		StakedAmount:  (*math.HexOrDecimal256)(info.StakedAmount),
		Unlocking:     convertUnlocking(info.Unlocking),
	}
}

// RegisterRequest is the body of a node registration.
type RegisterRequest struct {
	Caller trackmesh.Address `json:"caller"`
	Funds  []Coin            `json:"funds"`
}

// DepositRequest is the body of a deposit top-up.
type DepositRequest struct {
	Caller trackmesh.Address `json:"caller"`
	Funds  []Coin            `json:"funds"`
}

// CallerRequest is the body of unlock and claim calls.
type CallerRequest struct {
	Caller trackmesh.Address `json:"caller"`
}
