// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"fmt"
	"math/big"

	"github.com/trackmesh/trackmesh/kv"
	"github.com/trackmesh/trackmesh/trackmesh"
)

// Config returns a snapshot of the current configuration.
func (l *Ledger) Config() *Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg.Copy()
}

// ProofByID fetches a proof by its ledger-assigned ID.
func (l *Ledger) ProofByID(id uint64) (*Proof, error) {
	proof, err := l.store.getProof(id)
	if err != nil {
		return nil, err
	}
	if proof == nil {
		return nil, &ProofNotFoundError{Ref: fmt.Sprintf("id %d", id)}
	}
	return proof, nil
}

// ProofByHash fetches a proof by its content hash.
func (l *Ledger) ProofByHash(hash string) (*Proof, error) {
	if err := checkDataHash(hash); err != nil {
		return nil, err
	}
	id, found, err := l.store.proofIDByHash(hash)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &ProofNotFoundError{Ref: hash}
	}
	return l.ProofByID(id)
}

// normalizeLimit applies the default page size and the hard cap.
func normalizeLimit(limit *int) int {
	if limit == nil || *limit <= 0 {
		return trackmesh.DefaultPageLimit
	}
	if *limit > trackmesh.MaxPageLimit {
		return trackmesh.MaxPageLimit
	}
	return *limit
}

// Proofs pages through all proofs in ascending ID order. startAfter is an
// exclusive cursor; nil starts from the beginning.
func (l *Ledger) Proofs(startAfter *uint64, limit *int) ([]*Proof, error) {
	return l.store.rangeProofs(startAfter, normalizeLimit(limit))
}

// ProofsByWorker pages through the proofs claimed by a worker identity.
func (l *Ledger) ProofsByWorker(did string, startAfter *uint64, limit *int) ([]*Proof, error) {
	return l.proofsByIndex(bucketWorkerIndex, did, startAfter, limit)
}

// ProofsByGateway pages through the proofs aggregating a gateway's batches.
func (l *Ledger) ProofsByGateway(did string, startAfter *uint64, limit *int) ([]*Proof, error) {
	return l.proofsByIndex(bucketGatewayIndex, did, startAfter, limit)
}

func (l *Ledger) proofsByIndex(b kv.Bucket, did string, startAfter *uint64, limit *int) ([]*Proof, error) {
	ids, err := l.store.rangeIndex(b, did, startAfter, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	proofs := make([]*Proof, 0, len(ids))
	for _, id := range ids {
		proof, err := l.ProofByID(id)
		if err != nil {
			return nil, err
		}
		proofs = append(proofs, proof)
	}
	return proofs, nil
}

// IsWhitelisted reports whether the address has a registry entry of any tier.
func (l *Ledger) IsWhitelisted(addr trackmesh.Address) (bool, error) {
	return l.store.hasNode(addr)
}

// NodeReputation returns a node's reputation, or 0 for unknown addresses.
func (l *Ledger) NodeReputation(addr trackmesh.Address) (int32, error) {
	node, err := l.store.getNode(addr)
	if err != nil {
		return 0, err
	}
	if node == nil {
		return 0, nil
	}
	return node.Reputation, nil
}

// NodeInfo aggregates everything known about an address: the registry entry
// if any, the external stake and a pending unbonding deposit. It never fails
// on unknown addresses.
func (l *Ledger) NodeInfo(addr trackmesh.Address) (*NodeInfo, error) {
	node, err := l.store.getNode(addr)
	if err != nil {
		return nil, err
	}
	unlocking, err := l.store.getUnlocking(addr)
	if err != nil {
		return nil, err
	}
	staked, err := l.stake.StakedAmount(addr)
	if err != nil {
		return nil, &StakeQueryError{Err: err}
	}

	info := &NodeInfo{
		Address:      addr,
		StakedAmount: staked,
		Unlocking:    unlocking,
	}
	if node != nil {
		info.IsWhitelisted = true
		info.Reputation = node.Reputation
		info.Node = node
	}
	if info.StakedAmount == nil {
		info.StakedAmount = new(big.Int)
	}
	return info, nil
}
