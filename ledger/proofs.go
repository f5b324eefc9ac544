// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"github.com/pkg/errors"

	"github.com/trackmesh/trackmesh/metrics"
	"github.com/trackmesh/trackmesh/trackmesh"
)

var (
	metricProofsStored   = metrics.LazyLoadCounter("proofs_stored_count")
	metricProofsRejected = metrics.LazyLoadCounterVec("proofs_rejected_count", []string{"reason"})
)

func checkDataHash(hash string) error {
	if len(hash) != trackmesh.DataHashLength {
		return &InvalidDataHashError{Hash: hash, Reason: "hash must be 64 characters"}
	}
	for i := 0; i < len(hash); i++ {
		c := hash[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return &InvalidDataHashError{Hash: hash, Reason: "hash must be hex encoded"}
		}
	}
	return nil
}

// StoreProof validates a submission against the caller's standing and the
// submission's own content, then appends it to the ledger. Checks run in a
// fixed order: caller eligibility first, then identities, batch bounds, hash
// format and finally hash uniqueness. The first failure wins and nothing is
// persisted.
func (l *Ledger) StoreProof(env *Env, sub *ProofSubmission) (*ProofEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	event, err := l.storeProof(env, sub)
	if err != nil {
		metricProofsRejected().AddWithLabel(1, map[string]string{"reason": rejectionReason(err)})
		return nil, err
	}
	metricProofsStored().Add(1)
	return event, nil
}

func (l *Ledger) storeProof(env *Env, sub *ProofSubmission) (*ProofEvent, error) {
	node, err := l.operationalNode(env.Caller)
	if err != nil {
		return nil, err
	}
	// Tier requirements may have been raised since registration.
	required := l.cfg.DepositForTier(node.Tier)
	if node.Deposit.Cmp(required) < 0 {
		return nil, &InsufficientDepositError{
			Current:  node.Deposit,
			Required: required,
			Tier:     node.Tier,
		}
	}

	if err := l.verifyDID(sub.WorkerDID, CategoryWorker); err != nil {
		return nil, err
	}
	if len(sub.Batches) == 0 {
		return nil, ErrEmptyBatches
	}
	if len(sub.Batches) > int(l.cfg.MaxBatchCount) {
		return nil, &TooManyBatchesError{Count: len(sub.Batches), Max: l.cfg.MaxBatchCount}
	}
	gatewayDIDs := make([]string, 0, len(sub.Batches))
	for _, b := range sub.Batches {
		if err := l.verifyDID(b.GatewayDID, CategoryGateway); err != nil {
			return nil, err
		}
		gatewayDIDs = append(gatewayDIDs, b.GatewayDID)
	}
	if err := checkDataHash(sub.DataHash); err != nil {
		return nil, err
	}
	if _, found, err := l.store.proofIDByHash(sub.DataHash); err != nil {
		return nil, err
	} else if found {
		return nil, &DuplicateProofError{DataHash: sub.DataHash}
	}

	proof := &Proof{
		ID:           l.cfg.ProofCount,
		WorkerDID:    sub.WorkerDID,
		DataHash:     sub.DataHash,
		TWStart:      sub.TWStart,
		TWEnd:        sub.TWEnd,
		Batches:      sub.Batches,
		MetadataJSON: sub.MetadataJSON,
		StoredAt:     env.BlockHeight,
		StoredBy:     env.Caller,
	}
	node.ProofCount++
	node.LastUpdated = env.BlockHeight

	batch := l.db.NewBatch()
	if err := l.store.saveProof(batch, proof); err != nil {
		return nil, err
	}
	if err := l.store.saveHashIndex(batch, proof.DataHash, proof.ID); err != nil {
		return nil, err
	}
	if err := l.store.saveWorkerIndex(batch, proof.WorkerDID, proof.ID); err != nil {
		return nil, err
	}
	for _, did := range gatewayDIDs {
		if err := l.store.saveGatewayIndex(batch, did, proof.ID); err != nil {
			return nil, err
		}
	}
	if err := l.store.saveNode(batch, node); err != nil {
		return nil, err
	}
	nextCount := l.cfg.ProofCount + 1
	cfg := l.cfg.Copy()
	cfg.ProofCount = nextCount
	if err := l.store.saveConfig(batch, cfg); err != nil {
		return nil, err
	}
	if err := batch.Write(); err != nil {
		return nil, errors.Wrap(err, "store proof")
	}
	l.cfg.ProofCount = nextCount

	logger.Info("proof stored",
		"id", proof.ID, "worker", proof.WorkerDID, "batches", len(proof.Batches), "by", env.Caller)
	return &ProofEvent{Proof: proof, GatewayDIDs: gatewayDIDs}, nil
}

// VerifyProof answers whether a content hash is ledgered, returning the
// matching proof ID. Only operational nodes may verify.
func (l *Ledger) VerifyProof(env *Env, hash string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.operationalNode(env.Caller); err != nil {
		return 0, err
	}
	if err := checkDataHash(hash); err != nil {
		return 0, err
	}
	id, found, err := l.store.proofIDByHash(hash)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, &ProofNotFoundError{Ref: hash}
	}
	return id, nil
}

func rejectionReason(err error) string {
	switch Categorize(err) {
	case CategoryAuthorization:
		return "authorization"
	case CategoryValidation:
		return "validation"
	case CategoryConflict:
		return "duplicate"
	case CategoryState:
		return "state"
	case CategoryExternal:
		return "external"
	default:
		return "internal"
	}
}
