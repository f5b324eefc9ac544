// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	workerDID   = "did:mesh:worker:w1"
	gatewayDID1 = "did:mesh:gateway:g1"
	gatewayDID2 = "did:mesh:gateway:g2"
)

func testHash(n int) string {
	return fmt.Sprintf("%064x", n)
}

func testBatch(gateway string, n int) BatchInfo {
	return BatchInfo{
		BatchID:         fmt.Sprintf("batch-%d", n),
		GatewayDID:      gateway,
		DeviceCount:     3,
		SnapshotCount:   12,
		BatchMerkleRoot: testHash(1000 + n),
	}
}

func testSubmission(n int) *ProofSubmission {
	return &ProofSubmission{
		WorkerDID: workerDID,
		DataHash:  testHash(n),
		TWStart:   100,
		TWEnd:     200,
		Batches:   []BatchInfo{testBatch(gatewayDID1, n)},
	}
}

// registeredLedger returns a ledger with nodeAddr registered at tier 1.
func registeredLedger(t *testing.T) *testEnv {
	te := newTestLedger(t, testGenesis())
	te.stake.amounts[nodeAddr] = big.NewInt(1000)
	require.NoError(t, te.ledger.WhitelistNode(callEnv(admin, 1), nodeAddr))
	_, err := te.ledger.RegisterNode(callEnv(nodeAddr, 2, umesh(100)))
	require.NoError(t, err)
	return te
}

func TestStoreProof(t *testing.T) {
	te := registeredLedger(t)
	l := te.ledger

	sub := testSubmission(1)
	sub.Batches = []BatchInfo{
		testBatch(gatewayDID1, 1),
		testBatch(gatewayDID2, 2),
		testBatch(gatewayDID1, 3),
	}
	event, err := l.StoreProof(callEnv(nodeAddr, 10), sub)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), event.Proof.ID)
	assert.Equal(t, uint64(10), event.Proof.StoredAt)
	assert.Equal(t, nodeAddr, event.Proof.StoredBy)
	// Gateway DIDs follow batch order, duplicates included.
	assert.Equal(t, []string{gatewayDID1, gatewayDID2, gatewayDID1}, event.GatewayDIDs)

	event, err = l.StoreProof(callEnv(nodeAddr, 11), testSubmission(2))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), event.Proof.ID)

	assert.Equal(t, uint64(2), l.Config().ProofCount)

	info, err := l.NodeInfo(nodeAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.Node.ProofCount)
}

func TestStoreProofRequiresOperationalNode(t *testing.T) {
	te := newTestLedger(t, testGenesis())
	l := te.ledger

	_, err := l.StoreProof(callEnv(nodeAddr, 10), testSubmission(1))
	var notWhitelisted *NotWhitelistedError
	require.ErrorAs(t, err, &notWhitelisted)

	require.NoError(t, l.WhitelistNode(callEnv(admin, 1), nodeAddr))
	_, err = l.StoreProof(callEnv(nodeAddr, 10), testSubmission(1))
	var notOperational *TierNotOperationalError
	require.ErrorAs(t, err, &notOperational)
	assert.Equal(t, uint8(0), notOperational.Tier)
}

func TestStoreProofReputationGate(t *testing.T) {
	te := registeredLedger(t)
	l := te.ledger

	require.NoError(t, l.UpdateMinReputationThreshold(callEnv(admin, 5), 50))
	_, err := l.StoreProof(callEnv(nodeAddr, 10), testSubmission(1))
	var reputation *InsufficientReputationError
	require.ErrorAs(t, err, &reputation)

	require.NoError(t, l.UpdateNodeReputation(callEnv(admin, 6), nodeAddr, 50))
	_, err = l.StoreProof(callEnv(nodeAddr, 10), testSubmission(1))
	require.NoError(t, err)
}

func TestStoreProofDepositGate(t *testing.T) {
	te := registeredLedger(t)
	l := te.ledger

	// Raising the tier 1 deposit requirement above the node's locked 100
	// blocks submissions until the node tops up.
	require.NoError(t, l.UpdateTierRequirements(callEnv(admin, 5), &TierRequirements{
		MinStakeTier1: big.NewInt(1000),
		MinStakeTier2: big.NewInt(5000),
		MinStakeTier3: big.NewInt(10000),
		DepositTier1:  big.NewInt(200),
		DepositTier2:  big.NewInt(500),
		DepositTier3:  big.NewInt(1000),
	}))

	_, err := l.StoreProof(callEnv(nodeAddr, 10), testSubmission(1))
	var insufficient *InsufficientDepositError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, big.NewInt(200), insufficient.Required)

	_, err = l.AddDeposit(callEnv(nodeAddr, 11, umesh(100)))
	require.NoError(t, err)
	_, err = l.StoreProof(callEnv(nodeAddr, 12), testSubmission(1))
	require.NoError(t, err)
}

func TestStoreProofBatchBounds(t *testing.T) {
	te := registeredLedger(t)
	l := te.ledger

	sub := testSubmission(1)
	sub.Batches = nil
	_, err := l.StoreProof(callEnv(nodeAddr, 10), sub)
	assert.ErrorIs(t, err, ErrEmptyBatches)

	// Exactly the configured maximum is accepted.
	sub = testSubmission(2)
	sub.Batches = nil
	for i := 0; i < 10; i++ {
		sub.Batches = append(sub.Batches, testBatch(gatewayDID1, i))
	}
	_, err = l.StoreProof(callEnv(nodeAddr, 10), sub)
	require.NoError(t, err)

	sub = testSubmission(3)
	sub.Batches = nil
	for i := 0; i < 11; i++ {
		sub.Batches = append(sub.Batches, testBatch(gatewayDID1, i))
	}
	_, err = l.StoreProof(callEnv(nodeAddr, 10), sub)
	var tooMany *TooManyBatchesError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, 11, tooMany.Count)
	assert.Equal(t, uint32(10), tooMany.Max)
}

func TestStoreProofHashValidation(t *testing.T) {
	te := registeredLedger(t)
	l := te.ledger

	var invalid *InvalidDataHashError

	sub := testSubmission(1)
	sub.DataHash = "abc123"
	_, err := l.StoreProof(callEnv(nodeAddr, 10), sub)
	require.ErrorAs(t, err, &invalid)

	sub = testSubmission(1)
	sub.DataHash = strings.Repeat("z", 64)
	_, err = l.StoreProof(callEnv(nodeAddr, 10), sub)
	require.ErrorAs(t, err, &invalid)

	// Uppercase hex is accepted.
	sub = testSubmission(1)
	sub.DataHash = strings.Repeat("AB12", 16)
	_, err = l.StoreProof(callEnv(nodeAddr, 10), sub)
	require.NoError(t, err)
}

func TestStoreProofDuplicateHash(t *testing.T) {
	te := registeredLedger(t)
	l := te.ledger

	_, err := l.StoreProof(callEnv(nodeAddr, 10), testSubmission(7))
	require.NoError(t, err)

	_, err = l.StoreProof(callEnv(nodeAddr, 11), testSubmission(7))
	var duplicate *DuplicateProofError
	require.ErrorAs(t, err, &duplicate)
	assert.Equal(t, testHash(7), duplicate.DataHash)

	// The rejected submission consumed no ID.
	event, err := l.StoreProof(callEnv(nodeAddr, 12), testSubmission(8))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), event.Proof.ID)
}

func TestStoreProofDIDValidation(t *testing.T) {
	te := registeredLedger(t)
	l := te.ledger

	var invalidDID *InvalidDIDError

	sub := testSubmission(1)
	sub.WorkerDID = "did:mesh:gateway:g1"
	_, err := l.StoreProof(callEnv(nodeAddr, 10), sub)
	require.ErrorAs(t, err, &invalidDID)

	sub = testSubmission(1)
	sub.WorkerDID = "did:mesh:worker:"
	_, err = l.StoreProof(callEnv(nodeAddr, 10), sub)
	require.ErrorAs(t, err, &invalidDID)

	sub = testSubmission(1)
	sub.Batches = []BatchInfo{testBatch("did:other:gateway:g1", 1)}
	_, err = l.StoreProof(callEnv(nodeAddr, 10), sub)
	require.ErrorAs(t, err, &invalidDID)
}

func TestStoreProofUnknownDID(t *testing.T) {
	db := newTestLedger(t, testGenesis())
	db.stake.amounts[nodeAddr] = big.NewInt(1000)

	// Rebuild the engine with a registry that knows no worker w1.
	identity := &fakeIdentity{missing: map[string]bool{workerDID: true}}
	l, err := New(db.ledger.db, nil, db.stake, identity, db.bank)
	require.NoError(t, err)

	require.NoError(t, l.WhitelistNode(callEnv(admin, 1), nodeAddr))
	_, err = l.RegisterNode(callEnv(nodeAddr, 2, umesh(100)))
	require.NoError(t, err)

	_, err = l.StoreProof(callEnv(nodeAddr, 10), testSubmission(1))
	var notFound *DIDNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, workerDID, notFound.DID)
}

func TestStoreProofTimeWindow(t *testing.T) {
	te := registeredLedger(t)

	// Inverted windows are recorded as given.
	sub := testSubmission(1)
	sub.TWStart = 500
	sub.TWEnd = 100
	event, err := te.ledger.StoreProof(callEnv(nodeAddr, 10), sub)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), event.Proof.TWStart)
	assert.Equal(t, uint64(100), event.Proof.TWEnd)
}

func TestVerifyProof(t *testing.T) {
	te := registeredLedger(t)
	l := te.ledger

	_, err := l.StoreProof(callEnv(nodeAddr, 10), testSubmission(5))
	require.NoError(t, err)

	id, err := l.VerifyProof(callEnv(nodeAddr, 11), testHash(5))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	_, err = l.VerifyProof(callEnv(nodeAddr, 11), testHash(6))
	var notFound *ProofNotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = l.VerifyProof(callEnv(nodeAddr, 11), "nothex")
	var invalid *InvalidDataHashError
	assert.ErrorAs(t, err, &invalid)

	// Unknown callers may not verify.
	_, err = l.VerifyProof(callEnv(otherAddr, 11), testHash(5))
	var notWhitelisted *NotWhitelistedError
	assert.ErrorAs(t, err, &notWhitelisted)
}
