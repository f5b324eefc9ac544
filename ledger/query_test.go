// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintPtr(v uint64) *uint64 { return &v }
func intPtr(v int) *int        { return &v }

// populatedLedger stores 25 proofs: even IDs by gateway g1, odd by g2,
// all claimed by worker w1 except every fifth, claimed by w2.
func populatedLedger(t *testing.T) *testEnv {
	te := registeredLedger(t)
	for i := 0; i < 25; i++ {
		worker := "did:mesh:worker:w1"
		if i%5 == 0 {
			worker = "did:mesh:worker:w2"
		}
		gateway := gatewayDID1
		if i%2 == 1 {
			gateway = gatewayDID2
		}
		sub := testSubmission(i)
		sub.WorkerDID = worker
		sub.Batches = []BatchInfo{testBatch(gateway, i)}
		_, err := te.ledger.StoreProof(callEnv(nodeAddr, uint64(100+i)), sub)
		require.NoError(t, err)
	}
	return te
}

func proofIDs(proofs []*Proof) []uint64 {
	ids := make([]uint64, 0, len(proofs))
	for _, p := range proofs {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestProofByID(t *testing.T) {
	te := populatedLedger(t)
	l := te.ledger

	proof, err := l.ProofByID(3)
	require.NoError(t, err)
	assert.Equal(t, testHash(3), proof.DataHash)
	assert.Equal(t, uint64(103), proof.StoredAt)

	_, err = l.ProofByID(99)
	var notFound *ProofNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestProofByHash(t *testing.T) {
	te := populatedLedger(t)
	l := te.ledger

	proof, err := l.ProofByHash(testHash(7))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), proof.ID)

	_, err = l.ProofByHash(testHash(99))
	var notFound *ProofNotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = l.ProofByHash("short")
	var invalid *InvalidDataHashError
	assert.ErrorAs(t, err, &invalid)
}

func TestProofsPagination(t *testing.T) {
	te := populatedLedger(t)
	l := te.ledger

	// Default page size.
	page, err := l.Proofs(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, proofIDs(page))

	// The cursor is exclusive.
	page, err = l.Proofs(uintPtr(9), intPtr(5))
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 11, 12, 13, 14}, proofIDs(page))

	// Requests beyond the cap are clamped.
	page, err = l.Proofs(nil, intPtr(100))
	require.NoError(t, err)
	assert.Len(t, page, 25)

	// Past the end.
	page, err = l.Proofs(uintPtr(24), nil)
	require.NoError(t, err)
	assert.Empty(t, page)

	page, err = l.Proofs(uintPtr(math.MaxUint64), nil)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestProofsByWorker(t *testing.T) {
	te := populatedLedger(t)
	l := te.ledger

	page, err := l.ProofsByWorker("did:mesh:worker:w2", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 5, 10, 15, 20}, proofIDs(page))

	page, err = l.ProofsByWorker("did:mesh:worker:w2", uintPtr(5), intPtr(2))
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 15}, proofIDs(page))

	page, err = l.ProofsByWorker("did:mesh:worker:unknown", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestProofsByGateway(t *testing.T) {
	te := populatedLedger(t)
	l := te.ledger

	page, err := l.ProofsByGateway(gatewayDID2, nil, intPtr(4))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3, 5, 7}, proofIDs(page))

	// A cursor pointing between hits resumes at the next one.
	page, err = l.ProofsByGateway(gatewayDID2, uintPtr(8), intPtr(3))
	require.NoError(t, err)
	assert.Equal(t, []uint64{9, 11, 13}, proofIDs(page))

	page, err = l.ProofsByGateway(gatewayDID2, uintPtr(math.MaxUint64), nil)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestGatewayIndexDeduplicates(t *testing.T) {
	te := registeredLedger(t)
	l := te.ledger

	sub := testSubmission(1)
	sub.Batches = []BatchInfo{
		testBatch(gatewayDID1, 1),
		testBatch(gatewayDID1, 2),
	}
	_, err := l.StoreProof(callEnv(nodeAddr, 10), sub)
	require.NoError(t, err)

	// Two batches from the same gateway list the proof once.
	page, err := l.ProofsByGateway(gatewayDID1, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, proofIDs(page))
}

func TestNodeReputationQuery(t *testing.T) {
	te := newTestLedger(t, testGenesis())
	l := te.ledger

	// Unknown addresses read as zero.
	rep, err := l.NodeReputation(nodeAddr)
	require.NoError(t, err)
	assert.Equal(t, int32(0), rep)

	require.NoError(t, l.WhitelistNode(callEnv(admin, 1), nodeAddr))
	require.NoError(t, l.UpdateNodeReputation(callEnv(admin, 2), nodeAddr, 42))
	rep, err = l.NodeReputation(nodeAddr)
	require.NoError(t, err)
	assert.Equal(t, int32(42), rep)
}

func TestNodeInfoQuery(t *testing.T) {
	te := newTestLedger(t, testGenesis())
	l := te.ledger
	te.stake.amounts[nodeAddr] = big.NewInt(7000)

	// Unknown address: no record, zero stake fallback for others.
	info, err := l.NodeInfo(otherAddr)
	require.NoError(t, err)
	assert.False(t, info.IsWhitelisted)
	assert.Nil(t, info.Node)
	assert.Nil(t, info.Unlocking)
	assert.Zero(t, info.StakedAmount.Sign())

	require.NoError(t, l.WhitelistNode(callEnv(admin, 1), nodeAddr))
	_, err = l.RegisterNode(callEnv(nodeAddr, 2, umesh(500)))
	require.NoError(t, err)

	info, err = l.NodeInfo(nodeAddr)
	require.NoError(t, err)
	assert.True(t, info.IsWhitelisted)
	require.NotNil(t, info.Node)
	assert.Equal(t, uint8(2), info.Node.Tier)
	assert.Equal(t, big.NewInt(7000), info.StakedAmount)
	assert.Nil(t, info.Unlocking)
}
