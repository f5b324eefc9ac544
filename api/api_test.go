// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackmesh/trackmesh/ledger"
	"github.com/trackmesh/trackmesh/lvldb"
	"github.com/trackmesh/trackmesh/oracle"
	"github.com/trackmesh/trackmesh/trackmesh"
)

var (
	adminAddr = trackmesh.BytesToAddress([]byte("admin"))
	nodeAddr  = trackmesh.BytesToAddress([]byte("node1"))
)

type testServer struct {
	url    string
	height *oracle.ManualHeight
	bank   *oracle.MemBank
}

func newTestServer(t *testing.T) *testServer {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	genesis := &ledger.Config{
		Admin:         adminAddr,
		MinStakeTier1: big.NewInt(1000),
		MinStakeTier2: big.NewInt(5000),
		MinStakeTier3: big.NewInt(10000),
		DepositTier1:  big.NewInt(100),
		DepositTier2:  big.NewInt(500),
		DepositTier3:  big.NewInt(1000),
		UseWhitelist:  true,
		UnlockPeriod:  100,
		MaxBatchCount: 10,
		DepositDenom:  "umesh",
	}
	height := new(oracle.ManualHeight)
	bank := new(oracle.MemBank)
	l, err := ledger.New(db, genesis, oracle.NewSoloStake(big.NewInt(7000)), oracle.SoloIdentity{}, bank)
	require.NoError(t, err)

	srv := httptest.NewServer(New(l, height, Options{AllowedOrigins: "*", EnableReqLogger: true}))
	t.Cleanup(srv.Close)
	return &testServer{url: srv.URL, height: height, bank: bank}
}

func (ts *testServer) post(t *testing.T, path string, body interface{}) (int, []byte) {
	data, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := http.Post(ts.url+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer res.Body.Close()
	payload, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, payload
}

func (ts *testServer) get(t *testing.T, path string) (int, []byte) {
	res, err := http.Get(ts.url + path)
	require.NoError(t, err)
	defer res.Body.Close()
	payload, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, payload
}

func whitelistAndRegister(t *testing.T, ts *testServer) {
	status, _ := ts.post(t, "/admin/whitelist", map[string]interface{}{
		"caller":  adminAddr,
		"address": nodeAddr,
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.post(t, "/nodes", map[string]interface{}{
		"caller": nodeAddr,
		"funds":  []map[string]string{{"denom": "umesh", "amount": "500"}},
	})
	require.Equal(t, http.StatusOK, status)
}

func TestNodeLifecycleEndpoints(t *testing.T) {
	ts := newTestServer(t)

	// Registration before whitelisting is forbidden.
	status, body := ts.post(t, "/nodes", map[string]interface{}{
		"caller": nodeAddr,
		"funds":  []map[string]string{{"denom": "umesh", "amount": "500"}},
	})
	assert.Equal(t, http.StatusForbidden, status, string(body))

	whitelistAndRegister(t, ts)

	status, body = ts.get(t, "/nodes/"+nodeAddr.String())
	require.Equal(t, http.StatusOK, status)
	var info struct {
		IsWhitelisted bool `json:"isWhitelisted"`
		Node          struct {
			Tier uint8 `json:"tier"`
		} `json:"node"`
	}
	require.NoError(t, json.Unmarshal(body, &info))
	assert.True(t, info.IsWhitelisted)
	assert.Equal(t, uint8(2), info.Node.Tier)

	// Top up, unlock, wait out the unbonding period and claim.
	status, _ = ts.post(t, "/nodes/deposits", map[string]interface{}{
		"caller": nodeAddr,
		"funds":  []map[string]string{{"denom": "umesh", "amount": "100"}},
	})
	require.Equal(t, http.StatusOK, status)

	status, body = ts.post(t, "/nodes/deposits/unlock", map[string]interface{}{"caller": nodeAddr})
	require.Equal(t, http.StatusOK, status)
	var unlocking struct {
		ReleaseAt uint64 `json:"releaseAt"`
	}
	require.NoError(t, json.Unmarshal(body, &unlocking))
	assert.Equal(t, uint64(100), unlocking.ReleaseAt)

	status, _ = ts.post(t, "/nodes/deposits/claim", map[string]interface{}{"caller": nodeAddr})
	assert.Equal(t, http.StatusBadRequest, status)

	ts.height.Set(100)
	status, body = ts.post(t, "/nodes/deposits/claim", map[string]interface{}{"caller": nodeAddr})
	require.Equal(t, http.StatusOK, status, string(body))

	transfers := ts.bank.Transfers()
	require.Len(t, transfers, 1)
	assert.Equal(t, big.NewInt(600), transfers[0].Amount)
}

func TestProofEndpoints(t *testing.T) {
	ts := newTestServer(t)
	whitelistAndRegister(t, ts)

	hash := fmt.Sprintf("%064x", 1)
	submission := map[string]interface{}{
		"caller":    nodeAddr,
		"workerDid": "did:mesh:worker:w1",
		"dataHash":  hash,
		"twStart":   100,
		"twEnd":     200,
		"batches": []map[string]interface{}{
			{
				"batchId":         "b-1",
				"gatewayDid":      "did:mesh:gateway:g1",
				"deviceCount":     3,
				"snapshotCount":   12,
				"batchMerkleRoot": fmt.Sprintf("%064x", 2),
			},
		},
	}

	status, body := ts.post(t, "/proofs", submission)
	require.Equal(t, http.StatusOK, status, string(body))
	var stored struct {
		Proof struct {
			ID uint64 `json:"id"`
		} `json:"proof"`
		GatewayDIDs []string `json:"gatewayDids"`
	}
	require.NoError(t, json.Unmarshal(body, &stored))
	assert.Equal(t, uint64(0), stored.Proof.ID)
	assert.Equal(t, []string{"did:mesh:gateway:g1"}, stored.GatewayDIDs)

	// Duplicate hash conflicts.
	status, _ = ts.post(t, "/proofs", submission)
	assert.Equal(t, http.StatusConflict, status)

	status, body = ts.get(t, "/proofs/0")
	require.Equal(t, http.StatusOK, status)
	var proof struct {
		DataHash string `json:"dataHash"`
	}
	require.NoError(t, json.Unmarshal(body, &proof))
	assert.Equal(t, hash, proof.DataHash)

	status, _ = ts.get(t, "/proofs/hash/"+hash)
	assert.Equal(t, http.StatusOK, status)

	status, body = ts.post(t, "/proofs/verify", map[string]interface{}{
		"caller":   nodeAddr,
		"dataHash": hash,
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var verified struct {
		ID uint64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &verified))
	assert.Equal(t, uint64(0), verified.ID)

	status, _ = ts.post(t, "/proofs/verify", map[string]interface{}{
		"caller":   nodeAddr,
		"dataHash": fmt.Sprintf("%064x", 9),
	})
	assert.Equal(t, http.StatusNotFound, status)

	// Callers outside the whitelist cannot verify.
	status, _ = ts.post(t, "/proofs/verify", map[string]interface{}{
		"caller":   adminAddr,
		"dataHash": hash,
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = ts.get(t, "/proofs?worker=did:mesh:worker:w1")
	require.Equal(t, http.StatusOK, status)
	var list []json.RawMessage
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)

	status, _ = ts.get(t, "/proofs?worker=a&gateway=b")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProofValidationStatuses(t *testing.T) {
	ts := newTestServer(t)
	whitelistAndRegister(t, ts)

	// Malformed hash.
	status, _ := ts.post(t, "/proofs", map[string]interface{}{
		"caller":    nodeAddr,
		"workerDid": "did:mesh:worker:w1",
		"dataHash":  "short",
		"batches": []map[string]interface{}{
			{"batchId": "b", "gatewayDid": "did:mesh:gateway:g1"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, status)

	// Unknown fields are rejected by the strict parser.
	status, _ = ts.post(t, "/proofs", map[string]interface{}{
		"caller":  nodeAddr,
		"unknown": true,
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdminEndpoints(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.get(t, "/admin/config")
	require.Equal(t, http.StatusOK, status)
	var cfg struct {
		Admin        string `json:"admin"`
		DepositDenom string `json:"depositDenom"`
	}
	require.NoError(t, json.Unmarshal(body, &cfg))
	assert.Equal(t, adminAddr.String(), cfg.Admin)
	assert.Equal(t, "umesh", cfg.DepositDenom)

	// Non-admin callers are rejected.
	status, _ = ts.post(t, "/admin/min-reputation", map[string]interface{}{
		"caller":    nodeAddr,
		"threshold": 5,
	})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = ts.post(t, "/admin/min-reputation", map[string]interface{}{
		"caller":    adminAddr,
		"threshold": 5,
	})
	assert.Equal(t, http.StatusOK, status)

	status, _ = ts.post(t, "/admin/tier-requirements", map[string]interface{}{
		"caller":        adminAddr,
		"minStakeTier1": "2000",
		"minStakeTier2": "6000",
		"minStakeTier3": "12000",
		"depositTier1":  "200",
		"depositTier2":  "600",
		"depositTier3":  "1200",
	})
	assert.Equal(t, http.StatusOK, status)

	status, _ = ts.post(t, "/admin/reputation", map[string]interface{}{
		"caller":     adminAddr,
		"address":    nodeAddr,
		"reputation": 42,
	})
	// nodeAddr is not whitelisted yet.
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = ts.post(t, "/admin/whitelist", map[string]interface{}{
		"caller":  adminAddr,
		"address": nodeAddr,
	})
	require.Equal(t, http.StatusOK, status)

	status, body = ts.get(t, "/nodes/"+nodeAddr.String()+"/whitelisted")
	require.Equal(t, http.StatusOK, status)
	var listed struct {
		Whitelisted bool `json:"whitelisted"`
	}
	require.NoError(t, json.Unmarshal(body, &listed))
	assert.True(t, listed.Whitelisted)

	status, _ = ts.post(t, "/admin/whitelist/remove", map[string]interface{}{
		"caller":  adminAddr,
		"address": nodeAddr,
	})
	assert.Equal(t, http.StatusOK, status)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)
	status, body := ts.get(t, "/health")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"healthy":true}`, string(body))
}
