// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package proofs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/trackmesh/trackmesh/api/restutil"
	"github.com/trackmesh/trackmesh/ledger"
	"github.com/trackmesh/trackmesh/oracle"
	"github.com/trackmesh/trackmesh/trackmesh"
)

type Proofs struct {
	ledger *ledger.Ledger
	height oracle.HeightSource
}

func New(l *ledger.Ledger, height oracle.HeightSource) *Proofs {
	return &Proofs{
		l,
		height,
	}
}

// StoreRequest is the body of a proof submission.
type StoreRequest struct {
	Caller       trackmesh.Address  `json:"caller"`
	WorkerDID    string             `json:"workerDid"`
	DataHash     string             `json:"dataHash"`
	TWStart      uint64             `json:"twStart"`
	TWEnd        uint64             `json:"twEnd"`
	Batches      []ledger.BatchInfo `json:"batches"`
	MetadataJSON string             `json:"metadataJson,omitempty"`
}

// StoreResult echoes the accepted proof and its aggregated gateways.
type StoreResult struct {
	Proof       *ledger.Proof `json:"proof"`
	GatewayDIDs []string      `json:"gatewayDids"`
}

// VerifyRequest is the body of a proof verification.
type VerifyRequest struct {
	Caller   trackmesh.Address `json:"caller"`
	DataHash string            `json:"dataHash"`
}

func (p *Proofs) callEnv(caller trackmesh.Address) (*ledger.Env, error) {
	height, err := p.height.BlockHeight()
	if err != nil {
		return nil, restutil.HTTPError(errors.WithMessage(err, "height"), http.StatusBadGateway)
	}
	return &ledger.Env{
		Caller:      caller,
		BlockHeight: height,
		Time:        uint64(time.Now().Unix()),
	}, nil
}

func (p *Proofs) handleStore(w http.ResponseWriter, req *http.Request) error {
	var body StoreRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	env, err := p.callEnv(body.Caller)
	if err != nil {
		return err
	}
	event, err := p.ledger.StoreProof(env, &ledger.ProofSubmission{
		WorkerDID:    body.WorkerDID,
		DataHash:     body.DataHash,
		TWStart:      body.TWStart,
		TWEnd:        body.TWEnd,
		Batches:      body.Batches,
		MetadataJSON: body.MetadataJSON,
	})
	if err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, &StoreResult{Proof: event.Proof, GatewayDIDs: event.GatewayDIDs})
}

func (p *Proofs) handleGetByID(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "id"))
	}
	proof, err := p.ledger.ProofByID(id)
	if err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, proof)
}

func (p *Proofs) handleGetByHash(w http.ResponseWriter, req *http.Request) error {
	proof, err := p.ledger.ProofByHash(mux.Vars(req)["hash"])
	if err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, proof)
}

func (p *Proofs) handleVerify(w http.ResponseWriter, req *http.Request) error {
	var body VerifyRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	env, err := p.callEnv(body.Caller)
	if err != nil {
		return err
	}
	id, err := p.ledger.VerifyProof(env, body.DataHash)
	if err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, restutil.M{"id": id})
}

func parseListQuery(req *http.Request) (*uint64, *int, error) {
	var (
		startAfter *uint64
		limit      *int
	)
	query := req.URL.Query()
	if raw := query.Get("startAfter"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, nil, restutil.BadRequest(errors.WithMessage(err, "startAfter"))
		}
		startAfter = &v
	}
	if raw := query.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, nil, restutil.BadRequest(errors.WithMessage(err, "limit"))
		}
		limit = &v
	}
	return startAfter, limit, nil
}

func (p *Proofs) handleList(w http.ResponseWriter, req *http.Request) error {
	startAfter, limit, err := parseListQuery(req)
	if err != nil {
		return err
	}

	var proofs []*ledger.Proof
	query := req.URL.Query()
	worker, gateway := query.Get("worker"), query.Get("gateway")
	switch {
	case worker != "" && gateway != "":
		return restutil.BadRequest(errors.New("worker and gateway filters are exclusive"))
	case worker != "":
		proofs, err = p.ledger.ProofsByWorker(worker, startAfter, limit)
	case gateway != "":
		proofs, err = p.ledger.ProofsByGateway(gateway, startAfter, limit)
	default:
		proofs, err = p.ledger.Proofs(startAfter, limit)
	}
	if err != nil {
		return restutil.LedgerError(err)
	}
	if proofs == nil {
		proofs = []*ledger.Proof{}
	}
	return restutil.WriteJSON(w, proofs)
}

func (p *Proofs) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(p.handleStore))
	sub.Path("").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(p.handleList))
	sub.Path("/{id:[0-9]+}").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(p.handleGetByID))
	sub.Path("/hash/{hash}").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(p.handleGetByHash))
	sub.Path("/verify").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(p.handleVerify))
}
