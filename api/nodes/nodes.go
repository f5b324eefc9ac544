// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package nodes

import (
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/trackmesh/trackmesh/api/restutil"
	"github.com/trackmesh/trackmesh/ledger"
	"github.com/trackmesh/trackmesh/oracle"
	"github.com/trackmesh/trackmesh/trackmesh"
)

type Nodes struct {
	ledger *ledger.Ledger
	height oracle.HeightSource
}

func New(l *ledger.Ledger, height oracle.HeightSource) *Nodes {
	return &Nodes{
		l,
		height,
	}
}

func (n *Nodes) callEnv(caller trackmesh.Address, funds []Coin) (*ledger.Env, error) {
	height, err := n.height.BlockHeight()
	if err != nil {
		return nil, restutil.HTTPError(errors.WithMessage(err, "height"), http.StatusBadGateway)
	}
	return &ledger.Env{
		Caller:      caller,
		BlockHeight: height,
		Time:        uint64(time.Now().Unix()),
		Funds:       toLedgerFunds(funds),
	}, nil
}

func (n *Nodes) handleRegister(w http.ResponseWriter, req *http.Request) error {
	var body RegisterRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	env, err := n.callEnv(body.Caller, body.Funds)
	if err != nil {
		return err
	}
	node, err := n.ledger.RegisterNode(env)
	if err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, convertNode(node))
}

func (n *Nodes) handleAddDeposit(w http.ResponseWriter, req *http.Request) error {
	var body DepositRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	env, err := n.callEnv(body.Caller, body.Funds)
	if err != nil {
		return err
	}
	node, err := n.ledger.AddDeposit(env)
	if err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, convertNode(node))
}

func (n *Nodes) handleUnlockDeposit(w http.ResponseWriter, req *http.Request) error {
	var body CallerRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	env, err := n.callEnv(body.Caller, nil)
	if err != nil {
		return err
	}
	unlocking, err := n.ledger.UnlockDeposit(env)
	if err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, convertUnlocking(unlocking))
}

func (n *Nodes) handleClaimDeposit(w http.ResponseWriter, req *http.Request) error {
	var body CallerRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	env, err := n.callEnv(body.Caller, nil)
	if err != nil {
		return err
	}
	amount, err := n.ledger.ClaimUnlockedDeposit(env)
	if err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, restutil.M{"amount": (*math.HexOrDecimal256)(amount)})
}

func (n *Nodes) parseAddress(req *http.Request) (trackmesh.Address, error) {
	addr, err := trackmesh.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return trackmesh.Address{}, restutil.BadRequest(errors.WithMessage(err, "address"))
	}
	return *addr, nil
}

func (n *Nodes) handleGetNodeInfo(w http.ResponseWriter, req *http.Request) error {
	addr, err := n.parseAddress(req)
	if err != nil {
		return err
	}
	info, err := n.ledger.NodeInfo(addr)
	if err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, convertNodeInfo(info))
}

func (n *Nodes) handleGetReputation(w http.ResponseWriter, req *http.Request) error {
	addr, err := n.parseAddress(req)
	if err != nil {
		return err
	}
	reputation, err := n.ledger.NodeReputation(addr)
	if err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, restutil.M{"reputation": reputation})
}

func (n *Nodes) handleGetWhitelisted(w http.ResponseWriter, req *http.Request) error {
	addr, err := n.parseAddress(req)
	if err != nil {
		return err
	}
	listed, err := n.ledger.IsWhitelisted(addr)
	if err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, restutil.M{"whitelisted": listed})
}

func (n *Nodes) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(n.handleRegister))
	sub.Path("/deposits").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(n.handleAddDeposit))
	sub.Path("/deposits/unlock").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(n.handleUnlockDeposit))
	sub.Path("/deposits/claim").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(n.handleClaimDeposit))
	sub.Path("/{address}").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(n.handleGetNodeInfo))
	sub.Path("/{address}/reputation").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(n.handleGetReputation))
	sub.Path("/{address}/whitelisted").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(n.handleGetWhitelisted))
}
