// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package admin exposes the admin-gated ledger operations. The gate itself
// lives in the ledger; this layer only shapes requests and responses.
package admin

import (
	"math/big"
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

type Admin struct {
	ledger *ledger.Ledger
	height oracle.HeightSource
}

func New(l *ledger.Ledger, height oracle.HeightSource) *Admin {
	return &Admin{
		l,
		height,
	}
}

// Config is the JSON form of the ledger configuration.
type Config struct {
	Admin                  trackmesh.Address     `json:"admin"`
	Treasury               *trackmesh.Address    `json:"treasury"`
	ProofCount             uint64                `json:"proofCount"`
	MinReputationThreshold int32                 `json:"minReputationThreshold"`
	MinStakeTier1          *math.HexOrDecimal256 `json:"minStakeTier1"`
	MinStakeTier2          *math.HexOrDecimal256 `json:"minStakeTier2"`
	MinStakeTier3          *math.HexOrDecimal256 `json:"minStakeTier3"`
	DepositTier1           *math.HexOrDecimal256 `json:"depositTier1"`
	DepositTier2           *math.HexOrDecimal256 `json:"depositTier2"`
	DepositTier3           *math.HexOrDecimal256 `json:"depositTier3"`
	UseWhitelist           bool                  `json:"useWhitelist"`
	UnlockPeriod           uint64                `json:"unlockPeriod"`
	MaxBatchCount          uint32                `json:"maxBatchCount"`
	DepositDenom           string                `json:"depositDenom"`
}

func convertConfig(cfg *ledger.Config) *Config {
	return &Config{
		Admin:                  cfg.Admin,
		Treasury:               cfg.Treasury,
		ProofCount:             cfg.ProofCount,
		MinReputationThreshold: cfg.MinReputationThreshold,
		MinStakeTier1:          (*math.HexOrDecimal256)(cfg.MinStakeTier1),
		MinStakeTier2:          (*math.HexOrDecimal256)(cfg.MinStakeTier2),
		MinStakeTier3:          (*math.HexOrDecimal256)(cfg.MinStakeTier3),
		DepositTier1:           (*math.HexOrDecimal256)(cfg.DepositTier1),
		DepositTier2:           (*math.HexOrDecimal256)(cfg.DepositTier2),
		DepositTier3:           (*math.HexOrDecimal256)(cfg.DepositTier3),
		UseWhitelist:           cfg.UseWhitelist,
		UnlockPeriod:           cfg.UnlockPeriod,
		MaxBatchCount:          cfg.MaxBatchCount,
		DepositDenom:           cfg.DepositDenom,
	}
}

func (a *Admin) callEnv(caller trackmesh.Address) (*ledger.Env, error) {
	height, err := a.height.BlockHeight()
	if err != nil {
		return nil, restutil.HTTPError(errors.WithMessage(err, "height"), http.StatusBadGateway)
	}
	return &ledger.Env{
		Caller:      caller,
		BlockHeight: height,
		Time:        uint64(time.Now().Unix()),
	}, nil
}

func (a *Admin) handleGetConfig(w http.ResponseWriter, _ *http.Request) error {
	return restutil.WriteJSON(w, convertConfig(a.ledger.Config()))
}

func (a *Admin) handleUpdateAdmin(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Caller   trackmesh.Address `json:"caller"`
		NewAdmin trackmesh.Address `json:"newAdmin"`
	}
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	env, err := a.callEnv(body.Caller)
	if err != nil {
		return err
	}
	if err := a.ledger.UpdateAdmin(env, body.NewAdmin); err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, restutil.M{"admin": body.NewAdmin})
}

func (a *Admin) handleConfigureTreasury(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Caller   trackmesh.Address  `json:"caller"`
		Treasury *trackmesh.Address `json:"treasury"`
	}
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	env, err := a.callEnv(body.Caller)
	if err != nil {
		return err
	}
	if err := a.ledger.ConfigureTreasury(env, body.Treasury); err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, restutil.M{"treasury": body.Treasury})
}

func (a *Admin) handleUpdateMinReputation(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Caller    trackmesh.Address `json:"caller"`
		Threshold int32             `json:"threshold"`
	}
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	env, err := a.callEnv(body.Caller)
	if err != nil {
		return err
	}
	if err := a.ledger.UpdateMinReputationThreshold(env, body.Threshold); err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, restutil.M{"threshold": body.Threshold})
}

func bigOrNil(v *math.HexOrDecimal256) *big.Int {
	if v == nil {
		return nil
	}
	return (*big.Int)(v)
}

func (a *Admin) handleUpdateTierRequirements(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Caller        trackmesh.Address     `json:"caller"`
		MinStakeTier1 *math.HexOrDecimal256 `json:"minStakeTier1"`
		MinStakeTier2 *math.HexOrDecimal256 `json:"minStakeTier2"`
		MinStakeTier3 *math.HexOrDecimal256 `json:"minStakeTier3"`
		DepositTier1  *math.HexOrDecimal256 `json:"depositTier1"`
		DepositTier2  *math.HexOrDecimal256 `json:"depositTier2"`
		DepositTier3  *math.HexOrDecimal256 `json:"depositTier3"`
	}
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	env, err := a.callEnv(body.Caller)
	if err != nil {
		return err
	}
	requirements := &ledger.TierRequirements{
		MinStakeTier1: bigOrNil(body.MinStakeTier1),
		MinStakeTier2: bigOrNil(body.MinStakeTier2),
		MinStakeTier3: bigOrNil(body.MinStakeTier3),
		DepositTier1:  bigOrNil(body.DepositTier1),
		DepositTier2:  bigOrNil(body.DepositTier2),
		DepositTier3:  bigOrNil(body.DepositTier3),
	}
	if err := a.ledger.UpdateTierRequirements(env, requirements); err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, convertConfig(a.ledger.Config()))
}

func (a *Admin) handleWhitelistNode(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Caller  trackmesh.Address `json:"caller"`
		Address trackmesh.Address `json:"address"`
	}
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	env, err := a.callEnv(body.Caller)
	if err != nil {
		return err
	}
	if err := a.ledger.WhitelistNode(env, body.Address); err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, restutil.M{"address": body.Address})
}

func (a *Admin) handleRemoveNode(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Caller  trackmesh.Address `json:"caller"`
		Address trackmesh.Address `json:"address"`
	}
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	env, err := a.callEnv(body.Caller)
	if err != nil {
		return err
	}
	if err := a.ledger.RemoveNode(env, body.Address); err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, restutil.M{"address": body.Address})
}

func (a *Admin) handleUpdateReputation(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Caller     trackmesh.Address `json:"caller"`
		Address    trackmesh.Address `json:"address"`
		Reputation int32             `json:"reputation"`
	}
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	env, err := a.callEnv(body.Caller)
	if err != nil {
		return err
	}
	if err := a.ledger.UpdateNodeReputation(env, body.Address, body.Reputation); err != nil {
		return restutil.LedgerError(err)
	}
	return restutil.WriteJSON(w, restutil.M{"address": body.Address, "reputation": body.Reputation})
}

func (a *Admin) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/config").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(a.handleGetConfig))
	sub.Path("/admin").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(a.handleUpdateAdmin))
	sub.Path("/treasury").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(a.handleConfigureTreasury))
	sub.Path("/min-reputation").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(a.handleUpdateMinReputation))
	sub.Path("/tier-requirements").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(a.handleUpdateTierRequirements))
	sub.Path("/whitelist").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(a.handleWhitelistNode))
	sub.Path("/whitelist/remove").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(a.handleRemoveNode))
	sub.Path("/reputation").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(a.handleUpdateReputation))
}
