// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"
	"sync"

	"github.com/pkg/errors"

	"github.com/trackmesh/trackmesh/kv"
	"github.com/trackmesh/trackmesh/log"
	"github.com/trackmesh/trackmesh/metrics"
	"github.com/trackmesh/trackmesh/trackmesh"
)

var logger = log.WithContext("pkg", "ledger")

var (
	metricNodesRegistered = metrics.LazyLoadCounter("nodes_registered_count")
	metricDepositsAdded   = metrics.LazyLoadCounter("deposits_added_count")
	metricDepositsClaimed = metrics.LazyLoadCounter("deposits_claimed_count")
	metricActiveNodes     = metrics.LazyLoadGauge("active_nodes_gauge")
)

// Ledger is the permissioned proof ledger engine. It owns the node registry,
// the deposit lifecycle and the proof records, persisting every mutation as a
// single atomic batch.
//
// All exported operations are safe for concurrent use.
type Ledger struct {
	db       kv.Store
	store    *store
	cfg      *Config
	stake    StakeOracle
	identity IdentityRegistry
	bank     BankTransfer

	mu sync.Mutex
}

// New opens a ledger over the given store. On an empty store the genesis
// config is validated and persisted; on a populated store the stored config
// wins and genesis is ignored.
func New(db kv.Store, genesis *Config, stake StakeOracle, identity IdentityRegistry, bank BankTransfer) (*Ledger, error) {
	s := newStore(db)
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		if genesis == nil {
			return nil, errors.New("ledger: no stored config and no genesis given")
		}
		if err := genesis.Validate(); err != nil {
			return nil, err
		}
		cfg = genesis.Copy()
		batch := db.NewBatch()
		if err := s.saveConfig(batch, cfg); err != nil {
			return nil, err
		}
		if err := batch.Write(); err != nil {
			return nil, errors.Wrap(err, "persist genesis config")
		}
		logger.Info("initialized ledger from genesis", "admin", cfg.Admin)
	} else {
		logger.Info("loaded ledger config", "admin", cfg.Admin, "proofCount", cfg.ProofCount)
	}

	return &Ledger{
		db:       db,
		store:    s,
		cfg:      cfg,
		stake:    stake,
		identity: identity,
		bank:     bank,
	}, nil
}

func (l *Ledger) requireAdmin(env *Env) error {
	if env.Caller != l.cfg.Admin {
		return ErrAdminOnly
	}
	return nil
}

// saveConfigLocked persists the in-memory config. Caller holds l.mu.
func (l *Ledger) saveConfigLocked() error {
	batch := l.db.NewBatch()
	if err := l.store.saveConfig(batch, l.cfg); err != nil {
		return err
	}
	return errors.Wrap(batch.Write(), "persist config")
}

//
// Admin operations
//

// UpdateAdmin hands the admin role to a new address.
func (l *Ledger) UpdateAdmin(env *Env, newAdmin trackmesh.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(env); err != nil {
		return err
	}
	if newAdmin.IsZero() {
		return errors.New("new admin address must be set")
	}
	old := l.cfg.Admin
	l.cfg.Admin = newAdmin
	if err := l.saveConfigLocked(); err != nil {
		l.cfg.Admin = old
		return err
	}
	logger.Info("admin updated", "old", old, "new", newAdmin)
	return nil
}

// ConfigureTreasury sets or clears the treasury address.
func (l *Ledger) ConfigureTreasury(env *Env, treasury *trackmesh.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(env); err != nil {
		return err
	}
	old := l.cfg.Treasury
	l.cfg.Treasury = treasury
	if err := l.saveConfigLocked(); err != nil {
		l.cfg.Treasury = old
		return err
	}
	logger.Info("treasury configured", "treasury", treasury)
	return nil
}

// UpdateMinReputationThreshold sets the reputation floor a registered node
// must clear to act.
func (l *Ledger) UpdateMinReputationThreshold(env *Env, threshold int32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(env); err != nil {
		return err
	}
	old := l.cfg.MinReputationThreshold
	l.cfg.MinReputationThreshold = threshold
	if err := l.saveConfigLocked(); err != nil {
		l.cfg.MinReputationThreshold = old
		return err
	}
	logger.Info("min reputation threshold updated", "threshold", threshold)
	return nil
}

// UpdateTierRequirements replaces the per-tier stake thresholds and deposit
// requirements. Existing nodes keep their tier; the new requirements apply to
// later registrations and to the deposit gate on proof submission.
func (l *Ledger) UpdateTierRequirements(env *Env, req *TierRequirements) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(env); err != nil {
		return err
	}
	old := l.cfg.Copy()
	l.cfg.MinStakeTier1 = req.MinStakeTier1
	l.cfg.MinStakeTier2 = req.MinStakeTier2
	l.cfg.MinStakeTier3 = req.MinStakeTier3
	l.cfg.DepositTier1 = req.DepositTier1
	l.cfg.DepositTier2 = req.DepositTier2
	l.cfg.DepositTier3 = req.DepositTier3
	if err := l.cfg.Validate(); err != nil {
		l.cfg = old
		return err
	}
	if err := l.saveConfigLocked(); err != nil {
		l.cfg = old
		return err
	}
	logger.Info("tier requirements updated")
	return nil
}

// WhitelistNode adds a tier 0 registry entry for the address. The node
// becomes operational only through RegisterNode.
func (l *Ledger) WhitelistNode(env *Env, addr trackmesh.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(env); err != nil {
		return err
	}
	exists, err := l.store.hasNode(addr)
	if err != nil {
		return err
	}
	if exists {
		return &AlreadyWhitelistedError{Address: addr}
	}

	node := &Node{
		Address:     addr,
		Reputation:  0,
		AddedAt:     env.BlockHeight,
		Deposit:     new(big.Int),
		Tier:        0,
		LastUpdated: env.BlockHeight,
	}
	batch := l.db.NewBatch()
	if err := l.store.saveNode(batch, node); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "whitelist node")
	}
	logger.Info("node whitelisted", "addr", addr)
	return nil
}

// RemoveNode deletes the registry entry. A locked deposit is returned to the
// node; the refund transfer is fire-and-forget.
func (l *Ledger) RemoveNode(env *Env, addr trackmesh.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(env); err != nil {
		return err
	}
	node, err := l.store.getNode(addr)
	if err != nil {
		return err
	}
	if node == nil {
		return &NotWhitelistedError{Address: addr}
	}

	batch := l.db.NewBatch()
	if err := l.store.deleteNode(batch, addr); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "remove node")
	}
	if node.Operational() {
		metricActiveNodes().Add(-1)
	}
	if node.Deposit.Sign() > 0 {
		if err := l.bank.Send(addr, node.Deposit, l.cfg.DepositDenom); err != nil {
			logger.Warn("deposit refund transfer failed", "addr", addr, "amount", node.Deposit, "err", err)
		}
	}
	logger.Info("node removed", "addr", addr, "refund", node.Deposit)
	return nil
}

// UpdateNodeReputation sets a node's reputation score.
func (l *Ledger) UpdateNodeReputation(env *Env, addr trackmesh.Address, reputation int32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.requireAdmin(env); err != nil {
		return err
	}
	node, err := l.store.getNode(addr)
	if err != nil {
		return err
	}
	if node == nil {
		return &NotWhitelistedError{Address: addr}
	}

	node.Reputation = reputation
	node.LastUpdated = env.BlockHeight
	batch := l.db.NewBatch()
	if err := l.store.saveNode(batch, node); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "update reputation")
	}
	logger.Info("node reputation updated", "addr", addr, "reputation", reputation)
	return nil
}

//
// Node lifecycle
//

// RegisterNode makes the caller operational. The tier is the highest whose
// stake threshold the caller's external stake meets; the attached funds must
// cover that tier's deposit requirement and are locked in full, excess
// included. Reputation and the proof counters start over on registration.
// Returns the resulting node record.
func (l *Ledger) RegisterNode(env *Env) (*Node, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	node, err := l.store.getNode(env.Caller)
	if err != nil {
		return nil, err
	}
	if l.cfg.UseWhitelist && node == nil {
		return nil, &NotWhitelistedError{Address: env.Caller}
	}
	if node != nil && node.Operational() {
		return nil, ErrAlreadyRegistered
	}

	staked, err := l.stake.StakedAmount(env.Caller)
	if err != nil {
		return nil, &StakeQueryError{Err: err}
	}
	tier := l.cfg.TierForStake(staked)
	if tier == 0 {
		return nil, &InsufficientStakeError{
			Required: l.cfg.MinStakeTier1,
			Provided: staked,
		}
	}

	if env.hasForeignDenom(l.cfg.DepositDenom) {
		return nil, ErrInvalidDenomination
	}
	sent := env.SentAmount(l.cfg.DepositDenom)
	required := l.cfg.DepositForTier(tier)
	if sent.Cmp(required) < 0 {
		return nil, &DepositBelowRequirementError{
			Required: required,
			Provided: sent,
			Tier:     tier,
		}
	}

	addedAt := env.BlockHeight
	if node != nil {
		addedAt = node.AddedAt
	}
	updated := &Node{
		Address:     env.Caller,
		AddedAt:     addedAt,
		Deposit:     sent,
		Tier:        tier,
		LastUpdated: env.BlockHeight,
	}
	batch := l.db.NewBatch()
	if err := l.store.saveNode(batch, updated); err != nil {
		return nil, err
	}
	if err := batch.Write(); err != nil {
		return nil, errors.Wrap(err, "register node")
	}

	metricNodesRegistered().Add(1)
	metricActiveNodes().Add(1)
	logger.Info("node registered", "addr", env.Caller, "tier", tier, "deposit", sent)
	return updated.Copy(), nil
}

// AddDeposit tops up the caller's locked deposit.
func (l *Ledger) AddDeposit(env *Env) (*Node, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	node, err := l.operationalNode(env.Caller)
	if err != nil {
		return nil, err
	}
	unlocking, err := l.store.hasUnlocking(env.Caller)
	if err != nil {
		return nil, err
	}
	if unlocking {
		return nil, ErrDepositAlreadyUnlocking
	}

	if env.hasForeignDenom(l.cfg.DepositDenom) {
		return nil, ErrInvalidDenomination
	}
	sent := env.SentAmount(l.cfg.DepositDenom)
	if sent.Sign() == 0 {
		return nil, ErrNoDepositProvided
	}

	node.Deposit = new(big.Int).Add(node.Deposit, sent)
	node.LastUpdated = env.BlockHeight
	batch := l.db.NewBatch()
	if err := l.store.saveNode(batch, node); err != nil {
		return nil, err
	}
	if err := batch.Write(); err != nil {
		return nil, errors.Wrap(err, "add deposit")
	}

	metricDepositsAdded().Add(1)
	logger.Info("deposit added", "addr", env.Caller, "added", sent, "total", node.Deposit)
	return node.Copy(), nil
}

// UnlockDeposit moves the caller's whole locked deposit into its unbonding
// period. The node keeps its tier, but further deposits are blocked until
// the unlocked amount is claimed.
func (l *Ledger) UnlockDeposit(env *Env) (*UnlockingDeposit, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	node, err := l.operationalNode(env.Caller)
	if err != nil {
		return nil, err
	}
	unlocking, err := l.store.hasUnlocking(env.Caller)
	if err != nil {
		return nil, err
	}
	if unlocking {
		return nil, ErrDepositAlreadyUnlocking
	}
	if node.Deposit.Sign() == 0 {
		return nil, ErrNoDepositToUnlock
	}

	u := &UnlockingDeposit{
		Owner:     env.Caller,
		Amount:    node.Deposit,
		ReleaseAt: env.BlockHeight + l.cfg.UnlockPeriod,
	}
	node.Deposit = new(big.Int)
	node.LastUpdated = env.BlockHeight

	batch := l.db.NewBatch()
	if err := l.store.saveUnlocking(batch, u); err != nil {
		return nil, err
	}
	if err := l.store.saveNode(batch, node); err != nil {
		return nil, err
	}
	if err := batch.Write(); err != nil {
		return nil, errors.Wrap(err, "unlock deposit")
	}

	logger.Info("deposit unlocking", "addr", env.Caller, "amount", u.Amount, "releaseAt", u.ReleaseAt)
	return u.Copy(), nil
}

// ClaimUnlockedDeposit pays out an unbonded deposit once its release height
// has been reached. The payout transfer is fire-and-forget: the claim record
// is gone even if the transfer fails.
func (l *Ledger) ClaimUnlockedDeposit(env *Env) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	u, err := l.store.getUnlocking(env.Caller)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNoUnlockedDeposit
	}
	if env.BlockHeight < u.ReleaseAt {
		return nil, &NotYetUnlockedError{ReleaseAt: u.ReleaseAt}
	}

	batch := l.db.NewBatch()
	if err := l.store.deleteUnlocking(batch, env.Caller); err != nil {
		return nil, err
	}
	if err := batch.Write(); err != nil {
		return nil, errors.Wrap(err, "claim deposit")
	}

	if err := l.bank.Send(env.Caller, u.Amount, l.cfg.DepositDenom); err != nil {
		logger.Warn("deposit payout transfer failed", "addr", env.Caller, "amount", u.Amount, "err", err)
	}
	metricDepositsClaimed().Add(1)
	logger.Info("deposit claimed", "addr", env.Caller, "amount", u.Amount)
	return new(big.Int).Set(u.Amount), nil
}

// operationalNode loads the caller's record and checks it may act: known,
// reputable enough, operational tier, in that order. Caller holds l.mu.
func (l *Ledger) operationalNode(addr trackmesh.Address) (*Node, error) {
	node, err := l.store.getNode(addr)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, &NotWhitelistedError{Address: addr}
	}
	if node.Reputation < l.cfg.MinReputationThreshold {
		return nil, &InsufficientReputationError{
			Current:  node.Reputation,
			Required: l.cfg.MinReputationThreshold,
		}
	}
	if !node.Operational() {
		return nil, &TierNotOperationalError{Tier: node.Tier}
	}
	return node, nil
}
