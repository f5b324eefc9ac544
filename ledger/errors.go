// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/trackmesh/trackmesh/trackmesh"
)

// Sentinel errors of the deposit lifecycle and admin gate.
var (
	ErrAdminOnly               = errors.New("admin only operation")
	ErrAlreadyRegistered       = errors.New("node already registered")
	ErrDepositAlreadyUnlocking = errors.New("deposit already unlocking")
	ErrNoDepositToUnlock       = errors.New("no deposit to unlock")
	ErrNoUnlockedDeposit       = errors.New("no unlocked deposit to claim")
	ErrNoDepositProvided       = errors.New("no deposit amount provided or amount is zero")
	ErrInvalidDenomination     = errors.New("invalid deposit denomination")
	ErrEmptyBatches            = errors.New("batch metadata is empty")
)

// NotWhitelistedError is returned when an operation requires an existing
// node record and none is found.
type NotWhitelistedError struct {
	Address trackmesh.Address
}

func (e *NotWhitelistedError) Error() string {
	return fmt.Sprintf("node not whitelisted: %v", e.Address)
}

// AlreadyWhitelistedError is returned on whitelisting an already known node.
type AlreadyWhitelistedError struct {
	Address trackmesh.Address
}

func (e *AlreadyWhitelistedError) Error() string {
	return fmt.Sprintf("node already whitelisted: %v", e.Address)
}

// InsufficientReputationError is returned when a node's reputation is below
// the configured threshold.
type InsufficientReputationError struct {
	Current  int32
	Required int32
}

func (e *InsufficientReputationError) Error() string {
	return fmt.Sprintf("insufficient node reputation: %d (required: %d)", e.Current, e.Required)
}

// TierNotOperationalError is returned when a node's tier does not permit the
// requested action.
type TierNotOperationalError struct {
	Tier uint8
}

func (e *TierNotOperationalError) Error() string {
	return fmt.Sprintf("node tier %d is not operational", e.Tier)
}

// InsufficientStakeError is returned on registration when the external stake
// does not reach the tier 1 threshold.
type InsufficientStakeError struct {
	Required *big.Int
	Provided *big.Int
}

func (e *InsufficientStakeError) Error() string {
	return fmt.Sprintf("insufficient stake: required %v, provided %v", e.Required, e.Provided)
}

// DepositBelowRequirementError is returned on registration when the attached
// funds do not cover the deposit requirement of the stake-determined tier.
type DepositBelowRequirementError struct {
	Required *big.Int
	Provided *big.Int
	Tier     uint8
}

func (e *DepositBelowRequirementError) Error() string {
	return fmt.Sprintf("deposit does not match tier requirement: required %v, provided %v, for tier %d",
		e.Required, e.Provided, e.Tier)
}

// InsufficientDepositError is returned on proof submission when the node's
// active deposit no longer covers its tier requirement.
type InsufficientDepositError struct {
	Current  *big.Int
	Required *big.Int
	Tier     uint8
}

func (e *InsufficientDepositError) Error() string {
	return fmt.Sprintf("node has insufficient deposit: current %v, required %v for tier %d",
		e.Current, e.Required, e.Tier)
}

// NotYetUnlockedError is returned on claiming before the release height.
type NotYetUnlockedError struct {
	ReleaseAt uint64
}

func (e *NotYetUnlockedError) Error() string {
	return fmt.Sprintf("deposit not yet unlocked, will be released at block %d", e.ReleaseAt)
}

// TooManyBatchesError is returned when a submission exceeds the batch bound.
type TooManyBatchesError struct {
	Count int
	Max   uint32
}

func (e *TooManyBatchesError) Error() string {
	return fmt.Sprintf("too many batches: %d (max: %d)", e.Count, e.Max)
}

// InvalidDataHashError is returned for malformed content hashes.
type InvalidDataHashError struct {
	Hash   string
	Reason string
}

func (e *InvalidDataHashError) Error() string {
	return fmt.Sprintf("invalid data hash: %s", e.Reason)
}

// InvalidDIDError is returned when a claimed identity does not match the
// expected pattern for its category.
type InvalidDIDError struct {
	DID      string
	Category string
}

func (e *InvalidDIDError) Error() string {
	return fmt.Sprintf("invalid did format: %s (expected category %q)", e.DID, e.Category)
}

// DIDNotFoundError is returned when the identity registry has no record of
// the claimed identity.
type DIDNotFoundError struct {
	DID string
}

func (e *DIDNotFoundError) Error() string {
	return fmt.Sprintf("did not found: %s", e.DID)
}

// DuplicateProofError is returned when the content hash is already ledgered.
type DuplicateProofError struct {
	DataHash string
}

func (e *DuplicateProofError) Error() string {
	return fmt.Sprintf("proof already exists: %s", e.DataHash)
}

// ProofNotFoundError is returned when no proof matches the given reference.
type ProofNotFoundError struct {
	Ref string
}

func (e *ProofNotFoundError) Error() string {
	return fmt.Sprintf("proof not found: %s", e.Ref)
}

// StakeQueryError wraps a stake oracle failure.
type StakeQueryError struct {
	Err error
}

func (e *StakeQueryError) Error() string {
	return fmt.Sprintf("staking query error: %v", e.Err)
}

func (e *StakeQueryError) Unwrap() error { return e.Err }

// ErrorCategory classifies ledger errors for transport layers.
type ErrorCategory int

const (
	CategoryInternal ErrorCategory = iota
	CategoryAuthorization
	CategoryValidation
	CategoryConflict
	CategoryState
	CategoryNotFound
	CategoryExternal
)

// Categorize maps a ledger error to its category. Unknown errors are internal.
func Categorize(err error) ErrorCategory {
	switch {
	case errors.Is(err, ErrAdminOnly):
		return CategoryAuthorization
	case errors.Is(err, ErrAlreadyRegistered),
		errors.Is(err, ErrDepositAlreadyUnlocking):
		return CategoryConflict
	case errors.Is(err, ErrNoDepositToUnlock),
		errors.Is(err, ErrNoUnlockedDeposit):
		return CategoryState
	case errors.Is(err, ErrNoDepositProvided),
		errors.Is(err, ErrInvalidDenomination),
		errors.Is(err, ErrEmptyBatches):
		return CategoryValidation
	}

	var (
		notWhitelisted   *NotWhitelistedError
		alreadyListed    *AlreadyWhitelistedError
		reputation       *InsufficientReputationError
		tier             *TierNotOperationalError
		stake            *InsufficientStakeError
		depositBelow     *DepositBelowRequirementError
		insufficientDep  *InsufficientDepositError
		notYetUnlocked   *NotYetUnlockedError
		tooManyBatches   *TooManyBatchesError
		invalidHash      *InvalidDataHashError
		invalidDID       *InvalidDIDError
		didNotFound      *DIDNotFoundError
		duplicateProof   *DuplicateProofError
		proofNotFound    *ProofNotFoundError
		stakeQueryFailed *StakeQueryError
	)
	switch {
	case errors.As(err, &notWhitelisted), errors.As(err, &reputation), errors.As(err, &tier):
		return CategoryAuthorization
	case errors.As(err, &tooManyBatches), errors.As(err, &invalidHash), errors.As(err, &invalidDID):
		return CategoryValidation
	case errors.As(err, &alreadyListed), errors.As(err, &duplicateProof):
		return CategoryConflict
	case errors.As(err, &stake), errors.As(err, &depositBelow),
		errors.As(err, &insufficientDep), errors.As(err, &notYetUnlocked):
		return CategoryState
	case errors.As(err, &proofNotFound):
		return CategoryNotFound
	case errors.As(err, &didNotFound), errors.As(err, &stakeQueryFailed):
		return CategoryExternal
	default:
		return CategoryInternal
	}
}
