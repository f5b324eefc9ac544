// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"
	"strings"

	"github.com/trackmesh/trackmesh/trackmesh"
)

// DID categories accepted by the identity registry.
const (
	CategoryWorker  = "worker"
	CategoryGateway = "gateway"
)

// didPrefix is the fixed scheme:namespace prefix of claimed identities.
const didPrefix = "did:mesh:"

// ValidDID reports whether the claimed identity matches
// did:mesh:<category>:<local-id> with a non-empty local id.
func ValidDID(did, category string) bool {
	prefix := didPrefix + category + ":"
	return strings.HasPrefix(did, prefix) && len(did) > len(prefix)
}

// StakeOracle reports the externally staked amount of a participant, in the
// network's base unit.
type StakeOracle interface {
	StakedAmount(addr trackmesh.Address) (*big.Int, error)
}

// IdentityRegistry confirms that a claimed identity exists and is of the
// expected category. Implementations return *DIDNotFoundError for unknown
// identities.
type IdentityRegistry interface {
	VerifyDID(did, category string) error
}

// BankTransfer moves funds out of the ledger. Fire-and-forget from the
// ledger's perspective: a failed transfer does not roll state back.
type BankTransfer interface {
	Send(to trackmesh.Address, amount *big.Int, denom string) error
}

// verifyDID checks the identity pattern first, then consults the registry.
func (l *Ledger) verifyDID(did, category string) error {
	if !ValidDID(did, category) {
		return &InvalidDIDError{DID: did, Category: category}
	}
	return l.identity.VerifyDID(did, category)
}
