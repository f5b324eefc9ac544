// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trackmesh

// Constants of the proof ledger.
const (
	// DataHashLength is the length in characters of a proof content hash (hex digest).
	DataHashLength = 64

	// MaxNodeTier is the highest operational node tier.
	MaxNodeTier = 3

	// DefaultPageLimit is the page size applied to paginated queries when none is given.
	DefaultPageLimit = 10

	// MaxPageLimit is the hard cap on the page size of paginated queries.
	MaxPageLimit = 30
)
