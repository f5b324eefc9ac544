// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trackmesh

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	require.NoError(t, err)
	assert.Equal(t, "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed", addr.String())

	// no prefix is accepted too
	addr2, err := ParseAddress("7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	require.NoError(t, err)
	assert.Equal(t, *addr, *addr2)

	_, err = ParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ff")
	assert.Error(t, err)

	_, err = ParseAddress("zz7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	assert.Error(t, err)

	_, err = ParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffzz")
	assert.Error(t, err)
}

func TestAddressJSON(t *testing.T) {
	addr := BytesToAddress([]byte("node1"))

	data, err := json.Marshal(addr)
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, addr, decoded)

	assert.True(t, Address{}.IsZero())
	assert.False(t, addr.IsZero())
}
