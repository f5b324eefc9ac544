// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackmesh/trackmesh/kv"
	"github.com/trackmesh/trackmesh/lvldb"
)

func TestBucket(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	b1 := kv.Bucket("b1-").NewStore(db)
	b2 := kv.Bucket("b2-").NewStore(db)

	require.NoError(t, b1.Put([]byte("k"), []byte("v1")))
	require.NoError(t, b2.Put([]byte("k"), []byte("v2")))

	v, err := b1.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	v, err = b2.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)

	has, err := b1.Has([]byte("nope"))
	require.NoError(t, err)
	assert.False(t, has)

	_, err = b1.Get([]byte("nope"))
	assert.True(t, b1.IsNotFound(err))

	require.NoError(t, b1.Delete([]byte("k")))
	has, err = b1.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, has)

	// delete in b1 must not affect b2
	has, err = b2.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, has)
}

func TestBucketIterate(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	b := kv.Bucket("x").NewStore(db)
	other := kv.Bucket("y").NewStore(db)

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, b.Put([]byte(k), []byte("v-"+k)))
		require.NoError(t, other.Put([]byte(k), []byte("other")))
	}

	// full range iterates only the bucket's keys, prefix stripped
	var keys []string
	it := b.NewIterator(kv.Range{})
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	it.Release()
	require.NoError(t, it.Error())
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	// bounded range
	keys = keys[:0]
	it = b.NewIterator(kv.Range{From: []byte("b")})
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	it.Release()
	require.NoError(t, it.Error())
	assert.Equal(t, []string{"b", "c"}, keys)
}

func TestBucketBatch(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()

	b := kv.Bucket("z").NewStore(db)

	batch := b.NewBatch()
	require.NoError(t, batch.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, batch.Put([]byte("k2"), []byte("v2")))
	assert.Equal(t, 2, batch.Len())

	// not visible until written
	has, err := b.Has([]byte("k1"))
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, batch.Write())

	v, err := b.Get([]byte("k2"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)
}

func TestPrefixRange(t *testing.T) {
	r := kv.PrefixRange([]byte("p"))
	assert.Equal(t, []byte("p"), r.From)
	assert.Equal(t, []byte("q"), r.To)
}
