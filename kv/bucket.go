// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Bucket provides logical key space separation over a kv store.
type Bucket string

func (b Bucket) makeKey(key []byte) []byte {
	return append([]byte(b), key...)
}

// NewGetter creates a bucket getter from the source getter.
func (b Bucket) NewGetter(src Getter) Getter {
	return &bucketGetter{b, src}
}

// NewPutter creates a bucket putter from the source putter.
func (b Bucket) NewPutter(src Putter) Putter {
	return &bucketPutter{b, src}
}

// NewStore creates a bucket store from the source store.
func (b Bucket) NewStore(src Store) Store {
	return &bucketStore{b, src}
}

// PrefixRange returns the key range covering all keys prefixed with prefix.
func PrefixRange(prefix []byte) Range {
	r := util.BytesPrefix(prefix)
	return Range{From: r.Start, To: r.Limit}
}

type bucketGetter struct {
	b   Bucket
	src Getter
}

func (g *bucketGetter) Get(key []byte) ([]byte, error) { return g.src.Get(g.b.makeKey(key)) }
func (g *bucketGetter) Has(key []byte) (bool, error)   { return g.src.Has(g.b.makeKey(key)) }
func (g *bucketGetter) IsNotFound(err error) bool      { return g.src.IsNotFound(err) }

type bucketPutter struct {
	b   Bucket
	src Putter
}

func (p *bucketPutter) Put(key, val []byte) error { return p.src.Put(p.b.makeKey(key), val) }
func (p *bucketPutter) Delete(key []byte) error   { return p.src.Delete(p.b.makeKey(key)) }

type bucketStore struct {
	b   Bucket
	src Store
}

func (s *bucketStore) Get(key []byte) ([]byte, error) { return s.src.Get(s.b.makeKey(key)) }
func (s *bucketStore) Has(key []byte) (bool, error)   { return s.src.Has(s.b.makeKey(key)) }
func (s *bucketStore) IsNotFound(err error) bool      { return s.src.IsNotFound(err) }
func (s *bucketStore) Put(key, val []byte) error      { return s.src.Put(s.b.makeKey(key), val) }
func (s *bucketStore) Delete(key []byte) error        { return s.src.Delete(s.b.makeKey(key)) }

func (s *bucketStore) NewBatch() Batch {
	return &bucketBatch{s.b, s.src.NewBatch()}
}

func (s *bucketStore) NewIterator(r Range) Iterator {
	r.From = s.b.makeKey(r.From)
	if len(r.To) == 0 {
		r.To = util.BytesPrefix([]byte(s.b)).Limit
	} else {
		r.To = s.b.makeKey(r.To)
	}
	return &bucketIterator{s.b, s.src.NewIterator(r)}
}

type bucketBatch struct {
	b   Bucket
	src Batch
}

func (bb *bucketBatch) Put(key, val []byte) error { return bb.src.Put(bb.b.makeKey(key), val) }
func (bb *bucketBatch) Delete(key []byte) error   { return bb.src.Delete(bb.b.makeKey(key)) }
func (bb *bucketBatch) Len() int                  { return bb.src.Len() }
func (bb *bucketBatch) Write() error              { return bb.src.Write() }

type bucketIterator struct {
	b   Bucket
	src Iterator
}

func (i *bucketIterator) Next() bool { return i.src.Next() }

// Key returns the key with the bucket prefix stripped.
func (i *bucketIterator) Key() []byte   { return i.src.Key()[len(i.b):] }
func (i *bucketIterator) Value() []byte { return i.src.Value() }
func (i *bucketIterator) Release()      { i.src.Release() }
func (i *bucketIterator) Error() error  { return i.src.Error() }
