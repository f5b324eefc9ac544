// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"encoding/binary"
	"encoding/json"
	"math"

	"github.com/pkg/errors"

	"github.com/trackmesh/trackmesh/kv"
	"github.com/trackmesh/trackmesh/trackmesh"
)

// Logical buckets of the ledger's kv layout.
var (
	bucketConfig       = kv.Bucket("c")
	bucketNodes        = kv.Bucket("n")
	bucketUnlocking    = kv.Bucket("u")
	bucketProofs       = kv.Bucket("p")
	bucketProofByHash  = kv.Bucket("h")
	bucketWorkerIndex  = kv.Bucket("w")
	bucketGatewayIndex = kv.Bucket("g")
)

var configKey = []byte("config")

// store adapts the four logical keyed stores (config, nodes, unlocking
// deposits, proofs plus indexes) onto a single kv store. Mutations go
// through bucket putters over one batch so a call commits atomically.
type store struct {
	db kv.Store
}

func newStore(db kv.Store) *store {
	return &store{db}
}

func proofKey(id uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], id)
	return b[:]
}

// indexKey builds a (did, proof-id) membership key. DIDs never contain NUL,
// so a zero byte separates the two parts unambiguously.
func indexKey(did string, id uint64) []byte {
	key := make([]byte, 0, len(did)+9)
	key = append(key, did...)
	key = append(key, 0)
	return append(key, proofKey(id)...)
}

func (s *store) loadJSON(b kv.Bucket, key []byte, v any) (bool, error) {
	data, err := b.NewGetter(s.db).Get(key)
	if err != nil {
		if s.db.IsNotFound(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "load")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrap(err, "decode")
	}
	return true, nil
}

func saveJSON(p kv.Putter, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode")
	}
	return p.Put(key, data)
}

//
// Config
//

func (s *store) loadConfig() (*Config, error) {
	var cfg Config
	found, err := s.loadJSON(bucketConfig, configKey, &cfg)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &cfg, nil
}

func (s *store) saveConfig(p kv.Putter, cfg *Config) error {
	return saveJSON(bucketConfig.NewPutter(p), configKey, cfg)
}

//
// Nodes
//

func (s *store) getNode(addr trackmesh.Address) (*Node, error) {
	var node Node
	found, err := s.loadJSON(bucketNodes, addr.Bytes(), &node)
	if err != nil || !found {
		return nil, err
	}
	return &node, nil
}

func (s *store) hasNode(addr trackmesh.Address) (bool, error) {
	return bucketNodes.NewGetter(s.db).Has(addr.Bytes())
}

func (s *store) saveNode(p kv.Putter, node *Node) error {
	return saveJSON(bucketNodes.NewPutter(p), node.Address.Bytes(), node)
}

func (s *store) deleteNode(p kv.Putter, addr trackmesh.Address) error {
	return bucketNodes.NewPutter(p).Delete(addr.Bytes())
}

//
// Unlocking deposits
//

func (s *store) getUnlocking(addr trackmesh.Address) (*UnlockingDeposit, error) {
	var u UnlockingDeposit
	found, err := s.loadJSON(bucketUnlocking, addr.Bytes(), &u)
	if err != nil || !found {
		return nil, err
	}
	return &u, nil
}

func (s *store) hasUnlocking(addr trackmesh.Address) (bool, error) {
	return bucketUnlocking.NewGetter(s.db).Has(addr.Bytes())
}

func (s *store) saveUnlocking(p kv.Putter, u *UnlockingDeposit) error {
	return saveJSON(bucketUnlocking.NewPutter(p), u.Owner.Bytes(), u)
}

func (s *store) deleteUnlocking(p kv.Putter, addr trackmesh.Address) error {
	return bucketUnlocking.NewPutter(p).Delete(addr.Bytes())
}

//
// Proofs and indexes
//

func (s *store) getProof(id uint64) (*Proof, error) {
	var proof Proof
	found, err := s.loadJSON(bucketProofs, proofKey(id), &proof)
	if err != nil || !found {
		return nil, err
	}
	return &proof, nil
}

func (s *store) saveProof(p kv.Putter, proof *Proof) error {
	return saveJSON(bucketProofs.NewPutter(p), proofKey(proof.ID), proof)
}

func (s *store) proofIDByHash(hash string) (uint64, bool, error) {
	data, err := bucketProofByHash.NewGetter(s.db).Get([]byte(hash))
	if err != nil {
		if s.db.IsNotFound(err) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, "load hash index")
	}
	return binary.BigEndian.Uint64(data), true, nil
}

func (s *store) saveHashIndex(p kv.Putter, hash string, id uint64) error {
	return bucketProofByHash.NewPutter(p).Put([]byte(hash), proofKey(id))
}

func (s *store) saveWorkerIndex(p kv.Putter, did string, id uint64) error {
	return bucketWorkerIndex.NewPutter(p).Put(indexKey(did, id), nil)
}

func (s *store) saveGatewayIndex(p kv.Putter, did string, id uint64) error {
	return bucketGatewayIndex.NewPutter(p).Put(indexKey(did, id), nil)
}

// rangeProofs scans proofs in ascending ID order, exclusive of startAfter.
func (s *store) rangeProofs(startAfter *uint64, limit int) ([]*Proof, error) {
	var r kv.Range
	if startAfter != nil {
		if *startAfter == math.MaxUint64 {
			return nil, nil
		}
		r.From = proofKey(*startAfter + 1)
	}

	it := bucketProofs.NewStore(s.db).NewIterator(r)
	defer it.Release()

	var proofs []*Proof
	for len(proofs) < limit && it.Next() {
		var proof Proof
		if err := json.Unmarshal(it.Value(), &proof); err != nil {
			return nil, errors.Wrap(err, "decode proof")
		}
		proofs = append(proofs, &proof)
	}
	return proofs, it.Error()
}

// rangeIndex scans a (did, proof-id) membership index in ascending ID order,
// exclusive of startAfter, returning the matched proof IDs.
func (s *store) rangeIndex(b kv.Bucket, did string, startAfter *uint64, limit int) ([]uint64, error) {
	prefix := append([]byte(did), 0)
	r := kv.PrefixRange(prefix)
	if startAfter != nil {
		if *startAfter == math.MaxUint64 {
			return nil, nil
		}
		r.From = indexKey(did, *startAfter+1)
	}

	it := b.NewStore(s.db).NewIterator(r)
	defer it.Release()

	var ids []uint64
	for len(ids) < limit && it.Next() {
		key := it.Key()
		ids = append(ids, binary.BigEndian.Uint64(key[len(key)-8:]))
	}
	return ids, it.Error()
}
