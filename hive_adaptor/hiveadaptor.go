// Package hive_adaptor contains adaptor interfaces with the key/value stores
// implemented in the `hive.go` repository. It allows compiling a database
// from records held in a kvstore partition and exporting a compiled database
// back into one.
package hive_adaptor

import (
	"bytes"
	"errors"

	"github.com/iotaledger/hive.go/core/kvstore"
	"golang.org/x/xerrors"

	hwdb_go "github.com/hwdbgo/hwdb.go"
	"github.com/hwdbgo/hwdb.go/format"
	"github.com/hwdbgo/hwdb.go/stringpool"
	"github.com/hwdbgo/hwdb.go/trie"
)

// RecordKey encodes (pattern, property key) as one kvstore key. The zero
// byte separator relies on patterns never containing NUL, which holds for
// all line-oriented sources
func RecordKey(pattern, key []byte) []byte {
	return hwdb_go.Concat(pattern, byte(0), key)
}

// SplitRecordKey is the inverse of RecordKey
func SplitRecordKey(k []byte) (pattern, key []byte, err error) {
	i := bytes.IndexByte(k, 0)
	if i < 0 {
		return nil, nil, xerrors.Errorf("malformed record key %x", k)
	}
	return k[:i], k[i+1:], nil
}

// HiveKVStoreAdaptor maps a partition of the Hive KVStore to hwdb_go.KVStore
type HiveKVStoreAdaptor struct {
	kvs    kvstore.KVStore
	prefix []byte
}

// NewHiveKVStoreAdaptor creates a new KVStore as a partition of hive.go KVStore
func NewHiveKVStoreAdaptor(kvs kvstore.KVStore, prefix []byte) *HiveKVStoreAdaptor {
	return &HiveKVStoreAdaptor{kvs: kvs, prefix: prefix}
}

func mustNoErr(err error) {
	if err != nil {
		panic(err)
	}
}

func makeKey(prefix, k []byte) []byte {
	if len(prefix) == 0 {
		return k
	}
	return hwdb_go.Concat(prefix, k)
}

func (kvs *HiveKVStoreAdaptor) Get(key []byte) []byte {
	v, err := kvs.kvs.Get(makeKey(kvs.prefix, key))
	if errors.Is(err, kvstore.ErrKeyNotFound) {
		return nil
	}
	mustNoErr(err)
	return v
}

func (kvs *HiveKVStoreAdaptor) Has(key []byte) bool {
	v, err := kvs.kvs.Has(makeKey(kvs.prefix, key))
	mustNoErr(err)
	return v
}

func (kvs *HiveKVStoreAdaptor) Set(key, value []byte) {
	var err error
	if len(value) == 0 {
		err = kvs.kvs.Delete(makeKey(kvs.prefix, key))
	} else {
		err = kvs.kvs.Set(makeKey(kvs.prefix, key), value)
	}
	mustNoErr(err)
}

func (kvs *HiveKVStoreAdaptor) Iterate(fun func(k []byte, v []byte) bool) {
	err := kvs.kvs.Iterate(kvs.prefix, func(key kvstore.Key, value kvstore.Value) bool {
		return fun(key[len(kvs.prefix):], value)
	})
	mustNoErr(err)
}

// CompileKVStore builds a binary database from all records held in the
// given partition. Record keys follow the RecordKey layout; malformed keys
// fail the build
func CompileKVStore(kvs kvstore.KVStore, prefix []byte, output string) (*format.Stats, error) {
	pool := stringpool.New()
	tr := trie.New(pool)
	adaptor := NewHiveKVStoreAdaptor(kvs, prefix)

	var firstErr error
	adaptor.Iterate(func(k, v []byte) bool {
		pattern, key, err := SplitRecordKey(k)
		if err == nil {
			err = tr.Insert(pattern, key, v)
		}
		if err != nil {
			firstErr = err
			return false
		}
		return true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	pool.Finalize()
	return format.Write(tr, output)
}

// ExportToKVStore copies every (pattern, key, value) triple of the compiled
// database into the partition as one atomic batch. Returns the number of
// exported records
func ExportToKVStore(rd *format.Reader, kvs kvstore.KVStore, prefix []byte) (int, error) {
	batch, err := kvs.Batched()
	if err != nil {
		return 0, err
	}
	n := 0
	walkErr := rd.Walk(func(pattern, key, value []byte) bool {
		if err = batch.Set(makeKey(prefix, RecordKey(pattern, key)), value); err != nil {
			return false
		}
		n++
		return true
	})
	if walkErr != nil {
		batch.Cancel()
		return 0, walkErr
	}
	if err != nil {
		batch.Cancel()
		return 0, err
	}
	if err = batch.Commit(); err != nil {
		return 0, err
	}
	if err = kvs.Flush(); err != nil {
		return 0, err
	}
	return n, nil
}
