package format

import (
	"bytes"
	"encoding/binary"
	"os"
	"sort"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/xerrors"

	hwdb_go "github.com/hwdbgo/hwdb.go"
)

// Reader provides lookups over a compiled database. The file is memory
// mapped for the lifetime of the reader
type Reader struct {
	f    *os.File
	mm   mmap.MMap
	data []byte
	hdr  *Header
}

// Property is one key/value pair attached to a matched device
type Property struct {
	Key   string
	Value string
}

// Open memory-maps the database at path and validates its header
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("open database: %w", err)
	}
	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		_ = f.Close()
		return nil, xerrors.Errorf("mmap database: %w", err)
	}
	ret := &Reader{f: f, mm: mm, data: mm}
	ret.hdr, err = headerFromBytes(ret.data)
	if err != nil {
		_ = ret.Close()
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	if ret.hdr.FileSize != uint64(len(ret.data)) ||
		ret.hdr.HeaderSize+ret.hdr.NodesLen+ret.hdr.StringsLen != ret.hdr.FileSize {
		_ = ret.Close()
		return nil, xerrors.Errorf("%s: %w", path, ErrTruncated)
	}
	return ret, nil
}

func (r *Reader) Close() error {
	if r.mm != nil {
		if err := r.mm.Unmap(); err != nil {
			_ = r.f.Close()
			return err
		}
		r.mm = nil
	}
	return r.f.Close()
}

// Header returns the parsed file header
func (r *Reader) Header() Header {
	return *r.hdr
}

// node is the decoded view of one node record
type node struct {
	prefixOff   uint64
	valuesOff   uint64 // file offset of the value table
	valuesCount uint64
	childrenOff uint64 // file offset of the child table
	childCount  int
}

func (r *Reader) nodeAt(off uint64) (node, error) {
	if off < HeaderSize || off+NodeRecSize > HeaderSize+r.hdr.NodesLen {
		return node{}, xerrors.Errorf("node offset %d out of bounds: %w", off, ErrTruncated)
	}
	rec := r.data[off:]
	n := node{
		prefixOff:   binary.LittleEndian.Uint64(rec[0:]),
		valuesCount: binary.LittleEndian.Uint64(rec[8:]),
		childCount:  int(rec[16]),
	}
	n.childrenOff = off + NodeRecSize
	n.valuesOff = n.childrenOff + uint64(n.childCount)*ChildRecSize
	if n.valuesOff+n.valuesCount*ValueRecSize > HeaderSize+r.hdr.NodesLen {
		return node{}, xerrors.Errorf("node tables at %d out of bounds: %w", off, ErrTruncated)
	}
	return n, nil
}

func (r *Reader) child(n node, i int) (byte, uint64) {
	rec := r.data[n.childrenOff+uint64(i)*ChildRecSize:]
	return rec[0], binary.LittleEndian.Uint64(rec[8:])
}

func (r *Reader) value(n node, i uint64) (key, value []byte, err error) {
	rec := r.data[n.valuesOff+i*ValueRecSize:]
	key, err = r.stringAt(binary.LittleEndian.Uint64(rec[0:]))
	if err != nil {
		return nil, nil, err
	}
	value, err = r.stringAt(binary.LittleEndian.Uint64(rec[8:]))
	return key, value, err
}

// stringAt reads the zero-terminated string at the absolute file offset
func (r *Reader) stringAt(off uint64) ([]byte, error) {
	strings := HeaderSize + r.hdr.NodesLen
	if off < strings || off >= r.hdr.FileSize {
		return nil, xerrors.Errorf("string offset %d out of bounds: %w", off, ErrTruncated)
	}
	end := bytes.IndexByte(r.data[off:], 0)
	if end < 0 {
		return nil, xerrors.Errorf("unterminated string at %d: %w", off, ErrTruncated)
	}
	return r.data[off : off+uint64(end)], nil
}

// Walk enumerates every (pattern, key, value) triple in the database,
// patterns depth-first, values within a node in key order. Return false
// from the callback to stop
func (r *Reader) Walk(fun func(pattern, key, value []byte) bool) error {
	_, err := r.walk(r.hdr.NodesRootOff, nil, fun)
	return err
}

func (r *Reader) walk(off uint64, acc []byte, fun func(pattern, key, value []byte) bool) (bool, error) {
	n, err := r.nodeAt(off)
	if err != nil {
		return false, err
	}
	prefix, err := r.stringAt(n.prefixOff)
	if err != nil {
		return false, err
	}
	pattern := hwdb_go.Concat(acc, prefix)
	for i := uint64(0); i < n.valuesCount; i++ {
		k, v, err := r.value(n, i)
		if err != nil {
			return false, err
		}
		if !fun(pattern, k, v) {
			return false, nil
		}
	}
	for i := 0; i < n.childCount; i++ {
		c, childOff := r.child(n, i)
		cont, err := r.walk(childOff, hwdb_go.Concat(pattern, c), fun)
		if err != nil || !cont {
			return cont, err
		}
	}
	return true, nil
}

// Query returns the properties of every pattern matching the modalias
// string, merged key-wise; when several patterns match, properties of
// patterns visited later override earlier ones. The result is sorted by key
func (r *Reader) Query(modalias string) ([]Property, error) {
	merged := make(map[string]string)
	search := []byte(modalias)
	err := r.Walk(func(pattern, key, value []byte) bool {
		if MatchGlob(pattern, search) {
			merged[string(key)] = string(value)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	ret := make([]Property, 0, len(merged))
	for k, v := range merged {
		ret = append(ret, Property{Key: k, Value: v})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Key < ret[j].Key })
	return ret, nil
}
