// Package format defines the on-disk database layout and implements the
// serializer and the memory-mapped reader.
//
// File layout, all integers little-endian:
//
//	header
//	node region:   post-order emission of nodes, each node record followed
//	               by its child table, then its value table
//	string region: the packed string pool
//
// The header is written last, after the node and string regions, so a file
// that was truncated mid-build carries no valid header.
package format

import (
	"encoding/binary"

	"golang.org/x/xerrors"
)

// Signature identifies the file format
const Signature = "KSLPHHRH"

// ToolVersion is recorded in the header for diagnostics
const ToolVersion = 1

// Record sizes. The header carries them so readers can reject a layout they
// do not understand
const (
	HeaderSize   = 80
	NodeRecSize  = 17 // prefix_off u64, values_count u64, children_count u8
	ChildRecSize = 16 // c u8, padding u8[7], child_off u64
	ValueRecSize = 16 // key_off u64, value_off u64
)

var (
	ErrBadSignature = xerrors.New("not a hardware database file")
	ErrBadLayout    = xerrors.New("unsupported database layout")
	ErrTruncated    = xerrors.New("truncated database file")
)

// Header is the self-describing file header
type Header struct {
	Signature      [8]byte
	ToolVersion    uint64
	FileSize       uint64
	HeaderSize     uint64
	NodeSize       uint64
	ChildEntrySize uint64
	ValueEntrySize uint64
	NodesLen       uint64
	StringsLen     uint64
	NodesRootOff   uint64
}

func (h *Header) bytes() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[:8], h.Signature[:])
	for i, v := range []uint64{
		h.ToolVersion, h.FileSize, h.HeaderSize, h.NodeSize, h.ChildEntrySize,
		h.ValueEntrySize, h.NodesLen, h.StringsLen, h.NodesRootOff,
	} {
		binary.LittleEndian.PutUint64(buf[8+8*i:], v)
	}
	return buf
}

func headerFromBytes(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, ErrTruncated
	}
	ret := &Header{}
	copy(ret.Signature[:], data[:8])
	fields := []*uint64{
		&ret.ToolVersion, &ret.FileSize, &ret.HeaderSize, &ret.NodeSize,
		&ret.ChildEntrySize, &ret.ValueEntrySize, &ret.NodesLen,
		&ret.StringsLen, &ret.NodesRootOff,
	}
	for i, p := range fields {
		*p = binary.LittleEndian.Uint64(data[8+8*i:])
	}
	if string(ret.Signature[:]) != Signature {
		return nil, ErrBadSignature
	}
	if ret.HeaderSize != HeaderSize || ret.NodeSize != NodeRecSize ||
		ret.ChildEntrySize != ChildRecSize || ret.ValueEntrySize != ValueRecSize {
		return nil, ErrBadLayout
	}
	return ret, nil
}
