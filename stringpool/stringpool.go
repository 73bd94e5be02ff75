// Package stringpool implements the deduplicating string arena backing the
// database trie. Strings are interned during the build and packed into one
// contiguous zero-terminated buffer on finalization. Offsets into the packed
// buffer become valid only after Finalize.
package stringpool

import (
	"sort"
	"strings"

	hwdb_go "github.com/hwdbgo/hwdb.go"
)

// Ref is an opaque handle of an interned string. It must not be interpreted
// before the pool is finalized
type Ref int

// Pool collects interned strings and assigns final buffer offsets on Finalize.
// Packing shares tails: a string that is a suffix of another one points into
// the longer string's bytes instead of occupying its own
type Pool struct {
	entries []string
	index   map[string]Ref
	offsets []int64
	buf     []byte
	final   bool
}

func New() *Pool {
	return &Pool{
		entries: make([]string, 0),
		index:   make(map[string]Ref),
	}
}

// Intern records data for inclusion in the packed buffer. Equal inputs yield
// equal refs. The input is copied, the caller may reuse the slice
func (p *Pool) Intern(data []byte) Ref {
	hwdb_go.Assert(!p.final, "stringpool: Intern after Finalize")
	s := string(data)
	if ref, ok := p.index[s]; ok {
		return ref
	}
	ref := Ref(len(p.entries))
	p.entries = append(p.entries, s)
	p.index[s] = ref
	return ref
}

// Bytes returns the interned string of the ref. Valid at any time
func (p *Pool) Bytes(ref Ref) []byte {
	return []byte(p.entries[ref])
}

// Finalize packs all interned strings into the final buffer and resolves
// refs to offsets. Idempotent; the pool is immutable afterwards
func (p *Pool) Finalize() {
	if p.final {
		return
	}
	p.final = true
	p.offsets = make([]int64, len(p.entries))

	// sort by reversed bytes, then a string is a suffix of another iff its
	// reversed form is a prefix of the immediate successor's reversed form
	order := make([]Ref, len(p.entries))
	for i := range order {
		order[i] = Ref(i)
	}
	sort.Slice(order, func(i, j int) bool {
		return reverseLess(p.entries[order[i]], p.entries[order[j]])
	})

	for i := len(order) - 1; i >= 0; i-- {
		s := p.entries[order[i]]
		if i < len(order)-1 {
			t := p.entries[order[i+1]]
			if strings.HasSuffix(t, s) {
				p.offsets[order[i]] = p.offsets[order[i+1]] + int64(len(t)-len(s))
				continue
			}
		}
		p.offsets[order[i]] = int64(len(p.buf))
		p.buf = append(p.buf, s...)
		p.buf = append(p.buf, 0)
	}
}

// Offset resolves the ref to its offset in the packed buffer
func (p *Pool) Offset(ref Ref) int64 {
	hwdb_go.Assert(p.final, "stringpool: Offset before Finalize")
	return p.offsets[ref]
}

// Len is the size of the packed buffer
func (p *Pool) Len() int {
	hwdb_go.Assert(p.final, "stringpool: Len before Finalize")
	return len(p.buf)
}

// PackedBytes is the final buffer. The bytes at Offset(ref) spell the
// interned string followed by a zero byte
func (p *Pool) PackedBytes() []byte {
	hwdb_go.Assert(p.final, "stringpool: PackedBytes before Finalize")
	return p.buf
}

// NumStrings returns the number of distinct interned strings
func (p *Pool) NumStrings() int {
	return len(p.entries)
}

func reverseLess(a, b string) bool {
	i, j := len(a)-1, len(b)-1
	for i >= 0 && j >= 0 {
		if a[i] != b[j] {
			return a[i] < b[j]
		}
		i--
		j--
	}
	return i < 0 && j >= 0
}
