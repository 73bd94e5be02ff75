// Package trie implements the in-memory radix trie the database is compiled
// into. Each node carries a compressed path fragment interned in the string
// pool; leaves and interior nodes alike may hold key/value properties.
package trie

import (
	"golang.org/x/xerrors"

	hwdb_go "github.com/hwdbgo/hwdb.go"
	"github.com/hwdbgo/hwdb.go/stringpool"
)

// ErrEmptyPattern is returned by Insert for a zero-length match pattern
var ErrEmptyPattern = xerrors.New("empty match pattern")

// Trie owns the node arena and the string pool for its lifetime
type Trie struct {
	root     *Node
	pool     *stringpool.Pool
	numNodes int
}

func New(pool *stringpool.Pool) *Trie {
	return &Trie{
		root:     &Node{Prefix: pool.Intern(nil)},
		pool:     pool,
		numNodes: 1,
	}
}

func (tr *Trie) Root() *Node {
	return tr.root
}

func (tr *Trie) Pool() *stringpool.Pool {
	return tr.pool
}

func (tr *Trie) NumNodes() int {
	return tr.numNodes
}

func (tr *Trie) newNode(prefix []byte) *Node {
	tr.numNodes++
	return &Node{Prefix: tr.pool.Intern(prefix)}
}

// Insert records the property key=value under the match pattern. Re-inserting
// the same (pattern, key) replaces the previous value
func (tr *Trie) Insert(pattern, key, value []byte) error {
	if len(pattern) == 0 {
		return ErrEmptyPattern
	}
	keyRef := tr.pool.Intern(key)
	valueRef := tr.pool.Intern(value)

	node := tr.root
	i := 0
	for {
		p := tr.pool.Bytes(node.Prefix)
		d := 0
		for d < len(p) && i+d < len(pattern) && p[d] == pattern[i+d] {
			d++
		}
		if d < len(p) {
			tr.splitNode(node, p, d)
		}
		i += d
		if i == len(pattern) {
			node.setValue(tr.pool, keyRef, valueRef)
			return nil
		}
		c := pattern[i]
		i++
		child := node.Child(c)
		if child == nil {
			child = tr.newNode(pattern[i:])
			node.addChild(c, child)
			child.setValue(tr.pool, keyRef, valueRef)
			return nil
		}
		node = child
	}
}

// splitNode divides the node's prefix at position 'at'. A new node adopts
// the tail of the prefix together with the node's children and values, and
// is re-attached under the byte at the split position. The node itself keeps
// the head of the prefix and continues empty, so every mapping reachable
// before the split stays reachable
func (tr *Trie) splitNode(n *Node, p []byte, at int) {
	hwdb_go.Assert(at < len(p), "splitNode: at < len(p)")
	adopted := tr.newNode(p[at+1:])
	adopted.Children = n.Children
	adopted.Values = n.Values

	n.Prefix = tr.pool.Intern(p[:at])
	n.Children = []ChildEntry{{Char: p[at], Node: adopted}}
	n.Values = nil
}

// Iterate walks the trie depth-first and reports every (pattern, key, value)
// triple in pattern, then key order. Return false from the callback to stop
func (tr *Trie) Iterate(fun func(pattern, key, value []byte) bool) {
	tr.iterate(tr.root, nil, fun)
}

func (tr *Trie) iterate(n *Node, acc []byte, fun func(pattern, key, value []byte) bool) bool {
	pattern := hwdb_go.Concat(acc, tr.pool.Bytes(n.Prefix))
	for _, v := range n.Values {
		if !fun(pattern, tr.pool.Bytes(v.Key), tr.pool.Bytes(v.Value)) {
			return false
		}
	}
	for _, ch := range n.Children {
		if !tr.iterate(ch.Node, hwdb_go.Concat(pattern, ch.Char), fun) {
			return false
		}
	}
	return true
}

// NumEntries counts the (pattern, key) pairs stored in the trie
func (tr *Trie) NumEntries() int {
	ret := 0
	tr.Iterate(func(_, _, _ []byte) bool {
		ret++
		return true
	})
	return ret
}
