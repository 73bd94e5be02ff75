package trie

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/hwdbgo/hwdb.go/stringpool"
)

// ChildEntry links a discriminating byte to the subtree hanging below it
type ChildEntry struct {
	Char byte
	Node *Node
}

// ValueEntry is one key/value property recorded on a node. Both sides are
// pool refs
type ValueEntry struct {
	Key   stringpool.Ref
	Value stringpool.Ref
}

// Node is one compressed edge of the radix trie. Children are sorted
// ascending by the discriminating byte, values ascending by key bytes;
// both keys are unique within the node
type Node struct {
	Prefix   stringpool.Ref
	Children []ChildEntry
	Values   []ValueEntry
}

// Child returns the subtree under the discriminating byte, nil if absent
func (n *Node) Child(c byte) *Node {
	i := sort.Search(len(n.Children), func(i int) bool {
		return n.Children[i].Char >= c
	})
	if i < len(n.Children) && n.Children[i].Char == c {
		return n.Children[i].Node
	}
	return nil
}

func (n *Node) addChild(c byte, child *Node) {
	i := sort.Search(len(n.Children), func(i int) bool {
		return n.Children[i].Char >= c
	})
	if i < len(n.Children) && n.Children[i].Char == c {
		panic(fmt.Sprintf("trie: duplicate child 0x%02x", c))
	}
	n.Children = append(n.Children, ChildEntry{})
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = ChildEntry{Char: c, Node: child}
}

// setValue inserts or overwrites the property with the given key. Ordering
// of the value array by key bytes is maintained
func (n *Node) setValue(pool *stringpool.Pool, key, value stringpool.Ref) {
	kb := pool.Bytes(key)
	i := sort.Search(len(n.Values), func(i int) bool {
		return bytes.Compare(pool.Bytes(n.Values[i].Key), kb) >= 0
	})
	if i < len(n.Values) && bytes.Equal(pool.Bytes(n.Values[i].Key), kb) {
		n.Values[i].Value = value
		return
	}
	n.Values = append(n.Values, ValueEntry{})
	copy(n.Values[i+1:], n.Values[i:])
	n.Values[i] = ValueEntry{Key: key, Value: value}
}
