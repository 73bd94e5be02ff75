package trie

import (
	"bytes"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hwdbgo/hwdb.go/stringpool"
)

func newTrie() *Trie {
	return New(stringpool.New())
}

// collect returns the trie contents as pattern -> key -> value
func collect(tr *Trie) map[string]map[string]string {
	ret := make(map[string]map[string]string)
	tr.Iterate(func(pattern, key, value []byte) bool {
		m, ok := ret[string(pattern)]
		if !ok {
			m = make(map[string]string)
			ret[string(pattern)] = m
		}
		m[string(key)] = string(value)
		return true
	})
	return ret
}

// checkInvariants verifies child and value ordering in every node
func checkInvariants(t *testing.T, tr *Trie) {
	var walk func(n *Node)
	walk = func(n *Node) {
		for i := 1; i < len(n.Children); i++ {
			require.Less(t, n.Children[i-1].Char, n.Children[i].Char)
		}
		for i := 1; i < len(n.Values); i++ {
			require.True(t, bytes.Compare(
				tr.Pool().Bytes(n.Values[i-1].Key),
				tr.Pool().Bytes(n.Values[i].Key)) < 0)
		}
		for _, ch := range n.Children {
			require.NotNil(t, ch.Node)
			walk(ch.Node)
		}
	}
	require.Empty(t, tr.Pool().Bytes(tr.Root().Prefix))
	walk(tr.Root())
}

func TestInsertBase(t *testing.T) {
	t.Run("single pattern", func(t *testing.T) {
		tr := newTrie()
		require.NoError(t, tr.Insert([]byte("usb:v046DpC077*"), []byte("ID_VENDOR"), []byte("Logitech")))
		require.NoError(t, tr.Insert([]byte("usb:v046DpC077*"), []byte("ID_MODEL"), []byte("Mouse")))
		require.EqualValues(t, map[string]map[string]string{
			"usb:v046DpC077*": {"ID_VENDOR": "Logitech", "ID_MODEL": "Mouse"},
		}, collect(tr))
		checkInvariants(t, tr)
	})
	t.Run("empty pattern rejected", func(t *testing.T) {
		tr := newTrie()
		require.ErrorIs(t, tr.Insert(nil, []byte("k"), []byte("v")), ErrEmptyPattern)
	})
	t.Run("overwrite", func(t *testing.T) {
		tr := newTrie()
		require.NoError(t, tr.Insert([]byte("abc"), []byte("k"), []byte("v1")))
		require.NoError(t, tr.Insert([]byte("abc"), []byte("k"), []byte("v2")))
		require.EqualValues(t, map[string]map[string]string{
			"abc": {"k": "v2"},
		}, collect(tr))
		// exactly one value entry
		n := tr.Root().Child('a')
		require.NotNil(t, n)
		require.Len(t, n.Values, 1)
	})
}

func TestSplit(t *testing.T) {
	t.Run("two-way", func(t *testing.T) {
		tr := newTrie()
		require.NoError(t, tr.Insert([]byte("abc"), []byte("k1"), []byte("v1")))
		require.NoError(t, tr.Insert([]byte("abd"), []byte("k2"), []byte("v2")))

		root := tr.Root()
		require.Len(t, root.Children, 1)
		require.Equal(t, byte('a'), root.Children[0].Char)
		fork := root.Children[0].Node
		require.EqualValues(t, []byte("b"), tr.Pool().Bytes(fork.Prefix))
		require.Empty(t, fork.Values)
		require.Len(t, fork.Children, 2)
		require.Equal(t, byte('c'), fork.Children[0].Char)
		require.Equal(t, byte('d'), fork.Children[1].Char)
		require.Len(t, fork.Children[0].Node.Values, 1)
		require.Len(t, fork.Children[1].Node.Values, 1)
		checkInvariants(t, tr)
	})
	t.Run("abra abcd", func(t *testing.T) {
		tr := newTrie()
		require.NoError(t, tr.Insert([]byte("abra"), []byte("k"), []byte("v1")))
		require.NoError(t, tr.Insert([]byte("abcd"), []byte("k"), []byte("v2")))

		fork := tr.Root().Child('a')
		require.NotNil(t, fork)
		require.EqualValues(t, []byte("b"), tr.Pool().Bytes(fork.Prefix))
		r := fork.Child('r')
		c := fork.Child('c')
		require.NotNil(t, r)
		require.NotNil(t, c)
		require.EqualValues(t, []byte("a"), tr.Pool().Bytes(r.Prefix))
		require.EqualValues(t, []byte("d"), tr.Pool().Bytes(c.Prefix))
		require.EqualValues(t, map[string]map[string]string{
			"abra": {"k": "v1"},
			"abcd": {"k": "v2"},
		}, collect(tr))
	})
	t.Run("prefix of existing", func(t *testing.T) {
		tr := newTrie()
		require.NoError(t, tr.Insert([]byte("abc"), []byte("k"), []byte("2")))
		require.NoError(t, tr.Insert([]byte("ab"), []byte("k"), []byte("1")))
		require.EqualValues(t, map[string]map[string]string{
			"ab":  {"k": "1"},
			"abc": {"k": "2"},
		}, collect(tr))
		checkInvariants(t, tr)
	})
	t.Run("extends existing", func(t *testing.T) {
		tr := newTrie()
		require.NoError(t, tr.Insert([]byte("ab"), []byte("k"), []byte("1")))
		require.NoError(t, tr.Insert([]byte("abc"), []byte("k"), []byte("2")))
		require.EqualValues(t, map[string]map[string]string{
			"ab":  {"k": "1"},
			"abc": {"k": "2"},
		}, collect(tr))
		// terminating node keeps its own value, continuation hangs below it
		ab := tr.Root().Child('a')
		require.NotNil(t, ab)
		require.Len(t, ab.Values, 1)
		require.NotNil(t, ab.Child('c'))
	})
	t.Run("split keeps subtree reachable", func(t *testing.T) {
		tr := newTrie()
		require.NoError(t, tr.Insert([]byte("evdev:input:b0003*"), []byte("KEYBOARD_KEY_c0"), []byte("f20")))
		require.NoError(t, tr.Insert([]byte("evdev:input:b0005*"), []byte("KEYBOARD_KEY_c1"), []byte("f21")))
		require.NoError(t, tr.Insert([]byte("evdev:atkbd:*"), []byte("KEYBOARD_KEY_01"), []byte("esc")))
		require.EqualValues(t, map[string]map[string]string{
			"evdev:input:b0003*": {"KEYBOARD_KEY_c0": "f20"},
			"evdev:input:b0005*": {"KEYBOARD_KEY_c1": "f21"},
			"evdev:atkbd:*":      {"KEYBOARD_KEY_01": "esc"},
		}, collect(tr))
		checkInvariants(t, tr)
	})
}

func TestValueOrdering(t *testing.T) {
	tr := newTrie()
	keys := []string{"zeta", "alpha", "mu", "beta", "ZETA", "01"}
	for i, k := range keys {
		require.NoError(t, tr.Insert([]byte("pat"), []byte(k), []byte(fmt.Sprintf("v%d", i))))
	}
	n := tr.Root().Child('p')
	require.NotNil(t, n)
	require.Len(t, n.Values, len(keys))
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	for i, k := range sorted {
		require.EqualValues(t, []byte(k), tr.Pool().Bytes(n.Values[i].Key))
	}
}

const letters = "abcdefghij"

func genPatterns() []string {
	ret := make([]string, 0, len(letters)*len(letters)*len(letters))
	for i := range letters {
		for j := range letters {
			for k := range letters {
				ret = append(ret, string([]byte{letters[i], letters[j], letters[k]}))
			}
		}
	}
	return ret
}

func TestLastWriteWins(t *testing.T) {
	tr := newTrie()
	data := genPatterns()
	for round := 0; round < 3; round++ {
		for i, p := range data {
			require.NoError(t, tr.Insert([]byte(p), []byte("K"), []byte(fmt.Sprintf("r%d-%d", round, i))))
		}
	}
	m := collect(tr)
	require.Len(t, m, len(data))
	for i, p := range data {
		require.Equal(t, fmt.Sprintf("r2-%d", i), m[p]["K"])
	}
	checkInvariants(t, tr)
}

func TestOverlappingCorpus(t *testing.T) {
	// patterns sharing prefixes of every length, each prefix inserted again
	// for every pattern that extends it
	tr := newTrie()
	expect := make(map[string]map[string]string)
	data := genPatterns()
	for i, p := range data {
		for cut := 1; cut <= len(p); cut++ {
			pat := p[:cut]
			v := fmt.Sprintf("%d-%d", i, cut)
			require.NoError(t, tr.Insert([]byte(pat), []byte("K"), []byte(v)))
			if expect[pat] == nil {
				expect[pat] = make(map[string]string)
			}
			expect[pat]["K"] = v
		}
	}
	require.EqualValues(t, expect, collect(tr))
	checkInvariants(t, tr)
}

func TestNodeCounts(t *testing.T) {
	tr := newTrie()
	require.Equal(t, 1, tr.NumNodes())
	require.NoError(t, tr.Insert([]byte("abc"), []byte("k"), []byte("v")))
	require.Equal(t, 2, tr.NumNodes())
	require.NoError(t, tr.Insert([]byte("abd"), []byte("k"), []byte("v")))
	// split creates the adopted node plus the new leaf
	require.Equal(t, 4, tr.NumNodes())
	require.Equal(t, 2, tr.NumEntries())
}
