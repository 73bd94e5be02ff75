package hwdb_go

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConcat(t *testing.T) {
	require.EqualValues(t, []byte("abc"), Concat([]byte("a"), byte('b'), "c"))
	require.EqualValues(t, []byte{}, Concat())
	require.Panics(t, func() { Concat(42) })
}

func TestUint64Bytes(t *testing.T) {
	for _, v := range []uint64{0, 1, 0x1122334455667788, ^uint64(0)} {
		b := Uint64To8Bytes(v)
		back, err := Uint64From8Bytes(b)
		require.NoError(t, err)
		require.Equal(t, v, back)

		var buf bytes.Buffer
		require.NoError(t, WriteUint64(&buf, v))
		var rd uint64
		require.NoError(t, ReadUint64(&buf, &rd))
		require.Equal(t, v, rd)
	}
	_, err := Uint64From8Bytes([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestInMemoryKVStore(t *testing.T) {
	store := NewInMemoryKVStore()
	store.Set([]byte("a"), []byte("1"))
	store.Set([]byte("b"), []byte("2"))
	require.True(t, store.Has([]byte("a")))
	require.EqualValues(t, []byte("2"), store.Get([]byte("b")))
	store.Set([]byte("a"), nil)
	require.False(t, store.Has([]byte("a")))
	require.Nil(t, store.Get([]byte("a")))

	dst := NewInMemoryKVStore()
	CopyAll(dst, store)
	require.EqualValues(t, []byte("2"), dst.Get([]byte("b")))
}

func TestBinaryStream(t *testing.T) {
	t.Run("buffer", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewBinaryStreamWriter(&buf)
		pairs := map[string]string{}
		for i := 0; i < 20; i++ {
			k := fmt.Sprintf("pattern-%02d", i)
			v := fmt.Sprintf("value-%d", i)
			pairs[k] = v
			require.NoError(t, w.Write([]byte(k), []byte(v)))
		}
		n, _ := w.Stats()
		require.Equal(t, 20, n)

		back := map[string]string{}
		err := NewBinaryStreamIterator(&buf).Iterate(func(k, v []byte) bool {
			back[string(k)] = string(v)
			return true
		})
		require.NoError(t, err)
		require.EqualValues(t, pairs, back)
	})
	t.Run("file", func(t *testing.T) {
		fname := filepath.Join(t.TempDir(), "dump.bin")
		w, err := CreateKVStreamFile(fname)
		require.NoError(t, err)
		require.NoError(t, w.Write([]byte("k"), []byte("v")))
		require.NoError(t, w.Close())

		it, err := OpenKVStreamFile(fname)
		require.NoError(t, err)
		defer it.Close()
		count := 0
		require.NoError(t, it.Iterate(func(k, v []byte) bool {
			require.EqualValues(t, []byte("k"), k)
			require.EqualValues(t, []byte("v"), v)
			count++
			return true
		}))
		require.Equal(t, 1, count)
	})
	t.Run("empty value roundtrip", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewBinaryStreamWriter(&buf)
		require.NoError(t, w.Write([]byte("k"), nil))
		err := NewBinaryStreamIterator(&buf).Iterate(func(k, v []byte) bool {
			require.Empty(t, v)
			return true
		})
		require.NoError(t, err)
	})
}

func TestBlake2b160(t *testing.T) {
	h1 := Blake2b160([]byte("data"))
	h2 := Blake2b160([]byte("data"))
	h3 := Blake2b160([]byte("Data"))
	require.Equal(t, h1, h2)
	require.NotEqual(t, h1, h3)
}
