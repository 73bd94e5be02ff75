package format

import (
	"bufio"
	"encoding/binary"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/hwdbgo/hwdb.go/stringpool"
	"github.com/hwdbgo/hwdb.go/trie"
)

// Stats describes the emitted file
type Stats struct {
	Nodes      int
	Children   int
	Values     int
	NodesLen   uint64
	StringsLen uint64
	RootOff    uint64
	FileSize   uint64
}

// Write serializes the trie to path. It writes a sibling temporary file,
// emits nodes post-order, appends the string region, patches the header in
// last and renames over path. On failure the temporary file is removed and
// a preexisting file at path stays intact.
//
// The trie's pool is finalized here if the caller has not done so yet
func Write(tr *trie.Trie, path string) (*Stats, error) {
	pool := tr.Pool()
	pool.Finalize()

	st := &Stats{}
	sizeSubtree(tr.Root(), st)
	st.NodesLen = uint64(st.Nodes)*NodeRecSize +
		uint64(st.Children)*ChildRecSize + uint64(st.Values)*ValueRecSize
	st.StringsLen = uint64(pool.Len())

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return nil, xerrors.Errorf("create temporary database: %w", err)
	}
	st, err = emitAll(tr, tmp, st)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, xerrors.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, xerrors.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, xerrors.Errorf("commit %s: %w", path, err)
	}
	return st, nil
}

func emitAll(tr *trie.Trie, f *os.File, st *Stats) (*Stats, error) {
	e := &emitter{
		w:          bufio.NewWriter(f),
		off:        HeaderSize,
		pool:       tr.Pool(),
		stringsOff: HeaderSize + st.NodesLen,
	}
	// seek past the header; it is patched in after the body is on disk
	if _, err := f.Write(make([]byte, HeaderSize)); err != nil {
		return nil, err
	}
	rootOff, err := e.emitNode(tr.Root())
	if err != nil {
		return nil, err
	}
	if e.off != e.stringsOff {
		return nil, xerrors.Errorf("node region size mismatch: emitted %d, computed %d",
			e.off-HeaderSize, st.NodesLen)
	}
	if _, err = e.w.Write(e.pool.PackedBytes()); err != nil {
		return nil, err
	}
	if err = e.w.Flush(); err != nil {
		return nil, err
	}

	st.RootOff = rootOff
	st.FileSize = e.stringsOff + st.StringsLen
	hdr := Header{
		ToolVersion:    ToolVersion,
		FileSize:       st.FileSize,
		HeaderSize:     HeaderSize,
		NodeSize:       NodeRecSize,
		ChildEntrySize: ChildRecSize,
		ValueEntrySize: ValueRecSize,
		NodesLen:       st.NodesLen,
		StringsLen:     st.StringsLen,
		NodesRootOff:   rootOff,
	}
	copy(hdr.Signature[:], Signature)
	if _, err = f.WriteAt(hdr.bytes(), 0); err != nil {
		return nil, err
	}
	if err = f.Chmod(0444); err != nil {
		return nil, err
	}
	if err = f.Sync(); err != nil {
		return nil, err
	}
	return st, nil
}

func sizeSubtree(n *trie.Node, st *Stats) {
	st.Nodes++
	st.Children += len(n.Children)
	st.Values += len(n.Values)
	for _, ch := range n.Children {
		sizeSubtree(ch.Node, st)
	}
}

// emitter tracks the absolute file offset while streaming the node region
type emitter struct {
	w          *bufio.Writer
	off        uint64
	pool       *stringpool.Pool
	stringsOff uint64
}

// strOff resolves a pool ref to its absolute file offset
func (e *emitter) strOff(ref stringpool.Ref) uint64 {
	return e.stringsOff + uint64(e.pool.Offset(ref))
}

// emitNode writes the subtree post-order and returns the absolute offset of
// the node record, so parents can reference children already on disk
func (e *emitter) emitNode(n *trie.Node) (uint64, error) {
	if len(n.Children) > 255 {
		return 0, xerrors.Errorf("node has %d children, format limit is 255", len(n.Children))
	}
	childOffs := make([]uint64, len(n.Children))
	for i, ch := range n.Children {
		off, err := e.emitNode(ch.Node)
		if err != nil {
			return 0, err
		}
		childOffs[i] = off
	}
	nodeOff := e.off

	var rec [NodeRecSize]byte
	binary.LittleEndian.PutUint64(rec[0:], e.strOff(n.Prefix))
	binary.LittleEndian.PutUint64(rec[8:], uint64(len(n.Values)))
	rec[16] = byte(len(n.Children))
	if err := e.write(rec[:]); err != nil {
		return 0, err
	}
	for i, ch := range n.Children {
		var crec [ChildRecSize]byte
		crec[0] = ch.Char
		binary.LittleEndian.PutUint64(crec[8:], childOffs[i])
		if err := e.write(crec[:]); err != nil {
			return 0, err
		}
	}
	for _, v := range n.Values {
		var vrec [ValueRecSize]byte
		binary.LittleEndian.PutUint64(vrec[0:], e.strOff(v.Key))
		binary.LittleEndian.PutUint64(vrec[8:], e.strOff(v.Value))
		if err := e.write(vrec[:]); err != nil {
			return 0, err
		}
	}
	return nodeOff, nil
}

func (e *emitter) write(p []byte) error {
	n, err := e.w.Write(p)
	e.off += uint64(n)
	return err
}
