package hwdb

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/xerrors"

	hwdb_go "github.com/hwdbgo/hwdb.go"
	"github.com/hwdbgo/hwdb.go/format"
	"github.com/hwdbgo/hwdb.go/log"
	"github.com/hwdbgo/hwdb.go/stringpool"
	"github.com/hwdbgo/hwdb.go/trie"
)

// SourceSuffix selects the source files inside the root directories
const SourceSuffix = ".hwdb"

// Config describes one build of the binary database
type Config struct {
	// Roots is the ordered list of directories searched for sources.
	// A basename present in a later root replaces the earlier occurrence
	Roots []string
	// Output is the path of the binary database
	Output string
	// Strict fails the build on the first unreadable source or source with
	// malformed lines, instead of skipping the unreadable source or the
	// malformed lines
	Strict bool
}

// Result describes a finished build
type Result struct {
	SourceFiles int
	Parse       ParseStats
	Stats       format.Stats
	Fingerprint [20]byte
}

// EnumerateSources returns the source files of the given roots in the
// deterministic build order: sorted by basename, later roots overriding
// earlier ones. Missing roots are skipped
func EnumerateSources(roots []string) ([]string, error) {
	byName := make(map[string]string)
	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			if os.IsNotExist(err) {
				log.Debugf("source directory %s does not exist, skipping", root)
				continue
			}
			return nil, xerrors.Errorf("enumerate %s: %w", root, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), SourceSuffix) {
				continue
			}
			byName[e.Name()] = filepath.Join(root, e.Name())
		}
	}
	names := make([]string, 0, len(byName))
	for n := range byName {
		names = append(names, n)
	}
	sort.Strings(names)
	ret := make([]string, len(names))
	for i, n := range names {
		ret[i] = byName[n]
	}
	return ret, nil
}

// Compile runs a full build: enumerate sources, parse them into a fresh
// trie, pack the string pool and serialize atomically to cfg.Output.
// Unless cfg.Strict is set, unreadable sources are skipped and malformed
// lines are dropped while the rest of their source is kept;
// any failure affecting output integrity aborts the build and leaves a
// preexisting database in place
func Compile(cfg Config) (*Result, error) {
	files, err := EnumerateSources(cfg.Roots)
	if err != nil {
		return nil, err
	}

	pool := stringpool.New()
	tr := trie.New(pool)
	res := &Result{}
	for _, fname := range files {
		st, err := ParseFile(tr, fname)
		if err != nil {
			if cfg.Strict {
				return nil, xerrors.Errorf("%s: %w", fname, err)
			}
			log.Warnf("skipping source %s: %v", fname, err)
			continue
		}
		if cfg.Strict && st.Skipped > 0 {
			return nil, xerrors.Errorf("%s: %d malformed lines", fname, st.Skipped)
		}
		res.Parse.add(st)
		res.SourceFiles++
	}

	pool.Finalize()
	wst, err := format.Write(tr, cfg.Output)
	if err != nil {
		return nil, err
	}
	res.Stats = *wst
	if res.Fingerprint, err = hwdb_go.FileBlake2b160(cfg.Output); err != nil {
		return nil, xerrors.Errorf("fingerprint %s: %w", cfg.Output, err)
	}
	log.Infof("compiled %d source files: %d records, %d properties, %d nodes, %d bytes strings, fingerprint %x",
		res.SourceFiles, res.Parse.Records, res.Parse.Properties, res.Stats.Nodes, res.Stats.StringsLen, res.Fingerprint)
	return res, nil
}
