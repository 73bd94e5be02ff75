// Package hwdb turns textual hardware description sources into a compiled
// binary database. Sources are record-oriented: one or more match patterns,
// followed by space-indented KEY=VALUE property lines, records separated by
// blank lines.
package hwdb

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"golang.org/x/xerrors"

	"github.com/hwdbgo/hwdb.go/log"
	"github.com/hwdbgo/hwdb.go/trie"
)

type parseState int

const (
	stateNone  parseState = iota // between records
	stateMatch                   // collecting match patterns
	stateData                    // collecting properties
)

// ParseStats counts the outcome of parsing one source
type ParseStats struct {
	Records    int
	Properties int
	Skipped    int
}

func (s *ParseStats) add(o *ParseStats) {
	s.Records += o.Records
	s.Properties += o.Properties
	s.Skipped += o.Skipped
}

// ParseFile feeds all records of the source file into the trie
func ParseFile(tr *trie.Trie, fname string) (*ParseStats, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, xerrors.Errorf("open source: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseReader(tr, f, fname)
}

// ParseReader parses the record stream from r. fname is used in diagnostics
// only. Malformed lines are counted, logged at debug severity and skipped;
// only read failures produce an error
func ParseReader(tr *trie.Trie, r io.Reader, fname string) (*ParseStats, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	st := &ParseStats{}
	state := stateNone
	var matches [][]byte
	ln := 0

	skip := func(reason string) {
		st.Skipped++
		log.Debugf("%s:%d: %s, ignoring line", fname, ln, reason)
	}
	property := func(line []byte) bool {
		prop := line[1:]
		eq := bytes.IndexByte(prop, '=')
		if eq < 0 {
			skip("property line without '='")
			return false
		}
		key := prop[:eq]
		value := prop[eq+1:]
		for _, m := range matches {
			if err := tr.Insert(m, key, value); err != nil {
				skip(err.Error())
				return false
			}
		}
		st.Properties++
		return true
	}

	for scanner.Scan() {
		ln++
		line := scanner.Bytes()
		if len(line) > 0 && line[0] == '#' {
			continue
		}
		switch state {
		case stateNone:
			if len(line) == 0 {
				continue
			}
			if line[0] == ' ' {
				skip("property without preceding match pattern")
				continue
			}
			matches = append(matches[:0], append([]byte(nil), line...))
			state = stateMatch
			st.Records++

		case stateMatch:
			if len(line) == 0 {
				skip("match pattern without properties")
				matches = nil
				state = stateNone
				continue
			}
			if line[0] != ' ' {
				// further pattern of the same record
				matches = append(matches, append([]byte(nil), line...))
				continue
			}
			if property(line) {
				state = stateData
			}

		case stateData:
			if len(line) == 0 {
				matches = nil
				state = stateNone
				continue
			}
			if line[0] != ' ' {
				skip("match pattern inside property block")
				continue
			}
			property(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return st, xerrors.Errorf("read source: %w", err)
	}
	if state == stateMatch {
		skip("match pattern without properties")
	}
	return st, nil
}
