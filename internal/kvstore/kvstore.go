// Package kvstore implements the append-only object-id -> JSON descriptor
// store (spec.md §3/§4.2), grounded on pkg/s57/cache.go's mutex-guarded
// map plus stats-struct idiom.
package kvstore

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/omaps/geoobjectsgen/internal/address"
	"github.com/omaps/geoobjectsgen/internal/feature"
)

// Store is a thread-safe, insertion-ordered, append-only map from object id
// to JSON descriptor, backed by a line-oriented sink file. All operations
// serialize behind a single mutex (spec.md §4.2/§5): every insert holds the
// lock across both the in-memory update and the sink write.
type Store struct {
	mu      sync.Mutex
	values  map[feature.ObjectID]address.JSON
	sink    *bufio.Writer
	sinkF   *os.File
	entries int
}

// Open creates (or truncates) the sink file at path and returns an empty
// store backed by it.
func Open(path string) (*Store, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &feature.IOError{Op: "create", Path: path, Err: err}
	}
	return &Store{
		values: make(map[feature.ObjectID]address.JSON),
		sink:   bufio.NewWriterSize(f, 64*1024),
		sinkF:  f,
	}, nil
}

// Insert records id -> json and appends one "<dref>\t<json>\n" line to the
// sink (spec.md §4.2/§6.6). Duplicate inserts overwrite the in-memory value
// and still append a line; the pipeline never intentionally does this and
// callers that care should check Find first (spec.md §4.2's correctness
// note).
func (s *Store) Insert(id feature.ObjectID, json address.JSON) error {
	line, err := json.Marshal()
	if err != nil {
		return fmt.Errorf("marshal kv entry %s: %w", id.Dref(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.values[id]; !exists {
		s.entries++
	}
	s.values[id] = json

	if _, err := s.sink.WriteString(id.Dref()); err != nil {
		return &feature.IOError{Op: "write", Path: s.sinkF.Name(), Err: err}
	}
	if _, err := s.sink.WriteString("\t"); err != nil {
		return &feature.IOError{Op: "write", Path: s.sinkF.Name(), Err: err}
	}
	if _, err := s.sink.Write(line); err != nil {
		return &feature.IOError{Op: "write", Path: s.sinkF.Name(), Err: err}
	}
	if _, err := s.sink.WriteString("\n"); err != nil {
		return &feature.IOError{Op: "write", Path: s.sinkF.Name(), Err: err}
	}
	return nil
}

// Find returns the current JSON value for id if it was inserted earlier in
// this run, else ok is false.
func (s *Store) Find(id feature.ObjectID) (json address.JSON, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	json, ok = s.values[id]
	return json, ok
}

// Size returns the count of distinct ids inserted so far.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries
}

// Flush ensures every inserted line has reached the sink file, then closes
// it. Call once, after the final pass that writes to the store.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sink.Flush(); err != nil {
		return &feature.IOError{Op: "flush", Path: s.sinkF.Name(), Err: err}
	}
	return s.sinkF.Close()
}

// ReadFile loads an externally produced KV sink in this package's own
// "<dref>\t<json>\n" format (spec.md §6.6) into a plain map, keyed by
// object id. internal/regions uses this to load the regions KV its spatial
// index is joined against; nothing about the format is specific to this
// module's own output.
func ReadFile(path string) (map[feature.ObjectID]address.JSON, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &feature.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	out := make(map[feature.ObjectID]address.JSON)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed kv line %q", line)
		}
		id, err := feature.ParseObjectID(parts[0])
		if err != nil {
			return nil, fmt.Errorf("parse kv line dref %q: %w", parts[0], err)
		}
		j, err := address.Parse([]byte(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("parse kv line json for %s: %w", parts[0], err)
		}
		out[id] = j
	}
	if err := scanner.Err(); err != nil {
		return nil, &feature.IOError{Op: "read", Path: path, Err: err}
	}
	return out, nil
}
