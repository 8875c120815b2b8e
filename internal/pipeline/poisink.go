package pipeline

import (
	"bufio"
	"os"
	"sync"

	"github.com/omaps/geoobjectsgen/internal/feature"
)

// poiSink appends one decimal object id per line (spec.md §6.7), guarded
// by a mutex since pass 4 runs concurrently across workers; the side
// stream's line order is explicitly not a tested invariant.
type poiSink struct {
	mu sync.Mutex
	w  *bufio.Writer
	f  *os.File
}

func openPOISink(path string) (*poiSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &feature.IOError{Op: "create", Path: path, Err: err}
	}
	return &poiSink{w: bufio.NewWriterSize(f, 64*1024), f: f}, nil
}

func (s *poiSink) Append(id feature.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.WriteString(id.Dref()); err != nil {
		return &feature.IOError{Op: "write", Path: s.f.Name(), Err: err}
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return &feature.IOError{Op: "write", Path: s.f.Name(), Err: err}
	}
	return nil
}

func (s *poiSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.w.Flush(); err != nil {
		return &feature.IOError{Op: "flush", Path: s.f.Name(), Err: err}
	}
	return s.f.Close()
}
