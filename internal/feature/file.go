package feature

import (
	"errors"
	"io"
	"os"
)

// WriteFile serializes recs to path in order, overwriting any existing
// file. Used by tests to produce feature fixture files.
func WriteFile(path string, recs []*Record) error {
	f, err := os.Create(path)
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	defer f.Close()

	w := newBufferedWriter(f)
	for _, rec := range recs {
		if err := writeFrame(w, rec); err != nil {
			return &IOError{Op: "write", Path: path, Err: err}
		}
	}
	return w.Flush()
}

// ReadAll decodes every record in path sequentially. Intended for small
// files (test fixtures and the regions index loaded by regions.Open), not
// for production-size passes (use ForEachParallel).
func ReadAll(path string) ([]*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	r := newBufferedReader(f)
	var recs []*Record
	for {
		rec, err := readFrame(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
