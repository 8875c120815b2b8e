package feature

import (
	"bytes"
	"errors"
	"io"
	"os"
	"runtime"
)

// Visitor is called once per decoded record. offset is the byte offset of
// the record's frame header within the file, stable across runs (spec.md
// §4.1 / §6.1: decoding at a record boundary reproduces a sequential read).
type Visitor func(rec *Record, offset int64) error

// ForEachParallel streams every record in path exactly once, fanning the
// scan out across numWorkers goroutines over disjoint byte ranges.
//
// Each worker decodes its range sequentially and calls visit for every
// record it owns; visit is never called concurrently by the same worker,
// but different workers call it concurrently with each other, matching
// spec.md §4.1's ordering contract. The caller is responsible for any
// synchronization visit itself needs (the pipeline passes guard their
// shared maps with their own mutexes).
//
// Grounded on pkg/v1/parallel.go's LoadCellsParallel fork-join shape,
// adapted from "one job per path" to "one job per byte range".
func ForEachParallel(path string, numWorkers int, visit Visitor) error {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	f, err := os.Open(path)
	if err != nil {
		return &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return &IOError{Op: "stat", Path: path, Err: err}
	}
	size := info.Size()
	if size == 0 {
		return nil
	}

	if int64(numWorkers) > size {
		numWorkers = 1
	}

	bounds, err := partitionBounds(f, size, numWorkers)
	if err != nil {
		return err
	}

	type workerResult struct {
		err error
	}
	results := make(chan workerResult, len(bounds)-1)

	for i := 0; i < len(bounds)-1; i++ {
		start, end := bounds[i], bounds[i+1]
		go func(start, end int64) {
			results <- workerResult{err: scanRange(path, start, end, visit)}
		}(start, end)
	}

	var firstErr error
	for i := 0; i < len(bounds)-1; i++ {
		if r := <-results; r.err != nil && firstErr == nil {
			firstErr = r.err
		}
	}
	return firstErr
}

// partitionBounds splits [0, size) into numWorkers ranges, realigning each
// interior boundary to the next record frame so no worker starts mid-record.
func partitionBounds(f *os.File, size int64, numWorkers int) ([]int64, error) {
	bounds := make([]int64, numWorkers+1)
	bounds[0] = 0
	bounds[numWorkers] = size

	for i := 1; i < numWorkers; i++ {
		target := size / int64(numWorkers) * int64(i)
		aligned, err := nextFrameOffset(f, target, size)
		if err != nil {
			return nil, err
		}
		bounds[i] = aligned
	}

	// A degenerate file (all boundaries realign to EOF because there is
	// only one big record near the tail) collapses to fewer ranges; drop
	// empty ranges so scanRange never receives start == end from a
	// nonzero range other than intentionally-empty tail ranges.
	out := bounds[:1]
	for i := 1; i <= numWorkers; i++ {
		if bounds[i] > out[len(out)-1] {
			out = append(out, bounds[i])
		}
	}
	if out[len(out)-1] != size {
		out = append(out, size)
	}
	return out, nil
}

// nextFrameOffset returns the offset of the first record frame at or after
// target, scanning for frameMagic. Returns size if none is found before EOF.
func nextFrameOffset(f *os.File, target, size int64) (int64, error) {
	if target >= size {
		return size, nil
	}

	const window = 1 << 20 // 1MB scan window, generous for any realistic record size
	buf := make([]byte, 0, window)
	pos := target

	for pos < size {
		readLen := window
		if remaining := size - pos; remaining < int64(readLen) {
			readLen = int(remaining)
		}
		chunk := make([]byte, readLen)
		n, err := f.ReadAt(chunk, pos)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, &IOError{Op: "read", Path: f.Name(), Err: err}
		}
		chunk = chunk[:n]
		_ = buf

		if idx := bytes.Index(chunk, frameMagic[:]); idx >= 0 {
			return pos + int64(idx), nil
		}

		pos += int64(n)
		if n == 0 {
			break
		}
	}
	return size, nil
}

// scanRange decodes every frame in [start, end) and invokes visit for each.
// A frame whose header begins before end but whose payload extends past it
// is still fully decoded by this worker, since the frame ownership is
// decided by header offset, not by payload extent.
func scanRange(path string, start, end int64, visit Visitor) error {
	if start >= end {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return &IOError{Op: "seek", Path: path, Err: err}
	}

	r := newBufferedReader(f)
	offset := start
	for offset < end {
		rec, err := readFrame(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		recOffset := offset
		offset += frameSize(rec)
		if err := visit(rec, recOffset); err != nil {
			return err
		}
	}
	return nil
}

// frameSize returns the on-disk size of rec's encoded frame: used only to
// advance the running offset reported to Visitor without re-reading the
// header, since scanRange already consumed the bytes via readFrame.
func frameSize(rec *Record) int64 {
	payload, _ := encodeRecord(rec)
	return int64(8 + len(payload))
}
