package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/nao1215/k8crawler/internal/model"
)

// maxLineSize bounds a single NDJSON line when reading an existing file.
const maxLineSize = 4 << 20

// JSONL appends one JSON object per line to a file.
//
// Fingerprints already in the file are loaded on open and skipped on
// write, which keeps the file free of duplicates across runs.
type JSONL struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	w       *bufio.Writer
	written map[model.Fingerprint]struct{}
	closed  bool
}

// OpenJSONL opens or creates the NDJSON file at path.
func OpenJSONL(path string) (*JSONL, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	written, err := readFingerprints(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return &JSONL{
		path:    path,
		file:    f,
		w:       bufio.NewWriter(f),
		written: written,
	}, nil
}

func readFingerprints(r io.Reader) (map[model.Fingerprint]struct{}, error) {
	written := make(map[model.Fingerprint]struct{})
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		var line struct {
			Fingerprint model.Fingerprint `json:"fingerprint"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil || line.Fingerprint == "" {
			continue // tolerate a truncated last line
		}
		written[line.Fingerprint] = struct{}{}
	}
	return written, scanner.Err()
}

// Write appends rec unless its fingerprint is already in the file. Each
// line is flushed before Write returns.
func (j *JSONL) Write(_ context.Context, rec *model.CandidateRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return wrap("jsonl", rec, ErrClosed)
	}
	if _, ok := j.written[rec.Fingerprint]; ok {
		return nil
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return wrap("jsonl", rec, err)
	}
	line = append(line, '\n')
	if _, err := j.w.Write(line); err != nil {
		return wrap("jsonl", rec, err)
	}
	if err := j.w.Flush(); err != nil {
		return wrap("jsonl", rec, err)
	}
	j.written[rec.Fingerprint] = struct{}{}
	return nil
}

// Ping reports whether the file is still open and present.
func (j *JSONL) Ping(context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrClosed
	}
	if _, err := j.file.Stat(); err != nil {
		return fmt.Errorf("jsonl sink %s: %w", j.path, err)
	}
	return nil
}

// Close flushes and closes the file.
func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return errors.Join(j.w.Flush(), j.file.Sync(), j.file.Close())
}

// DeadLetterFile appends dead letters as NDJSON.
type DeadLetterFile struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// OpenDeadLetterFile opens or creates the dead-letter file at path.
func OpenDeadLetterFile(path string) (*DeadLetterFile, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create dead-letter directory: %w", err)
		}
	}
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &DeadLetterFile{file: f, enc: json.NewEncoder(f)}, nil
}

// DeadLetter appends dl as one line.
func (d *DeadLetterFile) DeadLetter(_ context.Context, dl *model.DeadLetter) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enc.Encode(dl)
}

// Close closes the file.
func (d *DeadLetterFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.Close()
}
