package audit

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ppiankov/promptguard/internal/model"
)

// GenesisHash is the prev_hash for the first entry in a new log file.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// FileSink is an append-only JSONL event log with SHA-256 hash chaining.
// Each entry's prev_hash is the hash of the previous entry's JSON line,
// forming a tamper-evident chain.
type FileSink struct {
	path     string
	file     *os.File
	prevHash string
	mu       sync.Mutex
}

// OpenFile opens (or creates) a log file for appending.
// If the file already exists, it reads the last line to recover the chain tail.
func OpenFile(path string) (*FileSink, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	prevHash := GenesisHash

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("audit: read existing log: %w", err)
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		var lastLine []byte
		for scanner.Scan() {
			lastLine = make([]byte, len(scanner.Bytes()))
			copy(lastLine, scanner.Bytes())
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("audit: scan existing log: %w", err)
		}
		if len(lastLine) > 0 {
			prevHash = HashLine(lastLine)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}

	return &FileSink{
		path:     path,
		file:     file,
		prevHash: prevHash,
	}, nil
}

// Name identifies the sink in errors and logs.
func (l *FileSink) Name() string { return "file:" + l.path }

// Path returns the log file path.
func (l *FileSink) Path() string { return l.path }

// Write appends ev as one chained line and syncs to disk.
func (l *FileSink) Write(_ context.Context, ev model.SafetyEvent) error {
	return l.Record(EntryFromEvent(ev))
}

// Record appends an Entry with hash chaining.
func (l *FileSink) Record(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.PrevHash = l.prevHash

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}

	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}

	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}

	l.prevHash = HashLine(line)
	return nil
}

// Close flushes and closes the underlying file.
func (l *FileSink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}

// maxLineSize bounds a single JSONL line when reading logs back.
const maxLineSize = 1024 * 1024
