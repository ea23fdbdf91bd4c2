// Package ledger provides persistence adapters for the run ledger.
package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	domain "github.com/felixgeelhaar/hostprep/internal/domain/ledger"
)

// JSONLRepository stores ledger entries as line-delimited JSON in a
// single append-only file. The format is deliberately boring: one
// record per line, readable with standard shell tools, survives
// process restart, and appending never rewrites history.
type JSONLRepository struct {
	mu   sync.Mutex
	path string
}

// NewJSONLRepository creates a repository backed by the given file.
// The file and its directory are created on first append.
func NewJSONLRepository(path string) *JSONLRepository {
	return &JSONLRepository{path: path}
}

// Path returns the ledger file path.
func (r *JSONLRepository) Path() string {
	return r.path
}

// Append writes one entry as a JSON line and syncs it to disk.
func (r *JSONLRepository) Append(_ context.Context, entry domain.Entry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid ledger entry: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal ledger entry: %w", err)
	}
	data = append(data, '\n')

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	// The ledger is what a rerun trusts after a crash; flush it.
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync ledger: %w", err)
	}
	return nil
}

// Entries reads all recorded entries in append order. Unparseable
// lines are skipped so one corrupt record does not make the whole
// history unreadable.
func (r *JSONLRepository) Entries(_ context.Context) ([]domain.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer func() { _ = file.Close() }()

	entries := make([]domain.Entry, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry domain.Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	return entries, nil
}

// Ensure JSONLRepository implements ledger.Repository.
var _ domain.Repository = (*JSONLRepository)(nil)
