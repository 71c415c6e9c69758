package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/temirov/corpusgen/internal/fsops"
)

// OutOfScopeSentinel marks records whose request is outside the
// command model's scope and must be handed to the cloud assistant.
const OutOfScopeSentinel = "PASS_TO_CLOUD"

const (
	storeFilePermissions      = 0o644
	storeDirectoryPermissions = 0o755
	newline                   = byte('\n')
)

// Record is one persisted training example. Records are immutable
// once appended.
type Record struct {
	Input    string `json:"input"`
	Output   string `json:"output"`
	Pipeline string `json:"pipeline"`
}

// Store reads and appends newline-delimited JSON record logs. Each
// pipeline owns exactly one log file and is its only writer.
type Store struct {
	FS fsops.FS
}

func New(filesystem fsops.FS) Store { return Store{FS: filesystem} }

// Count returns the number of non-empty lines in the log at path.
// A missing file counts as zero; progress is measured purely by line
// count, never by inspecting content.
func (s Store) Count(path string) (int, error) {
	content, readErr := s.FS.ReadFile(path)
	if readErr != nil {
		if errors.Is(readErr, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("count store %s: %w", path, readErr)
	}
	return countNonEmptyLines(content), nil
}

// Append durably writes one line per record to the log at path,
// creating parent directories and the file as needed.
func (s Store) Append(path string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.FS.MkdirAll(s.FS.Dir(path), storeDirectoryPermissions); err != nil {
		return fmt.Errorf("ensure store directory for %s: %w", path, err)
	}
	var buffer bytes.Buffer
	for _, record := range records {
		encoded, marshalErr := json.Marshal(record)
		if marshalErr != nil {
			return fmt.Errorf("encode record for %s: %w", path, marshalErr)
		}
		buffer.Write(encoded)
		buffer.WriteByte(newline)
	}
	if err := s.FS.AppendFile(path, buffer.Bytes(), storeFilePermissions); err != nil {
		return fmt.Errorf("append store %s: %w", path, err)
	}
	return nil
}

// Merge rewrites destination from scratch as the ordered concatenation
// of the non-empty lines of every source log, unmodified. Missing
// sources are skipped. It returns the merged line count.
func (s Store) Merge(sources []string, destination string) (int, error) {
	var merged bytes.Buffer
	total := 0
	for _, source := range sources {
		content, readErr := s.FS.ReadFile(source)
		if readErr != nil {
			if errors.Is(readErr, fs.ErrNotExist) {
				continue
			}
			return 0, fmt.Errorf("read store %s: %w", source, readErr)
		}
		for _, line := range bytes.Split(content, []byte{newline}) {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			merged.Write(line)
			merged.WriteByte(newline)
			total++
		}
	}
	if err := s.FS.MkdirAll(s.FS.Dir(destination), storeDirectoryPermissions); err != nil {
		return 0, fmt.Errorf("ensure merge directory for %s: %w", destination, err)
	}
	if err := s.FS.WriteFile(destination, merged.Bytes(), storeFilePermissions); err != nil {
		return 0, fmt.Errorf("write merged corpus %s: %w", destination, err)
	}
	return total, nil
}

func countNonEmptyLines(content []byte) int {
	count := 0
	for _, line := range bytes.Split(content, []byte{newline}) {
		if len(bytes.TrimSpace(line)) > 0 {
			count++
		}
	}
	return count
}
