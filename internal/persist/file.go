package persist

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/minio/crc64nvme"
	"github.com/rs/zerolog/log"
)

const recordPrefix = "crc64nvme:"

// FileStore keeps each key in its own file on the local filesystem.
//
// Record format:
//   - header line: "crc64nvme:" followed by the 16 hex digit CRC64-NVME of the value
//   - value bytes, unmodified
type FileStore struct {
	baseDir string
	mu      sync.Mutex
}

// NewFileStore creates a file backed store.
// If baseDir is empty, uses ~/.certifychain/session/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".certifychain", "session")
	}

	// Create directory with 0700 permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	log.Debug().Str("baseDir", baseDir).Msg("session store initialized")

	return &FileStore{baseDir: baseDir}, nil
}

// Dir returns the directory holding the store's files.
func (s *FileStore) Dir() string {
	return s.baseDir
}

// Put writes the value atomically.
func (s *FileStore) Put(key, value string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Write to temp file first
	path := filepath.Join(s.baseDir, key)
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, encodeRecord([]byte(value)), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save %s: %w", key, err)
	}

	return nil
}

// Get reads a value. Returns ErrNotFound when the key has never been
// written or was removed, and ErrCorrupt when the checksum does not match.
func (s *FileStore) Get(key string) (string, error) {
	if !validKey(key) {
		return "", ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.baseDir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}

	value, err := decodeRecord(data)
	if err != nil {
		log.Debug().Str("key", key).Msg("stored value failed checksum")
		return "", err
	}

	return string(value), nil
}

// Remove deletes a value. Removing a missing key is not an error.
func (s *FileStore) Remove(key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filepath.Join(s.baseDir, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}

	return nil
}

func encodeRecord(value []byte) []byte {
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "%s%016x\n", recordPrefix, computeCRC64(value))
	buf.Write(value)
	return buf.Bytes()
}

func decodeRecord(data []byte) ([]byte, error) {
	header, value, ok := bytes.Cut(data, []byte{'\n'})
	if !ok || !bytes.HasPrefix(header, []byte(recordPrefix)) {
		return nil, ErrCorrupt
	}

	stored, err := strconv.ParseUint(string(header[len(recordPrefix):]), 16, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if computeCRC64(value) != stored {
		return nil, ErrCorrupt
	}

	return value, nil
}

// computeCRC64 computes CRC64-NVME checksum
func computeCRC64(data []byte) uint64 {
	h := crc64nvme.New()
	h.Write(data)
	return h.Sum64()
}
