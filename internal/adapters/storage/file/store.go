package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bnema/campus-session/internal/domain"
	"github.com/bnema/campus-session/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	storeDirMode    = 0o700
	entryFileMode   = 0o600
	entryExtension  = ".toml"
	tempFilePattern = ".entry-*.toml.tmp"
)

// Store keeps one TOML document per key under root.
type Store struct {
	root  string
	clock ports.Clock
	mu    sync.RWMutex
}

var _ ports.KeyValueStore = (*Store)(nil)

func NewStore(root string) *Store {
	return NewStoreWithClock(root, ports.SystemClock{})
}

func NewStoreWithClock(root string, clock ports.Clock) *Store {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Store{root: filepath.Clean(root), clock: clock}
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathForKey(key)
	if err != nil {
		return err
	}

	entry := entrySchema{
		Key:       key,
		Value:     value,
		UpdatedAt: s.clock.Now().UTC().Format(time.RFC3339),
	}
	entry.applyDefaults()

	data, err := toml.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode storage entry %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("write storage entry %q: %w", key, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := s.pathForKey(key)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("storage entry %q: %w", key, domain.ErrKeyNotFound)
		}
		return "", fmt.Errorf("read storage entry %q: %w", key, err)
	}

	var entry entrySchema
	if err := toml.Unmarshal(data, &entry); err != nil {
		return "", fmt.Errorf("decode storage entry %q: %w", key, err)
	}
	if err := entry.validateVersion(); err != nil {
		return "", err
	}

	return entry.Value, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathForKey(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete storage entry %q: %w", key, err)
	}

	return nil
}

func (s *Store) pathForKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", errors.New("storage key is empty")
	}

	cleaned := filepath.Clean(trimmed)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") || cleaned == "." {
		return "", fmt.Errorf("invalid storage key %q", key)
	}

	return filepath.Join(s.root, cleaned+entryExtension), nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), storeDirMode); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tempFile.Chmod(entryFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace entry file: %w", err)
	}

	cleanup = false
	return nil
}
