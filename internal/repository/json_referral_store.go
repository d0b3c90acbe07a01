package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tabiguide-next/internal/models"
)

// JSONReferralStore keeps the ledger as a single JSON array in a flat file
type JSONReferralStore struct {
	path string
}

// NewJSONReferralStore creates a file store; the file is created on first Load
func NewJSONReferralStore(path string) *JSONReferralStore {
	return &JSONReferralStore{path: filepath.Clean(path)}
}

// Location returns the ledger file path
func (s *JSONReferralStore) Location() string {
	return s.path
}

// Load reads and parses the whole file. A missing file is created holding an empty array.
func (s *JSONReferralStore) Load(ctx context.Context) ([]models.Referral, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read ledger file %s: %w", s.path, err)
		}
		if err := writeFileAtomic(s.path, []byte("[]")); err != nil {
			return nil, fmt.Errorf("initialise ledger file %s: %w", s.path, err)
		}
		return []models.Referral{}, nil
	}

	var referrals []models.Referral
	if err := json.Unmarshal(bytes.TrimSpace(content), &referrals); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStoreCorrupt, s.path, err)
	}
	if referrals == nil {
		referrals = []models.Referral{}
	}
	return referrals, nil
}

// Save serialises the collection and replaces the file atomically
func (s *JSONReferralStore) Save(ctx context.Context, referrals []models.Referral) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if referrals == nil {
		referrals = []models.Referral{}
	}
	content, err := json.MarshalIndent(referrals, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := writeFileAtomic(s.path, content); err != nil {
		return fmt.Errorf("write ledger file %s: %w", s.path, err)
	}
	return nil
}

// Close is a no-op
func (s *JSONReferralStore) Close() error {
	return nil
}

// writeFileAtomic writes to a sibling temp file and renames it over path
func writeFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName)
	}
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
