package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tabiguide-next/internal/constants"
	"github.com/tabiguide-next/internal/models"

	bolt "go.etcd.io/bbolt"
)

// BoltReferralStore keeps the ledger in an embedded bbolt file, one key per record.
// Keys are zero-padded positions so that cursor order equals storage order.
type BoltReferralStore struct {
	db     *bolt.DB
	path   string
	bucket []byte
}

// OpenBoltReferralStore opens (creating if needed) the bolt file at path
func OpenBoltReferralStore(path string) (*BoltReferralStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create bolt dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}
	bucket := []byte(constants.LedgerBoltBucket)
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bolt bucket: %w", err)
	}
	return &BoltReferralStore{db: db, path: path, bucket: bucket}, nil
}

// Location returns the bolt file path
func (s *BoltReferralStore) Location() string {
	return s.path
}

// Load walks the bucket in key order
func (s *BoltReferralStore) Load(ctx context.Context) ([]models.Referral, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	referrals := []models.Referral{}
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var ref models.Referral
			if err := json.Unmarshal(v, &ref); err != nil {
				return fmt.Errorf("%w: key %s: %v", ErrStoreCorrupt, string(k), err)
			}
			referrals = append(referrals, ref)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return referrals, nil
}

// Save rewrites the bucket in a single transaction
func (s *BoltReferralStore) Save(ctx context.Context, referrals []models.Referral) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(s.bucket) != nil {
			if err := tx.DeleteBucket(s.bucket); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(s.bucket)
		if err != nil {
			return err
		}
		for i := range referrals {
			value, err := json.Marshal(referrals[i])
			if err != nil {
				return fmt.Errorf("encode referral %s: %w", referrals[i].ID, err)
			}
			if err := b.Put(boltPositionKey(i), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close releases the bolt file lock
func (s *BoltReferralStore) Close() error {
	return s.db.Close()
}

func boltPositionKey(position int) []byte {
	return []byte(fmt.Sprintf("%020d", position))
}
