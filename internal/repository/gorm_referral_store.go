package repository

import (
	"context"
	"fmt"

	"github.com/tabiguide-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	gormSaveBatchSize = 200
	stalePosition     = -1
)

// GormReferralStore keeps the ledger in a relational table (sqlite or postgres)
type GormReferralStore struct {
	db     *gorm.DB
	driver string
}

// NewGormReferralStore creates a gorm-backed store. The referrals table must already be migrated.
func NewGormReferralStore(db *gorm.DB, driver string) *GormReferralStore {
	return &GormReferralStore{db: db, driver: driver}
}

// Location returns driver and table name
func (s *GormReferralStore) Location() string {
	return fmt.Sprintf("%s:%s", s.driver, models.Referral{}.TableName())
}

// Load returns every row ordered by position
func (s *GormReferralStore) Load(ctx context.Context) ([]models.Referral, error) {
	var rows []models.Referral
	if err := s.db.WithContext(ctx).Order("position ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.Referral{}
	}
	return rows, nil
}

// Save replaces the stored collection in one transaction. Every row is first parked at
// position -1, the upsert restores positions for the rows still present, and whatever
// remains parked is stale. No statement binds more than one batch of parameters.
func (s *GormReferralStore) Save(ctx context.Context, referrals []models.Referral) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Referral{}).Where("1 = 1").Update("position", stalePosition).Error; err != nil {
			return err
		}
		if len(referrals) > 0 {
			rows := make([]models.Referral, 0, len(referrals))
			for i := range referrals {
				row := referrals[i].Clone()
				row.Position = int64(i)
				rows = append(rows, row)
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).CreateInBatches(&rows, gormSaveBatchSize).Error
			if err != nil {
				return err
			}
		}
		return tx.Where("position = ?", stalePosition).Delete(&models.Referral{}).Error
	})
}

// Close closes the underlying connection pool
func (s *GormReferralStore) Close() error {
	return models.CloseDB(s.db)
}
