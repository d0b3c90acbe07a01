package repository

import (
	"context"
	"errors"

	"github.com/tabiguide-next/internal/models"
)

// ErrStoreCorrupt the backing store holds something other than a list of referrals
var ErrStoreCorrupt = errors.New("referral store content is corrupt")

// ReferralStore whole-collection persistence for the referral ledger.
// Load returns every record in storage order; Save replaces the stored
// collection with the given one, preserving its order.
type ReferralStore interface {
	Load(ctx context.Context) ([]models.Referral, error)
	Save(ctx context.Context, referrals []models.Referral) error
	// Location describes where records live, for logs
	Location() string
	Close() error
}
