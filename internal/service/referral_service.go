package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tabiguide-next/internal/cache"
	"github.com/tabiguide-next/internal/constants"
	"github.com/tabiguide-next/internal/logger"
	"github.com/tabiguide-next/internal/models"
	"github.com/tabiguide-next/internal/queue"
	"github.com/tabiguide-next/internal/repository"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// CommissionEventPublisher receives commission status change notifications
type CommissionEventPublisher interface {
	EnqueueCommissionStatusChanged(payload queue.CommissionStatusChangedPayload, opts ...asynq.Option) error
}

// DashboardCache JSON cache used for per-guide dashboards
type DashboardCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// ReferralLedgerOptions ledger behaviour settings
type ReferralLedgerOptions struct {
	// FailOpenReads makes read operations return an empty collection when the store cannot be read
	FailOpenReads         bool
	RecentLimit           int
	DefaultCommissionRate string
	DefaultReferralSource string
}

// ReferralServiceOption optional dependency of ReferralService
type ReferralServiceOption func(*ReferralService)

// WithClock replaces the time source
func WithClock(now func() time.Time) ReferralServiceOption {
	return func(s *ReferralService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator replaces the referral id generator
func WithIDGenerator(newID func() string) ReferralServiceOption {
	return func(s *ReferralService) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithEventPublisher sets the commission status change publisher
func WithEventPublisher(publisher CommissionEventPublisher) ReferralServiceOption {
	return func(s *ReferralService) {
		s.publisher = publisher
	}
}

// WithDashboardCache caches dashboards for ttl
func WithDashboardCache(cache DashboardCache, ttl time.Duration) ReferralServiceOption {
	return func(s *ReferralService) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// ReferralService the referral ledger. Every operation runs under one mutex,
// so within a process a load-modify-save cycle never interleaves with another.
type ReferralService struct {
	mu        sync.Mutex
	store     repository.ReferralStore
	opts      ReferralLedgerOptions
	rate      models.Percent
	validate  *validator.Validate
	publisher CommissionEventPublisher
	cache     DashboardCache
	cacheTTL  time.Duration
	now       func() time.Time
	newID     func() string
}

// NewReferralService creates the ledger service
func NewReferralService(store repository.ReferralStore, opts ReferralLedgerOptions, options ...ReferralServiceOption) *ReferralService {
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = constants.DefaultRecentReferralLimit
	}
	if strings.TrimSpace(opts.DefaultReferralSource) == "" {
		opts.DefaultReferralSource = constants.DefaultReferralSource
	}
	rate, err := models.ParsePercent(strings.TrimSpace(opts.DefaultCommissionRate))
	if err != nil || validateCommissionRate(rate) != nil {
		if strings.TrimSpace(opts.DefaultCommissionRate) != "" {
			logger.Warnw("referral_default_commission_rate_invalid", "value", opts.DefaultCommissionRate)
		}
		rate, _ = models.ParsePercent(constants.DefaultCommissionRate)
	}

	s := &ReferralService{
		store:    store,
		opts:     opts,
		rate:     rate,
		validate: newInputValidator(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, option := range options {
		if option != nil {
			option(s)
		}
	}
	return s
}

// CreateReferralInput fields accepted when recording a referral
type CreateReferralInput struct {
	GuideID        string          `json:"guideId" validate:"required,max=128"`
	SponsorStoreID string          `json:"sponsorStoreId" validate:"required,max=128"`
	CommissionRate *models.Percent `json:"commissionRate" validate:"-"`
	ReferralSource string          `json:"referralSource" validate:"max=64"`
	Notes          string          `json:"notes"`
}

// CreateReferral records a new pending referral
func (s *ReferralService) CreateReferral(ctx context.Context, input CreateReferralInput) (*models.Referral, error) {
	input.GuideID = strings.TrimSpace(input.GuideID)
	input.SponsorStoreID = strings.TrimSpace(input.SponsorStoreID)
	input.ReferralSource = strings.TrimSpace(input.ReferralSource)
	if err := s.validateInput(input); err != nil {
		return nil, err
	}
	rate := s.rate
	if input.CommissionRate != nil {
		if err := validateCommissionRate(*input.CommissionRate); err != nil {
			return nil, err
		}
		rate = *input.CommissionRate
	}
	source := input.ReferralSource
	if source == "" {
		source = s.opts.DefaultReferralSource
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	referrals, err := s.loadForWrite(ctx, "create")
	if err != nil {
		return nil, err
	}
	now := s.timestamp()
	ref := models.Referral{
		ID:               s.newID(),
		GuideID:          input.GuideID,
		SponsorStoreID:   input.SponsorStoreID,
		ReferralDate:     now,
		CommissionRate:   rate,
		CommissionAmount: nil,
		CommissionStatus: constants.CommissionStatusPending,
		PaymentDate:      nil,
		ReferralSource:   source,
		Notes:            input.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	referrals = append(referrals, ref)
	if err := s.save(ctx, "create", referrals); err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx, ref.GuideID)

	logger.Infow("referral_created",
		"referral_id", ref.ID,
		"guide_id", ref.GuideID,
		"sponsor_store_id", ref.SponsorStoreID,
	)
	out := ref.Clone()
	return &out, nil
}

// GetReferralsByGuide lists a guide's referrals in storage order
func (s *ReferralService) GetReferralsByGuide(ctx context.Context, guideID string) ([]models.Referral, error) {
	guideID = strings.TrimSpace(guideID)
	if guideID == "" {
		return nil, fmt.Errorf("%w: guideId", ErrMissingRequiredField)
	}
	return s.filter(ctx, "list_by_guide", func(ref *models.Referral) bool {
		return ref.GuideID == guideID
	})
}

// GetReferralsByStore lists a sponsor store's referrals in storage order
func (s *ReferralService) GetReferralsByStore(ctx context.Context, storeID string) ([]models.Referral, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return nil, fmt.Errorf("%w: sponsorStoreId", ErrMissingRequiredField)
	}
	return s.filter(ctx, "list_by_store", func(ref *models.Referral) bool {
		return ref.SponsorStoreID == storeID
	})
}

// GetAllReferrals returns every referral plus global stats
func (s *ReferralService) GetAllReferrals(ctx context.Context) ([]models.Referral, ReferralStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	referrals, err := s.loadForRead(ctx, "list_all")
	if err != nil {
		return nil, ReferralStats{}, err
	}
	return referrals, computeReferralStats(referrals), nil
}

// UpdateReferral merges patch onto the referral with the given id
func (s *ReferralService) UpdateReferral(ctx context.Context, id string, patch ReferralPatch) (*models.Referral, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: id", ErrMissingRequiredField)
	}
	if err := patch.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	referrals, err := s.loadForWrite(ctx, "update")
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(referrals, func(ref models.Referral) bool {
		return ref.ID == id
	})
	if idx < 0 {
		return nil, ErrReferralNotFound
	}

	previous := referrals[idx]
	updated := patch.apply(previous)
	now := s.timestamp()
	updated.UpdatedAt = now
	if updated.CommissionStatus == constants.CommissionStatusPaid && updated.PaymentDate == nil {
		paid := now
		updated.PaymentDate = &paid
	}
	referrals[idx] = updated
	if err := s.save(ctx, "update", referrals); err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx, updated.GuideID)

	logger.Infow("referral_updated",
		"referral_id", updated.ID,
		"guide_id", updated.GuideID,
		"commission_status", updated.CommissionStatus,
	)
	if previous.CommissionStatus != updated.CommissionStatus {
		s.publishStatusChange(previous, updated, now)
	}
	out := updated.Clone()
	return &out, nil
}

// GetCommissionDashboard aggregates one guide's referrals
func (s *ReferralService) GetCommissionDashboard(ctx context.Context, guideID string) (*CommissionDashboard, error) {
	guideID = strings.TrimSpace(guideID)
	if guideID == "" {
		return nil, fmt.Errorf("%w: guideId", ErrMissingRequiredField)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := cache.DashboardKey(guideID)
	if s.cache != nil {
		var cached CommissionDashboard
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			logger.Warnw("referral_dashboard_cache_get_failed", "guide_id", guideID, "error", err)
		} else if hit {
			return &cached, nil
		}
	}

	referrals, degraded, err := s.readLedger(ctx, "dashboard")
	if err != nil {
		return nil, err
	}
	dashboard := computeCommissionDashboard(referrals, guideID, s.opts.RecentLimit)
	if s.cache != nil && !degraded {
		if err := s.cache.SetJSON(ctx, key, dashboard, s.cacheTTL); err != nil {
			logger.Warnw("referral_dashboard_cache_set_failed", "guide_id", guideID, "error", err)
		}
	}
	return dashboard, nil
}

// CountReferrals counts stored referrals, surfacing read failures regardless of FailOpenReads
func (s *ReferralService) CountReferrals(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	referrals, err := s.loadForWrite(ctx, "count")
	if err != nil {
		return 0, err
	}
	return len(referrals), nil
}

// Snapshot returns a copy of the whole ledger, surfacing read failures
func (s *ReferralService) Snapshot(ctx context.Context) ([]models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadForWrite(ctx, "snapshot")
}

// StoreLocation describes the backing store
func (s *ReferralService) StoreLocation() string {
	return s.store.Location()
}

func (s *ReferralService) filter(ctx context.Context, operation string, keep func(*models.Referral) bool) ([]models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	referrals, err := s.loadForRead(ctx, operation)
	if err != nil {
		return nil, err
	}
	out := make([]models.Referral, 0)
	for i := range referrals {
		if keep(&referrals[i]) {
			out = append(out, referrals[i])
		}
	}
	return out, nil
}

// loadForRead applies the fail-open policy: an unreadable store reads as empty
func (s *ReferralService) loadForRead(ctx context.Context, operation string) ([]models.Referral, error) {
	referrals, _, err := s.readLedger(ctx, operation)
	return referrals, err
}

// readLedger reports whether FailOpenReads replaced an unreadable ledger with an empty one
func (s *ReferralService) readLedger(ctx context.Context, operation string) ([]models.Referral, bool, error) {
	referrals, err := s.store.Load(ctx)
	if err == nil {
		return referrals, false, nil
	}
	s.logReadFailure(operation, err)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, false, ctxErr
	}
	if s.opts.FailOpenReads {
		return []models.Referral{}, true, nil
	}
	return nil, false, fmt.Errorf("%w: %w", ErrStorageRead, err)
}

// loadForWrite never fails open, so an unreadable ledger is not overwritten
func (s *ReferralService) loadForWrite(ctx context.Context, operation string) ([]models.Referral, error) {
	referrals, err := s.store.Load(ctx)
	if err != nil {
		s.logReadFailure(operation, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrStorageRead, err)
	}
	return referrals, nil
}

func (s *ReferralService) save(ctx context.Context, operation string, referrals []models.Referral) error {
	if err := s.store.Save(ctx, referrals); err != nil {
		logger.Errorw("referral_store_write_failed",
			"operation", operation,
			"path", s.store.Location(),
			"error", err,
		)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	return nil
}

func (s *ReferralService) logReadFailure(operation string, err error) {
	logger.Errorw("referral_store_read_failed",
		"operation", operation,
		"path", s.store.Location(),
		"fail_open", s.opts.FailOpenReads,
		"corrupt", errors.Is(err, repository.ErrStoreCorrupt),
		"error", err,
	)
}

func (s *ReferralService) invalidateDashboard(ctx context.Context, guideID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cache.DashboardKey(guideID)); err != nil {
		logger.Warnw("referral_dashboard_cache_invalidate_failed", "guide_id", guideID, "error", err)
	}
}

func (s *ReferralService) publishStatusChange(previous, updated models.Referral, at time.Time) {
	if s.publisher == nil {
		return
	}
	payload := queue.CommissionStatusChangedPayload{
		ReferralID:     updated.ID,
		GuideID:        updated.GuideID,
		SponsorStoreID: updated.SponsorStoreID,
		From:           previous.CommissionStatus,
		To:             updated.CommissionStatus,
		ChangedAt:      at,
	}
	if err := s.publisher.EnqueueCommissionStatusChanged(payload); err != nil {
		logger.Warnw("referral_status_change_enqueue_failed",
			"referral_id", updated.ID,
			"from", payload.From,
			"to", payload.To,
			"error", err,
		)
	}
}

func (s *ReferralService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *ReferralService) validateInput(input CreateReferralInput) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	first := fieldErrs[0]
	if first.Tag() == "required" {
		return fmt.Errorf("%w: %s", ErrMissingRequiredField, first.Field())
	}
	return fmt.Errorf("%w: %s failed %s", ErrInvalidField, first.Field(), first.Tag())
}

func newInputValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

func isCommissionStatus(status string) bool {
	return slices.Contains(constants.CommissionStatuses, status)
}
