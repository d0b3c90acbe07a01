package service

import "errors"

// Validation errors
var (
	ErrMissingRequiredField    = errors.New("missing required field")
	ErrInvalidField            = errors.New("invalid field value")
	ErrInvalidCommissionStatus = errors.New("invalid commission status")
	ErrInvalidPatch            = errors.New("invalid referral patch")
)

// ErrReferralNotFound no referral has the requested id
var ErrReferralNotFound = errors.New("referral not found")

// Storage errors
var (
	ErrStorageRead  = errors.New("referral storage read failed")
	ErrStorageWrite = errors.New("referral storage write failed")
)

// IsValidationError reports whether err is caused by bad caller input
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingRequiredField) ||
		errors.Is(err, ErrInvalidField) ||
		errors.Is(err, ErrInvalidCommissionStatus) ||
		errors.Is(err, ErrInvalidPatch)
}

// IsStorageError reports whether err comes from the backing store
func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorageRead) || errors.Is(err, ErrStorageWrite)
}
