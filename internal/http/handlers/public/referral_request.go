package public

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/tabiguide-next/internal/models"
	"github.com/tabiguide-next/internal/service"
)

// CreateReferralRequest body of POST /api/referrals
type CreateReferralRequest struct {
	GuideID        string          `json:"guideId"`
	SponsorStoreID string          `json:"sponsorStoreId"`
	CommissionRate *models.Percent `json:"commissionRate"`
	ReferralSource string          `json:"referralSource"`
	Notes          string          `json:"notes"`
}

func (r CreateReferralRequest) toInput() service.CreateReferralInput {
	return service.CreateReferralInput{
		GuideID:        r.GuideID,
		SponsorStoreID: r.SponsorStoreID,
		CommissionRate: r.CommissionRate,
		ReferralSource: r.ReferralSource,
		Notes:          r.Notes,
	}
}

var immutableReferralFields = map[string]struct{}{
	"id":             {},
	"guideId":        {},
	"sponsorStoreId": {},
	"referralDate":   {},
	"createdAt":      {},
	"updatedAt":      {},
}

// decodeReferralPatch turns a PUT body into a typed patch. Unknown and immutable keys are rejected.
func decodeReferralPatch(body []byte) (service.ReferralPatch, error) {
	var patch service.ReferralPatch
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return patch, fmt.Errorf("%w: body must be a JSON object: %w", service.ErrInvalidPatch, err)
	}

	for _, key := range slices.Sorted(maps.Keys(raw)) {
		value := raw[key]
		if _, immutable := immutableReferralFields[key]; immutable {
			return patch, fmt.Errorf("%w: %s cannot be changed", service.ErrInvalidPatch, key)
		}
		switch key {
		case "commissionRate":
			if isJSONNull(value) {
				return patch, fmt.Errorf("%w: commissionRate must not be null", service.ErrInvalidField)
			}
			var rate models.Percent
			if err := json.Unmarshal(value, &rate); err != nil {
				return patch, fmt.Errorf("%w: commissionRate: %w", service.ErrInvalidField, err)
			}
			patch.CommissionRate = &rate
		case "commissionAmount":
			patch.CommissionAmount.Set = true
			if !isJSONNull(value) {
				var amount models.Money
				if err := json.Unmarshal(value, &amount); err != nil {
					return patch, fmt.Errorf("%w: commissionAmount: %w", service.ErrInvalidPatch, err)
				}
				patch.CommissionAmount.Value = &amount
			}
		case "commissionStatus":
			var status string
			if err := json.Unmarshal(value, &status); err != nil || isJSONNull(value) {
				return patch, fmt.Errorf("%w: commissionStatus must be a string", service.ErrInvalidCommissionStatus)
			}
			patch.CommissionStatus = &status
		case "paymentDate":
			patch.PaymentDate.Set = true
			if !isJSONNull(value) {
				var paid time.Time
				if err := json.Unmarshal(value, &paid); err != nil {
					return patch, fmt.Errorf("%w: paymentDate: %w", service.ErrInvalidField, err)
				}
				patch.PaymentDate.Value = &paid
			}
		case "referralSource":
			var source string
			if err := json.Unmarshal(value, &source); err != nil || isJSONNull(value) {
				return patch, fmt.Errorf("%w: referralSource must be a string", service.ErrInvalidField)
			}
			patch.ReferralSource = &source
		case "notes":
			var notes string
			if !isJSONNull(value) {
				if err := json.Unmarshal(value, &notes); err != nil {
					return patch, fmt.Errorf("%w: notes must be a string", service.ErrInvalidField)
				}
			}
			patch.Notes = &notes
		default:
			return patch, fmt.Errorf("%w: unknown field %s", service.ErrInvalidPatch, key)
		}
	}
	return patch, nil
}

func isJSONNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}
