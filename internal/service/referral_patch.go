package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/tabiguide-next/internal/models"

	"github.com/shopspring/decimal"
)

const maxReferralSourceLength = 64

var maxCommissionRate = decimal.NewFromInt(100)

// OptionalMoney patch value that tells "absent" from "explicit null"
type OptionalMoney struct {
	Set   bool
	Value *models.Money
}

// OptionalTime patch value that tells "absent" from "explicit null"
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

// ReferralPatch the mutable subset of a referral. Nil / unset fields are left untouched.
type ReferralPatch struct {
	CommissionRate   *models.Percent
	CommissionAmount OptionalMoney
	CommissionStatus *string
	PaymentDate      OptionalTime
	ReferralSource   *string
	Notes            *string
}

// SetAmount returns a patch value carrying amount
func SetAmount(amount models.Money) OptionalMoney {
	return OptionalMoney{Set: true, Value: &amount}
}

// SetStatus returns a pointer suitable for ReferralPatch.CommissionStatus
func SetStatus(status string) *string {
	return &status
}

func (p ReferralPatch) validate() error {
	if p.CommissionRate != nil {
		if err := validateCommissionRate(*p.CommissionRate); err != nil {
			return err
		}
	}
	if p.CommissionAmount.Set && p.CommissionAmount.Value != nil && p.CommissionAmount.Value.IsNegative() {
		return fmt.Errorf("%w: commissionAmount must not be negative", ErrInvalidPatch)
	}
	if p.CommissionStatus != nil && !isCommissionStatus(*p.CommissionStatus) {
		return fmt.Errorf("%w: %q", ErrInvalidCommissionStatus, *p.CommissionStatus)
	}
	if p.ReferralSource != nil && len(strings.TrimSpace(*p.ReferralSource)) > maxReferralSourceLength {
		return fmt.Errorf("%w: referralSource longer than %d", ErrInvalidField, maxReferralSourceLength)
	}
	return nil
}

// apply merges the patch onto ref field by field
func (p ReferralPatch) apply(ref models.Referral) models.Referral {
	out := ref.Clone()
	if p.CommissionRate != nil {
		out.CommissionRate = *p.CommissionRate
	}
	if p.CommissionAmount.Set {
		out.CommissionAmount = nil
		if p.CommissionAmount.Value != nil {
			amount := models.NewMoneyFromDecimal(p.CommissionAmount.Value.Decimal)
			out.CommissionAmount = &amount
		}
	}
	if p.CommissionStatus != nil {
		out.CommissionStatus = *p.CommissionStatus
	}
	if p.PaymentDate.Set {
		out.PaymentDate = nil
		if p.PaymentDate.Value != nil {
			paid := p.PaymentDate.Value.UTC()
			out.PaymentDate = &paid
		}
	}
	if p.ReferralSource != nil {
		out.ReferralSource = strings.TrimSpace(*p.ReferralSource)
	}
	if p.Notes != nil {
		out.Notes = *p.Notes
	}
	return out
}

func validateCommissionRate(rate models.Percent) error {
	if rate.IsNegative() || rate.GreaterThan(maxCommissionRate) {
		return fmt.Errorf("%w: commissionRate must be between 0 and 100", ErrInvalidField)
	}
	return nil
}
