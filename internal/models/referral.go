package models

import (
	"encoding/json"
	"time"
)

// LedgerTimeLayout ISO-8601 in UTC with a fixed millisecond fraction, e.g. 2025-03-01T09:30:00.000Z
const LedgerTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Referral a guide introducing a sponsor store, tracked for commission purposes.
// The JSON field names are the on-disk schema of the ledger file.
type Referral struct {
	ID               string     `gorm:"primarykey;size:64" json:"id"`
	GuideID          string     `gorm:"size:128;not null;index" json:"guideId"`
	SponsorStoreID   string     `gorm:"size:128;not null;index" json:"sponsorStoreId"`
	ReferralDate     time.Time  `gorm:"not null" json:"referralDate"`
	CommissionRate   Percent    `gorm:"type:decimal(5,2);not null" json:"commissionRate"`
	CommissionAmount *Money     `gorm:"type:decimal(20,2)" json:"commissionAmount"`
	CommissionStatus string     `gorm:"size:20;not null;index" json:"commissionStatus"`
	PaymentDate      *time.Time `json:"paymentDate"`
	ReferralSource   string     `gorm:"size:64" json:"referralSource"`
	Notes            string     `gorm:"type:text" json:"notes"`
	CreatedAt        time.Time  `gorm:"autoCreateTime:false" json:"createdAt"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime:false" json:"updatedAt"`
	Position         int64      `gorm:"not null;index" json:"-"`
}

// TableName table name
func (Referral) TableName() string {
	return "referrals"
}

type referralFields Referral

type referralJSON struct {
	referralFields
	ReferralDate string  `json:"referralDate"`
	PaymentDate  *string `json:"paymentDate"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

// MarshalJSON writes every timestamp with LedgerTimeLayout so stored text keeps its form across rewrites
func (r Referral) MarshalJSON() ([]byte, error) {
	out := referralJSON{
		referralFields: referralFields(r),
		ReferralDate:   FormatLedgerTime(r.ReferralDate),
		CreatedAt:      FormatLedgerTime(r.CreatedAt),
		UpdatedAt:      FormatLedgerTime(r.UpdatedAt),
	}
	if r.PaymentDate != nil {
		paid := FormatLedgerTime(*r.PaymentDate)
		out.PaymentDate = &paid
	}
	return json.Marshal(out)
}

// FormatLedgerTime formats t in UTC with millisecond precision
func FormatLedgerTime(t time.Time) string {
	return t.UTC().Format(LedgerTimeLayout)
}

// Clone returns a copy that shares no pointers with r
func (r Referral) Clone() Referral {
	out := r
	if r.CommissionAmount != nil {
		amount := *r.CommissionAmount
		out.CommissionAmount = &amount
	}
	if r.PaymentDate != nil {
		paid := *r.PaymentDate
		out.PaymentDate = &paid
	}
	return out
}
