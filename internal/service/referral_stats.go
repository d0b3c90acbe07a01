package service

import (
	"slices"

	"github.com/tabiguide-next/internal/constants"
	"github.com/tabiguide-next/internal/models"

	"github.com/shopspring/decimal"
)

// ReferralStats global counters over the whole ledger. Cancelled referrals are only part of the total.
type ReferralStats struct {
	TotalReferrals        int          `json:"totalReferrals"`
	PendingCommissions    int          `json:"pendingCommissions"`
	ApprovedCommissions   int          `json:"approvedCommissions"`
	PaidCommissions       int          `json:"paidCommissions"`
	TotalCommissionAmount models.Money `json:"totalCommissionAmount"`
}

// ReferralStatusCounts referral counts per commission status
type ReferralStatusCounts struct {
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Paid      int `json:"paid"`
	Cancelled int `json:"cancelled"`
}

// CommissionTotals commission sums per status; Total covers every status
type CommissionTotals struct {
	Pending  models.Money `json:"pending"`
	Approved models.Money `json:"approved"`
	Paid     models.Money `json:"paid"`
	Total    models.Money `json:"total"`
}

// CommissionDashboard per-guide aggregation
type CommissionDashboard struct {
	TotalReferrals    int                  `json:"totalReferrals"`
	ReferralsByStatus ReferralStatusCounts `json:"referralsByStatus"`
	Commissions       CommissionTotals     `json:"commissions"`
	RecentReferrals   []models.Referral    `json:"recentReferrals"`
}

func computeReferralStats(referrals []models.Referral) ReferralStats {
	stats := ReferralStats{TotalReferrals: len(referrals)}
	total := decimal.Zero
	for i := range referrals {
		switch referrals[i].CommissionStatus {
		case constants.CommissionStatusPending:
			stats.PendingCommissions++
		case constants.CommissionStatusApproved:
			stats.ApprovedCommissions++
		case constants.CommissionStatusPaid:
			stats.PaidCommissions++
		}
		total = total.Add(commissionAmountOf(&referrals[i]))
	}
	stats.TotalCommissionAmount = models.NewMoneyFromDecimal(total)
	return stats
}

func computeCommissionDashboard(referrals []models.Referral, guideID string, recentLimit int) *CommissionDashboard {
	var counts ReferralStatusCounts
	count := 0
	pending, approved, paid, total := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	mine := make([]models.Referral, 0)

	for i := range referrals {
		ref := &referrals[i]
		if ref.GuideID != guideID {
			continue
		}
		count++
		mine = append(mine, *ref)
		amount := commissionAmountOf(ref)
		switch ref.CommissionStatus {
		case constants.CommissionStatusPending:
			counts.Pending++
			pending = pending.Add(amount)
		case constants.CommissionStatusApproved:
			counts.Approved++
			approved = approved.Add(amount)
		case constants.CommissionStatusPaid:
			counts.Paid++
			paid = paid.Add(amount)
		case constants.CommissionStatusCancelled:
			counts.Cancelled++
		}
		total = total.Add(amount)
	}

	// newest first; equal dates keep storage order
	slices.SortStableFunc(mine, func(a, b models.Referral) int {
		return b.ReferralDate.Compare(a.ReferralDate)
	})
	if recentLimit > 0 && len(mine) > recentLimit {
		mine = mine[:recentLimit]
	}

	return &CommissionDashboard{
		TotalReferrals:    count,
		ReferralsByStatus: counts,
		Commissions: CommissionTotals{
			Pending:  models.NewMoneyFromDecimal(pending),
			Approved: models.NewMoneyFromDecimal(approved),
			Paid:     models.NewMoneyFromDecimal(paid),
			Total:    models.NewMoneyFromDecimal(total),
		},
		RecentReferrals: mine,
	}
}

func commissionAmountOf(ref *models.Referral) decimal.Decimal {
	if ref.CommissionAmount == nil {
		return decimal.Zero
	}
	return ref.CommissionAmount.Decimal
}
