package public

import (
	"io"

	"github.com/tabiguide-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

const maxReferralBodyBytes = 64 << 10

// CreateReferral POST /api/referrals
func (h *Handler) CreateReferral(c *gin.Context) {
	if h.ReferralService == nil {
		respondError(c, response.CodeInternal, response.TagInternal, "Referral ledger unavailable", nil)
		return
	}
	var req CreateReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, response.TagValidation, "Invalid request body", err)
		return
	}

	referral, err := h.ReferralService.CreateReferral(c.Request.Context(), req.toInput())
	if err != nil {
		respondReferralCreateError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Referral created successfully", gin.H{"referral": referral})
}

// ListReferralsByGuide GET /api/referrals/guide/:guideId
func (h *Handler) ListReferralsByGuide(c *gin.Context) {
	if h.ReferralService == nil {
		respondError(c, response.CodeInternal, response.TagInternal, "Referral ledger unavailable", nil)
		return
	}
	referrals, err := h.ReferralService.GetReferralsByGuide(c.Request.Context(), c.Param("guideId"))
	if err != nil {
		respondReferralReadError(c, err, "Failed to fetch referrals")
		return
	}
	response.Success(c, gin.H{"referrals": referrals, "total": len(referrals)})
}

// ListReferralsByStore GET /api/referrals/store/:storeId
func (h *Handler) ListReferralsByStore(c *gin.Context) {
	if h.ReferralService == nil {
		respondError(c, response.CodeInternal, response.TagInternal, "Referral ledger unavailable", nil)
		return
	}
	referrals, err := h.ReferralService.GetReferralsByStore(c.Request.Context(), c.Param("storeId"))
	if err != nil {
		respondReferralReadError(c, err, "Failed to fetch referrals")
		return
	}
	response.Success(c, gin.H{"referrals": referrals, "total": len(referrals)})
}

// ListReferrals GET /api/referrals
func (h *Handler) ListReferrals(c *gin.Context) {
	if h.ReferralService == nil {
		respondError(c, response.CodeInternal, response.TagInternal, "Referral ledger unavailable", nil)
		return
	}
	referrals, stats, err := h.ReferralService.GetAllReferrals(c.Request.Context())
	if err != nil {
		respondReferralReadError(c, err, "Failed to fetch referrals")
		return
	}
	response.Success(c, gin.H{"referrals": referrals, "stats": stats})
}

// UpdateReferral PUT /api/referrals/:id
func (h *Handler) UpdateReferral(c *gin.Context) {
	if h.ReferralService == nil {
		respondError(c, response.CodeInternal, response.TagInternal, "Referral ledger unavailable", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxReferralBodyBytes))
	if err != nil {
		respondError(c, response.CodeBadRequest, response.TagValidation, "Invalid request body", err)
		return
	}
	patch, err := decodeReferralPatch(body)
	if err != nil {
		respondReferralUpdateError(c, err)
		return
	}

	referral, err := h.ReferralService.UpdateReferral(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondReferralUpdateError(c, err)
		return
	}
	response.SuccessWithMsg(c, "Referral updated successfully", gin.H{"referral": referral})
}

// GetCommissionDashboard GET /api/referrals/dashboard/:guideId
func (h *Handler) GetCommissionDashboard(c *gin.Context) {
	if h.ReferralService == nil {
		respondError(c, response.CodeInternal, response.TagInternal, "Referral ledger unavailable", nil)
		return
	}
	dashboard, err := h.ReferralService.GetCommissionDashboard(c.Request.Context(), c.Param("guideId"))
	if err != nil {
		respondReferralReadError(c, err, "Failed to build commission dashboard")
		return
	}
	response.Success(c, gin.H{"dashboard": dashboard})
}
