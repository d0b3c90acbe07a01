package public

import (
	"github.com/tabiguide-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// Health GET /health
func (h *Handler) Health(c *gin.Context) {
	if h.ReferralService == nil {
		respondError(c, response.CodeInternal, response.TagInternal, "Referral ledger unavailable", nil)
		return
	}
	total, err := h.ReferralService.CountReferrals(c.Request.Context())
	if err != nil {
		respondReferralReadError(c, err, "Referral ledger unavailable")
		return
	}
	driver := ""
	if h.Config != nil {
		driver = h.Config.Ledger.Driver
	}
	response.Success(c, gin.H{
		"status":         "ok",
		"driver":         driver,
		"totalReferrals": total,
	})
}
