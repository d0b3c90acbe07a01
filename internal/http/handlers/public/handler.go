package public

import "github.com/tabiguide-next/internal/provider"

// Handler public API handlers for the referral ledger
type Handler struct {
	*provider.Container
}

// New creates the public handler
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
