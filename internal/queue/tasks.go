package queue

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/tabiguide-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCommissionStatusChanged commission status change notification
	TaskCommissionStatusChanged = constants.TaskCommissionStatusChanged
)

// ErrInvalidPayload the task payload is missing identifying fields
var ErrInvalidPayload = errors.New("invalid task payload")

// CommissionStatusChangedPayload payload of a commission status change
type CommissionStatusChangedPayload struct {
	ReferralID     string    `json:"referralId"`
	GuideID        string    `json:"guideId"`
	SponsorStoreID string    `json:"sponsorStoreId"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	ChangedAt      time.Time `json:"changedAt"`
}

// NewCommissionStatusChangedTask builds the asynq task
func NewCommissionStatusChangedTask(payload CommissionStatusChangedPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.ReferralID) == "" || strings.TrimSpace(payload.To) == "" {
		return nil, ErrInvalidPayload
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCommissionStatusChanged, body), nil
}

// ParseCommissionStatusChangedPayload decodes a task body
func ParseCommissionStatusChangedPayload(body []byte) (CommissionStatusChangedPayload, error) {
	var payload CommissionStatusChangedPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, err
	}
	if strings.TrimSpace(payload.ReferralID) == "" {
		return payload, ErrInvalidPayload
	}
	return payload, nil
}
