package interfaces

import (
	"context"

	"github.com/customeros/warmstack/internal/enum"
	"github.com/customeros/warmstack/internal/models"
)

// BulkConfig carries the per-action payload of a bulk operation. Exactly one
// section is read, keyed by the action.
type BulkConfig struct {
	Warmup   *BulkWarmupConfig   `json:"warmup,omitempty"`
	Tracking *BulkTrackingConfig `json:"tracking,omitempty"`
}

type BulkWarmupConfig struct {
	Settings *models.WarmupSettings `json:"settings"`
	Schedule *models.WarmupSchedule `json:"schedule"`
}

type BulkTrackingConfig struct {
	TrackOpens   *bool `json:"trackOpens,omitempty"`
	TrackClicks  *bool `json:"trackClicks,omitempty"`
	TrackReplies *bool `json:"trackReplies,omitempty"`
}

type BulkItemFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type BulkOperationDetails struct {
	Successful []string          `json:"successful"`
	Failed     []BulkItemFailure `json:"failed"`
}

// BulkOperationResult aggregates the per-item outcomes of one bulk call.
type BulkOperationResult struct {
	Total      int                  `json:"total"`
	Successful int                  `json:"successful"`
	Failed     int                  `json:"failed"`
	Skipped    int                  `json:"skipped"`
	Details    BulkOperationDetails `json:"details"`
}

type BulkService interface {
	// ApplyToMany applies the action across the given mailbox ids. Ownership
	// of every id by the tenant on the context is checked up front; any
	// mismatch rejects the whole request. Per-item runtime failures are
	// isolated and aggregated into the result.
	ApplyToMany(ctx context.Context, mailboxIDs []string, action enum.BulkAction, config *BulkConfig) (*BulkOperationResult, error)
}
