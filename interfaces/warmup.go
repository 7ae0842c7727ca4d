package interfaces

import (
	"context"

	"github.com/customeros/warmstack/internal/models"
)

// WarmupService owns the warm-up lifecycle of mailboxes: explicit status
// transitions and the periodic cycle that performs ramped probe sends.
type WarmupService interface {
	// ConfigureWarmup upserts the settings and schedule for a mailbox. The
	// caller-supplied configuration is authoritative; defaults apply only to
	// omitted fields.
	ConfigureWarmup(ctx context.Context, mailboxID string, settings *models.WarmupSettings, schedule *models.WarmupSchedule) error
	// ActivateWarmup transitions inactive -> active and stamps StartedAt.
	ActivateWarmup(ctx context.Context, mailboxID string) error
	// CompleteWarmup transitions active -> completed. This is an explicit
	// administrative action; reaching the target volume never completes a
	// warm-up on its own.
	CompleteWarmup(ctx context.Context, mailboxID string) error
	// DisableWarmup turns warm-up off without losing the configuration.
	DisableWarmup(ctx context.Context, mailboxID string) error
	// RemainingQuota reports how many warm-up sends the mailbox may still
	// perform today.
	RemainingQuota(ctx context.Context, mailboxID string) (int, error)
	// ExecuteWarmupCycle runs one pass over all active warm-up mailboxes,
	// sending at most one probe per eligible mailbox. Per-mailbox failures
	// are isolated.
	ExecuteWarmupCycle(ctx context.Context) error
}
