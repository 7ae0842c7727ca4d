package interfaces

import (
	"context"
	"time"

	"github.com/customeros/warmstack/internal/enum"
	"github.com/customeros/warmstack/internal/models"
)

type MailboxRepository interface {
	GetById(ctx context.Context, id string) (*models.Mailbox, error)
	GetByIds(ctx context.Context, ids []string) ([]*models.Mailbox, error)
	GetAllForTenant(ctx context.Context) ([]*models.Mailbox, error)
	Save(ctx context.Context, mailbox *models.Mailbox) error
	UpdateConnectionStatus(ctx context.Context, mailboxID string, status enum.ConnectionState, errorMessage string) error
	UpdateTracking(ctx context.Context, mailboxID string, trackOpens, trackClicks, trackReplies *bool) error
	SoftDelete(ctx context.Context, mailboxID string) error
}

type WarmupSettingsRepository interface {
	GetByMailboxId(ctx context.Context, mailboxID string) (*models.WarmupSettings, error)
	// GetActive returns the active warm-up settings across all tenants,
	// used by the ramp-up cron cycle.
	GetActive(ctx context.Context) ([]*models.WarmupSettings, error)
	Merge(ctx context.Context, settings *models.WarmupSettings) error
	UpdateStatus(ctx context.Context, mailboxID string, status enum.WarmupStatus) error
	MarkRampUp(ctx context.Context, mailboxID string, at time.Time) error
}

type WarmupScheduleRepository interface {
	GetByMailboxId(ctx context.Context, mailboxID string) (*models.WarmupSchedule, error)
	Merge(ctx context.Context, schedule *models.WarmupSchedule) error
}

type WarmupInteractionRepository interface {
	Create(ctx context.Context, interaction *models.WarmupInteraction) error
	// CountForDay counts interactions sent by the mailbox within the UTC
	// day containing the given time.
	CountForDay(ctx context.Context, mailboxID string, day time.Time) (int64, error)
	GetForMailboxSince(ctx context.Context, mailboxID string, since time.Time) ([]*models.WarmupInteraction, error)
	GetLastForMailbox(ctx context.Context, mailboxID string) (*models.WarmupInteraction, error)
}

// EventsPublisher pushes engine events to the external CRUD layer.
type EventsPublisher interface {
	PublishWarmupInteractionEvent(ctx context.Context, interaction *models.WarmupInteraction) error
	PublishMailboxVerifiedEvent(ctx context.Context, mailbox *models.Mailbox, verified bool, errorMessage string) error
	Close() error
}
