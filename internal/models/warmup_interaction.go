package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/warmstack/internal/enum"
	"github.com/customeros/warmstack/internal/utils"
)

// WarmupInteraction is one entry in the append-only warm-up event log.
// Records are never mutated after creation; the current daily volume for a
// mailbox is derived by counting today's entries.
type WarmupInteraction struct {
	ID        string `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Tenant    string `gorm:"column:tenant;type:varchar(255);index;not null" json:"tenant"`
	MailboxID string `gorm:"column:mailbox_id;type:varchar(50);index;not null" json:"mailboxId"`

	SentAt         time.Time              `gorm:"column:sent_at;type:timestamp;index;not null" json:"sentAt"`
	RecipientEmail string                 `gorm:"column:recipient_email;type:varchar(255);not null" json:"recipientEmail"`
	Type           enum.InteractionType   `gorm:"column:type;type:varchar(50);index;not null" json:"type"`
	Status         enum.InteractionStatus `gorm:"column:status;type:varchar(50);index;not null" json:"status"`
	StatusDetail   string                 `gorm:"column:status_detail;type:text" json:"statusDetail"`
	Metadata       JSONMap                `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	ResponseAt     *time.Time             `gorm:"column:response_at;type:timestamp" json:"responseAt"`
	Sentiment      enum.Sentiment         `gorm:"column:sentiment;type:varchar(50)" json:"sentiment"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
}

func (WarmupInteraction) TableName() string {
	return "warmup_interactions"
}

func (i *WarmupInteraction) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = utils.GenerateNanoIdWithPrefix("wi", 24)
	}
	i.CreatedAt = utils.Now()
	return nil
}
