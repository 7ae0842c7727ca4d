package dto

import (
	"time"

	"github.com/customeros/warmstack/internal/enum"
)

type WarmupInteractionRecorded struct {
	MailboxID      string                 `json:"mailboxId"`
	RecipientEmail string                 `json:"recipientEmail"`
	Type           enum.InteractionType   `json:"type"`
	Status         enum.InteractionStatus `json:"status"`
	StatusDetail   string                 `json:"statusDetail,omitempty"`
	SentAt         time.Time              `json:"sentAt"`
}

type MailboxVerified struct {
	MailboxID       string               `json:"mailboxId"`
	EmailAddress    string               `json:"emailAddress"`
	ConnectionState enum.ConnectionState `json:"connectionState"`
	Verified        bool                 `json:"verified"`
	Error           string               `json:"error,omitempty"`
	VerifiedAt      time.Time            `json:"verifiedAt"`
}
