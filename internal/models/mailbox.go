package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/customeros/warmstack/internal/enum"
	"github.com/customeros/warmstack/internal/utils"
)

type Mailbox struct {
	ID       string             `gorm:"column:id;type:varchar(50);primaryKey" json:"id"`
	Tenant   string             `gorm:"column:tenant;type:varchar(255);index;not null" json:"tenant"`
	Provider enum.EmailProvider `gorm:"column:provider;type:varchar(50);index;not null" json:"provider"`
	// IMAP Configuration
	ImapServer   string             `gorm:"column:imap_server;type:varchar(255);not null" json:"imapServer"`
	ImapPort     int                `gorm:"column:imap_port;not null" json:"imapPort"`
	ImapUsername string             `gorm:"column:imap_username;type:varchar(255);not null" json:"imapUsername"`
	ImapPassword string             `gorm:"column:imap_password;type:varchar(255);not null" json:"imapPassword"`
	ImapSecurity enum.EmailSecurity `gorm:"column:imap_security;type:varchar(50);not null;default:'tls'" json:"imapSecurity"`
	ImapFolder   string             `gorm:"column:imap_folder;type:varchar(100);not null;default:'INBOX'" json:"imapFolder"`
	// SMTP Configuration
	SmtpServer   string             `gorm:"column:smtp_server;type:varchar(255);not null" json:"smtpServer"`
	SmtpPort     int                `gorm:"column:smtp_port;not null" json:"smtpPort"`
	SmtpUsername string             `gorm:"column:smtp_username;type:varchar(255);not null" json:"smtpUsername"`
	SmtpPassword string             `gorm:"column:smtp_password;type:varchar(255);not null" json:"smtpPassword"`
	SmtpSecurity enum.EmailSecurity `gorm:"column:smtp_security;type:varchar(50);not null;default:'startTLS'" json:"smtpSecurity"`
	// Identity
	DisplayName   string `gorm:"column:display_name;type:varchar(255)" json:"displayName"`
	EmailAddress  string `gorm:"column:email_address;type:varchar(255);index" json:"emailAddress"`
	MailboxDomain string `gorm:"column:mailbox_domain;type:varchar(255);index" json:"mailboxDomain"`
	// Tracking Settings
	TrackOpens   bool `gorm:"column:track_opens;not null;default:true" json:"trackOpens"`
	TrackClicks  bool `gorm:"column:track_clicks;not null;default:true" json:"trackClicks"`
	TrackReplies bool `gorm:"column:track_replies;not null;default:true" json:"trackReplies"`
	// Status Information
	ConnectionStatus enum.ConnectionState `gorm:"column:connection_status;type:varchar(50)" json:"connectionStatus"`
	ErrorMessage     string               `gorm:"column:error_message;type:text" json:"errorMessage"`
	LastVerifiedAt   *time.Time           `gorm:"column:last_verified_at;type:timestamp" json:"lastVerifiedAt"`
	// Standard timestamps
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"column:updated_at;type:timestamp;default:current_timestamp" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

// TableName sets the table name
func (Mailbox) TableName() string {
	return "mailboxes"
}

func (m *Mailbox) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = utils.GenerateNanoIdWithPrefix("mbox", 16)
	}
	return nil
}
