package models

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/warmstack/internal/enum"
	"github.com/customeros/warmstack/internal/utils"
)

// Accepted ranges for warm-up settings. Values outside these bounds are
// rejected before anything is persisted.
const (
	MinDailyLimit        = 1
	MaxDailyLimit        = 20
	MinRampUpDays        = 7
	MaxRampUpDays        = 90
	MinTargetDailyVolume = 20
	MaxTargetDailyVolume = 200
)

// WarmupSettings holds the per-mailbox ramp-up configuration. The current
// daily volume is never stored; it is derived from the interaction log for
// the day in question.
type WarmupSettings struct {
	ID        string `gorm:"primary_key;type:varchar(50)" json:"id"`
	Tenant    string `gorm:"column:tenant;type:varchar(255);index;not null" json:"tenant"`
	MailboxID string `gorm:"column:mailbox_id;type:varchar(50);uniqueIndex;not null" json:"mailboxId"`

	Enabled           bool              `gorm:"column:enabled;not null;default:false" json:"enabled"`
	Status            enum.WarmupStatus `gorm:"column:status;type:varchar(50);not null;default:'inactive'" json:"status"`
	DailyLimit        int               `gorm:"column:daily_limit;not null;default:3" json:"dailyLimit"`
	RampUpDays        int               `gorm:"column:ramp_up_days;not null;default:30" json:"rampUpDays"`
	TargetDailyVolume int               `gorm:"column:target_daily_volume;not null;default:40" json:"targetDailyVolume"`

	MinMinutesBetweenEmails int `gorm:"column:min_minutes_between_emails;not null;default:5" json:"minMinutesBetweenEmails"`
	MaxMinutesBetweenEmails int `gorm:"column:max_minutes_between_emails;not null;default:45" json:"maxMinutesBetweenEmails"`

	StartedAt    *time.Time `gorm:"column:started_at;type:timestamp" json:"startedAt"`
	CompletedAt  *time.Time `gorm:"column:completed_at;type:timestamp" json:"completedAt"`
	LastRampUpAt *time.Time `gorm:"column:last_ramp_up_at;type:timestamp" json:"lastRampUpAt"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp" json:"updatedAt"`
}

func (WarmupSettings) TableName() string {
	return "warmup_settings"
}

func (s *WarmupSettings) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = utils.GenerateNanoIdWithPrefix("wset", 16)
	}
	s.CreatedAt = utils.Now()
	return nil
}

// Validate checks the configured bounds before the record is persisted.
func (s *WarmupSettings) Validate() error {
	if s.DailyLimit < MinDailyLimit || s.DailyLimit > MaxDailyLimit {
		return errors.Errorf("daily limit must be between %d and %d", MinDailyLimit, MaxDailyLimit)
	}
	if s.RampUpDays < MinRampUpDays || s.RampUpDays > MaxRampUpDays {
		return errors.Errorf("ramp up days must be between %d and %d", MinRampUpDays, MaxRampUpDays)
	}
	if s.TargetDailyVolume < MinTargetDailyVolume || s.TargetDailyVolume > MaxTargetDailyVolume {
		return errors.Errorf("target daily volume must be between %d and %d", MinTargetDailyVolume, MaxTargetDailyVolume)
	}
	if s.MinMinutesBetweenEmails < 0 || s.MaxMinutesBetweenEmails < s.MinMinutesBetweenEmails {
		return errors.New("email spacing window is invalid")
	}
	return nil
}

// DaysSinceStart returns the number of whole days since warm-up was
// activated, or 0 when warm-up never started.
func (s *WarmupSettings) DaysSinceStart(now time.Time) int {
	if s.StartedAt == nil {
		return 0
	}
	days := int(now.Sub(*s.StartedAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
