package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/warmstack/internal/utils"
)

// WarmupSchedule restricts automated warm-up sends to a weekly window.
// Times are UTC, stored as "HH:MM", and evaluated against the engine clock.
type WarmupSchedule struct {
	ID        string `gorm:"primary_key;type:varchar(50)" json:"id"`
	Tenant    string `gorm:"column:tenant;type:varchar(255);index;not null" json:"tenant"`
	MailboxID string `gorm:"column:mailbox_id;type:varchar(50);uniqueIndex;not null" json:"mailboxId"`

	Enabled    bool           `gorm:"column:enabled;not null;default:false" json:"enabled"`
	DaysOfWeek pq.StringArray `gorm:"column:days_of_week;type:text[]" json:"daysOfWeek"`
	StartTime  string         `gorm:"column:start_time;type:varchar(5);not null;default:'09:00'" json:"startTime"`
	EndTime    string         `gorm:"column:end_time;type:varchar(5);not null;default:'17:00'" json:"endTime"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp" json:"updatedAt"`
}

func (WarmupSchedule) TableName() string {
	return "warmup_schedules"
}

func (s *WarmupSchedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = utils.GenerateNanoIdWithPrefix("wsch", 16)
	}
	s.CreatedAt = utils.Now()
	return nil
}

// Validate checks weekday names and the "HH:MM" time bounds.
func (s *WarmupSchedule) Validate() error {
	for _, day := range s.DaysOfWeek {
		if !utils.IsStringInSlice(day, utils.WeekdayNames()) {
			return errors.Errorf("invalid weekday: %s", day)
		}
	}
	if _, err := utils.ParseTimeOfDay(s.StartTime); err != nil {
		return errors.Wrap(err, "invalid start time")
	}
	if _, err := utils.ParseTimeOfDay(s.EndTime); err != nil {
		return errors.Wrap(err, "invalid end time")
	}
	return nil
}
