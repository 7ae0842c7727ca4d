package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *WarmupSettings {
	return &WarmupSettings{
		ID:                      "wset_1",
		Tenant:                  "acme",
		MailboxID:               "mbox_1",
		Enabled:                 true,
		DailyLimit:              5,
		RampUpDays:              30,
		TargetDailyVolume:       50,
		MinMinutesBetweenEmails: 5,
		MaxMinutesBetweenEmails: 45,
	}
}

func TestWarmupSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WarmupSettings)
		wantErr bool
	}{
		{"valid settings", func(s *WarmupSettings) {}, false},
		{"daily limit below minimum", func(s *WarmupSettings) { s.DailyLimit = 0 }, true},
		{"daily limit above maximum", func(s *WarmupSettings) { s.DailyLimit = 21 }, true},
		{"daily limit at bounds", func(s *WarmupSettings) { s.DailyLimit = 20 }, false},
		{"ramp up too short", func(s *WarmupSettings) { s.RampUpDays = 6 }, true},
		{"ramp up too long", func(s *WarmupSettings) { s.RampUpDays = 91 }, true},
		{"target below minimum", func(s *WarmupSettings) { s.TargetDailyVolume = 19 }, true},
		{"target above maximum", func(s *WarmupSettings) { s.TargetDailyVolume = 201 }, true},
		{"negative spacing", func(s *WarmupSettings) { s.MinMinutesBetweenEmails = -1 }, true},
		{"max spacing below min spacing", func(s *WarmupSettings) {
			s.MinMinutesBetweenEmails = 30
			s.MaxMinutesBetweenEmails = 10
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			settings := validSettings()
			tt.mutate(settings)

			// Act
			err := settings.Validate()

			// Assert
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWarmupSettings_DaysSinceStart(t *testing.T) {
	// Arrange
	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	settings := validSettings()
	settings.StartedAt = &started

	// Assert
	assert.Equal(t, 0, settings.DaysSinceStart(started))
	assert.Equal(t, 0, settings.DaysSinceStart(started.Add(23*time.Hour)))
	assert.Equal(t, 1, settings.DaysSinceStart(started.Add(25*time.Hour)))
	assert.Equal(t, 30, settings.DaysSinceStart(started.AddDate(0, 0, 30)))
	// Clock skew before activation never yields negative days
	assert.Equal(t, 0, settings.DaysSinceStart(started.Add(-time.Hour)))
}

func TestWarmupSettings_DaysSinceStart_NeverStarted(t *testing.T) {
	// Arrange
	settings := validSettings()

	// Assert
	assert.Equal(t, 0, settings.DaysSinceStart(time.Now()))
}

func TestWarmupSettings_JSONRoundTrip(t *testing.T) {
	// Arrange
	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	original := validSettings()
	original.Status = "active"
	original.StartedAt = &started

	// Act
	raw, err := json.Marshal(original)
	require.NoError(t, err)
	var reloaded WarmupSettings
	require.NoError(t, json.Unmarshal(raw, &reloaded))

	// Assert
	assert.Equal(t, *original, reloaded)
}

func TestWarmupSchedule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WarmupSchedule)
		wantErr bool
	}{
		{"valid schedule", func(s *WarmupSchedule) {}, false},
		{"unknown weekday", func(s *WarmupSchedule) { s.DaysOfWeek = []string{"Funday"} }, true},
		{"lowercase weekday rejected", func(s *WarmupSchedule) { s.DaysOfWeek = []string{"monday"} }, true},
		{"malformed start time", func(s *WarmupSchedule) { s.StartTime = "9am" }, true},
		{"hour out of range", func(s *WarmupSchedule) { s.EndTime = "25:00" }, true},
		{"minute out of range", func(s *WarmupSchedule) { s.EndTime = "17:70" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			schedule := &WarmupSchedule{
				ID:         "wsch_1",
				Tenant:     "acme",
				MailboxID:  "mbox_1",
				Enabled:    true,
				DaysOfWeek: []string{"Monday", "Tuesday", "Wednesday"},
				StartTime:  "09:00",
				EndTime:    "17:00",
			}
			tt.mutate(schedule)

			// Act
			err := schedule.Validate()

			// Assert
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
