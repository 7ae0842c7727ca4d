package repository

import (
	"gorm.io/gorm"

	"github.com/customeros/warmstack/interfaces"
	"github.com/customeros/warmstack/internal/models"
)

type Repositories struct {
	MailboxRepository           interfaces.MailboxRepository
	WarmupSettingsRepository    interfaces.WarmupSettingsRepository
	WarmupScheduleRepository    interfaces.WarmupScheduleRepository
	WarmupInteractionRepository interfaces.WarmupInteractionRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		MailboxRepository:           NewMailboxRepository(db),
		WarmupSettingsRepository:    NewWarmupSettingsRepository(db),
		WarmupScheduleRepository:    NewWarmupScheduleRepository(db),
		WarmupInteractionRepository: NewWarmupInteractionRepository(db),
	}
}

func MigrateDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	sqlDB.SetMaxOpenConns(5)

	return db.AutoMigrate(
		&models.Mailbox{},
		&models.WarmupSettings{},
		&models.WarmupSchedule{},
		&models.WarmupInteraction{},
	)
}
