package repository

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/warmstack/interfaces"
	"github.com/customeros/warmstack/internal/enum"
	"github.com/customeros/warmstack/internal/models"
	"github.com/customeros/warmstack/internal/tracing"
	"github.com/customeros/warmstack/internal/utils"
)

type warmupSettingsRepository struct {
	db *gorm.DB
}

func NewWarmupSettingsRepository(db *gorm.DB) interfaces.WarmupSettingsRepository {
	return &warmupSettingsRepository{db: db}
}

func (r *warmupSettingsRepository) GetByMailboxId(ctx context.Context, mailboxID string) (*models.WarmupSettings, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupSettingsRepository.GetByMailboxId")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, mailboxID)

	var result models.WarmupSettings
	err := r.db.WithContext(ctx).
		Where("mailbox_id = ?", mailboxID).
		First(&result).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.LogFields(tracingLog.Bool("result.found", false))
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.LogFields(tracingLog.Bool("result.found", true))
	return &result, nil
}

func (r *warmupSettingsRepository) GetActive(ctx context.Context) ([]*models.WarmupSettings, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupSettingsRepository.GetActive")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var result []*models.WarmupSettings
	err := r.db.WithContext(ctx).
		Where("enabled = ? AND status = ?", true, enum.WarmupStatusActive).
		Find(&result).
		Error

	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.LogFields(tracingLog.Int("result.count", len(result)))
	return result, nil
}

// Merge updates the settings for the mailbox or creates them when absent.
func (r *warmupSettingsRepository) Merge(ctx context.Context, input *models.WarmupSettings) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupSettingsRepository.Merge")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, input.MailboxID)

	var settings models.WarmupSettings
	err := r.db.WithContext(ctx).
		Where("mailbox_id = ?", input.MailboxID).
		First(&settings).
		Error

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		tracing.TraceErr(span, err)
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = r.db.WithContext(ctx).Create(input).Error
		if err != nil {
			tracing.TraceErr(span, err)
			return err
		}
		return nil
	}

	settings.Enabled = input.Enabled
	settings.Status = input.Status
	settings.DailyLimit = input.DailyLimit
	settings.RampUpDays = input.RampUpDays
	settings.TargetDailyVolume = input.TargetDailyVolume
	settings.MinMinutesBetweenEmails = input.MinMinutesBetweenEmails
	settings.MaxMinutesBetweenEmails = input.MaxMinutesBetweenEmails
	settings.StartedAt = input.StartedAt
	settings.CompletedAt = input.CompletedAt
	settings.UpdatedAt = utils.Now()

	err = r.db.WithContext(ctx).Save(&settings).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}

func (r *warmupSettingsRepository) UpdateStatus(ctx context.Context, mailboxID string, status enum.WarmupStatus) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupSettingsRepository.UpdateStatus")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, mailboxID)
	span.LogKV("status", status)

	updates := map[string]interface{}{
		"status":     status,
		"updated_at": utils.Now(),
	}

	switch status {
	case enum.WarmupStatusActive:
		updates["enabled"] = true
		updates["started_at"] = utils.Now()
	case enum.WarmupStatusCompleted:
		updates["completed_at"] = utils.Now()
	}

	err := r.db.WithContext(ctx).
		Model(&models.WarmupSettings{}).
		Where("mailbox_id = ?", mailboxID).
		UpdateColumns(updates).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return err
	}

	return nil
}

func (r *warmupSettingsRepository) MarkRampUp(ctx context.Context, mailboxID string, at time.Time) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupSettingsRepository.MarkRampUp")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, mailboxID)

	err := r.db.WithContext(ctx).
		Model(&models.WarmupSettings{}).
		Where("mailbox_id = ?", mailboxID).
		UpdateColumns(map[string]interface{}{
			"last_ramp_up_at": at,
			"updated_at":      utils.Now(),
		}).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return err
	}

	return nil
}
