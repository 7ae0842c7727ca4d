package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/warmstack/interfaces"
	"github.com/customeros/warmstack/internal/models"
	"github.com/customeros/warmstack/internal/tracing"
	"github.com/customeros/warmstack/internal/utils"
)

type warmupScheduleRepository struct {
	db *gorm.DB
}

func NewWarmupScheduleRepository(db *gorm.DB) interfaces.WarmupScheduleRepository {
	return &warmupScheduleRepository{db: db}
}

func (r *warmupScheduleRepository) GetByMailboxId(ctx context.Context, mailboxID string) (*models.WarmupSchedule, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupScheduleRepository.GetByMailboxId")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, mailboxID)

	var result models.WarmupSchedule
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

// Merge updates the schedule for the mailbox or creates it when absent.
func (r *warmupScheduleRepository) Merge(ctx context.Context, input *models.WarmupSchedule) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupScheduleRepository.Merge")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, input.MailboxID)

	var schedule models.WarmupSchedule
	err := r.db.WithContext(ctx).
		Where("mailbox_id = ?", input.MailboxID).
		First(&schedule).
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

	schedule.Enabled = input.Enabled
	schedule.DaysOfWeek = input.DaysOfWeek
	schedule.StartTime = input.StartTime
	schedule.EndTime = input.EndTime
	schedule.UpdatedAt = utils.Now()

	err = r.db.WithContext(ctx).Save(&schedule).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}
