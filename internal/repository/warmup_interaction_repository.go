package repository

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/warmstack/interfaces"
	"github.com/customeros/warmstack/internal/models"
	"github.com/customeros/warmstack/internal/tracing"
	"github.com/customeros/warmstack/internal/utils"
)

type warmupInteractionRepository struct {
	db *gorm.DB
}

func NewWarmupInteractionRepository(db *gorm.DB) interfaces.WarmupInteractionRepository {
	return &warmupInteractionRepository{db: db}
}

// Create appends one interaction to the log. Interactions are never updated
// or deleted afterwards.
func (r *warmupInteractionRepository) Create(ctx context.Context, interaction *models.WarmupInteraction) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupInteractionRepository.Create")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, interaction.MailboxID)

	err := r.db.WithContext(ctx).Create(interaction).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return err
	}

	return nil
}

func (r *warmupInteractionRepository) CountForDay(ctx context.Context, mailboxID string, day time.Time) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupInteractionRepository.CountForDay")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, mailboxID)

	dayStart := utils.StartOfDayInUTC(day)
	dayEnd := dayStart.Add(24 * time.Hour)

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WarmupInteraction{}).
		Where("mailbox_id = ? AND sent_at >= ? AND sent_at < ?", mailboxID, dayStart, dayEnd).
		Count(&count).
		Error

	if err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}

	span.LogFields(tracingLog.Int64("result.count", count))
	return count, nil
}

func (r *warmupInteractionRepository) GetForMailboxSince(ctx context.Context, mailboxID string, since time.Time) ([]*models.WarmupInteraction, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupInteractionRepository.GetForMailboxSince")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, mailboxID)

	var result []*models.WarmupInteraction
	err := r.db.WithContext(ctx).
		Where("mailbox_id = ? AND sent_at >= ?", mailboxID, since).
		Order("sent_at ASC").
		Find(&result).
		Error

	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return result, nil
}

func (r *warmupInteractionRepository) GetLastForMailbox(ctx context.Context, mailboxID string) (*models.WarmupInteraction, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupInteractionRepository.GetLastForMailbox")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, mailboxID)

	var result models.WarmupInteraction
	err := r.db.WithContext(ctx).
		Where("mailbox_id = ?", mailboxID).
		Order("sent_at DESC").
		First(&result).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	return &result, nil
}
