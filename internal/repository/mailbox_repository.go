package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	warmstack_errors "github.com/customeros/warmstack/errors"

	"github.com/customeros/warmstack/interfaces"
	"github.com/customeros/warmstack/internal/enum"
	"github.com/customeros/warmstack/internal/models"
	"github.com/customeros/warmstack/internal/tracing"
	"github.com/customeros/warmstack/internal/utils"
)

type mailboxRepository struct {
	db *gorm.DB
}

func NewMailboxRepository(db *gorm.DB) interfaces.MailboxRepository {
	return &mailboxRepository{db: db}
}

func (r *mailboxRepository) GetById(ctx context.Context, id string) (*models.Mailbox, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxRepository.GetById")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, id)

	tenant := utils.GetTenantFromContext(ctx)

	var result models.Mailbox
	err := r.db.WithContext(ctx).
		Where("tenant = ? AND id = ?", tenant, id).
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

func (r *mailboxRepository) GetByIds(ctx context.Context, ids []string) ([]*models.Mailbox, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxRepository.GetByIds")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.LogFields(tracingLog.Int("ids.count", len(ids)))

	tenant := utils.GetTenantFromContext(ctx)

	var result []*models.Mailbox
	err := r.db.WithContext(ctx).
		Where("tenant = ? AND id IN ?", tenant, ids).
		Find(&result).
		Error

	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return result, nil
}

func (r *mailboxRepository) GetAllForTenant(ctx context.Context) ([]*models.Mailbox, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxRepository.GetAllForTenant")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	tenant := utils.GetTenantFromContext(ctx)

	var result []*models.Mailbox
	err := r.db.WithContext(ctx).
		Where("tenant = ?", tenant).
		Find(&result).
		Error

	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return result, nil
}

func (r *mailboxRepository) Save(ctx context.Context, mailbox *models.Mailbox) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxRepository.Save")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, mailbox.ID)

	// New mailboxes must not reuse an email address within the tenant
	if mailbox.ID == "" {
		var count int64
		err := r.db.WithContext(ctx).
			Model(&models.Mailbox{}).
			Where("tenant = ? AND email_address = ?", mailbox.Tenant, mailbox.EmailAddress).
			Count(&count).
			Error
		if err != nil {
			tracing.TraceErr(span, errors.Wrap(err, "db error"))
			return err
		}
		if count > 0 {
			tracing.TraceErr(span, warmstack_errors.ErrMailboxExists)
			return warmstack_errors.ErrMailboxExists
		}
	}

	mailbox.UpdatedAt = utils.Now()

	err := r.db.WithContext(ctx).Save(mailbox).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return err
	}

	return nil
}

func (r *mailboxRepository) UpdateConnectionStatus(ctx context.Context, mailboxID string, status enum.ConnectionState, errorMessage string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxRepository.UpdateConnectionStatus")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, mailboxID)
	span.LogKV("status", status)

	err := r.db.WithContext(ctx).
		Model(&models.Mailbox{}).
		Where("id = ?", mailboxID).
		UpdateColumns(map[string]interface{}{
			"connection_status": status,
			"error_message":     errorMessage,
			"updated_at":        utils.Now(),
		}).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return err
	}

	return nil
}

func (r *mailboxRepository) UpdateTracking(ctx context.Context, mailboxID string, trackOpens, trackClicks, trackReplies *bool) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxRepository.UpdateTracking")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, mailboxID)

	tenant := utils.GetTenantFromContext(ctx)

	updates := map[string]interface{}{
		"updated_at": utils.Now(),
	}
	if trackOpens != nil {
		updates["track_opens"] = *trackOpens
	}
	if trackClicks != nil {
		updates["track_clicks"] = *trackClicks
	}
	if trackReplies != nil {
		updates["track_replies"] = *trackReplies
	}

	err := r.db.WithContext(ctx).
		Model(&models.Mailbox{}).
		Where("tenant = ? AND id = ?", tenant, mailboxID).
		UpdateColumns(updates).Error
	if err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "db error"))
		return err
	}

	return nil
}

func (r *mailboxRepository) SoftDelete(ctx context.Context, mailboxID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "MailboxRepository.SoftDelete")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, mailboxID)

	tenant := utils.GetTenantFromContext(ctx)

	result := r.db.WithContext(ctx).
		Where("tenant = ? AND id = ?", tenant, mailboxID).
		Delete(&models.Mailbox{})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return result.Error
	}

	return nil
}
