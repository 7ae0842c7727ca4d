package warmup

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	warmstack_errors "github.com/customeros/warmstack/errors"

	"github.com/customeros/warmstack/interfaces"
	"github.com/customeros/warmstack/internal/enum"
	"github.com/customeros/warmstack/internal/logger"
	"github.com/customeros/warmstack/internal/models"
	"github.com/customeros/warmstack/internal/tracing"
	"github.com/customeros/warmstack/internal/utils"
)

// OutboundFactory builds the outbound transport for one mailbox.
type OutboundFactory func(mailbox *models.Mailbox) interfaces.OutboundTransport

// WarmupScheduler runs the warm-up lifecycle: explicit status transitions
// plus the periodic cycle that drains each active mailbox's daily budget one
// probe at a time.
type WarmupScheduler struct {
	mailboxes    interfaces.MailboxRepository
	settings     interfaces.WarmupSettingsRepository
	schedules    interfaces.WarmupScheduleRepository
	interactions interfaces.WarmupInteractionRepository
	publisher    interfaces.EventsPublisher
	outbound     OutboundFactory
	log          logger.Logger

	peerEmails []string
}

func NewWarmupScheduler(
	mailboxes interfaces.MailboxRepository,
	settings interfaces.WarmupSettingsRepository,
	schedules interfaces.WarmupScheduleRepository,
	interactions interfaces.WarmupInteractionRepository,
	publisher interfaces.EventsPublisher,
	outbound OutboundFactory,
	log logger.Logger,
	peerEmails []string,
) *WarmupScheduler {
	return &WarmupScheduler{
		mailboxes:    mailboxes,
		settings:     settings,
		schedules:    schedules,
		interactions: interactions,
		publisher:    publisher,
		outbound:     outbound,
		log:          log,
		peerEmails:   peerEmails,
	}
}

// ConfigureWarmup upserts the settings and schedule for a mailbox. The
// caller-supplied configuration is authoritative.
func (s *WarmupScheduler) ConfigureWarmup(ctx context.Context, mailboxID string, settings *models.WarmupSettings, schedule *models.WarmupSchedule) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupScheduler.ConfigureWarmup")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, mailboxID)

	mailbox, err := s.mailboxes.GetById(ctx, mailboxID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if mailbox == nil {
		tracing.TraceErr(span, warmstack_errors.ErrMailboxNotFound)
		return warmstack_errors.ErrMailboxNotFound
	}

	if settings != nil {
		if err = settings.Validate(); err != nil {
			tracing.TraceErr(span, err)
			return err
		}
		settings.MailboxID = mailboxID
		settings.Tenant = mailbox.Tenant
		if err = s.settings.Merge(ctx, settings); err != nil {
			tracing.TraceErr(span, err)
			return err
		}
	}

	if schedule != nil {
		if err = schedule.Validate(); err != nil {
			tracing.TraceErr(span, err)
			return err
		}
		schedule.MailboxID = mailboxID
		schedule.Tenant = mailbox.Tenant
		if err = s.schedules.Merge(ctx, schedule); err != nil {
			tracing.TraceErr(span, err)
			return err
		}
	}

	return nil
}

// ActivateWarmup transitions inactive -> active and stamps the start time.
func (s *WarmupScheduler) ActivateWarmup(ctx context.Context, mailboxID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupScheduler.ActivateWarmup")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, mailboxID)

	settings, err := s.settings.GetByMailboxId(ctx, mailboxID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if settings == nil {
		tracing.TraceErr(span, warmstack_errors.ErrWarmupNotConfigured)
		return warmstack_errors.ErrWarmupNotConfigured
	}
	if settings.Status == enum.WarmupStatusActive {
		return nil
	}
	if settings.Status == enum.WarmupStatusCompleted {
		err = errors.New("completed warm-up cannot be reactivated")
		tracing.TraceErr(span, err)
		return err
	}

	return s.settings.UpdateStatus(ctx, mailboxID, enum.WarmupStatusActive)
}

// CompleteWarmup transitions active -> completed. Reaching the target volume
// never completes a warm-up on its own; this call is the only path.
func (s *WarmupScheduler) CompleteWarmup(ctx context.Context, mailboxID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupScheduler.CompleteWarmup")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, mailboxID)

	settings, err := s.settings.GetByMailboxId(ctx, mailboxID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if settings == nil {
		tracing.TraceErr(span, warmstack_errors.ErrWarmupNotConfigured)
		return warmstack_errors.ErrWarmupNotConfigured
	}
	if settings.Status != enum.WarmupStatusActive {
		err = errors.Errorf("cannot complete warm-up in status %s", settings.Status)
		tracing.TraceErr(span, err)
		return err
	}

	return s.settings.UpdateStatus(ctx, mailboxID, enum.WarmupStatusCompleted)
}

// DisableWarmup turns warm-up off while keeping the configuration.
func (s *WarmupScheduler) DisableWarmup(ctx context.Context, mailboxID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupScheduler.DisableWarmup")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, mailboxID)

	settings, err := s.settings.GetByMailboxId(ctx, mailboxID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if settings == nil {
		tracing.TraceErr(span, warmstack_errors.ErrWarmupNotConfigured)
		return warmstack_errors.ErrWarmupNotConfigured
	}

	settings.Enabled = false
	settings.Status = enum.WarmupStatusInactive
	return s.settings.Merge(ctx, settings)
}

// RemainingQuota reports how many warm-up sends the mailbox may still
// perform today.
func (s *WarmupScheduler) RemainingQuota(ctx context.Context, mailboxID string) (int, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupScheduler.RemainingQuota")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, mailboxID)

	settings, err := s.settings.GetByMailboxId(ctx, mailboxID)
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}
	if settings == nil {
		tracing.TraceErr(span, warmstack_errors.ErrWarmupNotConfigured)
		return 0, warmstack_errors.ErrWarmupNotConfigured
	}

	now := utils.Now()
	sentToday, err := s.interactions.CountForDay(ctx, mailboxID, now)
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}

	quota := RemainingQuota(settings, settings.DaysSinceStart(now), int(sentToday))
	span.LogKV("result.quota", quota)
	return quota, nil
}

// ExecuteWarmupCycle runs one pass over all active warm-up mailboxes,
// sending at most one probe per eligible mailbox. Per-mailbox failures are
// isolated; the cycle always visits every mailbox.
func (s *WarmupScheduler) ExecuteWarmupCycle(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupScheduler.ExecuteWarmupCycle")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	active, err := s.settings.GetActive(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	span.LogKV("active.count", len(active))

	for _, settings := range active {
		mailboxCtx := utils.SetTenantInContext(ctx, settings.Tenant)
		if err := s.warmupMailbox(mailboxCtx, settings); err != nil {
			tracing.TraceErr(span, err)
			s.log.Errorf("Warm-up cycle failed for mailbox %s: %v", settings.MailboxID, err)
		}
	}

	return nil
}

// warmupMailbox sends one probe for the mailbox when its budget, schedule
// window and spacing all allow it.
func (s *WarmupScheduler) warmupMailbox(ctx context.Context, settings *models.WarmupSettings) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "WarmupScheduler.warmupMailbox")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, settings.MailboxID)

	mailbox, err := s.mailboxes.GetById(ctx, settings.MailboxID)
	if err != nil {
		return err
	}
	if mailbox == nil {
		return warmstack_errors.ErrMailboxNotFound
	}

	schedule, err := s.schedules.GetByMailboxId(ctx, settings.MailboxID)
	if err != nil {
		return err
	}

	now := utils.Now()
	if !IsWithinSendWindow(schedule, now) {
		span.LogKV("skip", "outside send window")
		return nil
	}

	sentToday, err := s.interactions.CountForDay(ctx, settings.MailboxID, now)
	if err != nil {
		return err
	}

	days := settings.DaysSinceStart(now)
	if RemainingQuota(settings, days, int(sentToday)) <= 0 {
		span.LogKV("skip", "daily quota exhausted")
		return nil
	}

	last, err := s.interactions.GetLastForMailbox(ctx, settings.MailboxID)
	if err != nil {
		return err
	}
	if last != nil {
		spacing := time.Duration(settings.MinMinutesBetweenEmails) * time.Minute
		if now.Sub(last.SentAt) < spacing {
			span.LogKV("skip", "minimum spacing not reached")
			return nil
		}
	}

	recipient := s.pickRecipient(mailbox.EmailAddress, int(sentToday))
	if recipient == "" {
		span.LogKV("skip", "no peer recipients configured")
		return nil
	}

	probe := buildProbe(mailbox, recipient)
	messageID, sendErr := s.outbound(mailbox).Send(ctx, probe)

	interaction := &models.WarmupInteraction{
		Tenant:         settings.Tenant,
		MailboxID:      settings.MailboxID,
		SentAt:         now,
		RecipientEmail: recipient,
		Type:           enum.InteractionDelivery,
		Status:         enum.InteractionSuccess,
		Metadata: models.JSONMap{
			"messageId": messageID,
			"subject":   probe.Subject,
		},
	}
	if sendErr != nil {
		interaction.Status = enum.InteractionFailure
		interaction.StatusDetail = sendErr.Error()
	}

	if err = s.interactions.Create(ctx, interaction); err != nil {
		return err
	}

	if s.publisher != nil {
		if pubErr := s.publisher.PublishWarmupInteractionEvent(ctx, interaction); pubErr != nil {
			tracing.TraceErr(span, pubErr)
			s.log.Errorf("Failed to publish warm-up interaction event: %v", pubErr)
		}
	}

	// Stamp ramp progression once per UTC day.
	lastRampUp := utils.GetOrDefault(settings.LastRampUpAt, time.Time{})
	if utils.StartOfDayInUTC(lastRampUp).Before(utils.StartOfDayInUTC(now)) {
		if err = s.settings.MarkRampUp(ctx, settings.MailboxID, now); err != nil {
			return err
		}
	}

	return sendErr
}

// pickRecipient rotates through the configured peer pool, skipping the
// mailbox's own address.
func (s *WarmupScheduler) pickRecipient(ownAddress string, sentToday int) string {
	peers := make([]string, 0, len(s.peerEmails))
	for _, peer := range s.peerEmails {
		if peer != "" && peer != ownAddress {
			peers = append(peers, peer)
		}
	}
	if len(peers) == 0 {
		return ""
	}
	return peers[sentToday%len(peers)]
}

var probeSubjects = []string{
	"Quick question about next week",
	"Following up on our conversation",
	"Notes from this morning",
	"Checking in",
	"Re: scheduling",
}

func buildProbe(mailbox *models.Mailbox, recipient string) *models.ProbeMessage {
	subject := probeSubjects[rand.Intn(len(probeSubjects))]
	domain := mailbox.MailboxDomain
	if domain == "" {
		domain = utils.ExtractDomainFromEmail(mailbox.EmailAddress)
	}
	return &models.ProbeMessage{
		FromAddress: mailbox.EmailAddress,
		FromName:    mailbox.DisplayName,
		FromDomain:  domain,
		ToAddress:   recipient,
		Subject:     subject,
		BodyText:    fmt.Sprintf("Hi,\r\n\r\nJust making sure this reaches you. Ref %s.\r\n\r\nThanks,\r\n%s\r\n", utils.GenerateNanoIdWithPrefix("ref", 10), mailbox.DisplayName),
	}
}
