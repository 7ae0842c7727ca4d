package verification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/warmstack/interfaces"
	"github.com/customeros/warmstack/internal/enum"
	"github.com/customeros/warmstack/internal/logger"
	"github.com/customeros/warmstack/internal/models"
	"github.com/customeros/warmstack/internal/tracing"
	"github.com/customeros/warmstack/internal/utils"
)

const (
	defaultSettleDelay  = 5 * time.Second
	defaultSearchWindow = 24 * time.Hour
	defaultPollAttempts = 3
	defaultPollInterval = 10 * time.Second
)

// VerificationOrchestrator runs one send-then-confirm round trip per call.
// Calls are serialized: the inbound session is a single shared resource that
// does not support concurrent multi-session use.
type VerificationOrchestrator struct {
	mailbox   *models.Mailbox
	outbound  interfaces.OutboundTransport
	inbound   interfaces.InboundTransport
	mailboxes interfaces.MailboxRepository
	publisher interfaces.EventsPublisher
	log       logger.Logger

	settleDelay  time.Duration
	searchWindow time.Duration
	pollAttempts int
	pollInterval time.Duration

	mu sync.Mutex
}

type Option func(*VerificationOrchestrator)

func WithSettleDelay(d time.Duration) Option {
	return func(o *VerificationOrchestrator) {
		o.settleDelay = d
	}
}

func WithSearchWindow(d time.Duration) Option {
	return func(o *VerificationOrchestrator) {
		o.searchWindow = d
	}
}

// WithPolling sets how many inbound polls run before giving up and the pause
// between them.
func WithPolling(attempts int, interval time.Duration) Option {
	return func(o *VerificationOrchestrator) {
		if attempts > 0 {
			o.pollAttempts = attempts
		}
		o.pollInterval = interval
	}
}

func NewVerificationOrchestrator(
	mailbox *models.Mailbox,
	outbound interfaces.OutboundTransport,
	inbound interfaces.InboundTransport,
	mailboxes interfaces.MailboxRepository,
	publisher interfaces.EventsPublisher,
	log logger.Logger,
	opts ...Option,
) *VerificationOrchestrator {
	o := &VerificationOrchestrator{
		mailbox:      mailbox,
		outbound:     outbound,
		inbound:      inbound,
		mailboxes:    mailboxes,
		publisher:    publisher,
		log:          log,
		settleDelay:  defaultSettleDelay,
		searchWindow: defaultSearchWindow,
		pollAttempts: defaultPollAttempts,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SendAndVerify sends a probe carrying the token, waits for upstream
// delivery, then polls the inbound mailbox for it. Expected failures land in
// the attempt, never as a panic or error return.
func (o *VerificationOrchestrator) SendAndVerify(ctx context.Context, recipient string, token string) interfaces.VerificationAttempt {
	span, ctx := opentracing.StartSpanFromContext(ctx, "VerificationOrchestrator.SendAndVerify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("mailbox.id", o.mailbox.ID)
	span.LogKV("recipient", recipient)

	o.mu.Lock()
	defer o.mu.Unlock()

	attempt := interfaces.VerificationAttempt{
		LastAttempt: utils.Now(),
		Attempts:    1,
	}

	if token == "" {
		token = utils.GenerateVerificationToken()
	}

	subject := fmt.Sprintf("Mailbox verification %s", utils.GenerateNanoIdWithPrefix("chk", 12))
	probe := &models.ProbeMessage{
		FromAddress: o.mailbox.EmailAddress,
		FromName:    o.mailbox.DisplayName,
		FromDomain:  o.mailbox.MailboxDomain,
		ToAddress:   recipient,
		Subject:     subject,
		BodyText:    fmt.Sprintf("This is an automated deliverability check.\r\n\r\nVerification token: %s\r\n", token),
	}

	_, err := o.outbound.Send(ctx, probe)
	if err != nil {
		tracing.TraceErr(span, err)
		attempt.Error = err.Error()
		o.recordOutcome(ctx, attempt)
		return attempt
	}
	attempt.Sent = true

	// Give upstream delivery time to land before the first poll. A tighter
	// polling loop raises the false-negative rate.
	select {
	case <-time.After(o.settleDelay):
	case <-ctx.Done():
		attempt.Error = ctx.Err().Error()
		o.recordOutcome(ctx, attempt)
		return attempt
	}

	// The inbound session is released on every exit path from here on.
	defer o.inbound.Disconnect()

	if ok := o.inbound.Connect(ctx); !ok {
		attempt.Error = "connect failed"
		span.LogKV("inbound.state", o.inbound.State().String())
		o.recordOutcome(ctx, attempt)
		return attempt
	}

	criteria := interfaces.SearchCriteria{
		From:    o.mailbox.EmailAddress,
		Subject: subject,
		Since:   utils.Now().Add(-o.searchWindow),
	}

	var uids []uint32
	for poll := 1; poll <= o.pollAttempts; poll++ {
		attempt.Attempts = poll
		attempt.LastAttempt = utils.Now()

		uids, err = o.inbound.Search(ctx, criteria)
		if err != nil {
			tracing.TraceErr(span, err)
			attempt.Error = err.Error()
			o.recordOutcome(ctx, attempt)
			return attempt
		}
		if len(uids) > 0 {
			break
		}
		if poll == o.pollAttempts {
			break
		}

		select {
		case <-time.After(o.pollInterval):
		case <-ctx.Done():
			attempt.Error = ctx.Err().Error()
			o.recordOutcome(ctx, attempt)
			return attempt
		}
	}

	if len(uids) == 0 {
		span.LogKV("result", "no candidates")
		o.recordOutcome(ctx, attempt)
		return attempt
	}

	attempt.Delivered = true
	attempt.Verified = o.scanForToken(ctx, uids, token, subject)

	span.LogKV("result.verified", attempt.Verified)
	o.recordOutcome(ctx, attempt)
	return attempt
}

// scanForToken races "a message matched" against "end of stream". The
// outcome resolves exactly once; a match surfacing after the stream already
// resolved is dropped.
func (o *VerificationOrchestrator) scanForToken(ctx context.Context, uids []uint32, token string, subject string) bool {
	var once sync.Once
	verified := false
	resolve := func(v bool) {
		once.Do(func() {
			verified = v
		})
	}

	wantSubject := utils.NormalizeEmailSubject(subject)
	for msg := range o.inbound.Fetch(ctx, uids) {
		if msg.Subject != "" && utils.NormalizeEmailSubject(msg.Subject) != wantSubject {
			continue
		}
		if strings.Contains(msg.BodyText, token) {
			resolve(true)
			break
		}
	}
	resolve(false)

	return verified
}

// recordOutcome persists the connection outcome on the mailbox and notifies
// downstream consumers. Both sinks are optional.
func (o *VerificationOrchestrator) recordOutcome(ctx context.Context, attempt interfaces.VerificationAttempt) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "VerificationOrchestrator.recordOutcome")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	status := enum.ConnectionReady
	if !attempt.Verified {
		status = enum.ConnectionError
	}

	if o.mailboxes != nil {
		err := o.mailboxes.UpdateConnectionStatus(ctx, o.mailbox.ID, status, attempt.Error)
		if err != nil {
			tracing.TraceErr(span, err)
			o.log.Errorf("Failed to update mailbox %s connection status: %v", o.mailbox.ID, err)
		}
	}

	if o.publisher != nil {
		err := o.publisher.PublishMailboxVerifiedEvent(ctx, o.mailbox, attempt.Verified, attempt.Error)
		if err != nil {
			tracing.TraceErr(span, err)
			o.log.Errorf("Failed to publish mailbox verified event: %v", err)
		}
	}
}
