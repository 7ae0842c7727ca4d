package bulk

import (
	"context"
	"sync"

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

const defaultWorkers = 8

// errAlreadyApplied marks an item whose mailbox already matches the
// requested configuration. Such items count as skipped, not failed.
var errAlreadyApplied = errors.New("configuration already applied")

// BulkConfigApplier fans one configuration change out across many mailboxes
// with a bounded worker pool. Ownership is an all-or-nothing boundary;
// per-item runtime failures are isolated.
type BulkConfigApplier struct {
	mailboxes interfaces.MailboxRepository
	warmup    interfaces.WarmupService
	log       logger.Logger
	workers   int
}

func NewBulkConfigApplier(
	mailboxes interfaces.MailboxRepository,
	warmup interfaces.WarmupService,
	log logger.Logger,
	workers int,
) *BulkConfigApplier {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &BulkConfigApplier{
		mailboxes: mailboxes,
		warmup:    warmup,
		log:       log,
		workers:   workers,
	}
}

type itemOutcome struct {
	id  string
	err error
}

// ApplyToMany applies the action to every mailbox id. The whole request is
// rejected when any id does not belong to the tenant on the context.
func (s *BulkConfigApplier) ApplyToMany(ctx context.Context, mailboxIDs []string, action enum.BulkAction, config *interfaces.BulkConfig) (*interfaces.BulkOperationResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "BulkConfigApplier.ApplyToMany")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("action", action.String(), "ids.count", len(mailboxIDs))

	if err := utils.ValidateTenant(ctx); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	result := &interfaces.BulkOperationResult{
		Total: len(mailboxIDs),
	}
	if len(mailboxIDs) == 0 {
		return result, nil
	}

	// Ownership pre-check, before any item runs.
	owned, err := s.checkOwnership(ctx, mailboxIDs)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	operation, err := s.operationFor(action, config, owned)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	ids := make(chan string)
	outcomes := make(chan itemOutcome, len(mailboxIDs))

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer tracing.RecoverAndLogToJaeger(s.log)
			for id := range ids {
				outcomes <- itemOutcome{id: id, err: operation(ctx, id)}
			}
		}()
	}

	for _, id := range mailboxIDs {
		ids <- id
	}
	close(ids)
	wg.Wait()
	close(outcomes)

	for outcome := range outcomes {
		if errors.Is(outcome.err, errAlreadyApplied) {
			result.Skipped++
			continue
		}
		if outcome.err != nil {
			result.Failed++
			result.Details.Failed = append(result.Details.Failed, interfaces.BulkItemFailure{
				ID:     outcome.id,
				Reason: outcome.err.Error(),
			})
			s.log.Warnf("Bulk %s failed for mailbox %s: %v", action, outcome.id, outcome.err)
			continue
		}
		result.Successful++
		result.Details.Successful = append(result.Details.Successful, outcome.id)
	}

	span.LogKV("result.successful", result.Successful, "result.failed", result.Failed, "result.skipped", result.Skipped)
	return result, nil
}

// checkOwnership verifies every id resolves to a mailbox of the tenant on
// the context and returns the resolved mailboxes keyed by id.
func (s *BulkConfigApplier) checkOwnership(ctx context.Context, mailboxIDs []string) (map[string]*models.Mailbox, error) {
	mailboxes, err := s.mailboxes.GetByIds(ctx, mailboxIDs)
	if err != nil {
		return nil, err
	}

	owned := make(map[string]*models.Mailbox, len(mailboxes))
	for _, mailbox := range mailboxes {
		owned[mailbox.ID] = mailbox
	}
	for _, id := range mailboxIDs {
		if owned[id] == nil {
			return nil, warmstack_errors.ErrUnauthorized
		}
	}
	return owned, nil
}

// operationFor resolves the per-item operation. The caller-supplied
// configuration is authoritative; nothing is substituted with defaults.
func (s *BulkConfigApplier) operationFor(action enum.BulkAction, config *interfaces.BulkConfig, owned map[string]*models.Mailbox) (func(ctx context.Context, id string) error, error) {
	switch action {
	case enum.BulkActionWarmup:
		if config == nil || config.Warmup == nil {
			return nil, errors.New("warmup action requires a warmup config")
		}
		warmupConfig := config.Warmup
		return func(ctx context.Context, id string) error {
			// Each item gets its own copy; ConfigureWarmup stamps the mailbox id.
			settings := warmupConfig.Settings
			if settings != nil {
				c := *settings
				settings = &c
			}
			schedule := warmupConfig.Schedule
			if schedule != nil {
				c := *schedule
				schedule = &c
			}
			return s.warmup.ConfigureWarmup(ctx, id, settings, schedule)
		}, nil

	case enum.BulkActionTracking:
		if config == nil || config.Tracking == nil {
			return nil, errors.New("tracking action requires a tracking config")
		}
		trackingConfig := config.Tracking
		return func(ctx context.Context, id string) error {
			if mailbox := owned[id]; mailbox != nil && trackingMatches(mailbox, trackingConfig) {
				return errAlreadyApplied
			}
			return s.mailboxes.UpdateTracking(ctx, id, trackingConfig.TrackOpens, trackingConfig.TrackClicks, trackingConfig.TrackReplies)
		}, nil

	case enum.BulkActionDelete:
		return func(ctx context.Context, id string) error {
			if err := s.mailboxes.SoftDelete(ctx, id); err != nil {
				return err
			}
			// A deleted mailbox must not keep warming up
			if err := s.warmup.DisableWarmup(ctx, id); err != nil && !errors.Is(err, warmstack_errors.ErrWarmupNotConfigured) {
				return err
			}
			return nil
		}, nil

	default:
		return nil, errors.Errorf("unsupported bulk action: %s", action)
	}
}

// trackingMatches reports whether every requested toggle already holds on
// the mailbox. Omitted toggles match anything.
func trackingMatches(mailbox *models.Mailbox, config *interfaces.BulkTrackingConfig) bool {
	if config.TrackOpens != nil && mailbox.TrackOpens != *config.TrackOpens {
		return false
	}
	if config.TrackClicks != nil && mailbox.TrackClicks != *config.TrackClicks {
		return false
	}
	if config.TrackReplies != nil && mailbox.TrackReplies != *config.TrackReplies {
		return false
	}
	return true
}
