package services

import (
	"time"

	"github.com/customeros/warmstack/config"
	"github.com/customeros/warmstack/interfaces"
	"github.com/customeros/warmstack/internal/logger"
	"github.com/customeros/warmstack/internal/models"
	"github.com/customeros/warmstack/internal/repository"
	"github.com/customeros/warmstack/services/bulk"
	"github.com/customeros/warmstack/services/events"
	"github.com/customeros/warmstack/services/imap"
	"github.com/customeros/warmstack/services/smtp"
	"github.com/customeros/warmstack/services/verification"
	"github.com/customeros/warmstack/services/warmup"
)

// VerificationFactory builds the per-mailbox verification orchestrator with
// both transports wired in.
type VerificationFactory func(mailbox *models.Mailbox) interfaces.VerificationService

type Services struct {
	EventsPublisher     interfaces.EventsPublisher
	WarmupService       interfaces.WarmupService
	BulkService         interfaces.BulkService
	VerificationFactory VerificationFactory
}

func InitServices(cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	publisherConfig := &events.PublisherConfig{
		MessageTTL:          events.DefaultMessageTTL,
		MaxRetries:          events.DefaultMaxRetries,
		PublishTimeout:      events.DefaultPublishTimeout,
		ReconnectBackoff:    events.DefaultReconnectBackoff,
		MaxReconnectBackoff: events.DefaultMaxReconnectBackoff,
	}

	// A down broker must not keep the engine from starting; interactions
	// are still recorded, events resume on the next restart.
	var publisher interfaces.EventsPublisher
	rabbitPublisher, err := events.NewRabbitMQPublisher(cfg.AppConfig.RabbitMQURL, log, publisherConfig)
	if err != nil {
		log.Warnf("RabbitMQ unavailable, continuing without event publishing: %v", err)
	} else {
		publisher = rabbitPublisher
	}

	outboundFactory := func(mailbox *models.Mailbox) interfaces.OutboundTransport {
		return smtp.NewSMTPClient(mailbox)
	}

	warmupService := warmup.NewWarmupScheduler(
		repos.MailboxRepository,
		repos.WarmupSettingsRepository,
		repos.WarmupScheduleRepository,
		repos.WarmupInteractionRepository,
		publisher,
		outboundFactory,
		log,
		cfg.WarmupConfig.PeerEmails,
	)

	verificationFactory := func(mailbox *models.Mailbox) interfaces.VerificationService {
		return verification.NewVerificationOrchestrator(
			mailbox,
			smtp.NewSMTPClient(mailbox),
			imap.NewIMAPClientWithDialer(mailbox, log, nil, time.Duration(cfg.VerificationConfig.ConnectTimeoutSeconds)*time.Second),
			repos.MailboxRepository,
			publisher,
			log,
			verification.WithSettleDelay(time.Duration(cfg.VerificationConfig.SettleDelaySeconds)*time.Second),
			verification.WithSearchWindow(time.Duration(cfg.VerificationConfig.SearchWindowHours)*time.Hour),
			verification.WithPolling(cfg.VerificationConfig.PollAttempts, time.Duration(cfg.VerificationConfig.PollIntervalSeconds)*time.Second),
		)
	}

	services := Services{
		EventsPublisher:     publisher,
		WarmupService:       warmupService,
		BulkService:         bulk.NewBulkConfigApplier(repos.MailboxRepository, warmupService, log, cfg.WarmupConfig.BulkWorkers),
		VerificationFactory: verificationFactory,
	}

	return &services, nil
}
