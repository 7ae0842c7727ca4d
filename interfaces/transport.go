package interfaces

import (
	"context"
	"time"

	"github.com/customeros/warmstack/internal/enum"
	"github.com/customeros/warmstack/internal/models"
)

// OutboundTransport is the single shared session to the outbound mail relay.
// It does not retry internally; callers own the retry policy.
type OutboundTransport interface {
	// Verify confirms the relay is reachable and the credentials
	// authenticate. It returns false rather than an error on failure.
	Verify(ctx context.Context) bool
	// Send delivers the message and returns its message id. It fails with
	// ErrNotInitialized when the transport was constructed from invalid
	// configuration.
	Send(ctx context.Context, message *models.ProbeMessage) (string, error)
}

// SearchCriteria narrows an inbound search to probe messages.
type SearchCriteria struct {
	From    string
	Subject string
	Since   time.Time
}

// FetchedMessage is one parsed message from an inbound fetch stream.
type FetchedMessage struct {
	UID        uint32
	MessageID  string
	Subject    string
	From       string
	BodyText   string
	ReceivedAt time.Time
}

// InboundTransport is the short-lived session to the mailbox used for
// delivery confirmation. Connect is idempotent and single-flight: concurrent
// callers share one pending attempt.
type InboundTransport interface {
	Connect(ctx context.Context) bool
	State() enum.ConnectionState
	Search(ctx context.Context, criteria SearchCriteria) ([]uint32, error)
	// Fetch streams parsed messages as they are retrieved. Messages that
	// fail to parse are skipped; the channel is closed when the fetch ends.
	Fetch(ctx context.Context, uids []uint32) <-chan FetchedMessage
	Disconnect()
}
