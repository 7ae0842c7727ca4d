package verification

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/customeros/warmstack/interfaces"
	"github.com/customeros/warmstack/internal/enum"
	"github.com/customeros/warmstack/internal/logger"
	"github.com/customeros/warmstack/internal/models"
)

type stubOutbound struct {
	sendErr   error
	sendCalls int32
}

func (s *stubOutbound) Verify(ctx context.Context) bool {
	return s.sendErr == nil
}

func (s *stubOutbound) Send(ctx context.Context, message *models.ProbeMessage) (string, error) {
	atomic.AddInt32(&s.sendCalls, 1)
	if s.sendErr != nil {
		return "", s.sendErr
	}
	return "msg-id-1", nil
}

type stubInbound struct {
	connectOK       bool
	connectCalls    int32
	disconnectCalls int32
	searchErr       error
	uids            []uint32
	bodies          []string
}

func (s *stubInbound) Connect(ctx context.Context) bool {
	atomic.AddInt32(&s.connectCalls, 1)
	return s.connectOK
}

func (s *stubInbound) State() enum.ConnectionState {
	if s.connectOK && atomic.LoadInt32(&s.connectCalls) > 0 {
		return enum.ConnectionReady
	}
	return enum.ConnectionError
}

func (s *stubInbound) Search(ctx context.Context, criteria interfaces.SearchCriteria) ([]uint32, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.uids, nil
}

func (s *stubInbound) Fetch(ctx context.Context, uids []uint32) <-chan interfaces.FetchedMessage {
	out := make(chan interfaces.FetchedMessage, len(s.bodies))
	go func() {
		defer close(out)
		for i, body := range s.bodies {
			out <- interfaces.FetchedMessage{
				UID:      uint32(i + 1),
				BodyText: body,
			}
		}
	}()
	return out
}

func (s *stubInbound) Disconnect() {
	atomic.AddInt32(&s.disconnectCalls, 1)
}

func testLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func testMailbox() *models.Mailbox {
	return &models.Mailbox{
		ID:            "mbox_test",
		EmailAddress:  "probe@example.com",
		MailboxDomain: "example.com",
	}
}

func newOrchestrator(outbound interfaces.OutboundTransport, inbound interfaces.InboundTransport) *VerificationOrchestrator {
	return NewVerificationOrchestrator(
		testMailbox(),
		outbound,
		inbound,
		nil,
		nil,
		testLogger(),
		WithSettleDelay(time.Millisecond),
		WithPolling(1, time.Millisecond),
	)
}

func TestSendAndVerify_TokenFoundInFetchedMessage(t *testing.T) {
	// Arrange
	outbound := &stubOutbound{}
	inbound := &stubInbound{
		connectOK: true,
		uids:      []uint32{7, 8},
		bodies:    []string{"unrelated message", "Verification token: wsv-abc123"},
	}
	orchestrator := newOrchestrator(outbound, inbound)

	// Act
	attempt := orchestrator.SendAndVerify(context.Background(), "peer@example.org", "wsv-abc123")

	// Assert
	assert.True(t, attempt.Sent)
	assert.True(t, attempt.Delivered)
	assert.True(t, attempt.Verified)
	assert.Empty(t, attempt.Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inbound.disconnectCalls))
}

func TestSendAndVerify_SendFailureShortCircuits(t *testing.T) {
	// Arrange
	outbound := &stubOutbound{sendErr: errors.New("relay rejected sender")}
	inbound := &stubInbound{connectOK: true}
	orchestrator := newOrchestrator(outbound, inbound)

	// Act
	attempt := orchestrator.SendAndVerify(context.Background(), "peer@example.org", "wsv-abc123")

	// Assert
	assert.False(t, attempt.Sent)
	assert.False(t, attempt.Delivered)
	assert.False(t, attempt.Verified)
	assert.Equal(t, "relay rejected sender", attempt.Error)
	assert.Equal(t, int32(0), atomic.LoadInt32(&inbound.connectCalls))
}

func TestSendAndVerify_ConnectFailureStillDisconnects(t *testing.T) {
	// Arrange
	outbound := &stubOutbound{}
	inbound := &stubInbound{connectOK: false}
	orchestrator := newOrchestrator(outbound, inbound)

	// Act
	attempt := orchestrator.SendAndVerify(context.Background(), "peer@example.org", "wsv-abc123")

	// Assert
	assert.True(t, attempt.Sent)
	assert.False(t, attempt.Delivered)
	assert.False(t, attempt.Verified)
	assert.NotEmpty(t, attempt.Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inbound.disconnectCalls))
}

func TestSendAndVerify_NoCandidatesMeansNotDelivered(t *testing.T) {
	// Arrange
	outbound := &stubOutbound{}
	inbound := &stubInbound{connectOK: true, uids: nil}
	orchestrator := newOrchestrator(outbound, inbound)

	// Act
	attempt := orchestrator.SendAndVerify(context.Background(), "peer@example.org", "wsv-abc123")

	// Assert
	assert.True(t, attempt.Sent)
	assert.False(t, attempt.Delivered)
	assert.False(t, attempt.Verified)
	assert.Empty(t, attempt.Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inbound.disconnectCalls))
}

func TestSendAndVerify_ExhaustedStreamWithoutMatch(t *testing.T) {
	// Arrange
	outbound := &stubOutbound{}
	inbound := &stubInbound{
		connectOK: true,
		uids:      []uint32{1},
		bodies:    []string{"no token in here"},
	}
	orchestrator := newOrchestrator(outbound, inbound)

	// Act
	attempt := orchestrator.SendAndVerify(context.Background(), "peer@example.org", "wsv-abc123")

	// Assert
	assert.True(t, attempt.Sent)
	assert.True(t, attempt.Delivered)
	assert.False(t, attempt.Verified)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inbound.disconnectCalls))
}

func TestSendAndVerify_SearchFailurePopulatesError(t *testing.T) {
	// Arrange
	outbound := &stubOutbound{}
	inbound := &stubInbound{connectOK: true, searchErr: errors.New("mailbox unavailable")}
	orchestrator := newOrchestrator(outbound, inbound)

	// Act
	attempt := orchestrator.SendAndVerify(context.Background(), "peer@example.org", "wsv-abc123")

	// Assert
	assert.True(t, attempt.Sent)
	assert.False(t, attempt.Delivered)
	assert.False(t, attempt.Verified)
	assert.Equal(t, "mailbox unavailable", attempt.Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(&inbound.disconnectCalls))
}

func TestSendAndVerify_PollsUntilCandidatesAppear(t *testing.T) {
	// Arrange: two empty polls, then a match
	outbound := &stubOutbound{}
	inbound := &pollingInbound{
		stubInbound: stubInbound{
			connectOK: true,
			bodies:    []string{"Verification token: wsv-late"},
		},
		emptyPolls: 2,
	}
	orchestrator := NewVerificationOrchestrator(
		testMailbox(),
		outbound,
		inbound,
		nil,
		nil,
		testLogger(),
		WithSettleDelay(time.Millisecond),
		WithPolling(3, time.Millisecond),
	)

	// Act
	attempt := orchestrator.SendAndVerify(context.Background(), "peer@example.org", "wsv-late")

	// Assert
	assert.True(t, attempt.Verified)
	assert.Equal(t, 3, attempt.Attempts)
}

type pollingInbound struct {
	stubInbound
	emptyPolls int
	polls      int
}

func (p *pollingInbound) Search(ctx context.Context, criteria interfaces.SearchCriteria) ([]uint32, error) {
	p.polls++
	if p.polls <= p.emptyPolls {
		return nil, nil
	}
	return []uint32{1}, nil
}
