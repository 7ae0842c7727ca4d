package imap

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/customeros/warmstack/interfaces"
	"github.com/customeros/warmstack/internal/enum"
	"github.com/customeros/warmstack/internal/logger"
	"github.com/customeros/warmstack/internal/models"
)

type stubConnection struct {
	logoutCalls int32
}

func (s *stubConnection) Select(name string, readOnly bool) (*goimap.MailboxStatus, error) {
	return &goimap.MailboxStatus{Name: name}, nil
}

func (s *stubConnection) UidSearch(criteria *goimap.SearchCriteria) ([]uint32, error) {
	return nil, nil
}

func (s *stubConnection) UidFetch(seqset *goimap.SeqSet, items []goimap.FetchItem, ch chan *goimap.Message) error {
	close(ch)
	return nil
}

func (s *stubConnection) Logout() error {
	atomic.AddInt32(&s.logoutCalls, 1)
	return nil
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
		ID:           "mbox_test",
		ImapServer:   "imap.example.com",
		ImapPort:     993,
		ImapUsername: "probe@example.com",
		ImapPassword: "secret",
	}
}

func TestIMAPClient_ConcurrentConnectDialsOnce(t *testing.T) {
	// Arrange
	var dialCount int32
	dial := func(ctx context.Context, mailbox *models.Mailbox) (Connection, error) {
		atomic.AddInt32(&dialCount, 1)
		time.Sleep(50 * time.Millisecond)
		return &stubConnection{}, nil
	}
	client := NewIMAPClientWithDialer(testMailbox(), testLogger(), dial, 5*time.Second)

	// Act
	const callers = 10
	results := make([]bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = client.Connect(context.Background())
		}(i)
	}
	wg.Wait()

	// Assert
	assert.Equal(t, int32(1), atomic.LoadInt32(&dialCount))
	for i, ok := range results {
		assert.True(t, ok, "caller %d did not see the shared result", i)
	}
	assert.Equal(t, enum.ConnectionReady, client.State())
}

func TestIMAPClient_ConnectIsIdempotentWhenReady(t *testing.T) {
	// Arrange
	var dialCount int32
	dial := func(ctx context.Context, mailbox *models.Mailbox) (Connection, error) {
		atomic.AddInt32(&dialCount, 1)
		return &stubConnection{}, nil
	}
	client := NewIMAPClientWithDialer(testMailbox(), testLogger(), dial, time.Second)

	// Act
	first := client.Connect(context.Background())
	second := client.Connect(context.Background())

	// Assert
	assert.True(t, first)
	assert.True(t, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&dialCount))
}

func TestIMAPClient_DialFailureMovesToErrorState(t *testing.T) {
	// Arrange
	dial := func(ctx context.Context, mailbox *models.Mailbox) (Connection, error) {
		return nil, errors.New("auth rejected")
	}
	client := NewIMAPClientWithDialer(testMailbox(), testLogger(), dial, time.Second)

	// Act
	ok := client.Connect(context.Background())

	// Assert
	assert.False(t, ok)
	assert.Equal(t, enum.ConnectionError, client.State())

	// The error state only clears through Disconnect
	assert.False(t, client.Connect(context.Background()))
	client.Disconnect()
	assert.Equal(t, enum.ConnectionDisconnected, client.State())
}

func TestIMAPClient_ConnectTimeoutResetsToDisconnected(t *testing.T) {
	// Arrange: a dial that never returns within the timeout
	release := make(chan struct{})
	dial := func(ctx context.Context, mailbox *models.Mailbox) (Connection, error) {
		<-release
		return &stubConnection{}, nil
	}
	client := NewIMAPClientWithDialer(testMailbox(), testLogger(), dial, 30*time.Millisecond)

	// Act
	ok := client.Connect(context.Background())
	close(release)

	// Assert: not wedged in connecting, a later call may retry
	assert.False(t, ok)
	assert.Equal(t, enum.ConnectionDisconnected, client.State())
}

func TestIMAPClient_LateDialResultAfterTimeoutIsDiscarded(t *testing.T) {
	// Arrange
	conn := &stubConnection{}
	release := make(chan struct{})
	dial := func(ctx context.Context, mailbox *models.Mailbox) (Connection, error) {
		<-release
		return conn, nil
	}
	client := NewIMAPClientWithDialer(testMailbox(), testLogger(), dial, 30*time.Millisecond)

	// Act
	ok := client.Connect(context.Background())
	close(release)
	time.Sleep(50 * time.Millisecond)

	// Assert: the stale connection is logged out, not adopted
	assert.False(t, ok)
	assert.Equal(t, enum.ConnectionDisconnected, client.State())
	assert.Equal(t, int32(1), atomic.LoadInt32(&conn.logoutCalls))
}

func TestIMAPClient_DisconnectIsSafeWhenNeverConnected(t *testing.T) {
	// Arrange
	client := NewIMAPClientWithDialer(testMailbox(), testLogger(), nil, time.Second)

	// Act & Assert: no panic, state stays disconnected
	client.Disconnect()
	client.Disconnect()
	assert.Equal(t, enum.ConnectionDisconnected, client.State())
}

func TestIMAPClient_DisconnectLogsOutActiveConnection(t *testing.T) {
	// Arrange
	conn := &stubConnection{}
	dial := func(ctx context.Context, mailbox *models.Mailbox) (Connection, error) {
		return conn, nil
	}
	client := NewIMAPClientWithDialer(testMailbox(), testLogger(), dial, time.Second)
	assert.True(t, client.Connect(context.Background()))

	// Act
	client.Disconnect()

	// Assert
	assert.Equal(t, enum.ConnectionDisconnected, client.State())
	assert.Equal(t, int32(1), atomic.LoadInt32(&conn.logoutCalls))
}

func TestIMAPClient_SearchRequiresConnection(t *testing.T) {
	// Arrange
	client := NewIMAPClientWithDialer(testMailbox(), testLogger(), nil, time.Second)

	// Act
	uids, err := client.Search(context.Background(), interfaces.SearchCriteria{From: "probe@example.com"})

	// Assert
	assert.Error(t, err)
	assert.Nil(t, uids)
}

// streamingConnection feeds a fixed number of parseable messages through
// UidFetch and records when the fetch call returns.
type streamingConnection struct {
	stubConnection
	messageCount int
	fetchDone    chan struct{}
}

func (s *streamingConnection) UidFetch(seqset *goimap.SeqSet, items []goimap.FetchItem, ch chan *goimap.Message) error {
	defer close(s.fetchDone)
	defer close(ch)
	section := &goimap.BodySectionName{}
	for i := 0; i < s.messageCount; i++ {
		raw := fmt.Sprintf("Message-ID: <%d@example.com>\r\nFrom: peer@example.com\r\nSubject: hello\r\n\r\nbody %d\r\n", i, i)
		ch <- &goimap.Message{
			Uid:  uint32(i + 1),
			Body: map[*goimap.BodySectionName]goimap.Literal{section: bytes.NewBufferString(raw)},
		}
	}
	return nil
}

func TestIMAPClient_AbandonedFetchReleasesStream(t *testing.T) {
	// Arrange
	conn := &streamingConnection{messageCount: 40, fetchDone: make(chan struct{})}
	dial := func(ctx context.Context, mailbox *models.Mailbox) (Connection, error) {
		return conn, nil
	}
	client := NewIMAPClientWithDialer(testMailbox(), testLogger(), dial, time.Second)
	assert.True(t, client.Connect(context.Background()))

	uids := make([]uint32, conn.messageCount)
	for i := range uids {
		uids[i] = uint32(i + 1)
	}

	// Act: read one message, walk away, then disconnect
	messages := client.Fetch(context.Background(), uids)
	first, ok := <-messages
	client.Disconnect()

	// Assert
	assert.True(t, ok)
	assert.Contains(t, first.BodyText, "body")
	select {
	case <-conn.fetchDone:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch stream was never released after the consumer left")
	}
	for range messages {
	}
}

func TestIMAPClient_AbandonedFetchReleasesStreamOnContextCancel(t *testing.T) {
	// Arrange
	conn := &streamingConnection{messageCount: 40, fetchDone: make(chan struct{})}
	dial := func(ctx context.Context, mailbox *models.Mailbox) (Connection, error) {
		return conn, nil
	}
	client := NewIMAPClientWithDialer(testMailbox(), testLogger(), dial, time.Second)
	assert.True(t, client.Connect(context.Background()))

	uids := make([]uint32, conn.messageCount)
	for i := range uids {
		uids[i] = uint32(i + 1)
	}
	ctx, cancel := context.WithCancel(context.Background())

	// Act
	messages := client.Fetch(ctx, uids)
	_, ok := <-messages
	cancel()

	// Assert
	assert.True(t, ok)
	select {
	case <-conn.fetchDone:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch stream was never released after cancellation")
	}
	for range messages {
	}
}
