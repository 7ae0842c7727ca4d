package imap

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/jhillyerd/enmime"
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

const (
	defaultConnectTimeout = 30 * time.Second
	searchTimeout         = 30 * time.Second
	fetchTimeout          = 60 * time.Second
	logoutTimeout         = 5 * time.Second
)

// Connection is the subset of the IMAP client the transport drives. It is a
// seam for tests; production connections are *client.Client.
type Connection interface {
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Logout() error
}

// DialFunc opens and authenticates one IMAP session.
type DialFunc func(ctx context.Context, mailbox *models.Mailbox) (Connection, error)

// IMAPClient is the inbound transport for a single mailbox. Connect is
// single-flight: concurrent callers latch onto the in-flight attempt instead
// of dialing again.
type IMAPClient struct {
	mailbox *models.Mailbox
	log     logger.Logger
	dial    DialFunc

	connectTimeout time.Duration

	mu      sync.Mutex
	state   enum.ConnectionState
	conn    Connection
	pending chan struct{}
	quit    chan struct{}
}

func NewIMAPClient(mailbox *models.Mailbox, log logger.Logger) *IMAPClient {
	return &IMAPClient{
		mailbox:        mailbox,
		log:            log,
		dial:           dialMailbox,
		connectTimeout: defaultConnectTimeout,
		state:          enum.ConnectionDisconnected,
	}
}

// NewIMAPClientWithDialer builds a transport with a custom dial function and
// connect timeout. A nil dial falls back to the production dialer.
func NewIMAPClientWithDialer(mailbox *models.Mailbox, log logger.Logger, dial DialFunc, connectTimeout time.Duration) *IMAPClient {
	if dial == nil {
		dial = dialMailbox
	}
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	return &IMAPClient{
		mailbox:        mailbox,
		log:            log,
		dial:           dial,
		connectTimeout: connectTimeout,
		state:          enum.ConnectionDisconnected,
	}
}

// dialMailbox establishes a connection to the IMAP server for the mailbox
// configuration and logs in.
func dialMailbox(ctx context.Context, mailbox *models.Mailbox) (Connection, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "IMAPClient.dialMailbox")
	defer span.Finish()
	span.SetTag("mailbox.id", mailbox.ID)
	span.SetTag("server", mailbox.ImapServer)
	span.SetTag("port", mailbox.ImapPort)

	serverAddr := fmt.Sprintf("%s:%d", mailbox.ImapServer, mailbox.ImapPort)

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	var c *client.Client
	var err error

	if mailbox.ImapSecurity == enum.EmailSecurityNone {
		c, err = client.DialWithDialer(dialer, serverAddr)
	} else {
		tlsConfig := &tls.Config{
			ServerName: mailbox.ImapServer,
		}
		c, err = client.DialWithDialerTLS(dialer, serverAddr, tlsConfig)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to connect to %s: %w", serverAddr, err)
	}

	// Bound the login exchange
	c.Timeout = 30 * time.Second

	err = c.Login(mailbox.ImapUsername, mailbox.ImapPassword)
	if err != nil {
		c.Logout()
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to login as %s: %w", mailbox.ImapUsername, err)
	}

	// No timeout for normal operations
	c.Timeout = 0

	span.SetTag("success", true)
	return c, nil
}

// Connect brings the transport to the ready state. Repeated calls while
// ready are no-ops; calls during an in-flight attempt wait for its outcome.
func (s *IMAPClient) Connect(ctx context.Context) bool {
	span, ctx := opentracing.StartSpanFromContext(ctx, "IMAPClient.Connect")
	defer span.Finish()
	tracing.SetDefaultTransportSpanTags(ctx, span)
	span.SetTag("mailbox.id", s.mailbox.ID)

	s.mu.Lock()
	switch s.state {
	case enum.ConnectionReady:
		s.mu.Unlock()
		return true
	case enum.ConnectionConnecting:
		pending := s.pending
		s.mu.Unlock()
		return s.awaitPending(ctx, pending)
	case enum.ConnectionError:
		// The error state only clears through Disconnect.
		s.mu.Unlock()
		return false
	}

	s.state = enum.ConnectionConnecting
	s.pending = make(chan struct{})
	s.quit = make(chan struct{})
	pending := s.pending
	s.mu.Unlock()

	go s.attemptConnect(ctx)

	return s.awaitPending(ctx, pending)
}

// awaitPending blocks until the in-flight attempt resolves or the connect
// timeout elapses, then reports whether the transport ended up ready. A
// timed-out attempt resets to disconnected so a later call can retry.
func (s *IMAPClient) awaitPending(ctx context.Context, pending chan struct{}) bool {
	select {
	case <-pending:
	case <-time.After(s.connectTimeout):
		s.resolveConnect(nil, errors.Wrapf(warmstack_errors.ErrConnectionTimeout, "after %s", s.connectTimeout), enum.ConnectionDisconnected)
	case <-ctx.Done():
		s.resolveConnect(nil, ctx.Err(), enum.ConnectionDisconnected)
	}
	return s.State() == enum.ConnectionReady
}

func (s *IMAPClient) attemptConnect(ctx context.Context) {
	conn, err := s.dial(ctx, s.mailbox)
	s.resolveConnect(conn, err, enum.ConnectionError)
}

// resolveConnect settles the in-flight attempt exactly once, moving to
// failState on error. Late or duplicate resolutions release their connection
// and change nothing.
func (s *IMAPClient) resolveConnect(conn Connection, err error, failState enum.ConnectionState) {
	s.mu.Lock()

	if s.state != enum.ConnectionConnecting {
		s.mu.Unlock()
		if conn != nil {
			go conn.Logout()
		}
		return
	}

	if err != nil {
		s.state = failState
		s.conn = nil
	} else {
		s.state = enum.ConnectionReady
		s.conn = conn
	}

	if s.pending != nil {
		close(s.pending)
		s.pending = nil
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warnf("[%s] IMAP connection failed: %v", s.mailbox.ID, err)
		if conn != nil {
			go conn.Logout()
		}
	}
}

func (s *IMAPClient) State() enum.ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *IMAPClient) connection() (Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != enum.ConnectionReady || s.conn == nil {
		return nil, warmstack_errors.ErrNotConnected
	}
	return s.conn, nil
}

// Search returns the UIDs of mailbox messages matching the criteria.
func (s *IMAPClient) Search(ctx context.Context, criteria interfaces.SearchCriteria) ([]uint32, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "IMAPClient.Search")
	defer span.Finish()
	tracing.SetDefaultTransportSpanTags(ctx, span)
	span.SetTag("mailbox.id", s.mailbox.ID)
	span.LogKV("from", criteria.From, "subject", criteria.Subject)

	c, err := s.connection()
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	folder := s.mailbox.ImapFolder
	if folder == "" {
		folder = "INBOX"
	}
	_, err = c.Select(folder, true)
	if err != nil {
		err = fmt.Errorf("error selecting folder %s: %w", folder, err)
		tracing.TraceErr(span, err)
		return nil, err
	}

	searchCriteria := imap.NewSearchCriteria()
	if criteria.From != "" {
		searchCriteria.Header.Add("From", criteria.From)
	}
	if criteria.Subject != "" {
		searchCriteria.Header.Add("Subject", criteria.Subject)
	}
	if !criteria.Since.IsZero() {
		searchCriteria.Since = criteria.Since
	}

	s.setTimeout(c, searchTimeout)
	uids, err := c.UidSearch(searchCriteria)
	s.setTimeout(c, 0)

	if err != nil {
		err = fmt.Errorf("error searching for messages: %w", err)
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.LogKV("result.count", len(uids))
	return uids, nil
}

// Fetch streams the identified messages, parsed down to their text body.
// Messages that fail to parse are logged and skipped.
func (s *IMAPClient) Fetch(ctx context.Context, uids []uint32) <-chan interfaces.FetchedMessage {
	out := make(chan interfaces.FetchedMessage, 10)

	go func() {
		defer close(out)

		span, _ := opentracing.StartSpanFromContext(ctx, "IMAPClient.Fetch")
		defer span.Finish()
		tracing.SetDefaultTransportSpanTags(ctx, span)
		span.SetTag("mailbox.id", s.mailbox.ID)
		span.LogKV("uids.count", len(uids))

		if len(uids) == 0 {
			return
		}

		s.mu.Lock()
		c := s.conn
		quit := s.quit
		ready := s.state == enum.ConnectionReady && c != nil
		s.mu.Unlock()
		if !ready {
			tracing.TraceErr(span, warmstack_errors.ErrNotConnected)
			return
		}

		seqSet := new(imap.SeqSet)
		for _, uid := range uids {
			seqSet.AddNum(uid)
		}

		section := &imap.BodySectionName{Peek: true}
		items := []imap.FetchItem{
			imap.FetchEnvelope,
			imap.FetchUid,
			imap.FetchInternalDate,
			section.FetchItem(),
		}

		messages := make(chan *imap.Message, 10)
		done := make(chan error, 1)

		s.setTimeout(c, fetchTimeout)
		go func() {
			done <- c.UidFetch(seqSet, items, messages)
		}()

		// The loop keeps draining messages after the consumer is gone so
		// the UidFetch goroutine can close the channel and return.
		abandoned := false
		for msg := range messages {
			if abandoned {
				continue
			}
			fetched, parseErr := s.parseMessage(msg, section)
			if parseErr != nil {
				s.log.Warnf("[%s] Skipping unparseable message UID %d: %v", s.mailbox.ID, msg.Uid, parseErr)
				continue
			}
			select {
			case out <- *fetched:
			case <-ctx.Done():
				abandoned = true
			case <-quit:
				abandoned = true
			}
		}
		if abandoned {
			span.SetTag("abandoned", true)
		}

		s.setTimeout(c, 0)

		err := <-done
		if err != nil {
			tracing.TraceErr(span, fmt.Errorf("error fetching messages: %w", err))
		}
	}()

	return out
}

func (s *IMAPClient) parseMessage(msg *imap.Message, section *imap.BodySectionName) (*interfaces.FetchedMessage, error) {
	body := msg.GetBody(section)
	if body == nil {
		return nil, fmt.Errorf("message has no body section")
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("error reading message body: %w", err)
	}

	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}

	fetched := &interfaces.FetchedMessage{
		UID:        msg.Uid,
		MessageID:  utils.NormalizeMessageID(envelope.GetHeader("Message-ID")),
		Subject:    envelope.GetHeader("Subject"),
		From:       envelope.GetHeader("From"),
		BodyText:   envelope.Text,
		ReceivedAt: msg.InternalDate,
	}
	if msg.Envelope != nil && fetched.Subject == "" {
		fetched.Subject = msg.Envelope.Subject
	}

	return fetched, nil
}

// setTimeout applies an operation timeout when the connection supports it.
func (s *IMAPClient) setTimeout(c Connection, timeout time.Duration) {
	if cl, ok := c.(*client.Client); ok {
		cl.Timeout = timeout
	}
}

// Disconnect transitions to disconnected and logs out the session in the
// background. It is safe to call from any state.
func (s *IMAPClient) Disconnect() {
	span := opentracing.StartSpan("IMAPClient.Disconnect")
	defer span.Finish()
	span.SetTag("mailbox.id", s.mailbox.ID)

	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.state = enum.ConnectionDisconnected
	if s.pending != nil {
		close(s.pending)
		s.pending = nil
	}
	if s.quit != nil {
		close(s.quit)
		s.quit = nil
	}
	s.mu.Unlock()

	if conn == nil {
		return
	}

	s.setTimeout(conn, logoutTimeout)

	done := make(chan error, 1)
	go func() {
		done <- conn.Logout()
		close(done)
	}()

	select {
	case err := <-done:
		if err != nil {
			s.log.Warnf("[%s] Error during logout: %v", s.mailbox.ID, err)
			tracing.TraceErr(span, err)
		}
	case <-time.After(logoutTimeout):
		s.log.Warnf("[%s] Logout timed out", s.mailbox.ID)
		span.SetTag("timeout", true)
	}
}
