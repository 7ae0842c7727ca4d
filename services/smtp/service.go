package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	warmstack_errors "github.com/customeros/warmstack/errors"

	"github.com/customeros/warmstack/internal/enum"
	"github.com/customeros/warmstack/internal/models"
	"github.com/customeros/warmstack/internal/tracing"
	"github.com/customeros/warmstack/internal/utils"
)

const dialTimeout = 15 * time.Second

// SMTPClient is the outbound transport for a single mailbox. The client is
// built once and reused for the mailbox's lifetime; each Send runs on its
// own SMTP session.
type SMTPClient struct {
	mailbox *models.Mailbox
}

func NewSMTPClient(mailbox *models.Mailbox) *SMTPClient {
	return &SMTPClient{
		mailbox: mailbox,
	}
}

// Verify confirms the relay is reachable and the credentials authenticate.
// Failures are traced, never returned.
func (s *SMTPClient) Verify(ctx context.Context) bool {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SMTPClient.Verify")
	defer span.Finish()
	tracing.SetDefaultTransportSpanTags(ctx, span)
	span.LogKV("smtp_server", s.mailbox.SmtpServer)

	if err := s.validateConfig(); err != nil {
		tracing.TraceErr(span, err)
		return false
	}

	client, err := s.dial(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return false
	}
	defer client.Close()

	auth := s.auth()
	if err = client.Auth(auth); err != nil {
		tracing.TraceErr(span, errors.Wrap(err, "SMTP authentication failed"))
		return false
	}

	if err = client.Quit(); err != nil {
		tracing.TraceErr(span, err)
	}
	span.LogKV("result.verified", true)
	return true
}

// Send delivers the probe message and returns its message id.
func (s *SMTPClient) Send(ctx context.Context, message *models.ProbeMessage) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SMTPClient.Send")
	defer span.Finish()
	tracing.SetDefaultTransportSpanTags(ctx, span)

	if err := s.validateConfig(); err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	err := s.validateMessage(ctx, message)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	buffer, err := s.prepareMessage(ctx, message)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	err = s.sendToServer(ctx, message.FromAddress, message.ToAddress, buffer)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	span.LogKV("result.messageId", message.MessageID)
	return message.MessageID, nil
}

func (s *SMTPClient) validateConfig() error {
	if s.mailbox == nil || s.mailbox.SmtpServer == "" || s.mailbox.SmtpPort == 0 || s.mailbox.SmtpUsername == "" {
		return warmstack_errors.ErrNotInitialized
	}
	return nil
}

// validateMessage performs basic validation on the probe message
func (s *SMTPClient) validateMessage(ctx context.Context, message *models.ProbeMessage) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "SMTPClient.validateMessage")
	defer span.Finish()
	tracing.SetDefaultTransportSpanTags(ctx, span)

	if message == nil {
		err := fmt.Errorf("message cannot be nil")
		tracing.TraceErr(span, err)
		return err
	}

	if message.FromAddress == "" {
		err := fmt.Errorf("from address is required")
		tracing.TraceErr(span, err)
		return err
	}

	if message.FromDomain == "" {
		validation := mailvalidate.ValidateEmailSyntax(message.FromAddress)
		if !validation.IsValid {
			err := fmt.Errorf("from address is not valid")
			tracing.TraceErr(span, err)
			return err
		}
		if validation.Domain != s.mailbox.MailboxDomain {
			err := errors.New("from domain does not match mailbox domain")
			tracing.TraceErr(span, err)
			return err
		}
		message.FromDomain = validation.Domain
	}

	if message.ToAddress == "" {
		err := fmt.Errorf("recipient is required")
		tracing.TraceErr(span, err)
		return err
	}

	if message.BodyText == "" {
		err := fmt.Errorf("message must have text content")
		tracing.TraceErr(span, err)
		return err
	}

	if message.Subject == "" {
		err := fmt.Errorf("message must have a subject")
		tracing.TraceErr(span, err)
		return err
	}

	if message.MessageID == "" {
		message.MessageID = utils.GenerateMessageID(s.mailbox.MailboxDomain, message.Subject)
	}

	return nil
}

// prepareMessage builds the message in wire format
func (s *SMTPClient) prepareMessage(ctx context.Context, message *models.ProbeMessage) (*bytes.Buffer, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "SMTPClient.prepareMessage")
	defer span.Finish()
	tracing.SetDefaultTransportSpanTags(ctx, span)

	buffer := bytes.NewBuffer(nil)

	headers := message.BuildHeaders()
	headers["Content-Type"] = "text/plain; charset=UTF-8"
	tracing.LogObjectAsJson(span, "headers", headers)

	writeHeaders(headers, buffer)

	_, err := buffer.WriteString(message.BodyText)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	return buffer, nil
}

// writeHeaders writes message headers to the buffer
func writeHeaders(headers map[string]string, buffer *bytes.Buffer) {
	for k, v := range headers {
		buffer.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	buffer.WriteString("\r\n")
}

func (s *SMTPClient) auth() smtp.Auth {
	return smtp.PlainAuth("", s.mailbox.SmtpUsername, s.mailbox.SmtpPassword, s.mailbox.SmtpServer)
}

// dial opens a connection and negotiates TLS according to the mailbox
// security setting, returning an authenticated-ready client.
func (s *SMTPClient) dial(ctx context.Context) (*smtp.Client, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "SMTPClient.dial")
	defer span.Finish()
	tracing.SetDefaultTransportSpanTags(ctx, span)

	addr := fmt.Sprintf("%s:%d", s.mailbox.SmtpServer, s.mailbox.SmtpPort)
	tlsConfig := &tls.Config{
		ServerName: s.mailbox.SmtpServer,
	}

	if s.mailbox.SmtpSecurity == enum.EmailSecuritySSL || s.mailbox.SmtpSecurity == enum.EmailSecurityTLS {
		dialer := &net.Dialer{Timeout: dialTimeout}
		conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
		if err != nil {
			err = fmt.Errorf("failed to connect to SMTP server: %w", err)
			tracing.TraceErr(span, err)
			return nil, err
		}
		client, err := smtp.NewClient(conn, s.mailbox.SmtpServer)
		if err != nil {
			conn.Close()
			err = fmt.Errorf("failed to create SMTP client: %w", err)
			tracing.TraceErr(span, err)
			return nil, err
		}
		return client, nil
	}

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		err = fmt.Errorf("failed to connect to SMTP server: %w", err)
		tracing.TraceErr(span, err)
		return nil, err
	}

	client, err := smtp.NewClient(conn, s.mailbox.SmtpServer)
	if err != nil {
		conn.Close()
		err = fmt.Errorf("failed to create SMTP client: %w", err)
		tracing.TraceErr(span, err)
		return nil, err
	}

	if s.mailbox.SmtpSecurity == enum.EmailSecurityStartTLS {
		if err = client.StartTLS(tlsConfig); err != nil {
			client.Close()
			err = fmt.Errorf("failed to start TLS: %w", err)
			tracing.TraceErr(span, err)
			return nil, err
		}
	}

	return client, nil
}

// sendToServer sends the prepared message to the SMTP server
func (s *SMTPClient) sendToServer(ctx context.Context, from string, recipient string, buffer *bytes.Buffer) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SMTPClient.sendToServer")
	defer span.Finish()
	tracing.SetDefaultTransportSpanTags(ctx, span)
	span.LogKV("smtp_server", s.mailbox.SmtpServer)
	span.LogKV("smtp_port", s.mailbox.SmtpPort)
	span.LogKV("from_address", from)

	client, err := s.dial(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	defer client.Close()

	if err = client.Auth(s.auth()); err != nil {
		err = fmt.Errorf("SMTP authentication failed: %w", err)
		tracing.TraceErr(span, err)
		return err
	}

	if err = client.Mail(from); err != nil {
		err = fmt.Errorf("SMTP MAIL command failed: %w", err)
		tracing.TraceErr(span, err)
		return err
	}

	if err = client.Rcpt(recipient); err != nil {
		err = fmt.Errorf("SMTP RCPT command failed for %s: %w", recipient, err)
		tracing.TraceErr(span, err)
		return err
	}

	dataWriter, err := client.Data()
	if err != nil {
		err = fmt.Errorf("SMTP DATA command failed: %w", err)
		tracing.TraceErr(span, err)
		return err
	}

	_, err = dataWriter.Write(buffer.Bytes())
	if err != nil {
		err = fmt.Errorf("failed to write message data: %w", err)
		tracing.TraceErr(span, err)
		return err
	}

	err = dataWriter.Close()
	if err != nil {
		err = fmt.Errorf("failed to close data writer: %w", err)
		tracing.TraceErr(span, err)
		return err
	}

	return client.Quit()
}
