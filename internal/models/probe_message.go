package models

import (
	"fmt"
	"time"

	"github.com/customeros/warmstack/internal/utils"
)

// ProbeMessage is the transient outbound message used for a warm-up or
// verification send. It is never persisted; callers record the outcome as a
// WarmupInteraction instead.
type ProbeMessage struct {
	MessageID   string
	FromAddress string
	FromName    string
	FromDomain  string
	ToAddress   string
	Subject     string
	BodyText    string
}

// BuildHeaders assembles the RFC 5322 headers for the message, generating a
// Message-ID when one was not set.
func (m *ProbeMessage) BuildHeaders() map[string]string {
	if m.MessageID == "" {
		m.MessageID = utils.GenerateMessageID(m.FromDomain, m.Subject)
	}

	from := m.FromAddress
	if m.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.FromName, m.FromAddress)
	}

	return map[string]string{
		"From":         from,
		"To":           m.ToAddress,
		"Subject":      m.Subject,
		"Message-ID":   m.MessageID,
		"Date":         time.Now().UTC().Format(time.RFC1123Z),
		"MIME-Version": "1.0",
	}
}
