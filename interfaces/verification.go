package interfaces

import (
	"context"
	"time"
)

// VerificationAttempt is the outcome of one send-then-confirm cycle.
// Invariant: Verified implies Delivered implies Sent. The engine never
// persists it; callers record the outcome as a WarmupInteraction.
type VerificationAttempt struct {
	Sent        bool       `json:"sent"`
	Delivered   bool       `json:"delivered"`
	Verified    bool       `json:"verified"`
	LastAttempt time.Time  `json:"lastAttempt"`
	Attempts    int        `json:"attempts"`
	Error       string     `json:"error,omitempty"`
}

type VerificationService interface {
	// SendAndVerify sends a probe with the token embedded in its body, then
	// polls the inbound mailbox until the token is found or candidates are
	// exhausted. Expected failures are reported in the attempt, not as an
	// error.
	SendAndVerify(ctx context.Context, recipient string, token string) VerificationAttempt
}
