package errors

import "github.com/pkg/errors"

var (
	// common errors
	ErrTenantMissing     = errors.New("tenant is missing")
	ErrConnectionTimeout = errors.New("connection timeout")
	ErrUnauthorized      = errors.New("one or more mailboxes do not belong to the tenant")

	// transport errors
	ErrNotInitialized = errors.New("transport is not initialized")
	ErrNotConnected   = errors.New("transport is not connected")

	// mailbox errors
	ErrMailboxNotFound = errors.New("mailbox not found")
	ErrMailboxExists   = errors.New("mailbox already exists")

	// warm-up errors
	ErrWarmupNotConfigured = errors.New("warm-up is not configured for mailbox")
)
