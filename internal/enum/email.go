package enum

type EmailProvider string

const (
	EmailGoogleWorkspace EmailProvider = "google_workspace"
	EmailOutlook         EmailProvider = "outlook"
	EmailWarmstack       EmailProvider = "warmstack"
	EmailGeneric         EmailProvider = "generic"
)

func (t EmailProvider) String() string {
	return string(t)
}

type EmailSecurity string

const (
	EmailSecurityNone     EmailSecurity = "none"
	EmailSecuritySSL      EmailSecurity = "ssl"
	EmailSecurityTLS      EmailSecurity = "tls"
	EmailSecurityStartTLS EmailSecurity = "startTLS"
)

func (t EmailSecurity) String() string {
	return string(t)
}

type EntityType string

const (
	MAILBOX            EntityType = "MAILBOX"
	WARMUP_INTERACTION EntityType = "WARMUP_INTERACTION"
)

func (entityType EntityType) String() string {
	return string(entityType)
}
