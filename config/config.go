package config

type AppConfig struct {
	RabbitMQURL string `env:"RABBITMQ_URL"`
}

type WarmstackDatabaseConfig struct {
	Host            string `env:"WARMSTACK_POSTGRES_HOST,required"`
	Port            string `env:"WARMSTACK_POSTGRES_PORT,required"`
	User            string `env:"WARMSTACK_POSTGRES_USER,required"`
	DBName          string `env:"WARMSTACK_POSTGRES_DB_NAME,required"`
	Password        string `env:"WARMSTACK_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"WARMSTACK_POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"WARMSTACK_POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"WARMSTACK_POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"WARMSTACK_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"WARMSTACK_POSTGRES_SSL_MODE"`
}

type VerificationConfig struct {
	// SettleDelaySeconds is how long to wait between the outbound send and
	// the first inbound poll, giving upstream delivery time to complete.
	SettleDelaySeconds int `env:"VERIFICATION_SETTLE_DELAY_SECONDS" envDefault:"5"`
	// ConnectTimeoutSeconds bounds a single inbound connection attempt.
	ConnectTimeoutSeconds int `env:"VERIFICATION_CONNECT_TIMEOUT_SECONDS" envDefault:"30"`
	// SearchWindowHours is the recency window used when searching for the
	// delivered probe message.
	SearchWindowHours int `env:"VERIFICATION_SEARCH_WINDOW_HOURS" envDefault:"24"`
	// PollAttempts is how many inbound polls to run before giving up.
	PollAttempts int `env:"VERIFICATION_POLL_ATTEMPTS" envDefault:"3"`
	// PollIntervalSeconds is the pause between consecutive polls.
	PollIntervalSeconds int `env:"VERIFICATION_POLL_INTERVAL_SECONDS" envDefault:"10"`
}

type WarmupConfig struct {
	// PeerEmails are the warm-up counterpart addresses, comma separated.
	PeerEmails []string `env:"WARMUP_PEER_EMAILS" envSeparator:","`
	// BulkWorkers bounds the worker pool used when applying a configuration
	// across many mailboxes.
	BulkWorkers int `env:"WARMUP_BULK_WORKERS" envDefault:"8"`
}
