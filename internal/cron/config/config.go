package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Warm-up cycle over active mailboxes, every minute
	CronScheduleWarmupCycle string `env:"CRON_SCHEDULE_WARMUP_CYCLE" envDefault:"0 * * * * *"`
}
