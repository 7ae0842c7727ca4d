package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/customeros/warmstack/internal/logger"
	"github.com/customeros/warmstack/internal/tracing"
)

type Config struct {
	AppConfig               *AppConfig
	Logger                  *logger.Config
	Tracing                 *tracing.JaegerConfig
	WarmstackDatabaseConfig *WarmstackDatabaseConfig
	VerificationConfig      *VerificationConfig
	WarmupConfig            *WarmupConfig
}

func InitConfig() (*Config, error) {
	config := &Config{
		AppConfig:               &AppConfig{},
		Logger:                  &logger.Config{},
		Tracing:                 &tracing.JaegerConfig{},
		WarmstackDatabaseConfig: &WarmstackDatabaseConfig{},
		VerificationConfig:      &VerificationConfig{},
		WarmupConfig:            &WarmupConfig{},
	}

	err := godotenv.Load()
	if err != nil {
		log.Print("Unable to load .env file")
	}

	err = env.Parse(config)
	if err != nil {
		log.Fatalf("Error loading warmstack config: %v", err)
	}

	return config, nil
}
