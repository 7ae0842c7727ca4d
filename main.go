package main

import (
	"fmt"
	"log"
	"os"

	"github.com/customeros/warmstack/config"
	"github.com/customeros/warmstack/internal/database"
	"github.com/customeros/warmstack/internal/repository"
	"github.com/customeros/warmstack/server"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: warmstack <command>")
		fmt.Println("Commands:")
		fmt.Println("  migrate   Run database migrations")
		fmt.Println("  server    Start the application server")
		os.Exit(1)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Config initialization failed: %v", err)
	}
	if cfg == nil {
		log.Fatalf("config is empty")
	}

	// Setup the database
	warmstackDB, err := database.NewConnection(&database.DatabaseConfig{
		DBName:          cfg.WarmstackDatabaseConfig.DBName,
		Host:            cfg.WarmstackDatabaseConfig.Host,
		Port:            cfg.WarmstackDatabaseConfig.Port,
		User:            cfg.WarmstackDatabaseConfig.User,
		Password:        cfg.WarmstackDatabaseConfig.Password,
		MaxConn:         cfg.WarmstackDatabaseConfig.MaxConn,
		MaxIdleConn:     cfg.WarmstackDatabaseConfig.MaxIdleConn,
		ConnMaxLifetime: cfg.WarmstackDatabaseConfig.ConnMaxLifetime,
		LogLevel:        cfg.WarmstackDatabaseConfig.LogLevel,
		SSLMode:         cfg.WarmstackDatabaseConfig.SSLMode,
	})
	if err != nil {
		log.Fatalf("Warmstack database initialization failed: %v", err)
	}

	switch os.Args[1] {
	case "migrate":

		err := repository.MigrateDB(warmstackDB)
		if err != nil {
			log.Fatalf("Database migration failed: %v", err)
		}
		log.Println("Database migration completed successfully")

	case "server":

		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
		log.Println("Warmstack starting up...")

		srv, err := server.NewServer(cfg, warmstackDB)
		if err != nil {
			log.Fatalf("Server setup failed: %v", err)
		}

		err = srv.Run()
		if err != nil {
			log.Fatalf("Server startup failed: %v", err)
		}

		log.Println("Shutdown complete")

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		fmt.Println("Usage: warmstack <command>")
		fmt.Println("Commands:")
		fmt.Println("  migrate   Run database migrations")
		fmt.Println("  server    Start the application server")
		os.Exit(1)
	}
}
