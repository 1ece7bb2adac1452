package main

import (
	"context"
	"log"

	"city-inspect-be/internal/bootstrap"
	"city-inspect-be/internal/config"
	"city-inspect-be/internal/server"
	"city-inspect-be/internal/tracer"
	"city-inspect-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Workers
	if err := container.Queue.Start(context.Background()); err != nil {
		log.Panicf("Unable to start task queue: %v", err)
	}
	defer container.Queue.Close()
	defer container.NatsPublisher.Close()

	if container.AuditService != nil {
		if err := container.AuditService.Consume(context.Background()); err != nil {
			log.Printf("Warn: audit consumer not started: %v", err)
		} else {
			defer container.AuditService.Close()
		}
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
