package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-intel-be/internal/bootstrap"
	"trade-intel-be/internal/config"
	"trade-intel-be/internal/server"
	"trade-intel-be/internal/tracer"
	"trade-intel-be/pkg/database"
)

func main() {
	// 1. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 2. Load Configuration
	cfg := config.Load()

	// 3. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 4. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 5. Start Background Services
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()
	if container.AuditService != nil {
		if err := container.AuditService.Start(); err != nil {
			log.Printf("Background Audit Error: %v", err)
		}
	}

	// 6. Initialize Server
	srv := server.New(cfg, container)

	// 7. Run with graceful shutdown. In-flight streams get a grace window
	// to reach their terminal event before the pool is drained.
	go func() {
		if err := srv.Run(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	if err := srv.Shutdown(); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := container.StreamPool.Shutdown(drainCtx); err != nil {
		log.Printf("Stream pool drain timed out: %v", err)
	}

	if container.NatsPub != nil {
		container.NatsPub.Close()
	}
	log.Println("Shutdown complete")
}
