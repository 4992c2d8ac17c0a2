package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ecospectre-be/internal/bootstrap"
	"ecospectre-be/internal/config"
	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/internal/server"
	"ecospectre-be/internal/tracer"
	"ecospectre-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	bootLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	shutdownTracer := tracer.InitTracer(cfg.Tracing, cfg.App.Environment, bootLogger)
	defer shutdownTracer(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Durable store: the server boots degraded when Postgres is down and recovers on its own.
	monitor := database.NewMonitor(cfg.Database.Connection, cfg.Database.PingInterval, bootLogger)
	if !monitor.Check(ctx) {
		log.Println("[WARN] Durable store unreachable at boot, scans go to the transient store")
	}
	go monitor.Run(ctx)
	defer monitor.Close()

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(monitor, cfg)
	defer container.Close()

	// 4. Start Background Services
	if container.FeedService != nil {
		go container.FeedService.Start()
	}
	if container.ReconcileService != nil {
		log.Println("Background: Starting transient reconciliation...")
		if err := container.ReconcileService.Consume(ctx); err != nil {
			log.Printf("Background Reconcile Error: %v", err)
		}
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	// 6. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
