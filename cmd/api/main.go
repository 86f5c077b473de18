package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/isoview/internal/adapters/geocoding"
	"github.com/samirrijal/isoview/internal/adapters/http"
	natsadapter "github.com/samirrijal/isoview/internal/adapters/nats"
	"github.com/samirrijal/isoview/internal/adapters/traveltime"
	"github.com/samirrijal/isoview/internal/adapters/valkey"
	"github.com/samirrijal/isoview/internal/core/domain"
	"github.com/samirrijal/isoview/internal/core/ports"
	"github.com/samirrijal/isoview/internal/core/usecases"
	"github.com/samirrijal/isoview/internal/pkg/config"
	"github.com/samirrijal/isoview/internal/pkg/logging"
	"github.com/samirrijal/isoview/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("isoview-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Cache (optional). Keep the interface nil when unavailable.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr, "isoview:")
	if err != nil {
		slog.Warn("valkey unavailable, caching disabled", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS (optional): map events and remote location commands
	var view ports.MapView = usecases.NopMapView{}
	nc, err := natsadapter.Connect(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, map events disabled", "error", err)
	} else {
		defer nc.Close()
		view = natsadapter.NewMapPublisher(nc)
	}

	// Remote APIs behind read-through caches
	isochrones := usecases.NewIsochroneService(
		traveltime.NewClient(cfg.Isochrone.Endpoint, cfg.Isochrone.TimeoutDuration()),
		cacheSvc, cfg.Cache.IsochroneTTL,
	)
	places := usecases.NewPlaceService(
		geocoding.NewClient(cfg.Geocoder.Endpoint, cfg.Geocoder.TimeoutDuration()),
		cacheSvc, cfg.Cache.PlaceTTL,
	)

	controller := usecases.NewViewController(isochrones, places, view, usecases.ControllerConfig{
		Style:          cfg.Map.Style,
		Center:         domain.Coordinate{Lng: cfg.Map.CenterLng, Lat: cfg.Map.CenterLat},
		Zoom:           cfg.Map.Zoom,
		DefaultCutoffs: cfg.Query.DefaultCutoffs,
		Debounce:       cfg.Query.Debounce(),
	})
	if err := controller.Mount(ctx); err != nil {
		log.Fatalf("mount view controller: %v", err)
	}

	if nc != nil {
		commands := natsadapter.NewCommandSubscriber(nc)
		if err := commands.SubscribeLocationCommands(ctx, controller.SetLocation); err != nil {
			slog.Warn("location commands unavailable", "error", err)
		} else {
			defer commands.Close()
		}
	}

	deps := &http.Dependencies{
		Controller: controller,
		NATS:       nc,
		Cache:      cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "isoview API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match",
		ExposeHeaders:    "ETag, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	if err := controller.Unmount(shutdownCtx); err != nil {
		slog.Warn("unmount view controller", "error", err)
	}

	slog.Info("server stopped")
}
