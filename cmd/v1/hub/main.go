// Command hub runs the signalling server: a gin HTTP process exposing
// the /ws upgrade endpoint, the HTTP room-listing mirror, health probes,
// and a Prometheus /metrics endpoint. Wiring mirrors the teacher's
// cmd/v1/session/main.go: load .env, build dependencies, assemble a gin
// router, serve with graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/screenhub/signalhub/internal/v1/bus"
	"github.com/screenhub/signalhub/internal/v1/config"
	"github.com/screenhub/signalhub/internal/v1/conn"
	"github.com/screenhub/signalhub/internal/v1/health"
	"github.com/screenhub/signalhub/internal/v1/logging"
	"github.com/screenhub/signalhub/internal/v1/middleware"
	"github.com/screenhub/signalhub/internal/v1/protocol"
	"github.com/screenhub/signalhub/internal/v1/registry"
	"github.com/screenhub/signalhub/internal/v1/rooms"
	"github.com/screenhub/signalhub/internal/v1/tracing"
)

func main() {
	address := flag.String("address", "", "listen address as host:port (overrides PORT)")
	flag.Parse()

	loadEnv()

	cfg, err := config.ValidateEnv()
	if err != nil {
		// Logging isn't initialized yet; this is the one place stderr is
		// written to directly.
		os.Stderr.WriteString("configuration error: " + err.Error() + "\n")
		os.Exit(1)
	}

	if initErr := logging.Initialize(cfg.GoEnv != "production"); initErr != nil {
		os.Stderr.WriteString("failed to initialize logger: " + initErr.Error() + "\n")
		os.Exit(1)
	}

	ctx := context.Background()

	if cfg.TracingEnabled {
		tp, tracingErr := tracing.InitTracer(ctx, "signalhub", cfg.OtlpEndpoint)
		if tracingErr != nil {
			logging.Fatal(ctx, "failed to initialize tracing", zap.Error(tracingErr))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
				logging.Warn(ctx, "tracer shutdown failed", zap.Error(shutdownErr))
			}
		}()
	}

	var busService *bus.Service
	if cfg.BusEnabled {
		busService, err = bus.NewService(cfg.RedisAddr, cfg.RedisPasswd)
		if err != nil {
			logging.Fatal(ctx, "failed to connect to bus", zap.Error(err))
		}
		defer busService.Close()
	}

	reg := registry.New()
	if busService != nil {
		busService.Subscribe(ctx, func(event bus.RoomUpdateEvent) {
			reg.NotifyRoomUpdate(event.Room)
		})
	}

	protoHandler := protocol.New(reg, cfg)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RealIP())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = conn.ParseAllowedOrigins(cfg.AllowedOrigins, []string{"http://localhost:3000"})
	router.Use(cors.New(corsConfig))

	router.GET("/ws", conn.ServeWs(protoHandler, corsConfig.AllowOrigins))

	roomsHandler := rooms.NewHandler(reg)
	router.GET("/v1/rooms", roomsHandler.List)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	healthHandler := health.NewHandler(busService)
	router.GET("/health/live", healthHandler.Liveness)
	router.GET("/health/ready", healthHandler.Readiness)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	listenAddr := ":" + cfg.Port
	if *address != "" {
		listenAddr = *address
	}
	srv := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}

	go func() {
		logging.Info(ctx, "signalhub starting", zap.String("address", listenAddr), zap.String("env", cfg.GoEnv))
		if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			logging.Fatal(ctx, "server failed", zap.Error(serveErr))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "server forced to shutdown", zap.Error(err))
	}
	logging.Info(ctx, "server exiting")
}

// loadEnv tries a handful of relative .env locations so `go run` works
// both from the repo root and from this command's own directory,
// matching the teacher's main.go envPaths fallback.
func loadEnv() {
	envPaths := []string{".env", "../../../.env", "../../.env"}
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}
