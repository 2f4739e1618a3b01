// Command jdibridge runs the request/event pipeline subsystem against a
// debuggee connection and serves the read-only introspection API.
//
// The debuggee wire connection itself (JDWP handshake, attach/launch,
// transport) is an external collaborator outside this module's scope
// (§1/§4.8): production deployments inject their own nativeconn.Conn
// adapter in place of newConn below.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/jdibridge/bridge/pkg/api"
	"github.com/jdibridge/bridge/pkg/audit"
	"github.com/jdibridge/bridge/pkg/config"
	"github.com/jdibridge/bridge/pkg/database"
	"github.com/jdibridge/bridge/pkg/engine"
	"github.com/jdibridge/bridge/pkg/nativeconn"
	"github.com/jdibridge/bridge/pkg/nativeconn/nativeconntest"
	"github.com/jdibridge/bridge/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// newConn builds the nativeconn.Conn the engine runs against. The fake is
// an in-memory stand-in for manual smoke-testing and demos; wiring a real
// JDWP transport here is the integration point a production deployment
// supplies.
func newConn() nativeconn.Conn {
	return nativeconntest.New()
}

func main() {
	envDir := flag.String("env-dir", getEnv("ENV_DIR", "."), "directory containing the .env file")
	flag.Parse()

	envPath := filepath.Join(*envDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v (continuing with existing environment)", envPath, err)
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	gin.SetMode(cfg.HTTPMode)

	slog.Info("starting jdibridge", "version", version.Full(), "http_port", cfg.HTTPPort)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink audit.Sink = audit.Noop{}
	var dbClient *database.Client
	if cfg.Audit.Enabled {
		dbClient, err = database.NewClient(ctx, cfg.Audit)
		if err != nil {
			log.Fatalf("failed to connect to audit database: %v", err)
		}
		defer func() {
			if err := dbClient.Close(); err != nil {
				log.Printf("error closing audit database: %v", err)
			}
		}()
		sink = database.NewSink(dbClient)
		slog.Info("audit sink enabled")
	}

	eng := engine.New(newConn(), sink, cfg.ReconcileInterval, cfg.DispatchBufferSize)
	eng.Managers.SetDefaultSuspendPolicy(cfg.DefaultSuspendPolicy)

	eng.Start(ctx)
	defer eng.Stop()

	server := api.New(eng, dbClient)
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("error shutting down http server: %v", err)
	}
}
