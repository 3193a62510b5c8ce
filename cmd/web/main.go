// cmd/web/main.go
//
// Mieszkaniownik web front end – HTTP entry point.
//
// Start-up
// --------
//
//  1. Load env vars (host-wide file when present; conf/.env is read by the
//     config loader).
//
//  2. Load configuration (YAML → env overrides → Vault references).
//
//  3. Start the daily rotating logger (tees to console when running in a
//     TTY).
//
//  4. Build the application: sessions, forms, API client, views, and every
//     component linked in below.
//
//  5. Serve until SIGINT or SIGTERM, then drain for http.shutdown_timeout.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/yanizio/mieszkaniownik/internal/app"
	"github.com/yanizio/mieszkaniownik/internal/config"
	"github.com/yanizio/mieszkaniownik/internal/logger"
	"github.com/yanizio/mieszkaniownik/internal/server"

	_ "github.com/yanizio/mieszkaniownik/components/alerts"
	_ "github.com/yanizio/mieszkaniownik/components/auth"
	_ "github.com/yanizio/mieszkaniownik/components/notfound"
)

const serverEnvPath = "/usr/local/etc/mieszkaniownik/global.env"

// loadEnv reads the host-wide env file when it exists.  Values already in
// the environment win.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
	}
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Configuration ───────────────────────────────────────────────
	//
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	//
	// ── 2.  Logger ──────────────────────────────────────────────────────
	//
	logDir := cfg.Log.Dir
	if !filepath.IsAbs(logDir) {
		logDir = filepath.Join(cfg.Paths.Root, logDir)
	}
	lg, err := logger.New(logDir, cfg.Log.Level, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	//
	// ── 3.  Application ─────────────────────────────────────────────────
	//
	a, err := app.Build(cfg, lg)
	if err != nil {
		lg.Fatalw("build app", "err", err)
	}
	defer a.Close()

	//
	// ── 4.  Serve ───────────────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, a.Handler)
	lg.Infow("listening", "addr", cfg.HTTP.ListenAddr, "api", cfg.API.BaseURL)
	if err := server.Run(ctx, srv, cfg.HTTP.ShutdownTimeout); err != nil {
		lg.Errorw("http server", "err", err)
		return
	}
	lg.Infow("stopped")
}
