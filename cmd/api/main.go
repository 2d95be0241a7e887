package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"coremd.cloud/internal/auth"
	"coremd.cloud/internal/config"
	"coremd.cloud/internal/course"
	"coremd.cloud/internal/email"
	"coremd.cloud/internal/httpapi"
	"coremd.cloud/internal/obs"
)

var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	defer func() { _ = db.Close() }()

	tokens, err := auth.NewTokenService(auth.Secrets{
		Access:            cfg.AccessTokenSecret,
		Refresh:           cfg.RefreshTokenSecret,
		PasswordReset:     cfg.PasswordResetSecret,
		EmailVerification: cfg.EmailVerificationSecret,
	})
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}

	mailer, err := email.NewMailgun(cfg.MailgunAPIKey, cfg.MailgunDomain)
	if err != nil {
		log.Fatalf("mailer: %v", err)
	}

	authSvc, err := auth.NewService(auth.NewPGStore(db), tokens, mailer,
		auth.WithFrontendURL(cfg.FrontendURL))
	if err != nil {
		log.Fatalf("auth: %v", err)
	}
	courseSvc, err := course.NewService(course.NewPGStore(db))
	if err != nil {
		log.Fatalf("course: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := authSvc.SeedRoles(ctx); err != nil {
		cancel()
		log.Fatalf("seed roles: %v", err)
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := authSvc.SeedAdmin(ctx, auth.AdminSeed{
			Email:    cfg.AdminEmail,
			Name:     cfg.AdminName,
			Password: cfg.AdminPassword,
		}); err != nil {
			cancel()
			log.Fatalf("seed admin: %v", err)
		}
	}
	cancel()

	api, err := httpapi.New(authSvc, courseSvc,
		httpapi.WithReadyProbe(db.PingContext),
		httpapi.WithVersion(version, commit),
		httpapi.WithCORSOrigin(cfg.FrontendURL),
	)
	if err != nil {
		log.Fatalf("api: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting coremd-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Println("Stopped")
}
