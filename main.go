package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"psp.com/mock-exam/backend/internal/api"
	"psp.com/mock-exam/backend/internal/config"
	"psp.com/mock-exam/backend/internal/db"
	"psp.com/mock-exam/backend/internal/exam"
	"psp.com/mock-exam/backend/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var conn *sql.DB
	if cfg.Database.Driver != "" {
		conn, err = db.Open(ctx, db.Driver(cfg.Database.Driver), cfg.Database.DSN)
		if err != nil {
			lg.Fatal("failed to open question database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		}
	}

	exams, err := exam.Load(ctx, cfg.Exams, conn, lg)
	if err != nil {
		lg.Fatal("failed to load exams", zap.Error(err))
	}
	// banks are in memory from here on
	if conn != nil {
		conn.Close()
	}

	srv := &http.Server{
		Addr: ":" + cfg.Server.Port,
		Handler: api.NewRouter(exams, lg, api.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			RateLimit:      cfg.Server.RateLimit,
			MaxCount:       cfg.Server.MaxCount,
			TrustProxy:     cfg.Server.TrustProxy,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		lg.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if cfg.Server.TLSCert != "" && cfg.Server.TLSKey != "" {
		lg.Info("backend listening (HTTPS)", zap.String("port", cfg.Server.Port))
		err = srv.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
	} else {
		lg.Info("backend listening (HTTP)", zap.String("port", cfg.Server.Port))
		err = srv.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		lg.Fatal("server stopped", zap.Error(err))
	}
}
