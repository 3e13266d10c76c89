package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/mikepea/shorturls/pkg/shorturls/config"
	"github.com/mikepea/shorturls/pkg/shorturls/server"
)

// @title Shorturls API
// @version 1.0
// @description A URL shortener with collision-free code allocation, expiring links and click counting.

// @contact.name Shorturls Support
// @contact.url https://github.com/mikepea/shorturls

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token or API key. Format: "Bearer {token}"

func main() {
	flag.Parse()
	defer glog.Flush()

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.Open(ctx, cfg)
	if err != nil {
		glog.Fatalf("Failed to start: %v", err)
	}
	defer app.Close()

	if err := app.EnsureAdmin(); err != nil {
		glog.Fatalf("Failed to ensure admin user exists: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		glog.Infof("Starting shorturls server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	glog.Infof("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("srv.Shutdown() %+v", err)
	}
}
