package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"dealer_tracker/internal/config"
	"dealer_tracker/internal/controllers"
	"dealer_tracker/internal/logger"
	"dealer_tracker/internal/middleware"
	"dealer_tracker/internal/routes"
	"dealer_tracker/internal/services"
	"dealer_tracker/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration.")
	}

	// Initialize structured logging to file
	if err := logger.Setup(cfg.LogFile, cfg.LogLevel); err != nil {
		logrus.WithError(err).Fatal("Invalid log level.")
	}

	tieBreak, err := services.ParseTieBreak(cfg.RouteTieBreak)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration.")
	}

	var s store.Store
	switch cfg.StoreBackend {
	case "memory":
		logrus.Warn("Using in-memory store, data is lost on restart.")
		s = store.NewMemory()
	default:
		db, err := config.InitDB(cfg, logger.GormLogger())
		if err != nil {
			logrus.WithError(err).Fatal("Database initialisation failed.")
		}
		s = store.NewGorm(db)
	}

	auth := middleware.NewAuth(cfg.JWTSecret)
	h := controllers.NewHandler(s, auth, controllers.Options{
		TieBreak:         tieBreak,
		AnomalyWindow:    cfg.AnomalyWindow,
		AnomalyThreshold: cfg.AnomalyThreshold,
	})
	r := routes.SetupRouter(h, auth, routes.Options{CORSOrigins: cfg.CORSOrigins, RequestLog: true})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		logrus.WithField("addr", cfg.HTTPAddr).Info("Server running.")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Server stopped unexpectedly.")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed.")
	}
	h.Close()
	logrus.Info("Server exited.")
}
