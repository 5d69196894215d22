package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/plantcare/api/handler"
	"github.com/fastygo/plantcare/internal/config"
	"github.com/fastygo/plantcare/internal/infrastructure/imagestore"
	"github.com/fastygo/plantcare/internal/infrastructure/journal"
	"github.com/fastygo/plantcare/internal/infrastructure/monitor"
	"github.com/fastygo/plantcare/internal/middleware"
	"github.com/fastygo/plantcare/internal/registry"
	"github.com/fastygo/plantcare/internal/router"
	"github.com/fastygo/plantcare/internal/services"
	"github.com/fastygo/plantcare/internal/services/lifecycle"
	"github.com/fastygo/plantcare/pkg/httpcontext"
	"github.com/fastygo/plantcare/pkg/logger"
	"github.com/fastygo/plantcare/repository/jsonfile"
	"github.com/fastygo/plantcare/usecase"
	plantUC "github.com/fastygo/plantcare/usecase/plant"
	scheduleUC "github.com/fastygo/plantcare/usecase/schedule"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Encoding:   cfg.Logger.Encoding,
		File:       cfg.Logger.File,
		MaxSizeMB:  cfg.Logger.MaxSizeMB,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAgeDays: cfg.Logger.MaxAgeDays,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	dataDir := filepath.Dir(cfg.Storage.DataFile)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		zapLogger.Fatal("failed to create data directory", zap.String("path", dataDir), zap.Error(err))
	}

	plants, err := registry.Open(appCtx, jsonfile.NewPlantRepository(cfg.Storage.DataFile))
	if err != nil {
		zapLogger.Fatal("failed to load plant data", zap.String("path", cfg.Storage.DataFile), zap.Error(err))
	}
	zapLogger.Info("plant data loaded", zap.Int("plants", plants.Len()))

	images, err := imagestore.Open(cfg.Storage.UploadsDir)
	if err != nil {
		zapLogger.Fatal("failed to open uploads directory", zap.Error(err))
	}

	var (
		careJournal usecase.CareJournal
		sizer       monitor.JournalSizer
	)
	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.Path, "")
		if err != nil {
			zapLogger.Fatal("failed to open care journal", zap.Error(err))
		}
		manager.Register("journal", func(ctx context.Context) error {
			return store.Close()
		})
		careJournal = store
		sizer = store
	}

	mon := monitor.New(dataDir, cfg.Storage.UploadsDir, sizer, cfg.Monitor.Interval, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	plantUseCase := plantUC.New(plants, images, careJournal, usecase.SystemClock, zapLogger)
	scheduleUseCase := scheduleUC.New(plants, usecase.SystemClock, zapLogger)

	var reminder *services.Reminder
	if cfg.Reminder.Enabled {
		reminder, err = services.NewReminder(scheduleUseCase, zapLogger, services.ReminderConfig{
			Schedule: cfg.Reminder.Schedule,
			Timeout:  cfg.Context.RequestTimeout,
		})
		if err != nil {
			zapLogger.Fatal("failed to configure reminder", zap.Error(err))
		}
		reminder.Start()
		manager.Register("reminder", func(ctx context.Context) error {
			reminder.Stop(ctx)
			return nil
		})
	}

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Plant:    apiHandler.NewPlantHandler(plantUseCase, ctxAdapter, zapLogger),
		Schedule: apiHandler.NewScheduleHandler(scheduleUseCase, ctxAdapter, zapLogger),
		Health:   apiHandler.NewHealthHandler(mon, reminder, ctxAdapter, zapLogger),
	}

	r := router.New(handlers, images.Root())

	server := &fasthttp.Server{
		Handler:            router.Handler(r, middleware.AccessLog(zapLogger)),
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		MaxRequestBodySize: cfg.HTTP.MaxBodySize,
		StreamRequestBody:  true,
		Name:               cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
