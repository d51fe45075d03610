package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/barscan/internal/barscan/service"
	"github.com/BrandonDHaskell/barscan/internal/barscan/store"
	"github.com/BrandonDHaskell/barscan/internal/barscan/store/memory"
	redisstore "github.com/BrandonDHaskell/barscan/internal/barscan/store/redis"
	"github.com/BrandonDHaskell/barscan/internal/barscan/store/sqlite"
	"github.com/BrandonDHaskell/barscan/internal/config"
	"github.com/BrandonDHaskell/barscan/internal/db"
	"github.com/BrandonDHaskell/barscan/internal/grpcapi"
	"github.com/BrandonDHaskell/barscan/internal/httpapi"
	"github.com/BrandonDHaskell/barscan/internal/logger"
	"github.com/BrandonDHaskell/barscan/internal/scanlog"
	"github.com/BrandonDHaskell/barscan/internal/share"
)

func main() {
	cfg := config.MustLoad()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "barscan-server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stop, cfg, log); err != nil {
		log.Error("fatal", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, stop context.CancelFunc, cfg config.Config, log *zap.Logger) error {
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	if cfg.IsDev() {
		log.Info("dev mode",
			zap.String("db", cfg.DBPath),
			zap.String("scan_log", cfg.LogPath),
			zap.String("preferences", cfg.PreferenceBackend),
			zap.String("time_zone", loc.String()),
		)
	}

	// ── Database ─────────────────────────────────────────────────────────
	sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath})
	if err != nil {
		return fmt.Errorf("db open: %w", err)
	}
	defer sqlDB.Close()

	writer := db.NewWorker(sqlDB)
	defer writer.Close()

	history := sqlite.NewScanEventStore(sqlDB, writer)

	prefs, closePrefs, err := openPreferences(ctx, cfg, sqlDB, writer, log)
	if err != nil {
		return err
	}
	defer closePrefs()

	// ── Scan log ─────────────────────────────────────────────────────────
	scanLog, err := scanlog.New(scanlog.Config{Path: cfg.LogPath, Location: loc})
	if err != nil {
		return fmt.Errorf("scan log: %w", err)
	}
	defer scanLog.Close()

	// ── Services ─────────────────────────────────────────────────────────
	session := service.NewSession(cfg.DefaultAccepted)
	scans := service.NewScanService(session, scanLog, history, log)

	frequency := service.NewFrequencyController(session, prefs, log)
	defer frequency.Close()
	if st := frequency.Restore(ctx); !st.Armed() {
		log.Info("periodic scanning idle")
	}

	notices := memory.NewNoticeBoard(0, log)
	lifecycle := service.NewLogLifecycle(scanLog, share.NewDirSharer(cfg.ShareDir), notices, log)

	pruner := service.NewHistoryPruner(history, service.PrunerConfig{
		RetentionDays: cfg.HistoryRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, log)
	pruner.Start(ctx)
	defer pruner.Stop()

	// ── gRPC health (optional) ───────────────────────────────────────────
	var health *grpcapi.HealthServer
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		health = grpcapi.NewHealthServer(log)
		go func() {
			if err := health.Serve(lis); err != nil {
				log.Error("grpc server error", zap.Error(err))
				stop()
			}
		}()
	}

	// ── HTTP ─────────────────────────────────────────────────────────────
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:      log,
		Addr:        cfg.HTTPAddr,
		CORSOrigins: cfg.CORSOrigins,
		Session:     session,
		ScanService: scans,
		Frequency:   frequency,
		Lifecycle:   lifecycle,
		ScanLog:     scanLog,
		History:     history,
		Notices:     notices,
	})

	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()
	if health != nil {
		health.SetServing(true)
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if health != nil {
		health.Shutdown(shutdownCtx)
	}
	return srv.Shutdown(shutdownCtx)
}

// openPreferences returns the configured preference backend and a func that
// releases it.
func openPreferences(ctx context.Context, cfg config.Config, sqlDB *sql.DB, writer *db.Worker, log *zap.Logger) (store.PreferenceStore, func(), error) {
	switch cfg.PreferenceBackend {
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		return redisstore.NewPreferenceStore(client, cfg.Redis.HashKey), func() { _ = client.Close() }, nil
	case "memory":
		return memory.NewPreferenceStore(), func() {}, nil
	default:
		return sqlite.NewPreferenceStore(sqlDB, writer), func() {}, nil
	}
}
