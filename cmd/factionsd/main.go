package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/viniciuscfreitas/primeleague18-sub001/internal/clan"
	"github.com/viniciuscfreitas/primeleague18-sub001/internal/config"
	"github.com/viniciuscfreitas/primeleague18-sub001/internal/db"
	"github.com/viniciuscfreitas/primeleague18-sub001/internal/land"
	"github.com/viniciuscfreitas/primeleague18-sub001/internal/power"
	"github.com/viniciuscfreitas/primeleague18-sub001/internal/shield"
	"github.com/viniciuscfreitas/primeleague18-sub001/internal/upgrade"
)

const DefaultConfigPath = "config/factions.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := DefaultConfigPath
	if p := os.Getenv("FACTIONS_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("factions server starting", "log_level", cfg.LogLevel)

	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	claimRepo := db.NewClaimRepository(database.Pool())
	powerRepo := db.NewPowerRepository(database.Pool())
	clanStateRepo := db.NewClanStateRepository(database.Pool())

	writer := db.NewAsyncWriter(cfg.Async.Workers, cfg.Async.QueueSize, cfg.Async.WriteTimeout)

	// The real clan system attaches here; standalone runs use the
	// in-memory directory (empty: nobody clanned, all debits fail).
	var directory clan.Directory = clan.NewStaticDirectory()

	ledger := power.NewLedger(power.Config{
		Initial:            cfg.Power.Initial,
		Max:                cfg.Power.Max,
		SoloRegenPerMinute: cfg.Power.SoloRegenPerMinute,
		ClanRegenPerMinute: cfg.Power.ClanRegenPerMinute,
		DeathPenalty:       cfg.Power.DeathPenalty,
		Floor:              cfg.Power.Floor,
		RegenInterval:      cfg.Power.RegenInterval,
		AggregateCacheTTL:  cfg.Power.AggregateCacheTTL,
		AggregateCacheSize: cfg.Power.AggregateCacheSize,
	}, powerRepo, writer, directory)

	clock := shield.NewClock(shield.Config{
		CostPerHourCents:  cfg.Shield.CostPerHourCents,
		QuietStartHour:    cfg.Shield.QuietStartHour,
		QuietEndHour:      cfg.Shield.QuietEndHour,
		CriticalRemaining: cfg.Shield.CriticalRemaining,
	}, clanStateRepo, writer, directory, nil)

	upgrades := upgrade.NewStore(upgrade.Config{
		SpawnerRate:      trackConfig(cfg.Upgrades.SpawnerRate),
		CropGrowth:       trackConfig(cfg.Upgrades.CropGrowth),
		ExpBoost:         trackConfig(cfg.Upgrades.ExpBoost),
		ExtraShieldHours: trackConfig(cfg.Upgrades.ExtraShieldHours),
	}, clanStateRepo, writer, directory)

	index := land.NewIndex(land.Config{
		PowerPerChunk:    cfg.Land.PowerPerChunk,
		SoloAutoClaimMax: cfg.Land.SoloAutoClaimMax,
	}, claimRepo, writer, ledger, nil)

	// Bulk loads before serving.
	loadGroup, loadCtx := errgroup.WithContext(ctx)
	loadGroup.Go(func() error { return index.LoadAll(loadCtx) })
	loadGroup.Go(func() error { return clock.LoadAll(loadCtx) })
	loadGroup.Go(func() error { return upgrades.LoadAll(loadCtx) })
	if err := loadGroup.Wait(); err != nil {
		return fmt.Errorf("loading territory state: %w", err)
	}
	slog.Info("territory subsystem ready")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ledger.Run(gctx) })
	g.Go(func() error { return clock.Run(gctx) })

	err = g.Wait()

	// Drain: flush online power and let scheduled writes land so a clean
	// shutdown loses nothing.
	shutdownCtx := context.Background()
	ledger.Flush(shutdownCtx)
	writer.Close()
	slog.Info("territory subsystem stopped")

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func trackConfig(c config.UpgradeConfig) upgrade.TrackConfig {
	return upgrade.TrackConfig{BaseCostCents: c.BaseCostCents, MaxLevel: c.MaxLevel}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
