package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Jock20242024/yesno-sub001/config"
	"github.com/Jock20242024/yesno-sub001/internal/adapters/polymarket"
	"github.com/Jock20242024/yesno-sub001/internal/adapters/pricecache"
	"github.com/Jock20242024/yesno-sub001/internal/adapters/resolver"
	"github.com/Jock20242024/yesno-sub001/internal/adapters/storage"
	"github.com/Jock20242024/yesno-sub001/internal/harvester"
	"github.com/Jock20242024/yesno-sub001/internal/ports"
	"github.com/Jock20242024/yesno-sub001/internal/queue"
	"github.com/Jock20242024/yesno-sub001/internal/syncer"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one sync tick and exit")
	harvest := flag.Bool("harvest", false, "run template harvest and exit")
	status := flag.Bool("status", false, "print last run record and templates, then exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *status {
		if err := printStatus(ctx, store); err != nil {
			slog.Error("status failed", "err", err)
			os.Exit(1)
		}
		return
	}

	client := polymarket.NewClient(cfg.API.GammaBase)

	if *harvest {
		runHarvest(ctx, cfg, client, store)
		return
	}

	cache, closeCache, err := buildPriceCache(ctx, cfg)
	if err != nil {
		slog.Error("failed to init price cache", "err", err, "backend", cfg.Cache.Backend)
		os.Exit(1)
	}
	defer closeCache()

	q := queue.New(queue.Config{
		Capacity: cfg.Queue.Capacity,
		Workers:  cfg.Queue.Workers,
	}, store)
	q.Start(ctx)

	s := syncer.New(
		syncer.Config{
			Interval: cfg.SyncInterval(),
			Epsilon:  cfg.Sync.Epsilon,
			Workers:  cfg.Sync.Workers,
		},
		client, store, store, resolver.NewUnbound(), cache, q,
	)

	slog.Info("syncd starting",
		"config", *configPath,
		"interval", cfg.SyncInterval(),
		"cache", cfg.Cache.Backend,
		"once", *once,
	)

	if *once {
		s.Tick(ctx)
		q.Close()
		return
	}

	s.Run(ctx)
	q.Close()
	slog.Info("syncd stopped cleanly")
}

func runHarvest(ctx context.Context, cfg *config.Config, client *polymarket.Client, store *storage.SQLiteStorage) {
	h := harvester.New(harvester.Config{
		SampleSize:            cfg.Harvest.SampleSize,
		WideSampleSize:        cfg.Harvest.WideSampleSize,
		MultiStrikeProbe:      cfg.Harvest.MultiStrikeProbe,
		DefaultAdvanceMinutes: cfg.Harvest.AdvanceMinutes,
		CategoryTag:           cfg.Harvest.CategoryTag,
	}, client, store)

	stats, err := h.Harvest(ctx)
	if err != nil {
		slog.Error("harvest failed", "err", err)
		os.Exit(1)
	}
	slog.Info("harvest finished",
		"created", stats.Created,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
	)
}

// buildPriceCache elige el backend según config. El segundo valor cierra el
// backend al terminar; para el de memoria es un no-op.
func buildPriceCache(ctx context.Context, cfg *config.Config) (ports.PriceCache, func(), error) {
	if cfg.Cache.Backend == "redis" {
		r, err := pricecache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.CacheTTL())
		if err != nil {
			return nil, nil, err
		}
		return r, func() { r.Close() }, nil
	}
	return pricecache.NewMemory(cfg.CacheTTL()), func() {}, nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
