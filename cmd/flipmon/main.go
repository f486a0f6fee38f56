package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/UsmanKarim08/flipping-lead-gen/internal/catalog"
	"github.com/UsmanKarim08/flipping-lead-gen/internal/config"
	"github.com/UsmanKarim08/flipping-lead-gen/internal/dedup"
	"github.com/UsmanKarim08/flipping-lead-gen/internal/engine"
	"github.com/UsmanKarim08/flipping-lead-gen/internal/logger"
	"github.com/UsmanKarim08/flipping-lead-gen/internal/notify"
	"github.com/UsmanKarim08/flipping-lead-gen/internal/source"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	// Credentials (SMTP password, bot token) come from the environment;
	// a .env file is a convenience, not a requirement.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	cat, err := catalog.New(cfg.Catalog)
	if err != nil {
		logger.Fatal("Failed to build catalog: %v", err)
	}
	logger.Info("Catalog loaded: %d items, %d search keywords", cat.Len(), len(cat.Keywords()))

	store, err := buildStore(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize dedup store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close dedup store: %v", err)
		}
	}()

	sources := make([]source.Source, 0, len(cfg.Craigslist.Cities))
	for _, city := range cfg.Craigslist.Cities {
		sources = append(sources, source.NewCraigslist(
			city,
			cfg.Craigslist.BaseURLTemplate,
			cfg.Craigslist.MaxListingsPerFeed,
		))
	}

	notifiers := buildNotifiers(cfg)
	if len(notifiers) == 0 {
		logger.Warn("No notifiers enabled; deals will only be logged")
	}

	eng := engine.New(cat, store, sources, cfg.Craigslist.FetchTimeout, cfg.Craigslist.MaxConcurrentFetch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, finishing up...")
		cancel()
		// In-flight fetches are abandoned via the cancelled context; if the
		// process still hasn't wound down after the grace period, force it.
		time.AfterFunc(cfg.Craigslist.ShutdownGracePeriod, func() {
			logger.Error("Shutdown grace period elapsed, exiting")
			os.Exit(1)
		})
	}()

	logger.Info("Starting marketplace monitor (cities: %v, interval: %v, dedup: %s)",
		cfg.Craigslist.Cities, cfg.Craigslist.PollInterval, cfg.Dedup.Backend)

	ticker := time.NewTicker(cfg.Craigslist.PollInterval)
	defer ticker.Stop()

	// Run the first cycle immediately instead of waiting a full interval.
	runCycle(ctx, eng, store, notifiers)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return
		case <-ticker.C:
			runCycle(ctx, eng, store, notifiers)
		}
	}
}

// runCycle executes one poll cycle and dispatches the resulting batch. Every
// failure below a catalog error is absorbed here; the loop keeps running.
func runCycle(ctx context.Context, eng *engine.Engine, store dedup.Store, notifiers []notify.Notifier) {
	start := time.Now()
	logger.Debug("Starting monitoring cycle")

	batch, stats, err := eng.RunCycle(ctx)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("Cycle interrupted: %v", err)
		} else {
			logger.Error("Monitoring cycle failed: %v", err)
		}
		return
	}

	logger.Info("Cycle stats: %d fetches (%d failed), %d listings, %d no price, %d no match, %d rejected, %d duplicate, %d deals",
		stats.SourcesQueried, stats.SourceErrors, stats.Fetched,
		stats.NoPrice, stats.NoMatch, stats.Rejected, stats.Duplicate, stats.Deals)

	if batch.Empty() {
		logger.Info("No deals found this cycle")
	} else {
		for _, n := range notifiers {
			if err := n.Send(batch); err != nil {
				// Delivery is not retried within the cycle; the cycle is
				// still complete.
				logger.Warn("Failed to deliver alert batch via %s: %v", n.Name(), err)
			} else {
				logger.Info("Sent %d deal(s) via %s", batch.Size(), n.Name())
			}
		}
	}

	if removed, err := store.Purge(); err != nil {
		logger.Warn("Failed to purge expired dedup keys: %v", err)
	} else if removed > 0 {
		logger.Debug("Purged %d expired dedup keys", removed)
	}

	logger.Info("Monitoring cycle completed in %v", time.Since(start))
}

func buildStore(cfg *config.Config) (dedup.Store, error) {
	if cfg.Dedup.Backend == "sqlite" {
		return dedup.NewSQLiteStore(cfg.Dedup.DBPath, cfg.Dedup.TTL)
	}
	return dedup.NewMemoryStore(cfg.Dedup.TTL), nil
}

func buildNotifiers(cfg *config.Config) []notify.Notifier {
	var notifiers []notify.Notifier

	if cfg.Email.Enabled {
		email, err := notify.NewEmail(
			cfg.Email.SMTPHost,
			cfg.Email.SMTPPort,
			cfg.Email.From,
			cfg.Email.Password,
			cfg.Email.Recipient,
		)
		if err != nil {
			logger.Fatal("Failed to initialize email notifier: %v", err)
		}
		notifiers = append(notifiers, email)
		logger.Info("Email notifier initialized (recipient: %s)", cfg.Email.Recipient)
	}

	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(
			cfg.Telegram.BotToken,
			cfg.Telegram.ChatID,
			cfg.Telegram.MaxRetries,
			cfg.Telegram.RetryDelayBase,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram notifier: %v", err)
		}
		notifiers = append(notifiers, tg)
		logger.Info("Telegram notifier initialized")
	}

	return notifiers
}
