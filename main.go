package main

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/dnldd/hunter/database"
	"github.com/dnldd/hunter/hunter"
	"github.com/dnldd/hunter/service"
	"github.com/dnldd/hunter/shared"
	zlog "github.com/rs/zerolog/log"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	var cfg Config
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	direction, err := shared.ParseDirection(cfg.Direction)
	if err != nil {
		log.Printf("parsing direction: %v", err)
		return
	}

	strategy, err := hunter.ParseStrategyKind(cfg.Strategy)
	if err != nil {
		log.Printf("parsing strategy: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var storage database.TradeStorer
	if cfg.DBEndpoint != "" {
		dbLogger := zlog.With().Str("component", "database").Logger()
		db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DBEndpoint,
			User:     cfg.DBUser,
			Pass:     cfg.DBPass,
			Logger:   &dbLogger,
		})
		if err != nil {
			log.Printf("creating database: %v", err)
			return
		}

		storage = db
	}

	huntCfg := service.HuntConfig{
		DataFilePaths:     cfg.DataFilePaths,
		Direction:         direction,
		Strategy:          strategy,
		FixedRR:           cfg.FixedRR,
		CloseOnlyBreakout: cfg.CloseOnlyBreakout,
		CutoffTime:        cfg.CutoffTime,
		GoldenStart:       cfg.GoldenStart,
		GoldenEnd:         cfg.GoldenEnd,
		Storage:           storage,
		Cancel:            cancel,
	}
	hunt, err := service.NewHunt(ctx, &huntCfg)
	if err != nil {
		log.Printf("creating hunt service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	hunt.Run(ctx)
}
