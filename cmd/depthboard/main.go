package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"depthboard/internal/config"
	"depthboard/internal/feed"
	"depthboard/internal/feed/coinbase"
	"depthboard/internal/market"
	"depthboard/internal/session"
)

func main() {
	_ = godotenv.Load() // best-effort: .env is optional

	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config.yaml: %v\n", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.LogLevel)

	logger.Info("depthboard starting",
		slog.String("feed_url", cfg.FeedURL),
		slog.Int("symbols", len(cfg.Symbols)),
		slog.Int64("base_granularity_s", cfg.BaseGranularitySeconds),
		slog.Int("poll_interval_ms", cfg.PollIntervalMS),
	)

	// Session clock
	keeper := session.NewTimeKeeper()

	// One book per tracked symbol, owned here for the whole session.
	books := make([]*market.SymbolBook, 0, len(cfg.Symbols))
	products := make([]string, 0, len(cfg.Symbols))
	for _, sym := range cfg.Symbols {
		sb, err := market.NewSymbolBook(sym.ID, sym.Display, cfg.TradeLogCapacity, cfg.BaseGranularitySeconds)
		if err != nil {
			fmt.Fprintf(os.Stderr, "symbol %s: %v\n", sym.ID, err)
			os.Exit(1)
		}
		books = append(books, sb)
		products = append(products, sym.ID)
	}

	// Feed client + dispatcher (the sole writer)
	src := coinbase.New(cfg.FeedURL, products, logger)
	dispatcher := feed.NewDispatcher(books, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		src.Run(ctx, func(connected bool) {
			logger.Info("feed status", slog.Bool("connected", connected))
		})
		return nil
	})

	g.Go(func() error {
		dispatcher.Run(ctx, src)
		return nil
	})

	// Poll loop: the stand-in for the render layer, reading snapshots at a
	// fixed cadence independent of event arrival.
	g.Go(func() error {
		ticker := time.NewTicker(time.Duration(cfg.PollIntervalMS) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logBooks(logger, dispatcher, keeper)
			case <-ctx.Done():
				return nil
			}
		}
	})

	<-ctx.Done()
	logger.Info("shutting down...")
	_ = g.Wait()
	src.Close()
	logger.Info("bye", slog.String("elapsed", keeper.ElapsedString()))
}

func logBooks(logger *slog.Logger, dispatcher *feed.Dispatcher, keeper *session.TimeKeeper) {
	for _, sb := range dispatcher.Books() {
		snap := sb.Snapshot()
		attrs := []any{
			slog.String("symbol", snap.Display),
			slog.Int("bid_levels", len(snap.Bids)),
			slog.Int("ask_levels", len(snap.Asks)),
			slog.Int64("buys", snap.Stats.Buys),
			slog.Int64("sells", snap.Stats.Sells),
			slog.Int("candles", len(snap.Candles)),
			slog.String("elapsed", keeper.ElapsedString()),
		}
		if snap.HasMid {
			attrs = append(attrs, slog.String("mid", snap.MidMarket.StringFixed(2)))
		}
		logger.Info("book", attrs...)
	}
	if dropped := dispatcher.Dropped(); dropped.Malformed+dropped.Unknown > 0 {
		logger.Debug("dropped events",
			slog.Int64("malformed", dropped.Malformed),
			slog.Int64("unknown_symbol", dropped.Unknown),
			slog.Int64("stale", dropped.Stale),
			slog.Int64("rejected_snapshots", dropped.Rejected),
		)
	}
}
