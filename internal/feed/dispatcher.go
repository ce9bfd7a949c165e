package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"depthboard/internal/candles"
	"depthboard/internal/market"
)

// Dispatcher is the single writer over all symbol books: it validates each
// inbound event, resolves the symbol and applies the payload. Events for
// untracked symbols and malformed payloads are dropped, logged and counted;
// nothing here is fatal, the loop keeps consuming.
type Dispatcher struct {
	log   *slog.Logger
	books map[string]*market.SymbolBook
	order []*market.SymbolBook // registry order, for stable iteration

	malformed atomic.Int64
	unknown   atomic.Int64
	stale     atomic.Int64
	rejected  atomic.Int64
}

func NewDispatcher(books []*market.SymbolBook, logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		log:   logger,
		books: make(map[string]*market.SymbolBook, len(books)),
		order: books,
	}
	for _, sb := range books {
		d.books[sb.Symbol()] = sb
	}
	return d
}

func (d *Dispatcher) Book(symbol string) (*market.SymbolBook, bool) {
	sb, ok := d.books[symbol]
	return sb, ok
}

func (d *Dispatcher) Books() []*market.SymbolBook { return d.order }

// DropStats reports how many events were discarded, for the stats view.
type DropStats struct {
	Malformed int64
	Unknown   int64
	Stale     int64
	Rejected  int64
}

func (d *Dispatcher) Dropped() DropStats {
	return DropStats{
		Malformed: d.malformed.Load(),
		Unknown:   d.unknown.Load(),
		Stale:     d.stale.Load(),
		Rejected:  d.rejected.Load(),
	}
}

// Route applies one event to its symbol book. The returned error reports why
// an event was dropped; Run logs it and moves on.
func (d *Dispatcher) Route(ev Event) error {
	if err := ev.Validate(); err != nil {
		d.malformed.Add(1)
		return err
	}
	sb, ok := d.books[ev.Symbol]
	if !ok {
		d.unknown.Add(1)
		return fmt.Errorf("%w: %s", ErrUnknownSymbol, ev.Symbol)
	}

	switch ev.Kind {
	case KindSnapshot:
		if err := sb.ApplyBookSnapshot(ev.Bids, ev.Asks); err != nil {
			d.rejected.Add(1)
			return fmt.Errorf("snapshot for %s: %w", ev.Symbol, err)
		}
	case KindDelta:
		sb.ApplyBookDeltas(ev.Deltas)
	case KindTrade:
		if err := sb.ApplyTrade(*ev.Trade); err != nil {
			if errors.Is(err, candles.ErrStaleTrade) {
				d.stale.Add(1)
			}
			return fmt.Errorf("trade for %s: %w", ev.Symbol, err)
		}
	}
	return nil
}

// Run is the writer loop: it consumes the source's events until the stream
// closes or ctx is cancelled. Readers keep snapshotting the last applied
// state; no partial mutation is ever left visible across cancellation.
func (d *Dispatcher) Run(ctx context.Context, src Source) {
	for {
		select {
		case ev, ok := <-src.Events():
			if !ok {
				return
			}
			if err := d.Route(ev); err != nil {
				d.log.Warn("event dropped",
					slog.String("kind", string(ev.Kind)),
					slog.String("symbol", ev.Symbol),
					slog.String("err", err.Error()),
				)
			}
		case err := <-src.Errors():
			if err != nil {
				d.log.Error("feed error", slog.String("err", err.Error()))
			}
		case <-ctx.Done():
			return
		}
	}
}
