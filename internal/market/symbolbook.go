package market

import (
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"depthboard/internal/book"
	"depthboard/internal/candles"
	"depthboard/internal/trades"
)

// SymbolBook is the per-symbol unit the read layer polls: level-2 book, trade
// ledger and candle series behind one lock. The feed dispatcher is the sole
// writer; any number of readers take snapshots. Symbols are independent, so
// there is no lock ordering across books.
type SymbolBook struct {
	symbol  string
	display string

	mu      sync.RWMutex
	levels  *book.PriceLevelBook
	ledger  *trades.Ledger
	candles *candles.Aggregator
}

func NewSymbolBook(symbol, display string, tradeCapacity int, baseGranularity int64) (*SymbolBook, error) {
	agg, err := candles.NewAggregator(baseGranularity)
	if err != nil {
		return nil, err
	}
	return &SymbolBook{
		symbol:  symbol,
		display: display,
		levels:  book.New(),
		ledger:  trades.NewLedger(tradeCapacity),
		candles: agg,
	}, nil
}

func (s *SymbolBook) Symbol() string  { return s.symbol }
func (s *SymbolBook) Display() string { return s.display }

// ApplyBookSnapshot replaces whole sides. A nil side is left untouched. Both
// sides are validated before either is mutated, so a zero-size level anywhere
// in the event rejects the snapshot wholesale and the book keeps its prior
// state on both sides.
func (s *SymbolBook) ApplyBookSnapshot(bids, asks []book.PriceLevel) error {
	if err := book.ValidateSnapshot(bids); err != nil {
		return err
	}
	if err := book.ValidateSnapshot(asks); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if bids != nil {
		if err := s.levels.ApplySnapshot(book.Bid, bids); err != nil {
			return err
		}
	}
	if asks != nil {
		if err := s.levels.ApplySnapshot(book.Ask, asks); err != nil {
			return err
		}
	}
	return nil
}

func (s *SymbolBook) ApplyBookDelta(side book.Side, price, size decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels.ApplyDelta(side, price, size)
}

// ApplyBookDeltas applies one event's whole change batch under a single lock
// acquisition: a concurrent snapshot sees all of the event's changes or none
// of them.
func (s *SymbolBook) ApplyBookDeltas(changes []book.LevelChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range changes {
		s.levels.ApplyDelta(c.Side, c.Price, c.Size)
	}
}

// ApplyTrade records the print in the ledger and ingests it into the candle
// series, in that order. Ledger accumulation never fails; a candle ordering
// error is returned after the ledger has already counted the trade (the
// ledger has no ordering requirement, the candle series does).
func (s *SymbolBook) ApplyTrade(t trades.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.Record(t)
	return s.candles.Ingest(t)
}

// Snapshot is the consistent read-only view handed to the poll layer.
type Snapshot struct {
	Symbol  string
	Display string

	Bids []book.PriceLevel // best first
	Asks []book.PriceLevel // best first

	MidMarket decimal.Decimal
	HasMid    bool

	Trades []trades.Trade // newest first
	Stats  trades.Stats

	Candles []candles.Candle // base granularity, oldest first
}

// DepthCurve walks one side of the snapshot as (price, cumulative size).
func (v Snapshot) DepthCurve(side book.Side, limit int) []book.DepthPoint {
	levels := v.Asks
	if side == book.Bid {
		levels = v.Bids
	}
	return slices.Collect(book.CumulativeDepth(levels, limit))
}

// Snapshot copies the current state as of one instant. Taken under the read
// lock so a mutation in flight is never observed half-applied; the copies are
// small (summary fields plus clones of the retained sequences).
func (s *SymbolBook) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Symbol:  s.symbol,
		Display: s.display,
		Bids:    s.levels.Levels(book.Bid),
		Asks:    s.levels.Levels(book.Ask),
		Trades:  s.ledger.Recent(0),
		Stats:   s.ledger.Stats(),
		Candles: s.candles.Series(),
	}
	snap.MidMarket, snap.HasMid = s.levels.MidMarket()
	return snap
}

// Resample materializes the derived candle series at a coarser granularity,
// under the read lock.
func (s *SymbolBook) Resample(granularity int64) ([]candles.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq, err := s.candles.Resample(granularity)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

func (s *SymbolBook) MidMarket() (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.levels.MidMarket()
}
