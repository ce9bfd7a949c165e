package book

import (
	"errors"
	"iter"
	"slices"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Bid Side = "bid"
	Ask Side = "ask"
)

type PriceLevel struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// DepthPoint is one step of the depth curve: cumulative size available at this
// price or better.
type DepthPoint struct {
	Price   decimal.Decimal `json:"price"`
	CumSize decimal.Decimal `json:"cumSize"`
}

var ErrInvalidSnapshot = errors.New("book: snapshot level with non-positive size")

// PriceLevelBook is one symbol's level-2 book. Each side is a sorted slice of
// unique price levels, best price first (bids descending, asks ascending), so
// best-price reads are index 0 and delta upserts are a binary search.
// Sizes are strictly positive while a level is present; a size-0 delta removes.
//
// Not safe for concurrent use: market.SymbolBook serializes all access.
type PriceLevelBook struct {
	bids []PriceLevel
	asks []PriceLevel
}

func New() *PriceLevelBook { return &PriceLevelBook{} }

// cmpLevel orders a side's levels best-first.
func cmpLevel(s Side) func(PriceLevel, PriceLevel) int {
	if s == Bid {
		return func(a, b PriceLevel) int { return b.Price.Cmp(a.Price) }
	}
	return func(a, b PriceLevel) int { return a.Price.Cmp(b.Price) }
}

func (b *PriceLevelBook) levels(s Side) []PriceLevel {
	if s == Bid {
		return b.bids
	}
	return b.asks
}

func (b *PriceLevelBook) setLevels(s Side, ls []PriceLevel) {
	if s == Bid {
		b.bids = ls
	} else {
		b.asks = ls
	}
}

// ValidateSnapshot reports ErrInvalidSnapshot if any level carries a
// non-positive size, without touching any book. Callers replacing several
// sides from one event check every side before mutating the first.
func ValidateSnapshot(levels []PriceLevel) error {
	for _, lvl := range levels {
		if lvl.Size.Sign() <= 0 {
			return ErrInvalidSnapshot
		}
	}
	return nil
}

// ApplySnapshot replaces the whole side. A level with size <= 0 is a data
// error: the snapshot is rejected wholesale and the side keeps its prior state.
func (b *PriceLevelBook) ApplySnapshot(s Side, levels []PriceLevel) error {
	if err := ValidateSnapshot(levels); err != nil {
		return err
	}
	next := make([]PriceLevel, len(levels))
	copy(next, levels)
	slices.SortFunc(next, cmpLevel(s))
	b.setLevels(s, next)
	return nil
}

// LevelChange is one side-tagged delta, so a whole batch from a single feed
// event can be handed around and applied atomically.
type LevelChange struct {
	Side  Side
	Price decimal.Decimal
	Size  decimal.Decimal
}

// ApplyDelta upserts one price level. Size 0 (or below) removes the level,
// a no-op when the price is absent.
func (b *PriceLevelBook) ApplyDelta(s Side, price, size decimal.Decimal) {
	ls := b.levels(s)
	cmp := cmpLevel(s)
	i, found := slices.BinarySearchFunc(ls, PriceLevel{Price: price}, cmp)
	switch {
	case size.Sign() <= 0:
		if found {
			b.setLevels(s, slices.Delete(ls, i, i+1))
		}
	case found:
		ls[i].Size = size
	default:
		b.setLevels(s, slices.Insert(ls, i, PriceLevel{Price: price, Size: size}))
	}
}

func (b *PriceLevelBook) BestBid() (decimal.Decimal, bool) { return best(b.bids) }
func (b *PriceLevelBook) BestAsk() (decimal.Decimal, bool) { return best(b.asks) }

func best(ls []PriceLevel) (decimal.Decimal, bool) {
	if len(ls) == 0 {
		return decimal.Decimal{}, false
	}
	return ls[0].Price, true
}

// MidMarket is (best_bid + best_ask)/2, ok=false when either side is empty.
// A crossed book (best_bid >= best_ask) still yields a mid: the feed is
// authoritative and transient crossing during delta processing is expected.
func (b *PriceLevelBook) MidMarket() (decimal.Decimal, bool) {
	bb, ok := b.BestBid()
	if !ok {
		return decimal.Decimal{}, false
	}
	ba, ok := b.BestAsk()
	if !ok {
		return decimal.Decimal{}, false
	}
	return decimal.Avg(bb, ba), true
}

// DepthCurve yields (price, cumulative size) from the best price outward, up
// to limit levels (limit <= 0 means all). The sequence is lazy and restartable;
// cumulative sizes are non-decreasing.
func (b *PriceLevelBook) DepthCurve(s Side, limit int) iter.Seq[DepthPoint] {
	return CumulativeDepth(b.levels(s), limit)
}

// CumulativeDepth is DepthCurve over an already best-first level slice, so
// snapshot clones can be walked without holding the book.
func CumulativeDepth(levels []PriceLevel, limit int) iter.Seq[DepthPoint] {
	if limit <= 0 || limit > len(levels) {
		limit = len(levels)
	}
	levels = levels[:limit]
	return func(yield func(DepthPoint) bool) {
		cum := decimal.Zero
		for _, lvl := range levels {
			cum = cum.Add(lvl.Size)
			if !yield(DepthPoint{Price: lvl.Price, CumSize: cum}) {
				return
			}
		}
	}
}

// Levels returns a best-first copy of one side, for snapshots.
func (b *PriceLevelBook) Levels(s Side) []PriceLevel {
	return slices.Clone(b.levels(s))
}

func (b *PriceLevelBook) Depth(s Side) int { return len(b.levels(s)) }
