package candles

import (
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/shopspring/decimal"

	"depthboard/internal/trades"
)

// SupportedGranularities are the candle widths, in seconds, the aggregator can
// serve. The shortest is the base granularity everything else derives from.
var SupportedGranularities = []int64{60, 300, 900, 3600, 21600, 86400}

var (
	ErrUnsupportedGranularity = errors.New("candles: unsupported granularity")
	ErrStaleTrade             = errors.New("candles: trade older than open bucket")
)

func Supported(granularity int64) bool {
	return slices.Contains(SupportedGranularities, granularity)
}

// Candle is one OHLCV bucket. BucketStart is unix seconds aligned to the
// granularity. Invariant: Low <= Open,Close <= High; Volume >= 0.
type Candle struct {
	BucketStart int64           `json:"bucketStart"`
	Open        decimal.Decimal `json:"open"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	Close       decimal.Decimal `json:"close"`
	Volume      decimal.Decimal `json:"volume"`
}

// Aggregator builds one symbol's candle series incrementally at the base
// granularity. Coarser series are derived on demand by Resample; only base
// candles are stored, so derived candles can never drift from the base data.
//
// Trade timestamps are assumed non-decreasing across buckets: once a newer
// bucket opens, earlier buckets are immutable and a trade for one is an error.
// Out-of-order arrivals inside the open bucket are applied in arrival order.
//
// Not safe for concurrent use: market.SymbolBook serializes all access.
type Aggregator struct {
	base   int64
	series []Candle // ascending BucketStart, unique
}

func NewAggregator(baseGranularity int64) (*Aggregator, error) {
	if !Supported(baseGranularity) {
		return nil, fmt.Errorf("%w: %ds", ErrUnsupportedGranularity, baseGranularity)
	}
	return &Aggregator{base: baseGranularity}, nil
}

func (a *Aggregator) Base() int64 { return a.base }

// alignDown floors ts to a multiple of granularity. Go's % truncates toward
// zero, so pre-epoch timestamps need the remainder shifted back into range.
func alignDown(ts, granularity int64) int64 {
	rem := ts % granularity
	if rem < 0 {
		rem += granularity
	}
	return ts - rem
}

func (a *Aggregator) Ingest(t trades.Trade) error {
	bucket := alignDown(t.Time.Unix(), a.base)

	if n := len(a.series); n > 0 {
		last := &a.series[n-1]
		switch {
		case bucket == last.BucketStart:
			if t.Price.GreaterThan(last.High) {
				last.High = t.Price
			}
			if t.Price.LessThan(last.Low) {
				last.Low = t.Price
			}
			last.Close = t.Price
			last.Volume = last.Volume.Add(t.Size)
			return nil
		case bucket < last.BucketStart:
			return fmt.Errorf("%w: trade bucket %d, open bucket %d", ErrStaleTrade, bucket, last.BucketStart)
		}
	}

	a.series = append(a.series, Candle{
		BucketStart: bucket,
		Open:        t.Price,
		High:        t.Price,
		Low:         t.Price,
		Close:       t.Price,
		Volume:      t.Size,
	})
	return nil
}

// Resample derives candles at a coarser granularity by grouping consecutive
// base candles into the target buckets: open from the first, close from the
// last, extremes and volume merged. Buckets with no base data are omitted.
// The sequence is lazy and restartable; the aggregator must not be mutated
// while a walk is in progress (SymbolBook resamples under its lock).
func (a *Aggregator) Resample(granularity int64) (iter.Seq[Candle], error) {
	if !Supported(granularity) || granularity%a.base != 0 {
		return nil, fmt.Errorf("%w: %ds", ErrUnsupportedGranularity, granularity)
	}
	series := a.series
	return func(yield func(Candle) bool) {
		var cur Candle
		open := false
		for _, c := range series {
			bucket := alignDown(c.BucketStart, granularity)
			if open && bucket == cur.BucketStart {
				if c.High.GreaterThan(cur.High) {
					cur.High = c.High
				}
				if c.Low.LessThan(cur.Low) {
					cur.Low = c.Low
				}
				cur.Close = c.Close
				cur.Volume = cur.Volume.Add(c.Volume)
				continue
			}
			if open && !yield(cur) {
				return
			}
			cur = c
			cur.BucketStart = bucket
			open = true
		}
		if open {
			yield(cur)
		}
	}, nil
}

// Series returns a copy of the base candle series, oldest first.
func (a *Aggregator) Series() []Candle { return slices.Clone(a.series) }

func (a *Aggregator) Len() int { return len(a.series) }
