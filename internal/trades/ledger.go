package trades

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Trade is one print from the feed. Immutable once recorded.
type Trade struct {
	Time  time.Time       `json:"time"`
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
	Side  Side            `json:"side"`
}

func (t Trade) Notional() decimal.Decimal { return t.Price.Mul(t.Size) }

// Stats are the session accumulators: every trade ever recorded counts here,
// even after the bounded log has dropped it.
type Stats struct {
	Buys      int64           `json:"buys"`
	Sells     int64           `json:"sells"`
	BuyValue  decimal.Decimal `json:"buyValue"`
	SellValue decimal.Decimal `json:"sellValue"`
}

func (s Stats) Total() int64 { return s.Buys + s.Sells }

// Ledger is one symbol's rolling trade log. capacity <= 0 keeps every trade
// for the session; otherwise the oldest print is dropped once full.
//
// Not safe for concurrent use: market.SymbolBook serializes all access.
type Ledger struct {
	capacity int
	log      []Trade // oldest first
	stats    Stats
}

func NewLedger(capacity int) *Ledger {
	l := &Ledger{capacity: capacity}
	l.stats.BuyValue = decimal.Zero
	l.stats.SellValue = decimal.Zero
	if capacity > 0 {
		l.log = make([]Trade, 0, capacity)
	}
	return l
}

func (l *Ledger) Record(t Trade) {
	if l.capacity > 0 && len(l.log) == l.capacity {
		copy(l.log, l.log[1:])
		l.log[len(l.log)-1] = t
	} else {
		l.log = append(l.log, t)
	}
	switch t.Side {
	case Sell:
		l.stats.Sells++
		l.stats.SellValue = l.stats.SellValue.Add(t.Notional())
	default:
		l.stats.Buys++
		l.stats.BuyValue = l.stats.BuyValue.Add(t.Notional())
	}
}

// Recent returns the n most recent trades, newest first. n <= 0 returns all
// retained trades.
func (l *Ledger) Recent(n int) []Trade {
	if n <= 0 || n > len(l.log) {
		n = len(l.log)
	}
	out := make([]Trade, n)
	for i := 0; i < n; i++ {
		out[i] = l.log[len(l.log)-1-i]
	}
	return out
}

func (l *Ledger) Stats() Stats { return l.stats }

func (l *Ledger) Len() int { return len(l.log) }
