package feed

import (
	"errors"
	"fmt"

	"depthboard/internal/book"
	"depthboard/internal/trades"
)

type Kind string

const (
	KindSnapshot Kind = "snapshot"
	KindDelta    Kind = "delta"
	KindTrade    Kind = "trade"
)

// BookDelta is one level change inside a delta event. It is book.LevelChange
// so a whole event's batch routes to the book in one atomic apply.
type BookDelta = book.LevelChange

// Event is one decoded feed message: a full book snapshot, a batch of level
// deltas, or a trade print, always for a single symbol.
type Event struct {
	Kind   Kind
	Symbol string

	// Snapshot payload. A nil side means "not included", an empty non-nil
	// side clears it.
	Bids []book.PriceLevel
	Asks []book.PriceLevel

	// Delta payload.
	Deltas []BookDelta

	// Trade payload.
	Trade *trades.Trade
}

var ErrUnknownSymbol = errors.New("feed: unknown symbol")

// MalformedEventError describes a payload that fails shape/value checks.
// Such events are dropped, logged and counted, never fatal.
type MalformedEventError struct {
	Kind   Kind
	Symbol string
	Reason string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("feed: malformed %s event for %q: %s", e.Kind, e.Symbol, e.Reason)
}

func (ev Event) malformed(reason string) error {
	return &MalformedEventError{Kind: ev.Kind, Symbol: ev.Symbol, Reason: reason}
}

// Validate checks payload shape and values against the contract the core
// requires from the feed client. Zero-size snapshot levels are NOT flagged
// here: the book rejects those snapshots wholesale as a data error.
func (ev Event) Validate() error {
	if ev.Symbol == "" {
		return ev.malformed("empty symbol")
	}
	switch ev.Kind {
	case KindSnapshot:
		if ev.Bids == nil && ev.Asks == nil {
			return ev.malformed("snapshot with no sides")
		}
		for _, lvl := range ev.Bids {
			if lvl.Price.Sign() <= 0 {
				return ev.malformed("bid level with non-positive price")
			}
		}
		for _, lvl := range ev.Asks {
			if lvl.Price.Sign() <= 0 {
				return ev.malformed("ask level with non-positive price")
			}
		}
	case KindDelta:
		if len(ev.Deltas) == 0 {
			return ev.malformed("delta with no changes")
		}
		for _, d := range ev.Deltas {
			if d.Side != book.Bid && d.Side != book.Ask {
				return ev.malformed(fmt.Sprintf("unknown side %q", d.Side))
			}
			if d.Price.Sign() <= 0 {
				return ev.malformed("non-positive price")
			}
			if d.Size.Sign() < 0 {
				return ev.malformed("negative size")
			}
		}
	case KindTrade:
		t := ev.Trade
		if t == nil {
			return ev.malformed("trade event without trade")
		}
		if t.Side != trades.Buy && t.Side != trades.Sell {
			return ev.malformed(fmt.Sprintf("unknown trade side %q", t.Side))
		}
		if t.Price.Sign() <= 0 {
			return ev.malformed("non-positive trade price")
		}
		if t.Size.Sign() <= 0 {
			return ev.malformed("non-positive trade size")
		}
		if t.Time.IsZero() {
			return ev.malformed("missing trade timestamp")
		}
	default:
		return ev.malformed(fmt.Sprintf("unknown kind %q", ev.Kind))
	}
	return nil
}
