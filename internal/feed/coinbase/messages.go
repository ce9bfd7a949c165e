package coinbase

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"depthboard/internal/book"
	"depthboard/internal/feed"
	"depthboard/internal/trades"
)

// wireMessage covers every inbound frame we care about. Coinbase sends
// [price, size] string pairs for book levels and [side, price, size] triples
// for l2update changes.
type wireMessage struct {
	Type      string      `json:"type"`
	ProductID string      `json:"product_id"`
	Time      string      `json:"time"`
	Bids      [][2]string `json:"bids"`
	Asks      [][2]string `json:"asks"`
	Changes   [][3]string `json:"changes"`
	Side      string      `json:"side"`
	Price     string      `json:"price"`
	Size      string      `json:"size"`
	Message   string      `json:"message"`
	Reason    string      `json:"reason"`
}

// parseMessage decodes one frame. ok=false means the frame carries no event
// (subscription ack, heartbeat, last_match replay). A returned error is a
// wire-level problem: the frame is dropped and reported, never fatal.
func parseMessage(data []byte) (feed.Event, bool, error) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return feed.Event{}, false, fmt.Errorf("coinbase: decode frame: %w", err)
	}

	switch msg.Type {
	case "snapshot":
		return parseSnapshot(msg)
	case "l2update":
		return parseL2Update(msg)
	case "match":
		return parseMatch(msg)
	case "error":
		return feed.Event{}, false, fmt.Errorf("coinbase: feed error: %s (%s)", msg.Message, msg.Reason)
	default:
		// subscriptions, heartbeat, last_match, ...
		return feed.Event{}, false, nil
	}
}

func parseSnapshot(msg wireMessage) (feed.Event, bool, error) {
	bids, err := parseLevels(msg.Bids)
	if err != nil {
		return feed.Event{}, false, fmt.Errorf("coinbase: snapshot bids for %s: %w", msg.ProductID, err)
	}
	asks, err := parseLevels(msg.Asks)
	if err != nil {
		return feed.Event{}, false, fmt.Errorf("coinbase: snapshot asks for %s: %w", msg.ProductID, err)
	}
	return feed.Event{
		Kind:   feed.KindSnapshot,
		Symbol: msg.ProductID,
		Bids:   bids,
		Asks:   asks,
	}, true, nil
}

func parseLevels(rows [][2]string) ([]book.PriceLevel, error) {
	levels := make([]book.PriceLevel, 0, len(rows))
	for _, row := range rows {
		price, err := decimal.NewFromString(row[0])
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", row[0], err)
		}
		size, err := decimal.NewFromString(row[1])
		if err != nil {
			return nil, fmt.Errorf("size %q: %w", row[1], err)
		}
		levels = append(levels, book.PriceLevel{Price: price, Size: size})
	}
	return levels, nil
}

func parseL2Update(msg wireMessage) (feed.Event, bool, error) {
	deltas := make([]feed.BookDelta, 0, len(msg.Changes))
	for _, ch := range msg.Changes {
		side := book.Ask
		if ch[0] == "buy" {
			side = book.Bid
		}
		price, err := decimal.NewFromString(ch[1])
		if err != nil {
			return feed.Event{}, false, fmt.Errorf("coinbase: l2update price %q: %w", ch[1], err)
		}
		size, err := decimal.NewFromString(ch[2])
		if err != nil {
			return feed.Event{}, false, fmt.Errorf("coinbase: l2update size %q: %w", ch[2], err)
		}
		deltas = append(deltas, feed.BookDelta{Side: side, Price: price, Size: size})
	}
	return feed.Event{
		Kind:   feed.KindDelta,
		Symbol: msg.ProductID,
		Deltas: deltas,
	}, true, nil
}

func parseMatch(msg wireMessage) (feed.Event, bool, error) {
	price, err := decimal.NewFromString(msg.Price)
	if err != nil {
		return feed.Event{}, false, fmt.Errorf("coinbase: match price %q: %w", msg.Price, err)
	}
	size, err := decimal.NewFromString(msg.Size)
	if err != nil {
		return feed.Event{}, false, fmt.Errorf("coinbase: match size %q: %w", msg.Size, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, msg.Time)
	if err != nil {
		return feed.Event{}, false, fmt.Errorf("coinbase: match time %q: %w", msg.Time, err)
	}
	// Coinbase reports the maker side; the print's direction is the taker's.
	side := trades.Buy
	if msg.Side == "buy" {
		side = trades.Sell
	}
	tr := trades.Trade{Time: ts, Price: price, Size: size, Side: side}
	return feed.Event{
		Kind:   feed.KindTrade,
		Symbol: msg.ProductID,
		Trade:  &tr,
	}, true, nil
}
