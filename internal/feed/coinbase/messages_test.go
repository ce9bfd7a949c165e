package coinbase

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"depthboard/internal/book"
	"depthboard/internal/feed"
	"depthboard/internal/trades"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestParseSnapshot(t *testing.T) {
	data := []byte(`{"type":"snapshot","product_id":"BTC-USD",
		"bids":[["10101.10","0.45054140"],["10100.00","2"]],
		"asks":[["10102.55","0.57753524"]]}`)

	ev, ok, err := parseMessage(data)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if ev.Kind != feed.KindSnapshot || ev.Symbol != "BTC-USD" {
		t.Fatalf("header wrong: %+v", ev)
	}
	if len(ev.Bids) != 2 || len(ev.Asks) != 1 {
		t.Fatalf("sides got %d/%d", len(ev.Bids), len(ev.Asks))
	}
	if !ev.Bids[0].Price.Equal(d("10101.10")) || !ev.Bids[0].Size.Equal(d("0.45054140")) {
		t.Fatalf("bid level wrong: %+v", ev.Bids[0])
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("decoded snapshot should validate: %v", err)
	}
}

func TestParseL2Update(t *testing.T) {
	data := []byte(`{"type":"l2update","product_id":"ETH-USD",
		"time":"2019-08-14T20:42:27.265Z",
		"changes":[["buy","10101.80","0.162567"],["sell","10103.00","0"]]}`)

	ev, ok, err := parseMessage(data)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if ev.Kind != feed.KindDelta || len(ev.Deltas) != 2 {
		t.Fatalf("event wrong: %+v", ev)
	}
	if ev.Deltas[0].Side != book.Bid || !ev.Deltas[0].Price.Equal(d("10101.80")) {
		t.Fatalf("first change wrong: %+v", ev.Deltas[0])
	}
	if ev.Deltas[1].Side != book.Ask || ev.Deltas[1].Size.Sign() != 0 {
		t.Fatalf("removal change wrong: %+v", ev.Deltas[1])
	}
}

func TestParseMatchFlipsMakerSide(t *testing.T) {
	data := []byte(`{"type":"match","trade_id":10,"sequence":50,
		"maker_order_id":"ac928c66","taker_order_id":"132fb6ae",
		"time":"2014-11-07T08:19:27.028459Z","product_id":"BTC-USD",
		"size":"5.23512","price":"400.23","side":"sell"}`)

	ev, ok, err := parseMessage(data)
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if ev.Kind != feed.KindTrade || ev.Trade == nil {
		t.Fatalf("event wrong: %+v", ev)
	}
	// Maker was selling, so the aggressor bought.
	if ev.Trade.Side != trades.Buy {
		t.Fatalf("side got %s want buy", ev.Trade.Side)
	}
	if !ev.Trade.Price.Equal(d("400.23")) || !ev.Trade.Size.Equal(d("5.23512")) {
		t.Fatalf("trade wrong: %+v", ev.Trade)
	}
	want := time.Date(2014, 11, 7, 8, 19, 27, 28459000, time.UTC)
	if !ev.Trade.Time.Equal(want) {
		t.Fatalf("time got %v want %v", ev.Trade.Time, want)
	}
}

func TestParseIgnoresAcks(t *testing.T) {
	for _, data := range []string{
		`{"type":"subscriptions","channels":[]}`,
		`{"type":"heartbeat","sequence":90,"product_id":"BTC-USD"}`,
		`{"type":"last_match","product_id":"BTC-USD","price":"400.23","size":"1","side":"sell","time":"2014-11-07T08:19:27.028459Z"}`,
	} {
		_, ok, err := parseMessage([]byte(data))
		if err != nil {
			t.Fatalf("%s: %v", data, err)
		}
		if ok {
			t.Fatalf("frame should carry no event: %s", data)
		}
	}
}

func TestParseErrors(t *testing.T) {
	if _, _, err := parseMessage([]byte(`{not json`)); err == nil {
		t.Fatal("bad json should error")
	}
	if _, _, err := parseMessage([]byte(`{"type":"error","message":"Failed to subscribe","reason":"BTC-EUR is not a valid product"}`)); err == nil {
		t.Fatal("feed error frame should surface")
	}
	if _, _, err := parseMessage([]byte(`{"type":"match","product_id":"BTC-USD","size":"x","price":"400.23","side":"sell","time":"2014-11-07T08:19:27.028459Z"}`)); err == nil {
		t.Fatal("unparseable size should error")
	}
}
