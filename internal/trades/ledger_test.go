package trades

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestRecordAccumulates(t *testing.T) {
	l := NewLedger(0)
	base := time.Unix(1700000000, 0)

	l.Record(Trade{Time: base, Price: d("100"), Size: d("2"), Side: Buy})
	l.Record(Trade{Time: base.Add(time.Second), Price: d("101"), Size: d("1"), Side: Sell})
	l.Record(Trade{Time: base.Add(2 * time.Second), Price: d("99"), Size: d("3"), Side: Buy})

	st := l.Stats()
	if st.Buys != 2 || st.Sells != 1 {
		t.Fatalf("counts got %d/%d want 2/1", st.Buys, st.Sells)
	}
	if st.Total() != 3 {
		t.Fatalf("total got %d want 3", st.Total())
	}
	if !st.BuyValue.Equal(d("497")) { // 100*2 + 99*3
		t.Fatalf("buy value got %v want 497", st.BuyValue)
	}
	if !st.SellValue.Equal(d("101")) {
		t.Fatalf("sell value got %v want 101", st.SellValue)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	l := NewLedger(0)
	base := time.Unix(1700000000, 0)
	for i := 0; i < 5; i++ {
		l.Record(Trade{Time: base.Add(time.Duration(i) * time.Second), Price: d("100").Add(decimal.NewFromInt(int64(i))), Size: d("1"), Side: Buy})
	}

	got := l.Recent(3)
	if len(got) != 3 {
		t.Fatalf("recent got %d want 3", len(got))
	}
	if !got[0].Price.Equal(d("104")) || !got[2].Price.Equal(d("102")) {
		t.Fatalf("ordering wrong: %v .. %v", got[0].Price, got[2].Price)
	}

	all := l.Recent(0)
	if len(all) != 5 {
		t.Fatalf("recent(0) got %d want 5", len(all))
	}
}

func TestBoundedCapacityDropsOldest(t *testing.T) {
	l := NewLedger(2)
	base := time.Unix(1700000000, 0)
	l.Record(Trade{Time: base, Price: d("1"), Size: d("1"), Side: Buy})
	l.Record(Trade{Time: base.Add(time.Second), Price: d("2"), Size: d("1"), Side: Sell})
	l.Record(Trade{Time: base.Add(2 * time.Second), Price: d("3"), Size: d("1"), Side: Buy})

	if l.Len() != 2 {
		t.Fatalf("len got %d want 2", l.Len())
	}
	got := l.Recent(0)
	if !got[0].Price.Equal(d("3")) || !got[1].Price.Equal(d("2")) {
		t.Fatalf("retained wrong trades: %v, %v", got[0].Price, got[1].Price)
	}

	// Accumulators still cover the dropped trade.
	st := l.Stats()
	if st.Total() != 3 {
		t.Fatalf("total got %d want 3", st.Total())
	}
	if !st.BuyValue.Equal(d("4")) || !st.SellValue.Equal(d("2")) {
		t.Fatalf("values got %v/%v want 4/2", st.BuyValue, st.SellValue)
	}
}
