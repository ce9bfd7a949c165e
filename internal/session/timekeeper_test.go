package session

import (
	"testing"
	"time"
)

func TestElapsedString(t *testing.T) {
	tk := NewTimeKeeper()
	base := tk.start
	tk.now = func() time.Time { return base.Add(1*time.Hour + 2*time.Minute + 3*time.Second) }

	if got := tk.Elapsed(); got != 1*time.Hour+2*time.Minute+3*time.Second {
		t.Fatalf("elapsed got %v", got)
	}
	if got := tk.ElapsedString(); got != "01:02:03" {
		t.Fatalf("got %q want 01:02:03", got)
	}
}
