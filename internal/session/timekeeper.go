package session

import (
	"fmt"
	"time"
)

// TimeKeeper is the session clock: elapsed time since process start, for the
// stats view.
type TimeKeeper struct {
	start time.Time
	now   func() time.Time
}

func NewTimeKeeper() *TimeKeeper {
	return &TimeKeeper{start: time.Now(), now: time.Now}
}

func (t *TimeKeeper) Elapsed() time.Duration {
	return t.now().Sub(t.start)
}

// ElapsedString formats the elapsed session time as HH:MM:SS.
func (t *TimeKeeper) ElapsedString() string {
	e := t.Elapsed().Round(time.Second)
	h := e / time.Hour
	m := (e % time.Hour) / time.Minute
	s := (e % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
