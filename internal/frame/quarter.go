package frame

import (
	"fmt"
	"time"
)

// QuarterKey identifies a calendar quarter as year*4 + quarter index (0..3)
type QuarterKey int

// KeyOf returns the calendar quarter key of t
func KeyOf(t time.Time) QuarterKey {
	return QuarterKey(t.Year()*4 + (int(t.Month())-1)/3)
}

// Year returns the calendar year of the key
func (k QuarterKey) Year() int { return int(k) / 4 }

// Quarter returns the quarter number 1..4
func (k QuarterKey) Quarter() int { return int(k)%4 + 1 }

// End returns the last calendar day of the quarter
func (k QuarterKey) End() time.Time {
	firstOfNext := time.Date(k.Year(), time.Month(k.Quarter()*3+1), 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1)
}

// QuarterEnd rolls t forward to the last day of its calendar quarter
func QuarterEnd(t time.Time) time.Time {
	return KeyOf(t).End()
}

// PriorQuarterEnd rolls t forward to its quarter end and then steps back
// one quarter, i.e. the last day of the previous calendar quarter.
func PriorQuarterEnd(t time.Time) time.Time {
	return (KeyOf(t) - 1).End()
}

// YearQuarterLabel formats t as two-digit year + "QE" + quarter, e.g. 24QE1
func YearQuarterLabel(t time.Time) string {
	k := KeyOf(t)
	return fmt.Sprintf("%02dQE%d", k.Year()%100, k.Quarter())
}

// Date truncates t to a UTC calendar date
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
