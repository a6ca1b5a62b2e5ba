package library

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// Clock supplies the current time. Every catalog operation reads it once.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// IDGen produces loan identifiers for checkout history.
type IDGen interface {
	New(t time.Time) string
}

type ulidGen struct{}

func (ulidGen) New(t time.Time) string {
	id, err := ulid.New(ulid.Timestamp(t), rand.Reader)
	if err != nil {
		// crypto/rand does not fail on supported platforms.
		return ulid.Make().String()
	}
	return id.String()
}

const day = 24 * time.Hour

// overdueDays returns the number of whole days now is past due, or 0.
func overdueDays(due, now time.Time) int {
	if due.IsZero() || !now.After(due) {
		return 0
	}
	return int(now.Sub(due) / day)
}

func dueDate(now time.Time, periodDays int) time.Time {
	return now.Add(time.Duration(periodDays) * day)
}
