package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindPolicies(t *testing.T) {
	cases := []struct {
		kind   Kind
		period int
		fine5  float64
	}{
		{KindBook, 21, 1.25},
		{KindDVD, 7, 5.00},
		{KindCD, 14, 2.50},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			assert.Equal(t, tc.period, tc.kind.CheckoutPeriodDays())
			assert.Equal(t, tc.fine5, tc.kind.CalculateFine(5))
			assert.Zero(t, tc.kind.CalculateFine(0))
			assert.Zero(t, tc.kind.CalculateFine(-3))
		})
	}
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("CD")
	require.NoError(t, err)
	assert.Equal(t, KindCD, k)

	_, err = ParseKind("Vinyl")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestNewItemDefaults(t *testing.T) {
	it := NewItem(1, "Kind of Blue", "", NewCD("Miles Davis", 5))
	assert.Equal(t, "Music", it.Category())
	assert.Equal(t, StatusAvailable, it.Status())
	assert.Equal(t, 14, it.CheckoutPeriod())
	assert.Equal(t, "CD: Kind of Blue by Miles Davis (5 tracks)", it.DisplayInfo())

	assert.Panics(t, func() { NewItem(0, "x", "", NewBook("a", "b")) })
	assert.Panics(t, func() { NewItem(1, "x", "", nil) })
}

func TestItemCheckoutCheckin(t *testing.T) {
	it := NewItem(1, "Dune", "Fiction", NewBook("Frank Herbert", "978-0441013593"))

	require.True(t, it.Checkout(7, epoch))
	assert.Equal(t, StatusCheckedOut, it.Status())
	holder, ok := it.Holder()
	assert.True(t, ok)
	assert.Equal(t, int64(7), holder)
	due, ok := it.DueDate()
	require.True(t, ok)
	assert.Equal(t, epoch.Add(21*24*time.Hour), due)
	assert.Equal(t, 1, it.CheckoutCount())

	// Second checkout fails and changes nothing.
	assert.False(t, it.Checkout(8, epoch))
	holder, _ = it.Holder()
	assert.Equal(t, int64(7), holder)
	assert.Equal(t, 1, it.CheckoutCount())

	res := it.Checkin("Good", epoch)
	assert.Zero(t, res.Fine)
	assert.Zero(t, res.DaysOverdue)
	assert.Equal(t, int64(7), res.PatronID)
	assert.Equal(t, StatusAvailable, it.Status())
	_, ok = it.Holder()
	assert.False(t, ok)
	_, ok = it.DueDate()
	assert.False(t, ok)

	hist := it.History()
	require.Len(t, hist, 1)
	assert.Equal(t, epoch, hist[0].ReturnDate)
	assert.Equal(t, "Good", hist[0].Condition)
	assert.NotEmpty(t, hist[0].LoanID)
}

func TestItemCheckinFines(t *testing.T) {
	cases := []struct {
		name  string
		media Media
		late  int
		want  float64
	}{
		{"book 5 days", NewBook("a", "b"), 5, 1.25},
		{"book 10 days", NewBook("a", "b"), 10, 2.50},
		{"dvd 5 days", NewDVD("d", 90), 5, 5.00},
		{"cd 5 days", NewCD("c", 10), 5, 2.50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			it := NewItem(1, "x", "", tc.media)
			require.True(t, it.Checkout(1, epoch))
			due, _ := it.DueDate()
			// A few hours into the day still counts whole days only.
			res := it.Checkin("Good", due.Add(time.Duration(tc.late)*24*time.Hour+3*time.Hour))
			assert.Equal(t, tc.late, res.DaysOverdue)
			assert.Equal(t, tc.want, res.Fine)
		})
	}
}

func TestItemReservationQueue(t *testing.T) {
	it := NewItem(1, "x", "", NewDVD("d", 100))
	require.True(t, it.Checkout(1, epoch))

	assert.True(t, it.Reserve(2))
	assert.False(t, it.Reserve(2), "second reserve is a no-op")
	assert.True(t, it.Reserve(3))
	assert.Equal(t, []int64{2, 3}, it.ReservationQueue())
	assert.Equal(t, StatusCheckedOut, it.Status(), "reserve does not touch status")

	res := it.Checkin("Good", epoch)
	assert.Equal(t, int64(2), res.NextPatron)
	assert.Equal(t, StatusAvailable, it.Status())
	assert.Equal(t, []int64{3}, it.ReservationQueue())

	assert.True(t, it.CancelReservation(3))
	assert.False(t, it.CancelReservation(3))
	assert.Empty(t, it.ReservationQueue())
}

func TestItemCheckoutLeavesQueue(t *testing.T) {
	it := NewItem(1, "x", "", NewBook("a", "b"))
	it.Reserve(4)
	it.Reserve(5)
	require.True(t, it.Checkout(4, epoch))
	assert.Equal(t, []int64{5}, it.ReservationQueue())
}

func TestItemSetStatus(t *testing.T) {
	it := NewItem(1, "x", "", NewBook("a", "b"))

	it.mu.Lock()
	assert.NoError(t, it.setStatusLocked(StatusDamaged))
	assert.ErrorIs(t, it.setStatusLocked(StatusCheckedOut), ErrInvalidStatus)
	assert.ErrorIs(t, it.setStatusLocked("Borrowed"), ErrInvalidStatus)
	it.mu.Unlock()

	assert.False(t, it.Checkout(1, epoch), "damaged items cannot be lent")

	it.mu.Lock()
	assert.NoError(t, it.setStatusLocked(StatusAvailable))
	it.mu.Unlock()
	require.True(t, it.Checkout(1, epoch))

	it.mu.Lock()
	assert.ErrorIs(t, it.setStatusLocked(StatusLost), ErrItemCheckedOut)
	it.mu.Unlock()
}
