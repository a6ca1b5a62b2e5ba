package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierLimits(t *testing.T) {
	assert.Equal(t, 5, TierStandard.MaxCheckouts())
	assert.Equal(t, 10, TierPremium.MaxCheckouts())
	assert.Equal(t, 3, TierStudent.MaxCheckouts())
	assert.Equal(t, 15, TierFaculty.MaxCheckouts())
	assert.Equal(t, 5, Tier("Gold").MaxCheckouts())
}

func TestPatronCheckoutLimit(t *testing.T) {
	p := NewPatron(1, "Ada", "ada@example.org", TierStudent, epoch)
	for i := int64(1); i <= 3; i++ {
		require.True(t, p.CheckoutItem(NewItem(i, "x", "", NewBook("a", "b")), epoch))
	}
	assert.False(t, p.CanCheckout())
	assert.False(t, p.CheckoutItem(NewItem(4, "x", "", NewBook("a", "b")), epoch))
	assert.Equal(t, []int64{1, 2, 3}, p.CheckedOut())
	assert.Len(t, p.History(), 3)
}

func TestPatronDefaultsAndDisplay(t *testing.T) {
	p := NewPatron(9, "Grace", "", "", epoch)
	assert.Equal(t, TierStandard, p.Tier())
	assert.Equal(t, "Patron: Grace (ID: 9) - Membership: Standard", p.DisplayInfo())
	assert.Panics(t, func() { NewPatron(-1, "x", "", TierStandard, epoch) })
}

func TestPatronNotifications(t *testing.T) {
	p := NewPatron(1, "Ada", "", TierPremium, epoch)
	n1 := p.AddNotification("one", NotifyGeneral, epoch)
	n2 := p.AddNotification("two", NotifyGeneral, epoch)
	assert.Equal(t, int64(1), n1.ID)
	assert.Equal(t, int64(2), n2.ID)
	assert.Equal(t, int64(1), n1.PatronID)

	require.True(t, p.MarkNotificationRead(1))
	assert.False(t, p.MarkNotificationRead(42))

	unread := p.Notifications(true)
	require.Len(t, unread, 1)
	assert.Equal(t, "two", unread[0].Message)
	assert.Len(t, p.Notifications(false), 2)
	assert.Equal(t, 1, p.Info().Unread)
}

func TestNotifiedTodayUsesUTCDays(t *testing.T) {
	p := NewPatron(1, "Ada", "", TierStandard, epoch)
	sent := time.Date(2024, time.March, 1, 22, 0, 0, 0, time.UTC)
	p.AddNotification("Overdue "+itemMarker(7), NotifyOverdue, sent)

	// 23:30 UTC is already March 2 in Sydney but the same UTC day.
	sydney := time.FixedZone("AEDT", 11*3600)
	later := time.Date(2024, time.March, 1, 23, 30, 0, 0, time.UTC).In(sydney)
	assert.True(t, p.notifiedTodayLocked(NotifyOverdue, itemMarker(7), later))

	// 00:30 UTC on March 2 is still March 1 in New York but a new UTC day.
	newYork := time.FixedZone("EST", -5*3600)
	nextDay := time.Date(2024, time.March, 2, 0, 30, 0, 0, time.UTC).In(newYork)
	assert.False(t, p.notifiedTodayLocked(NotifyOverdue, itemMarker(7), nextDay))
}

func TestPatronReturnClosesHistory(t *testing.T) {
	p := NewPatron(1, "Ada", "", TierStandard, epoch)
	item := NewItem(3, "Dune", "", NewBook("a", "b"))
	require.True(t, p.CheckoutItem(item, epoch))

	later := epoch.Add(48 * time.Hour)
	p.mu.Lock()
	p.returnItemLocked(3, later)
	p.addFineLocked(0.75)
	p.addFineLocked(-2)
	p.mu.Unlock()

	assert.Empty(t, p.CheckedOut())
	assert.Equal(t, 0.75, p.Fines())
	hist := p.History()
	require.Len(t, hist, 1)
	assert.True(t, hist[0].Returned())
	assert.Equal(t, later, hist[0].ReturnDate)
	assert.Equal(t, "Dune", hist[0].Title)
}
