package library

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// Patron is a registered borrower. len(checkedOut) never exceeds tier.MaxCheckouts().
type Patron struct {
	id     int64
	name   string
	email  string
	tier   Tier
	joined time.Time

	mu                 sync.Mutex
	checkedOut         []int64
	fines              float64
	history            []BorrowEntry
	notifications      []Notification
	lastNotificationID int64
}

// NewPatron creates a patron with an empty record. It panics if id is not positive.
func NewPatron(id int64, name, email string, tier Tier, joined time.Time) *Patron {
	mustID("patron", id)
	if tier == "" {
		tier = TierStandard
	}
	return &Patron{id: id, name: name, email: email, tier: tier, joined: joined}
}

func (p *Patron) ID() int64         { return p.id }
func (p *Patron) Name() string      { return p.name }
func (p *Patron) Email() string     { return p.email }
func (p *Patron) Tier() Tier        { return p.tier }
func (p *Patron) Joined() time.Time { return p.joined }

// MaxCheckouts is the tier limit for this patron.
func (p *Patron) MaxCheckouts() int { return p.tier.MaxCheckouts() }

func (p *Patron) DisplayInfo() string {
	return fmt.Sprintf("Patron: %s (ID: %d) - Membership: %s", p.name, p.id, p.tier)
}

// CanCheckout reports whether the patron is below the tier limit.
func (p *Patron) CanCheckout() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.canCheckoutLocked()
}

func (p *Patron) canCheckoutLocked() bool {
	return len(p.checkedOut) < p.tier.MaxCheckouts()
}

// CheckedOut returns the ids of items currently held.
func (p *Patron) CheckedOut() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.checkedOut)
}

// Fines is the accumulated fine balance.
func (p *Patron) Fines() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fines
}

// History returns a copy of the borrowing history.
func (p *Patron) History() []BorrowEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.history)
}

// CheckoutItem records item against the patron if the tier limit allows it.
// It does not touch the item itself; Catalog.ProcessCheckout pairs the two.
func (p *Patron) CheckoutItem(item *Item, now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkoutItemLocked(item, ulidGen{}.New(now), now)
}

func (p *Patron) checkoutItemLocked(item *Item, loanID string, now time.Time) bool {
	if !p.canCheckoutLocked() {
		return false
	}
	p.checkedOut = append(p.checkedOut, item.ID())
	p.history = append(p.history, BorrowEntry{
		LoanID:       loanID,
		ItemID:       item.ID(),
		Title:        item.Title(),
		CheckoutDate: now,
		DueDate:      dueDate(now, item.CheckoutPeriod()),
	})
	return true
}

// rollbackCheckoutLocked undoes the last checkoutItemLocked for loanID.
func (p *Patron) rollbackCheckoutLocked(itemID int64, loanID string) {
	if i := slices.Index(p.checkedOut, itemID); i >= 0 {
		p.checkedOut = slices.Delete(p.checkedOut, i, i+1)
	}
	p.history = slices.DeleteFunc(p.history, func(e BorrowEntry) bool { return e.LoanID == loanID })
}

// returnItemLocked drops itemID from the checked-out set and closes its loan.
func (p *Patron) returnItemLocked(itemID int64, now time.Time) {
	if i := slices.Index(p.checkedOut, itemID); i >= 0 {
		p.checkedOut = slices.Delete(p.checkedOut, i, i+1)
	}
	for i := len(p.history) - 1; i >= 0; i-- {
		if p.history[i].ItemID == itemID && !p.history[i].Returned() {
			p.history[i].ReturnDate = now
			break
		}
	}
}

func (p *Patron) addFineLocked(amount float64) {
	if amount > 0 {
		p.fines += amount
	}
}

// AddNotification appends a notification to the inbox. Ids come from a
// per-patron counter, so they stay unique even if notifications are removed.
func (p *Patron) AddNotification(message string, kind NotificationKind, now time.Time) Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addNotificationLocked(message, kind, now)
}

func (p *Patron) addNotificationLocked(message string, kind NotificationKind, now time.Time) Notification {
	p.lastNotificationID++
	n := Notification{
		ID:        p.lastNotificationID,
		PatronID:  p.id,
		Message:   message,
		Kind:      kind,
		Timestamp: now,
	}
	p.notifications = append(p.notifications, n)
	return n
}

// Notifications returns the inbox, optionally only unread entries.
func (p *Patron) Notifications(unreadOnly bool) []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Notification, 0, len(p.notifications))
	for _, n := range p.notifications {
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out
}

// MarkNotificationRead flips the read flag, reporting whether id exists.
func (p *Patron) MarkNotificationRead(id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.notifications {
		if p.notifications[i].ID == id {
			p.notifications[i].Read = true
			return true
		}
	}
	return false
}

// Info returns a consistent read-only view of the patron.
func (p *Patron) Info() PatronInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	unread := 0
	for _, n := range p.notifications {
		if !n.Read {
			unread++
		}
	}
	return PatronInfo{
		ID:              p.id,
		Name:            p.name,
		Email:           p.email,
		MembershipLevel: p.tier,
		MaxCheckouts:    p.tier.MaxCheckouts(),
		CheckedOut:      slices.Clone(p.checkedOut),
		Fines:           p.fines,
		Unread:          unread,
	}
}

// notifiedTodayLocked reports whether a notification of kind mentioning marker was
// created on the same calendar day as now. Days are UTC days, since stored
// timestamps come back from SQLite in UTC.
func (p *Patron) notifiedTodayLocked(kind NotificationKind, marker string, now time.Time) bool {
	y, m, d := now.UTC().Date()
	for i := len(p.notifications) - 1; i >= 0; i-- {
		n := p.notifications[i]
		ny, nm, nd := n.Timestamp.UTC().Date()
		if ny != y || nm != m || nd != d {
			continue
		}
		if n.Kind == kind && containsFold(n.Message, marker) {
			return true
		}
	}
	return false
}
