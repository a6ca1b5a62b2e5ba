package library

import (
	"slices"
	"sync"
	"time"
)

// Item is a single circulating unit. Its loan state is guarded by mu:
// holder is set iff status is StatusCheckedOut, due is set iff holder is set,
// and a patron id appears at most once in queue.
type Item struct {
	id       int64
	title    string
	category string
	media    Media
	added    time.Time

	mu            sync.Mutex
	status        Status
	holder        int64
	due           time.Time
	queue         []int64
	checkoutCount int
	history       []CheckoutEntry
}

// NewItem creates an available item. It panics if id is not positive or media is nil.
func NewItem(id int64, title, category string, media Media) *Item {
	mustID("item", id)
	if media == nil {
		panic("library: item media must not be nil")
	}
	if category == "" {
		category = DefaultCategory(media.Kind())
	}
	return &Item{
		id:       id,
		title:    title,
		category: category,
		media:    media,
		added:    time.Now(),
		status:   StatusAvailable,
	}
}

func (it *Item) ID() int64        { return it.id }
func (it *Item) Title() string    { return it.title }
func (it *Item) Category() string { return it.category }
func (it *Item) Media() Media     { return it.media }
func (it *Item) Kind() Kind       { return it.media.Kind() }

// CheckoutPeriod is the loan length in days for this item's kind.
func (it *Item) CheckoutPeriod() int { return it.media.CheckoutPeriod() }

// CalculateFine prices daysOverdue at this item's kind rate.
func (it *Item) CalculateFine(daysOverdue int) float64 {
	return it.media.CalculateFine(daysOverdue)
}

// DisplayInfo renders a one-line description.
func (it *Item) DisplayInfo() string { return it.media.DisplayInfo(it.title) }

// Status returns the current availability state.
func (it *Item) Status() Status {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.status
}

// Holder returns the patron holding the item, if any.
func (it *Item) Holder() (int64, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.holder, it.holder != 0
}

// DueDate returns the due date of the current loan, if any.
func (it *Item) DueDate() (time.Time, bool) {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.due, !it.due.IsZero()
}

// CheckoutCount is the number of successful checkouts over the item's life.
func (it *Item) CheckoutCount() int {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.checkoutCount
}

// ReservationQueue returns a copy of the waiting patrons in FIFO order.
func (it *Item) ReservationQueue() []int64 {
	it.mu.Lock()
	defer it.mu.Unlock()
	return slices.Clone(it.queue)
}

// History returns a copy of the checkout log.
func (it *Item) History() []CheckoutEntry {
	it.mu.Lock()
	defer it.mu.Unlock()
	return slices.Clone(it.history)
}

// Info returns a consistent read-only view of the item.
func (it *Item) Info() ItemInfo {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.infoLocked()
}

func (it *Item) infoLocked() ItemInfo {
	info := ItemInfo{
		ID:               it.id,
		Title:            it.title,
		Category:         it.category,
		Type:             it.media.Kind(),
		Status:           it.status,
		CheckoutCount:    it.checkoutCount,
		CurrentPatron:    it.holder,
		ReservationCount: len(it.queue),
	}
	if a, ok := attributionOf(it.media); ok {
		info.Attribution = a
	}
	if !it.due.IsZero() {
		due := it.due
		info.DueDate = &due
	}
	return info
}

// Checkout lends the item to patronID. It only succeeds from StatusAvailable;
// any other state returns false and leaves the item untouched.
func (it *Item) Checkout(patronID int64, now time.Time) bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.checkoutLocked(patronID, ulidGen{}.New(now), now)
}

func (it *Item) checkoutLocked(patronID int64, loanID string, now time.Time) bool {
	if it.status != StatusAvailable {
		return false
	}
	it.status = StatusCheckedOut
	it.holder = patronID
	it.checkoutCount++
	it.due = dueDate(now, it.media.CheckoutPeriod())
	it.history = append(it.history, CheckoutEntry{
		LoanID:       loanID,
		PatronID:     patronID,
		CheckoutDate: now,
		DueDate:      it.due,
	})
	// A queued patron who gets the item no longer waits for it.
	it.queue = slices.DeleteFunc(it.queue, func(id int64) bool { return id == patronID })
	return true
}

// CheckinResult describes what a checkin did.
type CheckinResult struct {
	ItemID      int64   `json:"item_id"`
	PatronID    int64   `json:"patron_id,omitempty"`
	DaysOverdue int     `json:"days_overdue"`
	Fine        float64 `json:"fine"`
	NextPatron  int64   `json:"next_patron,omitempty"`
}

// Checkin returns the item to StatusAvailable whatever its current state.
// The fine is computed from the due date as of now; it is zero when the item
// was not overdue or not on loan. If patrons are waiting, the head of the
// queue is popped and reported in NextPatron; the item is not lent to them.
func (it *Item) Checkin(condition string, now time.Time) CheckinResult {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.checkinLocked(condition, now)
}

func (it *Item) checkinLocked(condition string, now time.Time) CheckinResult {
	res := CheckinResult{ItemID: it.id, PatronID: it.holder}
	res.DaysOverdue = overdueDays(it.due, now)
	res.Fine = it.media.CalculateFine(res.DaysOverdue)

	if it.holder != 0 {
		for i := len(it.history) - 1; i >= 0; i-- {
			e := &it.history[i]
			if e.PatronID == it.holder && e.ReturnDate.IsZero() {
				e.ReturnDate = now
				e.Condition = condition
				break
			}
		}
	}

	it.status = StatusAvailable
	it.holder = 0
	it.due = time.Time{}

	if len(it.queue) > 0 {
		res.NextPatron = it.queue[0]
		it.queue = slices.Delete(it.queue, 0, 1)
	}
	return res
}

// Reserve appends patronID to the reservation queue. It reports false when the
// patron is already queued. The status is not changed.
func (it *Item) Reserve(patronID int64) bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.reserveLocked(patronID)
}

func (it *Item) reserveLocked(patronID int64) bool {
	if slices.Contains(it.queue, patronID) {
		return false
	}
	it.queue = append(it.queue, patronID)
	return true
}

// CancelReservation removes patronID from the queue, reporting whether it was there.
func (it *Item) CancelReservation(patronID int64) bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	n := len(it.queue)
	it.queue = slices.DeleteFunc(it.queue, func(id int64) bool { return id == patronID })
	return len(it.queue) != n
}

// setStatusLocked moves an item that is not on loan between the shelf states.
func (it *Item) setStatusLocked(st Status) error {
	if it.status == StatusCheckedOut {
		return ErrItemCheckedOut
	}
	if st == StatusCheckedOut || !validStatuses[st] {
		return ErrInvalidStatus
	}
	it.status = st
	return nil
}

// overdueLocked reports days overdue and the fine as of now.
func (it *Item) overdueLocked(now time.Time) (int, float64, bool) {
	if it.holder == 0 || it.due.IsZero() || !now.After(it.due) {
		return 0, 0, false
	}
	days := overdueDays(it.due, now)
	return days, it.media.CalculateFine(days), true
}
