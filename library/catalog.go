package library

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// NotificationSink receives every notification the catalog creates, for
// out-of-band delivery. The catalog only stores and forwards records.
type NotificationSink interface {
	Publish(n Notification) error
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(clock Clock) Option {
	return func(c *Catalog) { c.clock = clock }
}

// WithLogger sets the logger used for transitions and warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.log = l }
}

// WithNotificationSink forwards created notifications to sink.
func WithNotificationSink(sink NotificationSink) Option {
	return func(c *Catalog) { c.sink = sink }
}

// Catalog owns every item, patron and librarian and orchestrates loans.
//
// Lock order: the catalog lock (read for circulation, write for add/remove),
// then a patron's lock, then an item's lock. Operations never hold two item
// or two patron locks at once.
type Catalog struct {
	mu          sync.RWMutex
	items       map[int64]*Item
	itemOrder   []int64
	patrons     map[int64]*Patron
	patronOrder []int64
	staff       map[int64]*Librarian
	staffOrder  []int64

	nextItemID   int64
	nextPatronID int64
	nextStaffID  int64

	clock Clock
	ids   IDGen
	sink  NotificationSink
	log   *slog.Logger
}

// NewCatalog returns an empty catalog.
func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{
		items:        make(map[int64]*Item),
		patrons:      make(map[int64]*Patron),
		staff:        make(map[int64]*Librarian),
		nextItemID:   1,
		nextPatronID: 1,
		nextStaffID:  1,
		clock:        SystemClock,
		ids:          ulidGen{},
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now reads the catalog clock.
func (c *Catalog) Now() time.Time { return c.clock.Now() }

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

// AddItem inserts item, reporting false if its id is already present.
func (c *Catalog) AddItem(item *Item) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[item.ID()]; ok {
		return false
	}
	c.items[item.ID()] = item
	c.itemOrder = append(c.itemOrder, item.ID())
	if item.ID() >= c.nextItemID {
		c.nextItemID = item.ID() + 1
	}
	return true
}

// CreateItem allocates the next free id and adds a new item.
func (c *Catalog) CreateItem(title, category string, media Media) *Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.items[c.nextItemID] != nil {
		c.nextItemID++
	}
	item := NewItem(c.nextItemID, title, category, media)
	item.added = c.clock.Now()
	c.items[item.ID()] = item
	c.itemOrder = append(c.itemOrder, item.ID())
	c.nextItemID++
	return item
}

// RemoveItem deletes an item that is not on loan.
func (c *Catalog) RemoveItem(id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[id]
	if !ok {
		return itemNotFound(id)
	}
	if item.Status() == StatusCheckedOut {
		return fmt.Errorf("%w: %d", ErrItemCheckedOut, id)
	}
	delete(c.items, id)
	c.itemOrder = slices.DeleteFunc(c.itemOrder, func(v int64) bool { return v == id })
	return nil
}

// NextItemID is the id CreateItem would allocate next.
func (c *Catalog) NextItemID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id := c.nextItemID
	for c.items[id] != nil {
		id++
	}
	return id
}

// Item looks up an item by id.
func (c *Catalog) Item(id int64) (*Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	return item, ok
}

// Items returns every item in insertion order.
func (c *Catalog) Items() []*Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.itemsLocked()
}

func (c *Catalog) itemsLocked() []*Item {
	out := make([]*Item, 0, len(c.itemOrder))
	for _, id := range c.itemOrder {
		out = append(out, c.items[id])
	}
	return out
}

// SetItemStatus moves an item that is not on loan to Available, Reserved,
// Damaged or Lost.
func (c *Catalog) SetItemStatus(id int64, st Status) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	if !ok {
		return itemNotFound(id)
	}
	item.mu.Lock()
	defer item.mu.Unlock()
	if err := item.setStatusLocked(st); err != nil {
		return fmt.Errorf("set item %d to %q: %w", id, st, err)
	}
	c.log.Debug("item status changed", "item_id", id, "status", st)
	return nil
}

// ---------------------------------------------------------------------------
// People
// ---------------------------------------------------------------------------

// RegisterPatron creates a patron with the next free id.
func (c *Catalog) RegisterPatron(name, email string, tier Tier) *Patron {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.patrons[c.nextPatronID] != nil {
		c.nextPatronID++
	}
	p := NewPatron(c.nextPatronID, name, email, tier, c.clock.Now())
	c.patrons[p.ID()] = p
	c.patronOrder = append(c.patronOrder, p.ID())
	c.nextPatronID++
	return p
}

// AddPatron inserts an existing patron, reporting false if the id is taken.
func (c *Catalog) AddPatron(p *Patron) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.patrons[p.ID()]; ok {
		return false
	}
	c.patrons[p.ID()] = p
	c.patronOrder = append(c.patronOrder, p.ID())
	if p.ID() >= c.nextPatronID {
		c.nextPatronID = p.ID() + 1
	}
	return true
}

// Patron looks up a patron by id.
func (c *Catalog) Patron(id int64) (*Patron, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.patrons[id]
	return p, ok
}

// Patrons returns every patron in registration order.
func (c *Catalog) Patrons() []*Patron {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Patron, 0, len(c.patronOrder))
	for _, id := range c.patronOrder {
		out = append(out, c.patrons[id])
	}
	return out
}

// AddLibrarian registers a staff member with the next free id.
func (c *Catalog) AddLibrarian(name, email, department string) *Librarian {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.staff[c.nextStaffID] != nil {
		c.nextStaffID++
	}
	l := &Librarian{
		ID:         c.nextStaffID,
		Name:       name,
		Email:      email,
		Department: department,
		Joined:     c.clock.Now(),
	}
	c.addLibrarianLocked(l)
	return l
}

func (c *Catalog) addLibrarianLocked(l *Librarian) bool {
	if _, ok := c.staff[l.ID]; ok {
		return false
	}
	l.catalog = c
	c.staff[l.ID] = l
	c.staffOrder = append(c.staffOrder, l.ID)
	if l.ID >= c.nextStaffID {
		c.nextStaffID = l.ID + 1
	}
	return true
}

// Librarian looks up a staff member by id.
func (c *Catalog) Librarian(id int64) (*Librarian, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.staff[id]
	return l, ok
}

// Librarians returns every staff member in registration order.
func (c *Catalog) Librarians() []*Librarian {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Librarian, 0, len(c.staffOrder))
	for _, id := range c.staffOrder {
		out = append(out, c.staff[id])
	}
	return out
}

// ---------------------------------------------------------------------------
// Circulation
// ---------------------------------------------------------------------------

// ProcessCheckout lends itemID to patronID as one transaction. The patron's
// tier limit is checked before the item's availability; if the item cannot
// be lent the patron-side record is rolled back.
func (c *Catalog) ProcessCheckout(patronID, itemID int64) (CheckoutEntry, error) {
	now := c.clock.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.patrons[patronID]
	if !ok {
		return CheckoutEntry{}, patronNotFound(patronID)
	}
	item, ok := c.items[itemID]
	if !ok {
		return CheckoutEntry{}, itemNotFound(itemID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	item.mu.Lock()
	defer item.mu.Unlock()

	loanID := c.ids.New(now)
	if !p.checkoutItemLocked(item, loanID, now) {
		return CheckoutEntry{}, fmt.Errorf("%w: patron %d holds %d of %d",
			ErrCheckoutLimit, patronID, len(p.checkedOut), p.MaxCheckouts())
	}
	if !item.checkoutLocked(patronID, loanID, now) {
		p.rollbackCheckoutLocked(itemID, loanID)
		return CheckoutEntry{}, fmt.Errorf("%w: item %d is %s", ErrItemUnavailable, itemID, item.status)
	}

	entry := item.history[len(item.history)-1]
	c.log.Debug("item checked out", "item_id", itemID, "patron_id", patronID, "due", entry.DueDate)
	return entry, nil
}

// ProcessCheckin returns itemID. The fine is added to the holder's balance
// together with a FineApplied notification, and the next patron in the
// reservation queue receives a ReservationReady notification.
func (c *Catalog) ProcessCheckin(itemID int64, condition string) (CheckinResult, error) {
	now := c.clock.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[itemID]
	if !ok {
		return CheckinResult{}, itemNotFound(itemID)
	}
	if condition == "" {
		condition = "Good"
	}

	var (
		res   CheckinResult
		notes []Notification
	)
	for {
		holderID, _ := item.Holder()
		holder := c.patrons[holderID]
		if holder != nil {
			holder.mu.Lock()
		}
		item.mu.Lock()
		if item.holder != holderID {
			// Lent or returned between the peek and the locks.
			item.mu.Unlock()
			if holder != nil {
				holder.mu.Unlock()
			}
			continue
		}

		res = item.checkinLocked(condition, now)
		if holder != nil {
			holder.returnItemLocked(itemID, now)
			if res.Fine > 0 {
				holder.addFineLocked(res.Fine)
				notes = append(notes, holder.addNotificationLocked(
					fmt.Sprintf("Fine of $%.2f applied: %q returned %d day(s) late %s",
						res.Fine, item.title, res.DaysOverdue, itemMarker(itemID)),
					NotifyFineApplied, now))
			}
		}
		item.mu.Unlock()
		if holder != nil {
			holder.mu.Unlock()
		}
		break
	}

	if res.NextPatron != 0 {
		if next, ok := c.patrons[res.NextPatron]; ok {
			notes = append(notes, next.AddNotification(
				fmt.Sprintf("%q is now available for you %s", item.title, itemMarker(itemID)),
				NotifyReservationReady, now))
		}
	}

	c.log.Debug("item checked in", "item_id", itemID, "patron_id", res.PatronID,
		"fine", res.Fine, "next_patron", res.NextPatron)
	c.publish(notes)
	return res, nil
}

// Reserve queues patronID for itemID. It reports false if the patron was
// already queued. The current holder cannot queue for their own item.
func (c *Catalog) Reserve(itemID, patronID int64) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.patrons[patronID]; !ok {
		return false, patronNotFound(patronID)
	}
	item, ok := c.items[itemID]
	if !ok {
		return false, itemNotFound(itemID)
	}

	item.mu.Lock()
	defer item.mu.Unlock()
	if item.holder == patronID {
		return false, fmt.Errorf("%w: patron %d already holds item %d", ErrItemUnavailable, patronID, itemID)
	}
	return item.reserveLocked(patronID), nil
}

// CancelReservation removes patronID from the queue of itemID.
func (c *Catalog) CancelReservation(itemID, patronID int64) error {
	item, ok := c.Item(itemID)
	if !ok {
		return itemNotFound(itemID)
	}
	if !item.CancelReservation(patronID) {
		return fmt.Errorf("%w: patron %d on item %d", ErrNoReservation, patronID, itemID)
	}
	return nil
}

// Reservations returns the queue of itemID, head first.
func (c *Catalog) Reservations(itemID int64) ([]int64, error) {
	item, ok := c.Item(itemID)
	if !ok {
		return nil, itemNotFound(itemID)
	}
	return item.ReservationQueue(), nil
}

// NotifyOverdue creates an Overdue notification for the holder of every
// overdue item, at most once per loan per calendar day.
func (c *Catalog) NotifyOverdue() []Notification {
	now := c.clock.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	var notes []Notification
	for _, item := range c.itemsLocked() {
		item.mu.Lock()
		days, fine, overdue := item.overdueLocked(now)
		holderID, title, due := item.holder, item.title, item.due
		item.mu.Unlock()
		if !overdue {
			continue
		}
		p, ok := c.patrons[holderID]
		if !ok {
			continue
		}
		marker := itemMarker(item.ID())
		p.mu.Lock()
		if !p.notifiedTodayLocked(NotifyOverdue, marker, now) {
			notes = append(notes, p.addNotificationLocked(
				fmt.Sprintf("%q was due %s and is %d day(s) overdue; estimated fine $%.2f %s",
					title, due.Format(time.DateOnly), days, fine, marker),
				NotifyOverdue, now))
		}
		p.mu.Unlock()
	}
	c.publish(notes)
	return notes
}

// Notify sends a General notification to a patron.
func (c *Catalog) Notify(patronID int64, message string) (Notification, error) {
	p, ok := c.Patron(patronID)
	if !ok {
		return Notification{}, patronNotFound(patronID)
	}
	n := p.AddNotification(message, NotifyGeneral, c.clock.Now())
	c.publish([]Notification{n})
	return n, nil
}

// Notifications returns a patron's inbox, optionally only unread entries.
func (c *Catalog) Notifications(patronID int64, unreadOnly bool) ([]Notification, error) {
	p, ok := c.Patron(patronID)
	if !ok {
		return nil, patronNotFound(patronID)
	}
	return p.Notifications(unreadOnly), nil
}

// MarkNotificationRead flags a patron's notification as read.
func (c *Catalog) MarkNotificationRead(patronID, notificationID int64) error {
	p, ok := c.Patron(patronID)
	if !ok {
		return patronNotFound(patronID)
	}
	if !p.MarkNotificationRead(notificationID) {
		return fmt.Errorf("notification %d for patron %d: %w", notificationID, patronID, ErrNotificationNotFound)
	}
	return nil
}

func (c *Catalog) publish(notes []Notification) {
	if c.sink == nil {
		return
	}
	for _, n := range notes {
		if err := c.sink.Publish(n); err != nil {
			c.log.Warn("notification not forwarded", "patron_id", n.PatronID, "kind", n.Kind, "err", err)
		}
	}
}

func itemMarker(id int64) string { return fmt.Sprintf("(item #%d)", id) }
