package library

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrMalformedRecord marks a persisted record that was skipped on import.
var ErrMalformedRecord = errors.New("malformed record")

// Record is the persisted form of a catalog. Items carry a "type"
// discriminator and the fields of their media variant.
type Record struct {
	Items      []ItemRecord      `json:"items"`
	Patrons    []PatronRecord    `json:"patrons"`
	Librarians []LibrarianRecord `json:"librarians"`
	NextIDs    NextIDs           `json:"next_ids"`
}

type NextIDs struct {
	Item   int64 `json:"item"`
	Patron int64 `json:"patron"`
	Staff  int64 `json:"staff"`
}

type ItemRecord struct {
	ID               int64           `json:"item_id" db:"id"`
	Type             string          `json:"type" db:"type"`
	Title            string          `json:"title" db:"title"`
	Category         string          `json:"category" db:"category"`
	Status           string          `json:"status" db:"status"`
	CheckoutCount    int             `json:"checkout_count" db:"checkout_count"`
	CurrentPatron    int64           `json:"current_patron,omitempty" db:"current_patron"`
	DueDate          *time.Time      `json:"due_date,omitempty" db:"due_date"`
	AddedDate        time.Time       `json:"added_date" db:"added_date"`
	ReservationQueue []int64         `json:"reservation_queue,omitempty" db:"-"`
	History          []CheckoutEntry `json:"checkout_history,omitempty" db:"-"`

	Author          string `json:"author,omitempty" db:"author"`
	ISBN            string `json:"isbn,omitempty" db:"isbn"`
	Edition         int    `json:"edition,omitempty" db:"edition"`
	PageCount       int    `json:"page_count,omitempty" db:"page_count"`
	Publisher       string `json:"publisher,omitempty" db:"publisher"`
	PublicationYear int    `json:"publication_year,omitempty" db:"publication_year"`

	Director    string `json:"director,omitempty" db:"director"`
	Runtime     int    `json:"runtime,omitempty" db:"runtime"`
	Rating      string `json:"rating,omitempty" db:"rating"`
	ReleaseYear int    `json:"release_year,omitempty" db:"release_year"`

	Artist   string `json:"artist,omitempty" db:"artist"`
	Tracks   int    `json:"tracks,omitempty" db:"tracks"`
	Duration int    `json:"duration,omitempty" db:"duration"`
}

type PatronRecord struct {
	ID                 int64          `json:"patron_id" db:"id"`
	Name               string         `json:"name" db:"name"`
	Email              string         `json:"email" db:"email"`
	MembershipLevel    string         `json:"membership_level" db:"membership_level"`
	JoinDate           time.Time      `json:"join_date" db:"join_date"`
	Fines              float64        `json:"fines" db:"fines"`
	LastNotificationID int64          `json:"last_notification_id,omitempty" db:"last_notification_id"`
	CheckedOut         []int64        `json:"checked_out_items,omitempty" db:"-"`
	History            []BorrowEntry  `json:"borrowing_history,omitempty" db:"-"`
	Notifications      []Notification `json:"notifications,omitempty" db:"-"`
}

type LibrarianRecord struct {
	ID         int64     `json:"staff_id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	Department string    `json:"department" db:"department"`
	JoinDate   time.Time `json:"join_date" db:"join_date"`
}

// ExportCatalog captures the catalog as a Record. Each entity is read under
// its own lock while the catalog read lock keeps membership fixed.
func ExportCatalog(c *Catalog) Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec := Record{
		Items:      make([]ItemRecord, 0, len(c.itemOrder)),
		Patrons:    make([]PatronRecord, 0, len(c.patronOrder)),
		Librarians: make([]LibrarianRecord, 0, len(c.staffOrder)),
		NextIDs:    NextIDs{Item: c.nextItemID, Patron: c.nextPatronID, Staff: c.nextStaffID},
	}
	for _, id := range c.itemOrder {
		rec.Items = append(rec.Items, exportItem(c.items[id]))
	}
	for _, id := range c.patronOrder {
		rec.Patrons = append(rec.Patrons, exportPatron(c.patrons[id]))
	}
	for _, id := range c.staffOrder {
		l := c.staff[id]
		rec.Librarians = append(rec.Librarians, LibrarianRecord{
			ID: l.ID, Name: l.Name, Email: l.Email, Department: l.Department, JoinDate: l.Joined,
		})
	}
	return rec
}

func exportItem(it *Item) ItemRecord {
	it.mu.Lock()
	defer it.mu.Unlock()

	r := ItemRecord{
		ID:               it.id,
		Type:             string(it.media.Kind()),
		Title:            it.title,
		Category:         it.category,
		Status:           string(it.status),
		CheckoutCount:    it.checkoutCount,
		CurrentPatron:    it.holder,
		AddedDate:        it.added,
		ReservationQueue: slices.Clone(it.queue),
		History:          slices.Clone(it.history),
	}
	if !it.due.IsZero() {
		due := it.due
		r.DueDate = &due
	}
	switch m := it.media.(type) {
	case Book:
		r.Author, r.ISBN, r.Edition = m.Author, m.ISBN, m.Edition
		r.PageCount, r.Publisher, r.PublicationYear = m.PageCount, m.Publisher, m.PublicationYear
	case DVD:
		r.Director, r.Runtime, r.Rating, r.ReleaseYear = m.Director, m.Runtime, m.Rating, m.ReleaseYear
	case CD:
		r.Artist, r.Tracks, r.Duration = m.Artist, m.Tracks, m.Duration
	}
	return r
}

func exportPatron(p *Patron) PatronRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PatronRecord{
		ID:                 p.id,
		Name:               p.name,
		Email:              p.email,
		MembershipLevel:    string(p.tier),
		JoinDate:           p.joined,
		Fines:              p.fines,
		LastNotificationID: p.lastNotificationID,
		CheckedOut:         slices.Clone(p.checkedOut),
		History:            slices.Clone(p.history),
		Notifications:      slices.Clone(p.notifications),
	}
}

// mediaFromRecord rebuilds the media variant named by r.Type. Unknown or
// missing kinds are rejected rather than defaulted to Book.
func mediaFromRecord(r ItemRecord) (Media, error) {
	kind, err := ParseKind(r.Type)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindDVD:
		return DVD{Director: r.Director, Runtime: r.Runtime, Rating: r.Rating, ReleaseYear: r.ReleaseYear}, nil
	case KindCD:
		return CD{Artist: r.Artist, Tracks: r.Tracks, Duration: r.Duration}, nil
	default:
		return Book{
			Author: r.Author, ISBN: r.ISBN, Edition: r.Edition,
			PageCount: r.PageCount, Publisher: r.Publisher, PublicationYear: r.PublicationYear,
		}, nil
	}
}

// ImportCatalog rebuilds a catalog from rec. Malformed records are skipped
// and reported in the returned warnings; the import itself never fails.
// Patron checked-out sets are derived from item holders so that every loan
// references an existing patron and item.
func ImportCatalog(rec Record, opts ...Option) (*Catalog, []error) {
	c := NewCatalog(opts...)
	var warnings []error
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Errorf(format, args...))
	}

	for _, pr := range rec.Patrons {
		if pr.ID <= 0 {
			warn("patron %d: %w: id must be positive", pr.ID, ErrMalformedRecord)
			continue
		}
		if _, dup := c.patrons[pr.ID]; dup {
			warn("patron %d: %w: duplicate id", pr.ID, ErrMalformedRecord)
			continue
		}
		p := NewPatron(pr.ID, pr.Name, pr.Email, Tier(pr.MembershipLevel), pr.JoinDate)
		p.fines = pr.Fines
		p.history = slices.Clone(pr.History)
		p.lastNotificationID = pr.LastNotificationID
		seen := make(map[int64]bool, len(pr.Notifications))
		for _, n := range pr.Notifications {
			if n.ID <= 0 || seen[n.ID] {
				warn("patron %d: notification %d: %w: duplicate or non-positive id", pr.ID, n.ID, ErrMalformedRecord)
				continue
			}
			seen[n.ID] = true
			n.PatronID = pr.ID
			p.notifications = append(p.notifications, n)
			p.lastNotificationID = max(p.lastNotificationID, n.ID)
		}
		c.AddPatron(p)
	}

	for _, ir := range rec.Items {
		item, err := itemFromRecord(ir)
		if err != nil {
			warn("item %d: %w: %w", ir.ID, ErrMalformedRecord, err)
			continue
		}
		if _, dup := c.items[item.id]; dup {
			warn("item %d: %w: duplicate id", ir.ID, ErrMalformedRecord)
			continue
		}
		if item.status == StatusCheckedOut {
			holder, ok := c.patrons[item.holder]
			switch {
			case !ok:
				warn("item %d: holder %d unknown, marked available", item.id, item.holder)
				item.status, item.holder, item.due = StatusAvailable, 0, time.Time{}
			case item.due.IsZero():
				warn("item %d: loan without due date, marked available", item.id)
				item.status, item.holder, item.due = StatusAvailable, 0, time.Time{}
			default:
				holder.checkedOut = append(holder.checkedOut, item.id)
				if len(holder.checkedOut) > holder.MaxCheckouts() {
					warn("patron %d: holds %d items, above the %s limit", holder.id, len(holder.checkedOut), holder.tier)
				}
			}
		}
		item.queue = slices.DeleteFunc(item.queue, func(id int64) bool {
			_, known := c.patrons[id]
			return !known || id == item.holder
		})
		c.AddItem(item)
	}

	for _, lr := range rec.Librarians {
		if lr.ID <= 0 {
			warn("librarian %d: %w: id must be positive", lr.ID, ErrMalformedRecord)
			continue
		}
		l := &Librarian{ID: lr.ID, Name: lr.Name, Email: lr.Email, Department: lr.Department, Joined: lr.JoinDate}
		if !c.addLibrarianLocked(l) {
			warn("librarian %d: %w: duplicate id", lr.ID, ErrMalformedRecord)
		}
	}

	c.nextItemID = max(c.nextItemID, rec.NextIDs.Item)
	c.nextPatronID = max(c.nextPatronID, rec.NextIDs.Patron)
	c.nextStaffID = max(c.nextStaffID, rec.NextIDs.Staff)

	for _, w := range warnings {
		c.log.Warn("skipped or repaired record on import", "err", w)
	}
	return c, warnings
}

func itemFromRecord(r ItemRecord) (*Item, error) {
	if r.ID <= 0 {
		return nil, errors.New("id must be positive")
	}
	media, err := mediaFromRecord(r)
	if err != nil {
		return nil, err
	}
	status := StatusAvailable
	if r.Status != "" {
		st, ok := ParseStatus(r.Status)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrInvalidStatus, r.Status)
		}
		status = st
	}

	it := NewItem(r.ID, r.Title, r.Category, media)
	it.status = status
	it.checkoutCount = max(r.CheckoutCount, 0)
	if !r.AddedDate.IsZero() {
		it.added = r.AddedDate
	}
	if status == StatusCheckedOut {
		it.holder = r.CurrentPatron
		if r.DueDate != nil {
			it.due = *r.DueDate
		}
	}
	for _, id := range r.ReservationQueue {
		it.reserveLocked(id)
	}
	it.history = slices.Clone(r.History)
	return it, nil
}
