package library

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// LibraryManager is a thin façade over a Catalog and its Database, keeping
// CLI and HTTP code simple. Every successful mutation is written through to
// the database; if that write fails the in-memory change stands and the
// returned error reports the persistence failure.
type LibraryManager struct {
	db      *Database
	catalog atomic.Pointer[Catalog]
	opts    []Option
	saveMu  sync.Mutex
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath and
// loads the catalog stored there. Records that fail validation are skipped
// and returned as warnings.
func NewLibraryManager(ctx context.Context, dbPath string, opts ...Option) (*LibraryManager, []error, error) {
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, nil, err
	}
	rec, err := db.Load(ctx)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	c, warnings := ImportCatalog(rec, opts...)
	lm := &LibraryManager{db: db, opts: opts}
	lm.catalog.Store(c)
	return lm, warnings, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// Catalog returns the live catalog.
func (lm *LibraryManager) Catalog() *Catalog { return lm.catalog.Load() }

// Persist writes the current catalog to the database.
func (lm *LibraryManager) Persist(ctx context.Context) error {
	lm.saveMu.Lock()
	defer lm.saveMu.Unlock()
	if err := lm.db.Save(ctx, ExportCatalog(lm.Catalog())); err != nil {
		return fmt.Errorf("persist catalog: %w", err)
	}
	return nil
}

// ------------------ Item helpers ------------------

func (lm *LibraryManager) AddItem(ctx context.Context, title, category string, media Media) (*Item, error) {
	item := lm.Catalog().CreateItem(title, category, media)
	return item, lm.Persist(ctx)
}

func (lm *LibraryManager) RemoveItem(ctx context.Context, id int64) error {
	if err := lm.Catalog().RemoveItem(id); err != nil {
		return err
	}
	return lm.Persist(ctx)
}

func (lm *LibraryManager) SetItemStatus(ctx context.Context, id int64, st Status) error {
	if err := lm.Catalog().SetItemStatus(id, st); err != nil {
		return err
	}
	return lm.Persist(ctx)
}

func (lm *LibraryManager) GetItem(id int64) (ItemInfo, error) {
	item, ok := lm.Catalog().Item(id)
	if !ok {
		return ItemInfo{}, itemNotFound(id)
	}
	return item.Info(), nil
}

func (lm *LibraryManager) ListItems() []ItemInfo { return lm.Catalog().ListItems() }

// ------------------ People helpers ------------------

func (lm *LibraryManager) RegisterPatron(ctx context.Context, name, email string, tier Tier) (*Patron, error) {
	p := lm.Catalog().RegisterPatron(name, email, tier)
	return p, lm.Persist(ctx)
}

func (lm *LibraryManager) GetPatron(id int64) (PatronInfo, error) {
	p, ok := lm.Catalog().Patron(id)
	if !ok {
		return PatronInfo{}, patronNotFound(id)
	}
	return p.Info(), nil
}

func (lm *LibraryManager) ListPatrons() []PatronInfo {
	patrons := lm.Catalog().Patrons()
	out := make([]PatronInfo, 0, len(patrons))
	for _, p := range patrons {
		out = append(out, p.Info())
	}
	return out
}

func (lm *LibraryManager) AddLibrarian(ctx context.Context, name, email, department string) (*Librarian, error) {
	l := lm.Catalog().AddLibrarian(name, email, department)
	return l, lm.Persist(ctx)
}

// ------------------ Circulation ------------------

func (lm *LibraryManager) Checkout(ctx context.Context, patronID, itemID int64) (CheckoutEntry, error) {
	entry, err := lm.Catalog().ProcessCheckout(patronID, itemID)
	if err != nil {
		return CheckoutEntry{}, err
	}
	return entry, lm.Persist(ctx)
}

// Checkin returns the item, applies any fine and reports who is next in line.
func (lm *LibraryManager) Checkin(ctx context.Context, itemID int64, condition string) (CheckinResult, error) {
	res, err := lm.Catalog().ProcessCheckin(itemID, condition)
	if err != nil {
		return CheckinResult{}, err
	}
	return res, lm.Persist(ctx)
}

// Reserve queues the patron. added is false if they were already queued.
func (lm *LibraryManager) Reserve(ctx context.Context, itemID, patronID int64) (added bool, err error) {
	added, err = lm.Catalog().Reserve(itemID, patronID)
	if err != nil || !added {
		return added, err
	}
	return added, lm.Persist(ctx)
}

func (lm *LibraryManager) CancelReservation(ctx context.Context, itemID, patronID int64) error {
	if err := lm.Catalog().CancelReservation(itemID, patronID); err != nil {
		return err
	}
	return lm.Persist(ctx)
}

func (lm *LibraryManager) Reservations(itemID int64) ([]int64, error) {
	return lm.Catalog().Reservations(itemID)
}

// ------------------ Search & reports ------------------

func (lm *LibraryManager) Search(term string, by SearchBy) []ItemInfo {
	return lm.Catalog().Search(term, by)
}

func (lm *LibraryManager) InventoryReport() InventoryReport { return lm.Catalog().InventoryReport() }

func (lm *LibraryManager) PopularItemsReport(limit int) PopularItemsReport {
	return lm.Catalog().PopularItemsReport(limit)
}

func (lm *LibraryManager) OverdueItemsReport() OverdueItemsReport {
	return lm.Catalog().OverdueItemsReport()
}

// ------------------ Notifications ------------------

func (lm *LibraryManager) Notifications(patronID int64, unreadOnly bool) ([]Notification, error) {
	return lm.Catalog().Notifications(patronID, unreadOnly)
}

func (lm *LibraryManager) Notify(ctx context.Context, patronID int64, message string) (Notification, error) {
	n, err := lm.Catalog().Notify(patronID, message)
	if err != nil {
		return Notification{}, err
	}
	return n, lm.Persist(ctx)
}

func (lm *LibraryManager) MarkNotificationRead(ctx context.Context, patronID, notificationID int64) error {
	if err := lm.Catalog().MarkNotificationRead(patronID, notificationID); err != nil {
		return err
	}
	return lm.Persist(ctx)
}

// NotifyOverdue sends today's overdue reminders and returns the new ones.
func (lm *LibraryManager) NotifyOverdue(ctx context.Context) ([]Notification, error) {
	notes := lm.Catalog().NotifyOverdue()
	if len(notes) == 0 {
		return notes, nil
	}
	return notes, lm.Persist(ctx)
}

// ------------------ Documents ------------------

// ExportFile writes the catalog as a JSON document.
func (lm *LibraryManager) ExportFile(path string) error {
	return SaveFile(path, lm.Catalog())
}

// ImportFile replaces the catalog with the JSON document at path and
// persists it. Skipped records come back as warnings; a document that
// cannot be read at all leaves the current catalog untouched.
func (lm *LibraryManager) ImportFile(ctx context.Context, path string) ([]error, error) {
	rec, warnings, err := ReadFile(path)
	if err != nil {
		return warnings, err
	}
	c, importWarnings := ImportCatalog(rec, lm.opts...)
	lm.catalog.Store(c)
	return append(warnings, importWarnings...), lm.Persist(ctx)
}

// Restore replaces the catalog with the document at path and persists it.
// A missing or unreadable document yields an empty catalog; the reason is
// among the returned warnings.
func (lm *LibraryManager) Restore(ctx context.Context, path string) ([]error, error) {
	c, warnings := LoadFile(path, lm.opts...)
	lm.catalog.Store(c)
	return warnings, lm.Persist(ctx)
}

// Empty reports whether the catalog holds no items, patrons or librarians.
func (lm *LibraryManager) Empty() bool {
	c := lm.Catalog()
	return len(c.Items()) == 0 && len(c.Patrons()) == 0 && len(c.Librarians()) == 0
}

// ------------------ Utilities ------------------

// PrettyItem formats an item for lists.
func PrettyItem(info ItemInfo) string {
	return fmt.Sprintf("%-5d %-5s %-30s %-22s %-12s %-4d", info.ID, info.Type, info.Title, info.Attribution, info.Status, info.CheckoutCount)
}
