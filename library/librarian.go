package library

import (
	"fmt"
	"time"
)

// Person is anything the catalog can describe on one line.
type Person interface {
	DisplayInfo() string
}

var (
	_ Person = (*Patron)(nil)
	_ Person = (*Librarian)(nil)
)

// Librarian is a staff member. It owns no circulation state and forwards
// every operation to the catalog it was registered with.
type Librarian struct {
	ID         int64     `json:"staff_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	Joined     time.Time `json:"join_date"`

	catalog *Catalog
}

// EmployeeID is the staff badge number, e.g. LIB0007.
func (l *Librarian) EmployeeID() string { return fmt.Sprintf("LIB%04d", l.ID) }

func (l *Librarian) DisplayInfo() string {
	return fmt.Sprintf("Librarian: %s - Department: %s (ID: %s)", l.Name, l.Department, l.EmployeeID())
}

// ProcessCheckout lends itemID to patronID.
func (l *Librarian) ProcessCheckout(patronID, itemID int64) (CheckoutEntry, error) {
	return l.catalog.ProcessCheckout(patronID, itemID)
}

// ProcessCheckin returns itemID and applies any fine to the holder.
func (l *Librarian) ProcessCheckin(itemID int64, condition string) (CheckinResult, error) {
	return l.catalog.ProcessCheckin(itemID, condition)
}

// AddItemToCatalog adds item, reporting false if its id is taken.
func (l *Librarian) AddItemToCatalog(item *Item) bool {
	return l.catalog.AddItem(item)
}

// Report names accepted by GenerateReport.
const (
	ReportInventory    = "inventory"
	ReportPopularItems = "popular_items"
	ReportOverdueItems = "overdue_items"
)

// GenerateReport returns the named report, or nil for an unknown name.
func (l *Librarian) GenerateReport(name string) any {
	switch name {
	case ReportInventory:
		return l.catalog.InventoryReport()
	case ReportPopularItems:
		return l.catalog.PopularItemsReport(DefaultPopularLimit)
	case ReportOverdueItems:
		return l.catalog.OverdueItemsReport()
	}
	return nil
}
