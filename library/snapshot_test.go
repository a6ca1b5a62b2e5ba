package library

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populated(t *testing.T) (*Catalog, *fakeClock) {
	t.Helper()
	c, clock := newTestCatalog(t)
	ada := c.RegisterPatron("Ada", "ada@example.org", TierPremium)
	bob := c.RegisterPatron("Bob", "bob@example.org", TierStudent)
	c.AddLibrarian("Lin", "lin@example.org", "Circulation")
	dune := c.CreateItem("Dune", "Fiction", NewBook("Frank Herbert", "978-0441013593"))
	heat := c.CreateItem("Heat", "", NewDVD("Michael Mann", 170))
	c.CreateItem("Kind of Blue", "Jazz", NewCD("Miles Davis", 5))

	_, err := c.ProcessCheckout(ada.ID(), dune.ID())
	require.NoError(t, err)
	_, err = c.Reserve(dune.ID(), bob.ID())
	require.NoError(t, err)
	_, err = c.ProcessCheckout(bob.ID(), heat.ID())
	require.NoError(t, err)
	clock.Advance(10 * dayDur)
	_, err = c.ProcessCheckin(heat.ID(), "Scratched")
	require.NoError(t, err)
	return c, clock
}

func TestDocumentRoundTrip(t *testing.T) {
	c, _ := populated(t)

	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, c))

	rec, warnings, err := ReadDocument(&buf)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	restored, importWarnings := ImportCatalog(rec, WithLogger(discardLogger()))
	assert.Empty(t, importWarnings)

	assert.Equal(t, c.ListItems(), restored.ListItems())
	require.Len(t, restored.Patrons(), 2)

	ada, ok := restored.Patron(1)
	require.True(t, ok)
	assert.Equal(t, []int64{1}, ada.CheckedOut())
	bob, _ := restored.Patron(2)
	assert.Equal(t, 3.00, bob.Fines())
	assert.Len(t, bob.Notifications(false), 1)

	dune, _ := restored.Item(1)
	assert.Equal(t, []int64{2}, dune.ReservationQueue())
	heat, _ := restored.Item(2)
	require.Len(t, heat.History(), 1)
	assert.Equal(t, "Scratched", heat.History()[0].Condition)
	assert.Equal(t, DVD{Director: "Michael Mann", Runtime: 170, Rating: "NR", ReleaseYear: heat.Media().(DVD).ReleaseYear}, heat.Media())

	lib, ok := restored.Librarian(1)
	require.True(t, ok)
	assert.Equal(t, "LIB0001", lib.EmployeeID())

	next := restored.CreateItem("new", "", NewBook("a", "b"))
	assert.Equal(t, int64(4), next.ID())
}

func TestReadDocumentChecksumMismatch(t *testing.T) {
	c, _ := populated(t)
	var buf bytes.Buffer
	require.NoError(t, WriteDocument(&buf, c))

	tampered := strings.Replace(buf.String(), `"Dune"`, `"Dune!"`, 1)
	rec, warnings, err := ReadDocument(strings.NewReader(tampered))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], ErrChecksumMismatch)
	assert.Equal(t, "Dune!", rec.Items[0].Title)
}

func TestReadDocumentSkipsMalformedEntities(t *testing.T) {
	doc := `{
  "items": [
    {"item_id": 1, "type": "Book", "title": "Good", "category": "Fiction", "author": "A"},
    {"item_id": "two", "type": "Book", "title": "Broken"},
    {"item_id": 3, "type": "Vinyl", "title": "Unknown kind"},
    {"item_id": 4, "type": "DVD", "title": "Bad status", "status": "Borrowed"},
    {"item_id": 5, "type": "CD", "title": "Orphan loan", "status": "Checked Out", "current_patron": 99, "due_date": "2024-03-10T00:00:00Z"}
  ],
  "patrons": [
    {"patron_id": 1, "name": "Ada", "membership_level": "Standard"},
    {"patron_id": 1, "name": "Ada again"},
    {"patron_id": 0, "name": "Nobody"}
  ],
  "librarians": [{"staff_id": 1, "name": "Lin", "department": "Circulation"}],
  "next_ids": {"item": 2, "patron": 2, "staff": 2}
}`
	rec, warnings, err := ReadDocument(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], ErrMalformedRecord)

	c, importWarnings := ImportCatalog(rec, WithLogger(discardLogger()))
	// Unknown kind, bad status, orphan loan, duplicate and zero patron ids.
	assert.Len(t, importWarnings, 5)

	items := c.ListItems()
	require.Len(t, items, 2)
	assert.Equal(t, "Good", items[0].Title)
	assert.Equal(t, StatusAvailable, items[1].Status, "loan to unknown patron is dropped")
	assert.Len(t, c.Patrons(), 1)

	next := c.CreateItem("next", "", NewBook("a", "b"))
	assert.Equal(t, int64(6), next.ID())
}

func TestImportDuplicateItemLeavesNoLoanBehind(t *testing.T) {
	due := epoch.Add(7 * dayDur)
	rec := Record{
		Patrons: []PatronRecord{{ID: 2, Name: "Bob", MembershipLevel: string(TierStudent)}},
		Items: []ItemRecord{
			{ID: 1, Type: "Book", Title: "Dune", Status: string(StatusAvailable)},
			{ID: 1, Type: "Book", Title: "Dune copy", Status: string(StatusCheckedOut), CurrentPatron: 2, DueDate: &due},
		},
	}
	c, warnings := ImportCatalog(rec, WithLogger(discardLogger()))
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], ErrMalformedRecord)

	bob, ok := c.Patron(2)
	require.True(t, ok)
	assert.Empty(t, bob.CheckedOut(), "skipped duplicate must not leave a loan on the patron")

	item, ok := c.Item(1)
	require.True(t, ok)
	assert.Equal(t, "Dune", item.Title())
	assert.Equal(t, StatusAvailable, item.Status())
}

func TestImportSkipsDuplicateNotificationIDs(t *testing.T) {
	ts := epoch
	rec := Record{
		Patrons: []PatronRecord{{
			ID: 1, Name: "Ada", MembershipLevel: string(TierStandard),
			Notifications: []Notification{
				{ID: 1, PatronID: 1, Message: "first", Kind: NotifyGeneral, Timestamp: ts},
				{ID: 1, PatronID: 1, Message: "again", Kind: NotifyGeneral, Timestamp: ts},
				{ID: 0, PatronID: 1, Message: "zero", Kind: NotifyGeneral, Timestamp: ts},
			},
		}},
	}
	c, warnings := ImportCatalog(rec, WithLogger(discardLogger()))
	require.Len(t, warnings, 2)
	for _, w := range warnings {
		assert.ErrorIs(t, w, ErrMalformedRecord)
	}

	ada, _ := c.Patron(1)
	notes := ada.Notifications(false)
	require.Len(t, notes, 1)
	assert.Equal(t, "first", notes[0].Message)

	n, err := c.Notify(1, "next")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n.ID)
}

func TestReadDocumentRejectsGarbage(t *testing.T) {
	_, _, err := ReadDocument(strings.NewReader("not json"))
	assert.Error(t, err)
}

func TestSaveAndLoadFile(t *testing.T) {
	c, _ := populated(t)
	path := filepath.Join(t.TempDir(), "nested", "catalog.json")
	require.NoError(t, SaveFile(path, c))

	restored, warnings := LoadFile(path, WithLogger(discardLogger()))
	assert.Empty(t, warnings)
	assert.Equal(t, c.ListItems(), restored.ListItems())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLoadFileMissingYieldsEmptyCatalog(t *testing.T) {
	c, warnings := LoadFile(filepath.Join(t.TempDir(), "absent.json"), WithLogger(discardLogger()))
	require.NotNil(t, c)
	assert.Empty(t, c.Items())
	require.Len(t, warnings, 1)
	assert.ErrorIs(t, warnings[0], ErrSnapshotMissing)
}
