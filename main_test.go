package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-circulation/library"
	"library-circulation/notify"
)

type cli struct {
	t   *testing.T
	dir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	return &cli{t: t, dir: t.TempDir()}
}

func (c *cli) runInput(stdin string, args ...string) (string, error) {
	c.t.Helper()
	base := []string{
		"--config", filepath.Join(c.dir, "config.yaml"),
		"--db", filepath.Join(c.dir, "library.db"),
		"--outbox", filepath.Join(c.dir, "outbox.db"),
		"--log-level", "error",
	}
	var out bytes.Buffer
	err := run(context.Background(), append(base, args...), strings.NewReader(stdin), &out, &out)
	return out.String(), err
}

func (c *cli) run(args ...string) string {
	c.t.Helper()
	out, err := c.runInput("", args...)
	require.NoError(c.t, err, out)
	return out
}

func TestCLICirculationFlow(t *testing.T) {
	c := newCLI(t)

	out := c.run("patrons", "add", "Ada", "Lovelace", "--tier", "Premium", "--email", "ada@example.com")
	assert.Contains(t, out, "may hold 10 items")
	out = c.run("patrons", "add", "Bob", "--tier", "Student")
	assert.Contains(t, out, "may hold 3 items")

	out = c.run("items", "add", "--type", "Book", "--title", "Dune", "--author", "Frank Herbert")
	assert.Contains(t, out, "(ID: 1)")
	out = c.run("items", "add", "--type", "DVD", "--title", "Heat", "--director", "Michael Mann", "--runtime", "170")
	assert.Contains(t, out, "(ID: 2)")

	out = c.run("checkout", "1", "1")
	assert.Contains(t, out, "Item 1 checked out to patron 1")

	_, err := c.runInput("", "checkout", "2", "1")
	require.ErrorIs(t, err, library.ErrItemUnavailable)
	assert.Equal(t, 4, exitCode(err))

	out = c.run("reserve", "1", "2")
	assert.Contains(t, out, "Position in queue: 1")
	out = c.run("reserve", "1", "2")
	assert.Contains(t, out, "already queued")

	out = c.run("checkin", "1")
	assert.Contains(t, out, "Item 1 returned")
	assert.Contains(t, out, "Patron 2 is next")

	out = c.run("notify", "list", "2", "--unread")
	assert.Contains(t, out, "Reservation Ready")

	out = c.run("notify", "deliver")
	assert.Contains(t, out, "[Reservation Ready] patron 2")
	assert.Contains(t, out, "1 notification(s) delivered")
	out = c.run("notify", "deliver")
	assert.Contains(t, out, "0 notification(s) delivered")

	out = c.run("items", "list")
	assert.Contains(t, out, "Dune")
	assert.Contains(t, out, "Heat")

	out = c.run("items", "show", "1")
	assert.Contains(t, out, "returned")
}

func TestCLISearchAndStatus(t *testing.T) {
	c := newCLI(t)
	c.run("items", "add", "--type", "CD", "--title", "Kind of Blue", "--artist", "Miles Davis", "--tracks", "5")
	c.run("items", "add", "--title", "Dune", "--author", "Frank Herbert")

	out := c.run("items", "search", "miles", "--by", "author")
	assert.Contains(t, out, "Kind of Blue")
	assert.NotContains(t, out, "Dune")

	_, err := c.runInput("", "items", "search", "x", "--by", "isbn")
	require.Error(t, err)

	out = c.run("items", "status", "2", "Damaged")
	assert.Contains(t, out, "Item 2 is now Damaged")

	_, err = c.runInput("", "items", "status", "2", "Shredded")
	require.ErrorIs(t, err, library.ErrInvalidStatus)
	assert.Equal(t, 2, exitCode(err))

	out = c.run("items", "remove", "1")
	assert.Contains(t, out, "Item 1 removed")
	_, err = c.runInput("", "items", "show", "1")
	require.ErrorIs(t, err, library.ErrItemNotFound)
	assert.Equal(t, 3, exitCode(err))
}

func TestCLIReportsAsJSON(t *testing.T) {
	c := newCLI(t)
	c.run("items", "add", "--title", "Dune", "--author", "Frank Herbert")
	c.run("patrons", "add", "Ada")
	c.run("checkout", "1", "1")

	out := c.run("report", "inventory")
	assert.Contains(t, out, `"total_items": 1`)
	assert.Contains(t, out, `"checked_out_items": 1`)

	out = c.run("report", "popular_items", "--limit", "1")
	assert.Contains(t, out, `"total_checkouts": 1`)

	out = c.run("report", "overdue_items")
	assert.Contains(t, out, `"total_items_overdue": 0`)

	_, err := c.runInput("", "report", "weekly")
	require.Error(t, err)
}

func TestCLIExportImport(t *testing.T) {
	c := newCLI(t)
	c.run("items", "add", "--title", "Dune", "--author", "Frank Herbert")
	c.run("patrons", "add", "Ada")
	doc := filepath.Join(c.dir, "export.json")

	out := c.run("export", doc)
	assert.Contains(t, out, "Catalog exported to "+doc)

	c.run("items", "remove", "1")
	out = c.run("import", doc)
	assert.Contains(t, out, "Imported 1 items and 1 patrons")

	out = c.run("items", "list")
	assert.Contains(t, out, "Dune")

	_, err := c.runInput("", "import", filepath.Join(c.dir, "nope.json"))
	require.ErrorIs(t, err, library.ErrSnapshotMissing)
}

func TestCLISeedsEmptyDatabaseFromSnapshot(t *testing.T) {
	src := newCLI(t)
	src.run("items", "add", "--title", "Dune", "--author", "Frank Herbert")
	doc := filepath.Join(t.TempDir(), "library_data.json")
	src.run("export", doc)

	c := newCLI(t)
	cfg := fmt.Sprintf("snapshot: %q\n", doc)
	require.NoError(t, os.WriteFile(filepath.Join(c.dir, "config.yaml"), []byte(cfg), 0o644))

	out := c.run("items", "list")
	assert.Contains(t, out, "Dune")

	// Once the database holds data the snapshot is not read again.
	c.run("patrons", "add", "Ada")
	c.run("items", "remove", "1")
	out = c.run("items", "list")
	assert.Contains(t, out, "No items in catalog.")
}

func TestCLILibrarians(t *testing.T) {
	c := newCLI(t)
	c.run("librarians", "add", "Lin", "--department", "Reference")
	out := c.run("librarians", "list")
	assert.Contains(t, out, "LIB0001")
}

func TestShellSession(t *testing.T) {
	c := newCLI(t)
	script := strings.Join([]string{
		"add patron", "Ada", "ada@example.com", "",
		"add item", "Book", "Dune", "Frank Herbert",
		"checkout", "1", "1",
		"list items",
		"return", "1", "",
		"report", "inventory",
		"frobnicate",
		"exit",
	}, "\n") + "\n"

	out, err := c.runInput(script, "shell")
	require.NoError(t, err)
	assert.Contains(t, out, "Added patron ID 1.")
	assert.Contains(t, out, "Added item ID 1.")
	assert.Contains(t, out, "Checked out. Due")
	assert.Contains(t, out, "Returned.")
	assert.Contains(t, out, `"total_items": 1`)
	assert.Contains(t, out, "Unknown command.")
	assert.Contains(t, out, "Goodbye!")

	// The shell writes through to the database.
	out = c.run("patrons", "show", "1")
	assert.Contains(t, out, "Ada")
}

type countingDeliverer struct {
	mu sync.Mutex
	n  int
}

func (d *countingDeliverer) Deliver(context.Context, library.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.n++
	return nil
}

func (d *countingDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n
}

func TestStartDeliveryStopWaitsForDispatcher(t *testing.T) {
	box, err := notify.Open(filepath.Join(t.TempDir(), "outbox.db"))
	require.NoError(t, err)
	n := library.Notification{ID: 1, PatronID: 1, Message: "hi", Kind: library.NotifyGeneral, Timestamp: time.Now()}
	require.NoError(t, box.Publish(n))

	d := &countingDeliverer{}
	disp := notify.NewDispatcher(box, d, slog.New(slog.NewTextHandler(io.Discard, nil)))
	stop := startDelivery(context.Background(), disp, time.Millisecond)
	require.Eventually(t, func() bool { return d.count() == 1 }, 2*time.Second, time.Millisecond)
	stop()

	// Nothing drains after stop returns, so the outbox can be closed safely.
	require.NoError(t, box.Publish(n))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, d.count())
	size, err := box.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, size)
	require.NoError(t, box.Close())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", library.ErrPatronNotFound), 3},
		{library.ErrCheckoutLimit, 4},
		{library.ErrItemCheckedOut, 4},
		{library.ErrUnknownKind, 2},
		{fmt.Errorf("disk full"), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), tt.err.Error())
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "Dune", truncateString("Dune", 10))
	assert.Equal(t, "The Fel...", truncateString("The Fellowship of the Ring", 10))
	assert.Equal(t, "Th", truncateString("The", 2))
}
