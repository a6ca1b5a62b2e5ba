package library

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoadEmptyDatabase(t *testing.T) {
	db := tempDB(t)
	rec, err := db.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rec.Items) != 0 || len(rec.Patrons) != 0 || len(rec.Librarians) != 0 {
		t.Fatalf("want empty record, got %+v", rec)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.db")
	for i := 0; i < 2; i++ {
		db, err := NewDatabase(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		var version string
		if err := db.db.Get(&version, `SELECT value FROM meta WHERE key='schema_version'`); err != nil {
			t.Fatalf("schema version: %v", err)
		}
		if version != "3" {
			t.Fatalf("want schema version 3, got %s", version)
		}
		db.Close()
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	c, _ := populated(t)

	if err := db.Save(ctx, ExportCatalog(c)); err != nil {
		t.Fatalf("save: %v", err)
	}
	rec, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	restored, warnings := ImportCatalog(rec, WithLogger(discardLogger()))
	assert.Empty(t, warnings)

	want, got := c.ListItems(), restored.ListItems()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Title, got[i].Title)
		assert.Equal(t, want[i].Type, got[i].Type)
		assert.Equal(t, want[i].Attribution, got[i].Attribution)
		assert.Equal(t, want[i].Status, got[i].Status)
		assert.Equal(t, want[i].CheckoutCount, got[i].CheckoutCount)
		assert.Equal(t, want[i].CurrentPatron, got[i].CurrentPatron)
		assert.Equal(t, want[i].ReservationCount, got[i].ReservationCount)
		if want[i].DueDate != nil {
			require.NotNil(t, got[i].DueDate)
			assert.True(t, want[i].DueDate.Equal(*got[i].DueDate))
		}
	}

	bob, ok := restored.Patron(2)
	require.True(t, ok)
	assert.Equal(t, 3.00, bob.Fines())
	assert.Len(t, bob.History(), 1)
	assert.True(t, bob.History()[0].Returned())
	notes := bob.Notifications(false)
	require.Len(t, notes, 1)
	assert.Equal(t, NotifyFineApplied, notes[0].Kind)

	// Notification ids keep counting after a reload.
	n := bob.AddNotification("hello", NotifyGeneral, epoch)
	assert.Equal(t, int64(2), n.ID)

	heat, _ := restored.Item(2)
	require.Len(t, heat.History(), 1)
	assert.Equal(t, "Scratched", heat.History()[0].Condition)
	dune, _ := restored.Item(1)
	assert.Equal(t, []int64{2}, dune.ReservationQueue())
	assert.Equal(t, NewBook("Frank Herbert", "978-0441013593"), dune.Media())

	assert.Equal(t, NextIDs{Item: 4, Patron: 3, Staff: 2}, rec.NextIDs)
}

func TestSaveReplacesPreviousContents(t *testing.T) {
	ctx := context.Background()
	db := tempDB(t)
	c, _ := populated(t)
	if err := db.Save(ctx, ExportCatalog(c)); err != nil {
		t.Fatalf("save: %v", err)
	}

	require.NoError(t, c.RemoveItem(3))
	if err := db.Save(ctx, ExportCatalog(c)); err != nil {
		t.Fatalf("second save: %v", err)
	}
	rec, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rec.Items) != 2 {
		t.Fatalf("want 2 items, got %d", len(rec.Items))
	}
}
