package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Database stores catalog records in SQLite.
type Database struct {
	db *sqlx.DB
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Enable busy_timeout and foreign keys.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; Save replaces the whole catalog in one transaction.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

// Close closes the DB.
func (d *Database) Close() error { return d.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 3

func applyMigrations(db *sqlx.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS patrons (
            id INTEGER PRIMARY KEY,
            seq INTEGER NOT NULL,
            name TEXT NOT NULL,
            email TEXT NOT NULL DEFAULT '',
            membership_level TEXT NOT NULL DEFAULT 'Standard',
            join_date DATETIME NOT NULL,
            fines REAL NOT NULL DEFAULT 0,
            last_notification_id INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS librarians (
            id INTEGER PRIMARY KEY,
            seq INTEGER NOT NULL,
            name TEXT NOT NULL,
            email TEXT NOT NULL DEFAULT '',
            department TEXT NOT NULL DEFAULT '',
            join_date DATETIME NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS items (
            id INTEGER PRIMARY KEY,
            seq INTEGER NOT NULL,
            type TEXT NOT NULL,
            title TEXT NOT NULL,
            category TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'Available',
            checkout_count INTEGER NOT NULL DEFAULT 0,
            current_patron INTEGER NOT NULL DEFAULT 0,
            due_date DATETIME,
            added_date DATETIME NOT NULL,
            author TEXT NOT NULL DEFAULT '',
            isbn TEXT NOT NULL DEFAULT '',
            edition INTEGER NOT NULL DEFAULT 0,
            page_count INTEGER NOT NULL DEFAULT 0,
            publisher TEXT NOT NULL DEFAULT '',
            publication_year INTEGER NOT NULL DEFAULT 0,
            director TEXT NOT NULL DEFAULT '',
            runtime INTEGER NOT NULL DEFAULT 0,
            rating TEXT NOT NULL DEFAULT '',
            release_year INTEGER NOT NULL DEFAULT 0,
            artist TEXT NOT NULL DEFAULT '',
            tracks INTEGER NOT NULL DEFAULT 0,
            duration INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS reservations (
            item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
            patron_id INTEGER NOT NULL REFERENCES patrons(id) ON DELETE CASCADE,
            position INTEGER NOT NULL,
            UNIQUE(item_id, patron_id)
        );`,
		`CREATE TABLE IF NOT EXISTS checkouts (
            loan_id TEXT NOT NULL,
            item_id INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
            patron_id INTEGER NOT NULL,
            checkout_date DATETIME NOT NULL,
            due_date DATETIME NOT NULL,
            return_date DATETIME,
            condition TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS borrowing_history (
            loan_id TEXT NOT NULL,
            patron_id INTEGER NOT NULL REFERENCES patrons(id) ON DELETE CASCADE,
            item_id INTEGER NOT NULL,
            title TEXT NOT NULL,
            checkout_date DATETIME NOT NULL,
            due_date DATETIME NOT NULL,
            return_date DATETIME
        );`,
		`CREATE TABLE IF NOT EXISTS notifications (
            patron_id INTEGER NOT NULL REFERENCES patrons(id) ON DELETE CASCADE,
            id INTEGER NOT NULL,
            message TEXT NOT NULL,
            kind TEXT NOT NULL,
            timestamp DATETIME NOT NULL,
            is_read BOOLEAN NOT NULL DEFAULT 0,
            PRIMARY KEY(patron_id, id)
        );`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Rows
// ---------------------------------------------------------------------------

type itemRow struct {
	Seq int `db:"seq"`
	ItemRecord
}

type patronRow struct {
	Seq int `db:"seq"`
	PatronRecord
}

type librarianRow struct {
	Seq int `db:"seq"`
	LibrarianRecord
}

type reservationRow struct {
	ItemID   int64 `db:"item_id"`
	PatronID int64 `db:"patron_id"`
	Position int   `db:"position"`
}

type checkoutRow struct {
	LoanID       string       `db:"loan_id"`
	ItemID       int64        `db:"item_id"`
	PatronID     int64        `db:"patron_id"`
	CheckoutDate time.Time    `db:"checkout_date"`
	DueDate      time.Time    `db:"due_date"`
	ReturnDate   sql.NullTime `db:"return_date"`
	Condition    string       `db:"condition"`
}

type borrowRow struct {
	LoanID       string       `db:"loan_id"`
	PatronID     int64        `db:"patron_id"`
	ItemID       int64        `db:"item_id"`
	Title        string       `db:"title"`
	CheckoutDate time.Time    `db:"checkout_date"`
	DueDate      time.Time    `db:"due_date"`
	ReturnDate   sql.NullTime `db:"return_date"`
}

type notificationRow struct {
	PatronID  int64     `db:"patron_id"`
	ID        int64     `db:"id"`
	Message   string    `db:"message"`
	Kind      string    `db:"kind"`
	Timestamp time.Time `db:"timestamp"`
	Read      bool      `db:"is_read"`
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// ---------------------------------------------------------------------------
// Save / Load
// ---------------------------------------------------------------------------

// Save replaces the stored catalog with rec in a single transaction.
func (d *Database) Save(ctx context.Context, rec Record) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"notifications", "borrowing_history", "checkouts", "reservations", "items", "librarians", "patrons"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i, p := range rec.Patrons {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO patrons
            (id, seq, name, email, membership_level, join_date, fines, last_notification_id)
            VALUES (:id, :seq, :name, :email, :membership_level, :join_date, :fines, :last_notification_id)`,
			patronRow{Seq: i, PatronRecord: p}); err != nil {
			return fmt.Errorf("insert patron %d: %w", p.ID, err)
		}
		for _, h := range p.History {
			if _, err := tx.NamedExecContext(ctx, `INSERT INTO borrowing_history
                (loan_id, patron_id, item_id, title, checkout_date, due_date, return_date)
                VALUES (:loan_id, :patron_id, :item_id, :title, :checkout_date, :due_date, :return_date)`,
				borrowRow{
					LoanID: h.LoanID, PatronID: p.ID, ItemID: h.ItemID, Title: h.Title,
					CheckoutDate: h.CheckoutDate, DueDate: h.DueDate, ReturnDate: nullTime(h.ReturnDate),
				}); err != nil {
				return fmt.Errorf("insert history of patron %d: %w", p.ID, err)
			}
		}
		for _, n := range p.Notifications {
			if _, err := tx.NamedExecContext(ctx, `INSERT INTO notifications
                (patron_id, id, message, kind, timestamp, is_read)
                VALUES (:patron_id, :id, :message, :kind, :timestamp, :is_read)`,
				notificationRow{
					PatronID: p.ID, ID: n.ID, Message: n.Message, Kind: string(n.Kind),
					Timestamp: n.Timestamp, Read: n.Read,
				}); err != nil {
				return fmt.Errorf("insert notification %d of patron %d: %w", n.ID, p.ID, err)
			}
		}
	}

	for i, l := range rec.Librarians {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO librarians
            (id, seq, name, email, department, join_date)
            VALUES (:id, :seq, :name, :email, :department, :join_date)`,
			librarianRow{Seq: i, LibrarianRecord: l}); err != nil {
			return fmt.Errorf("insert librarian %d: %w", l.ID, err)
		}
	}

	for i, it := range rec.Items {
		if _, err := tx.NamedExecContext(ctx, `INSERT INTO items
            (id, seq, type, title, category, status, checkout_count, current_patron, due_date, added_date,
             author, isbn, edition, page_count, publisher, publication_year,
             director, runtime, rating, release_year, artist, tracks, duration)
            VALUES (:id, :seq, :type, :title, :category, :status, :checkout_count, :current_patron, :due_date, :added_date,
             :author, :isbn, :edition, :page_count, :publisher, :publication_year,
             :director, :runtime, :rating, :release_year, :artist, :tracks, :duration)`,
			itemRow{Seq: i, ItemRecord: it}); err != nil {
			return fmt.Errorf("insert item %d: %w", it.ID, err)
		}
		for pos, pid := range it.ReservationQueue {
			if _, err := tx.ExecContext(ctx, `INSERT INTO reservations(item_id, patron_id, position) VALUES(?,?,?)`,
				it.ID, pid, pos); err != nil {
				return fmt.Errorf("insert reservation of item %d: %w", it.ID, err)
			}
		}
		for _, h := range it.History {
			if _, err := tx.NamedExecContext(ctx, `INSERT INTO checkouts
                (loan_id, item_id, patron_id, checkout_date, due_date, return_date, condition)
                VALUES (:loan_id, :item_id, :patron_id, :checkout_date, :due_date, :return_date, :condition)`,
				checkoutRow{
					LoanID: h.LoanID, ItemID: it.ID, PatronID: h.PatronID, CheckoutDate: h.CheckoutDate,
					DueDate: h.DueDate, ReturnDate: nullTime(h.ReturnDate), Condition: h.Condition,
				}); err != nil {
				return fmt.Errorf("insert checkout history of item %d: %w", it.ID, err)
			}
		}
	}

	next := map[string]int64{
		"next_item_id":   rec.NextIDs.Item,
		"next_patron_id": rec.NextIDs.Patron,
		"next_staff_id":  rec.NextIDs.Staff,
	}
	for key, v := range next {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta(key,value) VALUES(?,?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, key, strconv.FormatInt(v, 10)); err != nil {
			return fmt.Errorf("store %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// Load reads the stored catalog. An empty database yields an empty Record.
func (d *Database) Load(ctx context.Context) (Record, error) {
	var rec Record

	var patrons []patronRow
	if err := d.db.SelectContext(ctx, &patrons, `SELECT id, seq, name, email, membership_level, join_date, fines, last_notification_id
        FROM patrons ORDER BY seq`); err != nil {
		return rec, fmt.Errorf("load patrons: %w", err)
	}
	var history []borrowRow
	if err := d.db.SelectContext(ctx, &history, `SELECT loan_id, patron_id, item_id, title, checkout_date, due_date, return_date
        FROM borrowing_history ORDER BY rowid`); err != nil {
		return rec, fmt.Errorf("load borrowing history: %w", err)
	}
	var notes []notificationRow
	if err := d.db.SelectContext(ctx, &notes, `SELECT patron_id, id, message, kind, timestamp, is_read
        FROM notifications ORDER BY patron_id, id`); err != nil {
		return rec, fmt.Errorf("load notifications: %w", err)
	}
	patronIdx := make(map[int64]int, len(patrons))
	for _, row := range patrons {
		patronIdx[row.ID] = len(rec.Patrons)
		rec.Patrons = append(rec.Patrons, row.PatronRecord)
	}
	for _, h := range history {
		if i, ok := patronIdx[h.PatronID]; ok {
			rec.Patrons[i].History = append(rec.Patrons[i].History, BorrowEntry{
				LoanID: h.LoanID, ItemID: h.ItemID, Title: h.Title,
				CheckoutDate: h.CheckoutDate, DueDate: h.DueDate, ReturnDate: h.ReturnDate.Time,
			})
		}
	}
	for _, n := range notes {
		if i, ok := patronIdx[n.PatronID]; ok {
			rec.Patrons[i].Notifications = append(rec.Patrons[i].Notifications, Notification{
				ID: n.ID, PatronID: n.PatronID, Message: n.Message, Kind: NotificationKind(n.Kind),
				Timestamp: n.Timestamp, Read: n.Read,
			})
		}
	}

	var staff []librarianRow
	if err := d.db.SelectContext(ctx, &staff, `SELECT id, seq, name, email, department, join_date
        FROM librarians ORDER BY seq`); err != nil {
		return rec, fmt.Errorf("load librarians: %w", err)
	}
	for _, row := range staff {
		rec.Librarians = append(rec.Librarians, row.LibrarianRecord)
	}

	var items []itemRow
	if err := d.db.SelectContext(ctx, &items, `SELECT id, seq, type, title, category, status, checkout_count,
            current_patron, due_date, added_date, author, isbn, edition, page_count, publisher, publication_year,
            director, runtime, rating, release_year, artist, tracks, duration
        FROM items ORDER BY seq`); err != nil {
		return rec, fmt.Errorf("load items: %w", err)
	}
	var reservations []reservationRow
	if err := d.db.SelectContext(ctx, &reservations, `SELECT item_id, patron_id, position
        FROM reservations ORDER BY item_id, position`); err != nil {
		return rec, fmt.Errorf("load reservations: %w", err)
	}
	var checkouts []checkoutRow
	if err := d.db.SelectContext(ctx, &checkouts, `SELECT loan_id, item_id, patron_id, checkout_date, due_date, return_date, condition
        FROM checkouts ORDER BY rowid`); err != nil {
		return rec, fmt.Errorf("load checkouts: %w", err)
	}
	itemIdx := make(map[int64]int, len(items))
	for _, row := range items {
		itemIdx[row.ID] = len(rec.Items)
		rec.Items = append(rec.Items, row.ItemRecord)
	}
	for _, r := range reservations {
		if i, ok := itemIdx[r.ItemID]; ok {
			rec.Items[i].ReservationQueue = append(rec.Items[i].ReservationQueue, r.PatronID)
		}
	}
	for _, c := range checkouts {
		if i, ok := itemIdx[c.ItemID]; ok {
			rec.Items[i].History = append(rec.Items[i].History, CheckoutEntry{
				LoanID: c.LoanID, PatronID: c.PatronID, CheckoutDate: c.CheckoutDate,
				DueDate: c.DueDate, ReturnDate: c.ReturnDate.Time, Condition: c.Condition,
			})
		}
	}

	rows, err := d.db.QueryxContext(ctx, `SELECT key, value FROM meta WHERE key LIKE 'next_%'`)
	if err != nil {
		return rec, fmt.Errorf("load id counters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return rec, err
		}
		v, _ := strconv.ParseInt(value, 10, 64)
		switch key {
		case "next_item_id":
			rec.NextIDs.Item = v
		case "next_patron_id":
			rec.NextIDs.Patron = v
		case "next_staff_id":
			rec.NextIDs.Staff = v
		}
	}
	return rec, rows.Err()
}
