// Package notify delivers catalog notifications out of band.
//
// The catalog keeps every notification in the patron's inbox. When an Outbox
// is installed as the catalog's sink, each notification is also written to a
// BoltDB file, so a separate Dispatcher can deliver it later (console, mail
// gateway) and survive restarts in between. Entries are keyed by ULID, which
// makes the bucket's key order the enqueue order.
package notify

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/oklog/ulid/v2"

	"library-circulation/library"
)

const bucketName = "outbox"

// ErrNotFound is returned when an outbox entry does not exist.
var ErrNotFound = errors.New("outbox entry not found")

// Entry is one queued notification.
type Entry struct {
	Key          string               `json:"key"`
	Notification library.Notification `json:"notification"`
	EnqueuedAt   time.Time            `json:"enqueued_at"`
	Attempts     int                  `json:"attempts"`
	LastError    string               `json:"last_error,omitempty"`
}

// Outbox is a durable FIFO of notifications awaiting delivery.
type Outbox struct {
	db *bolt.DB

	mu      sync.Mutex
	entropy io.Reader
}

var _ library.NotificationSink = (*Outbox)(nil)

// Open opens (or creates) the outbox file at path.
func Open(path string) (*Outbox, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Outbox{db: db, entropy: ulid.Monotonic(rand.Reader, 0)}, nil
}

// Close releases the file lock.
func (o *Outbox) Close() error { return o.db.Close() }

func (o *Outbox) newKey(now time.Time) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(now), o.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Publish enqueues n. It implements library.NotificationSink.
func (o *Outbox) Publish(n library.Notification) error {
	now := time.Now().UTC()
	key, err := o.newKey(now)
	if err != nil {
		return fmt.Errorf("outbox key: %w", err)
	}
	data, err := json.Marshal(Entry{Key: key, Notification: n, EnqueuedAt: now})
	if err != nil {
		return err
	}
	return o.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), data)
	})
}

// Pending returns up to limit entries in enqueue order. A limit <= 0 returns
// everything.
func (o *Outbox) Pending(limit int) ([]Entry, error) {
	entries := []Entry{}
	err := o.db.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket([]byte(bucketName)).Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode outbox entry %s: %w", k, err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Len reports the number of queued entries.
func (o *Outbox) Len() (int, error) {
	var n int
	err := o.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})
	return n, err
}

// Ack removes a delivered entry. Acking a missing key is not an error, so a
// retried acknowledgement is harmless.
func (o *Outbox) Ack(key string) error {
	return o.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}

// Fail records a failed delivery attempt and returns the updated entry.
func (o *Outbox) Fail(key string, cause error) (Entry, error) {
	var e Entry
	err := o.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		v := b.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(v, &e); err != nil {
			return err
		}
		e.Attempts++
		if cause != nil {
			e.LastError = cause.Error()
		}
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
	return e, err
}
