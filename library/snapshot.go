package library

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/crypto/blake2b"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

const documentVersion = 1

var (
	ErrSnapshotMissing  = errors.New("catalog document not found")
	ErrChecksumMismatch = errors.New("catalog document checksum mismatch")
)

// document wraps a Record with a checksum of its compact JSON encoding.
// Files without the wrapper are read as a bare Record.
type document struct {
	Version  int                 `json:"version"`
	SavedAt  time.Time           `json:"saved_at"`
	Checksum string              `json:"checksum"`
	Catalog  jsoniter.RawMessage `json:"catalog"`
}

// looseRecord defers decoding of each entity so one bad entry does not
// sink the whole file.
type looseRecord struct {
	Items      []jsoniter.RawMessage `json:"items"`
	Patrons    []jsoniter.RawMessage `json:"patrons"`
	Librarians []jsoniter.RawMessage `json:"librarians"`
	NextIDs    NextIDs               `json:"next_ids"`
}

func checksum(compact []byte) string {
	sum := blake2b.Sum256(compact)
	return hex.EncodeToString(sum[:])
}

// WriteDocument encodes the catalog as an indented JSON document.
func WriteDocument(w io.Writer, c *Catalog) error {
	body, err := jsonAPI.Marshal(ExportCatalog(c))
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	doc := document{
		Version:  documentVersion,
		SavedAt:  c.Now(),
		Checksum: checksum(body),
		Catalog:  body,
	}
	compact, err := jsonAPI.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return fmt.Errorf("indent document: %w", err)
	}
	out.WriteByte('\n')
	if _, err := w.Write(out.Bytes()); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// ReadDocument decodes a catalog document. A checksum mismatch and any
// malformed entity are returned as warnings; only an unreadable or
// syntactically broken document is an error.
func ReadDocument(r io.Reader) (Record, []error, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Record{}, nil, fmt.Errorf("read document: %w", err)
	}

	var doc document
	if err := jsonAPI.Unmarshal(raw, &doc); err != nil {
		return Record{}, nil, fmt.Errorf("decode document: %w", err)
	}

	var warnings []error
	body := []byte(doc.Catalog)
	if len(body) == 0 {
		body = raw
	} else if doc.Checksum != "" {
		var compact bytes.Buffer
		if err := json.Compact(&compact, body); err == nil && checksum(compact.Bytes()) != doc.Checksum {
			warnings = append(warnings, ErrChecksumMismatch)
		}
	}

	var loose looseRecord
	if err := jsonAPI.Unmarshal(body, &loose); err != nil {
		return Record{}, warnings, fmt.Errorf("decode catalog: %w", err)
	}

	rec := Record{NextIDs: loose.NextIDs}
	for i, msg := range loose.Items {
		var ir ItemRecord
		if err := jsonAPI.Unmarshal(msg, &ir); err != nil {
			warnings = append(warnings, fmt.Errorf("items[%d]: %w: %w", i, ErrMalformedRecord, err))
			continue
		}
		rec.Items = append(rec.Items, ir)
	}
	for i, msg := range loose.Patrons {
		var pr PatronRecord
		if err := jsonAPI.Unmarshal(msg, &pr); err != nil {
			warnings = append(warnings, fmt.Errorf("patrons[%d]: %w: %w", i, ErrMalformedRecord, err))
			continue
		}
		rec.Patrons = append(rec.Patrons, pr)
	}
	for i, msg := range loose.Librarians {
		var lr LibrarianRecord
		if err := jsonAPI.Unmarshal(msg, &lr); err != nil {
			warnings = append(warnings, fmt.Errorf("librarians[%d]: %w: %w", i, ErrMalformedRecord, err))
			continue
		}
		rec.Librarians = append(rec.Librarians, lr)
	}
	return rec, warnings, nil
}

// SaveFile writes the catalog document to path atomically.
func SaveFile(path string, c *Catalog) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create document dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteDocument(tmp, c); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp document: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// ReadFile decodes the catalog document at path. See ReadDocument.
func ReadFile(path string) (Record, []error, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrSnapshotMissing, path)
		}
		return Record{}, nil, err
	}
	defer f.Close()
	return ReadDocument(f)
}

// LoadFile reads the catalog document at path. It never fails: a missing or
// unreadable file yields an empty catalog, and every problem is returned as
// a warning (and logged through the catalog logger).
func LoadFile(path string, opts ...Option) (*Catalog, []error) {
	rec, warnings, err := ReadFile(path)
	if err != nil {
		c := NewCatalog(opts...)
		c.log.Warn("starting with an empty catalog", "path", path, "err", err)
		return c, append(warnings, err)
	}
	c, importWarnings := ImportCatalog(rec, opts...)
	return c, append(warnings, importWarnings...)
}
