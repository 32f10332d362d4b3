// Package hoststore owns the host registry: an ordered list of records that is
// loaded once from a flat "|" separated file and written back after every
// change.
//
// The store is not safe for concurrent use and does no file locking; one
// interactive process at a time is assumed.
package hoststore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/treykane/sshman/internal/model"
)

// Store is the in-memory cache of the hosts file.
type Store struct {
	path    string
	records []model.HostRecord
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open creates a store backed by path and loads it. A missing file is an
// empty registry.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Load reads the backing file and replaces the in-memory records. On error
// the current records are kept.
func (s *Store) Load() ([]model.HostRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.records = nil
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	recs, err := Decode(f, s.path)
	if err != nil {
		return nil, err
	}
	s.records = recs
	s.logger.Debug("hosts loaded", "path", s.path, "count", len(recs))
	return s.List(), nil
}

// Save overwrites the backing file with records, in order, and makes them
// the current in-memory set.
//
// Every record is checked with Validate first; a record that would not read
// back unchanged (a '|' or line break outside the tags, a name starting with
// '#') fails the whole save before the file is opened, so the file on disk is
// never half rewritten by a bad record.
//
// The file is truncated and written with mode 0600, its directory created
// 0700 when missing. The handle is closed on every path; a close error is
// returned when the write itself succeeded. The in-memory records change only
// when both the write and the close succeed.
func (s *Store) Save(records []model.HostRecord) (err error) {
	for _, r := range records {
		if err := Validate(r); err != nil {
			return fmt.Errorf("host %q: %w", r.Name, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open %s for write: %w", s.path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", s.path, cerr)
		}
		if err == nil {
			s.records = append([]model.HostRecord(nil), records...)
			s.logger.Debug("hosts saved", "path", s.path, "count", len(records))
		}
	}()

	if err := Encode(f, records); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// List returns a copy of the records in stored order.
func (s *Store) List() []model.HostRecord {
	return append([]model.HostRecord(nil), s.records...)
}

// FindByName returns the first record named name.
func (s *Store) FindByName(name string) (model.HostRecord, bool) {
	for _, r := range s.records {
		if r.Name == name {
			return r, true
		}
	}
	return model.HostRecord{}, false
}

// Add appends rec and persists the whole registry.
//
// A blank name yields ErrEmptyName, and a record Validate rejects yields an
// error wrapping ErrInvalidRecord. A name that is already present yields a
// *DuplicateNameError. In all these cases, and when writing the file fails,
// both the in-memory records and the file are left as they were.
func (s *Store) Add(rec model.HostRecord) error {
	if err := Validate(rec); err != nil {
		return err
	}
	if _, ok := s.FindByName(rec.Name); ok {
		return &DuplicateNameError{Name: rec.Name}
	}
	next := append(s.List(), rec)
	return s.Save(next)
}

// Append adds records without checking names and persists. Used by import,
// which does its own duplicate handling.
func (s *Store) Append(recs ...model.HostRecord) error {
	if len(recs) == 0 {
		return nil
	}
	for _, r := range recs {
		if err := Validate(r); err != nil {
			return fmt.Errorf("host %q: %w", r.Name, err)
		}
	}
	next := append(s.List(), recs...)
	return s.Save(next)
}

// Delete removes every record named name and persists. It reports whether
// anything was removed; when nothing matches the file is not rewritten.
//
// Names are unique when records come in through Add, but an unguarded import
// can leave several records with one name, so all of them are removed.
func (s *Store) Delete(name string) (bool, error) {
	next := make([]model.HostRecord, 0, len(s.records))
	for _, r := range s.records {
		if r.Name != name {
			next = append(next, r)
		}
	}
	if len(next) == len(s.records) {
		return false, nil
	}
	if err := s.Save(next); err != nil {
		return false, err
	}
	return true, nil
}

// Duplicates returns names that occur more than once, in first-seen order.
func (s *Store) Duplicates() []string {
	counts := map[string]int{}
	var order []string
	for _, r := range s.records {
		if counts[r.Name] == 0 {
			order = append(order, r.Name)
		}
		counts[r.Name]++
	}
	var out []string
	for _, n := range order {
		if counts[n] > 1 {
			out = append(out, n)
		}
	}
	return out
}
