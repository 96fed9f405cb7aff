// Package store persists the inventory of wakeable machines in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/projectdiscovery/gcache"
	"github.com/projectdiscovery/gologger"
	_ "modernc.org/sqlite"

	"github.com/projectdiscovery/wol-agent/pkg/macaddr"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "wol.db"

var (
	// ErrNotFound is returned for an unknown machine id.
	ErrNotFound = errors.New("machine not found")
	// ErrExists is returned when adding a machine whose id is taken.
	ErrExists = errors.New("machine already exists")
	// ErrInvalid is returned for a machine without an id.
	ErrInvalid = errors.New("invalid machine")
)

const schema = `CREATE TABLE IF NOT EXISTS machines (
	id TEXT PRIMARY KEY NOT NULL,
	mac BLOB NOT NULL
)`

// Machine is a wakeable machine. ID is the user-chosen name.
type Machine struct {
	ID  string       `json:"id"`
	MAC macaddr.Addr `json:"mac"`
}

// Store is a machine inventory backed by a SQL database.
type Store struct {
	db    *sql.DB
	cache gcache.Cache[string, Machine]

	// gen counts writes; a Get that raced one must not refill the cache.
	mu  sync.Mutex
	gen uint64
}

// Open opens (creating if missing) the SQLite database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s, err := New(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and applies the schema.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{
		db: db,
		cache: gcache.New[string, Machine](256).
			LRU().
			Expiration(10 * time.Minute).
			Build(),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.cache.Purge()
	return s.db.Close()
}

// List returns all machines ordered by id.
func (s *Store) List(ctx context.Context) ([]Machine, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, mac FROM machines ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	defer rows.Close()

	machines := []Machine{}
	for rows.Next() {
		var m Machine
		if err := rows.Scan(&m.ID, &m.MAC); err != nil {
			return nil, fmt.Errorf("failed to read machine: %w", err)
		}
		machines = append(machines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	return machines, nil
}

// Get returns the machine with the given id.
func (s *Store) Get(ctx context.Context, id string) (Machine, error) {
	if m, err := s.cache.Get(id); err == nil {
		return m, nil
	}
	gen := s.generation()

	var m Machine
	err := s.db.QueryRowContext(ctx, "SELECT id, mac FROM machines WHERE id = ?", id).Scan(&m.ID, &m.MAC)
	if errors.Is(err, sql.ErrNoRows) {
		return Machine{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Machine{}, fmt.Errorf("failed to get machine %s: %w", id, err)
	}

	s.fill(ctx, gen, m)
	return m, nil
}

func (s *Store) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// fill caches m unless a write happened since gen was read or the caller
// already gave up on the result.
func (s *Store) fill(ctx context.Context, gen uint64, m Machine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen && ctx.Err() == nil {
		_ = s.cache.Set(m.ID, m)
	}
}

// invalidate drops id from the cache after a write reached the database.
func (s *Store) invalidate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.cache.Remove(id)
}

// Add inserts a new machine.
func (s *Store) Add(ctx context.Context, m Machine) error {
	m.ID = strings.TrimSpace(m.ID)
	if m.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalid)
	}

	_, err := s.db.ExecContext(ctx, "INSERT INTO machines (id, mac) VALUES (?, ?)", m.ID, m.MAC)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("%w: %s", ErrExists, m.ID)
		}
		return fmt.Errorf("failed to insert machine (id %s, mac %s): %w", m.ID, m.MAC, err)
	}

	s.invalidate(m.ID)
	gologger.Verbose().Msgf("added machine %s (%s)", m.ID, m.MAC)
	return nil
}

// Delete removes the machine with the given id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM machines WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete machine %s: %w", id, err)
	}
	s.invalidate(id)

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete machine %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	gologger.Verbose().Msgf("deleted machine %s", id)
	return nil
}

// isConstraintError reports a primary key violation. The driver error type
// is not part of the database/sql contract, so match on the message.
func isConstraintError(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
