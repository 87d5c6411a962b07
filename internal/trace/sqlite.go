package trace

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is a durable backend storing samples and checkpoint state in a
// single SQLite file. Tallies are buffered in memory and written inside one
// transaction per Commit.
type SQLite struct {
	mu       sync.Mutex
	db       *sql.DB
	names    []string
	fns      map[string]func() float64
	pending  []sampleRow
	sampleNo int64
}

type sampleRow struct {
	no    int64
	name  string
	value float64
}

// NewSQLite opens (or creates) the trace database at path. A database from a
// previous run is resumed: new samples continue after the last recorded
// sample number, and saved checkpoint state remains readable.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening trace database %q: %w", path, err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS samples (
	sample_no INTEGER NOT NULL,
	name      TEXT    NOT NULL,
	value     REAL    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_samples_name ON samples(name, sample_no);
CREATE TABLE IF NOT EXISTS state (
	id   INTEGER PRIMARY KEY CHECK (id = 1),
	data TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing trace schema: %w", err)
	}

	s := &SQLite{db: db, fns: make(map[string]func() float64)}
	var last sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(sample_no) FROM samples`).Scan(&last); err != nil {
		db.Close()
		return nil, fmt.Errorf("reading last sample number: %w", err)
	}
	if last.Valid {
		s.sampleNo = last.Int64 + 1
	}
	return s, nil
}

func (s *SQLite) Register(name string, fn func() float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.fns[name]; !exists {
		s.names = append(s.names, name)
	}
	s.fns[name] = fn
}

func (s *SQLite) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

func (s *SQLite) Tally() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range s.names {
		s.pending = append(s.pending, sampleRow{no: s.sampleNo, name: name, value: s.fns[name]()})
	}
	s.sampleNo++
	return nil
}

func (s *SQLite) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning trace commit: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO samples (sample_no, name, value) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing trace insert: %w", err)
	}
	defer stmt.Close()
	for _, row := range s.pending {
		if _, err := stmt.Exec(row.no, row.name, row.value); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting sample for %q: %w", row.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing trace batch: %w", err)
	}
	s.pending = s.pending[:0]
	return nil
}

func (s *SQLite) Trace(name string) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT value FROM samples WHERE name = ? ORDER BY sample_no`, name)
	if err != nil {
		return nil, fmt.Errorf("reading trace for %q: %w", name, err)
	}
	defer rows.Close()
	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLite) SaveState(state *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("serializing checkpoint: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO state (id, data) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data`, string(blob))
	if err != nil {
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	return nil
}

func (s *SQLite) GetState() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var blob string
	err := s.db.QueryRow(`SELECT data FROM state WHERE id = 1`).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}
	var state State
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return nil, fmt.Errorf("decoding checkpoint: %w", err)
	}
	return &state, nil
}

func (s *SQLite) Close() error {
	if err := s.Commit(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}
