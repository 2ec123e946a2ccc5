// Package storage persists calibration and the capture history in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/huematch/internal/domain/calibration"
	"github.com/okian/huematch/internal/domain/model"
	"github.com/okian/huematch/pkg/logger"
	"github.com/okian/huematch/pkg/metrics"
)

const calibrationBucket = "calibration"

const schema = `
CREATE TABLE IF NOT EXISTS state (
	bucket     TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS captures (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL,
	at          INTEGER NOT NULL,
	x           INTEGER NOT NULL,
	y           INTEGER NOT NULL,
	z           INTEGER NOT NULL,
	ir1         INTEGER NOT NULL,
	ir2         INTEGER NOT NULL,
	r           INTEGER NOT NULL,
	g           INTEGER NOT NULL,
	b           INTEGER NOT NULL,
	name        TEXT NOT NULL,
	method      INTEGER NOT NULL,
	duration_ns INTEGER NOT NULL
);`

// Store is a SQLite database holding one calibration blob and a bounded
// ring of recent captures. It implements calibration.Persistence.
type Store struct {
	db          *sql.DB
	path        string
	historySize int

	mu     sync.RWMutex
	closed bool

	logger logger.Logger
}

// Open opens or creates the database at path.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// one writer; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{
		db:          db,
		path:        path,
		historySize: defaultHistorySize,
		logger:      logger.Get().Named("storage"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save replaces the stored calibration in one transaction.
func (s *Store) Save(ctx context.Context, d calibration.Data) error {
	defer observe("save_calibration", time.Now())

	payload, err := calibration.Encode(d)
	if err != nil {
		return fmt.Errorf("encode calibration: %w", err)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO state(bucket,payload,updated_at) VALUES(?,?,?)
			 ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
			calibrationBucket, payload, time.Now().UnixNano())
		return err
	})
}

// Load returns the stored calibration. The bool is false when nothing was
// saved yet.
func (s *Store) Load(ctx context.Context) (calibration.Data, bool, error) {
	defer observe("load_calibration", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return calibration.Data{}, false, ErrClosed
	}

	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = ?`, calibrationBucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return calibration.Data{}, false, nil
	}
	if err != nil {
		return calibration.Data{}, false, fmt.Errorf("load calibration: %w", err)
	}
	d, err := calibration.Decode(payload)
	if err != nil {
		return calibration.Data{}, false, err
	}
	return d, true, nil
}

// AppendCapture stores c and trims the history to its configured size.
func (s *Store) AppendCapture(ctx context.Context, c model.Capture) error { //nolint:gocritic // hugeParam: value semantics
	defer observe("append_capture", time.Now())

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO captures(id,at,x,y,z,ir1,ir2,r,g,b,name,method,duration_ns)
			 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			c.ID, c.At.UnixNano(),
			c.Raw.X, c.Raw.Y, c.Raw.Z, c.Raw.IR1, c.Raw.IR2,
			c.RGB.R, c.RGB.G, c.RGB.B,
			c.Name, uint8(c.Method), int64(c.Duration),
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`DELETE FROM captures WHERE seq NOT IN (SELECT seq FROM captures ORDER BY seq DESC LIMIT ?)`,
			s.historySize)
		return err
	})
}

// Captures returns the history, newest first.
func (s *Store) Captures(ctx context.Context) ([]model.Capture, error) {
	defer observe("list_captures", time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id,at,x,y,z,ir1,ir2,r,g,b,name,method,duration_ns FROM captures ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("list captures: %w", err)
	}
	defer rows.Close()

	var out []model.Capture
	for rows.Next() {
		var (
			c      model.Capture
			at     int64
			method uint8
			dur    int64
		)
		if err := rows.Scan(&c.ID, &at,
			&c.Raw.X, &c.Raw.Y, &c.Raw.Z, &c.Raw.IR1, &c.Raw.IR2,
			&c.RGB.R, &c.RGB.G, &c.RGB.B,
			&c.Name, &method, &dur,
		); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		c.At = time.Unix(0, at)
		c.Method = model.Method(method)
		c.Duration = time.Duration(dur)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ClearHistory removes every capture.
func (s *Store) ClearHistory(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM captures`)
		return err
	})
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			metrics.RecordErrorByComponent("storage", "tx_failed")
			s.logger.Error(ctx, "storage transaction failed",
				logger.String("path", s.path),
				logger.Error(err),
			)
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordStorageOperation(op, float64(time.Since(start).Milliseconds()))
}
