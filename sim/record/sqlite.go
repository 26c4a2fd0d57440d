// Package record persists per-event simulation outcomes to a SQLite database
// so that a run can be inspected after the fact.
package record

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"

	"github.com/inference-sim/csim/sim"
	"github.com/inference-sim/csim/sim/trace"
)

// DefaultBatchSize is the number of buffered access rows written per transaction.
const DefaultBatchSize = 100000

// ErrDatabaseExists is returned when the target database file is already present.
var ErrDatabaseExists = errors.New("database already exists")

// AccessRow is one simulated access as stored in the accesses table.
type AccessRow struct {
	Seq      int // data event sequence number, from 0
	Sub      int // access index within the event, 1 for the store half of a modify
	Line     int
	Kind     string
	Address  uint64
	Size     uint64
	SetIndex uint64
	Tag      uint64
	Way      int
	Outcome  string
}

// SQLiteWriter is a sim.EventObserver that writes every access to a SQLite
// database. Rows are buffered and written in batches; a flush is registered
// with atexit so that a fatal exit still persists what was observed.
type SQLiteWriter struct {
	db        *sql.DB
	insert    *sql.Stmt
	path      string
	runID     string
	batchSize int
	pending   []AccessRow
	err       error
	closed    bool
}

// NewSQLiteWriter creates the database at path and its tables. An empty path
// picks "csim_<xid>.sqlite3" in the working directory. An existing file is
// never overwritten.
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	runID := xid.New().String()
	if path == "" {
		path = "csim_" + runID + ".sqlite3"
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseExists, path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	w := &SQLiteWriter{
		db:        db,
		path:      path,
		runID:     runID,
		batchSize: DefaultBatchSize,
	}
	if err := w.createTables(); err != nil {
		_ = db.Close()
		return nil, err
	}
	w.insert, err = db.Prepare(`INSERT INTO accesses
		(run_id, seq, sub, line, kind, address, size, set_index, tag, way, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("preparing insert: %w", err)
	}

	atexit.Register(func() {
		if err := w.Flush(); err != nil {
			logrus.Errorf("flushing %s at exit: %v", w.path, err)
		}
	})

	logrus.Infof("Recording accesses of run %s to %s", runID, path)
	return w, nil
}

func (w *SQLiteWriter) createTables() error {
	stmts := []string{
		`CREATE TABLE accesses (
			run_id    TEXT NOT NULL,
			seq       INTEGER NOT NULL,
			sub       INTEGER NOT NULL,
			line      INTEGER NOT NULL,
			kind      TEXT NOT NULL,
			address   TEXT NOT NULL,
			size      INTEGER NOT NULL,
			set_index INTEGER NOT NULL,
			tag       TEXT NOT NULL,
			way       INTEGER NOT NULL,
			outcome   TEXT NOT NULL
		)`,
		`CREATE TABLE runs (
			run_id        TEXT PRIMARY KEY,
			set_bits      INTEGER NOT NULL,
			associativity INTEGER NOT NULL,
			block_bits    INTEGER NOT NULL,
			hits          INTEGER NOT NULL,
			misses        INTEGER NOT NULL,
			evictions     INTEGER NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := w.db.Exec(s); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
	}
	return nil
}

// Path returns the database file name.
func (w *SQLiteWriter) Path() string {
	return w.path
}

// RunID returns the identifier stored with every row of this run.
func (w *SQLiteWriter) RunID() string {
	return w.runID
}

// SetBatchSize changes how many rows are buffered before a write.
func (w *SQLiteWriter) SetBatchSize(n int) {
	if n < 1 {
		n = 1
	}
	w.batchSize = n
}

// ObserveEvent implements sim.EventObserver.
func (w *SQLiteWriter) ObserveEvent(seq int, ev trace.Event, results []sim.AccessResult) {
	if w.closed {
		return
	}
	for i, res := range results {
		w.pending = append(w.pending, AccessRow{
			Seq:      seq,
			Sub:      i,
			Line:     ev.Line,
			Kind:     ev.Kind.String(),
			Address:  res.Address,
			Size:     ev.Size,
			SetIndex: res.SetIndex,
			Tag:      res.Tag,
			Way:      res.Way,
			Outcome:  res.Outcome.String(),
		})
	}
	if len(w.pending) >= w.batchSize {
		if err := w.Flush(); err != nil && w.err == nil {
			w.err = err
		}
	}
}

// Flush writes all buffered rows in one transaction.
func (w *SQLiteWriter) Flush() error {
	if w.closed || len(w.pending) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	stmt := tx.Stmt(w.insert)
	for _, r := range w.pending {
		// Addresses and tags are stored as hex text: SQLite integers are signed 64-bit.
		_, err := stmt.Exec(w.runID, r.Seq, r.Sub, r.Line, r.Kind,
			hex(r.Address), int64(r.Size), int64(r.SetIndex), hex(r.Tag), r.Way, r.Outcome)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("inserting access %d.%d: %w", r.Seq, r.Sub, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing accesses: %w", err)
	}

	logrus.Debugf("Wrote %d access rows to %s", len(w.pending), w.path)
	w.pending = w.pending[:0]
	return nil
}

// WriteSummary stores the geometry and final counters of the run.
func (w *SQLiteWriter) WriteSummary(g sim.Geometry, c sim.Counters) error {
	if w.closed {
		return errors.New("writer closed")
	}
	_, err := w.db.Exec(`INSERT INTO runs
		(run_id, set_bits, associativity, block_bits, hits, misses, evictions)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.runID, g.SetBits, g.Associativity, g.BlockBits,
		int64(c.Hits), int64(c.Misses), int64(c.Evictions))
	if err != nil {
		return fmt.Errorf("writing run summary: %w", err)
	}
	return nil
}

// Close flushes pending rows and closes the database. The returned error
// joins any failure seen while recording.
func (w *SQLiteWriter) Close() error {
	if w.closed {
		return nil
	}
	errs := []error{w.err, w.Flush(), w.insert.Close(), w.db.Close()}
	w.closed = true
	return errors.Join(errs...)
}

// Discard drops buffered rows, closes the database and removes its file.
// It is used when a run fails so that no partial recording is left behind.
func (w *SQLiteWriter) Discard() error {
	if w.closed {
		return nil
	}
	w.pending = nil
	w.closed = true
	err := errors.Join(w.insert.Close(), w.db.Close())
	if rmErr := os.Remove(w.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		err = errors.Join(err, rmErr)
	}
	logrus.Infof("Discarded recording %s of failed run %s", w.path, w.runID)
	return err
}

func hex(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}
