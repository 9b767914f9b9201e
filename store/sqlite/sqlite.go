/*
Package sqlite provides a SQLite-backed implementation of procure.LedgerStore.

PURPOSE:
  Durable storage for PO masters/details and GRN masters/details. In
  production the same patterns apply to PostgreSQL - only minor SQL dialect
  differences.

STORAGE-BOUNDARY INVARIANTS:
  - idx_po_masters_active: partial unique index on po_no WHERE active,
    so "at most one active header per PO number" holds no matter how the
    application sequences its writes. Violations map to
    procure.ErrActiveRevisionConflict.
  - grn_masters.grn_no UNIQUE: duplicate receipts (retries included) map to
    procure.ErrDuplicateGRN.

INDEXES:
  - idx_po_masters_po_no: lineage walks
  - idx_grn_masters_po_id: receipt lookups per revision (the legacy system
    walked full scans here)
  - idx_grn_details_grn_sr: per-line aggregation

NUMERIC STORAGE:
  Quantities, rates, and amounts are stored as TEXT and parsed with
  shopspring/decimal, avoiding float drift in the reconciliation sums.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  single writer at a time, better crash recovery.

USAGE:
  st, err := sqlite.New("./data/procure.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()
  engine := procure.NewEngine(st)

SEE ALSO:
  - procure/store.go: Interface definition
  - procure/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/procure-ledger/procure"
)

// Store implements procure.LedgerStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: SQLite allows one writer, and with ":memory:"
	// every pool connection would otherwise see a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- PO headers, one row per revision
	CREATE TABLE IF NOT EXISTS po_masters (
		id TEXT PRIMARY KEY,
		po_no TEXT NOT NULL,
		po_rev INTEGER NOT NULL,
		po_date TEXT NOT NULL,
		po_is_active INTEGER NOT NULL DEFAULT 1,
		po_is_closed INTEGER NOT NULL DEFAULT 0,
		po_amount TEXT NOT NULL DEFAULT '0',
		prev_po_id TEXT,
		po_rev_reason TEXT,
		sup_id INTEGER,
		transportation TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_po_masters_po_no
		ON po_masters(po_no);

	-- CRITICAL: at most one active revision per PO number.
	-- Enforced here, at the storage boundary, not as an application
	-- convention.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_po_masters_active
		ON po_masters(po_no) WHERE po_is_active = 1;

	-- PO lines; sr is stable across revisions of the same po_no
	CREATE TABLE IF NOT EXISTS po_details (
		po_id TEXT NOT NULL REFERENCES po_masters(id),
		po_sr INTEGER NOT NULL,
		pro_id INTEGER NOT NULL,
		po_qty TEXT NOT NULL,
		po_adj_qty TEXT NOT NULL DEFAULT '0',
		po_rate TEXT NOT NULL DEFAULT '0',
		po_sub_total TEXT NOT NULL DEFAULT '0',
		UNIQUE(po_id, po_sr)
	);

	-- GRN headers
	CREATE TABLE IF NOT EXISTS grn_masters (
		id TEXT PRIMARY KEY,
		grn_no TEXT NOT NULL UNIQUE,
		grn_date TEXT NOT NULL,
		po_id TEXT NOT NULL REFERENCES po_masters(id),
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_grn_masters_po_id
		ON grn_masters(po_id);

	-- GRN lines
	CREATE TABLE IF NOT EXISTS grn_details (
		grn_id TEXT NOT NULL REFERENCES grn_masters(id),
		po_sr INTEGER NOT NULL,
		pro_id INTEGER NOT NULL,
		grn_rec_qty TEXT NOT NULL,
		is_extra_stock INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_grn_details_grn_sr
		ON grn_details(grn_id, po_sr);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HEADER QUERIES
// =============================================================================

const headerColumns = `id, po_no, po_rev, po_date, po_is_active, po_is_closed,
	po_amount, prev_po_id, po_rev_reason, sup_id, transportation, notes, created_at`

func (s *Store) FindHeaderByID(ctx context.Context, id procure.HeaderID) (*procure.POHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+headerColumns+` FROM po_masters WHERE id = ?`, string(id))
	return scanHeader(row)
}

func (s *Store) FindActiveHeaderByNumber(ctx context.Context, poNo string) (*procure.POHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+headerColumns+` FROM po_masters WHERE po_no = ? AND po_is_active = 1`, poNo)
	return scanHeader(row)
}

func (s *Store) FindHeadersByNumber(ctx context.Context, poNo string) ([]procure.POHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+headerColumns+` FROM po_masters WHERE po_no = ? ORDER BY po_rev ASC`, poNo)
	if err != nil {
		return nil, fmt.Errorf("failed to query headers: %w", err)
	}
	defer rows.Close()
	return scanHeaders(rows)
}

func (s *Store) ListActiveHeaders(ctx context.Context, offset, limit int) ([]procure.POHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+headerColumns+` FROM po_masters WHERE po_is_active = 1
		 ORDER BY po_no ASC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list active headers: %w", err)
	}
	defer rows.Close()
	return scanHeaders(rows)
}

// =============================================================================
// HEADER WRITES
// =============================================================================

func (s *Store) InsertHeader(ctx context.Context, h procure.POHeader) (procure.HeaderID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := procure.HeaderID(uuid.NewString())
	var prevID any
	if h.PrevID != nil {
		prevID = string(*h.PrevID)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO po_masters
		(id, po_no, po_rev, po_date, po_is_active, po_is_closed, po_amount,
		 prev_po_id, po_rev_reason, sup_id, transportation, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(id),
		h.PoNo,
		h.Rev,
		h.Date.UTC().Format(time.RFC3339),
		boolToInt(h.Active),
		boolToInt(h.Closed),
		h.Amount.String(),
		prevID,
		nullString(h.RevisionReason),
		nullInt(h.SupID),
		nullString(h.Transportation),
		nullString(h.Notes),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return "", procure.ErrActiveRevisionConflict
		}
		return "", fmt.Errorf("failed to insert header: %w", err)
	}
	return id, nil
}

func (s *Store) UpdateHeader(ctx context.Context, id procure.HeaderID, patch procure.HeaderPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sets []string
	var args []any
	if patch.Active != nil {
		sets = append(sets, "po_is_active = ?")
		args = append(args, boolToInt(*patch.Active))
	}
	if patch.Closed != nil {
		sets = append(sets, "po_is_closed = ?")
		args = append(args, boolToInt(*patch.Closed))
	}
	if patch.Amount != nil {
		sets = append(sets, "po_amount = ?")
		args = append(args, patch.Amount.String())
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, string(id))

	res, err := s.db.ExecContext(ctx,
		`UPDATE po_masters SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return procure.ErrActiveRevisionConflict
		}
		return fmt.Errorf("failed to update header: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if n == 0 {
		return procure.ErrPONotFound
	}
	return nil
}

// =============================================================================
// PO LINES
// =============================================================================

func (s *Store) FindLinesByHeader(ctx context.Context, id procure.HeaderID) ([]procure.POLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT po_id, po_sr, pro_id, po_qty, po_adj_qty, po_rate, po_sub_total
		FROM po_details
		WHERE po_id = ?
		ORDER BY rowid ASC`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query PO lines: %w", err)
	}
	defer rows.Close()

	var lines []procure.POLine
	for rows.Next() {
		var l procure.POLine
		var headerID, qty, adjQty, rate, subTotal string
		if err := rows.Scan(&headerID, &l.Sr, &l.ProID, &qty, &adjQty, &rate, &subTotal); err != nil {
			return nil, fmt.Errorf("failed to scan PO line: %w", err)
		}
		l.HeaderID = procure.HeaderID(headerID)
		if l.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("bad po_qty %q: %w", qty, err)
		}
		if l.AdjQty, err = decimal.NewFromString(adjQty); err != nil {
			return nil, fmt.Errorf("bad po_adj_qty %q: %w", adjQty, err)
		}
		if l.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("bad po_rate %q: %w", rate, err)
		}
		if l.SubTotal, err = decimal.NewFromString(subTotal); err != nil {
			return nil, fmt.Errorf("bad po_sub_total %q: %w", subTotal, err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *Store) InsertLines(ctx context.Context, lines []procure.POLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, l := range lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO po_details (po_id, po_sr, pro_id, po_qty, po_adj_qty, po_rate, po_sub_total)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(l.HeaderID), l.Sr, l.ProID,
			l.Qty.String(), l.AdjQty.String(), l.Rate.String(), l.SubTotal.String(),
		); err != nil {
			return fmt.Errorf("failed to insert PO line %d: %w", l.Sr, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// GRN RECORDS
// =============================================================================

func (s *Store) FindGrnHeaderByNumber(ctx context.Context, grnNo string) (*procure.GrnHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, grn_no, grn_date, po_id, created_at
		FROM grn_masters WHERE grn_no = ?`, grnNo)

	var h procure.GrnHeader
	var id, poID, date, createdAt string
	err := row.Scan(&id, &h.GrnNo, &date, &poID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan GRN header: %w", err)
	}
	h.ID = procure.GrnID(id)
	h.POID = procure.HeaderID(poID)
	h.Date, _ = time.Parse(time.RFC3339, date)
	h.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &h, nil
}

func (s *Store) FindGrnLinesByHeaderIDs(ctx context.Context, ids []procure.HeaderID) ([]procure.GrnLine, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = string(id)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT gd.grn_id, gd.po_sr, gd.pro_id, gd.grn_rec_qty, gd.is_extra_stock
		FROM grn_details gd
		JOIN grn_masters gm ON gm.id = gd.grn_id
		WHERE gm.po_id IN (`+placeholders+`)
		ORDER BY gd.rowid ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query GRN lines: %w", err)
	}
	defer rows.Close()

	var lines []procure.GrnLine
	for rows.Next() {
		var l procure.GrnLine
		var grnID, recQty string
		var extra int
		if err := rows.Scan(&grnID, &l.Sr, &l.ProID, &recQty, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan GRN line: %w", err)
		}
		l.GrnID = procure.GrnID(grnID)
		l.ExtraStock = extra != 0
		if l.RecQty, err = decimal.NewFromString(recQty); err != nil {
			return nil, fmt.Errorf("bad grn_rec_qty %q: %w", recQty, err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *Store) InsertGrnHeader(ctx context.Context, h procure.GrnHeader) (procure.GrnID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := procure.GrnID(uuid.NewString())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO grn_masters (id, grn_no, grn_date, po_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(id),
		h.GrnNo,
		h.Date.UTC().Format(time.RFC3339),
		string(h.POID),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return "", procure.ErrDuplicateGRN
		}
		return "", fmt.Errorf("failed to insert GRN header: %w", err)
	}
	return id, nil
}

func (s *Store) InsertGrnLines(ctx context.Context, lines []procure.GrnLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, l := range lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO grn_details (grn_id, po_sr, pro_id, grn_rec_qty, is_extra_stock)
			VALUES (?, ?, ?, ?, ?)`,
			string(l.GrnID), l.Sr, l.ProID, l.RecQty.String(), boolToInt(l.ExtraStock),
		); err != nil {
			return fmt.Errorf("failed to insert GRN line %d: %w", l.Sr, err)
		}
	}
	return tx.Commit()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHeader(row rowScanner) (*procure.POHeader, error) {
	var h procure.POHeader
	var id, date, amount, createdAt string
	var active, closed int
	var prevID, revReason, transportation, notes sql.NullString
	var supID sql.NullInt64

	err := row.Scan(&id, &h.PoNo, &h.Rev, &date, &active, &closed,
		&amount, &prevID, &revReason, &supID, &transportation, &notes, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan header: %w", err)
	}

	h.ID = procure.HeaderID(id)
	h.Active = active != 0
	h.Closed = closed != 0
	h.Date, _ = time.Parse(time.RFC3339, date)
	h.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if h.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("bad po_amount %q: %w", amount, err)
	}
	if prevID.Valid {
		pid := procure.HeaderID(prevID.String)
		h.PrevID = &pid
	}
	h.RevisionReason = revReason.String
	h.Transportation = transportation.String
	h.Notes = notes.String
	if supID.Valid {
		v := int(supID.Int64)
		h.SupID = &v
	}
	return &h, nil
}

func scanHeaders(rows *sql.Rows) ([]procure.POHeader, error) {
	var headers []procure.POHeader
	for rows.Next() {
		h, err := scanHeader(rows)
		if err != nil {
			return nil, err
		}
		headers = append(headers, *h)
	}
	return headers, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
