/*
store.go - Persistence interface for purchase order and GRN records

PURPOSE:
  Defines the interface between the reconciliation engine and the database.
  Different implementations can use SQLite, PostgreSQL, or in-memory storage.

KEY INTERFACE:
  LedgerStore: lookup by id, by business number, by lineage; inserts and
  narrow header patches. There is no delete, and lines/GRNs have no update:
  revisions supersede headers instead of editing them.

STORAGE-BOUNDARY INVARIANTS:
  Implementations MUST enforce, not assume:
  - At most one active header per po_no (unique index filtered on active).
    Violations return ErrActiveRevisionConflict.
  - GRN numbers are unique. Violations return ErrDuplicateGRN, which is how
    an at-least-once retry of a partially applied receive is detected.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite
  - procure/store: in-memory for testing and demos

SEE ALSO:
  - reconcile.go, revision.go, status.go: Engine operations using this
*/
package procure

import (
	"context"

	"github.com/shopspring/decimal"
)

// HeaderPatch is the only mutation the store permits on a header: flipping
// the active flag, setting the closed flag, or setting the derived amount.
// Nil fields are left untouched.
type HeaderPatch struct {
	Active *bool
	Closed *bool
	Amount *decimal.Decimal
}

// LedgerStore handles persistence of PO and GRN records.
//
// Lookups return (nil, nil) when nothing matches; the engine decides whether
// that is an error. Inserts assign and return record identifiers.
type LedgerStore interface {
	// FindHeaderByID returns the header with the given id, or nil.
	FindHeaderByID(ctx context.Context, id HeaderID) (*POHeader, error)

	// FindActiveHeaderByNumber returns the single active header for a PO
	// number, or nil.
	FindActiveHeaderByNumber(ctx context.Context, poNo string) (*POHeader, error)

	// FindHeadersByNumber returns every revision sharing a PO number,
	// ordered by revision index ascending.
	FindHeadersByNumber(ctx context.Context, poNo string) ([]POHeader, error)

	// ListActiveHeaders returns a page of active headers ordered by PO
	// number, for status enumeration.
	ListActiveHeaders(ctx context.Context, offset, limit int) ([]POHeader, error)

	// FindLinesByHeader returns a header's lines in insertion order.
	FindLinesByHeader(ctx context.Context, id HeaderID) ([]POLine, error)

	// FindGrnHeaderByNumber returns the GRN header with the given business
	// number, or nil.
	FindGrnHeaderByNumber(ctx context.Context, grnNo string) (*GrnHeader, error)

	// FindGrnLinesByHeaderIDs returns every GRN line whose owning GrnHeader
	// references one of the given PO headers (join through GrnHeader.POID).
	// Passing a full lineage yields the complete receipt history of a
	// logical PO.
	FindGrnLinesByHeaderIDs(ctx context.Context, ids []HeaderID) ([]GrnLine, error)

	// InsertHeader persists a new header and returns its assigned id.
	// Returns ErrActiveRevisionConflict if the header is active and another
	// active header already exists for the same PO number.
	InsertHeader(ctx context.Context, h POHeader) (HeaderID, error)

	// UpdateHeader applies a patch to an existing header.
	UpdateHeader(ctx context.Context, id HeaderID, patch HeaderPatch) error

	// InsertLines persists PO lines.
	InsertLines(ctx context.Context, lines []POLine) error

	// InsertGrnHeader persists a new GRN header and returns its assigned id.
	// Returns ErrDuplicateGRN if the GRN number already exists.
	InsertGrnHeader(ctx context.Context, h GrnHeader) (GrnID, error)

	// InsertGrnLines persists GRN lines.
	InsertGrnLines(ctx context.Context, lines []GrnLine) error
}
