/*
Package procure provides the procurement reconciliation engine.

PURPOSE:
  This package contains the domain model and algorithms for tracking purchase
  order lifecycle state: POs, their revisions, and goods-receipt notes (GRNs)
  recorded against them. The hard part is reconciliation - computing, for any
  PO line across all its revisions, how much has been ordered, adjusted,
  received, and is still pending.

KEY CONCEPTS IN THIS FILE (types.go):
  - POHeader / POLine: A purchase order revision and its line items
  - GrnHeader / GrnLine: A goods receipt and the quantities it records
  - LineStatus / POStatus: Computed reconciliation views
  - Request/result types for the engine operations

DESIGN PRINCIPLES:
  1. Immutability: lines and GRNs are never modified; a revision supersedes
     the old header instead of editing it
  2. Precision: decimal.Decimal for all quantities, rates, and amounts
  3. Derived truth: received quantity is always aggregated from GRN lines,
     never cached on the PO line
  4. Type Safety: strong typing for header/GRN identifiers

SEE ALSO:
  - store.go: Persistence interface the engine is written against
  - reconcile.go: Pending/received computation and GRN intake
  - revision.go: Revision creation with pending carry-forward
*/
package procure

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// HeaderID identifies one PO revision. A logical PO (one PoNo) has one
// header per revision.
type HeaderID string

// GrnID identifies one goods-receipt note.
type GrnID string

// =============================================================================
// PURCHASE ORDER - Header and lines
// =============================================================================

// POHeader is one revision of a purchase order.
//
// Exactly one header per PoNo may be Active at a time; the store enforces
// this. A header is mutated only to flip Active off (on supersession), to
// set Closed (auto-close bookkeeping), or to set Amount after line insertion.
// Never deleted.
type POHeader struct {
	ID             HeaderID
	PoNo           string // business number, shared across revisions
	Rev            int    // 0 for the original, +1 per revision
	Date           time.Time
	Active         bool
	Closed         bool // advisory: every line fully receipted within this revision
	Amount         decimal.Decimal
	PrevID         *HeaderID // previous revision, nil for rev 0
	RevisionReason string
	SupID          *int
	Transportation string
	Notes          string
	CreatedAt      time.Time
}

// POLine is a single line item under a header.
//
// Sr is unique within a header and stable across revisions: line 3 on rev 0
// corresponds to line 3 on rev 1. AdjQty is quantity carried forward from a
// prior revision's shortfall.
type POLine struct {
	HeaderID HeaderID
	Sr       int
	ProID    int
	Qty      decimal.Decimal
	AdjQty   decimal.Decimal
	Rate     decimal.Decimal
	SubTotal decimal.Decimal // (Qty + AdjQty) × Rate
}

// Required is the total quantity this line obliges the supplier to deliver.
func (l POLine) Required() decimal.Decimal {
	return l.Qty.Add(l.AdjQty)
}

// =============================================================================
// GOODS RECEIPT NOTE - Header and lines
// =============================================================================

// GrnHeader records one goods receipt against a specific PO revision.
// Created once, never mutated after detail insertion, never deleted.
type GrnHeader struct {
	ID        GrnID
	GrnNo     string
	Date      time.Time
	POID      HeaderID // the revision that was active at time of receipt
	CreatedAt time.Time
}

// GrnLine records the received quantity for one PO line. Immutable.
type GrnLine struct {
	GrnID      GrnID
	Sr         int
	ProID      int
	RecQty     decimal.Decimal
	ExtraStock bool // receipt exceeded the then-outstanding pending quantity
}

// =============================================================================
// STATUS VIEWS - Computed reconciliation state
// =============================================================================

const (
	StatusCompleted = "Completed"
	StatusPending   = "Pending"
)

// LineStatus is the reconciled view of one PO line: received summed across
// the full revision lineage, pending floored at zero.
type LineStatus struct {
	Line     POLine
	Received decimal.Decimal
	Pending  decimal.Decimal
	Status   string // StatusCompleted or StatusPending
}

// POStatus is the aggregated per-line status view for one named revision.
type POStatus struct {
	Header POHeader
	Lines  []LineStatus
}

// =============================================================================
// ENGINE REQUESTS AND RESULTS
// =============================================================================

// LineInput is one submitted PO line, for creation or revision.
// A nil Rate means "inherit from the prior revision" (revision) or zero
// (creation).
type LineInput struct {
	Sr    int
	ProID int
	Qty   decimal.Decimal
	Rate  *decimal.Decimal
}

// CreatePORequest creates a new logical PO at revision 0.
type CreatePORequest struct {
	PoNo           string
	Date           time.Time
	SupID          *int
	Transportation string
	Notes          string
	Lines          []LineInput
}

// CreatePOResult identifies the created header.
type CreatePOResult struct {
	HeaderID HeaderID
	PoNo     string
}

// ReviseRequest supersedes the active revision of a PO.
type ReviseRequest struct {
	Date   time.Time
	Reason string
	Lines  []LineInput
}

// GrnLineInput is one submitted receipt line.
type GrnLineInput struct {
	Sr     int
	ProID  int
	RecQty decimal.Decimal
}

// ReceiveGRNRequest posts a goods receipt against the currently active
// revision. PO may be a header id or a PO business number.
type ReceiveGRNRequest struct {
	PO              string
	GrnNo           string
	Date            time.Time
	AllowExtraStock bool
	Lines           []GrnLineInput
}

// ReceiveGRNResult summarises a created GRN.
type ReceiveGRNResult struct {
	GrnID     GrnID
	PoNo      string
	Rev       int
	LineCount int
	Lines     []GrnLine
}
