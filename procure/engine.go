/*
engine.go - Engine construction and purchase order creation

PURPOSE:
  The Engine is the single entry point for all procurement operations. It
  holds a LedgerStore and nothing else; every quantity it reports is derived
  from stored GRN lines at call time.

OPERATIONS (across the procure package):
  CreatePO      (this file)     Create a logical PO at revision 0
  ReceiveGRN    (reconcile.go)  Post a goods receipt, auto-close
  Revise        (revision.go)   Supersede the active revision
  Status        (status.go)     Per-line reconciliation view
  ListStatuses  (status.go)     Paged view over all active POs

CONCURRENCY:
  Operations are request-scoped read-then-write sequences with no explicit
  transaction boundary. The "one active header per po_no" invariant is
  enforced by the store, so a concurrent revision of the same PO surfaces as
  ErrActiveRevisionConflict rather than corrupting the lineage.

SEE ALSO:
  - store.go: The persistence contract
  - errors.go: Error taxonomy and classifiers
*/
package procure

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Engine computes reconciliation state and applies procurement events
// against a LedgerStore.
type Engine struct {
	store LedgerStore
}

// NewEngine creates an engine backed by the given store.
func NewEngine(store LedgerStore) *Engine {
	return &Engine{store: store}
}

// =============================================================================
// PO CREATION
// =============================================================================

// CreatePO creates a new purchase order at revision 0 with computed line
// sub-totals. The PO number must not already have a revision lineage.
func (e *Engine) CreatePO(ctx context.Context, req CreatePORequest) (*CreatePOResult, error) {
	if req.PoNo == "" {
		return nil, &InputError{Field: "po_no", Reason: "required"}
	}
	if err := validateLineInputs(req.Lines); err != nil {
		return nil, err
	}

	existing, err := e.store.FindHeadersByNumber(ctx, req.PoNo)
	if err != nil {
		return nil, storeErr("lookup PO number", err)
	}
	if len(existing) > 0 {
		return nil, ErrPONumberInUse
	}

	amount := decimal.Zero
	lines := make([]POLine, 0, len(req.Lines))
	for _, in := range req.Lines {
		rate := decimal.Zero
		if in.Rate != nil {
			rate = *in.Rate
		}
		subTotal := in.Qty.Mul(rate) // AdjQty is zero on revision 0
		amount = amount.Add(subTotal)
		lines = append(lines, POLine{
			Sr:       in.Sr,
			ProID:    in.ProID,
			Qty:      in.Qty,
			AdjQty:   decimal.Zero,
			Rate:     rate,
			SubTotal: subTotal,
		})
	}

	header := POHeader{
		PoNo:           req.PoNo,
		Rev:            0,
		Date:           req.Date,
		Active:         true,
		Amount:         amount,
		SupID:          req.SupID,
		Transportation: req.Transportation,
		Notes:          req.Notes,
		CreatedAt:      time.Now().UTC(),
	}

	id, err := e.store.InsertHeader(ctx, header)
	if err != nil {
		return nil, storeErr("insert header", err)
	}

	for i := range lines {
		lines[i].HeaderID = id
	}
	if err := e.store.InsertLines(ctx, lines); err != nil {
		return nil, storeErr("insert lines", err)
	}

	return &CreatePOResult{HeaderID: id, PoNo: req.PoNo}, nil
}

// resolveHeader resolves an identifier first as a header id, then as the PO
// number of an active header. Returns (nil, nil) when neither matches.
func (e *Engine) resolveHeader(ctx context.Context, identifier string) (*POHeader, error) {
	h, err := e.store.FindHeaderByID(ctx, HeaderID(identifier))
	if err != nil {
		return nil, storeErr("lookup header by id", err)
	}
	if h != nil {
		return h, nil
	}
	h, err = e.store.FindActiveHeaderByNumber(ctx, identifier)
	if err != nil {
		return nil, storeErr("lookup active header", err)
	}
	return h, nil
}

func validateLineInputs(lines []LineInput) error {
	if len(lines) == 0 {
		return &InputError{Field: "lines", Reason: "at least one line is required"}
	}
	seen := make(map[int]bool, len(lines))
	for _, in := range lines {
		if in.Sr <= 0 {
			return &InputError{Field: "po_sr", Reason: "must be positive"}
		}
		if seen[in.Sr] {
			return &InputError{Field: "po_sr", Reason: "duplicated within request"}
		}
		seen[in.Sr] = true
		if !in.Qty.IsPositive() {
			return &InputError{Field: "po_qty", Reason: "must be positive"}
		}
		if in.Rate != nil && in.Rate.IsNegative() {
			return &InputError{Field: "po_rate", Reason: "must not be negative"}
		}
	}
	return nil
}
