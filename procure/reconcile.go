/*
reconcile.go - Received/pending aggregation, GRN intake, auto-close

PURPOSE:
  The reconciliation core. Received quantity is ALWAYS derived by summing
  GRN lines - there is no cached counter anywhere that could drift.

PENDING FORMULA:
  pending = max(po_qty + po_adj_qty - received, 0)

  The adjustment quantity is ADDITIVE: it represents shortfall carried
  forward from the prior revision, so it increases the requirement. The
  divergent legacy variant (adjustment subtracted from the requirement) is
  deliberately not implemented. The raw signed value is used internally for
  completion checks; the floored value is what gets reported.

SCOPING RULES:
  - GRN intake and auto-close aggregate over the SINGLE targeted revision's
    own GRNs: a receipt is posted against one revision's lines, and
    auto-close answers "is this revision fully receipted".
  - Status reporting (status.go) and revision carry-forward (revision.go)
    aggregate over the FULL lineage: every GRN ever posted against any
    revision sharing the PO number.

SEE ALSO:
  - revision.go: Carry-forward uses PendingForLine over the lineage
  - status.go: Reporting uses the same formula
*/
package procure

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PURE AGGREGATION
// =============================================================================

// PendingForLine applies the canonical pending formula. It returns the
// total required quantity and the pending quantity floored at zero. The
// caller is responsible for scoping received to the right GRN lineage.
func PendingForLine(qty, adjQty, received decimal.Decimal) (required, pending decimal.Decimal) {
	required = qty.Add(adjQty)
	pending = required.Sub(received)
	if pending.IsNegative() {
		pending = decimal.Zero
	}
	return required, pending
}

// receivedBySr sums received quantity per line sequence number.
func receivedBySr(grnLines []GrnLine) map[int]decimal.Decimal {
	totals := make(map[int]decimal.Decimal)
	for _, g := range grnLines {
		totals[g.Sr] = totals[g.Sr].Add(g.RecQty)
	}
	return totals
}

// =============================================================================
// GRN INTAKE
// =============================================================================

// ReceiveGRN validates and posts a goods receipt against the currently
// active revision of a PO.
//
// Validation is all-or-nothing: every submitted line is checked before any
// write occurs. A line whose pending quantity is already zero is rejected
// unless AllowExtraStock is set, in which case it is accepted and flagged.
// After the writes, the targeted revision is auto-closed if fully receipted.
func (e *Engine) ReceiveGRN(ctx context.Context, req ReceiveGRNRequest) (*ReceiveGRNResult, error) {
	if req.PO == "" {
		return nil, &InputError{Field: "po", Reason: "required"}
	}
	if req.GrnNo == "" {
		return nil, &InputError{Field: "grn_no", Reason: "required"}
	}
	if len(req.Lines) == 0 {
		return nil, &InputError{Field: "lines", Reason: "at least one line is required"}
	}

	header, err := e.resolveHeader(ctx, req.PO)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, ErrPONotFound
	}
	if !header.Active {
		return nil, ErrPONotActive
	}

	// Retry tolerance: a partially applied receive that already committed
	// its GRN header must not be double-counted.
	if existing, err := e.store.FindGrnHeaderByNumber(ctx, req.GrnNo); err != nil {
		return nil, storeErr("lookup GRN number", err)
	} else if existing != nil {
		return nil, ErrDuplicateGRN
	}

	poLines, err := e.store.FindLinesByHeader(ctx, header.ID)
	if err != nil {
		return nil, storeErr("load PO lines", err)
	}
	lineBySr := make(map[int]POLine, len(poLines))
	for _, l := range poLines {
		lineBySr[l.Sr] = l
	}

	// Receipts count against this revision only, not the full lineage.
	grnLines, err := e.store.FindGrnLinesByHeaderIDs(ctx, []HeaderID{header.ID})
	if err != nil {
		return nil, storeErr("load GRN lines", err)
	}
	received := receivedBySr(grnLines)

	// Validate all, then write all.
	seen := make(map[int]bool, len(req.Lines))
	rows := make([]GrnLine, 0, len(req.Lines))
	for _, in := range req.Lines {
		if !in.RecQty.IsPositive() {
			return nil, &InputError{Field: "grn_rec_qty", Reason: "must be positive"}
		}
		if seen[in.Sr] {
			return nil, &InputError{Field: "po_sr", Reason: "duplicated within request"}
		}
		seen[in.Sr] = true

		line, ok := lineBySr[in.Sr]
		if !ok {
			return nil, &LineError{Sr: in.Sr, ProID: in.ProID, Err: ErrUnknownLine}
		}
		if line.ProID != in.ProID {
			return nil, &LineError{Sr: in.Sr, ProID: in.ProID, Err: ErrProductMismatch}
		}

		required := line.Required()
		pending := required.Sub(received[in.Sr]) // signed, for the completion check
		if !pending.IsPositive() && !req.AllowExtraStock {
			return nil, &LineError{Sr: in.Sr, ProID: in.ProID, Err: ErrFullyReceived}
		}

		rows = append(rows, GrnLine{
			Sr:         in.Sr,
			ProID:      in.ProID,
			RecQty:     in.RecQty,
			ExtraStock: !pending.IsPositive(),
		})
	}

	grnID, err := e.store.InsertGrnHeader(ctx, GrnHeader{
		GrnNo:     req.GrnNo,
		Date:      req.Date,
		POID:      header.ID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, storeErr("insert GRN header", err)
	}
	for i := range rows {
		rows[i].GrnID = grnID
	}
	if err := e.store.InsertGrnLines(ctx, rows); err != nil {
		return nil, storeErr("insert GRN lines", err)
	}

	if err := e.autoClose(ctx, header.ID); err != nil {
		return nil, err
	}

	return &ReceiveGRNResult{
		GrnID:     grnID,
		PoNo:      header.PoNo,
		Rev:       header.Rev,
		LineCount: len(rows),
		Lines:     rows,
	}, nil
}

// =============================================================================
// AUTO-CLOSE
// =============================================================================

// autoClose marks a header closed when every one of its lines is fully
// receipted within that header's own GRNs. Advisory bookkeeping: the closed
// flag never blocks receipt by itself - that is governed by the active flag
// and AllowExtraStock.
func (e *Engine) autoClose(ctx context.Context, id HeaderID) error {
	poLines, err := e.store.FindLinesByHeader(ctx, id)
	if err != nil {
		return storeErr("load PO lines", err)
	}
	if len(poLines) == 0 {
		return nil
	}

	grnLines, err := e.store.FindGrnLinesByHeaderIDs(ctx, []HeaderID{id})
	if err != nil {
		return storeErr("load GRN lines", err)
	}
	received := receivedBySr(grnLines)

	for _, line := range poLines {
		if received[line.Sr].LessThan(line.Required()) {
			return nil
		}
	}

	closed := true
	if err := e.store.UpdateHeader(ctx, id, HeaderPatch{Closed: &closed}); err != nil {
		return storeErr("close header", err)
	}
	return nil
}
