/*
revision.go - Revision manager: supersede the active PO revision

PURPOSE:
  A revision deactivates the current PO header, snapshots its pending
  quantities, and creates a new active header whose lines inherit rate and
  carry forward pending as an adjustment quantity.

APPEND-ONLY GUARANTEE:
  Old headers, lines, and GRN lines are never mutated or deleted (the single
  header mutation is flipping its active flag off). The full history is
  auditable by walking PrevID links.

CARRY-FORWARD:
  pendingCarryForward[sr] = max(qty + adjQty - receivedAcrossLineage, 0)

  computed at the moment of revision, over EVERY GRN ever posted against any
  revision sharing the PO number. A line the new revision resubmits gets
  this value as its AdjQty; its sub-total is (qty + adjQty) × rate, so the
  amount covers the full outstanding obligation.
*/
package procure

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Revise supersedes the active revision of poNo with a new one.
//
// Rate resolution per submitted line: the submitted rate if present, else
// the rate of the old line with the same sequence number, else zero.
func (e *Engine) Revise(ctx context.Context, poNo string, req ReviseRequest) (*POHeader, error) {
	if poNo == "" {
		return nil, &InputError{Field: "po_no", Reason: "required"}
	}
	if err := validateLineInputs(req.Lines); err != nil {
		return nil, err
	}

	old, err := e.store.FindActiveHeaderByNumber(ctx, poNo)
	if err != nil {
		return nil, storeErr("lookup active header", err)
	}
	if old == nil {
		return nil, ErrActivePONotFound
	}

	oldLines, err := e.store.FindLinesByHeader(ctx, old.ID)
	if err != nil {
		return nil, storeErr("load PO lines", err)
	}

	lineage, err := e.store.FindHeadersByNumber(ctx, poNo)
	if err != nil {
		return nil, storeErr("load lineage", err)
	}
	ids := make([]HeaderID, len(lineage))
	for i, h := range lineage {
		ids[i] = h.ID
	}
	grnLines, err := e.store.FindGrnLinesByHeaderIDs(ctx, ids)
	if err != nil {
		return nil, storeErr("load GRN lines", err)
	}
	received := receivedBySr(grnLines)

	oldRate := make(map[int]decimal.Decimal, len(oldLines))
	carryForward := make(map[int]decimal.Decimal, len(oldLines))
	for _, l := range oldLines {
		oldRate[l.Sr] = l.Rate
		_, pending := PendingForLine(l.Qty, l.AdjQty, received[l.Sr])
		carryForward[l.Sr] = pending
	}

	// The old header becomes immutable history from here on.
	inactive := false
	if err := e.store.UpdateHeader(ctx, old.ID, HeaderPatch{Active: &inactive}); err != nil {
		return nil, storeErr("deactivate header", err)
	}

	prevID := old.ID
	newHeader := POHeader{
		PoNo:           poNo,
		Rev:            old.Rev + 1,
		Date:           req.Date,
		Active:         true,
		Amount:         decimal.Zero, // placeholder until lines are in
		PrevID:         &prevID,
		RevisionReason: req.Reason,
		SupID:          old.SupID,
		Transportation: old.Transportation,
		Notes:          old.Notes,
		CreatedAt:      time.Now().UTC(),
	}
	newID, err := e.store.InsertHeader(ctx, newHeader)
	if err != nil {
		return nil, storeErr("insert header", err)
	}
	newHeader.ID = newID

	amount := decimal.Zero
	lines := make([]POLine, 0, len(req.Lines))
	for _, in := range req.Lines {
		rate := decimal.Zero
		switch {
		case in.Rate != nil:
			rate = *in.Rate
		default:
			rate = oldRate[in.Sr] // zero value when the line is new
		}
		adj := carryForward[in.Sr]
		subTotal := in.Qty.Add(adj).Mul(rate)
		amount = amount.Add(subTotal)
		lines = append(lines, POLine{
			HeaderID: newID,
			Sr:       in.Sr,
			ProID:    in.ProID,
			Qty:      in.Qty,
			AdjQty:   adj,
			Rate:     rate,
			SubTotal: subTotal,
		})
	}
	if err := e.store.InsertLines(ctx, lines); err != nil {
		return nil, storeErr("insert lines", err)
	}

	if err := e.store.UpdateHeader(ctx, newID, HeaderPatch{Amount: &amount}); err != nil {
		return nil, storeErr("update amount", err)
	}
	newHeader.Amount = amount

	return &newHeader, nil
}
