/*
status.go - Status reporter: per-line reconciliation views

PURPOSE:
  Produces the aggregated received/pending/completed view for a PO. The
  view reports one named revision's line set; received quantity is summed
  lineage-wide, so a line completed by receipts against earlier revisions
  reports Completed even if this revision saw no GRN itself.
*/
package procure

import "context"

// Status returns the reconciliation view for one PO revision.
//
// The identifier resolves first as a header id, then as the PO number of
// the active revision. Lines are returned in insertion order.
func (e *Engine) Status(ctx context.Context, identifier string) (*POStatus, error) {
	if identifier == "" {
		return nil, &InputError{Field: "id", Reason: "required"}
	}
	header, err := e.resolveHeader(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, ErrPONotFound
	}
	return e.statusForHeader(ctx, header)
}

// ListStatuses returns reconciliation views for a page of active headers.
// A limit of zero or less applies the default page size.
func (e *Engine) ListStatuses(ctx context.Context, offset, limit int) ([]POStatus, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 50
	}
	headers, err := e.store.ListActiveHeaders(ctx, offset, limit)
	if err != nil {
		return nil, storeErr("list active headers", err)
	}

	statuses := make([]POStatus, 0, len(headers))
	for i := range headers {
		st, err := e.statusForHeader(ctx, &headers[i])
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *st)
	}
	return statuses, nil
}

func (e *Engine) statusForHeader(ctx context.Context, header *POHeader) (*POStatus, error) {
	lines, err := e.store.FindLinesByHeader(ctx, header.ID)
	if err != nil {
		return nil, storeErr("load PO lines", err)
	}

	lineage, err := e.store.FindHeadersByNumber(ctx, header.PoNo)
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

	statuses := make([]LineStatus, 0, len(lines))
	for _, l := range lines {
		_, pending := PendingForLine(l.Qty, l.AdjQty, received[l.Sr])
		label := StatusPending
		if !pending.IsPositive() {
			label = StatusCompleted
		}
		statuses = append(statuses, LineStatus{
			Line:     l,
			Received: received[l.Sr],
			Pending:  pending,
			Status:   label,
		})
	}

	return &POStatus{Header: *header, Lines: statuses}, nil
}
