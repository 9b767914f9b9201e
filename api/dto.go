/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

FIELD NAMES:
  The wire format keeps the legacy field vocabulary (po_no, po_sr, pro_id,
  grn_rec_qty, ...) so existing clients keep working.

VALIDATION:
  Shape coercion (dates, decimals) happens here; business validation is the
  engine's job and surfaces through its error taxonomy.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/procure-ledger/procure"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// POLineRequest is one submitted PO line.
type POLineRequest struct {
	PoSr   int             `json:"po_sr"`
	ProID  int             `json:"pro_id"`
	PoQty  decimal.Decimal `json:"po_qty"`
	PoRate *decimal.Decimal `json:"po_rate,omitempty"`
}

// CreatePORequest is the request to create a purchase order.
type CreatePORequest struct {
	PoNo           string          `json:"po_no"`
	PoDate         string          `json:"po_date"` // YYYY-MM-DD
	SupID          *int            `json:"sup_id,omitempty"`
	Transportation string          `json:"transportation,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	Details        []POLineRequest `json:"details"`
}

// RevisePORequest is the request to revise a purchase order.
type RevisePORequest struct {
	PoDate      string          `json:"po_date"`
	PoRevReason string          `json:"po_rev_reason"`
	Details     []POLineRequest `json:"details"`
}

// GrnLineRequest is one submitted receipt line.
type GrnLineRequest struct {
	PoSr      int             `json:"po_sr"`
	ProID     int             `json:"pro_id"`
	GrnRecQty decimal.Decimal `json:"grn_rec_qty"`
}

// CreateGrnRequest is the request to post a goods receipt.
type CreateGrnRequest struct {
	PoNo            string           `json:"po_no"`
	GrnNo           string           `json:"grn_no"`
	GrnDate         string           `json:"grn_date"`
	AllowExtraStock bool             `json:"allow_extra_stock,omitempty"`
	Details         []GrnLineRequest `json:"details"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// CreatePOResponse identifies a created purchase order.
type CreatePOResponse struct {
	Message string `json:"message"`
	PoID    string `json:"po_id"`
	PoNo    string `json:"po_no"`
}

// RevisePOResponse identifies a created revision.
type RevisePOResponse struct {
	Message string `json:"message"`
	PoNo    string `json:"po_no"`
	NewPoID string `json:"new_po_id"`
	PoRev   int    `json:"po_rev"`
}

// CreateGrnResponse summarises a created goods receipt.
type CreateGrnResponse struct {
	Message    string       `json:"message"`
	GrnID      string       `json:"grn_id"`
	PoNo       string       `json:"po_no"`
	PoRevision int          `json:"po_revision"`
	Details    []GrnLineDTO `json:"details"`
}

// GrnLineDTO is one accepted receipt line.
type GrnLineDTO struct {
	PoSr         int             `json:"po_sr"`
	ProID        int             `json:"pro_id"`
	GrnRecQty    decimal.Decimal `json:"grn_rec_qty"`
	IsExtraStock bool            `json:"is_extra_stock"`
}

// POHeaderDTO represents one PO revision in responses.
type POHeaderDTO struct {
	ID             string          `json:"id"`
	PoNo           string          `json:"po_no"`
	PoRev          int             `json:"po_rev"`
	PoDate         string          `json:"po_date"`
	PoIsActive     bool            `json:"po_is_active"`
	PoIsClosed     bool            `json:"po_is_closed"`
	PoAmount       decimal.Decimal `json:"po_amount"`
	PrevPoID       *string         `json:"prev_po_id,omitempty"`
	PoRevReason    string          `json:"po_rev_reason,omitempty"`
	SupID          *int            `json:"sup_id,omitempty"`
	Transportation string          `json:"transportation,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// POLineStatusDTO is the reconciled view of one line.
type POLineStatusDTO struct {
	PoSr       int             `json:"po_sr"`
	ProID      int             `json:"pro_id"`
	PoQty      decimal.Decimal `json:"po_qty"`
	PoAdjQty   decimal.Decimal `json:"po_adj_qty"`
	PoRate     decimal.Decimal `json:"po_rate"`
	PoSubTotal decimal.Decimal `json:"po_sub_total"`
	PoRecQty   decimal.Decimal `json:"po_rec_qty"`
	PendingQty decimal.Decimal `json:"pending_qty"`
	Status     string          `json:"status"`
}

// POStatusDTO is the aggregated status view for one revision.
type POStatusDTO struct {
	PoMaster POHeaderDTO       `json:"poMaster"`
	Details  []POLineStatusDTO `json:"details"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// =============================================================================
// ERROR RESPONSES
// =============================================================================

// ErrorResponse is the JSON shape of every error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toHeaderDTO(h procure.POHeader) POHeaderDTO {
	dto := POHeaderDTO{
		ID:             string(h.ID),
		PoNo:           h.PoNo,
		PoRev:          h.Rev,
		PoDate:         h.Date.Format("2006-01-02"),
		PoIsActive:     h.Active,
		PoIsClosed:     h.Closed,
		PoAmount:       h.Amount,
		PoRevReason:    h.RevisionReason,
		SupID:          h.SupID,
		Transportation: h.Transportation,
		Notes:          h.Notes,
	}
	if h.PrevID != nil {
		s := string(*h.PrevID)
		dto.PrevPoID = &s
	}
	return dto
}

func toStatusDTO(st procure.POStatus) POStatusDTO {
	details := make([]POLineStatusDTO, len(st.Lines))
	for i, ls := range st.Lines {
		details[i] = POLineStatusDTO{
			PoSr:       ls.Line.Sr,
			ProID:      ls.Line.ProID,
			PoQty:      ls.Line.Qty,
			PoAdjQty:   ls.Line.AdjQty,
			PoRate:     ls.Line.Rate,
			PoSubTotal: ls.Line.SubTotal,
			PoRecQty:   ls.Received,
			PendingQty: ls.Pending,
			Status:     ls.Status,
		}
	}
	return POStatusDTO{PoMaster: toHeaderDTO(st.Header), Details: details}
}

func toLineInputs(details []POLineRequest) []procure.LineInput {
	lines := make([]procure.LineInput, len(details))
	for i, d := range details {
		lines[i] = procure.LineInput{
			Sr:    d.PoSr,
			ProID: d.ProID,
			Qty:   d.PoQty,
			Rate:  d.PoRate,
		}
	}
	return lines
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
