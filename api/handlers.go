/*
handlers.go - HTTP API handlers for the procurement ledger

PURPOSE:
  Exposes the reconciliation engine via REST. Handles HTTP request/response,
  JSON serialization, and delegates every decision to the engine.

ENDPOINTS:
  Purchase orders:
    POST   /api/purchase                 Create PO
    POST   /api/purchase/{po_no}/revision Revise PO
    GET    /api/purchase/status          List active PO statuses (paged)
    GET    /api/purchase/{id}/status     Single status (header id or po_no)

  Goods receipts:
    POST   /api/grn                      Post a GRN

  Scenarios:
    GET    /api/scenarios                List demo scenarios
    POST   /api/scenarios/load           Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with the status derived from the engine's
  error classifiers:
  - 400: invalid input
  - 404: PO / active revision not found
  - 409: business-rule violation or duplicate GRN
  - 503: retryable storage failure
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/warp/procure-ledger/procure"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *procure.Engine
}

// NewHandler creates a new handler around the given engine.
func NewHandler(engine *procure.Engine) *Handler {
	return &Handler{Engine: engine}
}

// =============================================================================
// PURCHASE ORDER HANDLERS
// =============================================================================

// CreatePO creates a purchase order at revision 0.
// POST /api/purchase
func (h *Handler) CreatePO(w http.ResponseWriter, r *http.Request) {
	var req CreatePORequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := parseDate(req.PoDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid po_date format (use YYYY-MM-DD)", err)
		return
	}

	result, err := h.Engine.CreatePO(r.Context(), procure.CreatePORequest{
		PoNo:           req.PoNo,
		Date:           date,
		SupID:          req.SupID,
		Transportation: req.Transportation,
		Notes:          req.Notes,
		Lines:          toLineInputs(req.Details),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, CreatePOResponse{
		Message: "Purchase Order Created Successfully",
		PoID:    string(result.HeaderID),
		PoNo:    result.PoNo,
	})
}

// RevisePO supersedes the active revision of a PO.
// POST /api/purchase/{po_no}/revision
func (h *Handler) RevisePO(w http.ResponseWriter, r *http.Request) {
	poNo := chi.URLParam(r, "po_no")

	var req RevisePORequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := parseDate(req.PoDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid po_date format (use YYYY-MM-DD)", err)
		return
	}

	header, err := h.Engine.Revise(r.Context(), poNo, procure.ReviseRequest{
		Date:   date,
		Reason: req.PoRevReason,
		Lines:  toLineInputs(req.Details),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, RevisePOResponse{
		Message: "Purchase Order Revised Successfully",
		PoNo:    header.PoNo,
		NewPoID: string(header.ID),
		PoRev:   header.Rev,
	})
}

// GetStatus returns the reconciliation view for one PO.
// GET /api/purchase/{id}/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status, err := h.Engine.Status(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toStatusDTO(*status))
}

// ListStatuses returns a page of active PO statuses.
// GET /api/purchase/status?offset=0&limit=50
func (h *Handler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	statuses, err := h.Engine.ListStatuses(r.Context(), offset, limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dtos := make([]POStatusDTO, len(statuses))
	for i, st := range statuses {
		dtos[i] = toStatusDTO(st)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// GRN HANDLERS
// =============================================================================

// CreateGrn posts a goods receipt against the active revision.
// POST /api/grn
func (h *Handler) CreateGrn(w http.ResponseWriter, r *http.Request) {
	var req CreateGrnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := parseDate(req.GrnDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid grn_date format (use YYYY-MM-DD)", err)
		return
	}

	lines := make([]procure.GrnLineInput, len(req.Details))
	for i, d := range req.Details {
		lines[i] = procure.GrnLineInput{Sr: d.PoSr, ProID: d.ProID, RecQty: d.GrnRecQty}
	}

	result, err := h.Engine.ReceiveGRN(r.Context(), procure.ReceiveGRNRequest{
		PO:              req.PoNo,
		GrnNo:           req.GrnNo,
		Date:            date,
		AllowExtraStock: req.AllowExtraStock,
		Lines:           lines,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	details := make([]GrnLineDTO, len(result.Lines))
	for i, l := range result.Lines {
		details[i] = GrnLineDTO{
			PoSr:         l.Sr,
			ProID:        l.ProID,
			GrnRecQty:    l.RecQty,
			IsExtraStock: l.ExtraStock,
		}
	}

	writeJSON(w, http.StatusCreated, CreateGrnResponse{
		Message:    "GRN Created Successfully",
		GrnID:      string(result.GrnID),
		PoNo:       result.PoNo,
		PoRevision: result.Rev,
		Details:    details,
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case procure.IsNotFound(err):
		writeError(w, http.StatusNotFound, "PO Not Found", err)
	case errors.Is(err, procure.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case procure.IsClientError(err):
		writeError(w, http.StatusConflict, "Request rejected", err)
	case procure.IsRetryable(err):
		writeError(w, http.StatusServiceUnavailable, "Temporary storage failure, retry", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
