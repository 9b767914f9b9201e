/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	procurement data for testing and demos. Each scenario creates purchase
	orders, goods receipts, and revisions that demonstrate specific
	reconciliation behaviors.

AVAILABLE SCENARIOS:

	fresh-po:        Newly created PO, nothing received yet
	partial-receipt: PO with one GRN posted, pending quantity remaining
	revised-po:      Partially received PO superseded by a revision with
	                 carry-forward adjustment quantities
	completed-po:    PO fully received and auto-closed
	extra-stock:     Over-receipt accepted with the extra-stock override

HOW SCENARIOS WORK:
 1. Generate a unique PO number (scenario id + timestamp suffix) so
    scenarios can be loaded repeatedly without colliding
 2. Create the PO through the engine
 3. Post GRNs / revisions through the engine so all invariants hold

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "revised-po"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, poNo)
 3. Add case to LoadScenario handler

SEE ALSO:
  - handlers.go: Request/response plumbing
  - procure/engine.go: Operations scenarios are built from
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/procure-ledger/procure"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-po",
		Name:        "Fresh Purchase Order",
		Description: "Newly created PO with two lines, nothing received",
	},
	{
		ID:          "partial-receipt",
		Name:        "Partial Receipt",
		Description: "PO with one GRN posted, pending quantity remaining",
	},
	{
		ID:          "revised-po",
		Name:        "Revised Purchase Order",
		Description: "Partially received PO superseded by a revision carrying the shortfall forward",
	},
	{
		ID:          "completed-po",
		Name:        "Completed Purchase Order",
		Description: "PO fully received across two GRNs and auto-closed",
	},
	{
		ID:          "extra-stock",
		Name:        "Extra Stock Override",
		Description: "Over-receipt accepted with allow_extra_stock, lines flagged",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario seeds the store with one predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Unique PO number per load so scenarios never collide with earlier
	// loads or with real data.
	poNo := fmt.Sprintf("%s-%d", req.ScenarioID, time.Now().UnixNano()%1_000_000)

	var err error
	switch req.ScenarioID {
	case "fresh-po":
		err = h.loadFreshPOScenario(ctx, poNo)
	case "partial-receipt":
		err = h.loadPartialReceiptScenario(ctx, poNo)
	case "revised-po":
		err = h.loadRevisedPOScenario(ctx, poNo)
	case "completed-po":
		err = h.loadCompletedPOScenario(ctx, poNo)
	case "extra-stock":
		err = h.loadExtraStockScenario(ctx, poNo)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Scenario loaded",
		"po_no":   poNo,
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// createScenarioPO creates the standard two-line PO every scenario starts
// from: 100 units of product 1001 at 5.00, 40 units of product 1002 at 12.50.
func (h *Handler) createScenarioPO(ctx context.Context, poNo string) error {
	rate1 := decimal.NewFromFloat(5.00)
	rate2 := decimal.NewFromFloat(12.50)
	supID := 42

	_, err := h.Engine.CreatePO(ctx, procure.CreatePORequest{
		PoNo:           poNo,
		Date:           time.Now(),
		SupID:          &supID,
		Transportation: "By Road",
		Lines: []procure.LineInput{
			{Sr: 1, ProID: 1001, Qty: decimal.NewFromInt(100), Rate: &rate1},
			{Sr: 2, ProID: 1002, Qty: decimal.NewFromInt(40), Rate: &rate2},
		},
	})
	return err
}

func (h *Handler) loadFreshPOScenario(ctx context.Context, poNo string) error {
	return h.createScenarioPO(ctx, poNo)
}

func (h *Handler) loadPartialReceiptScenario(ctx context.Context, poNo string) error {
	if err := h.createScenarioPO(ctx, poNo); err != nil {
		return err
	}

	_, err := h.Engine.ReceiveGRN(ctx, procure.ReceiveGRNRequest{
		PO:    poNo,
		GrnNo: "GRN-" + poNo + "-1",
		Date:  time.Now(),
		Lines: []procure.GrnLineInput{
			{Sr: 1, ProID: 1001, RecQty: decimal.NewFromInt(60)},
		},
	})
	return err
}

func (h *Handler) loadRevisedPOScenario(ctx context.Context, poNo string) error {
	if err := h.loadPartialReceiptScenario(ctx, poNo); err != nil {
		return err
	}

	// Revise with a reduced base quantity; the shortfall from revision 0
	// carries into the adjustment column.
	_, err := h.Engine.Revise(ctx, poNo, procure.ReviseRequest{
		Date:   time.Now(),
		Reason: "Supplier confirmed reduced allocation",
		Lines: []procure.LineInput{
			{Sr: 1, ProID: 1001, Qty: decimal.NewFromInt(50)},
			{Sr: 2, ProID: 1002, Qty: decimal.NewFromInt(40)},
		},
	})
	return err
}

func (h *Handler) loadCompletedPOScenario(ctx context.Context, poNo string) error {
	if err := h.createScenarioPO(ctx, poNo); err != nil {
		return err
	}

	_, err := h.Engine.ReceiveGRN(ctx, procure.ReceiveGRNRequest{
		PO:    poNo,
		GrnNo: "GRN-" + poNo + "-1",
		Date:  time.Now(),
		Lines: []procure.GrnLineInput{
			{Sr: 1, ProID: 1001, RecQty: decimal.NewFromInt(70)},
			{Sr: 2, ProID: 1002, RecQty: decimal.NewFromInt(40)},
		},
	})
	if err != nil {
		return err
	}

	_, err = h.Engine.ReceiveGRN(ctx, procure.ReceiveGRNRequest{
		PO:    poNo,
		GrnNo: "GRN-" + poNo + "-2",
		Date:  time.Now(),
		Lines: []procure.GrnLineInput{
			{Sr: 1, ProID: 1001, RecQty: decimal.NewFromInt(30)},
		},
	})
	return err
}

func (h *Handler) loadExtraStockScenario(ctx context.Context, poNo string) error {
	if err := h.loadCompletedPOScenario(ctx, poNo); err != nil {
		return err
	}

	// PO is fully received and closed; closed is advisory, so the
	// extra-stock override still admits further receipts.
	_, err := h.Engine.ReceiveGRN(ctx, procure.ReceiveGRNRequest{
		PO:              poNo,
		GrnNo:           "GRN-" + poNo + "-3",
		Date:            time.Now(),
		AllowExtraStock: true,
		Lines: []procure.GrnLineInput{
			{Sr: 1, ProID: 1001, RecQty: decimal.NewFromInt(10)},
		},
	})
	return err
}
