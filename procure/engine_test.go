package procure_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/procure-ledger/procure"
	"github.com/warp/procure-ledger/procure/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestEngine() *procure.Engine {
	return procure.NewEngine(store.NewMemory())
}

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func rate(v float64) *decimal.Decimal {
	r := decimal.NewFromFloat(v)
	return &r
}

func jan(day int) time.Time {
	return time.Date(2026, time.January, day, 0, 0, 0, 0, time.UTC)
}

// createPO creates a PO with a single line: 100 units of product 1001 at 5.00.
func createPO(t *testing.T, e *procure.Engine, poNo string) *procure.CreatePOResult {
	t.Helper()
	result, err := e.CreatePO(context.Background(), procure.CreatePORequest{
		PoNo: poNo,
		Date: jan(1),
		Lines: []procure.LineInput{
			{Sr: 1, ProID: 1001, Qty: d(100), Rate: rate(5)},
		},
	})
	require.NoError(t, err)
	return result
}

// receive posts a single-line GRN for product 1001.
func receive(t *testing.T, e *procure.Engine, poNo, grnNo string, qty int64) *procure.ReceiveGRNResult {
	t.Helper()
	result, err := e.ReceiveGRN(context.Background(), procure.ReceiveGRNRequest{
		PO:    poNo,
		GrnNo: grnNo,
		Date:  jan(5),
		Lines: []procure.GrnLineInput{
			{Sr: 1, ProID: 1001, RecQty: d(qty)},
		},
	})
	require.NoError(t, err)
	return result
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, actual.Equal(decimal.RequireFromString(expected)),
		"expected %s, got %s: %v", expected, actual, msgAndArgs)
}

// =============================================================================
// PO CREATION TESTS
// =============================================================================

func TestCreatePO_ComputesSubTotalsAndAmount(t *testing.T) {
	// GIVEN: A new PO with two lines at different rates
	// WHEN: Creating it
	// THEN: Each sub-total is qty x rate and the header amount is their sum

	e := newTestEngine()
	ctx := context.Background()

	result, err := e.CreatePO(ctx, procure.CreatePORequest{
		PoNo: "PO-1",
		Date: jan(1),
		Lines: []procure.LineInput{
			{Sr: 1, ProID: 1001, Qty: d(100), Rate: rate(5)},
			{Sr: 2, ProID: 1002, Qty: d(40), Rate: rate(12.5)},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.HeaderID)

	status, err := e.Status(ctx, string(result.HeaderID))
	require.NoError(t, err)

	assert.Equal(t, 0, status.Header.Rev)
	assert.True(t, status.Header.Active)
	assert.False(t, status.Header.Closed)
	assertDecimal(t, "1000", status.Header.Amount) // 500 + 500

	require.Len(t, status.Lines, 2)
	assertDecimal(t, "500", status.Lines[0].Line.SubTotal)
	assertDecimal(t, "500", status.Lines[1].Line.SubTotal)
	assertDecimal(t, "0", status.Lines[0].Line.AdjQty, "no adjustment at revision 0")
}

func TestCreatePO_OmittedRateDefaultsToZero(t *testing.T) {
	// GIVEN: A line submitted without a rate
	// WHEN: Creating the PO
	// THEN: Rate and sub-total are zero, quantity tracking still works

	e := newTestEngine()
	ctx := context.Background()

	result, err := e.CreatePO(ctx, procure.CreatePORequest{
		PoNo: "PO-1",
		Date: jan(1),
		Lines: []procure.LineInput{
			{Sr: 1, ProID: 1001, Qty: d(10)},
		},
	})
	require.NoError(t, err)

	status, err := e.Status(ctx, string(result.HeaderID))
	require.NoError(t, err)
	assertDecimal(t, "0", status.Lines[0].Line.Rate)
	assertDecimal(t, "0", status.Lines[0].Line.SubTotal)
	assertDecimal(t, "10", status.Lines[0].Pending)
}

func TestCreatePO_DuplicateNumberRejected(t *testing.T) {
	// GIVEN: An existing PO lineage for PO-1
	// WHEN: Creating another PO with the same number
	// THEN: Rejected, even if the existing lineage has no active revision

	e := newTestEngine()
	createPO(t, e, "PO-1")

	_, err := e.CreatePO(context.Background(), procure.CreatePORequest{
		PoNo: "PO-1",
		Date: jan(2),
		Lines: []procure.LineInput{
			{Sr: 1, ProID: 2001, Qty: d(5)},
		},
	})
	assert.ErrorIs(t, err, procure.ErrPONumberInUse)
	assert.True(t, procure.IsClientError(err))
}

func TestCreatePO_ValidationMatrix(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	cases := []struct {
		name  string
		req   procure.CreatePORequest
		field string
	}{
		{
			name:  "missing po_no",
			req:   procure.CreatePORequest{Date: jan(1), Lines: []procure.LineInput{{Sr: 1, ProID: 1, Qty: d(1)}}},
			field: "po_no",
		},
		{
			name:  "no lines",
			req:   procure.CreatePORequest{PoNo: "PO-X", Date: jan(1)},
			field: "lines",
		},
		{
			name: "zero quantity",
			req: procure.CreatePORequest{PoNo: "PO-X", Date: jan(1),
				Lines: []procure.LineInput{{Sr: 1, ProID: 1, Qty: d(0)}}},
			field: "po_qty",
		},
		{
			name: "negative quantity",
			req: procure.CreatePORequest{PoNo: "PO-X", Date: jan(1),
				Lines: []procure.LineInput{{Sr: 1, ProID: 1, Qty: d(-5)}}},
			field: "po_qty",
		},
		{
			name: "non-positive sequence",
			req: procure.CreatePORequest{PoNo: "PO-X", Date: jan(1),
				Lines: []procure.LineInput{{Sr: 0, ProID: 1, Qty: d(5)}}},
			field: "po_sr",
		},
		{
			name: "duplicate sequence",
			req: procure.CreatePORequest{PoNo: "PO-X", Date: jan(1),
				Lines: []procure.LineInput{
					{Sr: 1, ProID: 1, Qty: d(5)},
					{Sr: 1, ProID: 2, Qty: d(5)},
				}},
			field: "po_sr",
		},
		{
			name: "negative rate",
			req: procure.CreatePORequest{PoNo: "PO-X", Date: jan(1),
				Lines: []procure.LineInput{{Sr: 1, ProID: 1, Qty: d(5), Rate: rate(-1)}}},
			field: "po_rate",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.CreatePO(ctx, tc.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, procure.ErrInvalidInput)

			var inputErr *procure.InputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, tc.field, inputErr.Field)
		})
	}
}
