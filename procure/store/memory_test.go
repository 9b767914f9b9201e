package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/procure-ledger/procure"
	"github.com/warp/procure-ledger/procure/store"
)

func header(poNo string, rev int, active bool) procure.POHeader {
	return procure.POHeader{
		PoNo:      poNo,
		Rev:       rev,
		Date:      time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		Active:    active,
		Amount:    decimal.NewFromInt(100),
		CreatedAt: time.Now().UTC(),
	}
}

func TestMemory_SingleActivePerNumberEnforced(t *testing.T) {
	// GIVEN: An active header for PO-1
	// WHEN: Inserting a second active header for the same number
	// THEN: Rejected as a revision conflict; inactive siblings are fine

	m := store.NewMemory()
	ctx := context.Background()

	_, err := m.InsertHeader(ctx, header("PO-1", 0, true))
	require.NoError(t, err)

	_, err = m.InsertHeader(ctx, header("PO-1", 1, true))
	assert.ErrorIs(t, err, procure.ErrActiveRevisionConflict)

	_, err = m.InsertHeader(ctx, header("PO-1", 1, false))
	assert.NoError(t, err)
}

func TestMemory_ActiveIndexFollowsPatches(t *testing.T) {
	// GIVEN: An active header deactivated by patch
	// WHEN: Looking up the active header and inserting a successor
	// THEN: The lookup misses and the successor is accepted

	m := store.NewMemory()
	ctx := context.Background()

	id, err := m.InsertHeader(ctx, header("PO-1", 0, true))
	require.NoError(t, err)

	inactive := false
	require.NoError(t, m.UpdateHeader(ctx, id, procure.HeaderPatch{Active: &inactive}))

	h, err := m.FindActiveHeaderByNumber(ctx, "PO-1")
	require.NoError(t, err)
	assert.Nil(t, h)

	_, err = m.InsertHeader(ctx, header("PO-1", 1, true))
	assert.NoError(t, err)

	h, err = m.FindActiveHeaderByNumber(ctx, "PO-1")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, 1, h.Rev)
}

func TestMemory_DuplicateGrnNumberRejected(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	poID, err := m.InsertHeader(ctx, header("PO-1", 0, true))
	require.NoError(t, err)

	grn := procure.GrnHeader{GrnNo: "GRN-1", POID: poID, Date: time.Now().UTC(), CreatedAt: time.Now().UTC()}
	_, err = m.InsertGrnHeader(ctx, grn)
	require.NoError(t, err)

	_, err = m.InsertGrnHeader(ctx, grn)
	assert.ErrorIs(t, err, procure.ErrDuplicateGRN)
}

func TestMemory_ReturnedRecordsAreCopies(t *testing.T) {
	// GIVEN: A stored header
	// WHEN: Mutating the struct a read returned
	// THEN: The stored record is unaffected

	m := store.NewMemory()
	ctx := context.Background()

	id, err := m.InsertHeader(ctx, header("PO-1", 0, true))
	require.NoError(t, err)

	got, err := m.FindHeaderByID(ctx, id)
	require.NoError(t, err)
	got.PoNo = "TAMPERED"

	again, err := m.FindHeaderByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "PO-1", again.PoNo)
}
