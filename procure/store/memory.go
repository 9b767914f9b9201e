// Package store provides LedgerStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/procure-ledger/procure"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements procure.LedgerStore entirely in memory. The single-active
// invariant and GRN-number uniqueness are enforced under the write lock, the
// same guarantees the SQLite store gets from its unique indexes.
type Memory struct {
	mu         sync.RWMutex
	headers    map[procure.HeaderID]*procure.POHeader
	byNumber   map[string][]procure.HeaderID
	activeByNo map[string]procure.HeaderID
	lines      map[procure.HeaderID][]procure.POLine
	grnHeaders map[procure.GrnID]*procure.GrnHeader
	grnByNo    map[string]procure.GrnID
	grnByPO    map[procure.HeaderID][]procure.GrnID
	grnLines   map[procure.GrnID][]procure.GrnLine
}

func NewMemory() *Memory {
	return &Memory{
		headers:    make(map[procure.HeaderID]*procure.POHeader),
		byNumber:   make(map[string][]procure.HeaderID),
		activeByNo: make(map[string]procure.HeaderID),
		lines:      make(map[procure.HeaderID][]procure.POLine),
		grnHeaders: make(map[procure.GrnID]*procure.GrnHeader),
		grnByNo:    make(map[string]procure.GrnID),
		grnByPO:    make(map[procure.HeaderID][]procure.GrnID),
		grnLines:   make(map[procure.GrnID][]procure.GrnLine),
	}
}

func (m *Memory) FindHeaderByID(_ context.Context, id procure.HeaderID) (*procure.POHeader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.headers[id]
	if !ok {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

func (m *Memory) FindActiveHeaderByNumber(_ context.Context, poNo string) (*procure.POHeader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.activeByNo[poNo]
	if !ok {
		return nil, nil
	}
	cp := *m.headers[id]
	return &cp, nil
}

func (m *Memory) FindHeadersByNumber(_ context.Context, poNo string) ([]procure.POHeader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byNumber[poNo]
	result := make([]procure.POHeader, 0, len(ids))
	for _, id := range ids {
		result = append(result, *m.headers[id])
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Rev < result[j].Rev })
	return result, nil
}

func (m *Memory) ListActiveHeaders(_ context.Context, offset, limit int) ([]procure.POHeader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	poNos := make([]string, 0, len(m.activeByNo))
	for poNo := range m.activeByNo {
		poNos = append(poNos, poNo)
	}
	sort.Strings(poNos)

	if offset >= len(poNos) {
		return nil, nil
	}
	poNos = poNos[offset:]
	if limit < len(poNos) {
		poNos = poNos[:limit]
	}

	result := make([]procure.POHeader, 0, len(poNos))
	for _, poNo := range poNos {
		result = append(result, *m.headers[m.activeByNo[poNo]])
	}
	return result, nil
}

func (m *Memory) FindLinesByHeader(_ context.Context, id procure.HeaderID) ([]procure.POLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]procure.POLine, len(m.lines[id]))
	copy(result, m.lines[id])
	return result, nil
}

func (m *Memory) FindGrnHeaderByNumber(_ context.Context, grnNo string) (*procure.GrnHeader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.grnByNo[grnNo]
	if !ok {
		return nil, nil
	}
	cp := *m.grnHeaders[id]
	return &cp, nil
}

func (m *Memory) FindGrnLinesByHeaderIDs(_ context.Context, ids []procure.HeaderID) ([]procure.GrnLine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []procure.GrnLine
	for _, id := range ids {
		for _, grnID := range m.grnByPO[id] {
			result = append(result, m.grnLines[grnID]...)
		}
	}
	return result, nil
}

func (m *Memory) InsertHeader(_ context.Context, h procure.POHeader) (procure.HeaderID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h.Active {
		if _, exists := m.activeByNo[h.PoNo]; exists {
			return "", procure.ErrActiveRevisionConflict
		}
	}

	h.ID = procure.HeaderID(uuid.NewString())
	m.headers[h.ID] = &h
	m.byNumber[h.PoNo] = append(m.byNumber[h.PoNo], h.ID)
	if h.Active {
		m.activeByNo[h.PoNo] = h.ID
	}
	return h.ID, nil
}

func (m *Memory) UpdateHeader(_ context.Context, id procure.HeaderID, patch procure.HeaderPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.headers[id]
	if !ok {
		return procure.ErrPONotFound
	}
	if patch.Active != nil {
		if *patch.Active && !h.Active {
			if _, exists := m.activeByNo[h.PoNo]; exists {
				return procure.ErrActiveRevisionConflict
			}
			m.activeByNo[h.PoNo] = id
		}
		if !*patch.Active && h.Active {
			delete(m.activeByNo, h.PoNo)
		}
		h.Active = *patch.Active
	}
	if patch.Closed != nil {
		h.Closed = *patch.Closed
	}
	if patch.Amount != nil {
		h.Amount = *patch.Amount
	}
	return nil
}

func (m *Memory) InsertLines(_ context.Context, lines []procure.POLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range lines {
		m.lines[l.HeaderID] = append(m.lines[l.HeaderID], l)
	}
	return nil
}

func (m *Memory) InsertGrnHeader(_ context.Context, h procure.GrnHeader) (procure.GrnID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.grnByNo[h.GrnNo]; exists {
		return "", procure.ErrDuplicateGRN
	}

	h.ID = procure.GrnID(uuid.NewString())
	m.grnHeaders[h.ID] = &h
	m.grnByNo[h.GrnNo] = h.ID
	m.grnByPO[h.POID] = append(m.grnByPO[h.POID], h.ID)
	return h.ID, nil
}

func (m *Memory) InsertGrnLines(_ context.Context, lines []procure.GrnLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range lines {
		m.grnLines[l.GrnID] = append(m.grnLines[l.GrnID], l)
	}
	return nil
}
