package draft

import (
	"context"

	"tripnav/internal/reconcile"
)

// PickHandle identifies a pending point pick for one draft position.
type PickHandle struct {
	ID       string `json:"id"`
	DraftID  string `json:"draftId"`
	InsertAt int    `json:"insertAt"`
}

type pick struct {
	draftID  string
	insertAt int
}

// BeginPick reserves an insert position in a draft. insertAt < 0 appends.
func (e *Engine) BeginPick(draftID string, insertAt int) (PickHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.drafts[draftID]; !ok {
		return PickHandle{}, ErrDraftNotFound
	}
	h := PickHandle{ID: newID(), DraftID: draftID, InsertAt: insertAt}
	e.picks[h.ID] = pick{draftID: draftID, insertAt: insertAt}
	return h, nil
}

// CompletePick stages raw at the reserved position and closes the pick.
func (e *Engine) CompletePick(ctx context.Context, pickID string, raw reconcile.RawPoint) (StagedPoint, error) {
	e.mu.Lock()
	p, ok := e.picks[pickID]
	if ok {
		delete(e.picks, pickID)
	}
	e.mu.Unlock()
	if !ok {
		return StagedPoint{}, ErrPickNotFound
	}
	return e.stageAt(ctx, p.draftID, p.insertAt, raw)
}

// CancelPick closes a pick without staging anything.
func (e *Engine) CancelPick(pickID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.picks[pickID]; !ok {
		return ErrPickNotFound
	}
	delete(e.picks, pickID)
	return nil
}
