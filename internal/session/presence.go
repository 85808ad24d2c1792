package session

import (
	"sort"
	"sync"

	"github.com/maxischmaxi/code-preview-server/internal/models"
)

type presenceKey struct {
	sessionID string
	userID    string
}

type slot[T any] struct {
	value T
	seq   uint64
}

// Presence holds the ephemeral cursor and selection state of every session.
// Entries are keyed by (session, user); lists come back in first-insertion order.
type Presence struct {
	mu         sync.Mutex
	seq        uint64
	cursors    map[presenceKey]*slot[models.Cursor]
	selections map[presenceKey]*slot[models.Selection]
}

func NewPresence() *Presence {
	return &Presence{
		cursors:    make(map[presenceKey]*slot[models.Cursor]),
		selections: make(map[presenceKey]*slot[models.Selection]),
	}
}

// SetCursor upserts the cursor and returns every cursor of the session.
func (p *Presence) SetCursor(pos models.CursorPosition) []models.CursorPosition {
	p.mu.Lock()
	defer p.mu.Unlock()
	upsert(p, p.cursors, presenceKey{pos.SessionID, pos.UserID}, pos.Cursor)
	return p.cursorsLocked(pos.SessionID)
}

// SetSelection upserts the selection and returns every selection of the session.
func (p *Presence) SetSelection(sel models.CursorSelection) []models.CursorSelection {
	p.mu.Lock()
	defer p.mu.Unlock()
	upsert(p, p.selections, presenceKey{sel.SessionID, sel.UserID}, sel.Selection)
	return p.selectionsLocked(sel.SessionID)
}

// Remove deletes both the cursor and the selection of userID in sessionID and
// reports whether anything was there.
func (p *Presence) Remove(sessionID, userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	k := presenceKey{sessionID, userID}
	_, hadCursor := p.cursors[k]
	_, hadSelection := p.selections[k]
	delete(p.cursors, k)
	delete(p.selections, k)
	return hadCursor || hadSelection
}

func (p *Presence) Cursors(sessionID string) []models.CursorPosition {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursorsLocked(sessionID)
}

func (p *Presence) Selections(sessionID string) []models.CursorSelection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.selectionsLocked(sessionID)
}

func (p *Presence) cursorsLocked(sessionID string) []models.CursorPosition {
	keys := orderedKeys(p.cursors, sessionID)
	out := make([]models.CursorPosition, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.CursorPosition{SessionID: k.sessionID, UserID: k.userID, Cursor: p.cursors[k].value})
	}
	return out
}

func (p *Presence) selectionsLocked(sessionID string) []models.CursorSelection {
	keys := orderedKeys(p.selections, sessionID)
	out := make([]models.CursorSelection, 0, len(keys))
	for _, k := range keys {
		out = append(out, models.CursorSelection{SessionID: k.sessionID, UserID: k.userID, Selection: p.selections[k].value})
	}
	return out
}

func upsert[T any](p *Presence, m map[presenceKey]*slot[T], k presenceKey, v T) {
	if s, ok := m[k]; ok {
		s.value = v
		return
	}
	p.seq++
	m[k] = &slot[T]{value: v, seq: p.seq}
}

func orderedKeys[T any](m map[presenceKey]*slot[T], sessionID string) []presenceKey {
	var keys []presenceKey
	for k := range m {
		if k.sessionID == sessionID {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return m[keys[i]].seq < m[keys[j]].seq })
	return keys
}
