package session

import (
	"sort"
	"sync"

	"github.com/maxischmaxi/code-preview-server/internal/models"
)

type entry struct {
	participant models.Participant
	joinSeq     uint64
}

// Registry maps live connection ids to participants. A user id is held by
// at most one connection at a time.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*entry
	byUser map[string]string
	seq    uint64
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]*entry),
		byUser: make(map[string]string),
	}
}

// Register inserts a fresh, unattached participant for connID. Any entry
// previously held by the same connection or the same user id is removed and
// returned so the caller can run leave semantics for it.
func (r *Registry) Register(connID, userID, nickname string) []models.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []models.Participant
	if prev, ok := r.byConn[connID]; ok {
		evicted = append(evicted, prev.participant)
		r.dropLocked(connID)
	}
	if holder, ok := r.byUser[userID]; ok {
		evicted = append(evicted, r.byConn[holder].participant)
		r.dropLocked(holder)
	}

	r.byConn[connID] = &entry{participant: models.Participant{
		ConnectionID: connID,
		UserID:       userID,
		Nickname:     nickname,
	}}
	r.byUser[userID] = connID
	return evicted
}

func (r *Registry) FindByConnection(connID string) (models.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byConn[connID]
	if !ok {
		return models.Participant{}, false
	}
	return e.participant, true
}

func (r *Registry) FindByUser(userID string) (models.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byUser[userID]
	if !ok {
		return models.Participant{}, false
	}
	return r.byConn[connID].participant, true
}

// Remove deletes the entry for connID and returns it. Removing an unknown
// connection is a no-op.
func (r *Registry) Remove(connID string) (models.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byConn[connID]
	if !ok {
		return models.Participant{}, false
	}
	r.dropLocked(connID)
	return e.participant, true
}

// SetSession attaches connID to sessionID, or detaches it when sessionID is
// empty. Attaching moves the participant to the end of the join order.
func (r *Registry) SetSession(connID, sessionID string) (models.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byConn[connID]
	if !ok {
		return models.Participant{}, false
	}
	e.participant.SessionID = sessionID
	if sessionID != "" {
		r.seq++
		e.joinSeq = r.seq
	} else {
		e.joinSeq = 0
	}
	return e.participant, true
}

func (r *Registry) SetNickname(connID, nickname string) (models.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byConn[connID]
	if !ok {
		return models.Participant{}, false
	}
	e.participant.Nickname = nickname
	return e.participant, true
}

func (r *Registry) SetNicknameForUser(userID, nickname string) (models.Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	connID, ok := r.byUser[userID]
	if !ok {
		return models.Participant{}, false
	}
	e := r.byConn[connID]
	e.participant.Nickname = nickname
	return e.participant, true
}

// Members returns the participants attached to sessionID in join order.
func (r *Registry) Members(sessionID string) []models.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var joined []*entry
	for _, e := range r.byConn {
		if e.participant.SessionID == sessionID {
			joined = append(joined, e)
		}
	}
	sort.Slice(joined, func(i, j int) bool { return joined[i].joinSeq < joined[j].joinSeq })

	out := make([]models.Participant, 0, len(joined))
	for _, e := range joined {
		out = append(out, e.participant)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

func (r *Registry) dropLocked(connID string) {
	e, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	if r.byUser[e.participant.UserID] == connID {
		delete(r.byUser, e.participant.UserID)
	}
}
