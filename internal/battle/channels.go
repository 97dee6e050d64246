package battle

import (
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ChannelRegistry is the Channel Registry of spec.md §4.6: a process-wide
// map match_id -> {player_id -> OutboundQueue}, the fan-out substrate for
// opponent-targeted events. Grounded on the teacher's SessionRegistry
// (internal/multiplayer/session.go), generalized from a flat
// sessionID -> SessionHandle map to a per-match sub-map since one
// process here hosts many concurrent matches rather than one TUI
// program per session.
type ChannelRegistry struct {
	mu       sync.Mutex
	channels map[uuid.UUID]map[string]*OutboundQueue
}

// NewChannelRegistry creates an empty registry.
func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{channels: make(map[uuid.UUID]map[string]*OutboundQueue)}
}

// Register binds playerID's outbound queue under matchingID.
func (r *ChannelRegistry) Register(matchingID uuid.UUID, playerID string, queue *OutboundQueue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.channels[matchingID]
	if !ok {
		entry = make(map[string]*OutboundQueue)
		r.channels[matchingID] = entry
	}
	entry[playerID] = queue
}

// Unregister removes playerID from matchingID's fan-out set. It reports
// whether this removal emptied the entry, in which case the caller
// (the Connection Session's teardown, per spec.md §4.1) must stamp
// last_active_at on the Match.
func (r *ChannelRegistry) Unregister(matchingID uuid.UUID, playerID string) (emptied bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.channels[matchingID]
	if !ok {
		return false
	}
	delete(entry, playerID)
	if len(entry) == 0 {
		delete(r.channels, matchingID)
		return true
	}
	return false
}

// Get returns playerID's queue within matchingID, if registered.
func (r *ChannelRegistry) Get(matchingID uuid.UUID, playerID string) (*OutboundQueue, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.channels[matchingID]
	if !ok {
		return nil, false
	}
	q, ok := entry[playerID]
	return q, ok
}

// SendToOther pushes evt to every queue registered under matchingID
// except excludePlayerID — the "opponent" fan-out used throughout
// Ready handling and teardown. The target queues are collected under the
// registry lock and pushed to after it is released.
func (r *ChannelRegistry) SendToOther(matchingID uuid.UUID, excludePlayerID string, evt ServerEvent) {
	r.mu.Lock()
	targets := make([]*OutboundQueue, 0, len(r.channels[matchingID]))
	for playerID, q := range r.channels[matchingID] {
		if playerID == excludePlayerID {
			continue
		}
		targets = append(targets, q)
	}
	r.mu.Unlock()

	for _, q := range targets {
		q.Push(evt)
	}
}

// Snapshot returns a shallow copy of matchingID's player->queue map, for
// handing the Match Orchestrator its senders_snapshot on StartGame.
func (r *ChannelRegistry) Snapshot(matchingID uuid.UUID) map[string]*OutboundQueue {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Assign(map[string]*OutboundQueue{}, r.channels[matchingID])
}

// IsEmpty reports whether matchingID has no registered queues.
func (r *ChannelRegistry) IsEmpty(matchingID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels[matchingID]) == 0
}
