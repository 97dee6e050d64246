package battle

import (
	"sync"

	"github.com/google/uuid"
)

type lobbyEntry struct {
	matchingID uuid.UUID
	queue      *OutboundQueue
}

// LobbyRegistry is the Lobby Registry of spec.md §4.2: the process-wide
// index of players currently advertising an open match. Grounded on the
// teacher's Coordinator.lobbies/sessionLobby maps
// (internal/multiplayer/coordinator.go), generalized from the teacher's
// join-code lobby model (host/joiner pair keyed by a short code) to
// spec.md's advertise-and-discover model (one advertiser per entry,
// keyed by player-id, discovered by other connected players rather than
// joined by code).
type LobbyRegistry struct {
	mu      sync.Mutex
	entries map[string]lobbyEntry
}

// NewLobbyRegistry creates an empty registry.
func NewLobbyRegistry() *LobbyRegistry {
	return &LobbyRegistry{entries: make(map[string]lobbyEntry)}
}

// Insert advertises matchingID on playerID's behalf, on CreateMatching.
func (r *LobbyRegistry) Insert(playerID string, matchingID uuid.UUID, queue *OutboundQueue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[playerID] = lobbyEntry{matchingID: matchingID, queue: queue}
}

// Remove withdraws playerID's advertisement, on pairing, disconnect, or
// cancel. It reports the matching id that was advertised, if any.
func (r *LobbyRegistry) Remove(playerID string) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[playerID]
	if !ok {
		return uuid.UUID{}, false
	}
	delete(r.entries, playerID)
	return entry.matchingID, true
}

// Snapshot builds the list of open matches visible to excludePlayerID,
// joining against the MatchRegistry for each advertised match's public
// metadata, per spec.md §4.2. Both registries' locks are held for the
// whole computation so the result reflects one consistent instant
// across both maps, per spec.md §5's cross-registry snapshot
// requirement; a match concurrently removed mid-snapshot is simply
// skipped rather than racing a half-updated view.
func (r *LobbyRegistry) Snapshot(excludePlayerID string, matches *MatchRegistry) []MatchInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches.mu.Lock()
	defer matches.mu.Unlock()

	infos := make([]MatchInfo, 0, len(r.entries))
	for playerID, entry := range r.entries {
		if playerID == excludePlayerID {
			continue
		}
		m, ok := matches.matches[entry.matchingID]
		if !ok {
			continue
		}
		infos = append(infos, MatchInfo{
			MatchingID:      m.MatchingID,
			CreatorUsername: m.CreatorUsername,
			CreatedAt:       m.CreatedAt,
			Status:          m.Status,
		})
	}
	return infos
}

// BroadcastUpdate pushes an UpdateMatchings event to every advertiser,
// each built from that advertiser's own exclusion view, per spec.md
// §4.2's broadcast_update operation.
func (r *LobbyRegistry) BroadcastUpdate(matches *MatchRegistry) {
	r.mu.Lock()
	advertisers := make(map[string]*OutboundQueue, len(r.entries))
	for playerID, entry := range r.entries {
		advertisers[playerID] = entry.queue
	}
	r.mu.Unlock()

	for playerID, queue := range advertisers {
		queue.Push(UpdateMatchingsEvent{
			CurrentMatchings: r.Snapshot(playerID, matches),
			Timestamp:        nowUTC(),
		})
	}
}
