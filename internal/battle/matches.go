package battle

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Errors returned by MatchRegistry operations, surfaced to clients as
// ErrorEvent frames per spec.md §4.3/§7.
const (
	ErrMatchNotFound     = "Matching session not found"
	ErrMatchNotAvailable = "This matching session is not available"
	ErrSelfJoin          = "Cannot join your own matching session"
)

// MatchRegistry is the Session Registry of spec.md §4.3: the
// process-wide map of match-id -> Match State, enforcing the monotonic
// state machine and the rejoin/expiry policy. Match is exclusively
// owned by this registry — callers never retain a *Match outside a
// method call on it. Grounded on the teacher's Coordinator lobbies/
// matches maps (internal/multiplayer/coordinator.go), generalized from
// a single actor handling everything to a plain mutex-guarded registry
// that the dispatcher calls directly (only the Match Orchestrator is an
// actor, per spec.md §4.5's explicit "message-passing, single-consumer"
// language — the other registries are not).
type MatchRegistry struct {
	mu      sync.Mutex
	matches map[uuid.UUID]*Match
}

// NewMatchRegistry creates an empty registry.
func NewMatchRegistry() *MatchRegistry {
	return &MatchRegistry{matches: make(map[uuid.UUID]*Match)}
}

// Create inserts a new Waiting match hosted by creatorID.
func (r *MatchRegistry) Create(creatorID, creatorUsername string) *Match {
	m := NewMatch(creatorID, creatorUsername)
	r.mu.Lock()
	r.matches[m.MatchingID] = m
	r.mu.Unlock()
	return m
}

// Snapshot returns a value copy of the match, safe to read outside the
// registry's lock.
func (r *MatchRegistry) Snapshot(id uuid.UUID) (Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return Match{}, false
	}
	return *m, true
}

// ListWaiting returns MatchInfo for every Waiting match except the one
// hosted by excludePlayerID, for Lobby Registry snapshots.
func (r *MatchRegistry) ListWaiting(excludePlayerID string) []MatchInfo {
	r.mu.Lock()
	snapshot := lo.Map(lo.Values(r.matches), func(m *Match, _ int) Match { return *m })
	r.mu.Unlock()

	waiting := lo.Filter(snapshot, func(m Match, _ int) bool {
		if m.Status != StatusWaiting {
			return false
		}
		return m.PlayerA == nil || m.PlayerA.ID != excludePlayerID
	})
	return lo.Map(waiting, func(m Match, _ int) MatchInfo {
		return MatchInfo{
			MatchingID:      m.MatchingID,
			CreatorUsername: m.CreatorUsername,
			CreatedAt:       m.CreatedAt,
			Status:          m.Status,
		}
	})
}

// JoinOutcome distinguishes a fresh pairing from a pre-InGame rejoin.
type JoinOutcome int

const (
	JoinEstablished JoinOutcome = iota
	JoinRejoined
)

// Join pairs joinerID into matchingID. It implements the Waiting ->
// Matched transition and the rejoin carve-out of spec.md §4.3: if
// joinerID already occupies player_b (reconnecting before InGame), the
// match is returned unchanged with JoinRejoined instead of erroring.
func (r *MatchRegistry) Join(matchingID uuid.UUID, joinerID string) (match Match, outcome JoinOutcome, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[matchingID]
	if !ok {
		return Match{}, 0, ErrMatchNotFound
	}
	if m.PlayerA != nil && m.PlayerA.ID == joinerID {
		return Match{}, 0, ErrSelfJoin
	}
	if m.PlayerB != nil && m.PlayerB.ID == joinerID && m.Status == StatusMatched {
		return *m, JoinRejoined, ""
	}
	if m.Status != StatusWaiting {
		return Match{}, 0, ErrMatchNotAvailable
	}

	m.PlayerB = NewPlayer(joinerID, "")
	m.Status = StatusMatched
	return *m, JoinEstablished, ""
}

// SetReady binds a Character to playerID within matchingID and reports
// whether both sides are now ready. Called by the Ready handler
// (Registry.handleReady in registry.go) after the model claim has already succeeded, per spec.md
// §4.4's "steps 1-2 must occur before step 3" ordering.
func (r *MatchRegistry) SetReady(matchingID uuid.UUID, playerID, modelID string) (match Match, opponentID string, bothReady bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.matches[matchingID]
	if !exists {
		return Match{}, "", false, false
	}

	var self *Player
	switch {
	case m.PlayerA != nil && m.PlayerA.ID == playerID:
		self = m.PlayerA
	case m.PlayerB != nil && m.PlayerB.ID == playerID:
		self = m.PlayerB
	default:
		return Match{}, "", false, false
	}

	character := NewCharacter(modelID)
	self.Character = &character
	self.Ready = true

	if opp := m.Opponent(playerID); opp != nil {
		opponentID = opp.ID
	}

	bothReady = m.IsBothReady()
	if bothReady {
		m.Status = StatusInGame
		m.BattleStarted = true
		m.StartedAt = time.Now()
	}

	return *m, opponentID, bothReady, true
}

// MarkActivityAbsent stamps last_active_at, invoked when the Channel
// Registry entry for matchingID empties.
func (r *MatchRegistry) MarkActivityAbsent(matchingID uuid.UUID, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.matches[matchingID]; ok {
		t := now
		m.LastActiveAt = &t
	}
}

// ClearActivity clears last_active_at, invoked on any new connection
// joining the Channel Registry entry for matchingID.
func (r *MatchRegistry) ClearActivity(matchingID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.matches[matchingID]; ok {
		m.LastActiveAt = nil
	}
}

// MarkFinished sets battle_finished and moves the match to
// StatusFinished, invoked by the Match Orchestrator after a tick detects
// game-over. The registry entry itself is purged later by the cleanup
// loop, since Finished matches are invalid by construction (see
// Match.IsValid).
func (r *MatchRegistry) MarkFinished(matchingID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.matches[matchingID]; ok {
		m.BattleFinished = true
		m.Status = StatusFinished
	}
}

// Remove purges matchingID unconditionally.
func (r *MatchRegistry) Remove(matchingID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.matches, matchingID)
}

// ExpireInvalid removes and returns the ids of every match that has
// failed Match.IsValid as of now, given validityWindow — the cleanup
// loop of spec.md §4.5.
func (r *MatchRegistry) ExpireInvalid(now time.Time, validityWindow time.Duration) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []uuid.UUID
	for id, m := range r.matches {
		if !m.IsValid(now, validityWindow) {
			expired = append(expired, id)
			delete(r.matches, id)
		}
	}
	return expired
}

// CleanupLoop runs the expiry sweep of spec.md §4.5 every period until
// stop is signalled, treating a match as expired once it has sat
// validityWindow past its last activity. Expired match-ids are
// forwarded to orch so its resident games map stays consistent
// with the registry.
func (r *MatchRegistry) CleanupLoop(stop <-chan struct{}, orch *Orchestrator, period, validityWindow time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			for _, id := range r.ExpireInvalid(now, validityWindow) {
				orch.Send(RemoveMatchCmd{MatchingID: id.String()})
			}
		case <-stop:
			return
		}
	}
}
