package battle

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/arenaduel/battle-server/internal/models"
)

// Registry is the wiring object that implements Dispatcher: it routes
// each decoded ClientCommand into the Lobby, Match (Session), and
// Channel Registries and the Match Orchestrator, and runs the
// teardown sequence on disconnect. Grounded on the teacher's
// Coordinator.handleMessage dispatch (internal/multiplayer/
// coordinator.go), generalized from a single actor handling every
// concern to a plain struct whose methods are called directly from
// each Session's own reader goroutine — only the Orchestrator remains
// an actor, per spec.md §9.
type Registry struct {
	lobby      *LobbyRegistry
	matches    *MatchRegistry
	channels   *ChannelRegistry
	orch       *Orchestrator
	modelStore *models.Store
	logger     *log.Logger

	mu           sync.Mutex
	sessionMatch map[string]uuid.UUID // playerID -> the match it is currently bound to
}

// NewRegistry wires the four registries, the Orchestrator, and the
// model store together. All are injected explicitly rather than
// reached for as ambient singletons, per spec.md §9.
func NewRegistry(lobby *LobbyRegistry, matches *MatchRegistry, channels *ChannelRegistry, orch *Orchestrator, modelStore *models.Store, logger *log.Logger) *Registry {
	return &Registry{
		lobby:        lobby,
		matches:      matches,
		channels:     channels,
		orch:         orch,
		modelStore:   modelStore,
		logger:       logger,
		sessionMatch: make(map[string]uuid.UUID),
	}
}

func (r *Registry) bind(playerID string, matchingID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionMatch[playerID] = matchingID
}

func (r *Registry) binding(playerID string) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.sessionMatch[playerID]
	return id, ok
}

func (r *Registry) clearBinding(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessionMatch, playerID)
}

// HandleConnect runs the pre-bound matching_id logic of spec.md §6: if
// the session connected with a ?matching_id= query parameter and the
// Match exists with the connecting player as a participant, it is
// re-registered in the Channel Registry and a MatchingSuccess event is
// emitted. Otherwise this is a silent no-op — an unknown or
// non-participant matching_id does not error at connect time.
func (r *Registry) HandleConnect(s *Session) {
	if s.MatchingID() == "" {
		return
	}
	id, err := uuid.Parse(s.MatchingID())
	if err != nil {
		return
	}
	m, ok := r.matches.Snapshot(id)
	if !ok {
		return
	}
	opponent := m.Opponent(s.ID())
	isSelf := (m.PlayerA != nil && m.PlayerA.ID == s.ID()) || (m.PlayerB != nil && m.PlayerB.ID == s.ID())
	if !isSelf {
		return
	}

	r.channels.Register(id, s.ID(), s.Queue())
	r.matches.ClearActivity(id)
	r.bind(s.ID(), id)

	opponentID := ""
	if opponent != nil {
		opponentID = opponent.ID
	}
	s.Send(MatchingSuccessEvent{MatchingID: id.String(), OpponentID: opponentID, Timestamp: nowUTC()})
}

// Dispatch routes one decoded ClientCommand from s.
func (r *Registry) Dispatch(s *Session, cmd ClientCommand) {
	switch c := cmd.(type) {
	case CreateMatchingCmd:
		r.handleCreateMatching(s, c)
	case JoinMatchCmd:
		r.handleJoinMatch(s, c)
	case ReadyCmd:
		r.handleReady(s, c)
	case InputCmd:
		r.handleInput(s, c)
	case StateUpdateCmd:
		r.handleStateUpdate(s, c)
	case DamageReportCmd:
		r.handleDamageReport(s, c)
	}
}

func (r *Registry) handleCreateMatching(s *Session, cmd CreateMatchingCmd) {
	m := r.matches.Create(s.ID(), cmd.Username)
	r.lobby.Insert(s.ID(), m.MatchingID, s.Queue())
	r.channels.Register(m.MatchingID, s.ID(), s.Queue())
	r.bind(s.ID(), m.MatchingID)

	s.Send(MatchingCreatedEvent{
		MatchingID:       m.MatchingID.String(),
		CurrentMatchings: r.lobby.Snapshot(s.ID(), r.matches),
		Timestamp:        nowUTC(),
	})
	r.lobby.BroadcastUpdate(r.matches)
}

func (r *Registry) handleJoinMatch(s *Session, cmd JoinMatchCmd) {
	id, err := uuid.Parse(cmd.MatchingID)
	if err != nil {
		s.Send(ErrorEvent{Message: ErrMatchNotFound})
		return
	}

	m, outcome, errMsg := r.matches.Join(id, s.ID())
	if errMsg != "" {
		s.Send(ErrorEvent{Message: errMsg})
		return
	}

	r.channels.Register(id, s.ID(), s.Queue())
	r.matches.ClearActivity(id)
	r.bind(s.ID(), id)

	if outcome == JoinRejoined {
		opponentID := ""
		if opp := m.Opponent(s.ID()); opp != nil {
			opponentID = opp.ID
		}
		s.Send(MatchingSuccessEvent{MatchingID: id.String(), OpponentID: opponentID, Timestamp: nowUTC()})
		return
	}

	r.lobby.Remove(m.PlayerA.ID)
	r.lobby.BroadcastUpdate(r.matches)

	s.Send(MatchingEstablishedEvent{MatchingID: id.String(), OpponentID: m.PlayerA.ID, Timestamp: nowUTC()})
	r.channels.SendToOther(id, s.ID(), MatchingEstablishedEvent{MatchingID: id.String(), OpponentID: s.ID(), Timestamp: nowUTC()})
}

func (r *Registry) handleReady(s *Session, cmd ReadyCmd) {
	matchingID, ok := r.binding(s.ID())
	if !ok {
		s.Send(ErrorEvent{Message: "Ready before MatchingEstablished"})
		return
	}

	modelID := cmd.SelectedModelID
	model, err := r.modelStore.Lookup(modelID)
	if err != nil {
		s.Send(ErrorEvent{Message: fmt.Sprintf("Model ID '%s' not found. Please upload a 3D model first.", modelID)})
		return
	}
	if model.IsUsed {
		s.Send(ErrorEvent{Message: fmt.Sprintf("Model ID '%s' has already been used.", modelID)})
		return
	}

	// Steps 1-2 of spec.md §4.4: the model-store lookup and the atomic
	// mark-used must both complete, without holding any registry lock,
	// before the Match is mutated in step 3 below.
	if err := r.modelStore.MarkUsed(modelID); err != nil {
		if err == models.ErrAlreadyUsed {
			s.Send(ErrorEvent{Message: fmt.Sprintf("Model ID '%s' has already been used.", modelID)})
		} else {
			s.Send(ErrorEvent{Message: fmt.Sprintf("Model ID '%s' not found. Please upload a 3D model first.", modelID)})
		}
		return
	}

	m, _, bothReady, ok := r.matches.SetReady(matchingID, s.ID(), modelID)
	if !ok {
		s.Send(ErrorEvent{Message: ErrMatchNotFound})
		return
	}

	selfPlayer := m.PlayerA
	if selfPlayer == nil || selfPlayer.ID != s.ID() {
		selfPlayer = m.PlayerB
	}
	var character Character
	if selfPlayer != nil && selfPlayer.Character != nil {
		character = *selfPlayer.Character
	}

	r.channels.SendToOther(matchingID, s.ID(), OpponentCharacterSelectedEvent{Character: character, Timestamp: nowUTC()})

	if !bothReady {
		return
	}

	senders := r.channels.Snapshot(matchingID)
	r.orch.Send(StartGameCmd{
		MatchingID:       matchingID.String(),
		PlayerAID:        m.PlayerA.ID,
		PlayerBID:        m.PlayerB.ID,
		PlayerACharacter: *m.PlayerA.Character,
		PlayerBCharacter: *m.PlayerB.Character,
		Senders:          senders,
	})
}

func (r *Registry) handleInput(s *Session, cmd InputCmd) {
	matchingID, ok := r.binding(s.ID())
	if !ok {
		return
	}
	r.orch.Send(ProcessInputCmd{MatchingID: matchingID.String(), PlayerID: s.ID(), Action: cmd.Action})
}

func (r *Registry) handleStateUpdate(s *Session, cmd StateUpdateCmd) {
	matchingID, ok := r.binding(s.ID())
	if !ok {
		return
	}
	r.orch.Send(ProcessStateUpdateCmd{
		MatchingID: matchingID.String(),
		PlayerID:   s.ID(),
		Position:   cmd.Position,
		Rotation:   cmd.Rotation,
	})
}

func (r *Registry) handleDamageReport(s *Session, cmd DamageReportCmd) {
	matchingID, ok := r.binding(s.ID())
	if !ok {
		return
	}
	r.orch.Send(ApplyDamageCmd{MatchingID: matchingID.String(), PlayerID: s.ID(), Damage: cmd.Damage})
}

// HandleDisconnect runs the Connection Session teardown sequence of
// spec.md §4.1: withdraw any lobby advertisement and rebroadcast,
// unregister from the Channel Registry, and stamp last_active_at if
// that unregistration emptied the match's channel entry.
func (r *Registry) HandleDisconnect(s *Session) {
	if _, hadLobbyEntry := r.lobby.Remove(s.ID()); hadLobbyEntry {
		r.lobby.BroadcastUpdate(r.matches)
	}

	matchingID, ok := r.binding(s.ID())
	if !ok {
		return
	}
	if r.channels.Unregister(matchingID, s.ID()) {
		r.matches.MarkActivityAbsent(matchingID, nowUTC())
	}
	r.clearBinding(s.ID())
}
