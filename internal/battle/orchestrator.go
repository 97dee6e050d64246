package battle

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultTickInterval is the Orchestrator's fixed tick period (~60Hz),
// per spec.md §4.5 and the Glossary's "Tick" entry, used when a caller
// has no configured override (see appconfig.ServerConfig.TickInterval).
const DefaultTickInterval = 16 * time.Millisecond

// gameActor is the Orchestrator's authoritative, replicated character
// state for one resident match. Per spec.md §3's Ownership note, the
// Match entity itself stays with the MatchRegistry; this struct is the
// "replicated CharacterState keyed by match-id" the Orchestrator is
// allowed to hold.
type gameActor struct {
	playerAID, playerBID string
	playerA, playerB     Character
	startedAt            time.Time
	senders              map[string]*OutboundQueue
}

func (g *gameActor) characterFor(playerID string) (*Character, bool) {
	switch playerID {
	case g.playerAID:
		return &g.playerA, true
	case g.playerBID:
		return &g.playerB, true
	default:
		return nil, false
	}
}

func (g *gameActor) opponentID(playerID string) string {
	if playerID == g.playerAID {
		return g.playerBID
	}
	return g.playerAID
}

// Orchestrator is the Match Orchestrator of spec.md §4.5: a single
// process-wide actor running a fixed-period tick, holding authoritative
// per-match character state, applying inputs and damage reports,
// detecting victory, and driving termination.
//
// This is a deliberate redesign of the teacher's one-goroutine-per-match
// OnlineMatch.Run (internal/multiplayer/match.go): spec.md §9 requires
// "a cooperative periodic task rather than a thread-per-match; all
// matches share the single tick task." The single-consumer command
// channel and dispatch-by-type-switch is kept from the teacher's
// Coordinator.msgChan/processMessages/handleMessage
// (internal/multiplayer/coordinator.go), routed here by matching-id
// into this actor's games map, whose entries also hold each match's
// senders, in place of Coordinator's map of *OnlineMatch.
type Orchestrator struct {
	matches      *MatchRegistry
	tickInterval time.Duration
	logger       *log.Logger

	cmdChan chan OrchestratorCommand
	done    chan struct{}
	doneWg  sync.WaitGroup

	games map[string]*gameActor
}

// NewOrchestrator constructs an Orchestrator bound to matches, which it
// calls back into to mark matches finished (MarkFinished) once a tick
// detects game-over. tickInterval governs the run loop's tick period;
// callers with no configured override should pass DefaultTickInterval.
func NewOrchestrator(matches *MatchRegistry, tickInterval time.Duration, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		matches:      matches,
		tickInterval: tickInterval,
		logger:       logger,
		cmdChan:      make(chan OrchestratorCommand, 256),
		done:         make(chan struct{}),
		games:        make(map[string]*gameActor),
	}
}

// Start launches the tick loop goroutine. Callers also start
// MatchRegistry.CleanupLoop separately, per spec.md §4.5's distinct
// tick (16ms) and cleanup (1s) periods.
func (o *Orchestrator) Start() {
	o.doneWg.Add(1)
	go o.run()
}

// Stop signals the tick loop to exit and waits for it to finish.
func (o *Orchestrator) Stop() {
	close(o.done)
	o.doneWg.Wait()
}

// Send enqueues a command for the single-consumer loop. Never blocks
// indefinitely: the command channel is generously buffered, and Send
// gives up silently once the Orchestrator has stopped.
func (o *Orchestrator) Send(cmd OrchestratorCommand) {
	select {
	case o.cmdChan <- cmd:
	case <-o.done:
	}
}

func (o *Orchestrator) run() {
	defer o.doneWg.Done()

	ticker := time.NewTicker(o.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case cmd := <-o.cmdChan:
			o.handleCommand(cmd)
		case <-ticker.C:
			o.tick()
		case <-o.done:
			return
		}
	}
}

func (o *Orchestrator) handleCommand(cmd OrchestratorCommand) {
	switch c := cmd.(type) {
	case StartGameCmd:
		o.handleStartGame(c)
	case ProcessInputCmd:
		o.handleProcessInput(c)
	case ProcessStateUpdateCmd:
		o.handleProcessStateUpdate(c)
	case ApplyDamageCmd:
		o.handleApplyDamage(c)
	case RemoveMatchCmd:
		delete(o.games, c.MatchingID)
	}
}

func (o *Orchestrator) handleStartGame(c StartGameCmd) {
	g := &gameActor{
		playerAID: c.PlayerAID,
		playerBID: c.PlayerBID,
		playerA:   c.PlayerACharacter,
		playerB:   c.PlayerBCharacter,
		startedAt: nowUTC(),
		senders:   c.Senders,
	}
	o.games[c.MatchingID] = g

	if q, ok := g.senders[g.playerAID]; ok {
		q.Push(GameStartEvent{OpponentCharacter: g.playerB, YourPlayerID: g.playerAID, Timestamp: nowUTC()})
	}
	if q, ok := g.senders[g.playerBID]; ok {
		q.Push(GameStartEvent{OpponentCharacter: g.playerA, YourPlayerID: g.playerBID, Timestamp: nowUTC()})
	}
}

func (o *Orchestrator) handleProcessInput(c ProcessInputCmd) {
	g, ok := o.games[c.MatchingID]
	if !ok {
		return
	}
	actor, ok := g.characterFor(c.PlayerID)
	if !ok {
		return
	}

	switch c.Action.Kind {
	case InputMove:
		// Normalize direction, scale by speed * 1/60s, regardless of the
		// Orchestrator's own tick rate — grounded on
		// original_source/src/game/state.rs's process_input, which moves
		// a fixed fraction of a 60Hz frame per input message rather than
		// per server tick.
		dir := Normalize(c.Action.Direction)
		step := Scale(dir, c.Action.Speed/60.0)
		actor.Position = Add(actor.Position, step)
		o.sendOpponentState(g, c.PlayerID, *actor)
	case InputRotate:
		actor.Rotation = c.Action.Rotation
		o.sendOpponentState(g, c.PlayerID, *actor)
	case InputAttack:
		if q, ok := g.senders[g.opponentID(c.PlayerID)]; ok {
			q.Push(OpponentAttackedEvent{
				AttackerID: c.PlayerID,
				AttackType: c.Action.AttackType,
				Position:   c.Action.Position,
				Direction:  c.Action.Direction,
				Timestamp:  nowUTC(),
			})
		}
	}
}

func (o *Orchestrator) handleProcessStateUpdate(c ProcessStateUpdateCmd) {
	g, ok := o.games[c.MatchingID]
	if !ok {
		return
	}
	actor, ok := g.characterFor(c.PlayerID)
	if !ok {
		return
	}
	actor.Position = c.Position
	actor.Rotation = c.Rotation
	o.sendOpponentState(g, c.PlayerID, *actor)
}

func (o *Orchestrator) handleApplyDamage(c ApplyDamageCmd) {
	g, ok := o.games[c.MatchingID]
	if !ok {
		return
	}
	actor, ok := g.characterFor(c.PlayerID)
	if !ok {
		return
	}
	actor.ApplyDamage(c.Damage)
}

func (o *Orchestrator) sendOpponentState(g *gameActor, playerID string, state Character) {
	if q, ok := g.senders[g.opponentID(playerID)]; ok {
		q.Push(OpponentStateUpdateEvent{Opponent: state, Timestamp: nowUTC()})
	}
}

// tick evaluates every resident match's game-over condition. On first
// transition to game-over it determines the winner — player_a wins a
// simultaneous double-KO, per spec.md §9's redesign note ("e.g.,
// player_a wins") and DESIGN.md's resolution of the open tie-break
// question — builds the GameResult, fans out GameEnd to both sides, and
// drops the match from this actor's games map.
func (o *Orchestrator) tick() {
	if len(o.games) == 0 {
		return
	}
	now := nowUTC()
	for matchingID, g := range o.games {
		aAlive := g.playerA.IsAlive()
		bAlive := g.playerB.IsAlive()
		if aAlive && bAlive {
			continue
		}

		var winnerID, loserID string
		switch {
		case !aAlive && !bAlive:
			winnerID, loserID = g.playerAID, g.playerBID
		case !aAlive:
			winnerID, loserID = g.playerBID, g.playerAID
		default:
			winnerID, loserID = g.playerAID, g.playerBID
		}

		playTime := now.Sub(g.startedAt).Seconds()
		if playTime < 0 {
			playTime = 0
		}

		id := parseMatchID(matchingID)
		result := GameResult{
			MatchingID:      id,
			WinnerID:        winnerID,
			LoserID:         loserID,
			PlayerAID:       g.playerAID,
			PlayerBID:       g.playerBID,
			PlayTimeSeconds: int64(playTime),
			FinishedAt:      now,
		}
		endEvt := GameEndEvent{Result: result, Timestamp: now}
		if q, ok := g.senders[g.playerAID]; ok {
			q.Push(endEvt)
		}
		if q, ok := g.senders[g.playerBID]; ok {
			q.Push(endEvt)
		}

		delete(o.games, matchingID)
		o.matches.MarkFinished(id)
		o.logger.Debug("match finished", "matching_id", matchingID, "winner_id", winnerID)
	}
}
