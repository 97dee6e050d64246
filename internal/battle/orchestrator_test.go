package battle

import (
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{Level: log.ErrorLevel})
}

func startedOrchestrator(t *testing.T) (*Orchestrator, *MatchRegistry) {
	t.Helper()
	matches := NewMatchRegistry()
	orch := NewOrchestrator(matches, DefaultTickInterval, testLogger())
	orch.Start()
	t.Cleanup(orch.Stop)
	return orch, matches
}

// drain reads the next event from q, failing the test if none arrives
// within a generous margin over one tick.
func drain(t *testing.T, q *OutboundQueue) ServerEvent {
	t.Helper()
	type result struct {
		evt ServerEvent
		ok  bool
	}
	ch := make(chan result, 1)
	go func() {
		evt, ok := q.Next()
		ch <- result{evt, ok}
	}()
	select {
	case r := <-ch:
		if !r.ok {
			t.Fatal("queue closed before producing an event")
		}
		return r.evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
		return nil
	}
}

func TestOrchestratorStartGameFansOutOpponentCharacters(t *testing.T) {
	orch, _ := startedOrchestrator(t)

	qa, qb := NewOutboundQueue(), NewOutboundQueue()
	charA := NewCharacter("model-a")
	charB := NewCharacter("model-b")
	orch.Send(StartGameCmd{
		MatchingID:       "match-1",
		PlayerAID:        "player-a",
		PlayerBID:        "player-b",
		PlayerACharacter: charA,
		PlayerBCharacter: charB,
		Senders:          map[string]*OutboundQueue{"player-a": qa, "player-b": qb},
	})

	evtA := drain(t, qa).(GameStartEvent)
	if evtA.YourPlayerID != "player-a" || evtA.OpponentCharacter.ModelID != "model-b" {
		t.Errorf("GameStart for player-a = %+v", evtA)
	}
	evtB := drain(t, qb).(GameStartEvent)
	if evtB.YourPlayerID != "player-b" || evtB.OpponentCharacter.ModelID != "model-a" {
		t.Errorf("GameStart for player-b = %+v", evtB)
	}
}

func TestOrchestratorMoveNormalizesAndReplicatesToOpponent(t *testing.T) {
	orch, _ := startedOrchestrator(t)

	qa, qb := NewOutboundQueue(), NewOutboundQueue()
	orch.Send(StartGameCmd{
		MatchingID: "match-1", PlayerAID: "player-a", PlayerBID: "player-b",
		PlayerACharacter: NewCharacter("a"), PlayerBCharacter: NewCharacter("b"),
		Senders: map[string]*OutboundQueue{"player-a": qa, "player-b": qb},
	})
	drain(t, qa)
	drain(t, qb)

	orch.Send(ProcessInputCmd{
		MatchingID: "match-1", PlayerID: "player-a",
		Action: InputAction{Kind: InputMove, Direction: Vector3{X: 10, Y: 0, Z: 0}, Speed: 60},
	})

	evt := drain(t, qb).(OpponentStateUpdateEvent)
	// direction (10,0,0) normalizes to (1,0,0); speed 60 / 60.0 == 1 unit/step
	if abs32(evt.Opponent.Position.X-1) > 1e-4 || evt.Opponent.Position.Y != 0 || evt.Opponent.Position.Z != 0 {
		t.Errorf("Opponent.Position = %+v, want approximately (1,0,0)", evt.Opponent.Position)
	}
}

func TestOrchestratorAttackFansOutToOpponentOnly(t *testing.T) {
	orch, _ := startedOrchestrator(t)

	qa, qb := NewOutboundQueue(), NewOutboundQueue()
	orch.Send(StartGameCmd{
		MatchingID: "match-1", PlayerAID: "player-a", PlayerBID: "player-b",
		PlayerACharacter: NewCharacter("a"), PlayerBCharacter: NewCharacter("b"),
		Senders: map[string]*OutboundQueue{"player-a": qa, "player-b": qb},
	})
	drain(t, qa)
	drain(t, qb)

	orch.Send(ProcessInputCmd{
		MatchingID: "match-1", PlayerID: "player-a",
		Action: InputAction{Kind: InputAttack, AttackType: AttackSpecial},
	})

	evt := drain(t, qb).(OpponentAttackedEvent)
	if evt.AttackerID != "player-a" || evt.AttackType != AttackSpecial {
		t.Errorf("OpponentAttacked = %+v", evt)
	}
}

func TestOrchestratorGameEndsExactlyOnceWithBothSidesNotified(t *testing.T) {
	orch, matches := startedOrchestrator(t)
	m := matches.Create("player-a", "alice")
	matches.Join(m.MatchingID, "player-b")

	qa, qb := NewOutboundQueue(), NewOutboundQueue()
	orch.Send(StartGameCmd{
		MatchingID: m.MatchingID.String(), PlayerAID: "player-a", PlayerBID: "player-b",
		PlayerACharacter: NewCharacter("a"), PlayerBCharacter: NewCharacter("b"),
		Senders: map[string]*OutboundQueue{"player-a": qa, "player-b": qb},
	})
	drain(t, qa)
	drain(t, qb)

	orch.Send(ApplyDamageCmd{MatchingID: m.MatchingID.String(), PlayerID: "player-b", Damage: DefaultMaxHP})

	endA := drain(t, qa).(GameEndEvent)
	endB := drain(t, qb).(GameEndEvent)
	if endA.Result.WinnerID != "player-a" || endB.Result.WinnerID != "player-a" {
		t.Errorf("winner = %q / %q, want player-a both times", endA.Result.WinnerID, endB.Result.WinnerID)
	}
	if endA.Result.LoserID != "player-b" {
		t.Errorf("loser = %q, want player-b", endA.Result.LoserID)
	}
}

func TestOrchestratorTieBreakFavorsPlayerA(t *testing.T) {
	orch, matches := startedOrchestrator(t)
	m := matches.Create("player-a", "alice")
	matches.Join(m.MatchingID, "player-b")

	qa, qb := NewOutboundQueue(), NewOutboundQueue()
	orch.Send(StartGameCmd{
		MatchingID: m.MatchingID.String(), PlayerAID: "player-a", PlayerBID: "player-b",
		PlayerACharacter: NewCharacter("a"), PlayerBCharacter: NewCharacter("b"),
		Senders: map[string]*OutboundQueue{"player-a": qa, "player-b": qb},
	})
	drain(t, qa)
	drain(t, qb)

	orch.Send(ApplyDamageCmd{MatchingID: m.MatchingID.String(), PlayerID: "player-a", Damage: DefaultMaxHP})
	orch.Send(ApplyDamageCmd{MatchingID: m.MatchingID.String(), PlayerID: "player-b", Damage: DefaultMaxHP})

	end := drain(t, qa).(GameEndEvent)
	if end.Result.WinnerID != "player-a" {
		t.Errorf("simultaneous double-KO winner = %q, want player-a per the tie-break rule", end.Result.WinnerID)
	}
}
