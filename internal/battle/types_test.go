package battle

import (
	"testing"
	"time"
)

func TestCharacterApplyDamageClampsAtZero(t *testing.T) {
	c := NewCharacter("model-1")
	c.ApplyDamage(DefaultMaxHP + 50)
	if c.HP != 0 {
		t.Errorf("HP = %d, want 0", c.HP)
	}
	if c.IsAlive() {
		t.Error("IsAlive() = true after lethal damage")
	}
}

func TestCharacterApplyDamageNeverExceedsMaxHP(t *testing.T) {
	c := NewCharacter("model-1")
	c.ApplyDamage(-1000) // a negative report should not inflate hp past max
	if c.HP != c.MaxHP {
		t.Errorf("HP = %d, want MaxHP %d", c.HP, c.MaxHP)
	}
}

func TestMatchIsBothReadyRequiresCharacters(t *testing.T) {
	m := NewMatch("player-a", "alice")
	m.PlayerB = NewPlayer("player-b", "bob")
	if m.IsBothReady() {
		t.Fatal("IsBothReady() = true before either side is ready")
	}

	m.PlayerA.Ready = true
	if m.IsBothReady() {
		t.Fatal("IsBothReady() = true with only one side ready")
	}

	charA := NewCharacter("model-a")
	charB := NewCharacter("model-b")
	m.PlayerA.Character = &charA
	m.PlayerB.Ready = true
	m.PlayerB.Character = &charB
	if !m.IsBothReady() {
		t.Fatal("IsBothReady() = false once both sides are ready with characters")
	}
}

func TestMatchIsValidExpiresAfterWindow(t *testing.T) {
	m := NewMatch("player-a", "alice")
	now := time.Now()

	if !m.IsValid(now, DefaultMatchValidityWindow) {
		t.Fatal("a fresh match with no recorded absence should be valid")
	}

	absentSince := now.Add(-DefaultMatchValidityWindow - time.Second)
	m.LastActiveAt = &absentSince
	if m.IsValid(now, DefaultMatchValidityWindow) {
		t.Fatal("a match absent longer than the validity window should be invalid")
	}

	justAbsent := now.Add(-time.Second)
	m.LastActiveAt = &justAbsent
	if !m.IsValid(now, DefaultMatchValidityWindow) {
		t.Fatal("a match absent briefly should still be valid")
	}
}

func TestMatchIsValidFalseOnceFinished(t *testing.T) {
	m := NewMatch("player-a", "alice")
	m.BattleFinished = true
	if m.IsValid(time.Now(), DefaultMatchValidityWindow) {
		t.Fatal("a finished match should never be valid")
	}
}

func TestMatchOpponent(t *testing.T) {
	m := NewMatch("player-a", "alice")
	m.PlayerB = NewPlayer("player-b", "bob")

	if opp := m.Opponent("player-a"); opp == nil || opp.ID != "player-b" {
		t.Fatalf("Opponent(player-a) = %+v, want player-b", opp)
	}
	if opp := m.Opponent("player-b"); opp == nil || opp.ID != "player-a" {
		t.Fatalf("Opponent(player-b) = %+v, want player-a", opp)
	}
	if opp := m.Opponent("stranger"); opp != nil {
		t.Fatalf("Opponent(stranger) = %+v, want nil", opp)
	}
}

func TestAttackTypeJSONRoundTrip(t *testing.T) {
	data, err := AttackSpecial.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() failed: %v", err)
	}
	var got AttackType
	if err := got.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON() failed: %v", err)
	}
	if got != AttackSpecial {
		t.Errorf("round trip = %v, want AttackSpecial", got)
	}
}
