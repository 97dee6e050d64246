package battle

import "testing"

func TestLobbyRegistryInsertSnapshotExcludesSelf(t *testing.T) {
	matches := NewMatchRegistry()
	lobby := NewLobbyRegistry()

	alice := matches.Create("player-a", "alice")
	bob := matches.Create("player-b", "bob")
	lobby.Insert("player-a", alice.MatchingID, NewOutboundQueue())
	lobby.Insert("player-b", bob.MatchingID, NewOutboundQueue())

	seenByAlice := lobby.Snapshot("player-a", matches)
	if len(seenByAlice) != 1 || seenByAlice[0].MatchingID != bob.MatchingID {
		t.Errorf("Snapshot(player-a) = %+v, want only bob's match", seenByAlice)
	}
}

func TestLobbyRegistryRemove(t *testing.T) {
	lobby := NewLobbyRegistry()
	matchID := NewMatch("player-a", "alice").MatchingID
	lobby.Insert("player-a", matchID, NewOutboundQueue())

	got, ok := lobby.Remove("player-a")
	if !ok || got != matchID {
		t.Fatalf("Remove() = (%v, %v), want (%v, true)", got, ok, matchID)
	}

	if _, ok := lobby.Remove("player-a"); ok {
		t.Error("Remove() of an already-removed entry should report ok = false")
	}
}

func TestLobbyRegistryBroadcastUpdateReachesEveryAdvertiser(t *testing.T) {
	matches := NewMatchRegistry()
	lobby := NewLobbyRegistry()

	alice := matches.Create("player-a", "alice")
	bob := matches.Create("player-b", "bob")
	qa, qb := NewOutboundQueue(), NewOutboundQueue()
	lobby.Insert("player-a", alice.MatchingID, qa)
	lobby.Insert("player-b", bob.MatchingID, qb)

	lobby.BroadcastUpdate(matches)

	for _, q := range []*OutboundQueue{qa, qb} {
		evt, ok := q.Next()
		if !ok {
			t.Fatal("expected an UpdateMatchings event")
		}
		if _, ok := evt.(UpdateMatchingsEvent); !ok {
			t.Errorf("event type = %T, want UpdateMatchingsEvent", evt)
		}
	}
}
