// Package battle implements the match orchestration engine: connection
// sessions, the lobby and session registries, the channel fan-out
// substrate, and the authoritative match orchestrator.
package battle

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMaxHP is the starting and maximum hit points for a new Character.
const DefaultMaxHP int32 = 100

// AttackType distinguishes the two attack kinds a client may report.
type AttackType int

const (
	AttackNormal AttackType = iota
	AttackSpecial
)

func (a AttackType) String() string {
	switch a {
	case AttackSpecial:
		return "special"
	default:
		return "normal"
	}
}

// MarshalJSON renders the attack type the way clients send it.
func (a AttackType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON parses the attack type from its wire string form.
func (a *AttackType) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"special"`:
		*a = AttackSpecial
	default:
		*a = AttackNormal
	}
	return nil
}

// Character is the per-match avatar state owned exclusively by the
// Match Orchestrator once a match reaches InGame.
type Character struct {
	ModelID  string  `json:"model_id"`
	Position Vector3 `json:"position"`
	Rotation Vector3 `json:"rotation"`
	HP       int32   `json:"hp"`
	MaxHP    int32   `json:"max_hp"`
}

// NewCharacter creates a Character bound to the given model at full health.
func NewCharacter(modelID string) Character {
	return Character{
		ModelID:  modelID,
		Position: ZeroVector3(),
		Rotation: ZeroVector3(),
		HP:       DefaultMaxHP,
		MaxHP:    DefaultMaxHP,
	}
}

// IsAlive reports whether the character still has hit points.
func (c Character) IsAlive() bool {
	return c.HP > 0
}

// ApplyDamage clamps hp to [0, MaxHP] after subtracting damage.
func (c *Character) ApplyDamage(damage int32) {
	c.HP -= damage
	if c.HP < 0 {
		c.HP = 0
	}
	if c.HP > c.MaxHP {
		c.HP = c.MaxHP
	}
}

// Player is a single participant in a Match.
type Player struct {
	ID        string
	Username  string
	Character *Character
	Ready     bool
}

// NewPlayer creates an unready player with no character assigned.
func NewPlayer(id, username string) *Player {
	return &Player{ID: id, Username: username}
}

// MatchingStatus is the monotonic lifecycle stage of a Match.
type MatchingStatus int

const (
	StatusWaiting MatchingStatus = iota
	StatusMatched
	StatusInGame
	StatusFinished
)

func (s MatchingStatus) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusMatched:
		return "matched"
	case StatusInGame:
		return "in_game"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

func (s MatchingStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// DefaultMatchValidityWindow is how long a match may sit with both
// connections absent from the Channel Registry before cleanup expires
// it, used when a caller has no configured override (see
// appconfig.ServerConfig.MatchValidityWindow).
const DefaultMatchValidityWindow = 60 * time.Second

// Match is the two-slot rendezvous object identified by matching_id.
//
// Match is exclusively owned by the Session Registry; the Match
// Orchestrator holds only a replicated CharacterState keyed by
// match-id (see orchestrator.go). Never retain a *Match pointer
// outside the Session Registry's lock.
type Match struct {
	MatchingID      uuid.UUID
	CreatorUsername string
	PlayerA         *Player
	PlayerB         *Player
	Status          MatchingStatus
	CreatedAt       time.Time
	LastActiveAt    *time.Time
	StartedAt       time.Time
	BattleStarted   bool
	BattleFinished  bool
}

// NewMatch creates a Waiting match hosted by the given player.
func NewMatch(creatorID, creatorUsername string) *Match {
	return &Match{
		MatchingID:      uuid.New(),
		CreatorUsername: creatorUsername,
		PlayerA:         NewPlayer(creatorID, creatorUsername),
		Status:          StatusWaiting,
		CreatedAt:       time.Now(),
	}
}

// IsBothReady reports whether both players are ready with characters assigned.
func (m *Match) IsBothReady() bool {
	if m.PlayerA == nil || m.PlayerB == nil {
		return false
	}
	return m.PlayerA.Ready && m.PlayerB.Ready &&
		m.PlayerA.Character != nil && m.PlayerB.Character != nil
}

// IsValid reports whether the match has not finished and has not
// exceeded validityWindow of inactivity.
func (m *Match) IsValid(now time.Time, validityWindow time.Duration) bool {
	if m.BattleFinished {
		return false
	}
	if m.LastActiveAt == nil {
		return true
	}
	return now.Sub(*m.LastActiveAt) <= validityWindow
}

// Opponent returns the other player relative to playerID, or nil if
// playerID is not a participant or the opponent slot is empty.
func (m *Match) Opponent(playerID string) *Player {
	switch {
	case m.PlayerA != nil && m.PlayerA.ID == playerID:
		return m.PlayerB
	case m.PlayerB != nil && m.PlayerB.ID == playerID:
		return m.PlayerA
	default:
		return nil
	}
}

// MatchInfo is the public, opponent-agnostic summary of an advertised
// match used in lobby snapshots.
type MatchInfo struct {
	MatchingID      uuid.UUID      `json:"matching_id"`
	CreatorUsername string         `json:"creator_username,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	Status          MatchingStatus `json:"status"`
}

// GameResult is the authoritative outcome of a finished match.
type GameResult struct {
	MatchingID      uuid.UUID `json:"matching_id"`
	WinnerID        string    `json:"winner_id"`
	LoserID         string    `json:"loser_id"`
	PlayerAID       string    `json:"player_a_id"`
	PlayerBID       string    `json:"player_b_id"`
	PlayTimeSeconds int64     `json:"play_time_seconds"`
	FinishedAt      time.Time `json:"finished_at"`
}
