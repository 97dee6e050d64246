package battle

import "time"

// InputKind discriminates the three shapes an InputAction may carry.
type InputKind string

const (
	InputMove   InputKind = "move"
	InputRotate InputKind = "rotate"
	InputAttack InputKind = "attack"
)

// InputAction is the payload of an Input command; which fields are
// meaningful depends on Kind.
type InputAction struct {
	Kind       InputKind  `json:"kind"`
	Direction  Vector3    `json:"direction,omitempty"`
	Speed      float32    `json:"speed,omitempty"`
	Rotation   Vector3    `json:"rotation,omitempty"`
	AttackType AttackType `json:"attack_type,omitempty"`
	Position   Vector3    `json:"position,omitempty"`
}

// ClientCommand is the marker interface for every inbound, client-to-server
// message decoded from a `{"type":...,"data":...}` frame. See wire.go for
// the codec that produces these from raw JSON.
type ClientCommand interface {
	clientCommand()
}

// CreateMatchingCmd requests a new advertised match.
type CreateMatchingCmd struct {
	Username string `json:"username,omitempty"`
}

func (CreateMatchingCmd) clientCommand() {}

// JoinMatchCmd requests pairing into an existing Waiting match.
type JoinMatchCmd struct {
	MatchingID string `json:"matching_id"`
}

func (JoinMatchCmd) clientCommand() {}

// ReadyCmd binds the sender to a Character via a previously uploaded model.
type ReadyCmd struct {
	SelectedModelID string `json:"selected_model_id"`
}

func (ReadyCmd) clientCommand() {}

// InputCmd carries one in-match player action.
type InputCmd struct {
	Action InputAction `json:"action"`
}

func (InputCmd) clientCommand() {}

// StateUpdateCmd is a full position/rotation replication frame.
type StateUpdateCmd struct {
	Position Vector3 `json:"position"`
	Rotation Vector3 `json:"rotation"`
}

func (StateUpdateCmd) clientCommand() {}

// DamageReportCmd is the sender self-reporting damage it received from
// an opponent's attack, per spec.md §1's "clients report the damage
// they received" Non-goal. Named "ApplyDamage" on the wire to match the
// Orchestrator command of the same purpose in spec.md §4.5 — the only
// §4.5 command without an obvious §4.1 input counterpart, so it is
// given its own client-facing tag rather than folded into Input.
type DamageReportCmd struct {
	Damage int32 `json:"damage"`
}

func (DamageReportCmd) clientCommand() {}

// ServerEvent is the marker interface for every outbound,
// server-to-client message, serialized into a `{"type":...,"data":...}`
// frame by wire.go.
type ServerEvent interface {
	serverEvent()
}

// MatchingCreatedEvent acknowledges a CreateMatchingCmd.
type MatchingCreatedEvent struct {
	MatchingID       string      `json:"matching_id"`
	CurrentMatchings []MatchInfo `json:"current_matchings"`
	Timestamp        time.Time   `json:"timestamp"`
}

func (MatchingCreatedEvent) serverEvent() {}

// UpdateMatchingsEvent is broadcast to every lobby advertiser when the
// set of open matches changes.
type UpdateMatchingsEvent struct {
	CurrentMatchings []MatchInfo `json:"current_matchings"`
	Timestamp        time.Time   `json:"timestamp"`
}

func (UpdateMatchingsEvent) serverEvent() {}

// MatchingEstablishedEvent is sent to both sides the first time a match
// transitions Waiting -> Matched.
type MatchingEstablishedEvent struct {
	MatchingID string    `json:"matching_id"`
	OpponentID string    `json:"opponent_id"`
	Timestamp  time.Time `json:"timestamp"`
}

func (MatchingEstablishedEvent) serverEvent() {}

// MatchingSuccessEvent is sent in place of MatchingEstablishedEvent when
// a connection re-establishes against an already-Matched match.
type MatchingSuccessEvent struct {
	MatchingID string    `json:"matching_id"`
	OpponentID string    `json:"opponent_id"`
	Timestamp  time.Time `json:"timestamp"`
}

func (MatchingSuccessEvent) serverEvent() {}

// OpponentCharacterSelectedEvent tells a player which Character its
// opponent just bound via Ready.
type OpponentCharacterSelectedEvent struct {
	Character Character `json:"character"`
	Timestamp time.Time `json:"timestamp"`
}

func (OpponentCharacterSelectedEvent) serverEvent() {}

// GameStartEvent hands each side the opponent's character and the
// recipient's own player id, once both sides are ready.
type GameStartEvent struct {
	OpponentCharacter Character `json:"opponent_character"`
	YourPlayerID      string    `json:"your_player_id"`
	Timestamp         time.Time `json:"timestamp"`
}

func (GameStartEvent) serverEvent() {}

// OpponentStateUpdateEvent replicates the opponent's full character
// state after a Move, Rotate, or StateUpdate.
type OpponentStateUpdateEvent struct {
	Opponent  Character `json:"opponent"`
	Timestamp time.Time `json:"timestamp"`
}

func (OpponentStateUpdateEvent) serverEvent() {}

// OpponentAttackedEvent fans out a client-reported attack to the opponent.
type OpponentAttackedEvent struct {
	AttackerID string     `json:"attacker_id"`
	AttackType AttackType `json:"attack_type"`
	Position   Vector3    `json:"position"`
	Direction  Vector3    `json:"direction"`
	Timestamp  time.Time  `json:"timestamp"`
}

func (OpponentAttackedEvent) serverEvent() {}

// GameEndEvent delivers the authoritative outcome to both participants.
type GameEndEvent struct {
	Result    GameResult `json:"result"`
	Timestamp time.Time  `json:"timestamp"`
}

func (GameEndEvent) serverEvent() {}

// ErrorEvent reports a protocol, state, resource, or internal error.
// Per spec.md §6 it omits the data wrapper; wire.go special-cases it.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (ErrorEvent) serverEvent() {}

// OrchestratorCommand is the marker interface for the single-consumer
// command channel feeding the Match Orchestrator. Unlike ClientCommand
// and ServerEvent these never cross the wire: they are constructed by
// the dispatcher Registry (StartGameCmd, once Ready completes both
// sides; ProcessInputCmd, ProcessStateUpdateCmd and ApplyDamageCmd,
// forwarding a ClientCommand decoded by a Connection Session) or by
// MatchRegistry.CleanupLoop (RemoveMatchCmd).
type OrchestratorCommand interface {
	orchestratorCommand()
}

// StartGameCmd installs a newly-InGame match into the Orchestrator's
// games map and triggers the GameStart fan-out.
type StartGameCmd struct {
	MatchingID       string
	PlayerAID        string
	PlayerBID        string
	PlayerACharacter Character
	PlayerBCharacter Character
	Senders          map[string]*OutboundQueue
}

func (StartGameCmd) orchestratorCommand() {}

// ProcessInputCmd forwards a decoded InputCmd to the Orchestrator for
// the actor identified by PlayerID within MatchingID.
type ProcessInputCmd struct {
	MatchingID string
	PlayerID   string
	Action     InputAction
}

func (ProcessInputCmd) orchestratorCommand() {}

// ProcessStateUpdateCmd overwrites position/rotation for one actor.
type ProcessStateUpdateCmd struct {
	MatchingID string
	PlayerID   string
	Position   Vector3
	Rotation   Vector3
}

func (ProcessStateUpdateCmd) orchestratorCommand() {}

// ApplyDamageCmd subtracts damage from one actor's hp.
type ApplyDamageCmd struct {
	MatchingID string
	PlayerID   string
	Damage     int32
}

func (ApplyDamageCmd) orchestratorCommand() {}

// RemoveMatchCmd tells the Orchestrator to drop a match from its games
// map without running the GameEnd fan-out — used by the cleanup
// loop when a match expires before ever producing a game-over tick.
type RemoveMatchCmd struct {
	MatchingID string
}

func (RemoveMatchCmd) orchestratorCommand() {}
