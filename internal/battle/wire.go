package battle

import (
	"encoding/json"
	"fmt"
)

// frame is the on-wire envelope: {"type":"<tag>","data":<payload>}.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// errSelectCharacterRetired is returned for the retired SelectCharacter
// tag; an unrecognized `type` tag gets its own "unknown message type"
// error.
var errSelectCharacterRetired = fmt.Errorf(
	"the 'SelectCharacter' message has been retired; send 'Ready' with a selected_model_id instead")

// DecodeClientCommand parses one inbound text frame into a ClientCommand.
// Decoding failures (malformed JSON, unknown type) are returned as plain
// errors; per spec.md §4.1 the caller must reply with an ErrorEvent on
// the same connection and keep the session open, never disconnect.
func DecodeClientCommand(raw []byte) (ClientCommand, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch f.Type {
	case "CreateMatching":
		var cmd CreateMatchingCmd
		if err := unmarshalData(f.Data, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case "JoinMatch":
		var cmd JoinMatchCmd
		if err := unmarshalData(f.Data, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case "Ready":
		var cmd ReadyCmd
		if err := unmarshalData(f.Data, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case "Input":
		var cmd InputCmd
		if err := unmarshalData(f.Data, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case "StateUpdate":
		var cmd StateUpdateCmd
		if err := unmarshalData(f.Data, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case "ApplyDamage":
		var cmd DamageReportCmd
		if err := unmarshalData(f.Data, &cmd); err != nil {
			return nil, err
		}
		return cmd, nil
	case "SelectCharacter":
		return nil, errSelectCharacterRetired
	default:
		return nil, fmt.Errorf("unknown message type %q", f.Type)
	}
}

func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("missing data payload")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid data payload: %w", err)
	}
	return nil
}

// EncodeServerEvent renders a ServerEvent into its wire frame. ErrorEvent
// is special-cased per spec.md §6: it omits the data wrapper and carries
// {message} inline.
func EncodeServerEvent(evt ServerEvent) ([]byte, error) {
	tag, err := eventTag(evt)
	if err != nil {
		return nil, err
	}

	if errEvt, ok := evt.(ErrorEvent); ok {
		return json.Marshal(struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}{Type: tag, Message: errEvt.Message})
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", tag, err)
	}
	return json.Marshal(frame{Type: tag, Data: data})
}

func eventTag(evt ServerEvent) (string, error) {
	switch evt.(type) {
	case MatchingCreatedEvent:
		return "MatchingCreated", nil
	case UpdateMatchingsEvent:
		return "UpdateMatchings", nil
	case MatchingEstablishedEvent:
		return "MatchingEstablished", nil
	case MatchingSuccessEvent:
		return "MatchingSuccess", nil
	case OpponentCharacterSelectedEvent:
		return "OpponentCharacterSelected", nil
	case GameStartEvent:
		return "GameStart", nil
	case OpponentStateUpdateEvent:
		return "OpponentStateUpdate", nil
	case OpponentAttackedEvent:
		return "OpponentAttacked", nil
	case GameEndEvent:
		return "GameEnd", nil
	case ErrorEvent:
		return "Error", nil
	default:
		return "", fmt.Errorf("no wire tag registered for %T", evt)
	}
}
