// Package protocol defines the JSON wire format between clients and the
// game server. Intents flow in, tagged messages flow out; all game payloads
// are the fog-filtered projections produced by the engine.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/deepfall/server/internal/game"
)

// Intent kinds accepted from clients.
const (
	IntentMove    = "move"
	IntentAttack  = "attack"
	IntentDescend = "descend"
	IntentPause   = "pause"
	IntentResume  = "resume"
	IntentAck     = "ack"
)

// Intent is one client request. Direction is set only for move.
type Intent struct {
	Type      string `json:"type"`
	Direction string `json:"direction,omitempty"`
	Seq       uint64 `json:"seq,omitempty"` // ack only
}

// ParseIntent decodes and validates a raw client frame. A malformed frame
// or unknown type is a protocol error; the connection survives it.
func ParseIntent(raw []byte) (Intent, error) {
	var in Intent
	if err := json.Unmarshal(raw, &in); err != nil {
		return Intent{}, fmt.Errorf("malformed intent: %w", err)
	}
	switch in.Type {
	case IntentMove:
		if !game.Direction(in.Direction).Valid() {
			return Intent{}, fmt.Errorf("invalid direction %q", in.Direction)
		}
	case IntentAttack, IntentDescend, IntentPause, IntentResume, IntentAck:
	default:
		return Intent{}, fmt.Errorf("unknown intent type %q", in.Type)
	}
	return in, nil
}

// Hello is the first client frame on a fresh connection.
type Hello struct {
	PlayerName string `json:"playerName"`
	Character  string `json:"character"`
	GameID     string `json:"gameId,omitempty"`
}

// Outbound message kinds.
const (
	MsgInit      = "init"
	MsgUpdate    = "update"
	MsgEnemyTick = "enemy_tick" // reserved for server-driven enemy turns
	MsgError     = "error"
)

// Message is one server frame.
type Message struct {
	Type    string             `json:"type"`
	Seq     uint64             `json:"seq,omitempty"`
	State   *game.VisibleState `json:"state,omitempty"`
	Deltas  []game.Delta       `json:"deltas,omitempty"`
	Message string             `json:"message,omitempty"`
}

func Init(state *game.VisibleState) Message {
	return Message{Type: MsgInit, State: state}
}

func Update(seq uint64, deltas []game.Delta) Message {
	return Message{Type: MsgUpdate, Seq: seq, Deltas: deltas}
}

func Error(msg string) Message {
	return Message{Type: MsgError, Message: msg}
}
