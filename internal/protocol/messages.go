// Package protocol defines the tagged wire messages exchanged over the
// per-connection websocket. Every frame is a Message whose Type field
// discriminates the payload.
package protocol

import "encoding/json"

// Message types, client to server.
const (
	TypePlay            = "play"
	TypeJoin            = "join"
	TypeMakeMove        = "make_move"
	TypeLock            = "lock"
	TypeLockComplete    = "lock_complete"
	TypeStop            = "stop"
	TypePing            = "ping"
	TypeRematchRequest  = "rematch_request"
	TypeRematchResponse = "rematch_response"
)

// Message types, server to client.
const (
	TypeGameUpdate       = "game_update"
	TypeError            = "error"
	TypeRedirectToServer = "redirect_to_server"
	TypePong             = "pong"
)

// Message is one wire frame: a type tag plus a type-specific payload.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// PlayData enters matchmaking: join any game with matching attributes or
// create a new one.
type PlayData struct {
	PlayerID   string  `json:"player_id"`
	Name       string  `json:"name"`
	Stake      float64 `json:"stake"`
	MinPlayers int     `json:"min_players"`
	Bombs      int     `json:"bombs"`
	Grid       int     `json:"grid"`
	Currency   string  `json:"currency,omitempty"`
}

// JoinData joins a specific game by id.
type JoinData struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// MakeMoveData reveals a cell.
type MakeMoveData struct {
	GameID string `json:"game_id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// LockData stages a candidate cell for co-players during the current turn.
type LockData struct {
	GameID string `json:"game_id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// LockCompleteData commits the turn hand-off.
type LockCompleteData struct {
	GameID string `json:"game_id"`
}

// StopData terminates a game. Abort=true cancels without settlement;
// abort=false is a forfeit by the current turn holder.
type StopData struct {
	GameID string `json:"game_id"`
	Abort  bool   `json:"abort"`
}

// PingData keeps the connection alive and optionally late-subscribes the
// sender to a game's updates.
type PingData struct {
	GameID   string `json:"game_id,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
}

// RematchRequestData asks the other participants of a finished game for a
// rematch.
type RematchRequestData struct {
	GameID    string `json:"game_id"`
	Requester string `json:"requester"`
}

// RematchResponseData votes on a pending rematch.
type RematchResponseData struct {
	GameID      string `json:"game_id"`
	PlayerID    string `json:"player_id"`
	WantRematch bool   `json:"want_rematch"`
}

// ErrorData is a single error reply to the requester.
type ErrorData struct {
	Message string `json:"message"`
}

// RedirectData steers the client to the instance owning the target game.
type RedirectData struct {
	GameID     string `json:"game_id"`
	InstanceID string `json:"instance_id"`
}

// Encode wraps a payload in a tagged Message frame.
func Encode(msgType string, payload interface{}) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = raw
	}
	return json.Marshal(Message{Type: msgType, Data: data})
}

// MustEncode is Encode for payloads that cannot fail to marshal.
func MustEncode(msgType string, payload interface{}) []byte {
	data, err := Encode(msgType, payload)
	if err != nil {
		panic(err)
	}
	return data
}
