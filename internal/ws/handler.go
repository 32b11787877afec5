// Package ws terminates client connections: handshake (including the
// cross-instance replay redirect), frame decoding, dispatch into the game
// state machine, and disconnect teardown.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/xplodegame/backend/internal/game"
	"github.com/xplodegame/backend/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades the connection and runs its message loops.
// Connections carrying a hint for a different instance are replayed there
// before the upgrade.
func HandleWebSocket(machine *game.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		if target := replayTarget(c, machine.InstanceID()); target != "" {
			redirectToInstance(c, target)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error: %v", err)
			return
		}

		client := newClient(conn)
		log.Printf("[WS] Connection %s established", client.connID)

		go client.writePump()
		client.readPump(machine)
	}
}

// readPump decodes inbound frames and dispatches them. Decode failures
// are logged and skipped; the loop only ends when the transport dies.
func (c *Client) readPump(machine *game.Machine) {
	defer func() {
		c.close()
		machine.HandleDisconnect(context.Background(), c.connID, c.playerID, c.gameID)
		log.Printf("[WS] Connection %s closed (player=%s game=%s)", c.connID, c.playerID, c.gameID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Read error on conn %s: %v", c.connID, err)
			}
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("[WS] Undecodable frame on conn %s: %v", c.connID, err)
			continue
		}
		c.dispatch(machine, msg)
	}
}

// dispatch routes one decoded frame into the state machine.
func (c *Client) dispatch(machine *game.Machine, msg protocol.Message) {
	ctx := context.Background()

	switch msg.Type {
	case protocol.TypePlay:
		var data protocol.PlayData
		if !decode(c, msg.Data, &data) {
			return
		}
		if gameID := machine.HandlePlay(ctx, c, data); gameID != "" {
			c.playerID = data.PlayerID
			c.gameID = gameID
		}

	case protocol.TypeJoin:
		var data protocol.JoinData
		if !decode(c, msg.Data, &data) {
			return
		}
		if gameID := machine.HandleJoin(ctx, c, data); gameID != "" {
			c.playerID = data.PlayerID
			c.gameID = gameID
		}

	case protocol.TypeMakeMove:
		var data protocol.MakeMoveData
		if !decode(c, msg.Data, &data) {
			return
		}
		machine.HandleMakeMove(ctx, c, c.playerID, data)

	case protocol.TypeLock:
		var data protocol.LockData
		if !decode(c, msg.Data, &data) {
			return
		}
		machine.HandleLock(ctx, c, data)

	case protocol.TypeLockComplete:
		var data protocol.LockCompleteData
		if !decode(c, msg.Data, &data) {
			return
		}
		machine.HandleLockComplete(ctx, c, data)

	case protocol.TypeStop:
		var data protocol.StopData
		if !decode(c, msg.Data, &data) {
			return
		}
		machine.HandleStop(ctx, c, data)

	case protocol.TypePing:
		var data protocol.PingData
		if !decode(c, msg.Data, &data) {
			return
		}
		machine.HandlePing(ctx, c, data)
		if data.PlayerID != "" {
			c.playerID = data.PlayerID
		}
		if data.GameID != "" {
			c.gameID = data.GameID
		}

	case protocol.TypeRematchRequest:
		var data protocol.RematchRequestData
		if !decode(c, msg.Data, &data) {
			return
		}
		machine.HandleRematchRequest(ctx, c, data)

	case protocol.TypeRematchResponse:
		var data protocol.RematchResponseData
		if !decode(c, msg.Data, &data) {
			return
		}
		machine.HandleRematchResponse(ctx, c, data)

	default:
		log.Printf("[WS] Unknown message type %q on conn %s", msg.Type, c.connID)
		c.TrySend(protocol.MustEncode(protocol.TypeError, protocol.ErrorData{Message: "unknown message type"}))
	}
}

func decode(c *Client, raw json.RawMessage, v interface{}) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		log.Printf("[WS] Bad payload on conn %s: %v", c.connID, err)
		c.TrySend(protocol.MustEncode(protocol.TypeError, protocol.ErrorData{Message: "invalid message payload"}))
		return false
	}
	return true
}
