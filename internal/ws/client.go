package ws

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
	sendBufferSize = 256
)

// Client is one websocket connection. It implements game.Subscriber: the
// send channel is the sink the session fan-out publishes into.
type Client struct {
	conn   *websocket.Conn
	connID string

	// Populated lazily from the first Play/Join/Ping; consumed by the
	// teardown path to convert a dead transport into a forfeit.
	playerID string
	gameID   string

	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *Client {
	id := make([]byte, 8)
	rand.Read(id)
	return &Client{
		conn:   conn,
		connID: hex.EncodeToString(id),
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// Key identifies this connection in a session fan-out.
func (c *Client) Key() string {
	return c.connID
}

// TrySend queues a frame without blocking. False means the outbound
// buffer is full and the caller may kick this subscriber.
func (c *Client) TrySend(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Kick severs the transport. The read pump notices and runs teardown.
func (c *Client) Kick() {
	c.conn.Close()
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writePump writes queued frames to the connection and keeps it alive
// with protocol-level pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				log.Printf("[WS] Write error on conn %s: %v", c.connID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error on conn %s: %v", c.connID, err)
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
