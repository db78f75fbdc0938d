package main

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Client is one websocket connection. A participant's identity is the
// playerID cookie, not the connection: reconnecting with the same cookie
// reclaims the same seat.
type Client struct {
	conn     *websocket.Conn
	send     chan any
	done     chan struct{}
	playerID string

	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, playerID string) *Client {
	return &Client{
		conn:     conn,
		send:     make(chan any, 32),
		done:     make(chan struct{}),
		playerID: playerID,
	}
}

// shutdown releases the write pump. Safe to call more than once.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

const playerCookieName = "wildchess_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// readPump decodes inbound messages and hands them to the manager until
// the connection drops. Runs on the connection's handler goroutine.
func (c *Client) readPump(mgr *RoomManager) {
	defer func() {
		mgr.handleDisconnect(c)
		c.shutdown()
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		mgr.dispatch(c, msg)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// deliver queues a message without ever blocking the caller. A client
// whose buffer is full has its connection closed rather than being
// allowed to stall a room.
func (c *Client) deliver(msg any) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}
