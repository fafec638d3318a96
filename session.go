/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client is one websocket connection subscribed to a room. connID is minted
// per connection and identifies the player for its lifetime; there is no
// account or cookie behind it.
type client struct {
	conn   *websocket.Conn
	send   chan any
	connID string
}

func newConnID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	return hex.EncodeToString(buf)
}

// serveWS subscribes a connection to the room named in the route. An unknown
// room code is rejected before the upgrade.
func serveWS(cfg *Config, reg *Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if roomID == "" {
			http.Error(w, "missing room id", http.StatusBadRequest)
			return
		}

		connID := newConnID()
		if connID == "" {
			http.Error(w, "unable to assign connection id", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		room := reg.getRoom(roomID)
		if room == nil {
			_ = conn.WriteJSON(ErrorMessage{Type: "error", Message: "Room not found."})
			_ = conn.Close()
			return
		}

		c := &client{
			conn:   conn,
			send:   make(chan any, 8),
			connID: connID,
		}

		room.register <- c

		go c.writePump()
		c.readPump(room)
	}
}

func (c *client) readPump(r *Room) {
	defer func() {
		r.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "join", "start", "roll":
			r.actions <- action{client: c, msg: msg}
		default:
			// ignore unknown types
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
