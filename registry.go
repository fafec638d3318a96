/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"
)

// Room codes skip easily-confused characters (I, O, 0, 1) so they survive
// being read aloud.
const roomIDCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const roomIDLength = 6

// Registry holds every live room, keyed by its shareable code. Rooms are
// created explicitly (createRoom) and only ever looked up afterwards; idle
// rooms are reaped after idleTimeout.
type Registry struct {
	mu          sync.Mutex
	rooms       map[string]*Room
	idleTimeout time.Duration
}

func newRegistry(idleTimeout time.Duration) *Registry {
	reg := &Registry{
		rooms:       make(map[string]*Room),
		idleTimeout: idleTimeout,
	}
	if idleTimeout > 0 {
		go reg.reaperLoop()
	}
	return reg
}

// createRoom mints a collision-checked code, registers a new room under it,
// and starts the room's goroutine.
func (reg *Registry) createRoom(cfg *Config) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var id string
	for {
		id = randomRoomID()
		if _, exists := reg.rooms[id]; !exists {
			break
		}
	}

	room := newRoom(id)
	reg.rooms[id] = room
	go room.run(cfg)

	return room
}

// getRoom looks up a room by code. Lookup never creates; an unknown code is
// the caller's "room not found" case.
func (reg *Registry) getRoom(id string) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return reg.rooms[strings.ToUpper(id)]
}

// reaperLoop periodically removes rooms that have been idle longer than
// idleTimeout.
func (reg *Registry) reaperLoop() {
	ticker := time.NewTicker(reg.idleTimeout / 2)
	for range ticker.C {
		reg.reap(time.Now().Add(-reg.idleTimeout))
	}
}

func (reg *Registry) reap(cutoff time.Time) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	for id, room := range reg.rooms {
		room.mu.RLock()
		last := room.lastActive
		room.mu.RUnlock()

		if last.Before(cutoff) {
			delete(reg.rooms, id)
			go room.closeAll()
		}
	}
}

// randomRoomID generates a crypto-random room code, rejection-sampled to
// keep the charset distribution uniform.
func randomRoomID() string {
	const max = byte(255 - (256 % len(roomIDCharset)))

	out := make([]byte, 0, roomIDLength)
	buf := make([]byte, roomIDLength*2)

	for {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		for _, b := range buf {
			if b <= max {
				out = append(out, roomIDCharset[int(b)%len(roomIDCharset)])
				if len(out) == roomIDLength {
					return string(out)
				}
			}
		}
	}
}
