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

type roomState string

const (
	stateLobby    roomState = "lobby"
	statePlaying  roomState = "playing"
	stateFinished roomState = "finished"
)

// Token colors, assigned round-robin by join order.
var playerColors = []string{"#e74c3c", "#3498db", "#2ecc71", "#9b59b6", "#f1c40f", "#e67e22"}

const maxNameLength = 20

// player holds the data we store server-side. connID is the ephemeral
// per-connection id; a player's seat does not survive a disconnect.
type player struct {
	connID string
	name   string
	color  string
	pos    int
}

type action struct {
	client *client
	msg    ClientMessage
}

// Room is one independent game instance. All mutations happen on the room's
// own goroutine (run), which consumes the register/unreg/actions channels one
// message at a time, so concurrent joins, rolls, and disconnects targeting
// the same room never interleave. The mutex additionally covers reads from
// the registry reaper and from tests.
type Room struct {
	id      string
	clients map[*client]bool

	state   roomState
	players []player
	turn    int
	winner  string
	ownerID string

	register chan *client
	unreg    chan *client
	actions  chan action

	// dice returns a value in 1..6; swapped out in tests.
	dice func() int

	mu sync.RWMutex

	createdAt  time.Time
	lastActive time.Time
}

func newRoom(id string) *Room {
	now := time.Now()
	return &Room{
		id:         id,
		clients:    make(map[*client]bool),
		state:      stateLobby,
		register:   make(chan *client),
		unreg:      make(chan *client),
		actions:    make(chan action),
		dice:       rollDie,
		createdAt:  now,
		lastActive: now,
	}
}

func (r *Room) run(cfg *Config) {
	for {
		select {
		case c := <-r.register:
			r.handleRegister(c)

		case c := <-r.unreg:
			r.handleUnregister(cfg, c)

		case a := <-r.actions:
			switch a.msg.Type {
			case "join":
				r.handleJoin(cfg, a.client, a.msg.Name)
			case "start":
				r.handleStart(cfg, a.client)
			case "roll":
				r.handleRoll(cfg, a.client)
			default:
				// ignore unknown types
			}
		}
	}
}

// handleRegister attaches a new connection as a spectator and sends it the
// current snapshot so it converges immediately.
func (r *Room) handleRegister(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()
	r.clients[c] = true

	select {
	case c.send <- r.snapshotLocked():
	default:
		delete(r.clients, c)
		close(c.send)
	}
}

// handleUnregister drops the connection and, if it had a seat, removes the
// player from the game.
func (r *Room) handleUnregister(cfg *Config, c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	if _, ok := r.clients[c]; ok {
		delete(r.clients, c)
		close(c.send)
	}

	idx := r.playerIndexLocked(c.connID)
	if idx < 0 {
		return
	}

	name := r.players[idx].name
	r.removePlayerLocked(idx)
	logf(cfg, "GAMES: Player %q left %s", name, r.id)

	r.broadcastLocked(r.snapshotLocked())
}

// removePlayerLocked takes the player at idx out of the turn order, keeping
// the turn index valid: an emptied room resets to the lobby, removing a seat
// before the current one shifts the index down with it, and removing the
// current player at the end of the list wraps the turn to the first player.
func (r *Room) removePlayerLocked(idx int) {
	leaving := r.players[idx].connID
	r.players = append(r.players[:idx], r.players[idx+1:]...)

	if len(r.players) == 0 {
		r.state = stateLobby
		r.turn = 0
		r.winner = ""
		r.ownerID = ""
		return
	}

	if idx < r.turn {
		r.turn--
	}
	if r.turn >= len(r.players) {
		r.turn %= len(r.players)
	}

	if r.ownerID == leaving {
		r.ownerID = r.players[0].connID
	}
}

// handleJoin seats a connection as a player. Joins are allowed in the lobby
// and mid-game; only a finished game rejects them.
func (r *Room) handleJoin(cfg *Config, c *client, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	if r.state == stateFinished {
		r.sendToLocked(c, ErrorMessage{Type: "error", Message: "Game already finished."})
		return
	}

	if r.playerIndexLocked(c.connID) >= 0 {
		r.sendToLocked(c, ErrorMessage{Type: "error", Message: "You have already joined this game."})
		return
	}

	name = strings.TrimSpace(name)
	if runes := []rune(name); len(runes) > maxNameLength {
		name = string(runes[:maxNameLength])
	}
	if name == "" {
		name = "Player"
	}

	p := player{
		connID: c.connID,
		name:   name,
		color:  playerColors[len(r.players)%len(playerColors)],
		pos:    0,
	}
	r.players = append(r.players, p)

	if r.ownerID == "" {
		r.ownerID = c.connID
	}

	logf(cfg, "GAMES: Player %q joined %s", name, r.id)

	r.broadcastLocked(PlayerJoinedMessage{
		Type:    "player_joined",
		Name:    name,
		IsOwner: r.ownerID == c.connID,
	})
	r.broadcastLocked(r.snapshotLocked())
}

// handleStart begins play. Only the owner may start, and at least one player
// must be seated. Restarting from a finished game doubles as a rematch, so
// the winner is cleared whenever play begins.
func (r *Room) handleStart(cfg *Config, c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	if c.connID != r.ownerID {
		r.sendToLocked(c, ErrorMessage{Type: "error", Message: "Only the room owner can start the game."})
		return
	}
	if len(r.players) < 1 {
		r.sendToLocked(c, ErrorMessage{Type: "error", Message: "No players have joined yet."})
		return
	}

	r.state = statePlaying
	r.turn = 0
	r.winner = ""
	for i := range r.players {
		r.players[i].pos = 0
	}

	logf(cfg, "GAMES: Game started in %s with %d players", r.id, len(r.players))

	r.broadcastLocked(GameStartedMessage{Type: "game_started"})
	r.broadcastLocked(r.snapshotLocked())
}

// handleRoll resolves one dice roll for the current player. The sequence is:
// draw the die once, attempt the move (an overshoot past 100 forfeits it),
// follow any snake or ladder on the landed cell, then either finish the game
// at cell 100 or pass the turn. A raw 6 keeps the turn unless it just won.
func (r *Room) handleRoll(cfg *Config, c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	if r.state != statePlaying {
		r.sendToLocked(c, ErrorMessage{Type: "error", Message: "The game is not in progress."})
		return
	}

	cur := &r.players[r.turn]
	if cur.connID != c.connID {
		r.sendToLocked(c, ErrorMessage{Type: "error", Message: "It is not your turn."})
		return
	}

	roll := r.dice()
	from := cur.pos

	to, overshoot := applyMove(from, roll)
	if !overshoot {
		resolved, kind := resolveEffect(to)
		if kind != effectNone {
			r.broadcastLocked(BoardEffectMessage{
				Type: "board_effect",
				Kind: string(kind),
				From: to,
				To:   resolved,
			})
			to = resolved
		}
	}

	cur.pos = to
	bonus := roll == 6 && to != finalCell

	r.broadcastLocked(DiceRolledMessage{
		Type:      "dice_rolled",
		Name:      cur.name,
		Roll:      roll,
		From:      from,
		To:        to,
		BonusTurn: bonus,
	})

	if to == finalCell {
		r.state = stateFinished
		r.winner = cur.name
		logf(cfg, "GAMES: Player %q won %s", cur.name, r.id)

		r.broadcastLocked(GameWonMessage{Type: "game_won", Name: cur.name})
		r.broadcastLocked(r.snapshotLocked())
		return
	}

	if roll != 6 {
		r.turn = (r.turn + 1) % len(r.players)
	}

	r.broadcastLocked(r.snapshotLocked())
}

func (r *Room) playerIndexLocked(connID string) int {
	for i := range r.players {
		if r.players[i].connID == connID {
			return i
		}
	}
	return -1
}

func (r *Room) snapshotLocked() StateMessage {
	players := make([]PlayerSnapshot, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, PlayerSnapshot{
			ID:       p.connID,
			Name:     p.name,
			Color:    p.color,
			Position: p.pos,
		})
	}

	var current string
	if len(r.players) > 0 && r.turn >= 0 && r.turn < len(r.players) {
		current = r.players[r.turn].connID
	}

	return StateMessage{
		Type:          "state",
		RoomID:        r.id,
		State:         r.state,
		Players:       players,
		Turn:          r.turn,
		CurrentPlayer: current,
		Winner:        r.winner,
	}
}

func (r *Room) broadcastLocked(msg any) {
	for c := range r.clients {
		select {
		case c.send <- msg:
		default:
			delete(r.clients, c)
			close(c.send)
		}
	}
}

// sendToLocked delivers to one client. Channels are only ever closed as they
// leave the clients map, so membership means the send channel is still open.
func (r *Room) sendToLocked(c *client, msg any) {
	if !r.clients[c] {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(r.clients, c)
		close(c.send)
	}
}

// closeAll disconnects all clients of this room (used by the reaper).
func (r *Room) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for c := range r.clients {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		delete(r.clients, c)
	}
}

// rollDie draws a value in 1..6 from crypto/rand, rejection-sampled to stay
// uniform.
func rollDie() int {
	// 252 is the largest multiple of 6 below 256.
	const limit = 252

	for {
		var b [1]byte
		if _, err := rand.Read(b[:]); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		if b[0] < limit {
			return int(b[0])%6 + 1
		}
	}
}
