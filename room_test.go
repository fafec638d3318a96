/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{bind: "127.0.0.1", port: 8080}
}

func newTestClient(id string) *client {
	return &client{send: make(chan any, 64), connID: id}
}

// drain empties a client's send buffer and returns everything it held.
func drain(c *client) []any {
	var out []any
	for {
		select {
		case m := <-c.send:
			out = append(out, m)
		default:
			return out
		}
	}
}

// joinedRoom returns a registered room with n seated players and their
// clients, send buffers drained.
func joinedRoom(t *testing.T, n int) (*Room, []*client) {
	t.Helper()

	r := newRoom("TEST42")
	clients := make([]*client, 0, n)
	for i := 0; i < n; i++ {
		c := newTestClient(string(rune('a' + i)))
		r.handleRegister(c)
		r.handleJoin(testConfig(), c, "player"+string(rune('A'+i)))
		clients = append(clients, c)
	}
	for _, c := range clients {
		drain(c)
	}
	return r, clients
}

func TestJoin(t *testing.T) {
	cfg := testConfig()

	t.Run("first joiner becomes owner", func(t *testing.T) {
		r := newRoom("TEST42")
		a := newTestClient("a")
		b := newTestClient("b")
		r.handleRegister(a)
		r.handleRegister(b)
		drain(a)
		drain(b)

		r.handleJoin(cfg, a, "Alice")
		r.handleJoin(cfg, b, "Bob")

		require.Len(t, r.players, 2)
		assert.Equal(t, "a", r.ownerID)
		assert.Equal(t, "Alice", r.players[0].name)
		assert.Equal(t, playerColors[0], r.players[0].color)
		assert.Equal(t, playerColors[1], r.players[1].color)
		assert.Equal(t, 0, r.players[0].pos)

		msgs := drain(a)
		require.Len(t, msgs, 4) // joined+state for Alice, joined+state for Bob
		joined, ok := msgs[0].(PlayerJoinedMessage)
		require.True(t, ok)
		assert.Equal(t, "Alice", joined.Name)
		assert.True(t, joined.IsOwner)

		joined, ok = msgs[2].(PlayerJoinedMessage)
		require.True(t, ok)
		assert.Equal(t, "Bob", joined.Name)
		assert.False(t, joined.IsOwner)
	})

	t.Run("blank name gets a default", func(t *testing.T) {
		r := newRoom("TEST42")
		c := newTestClient("a")
		r.handleRegister(c)
		r.handleJoin(cfg, c, "   ")

		require.Len(t, r.players, 1)
		assert.Equal(t, "Player", r.players[0].name)
	})

	t.Run("long names are truncated", func(t *testing.T) {
		r := newRoom("TEST42")
		c := newTestClient("a")
		r.handleRegister(c)
		r.handleJoin(cfg, c, "abcdefghijklmnopqrstuvwxyz")

		require.Len(t, r.players, 1)
		assert.Equal(t, "abcdefghijklmnopqrst", r.players[0].name)
	})

	t.Run("rejoining the same connection is rejected", func(t *testing.T) {
		r := newRoom("TEST42")
		c := newTestClient("a")
		r.handleRegister(c)
		r.handleJoin(cfg, c, "Alice")
		drain(c)

		r.handleJoin(cfg, c, "Alice again")

		require.Len(t, r.players, 1)
		msgs := drain(c)
		require.Len(t, msgs, 1)
		_, ok := msgs[0].(ErrorMessage)
		assert.True(t, ok)
	})

	t.Run("joining a finished game is rejected", func(t *testing.T) {
		r := newRoom("TEST42")
		r.state = stateFinished
		r.winner = "Alice"

		c := newTestClient("b")
		r.handleRegister(c)
		drain(c)
		r.handleJoin(cfg, c, "Bob")

		assert.Empty(t, r.players)
		msgs := drain(c)
		require.Len(t, msgs, 1)
		errMsg, ok := msgs[0].(ErrorMessage)
		require.True(t, ok)
		assert.Contains(t, errMsg.Message, "finished")
	})

	t.Run("joining mid-game is allowed", func(t *testing.T) {
		r, _ := joinedRoom(t, 2)
		r.state = statePlaying

		c := newTestClient("z")
		r.handleRegister(c)
		r.handleJoin(cfg, c, "Zoe")

		require.Len(t, r.players, 3)
		assert.Equal(t, 0, r.players[2].pos)
	})
}

func TestStart(t *testing.T) {
	cfg := testConfig()

	t.Run("owner starts the game", func(t *testing.T) {
		r, clients := joinedRoom(t, 2)

		r.handleStart(cfg, clients[0])

		assert.Equal(t, statePlaying, r.state)
		assert.Equal(t, 0, r.turn)

		msgs := drain(clients[1])
		require.Len(t, msgs, 2)
		_, ok := msgs[0].(GameStartedMessage)
		assert.True(t, ok)
		snap, ok := msgs[1].(StateMessage)
		require.True(t, ok)
		assert.Equal(t, statePlaying, snap.State)
	})

	t.Run("non-owner start is rejected without state change", func(t *testing.T) {
		r, clients := joinedRoom(t, 2)

		r.handleStart(cfg, clients[1])

		assert.Equal(t, stateLobby, r.state)
		msgs := drain(clients[1])
		require.Len(t, msgs, 1)
		_, ok := msgs[0].(ErrorMessage)
		assert.True(t, ok)
		assert.Empty(t, drain(clients[0]))
	})

	t.Run("restart from finished clears the winner", func(t *testing.T) {
		r, clients := joinedRoom(t, 2)
		r.state = stateFinished
		r.winner = "playerA"
		r.players[0].pos = 100

		r.handleStart(cfg, clients[0])

		assert.Equal(t, statePlaying, r.state)
		assert.Empty(t, r.winner)
		assert.Equal(t, 0, r.turn)
		assert.Equal(t, 0, r.players[0].pos, "rematch resets positions")
	})
}

func TestRoll(t *testing.T) {
	cfg := testConfig()

	t.Run("roll outside playing is rejected", func(t *testing.T) {
		r, clients := joinedRoom(t, 2)

		r.handleRoll(cfg, clients[0])

		assert.Equal(t, 0, r.players[0].pos)
		msgs := drain(clients[0])
		require.Len(t, msgs, 1)
		_, ok := msgs[0].(ErrorMessage)
		assert.True(t, ok)
	})

	t.Run("out-of-turn roll is rejected without state change", func(t *testing.T) {
		r, clients := joinedRoom(t, 2)
		r.handleStart(cfg, clients[0])
		drain(clients[0])
		drain(clients[1])

		r.handleRoll(cfg, clients[1])

		assert.Equal(t, 0, r.turn)
		assert.Equal(t, 0, r.players[1].pos)
		msgs := drain(clients[1])
		require.Len(t, msgs, 1)
		_, ok := msgs[0].(ErrorMessage)
		assert.True(t, ok)
		assert.Empty(t, drain(clients[0]))
	})

	t.Run("plain roll advances position and turn", func(t *testing.T) {
		r, clients := joinedRoom(t, 2)
		r.handleStart(cfg, clients[0])
		drain(clients[0])
		drain(clients[1])
		r.dice = func() int { return 3 }

		r.handleRoll(cfg, clients[0])

		assert.Equal(t, 3, r.players[0].pos)
		assert.Equal(t, 1, r.turn)

		msgs := drain(clients[1])
		require.Len(t, msgs, 2)
		rolled, ok := msgs[0].(DiceRolledMessage)
		require.True(t, ok)
		assert.Equal(t, "playerA", rolled.Name)
		assert.Equal(t, 3, rolled.Roll)
		assert.Equal(t, 0, rolled.From)
		assert.Equal(t, 3, rolled.To)
		assert.False(t, rolled.BonusTurn)
	})

	t.Run("rolling a six keeps the turn", func(t *testing.T) {
		r, clients := joinedRoom(t, 2)
		r.handleStart(cfg, clients[0])
		drain(clients[0])
		drain(clients[1])
		r.dice = func() int { return 6 }

		r.handleRoll(cfg, clients[0])

		assert.Equal(t, 6, r.players[0].pos)
		assert.Equal(t, 0, r.turn, "six grants a bonus turn")

		msgs := drain(clients[0])
		rolled, ok := msgs[0].(DiceRolledMessage)
		require.True(t, ok)
		assert.True(t, rolled.BonusTurn)
	})

	t.Run("overshoot keeps position but consumes the turn", func(t *testing.T) {
		r, clients := joinedRoom(t, 2)
		r.handleStart(cfg, clients[0])
		r.players[0].pos = 95
		drain(clients[0])
		drain(clients[1])
		r.dice = func() int { return 4 }

		r.handleRoll(cfg, clients[0])

		assert.Equal(t, 95, r.players[0].pos)
		assert.Equal(t, 1, r.turn)

		msgs := drain(clients[1])
		require.Len(t, msgs, 2)
		rolled, ok := msgs[0].(DiceRolledMessage)
		require.True(t, ok)
		assert.Equal(t, 95, rolled.From)
		assert.Equal(t, 95, rolled.To)
	})

	t.Run("snake fires before the roll result", func(t *testing.T) {
		r, clients := joinedRoom(t, 2)
		r.handleStart(cfg, clients[0])
		r.players[0].pos = 98
		drain(clients[0])
		drain(clients[1])
		r.dice = func() int { return 1 }

		r.handleRoll(cfg, clients[0])

		assert.Equal(t, 80, r.players[0].pos)

		msgs := drain(clients[1])
		require.Len(t, msgs, 3)
		effect, ok := msgs[0].(BoardEffectMessage)
		require.True(t, ok, "board_effect must precede dice_rolled")
		assert.Equal(t, "snake", effect.Kind)
		assert.Equal(t, 99, effect.From)
		assert.Equal(t, 80, effect.To)

		rolled, ok := msgs[1].(DiceRolledMessage)
		require.True(t, ok)
		assert.Equal(t, 98, rolled.From)
		assert.Equal(t, 80, rolled.To)
	})

	t.Run("ladder climbs before the roll result", func(t *testing.T) {
		r, clients := joinedRoom(t, 1)
		r.handleStart(cfg, clients[0])
		drain(clients[0])
		r.dice = func() int { return 2 }

		r.handleRoll(cfg, clients[0])

		assert.Equal(t, 38, r.players[0].pos)
		msgs := drain(clients[0])
		effect, ok := msgs[0].(BoardEffectMessage)
		require.True(t, ok)
		assert.Equal(t, "ladder", effect.Kind)
		assert.Equal(t, 2, effect.From)
		assert.Equal(t, 38, effect.To)
	})

	t.Run("reaching 100 finishes the game", func(t *testing.T) {
		r, clients := joinedRoom(t, 2)
		r.handleStart(cfg, clients[0])
		r.players[0].pos = 97
		drain(clients[0])
		drain(clients[1])
		r.dice = func() int { return 3 }

		r.handleRoll(cfg, clients[0])

		assert.Equal(t, stateFinished, r.state)
		assert.Equal(t, "playerA", r.winner)
		assert.Equal(t, 0, r.turn, "turn does not advance after a win")

		msgs := drain(clients[1])
		require.Len(t, msgs, 3)
		rolled, ok := msgs[0].(DiceRolledMessage)
		require.True(t, ok)
		assert.Equal(t, 100, rolled.To)
		assert.False(t, rolled.BonusTurn)
		won, ok := msgs[1].(GameWonMessage)
		require.True(t, ok)
		assert.Equal(t, "playerA", won.Name)
		snap, ok := msgs[2].(StateMessage)
		require.True(t, ok)
		assert.Equal(t, stateFinished, snap.State)
		assert.Equal(t, "playerA", snap.Winner)
	})

	t.Run("winning six does not grant a bonus turn", func(t *testing.T) {
		r, clients := joinedRoom(t, 2)
		r.handleStart(cfg, clients[0])
		r.players[0].pos = 94
		drain(clients[0])
		drain(clients[1])
		r.dice = func() int { return 6 }

		r.handleRoll(cfg, clients[0])

		assert.Equal(t, stateFinished, r.state)
		msgs := drain(clients[1])
		rolled, ok := msgs[0].(DiceRolledMessage)
		require.True(t, ok)
		assert.False(t, rolled.BonusTurn)
	})
}

func TestLeave(t *testing.T) {
	cfg := testConfig()

	t.Run("current player leaving passes the turn", func(t *testing.T) {
		r, clients := joinedRoom(t, 2)
		r.handleStart(cfg, clients[0])
		drain(clients[1])

		r.handleUnregister(cfg, clients[0])

		require.Len(t, r.players, 1)
		assert.Equal(t, 0, r.turn)
		assert.Equal(t, "playerB", r.players[r.turn].name)

		snap := drain(clients[1])
		require.Len(t, snap, 1)
		state, ok := snap[0].(StateMessage)
		require.True(t, ok)
		assert.Equal(t, "b", state.CurrentPlayer)
	})

	t.Run("owner leaving transfers ownership", func(t *testing.T) {
		r, clients := joinedRoom(t, 2)

		r.handleUnregister(cfg, clients[0])

		assert.Equal(t, "b", r.ownerID)

		// The new owner can start a game.
		r.handleStart(cfg, clients[1])
		assert.Equal(t, statePlaying, r.state)
	})

	t.Run("seat before the current one keeps the same player on turn", func(t *testing.T) {
		r, clients := joinedRoom(t, 3)
		r.handleStart(cfg, clients[0])
		r.turn = 2

		r.handleUnregister(cfg, clients[0])

		require.Len(t, r.players, 2)
		assert.Equal(t, 1, r.turn)
		assert.Equal(t, "playerC", r.players[r.turn].name)
	})

	t.Run("current player at the tail wraps the turn", func(t *testing.T) {
		r, clients := joinedRoom(t, 3)
		r.handleStart(cfg, clients[0])
		r.turn = 2

		r.handleUnregister(cfg, clients[2])

		require.Len(t, r.players, 2)
		assert.Equal(t, 0, r.turn)
	})

	t.Run("last player leaving resets the room", func(t *testing.T) {
		r, clients := joinedRoom(t, 1)
		r.handleStart(cfg, clients[0])
		r.players[0].pos = 50

		r.handleUnregister(cfg, clients[0])

		assert.Empty(t, r.players)
		assert.Equal(t, stateLobby, r.state)
		assert.Equal(t, 0, r.turn)
		assert.Empty(t, r.winner)
		assert.Empty(t, r.ownerID)
	})

	t.Run("spectator leaving does not touch the game", func(t *testing.T) {
		r, clients := joinedRoom(t, 2)
		spectator := newTestClient("z")
		r.handleRegister(spectator)

		r.handleUnregister(cfg, spectator)

		require.Len(t, r.players, 2)
		assert.Empty(t, drain(clients[0]))
	})
}

// A single player rolls to 100: positions only ever decrease on the exact
// moves that cross a snake, and the room ends finished with that winner.
func TestSinglePlayerRunToWin(t *testing.T) {
	cfg := testConfig()

	r := newRoom("TEST42")
	c := newTestClient("a")
	r.handleRegister(c)
	r.handleJoin(cfg, c, "Alice")
	r.handleStart(cfg, c)
	drain(c)

	// Seeded PCG keeps the run reproducible while still exercising snakes,
	// ladders, overshoots, and bonus turns on the way to 100.
	rng := rand.New(rand.NewSource(7))
	r.dice = func() int { return rng.Intn(6) + 1 }

	prev := 0
	for i := 0; i < 10000 && r.state == statePlaying; i++ {
		r.handleRoll(cfg, c)

		var crossedSnake bool
		for _, m := range drain(c) {
			if effect, ok := m.(BoardEffectMessage); ok && effect.Kind == "snake" {
				crossedSnake = true
			}
		}

		pos := r.players[0].pos
		if !crossedSnake {
			assert.GreaterOrEqual(t, pos, prev, "position decreased without a snake")
		}
		prev = pos

		require.True(t, r.turn == 0, "single player always holds the turn")
	}

	assert.Equal(t, stateFinished, r.state)
	assert.Equal(t, "Alice", r.winner)
	assert.Equal(t, 100, r.players[0].pos)
}

// Drive the room through its actor loop to confirm the channel plumbing
// serializes actions end to end.
func TestRoomRunLoop(t *testing.T) {
	cfg := testConfig()

	r := newRoom("TEST42")
	go r.run(cfg)

	a := newTestClient("a")
	b := newTestClient("b")

	r.register <- a
	r.register <- b
	r.actions <- action{client: a, msg: ClientMessage{Type: "join", Name: "Alice"}}
	r.actions <- action{client: b, msg: ClientMessage{Type: "join", Name: "Bob"}}
	r.actions <- action{client: a, msg: ClientMessage{Type: "start"}}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case m := <-b.send:
			if snap, ok := m.(StateMessage); ok && snap.State == statePlaying {
				require.Len(t, snap.Players, 2)
				assert.Equal(t, "a", snap.CurrentPlayer)
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for the playing snapshot")
		}
	}
}

func TestSnapshotHidesNothingItShould(t *testing.T) {
	r, _ := joinedRoom(t, 2)
	r.mu.RLock()
	snap := r.snapshotLocked()
	r.mu.RUnlock()

	assert.Equal(t, "TEST42", snap.RoomID)
	assert.Equal(t, stateLobby, snap.State)
	require.Len(t, snap.Players, 2)
	assert.Equal(t, "a", snap.CurrentPlayer)
	for _, p := range snap.Players {
		assert.NotEmpty(t, p.ID)
		assert.NotEmpty(t, p.Color)
	}
}

func TestRollDieRange(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		v := rollDie()
		require.GreaterOrEqual(t, v, 1)
		require.LessOrEqual(t, v, 6)
		seen[v] = true
	}
	assert.Len(t, seen, 6, "all faces should appear in 1000 rolls")
}
