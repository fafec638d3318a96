/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

// Messages coming from clients
type ClientMessage struct {
	Type string `json:"type"`           // "join", "start", "roll"
	Name string `json:"name,omitempty"` // join
}

// ErrorMessage is sent to a single client when an action is rejected.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

// PlayerJoinedMessage announces a new player to the whole room.
type PlayerJoinedMessage struct {
	Type    string `json:"type"` // "player_joined"
	Name    string `json:"name"`
	IsOwner bool   `json:"is_owner"`
}

// GameStartedMessage announces the lobby -> playing transition.
type GameStartedMessage struct {
	Type string `json:"type"` // "game_started"
}

// DiceRolledMessage reports a resolved roll. To reflects any snake or ladder
// already applied; BonusTurn is true when the roller keeps the turn.
type DiceRolledMessage struct {
	Type      string `json:"type"` // "dice_rolled"
	Name      string `json:"name"`
	Roll      int    `json:"roll"`
	From      int    `json:"from"`
	To        int    `json:"to"`
	BonusTurn bool   `json:"bonus_turn"`
}

// BoardEffectMessage is emitted before the dice_rolled message that
// triggered it, with the landed cell as From.
type BoardEffectMessage struct {
	Type string `json:"type"` // "board_effect"
	Kind string `json:"kind"` // "snake" or "ladder"
	From int    `json:"from"`
	To   int    `json:"to"`
}

// GameWonMessage announces the winner.
type GameWonMessage struct {
	Type string `json:"type"` // "game_won"
	Name string `json:"name"`
}

// PlayerSnapshot is the public view of one player. ID is the opaque
// per-connection id, exposed only so clients can match current_player.
type PlayerSnapshot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Position int    `json:"pos"`
}

// StateMessage is the full room snapshot broadcast after every accepted
// action. Late joiners and reconnecting observers converge by replacing
// their view wholesale, so missed incremental events never cause drift.
type StateMessage struct {
	Type          string           `json:"type"` // "state"
	RoomID        string           `json:"id"`
	State         roomState        `json:"state"`
	Players       []PlayerSnapshot `json:"players"`
	Turn          int              `json:"turn"`
	CurrentPlayer string           `json:"current,omitempty"`
	Winner        string           `json:"winner,omitempty"`
}
