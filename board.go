/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

// The board is a linear track of 100 cells. Landing exactly on a mapped cell
// teleports the token: forward for ladders, backward for snakes. Targets are
// never themselves sources, so an effect resolves in a single hop.

const finalCell = 100

type effectKind string

const (
	effectNone   effectKind = ""
	effectSnake  effectKind = "snake"
	effectLadder effectKind = "ladder"
)

var boardEffects = map[int]int{
	// Ladders
	2: 38, 7: 14, 8: 31, 15: 26, 21: 42, 28: 84, 36: 44, 51: 67, 71: 91, 78: 98,
	// Snakes
	16: 6, 46: 25, 49: 11, 62: 19, 64: 60, 74: 53, 89: 68, 92: 88, 95: 75, 99: 80,
}

// applyMove advances pos by roll. A move past cell 100 is invalid: the
// position is returned unchanged and overshoot is true. No bounce-back,
// no partial advance.
func applyMove(pos, roll int) (cell int, overshoot bool) {
	if pos+roll > finalCell {
		return pos, true
	}
	return pos + roll, false
}

// resolveEffect follows the snake or ladder on cell, if any.
func resolveEffect(cell int) (int, effectKind) {
	target, ok := boardEffects[cell]
	if !ok {
		return cell, effectNone
	}
	if target > cell {
		return target, effectLadder
	}
	return target, effectSnake
}
