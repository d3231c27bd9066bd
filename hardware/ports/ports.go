// This file is part of Relic.
//
// Relic is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Relic is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Relic.  If not, see <https://www.gnu.org/licenses/>.

// Package ports defines the controller state handed to a machine by the
// driver. Input device mapping happens outside the core; by the time state
// reaches a machine it is a plain button bitmask. Machines latch the state
// into their own shift registers or port logic as their hardware requires.
package ports

// State is a bitmask of pressed buttons.
type State uint32

// Button bits. Consoles use the subset that exists on their pads; bits for
// buttons a console does not have are ignored by that machine.
const (
	Up State = 1 << iota
	Down
	Left
	Right
	A
	B
	C
	X
	Y
	Z
	L
	R
	Start
	Select
	Mode
)

// Pressed reports whether all buttons in mask are pressed.
func (s State) Pressed(mask State) bool {
	return s&mask == mask
}
