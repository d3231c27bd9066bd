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

// Package hardware defines the Machine interface implemented by every
// console core, and the Preferences value that configures one at
// construction.
//
// A machine is single threaded and cooperatively scheduled. The driver owns
// it exclusively: it calls RunFrame() once per presented frame and reads the
// television's framebuffer and audio ring between calls. Two machines never
// share state; independent sessions can run on independent goroutines
// without locking.
package hardware

import (
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/hardware/ports"
	"github.com/relicemu/relic/hardware/television"
)

// Error patterns for machine construction.
const (
	InvalidImage      = "invalid image: %v"
	UnsupportedMapper = "unsupported mapper: %v"
)

// Machine is the control surface every console core exposes to the driver.
type Machine interface {
	// Reset emulates the console's reset switch. Cartridge RAM survives a
	// reset; everything else returns to power-on state.
	Reset() error

	// RunFrame advances the machine by exactly one video frame. On error the
	// machine state is positioned at the failed step boundary and no further
	// mutation has taken place; the driver decides whether to Reset, load a
	// snapshot or abandon the session.
	RunFrame() error

	// SetInput latches controller state for the given player (0-indexed).
	SetInput(player int, state ports.State)

	// Television returns the machine's output side.
	Television() *television.Television

	// PersistentRAM returns the battery backed cartridge RAM, or nil if the
	// image declares none. The returned slice aliases live machine state;
	// the loader persists it between sessions.
	PersistentRAM() []byte

	// snapshot plumbing. see the snapshot package
	ConsoleID() image.Console
	ImageCRC() uint32
	SerializeSize() int
	Serialize(data []byte) error
	Deserialize(data []byte) error
}

// Preferences configures a machine at construction. It is passed by value;
// there is no process-wide configuration state.
type Preferences struct {
	// a tolerant machine logs and skips unimplemented opcodes instead of
	// returning an error from RunFrame
	TolerantCPU bool
}
