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

package megadrive

import (
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/image"
)

// Expansion is a device on the expansion connector that takes over the
// cartridge window at 0x000000-0x3fffff and the gate array register block
// at 0xa12000, and runs its own hardware in step with the main CPU.
//
// Word accesses reach the expansion as two byte accesses, high byte first.
// Run is called with the cycles just consumed by the main CPU, nesting any
// sub CPU inside the main CPU step.
type Expansion interface {
	Read8(addr uint32) uint8
	Write8(addr uint32, data uint8)

	Run(cycles int)

	// TakeAudio hands over samples accumulated since the last call. The
	// returned slices are only valid until the next Run
	TakeAudio() ([]float32, []float32)

	Reset()
	PersistentRAM() []byte

	SerializeSize() int
	Serialize(data []byte)
	Deserialize(data []byte)
}

// NewExpansionMachine is the preferred method of initialisation for a Mega
// Drive with an expansion device in place of a cartridge. The machine
// serializes the expansion after its own state.
func NewExpansionMachine(img image.Image, prefs hardware.Preferences, console image.Console, exp Expansion) (*Machine, error) {
	return newMachine(img, console, nil, exp)
}
