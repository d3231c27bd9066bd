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

package segacd_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/hardware/megadrive/segacd"
	"github.com/relicemu/relic/test"
	m68k "github.com/user-none/go-chip-m68k"
)

// makeImage builds a Sega CD image whose BIOS runs the given main CPU
// program from the reset vector.
func makeImage(program ...uint8) image.Image {
	bios := make([]byte, 0x20000)
	binary.BigEndian.PutUint32(bios[0x0:], 0x00fffd00) // initial stack
	binary.BigEndian.PutUint32(bios[0x4:], 0x00000200) // entry point
	copy(bios[0x200:], program)
	return image.Image{Console: image.SegaCD, BIOS: bios}
}

// bootProgram is a main CPU program that loads a small sub CPU program
// into PRG RAM, releases the sub CPU, and then continuously copies the
// first communication status byte into work RAM.
//
// The sub CPU program writes 0x42 to its first status register and 0x77
// into backup RAM, then spins.
var bootProgram = []uint8{
	0x23, 0xfc, 0x00, 0x07, 0x80, 0x00, 0x00, 0x02, 0x00, 0x00, // MOVE.L #$00078000,$020000 (sub stack)
	0x23, 0xfc, 0x00, 0x00, 0x00, 0x08, 0x00, 0x02, 0x00, 0x04, // MOVE.L #$00000008,$020004 (sub entry)
	0x23, 0xfc, 0x13, 0xfc, 0x00, 0x42, 0x00, 0x02, 0x00, 0x08, // MOVE.B #$42,$FF8020 (as data)
	0x23, 0xfc, 0x00, 0xff, 0x80, 0x20, 0x00, 0x02, 0x00, 0x0c,
	0x23, 0xfc, 0x13, 0xfc, 0x00, 0x77, 0x00, 0x02, 0x00, 0x10, // MOVE.B #$77,$FE0001 (as data)
	0x23, 0xfc, 0x00, 0xfe, 0x00, 0x01, 0x00, 0x02, 0x00, 0x14,
	0x33, 0xfc, 0x60, 0xfe, 0x00, 0x02, 0x00, 0x18, // MOVE.W #$60FE,$020018 (BRA self, as data)
	0x13, 0xfc, 0x00, 0x01, 0x00, 0xa1, 0x20, 0x01, // MOVE.B #$01,$A12001 (release sub reset and bus)
	0x13, 0xf9, 0x00, 0xa1, 0x20, 0x20, 0x00, 0xff, 0x00, 0x00, // MOVE.B $A12020,$FF0000
	0x60, 0xf4, // BRA to the copy
}

func TestInvalidImage(t *testing.T) {
	_, err := segacd.NewMachine(image.Image{Console: image.SegaCD}, hardware.Preferences{})
	test.ExpectedFailure(t, err)
	test.Equate(t, curated.Is(err, hardware.InvalidImage), true)
}

func TestSubCPUCommunication(t *testing.T) {
	m, err := segacd.NewMachine(makeImage(bootProgram...), hardware.Preferences{})
	test.ExpectedSuccess(t, err)
	test.Equate(t, m.ConsoleID(), image.SegaCD)

	test.ExpectedSuccess(t, m.RunFrame())

	// the sub CPU's status byte, copied into work RAM by the main CPU.
	// work RAM immediately follows the CPU in the serialization layout
	data := make([]byte, m.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(data))
	test.Equate(t, data[m68k.SerializeSize+0], 0x42)

	// the sub CPU's write to backup RAM
	ram := m.PersistentRAM()
	test.Equate(t, len(ram), 0x2000)
	test.Equate(t, ram[0], 0x77)
}

func TestSnapshotRoundTrip(t *testing.T) {
	img := makeImage(bootProgram...)

	m, err := segacd.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	for i := 0; i < 2; i++ {
		test.ExpectedSuccess(t, m.RunFrame())
	}

	data := make([]byte, m.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(data))

	other, err := segacd.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, other.Deserialize(data))

	test.ExpectedSuccess(t, m.RunFrame())
	test.ExpectedSuccess(t, other.RunFrame())

	after := make([]byte, m.SerializeSize())
	otherAfter := make([]byte, other.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(after))
	test.ExpectedSuccess(t, other.Serialize(otherAfter))
	test.Equate(t, bytes.Equal(after, otherAfter), true)
}
