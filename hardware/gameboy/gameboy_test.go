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

package gameboy_test

import (
	"bytes"
	"testing"

	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/cpu/sm83"
	"github.com/relicemu/relic/hardware/gameboy"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/hardware/ports"
	"github.com/relicemu/relic/test"
)

// makeImage builds a Game Boy image with the given cartridge type and the
// program at the entry point 0x0100.
func makeImage(cartType uint8, romSize int, program ...uint8) image.Image {
	rom := make([]byte, romSize)
	rom[0x0147] = cartType
	copy(rom[0x0100:], program)
	return image.Image{Console: image.GameBoy, Data: rom}
}

func TestInvalidImage(t *testing.T) {
	_, err := gameboy.NewMachine(image.Image{Data: []byte("tiny")}, hardware.Preferences{})
	test.ExpectedFailure(t, err)
	test.Equate(t, curated.Is(err, hardware.InvalidImage), true)
}

func TestUnsupportedMBC(t *testing.T) {
	img := makeImage(0x20, 32768)
	_, err := gameboy.NewMachine(img, hardware.Preferences{})
	test.ExpectedFailure(t, err)
	test.Equate(t, curated.Is(err, hardware.UnsupportedMapper), true)
}

func TestBackgroundShade(t *testing.T) {
	// map colour 0 to the darkest shade and spin. the empty tile map
	// renders the whole frame in it
	img := makeImage(0x00, 32768,
		0x3e, 0xff, // LD A,$ff
		0xe0, 0x47, // LDH ($47),A - BGP
		0x18, 0xfe, // JR self
	)

	m, err := gameboy.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	test.ExpectedSuccess(t, m.RunFrame())
	test.Equate(t, m.Television().FrameNum(), 1)

	fb := m.Television().Frame()
	test.Equate(t, fb.Pix[0], 0x00)
	test.Equate(t, fb.Pix[1], 0x00)
	test.Equate(t, fb.Pix[2], 0x00)
	test.Equate(t, fb.Pix[3], 0xff)
}

func TestMBC1BankSwitch(t *testing.T) {
	// select two different banks and copy a marker from each into WRAM
	program := []uint8{
		0x3e, 0x02, // LD A,$02
		0xea, 0x00, 0x20, // LD ($2000),A - select bank 2
		0xfa, 0x00, 0x41, // LD A,($4100)
		0xea, 0x00, 0xc0, // LD ($c000),A
		0x3e, 0x03, // LD A,$03
		0xea, 0x00, 0x20, // LD ($2000),A - select bank 3
		0xfa, 0x00, 0x41, // LD A,($4100)
		0xea, 0x01, 0xc0, // LD ($c001),A
		0x18, 0xfe, // JR self
	}
	img := makeImage(0x01, 65536, program...)
	img.Data[2*0x4000+0x100] = 0xaa
	img.Data[3*0x4000+0x100] = 0xbb

	m, err := gameboy.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, m.RunFrame())

	// WRAM immediately follows the CPU in the serialization layout
	data := make([]byte, m.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(data))
	test.Equate(t, data[sm83.SerializeSize+0], 0xaa)
	test.Equate(t, data[sm83.SerializeSize+1], 0xbb)
}

func TestJoypad(t *testing.T) {
	// select the button group and read it into WRAM
	img := makeImage(0x00, 32768,
		0x3e, 0x10, // LD A,$10
		0xe0, 0x00, // LDH ($00),A - select buttons
		0xf0, 0x00, // LDH A,($00)
		0xea, 0x00, 0xc0, // LD ($c000),A
		0x18, 0xfe, // JR self
	)

	m, err := gameboy.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)
	m.SetInput(0, ports.A)
	test.ExpectedSuccess(t, m.RunFrame())

	data := make([]byte, m.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(data))

	// $c0 floating bits, button select, A held low
	test.Equate(t, data[sm83.SerializeSize], 0xde)
}

func TestSnapshotRoundTrip(t *testing.T) {
	img := makeImage(0x00, 32768,
		0x3e, 0xc0, // LD A,$c0
		0xe0, 0x47, // LDH ($47),A - BGP
		0x21, 0x00, 0xc0, // LD HL,$c000
		0x34,       // INC (HL)
		0x18, 0xfd, // JR to the INC
	)

	m, err := gameboy.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	for i := 0; i < 3; i++ {
		test.ExpectedSuccess(t, m.RunFrame())
	}

	data := make([]byte, m.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(data))

	other, err := gameboy.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, other.Deserialize(data))

	test.ExpectedSuccess(t, m.RunFrame())
	test.ExpectedSuccess(t, other.RunFrame())
	test.Equate(t, bytes.Equal(m.Television().Frame().Pix, other.Television().Frame().Pix), true)

	after := make([]byte, m.SerializeSize())
	otherAfter := make([]byte, other.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(after))
	test.ExpectedSuccess(t, other.Serialize(otherAfter))
	test.Equate(t, bytes.Equal(after, otherAfter), true)
}
