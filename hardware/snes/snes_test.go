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

package snes_test

import (
	"bytes"
	"testing"

	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/cpu/w65c816"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/hardware/snes"
	"github.com/relicemu/relic/test"
)

// makeImage builds a one bank LoROM image that runs the given program
// from the reset vector. The CPU starts in emulation mode so the vector
// sits at the top of bank zero.
func makeImage(program ...uint8) image.Image {
	rom := make([]byte, 0x8000)
	copy(rom, program)
	rom[0x7ffc] = 0x00 // reset vector $8000
	rom[0x7ffd] = 0x80
	return image.Image{Console: image.SNES, Data: rom}
}

func TestInvalidImage(t *testing.T) {
	_, err := snes.NewMachine(image.Image{Console: image.SNES, Data: []byte{0x00}}, hardware.Preferences{})
	test.ExpectedFailure(t, err)
	test.Equate(t, curated.Is(err, hardware.InvalidImage), true)
}

func TestUnsupportedMapper(t *testing.T) {
	img := makeImage()
	img.Mapper = 5
	_, err := snes.NewMachine(img, hardware.Preferences{})
	test.ExpectedFailure(t, err)
	test.Equate(t, curated.Is(err, hardware.UnsupportedMapper), true)
}

func TestBackdropColour(t *testing.T) {
	// set CGRAM colour zero to full red and raise the screen brightness
	img := makeImage(
		0xa9, 0x00, // LDA #$00
		0x8d, 0x21, 0x21, // STA $2121
		0xa9, 0x1f, // LDA #$1F
		0x8d, 0x22, 0x21, // STA $2122
		0xa9, 0x00, // LDA #$00
		0x8d, 0x22, 0x21, // STA $2122
		0xa9, 0x0f, // LDA #$0F
		0x8d, 0x00, 0x21, // STA $2100
		0x80, 0xfe, // BRA self
	)

	m, err := snes.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)
	test.Equate(t, m.ConsoleID(), image.SNES)

	test.ExpectedSuccess(t, m.RunFrame())

	fb := m.Television().Frame()
	test.Equate(t, fb.Pix[0], 0xf8)
	test.Equate(t, fb.Pix[1], 0x00)
	test.Equate(t, fb.Pix[2], 0x00)
	test.Equate(t, fb.Pix[3], 0xff)
}

func TestWorkRAMAndMultiplier(t *testing.T) {
	// multiply 7 by 6 in the io unit and store the product in both work
	// RAM banks
	img := makeImage(
		0xa9, 0x07, // LDA #$07
		0x8d, 0x02, 0x42, // STA $4202
		0xa9, 0x06, // LDA #$06
		0x8d, 0x03, 0x42, // STA $4203
		0xad, 0x16, 0x42, // LDA $4216
		0x8f, 0x00, 0x00, 0x7e, // STA $7E0000
		0x8f, 0x01, 0x00, 0x7f, // STA $7F0001
		0x80, 0xfe, // BRA self
	)

	m, err := snes.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, m.RunFrame())

	// work RAM immediately follows the CPU in the serialization layout
	data := make([]byte, m.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(data))
	test.Equate(t, data[w65c816.SerializeSize+0], 42)
	test.Equate(t, data[w65c816.SerializeSize+0x10001], 42)
}

func TestVBlankInterrupt(t *testing.T) {
	// count vblank interrupts in work RAM
	program := make([]uint8, 0x200)
	copy(program, []uint8{
		0xa9, 0x80, // LDA #$80
		0x8d, 0x00, 0x42, // STA $4200 (enable NMI)
		0x80, 0xfe, // BRA self
	})
	copy(program[0x100:], []uint8{
		0xad, 0x10, 0x42, // LDA $4210 (acknowledge)
		0xe6, 0x00, // INC $00
		0x40, // RTI
	})

	img := makeImage(program...)
	img.Data[0x7ffa] = 0x00 // NMI vector $8100
	img.Data[0x7ffb] = 0x81

	m, err := snes.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	for i := 0; i < 3; i++ {
		test.ExpectedSuccess(t, m.RunFrame())
	}

	data := make([]byte, m.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(data))
	test.Equate(t, data[w65c816.SerializeSize+0], 3)
}

func TestBatterySRAM(t *testing.T) {
	img := makeImage(
		0xa9, 0x5a, // LDA #$5A
		0x8f, 0x00, 0x00, 0x70, // STA $700000
		0x80, 0xfe, // BRA self
	)
	img.RAMSize = 0x2000
	img.Battery = true

	m, err := snes.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, m.RunFrame())

	ram := m.PersistentRAM()
	test.Equate(t, len(ram), 0x2000)
	test.Equate(t, ram[0], 0x5a)
}

func TestSnapshotRoundTrip(t *testing.T) {
	img := makeImage(
		0xe6, 0x00, // INC $00
		0x80, 0xfc, // BRA back
	)

	m, err := snes.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	for i := 0; i < 2; i++ {
		test.ExpectedSuccess(t, m.RunFrame())
	}

	data := make([]byte, m.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(data))

	other, err := snes.NewMachine(img, hardware.Preferences{})
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
