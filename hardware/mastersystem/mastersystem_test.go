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

package mastersystem_test

import (
	"bytes"
	"testing"

	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/hardware/mastersystem"
	"github.com/relicemu/relic/test"
	z80 "github.com/user-none/go-chip-z80"
)

// makeImage builds a Master System image with the program at the reset
// address 0x0000.
func makeImage(console image.Console, romSize int, program ...uint8) image.Image {
	rom := make([]byte, romSize)
	copy(rom, program)
	return image.Image{Console: console, Data: rom}
}

func TestInvalidImage(t *testing.T) {
	_, err := mastersystem.NewMachine(image.Image{Data: []byte("tiny")}, hardware.Preferences{})
	test.ExpectedFailure(t, err)
	test.Equate(t, curated.Is(err, hardware.InvalidImage), true)
}

func TestBackdropColour(t *testing.T) {
	// write red to CRAM entry 16, the backdrop entry with register 7 at
	// its power on value. the display stays disabled so the whole frame
	// is backdrop
	img := makeImage(image.MasterSystem, 0x8000,
		0x3e, 0x10, // LD A,$10
		0xd3, 0xbf, // OUT ($bf),A - address low
		0x3e, 0xc0, // LD A,$c0
		0xd3, 0xbf, // OUT ($bf),A - code 3, CRAM
		0x3e, 0x03, // LD A,$03
		0xd3, 0xbe, // OUT ($be),A
		0x18, 0xfe, // JR self
	)

	m, err := mastersystem.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	test.ExpectedSuccess(t, m.RunFrame())
	test.Equate(t, m.Television().FrameNum(), 1)

	fb := m.Television().Frame()
	test.Equate(t, fb.Pix[0], 0xff)
	test.Equate(t, fb.Pix[1], 0x00)
	test.Equate(t, fb.Pix[2], 0x00)
	test.Equate(t, fb.Pix[3], 0xff)
}

func TestBankSwitch(t *testing.T) {
	// page two different banks into slot 2 and copy a marker from each
	// into system RAM
	program := []uint8{
		0x3e, 0x02, // LD A,$02
		0x32, 0xff, 0xff, // LD ($ffff),A - slot 2 = bank 2
		0x3a, 0x00, 0x80, // LD A,($8000)
		0x32, 0x00, 0xc0, // LD ($c000),A
		0x3e, 0x03, // LD A,$03
		0x32, 0xff, 0xff, // LD ($ffff),A - slot 2 = bank 3
		0x3a, 0x00, 0x80, // LD A,($8000)
		0x32, 0x01, 0xc0, // LD ($c001),A
		0x18, 0xfe, // JR self
	}
	img := makeImage(image.MasterSystem, 0x10000, program...)
	img.Data[2*0x4000] = 0xaa
	img.Data[3*0x4000] = 0xbb

	m, err := mastersystem.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, m.RunFrame())

	// system RAM immediately follows the CPU in the serialization layout
	data := make([]byte, m.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(data))
	test.Equate(t, data[z80.SerializeSize+0], 0xaa)
	test.Equate(t, data[z80.SerializeSize+1], 0xbb)
}

func TestGameGearViewport(t *testing.T) {
	// the Game Gear stores twelve bit colour in two CRAM bytes and crops
	// the frame to the LCD
	img := makeImage(image.GameGear, 0x8000,
		0x3e, 0x20, // LD A,$20
		0xd3, 0xbf, // OUT ($bf),A - address low, entry 16
		0x3e, 0xc0, // LD A,$c0
		0xd3, 0xbf, // OUT ($bf),A - code 3, CRAM
		0x3e, 0x0f, // LD A,$0f
		0xd3, 0xbe, // OUT ($be),A - red nibble
		0x3e, 0x00, // LD A,$00
		0xd3, 0xbe, // OUT ($be),A
		0x18, 0xfe, // JR self
	)

	m, err := mastersystem.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)
	test.Equate(t, m.ConsoleID(), image.GameGear)

	test.ExpectedSuccess(t, m.RunFrame())

	fb := m.Television().Frame()
	test.Equate(t, fb.Width, 160)
	test.Equate(t, fb.Height, 144)
	test.Equate(t, fb.Pix[0], 0xff)
	test.Equate(t, fb.Pix[1], 0x00)
	test.Equate(t, fb.Pix[2], 0x00)
	test.Equate(t, fb.Pix[3], 0xff)
}

func TestSnapshotRoundTrip(t *testing.T) {
	img := makeImage(image.MasterSystem, 0x8000,
		0x21, 0x00, 0xc0, // LD HL,$c000
		0x34,       // INC (HL)
		0x18, 0xfd, // JR to the INC
	)

	m, err := mastersystem.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	for i := 0; i < 3; i++ {
		test.ExpectedSuccess(t, m.RunFrame())
	}

	data := make([]byte, m.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(data))

	other, err := mastersystem.NewMachine(img, hardware.Preferences{})
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
