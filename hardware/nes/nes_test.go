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

package nes_test

import (
	"bytes"
	"testing"

	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/cpu/mos6502"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/hardware/nes"
	"github.com/relicemu/relic/test"
)

// makeImage assembles an iNES image. prg must be a multiple of 16KB; the
// reset vector in the last bank should already be set by the caller.
func makeImage(mapper int, prg []byte, chrBanks int) image.Image {
	header := []byte{
		'N', 'E', 'S', 0x1a,
		uint8(len(prg) / 16384), uint8(chrBanks),
		uint8(mapper << 4), 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
	data := append(header, prg...)
	data = append(data, make([]byte, chrBanks*8192)...)
	return image.Image{Console: image.NES, Data: data}
}

// nromImage builds a 16KB mapper 0 image with the program at 0x8000 and the
// reset vector pointing at it.
func nromImage(program ...uint8) image.Image {
	prg := make([]byte, 16384)
	copy(prg, program)
	prg[0x3ffc] = 0x00
	prg[0x3ffd] = 0x80
	return makeImage(0, prg, 1)
}

func TestInvalidImage(t *testing.T) {
	_, err := nes.NewMachine(image.Image{Data: []byte("not a rom")}, hardware.Preferences{})
	test.ExpectedFailure(t, err)
	test.Equate(t, curated.Is(err, hardware.InvalidImage), true)
}

func TestUnsupportedMapper(t *testing.T) {
	img := makeImage(9, make([]byte, 16384), 1)
	_, err := nes.NewMachine(img, hardware.Preferences{})
	test.ExpectedFailure(t, err)
	test.Equate(t, curated.Is(err, hardware.UnsupportedMapper), true)
}

func TestBackdropColour(t *testing.T) {
	// set the backdrop palette entry to $21 through the PPU address port,
	// enable background rendering and spin
	img := nromImage(
		0xa9, 0x3f, // LDA #$3f
		0x8d, 0x06, 0x20, // STA $2006
		0xa9, 0x00, // LDA #$00
		0x8d, 0x06, 0x20, // STA $2006
		0xa9, 0x21, // LDA #$21
		0x8d, 0x07, 0x20, // STA $2007
		0xa9, 0x08, // LDA #$08
		0x8d, 0x01, 0x20, // STA $2001
		0x4c, 0x14, 0x80, // JMP self
	)

	m, err := nes.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	test.ExpectedSuccess(t, m.RunFrame())
	test.Equate(t, m.Television().FrameNum(), 1)

	// palette entry $21 is sky blue
	fb := m.Television().Frame()
	test.Equate(t, fb.Pix[0], 0x64)
	test.Equate(t, fb.Pix[1], 0xb0)
	test.Equate(t, fb.Pix[2], 0xff)
}

func TestBankSwitch(t *testing.T) {
	// UxROM with two banks. the fixed bank selects bank 0, copies its
	// marker to RAM, selects bank 1 and copies that marker too
	prg := make([]byte, 32768)
	prg[0x0100] = 0xaa // bank 0 marker, visible at $8100
	prg[0x4100] = 0xbb // bank 1 marker

	program := []uint8{
		0xa9, 0x00, // LDA #$00
		0x8d, 0x00, 0xc0, // STA $c000 - select bank 0
		0xad, 0x00, 0x81, // LDA $8100
		0x85, 0x10, // STA $10
		0xa9, 0x01, // LDA #$01
		0x8d, 0x00, 0xc0, // STA $c000 - select bank 1
		0xad, 0x00, 0x81, // LDA $8100
		0x85, 0x11, // STA $11
		0x4c, 0x14, 0xc0, // JMP self
	}
	copy(prg[0x4000:], program)
	prg[0x7ffc] = 0x00
	prg[0x7ffd] = 0xc0

	m, err := nes.NewMachine(makeImage(2, prg, 1), hardware.Preferences{})
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, m.RunFrame())

	// work RAM immediately follows the CPU in the serialization layout
	data := make([]byte, m.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(data))
	test.Equate(t, data[mos6502.SerializeSize+0x10], 0xaa)
	test.Equate(t, data[mos6502.SerializeSize+0x11], 0xbb)
}

func TestSerializeBufferSize(t *testing.T) {
	m, err := nes.NewMachine(nromImage(0x4c, 0x00, 0x80), hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	err = m.Serialize(make([]byte, 16))
	test.ExpectedFailure(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	img := nromImage(
		0xa9, 0x3f, // LDA #$3f
		0x8d, 0x06, 0x20, // STA $2006
		0xa9, 0x00, // LDA #$00
		0x8d, 0x06, 0x20, // STA $2006
		0xa9, 0x16, // LDA #$16
		0x8d, 0x07, 0x20, // STA $2007
		0xa9, 0x08, // LDA #$08
		0x8d, 0x01, 0x20, // STA $2001
		0xe6, 0x20, // INC $20
		0x4c, 0x14, 0x80, // JMP to the INC
	)

	m, err := nes.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	for i := 0; i < 3; i++ {
		test.ExpectedSuccess(t, m.RunFrame())
	}

	data := make([]byte, m.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(data))

	other, err := nes.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, other.Deserialize(data))

	// both machines must produce identical frames from here on
	test.ExpectedSuccess(t, m.RunFrame())
	test.ExpectedSuccess(t, other.RunFrame())
	test.Equate(t, bytes.Equal(m.Television().Frame().Pix, other.Television().Frame().Pix), true)

	// and identical state
	after := make([]byte, m.SerializeSize())
	otherAfter := make([]byte, other.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(after))
	test.ExpectedSuccess(t, other.Serialize(otherAfter))
	test.Equate(t, bytes.Equal(after, otherAfter), true)
}

func TestSpriteRightEdgeColumn(t *testing.T) {
	// a sprite at x=248 reaches column 255. that column is excluded from
	// the sprite zero hit test but its pixels are still drawn
	prg := make([]byte, 16384)
	copy(prg, []uint8{
		0xa9, 0x00, 0x8d, 0x06, 0x20, // pattern address $0010 (tile 1, low plane)
		0xa9, 0x10, 0x8d, 0x06, 0x20,
		0xa9, 0xff, 0x8d, 0x07, 0x20, // row 0 fully opaque
		0xa9, 0x3f, 0x8d, 0x06, 0x20, // sprite palette entry $3F11
		0xa9, 0x11, 0x8d, 0x06, 0x20,
		0xa9, 0x30, 0x8d, 0x07, 0x20,
		0xa9, 0x00, 0x8d, 0x03, 0x20, // OAM sprite 0
		0xa9, 0x09, 0x8d, 0x04, 0x20, // y (appears on line 10)
		0xa9, 0x01, 0x8d, 0x04, 0x20, // tile
		0xa9, 0x00, 0x8d, 0x04, 0x20, // attributes
		0xa9, 0xf8, 0x8d, 0x04, 0x20, // x = 248
		0xa9, 0x10, 0x8d, 0x01, 0x20, // show sprites
		0x4c, 0x3c, 0x80, // JMP self
	})
	prg[0x3ffc] = 0x00
	prg[0x3ffd] = 0x80

	m, err := nes.NewMachine(makeImage(0, prg, 0), hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	// the writes race the first frame's raster; judge the second frame
	test.ExpectedSuccess(t, m.RunFrame())
	test.ExpectedSuccess(t, m.RunFrame())

	fb := m.Television().Frame()
	at := func(x int) byte {
		return fb.Pix[(10*fb.Width+x)*4]
	}

	// every column of the sprite row carries the sprite colour, including
	// the last one; column 100 is backdrop
	test.Equate(t, at(255), at(250))
	test.Equate(t, at(255) != at(100), true)
}
