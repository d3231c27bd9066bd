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

package rewind_test

import (
	"bytes"
	"testing"

	relic "github.com/relicemu/relic"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/rewind"
	"github.com/relicemu/relic/test"
)

// makeImage builds a minimal iNES image that counts frames in work RAM
// from the vblank interrupt.
func makeImage() image.Image {
	rom := make([]byte, 16+16384+8192)
	copy(rom, "NES\x1a")
	rom[4] = 1
	rom[5] = 1

	prg := rom[16:]
	copy(prg, []uint8{
		0xa9, 0x80, // LDA #$80
		0x8d, 0x00, 0x20, // STA $2000 (enable NMI)
		0x4c, 0x05, 0x80, // JMP self
	})
	copy(prg[0x100:], []uint8{
		0xe6, 0x00, // INC $00
		0x40, // RTI
	})
	prg[0x3ffa] = 0x00 // NMI vector $8100
	prg[0x3ffb] = 0x81
	prg[0x3ffc] = 0x00 // reset vector $8000
	prg[0x3ffd] = 0x80

	return image.Image{Console: image.NES, Data: rom}
}

func TestGotoFrame(t *testing.T) {
	m, err := relic.Create(makeImage(), hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	r := rewind.New(m, 1)

	var third []byte
	for i := 0; i < 6; i++ {
		test.ExpectedSuccess(t, m.RunFrame())
		test.ExpectedSuccess(t, r.Record())
		if m.Television().FrameNum() == 3 {
			third = make([]byte, m.SerializeSize())
			test.ExpectedSuccess(t, m.Serialize(third))
		}
	}

	earliest, latest := r.Span()
	test.Equate(t, earliest, 1)
	test.Equate(t, latest, 6)

	// restoring frame 3 must reproduce the state captured at frame 3
	test.ExpectedSuccess(t, r.GotoFrame(3))

	after := make([]byte, m.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(after))
	test.Equate(t, bytes.Equal(after, third), true)
}

func TestGotoFrameTooEarly(t *testing.T) {
	m, err := relic.Create(makeImage(), hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	r := rewind.New(m, 3)
	for i := 0; i < 7; i++ {
		test.ExpectedSuccess(t, m.RunFrame())
		test.ExpectedSuccess(t, r.Record())
	}

	// the first capture is at frame 3
	test.ExpectedFailure(t, r.GotoFrame(1))
}
