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

package megadrive_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/hardware/megadrive"
	"github.com/relicemu/relic/test"
	m68k "github.com/user-none/go-chip-m68k"
)

// makeImage builds a Mega Drive image with a valid header and the program
// at 0x200, where the reset vector points.
func makeImage(romSize int, program ...uint8) image.Image {
	rom := make([]byte, romSize)

	binary.BigEndian.PutUint32(rom[0x000:], 0x00ff8000) // initial stack
	binary.BigEndian.PutUint32(rom[0x004:], 0x00000200) // entry point
	copy(rom[0x100:], "SEGA MEGA DRIVE ")
	copy(rom[0x200:], program)

	var sum uint16
	for i := 0x200; i+1 < len(rom); i += 2 {
		sum += binary.BigEndian.Uint16(rom[i : i+2])
	}
	binary.BigEndian.PutUint16(rom[0x18e:], sum)

	return image.Image{Console: image.MegaDrive, Data: rom}
}

func TestInvalidImage(t *testing.T) {
	_, err := megadrive.NewMachine(image.Image{Data: []byte("tiny")}, hardware.Preferences{})
	test.ExpectedFailure(t, err)
	test.Equate(t, curated.Is(err, hardware.InvalidImage), true)

	// a large enough image without the system type string
	_, err = megadrive.NewMachine(image.Image{Data: make([]byte, 0x400)}, hardware.Preferences{})
	test.ExpectedFailure(t, err)
	test.Equate(t, curated.Is(err, hardware.InvalidImage), true)
}

func TestBackdropColour(t *testing.T) {
	// write red to CRAM entry 0, the backdrop entry with register 7 at its
	// power on value. the display stays disabled so the whole frame is
	// backdrop
	img := makeImage(0x1000,
		0x23, 0xfc, 0xc0, 0x00, 0x00, 0x00, 0x00, 0xc0, 0x00, 0x04, // MOVE.L #$C0000000,$C00004
		0x33, 0xfc, 0x00, 0x0e, 0x00, 0xc0, 0x00, 0x00, // MOVE.W #$000E,$C00000
		0x60, 0xfe, // BRA self
	)

	m, err := megadrive.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	test.ExpectedSuccess(t, m.RunFrame())
	test.Equate(t, m.Television().FrameNum(), 1)

	fb := m.Television().Frame()
	test.Equate(t, fb.Pix[0], 0xfc)
	test.Equate(t, fb.Pix[1], 0x00)
	test.Equate(t, fb.Pix[2], 0x00)
	test.Equate(t, fb.Pix[3], 0xff)
}

func TestWorkRAM(t *testing.T) {
	// store markers in work RAM through the top mirror and the base address
	img := makeImage(0x1000,
		0x13, 0xfc, 0x00, 0xaa, 0x00, 0xff, 0x00, 0x00, // MOVE.B #$AA,$FF0000
		0x13, 0xfc, 0x00, 0xbb, 0x00, 0xe0, 0x00, 0x01, // MOVE.B #$BB,$E00001
		0x60, 0xfe, // BRA self
	)

	m, err := megadrive.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, m.RunFrame())

	// work RAM immediately follows the CPU in the serialization layout
	data := make([]byte, m.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(data))
	test.Equate(t, data[m68k.SerializeSize+0], 0xaa)
	test.Equate(t, data[m68k.SerializeSize+1], 0xbb)
}

func TestBatteryRAM(t *testing.T) {
	img := makeImage(0x1000,
		0x13, 0xfc, 0x00, 0x5a, 0x00, 0x20, 0x00, 0x00, // MOVE.B #$5A,$200000
		0x60, 0xfe, // BRA self
	)
	img.Battery = true

	m, err := megadrive.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, m.RunFrame())

	ram := m.PersistentRAM()
	test.Equate(t, len(ram), 0x8000)
	test.Equate(t, ram[0], 0x5a)
}

func TestSnapshotRoundTrip(t *testing.T) {
	img := makeImage(0x1000,
		0x52, 0x39, 0x00, 0xff, 0x00, 0x00, // ADDQ.B #1,$FF0000
		0x60, 0xf8, // BRA to the ADDQ
	)

	m, err := megadrive.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	for i := 0; i < 3; i++ {
		test.ExpectedSuccess(t, m.RunFrame())
	}

	data := make([]byte, m.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(data))

	other, err := megadrive.NewMachine(img, hardware.Preferences{})
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

func TestSnapshotAudioAlignment(t *testing.T) {
	// the FM unit and the PSG resample on independent fractional phases,
	// so at any frame boundary one side usually has samples staged waiting
	// for a partner. that staging is part of the snapshot: after a load
	// the restored machine must emit the same audio stream as the donor
	img := makeImage(0x1000,
		0x52, 0x39, 0x00, 0xff, 0x00, 0x00, // ADDQ.B #1,$FF0000
		0x60, 0xf8, // BRA to the ADDQ
	)

	m, err := megadrive.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	for i := 0; i < 3; i++ {
		test.ExpectedSuccess(t, m.RunFrame())
	}

	data := make([]byte, m.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(data))

	other, err := megadrive.NewMachine(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, other.Deserialize(data))

	// discard what the donor accumulated before the save point so both
	// rings start the comparison frame empty
	m.Television().Audio().Reset()
	other.Television().Audio().Reset()

	test.ExpectedSuccess(t, m.RunFrame())
	test.ExpectedSuccess(t, other.RunFrame())

	a := make([]int16, 8192)
	b := make([]int16, 8192)
	an := m.Television().Audio().Drain(a)
	bn := other.Television().Audio().Drain(b)
	test.Equate(t, an, bn)

	same := true
	for i := 0; same && i < an; i++ {
		same = a[i] == b[i]
	}
	test.Equate(t, same, true)
}
