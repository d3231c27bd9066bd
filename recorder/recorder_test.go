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

package recorder_test

import (
	"bytes"
	"path/filepath"
	"testing"

	relic "github.com/relicemu/relic"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/hardware/ports"
	"github.com/relicemu/relic/recorder"
	"github.com/relicemu/relic/test"
)

// makeImage builds a minimal iNES image that latches the joypad and
// copies its serial bits into work RAM every frame.
func makeImage() image.Image {
	rom := make([]byte, 16+16384+8192)
	copy(rom, "NES\x1a")
	rom[4] = 1
	rom[5] = 1

	prg := rom[16:]
	copy(prg, []uint8{
		0xa9, 0x01, // LDA #$01
		0x8d, 0x16, 0x40, // STA $4016 (strobe on)
		0xa9, 0x00, // LDA #$00
		0x8d, 0x16, 0x40, // STA $4016 (strobe off, latch)
		0xad, 0x16, 0x40, // LDA $4016 (first bit: A button)
		0x29, 0x01, // AND #$01
		0x85, 0x00, // STA $00
		0x4c, 0x00, 0x80, // JMP $8000
	})
	prg[0x3ffc] = 0x00
	prg[0x3ffd] = 0x80

	return image.Image{Console: image.NES, Data: rom}
}

func run(t *testing.T, m hardware.Machine, frames int) []byte {
	t.Helper()
	for i := 0; i < frames; i++ {
		test.ExpectedSuccess(t, m.RunFrame())
	}
	data := make([]byte, m.SerializeSize())
	test.ExpectedSuccess(t, m.Serialize(data))
	return data
}

func TestRecordAndPlayback(t *testing.T) {
	file := filepath.Join(t.TempDir(), "playback")
	img := makeImage()

	m, err := relic.Create(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	rec, err := recorder.NewRecorder(file, m)
	test.ExpectedSuccess(t, err)

	test.ExpectedSuccess(t, m.RunFrame())
	test.ExpectedSuccess(t, rec.SetInput(0, ports.A))
	test.ExpectedSuccess(t, m.RunFrame())
	test.ExpectedSuccess(t, m.RunFrame())
	test.ExpectedSuccess(t, rec.SetInput(0, 0))
	recorded := run(t, m, 1)
	test.ExpectedSuccess(t, rec.End())

	// replaying against a fresh machine must reproduce the state
	other, err := relic.Create(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	pb, err := recorder.NewPlayback(file)
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, pb.AttachMachine(other))

	for i := 0; i < 4; i++ {
		pb.Step()
		test.ExpectedSuccess(t, other.RunFrame())
	}

	replayed := make([]byte, other.SerializeSize())
	test.ExpectedSuccess(t, other.Serialize(replayed))
	test.Equate(t, bytes.Equal(recorded, replayed), true)
}

func TestPlaybackWrongImage(t *testing.T) {
	file := filepath.Join(t.TempDir(), "playback")

	m, err := relic.Create(makeImage(), hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	rec, err := recorder.NewRecorder(file, m)
	test.ExpectedSuccess(t, err)
	test.ExpectedSuccess(t, rec.End())

	// a machine running a different image must be refused
	img := makeImage()
	img.Data[16+0x100] = 0xea
	other, err := relic.Create(img, hardware.Preferences{})
	test.ExpectedSuccess(t, err)

	pb, err := recorder.NewPlayback(file)
	test.ExpectedSuccess(t, err)
	test.ExpectedFailure(t, pb.AttachMachine(other))
}
