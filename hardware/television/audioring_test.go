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

package television_test

import (
	"testing"

	"github.com/relicemu/relic/hardware/television"
	"github.com/relicemu/relic/test"
)

func TestAudioRing(t *testing.T) {
	ring := television.NewAudioRing(4)
	test.Equate(t, ring.Pending(), 0)

	ring.Push(1, -1)
	ring.Push(2, -2)
	test.Equate(t, ring.Pending(), 2)

	dst := make([]int16, 16)
	n := ring.Drain(dst)
	test.Equate(t, n, 4)
	test.Equate(t, int(dst[0]), 1)
	test.Equate(t, int(dst[1]), -1)
	test.Equate(t, int(dst[2]), 2)
	test.Equate(t, int(dst[3]), -2)
	test.Equate(t, ring.Pending(), 0)
}

func TestAudioRingOverwrite(t *testing.T) {
	ring := television.NewAudioRing(2)

	// three pushes into a two-pair ring. the oldest pair is lost
	ring.Push(1, 1)
	ring.Push(2, 2)
	ring.Push(3, 3)
	test.Equate(t, ring.Pending(), 2)

	dst := make([]int16, 8)
	n := ring.Drain(dst)
	test.Equate(t, n, 4)
	test.Equate(t, int(dst[0]), 2)
	test.Equate(t, int(dst[2]), 3)
}

func TestFrameBufferClip(t *testing.T) {
	fb := television.NewFrameBuffer(television.Specification{Width: 2, Height: 2})

	// outside plots are ignored
	fb.SetPixel(-1, 0, 0xff, 0xff, 0xff)
	fb.SetPixel(2, 0, 0xff, 0xff, 0xff)
	fb.SetPixel(0, 2, 0xff, 0xff, 0xff)

	fb.SetPixelRGB(1, 1, 0x102030)
	o := 1*fb.Stride + 1*4
	test.Equate(t, fb.Pix[o], 0x10)
	test.Equate(t, fb.Pix[o+1], 0x20)
	test.Equate(t, fb.Pix[o+2], 0x30)
	test.Equate(t, fb.Pix[o+3], 0xff)
}
