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

package television

// AudioRing is a fixed-size ring of stereo sample pairs. Audio generators
// push; the television (or the audio backend directly) drains. If nothing
// drains the ring the oldest samples are overwritten, which is the correct
// behaviour for an emulator that is running ahead of its audio device.
type AudioRing struct {
	buf   []int16 // interleaved stereo
	read  int     // in pairs
	write int     // in pairs
	full  bool
}

// NewAudioRing creates a ring with room for the given number of stereo
// sample pairs.
func NewAudioRing(pairs int) *AudioRing {
	return &AudioRing{
		buf: make([]int16, pairs*2),
	}
}

func (ring *AudioRing) pairs() int {
	return len(ring.buf) / 2
}

// Push a stereo sample pair.
func (ring *AudioRing) Push(left, right int16) {
	ring.buf[ring.write*2] = left
	ring.buf[ring.write*2+1] = right
	ring.write = (ring.write + 1) % ring.pairs()
	if ring.full {
		ring.read = ring.write
	} else if ring.write == ring.read {
		ring.full = true
	}
}

// Pending returns the number of stereo pairs waiting to be drained.
func (ring *AudioRing) Pending() int {
	if ring.full {
		return ring.pairs()
	}
	d := ring.write - ring.read
	if d < 0 {
		d += ring.pairs()
	}
	return d
}

// Drain copies pending samples into dst (interleaved stereo) and returns the
// number of int16 values copied, which is always even.
func (ring *AudioRing) Drain(dst []int16) int {
	n := 0
	for ring.Pending() > 0 && n+1 < len(dst) {
		dst[n] = ring.buf[ring.read*2]
		dst[n+1] = ring.buf[ring.read*2+1]
		ring.read = (ring.read + 1) % ring.pairs()
		ring.full = false
		n += 2
	}
	return n
}

// Reset discards all pending samples.
func (ring *AudioRing) Reset() {
	ring.read = 0
	ring.write = 0
	ring.full = false
}
