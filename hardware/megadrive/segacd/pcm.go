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

package segacd

import (
	"github.com/relicemu/relic/hardware/clocks"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/hardware/television"
)

// address advance per output sample, relative to the chip's native sample
// clock of one sample per 384 sub cycles
const pcmStepRatio = float64(clocks.SegaCDSubClock) / tickDivider / television.SampleRate

// pcm is the RF5C164: eight wavetable channels playing 8 bit
// sign-magnitude samples from 64KB of wave RAM, with per-channel volume
// and 4 bit stereo pan. Registers address one channel at a time through a
// select register; wave RAM is visible through a 4KB banked window.
type pcm struct {
	wave  [0x10000]uint8
	chans [8]pcmChannel

	bank     uint8
	chanSel  uint8
	sounding bool

	// bit per channel, set while the channel is keyed off
	chanOff uint8

	sampler *clocks.Domain

	outL []float32
	outR []float32
}

type pcmChannel struct {
	env uint8
	pan uint8
	fd  uint16
	ls  uint16
	st  uint8

	// playback position in wave RAM, 16.11 fixed point
	pos uint32
}

func newPCM() *pcm {
	p := &pcm{
		sampler: clocks.NewDomain(television.SampleRate, clocks.SegaCDSubClock),
		outL:    make([]float32, 0, 1024),
		outR:    make([]float32, 0, 1024),
	}
	p.reset()
	return p
}

func (p *pcm) reset() {
	p.wave = [0x10000]uint8{}
	p.chans = [8]pcmChannel{}
	p.bank = 0
	p.chanSel = 0
	p.sounding = false
	p.chanOff = 0xff
	p.outL = p.outL[:0]
	p.outR = p.outR[:0]
}

// read and write take the register block offset. The chip sits on the low
// byte lane; the lane bit is ignored so both byte addresses reach it.
func (p *pcm) read(addr uint32) uint8 {
	if addr >= 0x2000 {
		return p.wave[uint32(p.bank)<<12|(addr&0x1fff)>>1]
	}

	// channel position readback at 0x10-0x1f, high and low byte pairs
	reg := addr >> 1 & 0x1f
	if reg >= 0x10 {
		ch := &p.chans[reg>>1&0x07]
		if reg&1 != 0 {
			return uint8(ch.pos >> 19)
		}
		return uint8(ch.pos >> 11)
	}
	return 0
}

func (p *pcm) write(addr uint32, data uint8) {
	if addr >= 0x2000 {
		p.wave[uint32(p.bank)<<12|(addr&0x1fff)>>1] = data
		return
	}

	ch := &p.chans[p.chanSel]
	switch addr >> 1 & 0x0f {
	case 0x0:
		ch.env = data
	case 0x1:
		ch.pan = data
	case 0x2:
		ch.fd = ch.fd&0xff00 | uint16(data)
	case 0x3:
		ch.fd = ch.fd&0x00ff | uint16(data)<<8
	case 0x4:
		ch.ls = ch.ls&0xff00 | uint16(data)
	case 0x5:
		ch.ls = ch.ls&0x00ff | uint16(data)<<8
	case 0x6:
		ch.st = data
	case 0x7:
		p.sounding = data&0x80 != 0
		if data&0x40 != 0 {
			p.chanSel = data & 0x07
		} else {
			p.bank = data & 0x0f
		}
	case 0x8:
		// keying a channel on rewinds it to its start address
		for c := range p.chans {
			bit := uint8(1) << uint(c)
			if p.chanOff&bit != 0 && data&bit == 0 {
				p.chans[c].pos = uint32(p.chans[c].st) << (8 + 11)
			}
		}
		p.chanOff = data
	}
}

// step advances the chip by sub CPU cycles, resampling to the output rate.
// One sample is produced per output tick even while silent, keeping the
// stream aligned with the console's other sound chips.
func (p *pcm) step(cycles int) {
	n := p.sampler.Ticks(cycles)
	for i := 0; i < n; i++ {
		l, r := p.sample()
		p.outL = append(p.outL, l)
		p.outR = append(p.outR, r)
	}
}

func (p *pcm) sample() (float32, float32) {
	if !p.sounding {
		return 0, 0
	}

	var left, right float64
	for c := range p.chans {
		if p.chanOff&(1<<uint(c)) != 0 {
			continue
		}
		ch := &p.chans[c]

		d := p.wave[ch.pos>>11&0xffff]
		if d == 0xff {
			// loop marker. a marker at the loop start silences the channel
			ch.pos = uint32(ch.ls) << 11
			d = p.wave[ch.pos>>11&0xffff]
			if d == 0xff {
				continue
			}
		}

		v := float64(d & 0x7f)
		if d&0x80 != 0 {
			v = -v
		}
		v = v / 127 * float64(ch.env) / 255

		left += v * float64(ch.pan&0x0f) / 15
		right += v * float64(ch.pan>>4) / 15

		ch.pos += uint32(float64(ch.fd) * pcmStepRatio)
	}

	return float32(left / 8), float32(right / 8)
}

// take hands the accumulated samples to the caller and clears the buffer.
func (p *pcm) take() ([]float32, []float32) {
	l, r := p.outL, p.outR
	p.outL = p.outL[:0]
	p.outR = p.outR[:0]
	return l, r
}

const pcmSerializeSize = 0x10000 + // wave RAM
	8*11 + // channel registers and positions
	4 + // bank, channel select, sounding, key state
	8 // sampler phase

func (p *pcm) serialize(data []byte) {
	offset := snapshot.PutBytes(data, 0, p.wave[:])
	for c := range p.chans {
		ch := &p.chans[c]
		offset = snapshot.PutUint8(data, offset, ch.env)
		offset = snapshot.PutUint8(data, offset, ch.pan)
		offset = snapshot.PutUint16(data, offset, ch.fd)
		offset = snapshot.PutUint16(data, offset, ch.ls)
		offset = snapshot.PutUint8(data, offset, ch.st)
		offset = snapshot.PutUint32(data, offset, ch.pos)
	}
	offset = snapshot.PutUint8(data, offset, p.bank)
	offset = snapshot.PutUint8(data, offset, p.chanSel)
	offset = snapshot.PutBool(data, offset, p.sounding)
	offset = snapshot.PutUint8(data, offset, p.chanOff)
	_ = snapshot.PutInt64(data, offset, p.sampler.Phase())
}

func (p *pcm) deserialize(data []byte) {
	offset := snapshot.Bytes(data, 0, p.wave[:])
	for c := range p.chans {
		ch := &p.chans[c]
		ch.env, offset = snapshot.Uint8(data, offset)
		ch.pan, offset = snapshot.Uint8(data, offset)
		ch.fd, offset = snapshot.Uint16(data, offset)
		ch.ls, offset = snapshot.Uint16(data, offset)
		ch.st, offset = snapshot.Uint8(data, offset)
		ch.pos, offset = snapshot.Uint32(data, offset)
	}
	p.bank, offset = snapshot.Uint8(data, offset)
	p.chanSel, offset = snapshot.Uint8(data, offset)
	p.sounding, offset = snapshot.Bool(data, offset)
	p.chanOff, offset = snapshot.Uint8(data, offset)
	phase, _ := snapshot.Int64(data, offset)
	p.sampler.SetPhase(phase)

	p.outL = p.outL[:0]
	p.outR = p.outR[:0]
}
