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

package snes

import (
	"github.com/relicemu/relic/hardware/clocks"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/hardware/television"
)

// the chip's native output rate. samples are produced at the console
// output rate instead, with the pitch step scaled to compensate
const dspNativeRate = 32000

// dsp is the S-DSP: eight voices playing BRR compressed samples out of
// audio RAM. Voice volume, pitch, key on/off, sample directory and the
// main volume are honoured; the ADSR envelope, echo and noise generator
// are not.
type dsp struct {
	aram *[0x10000]uint8

	regs   [128]uint8
	voices [8]dspVoice

	sampler *clocks.Domain
	ring    *television.AudioRing
}

// dspVoice decodes one BRR stream. A whole 16 sample block is buffered and
// the pitch counter steps through it.
type dspVoice struct {
	active bool
	addr   uint16 // next BRR block
	buf    [16]int16
	pos    uint32 // 4.12 fixed point index into buf
	prev1  int32
	prev2  int32
}

func newDSP(aram *[0x10000]uint8, ring *television.AudioRing) *dsp {
	return &dsp{
		aram:    aram,
		sampler: clocks.NewDomain(television.SampleRate, apuClock),
		ring:    ring,
	}
}

func (d *dsp) reset() {
	d.regs = [128]uint8{}
	d.voices = [8]dspVoice{}
	d.regs[0x6c] = 0xe0 // FLG: reset, mute
}

func (d *dsp) read(addr uint8) uint8 {
	return d.regs[addr&0x7f]
}

func (d *dsp) write(addr uint8, data uint8) {
	addr &= 0x7f
	switch addr {
	case 0x4c: // KON
		for v := 0; v < 8; v++ {
			if data&(1<<uint(v)) != 0 {
				d.keyOn(v)
			}
		}
	case 0x5c: // KOF
		for v := 0; v < 8; v++ {
			if data&(1<<uint(v)) != 0 {
				d.voices[v].active = false
			}
		}
	case 0x7c: // ENDX is cleared by any write
		data = 0
	}
	d.regs[addr] = data
}

// keyOn restarts a voice from its directory entry.
func (d *dsp) keyOn(v int) {
	dir := uint16(d.regs[0x5d]) << 8
	srcn := uint16(d.regs[v<<4|0x04]) << 2

	entry := dir + srcn
	start := uint16(d.aram[entry]) | uint16(d.aram[entry+1])<<8

	voice := &d.voices[v]
	voice.addr = start
	voice.pos = 0
	voice.prev1 = 0
	voice.prev2 = 0
	voice.active = true
	d.regs[0x7c] &^= 1 << uint(v)

	d.decodeBlock(v)
}

// decodeBlock decodes the BRR block at the voice's current address into
// its sample buffer and advances the address, honouring the end and loop
// flags.
func (d *dsp) decodeBlock(v int) {
	voice := &d.voices[v]

	header := d.aram[voice.addr]
	shift := header >> 4
	filter := header >> 2 & 0x03

	for i := 0; i < 16; i++ {
		b := d.aram[voice.addr+1+uint16(i>>1)]
		var nibble int32
		if i&1 == 0 {
			nibble = int32(int8(b)) >> 4
		} else {
			nibble = int32(int8(b<<4)) >> 4
		}

		s := nibble << shift >> 1
		switch filter {
		case 1:
			s += voice.prev1 * 15 / 16
		case 2:
			s += voice.prev1*61/32 - voice.prev2*15/16
		case 3:
			s += voice.prev1*115/64 - voice.prev2*13/16
		}
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}

		voice.buf[i] = int16(s)
		voice.prev2 = voice.prev1
		voice.prev1 = s
	}

	voice.addr += 9

	if header&0x01 != 0 {
		d.regs[0x7c] |= 1 << uint(v)
		if header&0x02 != 0 {
			dir := uint16(d.regs[0x5d]) << 8
			srcn := uint16(d.regs[v<<4|0x04]) << 2
			entry := dir + srcn + 2
			voice.addr = uint16(d.aram[entry]) | uint16(d.aram[entry+1])<<8
		} else {
			voice.active = false
		}
	}
}

// step advances the chip by SPC700 cycles, pushing samples to the
// television's audio ring.
func (d *dsp) step(cycles int) {
	n := d.sampler.Ticks(cycles)
	for i := 0; i < n; i++ {
		l, r := d.sample()
		d.ring.Push(l, r)
	}
}

func (d *dsp) sample() (int16, int16) {
	if d.regs[0x6c]&0x40 != 0 { // FLG mute
		return 0, 0
	}

	var left, right int32
	for v := 0; v < 8; v++ {
		voice := &d.voices[v]
		if !voice.active {
			continue
		}

		s := int32(voice.buf[voice.pos>>12&0x0f])
		left += s * int32(int8(d.regs[v<<4|0x00])) / 128
		right += s * int32(int8(d.regs[v<<4|0x01])) / 128

		pitch := uint32(d.regs[v<<4|0x02]) | uint32(d.regs[v<<4|0x03]&0x3f)<<8
		voice.pos += pitch * dspNativeRate / television.SampleRate

		for voice.pos >= 16<<12 {
			voice.pos -= 16 << 12
			d.decodeBlock(v)
			if !voice.active {
				break
			}
		}
	}

	left = left * int32(int8(d.regs[0x0c])) / 128
	right = right * int32(int8(d.regs[0x1c])) / 128

	return clampPCM(left), clampPCM(right)
}

func clampPCM(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

const dspSerializeSize = 128 + 8*47 + 8

func (d *dsp) serialize(data []byte) {
	offset := snapshot.PutBytes(data, 0, d.regs[:])
	for v := range d.voices {
		voice := &d.voices[v]
		offset = snapshot.PutBool(data, offset, voice.active)
		offset = snapshot.PutUint16(data, offset, voice.addr)
		offset = snapshot.PutUint32(data, offset, voice.pos)
		offset = snapshot.PutUint32(data, offset, uint32(voice.prev1))
		offset = snapshot.PutUint32(data, offset, uint32(voice.prev2))
		for _, s := range voice.buf {
			offset = snapshot.PutUint16(data, offset, uint16(s))
		}
	}
	_ = snapshot.PutInt64(data, offset, d.sampler.Phase())
}

func (d *dsp) deserialize(data []byte) {
	var v16 uint16
	var v32 uint32

	offset := snapshot.Bytes(data, 0, d.regs[:])
	for v := range d.voices {
		voice := &d.voices[v]
		voice.active, offset = snapshot.Bool(data, offset)
		voice.addr, offset = snapshot.Uint16(data, offset)
		voice.pos, offset = snapshot.Uint32(data, offset)
		v32, offset = snapshot.Uint32(data, offset)
		voice.prev1 = int32(v32)
		v32, offset = snapshot.Uint32(data, offset)
		voice.prev2 = int32(v32)
		for i := range voice.buf {
			v16, offset = snapshot.Uint16(data, offset)
			voice.buf[i] = int16(v16)
		}
	}
	phase, _ := snapshot.Int64(data, offset)
	d.sampler.SetPhase(phase)
}
