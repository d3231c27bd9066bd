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

package megadrive

import (
	"math"

	"github.com/relicemu/relic/hardware/clocks"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/hardware/television"
)

// fm is a compact YM2612: six four-operator FM channels, the channel 6
// DAC override, and the two timers games poll for tempo. Synthesis runs
// directly at the output sample rate; envelope rates are approximate.
type fm struct {
	chans [6]fmChannel

	// register address latch per port pair, and a raw register mirror
	// for serialization
	addr   [2]uint8
	mirror [2][256]uint8

	// block/fnum high byte latches, committed by the low byte write
	freqLatch [2]uint8

	dacEnabled bool
	dacData    uint8

	timerA      int
	timerB      int
	timerACount int
	timerBCount int
	timerCtl    uint8
	status      uint8

	sampler *clocks.Domain
	clockHz float64

	// mixed output pending collection by the machine
	outL []float32
	outR []float32
}

// envelope states
const (
	envOff = iota
	envAttack
	envDecay
	envSustain
	envRelease
)

type fmOperator struct {
	mul uint8
	dt  uint8
	tl  uint8
	rs  uint8
	ar  uint8
	d1r uint8
	d2r uint8
	d1l uint8
	rr  uint8

	phase float64
	att   float64
	state int
	keyed bool
}

type fmChannel struct {
	ops [4]fmOperator

	fnum      uint16
	block     uint8
	algorithm uint8
	feedback  uint8
	panL      bool
	panR      bool

	// operator 1 feedback history
	fb1 float64
	fb2 float64
}

// register operator offsets arrive in slot order 1, 3, 2, 4
var fmOpOrder = [4]int{0, 2, 1, 3}

// total level in 0.75dB steps
var fmTLTable [128]float64

func init() {
	for i := range fmTLTable {
		fmTLTable[i] = math.Pow(10, -0.75*float64(i)/20)
	}
}

func newFM(cpuClock int64) *fm {
	f := &fm{
		sampler: clocks.NewDomain(television.SampleRate, cpuClock),
		clockHz: float64(cpuClock),
		outL:    make([]float32, 0, 1024),
		outR:    make([]float32, 0, 1024),
	}
	f.resetChip()
	return f
}

func (f *fm) resetChip() {
	f.chans = [6]fmChannel{}
	f.addr = [2]uint8{}
	f.mirror = [2][256]uint8{}
	f.freqLatch = [2]uint8{}
	f.dacEnabled = false
	f.dacData = 0x80
	f.timerA = 0
	f.timerB = 0
	f.timerACount = 0
	f.timerBCount = 0
	f.timerCtl = 0
	f.status = 0
	f.outL = f.outL[:0]
	f.outR = f.outR[:0]

	for c := range f.chans {
		ch := &f.chans[c]
		ch.panL = true
		ch.panR = true
		for o := range ch.ops {
			ch.ops[o].state = envOff
			ch.ops[o].att = 1
		}
	}
}

// readPort returns the status byte from any of the four ports.
func (f *fm) readPort(port uint8) uint8 {
	return f.status
}

func (f *fm) writePort(port uint8, data uint8) {
	switch port & 0x03 {
	case 0:
		f.addr[0] = data
	case 1:
		f.writeRegister(0, f.addr[0], data)
	case 2:
		f.addr[1] = data
	case 3:
		f.writeRegister(1, f.addr[1], data)
	}
}

func (f *fm) writeRegister(part int, reg uint8, data uint8) {
	f.mirror[part][reg] = data

	if part == 0 && reg < 0x30 {
		f.writeGlobal(reg, data)
		return
	}

	switch {
	case reg >= 0x30 && reg < 0xa0:
		f.writeOperator(part, reg, data)
	case reg >= 0xa0 && reg < 0xb0:
		f.writeFrequency(part, reg, data)
	case reg >= 0xb0 && reg < 0xb8:
		f.writeChannel(part, reg, data)
	}
}

func (f *fm) writeGlobal(reg uint8, data uint8) {
	switch reg {
	case 0x24:
		f.timerA = f.timerA&0x003 | int(data)<<2
	case 0x25:
		f.timerA = f.timerA&0x3fc | int(data&0x03)
	case 0x26:
		f.timerB = int(data)
	case 0x27:
		f.timerCtl = data
		if data&0x10 != 0 {
			f.status &^= 0x01
		}
		if data&0x20 != 0 {
			f.status &^= 0x02
		}
	case 0x28:
		f.keyOnOff(data)
	case 0x2a:
		f.dacData = data
	case 0x2b:
		f.dacEnabled = data&0x80 != 0
	}
}

func (f *fm) keyOnOff(data uint8) {
	c := int(data & 0x07)
	if c == 3 || c == 7 {
		return
	}
	if c > 3 {
		c--
	}

	ch := &f.chans[c]
	for o := range ch.ops {
		op := &ch.ops[o]
		on := data&(0x10<<uint(fmOpOrder[o])) != 0

		if on && !op.keyed {
			op.phase = 0
			op.att = 1
			op.state = envAttack
		} else if !on && op.keyed {
			op.state = envRelease
		}
		op.keyed = on
	}
}

// channelIndex decodes the channel bits common to the per-channel and
// per-operator ranges. Channel 3 of each part does not exist.
func channelIndex(part int, reg uint8) int {
	c := int(reg & 0x03)
	if c == 3 {
		return -1
	}
	return c + part*3
}

func (f *fm) writeOperator(part int, reg uint8, data uint8) {
	c := channelIndex(part, reg)
	if c < 0 {
		return
	}
	op := &f.chans[c].ops[fmOpOrder[reg>>2&0x03]]

	switch reg & 0xf0 {
	case 0x30:
		op.mul = data & 0x0f
		op.dt = data >> 4 & 0x07
	case 0x40:
		op.tl = data & 0x7f
	case 0x50:
		op.ar = data & 0x1f
		op.rs = data >> 6
	case 0x60:
		op.d1r = data & 0x1f
	case 0x70:
		op.d2r = data & 0x1f
	case 0x80:
		op.rr = data & 0x0f
		op.d1l = data >> 4
	}
}

func (f *fm) writeFrequency(part int, reg uint8, data uint8) {
	// channel 3 special mode latches at 0xa8-0xae are stored in the
	// mirror but not otherwise modelled
	if reg >= 0xa8 {
		return
	}

	c := channelIndex(part, reg)
	if c < 0 {
		return
	}

	if reg >= 0xa4 {
		f.freqLatch[part] = data
		return
	}

	ch := &f.chans[c]
	ch.fnum = uint16(f.freqLatch[part]&0x07)<<8 | uint16(data)
	ch.block = f.freqLatch[part] >> 3 & 0x07
}

func (f *fm) writeChannel(part int, reg uint8, data uint8) {
	c := channelIndex(part, reg)
	if c < 0 {
		return
	}
	ch := &f.chans[c]

	if reg < 0xb4 {
		ch.algorithm = data & 0x07
		ch.feedback = data >> 3 & 0x07
		return
	}

	ch.panL = data&0x80 != 0
	ch.panR = data&0x40 != 0
}

// envRate converts a 5 bit rate register into attenuation per sample.
func envRate(r uint8) float64 {
	if r == 0 {
		return 0
	}
	return math.Pow(2, float64(r)/2) / 96000
}

func (op *fmOperator) stepEnvelope() {
	switch op.state {
	case envAttack:
		op.att -= envRate(op.ar) * 4
		if op.att <= 0 {
			op.att = 0
			op.state = envDecay
		}
	case envDecay:
		target := float64(op.d1l) / 15
		op.att += envRate(op.d1r)
		if op.att >= target {
			op.att = target
			op.state = envSustain
		}
	case envSustain:
		op.att += envRate(op.d2r)
	case envRelease:
		op.att += envRate(op.rr*2 + 1)
	}

	if op.att >= 1 {
		op.att = 1
		if op.state == envRelease {
			op.state = envOff
		}
	}
}

// output computes the operator sine for this sample with the given phase
// modulation input.
func (op *fmOperator) output(mod float64) float64 {
	if op.state == envOff {
		return 0
	}
	amp := (1 - op.att) * fmTLTable[op.tl]
	return amp * math.Sin(2*math.Pi*op.phase+4*mod)
}

// advance moves the operator phase by one output sample.
func (op *fmOperator) advance(baseFreq float64) {
	mul := float64(op.mul)
	if op.mul == 0 {
		mul = 0.5
	}
	op.phase += baseFreq * mul / television.SampleRate
	op.phase -= math.Floor(op.phase)
}

// sample computes one stereo sample across all six channels.
func (f *fm) sample() (float32, float32) {
	var left, right float64

	for c := range f.chans {
		ch := &f.chans[c]

		var out float64
		if c == 5 && f.dacEnabled {
			out = (float64(f.dacData) - 128) / 128
		} else {
			out = ch.run(f.clockHz)
		}

		if ch.panL {
			left += out
		}
		if ch.panR {
			right += out
		}
	}

	// six channels at full level would clip; scale to fit
	return float32(left / 6), float32(right / 6)
}

func (ch *fmChannel) run(clockHz float64) float64 {
	// key frequency from fnum and block against the native chip rate
	baseFreq := float64(ch.fnum) * math.Pow(2, float64(ch.block)-1) * (clockHz / 144) / (1 << 20)

	var fbMod float64
	if ch.feedback != 0 {
		fbMod = (ch.fb1 + ch.fb2) / 2 * math.Pow(2, float64(ch.feedback)-1) / 16
	}

	o1 := ch.ops[0].output(fbMod)
	ch.fb2 = ch.fb1
	ch.fb1 = o1

	var out float64
	switch ch.algorithm {
	case 0:
		out = ch.ops[3].output(ch.ops[2].output(ch.ops[1].output(o1)))
	case 1:
		out = ch.ops[3].output(ch.ops[2].output(o1 + ch.ops[1].output(0)))
	case 2:
		out = ch.ops[3].output(o1 + ch.ops[2].output(ch.ops[1].output(0)))
	case 3:
		out = ch.ops[3].output(ch.ops[2].output(0) + ch.ops[1].output(o1))
	case 4:
		out = ch.ops[1].output(o1) + ch.ops[3].output(ch.ops[2].output(0))
	case 5:
		out = ch.ops[1].output(o1) + ch.ops[2].output(o1) + ch.ops[3].output(o1)
	case 6:
		out = ch.ops[1].output(o1) + ch.ops[2].output(0) + ch.ops[3].output(0)
	case 7:
		out = o1 + ch.ops[1].output(0) + ch.ops[2].output(0) + ch.ops[3].output(0)
	}

	for o := range ch.ops {
		ch.ops[o].stepEnvelope()
		ch.ops[o].advance(baseFreq)
	}

	return out
}

func (f *fm) stepTimers() {
	if f.timerCtl&0x01 != 0 {
		f.timerACount++
		if f.timerACount >= 1024-f.timerA {
			f.timerACount = 0
			if f.timerCtl&0x04 != 0 {
				f.status |= 0x01
			}
		}
	}
	if f.timerCtl&0x02 != 0 {
		f.timerBCount++
		if f.timerBCount >= (256-f.timerB)*16 {
			f.timerBCount = 0
			if f.timerCtl&0x08 != 0 {
				f.status |= 0x02
			}
		}
	}
}

// step advances the chip by 68K cycles, accumulating output samples for
// the machine to mix.
func (f *fm) step(cycles int) {
	n := f.sampler.Ticks(cycles)
	for i := 0; i < n; i++ {
		l, r := f.sample()
		f.outL = append(f.outL, l)
		f.outR = append(f.outR, r)
		f.stepTimers()
	}
}

// take hands the accumulated samples to the caller and clears the buffer.
func (f *fm) take() ([]float32, []float32) {
	l, r := f.outL, f.outR
	f.outL = f.outL[:0]
	f.outR = f.outR[:0]
	return l, r
}

const fmSerializeSize = 512 + // register mirror
	6*4*18 + // operator phase, attenuation, envelope state, key
	6*16 + // channel feedback history
	2 + // frequency latches
	8 + // timer counters
	1 + // status
	8 // sampler phase

func (f *fm) serialize(data []byte) {
	offset := snapshot.PutBytes(data, 0, f.mirror[0][:])
	offset = snapshot.PutBytes(data, offset, f.mirror[1][:])

	for c := range f.chans {
		ch := &f.chans[c]
		for o := range ch.ops {
			op := &ch.ops[o]
			offset = snapshot.PutUint64(data, offset, math.Float64bits(op.phase))
			offset = snapshot.PutUint64(data, offset, math.Float64bits(op.att))
			offset = snapshot.PutUint8(data, offset, uint8(op.state))
			offset = snapshot.PutBool(data, offset, op.keyed)
		}
		offset = snapshot.PutUint64(data, offset, math.Float64bits(ch.fb1))
		offset = snapshot.PutUint64(data, offset, math.Float64bits(ch.fb2))
	}

	offset = snapshot.PutUint8(data, offset, f.freqLatch[0])
	offset = snapshot.PutUint8(data, offset, f.freqLatch[1])
	offset = snapshot.PutUint32(data, offset, uint32(f.timerACount))
	offset = snapshot.PutUint32(data, offset, uint32(f.timerBCount))
	offset = snapshot.PutUint8(data, offset, f.status)
	_ = snapshot.PutInt64(data, offset, f.sampler.Phase())
}

func (f *fm) deserialize(data []byte) {
	offset := snapshot.Bytes(data, 0, f.mirror[0][:])
	offset = snapshot.Bytes(data, offset, f.mirror[1][:])

	// replay the mirror to rebuild the decoded register state. frequency
	// registers are re-derived directly because the latch ordering is
	// not recoverable from a replay
	for part := 0; part < 2; part++ {
		for reg := 0x22; reg < 0xc0; reg++ {
			if part == 0 && reg < 0x30 {
				switch reg {
				case 0x28, 0x2a:
					// key state and DAC data restored below
					continue
				}
			}
			f.writeRegister(part, uint8(reg), f.mirror[part][reg])
		}
	}
	f.dacData = f.mirror[0][0x2a]

	for c := range f.chans {
		ch := &f.chans[c]
		part, idx := c/3, c%3
		ch.fnum = uint16(f.mirror[part][0xa4+idx]&0x07)<<8 | uint16(f.mirror[part][0xa0+idx])
		ch.block = f.mirror[part][0xa4+idx] >> 3 & 0x07
	}

	var v8 uint8
	var v32 uint32
	var v64 uint64

	for c := range f.chans {
		ch := &f.chans[c]
		for o := range ch.ops {
			op := &ch.ops[o]
			v64, offset = snapshot.Uint64(data, offset)
			op.phase = math.Float64frombits(v64)
			v64, offset = snapshot.Uint64(data, offset)
			op.att = math.Float64frombits(v64)
			v8, offset = snapshot.Uint8(data, offset)
			op.state = int(v8)
			op.keyed, offset = snapshot.Bool(data, offset)
		}
		v64, offset = snapshot.Uint64(data, offset)
		ch.fb1 = math.Float64frombits(v64)
		v64, offset = snapshot.Uint64(data, offset)
		ch.fb2 = math.Float64frombits(v64)
	}

	f.freqLatch[0], offset = snapshot.Uint8(data, offset)
	f.freqLatch[1], offset = snapshot.Uint8(data, offset)
	v32, offset = snapshot.Uint32(data, offset)
	f.timerACount = int(v32)
	v32, offset = snapshot.Uint32(data, offset)
	f.timerBCount = int(v32)
	f.status, offset = snapshot.Uint8(data, offset)
	phase, _ := snapshot.Int64(data, offset)
	f.sampler.SetPhase(phase)

	f.outL = f.outL[:0]
	f.outR = f.outR[:0]
}
