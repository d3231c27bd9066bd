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

package gameboy

import (
	"github.com/relicemu/relic/hardware/clocks"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/hardware/television"
)

// the frame sequencer runs at 512Hz
const frameSeqPeriod = 4194304 / 512

var gbDutyTable = [4][8]uint8{
	{0, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 0, 0, 1},
	{1, 0, 0, 0, 0, 1, 1, 1},
	{0, 1, 1, 1, 1, 1, 1, 0},
}

var noiseDivisors = [8]int{8, 16, 32, 48, 64, 80, 96, 112}

// square is one of the two pulse channels. Channel 1 additionally has the
// frequency sweep.
type square struct {
	enabled  bool
	hasSweep bool

	duty    uint8
	dutyPos uint8
	freq    uint16
	counter int

	length     int
	lengthStop bool

	envVolume  uint8
	envAdd     bool
	envPeriod  uint8
	envDivider uint8
	volume     uint8

	sweepPeriod  uint8
	sweepNegate  bool
	sweepShift   uint8
	sweepDivider uint8
	sweepEnabled bool
	sweepShadow  uint16
}

func (ch *square) trigger() {
	ch.enabled = true
	if ch.length == 0 {
		ch.length = 64
	}
	ch.counter = int(2048-ch.freq) * 4
	ch.volume = ch.envVolume
	ch.envDivider = ch.envPeriod

	if ch.hasSweep {
		ch.sweepShadow = ch.freq
		ch.sweepDivider = ch.sweepPeriod
		ch.sweepEnabled = ch.sweepPeriod > 0 || ch.sweepShift > 0
		if ch.sweepShift > 0 && ch.sweepNext() > 2047 {
			ch.enabled = false
		}
	}

	if ch.envVolume == 0 && !ch.envAdd {
		ch.enabled = false
	}
}

func (ch *square) sweepNext() uint16 {
	delta := ch.sweepShadow >> ch.sweepShift
	if ch.sweepNegate {
		return ch.sweepShadow - delta
	}
	return ch.sweepShadow + delta
}

func (ch *square) stepSweep() {
	if !ch.hasSweep || !ch.sweepEnabled {
		return
	}
	if ch.sweepDivider > 0 {
		ch.sweepDivider--
		return
	}
	ch.sweepDivider = ch.sweepPeriod
	if ch.sweepPeriod == 0 {
		ch.sweepDivider = 8
		return
	}

	next := ch.sweepNext()
	if next > 2047 {
		ch.enabled = false
		return
	}
	if ch.sweepShift > 0 {
		ch.sweepShadow = next
		ch.freq = next
		if ch.sweepNext() > 2047 {
			ch.enabled = false
		}
	}
}

func (ch *square) stepEnvelope() {
	if ch.envPeriod == 0 {
		return
	}
	if ch.envDivider > 0 {
		ch.envDivider--
		return
	}
	ch.envDivider = ch.envPeriod
	if ch.envAdd && ch.volume < 15 {
		ch.volume++
	} else if !ch.envAdd && ch.volume > 0 {
		ch.volume--
	}
}

func (ch *square) stepLength() {
	if ch.lengthStop && ch.length > 0 {
		ch.length--
		if ch.length == 0 {
			ch.enabled = false
		}
	}
}

func (ch *square) stepTimer(cycles int) {
	if !ch.enabled {
		return
	}
	ch.counter -= cycles
	for ch.counter <= 0 {
		ch.counter += int(2048-ch.freq) * 4
		ch.dutyPos = (ch.dutyPos + 1) & 0x07
	}
}

func (ch *square) output() uint8 {
	if !ch.enabled {
		return 0
	}
	return gbDutyTable[ch.duty][ch.dutyPos] * ch.volume
}

// wave is channel 3: 32 four bit samples from wave RAM.
type wave struct {
	enabled bool
	dacOn   bool

	freq    uint16
	counter int
	pos     uint8

	length     int
	lengthStop bool

	volumeCode uint8

	ram [16]uint8
}

func (ch *wave) trigger() {
	ch.enabled = ch.dacOn
	if ch.length == 0 {
		ch.length = 256
	}
	ch.counter = int(2048-ch.freq) * 2
	ch.pos = 0
}

func (ch *wave) stepLength() {
	if ch.lengthStop && ch.length > 0 {
		ch.length--
		if ch.length == 0 {
			ch.enabled = false
		}
	}
}

func (ch *wave) stepTimer(cycles int) {
	if !ch.enabled {
		return
	}
	ch.counter -= cycles
	for ch.counter <= 0 {
		ch.counter += int(2048-ch.freq) * 2
		ch.pos = (ch.pos + 1) & 0x1f
	}
}

func (ch *wave) output() uint8 {
	if !ch.enabled || ch.volumeCode == 0 {
		return 0
	}
	v := ch.ram[ch.pos/2]
	if ch.pos&0x01 == 0 {
		v >>= 4
	}
	v &= 0x0f
	return v >> (ch.volumeCode - 1)
}

// gbNoise is channel 4: a 15 bit LFSR with optional 7 bit mode.
type gbNoise struct {
	enabled bool

	counter int
	shift   uint8
	width7  bool
	divisor uint8
	lfsr    uint16

	length     int
	lengthStop bool

	envVolume  uint8
	envAdd     bool
	envPeriod  uint8
	envDivider uint8
	volume     uint8
}

func (ch *gbNoise) trigger() {
	ch.enabled = true
	if ch.length == 0 {
		ch.length = 64
	}
	ch.counter = noiseDivisors[ch.divisor] << ch.shift
	ch.lfsr = 0x7fff
	ch.volume = ch.envVolume
	ch.envDivider = ch.envPeriod
	if ch.envVolume == 0 && !ch.envAdd {
		ch.enabled = false
	}
}

func (ch *gbNoise) stepEnvelope() {
	if ch.envPeriod == 0 {
		return
	}
	if ch.envDivider > 0 {
		ch.envDivider--
		return
	}
	ch.envDivider = ch.envPeriod
	if ch.envAdd && ch.volume < 15 {
		ch.volume++
	} else if !ch.envAdd && ch.volume > 0 {
		ch.volume--
	}
}

func (ch *gbNoise) stepLength() {
	if ch.lengthStop && ch.length > 0 {
		ch.length--
		if ch.length == 0 {
			ch.enabled = false
		}
	}
}

func (ch *gbNoise) stepTimer(cycles int) {
	if !ch.enabled {
		return
	}
	ch.counter -= cycles
	for ch.counter <= 0 {
		ch.counter += noiseDivisors[ch.divisor] << ch.shift
		feedback := (ch.lfsr ^ ch.lfsr>>1) & 0x01
		ch.lfsr = ch.lfsr>>1 | feedback<<14
		if ch.width7 {
			ch.lfsr = ch.lfsr&^0x40 | feedback<<6
		}
	}
}

func (ch *gbNoise) output() uint8 {
	if !ch.enabled || ch.lfsr&0x01 != 0 {
		return 0
	}
	return ch.volume
}

// apu is the Game Boy sound unit.
type apu struct {
	ch1 square
	ch2 square
	ch3 wave
	ch4 gbNoise

	powered bool
	nr50    uint8
	nr51    uint8

	seqCounter int
	seqStep    int

	sampler *clocks.Domain
	ring    *television.AudioRing
}

func newAPU(ring *television.AudioRing) *apu {
	a := &apu{
		ring:    ring,
		sampler: clocks.NewDomain(television.SampleRate, clocks.GameBoyClock),
	}
	a.ch1.hasSweep = true
	return a
}

func (a *apu) reset() {
	*a = apu{
		ring:    a.ring,
		sampler: a.sampler,
		powered: true,
		nr50:    0x77,
		nr51:    0xf3,
	}
	a.ch1.hasSweep = true
	a.sampler.SetPhase(0)
}

// step advances the APU by T-cycles.
func (a *apu) step(cycles int) {
	if a.powered {
		a.ch1.stepTimer(cycles)
		a.ch2.stepTimer(cycles)
		a.ch3.stepTimer(cycles)
		a.ch4.stepTimer(cycles)

		a.seqCounter += cycles
		for a.seqCounter >= frameSeqPeriod {
			a.seqCounter -= frameSeqPeriod
			a.stepSequencer()
		}
	}

	for i := a.sampler.Ticks(cycles); i > 0; i-- {
		left, right := a.sample()
		a.ring.Push(left, right)
	}
}

func (a *apu) stepSequencer() {
	switch a.seqStep {
	case 0, 4:
		a.stepLengths()
	case 2, 6:
		a.stepLengths()
		a.ch1.stepSweep()
	case 7:
		a.ch1.stepEnvelope()
		a.ch2.stepEnvelope()
		a.ch4.stepEnvelope()
	}
	a.seqStep = (a.seqStep + 1) & 0x07
}

func (a *apu) stepLengths() {
	a.ch1.stepLength()
	a.ch2.stepLength()
	a.ch3.stepLength()
	a.ch4.stepLength()
}

// sample mixes the four channels through the NR51 router and NR50 master
// volumes.
func (a *apu) sample() (int16, int16) {
	if !a.powered {
		return 0, 0
	}

	outputs := [4]uint8{a.ch1.output(), a.ch2.output(), a.ch3.output(), a.ch4.output()}

	var left, right int
	for i, v := range outputs {
		if a.nr51&(1<<(i+4)) != 0 {
			left += int(v)
		}
		if a.nr51&(1<<i) != 0 {
			right += int(v)
		}
	}

	// channel sum is 0-60; master volume is 1-8
	lVol := int(a.nr50>>4&0x07) + 1
	rVol := int(a.nr50&0x07) + 1
	return int16(left * lVol * 64), int16(right * rVol * 64)
}

// readRegister handles reads of ff10-ff3f.
func (a *apu) readRegister(addr uint16) uint8 {
	switch {
	case addr >= 0xff30:
		return a.ch3.ram[addr&0x0f]
	case addr == 0xff26:
		var v uint8 = 0x70
		if a.powered {
			v |= 0x80
		}
		if a.ch1.enabled {
			v |= 0x01
		}
		if a.ch2.enabled {
			v |= 0x02
		}
		if a.ch3.enabled {
			v |= 0x04
		}
		if a.ch4.enabled {
			v |= 0x08
		}
		return v
	case addr == 0xff24:
		return a.nr50
	case addr == 0xff25:
		return a.nr51
	}
	return 0xff
}

// writeRegister handles writes to ff10-ff3f.
func (a *apu) writeRegister(addr uint16, data uint8) {
	if addr >= 0xff30 {
		a.ch3.ram[addr&0x0f] = data
		return
	}

	if !a.powered && addr != 0xff26 {
		return
	}

	switch addr {
	case 0xff10:
		a.ch1.sweepPeriod = (data >> 4) & 0x07
		a.ch1.sweepNegate = data&0x08 != 0
		a.ch1.sweepShift = data & 0x07
	case 0xff11:
		a.ch1.duty = data >> 6
		a.ch1.length = 64 - int(data&0x3f)
	case 0xff12:
		a.ch1.envVolume = data >> 4
		a.ch1.envAdd = data&0x08 != 0
		a.ch1.envPeriod = data & 0x07
		if data&0xf8 == 0 {
			a.ch1.enabled = false
		}
	case 0xff13:
		a.ch1.freq = a.ch1.freq&0x0700 | uint16(data)
	case 0xff14:
		a.ch1.freq = a.ch1.freq&0x00ff | uint16(data&0x07)<<8
		a.ch1.lengthStop = data&0x40 != 0
		if data&0x80 != 0 {
			a.ch1.trigger()
		}

	case 0xff16:
		a.ch2.duty = data >> 6
		a.ch2.length = 64 - int(data&0x3f)
	case 0xff17:
		a.ch2.envVolume = data >> 4
		a.ch2.envAdd = data&0x08 != 0
		a.ch2.envPeriod = data & 0x07
		if data&0xf8 == 0 {
			a.ch2.enabled = false
		}
	case 0xff18:
		a.ch2.freq = a.ch2.freq&0x0700 | uint16(data)
	case 0xff19:
		a.ch2.freq = a.ch2.freq&0x00ff | uint16(data&0x07)<<8
		a.ch2.lengthStop = data&0x40 != 0
		if data&0x80 != 0 {
			a.ch2.trigger()
		}

	case 0xff1a:
		a.ch3.dacOn = data&0x80 != 0
		if !a.ch3.dacOn {
			a.ch3.enabled = false
		}
	case 0xff1b:
		a.ch3.length = 256 - int(data)
	case 0xff1c:
		a.ch3.volumeCode = (data >> 5) & 0x03
	case 0xff1d:
		a.ch3.freq = a.ch3.freq&0x0700 | uint16(data)
	case 0xff1e:
		a.ch3.freq = a.ch3.freq&0x00ff | uint16(data&0x07)<<8
		a.ch3.lengthStop = data&0x40 != 0
		if data&0x80 != 0 {
			a.ch3.trigger()
		}

	case 0xff20:
		a.ch4.length = 64 - int(data&0x3f)
	case 0xff21:
		a.ch4.envVolume = data >> 4
		a.ch4.envAdd = data&0x08 != 0
		a.ch4.envPeriod = data & 0x07
		if data&0xf8 == 0 {
			a.ch4.enabled = false
		}
	case 0xff22:
		a.ch4.shift = data >> 4
		a.ch4.width7 = data&0x08 != 0
		a.ch4.divisor = data & 0x07
	case 0xff23:
		a.ch4.lengthStop = data&0x40 != 0
		if data&0x80 != 0 {
			a.ch4.trigger()
		}

	case 0xff24:
		a.nr50 = data
	case 0xff25:
		a.nr51 = data
	case 0xff26:
		powered := data&0x80 != 0
		if a.powered && !powered {
			// powering off clears every register but wave RAM
			ram := a.ch3.ram
			a.reset()
			a.powered = false
			a.ch3.ram = ram
		}
		a.powered = powered
	}
}

// apuSerializeSize is the fixed size of serialized APU state.
const apuSerializeSize = 109

func (a *apu) serialize(data []byte) {
	offset := a.ch1.serializeSquare(data, 0)
	offset = a.ch2.serializeSquare(data, offset)

	offset = snapshot.PutBool(data, offset, a.ch3.enabled)
	offset = snapshot.PutBool(data, offset, a.ch3.dacOn)
	offset = snapshot.PutUint16(data, offset, a.ch3.freq)
	offset = snapshot.PutUint32(data, offset, uint32(a.ch3.counter))
	offset = snapshot.PutUint8(data, offset, a.ch3.pos)
	offset = snapshot.PutUint16(data, offset, uint16(a.ch3.length))
	offset = snapshot.PutBool(data, offset, a.ch3.lengthStop)
	offset = snapshot.PutUint8(data, offset, a.ch3.volumeCode)
	offset = snapshot.PutBytes(data, offset, a.ch3.ram[:])

	offset = snapshot.PutBool(data, offset, a.ch4.enabled)
	offset = snapshot.PutUint32(data, offset, uint32(a.ch4.counter))
	offset = snapshot.PutUint8(data, offset, a.ch4.shift)
	offset = snapshot.PutBool(data, offset, a.ch4.width7)
	offset = snapshot.PutUint8(data, offset, a.ch4.divisor)
	offset = snapshot.PutUint16(data, offset, a.ch4.lfsr)
	offset = snapshot.PutUint16(data, offset, uint16(a.ch4.length))
	offset = snapshot.PutBool(data, offset, a.ch4.lengthStop)
	offset = snapshot.PutUint8(data, offset, a.ch4.envVolume)
	offset = snapshot.PutBool(data, offset, a.ch4.envAdd)
	offset = snapshot.PutUint8(data, offset, a.ch4.envPeriod)
	offset = snapshot.PutUint8(data, offset, a.ch4.envDivider)
	offset = snapshot.PutUint8(data, offset, a.ch4.volume)

	offset = snapshot.PutBool(data, offset, a.powered)
	offset = snapshot.PutUint8(data, offset, a.nr50)
	offset = snapshot.PutUint8(data, offset, a.nr51)
	offset = snapshot.PutUint16(data, offset, uint16(a.seqCounter))
	offset = snapshot.PutUint8(data, offset, uint8(a.seqStep))
	_ = snapshot.PutInt64(data, offset, a.sampler.Phase())
}

func (a *apu) deserialize(data []byte) {
	offset := a.ch1.deserializeSquare(data, 0)
	offset = a.ch2.deserializeSquare(data, offset)

	var v32 uint32
	var v16 uint16
	var v8 uint8

	a.ch3.enabled, offset = snapshot.Bool(data, offset)
	a.ch3.dacOn, offset = snapshot.Bool(data, offset)
	a.ch3.freq, offset = snapshot.Uint16(data, offset)
	v32, offset = snapshot.Uint32(data, offset)
	a.ch3.counter = int(int32(v32))
	a.ch3.pos, offset = snapshot.Uint8(data, offset)
	v16, offset = snapshot.Uint16(data, offset)
	a.ch3.length = int(v16)
	a.ch3.lengthStop, offset = snapshot.Bool(data, offset)
	a.ch3.volumeCode, offset = snapshot.Uint8(data, offset)
	offset = snapshot.Bytes(data, offset, a.ch3.ram[:])

	a.ch4.enabled, offset = snapshot.Bool(data, offset)
	v32, offset = snapshot.Uint32(data, offset)
	a.ch4.counter = int(int32(v32))
	a.ch4.shift, offset = snapshot.Uint8(data, offset)
	a.ch4.width7, offset = snapshot.Bool(data, offset)
	a.ch4.divisor, offset = snapshot.Uint8(data, offset)
	a.ch4.lfsr, offset = snapshot.Uint16(data, offset)
	v16, offset = snapshot.Uint16(data, offset)
	a.ch4.length = int(v16)
	a.ch4.lengthStop, offset = snapshot.Bool(data, offset)
	a.ch4.envVolume, offset = snapshot.Uint8(data, offset)
	a.ch4.envAdd, offset = snapshot.Bool(data, offset)
	a.ch4.envPeriod, offset = snapshot.Uint8(data, offset)
	a.ch4.envDivider, offset = snapshot.Uint8(data, offset)
	a.ch4.volume, offset = snapshot.Uint8(data, offset)

	a.powered, offset = snapshot.Bool(data, offset)
	a.nr50, offset = snapshot.Uint8(data, offset)
	a.nr51, offset = snapshot.Uint8(data, offset)
	v16, offset = snapshot.Uint16(data, offset)
	a.seqCounter = int(v16)
	v8, offset = snapshot.Uint8(data, offset)
	a.seqStep = int(v8)
	phase, _ := snapshot.Int64(data, offset)
	a.sampler.SetPhase(phase)
}

// square channel serialization: 24 bytes
func (ch *square) serializeSquare(data []byte, offset int) int {
	offset = snapshot.PutBool(data, offset, ch.enabled)
	offset = snapshot.PutUint8(data, offset, ch.duty)
	offset = snapshot.PutUint8(data, offset, ch.dutyPos)
	offset = snapshot.PutUint16(data, offset, ch.freq)
	offset = snapshot.PutUint32(data, offset, uint32(ch.counter))
	offset = snapshot.PutUint16(data, offset, uint16(ch.length))
	offset = snapshot.PutBool(data, offset, ch.lengthStop)
	offset = snapshot.PutUint8(data, offset, ch.envVolume)
	offset = snapshot.PutBool(data, offset, ch.envAdd)
	offset = snapshot.PutUint8(data, offset, ch.envPeriod)
	offset = snapshot.PutUint8(data, offset, ch.envDivider)
	offset = snapshot.PutUint8(data, offset, ch.volume)
	offset = snapshot.PutUint8(data, offset, ch.sweepPeriod)
	offset = snapshot.PutBool(data, offset, ch.sweepNegate)
	offset = snapshot.PutUint8(data, offset, ch.sweepShift)
	offset = snapshot.PutUint8(data, offset, ch.sweepDivider)
	offset = snapshot.PutBool(data, offset, ch.sweepEnabled)
	offset = snapshot.PutUint16(data, offset, ch.sweepShadow)
	return offset
}

func (ch *square) deserializeSquare(data []byte, offset int) int {
	var v32 uint32
	var v16 uint16
	ch.enabled, offset = snapshot.Bool(data, offset)
	ch.duty, offset = snapshot.Uint8(data, offset)
	ch.dutyPos, offset = snapshot.Uint8(data, offset)
	ch.freq, offset = snapshot.Uint16(data, offset)
	v32, offset = snapshot.Uint32(data, offset)
	ch.counter = int(int32(v32))
	v16, offset = snapshot.Uint16(data, offset)
	ch.length = int(v16)
	ch.lengthStop, offset = snapshot.Bool(data, offset)
	ch.envVolume, offset = snapshot.Uint8(data, offset)
	ch.envAdd, offset = snapshot.Bool(data, offset)
	ch.envPeriod, offset = snapshot.Uint8(data, offset)
	ch.envDivider, offset = snapshot.Uint8(data, offset)
	ch.volume, offset = snapshot.Uint8(data, offset)
	ch.sweepPeriod, offset = snapshot.Uint8(data, offset)
	ch.sweepNegate, offset = snapshot.Bool(data, offset)
	ch.sweepShift, offset = snapshot.Uint8(data, offset)
	ch.sweepDivider, offset = snapshot.Uint8(data, offset)
	ch.sweepEnabled, offset = snapshot.Bool(data, offset)
	ch.sweepShadow, offset = snapshot.Uint16(data, offset)
	return offset
}
