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

package nes

import (
	"github.com/relicemu/relic/hardware/clocks"
	"github.com/relicemu/relic/hardware/irq"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/hardware/television"
)

var lengthTable = [32]uint8{
	10, 254, 20, 2, 40, 4, 80, 6, 160, 8, 60, 10, 14, 12, 26, 14,
	12, 16, 24, 18, 48, 20, 96, 22, 192, 24, 72, 26, 16, 28, 32, 30,
}

var dutyTable = [4][8]uint8{
	{0, 1, 0, 0, 0, 0, 0, 0},
	{0, 1, 1, 0, 0, 0, 0, 0},
	{0, 1, 1, 1, 1, 0, 0, 0},
	{1, 0, 0, 1, 1, 1, 1, 1},
}

var noisePeriods = [16]uint16{
	4, 8, 16, 32, 64, 96, 128, 160, 202, 254, 380, 508, 762, 1016, 2034, 4068,
}

var dmcPeriods = [16]uint16{
	428, 380, 340, 320, 286, 254, 226, 214, 190, 160, 142, 128, 106, 84, 72, 54,
}

// pulse is one of the two square wave channels.
type pulse struct {
	enabled bool
	channel uint8 // 1 or 2: sweep negate differs

	duty       uint8
	dutyPos    uint8
	timer      uint16
	counter    uint16
	length     uint8
	lengthHalt bool

	constantVolume bool
	volume         uint8
	envStart       bool
	envDivider     uint8
	envDecay       uint8

	sweepEnabled bool
	sweepPeriod  uint8
	sweepNegate  bool
	sweepShift   uint8
	sweepReload  bool
	sweepDivider uint8
}

func (ch *pulse) writeControl(data uint8) {
	ch.duty = data >> 6
	ch.lengthHalt = data&0x20 != 0
	ch.constantVolume = data&0x10 != 0
	ch.volume = data & 0x0f
}

func (ch *pulse) writeSweep(data uint8) {
	ch.sweepEnabled = data&0x80 != 0
	ch.sweepPeriod = (data >> 4) & 0x07
	ch.sweepNegate = data&0x08 != 0
	ch.sweepShift = data & 0x07
	ch.sweepReload = true
}

func (ch *pulse) writeTimerLow(data uint8) {
	ch.timer = ch.timer&0x0700 | uint16(data)
}

func (ch *pulse) writeTimerHigh(data uint8) {
	ch.timer = ch.timer&0x00ff | uint16(data&0x07)<<8
	if ch.enabled {
		ch.length = lengthTable[data>>3]
	}
	ch.dutyPos = 0
	ch.envStart = true
}

// stepTimer advances the waveform position. called every other CPU cycle.
func (ch *pulse) stepTimer() {
	if ch.counter == 0 {
		ch.counter = ch.timer
		ch.dutyPos = (ch.dutyPos + 1) & 0x07
	} else {
		ch.counter--
	}
}

func (ch *pulse) stepEnvelope() {
	if ch.envStart {
		ch.envStart = false
		ch.envDecay = 15
		ch.envDivider = ch.volume
		return
	}
	if ch.envDivider == 0 {
		ch.envDivider = ch.volume
		if ch.envDecay > 0 {
			ch.envDecay--
		} else if ch.lengthHalt {
			ch.envDecay = 15
		}
	} else {
		ch.envDivider--
	}
}

func (ch *pulse) stepSweep() {
	if ch.sweepDivider == 0 && ch.sweepEnabled && ch.sweepShift > 0 {
		target := ch.sweepTarget()
		if ch.timer >= 8 && target <= 0x7ff {
			ch.timer = target
		}
	}
	if ch.sweepDivider == 0 || ch.sweepReload {
		ch.sweepDivider = ch.sweepPeriod
		ch.sweepReload = false
	} else {
		ch.sweepDivider--
	}
}

func (ch *pulse) sweepTarget() uint16 {
	delta := ch.timer >> ch.sweepShift
	if !ch.sweepNegate {
		return ch.timer + delta
	}
	// channel 1 uses one's complement negation
	if ch.channel == 1 {
		return ch.timer - delta - 1
	}
	return ch.timer - delta
}

func (ch *pulse) stepLength() {
	if !ch.lengthHalt && ch.length > 0 {
		ch.length--
	}
}

func (ch *pulse) output() uint8 {
	if !ch.enabled || ch.length == 0 || ch.timer < 8 || ch.sweepTarget() > 0x7ff {
		return 0
	}
	if dutyTable[ch.duty][ch.dutyPos] == 0 {
		return 0
	}
	if ch.constantVolume {
		return ch.volume
	}
	return ch.envDecay
}

// triangle channel
type triangle struct {
	enabled bool

	timer   uint16
	counter uint16
	length  uint8
	pos     uint8

	linearCounter uint8
	linearReload  uint8
	linearHalt    bool
	control       bool
}

func (ch *triangle) stepTimer() {
	if ch.counter == 0 {
		ch.counter = ch.timer
		if ch.length > 0 && ch.linearCounter > 0 {
			ch.pos = (ch.pos + 1) & 0x1f
		}
	} else {
		ch.counter--
	}
}

func (ch *triangle) stepLinear() {
	if ch.linearHalt {
		ch.linearCounter = ch.linearReload
	} else if ch.linearCounter > 0 {
		ch.linearCounter--
	}
	if !ch.control {
		ch.linearHalt = false
	}
}

func (ch *triangle) stepLength() {
	if !ch.control && ch.length > 0 {
		ch.length--
	}
}

func (ch *triangle) output() uint8 {
	if !ch.enabled || ch.length == 0 || ch.linearCounter == 0 {
		return 0
	}
	if ch.pos < 16 {
		return 15 - ch.pos
	}
	return ch.pos - 16
}

// noise channel
type noise struct {
	enabled bool

	timer      uint16
	counter    uint16
	length     uint8
	lengthHalt bool
	mode       bool
	lfsr       uint16

	constantVolume bool
	volume         uint8
	envStart       bool
	envDivider     uint8
	envDecay       uint8
}

func (ch *noise) stepTimer() {
	if ch.counter == 0 {
		ch.counter = ch.timer
		var feedback uint16
		if ch.mode {
			feedback = (ch.lfsr ^ ch.lfsr>>6) & 0x01
		} else {
			feedback = (ch.lfsr ^ ch.lfsr>>1) & 0x01
		}
		ch.lfsr = ch.lfsr>>1 | feedback<<14
	} else {
		ch.counter--
	}
}

func (ch *noise) stepEnvelope() {
	if ch.envStart {
		ch.envStart = false
		ch.envDecay = 15
		ch.envDivider = ch.volume
		return
	}
	if ch.envDivider == 0 {
		ch.envDivider = ch.volume
		if ch.envDecay > 0 {
			ch.envDecay--
		} else if ch.lengthHalt {
			ch.envDecay = 15
		}
	} else {
		ch.envDivider--
	}
}

func (ch *noise) stepLength() {
	if !ch.lengthHalt && ch.length > 0 {
		ch.length--
	}
}

func (ch *noise) output() uint8 {
	if !ch.enabled || ch.length == 0 || ch.lfsr&0x01 != 0 {
		return 0
	}
	if ch.constantVolume {
		return ch.volume
	}
	return ch.envDecay
}

// dmc is the delta modulation channel. Sample fetches steal CPU cycles,
// banked as stall debt with the interrupt controller.
type dmc struct {
	enabled bool

	irqEnable bool
	loop      bool
	rate      uint8
	counter   uint16

	output uint8

	sampleAddr   uint16
	sampleLength uint16
	currentAddr  uint16
	remaining    uint16

	shift    uint8
	bits     uint8
	silence  bool
	buffer   uint8
	buffered bool

	// memory access and stall accounting, attached by the machine
	read func(addr uint16) uint8
	ct   *irq.Controller
	irq  *irq.Line
}

func (ch *dmc) restart() {
	ch.currentAddr = ch.sampleAddr
	ch.remaining = ch.sampleLength
}

func (ch *dmc) stepTimer() {
	if !ch.enabled {
		return
	}

	if !ch.buffered && ch.remaining > 0 {
		// the fetch halts the CPU for four cycles
		ch.buffer = ch.read(ch.currentAddr)
		ch.buffered = true
		ch.ct.AddStall(4)
		if ch.currentAddr == 0xffff {
			ch.currentAddr = 0x8000
		} else {
			ch.currentAddr++
		}
		ch.remaining--
		if ch.remaining == 0 {
			if ch.loop {
				ch.restart()
			} else if ch.irqEnable {
				ch.irq.Assert(true)
			}
		}
	}

	if ch.counter == 0 {
		ch.counter = dmcPeriods[ch.rate]
		if ch.bits == 0 {
			ch.bits = 8
			if ch.buffered {
				ch.silence = false
				ch.shift = ch.buffer
				ch.buffered = false
			} else {
				ch.silence = true
			}
		}
		if !ch.silence {
			if ch.shift&0x01 != 0 {
				if ch.output <= 125 {
					ch.output += 2
				}
			} else if ch.output >= 2 {
				ch.output -= 2
			}
		}
		ch.shift >>= 1
		ch.bits--
	} else {
		ch.counter--
	}
}

// frame counter step boundaries in CPU cycles
var frameSteps4 = [4]int{7457, 14913, 22371, 29829}
var frameSteps5 = [5]int{7457, 14913, 22371, 29829, 37281}

// apu is the 2A03's audio half.
type apu struct {
	pulse1   pulse
	pulse2   pulse
	triangle triangle
	noise    noise
	dmc      dmc

	frameCycle   int
	frameStep    int
	mode5        bool
	irqInhibit   bool
	frameIRQFlag bool

	irqLine *irq.Line

	// CPU cycle parity for the channels clocked at half rate
	odd bool

	sampler *clocks.Domain
	ring    *television.AudioRing
}

// newAPU is the preferred method of initialisation for the apu type. The
// frame counter and the DMC have independent interrupt flags so each gets
// its own line.
func newAPU(cpuClock int64, frameLine *irq.Line, dmcLine *irq.Line, ring *television.AudioRing) *apu {
	a := &apu{
		irqLine: frameLine,
		ring:    ring,
		sampler: clocks.NewDomain(television.SampleRate, cpuClock),
	}
	a.pulse1.channel = 1
	a.pulse2.channel = 2
	a.noise.lfsr = 1
	a.dmc.irq = dmcLine
	return a
}

func (a *apu) reset() {
	a.writeRegister(0x15, 0)
	a.frameCycle = 0
	a.frameStep = 0
	a.frameIRQFlag = false
	a.noise.lfsr = 1
	a.dmc.output = 0
}

// step advances the APU by CPU cycles, pushing finished samples to the
// ring.
func (a *apu) step(cycles int) {
	for i := 0; i < cycles; i++ {
		a.triangle.stepTimer()
		a.dmc.stepTimer()
		if a.odd {
			a.pulse1.stepTimer()
			a.pulse2.stepTimer()
			a.noise.stepTimer()
		}
		a.odd = !a.odd

		a.stepFrameCounter()

		if a.sampler.Ticks(1) > 0 {
			s := a.sample()
			a.ring.Push(s, s)
		}
	}
}

func (a *apu) stepFrameCounter() {
	a.frameCycle++

	steps := frameSteps4[:]
	if a.mode5 {
		steps = frameSteps5[:]
	}

	if a.frameStep < len(steps) && a.frameCycle >= steps[a.frameStep] {
		last := a.frameStep == len(steps)-1

		// quarter frame: envelopes and triangle linear counter. in 5-step
		// mode the 4th boundary is silent but the last still clocks
		if !a.mode5 || a.frameStep != 3 {
			a.quarterFrame()
			if a.frameStep == 1 || last {
				a.halfFrame()
			}
		}

		if last {
			if !a.mode5 && !a.irqInhibit {
				a.frameIRQFlag = true
				a.irqLine.Assert(true)
			}
			a.frameCycle = 0
			a.frameStep = 0
		} else {
			a.frameStep++
		}
	}
}

func (a *apu) quarterFrame() {
	a.pulse1.stepEnvelope()
	a.pulse2.stepEnvelope()
	a.noise.stepEnvelope()
	a.triangle.stepLinear()
}

func (a *apu) halfFrame() {
	a.pulse1.stepLength()
	a.pulse2.stepLength()
	a.noise.stepLength()
	a.triangle.stepLength()
	a.pulse1.stepSweep()
	a.pulse2.stepSweep()
}

// sample mixes the five channels with the standard non-linear
// approximation.
func (a *apu) sample() int16 {
	p := float64(a.pulse1.output() + a.pulse2.output())
	t := float64(a.triangle.output())
	n := float64(a.noise.output())
	d := float64(a.dmc.output)

	var pulseOut, tndOut float64
	if p > 0 {
		pulseOut = 95.88 / (8128.0/p + 100.0)
	}
	tnd := t/8227.0 + n/12241.0 + d/22638.0
	if tnd > 0 {
		tndOut = 159.79 / (1.0/tnd + 100.0)
	}

	return int16((pulseOut + tndOut) * 32767 * 0.5)
}

// writeRegister handles CPU writes to 0x4000-0x4017 (reg is addr&0x1f).
func (a *apu) writeRegister(reg uint16, data uint8) {
	switch reg {
	case 0x00:
		a.pulse1.writeControl(data)
	case 0x01:
		a.pulse1.writeSweep(data)
	case 0x02:
		a.pulse1.writeTimerLow(data)
	case 0x03:
		a.pulse1.writeTimerHigh(data)
	case 0x04:
		a.pulse2.writeControl(data)
	case 0x05:
		a.pulse2.writeSweep(data)
	case 0x06:
		a.pulse2.writeTimerLow(data)
	case 0x07:
		a.pulse2.writeTimerHigh(data)
	case 0x08:
		a.triangle.control = data&0x80 != 0
		a.triangle.linearReload = data & 0x7f
	case 0x0a:
		a.triangle.timer = a.triangle.timer&0x0700 | uint16(data)
	case 0x0b:
		a.triangle.timer = a.triangle.timer&0x00ff | uint16(data&0x07)<<8
		if a.triangle.enabled {
			a.triangle.length = lengthTable[data>>3]
		}
		a.triangle.linearHalt = true
	case 0x0c:
		a.noise.lengthHalt = data&0x20 != 0
		a.noise.constantVolume = data&0x10 != 0
		a.noise.volume = data & 0x0f
	case 0x0e:
		a.noise.mode = data&0x80 != 0
		a.noise.timer = noisePeriods[data&0x0f]
	case 0x0f:
		if a.noise.enabled {
			a.noise.length = lengthTable[data>>3]
		}
		a.noise.envStart = true
	case 0x10:
		a.dmc.irqEnable = data&0x80 != 0
		a.dmc.loop = data&0x40 != 0
		a.dmc.rate = data & 0x0f
		if !a.dmc.irqEnable {
			a.dmc.irq.Assert(false)
		}
	case 0x11:
		a.dmc.output = data & 0x7f
	case 0x12:
		a.dmc.sampleAddr = 0xc000 | uint16(data)<<6
	case 0x13:
		a.dmc.sampleLength = uint16(data)<<4 | 1
	case 0x15:
		// writing the status register clears the DMC interrupt flag
		a.dmc.irq.Assert(false)
		a.pulse1.enabled = data&0x01 != 0
		a.pulse2.enabled = data&0x02 != 0
		a.triangle.enabled = data&0x04 != 0
		a.noise.enabled = data&0x08 != 0
		a.dmc.enabled = data&0x10 != 0
		if !a.pulse1.enabled {
			a.pulse1.length = 0
		}
		if !a.pulse2.enabled {
			a.pulse2.length = 0
		}
		if !a.triangle.enabled {
			a.triangle.length = 0
		}
		if !a.noise.enabled {
			a.noise.length = 0
		}
		if a.dmc.enabled {
			if a.dmc.remaining == 0 {
				a.dmc.restart()
			}
		} else {
			a.dmc.remaining = 0
		}
	case 0x17:
		a.mode5 = data&0x80 != 0
		a.irqInhibit = data&0x40 != 0
		a.frameCycle = 0
		a.frameStep = 0
		if a.irqInhibit {
			a.frameIRQFlag = false
			a.irqLine.Assert(false)
		}
		if a.mode5 {
			a.quarterFrame()
			a.halfFrame()
		}
	}
}

// readStatus handles CPU reads of 0x4015.
func (a *apu) readStatus() uint8 {
	var v uint8
	if a.pulse1.length > 0 {
		v |= 0x01
	}
	if a.pulse2.length > 0 {
		v |= 0x02
	}
	if a.triangle.length > 0 {
		v |= 0x04
	}
	if a.noise.length > 0 {
		v |= 0x08
	}
	if a.dmc.remaining > 0 {
		v |= 0x10
	}
	if a.frameIRQFlag {
		v |= 0x40
	}
	if a.dmc.irq.Pending() {
		v |= 0x80
	}

	// reading clears the frame interrupt flag but not the DMC flag
	a.frameIRQFlag = false
	a.irqLine.Assert(false)

	return v
}

// apuSerializeSize is the fixed size of serialized APU state.
const apuSerializeSize = 81

func (a *apu) serialize(data []byte) {
	offset := a.pulse1.serialize(data, 0)
	offset = a.pulse2.serialize(data, offset)

	offset = snapshot.PutUint16(data, offset, a.triangle.timer)
	offset = snapshot.PutUint16(data, offset, a.triangle.counter)
	offset = snapshot.PutUint8(data, offset, a.triangle.length)
	offset = snapshot.PutUint8(data, offset, a.triangle.pos)
	offset = snapshot.PutUint8(data, offset, a.triangle.linearCounter)
	offset = snapshot.PutUint8(data, offset, a.triangle.linearReload)
	offset = snapshot.PutBool(data, offset, a.triangle.linearHalt)
	offset = snapshot.PutBool(data, offset, a.triangle.control)
	offset = snapshot.PutBool(data, offset, a.triangle.enabled)

	offset = snapshot.PutUint16(data, offset, a.noise.timer)
	offset = snapshot.PutUint16(data, offset, a.noise.counter)
	offset = snapshot.PutUint16(data, offset, a.noise.lfsr)
	offset = snapshot.PutUint8(data, offset, a.noise.length)
	offset = snapshot.PutUint8(data, offset, a.noise.volume)
	offset = snapshot.PutUint8(data, offset, a.noise.envDivider)
	offset = snapshot.PutUint8(data, offset, a.noise.envDecay)
	offset = snapshot.PutUint8(data, offset, a.noise.packFlags())

	offset = snapshot.PutUint16(data, offset, a.dmc.counter)
	offset = snapshot.PutUint16(data, offset, a.dmc.sampleAddr)
	offset = snapshot.PutUint16(data, offset, a.dmc.sampleLength)
	offset = snapshot.PutUint16(data, offset, a.dmc.currentAddr)
	offset = snapshot.PutUint16(data, offset, a.dmc.remaining)
	offset = snapshot.PutUint8(data, offset, a.dmc.rate)
	offset = snapshot.PutUint8(data, offset, a.dmc.output)
	offset = snapshot.PutUint8(data, offset, a.dmc.shift)
	offset = snapshot.PutUint8(data, offset, a.dmc.bits)
	offset = snapshot.PutUint8(data, offset, a.dmc.buffer)
	offset = snapshot.PutUint8(data, offset, a.dmc.packFlags())

	offset = snapshot.PutUint32(data, offset, uint32(a.frameCycle))
	offset = snapshot.PutUint8(data, offset, uint8(a.frameStep))
	offset = snapshot.PutBool(data, offset, a.mode5)
	offset = snapshot.PutBool(data, offset, a.irqInhibit)
	offset = snapshot.PutBool(data, offset, a.frameIRQFlag)
	offset = snapshot.PutBool(data, offset, a.odd)
	_ = snapshot.PutInt64(data, offset, a.sampler.Phase())
}

func (a *apu) deserialize(data []byte) {
	offset := a.pulse1.deserialize(data, 0)
	offset = a.pulse2.deserialize(data, offset)

	a.triangle.timer, offset = snapshot.Uint16(data, offset)
	a.triangle.counter, offset = snapshot.Uint16(data, offset)
	a.triangle.length, offset = snapshot.Uint8(data, offset)
	a.triangle.pos, offset = snapshot.Uint8(data, offset)
	a.triangle.linearCounter, offset = snapshot.Uint8(data, offset)
	a.triangle.linearReload, offset = snapshot.Uint8(data, offset)
	a.triangle.linearHalt, offset = snapshot.Bool(data, offset)
	a.triangle.control, offset = snapshot.Bool(data, offset)
	a.triangle.enabled, offset = snapshot.Bool(data, offset)

	a.noise.timer, offset = snapshot.Uint16(data, offset)
	a.noise.counter, offset = snapshot.Uint16(data, offset)
	a.noise.lfsr, offset = snapshot.Uint16(data, offset)
	a.noise.length, offset = snapshot.Uint8(data, offset)
	a.noise.volume, offset = snapshot.Uint8(data, offset)
	a.noise.envDivider, offset = snapshot.Uint8(data, offset)
	a.noise.envDecay, offset = snapshot.Uint8(data, offset)
	var flags uint8
	flags, offset = snapshot.Uint8(data, offset)
	a.noise.unpackFlags(flags)

	a.dmc.counter, offset = snapshot.Uint16(data, offset)
	a.dmc.sampleAddr, offset = snapshot.Uint16(data, offset)
	a.dmc.sampleLength, offset = snapshot.Uint16(data, offset)
	a.dmc.currentAddr, offset = snapshot.Uint16(data, offset)
	a.dmc.remaining, offset = snapshot.Uint16(data, offset)
	a.dmc.rate, offset = snapshot.Uint8(data, offset)
	a.dmc.output, offset = snapshot.Uint8(data, offset)
	a.dmc.shift, offset = snapshot.Uint8(data, offset)
	a.dmc.bits, offset = snapshot.Uint8(data, offset)
	a.dmc.buffer, offset = snapshot.Uint8(data, offset)
	flags, offset = snapshot.Uint8(data, offset)
	a.dmc.unpackFlags(flags)

	var v32 uint32
	var v8 uint8
	v32, offset = snapshot.Uint32(data, offset)
	a.frameCycle = int(v32)
	v8, offset = snapshot.Uint8(data, offset)
	a.frameStep = int(v8)
	a.mode5, offset = snapshot.Bool(data, offset)
	a.irqInhibit, offset = snapshot.Bool(data, offset)
	a.frameIRQFlag, offset = snapshot.Bool(data, offset)
	a.odd, offset = snapshot.Bool(data, offset)
	phase, _ := snapshot.Int64(data, offset)
	a.sampler.SetPhase(phase)
}

// pulse channel serialization: 13 bytes
func (ch *pulse) serialize(data []byte, offset int) int {
	offset = snapshot.PutUint16(data, offset, ch.timer)
	offset = snapshot.PutUint16(data, offset, ch.counter)
	offset = snapshot.PutUint8(data, offset, ch.duty)
	offset = snapshot.PutUint8(data, offset, ch.dutyPos)
	offset = snapshot.PutUint8(data, offset, ch.length)
	offset = snapshot.PutUint8(data, offset, ch.volume)
	offset = snapshot.PutUint8(data, offset, ch.envDivider)
	offset = snapshot.PutUint8(data, offset, ch.envDecay)
	offset = snapshot.PutUint8(data, offset, ch.sweepPeriod)
	offset = snapshot.PutUint8(data, offset, ch.sweepShift)
	offset = snapshot.PutUint8(data, offset, ch.sweepDivider)
	offset = snapshot.PutUint8(data, offset, ch.packFlags())
	return offset
}

func (ch *pulse) deserialize(data []byte, offset int) int {
	ch.timer, offset = snapshot.Uint16(data, offset)
	ch.counter, offset = snapshot.Uint16(data, offset)
	ch.duty, offset = snapshot.Uint8(data, offset)
	ch.dutyPos, offset = snapshot.Uint8(data, offset)
	ch.length, offset = snapshot.Uint8(data, offset)
	ch.volume, offset = snapshot.Uint8(data, offset)
	ch.envDivider, offset = snapshot.Uint8(data, offset)
	ch.envDecay, offset = snapshot.Uint8(data, offset)
	ch.sweepPeriod, offset = snapshot.Uint8(data, offset)
	ch.sweepShift, offset = snapshot.Uint8(data, offset)
	ch.sweepDivider, offset = snapshot.Uint8(data, offset)
	var flags uint8
	flags, offset = snapshot.Uint8(data, offset)
	ch.unpackFlags(flags)
	return offset
}

func (ch *pulse) packFlags() uint8 {
	var v uint8
	if ch.enabled {
		v |= 0x01
	}
	if ch.lengthHalt {
		v |= 0x02
	}
	if ch.constantVolume {
		v |= 0x04
	}
	if ch.envStart {
		v |= 0x08
	}
	if ch.sweepEnabled {
		v |= 0x10
	}
	if ch.sweepNegate {
		v |= 0x20
	}
	if ch.sweepReload {
		v |= 0x40
	}
	return v
}

func (ch *pulse) unpackFlags(v uint8) {
	ch.enabled = v&0x01 != 0
	ch.lengthHalt = v&0x02 != 0
	ch.constantVolume = v&0x04 != 0
	ch.envStart = v&0x08 != 0
	ch.sweepEnabled = v&0x10 != 0
	ch.sweepNegate = v&0x20 != 0
	ch.sweepReload = v&0x40 != 0
}

func (ch *noise) packFlags() uint8 {
	var v uint8
	if ch.enabled {
		v |= 0x01
	}
	if ch.lengthHalt {
		v |= 0x02
	}
	if ch.constantVolume {
		v |= 0x04
	}
	if ch.envStart {
		v |= 0x08
	}
	if ch.mode {
		v |= 0x10
	}
	return v
}

func (ch *noise) unpackFlags(v uint8) {
	ch.enabled = v&0x01 != 0
	ch.lengthHalt = v&0x02 != 0
	ch.constantVolume = v&0x04 != 0
	ch.envStart = v&0x08 != 0
	ch.mode = v&0x10 != 0
}

func (ch *dmc) packFlags() uint8 {
	var v uint8
	if ch.enabled {
		v |= 0x01
	}
	if ch.irqEnable {
		v |= 0x02
	}
	if ch.loop {
		v |= 0x04
	}
	if ch.silence {
		v |= 0x08
	}
	if ch.buffered {
		v |= 0x10
	}
	return v
}

func (ch *dmc) unpackFlags(v uint8) {
	ch.enabled = v&0x01 != 0
	ch.irqEnable = v&0x02 != 0
	ch.loop = v&0x04 != 0
	ch.silence = v&0x08 != 0
	ch.buffered = v&0x10 != 0
}
