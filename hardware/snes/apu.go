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
	"github.com/relicemu/relic/hardware/cpu/spc700"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/hardware/television"
	"github.com/relicemu/relic/logger"
)

// SPC700 clock in Hz
const apuClock = 1024000

// the boot ROM mapped over the top of audio RAM at 0xffc0. it waits for
// the main CPU's upload protocol on the ports and jumps to the uploaded
// code
var iplROM = [64]uint8{
	0xcd, 0xef, 0xbd, 0xe8, 0x00, 0xc6, 0x1d, 0xd0,
	0xfc, 0x8f, 0xaa, 0xf4, 0x8f, 0xbb, 0xf5, 0x78,
	0xcc, 0xf4, 0xd0, 0xfb, 0x2f, 0x19, 0xeb, 0xf4,
	0xd0, 0xfc, 0x7e, 0xf4, 0xd0, 0x0b, 0xe4, 0xf5,
	0xcb, 0xf4, 0xd7, 0x00, 0xfc, 0xd0, 0xf3, 0xab,
	0x01, 0x10, 0xef, 0x7e, 0xf4, 0x10, 0xeb, 0xba,
	0xf6, 0xda, 0x00, 0xba, 0xf4, 0xc4, 0xf4, 0xdd,
	0x5d, 0xd0, 0xdb, 0x1f, 0x00, 0x00, 0xc0, 0xff,
}

// apuTimer is one of the three SPC700 timers. The output counter is four
// bits wide and clears when read.
type apuTimer struct {
	enable   bool
	target   uint8
	counter  uint8
	stage    uint8
	prescale int
}

func (t *apuTimer) step(cycles int, divider int) {
	if !t.enable {
		return
	}
	t.prescale += cycles
	for t.prescale >= divider {
		t.prescale -= divider
		t.stage++
		if t.stage == t.target {
			t.stage = 0
			t.counter = (t.counter + 1) & 0x0f
		}
	}
}

// apu is the sound unit: an SPC700 with 64KB of audio RAM, the DSP, three
// timers and the four communication ports to the main CPU.
type apu struct {
	cpu  *spc700.CPU
	dsp  *dsp
	aram [0x10000]uint8

	// inPorts are written by the main CPU, outPorts by the SPC700
	inPorts  [4]uint8
	outPorts [4]uint8

	control   uint8
	iplEnable bool
	dspAddr   uint8

	timers [3]apuTimer

	// cycles owed to the scheduler after an instruction overshoots
	debt int
}

// spcBus is the SPC700's view of audio RAM with the control registers at
// 0x00f0 and the IPL ROM overlay.
type spcBus struct {
	a *apu
}

func newAPU(ring *television.AudioRing) *apu {
	a := &apu{}
	a.dsp = newDSP(&a.aram, ring)
	a.cpu = spc700.NewCPU(spcBus{a})
	return a
}

func (a *apu) reset() {
	a.aram = [0x10000]uint8{}
	a.inPorts = [4]uint8{}
	a.outPorts = [4]uint8{}
	a.control = 0
	a.iplEnable = true
	a.dspAddr = 0
	a.timers = [3]apuTimer{}
	a.debt = 0
	a.dsp.reset()
	a.cpu.Reset()
}

// step runs the SPC700 and the DSP for a number of APU cycles.
func (a *apu) step(cycles int) {
	a.stepTimers(cycles)
	a.dsp.step(cycles)

	cycles -= a.debt
	a.debt = 0
	for cycles > 0 {
		n, err := a.cpu.Step()
		if err != nil {
			logger.Logf("APU", "%v", err)
			a.cpu.Stopped = true
			return
		}
		cycles -= n
	}
	a.debt = -cycles
}

func (a *apu) stepTimers(cycles int) {
	a.timers[0].step(cycles, 128)
	a.timers[1].step(cycles, 128)
	a.timers[2].step(cycles, 16)
}

// cpuWritePort and cpuReadPort are the main CPU's side of $2140-$2143.
func (a *apu) cpuWritePort(port int, data uint8) {
	a.inPorts[port&3] = data
}

func (a *apu) cpuReadPort(port int) uint8 {
	return a.outPorts[port&3]
}

func (b spcBus) Read(address uint16) uint8 {
	a := b.a
	switch {
	case address >= 0xffc0 && a.iplEnable:
		return iplROM[address-0xffc0]
	case address >= 0x00f0 && address <= 0x00ff:
		switch address {
		case 0xf2:
			return a.dspAddr
		case 0xf3:
			return a.dsp.read(a.dspAddr)
		case 0xf4, 0xf5, 0xf6, 0xf7:
			return a.inPorts[address-0xf4]
		case 0xfd, 0xfe, 0xff:
			t := &a.timers[address-0xfd]
			v := t.counter
			t.counter = 0
			return v
		}
	}
	return a.aram[address]
}

func (b spcBus) Write(address uint16, data uint8) {
	a := b.a

	// writes land in audio RAM even under the register block and the IPL
	// ROM overlay
	a.aram[address] = data

	if address < 0x00f0 || address > 0x00ff {
		return
	}

	switch address {
	case 0xf1: // CONTROL
		for t := 0; t < 3; t++ {
			enable := data&(1<<uint(t)) != 0
			if enable && !a.timers[t].enable {
				a.timers[t].stage = 0
				a.timers[t].counter = 0
				a.timers[t].prescale = 0
			}
			a.timers[t].enable = enable
		}
		if data&0x10 != 0 {
			a.inPorts[0] = 0
			a.inPorts[1] = 0
		}
		if data&0x20 != 0 {
			a.inPorts[2] = 0
			a.inPorts[3] = 0
		}
		a.iplEnable = data&0x80 != 0
		a.control = data
	case 0xf2:
		a.dspAddr = data
	case 0xf3:
		a.dsp.write(a.dspAddr, data)
	case 0xf4, 0xf5, 0xf6, 0xf7:
		a.outPorts[address-0xf4] = data
	case 0xfa, 0xfb, 0xfc:
		a.timers[address-0xfa].target = data
	}
}

const apuSerializeSize = 0x10000 + // audio RAM
	spc700.SerializeSize +
	dspSerializeSize +
	8 + // ports
	3 + // control, IPL enable, DSP address
	3*7 + // timers
	2 // cycle debt

func (a *apu) serialize(data []byte) {
	offset := snapshot.PutBytes(data, 0, a.aram[:])
	a.cpu.Serialize(data[offset:])
	offset += spc700.SerializeSize
	a.dsp.serialize(data[offset:])
	offset += dspSerializeSize

	offset = snapshot.PutBytes(data, offset, a.inPorts[:])
	offset = snapshot.PutBytes(data, offset, a.outPorts[:])
	offset = snapshot.PutUint8(data, offset, a.control)
	offset = snapshot.PutBool(data, offset, a.iplEnable)
	offset = snapshot.PutUint8(data, offset, a.dspAddr)
	for t := range a.timers {
		offset = snapshot.PutBool(data, offset, a.timers[t].enable)
		offset = snapshot.PutUint8(data, offset, a.timers[t].target)
		offset = snapshot.PutUint8(data, offset, a.timers[t].counter)
		offset = snapshot.PutUint8(data, offset, a.timers[t].stage)
		offset = snapshot.PutUint16(data, offset, uint16(a.timers[t].prescale))
		offset = snapshot.PutUint8(data, offset, 0)
	}
	_ = snapshot.PutUint16(data, offset, uint16(a.debt))
}

func (a *apu) deserialize(data []byte) {
	var v16 uint16

	offset := snapshot.Bytes(data, 0, a.aram[:])
	a.cpu.Deserialize(data[offset:])
	offset += spc700.SerializeSize
	a.dsp.deserialize(data[offset:])
	offset += dspSerializeSize

	offset = snapshot.Bytes(data, offset, a.inPorts[:])
	offset = snapshot.Bytes(data, offset, a.outPorts[:])
	a.control, offset = snapshot.Uint8(data, offset)
	a.iplEnable, offset = snapshot.Bool(data, offset)
	a.dspAddr, offset = snapshot.Uint8(data, offset)
	for t := range a.timers {
		a.timers[t].enable, offset = snapshot.Bool(data, offset)
		a.timers[t].target, offset = snapshot.Uint8(data, offset)
		a.timers[t].counter, offset = snapshot.Uint8(data, offset)
		a.timers[t].stage, offset = snapshot.Uint8(data, offset)
		v16, offset = snapshot.Uint16(data, offset)
		a.timers[t].prescale = int(v16)
		_, offset = snapshot.Uint8(data, offset)
	}
	v16, _ = snapshot.Uint16(data, offset)
	a.debt = int(int16(v16))
}
