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
	"github.com/relicemu/relic/hardware/snapshot"
	z80 "github.com/user-none/go-chip-z80"
)

// z80sub is the sound subsystem: the Z80, its 8KB of RAM, the bank window
// into the 68K address space, and the bus request and reset lines the 68K
// uses to take it on and off the bus.
type z80sub struct {
	cpu *z80.CPU
	ram [8192]uint8

	// 9 bit bank register, filled one bit at a time through 0x6000
	bank uint16

	// busReq is the 68K holding the bus; reset is the Z80's reset line.
	// the Z80 only runs with the bus free and reset deasserted
	busReq bool
	reset  bool

	// reset was deasserted; the core restarts before its next slice
	pendingReset bool

	// vblank INT stays asserted until the core acknowledges it. the
	// acknowledge is observed as IFF1 dropping during a step
	intPending bool

	m *Machine
}

func newZ80Sub(m *Machine) *z80sub {
	z := &z80sub{m: m}
	z.cpu = z80.New(z80mem{z})
	z.reset = true
	z.busReq = true
	return z
}

func (z *z80sub) resetSub() {
	z.ram = [8192]uint8{}
	z.bank = 0
	z.busReq = true
	z.reset = true
	z.pendingReset = false
	z.intPending = false
	z.cpu.Reset()
	z.cpu.INT(false, 0xff)
}

// running is true when the Z80 can execute: reset deasserted and the 68K
// not holding the bus.
func (z *z80sub) running() bool {
	return !z.reset && !z.busReq
}

// writeBusReq is the 68K side of 0xa11100. Bit 8 of the written word
// requests the bus.
func (z *z80sub) writeBusReq(data uint16) {
	z.busReq = data&0x0100 != 0
}

// readBusReq reports bit 8 low once the bus has been granted.
func (z *z80sub) readBusReq() uint16 {
	if z.busReq {
		return 0x0000
	}
	return 0x0100
}

// writeReset is the 68K side of 0xa11200. Bit 8 high releases the reset
// line and restarts the core.
func (z *z80sub) writeReset(data uint16) {
	release := data&0x0100 != 0
	if release && z.reset {
		z.pendingReset = true
	}
	z.reset = !release
}

// vblank asserts the INT line. On the console it is wired straight to the
// VDP's vblank output, independent of the 68K interrupt enables.
func (z *z80sub) vblank() {
	z.intPending = true
	z.cpu.INT(true, 0xff)
}

// step runs the Z80 for a slice of its own cycles.
func (z *z80sub) step(budget int) {
	if z.pendingReset {
		z.cpu.Reset()
		z.pendingReset = false
	}

	if !z.running() {
		return
	}

	for budget > 0 {
		var prevIFF1 bool
		if z.intPending {
			prevIFF1 = z.cpu.Registers().IFF1
		}

		consumed := z.cpu.StepCycles(1)
		if consumed == 0 {
			break
		}
		budget -= consumed

		if z.intPending && prevIFF1 && !z.cpu.Registers().IFF1 {
			z.intPending = false
			z.cpu.INT(false, 0xff)
		}
	}
}

// bankAddr maps a Z80 window address into the 68K address space.
func (z *z80sub) bankAddr(addr uint16) uint32 {
	return uint32(z.bank)<<15 | uint32(addr&0x7fff)
}

// z80mem is the Z80's view of the machine:
//
//	0x0000-0x3fff  RAM and mirror
//	0x4000-0x5fff  YM2612 ports
//	0x6000         bank register, one bit per write
//	0x7f00-0x7f1f  VDP ports, PSG at 0x7f11
//	0x8000-0xffff  68K bank window
type z80mem struct {
	z *z80sub
}

func (zm z80mem) Fetch(addr uint16) uint8 {
	return zm.Read(addr)
}

func (zm z80mem) Read(addr uint16) uint8 {
	z := zm.z
	switch {
	case addr < 0x4000:
		return z.ram[addr&0x1fff]
	case addr < 0x6000:
		return z.m.fm.readPort(uint8(addr & 0x03))
	case addr >= 0x7f00 && addr < 0x7f20:
		return z.m.vdpPortRead8(addr & 0x1f)
	case addr < 0x8000:
		return 0xff
	}
	return z.m.busRead8(z.bankAddr(addr))
}

func (zm z80mem) Write(addr uint16, data uint8) {
	z := zm.z
	switch {
	case addr < 0x4000:
		z.ram[addr&0x1fff] = data
	case addr < 0x6000:
		z.m.fm.writePort(uint8(addr&0x03), data)
	case addr == 0x6000:
		z.bank = z.bank>>1 | uint16(data&0x01)<<8
	case addr >= 0x7f00 && addr < 0x7f20:
		z.m.vdpPortWrite8(addr&0x1f, data)
	case addr < 0x8000:
		// unused and reserved ranges ignore writes
	default:
		z.m.busWrite8(z.bankAddr(addr), data)
	}
}

// the Mega Drive Z80 has no I/O ports; everything is memory mapped
func (zm z80mem) In(port uint16) uint8 {
	return 0xff
}

func (zm z80mem) Out(port uint16, data uint8) {
}

const z80subSerializeSize = z80.SerializeSize + 8192 + 2 + 4

func (z *z80sub) serialize(data []byte) {
	z.cpu.Serialize(data)
	offset := z80.SerializeSize
	offset = snapshot.PutBytes(data, offset, z.ram[:])
	offset = snapshot.PutUint16(data, offset, z.bank)
	offset = snapshot.PutBool(data, offset, z.busReq)
	offset = snapshot.PutBool(data, offset, z.reset)
	offset = snapshot.PutBool(data, offset, z.pendingReset)
	_ = snapshot.PutBool(data, offset, z.intPending)
}

func (z *z80sub) deserialize(data []byte) {
	z.cpu.Deserialize(data)
	offset := z80.SerializeSize
	offset = snapshot.Bytes(data, offset, z.ram[:])
	z.bank, offset = snapshot.Uint16(data, offset)
	z.busReq, offset = snapshot.Bool(data, offset)
	z.reset, offset = snapshot.Bool(data, offset)
	z.pendingReset, offset = snapshot.Bool(data, offset)
	z.intPending, _ = snapshot.Bool(data, offset)

	z.cpu.INT(z.intPending, 0xff)
}
