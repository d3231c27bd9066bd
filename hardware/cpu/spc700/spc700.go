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

// Package spc700 implements the Sony SPC700 core that drives the SNES
// audio unit. The instruction encoding is column regular: the six ALU
// operations decode algebraically from the opcode's row pair and column,
// the TCALL, SET1/CLR1 and BBS/BBC columns from the row number. Everything
// else is dispatched individually.
//
// Cycle counts come from a per-opcode table; taken branches add two.
package spc700

import (
	"github.com/relicemu/relic/hardware/snapshot"
)

// Bus is the memory access surface the CPU requires. All of the SPC700's
// 64K is addressable; the DSP and IO registers live in the map.
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, data uint8)
}

// Flags is the PSW register as individual flags.
type Flags struct {
	Carry      bool
	Zero       bool
	Interrupt  bool
	HalfCarry  bool
	Break      bool
	DirectPage bool // P flag: direct page at 0x0100 when set
	Overflow   bool
	Sign       bool
}

// Value assembles the flags into the PSW byte.
func (fl *Flags) Value() uint8 {
	var v uint8
	if fl.Carry {
		v |= 0x01
	}
	if fl.Zero {
		v |= 0x02
	}
	if fl.Interrupt {
		v |= 0x04
	}
	if fl.HalfCarry {
		v |= 0x08
	}
	if fl.Break {
		v |= 0x10
	}
	if fl.DirectPage {
		v |= 0x20
	}
	if fl.Overflow {
		v |= 0x40
	}
	if fl.Sign {
		v |= 0x80
	}
	return v
}

// SetValue unpacks a PSW byte into the flags.
func (fl *Flags) SetValue(v uint8) {
	fl.Carry = v&0x01 != 0
	fl.Zero = v&0x02 != 0
	fl.Interrupt = v&0x04 != 0
	fl.HalfCarry = v&0x08 != 0
	fl.Break = v&0x10 != 0
	fl.DirectPage = v&0x20 != 0
	fl.Overflow = v&0x40 != 0
	fl.Sign = v&0x80 != 0
}

func (fl *Flags) setZN(v uint8) {
	fl.Zero = v == 0
	fl.Sign = v&0x80 != 0
}

// CPU is the preferred implementation of the SPC700 core.
type CPU struct {
	bus Bus

	PC  uint16
	A   uint8
	X   uint8
	Y   uint8
	SP  uint8
	PSW Flags

	// SLEEP and STOP park the CPU
	Stopped bool

	cycles int
}

// SerializeSize is the number of bytes Serialize writes.
const SerializeSize = 8

// NewCPU is the preferred method of initialisation for the CPU type.
func NewCPU(bus Bus) *CPU {
	return &CPU{bus: bus}
}

// Reset puts the CPU into its power-on state. The IPL ROM entry point is
// fixed at 0xffc0.
func (mc *CPU) Reset() {
	mc.A = 0
	mc.X = 0
	mc.Y = 0
	mc.SP = 0xff
	mc.PSW.SetValue(0x02)
	mc.PC = 0xffc0
	mc.Stopped = false
}

// Serialize writes CPU state at offset zero of data.
func (mc *CPU) Serialize(data []byte) {
	offset := snapshot.PutUint16(data, 0, mc.PC)
	offset = snapshot.PutUint8(data, offset, mc.A)
	offset = snapshot.PutUint8(data, offset, mc.X)
	offset = snapshot.PutUint8(data, offset, mc.Y)
	offset = snapshot.PutUint8(data, offset, mc.SP)
	offset = snapshot.PutUint8(data, offset, mc.PSW.Value())
	_ = snapshot.PutBool(data, offset, mc.Stopped)
}

// Deserialize restores CPU state from offset zero of data.
func (mc *CPU) Deserialize(data []byte) {
	var offset int
	var v uint8
	mc.PC, offset = snapshot.Uint16(data, 0)
	mc.A, offset = snapshot.Uint8(data, offset)
	mc.X, offset = snapshot.Uint8(data, offset)
	mc.Y, offset = snapshot.Uint8(data, offset)
	mc.SP, offset = snapshot.Uint8(data, offset)
	v, offset = snapshot.Uint8(data, offset)
	mc.PSW.SetValue(v)
	mc.Stopped, _ = snapshot.Bool(data, offset)
}

// per-opcode cycle counts. taken branches add two during execution.
var cycleTable = [256]int{
	2, 8, 4, 5, 3, 4, 3, 6, 2, 6, 5, 4, 5, 4, 6, 8, // 0x
	2, 8, 4, 5, 4, 5, 5, 6, 5, 5, 6, 5, 2, 2, 4, 6, // 1x
	2, 8, 4, 5, 3, 4, 3, 6, 2, 6, 5, 4, 5, 4, 5, 4, // 2x
	2, 8, 4, 5, 4, 5, 5, 6, 5, 5, 6, 5, 2, 2, 3, 8, // 3x
	2, 8, 4, 5, 3, 4, 3, 6, 2, 6, 4, 4, 5, 4, 6, 6, // 4x
	2, 8, 4, 5, 4, 5, 5, 6, 5, 5, 4, 5, 2, 2, 4, 3, // 5x
	2, 8, 4, 5, 3, 4, 3, 6, 2, 6, 4, 4, 5, 4, 5, 5, // 6x
	2, 8, 4, 5, 4, 5, 5, 6, 5, 5, 5, 5, 2, 2, 3, 6, // 7x
	2, 8, 4, 5, 3, 4, 3, 6, 2, 6, 5, 4, 5, 2, 4, 5, // 8x
	2, 8, 4, 5, 4, 5, 5, 6, 5, 5, 5, 5, 2, 2, 12, 5, // 9x
	3, 8, 4, 5, 3, 4, 3, 6, 2, 6, 4, 4, 5, 2, 4, 4, // ax
	2, 8, 4, 5, 4, 5, 5, 6, 5, 5, 5, 5, 2, 2, 3, 4, // bx
	3, 8, 4, 5, 4, 5, 4, 7, 2, 5, 6, 4, 5, 2, 4, 9, // cx
	2, 8, 4, 5, 5, 6, 6, 7, 4, 5, 5, 5, 2, 2, 6, 3, // dx
	2, 8, 4, 5, 3, 4, 3, 6, 2, 4, 5, 3, 4, 3, 4, 3, // ex
	2, 8, 4, 5, 4, 5, 5, 6, 3, 4, 5, 4, 2, 2, 4, 3, // fx
}

func (mc *CPU) fetch() uint8 {
	v := mc.bus.Read(mc.PC)
	mc.PC++
	return v
}

func (mc *CPU) fetch16() uint16 {
	lo := mc.fetch()
	hi := mc.fetch()
	return uint16(hi)<<8 | uint16(lo)
}

// dp returns the absolute address of a direct page offset, honouring the
// P flag.
func (mc *CPU) dp(offset uint8) uint16 {
	if mc.PSW.DirectPage {
		return 0x0100 | uint16(offset)
	}
	return uint16(offset)
}

// read16dp reads a word from the direct page with 8-bit offset wrap.
func (mc *CPU) read16dp(offset uint8) uint16 {
	lo := mc.bus.Read(mc.dp(offset))
	hi := mc.bus.Read(mc.dp(offset + 1))
	return uint16(hi)<<8 | uint16(lo)
}

func (mc *CPU) push(v uint8) {
	mc.bus.Write(0x0100|uint16(mc.SP), v)
	mc.SP--
}

func (mc *CPU) pull() uint8 {
	mc.SP++
	return mc.bus.Read(0x0100 | uint16(mc.SP))
}

func (mc *CPU) push16(v uint16) {
	mc.push(uint8(v >> 8))
	mc.push(uint8(v))
}

func (mc *CPU) pull16() uint16 {
	lo := mc.pull()
	hi := mc.pull()
	return uint16(hi)<<8 | uint16(lo)
}

// Step executes one instruction and returns the cycle count at the
// 1.024MHz core clock.
func (mc *CPU) Step() (int, error) {
	if mc.Stopped {
		return 2, nil
	}

	opcode := mc.fetch()
	mc.cycles = cycleTable[opcode]

	row := opcode >> 4
	col := opcode & 0x0f

	switch col {
	case 0x01: // TCALL n: vector at 0xffde - 2n
		mc.push16(mc.PC)
		mc.PC = mc.readVector(0xffde - 2*uint16(row))
		return mc.cycles, nil

	case 0x02: // SET1/CLR1 dp.bit
		addr := mc.dp(mc.fetch())
		bit := uint8(1) << (row >> 1)
		if row&0x01 == 0 {
			mc.bus.Write(addr, mc.bus.Read(addr)|bit)
		} else {
			mc.bus.Write(addr, mc.bus.Read(addr)&^bit)
		}
		return mc.cycles, nil

	case 0x03: // BBS/BBC dp.bit,rel
		v := mc.bus.Read(mc.dp(mc.fetch()))
		bit := uint8(1) << (row >> 1)
		set := v&bit != 0
		if row&0x01 != 0 {
			set = !set
		}
		mc.branch(set)
		return mc.cycles, nil
	}

	if row < 0x0c && col >= 0x04 && col <= 0x09 {
		mc.aluColumn(row, col)
		return mc.cycles, nil
	}

	mc.executeMisc(opcode)
	return mc.cycles, nil
}

func (mc *CPU) readVector(addr uint16) uint16 {
	lo := mc.bus.Read(addr)
	hi := mc.bus.Read(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func (mc *CPU) branch(taken bool) {
	offset := int8(mc.fetch())
	if !taken {
		return
	}
	mc.cycles += 2
	mc.PC = uint16(int32(mc.PC) + int32(offset))
}

// aluColumn executes the six-operation ALU block that fills columns 4 to 9
// of rows 0x0 to 0xb. The row pair selects the operation, the column and
// row parity select the operand form.
func (mc *CPU) aluColumn(row uint8, col uint8) {
	op := row >> 1 // 0 OR, 1 AND, 2 EOR, 3 CMP, 4 ADC, 5 SBC
	odd := row&0x01 != 0

	apply := func(a uint8, b uint8) uint8 {
		switch op {
		case 0:
			a |= b
			mc.PSW.setZN(a)
		case 1:
			a &= b
			mc.PSW.setZN(a)
		case 2:
			a ^= b
			mc.PSW.setZN(a)
		case 3:
			mc.compare(a, b)
		case 4:
			a = mc.adc(a, b)
		case 5:
			a = mc.sbc(a, b)
		}
		return a
	}

	if !odd {
		switch col {
		case 0x04: // A, dp
			mc.A = apply(mc.A, mc.bus.Read(mc.dp(mc.fetch())))
		case 0x05: // A, !abs
			mc.A = apply(mc.A, mc.bus.Read(mc.fetch16()))
		case 0x06: // A, (X)
			mc.A = apply(mc.A, mc.bus.Read(mc.dp(mc.X)))
		case 0x07: // A, [dp+X]
			mc.A = apply(mc.A, mc.bus.Read(mc.read16dp(mc.fetch()+mc.X)))
		case 0x08: // A, #imm
			mc.A = apply(mc.A, mc.fetch())
		case 0x09: // dp, dp
			src := mc.bus.Read(mc.dp(mc.fetch()))
			addr := mc.dp(mc.fetch())
			v := apply(mc.bus.Read(addr), src)
			if op != 3 {
				mc.bus.Write(addr, v)
			}
		}
		return
	}

	switch col {
	case 0x04: // A, dp+X
		mc.A = apply(mc.A, mc.bus.Read(mc.dp(mc.fetch()+mc.X)))
	case 0x05: // A, !abs+X
		mc.A = apply(mc.A, mc.bus.Read(mc.fetch16()+uint16(mc.X)))
	case 0x06: // A, !abs+Y
		mc.A = apply(mc.A, mc.bus.Read(mc.fetch16()+uint16(mc.Y)))
	case 0x07: // A, [dp]+Y
		mc.A = apply(mc.A, mc.bus.Read(mc.read16dp(mc.fetch())+uint16(mc.Y)))
	case 0x08: // dp, #imm
		imm := mc.fetch()
		addr := mc.dp(mc.fetch())
		v := apply(mc.bus.Read(addr), imm)
		if op != 3 {
			mc.bus.Write(addr, v)
		}
	case 0x09: // (X), (Y)
		src := mc.bus.Read(mc.dp(mc.Y))
		v := apply(mc.bus.Read(mc.dp(mc.X)), src)
		if op != 3 {
			mc.bus.Write(mc.dp(mc.X), v)
		}
	}
}

func (mc *CPU) adc(a uint8, b uint8) uint8 {
	var carry uint16
	if mc.PSW.Carry {
		carry = 1
	}
	sum := uint16(a) + uint16(b) + carry
	result := uint8(sum)
	mc.PSW.Carry = sum > 0xff
	mc.PSW.HalfCarry = uint16(a&0x0f)+uint16(b&0x0f)+carry > 0x0f
	mc.PSW.Overflow = (a^result)&(b^result)&0x80 != 0
	mc.PSW.setZN(result)
	return result
}

func (mc *CPU) sbc(a uint8, b uint8) uint8 {
	var borrow int16
	if !mc.PSW.Carry {
		borrow = 1
	}
	diff := int16(a) - int16(b) - borrow
	result := uint8(diff)
	mc.PSW.Carry = diff >= 0
	mc.PSW.HalfCarry = int16(a&0x0f)-int16(b&0x0f)-borrow >= 0
	mc.PSW.Overflow = (a^b)&(a^result)&0x80 != 0
	mc.PSW.setZN(result)
	return result
}

func (mc *CPU) compare(a uint8, b uint8) {
	mc.PSW.Carry = a >= b
	mc.PSW.setZN(a - b)
}

func (mc *CPU) asl(v uint8) uint8 {
	mc.PSW.Carry = v&0x80 != 0
	v <<= 1
	mc.PSW.setZN(v)
	return v
}

func (mc *CPU) lsr(v uint8) uint8 {
	mc.PSW.Carry = v&0x01 != 0
	v >>= 1
	mc.PSW.setZN(v)
	return v
}

func (mc *CPU) rol(v uint8) uint8 {
	carry := mc.PSW.Carry
	mc.PSW.Carry = v&0x80 != 0
	v <<= 1
	if carry {
		v |= 0x01
	}
	mc.PSW.setZN(v)
	return v
}

func (mc *CPU) ror(v uint8) uint8 {
	carry := mc.PSW.Carry
	mc.PSW.Carry = v&0x01 != 0
	v >>= 1
	if carry {
		v |= 0x80
	}
	mc.PSW.setZN(v)
	return v
}

func (mc *CPU) inc(v uint8) uint8 {
	v++
	mc.PSW.setZN(v)
	return v
}

func (mc *CPU) dec(v uint8) uint8 {
	v--
	mc.PSW.setZN(v)
	return v
}

// rmwDP applies fn to a direct page cell.
func (mc *CPU) rmwDP(fn func(uint8) uint8) {
	addr := mc.dp(mc.fetch())
	mc.bus.Write(addr, fn(mc.bus.Read(addr)))
}

// rmwDPX applies fn to a dp+X cell.
func (mc *CPU) rmwDPX(fn func(uint8) uint8) {
	addr := mc.dp(mc.fetch() + mc.X)
	mc.bus.Write(addr, fn(mc.bus.Read(addr)))
}

// rmwAbs applies fn to an absolute cell.
func (mc *CPU) rmwAbs(fn func(uint8) uint8) {
	addr := mc.fetch16()
	mc.bus.Write(addr, fn(mc.bus.Read(addr)))
}

func (mc *CPU) ya() uint16 {
	return uint16(mc.Y)<<8 | uint16(mc.A)
}

func (mc *CPU) setYA(v uint16) {
	mc.Y = uint8(v >> 8)
	mc.A = uint8(v)
}

func (mc *CPU) setZN16(v uint16) {
	mc.PSW.Zero = v == 0
	mc.PSW.Sign = v&0x8000 != 0
}

// absBit decodes the 13-bit address and 3-bit index operand of the
// absolute bit instructions.
func (mc *CPU) absBit() (uint16, uint8) {
	v := mc.fetch16()
	return v & 0x1fff, uint8(v >> 13)
}

func (mc *CPU) executeMisc(opcode uint8) {
	switch opcode {
	case 0x00: // NOP

	// flag operations
	case 0x20:
		mc.PSW.DirectPage = false
	case 0x40:
		mc.PSW.DirectPage = true
	case 0x60:
		mc.PSW.Carry = false
	case 0x80:
		mc.PSW.Carry = true
	case 0xed:
		mc.PSW.Carry = !mc.PSW.Carry
	case 0xe0:
		mc.PSW.Overflow = false
		mc.PSW.HalfCarry = false
	case 0xa0:
		mc.PSW.Interrupt = true
	case 0xc0:
		mc.PSW.Interrupt = false

	// branches
	case 0x2f:
		mc.branch(true)
	case 0x10:
		mc.branch(!mc.PSW.Sign)
	case 0x30:
		mc.branch(mc.PSW.Sign)
	case 0x50:
		mc.branch(!mc.PSW.Overflow)
	case 0x70:
		mc.branch(mc.PSW.Overflow)
	case 0x90:
		mc.branch(!mc.PSW.Carry)
	case 0xb0:
		mc.branch(mc.PSW.Carry)
	case 0xd0:
		mc.branch(!mc.PSW.Zero)
	case 0xf0:
		mc.branch(mc.PSW.Zero)
	case 0x2e: // CBNE dp
		v := mc.bus.Read(mc.dp(mc.fetch()))
		mc.branch(mc.A != v)
	case 0xde: // CBNE dp+X
		v := mc.bus.Read(mc.dp(mc.fetch() + mc.X))
		mc.branch(mc.A != v)
	case 0x6e: // DBNZ dp
		addr := mc.dp(mc.fetch())
		v := mc.bus.Read(addr) - 1
		mc.bus.Write(addr, v)
		mc.branch(v != 0)
	case 0xfe: // DBNZ Y
		mc.Y--
		mc.branch(mc.Y != 0)

	// MOV loads
	case 0xe8:
		mc.A = mc.fetch()
		mc.PSW.setZN(mc.A)
	case 0xe4:
		mc.A = mc.bus.Read(mc.dp(mc.fetch()))
		mc.PSW.setZN(mc.A)
	case 0xf4:
		mc.A = mc.bus.Read(mc.dp(mc.fetch() + mc.X))
		mc.PSW.setZN(mc.A)
	case 0xe5:
		mc.A = mc.bus.Read(mc.fetch16())
		mc.PSW.setZN(mc.A)
	case 0xf5:
		mc.A = mc.bus.Read(mc.fetch16() + uint16(mc.X))
		mc.PSW.setZN(mc.A)
	case 0xf6:
		mc.A = mc.bus.Read(mc.fetch16() + uint16(mc.Y))
		mc.PSW.setZN(mc.A)
	case 0xe6:
		mc.A = mc.bus.Read(mc.dp(mc.X))
		mc.PSW.setZN(mc.A)
	case 0xbf: // MOV A,(X)+
		mc.A = mc.bus.Read(mc.dp(mc.X))
		mc.X++
		mc.PSW.setZN(mc.A)
	case 0xe7:
		mc.A = mc.bus.Read(mc.read16dp(mc.fetch() + mc.X))
		mc.PSW.setZN(mc.A)
	case 0xf7:
		mc.A = mc.bus.Read(mc.read16dp(mc.fetch()) + uint16(mc.Y))
		mc.PSW.setZN(mc.A)
	case 0xcd:
		mc.X = mc.fetch()
		mc.PSW.setZN(mc.X)
	case 0xf8:
		mc.X = mc.bus.Read(mc.dp(mc.fetch()))
		mc.PSW.setZN(mc.X)
	case 0xf9:
		mc.X = mc.bus.Read(mc.dp(mc.fetch() + mc.Y))
		mc.PSW.setZN(mc.X)
	case 0xe9:
		mc.X = mc.bus.Read(mc.fetch16())
		mc.PSW.setZN(mc.X)
	case 0x8d:
		mc.Y = mc.fetch()
		mc.PSW.setZN(mc.Y)
	case 0xeb:
		mc.Y = mc.bus.Read(mc.dp(mc.fetch()))
		mc.PSW.setZN(mc.Y)
	case 0xfb:
		mc.Y = mc.bus.Read(mc.dp(mc.fetch() + mc.X))
		mc.PSW.setZN(mc.Y)
	case 0xec:
		mc.Y = mc.bus.Read(mc.fetch16())
		mc.PSW.setZN(mc.Y)

	// MOV stores (flags unaffected)
	case 0xc4:
		mc.bus.Write(mc.dp(mc.fetch()), mc.A)
	case 0xd4:
		mc.bus.Write(mc.dp(mc.fetch()+mc.X), mc.A)
	case 0xc5:
		mc.bus.Write(mc.fetch16(), mc.A)
	case 0xd5:
		mc.bus.Write(mc.fetch16()+uint16(mc.X), mc.A)
	case 0xd6:
		mc.bus.Write(mc.fetch16()+uint16(mc.Y), mc.A)
	case 0xc6:
		mc.bus.Write(mc.dp(mc.X), mc.A)
	case 0xaf: // MOV (X)+,A
		mc.bus.Write(mc.dp(mc.X), mc.A)
		mc.X++
	case 0xc7:
		mc.bus.Write(mc.read16dp(mc.fetch()+mc.X), mc.A)
	case 0xd7:
		mc.bus.Write(mc.read16dp(mc.fetch())+uint16(mc.Y), mc.A)
	case 0xd8:
		mc.bus.Write(mc.dp(mc.fetch()), mc.X)
	case 0xd9:
		mc.bus.Write(mc.dp(mc.fetch()+mc.Y), mc.X)
	case 0xc9:
		mc.bus.Write(mc.fetch16(), mc.X)
	case 0xcb:
		mc.bus.Write(mc.dp(mc.fetch()), mc.Y)
	case 0xdb:
		mc.bus.Write(mc.dp(mc.fetch()+mc.X), mc.Y)
	case 0xcc:
		mc.bus.Write(mc.fetch16(), mc.Y)
	case 0xfa: // MOV dp,dp
		src := mc.bus.Read(mc.dp(mc.fetch()))
		mc.bus.Write(mc.dp(mc.fetch()), src)
	case 0x8f: // MOV dp,#imm
		imm := mc.fetch()
		mc.bus.Write(mc.dp(mc.fetch()), imm)

	// register transfers
	case 0x7d:
		mc.A = mc.X
		mc.PSW.setZN(mc.A)
	case 0xdd:
		mc.A = mc.Y
		mc.PSW.setZN(mc.A)
	case 0x5d:
		mc.X = mc.A
		mc.PSW.setZN(mc.X)
	case 0xfd:
		mc.Y = mc.A
		mc.PSW.setZN(mc.Y)
	case 0x9d:
		mc.X = mc.SP
		mc.PSW.setZN(mc.X)
	case 0xbd:
		mc.SP = mc.X

	// shifts, increments and decrements
	case 0x0b:
		mc.rmwDP(mc.asl)
	case 0x1b:
		mc.rmwDPX(mc.asl)
	case 0x0c:
		mc.rmwAbs(mc.asl)
	case 0x1c:
		mc.A = mc.asl(mc.A)
	case 0x2b:
		mc.rmwDP(mc.rol)
	case 0x3b:
		mc.rmwDPX(mc.rol)
	case 0x2c:
		mc.rmwAbs(mc.rol)
	case 0x3c:
		mc.A = mc.rol(mc.A)
	case 0x4b:
		mc.rmwDP(mc.lsr)
	case 0x5b:
		mc.rmwDPX(mc.lsr)
	case 0x4c:
		mc.rmwAbs(mc.lsr)
	case 0x5c:
		mc.A = mc.lsr(mc.A)
	case 0x6b:
		mc.rmwDP(mc.ror)
	case 0x7b:
		mc.rmwDPX(mc.ror)
	case 0x6c:
		mc.rmwAbs(mc.ror)
	case 0x7c:
		mc.A = mc.ror(mc.A)
	case 0x8b:
		mc.rmwDP(mc.dec)
	case 0x9b:
		mc.rmwDPX(mc.dec)
	case 0x8c:
		mc.rmwAbs(mc.dec)
	case 0x9c:
		mc.A = mc.dec(mc.A)
	case 0xab:
		mc.rmwDP(mc.inc)
	case 0xbb:
		mc.rmwDPX(mc.inc)
	case 0xac:
		mc.rmwAbs(mc.inc)
	case 0xbc:
		mc.A = mc.inc(mc.A)
	case 0x1d:
		mc.X = mc.dec(mc.X)
	case 0x3d:
		mc.X = mc.inc(mc.X)
	case 0xdc:
		mc.Y = mc.dec(mc.Y)
	case 0xfc:
		mc.Y = mc.inc(mc.Y)

	// 16-bit operations on YA
	case 0xba: // MOVW YA,dp
		mc.setYA(mc.read16dp(mc.fetch()))
		mc.setZN16(mc.ya())
	case 0xda: // MOVW dp,YA
		offset := mc.fetch()
		mc.bus.Write(mc.dp(offset), mc.A)
		mc.bus.Write(mc.dp(offset+1), mc.Y)
	case 0x3a: // INCW dp
		offset := mc.fetch()
		v := mc.read16dp(offset) + 1
		mc.bus.Write(mc.dp(offset), uint8(v))
		mc.bus.Write(mc.dp(offset+1), uint8(v>>8))
		mc.setZN16(v)
	case 0x1a: // DECW dp
		offset := mc.fetch()
		v := mc.read16dp(offset) - 1
		mc.bus.Write(mc.dp(offset), uint8(v))
		mc.bus.Write(mc.dp(offset+1), uint8(v>>8))
		mc.setZN16(v)
	case 0x7a: // ADDW YA,dp
		v := mc.read16dp(mc.fetch())
		ya := mc.ya()
		sum := uint32(ya) + uint32(v)
		result := uint16(sum)
		mc.PSW.Carry = sum > 0xffff
		mc.PSW.HalfCarry = (ya&0x0fff)+(v&0x0fff) > 0x0fff
		mc.PSW.Overflow = (ya^result)&(v^result)&0x8000 != 0
		mc.setYA(result)
		mc.setZN16(result)
	case 0x9a: // SUBW YA,dp
		v := mc.read16dp(mc.fetch())
		ya := mc.ya()
		diff := int32(ya) - int32(v)
		result := uint16(diff)
		mc.PSW.Carry = diff >= 0
		mc.PSW.HalfCarry = int32(ya&0x0fff)-int32(v&0x0fff) >= 0
		mc.PSW.Overflow = (ya^v)&(ya^result)&0x8000 != 0
		mc.setYA(result)
		mc.setZN16(result)
	case 0x5a: // CMPW YA,dp
		v := mc.read16dp(mc.fetch())
		ya := mc.ya()
		mc.PSW.Carry = ya >= v
		mc.setZN16(ya - v)

	case 0xcf: // MUL YA
		mc.setYA(uint16(mc.Y) * uint16(mc.A))
		mc.PSW.setZN(mc.Y)
	case 0x9e: // DIV YA,X
		ya := mc.ya()
		if mc.X == 0 {
			mc.A = 0xff
			mc.Y = uint8(ya >> 8)
			mc.PSW.Overflow = true
		} else {
			q := ya / uint16(mc.X)
			r := ya % uint16(mc.X)
			mc.PSW.Overflow = q > 0xff
			mc.A = uint8(q)
			mc.Y = uint8(r)
		}
		mc.PSW.HalfCarry = mc.Y&0x0f >= mc.X&0x0f
		mc.PSW.setZN(mc.A)

	case 0x9f: // XCN A
		mc.A = mc.A<<4 | mc.A>>4
		mc.PSW.setZN(mc.A)
	case 0xdf: // DAA
		if mc.PSW.Carry || mc.A > 0x99 {
			mc.A += 0x60
			mc.PSW.Carry = true
		}
		if mc.PSW.HalfCarry || mc.A&0x0f > 0x09 {
			mc.A += 0x06
		}
		mc.PSW.setZN(mc.A)
	case 0xbe: // DAS
		if !mc.PSW.Carry || mc.A > 0x99 {
			mc.A -= 0x60
			mc.PSW.Carry = false
		}
		if !mc.PSW.HalfCarry || mc.A&0x0f > 0x09 {
			mc.A -= 0x06
		}
		mc.PSW.setZN(mc.A)

	// single bit operations on the carry flag
	case 0x0a: // OR1 C,m.b
		addr, bit := mc.absBit()
		mc.PSW.Carry = mc.PSW.Carry || mc.bus.Read(addr)&(1<<bit) != 0
	case 0x2a: // OR1 C,/m.b
		addr, bit := mc.absBit()
		mc.PSW.Carry = mc.PSW.Carry || mc.bus.Read(addr)&(1<<bit) == 0
	case 0x4a: // AND1 C,m.b
		addr, bit := mc.absBit()
		mc.PSW.Carry = mc.PSW.Carry && mc.bus.Read(addr)&(1<<bit) != 0
	case 0x6a: // AND1 C,/m.b
		addr, bit := mc.absBit()
		mc.PSW.Carry = mc.PSW.Carry && mc.bus.Read(addr)&(1<<bit) == 0
	case 0x8a: // EOR1 C,m.b
		addr, bit := mc.absBit()
		mc.PSW.Carry = mc.PSW.Carry != (mc.bus.Read(addr)&(1<<bit) != 0)
	case 0xaa: // MOV1 C,m.b
		addr, bit := mc.absBit()
		mc.PSW.Carry = mc.bus.Read(addr)&(1<<bit) != 0
	case 0xca: // MOV1 m.b,C
		addr, bit := mc.absBit()
		v := mc.bus.Read(addr)
		if mc.PSW.Carry {
			v |= 1 << bit
		} else {
			v &^= 1 << bit
		}
		mc.bus.Write(addr, v)
	case 0xea: // NOT1 m.b
		addr, bit := mc.absBit()
		mc.bus.Write(addr, mc.bus.Read(addr)^(1<<bit))

	case 0x0e: // TSET1 !abs
		addr := mc.fetch16()
		v := mc.bus.Read(addr)
		mc.PSW.setZN(mc.A - v)
		mc.bus.Write(addr, v|mc.A)
	case 0x4e: // TCLR1 !abs
		addr := mc.fetch16()
		v := mc.bus.Read(addr)
		mc.PSW.setZN(mc.A - v)
		mc.bus.Write(addr, v&^mc.A)

	// calls and returns
	case 0x3f: // CALL !abs
		target := mc.fetch16()
		mc.push16(mc.PC)
		mc.PC = target
	case 0x4f: // PCALL up
		target := 0xff00 | uint16(mc.fetch())
		mc.push16(mc.PC)
		mc.PC = target
	case 0x6f: // RET
		mc.PC = mc.pull16()
	case 0x7f: // RET1
		mc.PSW.SetValue(mc.pull())
		mc.PC = mc.pull16()
	case 0x0f: // BRK
		mc.push16(mc.PC)
		mc.push(mc.PSW.Value())
		mc.PSW.Break = true
		mc.PSW.Interrupt = false
		mc.PC = mc.readVector(0xffde)

	// stack
	case 0x2d:
		mc.push(mc.A)
	case 0x4d:
		mc.push(mc.X)
	case 0x6d:
		mc.push(mc.Y)
	case 0x0d:
		mc.push(mc.PSW.Value())
	case 0xae:
		mc.A = mc.pull()
	case 0xce:
		mc.X = mc.pull()
	case 0xee:
		mc.Y = mc.pull()
	case 0x8e:
		mc.PSW.SetValue(mc.pull())

	case 0xef, 0xff: // SLEEP, STOP
		mc.Stopped = true
	}
}
