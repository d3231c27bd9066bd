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

// Package sm83 implements the Sharp SM83 core found in the Game Boy.
//
// The SM83 is close to the Z80 in spirit but has its own flag behaviour,
// its own interrupt model (the IE and IF registers live in the memory map)
// and a handful of Game Boy specific instructions. Cycle counts returned by
// Step are T-cycles at the 4.19MHz machine clock.
//
// Most of the opcode space decodes algebraically: the LD r,r' quarter, the
// ALU quarter and the whole CB-prefixed page are handled by register index
// rather than per-opcode cases.
package sm83

import (
	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/logger"
)

// UnimplementedOpcode is returned by Step for one of the eleven opcodes the
// SM83 leaves undefined, when the CPU is in strict mode.
const UnimplementedOpcode = "sm83: unimplemented opcode: %#02x at %#04x"

// memory mapped interrupt registers
const (
	addrIF = 0xff0f
	addrIE = 0xffff
)

// interrupt dispatch targets, in priority order: vblank, stat, timer,
// serial, joypad
var interruptVectors = [5]uint16{0x40, 0x48, 0x50, 0x58, 0x60}

// Bus is the memory access surface the CPU requires. The IE and IF
// registers are reached through the bus like any other address.
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, data uint8)
}

// Flags is the F register as individual flags. Only the high nibble of F
// exists on the SM83.
type Flags struct {
	Zero      bool
	Subtract  bool
	HalfCarry bool
	Carry     bool
}

// Value assembles the flags into the F register byte.
func (fl *Flags) Value() uint8 {
	var v uint8
	if fl.Zero {
		v |= 0x80
	}
	if fl.Subtract {
		v |= 0x40
	}
	if fl.HalfCarry {
		v |= 0x20
	}
	if fl.Carry {
		v |= 0x10
	}
	return v
}

// SetValue unpacks an F register byte. The low nibble is discarded.
func (fl *Flags) SetValue(v uint8) {
	fl.Zero = v&0x80 != 0
	fl.Subtract = v&0x40 != 0
	fl.HalfCarry = v&0x20 != 0
	fl.Carry = v&0x10 != 0
}

// CPU is the preferred implementation of the SM83 core.
type CPU struct {
	bus Bus

	PC uint16
	SP uint16
	A  uint8
	B  uint8
	C  uint8
	D  uint8
	E  uint8
	H  uint8
	L  uint8
	F  Flags

	// interrupt master enable. EI takes effect after the following
	// instruction, tracked by eiPending
	IME       bool
	eiPending bool

	Halted bool

	tolerant bool
}

// SerializeSize is the number of bytes Serialize writes.
const SerializeSize = 15

// NewCPU is the preferred method of initialisation for the CPU type.
func NewCPU(bus Bus, tolerant bool) *CPU {
	return &CPU{bus: bus, tolerant: tolerant}
}

// Reset puts the CPU into the state the boot ROM leaves it in on a DMG.
func (mc *CPU) Reset() {
	mc.A = 0x01
	mc.F.SetValue(0xb0)
	mc.B = 0x00
	mc.C = 0x13
	mc.D = 0x00
	mc.E = 0xd8
	mc.H = 0x01
	mc.L = 0x4d
	mc.SP = 0xfffe
	mc.PC = 0x0100
	mc.IME = false
	mc.eiPending = false
	mc.Halted = false
}

// Serialize writes CPU state at offset zero of data.
func (mc *CPU) Serialize(data []byte) {
	offset := snapshot.PutUint16(data, 0, mc.PC)
	offset = snapshot.PutUint16(data, offset, mc.SP)
	offset = snapshot.PutUint8(data, offset, mc.A)
	offset = snapshot.PutUint8(data, offset, mc.F.Value())
	offset = snapshot.PutUint8(data, offset, mc.B)
	offset = snapshot.PutUint8(data, offset, mc.C)
	offset = snapshot.PutUint8(data, offset, mc.D)
	offset = snapshot.PutUint8(data, offset, mc.E)
	offset = snapshot.PutUint8(data, offset, mc.H)
	offset = snapshot.PutUint8(data, offset, mc.L)
	offset = snapshot.PutBool(data, offset, mc.IME)
	offset = snapshot.PutBool(data, offset, mc.eiPending)
	_ = snapshot.PutBool(data, offset, mc.Halted)
}

// Deserialize restores CPU state from offset zero of data.
func (mc *CPU) Deserialize(data []byte) {
	var offset int
	var v uint8
	mc.PC, offset = snapshot.Uint16(data, 0)
	mc.SP, offset = snapshot.Uint16(data, offset)
	mc.A, offset = snapshot.Uint8(data, offset)
	v, offset = snapshot.Uint8(data, offset)
	mc.F.SetValue(v)
	mc.B, offset = snapshot.Uint8(data, offset)
	mc.C, offset = snapshot.Uint8(data, offset)
	mc.D, offset = snapshot.Uint8(data, offset)
	mc.E, offset = snapshot.Uint8(data, offset)
	mc.H, offset = snapshot.Uint8(data, offset)
	mc.L, offset = snapshot.Uint8(data, offset)
	mc.IME, offset = snapshot.Bool(data, offset)
	mc.eiPending, offset = snapshot.Bool(data, offset)
	mc.Halted, _ = snapshot.Bool(data, offset)
}

// register pair accessors

func (mc *CPU) bc() uint16     { return uint16(mc.B)<<8 | uint16(mc.C) }
func (mc *CPU) de() uint16     { return uint16(mc.D)<<8 | uint16(mc.E) }
func (mc *CPU) hl() uint16     { return uint16(mc.H)<<8 | uint16(mc.L) }
func (mc *CPU) setBC(v uint16) { mc.B = uint8(v >> 8); mc.C = uint8(v) }
func (mc *CPU) setDE(v uint16) { mc.D = uint8(v >> 8); mc.E = uint8(v) }
func (mc *CPU) setHL(v uint16) { mc.H = uint8(v >> 8); mc.L = uint8(v) }

// reg8 reads the 8-bit register with the given encoding index. Index 6 is
// the memory cell at HL.
func (mc *CPU) reg8(idx uint8) uint8 {
	switch idx {
	case 0:
		return mc.B
	case 1:
		return mc.C
	case 2:
		return mc.D
	case 3:
		return mc.E
	case 4:
		return mc.H
	case 5:
		return mc.L
	case 6:
		return mc.bus.Read(mc.hl())
	}
	return mc.A
}

func (mc *CPU) setReg8(idx uint8, v uint8) {
	switch idx {
	case 0:
		mc.B = v
	case 1:
		mc.C = v
	case 2:
		mc.D = v
	case 3:
		mc.E = v
	case 4:
		mc.H = v
	case 5:
		mc.L = v
	case 6:
		mc.bus.Write(mc.hl(), v)
	case 7:
		mc.A = v
	}
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

func (mc *CPU) push16(v uint16) {
	mc.SP--
	mc.bus.Write(mc.SP, uint8(v>>8))
	mc.SP--
	mc.bus.Write(mc.SP, uint8(v))
}

func (mc *CPU) pull16() uint16 {
	lo := mc.bus.Read(mc.SP)
	mc.SP++
	hi := mc.bus.Read(mc.SP)
	mc.SP++
	return uint16(hi)<<8 | uint16(lo)
}

// Step executes one instruction and returns the T-cycle count. A pending
// enabled interrupt wakes a halted CPU; with IME set it is also dispatched,
// costing 20 cycles.
func (mc *CPU) Step() (int, error) {
	if mc.eiPending {
		mc.eiPending = false
		mc.IME = true
	}

	pending := mc.bus.Read(addrIE) & mc.bus.Read(addrIF) & 0x1f
	if pending != 0 {
		mc.Halted = false
		if mc.IME {
			for i := 0; i < 5; i++ {
				bit := uint8(1) << i
				if pending&bit != 0 {
					mc.IME = false
					mc.bus.Write(addrIF, mc.bus.Read(addrIF)&^bit)
					mc.push16(mc.PC)
					mc.PC = interruptVectors[i]
					return 20, nil
				}
			}
		}
	}

	if mc.Halted {
		return 4, nil
	}

	opcodeAddr := mc.PC
	opcode := mc.fetch()

	switch {
	case opcode == 0x76:
		mc.Halted = true
		return 4, nil

	case opcode >= 0x40 && opcode <= 0x7f:
		// LD r,r'
		dst := (opcode >> 3) & 0x07
		src := opcode & 0x07
		mc.setReg8(dst, mc.reg8(src))
		if dst == 6 || src == 6 {
			return 8, nil
		}
		return 4, nil

	case opcode >= 0x80 && opcode <= 0xbf:
		// ALU A,r
		mc.alu((opcode>>3)&0x07, mc.reg8(opcode&0x07))
		if opcode&0x07 == 6 {
			return 8, nil
		}
		return 4, nil

	case opcode == 0xcb:
		return mc.stepCB(), nil
	}

	cycles, ok := mc.stepMisc(opcode)
	if !ok {
		if !mc.tolerant {
			return 0, curated.Errorf(UnimplementedOpcode, opcode, opcodeAddr)
		}
		logger.Logf("sm83", "skipping unimplemented opcode %#02x at %#04x", opcode, opcodeAddr)
		return 4, nil
	}
	return cycles, nil
}

// alu performs the operation with the given encoding index on A.
func (mc *CPU) alu(op uint8, v uint8) {
	switch op {
	case 0: // ADD
		mc.add(v, false)
	case 1: // ADC
		mc.add(v, mc.F.Carry)
	case 2: // SUB
		mc.A = mc.sub(v, false)
	case 3: // SBC
		mc.A = mc.sub(v, mc.F.Carry)
	case 4: // AND
		mc.A &= v
		mc.F.Zero = mc.A == 0
		mc.F.Subtract = false
		mc.F.HalfCarry = true
		mc.F.Carry = false
	case 5: // XOR
		mc.A ^= v
		mc.F.Zero = mc.A == 0
		mc.F.Subtract = false
		mc.F.HalfCarry = false
		mc.F.Carry = false
	case 6: // OR
		mc.A |= v
		mc.F.Zero = mc.A == 0
		mc.F.Subtract = false
		mc.F.HalfCarry = false
		mc.F.Carry = false
	case 7: // CP
		_ = mc.sub(v, false)
	}
}

func (mc *CPU) add(v uint8, carry bool) {
	var c uint16
	if carry {
		c = 1
	}
	sum := uint16(mc.A) + uint16(v) + c
	mc.F.HalfCarry = uint16(mc.A&0x0f)+uint16(v&0x0f)+c > 0x0f
	mc.F.Carry = sum > 0xff
	mc.A = uint8(sum)
	mc.F.Zero = mc.A == 0
	mc.F.Subtract = false
}

// sub returns A-v-carry and sets flags. CP uses the result for flags only.
func (mc *CPU) sub(v uint8, carry bool) uint8 {
	var c int16
	if carry {
		c = 1
	}
	diff := int16(mc.A) - int16(v) - c
	mc.F.HalfCarry = int16(mc.A&0x0f)-int16(v&0x0f)-c < 0
	mc.F.Carry = diff < 0
	result := uint8(diff)
	mc.F.Zero = result == 0
	mc.F.Subtract = true
	return result
}

func (mc *CPU) addHL(v uint16) {
	hl := mc.hl()
	sum := uint32(hl) + uint32(v)
	mc.F.Subtract = false
	mc.F.HalfCarry = (hl&0x0fff)+(v&0x0fff) > 0x0fff
	mc.F.Carry = sum > 0xffff
	mc.setHL(uint16(sum))
}

// addSP implements the shared flag behaviour of ADD SP,e8 and LD HL,SP+e8:
// H and C come from the unsigned low byte addition.
func (mc *CPU) addSP(offset int8) uint16 {
	v := uint16(int32(mc.SP) + int32(offset))
	mc.F.Zero = false
	mc.F.Subtract = false
	mc.F.HalfCarry = (mc.SP&0x0f)+(uint16(uint8(offset))&0x0f) > 0x0f
	mc.F.Carry = (mc.SP&0xff)+uint16(uint8(offset)) > 0xff
	return v
}

func (mc *CPU) inc8(v uint8) uint8 {
	v++
	mc.F.Zero = v == 0
	mc.F.Subtract = false
	mc.F.HalfCarry = v&0x0f == 0
	return v
}

func (mc *CPU) dec8(v uint8) uint8 {
	v--
	mc.F.Zero = v == 0
	mc.F.Subtract = true
	mc.F.HalfCarry = v&0x0f == 0x0f
	return v
}

func (mc *CPU) daa() {
	var adjust uint8
	carry := mc.F.Carry
	if mc.F.HalfCarry || (!mc.F.Subtract && mc.A&0x0f > 0x09) {
		adjust = 0x06
	}
	if carry || (!mc.F.Subtract && mc.A > 0x99) {
		adjust |= 0x60
		carry = true
	}
	if mc.F.Subtract {
		mc.A -= adjust
	} else {
		mc.A += adjust
	}
	mc.F.Zero = mc.A == 0
	mc.F.HalfCarry = false
	mc.F.Carry = carry
}

func (mc *CPU) jr(taken bool) int {
	offset := int8(mc.fetch())
	if !taken {
		return 8
	}
	mc.PC = uint16(int32(mc.PC) + int32(offset))
	return 12
}

func (mc *CPU) jp(taken bool) int {
	target := mc.fetch16()
	if !taken {
		return 12
	}
	mc.PC = target
	return 16
}

func (mc *CPU) call(taken bool) int {
	target := mc.fetch16()
	if !taken {
		return 12
	}
	mc.push16(mc.PC)
	mc.PC = target
	return 24
}

func (mc *CPU) ret(taken bool) int {
	if !taken {
		return 8
	}
	mc.PC = mc.pull16()
	return 20
}

// stepMisc handles the opcodes outside the algebraic quarters. The second
// return value is false for the eleven undefined opcodes.
func (mc *CPU) stepMisc(opcode uint8) (int, bool) {
	switch opcode {
	case 0x00: // NOP
		return 4, true
	case 0x10: // STOP consumes a pad byte
		mc.fetch()
		return 4, true

	case 0x01:
		mc.setBC(mc.fetch16())
		return 12, true
	case 0x11:
		mc.setDE(mc.fetch16())
		return 12, true
	case 0x21:
		mc.setHL(mc.fetch16())
		return 12, true
	case 0x31:
		mc.SP = mc.fetch16()
		return 12, true

	case 0x02:
		mc.bus.Write(mc.bc(), mc.A)
		return 8, true
	case 0x12:
		mc.bus.Write(mc.de(), mc.A)
		return 8, true
	case 0x22:
		mc.bus.Write(mc.hl(), mc.A)
		mc.setHL(mc.hl() + 1)
		return 8, true
	case 0x32:
		mc.bus.Write(mc.hl(), mc.A)
		mc.setHL(mc.hl() - 1)
		return 8, true
	case 0x0a:
		mc.A = mc.bus.Read(mc.bc())
		return 8, true
	case 0x1a:
		mc.A = mc.bus.Read(mc.de())
		return 8, true
	case 0x2a:
		mc.A = mc.bus.Read(mc.hl())
		mc.setHL(mc.hl() + 1)
		return 8, true
	case 0x3a:
		mc.A = mc.bus.Read(mc.hl())
		mc.setHL(mc.hl() - 1)
		return 8, true

	case 0x03:
		mc.setBC(mc.bc() + 1)
		return 8, true
	case 0x13:
		mc.setDE(mc.de() + 1)
		return 8, true
	case 0x23:
		mc.setHL(mc.hl() + 1)
		return 8, true
	case 0x33:
		mc.SP++
		return 8, true
	case 0x0b:
		mc.setBC(mc.bc() - 1)
		return 8, true
	case 0x1b:
		mc.setDE(mc.de() - 1)
		return 8, true
	case 0x2b:
		mc.setHL(mc.hl() - 1)
		return 8, true
	case 0x3b:
		mc.SP--
		return 8, true

	case 0x04, 0x0c, 0x14, 0x1c, 0x24, 0x2c, 0x3c:
		idx := (opcode >> 3) & 0x07
		mc.setReg8(idx, mc.inc8(mc.reg8(idx)))
		return 4, true
	case 0x34:
		mc.setReg8(6, mc.inc8(mc.reg8(6)))
		return 12, true
	case 0x05, 0x0d, 0x15, 0x1d, 0x25, 0x2d, 0x3d:
		idx := (opcode >> 3) & 0x07
		mc.setReg8(idx, mc.dec8(mc.reg8(idx)))
		return 4, true
	case 0x35:
		mc.setReg8(6, mc.dec8(mc.reg8(6)))
		return 12, true

	case 0x06, 0x0e, 0x16, 0x1e, 0x26, 0x2e, 0x3e:
		mc.setReg8((opcode>>3)&0x07, mc.fetch())
		return 8, true
	case 0x36:
		mc.bus.Write(mc.hl(), mc.fetch())
		return 12, true

	case 0x07: // RLCA
		mc.F.Carry = mc.A&0x80 != 0
		mc.A = mc.A<<1 | mc.A>>7
		mc.F.Zero = false
		mc.F.Subtract = false
		mc.F.HalfCarry = false
		return 4, true
	case 0x0f: // RRCA
		mc.F.Carry = mc.A&0x01 != 0
		mc.A = mc.A>>1 | mc.A<<7
		mc.F.Zero = false
		mc.F.Subtract = false
		mc.F.HalfCarry = false
		return 4, true
	case 0x17: // RLA
		carry := mc.F.Carry
		mc.F.Carry = mc.A&0x80 != 0
		mc.A <<= 1
		if carry {
			mc.A |= 0x01
		}
		mc.F.Zero = false
		mc.F.Subtract = false
		mc.F.HalfCarry = false
		return 4, true
	case 0x1f: // RRA
		carry := mc.F.Carry
		mc.F.Carry = mc.A&0x01 != 0
		mc.A >>= 1
		if carry {
			mc.A |= 0x80
		}
		mc.F.Zero = false
		mc.F.Subtract = false
		mc.F.HalfCarry = false
		return 4, true

	case 0x08: // LD (a16),SP
		addr := mc.fetch16()
		mc.bus.Write(addr, uint8(mc.SP))
		mc.bus.Write(addr+1, uint8(mc.SP>>8))
		return 20, true

	case 0x09:
		mc.addHL(mc.bc())
		return 8, true
	case 0x19:
		mc.addHL(mc.de())
		return 8, true
	case 0x29:
		mc.addHL(mc.hl())
		return 8, true
	case 0x39:
		mc.addHL(mc.SP)
		return 8, true

	case 0x18:
		return mc.jr(true), true
	case 0x20:
		return mc.jr(!mc.F.Zero), true
	case 0x28:
		return mc.jr(mc.F.Zero), true
	case 0x30:
		return mc.jr(!mc.F.Carry), true
	case 0x38:
		return mc.jr(mc.F.Carry), true

	case 0x27:
		mc.daa()
		return 4, true
	case 0x2f: // CPL
		mc.A = ^mc.A
		mc.F.Subtract = true
		mc.F.HalfCarry = true
		return 4, true
	case 0x37: // SCF
		mc.F.Carry = true
		mc.F.Subtract = false
		mc.F.HalfCarry = false
		return 4, true
	case 0x3f: // CCF
		mc.F.Carry = !mc.F.Carry
		mc.F.Subtract = false
		mc.F.HalfCarry = false
		return 4, true

	case 0xc0:
		return mc.ret(!mc.F.Zero), true
	case 0xc8:
		return mc.ret(mc.F.Zero), true
	case 0xd0:
		return mc.ret(!mc.F.Carry), true
	case 0xd8:
		return mc.ret(mc.F.Carry), true
	case 0xc9:
		mc.PC = mc.pull16()
		return 16, true
	case 0xd9: // RETI
		mc.PC = mc.pull16()
		mc.IME = true
		return 16, true

	case 0xc1:
		mc.setBC(mc.pull16())
		return 12, true
	case 0xd1:
		mc.setDE(mc.pull16())
		return 12, true
	case 0xe1:
		mc.setHL(mc.pull16())
		return 12, true
	case 0xf1:
		v := mc.pull16()
		mc.A = uint8(v >> 8)
		mc.F.SetValue(uint8(v))
		return 12, true

	case 0xc5:
		mc.push16(mc.bc())
		return 16, true
	case 0xd5:
		mc.push16(mc.de())
		return 16, true
	case 0xe5:
		mc.push16(mc.hl())
		return 16, true
	case 0xf5:
		mc.push16(uint16(mc.A)<<8 | uint16(mc.F.Value()))
		return 16, true

	case 0xc3:
		return mc.jp(true), true
	case 0xc2:
		return mc.jp(!mc.F.Zero), true
	case 0xca:
		return mc.jp(mc.F.Zero), true
	case 0xd2:
		return mc.jp(!mc.F.Carry), true
	case 0xda:
		return mc.jp(mc.F.Carry), true
	case 0xe9: // JP HL
		mc.PC = mc.hl()
		return 4, true

	case 0xcd:
		return mc.call(true), true
	case 0xc4:
		return mc.call(!mc.F.Zero), true
	case 0xcc:
		return mc.call(mc.F.Zero), true
	case 0xd4:
		return mc.call(!mc.F.Carry), true
	case 0xdc:
		return mc.call(mc.F.Carry), true

	case 0xc7, 0xcf, 0xd7, 0xdf, 0xe7, 0xef, 0xf7, 0xff: // RST
		mc.push16(mc.PC)
		mc.PC = uint16(opcode & 0x38)
		return 16, true

	case 0xc6, 0xce, 0xd6, 0xde, 0xe6, 0xee, 0xf6, 0xfe: // ALU A,d8
		mc.alu((opcode>>3)&0x07, mc.fetch())
		return 8, true

	case 0xe0: // LDH (a8),A
		mc.bus.Write(0xff00|uint16(mc.fetch()), mc.A)
		return 12, true
	case 0xf0: // LDH A,(a8)
		mc.A = mc.bus.Read(0xff00 | uint16(mc.fetch()))
		return 12, true
	case 0xe2: // LD (C),A
		mc.bus.Write(0xff00|uint16(mc.C), mc.A)
		return 8, true
	case 0xf2: // LD A,(C)
		mc.A = mc.bus.Read(0xff00 | uint16(mc.C))
		return 8, true
	case 0xea: // LD (a16),A
		mc.bus.Write(mc.fetch16(), mc.A)
		return 16, true
	case 0xfa: // LD A,(a16)
		mc.A = mc.bus.Read(mc.fetch16())
		return 16, true

	case 0xe8: // ADD SP,e8
		mc.SP = mc.addSP(int8(mc.fetch()))
		return 16, true
	case 0xf8: // LD HL,SP+e8
		mc.setHL(mc.addSP(int8(mc.fetch())))
		return 12, true
	case 0xf9: // LD SP,HL
		mc.SP = mc.hl()
		return 8, true

	case 0xf3: // DI
		mc.IME = false
		mc.eiPending = false
		return 4, true
	case 0xfb: // EI
		mc.eiPending = true
		return 4, true
	}

	return 0, false
}

// stepCB handles the CB-prefixed page: rotates, shifts, SWAP and the
// bit operations. Every opcode on the page decodes algebraically.
func (mc *CPU) stepCB() int {
	opcode := mc.fetch()
	idx := opcode & 0x07
	bit := (opcode >> 3) & 0x07

	switch opcode >> 6 {
	case 0: // rotate and shift group
		v := mc.reg8(idx)
		switch bit {
		case 0: // RLC
			mc.F.Carry = v&0x80 != 0
			v = v<<1 | v>>7
		case 1: // RRC
			mc.F.Carry = v&0x01 != 0
			v = v>>1 | v<<7
		case 2: // RL
			carry := mc.F.Carry
			mc.F.Carry = v&0x80 != 0
			v <<= 1
			if carry {
				v |= 0x01
			}
		case 3: // RR
			carry := mc.F.Carry
			mc.F.Carry = v&0x01 != 0
			v >>= 1
			if carry {
				v |= 0x80
			}
		case 4: // SLA
			mc.F.Carry = v&0x80 != 0
			v <<= 1
		case 5: // SRA
			mc.F.Carry = v&0x01 != 0
			v = v>>1 | v&0x80
		case 6: // SWAP
			mc.F.Carry = false
			v = v<<4 | v>>4
		case 7: // SRL
			mc.F.Carry = v&0x01 != 0
			v >>= 1
		}
		mc.F.Zero = v == 0
		mc.F.Subtract = false
		mc.F.HalfCarry = false
		mc.setReg8(idx, v)
		if idx == 6 {
			return 16
		}
		return 8

	case 1: // BIT
		mc.F.Zero = mc.reg8(idx)&(1<<bit) == 0
		mc.F.Subtract = false
		mc.F.HalfCarry = true
		if idx == 6 {
			return 12
		}
		return 8

	case 2: // RES
		mc.setReg8(idx, mc.reg8(idx)&^(1<<bit))
	case 3: // SET
		mc.setReg8(idx, mc.reg8(idx)|1<<bit)
	}

	if idx == 6 {
		return 16
	}
	return 8
}
