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

// Package w65c816 implements the WDC 65C816 core found in the SNES. The
// core boots in 6502 emulation mode and switches to native mode under
// program control (XCE). Accumulator and index registers are 8 or 16 bits
// wide according to the M and X status flags.
//
// Step executes one instruction atomically and returns the cycle count at
// the memory bus clock. Wide accesses, a non-aligned direct page register
// and page crossings add their documented penalty cycles.
package w65c816

import (
	"github.com/relicemu/relic/hardware/irq"
	"github.com/relicemu/relic/hardware/snapshot"
)

// interrupt vectors. the emulation mode vectors are the 6502 set.
const (
	vectorCOP      = 0xffe4
	vectorBRK      = 0xffe6
	vectorNMI      = 0xffea
	vectorIRQ      = 0xffee
	vectorEmuCOP   = 0xfff4
	vectorEmuNMI   = 0xfffa
	vectorEmuReset = 0xfffc
	vectorEmuIRQ   = 0xfffe
)

// Bus is the 24-bit memory access surface the CPU requires.
type Bus interface {
	Read(address uint32) uint8
	Write(address uint32, data uint8)
}

// StatusRegister is the 65816 P register as individual flags. In native
// mode bits 4 and 5 are the index and memory width flags rather than the
// 6502's break flag and unused bit.
type StatusRegister struct {
	Carry            bool
	Zero             bool
	InterruptDisable bool
	Decimal          bool
	IndexWidth       bool // X flag: 8-bit index registers when set
	MemoryWidth      bool // M flag: 8-bit accumulator when set
	Overflow         bool
	Sign             bool
}

// Value assembles the flags into the register byte.
func (sr *StatusRegister) Value() uint8 {
	var v uint8
	if sr.Carry {
		v |= 0x01
	}
	if sr.Zero {
		v |= 0x02
	}
	if sr.InterruptDisable {
		v |= 0x04
	}
	if sr.Decimal {
		v |= 0x08
	}
	if sr.IndexWidth {
		v |= 0x10
	}
	if sr.MemoryWidth {
		v |= 0x20
	}
	if sr.Overflow {
		v |= 0x40
	}
	if sr.Sign {
		v |= 0x80
	}
	return v
}

// SetValue unpacks a register byte into the flags.
func (sr *StatusRegister) SetValue(v uint8) {
	sr.Carry = v&0x01 != 0
	sr.Zero = v&0x02 != 0
	sr.InterruptDisable = v&0x04 != 0
	sr.Decimal = v&0x08 != 0
	sr.IndexWidth = v&0x10 != 0
	sr.MemoryWidth = v&0x20 != 0
	sr.Overflow = v&0x40 != 0
	sr.Sign = v&0x80 != 0
}

// CPU is the preferred implementation of the 65816 core.
type CPU struct {
	bus Bus

	PC     uint16
	C      uint16 // full accumulator; low byte is A
	X      uint16
	Y      uint16
	SP     uint16
	D      uint16 // direct page register
	DBR    uint8  // data bank
	PBR    uint8  // program bank
	Status StatusRegister

	// E is the emulation mode flag, exchanged with carry by XCE
	E bool

	NMI *irq.Line
	IRQ *irq.Line

	// WAI parks the CPU until an interrupt is pending; STP until reset
	Waiting bool
	Stopped bool

	cycles int
}

// SerializeSize is the number of bytes Serialize writes.
const SerializeSize = 20

// NewCPU is the preferred method of initialisation for the CPU type.
func NewCPU(bus Bus, nmi *irq.Line, irqLine *irq.Line) *CPU {
	return &CPU{bus: bus, NMI: nmi, IRQ: irqLine}
}

// Reset puts the CPU into emulation mode and loads PC from the emulation
// reset vector in bank 0.
func (mc *CPU) Reset() {
	mc.E = true
	mc.Status.SetValue(0x34)
	mc.C = 0
	mc.X = 0
	mc.Y = 0
	mc.SP = 0x01fd
	mc.D = 0
	mc.DBR = 0
	mc.PBR = 0
	mc.Waiting = false
	mc.Stopped = false
	lo := mc.bus.Read(vectorEmuReset)
	hi := mc.bus.Read(vectorEmuReset + 1)
	mc.PC = uint16(hi)<<8 | uint16(lo)
}

// Serialize writes CPU state at offset zero of data.
func (mc *CPU) Serialize(data []byte) {
	offset := snapshot.PutUint16(data, 0, mc.PC)
	offset = snapshot.PutUint16(data, offset, mc.C)
	offset = snapshot.PutUint16(data, offset, mc.X)
	offset = snapshot.PutUint16(data, offset, mc.Y)
	offset = snapshot.PutUint16(data, offset, mc.SP)
	offset = snapshot.PutUint16(data, offset, mc.D)
	offset = snapshot.PutUint8(data, offset, mc.DBR)
	offset = snapshot.PutUint8(data, offset, mc.PBR)
	offset = snapshot.PutUint8(data, offset, mc.Status.Value())
	offset = snapshot.PutBool(data, offset, mc.E)
	offset = snapshot.PutBool(data, offset, mc.Waiting)
	offset = snapshot.PutBool(data, offset, mc.Stopped)
	offset = snapshot.PutUint8(data, offset, mc.NMI.Serialize())
	_ = snapshot.PutUint8(data, offset, mc.IRQ.Serialize())
}

// Deserialize restores CPU state from offset zero of data.
func (mc *CPU) Deserialize(data []byte) {
	var offset int
	var v uint8
	mc.PC, offset = snapshot.Uint16(data, 0)
	mc.C, offset = snapshot.Uint16(data, offset)
	mc.X, offset = snapshot.Uint16(data, offset)
	mc.Y, offset = snapshot.Uint16(data, offset)
	mc.SP, offset = snapshot.Uint16(data, offset)
	mc.D, offset = snapshot.Uint16(data, offset)
	mc.DBR, offset = snapshot.Uint8(data, offset)
	mc.PBR, offset = snapshot.Uint8(data, offset)
	v, offset = snapshot.Uint8(data, offset)
	mc.Status.SetValue(v)
	mc.E, offset = snapshot.Bool(data, offset)
	mc.Waiting, offset = snapshot.Bool(data, offset)
	mc.Stopped, offset = snapshot.Bool(data, offset)
	v, offset = snapshot.Uint8(data, offset)
	mc.NMI.Deserialize(v)
	v, _ = snapshot.Uint8(data, offset)
	mc.IRQ.Deserialize(v)
}

// m8 reports whether the accumulator is 8 bits wide.
func (mc *CPU) m8() bool {
	return mc.E || mc.Status.MemoryWidth
}

// x8 reports whether the index registers are 8 bits wide.
func (mc *CPU) x8() bool {
	return mc.E || mc.Status.IndexWidth
}

func (mc *CPU) setZN16(v uint16) {
	mc.Status.Zero = v == 0
	mc.Status.Sign = v&0x8000 != 0
}

func (mc *CPU) setZN8(v uint8) {
	mc.Status.Zero = v == 0
	mc.Status.Sign = v&0x80 != 0
}

func (mc *CPU) setZNM(v uint16) {
	if mc.m8() {
		mc.setZN8(uint8(v))
	} else {
		mc.setZN16(v)
	}
}

func (mc *CPU) setZNX(v uint16) {
	if mc.x8() {
		mc.setZN8(uint8(v))
	} else {
		mc.setZN16(v)
	}
}

// pcAddr is the 24-bit address of PC in the program bank.
func (mc *CPU) pcAddr() uint32 {
	return uint32(mc.PBR)<<16 | uint32(mc.PC)
}

func (mc *CPU) fetch() uint8 {
	v := mc.bus.Read(mc.pcAddr())
	mc.PC++
	return v
}

func (mc *CPU) fetch16() uint16 {
	lo := mc.fetch()
	hi := mc.fetch()
	return uint16(hi)<<8 | uint16(lo)
}

// loadM reads an accumulator-width value, charging the wide-access cycle.
func (mc *CPU) loadM(addr uint32) uint16 {
	v := uint16(mc.bus.Read(addr))
	if !mc.m8() {
		v |= uint16(mc.bus.Read((addr+1)&0xffffff)) << 8
		mc.cycles++
	}
	return v
}

// storeM writes an accumulator-width value, charging the wide-access cycle.
func (mc *CPU) storeM(addr uint32, v uint16) {
	mc.bus.Write(addr, uint8(v))
	if !mc.m8() {
		mc.bus.Write((addr+1)&0xffffff, uint8(v>>8))
		mc.cycles++
	}
}

// loadX reads an index-width value, charging the wide-access cycle.
func (mc *CPU) loadX(addr uint32) uint16 {
	v := uint16(mc.bus.Read(addr))
	if !mc.x8() {
		v |= uint16(mc.bus.Read((addr+1)&0xffffff)) << 8
		mc.cycles++
	}
	return v
}

func (mc *CPU) storeX(addr uint32, v uint16) {
	mc.bus.Write(addr, uint8(v))
	if !mc.x8() {
		mc.bus.Write((addr+1)&0xffffff, uint8(v>>8))
		mc.cycles++
	}
}

// read16bank0 reads a 16-bit pointer from bank 0 with 16-bit wraparound.
func (mc *CPU) read16bank0(addr uint16) uint16 {
	lo := mc.bus.Read(uint32(addr))
	hi := mc.bus.Read(uint32(addr + 1))
	return uint16(hi)<<8 | uint16(lo)
}

func (mc *CPU) push(v uint8) {
	mc.bus.Write(uint32(mc.SP), v)
	mc.SP--
	if mc.E {
		mc.SP = 0x0100 | mc.SP&0xff
	}
}

func (mc *CPU) pull() uint8 {
	mc.SP++
	if mc.E {
		mc.SP = 0x0100 | mc.SP&0xff
	}
	return mc.bus.Read(uint32(mc.SP))
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

// truncateIndexes clears the index high bytes when the registers narrow to
// 8 bits.
func (mc *CPU) truncateIndexes() {
	if mc.x8() {
		mc.X &= 0xff
		mc.Y &= 0xff
	}
}

// interrupt runs the interrupt sequence for the given native and emulation
// vectors.
func (mc *CPU) interrupt(native uint16, emu uint16) {
	if mc.E {
		mc.push16(mc.PC)
		mc.push(mc.Status.Value() | 0x20)
		mc.cycles += 7
		mc.PC = mc.read16bank0(emu)
	} else {
		mc.push(mc.PBR)
		mc.push16(mc.PC)
		mc.push(mc.Status.Value())
		mc.cycles += 8
		mc.PC = mc.read16bank0(native)
	}
	mc.PBR = 0
	mc.Status.InterruptDisable = true
	mc.Status.Decimal = false
}

// Step executes one instruction and returns the cycle count. Interrupt
// lines are consulted before the opcode fetch. A stopped CPU (STP) idles
// until Reset.
func (mc *CPU) Step() (int, error) {
	mc.cycles = 0

	if mc.Stopped {
		return 2, nil
	}

	if mc.NMI.Pending() {
		mc.NMI.Acknowledge()
		mc.Waiting = false
		mc.interrupt(vectorNMI, vectorEmuNMI)
		return mc.cycles, nil
	}
	if mc.IRQ.Pending() {
		mc.Waiting = false
		if !mc.Status.InterruptDisable {
			mc.interrupt(vectorIRQ, vectorEmuIRQ)
			return mc.cycles, nil
		}
	}
	if mc.Waiting {
		return 2, nil
	}

	opcode := mc.fetch()
	defn := definitions[opcode]
	mc.cycles += defn.Cycles
	mc.execute(&defn)

	return mc.cycles, nil
}

// resolve returns the 24-bit effective address for the instruction's
// addressing mode. The direct page penalty and the page-cross penalty are
// charged here.
func (mc *CPU) resolve(defn *Definition) uint32 {
	dpPenalty := func() {
		if mc.D&0xff != 0 {
			mc.cycles++
		}
	}

	switch defn.Mode {
	case ImmediateM, ImmediateX, Immediate8:
		addr := mc.pcAddr()
		mc.PC++
		switch {
		case defn.Mode == ImmediateM && !mc.m8():
			mc.PC++
		case defn.Mode == ImmediateX && !mc.x8():
			mc.PC++
		}
		return addr

	case Direct:
		dpPenalty()
		return uint32(mc.D + uint16(mc.fetch()))
	case DirectX:
		dpPenalty()
		return uint32(mc.D + uint16(mc.fetch()) + mc.X)
	case DirectY:
		dpPenalty()
		return uint32(mc.D + uint16(mc.fetch()) + mc.Y)

	case DirectIndirect:
		dpPenalty()
		ptr := mc.read16bank0(mc.D + uint16(mc.fetch()))
		return uint32(mc.DBR)<<16 | uint32(ptr)
	case DirectIndexedIndirect:
		dpPenalty()
		ptr := mc.read16bank0(mc.D + uint16(mc.fetch()) + mc.X)
		return uint32(mc.DBR)<<16 | uint32(ptr)
	case DirectIndirectIndexed:
		dpPenalty()
		ptr := mc.read16bank0(mc.D + uint16(mc.fetch()))
		base := uint32(mc.DBR)<<16 | uint32(ptr)
		addr := (base + uint32(mc.Y)) & 0xffffff
		if defn.PageSensitive && (!mc.x8() || addr&0xff00 != base&0xff00) {
			mc.cycles++
		}
		return addr
	case DirectIndirectLong:
		dpPenalty()
		dp := mc.D + uint16(mc.fetch())
		lo := mc.bus.Read(uint32(dp))
		mid := mc.bus.Read(uint32(dp + 1))
		hi := mc.bus.Read(uint32(dp + 2))
		return uint32(hi)<<16 | uint32(mid)<<8 | uint32(lo)
	case DirectIndirectLongIndexed:
		dpPenalty()
		dp := mc.D + uint16(mc.fetch())
		lo := mc.bus.Read(uint32(dp))
		mid := mc.bus.Read(uint32(dp + 1))
		hi := mc.bus.Read(uint32(dp + 2))
		base := uint32(hi)<<16 | uint32(mid)<<8 | uint32(lo)
		return (base + uint32(mc.Y)) & 0xffffff

	case Absolute:
		return uint32(mc.DBR)<<16 | uint32(mc.fetch16())
	case AbsoluteX:
		base := uint32(mc.DBR)<<16 | uint32(mc.fetch16())
		addr := (base + uint32(mc.X)) & 0xffffff
		if defn.PageSensitive && (!mc.x8() || addr&0xff00 != base&0xff00) {
			mc.cycles++
		}
		return addr
	case AbsoluteY:
		base := uint32(mc.DBR)<<16 | uint32(mc.fetch16())
		addr := (base + uint32(mc.Y)) & 0xffffff
		if defn.PageSensitive && (!mc.x8() || addr&0xff00 != base&0xff00) {
			mc.cycles++
		}
		return addr

	case AbsoluteLong:
		lo := mc.fetch16()
		hi := mc.fetch()
		return uint32(hi)<<16 | uint32(lo)
	case AbsoluteLongX:
		lo := mc.fetch16()
		hi := mc.fetch()
		return ((uint32(hi)<<16 | uint32(lo)) + uint32(mc.X)) & 0xffffff

	case StackRelative:
		return uint32(mc.SP + uint16(mc.fetch()))
	case StackRelativeIndirectIndexed:
		ptr := mc.read16bank0(mc.SP + uint16(mc.fetch()))
		return ((uint32(mc.DBR)<<16 | uint32(ptr)) + uint32(mc.Y)) & 0xffffff
	}

	return 0
}

func (mc *CPU) branch(taken bool) {
	offset := int8(mc.fetch())
	if !taken {
		return
	}
	mc.cycles++
	target := uint16(int32(mc.PC) + int32(offset))
	if mc.E && target&0xff00 != mc.PC&0xff00 {
		mc.cycles++
	}
	mc.PC = target
}

func (mc *CPU) adc(operand uint16) {
	if mc.Status.Decimal {
		mc.adcDecimal(operand)
		return
	}
	var carry uint32
	if mc.Status.Carry {
		carry = 1
	}
	if mc.m8() {
		a := mc.C & 0xff
		sum := uint32(a) + uint32(operand) + carry
		result := uint16(sum) & 0xff
		mc.Status.Carry = sum > 0xff
		mc.Status.Overflow = (a^result)&(operand^result)&0x80 != 0
		mc.C = mc.C&0xff00 | result
		mc.setZN8(uint8(result))
	} else {
		sum := uint32(mc.C) + uint32(operand) + carry
		result := uint16(sum)
		mc.Status.Carry = sum > 0xffff
		mc.Status.Overflow = (mc.C^result)&(operand^result)&0x8000 != 0
		mc.C = result
		mc.setZN16(result)
	}
}

// adcDecimal is BCD addition a nibble at a time, which handles both
// accumulator widths with the same loop.
func (mc *CPU) adcDecimal(operand uint16) {
	nibbles := 2
	if !mc.m8() {
		nibbles = 4
	}

	var carry uint16
	if mc.Status.Carry {
		carry = 1
	}

	a := mc.C
	if mc.m8() {
		a &= 0xff
	}

	var result uint16
	for i := 0; i < nibbles; i++ {
		shift := uint(i * 4)
		n := (a>>shift)&0x0f + (operand>>shift)&0x0f + carry
		carry = 0
		if n > 9 {
			n += 6
			carry = 1
		}
		result |= (n & 0x0f) << shift
	}

	mc.Status.Carry = carry != 0
	if mc.m8() {
		mc.Status.Overflow = (a^result)&(operand^result)&0x80 != 0
		mc.C = mc.C&0xff00 | result&0xff
		mc.setZN8(uint8(result))
	} else {
		mc.Status.Overflow = (a^result)&(operand^result)&0x8000 != 0
		mc.C = result
		mc.setZN16(result)
	}
}

func (mc *CPU) sbc(operand uint16) {
	if mc.Status.Decimal {
		mc.sbcDecimal(operand)
		return
	}
	if mc.m8() {
		mc.adc(^operand & 0xff)
	} else {
		mc.adc(^operand)
	}
}

func (mc *CPU) sbcDecimal(operand uint16) {
	nibbles := 2
	if !mc.m8() {
		nibbles = 4
	}

	var borrow int16
	if !mc.Status.Carry {
		borrow = 1
	}

	a := mc.C
	if mc.m8() {
		a &= 0xff
	}

	var result uint16
	for i := 0; i < nibbles; i++ {
		shift := uint(i * 4)
		n := int16((a>>shift)&0x0f) - int16((operand>>shift)&0x0f) - borrow
		borrow = 0
		if n < 0 {
			n -= 6
			borrow = 1
		}
		result |= uint16(n&0x0f) << shift
	}

	mc.Status.Carry = borrow == 0
	if mc.m8() {
		mc.Status.Overflow = (a^operand)&(a^result)&0x80 != 0
		mc.C = mc.C&0xff00 | result&0xff
		mc.setZN8(uint8(result))
	} else {
		mc.Status.Overflow = (a^operand)&(a^result)&0x8000 != 0
		mc.C = result
		mc.setZN16(result)
	}
}

func (mc *CPU) compare(reg uint16, operand uint16, wide bool) {
	if wide {
		mc.Status.Carry = reg >= operand
		mc.setZN16(reg - operand)
	} else {
		r := uint8(reg)
		o := uint8(operand)
		mc.Status.Carry = r >= o
		mc.setZN8(r - o)
	}
}

// rmwM applies fn to an accumulator-width value at addr or in the
// accumulator.
func (mc *CPU) rmwM(defn *Definition, fn func(uint16) uint16) {
	if defn.Mode == Accumulator {
		if mc.m8() {
			mc.C = mc.C&0xff00 | fn(mc.C&0xff)&0xff
			mc.setZN8(uint8(mc.C))
		} else {
			mc.C = fn(mc.C)
			mc.setZN16(mc.C)
		}
		return
	}
	addr := mc.resolve(defn)
	v := fn(mc.loadM(addr))
	if mc.m8() {
		v &= 0xff
		mc.setZN8(uint8(v))
	} else {
		mc.setZN16(v)
	}
	mc.storeM(addr, v)
}

func (mc *CPU) asl(v uint16) uint16 {
	if mc.m8() {
		mc.Status.Carry = v&0x80 != 0
	} else {
		mc.Status.Carry = v&0x8000 != 0
	}
	return v << 1
}

func (mc *CPU) lsr(v uint16) uint16 {
	mc.Status.Carry = v&0x01 != 0
	return v >> 1
}

func (mc *CPU) rol(v uint16) uint16 {
	carry := mc.Status.Carry
	v = mc.asl(v)
	if carry {
		v |= 0x01
	}
	return v
}

func (mc *CPU) ror(v uint16) uint16 {
	carry := mc.Status.Carry
	mc.Status.Carry = v&0x01 != 0
	v >>= 1
	if carry {
		if mc.m8() {
			v |= 0x80
		} else {
			v |= 0x8000
		}
	}
	return v
}

func (mc *CPU) execute(defn *Definition) {
	switch defn.Op {
	case LDA:
		v := mc.loadM(mc.resolve(defn))
		if mc.m8() {
			mc.C = mc.C&0xff00 | v
		} else {
			mc.C = v
		}
		mc.setZNM(v)
	case LDX:
		mc.X = mc.loadX(mc.resolve(defn))
		mc.setZNX(mc.X)
	case LDY:
		mc.Y = mc.loadX(mc.resolve(defn))
		mc.setZNX(mc.Y)
	case STA:
		mc.storeM(mc.resolve(defn), mc.C)
	case STX:
		mc.storeX(mc.resolve(defn), mc.X)
	case STY:
		mc.storeX(mc.resolve(defn), mc.Y)
	case STZ:
		mc.storeM(mc.resolve(defn), 0)

	case AND:
		v := mc.loadM(mc.resolve(defn))
		if mc.m8() {
			mc.C = mc.C&0xff00 | (mc.C & v & 0xff)
		} else {
			mc.C &= v
		}
		mc.setZNM(mc.C)
	case EOR:
		v := mc.loadM(mc.resolve(defn))
		if mc.m8() {
			mc.C = mc.C&0xff00 | (mc.C^v)&0xff
		} else {
			mc.C ^= v
		}
		mc.setZNM(mc.C)
	case ORA:
		v := mc.loadM(mc.resolve(defn))
		if mc.m8() {
			mc.C = mc.C&0xff00 | (mc.C|v)&0xff
		} else {
			mc.C |= v
		}
		mc.setZNM(mc.C)

	case BIT:
		v := mc.loadM(mc.resolve(defn))
		if mc.m8() {
			mc.Status.Zero = uint8(mc.C)&uint8(v) == 0
		} else {
			mc.Status.Zero = mc.C&v == 0
		}
		// immediate mode BIT affects Z only
		if defn.Mode != ImmediateM {
			if mc.m8() {
				mc.Status.Overflow = v&0x40 != 0
				mc.Status.Sign = v&0x80 != 0
			} else {
				mc.Status.Overflow = v&0x4000 != 0
				mc.Status.Sign = v&0x8000 != 0
			}
		}
	case TSB:
		addr := mc.resolve(defn)
		v := mc.loadM(addr)
		if mc.m8() {
			mc.Status.Zero = uint8(mc.C)&uint8(v) == 0
			mc.storeM(addr, v|mc.C&0xff)
		} else {
			mc.Status.Zero = mc.C&v == 0
			mc.storeM(addr, v|mc.C)
		}
	case TRB:
		addr := mc.resolve(defn)
		v := mc.loadM(addr)
		if mc.m8() {
			mc.Status.Zero = uint8(mc.C)&uint8(v) == 0
			mc.storeM(addr, v&^(mc.C&0xff))
		} else {
			mc.Status.Zero = mc.C&v == 0
			mc.storeM(addr, v&^mc.C)
		}

	case ADC:
		mc.adc(mc.loadM(mc.resolve(defn)))
	case SBC:
		mc.sbc(mc.loadM(mc.resolve(defn)))
	case CMP:
		mc.compare(mc.C, mc.loadM(mc.resolve(defn)), !mc.m8())
	case CPX:
		mc.compare(mc.X, mc.loadX(mc.resolve(defn)), !mc.x8())
	case CPY:
		mc.compare(mc.Y, mc.loadX(mc.resolve(defn)), !mc.x8())

	case INC:
		mc.rmwM(defn, func(v uint16) uint16 { return v + 1 })
	case DEC:
		mc.rmwM(defn, func(v uint16) uint16 { return v - 1 })
	case INX:
		mc.X++
		mc.truncateIndexes()
		mc.setZNX(mc.X)
	case INY:
		mc.Y++
		mc.truncateIndexes()
		mc.setZNX(mc.Y)
	case DEX:
		mc.X--
		mc.truncateIndexes()
		mc.setZNX(mc.X)
	case DEY:
		mc.Y--
		mc.truncateIndexes()
		mc.setZNX(mc.Y)

	case ASL:
		mc.rmwM(defn, mc.asl)
	case LSR:
		mc.rmwM(defn, mc.lsr)
	case ROL:
		mc.rmwM(defn, mc.rol)
	case ROR:
		mc.rmwM(defn, mc.ror)

	case JMP:
		switch defn.Mode {
		case Absolute:
			mc.PC = mc.fetch16()
		case AbsoluteIndirect:
			mc.PC = mc.read16bank0(mc.fetch16())
		case AbsoluteIndexedIndirect:
			ptr := mc.fetch16() + mc.X
			lo := mc.bus.Read(uint32(mc.PBR)<<16 | uint32(ptr))
			hi := mc.bus.Read(uint32(mc.PBR)<<16 | uint32(ptr+1))
			mc.PC = uint16(hi)<<8 | uint16(lo)
		}
	case JML:
		switch defn.Mode {
		case AbsoluteLong:
			lo := mc.fetch16()
			mc.PBR = mc.fetch()
			mc.PC = lo
		case AbsoluteIndirectLong:
			ptr := mc.fetch16()
			lo := mc.bus.Read(uint32(ptr))
			mid := mc.bus.Read(uint32(ptr + 1))
			mc.PBR = mc.bus.Read(uint32(ptr + 2))
			mc.PC = uint16(mid)<<8 | uint16(lo)
		}
	case JSR:
		if defn.Mode == AbsoluteIndexedIndirect {
			target := mc.fetch16()
			mc.push16(mc.PC - 1)
			ptr := target + mc.X
			lo := mc.bus.Read(uint32(mc.PBR)<<16 | uint32(ptr))
			hi := mc.bus.Read(uint32(mc.PBR)<<16 | uint32(ptr+1))
			mc.PC = uint16(hi)<<8 | uint16(lo)
		} else {
			target := mc.fetch16()
			mc.push16(mc.PC - 1)
			mc.PC = target
		}
	case JSL:
		lo := mc.fetch16()
		bank := mc.fetch()
		mc.push(mc.PBR)
		mc.push16(mc.PC - 1)
		mc.PBR = bank
		mc.PC = lo
	case RTS:
		mc.PC = mc.pull16() + 1
	case RTL:
		mc.PC = mc.pull16() + 1
		mc.PBR = mc.pull()

	case BCC:
		mc.branch(!mc.Status.Carry)
	case BCS:
		mc.branch(mc.Status.Carry)
	case BEQ:
		mc.branch(mc.Status.Zero)
	case BMI:
		mc.branch(mc.Status.Sign)
	case BNE:
		mc.branch(!mc.Status.Zero)
	case BPL:
		mc.branch(!mc.Status.Sign)
	case BRA:
		mc.branch(true)
	case BVC:
		mc.branch(!mc.Status.Overflow)
	case BVS:
		mc.branch(mc.Status.Overflow)
	case BRL:
		offset := int16(mc.fetch16())
		mc.PC = uint16(int32(mc.PC) + int32(offset))

	case CLC:
		mc.Status.Carry = false
	case CLD:
		mc.Status.Decimal = false
	case CLI:
		mc.Status.InterruptDisable = false
	case CLV:
		mc.Status.Overflow = false
	case SEC:
		mc.Status.Carry = true
	case SED:
		mc.Status.Decimal = true
	case SEI:
		mc.Status.InterruptDisable = true
	case REP:
		v := mc.fetch()
		mc.Status.SetValue(mc.Status.Value() &^ v)
		if mc.E {
			mc.Status.MemoryWidth = true
			mc.Status.IndexWidth = true
		}
		mc.truncateIndexes()
	case SEP:
		v := mc.fetch()
		mc.Status.SetValue(mc.Status.Value() | v)
		mc.truncateIndexes()

	case TAX:
		mc.X = mc.C
		mc.truncateIndexes()
		mc.setZNX(mc.X)
	case TAY:
		mc.Y = mc.C
		mc.truncateIndexes()
		mc.setZNX(mc.Y)
	case TSX:
		mc.X = mc.SP
		mc.truncateIndexes()
		mc.setZNX(mc.X)
	case TXA:
		if mc.m8() {
			mc.C = mc.C&0xff00 | mc.X&0xff
		} else {
			mc.C = mc.X
		}
		mc.setZNM(mc.C)
	case TXS:
		if mc.E {
			mc.SP = 0x0100 | mc.X&0xff
		} else {
			mc.SP = mc.X
		}
	case TXY:
		mc.Y = mc.X
		mc.setZNX(mc.Y)
	case TYA:
		if mc.m8() {
			mc.C = mc.C&0xff00 | mc.Y&0xff
		} else {
			mc.C = mc.Y
		}
		mc.setZNM(mc.C)
	case TYX:
		mc.X = mc.Y
		mc.setZNX(mc.X)
	case TCD:
		mc.D = mc.C
		mc.setZN16(mc.D)
	case TCS:
		if mc.E {
			mc.SP = 0x0100 | mc.C&0xff
		} else {
			mc.SP = mc.C
		}
	case TDC:
		mc.C = mc.D
		mc.setZN16(mc.C)
	case TSC:
		mc.C = mc.SP
		mc.setZN16(mc.C)
	case XBA:
		mc.C = mc.C<<8 | mc.C>>8
		mc.setZN8(uint8(mc.C))
	case XCE:
		carry := mc.Status.Carry
		mc.Status.Carry = mc.E
		mc.E = carry
		if mc.E {
			mc.Status.MemoryWidth = true
			mc.Status.IndexWidth = true
			mc.SP = 0x0100 | mc.SP&0xff
			mc.truncateIndexes()
		}

	case PHA:
		if mc.m8() {
			mc.push(uint8(mc.C))
		} else {
			mc.push16(mc.C)
			mc.cycles++
		}
	case PHB:
		mc.push(mc.DBR)
	case PHD:
		mc.push16(mc.D)
	case PHK:
		mc.push(mc.PBR)
	case PHP:
		mc.push(mc.Status.Value())
	case PHX:
		if mc.x8() {
			mc.push(uint8(mc.X))
		} else {
			mc.push16(mc.X)
			mc.cycles++
		}
	case PHY:
		if mc.x8() {
			mc.push(uint8(mc.Y))
		} else {
			mc.push16(mc.Y)
			mc.cycles++
		}
	case PLA:
		if mc.m8() {
			mc.C = mc.C&0xff00 | uint16(mc.pull())
			mc.setZN8(uint8(mc.C))
		} else {
			mc.C = mc.pull16()
			mc.setZN16(mc.C)
			mc.cycles++
		}
	case PLB:
		mc.DBR = mc.pull()
		mc.setZN8(mc.DBR)
	case PLD:
		mc.D = mc.pull16()
		mc.setZN16(mc.D)
	case PLP:
		mc.Status.SetValue(mc.pull())
		if mc.E {
			mc.Status.MemoryWidth = true
			mc.Status.IndexWidth = true
		}
		mc.truncateIndexes()
	case PLX:
		if mc.x8() {
			mc.X = uint16(mc.pull())
			mc.setZN8(uint8(mc.X))
		} else {
			mc.X = mc.pull16()
			mc.setZN16(mc.X)
			mc.cycles++
		}
	case PLY:
		if mc.x8() {
			mc.Y = uint16(mc.pull())
			mc.setZN8(uint8(mc.Y))
		} else {
			mc.Y = mc.pull16()
			mc.setZN16(mc.Y)
			mc.cycles++
		}
	case PEA:
		mc.push16(mc.fetch16())
	case PEI:
		addr := mc.resolve(defn)
		lo := mc.bus.Read(addr)
		hi := mc.bus.Read((addr + 1) & 0xffffff)
		mc.push16(uint16(hi)<<8 | uint16(lo))
	case PER:
		offset := int16(mc.fetch16())
		mc.push16(uint16(int32(mc.PC) + int32(offset)))

	case BRK:
		mc.fetch() // signature byte
		mc.interrupt(vectorBRK, vectorEmuIRQ)
	case COP:
		mc.fetch()
		mc.interrupt(vectorCOP, vectorEmuCOP)
	case RTI:
		mc.Status.SetValue(mc.pull())
		if mc.E {
			mc.Status.MemoryWidth = true
			mc.Status.IndexWidth = true
			mc.PC = mc.pull16()
		} else {
			mc.PC = mc.pull16()
			mc.PBR = mc.pull()
			mc.cycles++
		}
		mc.truncateIndexes()

	case MVN, MVP:
		// the whole move runs as one instruction. real silicon repeats a
		// 7-cycle microloop per byte with PC held; the cycle total is the
		// same either way
		dstBank := mc.fetch()
		srcBank := mc.fetch()
		count := int(mc.C) + 1
		for i := 0; i < count; i++ {
			v := mc.bus.Read(uint32(srcBank)<<16 | uint32(mc.X))
			mc.bus.Write(uint32(dstBank)<<16|uint32(mc.Y), v)
			if defn.Op == MVN {
				mc.X++
				mc.Y++
			} else {
				mc.X--
				mc.Y--
			}
			mc.truncateIndexes()
		}
		mc.C = 0xffff
		mc.DBR = dstBank
		mc.cycles += 7*count - defn.Cycles

	case WAI:
		mc.Waiting = true
	case STP:
		mc.Stopped = true
	case WDM:
		mc.fetch()
	case NOP:
	}
}
