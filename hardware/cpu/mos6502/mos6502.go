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

// Package mos6502 implements the MOS 6502 family core used by the NES (the
// Ricoh 2A03 variant, which omits decimal mode). Instructions execute as an
// atomic unit; Step returns the number of cycles the instruction would have
// taken on silicon, including page-cross and branch penalties. Interrupts
// are sampled at instruction boundaries.
//
// The stable undocumented opcodes are implemented. The unstable ones (KIL,
// XAA, AHX, TAS, LAS) have no entry in the decode table; what happens when
// one is fetched depends on the tolerant flag given to New.
package mos6502

import (
	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware/irq"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/logger"
)

// UnimplementedOpcode is returned by Step for opcodes with no stable
// behaviour when the CPU is in strict mode.
const UnimplementedOpcode = "mos6502: unimplemented opcode: %#02x at %#04x"

// interrupt vectors
const (
	vectorNMI   = 0xfffa
	vectorReset = 0xfffc
	vectorIRQ   = 0xfffe
)

// Bus is the memory access surface the CPU requires.
type Bus interface {
	Read(address uint16) uint8
	Write(address uint16, data uint8)
}

// CPU is the preferred implementation of the 6502 core.
type CPU struct {
	bus Bus

	PC     uint16
	A      uint8
	X      uint8
	Y      uint8
	SP     uint8
	Status StatusRegister

	// NMI is edge sensitive, IRQ is level sensitive and masked by the
	// interrupt disable flag. Both are owned by the console's irq.Controller
	// and shared with the chips that assert them.
	NMI *irq.Line
	IRQ *irq.Line

	// the 2A03 has decimal mode circuitry disconnected. ADC and SBC honour
	// the D flag only when this is set
	decimalEnabled bool

	// a fetched opcode with no stable behaviour is either an error (strict)
	// or a logged two cycle no-op (tolerant)
	tolerant bool

	// cycle accumulator for the instruction currently being executed
	cycles int
}

// SerializeSize is the number of bytes Serialize writes.
const SerializeSize = 9

// NewCPU is the preferred method of initialisation for the CPU type. The
// decimal argument should be false for the NES variant of the chip.
func NewCPU(bus Bus, nmi *irq.Line, irqLine *irq.Line, decimal bool, tolerant bool) *CPU {
	return &CPU{
		bus:            bus,
		NMI:            nmi,
		IRQ:            irqLine,
		decimalEnabled: decimal,
		tolerant:       tolerant,
	}
}

// Reset puts the CPU into its power-on state and loads PC from the reset
// vector.
func (mc *CPU) Reset() {
	mc.A = 0
	mc.X = 0
	mc.Y = 0
	mc.SP = 0xfd
	mc.Status.SetValue(0x04)
	mc.PC = mc.read16(vectorReset)
}

// Serialize writes CPU state at offset zero of data.
func (mc *CPU) Serialize(data []byte) {
	offset := snapshot.PutUint16(data, 0, mc.PC)
	offset = snapshot.PutUint8(data, offset, mc.A)
	offset = snapshot.PutUint8(data, offset, mc.X)
	offset = snapshot.PutUint8(data, offset, mc.Y)
	offset = snapshot.PutUint8(data, offset, mc.SP)
	offset = snapshot.PutUint8(data, offset, mc.Status.Value(false))
	offset = snapshot.PutUint8(data, offset, mc.NMI.Serialize())
	_ = snapshot.PutUint8(data, offset, mc.IRQ.Serialize())
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
	mc.Status.SetValue(v)
	v, offset = snapshot.Uint8(data, offset)
	mc.NMI.Deserialize(v)
	v, _ = snapshot.Uint8(data, offset)
	mc.IRQ.Deserialize(v)
}

func (mc *CPU) read16(address uint16) uint16 {
	lo := mc.bus.Read(address)
	hi := mc.bus.Read(address + 1)
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

// interrupt runs the seven cycle interrupt sequence for the given vector.
func (mc *CPU) interrupt(vector uint16) {
	mc.push(uint8(mc.PC >> 8))
	mc.push(uint8(mc.PC))
	mc.push(mc.Status.Value(false))
	mc.Status.InterruptDisable = true
	mc.PC = mc.read16(vector)
	mc.cycles += 7
}

// Step executes one instruction and returns the cycle count. Interrupt
// lines are consulted before the opcode fetch; a pending NMI or unmasked
// IRQ is serviced instead, also at a cost of seven cycles.
func (mc *CPU) Step() (int, error) {
	mc.cycles = 0

	if mc.NMI.Pending() {
		mc.NMI.Acknowledge()
		mc.interrupt(vectorNMI)
		return mc.cycles, nil
	}
	if mc.IRQ.Pending() && !mc.Status.InterruptDisable {
		mc.interrupt(vectorIRQ)
		return mc.cycles, nil
	}

	opcodeAddr := mc.PC
	opcode := mc.bus.Read(mc.PC)
	mc.PC++

	defn := definitions[opcode]
	if defn == nil {
		if !mc.tolerant {
			return 0, curated.Errorf(UnimplementedOpcode, opcode, opcodeAddr)
		}
		logger.Logf("mos6502", "skipping unimplemented opcode %#02x at %#04x", opcode, opcodeAddr)
		return 2, nil
	}

	mc.cycles = defn.Cycles
	mc.execute(defn)

	return mc.cycles, nil
}

// resolve returns the effective address for the instruction's addressing
// mode, consuming operand bytes from the instruction stream. The page-cross
// penalty is charged here for the modes that carry one.
func (mc *CPU) resolve(defn *Definition) uint16 {
	switch defn.Mode {
	case Immediate:
		addr := mc.PC
		mc.PC++
		return addr

	case ZeroPage:
		addr := uint16(mc.bus.Read(mc.PC))
		mc.PC++
		return addr

	case ZeroPageX:
		addr := uint16(mc.bus.Read(mc.PC) + mc.X)
		mc.PC++
		return addr

	case ZeroPageY:
		addr := uint16(mc.bus.Read(mc.PC) + mc.Y)
		mc.PC++
		return addr

	case Absolute:
		addr := mc.read16(mc.PC)
		mc.PC += 2
		return addr

	case AbsoluteX:
		base := mc.read16(mc.PC)
		mc.PC += 2
		addr := base + uint16(mc.X)
		if defn.PageSensitive && addr&0xff00 != base&0xff00 {
			mc.cycles++
		}
		return addr

	case AbsoluteY:
		base := mc.read16(mc.PC)
		mc.PC += 2
		addr := base + uint16(mc.Y)
		if defn.PageSensitive && addr&0xff00 != base&0xff00 {
			mc.cycles++
		}
		return addr

	case Indirect:
		// the 6502 indirect JMP bug: the pointer high byte is fetched from
		// the start of the page when the pointer low byte is 0xff
		ptr := mc.read16(mc.PC)
		mc.PC += 2
		lo := mc.bus.Read(ptr)
		hi := mc.bus.Read(ptr&0xff00 | (ptr+1)&0x00ff)
		return uint16(hi)<<8 | uint16(lo)

	case IndexedIndirect:
		zp := mc.bus.Read(mc.PC) + mc.X
		mc.PC++
		lo := mc.bus.Read(uint16(zp))
		hi := mc.bus.Read(uint16(zp + 1))
		return uint16(hi)<<8 | uint16(lo)

	case IndirectIndexed:
		zp := mc.bus.Read(mc.PC)
		mc.PC++
		lo := mc.bus.Read(uint16(zp))
		hi := mc.bus.Read(uint16(zp + 1))
		base := uint16(hi)<<8 | uint16(lo)
		addr := base + uint16(mc.Y)
		if defn.PageSensitive && addr&0xff00 != base&0xff00 {
			mc.cycles++
		}
		return addr
	}

	return 0
}

// branch applies the taken and page-cross penalties for relative mode.
func (mc *CPU) branch(taken bool) {
	offset := int8(mc.bus.Read(mc.PC))
	mc.PC++
	if !taken {
		return
	}
	mc.cycles++
	target := uint16(int32(mc.PC) + int32(offset))
	if target&0xff00 != mc.PC&0xff00 {
		mc.cycles++
	}
	mc.PC = target
}

func (mc *CPU) adc(operand uint8) {
	if mc.decimalEnabled && mc.Status.Decimal {
		mc.adcDecimal(operand)
		return
	}
	var carry uint16
	if mc.Status.Carry {
		carry = 1
	}
	sum := uint16(mc.A) + uint16(operand) + carry
	result := uint8(sum)
	mc.Status.Carry = sum > 0xff
	mc.Status.Overflow = (mc.A^result)&(operand^result)&0x80 != 0
	mc.A = result
	mc.Status.setZN(mc.A)
}

func (mc *CPU) adcDecimal(operand uint8) {
	var carry uint8
	if mc.Status.Carry {
		carry = 1
	}
	lo := mc.A&0x0f + operand&0x0f + carry
	hi := uint16(mc.A&0xf0) + uint16(operand&0xf0)
	if lo > 0x09 {
		lo += 0x06
		hi += 0x10
	}
	// N and V are set from the binary intermediate, as on silicon
	mc.Status.Sign = uint8(hi)&0x80 != 0
	mc.Status.Overflow = (uint16(mc.A)^hi)&(uint16(operand)^hi)&0x80 != 0
	if hi > 0x90 {
		hi += 0x60
	}
	mc.Status.Carry = hi > 0xff
	mc.Status.Zero = uint8(uint16(mc.A)+uint16(operand)+uint16(carry)) == 0
	mc.A = uint8(hi) | lo&0x0f
}

func (mc *CPU) sbc(operand uint8) {
	if mc.decimalEnabled && mc.Status.Decimal {
		mc.sbcDecimal(operand)
		return
	}
	mc.adc(^operand)
}

func (mc *CPU) sbcDecimal(operand uint8) {
	var borrow uint8
	if !mc.Status.Carry {
		borrow = 1
	}
	diff := uint16(mc.A) - uint16(operand) - uint16(borrow)
	lo := int16(mc.A&0x0f) - int16(operand&0x0f) - int16(borrow)
	hi := int16(mc.A&0xf0) - int16(operand&0xf0)
	if lo < 0 {
		lo -= 0x06
		hi -= 0x10
	}
	if hi < 0 {
		hi -= 0x60
	}
	result := uint8(diff)
	mc.Status.Carry = diff < 0x100
	mc.Status.Overflow = (mc.A^operand)&(mc.A^result)&0x80 != 0
	mc.Status.setZN(result)
	mc.A = uint8(hi) | uint8(lo)&0x0f
}

func (mc *CPU) compare(reg uint8, operand uint8) {
	mc.Status.Carry = reg >= operand
	mc.Status.setZN(reg - operand)
}

func (mc *CPU) asl(v uint8) uint8 {
	mc.Status.Carry = v&0x80 != 0
	v <<= 1
	mc.Status.setZN(v)
	return v
}

func (mc *CPU) lsr(v uint8) uint8 {
	mc.Status.Carry = v&0x01 != 0
	v >>= 1
	mc.Status.setZN(v)
	return v
}

func (mc *CPU) rol(v uint8) uint8 {
	carry := mc.Status.Carry
	mc.Status.Carry = v&0x80 != 0
	v <<= 1
	if carry {
		v |= 0x01
	}
	mc.Status.setZN(v)
	return v
}

func (mc *CPU) ror(v uint8) uint8 {
	carry := mc.Status.Carry
	mc.Status.Carry = v&0x01 != 0
	v >>= 1
	if carry {
		v |= 0x80
	}
	mc.Status.setZN(v)
	return v
}

// rmw applies fn to the value at addr, writing the result back. Used by the
// shift group and by the undocumented read-modify-write combinations.
func (mc *CPU) rmw(defn *Definition, fn func(uint8) uint8) (uint16, uint8) {
	if defn.Mode == Accumulator {
		mc.A = fn(mc.A)
		return 0, mc.A
	}
	addr := mc.resolve(defn)
	v := fn(mc.bus.Read(addr))
	mc.bus.Write(addr, v)
	return addr, v
}

func (mc *CPU) execute(defn *Definition) {
	switch defn.Op {
	case LDA:
		mc.A = mc.bus.Read(mc.resolve(defn))
		mc.Status.setZN(mc.A)
	case LDX:
		mc.X = mc.bus.Read(mc.resolve(defn))
		mc.Status.setZN(mc.X)
	case LDY:
		mc.Y = mc.bus.Read(mc.resolve(defn))
		mc.Status.setZN(mc.Y)
	case STA:
		mc.bus.Write(mc.resolve(defn), mc.A)
	case STX:
		mc.bus.Write(mc.resolve(defn), mc.X)
	case STY:
		mc.bus.Write(mc.resolve(defn), mc.Y)

	case TAX:
		mc.X = mc.A
		mc.Status.setZN(mc.X)
	case TAY:
		mc.Y = mc.A
		mc.Status.setZN(mc.Y)
	case TSX:
		mc.X = mc.SP
		mc.Status.setZN(mc.X)
	case TXA:
		mc.A = mc.X
		mc.Status.setZN(mc.A)
	case TXS:
		mc.SP = mc.X
	case TYA:
		mc.A = mc.Y
		mc.Status.setZN(mc.A)

	case PHA:
		mc.push(mc.A)
	case PHP:
		mc.push(mc.Status.Value(true))
	case PLA:
		mc.A = mc.pull()
		mc.Status.setZN(mc.A)
	case PLP:
		mc.Status.SetValue(mc.pull())

	case AND:
		mc.A &= mc.bus.Read(mc.resolve(defn))
		mc.Status.setZN(mc.A)
	case EOR:
		mc.A ^= mc.bus.Read(mc.resolve(defn))
		mc.Status.setZN(mc.A)
	case ORA:
		mc.A |= mc.bus.Read(mc.resolve(defn))
		mc.Status.setZN(mc.A)
	case BIT:
		v := mc.bus.Read(mc.resolve(defn))
		mc.Status.Zero = mc.A&v == 0
		mc.Status.Overflow = v&0x40 != 0
		mc.Status.Sign = v&0x80 != 0

	case ADC:
		mc.adc(mc.bus.Read(mc.resolve(defn)))
	case SBC:
		mc.sbc(mc.bus.Read(mc.resolve(defn)))
	case CMP:
		mc.compare(mc.A, mc.bus.Read(mc.resolve(defn)))
	case CPX:
		mc.compare(mc.X, mc.bus.Read(mc.resolve(defn)))
	case CPY:
		mc.compare(mc.Y, mc.bus.Read(mc.resolve(defn)))

	case INC:
		addr := mc.resolve(defn)
		v := mc.bus.Read(addr) + 1
		mc.bus.Write(addr, v)
		mc.Status.setZN(v)
	case INX:
		mc.X++
		mc.Status.setZN(mc.X)
	case INY:
		mc.Y++
		mc.Status.setZN(mc.Y)
	case DEC:
		addr := mc.resolve(defn)
		v := mc.bus.Read(addr) - 1
		mc.bus.Write(addr, v)
		mc.Status.setZN(v)
	case DEX:
		mc.X--
		mc.Status.setZN(mc.X)
	case DEY:
		mc.Y--
		mc.Status.setZN(mc.Y)

	case ASL:
		mc.rmw(defn, mc.asl)
	case LSR:
		mc.rmw(defn, mc.lsr)
	case ROL:
		mc.rmw(defn, mc.rol)
	case ROR:
		mc.rmw(defn, mc.ror)

	case JMP:
		mc.PC = mc.resolve(defn)
	case JSR:
		target := mc.read16(mc.PC)
		ret := mc.PC + 1
		mc.push(uint8(ret >> 8))
		mc.push(uint8(ret))
		mc.PC = target
	case RTS:
		lo := mc.pull()
		hi := mc.pull()
		mc.PC = (uint16(hi)<<8 | uint16(lo)) + 1

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
	case BVC:
		mc.branch(!mc.Status.Overflow)
	case BVS:
		mc.branch(mc.Status.Overflow)

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

	case BRK:
		// BRK pushes the address of the byte after its padding byte, with
		// the break flag set in the pushed status
		ret := mc.PC + 1
		mc.push(uint8(ret >> 8))
		mc.push(uint8(ret))
		mc.push(mc.Status.Value(true))
		mc.Status.InterruptDisable = true
		mc.PC = mc.read16(vectorIRQ)
	case RTI:
		mc.Status.SetValue(mc.pull())
		lo := mc.pull()
		hi := mc.pull()
		mc.PC = uint16(hi)<<8 | uint16(lo)

	case NOP:
		if defn.Mode != Implied {
			// multi-byte NOP still consumes its operand and performs the
			// dummy read
			_ = mc.bus.Read(mc.resolve(defn))
		}

	case LAX:
		mc.A = mc.bus.Read(mc.resolve(defn))
		mc.X = mc.A
		mc.Status.setZN(mc.A)
	case SAX:
		mc.bus.Write(mc.resolve(defn), mc.A&mc.X)
	case DCP:
		addr := mc.resolve(defn)
		v := mc.bus.Read(addr) - 1
		mc.bus.Write(addr, v)
		mc.compare(mc.A, v)
	case ISC:
		addr := mc.resolve(defn)
		v := mc.bus.Read(addr) + 1
		mc.bus.Write(addr, v)
		mc.sbc(v)
	case SLO:
		_, v := mc.rmw(defn, mc.asl)
		mc.A |= v
		mc.Status.setZN(mc.A)
	case RLA:
		_, v := mc.rmw(defn, mc.rol)
		mc.A &= v
		mc.Status.setZN(mc.A)
	case SRE:
		_, v := mc.rmw(defn, mc.lsr)
		mc.A ^= v
		mc.Status.setZN(mc.A)
	case RRA:
		_, v := mc.rmw(defn, mc.ror)
		mc.adc(v)

	case ANC:
		mc.A &= mc.bus.Read(mc.resolve(defn))
		mc.Status.setZN(mc.A)
		mc.Status.Carry = mc.Status.Sign
	case ALR:
		mc.A &= mc.bus.Read(mc.resolve(defn))
		mc.A = mc.lsr(mc.A)
	case ARR:
		mc.A &= mc.bus.Read(mc.resolve(defn))
		mc.A = mc.ror(mc.A)
		mc.Status.Carry = mc.A&0x40 != 0
		mc.Status.Overflow = (mc.A>>6)&0x01 != (mc.A>>5)&0x01
	case AXS:
		v := mc.bus.Read(mc.resolve(defn))
		r := mc.A & mc.X
		mc.Status.Carry = r >= v
		mc.X = r - v
		mc.Status.setZN(mc.X)
	}
}
