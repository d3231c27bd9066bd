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

package mos6502

// Op identifies the operation performed by an instruction, independent of
// addressing mode.
type Op int

// List of operations. The undocumented operations that have stable
// behaviour follow the documented set.
const (
	ADC Op = iota
	AND
	ASL
	BCC
	BCS
	BEQ
	BIT
	BMI
	BNE
	BPL
	BRK
	BVC
	BVS
	CLC
	CLD
	CLI
	CLV
	CMP
	CPX
	CPY
	DEC
	DEX
	DEY
	EOR
	INC
	INX
	INY
	JMP
	JSR
	LDA
	LDX
	LDY
	LSR
	NOP
	ORA
	PHA
	PHP
	PLA
	PLP
	ROL
	ROR
	RTI
	RTS
	SBC
	SEC
	SED
	SEI
	STA
	STX
	STY
	TAX
	TAY
	TSX
	TXA
	TXS
	TYA

	// stable undocumented operations
	LAX
	SAX
	DCP
	ISC
	SLO
	RLA
	SRE
	RRA
	ANC
	ALR
	ARR
	AXS
)

// AddressingMode of an instruction.
type AddressingMode int

// List of addressing modes.
const (
	Implied AddressingMode = iota
	Accumulator
	Immediate
	ZeroPage
	ZeroPageX
	ZeroPageY
	Absolute
	AbsoluteX
	AbsoluteY
	Indirect
	IndexedIndirect // (zp,X)
	IndirectIndexed // (zp),Y
	Relative
)

// Definition of a single opcode.
type Definition struct {
	Op     Op
	Mode   AddressingMode
	Cycles int

	// read instructions take an extra cycle when indexing crosses a page
	PageSensitive bool

	Undocumented bool
}

// definitions is indexed by opcode. A nil entry is an undefined opcode with
// no stable behaviour (KIL and the unstable store/load group); what happens
// on one of those is decided by the tolerant-CPU preference.
var definitions = func() [256]*Definition {
	var d [256]*Definition

	def := func(opcode uint8, op Op, mode AddressingMode, cycles int, pageSensitive bool) {
		d[opcode] = &Definition{Op: op, Mode: mode, Cycles: cycles, PageSensitive: pageSensitive}
	}
	undoc := func(opcode uint8, op Op, mode AddressingMode, cycles int, pageSensitive bool) {
		d[opcode] = &Definition{Op: op, Mode: mode, Cycles: cycles, PageSensitive: pageSensitive, Undocumented: true}
	}

	// load/store
	def(0xa9, LDA, Immediate, 2, false)
	def(0xa5, LDA, ZeroPage, 3, false)
	def(0xb5, LDA, ZeroPageX, 4, false)
	def(0xad, LDA, Absolute, 4, false)
	def(0xbd, LDA, AbsoluteX, 4, true)
	def(0xb9, LDA, AbsoluteY, 4, true)
	def(0xa1, LDA, IndexedIndirect, 6, false)
	def(0xb1, LDA, IndirectIndexed, 5, true)
	def(0xa2, LDX, Immediate, 2, false)
	def(0xa6, LDX, ZeroPage, 3, false)
	def(0xb6, LDX, ZeroPageY, 4, false)
	def(0xae, LDX, Absolute, 4, false)
	def(0xbe, LDX, AbsoluteY, 4, true)
	def(0xa0, LDY, Immediate, 2, false)
	def(0xa4, LDY, ZeroPage, 3, false)
	def(0xb4, LDY, ZeroPageX, 4, false)
	def(0xac, LDY, Absolute, 4, false)
	def(0xbc, LDY, AbsoluteX, 4, true)
	def(0x85, STA, ZeroPage, 3, false)
	def(0x95, STA, ZeroPageX, 4, false)
	def(0x8d, STA, Absolute, 4, false)
	def(0x9d, STA, AbsoluteX, 5, false)
	def(0x99, STA, AbsoluteY, 5, false)
	def(0x81, STA, IndexedIndirect, 6, false)
	def(0x91, STA, IndirectIndexed, 6, false)
	def(0x86, STX, ZeroPage, 3, false)
	def(0x96, STX, ZeroPageY, 4, false)
	def(0x8e, STX, Absolute, 4, false)
	def(0x84, STY, ZeroPage, 3, false)
	def(0x94, STY, ZeroPageX, 4, false)
	def(0x8c, STY, Absolute, 4, false)

	// register transfers
	def(0xaa, TAX, Implied, 2, false)
	def(0xa8, TAY, Implied, 2, false)
	def(0xba, TSX, Implied, 2, false)
	def(0x8a, TXA, Implied, 2, false)
	def(0x9a, TXS, Implied, 2, false)
	def(0x98, TYA, Implied, 2, false)

	// stack
	def(0x48, PHA, Implied, 3, false)
	def(0x08, PHP, Implied, 3, false)
	def(0x68, PLA, Implied, 4, false)
	def(0x28, PLP, Implied, 4, false)

	// logic
	def(0x29, AND, Immediate, 2, false)
	def(0x25, AND, ZeroPage, 3, false)
	def(0x35, AND, ZeroPageX, 4, false)
	def(0x2d, AND, Absolute, 4, false)
	def(0x3d, AND, AbsoluteX, 4, true)
	def(0x39, AND, AbsoluteY, 4, true)
	def(0x21, AND, IndexedIndirect, 6, false)
	def(0x31, AND, IndirectIndexed, 5, true)
	def(0x49, EOR, Immediate, 2, false)
	def(0x45, EOR, ZeroPage, 3, false)
	def(0x55, EOR, ZeroPageX, 4, false)
	def(0x4d, EOR, Absolute, 4, false)
	def(0x5d, EOR, AbsoluteX, 4, true)
	def(0x59, EOR, AbsoluteY, 4, true)
	def(0x41, EOR, IndexedIndirect, 6, false)
	def(0x51, EOR, IndirectIndexed, 5, true)
	def(0x09, ORA, Immediate, 2, false)
	def(0x05, ORA, ZeroPage, 3, false)
	def(0x15, ORA, ZeroPageX, 4, false)
	def(0x0d, ORA, Absolute, 4, false)
	def(0x1d, ORA, AbsoluteX, 4, true)
	def(0x19, ORA, AbsoluteY, 4, true)
	def(0x01, ORA, IndexedIndirect, 6, false)
	def(0x11, ORA, IndirectIndexed, 5, true)
	def(0x24, BIT, ZeroPage, 3, false)
	def(0x2c, BIT, Absolute, 4, false)

	// arithmetic
	def(0x69, ADC, Immediate, 2, false)
	def(0x65, ADC, ZeroPage, 3, false)
	def(0x75, ADC, ZeroPageX, 4, false)
	def(0x6d, ADC, Absolute, 4, false)
	def(0x7d, ADC, AbsoluteX, 4, true)
	def(0x79, ADC, AbsoluteY, 4, true)
	def(0x61, ADC, IndexedIndirect, 6, false)
	def(0x71, ADC, IndirectIndexed, 5, true)
	def(0xe9, SBC, Immediate, 2, false)
	def(0xe5, SBC, ZeroPage, 3, false)
	def(0xf5, SBC, ZeroPageX, 4, false)
	def(0xed, SBC, Absolute, 4, false)
	def(0xfd, SBC, AbsoluteX, 4, true)
	def(0xf9, SBC, AbsoluteY, 4, true)
	def(0xe1, SBC, IndexedIndirect, 6, false)
	def(0xf1, SBC, IndirectIndexed, 5, true)
	def(0xc9, CMP, Immediate, 2, false)
	def(0xc5, CMP, ZeroPage, 3, false)
	def(0xd5, CMP, ZeroPageX, 4, false)
	def(0xcd, CMP, Absolute, 4, false)
	def(0xdd, CMP, AbsoluteX, 4, true)
	def(0xd9, CMP, AbsoluteY, 4, true)
	def(0xc1, CMP, IndexedIndirect, 6, false)
	def(0xd1, CMP, IndirectIndexed, 5, true)
	def(0xe0, CPX, Immediate, 2, false)
	def(0xe4, CPX, ZeroPage, 3, false)
	def(0xec, CPX, Absolute, 4, false)
	def(0xc0, CPY, Immediate, 2, false)
	def(0xc4, CPY, ZeroPage, 3, false)
	def(0xcc, CPY, Absolute, 4, false)

	// increments and decrements
	def(0xe6, INC, ZeroPage, 5, false)
	def(0xf6, INC, ZeroPageX, 6, false)
	def(0xee, INC, Absolute, 6, false)
	def(0xfe, INC, AbsoluteX, 7, false)
	def(0xe8, INX, Implied, 2, false)
	def(0xc8, INY, Implied, 2, false)
	def(0xc6, DEC, ZeroPage, 5, false)
	def(0xd6, DEC, ZeroPageX, 6, false)
	def(0xce, DEC, Absolute, 6, false)
	def(0xde, DEC, AbsoluteX, 7, false)
	def(0xca, DEX, Implied, 2, false)
	def(0x88, DEY, Implied, 2, false)

	// shifts
	def(0x0a, ASL, Accumulator, 2, false)
	def(0x06, ASL, ZeroPage, 5, false)
	def(0x16, ASL, ZeroPageX, 6, false)
	def(0x0e, ASL, Absolute, 6, false)
	def(0x1e, ASL, AbsoluteX, 7, false)
	def(0x4a, LSR, Accumulator, 2, false)
	def(0x46, LSR, ZeroPage, 5, false)
	def(0x56, LSR, ZeroPageX, 6, false)
	def(0x4e, LSR, Absolute, 6, false)
	def(0x5e, LSR, AbsoluteX, 7, false)
	def(0x2a, ROL, Accumulator, 2, false)
	def(0x26, ROL, ZeroPage, 5, false)
	def(0x36, ROL, ZeroPageX, 6, false)
	def(0x2e, ROL, Absolute, 6, false)
	def(0x3e, ROL, AbsoluteX, 7, false)
	def(0x6a, ROR, Accumulator, 2, false)
	def(0x66, ROR, ZeroPage, 5, false)
	def(0x76, ROR, ZeroPageX, 6, false)
	def(0x6e, ROR, Absolute, 6, false)
	def(0x7e, ROR, AbsoluteX, 7, false)

	// jumps and calls
	def(0x4c, JMP, Absolute, 3, false)
	def(0x6c, JMP, Indirect, 5, false)
	def(0x20, JSR, Absolute, 6, false)
	def(0x60, RTS, Implied, 6, false)

	// branches. cycle count is the not-taken case; taken and page-cross
	// penalties are applied during execution
	def(0x90, BCC, Relative, 2, false)
	def(0xb0, BCS, Relative, 2, false)
	def(0xf0, BEQ, Relative, 2, false)
	def(0x30, BMI, Relative, 2, false)
	def(0xd0, BNE, Relative, 2, false)
	def(0x10, BPL, Relative, 2, false)
	def(0x50, BVC, Relative, 2, false)
	def(0x70, BVS, Relative, 2, false)

	// status flag changes
	def(0x18, CLC, Implied, 2, false)
	def(0xd8, CLD, Implied, 2, false)
	def(0x58, CLI, Implied, 2, false)
	def(0xb8, CLV, Implied, 2, false)
	def(0x38, SEC, Implied, 2, false)
	def(0xf8, SED, Implied, 2, false)
	def(0x78, SEI, Implied, 2, false)

	// system
	def(0x00, BRK, Implied, 7, false)
	def(0x40, RTI, Implied, 6, false)
	def(0xea, NOP, Implied, 2, false)

	// undocumented: NOP variants
	for _, opcode := range []uint8{0x1a, 0x3a, 0x5a, 0x7a, 0xda, 0xfa} {
		undoc(opcode, NOP, Implied, 2, false)
	}
	for _, opcode := range []uint8{0x80, 0x82, 0x89, 0xc2, 0xe2} {
		undoc(opcode, NOP, Immediate, 2, false)
	}
	for _, opcode := range []uint8{0x04, 0x44, 0x64} {
		undoc(opcode, NOP, ZeroPage, 3, false)
	}
	for _, opcode := range []uint8{0x14, 0x34, 0x54, 0x74, 0xd4, 0xf4} {
		undoc(opcode, NOP, ZeroPageX, 4, false)
	}
	undoc(0x0c, NOP, Absolute, 4, false)
	for _, opcode := range []uint8{0x1c, 0x3c, 0x5c, 0x7c, 0xdc, 0xfc} {
		undoc(opcode, NOP, AbsoluteX, 4, true)
	}

	// undocumented: loads and stores
	undoc(0xa7, LAX, ZeroPage, 3, false)
	undoc(0xb7, LAX, ZeroPageY, 4, false)
	undoc(0xaf, LAX, Absolute, 4, false)
	undoc(0xbf, LAX, AbsoluteY, 4, true)
	undoc(0xa3, LAX, IndexedIndirect, 6, false)
	undoc(0xb3, LAX, IndirectIndexed, 5, true)
	undoc(0x87, SAX, ZeroPage, 3, false)
	undoc(0x97, SAX, ZeroPageY, 4, false)
	undoc(0x8f, SAX, Absolute, 4, false)
	undoc(0x83, SAX, IndexedIndirect, 6, false)

	// undocumented: read-modify-write combinations
	undoc(0xc7, DCP, ZeroPage, 5, false)
	undoc(0xd7, DCP, ZeroPageX, 6, false)
	undoc(0xcf, DCP, Absolute, 6, false)
	undoc(0xdf, DCP, AbsoluteX, 7, false)
	undoc(0xdb, DCP, AbsoluteY, 7, false)
	undoc(0xc3, DCP, IndexedIndirect, 8, false)
	undoc(0xd3, DCP, IndirectIndexed, 8, false)
	undoc(0xe7, ISC, ZeroPage, 5, false)
	undoc(0xf7, ISC, ZeroPageX, 6, false)
	undoc(0xef, ISC, Absolute, 6, false)
	undoc(0xff, ISC, AbsoluteX, 7, false)
	undoc(0xfb, ISC, AbsoluteY, 7, false)
	undoc(0xe3, ISC, IndexedIndirect, 8, false)
	undoc(0xf3, ISC, IndirectIndexed, 8, false)
	undoc(0x07, SLO, ZeroPage, 5, false)
	undoc(0x17, SLO, ZeroPageX, 6, false)
	undoc(0x0f, SLO, Absolute, 6, false)
	undoc(0x1f, SLO, AbsoluteX, 7, false)
	undoc(0x1b, SLO, AbsoluteY, 7, false)
	undoc(0x03, SLO, IndexedIndirect, 8, false)
	undoc(0x13, SLO, IndirectIndexed, 8, false)
	undoc(0x27, RLA, ZeroPage, 5, false)
	undoc(0x37, RLA, ZeroPageX, 6, false)
	undoc(0x2f, RLA, Absolute, 6, false)
	undoc(0x3f, RLA, AbsoluteX, 7, false)
	undoc(0x3b, RLA, AbsoluteY, 7, false)
	undoc(0x23, RLA, IndexedIndirect, 8, false)
	undoc(0x33, RLA, IndirectIndexed, 8, false)
	undoc(0x47, SRE, ZeroPage, 5, false)
	undoc(0x57, SRE, ZeroPageX, 6, false)
	undoc(0x4f, SRE, Absolute, 6, false)
	undoc(0x5f, SRE, AbsoluteX, 7, false)
	undoc(0x5b, SRE, AbsoluteY, 7, false)
	undoc(0x43, SRE, IndexedIndirect, 8, false)
	undoc(0x53, SRE, IndirectIndexed, 8, false)
	undoc(0x67, RRA, ZeroPage, 5, false)
	undoc(0x77, RRA, ZeroPageX, 6, false)
	undoc(0x6f, RRA, Absolute, 6, false)
	undoc(0x7f, RRA, AbsoluteX, 7, false)
	undoc(0x7b, RRA, AbsoluteY, 7, false)
	undoc(0x63, RRA, IndexedIndirect, 8, false)
	undoc(0x73, RRA, IndirectIndexed, 8, false)

	// undocumented: immediate-mode combinations
	undoc(0x0b, ANC, Immediate, 2, false)
	undoc(0x2b, ANC, Immediate, 2, false)
	undoc(0x4b, ALR, Immediate, 2, false)
	undoc(0x6b, ARR, Immediate, 2, false)
	undoc(0xcb, AXS, Immediate, 2, false)
	undoc(0xeb, SBC, Immediate, 2, false)

	return d
}()
