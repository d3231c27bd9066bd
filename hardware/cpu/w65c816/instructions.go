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

package w65c816

// Op identifies the operation performed by an instruction, independent of
// addressing mode.
type Op int

// List of operations. Unlike the 6502, the 65816 has no undefined opcodes;
// all 256 entries in the decode table are populated.
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
	BRA
	BRK
	BRL
	BVC
	BVS
	CLC
	CLD
	CLI
	CLV
	CMP
	COP
	CPX
	CPY
	DEC
	DEX
	DEY
	EOR
	INC
	INX
	INY
	JML
	JMP
	JSL
	JSR
	LDA
	LDX
	LDY
	LSR
	MVN
	MVP
	NOP
	ORA
	PEA
	PEI
	PER
	PHA
	PHB
	PHD
	PHK
	PHP
	PHX
	PHY
	PLA
	PLB
	PLD
	PLP
	PLX
	PLY
	REP
	ROL
	ROR
	RTI
	RTL
	RTS
	SBC
	SEC
	SED
	SEI
	SEP
	STA
	STP
	STX
	STY
	STZ
	TAX
	TAY
	TCD
	TCS
	TDC
	TRB
	TSB
	TSC
	TSX
	TXA
	TXS
	TXY
	TYA
	TYX
	WAI
	WDM
	XBA
	XCE
)

// AddressingMode of an instruction.
type AddressingMode int

// List of addressing modes. ImmediateM and ImmediateX operands follow the
// current accumulator and index register widths; Immediate8 is always one
// byte.
const (
	Implied AddressingMode = iota
	Accumulator
	ImmediateM
	ImmediateX
	Immediate8
	Direct
	DirectX
	DirectY
	DirectIndirect             // (d)
	DirectIndirectLong         // [d]
	DirectIndexedIndirect      // (d,X)
	DirectIndirectIndexed      // (d),Y
	DirectIndirectLongIndexed  // [d],Y
	Absolute
	AbsoluteX
	AbsoluteY
	AbsoluteLong
	AbsoluteLongX
	StackRelative                // d,S
	StackRelativeIndirectIndexed // (d,S),Y
	AbsoluteIndirect             // JMP (a)
	AbsoluteIndirectLong         // JML [a]
	AbsoluteIndexedIndirect      // JMP/JSR (a,X)
	Relative
	RelativeLong
	BlockMove
)

// Definition of a single opcode. Cycles is the 8-bit, no-penalty base
// count; wide memory accesses, wide index accesses, a non-aligned direct
// page register and page crossings each add their cycle during execution.
type Definition struct {
	Op     Op
	Mode   AddressingMode
	Cycles int

	// read instructions take an extra cycle when indexing crosses a page
	// or when the index registers are 16 bits wide
	PageSensitive bool
}

var definitions = func() [256]Definition {
	var d [256]Definition

	def := func(opcode uint8, op Op, mode AddressingMode, cycles int) {
		d[opcode] = Definition{Op: op, Mode: mode, Cycles: cycles}
	}
	defp := func(opcode uint8, op Op, mode AddressingMode, cycles int) {
		d[opcode] = Definition{Op: op, Mode: mode, Cycles: cycles, PageSensitive: true}
	}

	// the ALU group repeats across a column pattern; laying each operation
	// out explicitly keeps the table greppable by opcode
	alu := func(base uint8, op Op) {
		def(base|0x01, op, DirectIndexedIndirect, 6)
		def(base|0x03, op, StackRelative, 4)
		def(base|0x05, op, Direct, 3)
		def(base|0x07, op, DirectIndirectLong, 6)
		def(base|0x09, op, ImmediateM, 2)
		def(base|0x0d, op, Absolute, 4)
		def(base|0x0f, op, AbsoluteLong, 5)
		defp(base|0x11, op, DirectIndirectIndexed, 5)
		def(base|0x12, op, DirectIndirect, 5)
		def(base|0x13, op, StackRelativeIndirectIndexed, 7)
		def(base|0x15, op, DirectX, 4)
		def(base|0x17, op, DirectIndirectLongIndexed, 6)
		defp(base|0x19, op, AbsoluteY, 4)
		defp(base|0x1d, op, AbsoluteX, 4)
		def(base|0x1f, op, AbsoluteLongX, 5)
	}
	alu(0x00, ORA)
	alu(0x20, AND)
	alu(0x40, EOR)
	alu(0x60, ADC)
	alu(0xc0, CMP)
	alu(0xe0, SBC)

	// LDA shares the ALU column pattern
	alu(0xa0, LDA)

	// STA has the same shape but stores never take the page-cross penalty
	def(0x81, STA, DirectIndexedIndirect, 6)
	def(0x83, STA, StackRelative, 4)
	def(0x85, STA, Direct, 3)
	def(0x87, STA, DirectIndirectLong, 6)
	def(0x8d, STA, Absolute, 4)
	def(0x8f, STA, AbsoluteLong, 5)
	def(0x91, STA, DirectIndirectIndexed, 6)
	def(0x92, STA, DirectIndirect, 5)
	def(0x93, STA, StackRelativeIndirectIndexed, 7)
	def(0x95, STA, DirectX, 4)
	def(0x97, STA, DirectIndirectLongIndexed, 6)
	def(0x99, STA, AbsoluteY, 5)
	def(0x9d, STA, AbsoluteX, 5)
	def(0x9f, STA, AbsoluteLongX, 5)

	// read-modify-write group
	rmw := func(base uint8, op Op) {
		def(base|0x06, op, Direct, 5)
		def(base|0x0a, op, Accumulator, 2)
		def(base|0x0e, op, Absolute, 6)
		def(base|0x16, op, DirectX, 6)
		def(base|0x1e, op, AbsoluteX, 7)
	}
	rmw(0x00, ASL)
	rmw(0x20, ROL)
	rmw(0x40, LSR)
	rmw(0x60, ROR)
	def(0xc6, DEC, Direct, 5)
	def(0x3a, DEC, Accumulator, 2)
	def(0xce, DEC, Absolute, 6)
	def(0xd6, DEC, DirectX, 6)
	def(0xde, DEC, AbsoluteX, 7)
	def(0xe6, INC, Direct, 5)
	def(0x1a, INC, Accumulator, 2)
	def(0xee, INC, Absolute, 6)
	def(0xf6, INC, DirectX, 6)
	def(0xfe, INC, AbsoluteX, 7)

	// index loads and stores
	def(0xa2, LDX, ImmediateX, 2)
	def(0xa6, LDX, Direct, 3)
	def(0xae, LDX, Absolute, 4)
	def(0xb6, LDX, DirectY, 4)
	defp(0xbe, LDX, AbsoluteY, 4)
	def(0xa0, LDY, ImmediateX, 2)
	def(0xa4, LDY, Direct, 3)
	def(0xac, LDY, Absolute, 4)
	def(0xb4, LDY, DirectX, 4)
	defp(0xbc, LDY, AbsoluteX, 4)
	def(0x86, STX, Direct, 3)
	def(0x8e, STX, Absolute, 4)
	def(0x96, STX, DirectY, 4)
	def(0x84, STY, Direct, 3)
	def(0x8c, STY, Absolute, 4)
	def(0x94, STY, DirectX, 4)
	def(0x64, STZ, Direct, 3)
	def(0x74, STZ, DirectX, 4)
	def(0x9c, STZ, Absolute, 4)
	def(0x9e, STZ, AbsoluteX, 5)

	// compares against index registers
	def(0xc0, CPY, ImmediateX, 2)
	def(0xc4, CPY, Direct, 3)
	def(0xcc, CPY, Absolute, 4)
	def(0xe0, CPX, ImmediateX, 2)
	def(0xe4, CPX, Direct, 3)
	def(0xec, CPX, Absolute, 4)

	// bit tests
	def(0x24, BIT, Direct, 3)
	def(0x2c, BIT, Absolute, 4)
	def(0x34, BIT, DirectX, 4)
	defp(0x3c, BIT, AbsoluteX, 4)
	def(0x89, BIT, ImmediateM, 2)
	def(0x04, TSB, Direct, 5)
	def(0x0c, TSB, Absolute, 6)
	def(0x14, TRB, Direct, 5)
	def(0x1c, TRB, Absolute, 6)

	// register transfers
	def(0xaa, TAX, Implied, 2)
	def(0xa8, TAY, Implied, 2)
	def(0xba, TSX, Implied, 2)
	def(0x8a, TXA, Implied, 2)
	def(0x9a, TXS, Implied, 2)
	def(0x9b, TXY, Implied, 2)
	def(0x98, TYA, Implied, 2)
	def(0xbb, TYX, Implied, 2)
	def(0x5b, TCD, Implied, 2)
	def(0x1b, TCS, Implied, 2)
	def(0x7b, TDC, Implied, 2)
	def(0x3b, TSC, Implied, 2)
	def(0xeb, XBA, Implied, 3)
	def(0xfb, XCE, Implied, 2)

	// stack operations
	def(0x48, PHA, Implied, 3)
	def(0x8b, PHB, Implied, 3)
	def(0x0b, PHD, Implied, 4)
	def(0x4b, PHK, Implied, 3)
	def(0x08, PHP, Implied, 3)
	def(0xda, PHX, Implied, 3)
	def(0x5a, PHY, Implied, 3)
	def(0x68, PLA, Implied, 4)
	def(0xab, PLB, Implied, 4)
	def(0x2b, PLD, Implied, 5)
	def(0x28, PLP, Implied, 4)
	def(0xfa, PLX, Implied, 4)
	def(0x7a, PLY, Implied, 4)
	def(0xf4, PEA, Implied, 5)
	def(0xd4, PEI, Direct, 6)
	def(0x62, PER, RelativeLong, 6)

	// jumps and calls
	def(0x4c, JMP, Absolute, 3)
	def(0x6c, JMP, AbsoluteIndirect, 5)
	def(0x7c, JMP, AbsoluteIndexedIndirect, 6)
	def(0x5c, JML, AbsoluteLong, 4)
	def(0xdc, JML, AbsoluteIndirectLong, 6)
	def(0x20, JSR, Absolute, 6)
	def(0xfc, JSR, AbsoluteIndexedIndirect, 8)
	def(0x22, JSL, AbsoluteLong, 8)
	def(0x60, RTS, Implied, 6)
	def(0x6b, RTL, Implied, 6)

	// branches
	def(0x90, BCC, Relative, 2)
	def(0xb0, BCS, Relative, 2)
	def(0xf0, BEQ, Relative, 2)
	def(0x30, BMI, Relative, 2)
	def(0xd0, BNE, Relative, 2)
	def(0x10, BPL, Relative, 2)
	def(0x80, BRA, Relative, 2)
	def(0x50, BVC, Relative, 2)
	def(0x70, BVS, Relative, 2)
	def(0x82, BRL, RelativeLong, 4)

	// status flag changes
	def(0x18, CLC, Implied, 2)
	def(0xd8, CLD, Implied, 2)
	def(0x58, CLI, Implied, 2)
	def(0xb8, CLV, Implied, 2)
	def(0x38, SEC, Implied, 2)
	def(0xf8, SED, Implied, 2)
	def(0x78, SEI, Implied, 2)
	def(0xc2, REP, Immediate8, 3)
	def(0xe2, SEP, Immediate8, 3)

	// system
	def(0x00, BRK, Immediate8, 7)
	def(0x02, COP, Immediate8, 7)
	def(0x40, RTI, Implied, 6)
	def(0xea, NOP, Implied, 2)
	def(0x42, WDM, Immediate8, 2)
	def(0xcb, WAI, Implied, 3)
	def(0xdb, STP, Implied, 3)

	// increments and decrements of index registers
	def(0xe8, INX, Implied, 2)
	def(0xc8, INY, Implied, 2)
	def(0xca, DEX, Implied, 2)
	def(0x88, DEY, Implied, 2)

	// block moves
	def(0x54, MVN, BlockMove, 7)
	def(0x44, MVP, BlockMove, 7)

	return d
}()
