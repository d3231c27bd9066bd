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

package mos6502_test

import (
	"testing"

	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware/cpu/mos6502"
	"github.com/relicemu/relic/hardware/irq"
	"github.com/relicemu/relic/test"
)

// flat 64k of RAM
type testBus struct {
	mem [0x10000]uint8
}

func (b *testBus) Read(address uint16) uint8 {
	return b.mem[address]
}

func (b *testBus) Write(address uint16, data uint8) {
	b.mem[address] = data
}

type fixture struct {
	bus *testBus
	mc  *mos6502.CPU
	nmi *irq.Line
	irq *irq.Line
}

func newFixture(t *testing.T, tolerant bool, program ...uint8) *fixture {
	t.Helper()

	fix := &fixture{
		bus: &testBus{},
		nmi: &irq.Line{Label: "NMI", Sense: irq.Edge},
		irq: &irq.Line{Label: "IRQ", Sense: irq.Level, Maskable: true},
	}

	// reset vector points at the program origin
	fix.bus.mem[0xfffc] = 0x00
	fix.bus.mem[0xfffd] = 0x80
	copy(fix.bus.mem[0x8000:], program)

	fix.mc = mos6502.NewCPU(fix.bus, fix.nmi, fix.irq, false, tolerant)
	fix.mc.Reset()

	return fix
}

// step the CPU, failing the test on error, and return cycles consumed
func (fix *fixture) step(t *testing.T) int {
	t.Helper()
	cycles, err := fix.mc.Step()
	test.ExpectedSuccess(t, err)
	return cycles
}

func TestLoadStoreFlags(t *testing.T) {
	fix := newFixture(t, false,
		0xa9, 0x00, // LDA #$00
		0xa9, 0x80, // LDA #$80
		0x8d, 0x00, 0x02, // STA $0200
	)

	test.Equate(t, fix.step(t), 2)
	test.Equate(t, fix.mc.Status.Zero, true)
	test.Equate(t, fix.mc.Status.Sign, false)

	test.Equate(t, fix.step(t), 2)
	test.Equate(t, fix.mc.Status.Zero, false)
	test.Equate(t, fix.mc.Status.Sign, true)

	test.Equate(t, fix.step(t), 4)
	test.Equate(t, fix.bus.mem[0x0200], 0x80)
}

func TestArithmetic(t *testing.T) {
	fix := newFixture(t, false,
		0x18,       // CLC
		0xa9, 0x50, // LDA #$50
		0x69, 0x50, // ADC #$50 -> $a0, overflow set
		0x38,       // SEC
		0xe9, 0xa0, // SBC #$a0 -> $00, zero and carry set
	)

	fix.step(t)
	fix.step(t)
	fix.step(t)
	test.Equate(t, fix.mc.A, 0xa0)
	test.Equate(t, fix.mc.Status.Overflow, true)
	test.Equate(t, fix.mc.Status.Carry, false)

	fix.step(t)
	fix.step(t)
	test.Equate(t, fix.mc.A, 0x00)
	test.Equate(t, fix.mc.Status.Zero, true)
	test.Equate(t, fix.mc.Status.Carry, true)
}

func TestPageCrossPenalty(t *testing.T) {
	fix := newFixture(t, false,
		0xa2, 0x01, // LDX #$01
		0xbd, 0xff, 0x02, // LDA $02ff,X - crosses into $0300
		0xbd, 0x00, 0x02, // LDA $0200,X - same page
	)

	fix.step(t)
	test.Equate(t, fix.step(t), 5)
	test.Equate(t, fix.step(t), 4)
}

func TestBranchPenalties(t *testing.T) {
	fix := newFixture(t, false,
		0xa9, 0x01, // LDA #$01 - clears zero
		0xf0, 0x10, // BEQ +16 - not taken
		0xd0, 0x02, // BNE +2  - taken, same page
	)

	fix.step(t)
	test.Equate(t, fix.step(t), 2)
	test.Equate(t, fix.step(t), 3)
	test.Equate(t, fix.mc.PC, 0x8008)
}

func TestJMPIndirectPageWrap(t *testing.T) {
	fix := newFixture(t, false,
		0x6c, 0xff, 0x02, // JMP ($02ff)
	)
	fix.bus.mem[0x02ff] = 0x34
	fix.bus.mem[0x0300] = 0x12 // would be used by a correct fetch
	fix.bus.mem[0x0200] = 0x56 // actually used: high byte wraps to page start

	test.Equate(t, fix.step(t), 5)
	test.Equate(t, fix.mc.PC, 0x5634)
}

func TestJSRAndRTS(t *testing.T) {
	fix := newFixture(t, false,
		0x20, 0x10, 0x80, // JSR $8010
	)
	fix.bus.mem[0x8010] = 0x60 // RTS

	test.Equate(t, fix.step(t), 6)
	test.Equate(t, fix.mc.PC, 0x8010)
	test.Equate(t, fix.step(t), 6)
	test.Equate(t, fix.mc.PC, 0x8003)
}

func TestInterrupts(t *testing.T) {
	fix := newFixture(t, false,
		0xa9, 0x01, // LDA #$01
		0xea, // NOP
	)
	fix.bus.mem[0xfffa] = 0x00
	fix.bus.mem[0xfffb] = 0x90 // NMI handler at $9000
	fix.bus.mem[0xfffe] = 0x00
	fix.bus.mem[0xffff] = 0xa0 // IRQ handler at $a000

	// NMI asserted mid-instruction is serviced at the next boundary
	fix.step(t)
	fix.nmi.Assert(true)
	test.Equate(t, fix.step(t), 7)
	test.Equate(t, fix.mc.PC, 0x9000)
	test.Equate(t, fix.mc.Status.InterruptDisable, true)

	// NMI is edge sensitive: holding the line does not retrigger
	fix.bus.mem[0x9000] = 0xea
	cycles, err := fix.mc.Step()
	test.ExpectedSuccess(t, err)
	test.Equate(t, cycles, 2)

	// IRQ is masked while the I flag is set
	fix.irq.Assert(true)
	fix.bus.mem[0x9001] = 0x58 // CLI
	fix.step(t)
	test.Equate(t, fix.step(t), 7)
	test.Equate(t, fix.mc.PC, 0xa000)
}

func TestUndocumented(t *testing.T) {
	fix := newFixture(t, false,
		0xa7, 0x10, // LAX $10
		0x87, 0x20, // SAX $20
	)
	fix.bus.mem[0x0010] = 0x5a

	fix.step(t)
	test.Equate(t, fix.mc.A, 0x5a)
	test.Equate(t, fix.mc.X, 0x5a)

	fix.step(t)
	test.Equate(t, fix.bus.mem[0x0020], 0x5a)
}

func TestUnimplementedOpcodePolicy(t *testing.T) {
	// 0x02 is a KIL opcode with no stable behaviour

	strict := newFixture(t, false, 0x02)
	_, err := strict.mc.Step()
	test.ExpectedFailure(t, err)
	test.ExpectedSuccess(t, curated.Is(err, mos6502.UnimplementedOpcode))

	tolerant := newFixture(t, true, 0x02, 0xa9, 0x42)
	cycles, err := tolerant.mc.Step()
	test.ExpectedSuccess(t, err)
	test.Equate(t, cycles, 2)

	// execution continues at the next instruction
	tolerant.step(t)
	test.Equate(t, tolerant.mc.A, 0x42)
}

func TestSerializeRoundTrip(t *testing.T) {
	fix := newFixture(t, false,
		0xa9, 0x42, // LDA #$42
		0x48, // PHA
	)
	fix.step(t)
	fix.step(t)

	data := make([]byte, mos6502.SerializeSize)
	fix.mc.Serialize(data)

	other := newFixture(t, false)
	other.mc.Deserialize(data)
	test.Equate(t, other.mc.A, 0x42)
	test.Equate(t, other.mc.PC, fix.mc.PC)
	test.Equate(t, other.mc.SP, fix.mc.SP)
}
