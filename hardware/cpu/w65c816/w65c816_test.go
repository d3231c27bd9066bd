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

package w65c816_test

import (
	"testing"

	"github.com/relicemu/relic/hardware/cpu/w65c816"
	"github.com/relicemu/relic/hardware/irq"
	"github.com/relicemu/relic/test"
)

// 16MB flat memory
type testBus struct {
	mem []uint8
}

func (b *testBus) Read(address uint32) uint8 {
	return b.mem[address&0xffffff]
}

func (b *testBus) Write(address uint32, data uint8) {
	b.mem[address&0xffffff] = data
}

type fixture struct {
	bus *testBus
	mc  *w65c816.CPU
	nmi *irq.Line
	irq *irq.Line
}

func newFixture(t *testing.T, program ...uint8) *fixture {
	t.Helper()

	fix := &fixture{
		bus: &testBus{mem: make([]uint8, 1<<24)},
		nmi: irq.NewLine("NMI", irq.Edge, false),
		irq: irq.NewLine("IRQ", irq.Level, true),
	}

	fix.bus.mem[0xfffc] = 0x00
	fix.bus.mem[0xfffd] = 0x80
	copy(fix.bus.mem[0x8000:], program)

	fix.mc = w65c816.NewCPU(fix.bus, fix.nmi, fix.irq)
	fix.mc.Reset()

	return fix
}

func (fix *fixture) step(t *testing.T) int {
	t.Helper()
	cycles, err := fix.mc.Step()
	test.ExpectedSuccess(t, err)
	return cycles
}

// enter native mode with 16-bit accumulator and index registers
func (fix *fixture) native(t *testing.T) {
	t.Helper()
	for i := 0; i < 3; i++ {
		fix.step(t)
	}
	test.Equate(t, fix.mc.E, false)
}

func TestEmulationModeBoot(t *testing.T) {
	fix := newFixture(t,
		0xa9, 0x42, // LDA #$42 - 8-bit immediate in emulation mode
	)

	test.Equate(t, fix.mc.E, true)
	test.Equate(t, fix.mc.PC, 0x8000)

	test.Equate(t, fix.step(t), 2)
	test.Equate(t, fix.mc.C, 0x42)
}

func TestModeSwitch(t *testing.T) {
	fix := newFixture(t,
		0x18,       // CLC
		0xfb,       // XCE - enter native mode
		0xc2, 0x30, // REP #$30 - 16-bit accumulator and indexes
		0xa9, 0x34, 0x12, // LDA #$1234
	)

	fix.step(t)
	fix.step(t)
	test.Equate(t, fix.mc.E, false)
	test.Equate(t, fix.mc.Status.Carry, true)

	fix.step(t)
	test.Equate(t, fix.mc.Status.MemoryWidth, false)

	// 16-bit immediate load costs the wide-access cycle
	test.Equate(t, fix.step(t), 3)
	test.Equate(t, fix.mc.C, 0x1234)
}

func TestWideArithmetic(t *testing.T) {
	fix := newFixture(t,
		0x18, 0xfb, 0xc2, 0x30, // native mode, 16-bit everything
		0x18,             // CLC
		0xa9, 0xff, 0x7f, // LDA #$7fff
		0x69, 0x01, 0x00, // ADC #$0001 - overflow into negative
	)
	fix.native(t)

	fix.step(t)
	fix.step(t)
	fix.step(t)
	test.Equate(t, fix.mc.C, 0x8000)
	test.Equate(t, fix.mc.Status.Overflow, true)
	test.Equate(t, fix.mc.Status.Sign, true)
	test.Equate(t, fix.mc.Status.Carry, false)
}

func TestNarrowingClearsIndexHighBytes(t *testing.T) {
	fix := newFixture(t,
		0x18, 0xfb, 0xc2, 0x30,
		0xa2, 0x34, 0x12, // LDX #$1234
		0xe2, 0x10, // SEP #$10 - narrow indexes
	)
	fix.native(t)

	fix.step(t)
	test.Equate(t, fix.mc.X, 0x1234)

	fix.step(t)
	test.Equate(t, fix.mc.X, 0x34)
}

func TestLongAddressing(t *testing.T) {
	fix := newFixture(t,
		0x18, 0xfb, 0xc2, 0x30,
		0xa9, 0xcd, 0xab, // LDA #$abcd
		0x8f, 0x00, 0x00, 0x7e, // STA $7e0000
	)
	fix.native(t)

	fix.step(t)
	fix.step(t)
	test.Equate(t, fix.bus.mem[0x7e0000], 0xcd)
	test.Equate(t, fix.bus.mem[0x7e0001], 0xab)
}

func TestDirectPagePenalty(t *testing.T) {
	fix := newFixture(t,
		0xa5, 0x10, // LDA $10 - D is zero, no penalty
		0xa9, 0x80, // LDA #$80 (low byte of new D)
		0x48,       // PHA
		0x2b,       // PLD - D = non-aligned value via stack
		0xa5, 0x10, // LDA $10 - penalty cycle
	)

	test.Equate(t, fix.step(t), 3)

	fix.step(t)
	fix.step(t)
	fix.step(t)
	test.Equate(t, fix.mc.D, 0x0080)
	test.Equate(t, fix.step(t), 4)
}

func TestSubroutineLong(t *testing.T) {
	fix := newFixture(t,
		0x22, 0x00, 0x90, 0x02, // JSL $029000
	)
	fix.bus.mem[0x029000] = 0x6b // RTL

	fix.step(t)
	test.Equate(t, fix.mc.PBR, 0x02)
	test.Equate(t, fix.mc.PC, 0x9000)

	fix.step(t)
	test.Equate(t, fix.mc.PBR, 0x00)
	test.Equate(t, fix.mc.PC, 0x8004)
}

func TestBlockMove(t *testing.T) {
	fix := newFixture(t,
		0x18, 0xfb, 0xc2, 0x30,
		0xa9, 0x03, 0x00, // LDA #$0003 - move 4 bytes
		0xa2, 0x00, 0x20, // LDX #$2000
		0xa0, 0x00, 0x30, // LDY #$3000
		0x54, 0x00, 0x00, // MVN $00,$00
	)
	copy(fix.bus.mem[0x2000:], []uint8{1, 2, 3, 4})
	fix.native(t)

	fix.step(t)
	fix.step(t)
	fix.step(t)
	cycles := fix.step(t)
	test.Equate(t, cycles, 28)
	test.Equate(t, fix.bus.mem[0x3000], 1)
	test.Equate(t, fix.bus.mem[0x3003], 4)
	test.Equate(t, fix.mc.C, 0xffff)
	test.Equate(t, fix.mc.X, 0x2004)
	test.Equate(t, fix.mc.Y, 0x3004)
}

func TestNMIVector(t *testing.T) {
	fix := newFixture(t,
		0x18, 0xfb, // native mode
		0xea, // NOP
	)
	fix.bus.mem[0xffea] = 0x00
	fix.bus.mem[0xffeb] = 0xa0 // native NMI handler at $a000

	fix.step(t)
	fix.step(t)
	fix.nmi.Assert(true)

	cycles := fix.step(t)
	test.Equate(t, cycles, 8)
	test.Equate(t, fix.mc.PC, 0xa000)
	test.Equate(t, fix.mc.PBR, 0x00)
}

func TestWAI(t *testing.T) {
	fix := newFixture(t,
		0xcb, // WAI
	)
	fix.bus.mem[0xfffa] = 0x00
	fix.bus.mem[0xfffb] = 0x90

	fix.step(t)
	test.Equate(t, fix.mc.Waiting, true)

	// idles until an interrupt arrives
	fix.step(t)
	test.Equate(t, fix.mc.Waiting, true)

	fix.nmi.Assert(true)
	fix.step(t)
	test.Equate(t, fix.mc.Waiting, false)
	test.Equate(t, fix.mc.PC, 0x9000)
}

func TestSerializeRoundTrip(t *testing.T) {
	fix := newFixture(t,
		0x18, 0xfb, 0xc2, 0x30,
		0xa9, 0x34, 0x12, // LDA #$1234
	)
	fix.native(t)
	fix.step(t)

	data := make([]byte, w65c816.SerializeSize)
	fix.mc.Serialize(data)

	other := newFixture(t)
	other.mc.Deserialize(data)
	test.Equate(t, other.mc.C, 0x1234)
	test.Equate(t, other.mc.E, false)
	test.Equate(t, other.mc.PC, fix.mc.PC)
}
