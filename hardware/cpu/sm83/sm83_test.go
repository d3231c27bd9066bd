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

package sm83_test

import (
	"testing"

	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware/cpu/sm83"
	"github.com/relicemu/relic/test"
)

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
	mc  *sm83.CPU
}

func newFixture(t *testing.T, tolerant bool, program ...uint8) *fixture {
	t.Helper()

	fix := &fixture{bus: &testBus{}}
	copy(fix.bus.mem[0x0100:], program)

	fix.mc = sm83.NewCPU(fix.bus, tolerant)
	fix.mc.Reset()

	return fix
}

func (fix *fixture) step(t *testing.T) int {
	t.Helper()
	cycles, err := fix.mc.Step()
	test.ExpectedSuccess(t, err)
	return cycles
}

func TestLoadQuarter(t *testing.T) {
	fix := newFixture(t, false,
		0x3e, 0x42, // LD A,$42
		0x47, // LD B,A
		0x70, // LD (HL),B
		0x4e, // LD C,(HL)
	)
	fix.mc.H = 0xc0
	fix.mc.L = 0x00

	test.Equate(t, fix.step(t), 8)
	test.Equate(t, fix.step(t), 4)
	test.Equate(t, fix.mc.B, 0x42)

	test.Equate(t, fix.step(t), 8)
	test.Equate(t, fix.bus.mem[0xc000], 0x42)

	test.Equate(t, fix.step(t), 8)
	test.Equate(t, fix.mc.C, 0x42)
}

func TestHalfCarry(t *testing.T) {
	fix := newFixture(t, false,
		0x3e, 0x0f, // LD A,$0f
		0xc6, 0x01, // ADD A,$01
		0xd6, 0x01, // SUB $01
	)

	fix.step(t)
	fix.step(t)
	test.Equate(t, fix.mc.A, 0x10)
	test.Equate(t, fix.mc.F.HalfCarry, true)
	test.Equate(t, fix.mc.F.Subtract, false)

	fix.step(t)
	test.Equate(t, fix.mc.A, 0x0f)
	test.Equate(t, fix.mc.F.HalfCarry, true)
	test.Equate(t, fix.mc.F.Subtract, true)
}

func TestDAA(t *testing.T) {
	fix := newFixture(t, false,
		0x3e, 0x45, // LD A,$45
		0xc6, 0x38, // ADD A,$38
		0x27, // DAA -> $83
	)

	fix.step(t)
	fix.step(t)
	fix.step(t)
	test.Equate(t, fix.mc.A, 0x83)
	test.Equate(t, fix.mc.F.Carry, false)
}

func TestHLAutoIncrement(t *testing.T) {
	fix := newFixture(t, false,
		0x21, 0x00, 0xc0, // LD HL,$c000
		0x3e, 0x11, // LD A,$11
		0x22, // LD (HL+),A
		0x22, // LD (HL+),A
	)

	for i := 0; i < 4; i++ {
		fix.step(t)
	}
	test.Equate(t, fix.bus.mem[0xc000], 0x11)
	test.Equate(t, fix.bus.mem[0xc001], 0x11)
	test.Equate(t, fix.mc.L, 0x02)
}

func TestConditionalTiming(t *testing.T) {
	fix := newFixture(t, false,
		0xaf,       // XOR A - sets zero
		0x20, 0x05, // JR NZ - not taken
		0x28, 0x00, // JR Z - taken
	)

	fix.step(t)
	test.Equate(t, fix.step(t), 8)
	test.Equate(t, fix.step(t), 12)
}

func TestCBPage(t *testing.T) {
	fix := newFixture(t, false,
		0x3e, 0x81, // LD A,$81
		0xcb, 0x37, // SWAP A
		0xcb, 0x47, // BIT 0,A
		0xcb, 0x87, // RES 0,A
	)

	fix.step(t)
	test.Equate(t, fix.step(t), 8)
	test.Equate(t, fix.mc.A, 0x18)

	fix.step(t)
	test.Equate(t, fix.mc.F.Zero, true)

	fix.step(t)
	test.Equate(t, fix.mc.A, 0x18)
}

func TestCallStack(t *testing.T) {
	fix := newFixture(t, false,
		0xcd, 0x00, 0x02, // CALL $0200
	)
	fix.bus.mem[0x0200] = 0xc9 // RET

	test.Equate(t, fix.step(t), 24)
	test.Equate(t, fix.mc.PC, 0x0200)
	test.Equate(t, fix.step(t), 16)
	test.Equate(t, fix.mc.PC, 0x0103)
}

func TestInterruptDispatch(t *testing.T) {
	fix := newFixture(t, false,
		0xfb, // EI
		0x00, // NOP - EI takes effect after this
		0x00, // NOP
	)
	fix.bus.mem[0xffff] = 0x01 // vblank enabled
	fix.bus.mem[0xff0f] = 0x01 // vblank requested

	// EI is delayed one instruction: the first NOP runs normally
	fix.step(t)
	fix.step(t)
	test.Equate(t, fix.mc.PC, 0x0102)

	cycles := fix.step(t)
	test.Equate(t, cycles, 20)
	test.Equate(t, fix.mc.PC, 0x0040)
	test.Equate(t, fix.mc.IME, false)
	test.Equate(t, fix.bus.mem[0xff0f], 0x00)
}

func TestHaltWake(t *testing.T) {
	fix := newFixture(t, false,
		0x76, // HALT
	)
	fix.bus.mem[0xffff] = 0x04 // timer enabled

	fix.step(t)
	test.Equate(t, fix.mc.Halted, true)

	// no interrupt requested: the CPU idles
	fix.step(t)
	test.Equate(t, fix.mc.Halted, true)

	// requesting wakes the CPU even with IME clear
	fix.bus.mem[0xff0f] = 0x04
	fix.step(t)
	test.Equate(t, fix.mc.Halted, false)
}

func TestUnimplementedOpcodePolicy(t *testing.T) {
	strict := newFixture(t, false, 0xd3)
	_, err := strict.mc.Step()
	test.ExpectedFailure(t, err)
	test.ExpectedSuccess(t, curated.Is(err, sm83.UnimplementedOpcode))

	tolerant := newFixture(t, true, 0xd3, 0x3e, 0x42)
	cycles, err := tolerant.mc.Step()
	test.ExpectedSuccess(t, err)
	test.Equate(t, cycles, 4)
	tolerant.step(t)
	test.Equate(t, tolerant.mc.A, 0x42)
}

func TestSerializeRoundTrip(t *testing.T) {
	fix := newFixture(t, false,
		0x3e, 0x42, // LD A,$42
		0x06, 0x07, // LD B,$07
	)
	fix.step(t)
	fix.step(t)

	data := make([]byte, sm83.SerializeSize)
	fix.mc.Serialize(data)

	other := newFixture(t, false)
	other.mc.Deserialize(data)
	test.Equate(t, other.mc.A, 0x42)
	test.Equate(t, other.mc.B, 0x07)
	test.Equate(t, other.mc.PC, fix.mc.PC)
}
