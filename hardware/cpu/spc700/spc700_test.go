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

package spc700_test

import (
	"testing"

	"github.com/relicemu/relic/hardware/cpu/spc700"
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
	mc  *spc700.CPU
}

func newFixture(t *testing.T, program ...uint8) *fixture {
	t.Helper()

	fix := &fixture{bus: &testBus{}}
	copy(fix.bus.mem[0x0200:], program)

	fix.mc = spc700.NewCPU(fix.bus)
	fix.mc.Reset()
	fix.mc.PC = 0x0200

	return fix
}

func (fix *fixture) step(t *testing.T) int {
	t.Helper()
	cycles, err := fix.mc.Step()
	test.ExpectedSuccess(t, err)
	return cycles
}

func TestALUColumn(t *testing.T) {
	fix := newFixture(t,
		0xe8, 0x0f, // MOV A,#$0f
		0x08, 0xf0, // OR A,#$f0
		0x28, 0x3c, // AND A,#$3c
		0x48, 0xff, // EOR A,#$ff
	)

	fix.step(t)
	test.Equate(t, fix.step(t), 2)
	test.Equate(t, fix.mc.A, 0xff)

	fix.step(t)
	test.Equate(t, fix.mc.A, 0x3c)

	fix.step(t)
	test.Equate(t, fix.mc.A, 0xc3)
	test.Equate(t, fix.mc.PSW.Sign, true)
}

func TestDirectPageFlag(t *testing.T) {
	fix := newFixture(t,
		0xe8, 0x42, // MOV A,#$42
		0xc4, 0x10, // MOV $10,A - page 0
		0x40,       // SETP
		0xc4, 0x10, // MOV $10,A - page 1
	)

	fix.step(t)
	fix.step(t)
	test.Equate(t, fix.bus.mem[0x0010], 0x42)

	fix.step(t)
	fix.step(t)
	test.Equate(t, fix.bus.mem[0x0110], 0x42)
}

func TestMemoryToMemory(t *testing.T) {
	fix := newFixture(t,
		0x09, 0x10, 0x11, // OR $11,$10
	)
	fix.bus.mem[0x0010] = 0x0f
	fix.bus.mem[0x0011] = 0xf0

	test.Equate(t, fix.step(t), 6)
	test.Equate(t, fix.bus.mem[0x0011], 0xff)
}

func TestMulDiv(t *testing.T) {
	fix := newFixture(t,
		0xe8, 0x07, // MOV A,#$07
		0xfd,       // MOV Y,A
		0xe8, 0x06, // MOV A,#$06
		0xcf,       // MUL YA -> 42
		0xcd, 0x05, // MOV X,#$05
		0x9e, // DIV YA,X -> A=8 Y=2
	)

	for i := 0; i < 4; i++ {
		fix.step(t)
	}
	test.Equate(t, fix.mc.Y, 0x00)
	test.Equate(t, fix.mc.A, 0x2a)

	fix.step(t)
	test.Equate(t, fix.step(t), 12)
	test.Equate(t, fix.mc.A, 0x08)
	test.Equate(t, fix.mc.Y, 0x02)
}

func TestWordOps(t *testing.T) {
	fix := newFixture(t,
		0xba, 0x10, // MOVW YA,$10
		0x7a, 0x12, // ADDW YA,$12
		0xda, 0x14, // MOVW $14,YA
	)
	fix.bus.mem[0x0010] = 0x34
	fix.bus.mem[0x0011] = 0x12
	fix.bus.mem[0x0012] = 0x01
	fix.bus.mem[0x0013] = 0x00

	fix.step(t)
	test.Equate(t, fix.mc.Y, 0x12)
	test.Equate(t, fix.mc.A, 0x34)

	fix.step(t)
	fix.step(t)
	test.Equate(t, fix.bus.mem[0x0014], 0x35)
	test.Equate(t, fix.bus.mem[0x0015], 0x12)
}

func TestBitInstructions(t *testing.T) {
	fix := newFixture(t,
		0x02, 0x10, // SET1 $10.0
		0xa2, 0x10, // SET1 $10.5
		0x12, 0x10, // CLR1 $10.0
		0x03, 0x10, 0x02, // BBS $10.0,+2 - not taken, bit cleared
		0xb3, 0x10, 0x02, // BBC $10.5,+2 - not taken, bit set
	)

	fix.step(t)
	fix.step(t)
	test.Equate(t, fix.bus.mem[0x0010], 0x21)

	fix.step(t)
	test.Equate(t, fix.bus.mem[0x0010], 0x20)

	test.Equate(t, fix.step(t), 5)
	test.Equate(t, fix.mc.PC, 0x0209)
	test.Equate(t, fix.step(t), 5)
	test.Equate(t, fix.mc.PC, 0x020c)
}

func TestDBNZ(t *testing.T) {
	fix := newFixture(t,
		0x8d, 0x03, // MOV Y,#$03
		0xfe, 0xfe, // DBNZ Y,-2 (loops to itself)
	)

	fix.step(t)
	test.Equate(t, fix.step(t), 6) // taken
	test.Equate(t, fix.step(t), 6) // taken
	test.Equate(t, fix.step(t), 4) // Y reaches zero, falls through
	test.Equate(t, fix.mc.Y, 0x00)
	test.Equate(t, fix.mc.PC, 0x0204)
}

func TestTCALL(t *testing.T) {
	fix := newFixture(t,
		0x11, // TCALL 1 - vector at $ffdc
	)
	fix.bus.mem[0xffdc] = 0x00
	fix.bus.mem[0xffdd] = 0x03 // handler at $0300
	fix.bus.mem[0x0300] = 0x6f // RET

	test.Equate(t, fix.step(t), 8)
	test.Equate(t, fix.mc.PC, 0x0300)

	fix.step(t)
	test.Equate(t, fix.mc.PC, 0x0201)
}

func TestSerializeRoundTrip(t *testing.T) {
	fix := newFixture(t,
		0xe8, 0x42, // MOV A,#$42
		0xcd, 0x07, // MOV X,#$07
	)
	fix.step(t)
	fix.step(t)

	data := make([]byte, spc700.SerializeSize)
	fix.mc.Serialize(data)

	other := newFixture(t)
	other.mc.Deserialize(data)
	test.Equate(t, other.mc.A, 0x42)
	test.Equate(t, other.mc.X, 0x07)
	test.Equate(t, other.mc.PC, fix.mc.PC)
}
