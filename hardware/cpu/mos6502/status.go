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

// StatusRegister is the 6502 P register as individual flags. The register
// byte is only assembled when pushed to the stack or serialized.
type StatusRegister struct {
	Carry            bool
	Zero             bool
	InterruptDisable bool
	Decimal          bool
	Overflow         bool
	Sign             bool
}

// Value assembles the flags into the register byte. The break flag is not a
// stored flag on the 6502; it exists only on the stack, so the caller says
// whether it should appear set.
func (sr *StatusRegister) Value(brk bool) uint8 {
	var v uint8 = 0x20 // bit 5 always reads as set
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
	if brk {
		v |= 0x10
	}
	if sr.Overflow {
		v |= 0x40
	}
	if sr.Sign {
		v |= 0x80
	}
	return v
}

// SetValue unpacks a register byte into the flags. Bits 4 and 5 are
// discarded.
func (sr *StatusRegister) SetValue(v uint8) {
	sr.Carry = v&0x01 != 0
	sr.Zero = v&0x02 != 0
	sr.InterruptDisable = v&0x04 != 0
	sr.Decimal = v&0x08 != 0
	sr.Overflow = v&0x40 != 0
	sr.Sign = v&0x80 != 0
}

// setZN is the common case of setting Zero and Sign from a result.
func (sr *StatusRegister) setZN(v uint8) {
	sr.Zero = v == 0
	sr.Sign = v&0x80 != 0
}
