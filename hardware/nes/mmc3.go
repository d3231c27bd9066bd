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

package nes

import (
	"github.com/relicemu/relic/hardware/irq"
	"github.com/relicemu/relic/hardware/snapshot"
)

// mmc3 is mapper 4: 8KB PRG banking, 1KB/2KB CHR banking and a scanline
// counter driving an IRQ line. The counter is clocked once per rendered
// scanline, which stands in for the PPU A12 rise the real chip watches.
type mmc3 struct {
	cart *cartridge

	bankSelect uint8
	banks      [8]uint8
	mirrorReg  uint8

	irqLatch   uint8
	irqCounter uint8
	irqEnable  bool
	irqReload  bool

	// attached by the machine after construction
	irqLine *irq.Line
}

func newMMC3(cart *cartridge) *mmc3 {
	return &mmc3{cart: cart}
}

func (m *mmc3) cpuRead(addr uint16) uint8 {
	if addr < 0x8000 {
		return m.cart.sramRead(addr)
	}

	last := len(m.cart.prg)/8192 - 1
	prgMode := m.bankSelect&0x40 != 0

	var bank int
	switch {
	case addr < 0xa000:
		if prgMode {
			bank = last - 1
		} else {
			bank = int(m.banks[6])
		}
	case addr < 0xc000:
		bank = int(m.banks[7])
	case addr < 0xe000:
		if prgMode {
			bank = int(m.banks[6])
		} else {
			bank = last - 1
		}
	default:
		bank = last
	}
	return m.cart.prgBank8(bank)[addr&0x1fff]
}

func (m *mmc3) cpuWrite(addr uint16, data uint8) {
	if addr < 0x8000 {
		m.cart.sramWrite(addr, data)
		return
	}

	even := addr&0x01 == 0
	switch {
	case addr < 0xa000:
		if even {
			m.bankSelect = data
		} else {
			m.banks[m.bankSelect&0x07] = data
		}
	case addr < 0xc000:
		if even {
			m.mirrorReg = data
		}
		// odd: PRG RAM protect, not modelled
	case addr < 0xe000:
		if even {
			m.irqLatch = data
		} else {
			m.irqReload = true
		}
	default:
		if even {
			m.irqEnable = false
			if m.irqLine != nil {
				m.irqLine.Assert(false)
			}
		} else {
			m.irqEnable = true
		}
	}
}

func (m *mmc3) chrAddr(addr uint16) int {
	// chr mode swaps the 2KB and 1KB halves of the pattern space
	if m.bankSelect&0x80 != 0 {
		addr ^= 0x1000
	}

	var bank int
	var fine int
	if addr < 0x1000 {
		// two 2KB banks, register value has bit 0 forced clear
		r := int(addr >> 11)
		bank = int(m.banks[r] &^ 0x01)
		fine = int(addr & 0x07ff)
	} else {
		r := 2 + int((addr-0x1000)>>10)
		bank = int(m.banks[r])
		fine = int(addr & 0x03ff)
	}
	return bank*1024 + fine
}

func (m *mmc3) chrRead(addr uint16) uint8 {
	return m.cart.chr[m.chrAddr(addr)%len(m.cart.chr)]
}

func (m *mmc3) chrWrite(addr uint16, data uint8) {
	if m.cart.chrRAM {
		m.cart.chr[m.chrAddr(addr)%len(m.cart.chr)] = data
	}
}

func (m *mmc3) mirror() mirrorMode {
	if m.mirrorReg&0x01 != 0 {
		return mirrorHorizontal
	}
	return mirrorVertical
}

func (m *mmc3) scanlineTick() {
	if m.irqCounter == 0 || m.irqReload {
		m.irqCounter = m.irqLatch
		m.irqReload = false
	} else {
		m.irqCounter--
	}

	if m.irqCounter == 0 && m.irqEnable && m.irqLine != nil {
		m.irqLine.Assert(true)
	}
}

func (m *mmc3) serializeSize() int { return 14 }

func (m *mmc3) serialize(data []byte) {
	offset := snapshot.PutUint8(data, 0, m.bankSelect)
	offset = snapshot.PutBytes(data, offset, m.banks[:])
	offset = snapshot.PutUint8(data, offset, m.mirrorReg)
	offset = snapshot.PutUint8(data, offset, m.irqLatch)
	offset = snapshot.PutUint8(data, offset, m.irqCounter)
	offset = snapshot.PutBool(data, offset, m.irqEnable)
	_ = snapshot.PutBool(data, offset, m.irqReload)
}

func (m *mmc3) deserialize(data []byte) {
	var offset int
	m.bankSelect, offset = snapshot.Uint8(data, 0)
	offset = snapshot.Bytes(data, offset, m.banks[:])
	m.mirrorReg, offset = snapshot.Uint8(data, offset)
	m.irqLatch, offset = snapshot.Uint8(data, offset)
	m.irqCounter, offset = snapshot.Uint8(data, offset)
	m.irqEnable, offset = snapshot.Bool(data, offset)
	m.irqReload, _ = snapshot.Bool(data, offset)
}
