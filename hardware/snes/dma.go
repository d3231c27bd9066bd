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

package snes

import (
	"fmt"

	"github.com/relicemu/relic/hardware/irq"
	"github.com/relicemu/relic/hardware/snapshot"
)

// B-bus register write sequence per DMA transfer unit, indexed by the low
// three bits of DMAP
var dmaPatterns = [8][]uint8{
	{0},
	{0, 1},
	{0, 0},
	{0, 0, 1, 1},
	{0, 1, 2, 3},
	{0, 1, 0, 1},
	{0, 0},
	{0, 0, 1, 1},
}

// dmaChannel is one of the eight DMA/HDMA channels. The A bus side
// addresses the full 24 bit space; the B bus side addresses the $21xx
// register page.
type dmaChannel struct {
	params  uint8  // $43x0 DMAP
	bbad    uint8  // $43x1
	a1      uint16 // $43x2/3
	a1Bank  uint8  // $43x4
	das     uint16 // $43x5/6, byte count or HDMA indirect address
	dasBank uint8  // $43x7
	a2      uint16 // $43x8/9, HDMA table address
	ntrl    uint8  // $43xa, HDMA line counter

	// HDMA per-frame state
	doTransfer bool
	finished   bool
}

// dma mediates between the A bus (CPU address space) and the B bus (the
// PPU and APU register page at $2100).
type dma struct {
	chans [8]dmaChannel

	hdmaEnable uint8

	readA  func(bank uint8, offset uint16) uint8
	writeA func(bank uint8, offset uint16, data uint8)
	readB  func(reg uint8) uint8
	writeB func(reg uint8, data uint8)
}

func (d *dma) reset() {
	d.chans = [8]dmaChannel{}
	d.hdmaEnable = 0
}

func (d *dma) writeRegister(ch int, reg uint8, data uint8) {
	c := &d.chans[ch]
	switch reg {
	case 0x0:
		c.params = data
	case 0x1:
		c.bbad = data
	case 0x2:
		c.a1 = c.a1&0xff00 | uint16(data)
	case 0x3:
		c.a1 = c.a1&0x00ff | uint16(data)<<8
	case 0x4:
		c.a1Bank = data
	case 0x5:
		c.das = c.das&0xff00 | uint16(data)
	case 0x6:
		c.das = c.das&0x00ff | uint16(data)<<8
	case 0x7:
		c.dasBank = data
	case 0x8:
		c.a2 = c.a2&0xff00 | uint16(data)
	case 0x9:
		c.a2 = c.a2&0x00ff | uint16(data)<<8
	case 0xa:
		c.ntrl = data
	}
}

func (d *dma) readRegister(ch int, reg uint8) uint8 {
	c := &d.chans[ch]
	switch reg {
	case 0x0:
		return c.params
	case 0x1:
		return c.bbad
	case 0x2:
		return uint8(c.a1)
	case 0x3:
		return uint8(c.a1 >> 8)
	case 0x4:
		return c.a1Bank
	case 0x5:
		return uint8(c.das)
	case 0x6:
		return uint8(c.das >> 8)
	case 0x7:
		return c.dasBank
	case 0x8:
		return uint8(c.a2)
	case 0x9:
		return uint8(c.a2 >> 8)
	case 0xa:
		return c.ntrl
	}
	return 0
}

// aStep is the A bus address adjustment selected by DMAP bits 3 and 4.
func (c *dmaChannel) aStep() uint16 {
	switch c.params >> 3 & 0x03 {
	case 0:
		return 1
	case 2:
		return 0xffff
	}
	return 0
}

// run performs the general purpose transfers for the channels named in the
// MDMAEN mask. Transfers are scheduled through the interrupt controller so
// the CPU pays the bus time.
func (d *dma) run(ct *irq.Controller, enable uint8) {
	for ch := 0; ch < 8; ch++ {
		if enable&(1<<uint(ch)) == 0 {
			continue
		}
		c := &d.chans[ch]

		units := int(c.das)
		if units == 0 {
			units = 0x10000
		}

		ct.Schedule(irq.Transfer{
			Label:         fmt.Sprintf("DMA%d", ch),
			Source:        uint32(c.a1Bank)<<16 | uint32(c.a1),
			Dest:          0x2100 | uint32(c.bbad),
			Units:         units,
			CyclesPerUnit: 1,
		}, func() {
			d.transfer(c, units)
		})
	}
}

func (d *dma) transfer(c *dmaChannel, units int) {
	pattern := dmaPatterns[c.params&0x07]
	step := c.aStep()
	toA := c.params&0x80 != 0

	pi := 0
	for units > 0 {
		reg := c.bbad + pattern[pi]
		if toA {
			d.writeA(c.a1Bank, c.a1, d.readB(reg))
		} else {
			d.writeB(reg, d.readA(c.a1Bank, c.a1))
		}
		c.a1 += step

		pi++
		if pi == len(pattern) {
			pi = 0
		}
		units--
	}
	c.das = 0
}

// hdmaInit latches the table addresses at the top of the frame.
func (d *dma) hdmaInit() {
	for ch := 0; ch < 8; ch++ {
		c := &d.chans[ch]
		c.finished = d.hdmaEnable&(1<<uint(ch)) == 0
		if c.finished {
			continue
		}
		c.a2 = c.a1
		d.hdmaReload(c)
	}
}

// hdmaReload reads the next table entry, returning false at the end of the
// table.
func (d *dma) hdmaReload(c *dmaChannel) {
	c.ntrl = d.readA(c.a1Bank, c.a2)
	c.a2++
	if c.ntrl == 0 {
		c.finished = true
		return
	}
	if c.params&0x40 != 0 {
		// indirect table entry holds the data address
		lo := d.readA(c.a1Bank, c.a2)
		c.a2++
		hi := d.readA(c.a1Bank, c.a2)
		c.a2++
		c.das = uint16(hi)<<8 | uint16(lo)
	}
	c.doTransfer = true
}

// hdmaRun performs the per-scanline transfers.
func (d *dma) hdmaRun() {
	for ch := 0; ch < 8; ch++ {
		c := &d.chans[ch]
		if c.finished || d.hdmaEnable&(1<<uint(ch)) == 0 {
			continue
		}

		if c.doTransfer {
			pattern := dmaPatterns[c.params&0x07]
			for _, p := range pattern {
				var v uint8
				if c.params&0x40 != 0 {
					v = d.readA(c.dasBank, c.das)
					c.das++
				} else {
					v = d.readA(c.a1Bank, c.a2)
					c.a2++
				}
				d.writeB(c.bbad+p, v)
			}
		}

		c.ntrl--
		if c.ntrl&0x7f == 0 {
			d.hdmaReload(c)
		} else {
			c.doTransfer = c.ntrl&0x80 != 0
		}
	}
}

const dmaSerializeSize = 8*13 + 1

func (d *dma) serialize(data []byte) {
	offset := 0
	for ch := range d.chans {
		c := &d.chans[ch]
		offset = snapshot.PutUint8(data, offset, c.params)
		offset = snapshot.PutUint8(data, offset, c.bbad)
		offset = snapshot.PutUint16(data, offset, c.a1)
		offset = snapshot.PutUint8(data, offset, c.a1Bank)
		offset = snapshot.PutUint16(data, offset, c.das)
		offset = snapshot.PutUint8(data, offset, c.dasBank)
		offset = snapshot.PutUint16(data, offset, c.a2)
		offset = snapshot.PutUint8(data, offset, c.ntrl)
		offset = snapshot.PutBool(data, offset, c.doTransfer)
		offset = snapshot.PutBool(data, offset, c.finished)
	}
	_ = snapshot.PutUint8(data, offset, d.hdmaEnable)
}

func (d *dma) deserialize(data []byte) {
	offset := 0
	for ch := range d.chans {
		c := &d.chans[ch]
		c.params, offset = snapshot.Uint8(data, offset)
		c.bbad, offset = snapshot.Uint8(data, offset)
		c.a1, offset = snapshot.Uint16(data, offset)
		c.a1Bank, offset = snapshot.Uint8(data, offset)
		c.das, offset = snapshot.Uint16(data, offset)
		c.dasBank, offset = snapshot.Uint8(data, offset)
		c.a2, offset = snapshot.Uint16(data, offset)
		c.ntrl, offset = snapshot.Uint8(data, offset)
		c.doTransfer, offset = snapshot.Bool(data, offset)
		c.finished, offset = snapshot.Bool(data, offset)
	}
	d.hdmaEnable, _ = snapshot.Uint8(data, offset)
}
