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

package mastersystem

import (
	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/snapshot"
)

// cartRAMSize is the on-cartridge RAM behind the Sega mapper: two 16KB
// pages selectable into slot 2.
const cartRAMSize = 0x8000

// cartridge is a ROM behind the standard Sega mapper. Three 16KB slots are
// bank-selected through writes to 0xfffd-0xffff; 0xfffc controls whether
// slot 2 maps ROM or cartridge RAM. The first 1KB is never paged out so the
// interrupt vectors stay put.
type cartridge struct {
	rom     []byte
	ram     []byte
	battery bool

	slot [3]uint8
	ctrl uint8
}

func parseCartridge(img []byte, battery bool, persistent []byte) (*cartridge, error) {
	// some dump formats prepend a 512 byte copier header
	if len(img)%0x4000 == 512 {
		img = img[512:]
	}

	if len(img) < 0x2000 {
		return nil, curated.Errorf(hardware.InvalidImage, "image is smaller than 8KB")
	}

	c := &cartridge{
		rom:     img,
		ram:     make([]byte, cartRAMSize),
		battery: battery,
	}
	c.reset()

	if persistent != nil {
		if len(persistent) != cartRAMSize {
			return nil, curated.Errorf(hardware.InvalidImage, "persistent RAM is %d bytes, want %d", len(persistent), cartRAMSize)
		}
		copy(c.ram, persistent)
	}

	return c, nil
}

// power on mapping is the identity: the first three pages in their
// numbered slots, RAM unmapped
func (c *cartridge) reset() {
	c.slot = [3]uint8{0, 1, 2}
	c.ctrl = 0
}

// page resolves a bank number to a ROM offset, wrapping by the ROM size.
func (c *cartridge) page(bank uint8, offset uint16) uint8 {
	return c.rom[(int(bank)*0x4000+int(offset))%len(c.rom)]
}

func (c *cartridge) read(addr uint16) uint8 {
	switch {
	case addr < 0x0400:
		return c.rom[int(addr)%len(c.rom)]
	case addr < 0x4000:
		return c.page(c.slot[0], addr&0x3fff)
	case addr < 0x8000:
		return c.page(c.slot[1], addr&0x3fff)
	}

	if c.ctrl&0x08 != 0 {
		return c.ram[c.ramBase()+int(addr&0x3fff)]
	}
	return c.page(c.slot[2], addr&0x3fff)
}

func (c *cartridge) write(addr uint16, data uint8) {
	// only slot 2 is ever writable, and only when RAM is mapped there
	if addr >= 0x8000 && c.ctrl&0x08 != 0 {
		c.ram[c.ramBase()+int(addr&0x3fff)] = data
	}
}

// ramBase selects between the two cartridge RAM pages.
func (c *cartridge) ramBase() int {
	if c.ctrl&0x04 != 0 {
		return 0x4000
	}
	return 0
}

// writeControl handles the mapper registers shadowing the top of system
// RAM. The RAM write itself is the machine's business.
func (c *cartridge) writeControl(addr uint16, data uint8) {
	switch addr {
	case 0xfffc:
		c.ctrl = data
	case 0xfffd:
		c.slot[0] = data
	case 0xfffe:
		c.slot[1] = data
	case 0xffff:
		c.slot[2] = data
	}
}

func (c *cartridge) serializeSize() int {
	return len(c.ram) + 4
}

func (c *cartridge) serialize(data []byte) {
	offset := snapshot.PutBytes(data, 0, c.ram)
	offset = snapshot.PutUint8(data, offset, c.slot[0])
	offset = snapshot.PutUint8(data, offset, c.slot[1])
	offset = snapshot.PutUint8(data, offset, c.slot[2])
	_ = snapshot.PutUint8(data, offset, c.ctrl)
}

func (c *cartridge) deserialize(data []byte) {
	offset := snapshot.Bytes(data, 0, c.ram)
	c.slot[0], offset = snapshot.Uint8(data, offset)
	c.slot[1], offset = snapshot.Uint8(data, offset)
	c.slot[2], offset = snapshot.Uint8(data, offset)
	c.ctrl, _ = snapshot.Uint8(data, offset)
}
