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
	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
)

// Mapper numbers as they arrive in the image metadata.
const (
	mapperLoROM = 0
	mapperHiROM = 1
)

// cartridge is a SNES ROM in LoROM or HiROM layout with optional battery
// SRAM.
type cartridge struct {
	rom     []byte
	sram    []byte
	battery bool
	hirom   bool
}

func parseCartridge(img []byte, mapper int, ramSize int, battery bool, persistent []byte) (*cartridge, error) {
	// strip a copier header if one is present
	if len(img)%0x8000 == 512 {
		img = img[512:]
	}
	if len(img) < 0x8000 {
		return nil, curated.Errorf(hardware.InvalidImage, "image is smaller than one ROM bank")
	}

	c := &cartridge{
		rom:     img,
		battery: battery,
	}

	switch mapper {
	case mapperLoROM:
	case mapperHiROM:
		c.hirom = true
	default:
		return nil, curated.Errorf(hardware.UnsupportedMapper, "%d", mapper)
	}

	c.sram = make([]byte, ramSize)
	if persistent != nil {
		if len(persistent) != ramSize {
			return nil, curated.Errorf(hardware.InvalidImage, "persistent RAM is %d bytes, want %d", len(persistent), ramSize)
		}
		copy(c.sram, persistent)
	}

	return c, nil
}

// readROM maps a bank and offset to the ROM, mirroring over the ROM size.
func (c *cartridge) readROM(bank uint8, offset uint16) uint8 {
	bank &= 0x7f

	var linear int
	if c.hirom {
		if bank >= 0x40 {
			linear = int(bank-0x40)<<16 | int(offset)
		} else {
			linear = int(bank)<<16 | int(offset)
		}
	} else {
		linear = int(bank)<<15 | int(offset&0x7fff)
	}

	return c.rom[linear%len(c.rom)]
}

// sramIndex maps a bank and offset to the SRAM, or -1 when the address is
// not an SRAM location for the cartridge's layout.
func (c *cartridge) sramIndex(bank uint8, offset uint16) int {
	if len(c.sram) == 0 {
		return -1
	}
	bank &= 0x7f

	if c.hirom {
		// banks 0x20-0x3f, 0x6000-0x7fff
		if bank >= 0x20 && bank <= 0x3f && offset >= 0x6000 && offset < 0x8000 {
			return (int(bank-0x20)<<13 | int(offset-0x6000)) % len(c.sram)
		}
		return -1
	}

	// banks 0x70-0x7d, lower half
	if bank >= 0x70 && bank <= 0x7d && offset < 0x8000 {
		return (int(bank-0x70)<<15 | int(offset)) % len(c.sram)
	}
	return -1
}

func (c *cartridge) read(bank uint8, offset uint16) uint8 {
	if idx := c.sramIndex(bank, offset); idx >= 0 {
		return c.sram[idx]
	}
	return c.readROM(bank, offset)
}

func (c *cartridge) write(bank uint8, offset uint16, data uint8) {
	if idx := c.sramIndex(bank, offset); idx >= 0 {
		c.sram[idx] = data
	}
}
