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

package megadrive

import (
	"encoding/binary"
	"strings"

	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/logger"
)

// sramSize is the battery RAM window at 0x200000. Carts declare their own
// range in the header but 32KB covers the commercial library.
const sramSize = 0x8000

// cartridge is a Mega Drive ROM with optional battery RAM overlapping the
// top half of the cartridge address space.
type cartridge struct {
	rom     []byte
	ram     []byte
	battery bool

	// SRAM is mapped in place of ROM at 0x200000 when enabled. carts
	// larger than 2MB gate it behind a register at 0xa130f1
	ramEnabled bool
}

// parseCartridge validates the ROM header. The system type string at 0x100
// must name the console; the checksum word at 0x18e is verified but a
// mismatch only logs because plenty of commercial dumps ship with one.
func parseCartridge(img []byte, battery bool, persistent []byte) (*cartridge, error) {
	if len(img) < 0x200 {
		return nil, curated.Errorf(hardware.InvalidImage, "image is smaller than the 512 byte header")
	}

	sysType := strings.TrimRight(string(img[0x100:0x110]), " ")
	switch sysType {
	case "SEGA MEGA DRIVE", "SEGA GENESIS":
	default:
		return nil, curated.Errorf(hardware.InvalidImage, "unrecognised system type %q", sysType)
	}

	expected := binary.BigEndian.Uint16(img[0x18e:0x190])
	if computed := headerChecksum(img); computed != expected {
		logger.Logf("megadrive", "header checksum mismatch: header=%04x computed=%04x", expected, computed)
	}

	c := &cartridge{
		rom:        img,
		ram:        make([]byte, sramSize),
		battery:    battery,
		ramEnabled: battery && len(img) <= 0x200000,
	}

	if persistent != nil {
		if len(persistent) != sramSize {
			return nil, curated.Errorf(hardware.InvalidImage, "persistent RAM is %d bytes, want %d", len(persistent), sramSize)
		}
		copy(c.ram, persistent)
	}

	return c, nil
}

// headerChecksum sums the big-endian words from 0x200 to the end of ROM.
func headerChecksum(rom []byte) uint16 {
	var sum uint16
	data := rom[0x200:]
	for i := 0; i+1 < len(data); i += 2 {
		sum += binary.BigEndian.Uint16(data[i : i+2])
	}
	if len(data)%2 != 0 {
		sum += uint16(data[len(data)-1]) << 8
	}
	return sum
}

// inRAMWindow reports whether an address falls in the battery RAM mapping
// at 0x200000 while it is switched in.
func (c *cartridge) inRAMWindow(addr uint32) bool {
	return c.ramEnabled && addr >= 0x200000 && addr < 0x200000+sramSize
}

func (c *cartridge) read(addr uint32) uint8 {
	if c.inRAMWindow(addr) {
		return c.ram[addr-0x200000]
	}
	if int(addr) < len(c.rom) {
		return c.rom[addr]
	}
	return 0xff
}

func (c *cartridge) write(addr uint32, data uint8) {
	if c.inRAMWindow(addr) {
		c.ram[addr-0x200000] = data
	}
}

// writeControl is the 0xa130xx mapper register range. Only the SRAM
// enable at 0xa130f1 is implemented; the bank registers of the handful of
// oversize carts are not.
func (c *cartridge) writeControl(addr uint32, data uint8) {
	if addr == 0xa130f1 {
		c.ramEnabled = data&0x01 != 0
	}
}

func (c *cartridge) serializeSize() int {
	return len(c.ram) + 1
}

func (c *cartridge) serialize(data []byte) {
	offset := snapshot.PutBytes(data, 0, c.ram)
	_ = snapshot.PutBool(data, offset, c.ramEnabled)
}

func (c *cartridge) deserialize(data []byte) {
	offset := snapshot.Bytes(data, 0, c.ram)
	c.ramEnabled, _ = snapshot.Bool(data, offset)
}
