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

package segacd

// subbus is the sub 68000's view of the expansion:
//
//	0x000000-0x07ffff  program RAM
//	0x080000-0x0bffff  word RAM, 2M mode, when owned by the sub CPU
//	0x0c0000-0x0dffff  word RAM 1M bank
//	0xfe0000-0xfe3fff  backup RAM, data on odd bytes
//	0xff0000-0xff3fff  PCM registers and wave RAM window
//	0xff8000-0xff81ff  gate array
type subbus struct {
	e *expansion
}

func (b subbus) Read8(addr uint32) uint8 {
	return b.read8(addr & 0xffffff)
}

func (b subbus) Read16(addr uint32) uint16 {
	return b.read16(addr & 0xffffff)
}

func (b subbus) Read32(addr uint32) uint32 {
	addr &= 0xffffff
	return uint32(b.read16(addr))<<16 | uint32(b.read16(addr+2))
}

func (b subbus) Write8(addr uint32, data uint8) {
	b.write8(addr&0xffffff, data)
}

func (b subbus) Write16(addr uint32, data uint16) {
	b.write16(addr&0xffffff, data)
}

func (b subbus) Write32(addr uint32, data uint32) {
	addr &= 0xffffff
	b.write16(addr, uint16(data>>16))
	b.write16(addr+2, uint16(data))
}

func (b subbus) Reset() {}

func (b subbus) read16(addr uint32) uint16 {
	return uint16(b.read8(addr))<<8 | uint16(b.read8(addr+1))
}

func (b subbus) write16(addr uint32, data uint16) {
	b.write8(addr, uint8(data>>8))
	b.write8(addr+1, uint8(data))
}

func (b subbus) read8(addr uint32) uint8 {
	e := b.e
	switch {
	case addr < prgSize:
		return e.prg[addr]
	case addr >= 0x080000 && addr < 0x0c0000:
		if e.subWordBase() < 0 {
			return 0xff
		}
		return e.word[addr-0x080000]
	case addr >= 0x0c0000 && addr < 0x0e0000:
		base := e.sub1MBase()
		if base < 0 {
			return 0xff
		}
		return e.word[base+int(addr&0x1ffff)]
	case addr >= 0xfe0000 && addr < 0xfe4000:
		if addr&1 == 0 {
			return 0xff
		}
		return e.backup[(addr&0x3fff)>>1]
	case addr >= 0xff0000 && addr < 0xff4000:
		return e.pcm.read(addr & 0x3fff)
	case addr >= 0xff8000 && addr < 0xff8200:
		return e.gateReadSub(uint8(addr))
	}
	return 0xff
}

func (b subbus) write8(addr uint32, data uint8) {
	e := b.e
	switch {
	case addr < prgSize:
		e.prg[addr] = data
	case addr >= 0x080000 && addr < 0x0c0000:
		if e.subWordBase() < 0 {
			return
		}
		e.word[addr-0x080000] = data
	case addr >= 0x0c0000 && addr < 0x0e0000:
		base := e.sub1MBase()
		if base < 0 {
			return
		}
		e.word[base+int(addr&0x1ffff)] = data
	case addr >= 0xfe0000 && addr < 0xfe4000:
		if addr&1 != 0 {
			e.backup[(addr&0x3fff)>>1] = data
		}
	case addr >= 0xff0000 && addr < 0xff4000:
		e.pcm.write(addr&0x3fff, data)
	case addr >= 0xff8000 && addr < 0xff8200:
		e.gateWriteSub(uint8(addr), data)
	}
}
