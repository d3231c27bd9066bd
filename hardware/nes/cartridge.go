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
	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/snapshot"
)

// nametable mirroring arrangements. four-screen is not supported; the few
// cartridges using it carried their own VRAM.
type mirrorMode int

const (
	mirrorHorizontal mirrorMode = iota
	mirrorVertical
	mirrorSingle0
	mirrorSingle1
)

// mapper is the cartridge hardware surface. cpuRead/cpuWrite cover
// 0x6000-0xffff; chrRead/chrWrite cover the pattern table space
// 0x0000-0x1fff.
type mapper interface {
	cpuRead(addr uint16) uint8
	cpuWrite(addr uint16, data uint8)
	chrRead(addr uint16) uint8
	chrWrite(addr uint16, data uint8)
	mirror() mirrorMode

	// scanlineTick is called once per rendered scanline while rendering is
	// enabled. only the MMC3 scanline counter cares
	scanlineTick()

	serializeSize() int
	serialize(data []byte)
	deserialize(data []byte)
}

// cartridge is the parsed iNES image shared by the mapper implementations.
type cartridge struct {
	prg []byte
	chr []byte

	// chr is RAM when the header declares zero CHR banks
	chrRAM bool

	// 8KB of work RAM at 0x6000, battery backed or not
	sram    []byte
	battery bool

	headerMirror mirrorMode
}

// parseCartridge reads an iNES image and constructs the mapper the header
// names.
func parseCartridge(data []byte, persistent []byte) (mapper, *cartridge, error) {
	if len(data) < 16 || string(data[0:4]) != "NES\x1a" {
		return nil, nil, curated.Errorf(hardware.InvalidImage, "not an iNES image")
	}

	prgBanks := int(data[4])
	chrBanks := int(data[5])
	flags6 := data[6]
	flags7 := data[7]

	offset := 16
	if flags6&0x04 != 0 {
		// trainer data is a relic of copier hardware; skip it
		offset += 512
	}

	prgLen := prgBanks * 16384
	chrLen := chrBanks * 8192
	if len(data) < offset+prgLen+chrLen {
		return nil, nil, curated.Errorf(hardware.InvalidImage, "image truncated")
	}

	cart := &cartridge{
		prg:     data[offset : offset+prgLen],
		sram:    make([]byte, 8192),
		battery: flags6&0x02 != 0,
	}

	if chrBanks == 0 {
		cart.chr = make([]byte, 8192)
		cart.chrRAM = true
	} else {
		// CHR ROM is copied so CHR-RAM boards and ROM boards serialize the
		// same way
		cart.chr = make([]byte, chrLen)
		copy(cart.chr, data[offset+prgLen:])
	}

	if flags6&0x01 != 0 {
		cart.headerMirror = mirrorVertical
	} else {
		cart.headerMirror = mirrorHorizontal
	}

	if cart.battery && len(persistent) == len(cart.sram) {
		copy(cart.sram, persistent)
	}

	mapperNum := int(flags6>>4) | int(flags7&0xf0)
	switch mapperNum {
	case 0:
		return newNROM(cart), cart, nil
	case 1:
		return newMMC1(cart), cart, nil
	case 2:
		return newUxROM(cart), cart, nil
	case 3:
		return newCNROM(cart), cart, nil
	case 4:
		return newMMC3(cart), cart, nil
	case 7:
		return newAxROM(cart), cart, nil
	}
	return nil, nil, curated.Errorf(hardware.UnsupportedMapper, mapperNum)
}

// prgBank16 returns the 16KB PRG bank at index, wrapping.
func (cart *cartridge) prgBank16(bank int) []byte {
	n := len(cart.prg) / 16384
	bank = ((bank % n) + n) % n
	return cart.prg[bank*16384 : (bank+1)*16384]
}

// prgBank8 returns the 8KB PRG bank at index, wrapping.
func (cart *cartridge) prgBank8(bank int) []byte {
	n := len(cart.prg) / 8192
	bank = ((bank % n) + n) % n
	return cart.prg[bank*8192 : (bank+1)*8192]
}

// chrSlice returns count bytes of CHR at the given 1KB bank, wrapping.
func (cart *cartridge) chr1k(bank int) []byte {
	n := len(cart.chr) / 1024
	bank = ((bank % n) + n) % n
	return cart.chr[bank*1024 : (bank+1)*1024]
}

// sramRead and sramWrite implement the work RAM window shared by all
// mappers.
func (cart *cartridge) sramRead(addr uint16) uint8 {
	return cart.sram[addr&0x1fff]
}

func (cart *cartridge) sramWrite(addr uint16, data uint8) {
	cart.sram[addr&0x1fff] = data
}

// nrom is mapper 0: fixed 16 or 32KB of PRG, fixed CHR.
type nrom struct {
	cart *cartridge
}

func newNROM(cart *cartridge) *nrom {
	return &nrom{cart: cart}
}

func (m *nrom) cpuRead(addr uint16) uint8 {
	if addr < 0x8000 {
		return m.cart.sramRead(addr)
	}
	if len(m.cart.prg) == 16384 {
		return m.cart.prg[addr&0x3fff]
	}
	return m.cart.prg[addr&0x7fff]
}

func (m *nrom) cpuWrite(addr uint16, data uint8) {
	if addr < 0x8000 {
		m.cart.sramWrite(addr, data)
	}
}

func (m *nrom) chrRead(addr uint16) uint8 {
	return m.cart.chr[addr&0x1fff]
}

func (m *nrom) chrWrite(addr uint16, data uint8) {
	if m.cart.chrRAM {
		m.cart.chr[addr&0x1fff] = data
	}
}

func (m *nrom) mirror() mirrorMode { return m.cart.headerMirror }
func (m *nrom) scanlineTick()      {}

func (m *nrom) serializeSize() int      { return 0 }
func (m *nrom) serialize(data []byte)   {}
func (m *nrom) deserialize(data []byte) {}

// mmc1 is mapper 1: serial shift register loading of four internal
// registers.
type mmc1 struct {
	cart *cartridge

	shift   uint8
	count   uint8
	control uint8
	chr0    uint8
	chr1    uint8
	prgBank uint8
}

func newMMC1(cart *cartridge) *mmc1 {
	return &mmc1{cart: cart, control: 0x0c, shift: 0x10}
}

func (m *mmc1) cpuRead(addr uint16) uint8 {
	if addr < 0x8000 {
		return m.cart.sramRead(addr)
	}

	mode := (m.control >> 2) & 0x03
	bank := int(m.prgBank & 0x0f)
	last := len(m.cart.prg)/16384 - 1

	if addr < 0xc000 {
		switch mode {
		case 0, 1: // 32KB mode: low half
			return m.cart.prgBank16(bank &^ 1)[addr&0x3fff]
		case 2: // first bank fixed
			return m.cart.prgBank16(0)[addr&0x3fff]
		default: // switchable
			return m.cart.prgBank16(bank)[addr&0x3fff]
		}
	}
	switch mode {
	case 0, 1: // 32KB mode: high half
		return m.cart.prgBank16(bank | 1)[addr&0x3fff]
	case 2: // switchable
		return m.cart.prgBank16(bank)[addr&0x3fff]
	default: // last bank fixed
		return m.cart.prgBank16(last)[addr&0x3fff]
	}
}

func (m *mmc1) cpuWrite(addr uint16, data uint8) {
	if addr < 0x8000 {
		m.cart.sramWrite(addr, data)
		return
	}

	if data&0x80 != 0 {
		m.shift = 0x10
		m.count = 0
		m.control |= 0x0c
		return
	}

	m.shift = m.shift>>1 | (data&0x01)<<4
	m.count++
	if m.count < 5 {
		return
	}

	v := m.shift
	m.shift = 0x10
	m.count = 0

	switch {
	case addr < 0xa000:
		m.control = v
	case addr < 0xc000:
		m.chr0 = v
	case addr < 0xe000:
		m.chr1 = v
	default:
		m.prgBank = v
	}
}

func (m *mmc1) chrAddr(addr uint16) int {
	if m.control&0x10 == 0 {
		// 8KB mode
		base := int(m.chr0&0x1e) * 4096
		return base + int(addr&0x1fff)
	}
	if addr < 0x1000 {
		return int(m.chr0)*4096 + int(addr&0x0fff)
	}
	return int(m.chr1)*4096 + int(addr&0x0fff)
}

func (m *mmc1) chrRead(addr uint16) uint8 {
	return m.cart.chr[m.chrAddr(addr)%len(m.cart.chr)]
}

func (m *mmc1) chrWrite(addr uint16, data uint8) {
	if m.cart.chrRAM {
		m.cart.chr[m.chrAddr(addr)%len(m.cart.chr)] = data
	}
}

func (m *mmc1) mirror() mirrorMode {
	switch m.control & 0x03 {
	case 0:
		return mirrorSingle0
	case 1:
		return mirrorSingle1
	case 2:
		return mirrorVertical
	}
	return mirrorHorizontal
}

func (m *mmc1) scanlineTick() {}

func (m *mmc1) serializeSize() int { return 6 }

func (m *mmc1) serialize(data []byte) {
	offset := snapshot.PutUint8(data, 0, m.shift)
	offset = snapshot.PutUint8(data, offset, m.count)
	offset = snapshot.PutUint8(data, offset, m.control)
	offset = snapshot.PutUint8(data, offset, m.chr0)
	offset = snapshot.PutUint8(data, offset, m.chr1)
	_ = snapshot.PutUint8(data, offset, m.prgBank)
}

func (m *mmc1) deserialize(data []byte) {
	var offset int
	m.shift, offset = snapshot.Uint8(data, 0)
	m.count, offset = snapshot.Uint8(data, offset)
	m.control, offset = snapshot.Uint8(data, offset)
	m.chr0, offset = snapshot.Uint8(data, offset)
	m.chr1, offset = snapshot.Uint8(data, offset)
	m.prgBank, _ = snapshot.Uint8(data, offset)
}

// uxrom is mapper 2: switchable 16KB low bank, fixed last bank.
type uxrom struct {
	cart *cartridge
	bank uint8
}

func newUxROM(cart *cartridge) *uxrom {
	return &uxrom{cart: cart}
}

func (m *uxrom) cpuRead(addr uint16) uint8 {
	if addr < 0x8000 {
		return m.cart.sramRead(addr)
	}
	if addr < 0xc000 {
		return m.cart.prgBank16(int(m.bank))[addr&0x3fff]
	}
	return m.cart.prgBank16(len(m.cart.prg)/16384 - 1)[addr&0x3fff]
}

func (m *uxrom) cpuWrite(addr uint16, data uint8) {
	if addr < 0x8000 {
		m.cart.sramWrite(addr, data)
		return
	}
	m.bank = data
}

func (m *uxrom) chrRead(addr uint16) uint8 {
	return m.cart.chr[addr&0x1fff]
}

func (m *uxrom) chrWrite(addr uint16, data uint8) {
	if m.cart.chrRAM {
		m.cart.chr[addr&0x1fff] = data
	}
}

func (m *uxrom) mirror() mirrorMode { return m.cart.headerMirror }
func (m *uxrom) scanlineTick()      {}

func (m *uxrom) serializeSize() int { return 1 }

func (m *uxrom) serialize(data []byte) {
	_ = snapshot.PutUint8(data, 0, m.bank)
}

func (m *uxrom) deserialize(data []byte) {
	m.bank, _ = snapshot.Uint8(data, 0)
}

// cnrom is mapper 3: fixed PRG, switchable 8KB CHR bank.
type cnrom struct {
	cart *cartridge
	bank uint8
}

func newCNROM(cart *cartridge) *cnrom {
	return &cnrom{cart: cart}
}

func (m *cnrom) cpuRead(addr uint16) uint8 {
	if addr < 0x8000 {
		return m.cart.sramRead(addr)
	}
	if len(m.cart.prg) == 16384 {
		return m.cart.prg[addr&0x3fff]
	}
	return m.cart.prg[addr&0x7fff]
}

func (m *cnrom) cpuWrite(addr uint16, data uint8) {
	if addr < 0x8000 {
		m.cart.sramWrite(addr, data)
		return
	}
	m.bank = data & 0x03
}

func (m *cnrom) chrRead(addr uint16) uint8 {
	offset := int(m.bank)*8192 + int(addr&0x1fff)
	return m.cart.chr[offset%len(m.cart.chr)]
}

func (m *cnrom) chrWrite(addr uint16, data uint8) {}

func (m *cnrom) mirror() mirrorMode { return m.cart.headerMirror }
func (m *cnrom) scanlineTick()      {}

func (m *cnrom) serializeSize() int { return 1 }

func (m *cnrom) serialize(data []byte) {
	_ = snapshot.PutUint8(data, 0, m.bank)
}

func (m *cnrom) deserialize(data []byte) {
	m.bank, _ = snapshot.Uint8(data, 0)
}

// axrom is mapper 7: 32KB PRG banks with mapper controlled single screen
// mirroring.
type axrom struct {
	cart *cartridge
	reg  uint8
}

func newAxROM(cart *cartridge) *axrom {
	return &axrom{cart: cart}
}

func (m *axrom) cpuRead(addr uint16) uint8 {
	if addr < 0x8000 {
		return m.cart.sramRead(addr)
	}
	bank := int(m.reg & 0x07)
	base := bank * 32768 % len(m.cart.prg)
	return m.cart.prg[base+int(addr&0x7fff)]
}

func (m *axrom) cpuWrite(addr uint16, data uint8) {
	if addr < 0x8000 {
		m.cart.sramWrite(addr, data)
		return
	}
	m.reg = data
}

func (m *axrom) chrRead(addr uint16) uint8 {
	return m.cart.chr[addr&0x1fff]
}

func (m *axrom) chrWrite(addr uint16, data uint8) {
	if m.cart.chrRAM {
		m.cart.chr[addr&0x1fff] = data
	}
}

func (m *axrom) mirror() mirrorMode {
	if m.reg&0x10 != 0 {
		return mirrorSingle1
	}
	return mirrorSingle0
}

func (m *axrom) scanlineTick() {}

func (m *axrom) serializeSize() int { return 1 }

func (m *axrom) serialize(data []byte) {
	_ = snapshot.PutUint8(data, 0, m.reg)
}

func (m *axrom) deserialize(data []byte) {
	m.reg, _ = snapshot.Uint8(data, 0)
}
