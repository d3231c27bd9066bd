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

package gameboy

import (
	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/snapshot"
)

// mbc is the cartridge surface: the ROM window 0x0000-0x7fff and the
// external RAM window 0xa000-0xbfff. Bank register writes arrive through
// romWrite.
type mbc interface {
	romRead(addr uint16) uint8
	romWrite(addr uint16, data uint8)
	ramRead(addr uint16) uint8
	ramWrite(addr uint16, data uint8)

	serializeSize() int
	serialize(data []byte)
	deserialize(data []byte)
}

// cartridge is the parsed image shared by the MBC implementations.
type cartridge struct {
	rom     []byte
	ram     []byte
	battery bool
}

// ram sizes indexed by the header's RAM size code
var ramSizes = [6]int{0, 2048, 8192, 32768, 131072, 65536}

// parseCartridge reads a Game Boy image header and constructs the MBC it
// names.
func parseCartridge(data []byte, persistent []byte) (mbc, *cartridge, error) {
	if len(data) < 0x0150 {
		return nil, nil, curated.Errorf(hardware.InvalidImage, "image too small for a header")
	}

	cartType := data[0x0147]
	ramCode := data[0x0149]

	cart := &cartridge{rom: data}
	if int(ramCode) < len(ramSizes) {
		cart.ram = make([]byte, ramSizes[ramCode])
	}

	switch cartType {
	case 0x03, 0x06, 0x09, 0x0d, 0x0f, 0x10, 0x13, 0x1b, 0x1e:
		cart.battery = true
	}

	var m mbc
	switch cartType {
	case 0x00, 0x08, 0x09:
		m = &mbc0{cart: cart}
	case 0x01, 0x02, 0x03:
		m = newMBC1(cart)
	case 0x05, 0x06:
		// MBC2 carries its own nibble RAM
		cart.ram = make([]byte, 512)
		m = newMBC2(cart)
	case 0x0f, 0x10, 0x11, 0x12, 0x13:
		m = newMBC3(cart)
	case 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e:
		m = newMBC5(cart)
	default:
		return nil, nil, curated.Errorf(hardware.UnsupportedMapper, cartType)
	}

	if cart.battery && len(persistent) == len(cart.ram) {
		copy(cart.ram, persistent)
	}

	return m, cart, nil
}

// romBank returns the 16KB ROM bank at index, wrapping.
func (cart *cartridge) romBank(bank int) []byte {
	n := len(cart.rom) / 16384
	if n == 0 {
		return cart.rom
	}
	bank = ((bank % n) + n) % n
	return cart.rom[bank*16384 : (bank+1)*16384]
}

// mbc0 is a plain 32KB ROM, optionally with unbanked RAM.
type mbc0 struct {
	cart *cartridge
}

func (m *mbc0) romRead(addr uint16) uint8 {
	return m.cart.rom[int(addr)%len(m.cart.rom)]
}

func (m *mbc0) romWrite(addr uint16, data uint8) {}

func (m *mbc0) ramRead(addr uint16) uint8 {
	if len(m.cart.ram) == 0 {
		return 0xff
	}
	return m.cart.ram[int(addr)%len(m.cart.ram)]
}

func (m *mbc0) ramWrite(addr uint16, data uint8) {
	if len(m.cart.ram) > 0 {
		m.cart.ram[int(addr)%len(m.cart.ram)] = data
	}
}

func (m *mbc0) serializeSize() int      { return 0 }
func (m *mbc0) serialize(data []byte)   {}
func (m *mbc0) deserialize(data []byte) {}

// mbc1: 5 bit ROM bank, 2 bit secondary bank, banking mode select.
type mbc1 struct {
	cart *cartridge

	ramEnable bool
	bankLow   uint8
	bankHigh  uint8
	mode      bool
}

func newMBC1(cart *cartridge) *mbc1 {
	return &mbc1{cart: cart, bankLow: 1}
}

func (m *mbc1) romRead(addr uint16) uint8 {
	if addr < 0x4000 {
		bank := 0
		if m.mode {
			bank = int(m.bankHigh) << 5
		}
		return m.cart.romBank(bank)[addr]
	}
	bank := int(m.bankHigh)<<5 | int(m.bankLow)
	return m.cart.romBank(bank)[addr&0x3fff]
}

func (m *mbc1) romWrite(addr uint16, data uint8) {
	switch {
	case addr < 0x2000:
		m.ramEnable = data&0x0f == 0x0a
	case addr < 0x4000:
		m.bankLow = data & 0x1f
		if m.bankLow == 0 {
			m.bankLow = 1
		}
	case addr < 0x6000:
		m.bankHigh = data & 0x03
	default:
		m.mode = data&0x01 != 0
	}
}

func (m *mbc1) ramOffset(addr uint16) int {
	offset := int(addr)
	if m.mode {
		offset += int(m.bankHigh) * 8192
	}
	return offset % len(m.cart.ram)
}

func (m *mbc1) ramRead(addr uint16) uint8 {
	if !m.ramEnable || len(m.cart.ram) == 0 {
		return 0xff
	}
	return m.cart.ram[m.ramOffset(addr)]
}

func (m *mbc1) ramWrite(addr uint16, data uint8) {
	if m.ramEnable && len(m.cart.ram) > 0 {
		m.cart.ram[m.ramOffset(addr)] = data
	}
}

func (m *mbc1) serializeSize() int { return 4 }

func (m *mbc1) serialize(data []byte) {
	offset := snapshot.PutBool(data, 0, m.ramEnable)
	offset = snapshot.PutUint8(data, offset, m.bankLow)
	offset = snapshot.PutUint8(data, offset, m.bankHigh)
	_ = snapshot.PutBool(data, offset, m.mode)
}

func (m *mbc1) deserialize(data []byte) {
	var offset int
	m.ramEnable, offset = snapshot.Bool(data, 0)
	m.bankLow, offset = snapshot.Uint8(data, offset)
	m.bankHigh, offset = snapshot.Uint8(data, offset)
	m.mode, _ = snapshot.Bool(data, offset)
}

// mbc2: 4 bit ROM bank and 512 half bytes of built in RAM. Register
// selection is by address bit 8.
type mbc2 struct {
	cart *cartridge

	ramEnable bool
	bank      uint8
}

func newMBC2(cart *cartridge) *mbc2 {
	return &mbc2{cart: cart, bank: 1}
}

func (m *mbc2) romRead(addr uint16) uint8 {
	if addr < 0x4000 {
		return m.cart.romBank(0)[addr]
	}
	return m.cart.romBank(int(m.bank))[addr&0x3fff]
}

func (m *mbc2) romWrite(addr uint16, data uint8) {
	if addr >= 0x4000 {
		return
	}
	if addr&0x0100 == 0 {
		m.ramEnable = data&0x0f == 0x0a
	} else {
		m.bank = data & 0x0f
		if m.bank == 0 {
			m.bank = 1
		}
	}
}

func (m *mbc2) ramRead(addr uint16) uint8 {
	if !m.ramEnable {
		return 0xff
	}
	// only the low nibble is wired
	return m.cart.ram[addr&0x01ff] | 0xf0
}

func (m *mbc2) ramWrite(addr uint16, data uint8) {
	if m.ramEnable {
		m.cart.ram[addr&0x01ff] = data & 0x0f
	}
}

func (m *mbc2) serializeSize() int { return 2 }

func (m *mbc2) serialize(data []byte) {
	offset := snapshot.PutBool(data, 0, m.ramEnable)
	_ = snapshot.PutUint8(data, offset, m.bank)
}

func (m *mbc2) deserialize(data []byte) {
	var offset int
	m.ramEnable, offset = snapshot.Bool(data, 0)
	m.bank, _ = snapshot.Uint8(data, offset)
}

// mbc3: 7 bit ROM bank and RAM/RTC bank select. The RTC registers are
// selectable and writable but do not advance; a machine is deterministic
// and has no access to wall time.
type mbc3 struct {
	cart *cartridge

	ramEnable bool
	romBank   uint8
	ramBank   uint8

	rtc [5]uint8
}

func newMBC3(cart *cartridge) *mbc3 {
	return &mbc3{cart: cart, romBank: 1}
}

func (m *mbc3) romRead(addr uint16) uint8 {
	if addr < 0x4000 {
		return m.cart.romBank(0)[addr]
	}
	return m.cart.romBank(int(m.romBank))[addr&0x3fff]
}

func (m *mbc3) romWrite(addr uint16, data uint8) {
	switch {
	case addr < 0x2000:
		m.ramEnable = data&0x0f == 0x0a
	case addr < 0x4000:
		m.romBank = data & 0x7f
		if m.romBank == 0 {
			m.romBank = 1
		}
	case addr < 0x6000:
		m.ramBank = data
	default:
		// latch clock: nothing to latch
	}
}

func (m *mbc3) ramRead(addr uint16) uint8 {
	if !m.ramEnable {
		return 0xff
	}
	if m.ramBank >= 0x08 && m.ramBank <= 0x0c {
		return m.rtc[m.ramBank-0x08]
	}
	if len(m.cart.ram) == 0 {
		return 0xff
	}
	offset := (int(m.ramBank&0x03)*8192 + int(addr)) % len(m.cart.ram)
	return m.cart.ram[offset]
}

func (m *mbc3) ramWrite(addr uint16, data uint8) {
	if !m.ramEnable {
		return
	}
	if m.ramBank >= 0x08 && m.ramBank <= 0x0c {
		m.rtc[m.ramBank-0x08] = data
		return
	}
	if len(m.cart.ram) == 0 {
		return
	}
	offset := (int(m.ramBank&0x03)*8192 + int(addr)) % len(m.cart.ram)
	m.cart.ram[offset] = data
}

func (m *mbc3) serializeSize() int { return 8 }

func (m *mbc3) serialize(data []byte) {
	offset := snapshot.PutBool(data, 0, m.ramEnable)
	offset = snapshot.PutUint8(data, offset, m.romBank)
	offset = snapshot.PutUint8(data, offset, m.ramBank)
	_ = snapshot.PutBytes(data, offset, m.rtc[:])
}

func (m *mbc3) deserialize(data []byte) {
	var offset int
	m.ramEnable, offset = snapshot.Bool(data, 0)
	m.romBank, offset = snapshot.Uint8(data, offset)
	m.ramBank, offset = snapshot.Uint8(data, offset)
	_ = snapshot.Bytes(data, offset, m.rtc[:])
}

// mbc5: 9 bit ROM bank (bank 0 is selectable) and 4 bit RAM bank.
type mbc5 struct {
	cart *cartridge

	ramEnable bool
	romBank   uint16
	ramBank   uint8
}

func newMBC5(cart *cartridge) *mbc5 {
	return &mbc5{cart: cart, romBank: 1}
}

func (m *mbc5) romRead(addr uint16) uint8 {
	if addr < 0x4000 {
		return m.cart.romBank(0)[addr]
	}
	return m.cart.romBank(int(m.romBank))[addr&0x3fff]
}

func (m *mbc5) romWrite(addr uint16, data uint8) {
	switch {
	case addr < 0x2000:
		m.ramEnable = data&0x0f == 0x0a
	case addr < 0x3000:
		m.romBank = m.romBank&0x0100 | uint16(data)
	case addr < 0x4000:
		m.romBank = m.romBank&0x00ff | uint16(data&0x01)<<8
	case addr < 0x6000:
		m.ramBank = data & 0x0f
	}
}

func (m *mbc5) ramRead(addr uint16) uint8 {
	if !m.ramEnable || len(m.cart.ram) == 0 {
		return 0xff
	}
	offset := (int(m.ramBank)*8192 + int(addr)) % len(m.cart.ram)
	return m.cart.ram[offset]
}

func (m *mbc5) ramWrite(addr uint16, data uint8) {
	if !m.ramEnable || len(m.cart.ram) == 0 {
		return
	}
	offset := (int(m.ramBank)*8192 + int(addr)) % len(m.cart.ram)
	m.cart.ram[offset] = data
}

func (m *mbc5) serializeSize() int { return 4 }

func (m *mbc5) serialize(data []byte) {
	offset := snapshot.PutBool(data, 0, m.ramEnable)
	offset = snapshot.PutUint16(data, offset, m.romBank)
	_ = snapshot.PutUint8(data, offset, m.ramBank)
}

func (m *mbc5) deserialize(data []byte) {
	var offset int
	m.ramEnable, offset = snapshot.Bool(data, 0)
	m.romBank, offset = snapshot.Uint16(data, offset)
	m.ramBank, _ = snapshot.Uint8(data, offset)
}
