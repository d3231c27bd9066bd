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

package bus

// RAM is the simplest handler: plain storage.
type RAM struct {
	Data []byte
}

// NewRAM creates a RAM handler of the given size.
func NewRAM(size int) *RAM {
	return &RAM{Data: make([]byte, size)}
}

// Read implements the Handler interface.
func (ram *RAM) Read(offset uint32) uint8 {
	return ram.Data[offset]
}

// Write implements the Handler interface.
func (ram *RAM) Write(offset uint32, data uint8) {
	ram.Data[offset] = data
}

// ROM ignores writes.
type ROM struct {
	Data []byte
}

// Read implements the Handler interface.
func (rom *ROM) Read(offset uint32) uint8 {
	return rom.Data[offset%uint32(len(rom.Data))]
}

// Write implements the Handler interface.
func (rom *ROM) Write(offset uint32, data uint8) {
}

// Banked is storage viewed through a movable bank window. The mapper logic
// that decides which bank is selected lives with the console; Banked only
// performs the logical-to-physical translation.
type Banked struct {
	Data     []byte
	BankSize uint32
	Writable bool

	bank uint32
}

// NewBanked creates a banked view over data with the given window size.
func NewBanked(data []byte, bankSize uint32, writable bool) *Banked {
	return &Banked{Data: data, BankSize: bankSize, Writable: writable}
}

// Select the visible bank. Out of range banks wrap, which matches how
// address lines beyond the ROM size are simply not connected.
func (bk *Banked) Select(bank int) {
	n := uint32(len(bk.Data)) / bk.BankSize
	if n == 0 {
		return
	}
	bk.bank = uint32(bank) % n
}

// Bank returns the currently selected bank.
func (bk *Banked) Bank() int {
	return int(bk.bank)
}

// Read implements the Handler interface.
func (bk *Banked) Read(offset uint32) uint8 {
	return bk.Data[bk.bank*bk.BankSize+(offset%bk.BankSize)]
}

// Write implements the Handler interface.
func (bk *Banked) Write(offset uint32, data uint8) {
	if bk.Writable {
		bk.Data[bk.bank*bk.BankSize+(offset%bk.BankSize)] = data
	}
}

// Func adapts a pair of functions to the Handler interface. Used for
// memory-mapped chip registers.
type Func struct {
	ReadFn  func(offset uint32) uint8
	WriteFn func(offset uint32, data uint8)
}

// Read implements the Handler interface.
func (f Func) Read(offset uint32) uint8 {
	if f.ReadFn == nil {
		return 0
	}
	return f.ReadFn(offset)
}

// Write implements the Handler interface.
func (f Func) Write(offset uint32, data uint8) {
	if f.WriteFn != nil {
		f.WriteFn(offset, data)
	}
}
