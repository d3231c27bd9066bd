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

// Package segacd emulates the Sega CD / Mega-CD expansion: a second 68000
// with 512KB of program RAM, 256KB of word RAM shared with the console,
// the gate array that couples the two CPUs, the RF5C164 PCM chip and 8KB
// of battery backed backup RAM.
//
// The expansion plugs into the megadrive package's expansion connector.
// The sub CPU is interleaved inside the main CPU's step, so the two cores
// stay within one instruction of each other.
package segacd

import (
	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/clocks"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/hardware/megadrive"
	"github.com/relicemu/relic/hardware/snapshot"
	m68k "github.com/user-none/go-chip-m68k"
)

const (
	biosSize   = 0x20000
	prgSize    = 0x80000
	wordSize   = 0x40000
	backupSize = 0x2000

	// the stopwatch, timer and PCM sample clock all derive from the sub
	// crystal through a common divider
	tickDivider = 384
)

// NewMachine is the preferred method of initialisation for a Sega CD. The
// BIOS ROM arrives in the image's BIOS field; the Data field may carry a
// program the driver has loaded.
func NewMachine(img image.Image, prefs hardware.Preferences) (*megadrive.Machine, error) {
	if len(img.BIOS) != biosSize {
		return nil, curated.Errorf(hardware.InvalidImage, "BIOS is %d bytes, want %d", len(img.BIOS), biosSize)
	}

	exp, err := newExpansion(img.BIOS, img.PersistentRAM)
	if err != nil {
		return nil, err
	}

	return megadrive.NewExpansionMachine(img, prefs, image.SegaCD, exp)
}

// expansion implements megadrive.Expansion.
type expansion struct {
	bios   []byte
	prg    []byte
	word   []byte
	backup []byte

	sub       *m68k.CPU
	subDomain *clocks.Domain

	pcm *pcm

	// gate array state. see gate.go for the register surface
	subReset     bool
	subBusReq    bool
	pendingReset bool
	prgBank      uint8
	wp           uint8

	// word RAM arbitration: 2M mode hands the whole block to one side,
	// 1M mode splits it into two swappable banks
	mode1M   bool
	ownerSub bool
	ret      bool

	hintVector uint16
	stopwatch  uint16

	commFlagMain uint8
	commFlagSub  uint8
	commCmd      [16]uint8
	commStat     [16]uint8

	timerReload uint8
	timerCount  int
	intMask     uint8

	divider int
}

func newExpansion(bios []byte, persistent []byte) (*expansion, error) {
	e := &expansion{
		bios:      bios,
		prg:       make([]byte, prgSize),
		word:      make([]byte, wordSize),
		backup:    make([]byte, backupSize),
		subDomain: clocks.NewDomain(clocks.SegaCDSubClock, clocks.MegaDriveMasterNTSC/7),
		pcm:       newPCM(),
	}
	e.sub = m68k.New(subbus{e})
	e.subReset = true
	e.subBusReq = true

	if persistent != nil {
		if len(persistent) != backupSize {
			return nil, curated.Errorf(hardware.InvalidImage, "persistent RAM is %d bytes, want %d", len(persistent), backupSize)
		}
		copy(e.backup, persistent)
	}

	return e, nil
}

// Reset implements megadrive.Expansion. Backup RAM survives.
func (e *expansion) Reset() {
	for i := range e.prg {
		e.prg[i] = 0
	}
	for i := range e.word {
		e.word[i] = 0
	}

	e.subReset = true
	e.subBusReq = true
	e.pendingReset = false
	e.prgBank = 0
	e.wp = 0
	e.mode1M = false
	e.ownerSub = false
	e.ret = true
	e.hintVector = 0xffff
	e.stopwatch = 0
	e.commFlagMain = 0
	e.commFlagSub = 0
	e.commCmd = [16]uint8{}
	e.commStat = [16]uint8{}
	e.timerReload = 0
	e.timerCount = 0
	e.intMask = 0
	e.divider = 0

	e.pcm.reset()
	e.sub.Reset()
}

// PersistentRAM implements megadrive.Expansion. The internal backup RAM is
// always battery backed.
func (e *expansion) PersistentRAM() []byte {
	return e.backup
}

// mainWordBase returns the byte offset of the word RAM bank the main CPU
// sees, or -1 when the sub CPU owns it.
func (e *expansion) mainWordBase() int {
	if e.mode1M {
		if e.ret {
			return 0x20000
		}
		return 0
	}
	if e.ownerSub {
		return -1
	}
	return 0
}

// subWordBase is the sub CPU's counterpart for its 2M window.
func (e *expansion) subWordBase() int {
	if e.mode1M {
		return -1
	}
	if !e.ownerSub {
		return -1
	}
	return 0
}

// sub1MBase is the 1M bank mapped into the sub CPU's 0x0c0000 window.
func (e *expansion) sub1MBase() int {
	if !e.mode1M {
		return -1
	}
	if e.ret {
		return 0
	}
	return 0x20000
}

// Read8 implements megadrive.Expansion: the main CPU side of the device.
func (e *expansion) Read8(addr uint32) uint8 {
	switch {
	case addr < 0x20000:
		return e.bios[addr]
	case addr < 0x40000:
		return e.prg[int(e.prgBank)*0x20000+int(addr-0x20000)]
	case addr >= 0x200000 && addr < 0x240000:
		base := e.mainWordBase()
		if base < 0 {
			return 0xff
		}
		if e.mode1M {
			return e.word[base+int(addr&0x1ffff)]
		}
		return e.word[int(addr-0x200000)]
	case addr >= 0xa12000 && addr < 0xa12100:
		return e.gateReadMain(uint8(addr))
	}
	return 0xff
}

// Write8 implements megadrive.Expansion.
func (e *expansion) Write8(addr uint32, data uint8) {
	switch {
	case addr < 0x20000:
		// BIOS ROM
	case addr < 0x40000:
		e.prg[int(e.prgBank)*0x20000+int(addr-0x20000)] = data
	case addr >= 0x200000 && addr < 0x240000:
		base := e.mainWordBase()
		if base < 0 {
			return
		}
		if e.mode1M {
			e.word[base+int(addr&0x1ffff)] = data
			return
		}
		e.word[int(addr-0x200000)] = data
	case addr >= 0xa12000 && addr < 0xa12100:
		e.gateWriteMain(uint8(addr), data)
	}
}

// subRunning is true when the sub CPU can execute.
func (e *expansion) subRunning() bool {
	return !e.subReset && !e.subBusReq
}

// Run implements megadrive.Expansion: advance the expansion by main CPU
// cycles, nesting the sub CPU inside the main CPU step.
func (e *expansion) Run(cycles int) {
	budget := e.subDomain.Ticks(cycles)

	e.tickPeripherals(budget)
	e.pcm.step(budget)

	if e.pendingReset {
		e.sub.Reset()
		e.pendingReset = false
	}

	if !e.subRunning() {
		return
	}

	for budget > 0 {
		consumed := e.sub.StepCycles(1)
		if consumed == 0 {
			// double bus fault. the sub CPU stays halted until the main
			// CPU cycles its reset line
			break
		}
		budget -= consumed
	}
}

// tickPeripherals advances the stopwatch and the INT3 timer. Both run off
// the divided sub clock whether or not the sub CPU does.
func (e *expansion) tickPeripherals(cycles int) {
	e.divider += cycles
	for e.divider >= tickDivider {
		e.divider -= tickDivider

		e.stopwatch = (e.stopwatch + 1) & 0x0fff

		if e.timerReload > 0 {
			e.timerCount--
			if e.timerCount <= 0 {
				e.timerCount = int(e.timerReload)
				if e.intMask&0x08 != 0 {
					e.sub.RequestInterrupt(3, nil)
				}
			}
		}
	}
}

// TakeAudio implements megadrive.Expansion.
func (e *expansion) TakeAudio() ([]float32, []float32) {
	return e.pcm.take()
}

// SerializeSize implements megadrive.Expansion.
func (e *expansion) SerializeSize() int {
	return len(e.prg) +
		len(e.word) +
		len(e.backup) +
		m68k.SerializeSize +
		8 + // sub clock domain phase
		gateSerializeSize +
		pcmSerializeSize
}

// Serialize implements megadrive.Expansion.
func (e *expansion) Serialize(data []byte) {
	offset := snapshot.PutBytes(data, 0, e.prg)
	offset = snapshot.PutBytes(data, offset, e.word)
	offset = snapshot.PutBytes(data, offset, e.backup)

	e.sub.Serialize(data[offset:])
	offset += m68k.SerializeSize

	offset = snapshot.PutInt64(data, offset, e.subDomain.Phase())
	offset = e.serializeGate(data, offset)
	e.pcm.serialize(data[offset:])
}

// Deserialize implements megadrive.Expansion.
func (e *expansion) Deserialize(data []byte) {
	offset := snapshot.Bytes(data, 0, e.prg)
	offset = snapshot.Bytes(data, offset, e.word)
	offset = snapshot.Bytes(data, offset, e.backup)

	e.sub.Deserialize(data[offset:])
	offset += m68k.SerializeSize

	var phase int64
	phase, offset = snapshot.Int64(data, offset)
	e.subDomain.SetPhase(phase)
	offset = e.deserializeGate(data, offset)
	e.pcm.deserialize(data[offset:])
}
