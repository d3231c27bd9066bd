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

// Package gameboy emulates the original Game Boy (DMG): an SM83 CPU, the
// LCD controller, the four channel sound unit, the DIV/TIMA timer block
// and the memory bank controllers. Everything runs in the single 4MHz
// clock domain; only the audio sampler converts out of it.
package gameboy

import (
	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/bus"
	"github.com/relicemu/relic/hardware/cpu/sm83"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/hardware/irq"
	"github.com/relicemu/relic/hardware/ports"
	"github.com/relicemu/relic/hardware/scheduler"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/hardware/television"
)

// interrupt request bits in the IF/IE registers
const (
	intVBlank uint8 = 1 << iota
	intSTAT
	intTimer
	intSerial
	intJoypad
)

const gbCyclesPerFrame = lcdDotsPerLine * lcdTotalLines // 70224

var dmgSpec = television.Specification{
	ID:              "Game Boy",
	Width:           160,
	Height:          144,
	ScanlinesTotal:  lcdTotalLines,
	FramesPerSecond: 60,
}

// Machine is a Game Boy console.
type Machine struct {
	tv  *television.Television
	crc uint32

	cpu   *sm83.CPU
	ppu   *ppu
	apu   *apu
	timer *timer
	mbc   mbc
	cart  *cartridge

	bus  *bus.Bus
	wram *bus.RAM
	hram *bus.RAM

	ct *irq.Controller

	ifReg uint8
	ieReg uint8

	// joypad select bits and the latched button state
	joyp  uint8
	input ports.State

	// serial registers are storage only; there is no link cable peer
	sb uint8
	sc uint8

	sch *scheduler.Scheduler
}

type cpuBus struct {
	b *bus.Bus
}

func (cb cpuBus) Read(address uint16) uint8 {
	return cb.b.Read(uint32(address))
}

func (cb cpuBus) Write(address uint16, data uint8) {
	cb.b.Write(uint32(address), data)
}

// NewMachine is the preferred method of initialisation for the Game Boy
// Machine type.
func NewMachine(img image.Image, prefs hardware.Preferences) (*Machine, error) {
	mb, cart, err := parseCartridge(img.Data, img.PersistentRAM)
	if err != nil {
		return nil, err
	}

	m := &Machine{
		tv:   television.NewTelevision(dmgSpec),
		crc:  img.CRC32(),
		mbc:  mb,
		cart: cart,
		bus:  bus.NewBus(),
		wram: bus.NewRAM(8192),
		hram: bus.NewRAM(127),
		ct:   irq.NewController(),
	}

	request := func(bit uint8) {
		m.ifReg |= bit
	}

	m.cpu = sm83.NewCPU(cpuBus{m.bus}, prefs.TolerantCPU)
	m.ppu = newPPU(m.tv.Frame(), request)
	m.apu = newAPU(m.tv.Audio())
	m.timer = newTimer(request)

	if err := m.installRegions(); err != nil {
		return nil, err
	}

	m.sch = scheduler.New(m.cpu.Step, m.ct.Stall, m.frameDone, gbCyclesPerFrame)
	identity := func(cycles int) int { return cycles }
	m.sch.AddChip(scheduler.Chip{Label: "LCD", Ticks: identity, Step: m.ppu.tick})
	m.sch.AddChip(scheduler.Chip{Label: "timer", Ticks: identity, Step: m.timer.step})
	m.sch.AddChip(scheduler.Chip{Label: "sound", Ticks: identity, Step: m.apu.step})

	if err := m.Reset(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Machine) installRegions() error {
	regions := []bus.Region{
		{Label: "ROM", Start: 0x0000, Length: 0x8000, Handler: bus.Func{
			ReadFn:  func(offset uint32) uint8 { return m.mbc.romRead(uint16(offset)) },
			WriteFn: func(offset uint32, data uint8) { m.mbc.romWrite(uint16(offset), data) },
		}},
		{Label: "VRAM", Start: 0x8000, Length: 0x2000, Handler: bus.Func{
			ReadFn:  func(offset uint32) uint8 { return m.ppu.vram[offset] },
			WriteFn: func(offset uint32, data uint8) { m.ppu.vram[offset] = data },
		}},
		{Label: "cartridge RAM", Start: 0xa000, Length: 0x2000, Handler: bus.Func{
			ReadFn:  func(offset uint32) uint8 { return m.mbc.ramRead(uint16(offset)) },
			WriteFn: func(offset uint32, data uint8) { m.mbc.ramWrite(uint16(offset), data) },
		}},
		{Label: "WRAM", Start: 0xc000, Length: 0x2000, Handler: m.wram},
		{Label: "echo", Start: 0xe000, Length: 0x1e00, Handler: m.wram},
		{Label: "OAM", Start: 0xfe00, Length: 0x00a0, Handler: bus.Func{
			ReadFn:  func(offset uint32) uint8 { return m.ppu.oam[offset] },
			WriteFn: func(offset uint32, data uint8) { m.ppu.oam[offset] = data },
		}},
		{Label: "IO", Start: 0xff00, Length: 0x0080, Handler: bus.Func{
			ReadFn:  m.ioRead,
			WriteFn: m.ioWrite,
		}},
		{Label: "HRAM", Start: 0xff80, Length: 0x007f, Handler: m.hram},
		{Label: "IE", Start: 0xffff, Length: 0x0001, Handler: bus.Func{
			ReadFn:  func(uint32) uint8 { return m.ieReg },
			WriteFn: func(_ uint32, data uint8) { m.ieReg = data },
		}},
	}

	for _, r := range regions {
		if err := m.bus.Install(r); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) ioRead(offset uint32) uint8 {
	addr := uint16(0xff00 + offset)
	switch {
	case addr == 0xff00:
		return m.joypadRead()
	case addr == 0xff01:
		return m.sb
	case addr == 0xff02:
		return m.sc
	case addr >= 0xff04 && addr <= 0xff07:
		return m.timer.read(addr)
	case addr == 0xff0f:
		return 0xe0 | m.ifReg
	case addr >= 0xff10 && addr <= 0xff3f:
		return m.apu.readRegister(addr)
	case addr >= 0xff40 && addr <= 0xff4b:
		return m.ppu.readRegister(addr)
	}
	return 0xff
}

func (m *Machine) ioWrite(offset uint32, data uint8) {
	addr := uint16(0xff00 + offset)
	switch {
	case addr == 0xff00:
		m.joyp = data & 0x30
	case addr == 0xff01:
		m.sb = data
	case addr == 0xff02:
		m.sc = data
	case addr >= 0xff04 && addr <= 0xff07:
		m.timer.write(addr, data)
	case addr == 0xff0f:
		m.ifReg = data & 0x1f
	case addr >= 0xff10 && addr <= 0xff3f:
		m.apu.writeRegister(addr, data)
	case addr == 0xff46:
		m.oamDMA(data)
	case addr >= 0xff40 && addr <= 0xff4b:
		m.ppu.writeRegister(addr, data)
	}
}

// joypadRead returns the selected button group, active low.
func (m *Machine) joypadRead() uint8 {
	v := 0xc0 | m.joyp | 0x0f

	if m.joyp&0x10 == 0 { // directions
		if m.input.Pressed(ports.Right) {
			v &^= 0x01
		}
		if m.input.Pressed(ports.Left) {
			v &^= 0x02
		}
		if m.input.Pressed(ports.Up) {
			v &^= 0x04
		}
		if m.input.Pressed(ports.Down) {
			v &^= 0x08
		}
	}
	if m.joyp&0x20 == 0 { // buttons
		if m.input.Pressed(ports.A) {
			v &^= 0x01
		}
		if m.input.Pressed(ports.B) {
			v &^= 0x02
		}
		if m.input.Pressed(ports.Select) {
			v &^= 0x04
		}
		if m.input.Pressed(ports.Start) {
			v &^= 0x08
		}
	}
	return v
}

// oamDMA copies 160 bytes into sprite memory. The real DMG keeps the CPU
// running from HRAM during the transfer; modelling the cost as a stall
// keeps the cycle accounting exact for the wait loops games actually use.
func (m *Machine) oamDMA(page uint8) {
	src := uint32(page) << 8
	m.ct.Schedule(irq.Transfer{
		Label:         "OAM DMA",
		Source:        src,
		Dest:          0xfe00,
		Units:         160,
		CyclesPerUnit: 4,
	}, func() {
		for i := uint32(0); i < 160; i++ {
			m.ppu.oam[i] = m.bus.Read(src + i)
		}
	})
}

func (m *Machine) frameDone() bool {
	if m.ppu.frameDone {
		m.ppu.frameDone = false
		return true
	}
	return false
}

// Reset implements the hardware.Machine interface.
func (m *Machine) Reset() error {
	for i := range m.wram.Data {
		m.wram.Data[i] = 0
	}
	for i := range m.hram.Data {
		m.hram.Data[i] = 0
	}
	m.ppu.reset()
	m.apu.reset()
	m.timer.reset()
	m.cpu.Reset()
	m.ifReg = 0x01
	m.ieReg = 0
	m.joyp = 0x30
	m.sb = 0
	m.sc = 0
	m.tv.Reset()
	return nil
}

// RunFrame implements the hardware.Machine interface.
func (m *Machine) RunFrame() error {
	err := m.sch.RunFrame()
	m.sch.Rearm()
	if err != nil {
		return err
	}
	return m.tv.EndFrame()
}

// SetInput implements the hardware.Machine interface. The Game Boy has a
// single controller.
func (m *Machine) SetInput(player int, state ports.State) {
	if player != 0 {
		return
	}
	if state&^m.input != 0 {
		m.ifReg |= intJoypad
	}
	m.input = state
}

// Television implements the hardware.Machine interface.
func (m *Machine) Television() *television.Television {
	return m.tv
}

// PersistentRAM implements the hardware.Machine interface.
func (m *Machine) PersistentRAM() []byte {
	if !m.cart.battery {
		return nil
	}
	return m.cart.ram
}

// ConsoleID implements the hardware.Machine interface.
func (m *Machine) ConsoleID() image.Console {
	return image.GameBoy
}

// ImageCRC implements the hardware.Machine interface.
func (m *Machine) ImageCRC() uint32 {
	return m.crc
}

// SerializeSize implements the hardware.Machine interface.
func (m *Machine) SerializeSize() int {
	return sm83.SerializeSize +
		len(m.wram.Data) +
		len(m.hram.Data) +
		len(m.cart.ram) +
		ppuSerializeSize +
		apuSerializeSize +
		timerSerializeSize +
		m.mbc.serializeSize() +
		5 + // IF, IE, joypad select, serial registers
		8 // scheduler cycle count
}

// Serialize implements the hardware.Machine interface.
func (m *Machine) Serialize(data []byte) error {
	if len(data) != m.SerializeSize() {
		return curated.Errorf("gameboy: serialize: buffer is %d bytes, need %d", len(data), m.SerializeSize())
	}

	m.cpu.Serialize(data)
	offset := sm83.SerializeSize

	offset = snapshot.PutBytes(data, offset, m.wram.Data)
	offset = snapshot.PutBytes(data, offset, m.hram.Data)
	offset = snapshot.PutBytes(data, offset, m.cart.ram)

	m.ppu.serialize(data[offset:])
	offset += ppuSerializeSize
	m.apu.serialize(data[offset:])
	offset += apuSerializeSize
	m.timer.serialize(data[offset:])
	offset += timerSerializeSize
	m.mbc.serialize(data[offset:])
	offset += m.mbc.serializeSize()

	offset = snapshot.PutUint8(data, offset, m.ifReg)
	offset = snapshot.PutUint8(data, offset, m.ieReg)
	offset = snapshot.PutUint8(data, offset, m.joyp)
	offset = snapshot.PutUint8(data, offset, m.sb)
	offset = snapshot.PutUint8(data, offset, m.sc)
	_ = snapshot.PutUint64(data, offset, m.sch.TotalCycles())

	return nil
}

// Deserialize implements the hardware.Machine interface.
func (m *Machine) Deserialize(data []byte) error {
	if len(data) != m.SerializeSize() {
		return curated.Errorf("gameboy: deserialize: buffer is %d bytes, need %d", len(data), m.SerializeSize())
	}

	m.cpu.Deserialize(data)
	offset := sm83.SerializeSize

	offset = snapshot.Bytes(data, offset, m.wram.Data)
	offset = snapshot.Bytes(data, offset, m.hram.Data)
	offset = snapshot.Bytes(data, offset, m.cart.ram)

	m.ppu.deserialize(data[offset:])
	offset += ppuSerializeSize
	m.apu.deserialize(data[offset:])
	offset += apuSerializeSize
	m.timer.deserialize(data[offset:])
	offset += timerSerializeSize
	m.mbc.deserialize(data[offset:])
	offset += m.mbc.serializeSize()

	m.ifReg, offset = snapshot.Uint8(data, offset)
	m.ieReg, offset = snapshot.Uint8(data, offset)
	m.joyp, offset = snapshot.Uint8(data, offset)
	m.sb, offset = snapshot.Uint8(data, offset)
	m.sc, offset = snapshot.Uint8(data, offset)

	cycles, _ := snapshot.Uint64(data, offset)
	m.sch.SetTotalCycles(cycles)

	return nil
}
