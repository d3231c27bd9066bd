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

// Package nes emulates the Nintendo Entertainment System: a 2A03 (a 6502
// with decimal mode disconnected, plus the audio unit), the 2C02 picture
// processor, 2KB of work RAM and a cartridge mapper. The PPU runs at three
// times the CPU clock and is stepped through a clock domain; the APU runs
// at the CPU clock.
package nes

import (
	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/bus"
	"github.com/relicemu/relic/hardware/clocks"
	"github.com/relicemu/relic/hardware/cpu/mos6502"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/hardware/irq"
	"github.com/relicemu/relic/hardware/ports"
	"github.com/relicemu/relic/hardware/scheduler"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/hardware/television"
)

// NTSC timing. the CPU runs at a twelfth of the master clock and the PPU at
// a quarter, giving the 3:1 PPU ratio
const (
	nesCPUClock       = clocks.NESMasterNTSC / 12
	nesCyclesPerFrame = ppuDotsPerLine * (ppuPreRender + 1) / 3
)

var ntscSpec = television.Specification{
	ID:              "NES NTSC",
	Width:           256,
	Height:          240,
	ScanlinesTotal:  262,
	FramesPerSecond: 60,
}

// pad is the shift register behind one controller port.
type pad struct {
	state  ports.State
	shift  uint8
	strobe bool
}

// buttons packs the latched state in the order the shift register returns
// it: A, B, Select, Start, Up, Down, Left, Right.
func (p *pad) buttons() uint8 {
	var v uint8
	for i, mask := range [8]ports.State{
		ports.A, ports.B, ports.Select, ports.Start,
		ports.Up, ports.Down, ports.Left, ports.Right,
	} {
		if p.state.Pressed(mask) {
			v |= 1 << i
		}
	}
	return v
}

func (p *pad) read() uint8 {
	if p.strobe {
		p.shift = p.buttons()
	}
	v := p.shift & 0x01
	p.shift = p.shift>>1 | 0x80

	// the upper bits float with open bus remnants on real hardware
	return v | 0x40
}

func (p *pad) setStrobe(v bool) {
	if p.strobe && !v {
		p.shift = p.buttons()
	}
	p.strobe = v
}

// Machine is an NES console.
type Machine struct {
	tv  *television.Television
	crc uint32

	cpu    *mos6502.CPU
	ppu    *ppu
	apu    *apu
	mapper mapper
	cart   *cartridge

	bus *bus.Bus
	ram *bus.RAM

	ct       *irq.Controller
	nmi      *irq.Line
	cpuIRQ   *irq.Line
	frameIRQ *irq.Line
	dmcIRQ   *irq.Line
	mapIRQ   *irq.Line

	sch       *scheduler.Scheduler
	ppuDomain *clocks.Domain

	pads [2]pad
}

// cpuBus narrows the 32 bit system bus to the CPU's 16 bit view.
type cpuBus struct {
	b *bus.Bus
}

func (cb cpuBus) Read(address uint16) uint8 {
	return cb.b.Read(uint32(address))
}

func (cb cpuBus) Write(address uint16, data uint8) {
	cb.b.Write(uint32(address), data)
}

// NewMachine is the preferred method of initialisation for the NES Machine
// type.
func NewMachine(img image.Image, prefs hardware.Preferences) (*Machine, error) {
	mp, cart, err := parseCartridge(img.Data, img.PersistentRAM)
	if err != nil {
		return nil, err
	}

	m := &Machine{
		tv:     television.NewTelevision(ntscSpec),
		crc:    img.CRC32(),
		mapper: mp,
		cart:   cart,
		bus:    bus.NewBus(),
		ram:    bus.NewRAM(2048),
		ct:     irq.NewController(),
	}

	m.nmi = m.ct.AddLine("NMI", irq.Edge, false)
	m.cpuIRQ = m.ct.AddLine("IRQ", irq.Level, true)
	m.frameIRQ = m.ct.AddLine("APU frame IRQ", irq.Level, true)
	m.dmcIRQ = m.ct.AddLine("DMC IRQ", irq.Level, true)
	m.mapIRQ = m.ct.AddLine("mapper IRQ", irq.Level, true)

	if mc3, ok := mp.(*mmc3); ok {
		mc3.irqLine = m.mapIRQ
	}

	m.cpu = mos6502.NewCPU(cpuBus{m.bus}, m.nmi, m.cpuIRQ, false, prefs.TolerantCPU)
	m.ppu = newPPU(mp, m.nmi, m.tv.Frame())
	m.apu = newAPU(nesCPUClock, m.frameIRQ, m.dmcIRQ, m.tv.Audio())
	m.apu.dmc.ct = m.ct
	m.apu.dmc.read = func(addr uint16) uint8 {
		return m.bus.Read(uint32(addr))
	}

	if err := m.installRegions(); err != nil {
		return nil, err
	}

	m.ppuDomain = clocks.NewDomain(3, 1)
	m.sch = scheduler.New(m.cpu.Step, m.ct.Stall, m.frameDone, nesCyclesPerFrame)
	m.sch.AddChip(scheduler.Chip{
		Label: "2C02",
		Ticks: m.ppuDomain.Ticks,
		Step:  m.ppu.tick,
	})
	m.sch.AddChip(scheduler.Chip{
		Label: "2A03 APU",
		Ticks: func(cycles int) int { return cycles },
		Step:  m.apu.step,
	})

	// the CPU's interrupt pin is a wired OR of the level sources
	m.sch.AddChip(scheduler.Chip{
		Label: "IRQ sum",
		Ticks: func(cycles int) int { return cycles },
		Step: func(int) {
			m.cpuIRQ.Assert(m.frameIRQ.Pending() || m.dmcIRQ.Pending() || m.mapIRQ.Pending())
		},
	})

	if err := m.Reset(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Machine) installRegions() error {
	regions := []bus.Region{
		{Label: "RAM", Start: 0x0000, Length: 0x2000, Mirror: 0x07ff, Handler: m.ram},
		{Label: "PPU", Start: 0x2000, Length: 0x2000, Mirror: 0x0007, Handler: bus.Func{
			ReadFn:  func(offset uint32) uint8 { return m.ppu.readRegister(uint16(offset)) },
			WriteFn: func(offset uint32, data uint8) { m.ppu.writeRegister(uint16(offset), data) },
		}},
		{Label: "APU/IO", Start: 0x4000, Length: 0x0020, Handler: bus.Func{
			ReadFn:  m.ioRead,
			WriteFn: m.ioWrite,
		}},
		{Label: "cartridge", Start: 0x6000, Length: 0xa000, Handler: bus.Func{
			ReadFn:  func(offset uint32) uint8 { return m.mapper.cpuRead(0x6000 + uint16(offset)) },
			WriteFn: func(offset uint32, data uint8) { m.mapper.cpuWrite(0x6000+uint16(offset), data) },
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
	switch offset {
	case 0x15:
		return m.apu.readStatus()
	case 0x16:
		return m.pads[0].read()
	case 0x17:
		return m.pads[1].read()
	}
	return 0
}

func (m *Machine) ioWrite(offset uint32, data uint8) {
	switch offset {
	case 0x14:
		m.oamDMA(data)
	case 0x16:
		m.pads[0].setStrobe(data&0x01 != 0)
		m.pads[1].setStrobe(data&0x01 != 0)
	default:
		m.apu.writeRegister(uint16(offset), data)
	}
}

// oamDMA copies a page of CPU memory into sprite memory. The copy is atomic
// and the CPU pays for it with 513 stall cycles.
func (m *Machine) oamDMA(page uint8) {
	src := uint32(page) << 8
	m.ct.Schedule(irq.Transfer{
		Label:         "OAM DMA",
		Source:        src,
		Dest:          0x2004,
		Units:         256,
		CyclesPerUnit: 2,
	}, func() {
		for i := uint32(0); i < 256; i++ {
			m.ppu.writeRegister(0x04, m.bus.Read(src+i))
		}
	})
	m.ct.AddStall(1) // alignment cycle
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
	for i := range m.ram.Data {
		m.ram.Data[i] = 0
	}
	m.ppu.reset()
	m.apu.reset()
	m.cpu.Reset()
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

// SetInput implements the hardware.Machine interface.
func (m *Machine) SetInput(player int, state ports.State) {
	if player < 0 || player >= len(m.pads) {
		return
	}
	m.pads[player].state = state
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
	return m.cart.sram
}

// ConsoleID implements the hardware.Machine interface.
func (m *Machine) ConsoleID() image.Console {
	return image.NES
}

// ImageCRC implements the hardware.Machine interface.
func (m *Machine) ImageCRC() uint32 {
	return m.crc
}

// SerializeSize implements the hardware.Machine interface.
func (m *Machine) SerializeSize() int {
	return mos6502.SerializeSize +
		len(m.ram.Data) +
		len(m.cart.sram) +
		len(m.cart.chr) +
		ppuSerializeSize +
		apuSerializeSize +
		m.mapper.serializeSize() +
		len(m.pads)*2 + // shift register and strobe per pad
		3 + // frame, DMC and mapper IRQ lines
		8 + // scheduler cycle count
		8 // PPU domain phase
}

// Serialize implements the hardware.Machine interface.
func (m *Machine) Serialize(data []byte) error {
	if len(data) != m.SerializeSize() {
		return curated.Errorf("nes: serialize: buffer is %d bytes, need %d", len(data), m.SerializeSize())
	}

	m.cpu.Serialize(data)
	offset := mos6502.SerializeSize

	offset = snapshot.PutBytes(data, offset, m.ram.Data)
	offset = snapshot.PutBytes(data, offset, m.cart.sram)
	offset = snapshot.PutBytes(data, offset, m.cart.chr)

	m.ppu.serialize(data[offset:])
	offset += ppuSerializeSize
	m.apu.serialize(data[offset:])
	offset += apuSerializeSize
	m.mapper.serialize(data[offset:])
	offset += m.mapper.serializeSize()

	for i := range m.pads {
		offset = snapshot.PutUint8(data, offset, m.pads[i].shift)
		offset = snapshot.PutBool(data, offset, m.pads[i].strobe)
	}

	offset = snapshot.PutUint8(data, offset, m.frameIRQ.Serialize())
	offset = snapshot.PutUint8(data, offset, m.dmcIRQ.Serialize())
	offset = snapshot.PutUint8(data, offset, m.mapIRQ.Serialize())

	offset = snapshot.PutUint64(data, offset, m.sch.TotalCycles())
	_ = snapshot.PutInt64(data, offset, m.ppuDomain.Phase())

	return nil
}

// Deserialize implements the hardware.Machine interface.
func (m *Machine) Deserialize(data []byte) error {
	if len(data) != m.SerializeSize() {
		return curated.Errorf("nes: deserialize: buffer is %d bytes, need %d", len(data), m.SerializeSize())
	}

	m.cpu.Deserialize(data)
	offset := mos6502.SerializeSize

	offset = snapshot.Bytes(data, offset, m.ram.Data)
	offset = snapshot.Bytes(data, offset, m.cart.sram)
	offset = snapshot.Bytes(data, offset, m.cart.chr)

	m.ppu.deserialize(data[offset:])
	offset += ppuSerializeSize
	m.apu.deserialize(data[offset:])
	offset += apuSerializeSize
	m.mapper.deserialize(data[offset:])
	offset += m.mapper.serializeSize()

	for i := range m.pads {
		m.pads[i].shift, offset = snapshot.Uint8(data, offset)
		m.pads[i].strobe, offset = snapshot.Bool(data, offset)
	}

	var v uint8
	v, offset = snapshot.Uint8(data, offset)
	m.frameIRQ.Deserialize(v)
	v, offset = snapshot.Uint8(data, offset)
	m.dmcIRQ.Deserialize(v)
	v, offset = snapshot.Uint8(data, offset)
	m.mapIRQ.Deserialize(v)

	var cycles uint64
	cycles, offset = snapshot.Uint64(data, offset)
	m.sch.SetTotalCycles(cycles)
	phase, _ := snapshot.Int64(data, offset)
	m.ppuDomain.SetPhase(phase)

	return nil
}
