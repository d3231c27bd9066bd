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

// Package snes emulates the Super Nintendo: a 65816 with 128KB of work
// RAM, the S-PPU pair, the SPC700 sound unit behind four communication
// ports, and an eight channel DMA/HDMA unit. The CPU runs at a sixth of
// the master clock and the PPU dot clock at a quarter.
package snes

import (
	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/clocks"
	"github.com/relicemu/relic/hardware/cpu/w65c816"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/hardware/irq"
	"github.com/relicemu/relic/hardware/ports"
	"github.com/relicemu/relic/hardware/scheduler"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/hardware/television"
)

const (
	snesCPUClock       = clocks.SNESMasterNTSC / 6
	snesCyclesPerFrame = ppuDotsPerLine * ppuLinesTotal * 4 / 6
)

var ntscSpec = television.Specification{
	ID:              "SNES NTSC",
	Width:           ppuVisibleWidth,
	Height:          ppuActiveLines,
	ScanlinesTotal:  ppuLinesTotal,
	FramesPerSecond: 60,
}

// pad is the 16 bit shift register behind one controller port.
type pad struct {
	state  ports.State
	shift  uint16
	strobe bool
}

// buttons packs the latched state in serial order: B, Y, Select, Start,
// Up, Down, Left, Right, A, X, L, R.
func (p *pad) buttons() uint16 {
	var v uint16
	for i, mask := range [12]ports.State{
		ports.B, ports.Y, ports.Select, ports.Start,
		ports.Up, ports.Down, ports.Left, ports.Right,
		ports.A, ports.X, ports.L, ports.R,
	} {
		if p.state.Pressed(mask) {
			v |= 0x8000 >> uint(i)
		}
	}
	return v
}

func (p *pad) read() uint8 {
	if p.strobe {
		p.shift = p.buttons()
	}
	v := uint8(p.shift >> 15)
	p.shift = p.shift<<1 | 0x01
	return v
}

func (p *pad) setStrobe(v bool) {
	if p.strobe && !v {
		p.shift = p.buttons()
	}
	p.strobe = v
}

// Machine is a SNES console.
type Machine struct {
	tv  *television.Television
	crc uint32

	cpu  *w65c816.CPU
	ppu  *ppu
	apu  *apu
	dma  *dma
	cart *cartridge

	wram [0x20000]uint8

	ct      *irq.Controller
	nmi     *irq.Line
	irqLine *irq.Line

	sch       *scheduler.Scheduler
	ppuDomain *clocks.Domain
	apuDomain *clocks.Domain

	pads    [2]pad
	joyData [2]uint16

	// $4200
	nmiEnable bool
	vIRQen    bool
	hIRQen    bool
	autoJoy   bool

	nmiFlag bool
	irqFlag bool

	wrio  uint8
	mpyA  uint8
	mpyB  uint8
	wrdiv uint16
	rddiv uint16
	rdmpy uint16
	htime uint16
	vtime uint16

	// WRAM port address, 17 bits
	wmAddr uint32
}

// snesBus is the CPU's 24 bit view of the machine.
type snesBus struct {
	m *Machine
}

func (sb snesBus) Read(address uint32) uint8 {
	return sb.m.busRead(address)
}

func (sb snesBus) Write(address uint32, data uint8) {
	sb.m.busWrite(address, data)
}

// NewMachine is the preferred method of initialisation for the SNES
// Machine type.
func NewMachine(img image.Image, prefs hardware.Preferences) (*Machine, error) {
	cart, err := parseCartridge(img.Data, img.Mapper, img.RAMSize, img.Battery, img.PersistentRAM)
	if err != nil {
		return nil, err
	}

	m := &Machine{
		tv:   television.NewTelevision(ntscSpec),
		crc:  img.CRC32(),
		cart: cart,
		ct:   irq.NewController(),
	}

	m.nmi = m.ct.AddLine("NMI", irq.Edge, false)
	m.irqLine = m.ct.AddLine("IRQ", irq.Level, true)

	m.cpu = w65c816.NewCPU(snesBus{m}, m.nmi, m.irqLine)
	m.ppu = newPPU(m.tv.Frame())
	m.ppu.scanline = m.scanline
	m.apu = newAPU(m.tv.Audio())
	m.dma = &dma{
		readA:  func(bank uint8, offset uint16) uint8 { return m.busRead(uint32(bank)<<16 | uint32(offset)) },
		writeA: func(bank uint8, offset uint16, data uint8) { m.busWrite(uint32(bank)<<16|uint32(offset), data) },
		readB:  m.readB,
		writeB: m.writeB,
	}

	// a dot is four master cycles, a CPU cycle six
	m.ppuDomain = clocks.NewDomain(3, 2)
	m.apuDomain = clocks.NewDomain(apuClock, snesCPUClock)

	m.sch = scheduler.New(m.cpu.Step, m.ct.Stall, m.frameDone, snesCyclesPerFrame)
	m.sch.AddChip(scheduler.Chip{
		Label: "S-PPU",
		Ticks: m.ppuDomain.Ticks,
		Step:  m.ppu.tick,
	})
	m.sch.AddChip(scheduler.Chip{
		Label: "S-APU",
		Ticks: m.apuDomain.Ticks,
		Step:  m.apu.step,
	})

	if err := m.Reset(); err != nil {
		return nil, err
	}

	return m, nil
}

// scanline handles the machine side of the start of every line: HDMA, the
// vblank interrupt, auto joypad reading and the H/V timer interrupt.
func (m *Machine) scanline(line int) {
	switch line {
	case 0:
		m.nmiFlag = false
		m.nmi.Assert(false)
		m.dma.hdmaInit()
	case ppuVBlankLine:
		m.nmiFlag = true
		if m.nmiEnable {
			m.nmi.Assert(true)
		}
		if m.autoJoy {
			m.latchJoypads()
		}
	}

	if line < ppuVBlankLine {
		m.dma.hdmaRun()
	}

	if (m.vIRQen && line == int(m.vtime)) || (m.hIRQen && !m.vIRQen) {
		m.irqFlag = true
		m.irqLine.Assert(true)
	}
}

func (m *Machine) latchJoypads() {
	for i := range m.pads {
		m.joyData[i] = m.pads[i].buttons()
		m.pads[i].shift = m.joyData[i]
	}
}

func (m *Machine) busRead(address uint32) uint8 {
	address &= 0xffffff
	bank := uint8(address >> 16)
	offset := uint16(address)

	switch bank {
	case 0x7e:
		return m.wram[offset]
	case 0x7f:
		return m.wram[0x10000+int(offset)]
	}

	if bank&0x7f < 0x40 {
		switch {
		case offset < 0x2000:
			return m.wram[offset]
		case offset >= 0x2100 && offset < 0x2200:
			return m.readB(uint8(offset))
		case offset == 0x4016:
			return m.pads[0].read()
		case offset == 0x4017:
			return m.pads[1].read()
		case offset >= 0x4200 && offset < 0x4220:
			return m.ioRead(offset)
		case offset >= 0x4300 && offset < 0x4380:
			return m.dma.readRegister(int(offset>>4&0x07), uint8(offset&0x0f))
		case offset >= 0x6000:
			return m.cart.read(bank, offset)
		}
		return 0
	}

	return m.cart.read(bank, offset)
}

func (m *Machine) busWrite(address uint32, data uint8) {
	address &= 0xffffff
	bank := uint8(address >> 16)
	offset := uint16(address)

	switch bank {
	case 0x7e:
		m.wram[offset] = data
		return
	case 0x7f:
		m.wram[0x10000+int(offset)] = data
		return
	}

	if bank&0x7f < 0x40 {
		switch {
		case offset < 0x2000:
			m.wram[offset] = data
		case offset >= 0x2100 && offset < 0x2200:
			m.writeB(uint8(offset), data)
		case offset == 0x4016:
			m.pads[0].setStrobe(data&0x01 != 0)
			m.pads[1].setStrobe(data&0x01 != 0)
		case offset >= 0x4200 && offset < 0x4220:
			m.ioWrite(offset, data)
		case offset >= 0x4300 && offset < 0x4380:
			m.dma.writeRegister(int(offset>>4&0x07), uint8(offset&0x0f), data)
		case offset >= 0x6000:
			m.cart.write(bank, offset, data)
		}
		return
	}

	m.cart.write(bank, offset, data)
}

// readB and writeB are the B bus: the PPU registers, the APU ports and
// the WRAM data port.
func (m *Machine) readB(reg uint8) uint8 {
	switch {
	case reg < 0x40:
		return m.ppu.readRegister(uint16(reg))
	case reg < 0x80:
		return m.apu.cpuReadPort(int(reg & 0x03))
	case reg == 0x80:
		v := m.wram[m.wmAddr]
		m.wmAddr = (m.wmAddr + 1) & 0x1ffff
		return v
	}
	return 0
}

func (m *Machine) writeB(reg uint8, data uint8) {
	switch {
	case reg < 0x40:
		m.ppu.writeRegister(uint16(reg), data)
	case reg < 0x80:
		m.apu.cpuWritePort(int(reg&0x03), data)
	case reg == 0x80:
		m.wram[m.wmAddr] = data
		m.wmAddr = (m.wmAddr + 1) & 0x1ffff
	case reg == 0x81:
		m.wmAddr = m.wmAddr&0x1ff00 | uint32(data)
	case reg == 0x82:
		m.wmAddr = m.wmAddr&0x100ff | uint32(data)<<8
	case reg == 0x83:
		m.wmAddr = m.wmAddr&0x0ffff | uint32(data&0x01)<<16
	}
}

func (m *Machine) ioRead(offset uint16) uint8 {
	switch offset {
	case 0x4210: // RDNMI
		v := uint8(0x02)
		if m.nmiFlag {
			v |= 0x80
			m.nmiFlag = false
		}
		return v
	case 0x4211: // TIMEUP
		var v uint8
		if m.irqFlag {
			v = 0x80
			m.irqFlag = false
			m.irqLine.Assert(false)
		}
		return v
	case 0x4212: // HVBJOY
		var v uint8
		if m.ppu.vblank {
			v |= 0x80
		}
		if m.ppu.dot >= 274 {
			v |= 0x40
		}
		return v
	case 0x4213:
		return m.wrio
	case 0x4214:
		return uint8(m.rddiv)
	case 0x4215:
		return uint8(m.rddiv >> 8)
	case 0x4216:
		return uint8(m.rdmpy)
	case 0x4217:
		return uint8(m.rdmpy >> 8)
	case 0x4218:
		return uint8(m.joyData[0])
	case 0x4219:
		return uint8(m.joyData[0] >> 8)
	case 0x421a:
		return uint8(m.joyData[1])
	case 0x421b:
		return uint8(m.joyData[1] >> 8)
	}
	return 0
}

func (m *Machine) ioWrite(offset uint16, data uint8) {
	switch offset {
	case 0x4200: // NMITIMEN
		enable := data&0x80 != 0
		if enable && !m.nmiEnable && m.nmiFlag {
			m.nmi.Assert(true)
		}
		m.nmiEnable = enable
		m.vIRQen = data&0x20 != 0
		m.hIRQen = data&0x10 != 0
		m.autoJoy = data&0x01 != 0
		if !m.vIRQen && !m.hIRQen {
			m.irqFlag = false
			m.irqLine.Assert(false)
		}
	case 0x4201:
		m.wrio = data
	case 0x4202:
		m.mpyA = data
	case 0x4203:
		m.mpyB = data
		m.rdmpy = uint16(m.mpyA) * uint16(data)
	case 0x4204:
		m.wrdiv = m.wrdiv&0xff00 | uint16(data)
	case 0x4205:
		m.wrdiv = m.wrdiv&0x00ff | uint16(data)<<8
	case 0x4206:
		if data == 0 {
			m.rddiv = 0xffff
			m.rdmpy = m.wrdiv
		} else {
			m.rddiv = m.wrdiv / uint16(data)
			m.rdmpy = m.wrdiv % uint16(data)
		}
	case 0x4207:
		m.htime = m.htime&0x0100 | uint16(data)
	case 0x4208:
		m.htime = m.htime&0x00ff | uint16(data&0x01)<<8
	case 0x4209:
		m.vtime = m.vtime&0x0100 | uint16(data)
	case 0x420a:
		m.vtime = m.vtime&0x00ff | uint16(data&0x01)<<8
	case 0x420b: // MDMAEN
		m.dma.run(m.ct, data)
	case 0x420c: // HDMAEN
		m.dma.hdmaEnable = data
	}
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
	m.wram = [0x20000]uint8{}
	m.ppu.reset()
	m.apu.reset()
	m.dma.reset()

	m.joyData = [2]uint16{}
	m.nmiEnable = false
	m.vIRQen = false
	m.hIRQen = false
	m.autoJoy = false
	m.nmiFlag = false
	m.irqFlag = false
	m.wrio = 0
	m.mpyA = 0
	m.mpyB = 0
	m.wrdiv = 0
	m.rddiv = 0
	m.rdmpy = 0
	m.htime = 0
	m.vtime = 0
	m.wmAddr = 0

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
	if !m.cart.battery || len(m.cart.sram) == 0 {
		return nil
	}
	return m.cart.sram
}

// ConsoleID implements the hardware.Machine interface.
func (m *Machine) ConsoleID() image.Console {
	return image.SNES
}

// ImageCRC implements the hardware.Machine interface.
func (m *Machine) ImageCRC() uint32 {
	return m.crc
}

const ioSerializeSize = 6 + // enable flags and interrupt flags
	1 + 1 + 1 + // WRIO and the multiplier operands
	2*5 + // division and timer registers
	4 // WRAM port address

// SerializeSize implements the hardware.Machine interface.
func (m *Machine) SerializeSize() int {
	return w65c816.SerializeSize +
		len(m.wram) +
		len(m.cart.sram) +
		ppuSerializeSize +
		apuSerializeSize +
		dmaSerializeSize +
		ioSerializeSize +
		len(m.pads)*3 + // shift register and strobe per pad
		len(m.joyData)*2 +
		8 + // scheduler cycle count
		8 + 8 // domain phases
}

// Serialize implements the hardware.Machine interface.
func (m *Machine) Serialize(data []byte) error {
	if len(data) != m.SerializeSize() {
		return curated.Errorf("snes: serialize: buffer is %d bytes, need %d", len(data), m.SerializeSize())
	}

	m.cpu.Serialize(data)
	offset := w65c816.SerializeSize

	offset = snapshot.PutBytes(data, offset, m.wram[:])
	offset = snapshot.PutBytes(data, offset, m.cart.sram)

	m.ppu.serialize(data[offset:])
	offset += ppuSerializeSize
	m.apu.serialize(data[offset:])
	offset += apuSerializeSize
	m.dma.serialize(data[offset:])
	offset += dmaSerializeSize

	offset = snapshot.PutBool(data, offset, m.nmiEnable)
	offset = snapshot.PutBool(data, offset, m.vIRQen)
	offset = snapshot.PutBool(data, offset, m.hIRQen)
	offset = snapshot.PutBool(data, offset, m.autoJoy)
	offset = snapshot.PutBool(data, offset, m.nmiFlag)
	offset = snapshot.PutBool(data, offset, m.irqFlag)
	offset = snapshot.PutUint8(data, offset, m.wrio)
	offset = snapshot.PutUint8(data, offset, m.mpyA)
	offset = snapshot.PutUint8(data, offset, m.mpyB)
	offset = snapshot.PutUint16(data, offset, m.wrdiv)
	offset = snapshot.PutUint16(data, offset, m.rddiv)
	offset = snapshot.PutUint16(data, offset, m.rdmpy)
	offset = snapshot.PutUint16(data, offset, m.htime)
	offset = snapshot.PutUint16(data, offset, m.vtime)
	offset = snapshot.PutUint32(data, offset, m.wmAddr)

	for i := range m.pads {
		offset = snapshot.PutUint16(data, offset, m.pads[i].shift)
		offset = snapshot.PutBool(data, offset, m.pads[i].strobe)
	}
	for i := range m.joyData {
		offset = snapshot.PutUint16(data, offset, m.joyData[i])
	}

	offset = snapshot.PutUint64(data, offset, m.sch.TotalCycles())
	offset = snapshot.PutInt64(data, offset, m.ppuDomain.Phase())
	_ = snapshot.PutInt64(data, offset, m.apuDomain.Phase())

	return nil
}

// Deserialize implements the hardware.Machine interface.
func (m *Machine) Deserialize(data []byte) error {
	if len(data) != m.SerializeSize() {
		return curated.Errorf("snes: deserialize: buffer is %d bytes, need %d", len(data), m.SerializeSize())
	}

	m.cpu.Deserialize(data)
	offset := w65c816.SerializeSize

	offset = snapshot.Bytes(data, offset, m.wram[:])
	offset = snapshot.Bytes(data, offset, m.cart.sram)

	m.ppu.deserialize(data[offset:])
	offset += ppuSerializeSize
	m.apu.deserialize(data[offset:])
	offset += apuSerializeSize
	m.dma.deserialize(data[offset:])
	offset += dmaSerializeSize

	m.nmiEnable, offset = snapshot.Bool(data, offset)
	m.vIRQen, offset = snapshot.Bool(data, offset)
	m.hIRQen, offset = snapshot.Bool(data, offset)
	m.autoJoy, offset = snapshot.Bool(data, offset)
	m.nmiFlag, offset = snapshot.Bool(data, offset)
	m.irqFlag, offset = snapshot.Bool(data, offset)
	m.wrio, offset = snapshot.Uint8(data, offset)
	m.mpyA, offset = snapshot.Uint8(data, offset)
	m.mpyB, offset = snapshot.Uint8(data, offset)
	m.wrdiv, offset = snapshot.Uint16(data, offset)
	m.rddiv, offset = snapshot.Uint16(data, offset)
	m.rdmpy, offset = snapshot.Uint16(data, offset)
	m.htime, offset = snapshot.Uint16(data, offset)
	m.vtime, offset = snapshot.Uint16(data, offset)
	m.wmAddr, offset = snapshot.Uint32(data, offset)

	for i := range m.pads {
		m.pads[i].shift, offset = snapshot.Uint16(data, offset)
		m.pads[i].strobe, offset = snapshot.Bool(data, offset)
	}
	for i := range m.joyData {
		m.joyData[i], offset = snapshot.Uint16(data, offset)
	}

	var cycles uint64
	cycles, offset = snapshot.Uint64(data, offset)
	m.sch.SetTotalCycles(cycles)

	var phase int64
	phase, offset = snapshot.Int64(data, offset)
	m.ppuDomain.SetPhase(phase)
	phase, _ = snapshot.Int64(data, offset)
	m.apuDomain.SetPhase(phase)

	return nil
}
