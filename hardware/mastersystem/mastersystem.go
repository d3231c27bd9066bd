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

// Package mastersystem emulates the Sega Master System and the Game Gear:
// a Z80, the 315-5124 VDP in mode 4, an SN76489 PSG and 8KB of system RAM
// behind the standard Sega mapper. The Game Gear is the same machine with
// wider colour RAM, a cropped LCD viewport and the start button on an I/O
// port instead of the pause line.
package mastersystem

import (
	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/bus"
	"github.com/relicemu/relic/hardware/clocks"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/hardware/irq"
	"github.com/relicemu/relic/hardware/ports"
	"github.com/relicemu/relic/hardware/scheduler"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/hardware/television"
	z80 "github.com/user-none/go-chip-z80"
)

// NTSC timing. the Z80 runs at a third of the master clock; the VDP line
// rate works out to 228 CPU cycles
const (
	smsCPUClock       = clocks.MasterSystemClockNTSC / 3
	smsCyclesPerFrame = vdpCyclesPerLine * vdpLinesTotal
)

var smsSpec = television.Specification{
	ID:              "SMS NTSC",
	Width:           256,
	Height:          192,
	ScanlinesTotal:  262,
	FramesPerSecond: 60,
}

var ggSpec = television.Specification{
	ID:              "Game Gear",
	Width:           ggWidth,
	Height:          ggHeight,
	ScanlinesTotal:  262,
	FramesPerSecond: 60,
}

// Machine is a Master System or Game Gear console.
type Machine struct {
	tv      *television.Television
	crc     uint32
	console image.Console

	cpu  *z80.CPU
	vdp  *vdp
	psg  *psg
	cart *cartridge

	bus *bus.Bus
	ram [8192]uint8

	ct      *irq.Controller
	intLine *irq.Line

	sch *scheduler.Scheduler

	input     [2]ports.State
	pauseHeld bool

	memCtrl uint8
	ioCtrl  uint8
}

// zbus adapts the system bus and the port map to the Z80 library's view.
type zbus struct {
	m *Machine
}

func (zb zbus) Fetch(addr uint16) uint8 {
	return zb.m.bus.Read(uint32(addr))
}

func (zb zbus) Read(addr uint16) uint8 {
	return zb.m.bus.Read(uint32(addr))
}

func (zb zbus) Write(addr uint16, data uint8) {
	zb.m.bus.Write(uint32(addr), data)
}

func (zb zbus) In(port uint16) uint8 {
	return zb.m.portIn(uint8(port))
}

func (zb zbus) Out(port uint16, data uint8) {
	zb.m.portOut(uint8(port), data)
}

// NewMachine is the preferred method of initialisation for the Master
// System Machine type. The image's Console field selects between Master
// System and Game Gear behaviour.
func NewMachine(img image.Image, prefs hardware.Preferences) (*Machine, error) {
	cart, err := parseCartridge(img.Data, img.Battery, img.PersistentRAM)
	if err != nil {
		return nil, err
	}

	gg := img.Console == image.GameGear
	spec := smsSpec
	if gg {
		spec = ggSpec
	}

	m := &Machine{
		tv:      television.NewTelevision(spec),
		crc:     img.CRC32(),
		console: img.Console,
		cart:    cart,
		bus:     bus.NewBus(),
		ct:      irq.NewController(),
	}

	m.intLine = m.ct.AddLine("VDP INT", irq.Level, true)
	m.vdp = newVDP(m.intLine, gg, m.tv.Frame())
	m.psg = newPSG(smsCPUClock, m.tv.Audio())
	m.cpu = z80.New(zbus{m})

	if err := m.installRegions(); err != nil {
		return nil, err
	}

	m.sch = scheduler.New(m.cpuStep, m.ct.Stall, m.frameDone, smsCyclesPerFrame)
	m.sch.AddChip(scheduler.Chip{
		Label: "315-5124",
		Ticks: func(cycles int) int { return cycles },
		Step: func(cycles int) {
			m.vdp.tick(cycles)
			m.syncINT()
		},
	})
	m.sch.AddChip(scheduler.Chip{
		Label: "SN76489",
		Ticks: func(cycles int) int { return cycles },
		Step:  m.psg.step,
	})

	if err := m.Reset(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Machine) installRegions() error {
	regions := []bus.Region{
		{Label: "cartridge", Start: 0x0000, Length: 0xc000, Handler: bus.Func{
			ReadFn:  func(offset uint32) uint8 { return m.cart.read(uint16(offset)) },
			WriteFn: func(offset uint32, data uint8) { m.cart.write(uint16(offset), data) },
		}},
		{Label: "RAM", Start: 0xc000, Length: 0x4000, Handler: bus.Func{
			ReadFn: func(offset uint32) uint8 { return m.ram[offset&0x1fff] },
			WriteFn: func(offset uint32, data uint8) {
				m.ram[offset&0x1fff] = data

				// the mapper registers shadow the top of RAM
				if offset >= 0x3ffc {
					m.cart.writeControl(0xc000+uint16(offset), data)
				}
			},
		}},
	}

	for _, r := range regions {
		if err := m.bus.Install(r); err != nil {
			return err
		}
	}
	return nil
}

// cpuStep runs one Z80 instruction.
func (m *Machine) cpuStep() (int, error) {
	return m.cpu.StepCycles(1), nil
}

// syncINT pushes the level of the VDP interrupt line into the CPU core.
func (m *Machine) syncINT() {
	m.cpu.INT(m.intLine.Pending(), 0xff)
}

// portIn decodes the 8 bit port map. Ports decode coarsely: only the top
// two address bits and the low bit matter.
func (m *Machine) portIn(port uint8) uint8 {
	switch {
	case port < 0x40:
		if m.console == image.GameGear && port == 0x00 {
			return m.ggStartPort()
		}
		return 0xff
	case port < 0x80:
		if port&0x01 == 0 {
			return m.vdp.vCounter()
		}
		return m.vdp.hCounter()
	case port < 0xc0:
		if port&0x01 == 0 {
			return m.vdp.readData()
		}
		data := m.vdp.readStatus()
		m.syncINT()
		return data
	}

	if port&0x01 == 0 {
		return m.padPortA()
	}
	return m.padPortB()
}

func (m *Machine) portOut(port uint8, data uint8) {
	switch {
	case port < 0x40:
		if port&0x01 == 0 {
			m.memCtrl = data
		} else {
			m.ioCtrl = data
		}
	case port < 0x80:
		m.psg.write(data)
	case port < 0xc0:
		if port&0x01 == 0 {
			m.vdp.writeData(data)
		} else {
			m.vdp.writeControl(data)
			m.syncINT()
		}
	}
}

// ggStartPort is the Game Gear's port 0x00: the start button, active low,
// alongside the region and refresh rate straps.
func (m *Machine) ggStartPort() uint8 {
	data := uint8(0xff)
	if m.input[0].Pressed(ports.Start) {
		data &^= 0x80
	}
	return data
}

// padPortA is port 0xdc: player 1 and the first two lines of player 2,
// all active low.
func (m *Machine) padPortA() uint8 {
	data := uint8(0xff)
	for i, mask := range []ports.State{
		ports.Up, ports.Down, ports.Left, ports.Right, ports.A, ports.B,
	} {
		if m.input[0].Pressed(mask) {
			data &^= 1 << i
		}
	}
	if m.input[1].Pressed(ports.Up) {
		data &^= 0x40
	}
	if m.input[1].Pressed(ports.Down) {
		data &^= 0x80
	}
	return data
}

// padPortB is port 0xdd: the rest of player 2 plus the reset and TH lines.
func (m *Machine) padPortB() uint8 {
	data := uint8(0xff)
	for i, mask := range []ports.State{
		ports.Left, ports.Right, ports.A, ports.B,
	} {
		if m.input[1].Pressed(mask) {
			data &^= 1 << i
		}
	}
	return data
}

func (m *Machine) frameDone() bool {
	if m.vdp.frameDone {
		m.vdp.frameDone = false
		return true
	}
	return false
}

// Reset implements the hardware.Machine interface.
func (m *Machine) Reset() error {
	m.ram = [8192]uint8{}
	m.cart.reset()
	m.vdp.reset()
	m.cpu.Reset()
	m.syncINT()
	m.memCtrl = 0
	m.ioCtrl = 0
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

// SetInput implements the hardware.Machine interface. On the Master System
// the pause button is wired to the Z80's NMI pin rather than read through
// a port.
func (m *Machine) SetInput(player int, state ports.State) {
	if player < 0 || player >= len(m.input) {
		return
	}
	m.input[player] = state

	if player == 0 && m.console != image.GameGear {
		held := state.Pressed(ports.Start)
		if held && !m.pauseHeld {
			m.cpu.NMI()
		}
		m.pauseHeld = held
	}
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
	return m.console
}

// ImageCRC implements the hardware.Machine interface.
func (m *Machine) ImageCRC() uint32 {
	return m.crc
}

// SerializeSize implements the hardware.Machine interface.
func (m *Machine) SerializeSize() int {
	return z80.SerializeSize +
		len(m.ram) +
		m.cart.serializeSize() +
		vdpSerializeSize +
		psgSerializeSize +
		3 + // memory control, io control, pause line
		1 + // VDP interrupt line
		8 // scheduler cycle count
}

// Serialize implements the hardware.Machine interface.
func (m *Machine) Serialize(data []byte) error {
	if len(data) != m.SerializeSize() {
		return curated.Errorf("mastersystem: serialize: buffer is %d bytes, need %d", len(data), m.SerializeSize())
	}

	m.cpu.Serialize(data)
	offset := z80.SerializeSize

	offset = snapshot.PutBytes(data, offset, m.ram[:])

	m.cart.serialize(data[offset:])
	offset += m.cart.serializeSize()
	m.vdp.serialize(data[offset:])
	offset += vdpSerializeSize
	m.psg.serialize(data[offset:])
	offset += psgSerializeSize

	offset = snapshot.PutUint8(data, offset, m.memCtrl)
	offset = snapshot.PutUint8(data, offset, m.ioCtrl)
	offset = snapshot.PutBool(data, offset, m.pauseHeld)
	offset = snapshot.PutUint8(data, offset, m.intLine.Serialize())
	_ = snapshot.PutUint64(data, offset, m.sch.TotalCycles())

	return nil
}

// Deserialize implements the hardware.Machine interface.
func (m *Machine) Deserialize(data []byte) error {
	if len(data) != m.SerializeSize() {
		return curated.Errorf("mastersystem: deserialize: buffer is %d bytes, need %d", len(data), m.SerializeSize())
	}

	m.cpu.Deserialize(data)
	offset := z80.SerializeSize

	offset = snapshot.Bytes(data, offset, m.ram[:])

	m.cart.deserialize(data[offset:])
	offset += m.cart.serializeSize()
	m.vdp.deserialize(data[offset:])
	offset += vdpSerializeSize
	m.psg.deserialize(data[offset:])
	offset += psgSerializeSize

	m.memCtrl, offset = snapshot.Uint8(data, offset)
	m.ioCtrl, offset = snapshot.Uint8(data, offset)
	m.pauseHeld, offset = snapshot.Bool(data, offset)

	var v uint8
	v, offset = snapshot.Uint8(data, offset)
	m.intLine.Deserialize(v)
	m.syncINT()

	cycles, _ := snapshot.Uint64(data, offset)
	m.sch.SetTotalCycles(cycles)

	return nil
}
