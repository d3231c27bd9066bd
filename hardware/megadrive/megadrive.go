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

// Package megadrive emulates the Sega Mega Drive / Genesis: a 68000 and
// a Z80 sharing a bus, the YM7101 VDP, a YM2612 FM synthesiser and an
// SN76489 PSG. The 68000 and Z80 are consumed as chip libraries; the
// machine arbitrates the bus between them and mixes the two sound chips
// into the audio ring.
package megadrive

import (
	"math"

	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/clocks"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/hardware/irq"
	"github.com/relicemu/relic/hardware/ports"
	"github.com/relicemu/relic/hardware/scheduler"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/hardware/television"
	m68k "github.com/user-none/go-chip-m68k"
	sn76489 "github.com/user-none/go-chip-sn76489"
)

// NTSC timing. the 68000 runs at a seventh of the master clock, the Z80
// and PSG at a fifteenth
const (
	mdM68KClock      = clocks.MegaDriveMasterNTSC / 7
	mdZ80Clock       = clocks.MegaDriveMasterNTSC / 15
	mdCyclesPerFrame = vdpCyclesPerLine * vdpLinesTotal
)

// Error patterns.
const (
	HaltedCPU = "megadrive: 68000 halted by double bus fault"
)

// staged samples are part of the snapshot so the pairwise mix keeps its
// alignment across a save/load boundary. the surplus on any side is the
// accumulated resampling drift between the chips, a handful of samples
// at most
const (
	pendSampleMax     = 64
	pendSerializeSize = 5 * (1 + pendSampleMax*4)
)

var ntscSpec = television.Specification{
	ID:              "Mega Drive NTSC",
	Width:           320,
	Height:          224,
	ScanlinesTotal:  262,
	FramesPerSecond: 60,
}

// Machine is a Mega Drive console.
type Machine struct {
	tv      *television.Television
	crc     uint32
	console image.Console

	// exp takes over the cartridge window when present. see expansion.go
	exp Expansion

	cpu  *m68k.CPU
	vdp  *vdp
	fm   *fm
	psg  *sn76489.SN76489
	z80  *z80sub
	cart *cartridge

	ram [0x10000]uint8

	io [2]ioPort

	ct *irq.Controller

	sch       *scheduler.Scheduler
	z80Domain *clocks.Domain
	psgDomain *clocks.Domain

	// pending samples from the sound chips, mixed pairwise into the ring
	// as all sides become available
	pendL   []float32
	pendR   []float32
	pendPSG []float32
	pendEL  []float32
	pendER  []float32
}

// mdbus is the 68000's view of the machine.
type mdbus struct {
	m *Machine
}

func (b mdbus) Read8(addr uint32) uint8 {
	return b.m.busRead8(addr & 0xffffff)
}

func (b mdbus) Read16(addr uint32) uint16 {
	return b.m.busRead16(addr & 0xffffff)
}

func (b mdbus) Read32(addr uint32) uint32 {
	addr &= 0xffffff
	return uint32(b.m.busRead16(addr))<<16 | uint32(b.m.busRead16(addr+2))
}

func (b mdbus) Write8(addr uint32, data uint8) {
	b.m.busWrite8(addr&0xffffff, data)
}

func (b mdbus) Write16(addr uint32, data uint16) {
	b.m.busWrite16(addr&0xffffff, data)
}

func (b mdbus) Write32(addr uint32, data uint32) {
	addr &= 0xffffff
	b.m.busWrite16(addr, uint16(data>>16))
	b.m.busWrite16(addr+2, uint16(data))
}

func (b mdbus) Reset() {}

// NewMachine is the preferred method of initialisation for the Mega
// Drive Machine type.
func NewMachine(img image.Image, prefs hardware.Preferences) (*Machine, error) {
	cart, err := parseCartridge(img.Data, img.Battery, img.PersistentRAM)
	if err != nil {
		return nil, err
	}
	return newMachine(img, image.MegaDrive, cart, nil)
}

func newMachine(img image.Image, console image.Console, cart *cartridge, exp Expansion) (*Machine, error) {
	m := &Machine{
		tv:      television.NewTelevision(ntscSpec),
		crc:     img.CRC32(),
		console: console,
		cart:    cart,
		exp:     exp,
		ct:      irq.NewController(),
		pendL:   make([]float32, 0, 1024),
		pendR:   make([]float32, 0, 1024),
		pendPSG: make([]float32, 0, 1024),
	}

	m.vdp = newVDP(m.ct, m.busRead16, m.tv.Frame())
	m.fm = newFM(mdM68KClock)
	m.psg = sn76489.New(mdZ80Clock, television.SampleRate, television.SampleRate/30, sn76489.Sega)
	m.psg.SetGain(0.5)
	m.z80 = newZ80Sub(m)
	m.cpu = m68k.New(mdbus{m})

	m.z80Domain = clocks.NewDomain(7, 15)
	m.psgDomain = clocks.NewDomain(7, 15)

	m.sch = scheduler.New(m.cpuStep, m.ct.Stall, m.frameDone, mdCyclesPerFrame)
	m.sch.AddChip(scheduler.Chip{
		Label: "YM7101",
		Ticks: func(cycles int) int { return cycles },
		Step: func(cycles int) {
			m.vdp.tick(cycles)
			if level := m.vdp.takeInterrupt(); level > 0 {
				m.cpu.RequestInterrupt(uint8(level), nil)
			}
			if m.vdp.takeZ80VBlank() {
				m.z80.vblank()
			}
		},
	})
	m.sch.AddChip(scheduler.Chip{
		Label: "Z80",
		Ticks: m.z80Domain.Ticks,
		Step:  m.z80.step,
	})
	m.sch.AddChip(scheduler.Chip{
		Label: "audio",
		Ticks: func(cycles int) int { return cycles },
		Step:  m.audioStep,
	})

	if err := m.Reset(); err != nil {
		return nil, err
	}

	return m, nil
}

// cpuStep runs one 68000 instruction. An expansion interleaves its own
// hardware, sub CPU included, inside the step.
func (m *Machine) cpuStep() (int, error) {
	cycles := m.cpu.StepCycles(1)
	if cycles == 0 {
		return 0, curated.Errorf(HaltedCPU)
	}
	if m.exp != nil {
		m.exp.Run(cycles)
	}
	return cycles, nil
}

func (m *Machine) busRead8(addr uint32) uint8 {
	addr &= 0xffffff
	switch {
	case addr < 0x400000:
		if m.exp != nil {
			return m.exp.Read8(addr)
		}
		return m.cart.read(addr)
	case addr >= 0xe00000:
		return m.ram[addr&0xffff]
	case addr >= 0xc00000 && addr < 0xc00020:
		return m.vdpPortRead8(uint16(addr & 0x1f))
	case addr >= 0xa00000 && addr < 0xa10000:
		return m.z80AreaRead(uint16(addr & 0x7fff))
	case addr >= 0xa10000 && addr < 0xa10020:
		return m.ioRead(addr)
	case addr&0xfffffe == 0xa11100:
		return uint8(m.z80.readBusReq() >> 8)
	case m.exp != nil && addr >= 0xa12000 && addr < 0xa12100:
		return m.exp.Read8(addr)
	}
	return 0xff
}

func (m *Machine) busRead16(addr uint32) uint16 {
	addr &= 0xfffffe
	switch {
	case addr >= 0xc00000 && addr < 0xc00020:
		return m.vdpPortRead16(uint16(addr & 0x1f))
	case addr == 0xa11100:
		return m.z80.readBusReq()
	}
	return uint16(m.busRead8(addr))<<8 | uint16(m.busRead8(addr+1))
}

func (m *Machine) busWrite8(addr uint32, data uint8) {
	addr &= 0xffffff
	switch {
	case addr < 0x400000:
		if m.exp != nil {
			m.exp.Write8(addr, data)
			return
		}
		m.cart.write(addr, data)
	case addr >= 0xe00000:
		m.ram[addr&0xffff] = data
	case addr >= 0xc00000 && addr < 0xc00020:
		m.vdpPortWrite8(uint16(addr&0x1f), data)
	case addr >= 0xa00000 && addr < 0xa10000:
		m.z80AreaWrite(uint16(addr&0x7fff), data)
	case addr >= 0xa10000 && addr < 0xa10020:
		m.ioWrite(addr, data)
	case addr&0xfffffe == 0xa11100:
		m.z80.writeBusReq(uint16(data) << 8)
	case addr&0xfffffe == 0xa11200:
		m.z80.writeReset(uint16(data) << 8)
	case m.exp != nil && addr >= 0xa12000 && addr < 0xa12100:
		m.exp.Write8(addr, data)
	case m.cart != nil && addr >= 0xa13000 && addr < 0xa13100:
		m.cart.writeControl(addr, data)
	}
}

func (m *Machine) busWrite16(addr uint32, data uint16) {
	addr &= 0xfffffe
	switch {
	case addr >= 0xc00000 && addr < 0xc00020:
		m.vdpPortWrite16(uint16(addr&0x1f), data)
	case addr == 0xa11100:
		m.z80.writeBusReq(data)
	case addr == 0xa11200:
		m.z80.writeReset(data)
	default:
		m.busWrite8(addr, uint8(data>>8))
		m.busWrite8(addr+1, uint8(data))
	}
}

// z80AreaRead is the 68K reaching into the sound subsystem while it holds
// the bus.
func (m *Machine) z80AreaRead(addr uint16) uint8 {
	switch {
	case addr < 0x4000:
		return m.z80.ram[addr&0x1fff]
	case addr < 0x6000:
		return m.fm.readPort(uint8(addr & 0x03))
	}
	return 0xff
}

func (m *Machine) z80AreaWrite(addr uint16, data uint8) {
	switch {
	case addr < 0x4000:
		m.z80.ram[addr&0x1fff] = data
	case addr < 0x6000:
		m.fm.writePort(uint8(addr&0x03), data)
	case addr == 0x6000:
		m.z80.bank = m.z80.bank>>1 | uint16(data&0x01)<<8
	}
}

func (m *Machine) vdpPortRead16(port uint16) uint16 {
	switch {
	case port < 0x04:
		return m.vdp.readData()
	case port < 0x08:
		return m.vdp.readStatus()
	case port < 0x10:
		return m.vdp.hvCounter()
	}
	return 0xffff
}

// vdpPortRead8 is a byte access to the word-wide VDP ports: the even
// address carries the high byte.
func (m *Machine) vdpPortRead8(port uint16) uint8 {
	data := m.vdpPortRead16(port &^ 1)
	if port&1 == 0 {
		return uint8(data >> 8)
	}
	return uint8(data)
}

func (m *Machine) vdpPortWrite16(port uint16, data uint16) {
	switch {
	case port < 0x04:
		m.vdp.writeData(data)
	case port < 0x08:
		m.vdp.writeControl(data)
	case port >= 0x10 && port < 0x18:
		m.psg.Write(uint8(data))
	}
}

// a byte write to a word port is duplicated across both halves
func (m *Machine) vdpPortWrite8(port uint16, data uint8) {
	if port >= 0x10 && port < 0x18 {
		m.psg.Write(data)
		return
	}
	m.vdpPortWrite16(port&^1, uint16(data)<<8|uint16(data))
}

// ioRead is the 0xa10000 register block. Registers repeat on odd
// addresses.
func (m *Machine) ioRead(addr uint32) uint8 {
	switch addr | 1 {
	case 0xa10001:
		// version: export console, NTSC, no expansion unit
		return 0xa0
	case 0xa10003:
		return m.io[0].read()
	case 0xa10005:
		return m.io[1].read()
	case 0xa10009:
		return m.io[0].ctrl
	case 0xa1000b:
		return m.io[1].ctrl
	}
	return 0xff
}

func (m *Machine) ioWrite(addr uint32, data uint8) {
	switch addr | 1 {
	case 0xa10003:
		m.io[0].write(data)
	case 0xa10005:
		m.io[1].write(data)
	case 0xa10009:
		m.io[0].ctrl = data
	case 0xa1000b:
		m.io[1].ctrl = data
	}
}

// audioStep advances both sound chips and mixes their pending samples
// pairwise into the ring.
func (m *Machine) audioStep(cycles int) {
	m.fm.step(cycles)
	m.psg.GenerateSamples(m.psgDomain.Ticks(cycles))

	fl, fr := m.fm.take()
	m.pendL = append(m.pendL, fl...)
	m.pendR = append(m.pendR, fr...)

	buffer, count := m.psg.GetBuffer()
	m.pendPSG = append(m.pendPSG, buffer[:count]...)
	m.psg.ResetBuffer()

	if m.exp != nil {
		el, er := m.exp.TakeAudio()
		m.pendEL = append(m.pendEL, el...)
		m.pendER = append(m.pendER, er...)
	}

	n := len(m.pendL)
	if len(m.pendPSG) < n {
		n = len(m.pendPSG)
	}
	if m.exp != nil && len(m.pendEL) < n {
		n = len(m.pendEL)
	}

	ring := m.tv.Audio()
	for i := 0; i < n; i++ {
		l := (m.pendL[i] + m.pendPSG[i]) * 0.5
		r := (m.pendR[i] + m.pendPSG[i]) * 0.5
		if m.exp != nil {
			l = (l + m.pendEL[i]) * 0.5
			r = (r + m.pendER[i]) * 0.5
		}
		ring.Push(clampSample(l), clampSample(r))
	}

	m.pendL = append(m.pendL[:0], m.pendL[n:]...)
	m.pendR = append(m.pendR[:0], m.pendR[n:]...)
	m.pendPSG = append(m.pendPSG[:0], m.pendPSG[n:]...)
	if m.exp != nil {
		m.pendEL = append(m.pendEL[:0], m.pendEL[n:]...)
		m.pendER = append(m.pendER[:0], m.pendER[n:]...)
	}
}

func clampSample(v float32) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(v * 32767)
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
	m.ram = [0x10000]uint8{}
	m.vdp.reset()
	m.fm.resetChip()
	m.z80.resetSub()
	m.cpu.Reset()

	for i := range m.io {
		m.io[i].ctrl = 0
		m.io[i].data = 0
		m.io[i].thCount = 0
	}

	m.pendL = m.pendL[:0]
	m.pendR = m.pendR[:0]
	m.pendPSG = m.pendPSG[:0]
	m.pendEL = m.pendEL[:0]
	m.pendER = m.pendER[:0]

	if m.exp != nil {
		m.exp.Reset()
	}

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

	for i := range m.io {
		m.io[i].vblankDecay()
	}

	return m.tv.EndFrame()
}

// SetInput implements the hardware.Machine interface.
func (m *Machine) SetInput(player int, state ports.State) {
	if player < 0 || player >= len(m.io) {
		return
	}
	m.io[player].state = state
}

// Television implements the hardware.Machine interface.
func (m *Machine) Television() *television.Television {
	return m.tv
}

// PersistentRAM implements the hardware.Machine interface.
func (m *Machine) PersistentRAM() []byte {
	if m.exp != nil {
		return m.exp.PersistentRAM()
	}
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
	cartSize := 0
	if m.cart != nil {
		cartSize = m.cart.serializeSize()
	}
	expSize := 0
	if m.exp != nil {
		expSize = m.exp.SerializeSize()
	}
	return m68k.SerializeSize +
		len(m.ram) +
		cartSize +
		expSize +
		vdpSerializeSize +
		fmSerializeSize +
		sn76489.SerializeSize +
		z80subSerializeSize +
		len(m.io)*ioPortSerializeSize +
		8 + // Z80 clock domain phase
		8 + // PSG clock domain phase
		8 + // scheduler cycle count
		pendSerializeSize
}

// Serialize implements the hardware.Machine interface.
func (m *Machine) Serialize(data []byte) error {
	if len(data) != m.SerializeSize() {
		return curated.Errorf("megadrive: serialize: buffer is %d bytes, need %d", len(data), m.SerializeSize())
	}

	m.cpu.Serialize(data)
	offset := m68k.SerializeSize

	offset = snapshot.PutBytes(data, offset, m.ram[:])

	if m.cart != nil {
		m.cart.serialize(data[offset:])
		offset += m.cart.serializeSize()
	}
	m.vdp.serialize(data[offset:])
	offset += vdpSerializeSize
	m.fm.serialize(data[offset:])
	offset += fmSerializeSize
	m.psg.Serialize(data[offset:])
	offset += sn76489.SerializeSize
	m.z80.serialize(data[offset:])
	offset += z80subSerializeSize

	for i := range m.io {
		m.io[i].serialize(data[offset:])
		offset += ioPortSerializeSize
	}

	offset = snapshot.PutInt64(data, offset, m.z80Domain.Phase())
	offset = snapshot.PutInt64(data, offset, m.psgDomain.Phase())
	offset = snapshot.PutUint64(data, offset, m.sch.TotalCycles())

	for _, pend := range [][]float32{m.pendL, m.pendR, m.pendPSG, m.pendEL, m.pendER} {
		if len(pend) > pendSampleMax {
			return curated.Errorf("megadrive: serialize: %d staged audio samples, limit %d", len(pend), pendSampleMax)
		}
		offset = snapshot.PutUint8(data, offset, uint8(len(pend)))
		for _, v := range pend {
			offset = snapshot.PutUint32(data, offset, math.Float32bits(v))
		}
		offset += (pendSampleMax - len(pend)) * 4
	}

	if m.exp != nil {
		m.exp.Serialize(data[offset:])
	}

	return nil
}

// Deserialize implements the hardware.Machine interface.
func (m *Machine) Deserialize(data []byte) error {
	if len(data) != m.SerializeSize() {
		return curated.Errorf("megadrive: deserialize: buffer is %d bytes, need %d", len(data), m.SerializeSize())
	}

	m.cpu.Deserialize(data)
	offset := m68k.SerializeSize

	offset = snapshot.Bytes(data, offset, m.ram[:])

	if m.cart != nil {
		m.cart.deserialize(data[offset:])
		offset += m.cart.serializeSize()
	}
	m.vdp.deserialize(data[offset:])
	offset += vdpSerializeSize
	m.fm.deserialize(data[offset:])
	offset += fmSerializeSize
	m.psg.Deserialize(data[offset:])
	offset += sn76489.SerializeSize
	m.z80.deserialize(data[offset:])
	offset += z80subSerializeSize

	for i := range m.io {
		m.io[i].deserialize(data[offset:])
		offset += ioPortSerializeSize
	}

	var phase int64
	phase, offset = snapshot.Int64(data, offset)
	m.z80Domain.SetPhase(phase)
	phase, offset = snapshot.Int64(data, offset)
	m.psgDomain.SetPhase(phase)

	var cycles uint64
	cycles, offset = snapshot.Uint64(data, offset)
	m.sch.SetTotalCycles(cycles)

	for _, pend := range []*[]float32{&m.pendL, &m.pendR, &m.pendPSG, &m.pendEL, &m.pendER} {
		var count uint8
		count, offset = snapshot.Uint8(data, offset)
		*pend = (*pend)[:0]
		for i := 0; i < int(count); i++ {
			var bits uint32
			bits, offset = snapshot.Uint32(data, offset)
			*pend = append(*pend, math.Float32frombits(bits))
		}
		offset += (pendSampleMax - int(count)) * 4
	}

	if m.exp != nil {
		m.exp.Deserialize(data[offset:])
	}

	return nil
}
