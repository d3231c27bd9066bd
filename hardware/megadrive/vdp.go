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

package megadrive

import (
	"github.com/relicemu/relic/hardware/irq"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/hardware/television"
)

// NTSC line timing in 68K cycles. the horizontal interrupt counter
// decrements early in the line, the vblank flag rises shortly into the
// first line past the active display, and hblank covers the tail of the
// line.
const (
	vdpCyclesPerLine = 488
	vdpLinesTotal    = 262
	vdpActiveLines   = 224

	vdpHIntCycle   = 16
	vdpVBlankCycle = 24
	vdpHBlankCycle = 360
)

// status word flags held between reads. vblank, hblank and the fixed FIFO
// bits are composed at read time
const (
	statusVInt      = 0x0080
	statusOverflow  = 0x0040
	statusCollision = 0x0020
)

// DMA stall costs in 68K cycles per word. the VDP takes the bus for the
// whole transfer; during the active display it only gets a handful of
// access slots per line
const (
	dmaCostVBlank = 2
	dmaCostActive = 27
)

// vdp is the YM7101 video display processor: 64KB VRAM, 64 colour
// registers, two scrolling planes with a window, and an 80 entry sprite
// list.
type vdp struct {
	fb *television.FrameBuffer
	ct *irq.Controller

	// word reads from the 68K bus for DMA transfers
	busRead func(addr uint32) uint16

	vram  [0x10000]uint8
	cram  [64]uint16
	vsram [40]uint16
	regs  [24]uint8

	// control port state. the first word of an address setup latches
	// until the second arrives
	pending bool
	code    uint8
	addr    uint32

	readBuffer uint16
	status     uint16

	// a fill DMA waits for the data port write that supplies the fill
	// value
	fillPending bool

	line  int
	cycle int

	hintCounter int

	// one-shot interrupt events collected by the machine
	pendingVInt bool
	pendingHInt bool
	pendingZInt bool

	frameDone bool
}

func newVDP(ct *irq.Controller, busRead func(addr uint32) uint16, fb *television.FrameBuffer) *vdp {
	return &vdp{
		fb:      fb,
		ct:      ct,
		busRead: busRead,
	}
}

func (v *vdp) reset() {
	v.vram = [0x10000]uint8{}
	v.cram = [64]uint16{}
	v.vsram = [40]uint16{}
	v.regs = [24]uint8{}
	v.pending = false
	v.code = 0
	v.addr = 0
	v.readBuffer = 0
	v.status = 0
	v.fillPending = false
	v.line = 0
	v.cycle = 0
	v.hintCounter = 0
	v.pendingVInt = false
	v.pendingHInt = false
	v.pendingZInt = false
	v.frameDone = false
}

// width in pixels: H40 or H32 from register 12.
func (v *vdp) width() int {
	if v.regs[12]&0x81 != 0 {
		return 320
	}
	return 256
}

func (v *vdp) inVBlank() bool {
	return v.line >= vdpActiveLines || v.regs[1]&0x40 == 0
}

// takeInterrupt returns the highest one-shot 68K interrupt level raised
// since the last call, or zero.
func (v *vdp) takeInterrupt() int {
	if v.pendingVInt {
		v.pendingVInt = false
		return 6
	}
	if v.pendingHInt {
		v.pendingHInt = false
		return 4
	}
	return 0
}

// takeZ80VBlank is the Z80's INT event, tied to the vblank output
// regardless of the 68K enables.
func (v *vdp) takeZ80VBlank() bool {
	if v.pendingZInt {
		v.pendingZInt = false
		return true
	}
	return false
}

// tick advances the VDP by 68K cycles.
func (v *vdp) tick(cycles int) {
	for cycles > 0 {
		n := vdpCyclesPerLine - v.cycle
		if n > cycles {
			n = cycles
		}
		v.stepLine(n)
		cycles -= n
	}
}

func (v *vdp) stepLine(cycles int) {
	prev := v.cycle
	v.cycle += cycles

	if prev < vdpHIntCycle && v.cycle >= vdpHIntCycle {
		v.updateHIntCounter()
	}

	if v.line == vdpActiveLines && prev < vdpVBlankCycle && v.cycle >= vdpVBlankCycle {
		v.status |= statusVInt
		v.pendingZInt = true
		if v.regs[1]&0x20 != 0 {
			v.pendingVInt = true
		}
	}

	if v.cycle >= vdpCyclesPerLine {
		v.cycle = 0
		v.endLine()
	}
}

func (v *vdp) updateHIntCounter() {
	if v.line <= vdpActiveLines {
		v.hintCounter--
		if v.hintCounter < 0 {
			v.hintCounter = int(v.regs[10])
			if v.regs[0]&0x10 != 0 {
				v.pendingHInt = true
			}
		}
		return
	}
	v.hintCounter = int(v.regs[10])
}

func (v *vdp) endLine() {
	if v.line < vdpActiveLines {
		v.renderScanline()
	}

	v.line++
	if v.line >= vdpLinesTotal {
		v.line = 0
		v.frameDone = true
	}
}

// hvCounter is the read at 0xc00008: V counter in the high byte, H in the
// low. the NTSC V count repeats its tail to fit 262 lines in a byte.
func (v *vdp) hvCounter() uint16 {
	vc := v.line
	if vc > 0xea {
		vc -= 6
	}
	hc := v.cycle * 256 / vdpCyclesPerLine
	return uint16(vc)<<8 | uint16(hc)
}

func (v *vdp) readStatus() uint16 {
	v.pending = false

	s := 0x3400 | v.status
	if v.inVBlank() {
		s |= 0x0008
	}
	if v.cycle >= vdpHBlankCycle {
		s |= 0x0004
	}

	v.status &^= statusVInt | statusOverflow | statusCollision
	return s
}

func (v *vdp) writeControl(data uint16) {
	if !v.pending {
		if data>>14 == 0x02 {
			reg := data >> 8 & 0x1f
			if reg < 24 {
				v.regs[reg] = uint8(data)
				v.registerWritten(uint8(reg))
			}
			return
		}
		v.code = v.code&0x3c | uint8(data>>14)
		v.addr = v.addr&0x1c000 | uint32(data&0x3fff)
		v.pending = true
		return
	}

	v.pending = false
	v.code = v.code&0x03 | uint8(data>>2)&0x3c
	v.addr = v.addr&0x3fff | uint32(data&0x07)<<14

	if v.code&0x20 != 0 && v.regs[1]&0x10 != 0 {
		v.startDMA()
	}
}

// enabling the vblank interrupt while the flag is still set asserts the
// line immediately
func (v *vdp) registerWritten(reg uint8) {
	if reg == 1 && v.regs[1]&0x20 != 0 && v.status&statusVInt != 0 {
		v.pendingVInt = true
	}
}

func (v *vdp) autoInc() uint32 {
	return uint32(v.regs[15])
}

func (v *vdp) writeData(data uint16) {
	v.pending = false

	if v.fillPending {
		v.fillPending = false
		v.dmaFill(data)
		return
	}

	switch v.code & 0x0f {
	case 0x01:
		// a write to an odd address swaps the bytes
		a := v.addr & 0xfffe
		if v.addr&1 != 0 {
			v.vram[a] = uint8(data)
			v.vram[a+1] = uint8(data >> 8)
		} else {
			v.vram[a] = uint8(data >> 8)
			v.vram[a+1] = uint8(data)
		}
	case 0x03:
		v.cram[v.addr>>1&0x3f] = data & 0x0eee
	case 0x05:
		v.vsram[int(v.addr>>1)%len(v.vsram)] = data & 0x03ff
	}

	v.addr += v.autoInc()
}

func (v *vdp) readData() uint16 {
	v.pending = false

	var data uint16
	switch v.code & 0x0f {
	case 0x00:
		a := v.addr & 0xfffe
		data = uint16(v.vram[a])<<8 | uint16(v.vram[a+1])
	case 0x08:
		data = v.cram[v.addr>>1&0x3f]
	case 0x04:
		data = v.vsram[int(v.addr>>1)%len(v.vsram)]
	}

	v.addr += v.autoInc()
	v.readBuffer = data
	return data
}

// dmaLength in words, with zero meaning the full 64K.
func (v *vdp) dmaLength() int {
	n := int(v.regs[19]) | int(v.regs[20])<<8
	if n == 0 {
		n = 0x10000
	}
	return n
}

func (v *vdp) dmaCost() int {
	if v.inVBlank() {
		return dmaCostVBlank
	}
	return dmaCostActive
}

func (v *vdp) startDMA() {
	switch v.regs[23] >> 6 {
	case 0, 1:
		v.dmaTransfer()
	case 2:
		v.fillPending = true
	case 3:
		v.dmaCopy()
	}
}

// dmaTransfer copies words from the 68K bus into the VDP. The copy is
// atomic and the 68K pays for it in stall cycles.
func (v *vdp) dmaTransfer() {
	length := v.dmaLength()
	source := uint32(v.regs[23]&0x7f)<<17 | uint32(v.regs[22])<<9 | uint32(v.regs[21])<<1

	v.ct.Schedule(irq.Transfer{
		Label:         "VDP DMA",
		Source:        source,
		Dest:          v.addr,
		Units:         length,
		CyclesPerUnit: v.dmaCost(),
	}, func() {
		for i := 0; i < length; i++ {
			v.writeData(v.busRead(source))
			source += 2
		}
	})
}

// dmaFill writes the high byte of the fill value across VRAM.
func (v *vdp) dmaFill(data uint16) {
	// the first word writes through normally
	v.writeData(data)

	length := v.dmaLength()
	fill := uint8(data >> 8)

	v.ct.Schedule(irq.Transfer{
		Label:         "VDP DMA fill",
		Source:        uint32(data),
		Dest:          v.addr,
		Units:         length,
		CyclesPerUnit: v.dmaCost(),
	}, func() {
		for i := 0; i < length; i++ {
			v.vram[v.addr&0xffff^1] = fill
			v.addr += v.autoInc()
		}
	})
}

// dmaCopy moves bytes within VRAM.
func (v *vdp) dmaCopy() {
	length := v.dmaLength()
	source := uint32(v.regs[22])<<8 | uint32(v.regs[21])

	v.ct.Schedule(irq.Transfer{
		Label:         "VDP DMA copy",
		Source:        source,
		Dest:          v.addr,
		Units:         length,
		CyclesPerUnit: v.dmaCost(),
	}, func() {
		for i := 0; i < length; i++ {
			v.vram[v.addr&0xffff] = v.vram[source&0xffff]
			source++
			v.addr += v.autoInc()
		}
	})
}

// plane identifiers for the scroll lookups
const (
	planeA = 0
	planeB = 1
)

func (v *vdp) renderScanline() {
	y := v.line
	width := v.width()
	backdrop := v.regs[7] & 0x3f

	var aColour, bColour, sColour [320]uint8
	var aPrio, bPrio, sPrio [320]bool

	if v.regs[1]&0x40 != 0 {
		v.renderPlane(y, width, planeB, &bColour, &bPrio)
		v.renderPlane(y, width, planeA, &aColour, &aPrio)
		v.renderSprites(y, width, &sColour, &sPrio)
	}

	for x := 0; x < 320; x++ {
		var idx uint8
		switch {
		case x >= width:
			idx = backdrop
		case sPrio[x] && sColour[x]&0x0f != 0:
			idx = sColour[x]
		case aPrio[x] && aColour[x]&0x0f != 0:
			idx = aColour[x]
		case bPrio[x] && bColour[x]&0x0f != 0:
			idx = bColour[x]
		case sColour[x]&0x0f != 0:
			idx = sColour[x]
		case aColour[x]&0x0f != 0:
			idx = aColour[x]
		case bColour[x]&0x0f != 0:
			idx = bColour[x]
		default:
			idx = backdrop
		}
		v.fb.SetPixelRGB(x, y, v.colour(idx))
	}
}

// colour resolves a 6 bit palette index against the 9 bit BGR colour RAM.
func (v *vdp) colour(idx uint8) uint32 {
	c := v.cram[idx&0x3f]
	r := uint32(c>>1&0x07) * 36
	g := uint32(c>>5&0x07) * 36
	b := uint32(c>>9&0x07) * 36
	return r<<16 | g<<8 | b
}

// planeSize decodes register 16 into cell dimensions.
func (v *vdp) planeSize() (int, int) {
	size := func(bits uint8) int {
		switch bits & 0x03 {
		case 1:
			return 64
		case 3:
			return 128
		}
		return 32
	}
	return size(v.regs[16]), size(v.regs[16] >> 4)
}

func (v *vdp) nameTable(plane int) uint32 {
	if plane == planeB {
		return uint32(v.regs[4]&0x07) << 13
	}
	return uint32(v.regs[2]&0x38) << 10
}

// hscroll reads the plane's entry from the scroll table for this line.
func (v *vdp) hscroll(plane int, y int) int {
	base := uint32(v.regs[13]&0x3f) << 10

	var row int
	switch v.regs[11] & 0x03 {
	case 2:
		row = y &^ 7
	case 3:
		row = y
	}

	entry := base + uint32(row)<<2 + uint32(plane)<<1
	return int(uint16(v.vram[entry&0xffff])<<8|uint16(v.vram[(entry+1)&0xffff])) & 0x3ff
}

// vscroll for a pixel column: whole screen or per two-cell strip.
func (v *vdp) vscroll(plane int, x int) int {
	if v.regs[11]&0x04 != 0 {
		strip := x >> 4 << 1
		return int(v.vsram[(strip+plane)%len(v.vsram)])
	}
	return int(v.vsram[plane])
}

// inWindow tests whether a pixel belongs to the window plane, which
// replaces plane A and does not scroll.
func (v *vdp) inWindow(x, y int) bool {
	h := int(v.regs[17]&0x1f) << 4
	if v.regs[17]&0x80 != 0 {
		if x >= h {
			return true
		}
	} else if h > 0 && x < h {
		return true
	}

	vp := int(v.regs[18]&0x1f) << 3
	if v.regs[18]&0x80 != 0 {
		return y >= vp
	}
	return vp > 0 && y < vp
}

func (v *vdp) renderPlane(y int, width int, plane int, colour *[320]uint8, prio *[320]bool) {
	planeW, planeH := v.planeSize()
	nameBase := v.nameTable(plane)
	hs := v.hscroll(plane, y)

	windowBase := uint32(v.regs[3]&0x3e) << 10
	if v.width() == 320 {
		windowBase = uint32(v.regs[3]&0x3c) << 10
	}

	for x := 0; x < width; x++ {
		base := nameBase
		row := y
		col := x

		if plane == planeA && v.inWindow(x, y) {
			// the window is a third, unscrolled name table
			base = windowBase
			planeCells := 64
			if v.width() == 256 {
				planeCells = 32
			}
			entry := base + uint32(row>>3*planeCells+col>>3)<<1
			v.planePixel(entry, row&7, col&7, x, colour, prio)
			continue
		}

		row = (y + v.vscroll(plane, x)) & (planeH<<3 - 1)
		col = (x - hs) & (planeW<<3 - 1)

		entry := base + uint32(row>>3*planeW+col>>3)<<1
		v.planePixel(entry, row&7, col&7, x, colour, prio)
	}
}

// planePixel resolves one pixel through a name table entry.
func (v *vdp) planePixel(entryAddr uint32, py, px int, x int, colour *[320]uint8, prio *[320]bool) {
	entry := uint16(v.vram[entryAddr&0xffff])<<8 | uint16(v.vram[(entryAddr+1)&0xffff])

	if entry&0x1000 != 0 {
		py = 7 - py
	}
	if entry&0x0800 != 0 {
		px = 7 - px
	}

	c := v.patternPixel(uint32(entry&0x07ff), py, px)
	colour[x] = uint8(entry>>13&0x03)<<4 | c
	prio[x] = entry&0x8000 != 0
}

// patternPixel reads one pixel of a 4bpp linear pattern: four bytes per
// row, two pixels per byte, high nibble on the left.
func (v *vdp) patternPixel(tile uint32, py, px int) uint8 {
	b := v.vram[(tile<<5+uint32(py)<<2+uint32(px)>>1)&0xffff]
	if px&1 == 0 {
		return b >> 4
	}
	return b & 0x0f
}

func (v *vdp) renderSprites(y int, width int, colour *[320]uint8, prio *[320]bool) {
	table := uint32(v.regs[5]&0x7f) << 9
	if width == 320 {
		table = uint32(v.regs[5]&0x7e) << 9
	}

	maxLine := 16
	if width == 320 {
		maxLine = 20
	}

	var drawn [320]bool

	count := 0
	index := uint32(0)
	for n := 0; n < 80; n++ {
		entry := table + index<<3

		sy := int(uint16(v.vram[entry&0xffff]&0x03)<<8|uint16(v.vram[(entry+1)&0xffff])) - 128
		size := v.vram[(entry+2)&0xffff]
		link := v.vram[(entry+3)&0xffff] & 0x7f
		attr := uint16(v.vram[(entry+4)&0xffff])<<8 | uint16(v.vram[(entry+5)&0xffff])
		sx := int(uint16(v.vram[(entry+6)&0xffff]&0x03)<<8|uint16(v.vram[(entry+7)&0xffff])) - 128

		hCells := int(size>>2&0x03) + 1
		vCells := int(size&0x03) + 1

		if y >= sy && y < sy+vCells*8 {
			count++
			if count > maxLine {
				v.status |= statusOverflow
				break
			}

			v.renderSprite(y, width, sx, sy, hCells, vCells, attr, colour, prio, &drawn)
		}

		if link == 0 {
			break
		}
		index = uint32(link)
	}
}

func (v *vdp) renderSprite(y, width, sx, sy, hCells, vCells int, attr uint16, colour *[320]uint8, prio *[320]bool, drawn *[320]bool) {
	row := y - sy
	if attr&0x1000 != 0 {
		row = vCells*8 - 1 - row
	}

	palette := uint8(attr>>13&0x03) << 4
	high := attr&0x8000 != 0

	for px := 0; px < hCells*8; px++ {
		x := sx + px
		if x < 0 || x >= width {
			continue
		}

		cx := px
		if attr&0x0800 != 0 {
			cx = hCells*8 - 1 - px
		}

		// sprite patterns are stored column major
		tile := uint32(attr&0x07ff) + uint32(cx>>3*vCells) + uint32(row>>3)
		c := v.patternPixel(tile, row&7, cx&7)
		if c == 0 {
			continue
		}

		if drawn[x] {
			v.status |= statusCollision
			continue
		}
		drawn[x] = true

		colour[x] = palette | c
		prio[x] = high
	}
}

const vdpSerializeSize = 0x10000 + // VRAM
	64*2 + // CRAM
	40*2 + // VSRAM
	24 + // registers
	20 // port state, counters, pending interrupts

func (v *vdp) serialize(data []byte) {
	offset := snapshot.PutBytes(data, 0, v.vram[:])
	for _, c := range v.cram {
		offset = snapshot.PutUint16(data, offset, c)
	}
	for _, c := range v.vsram {
		offset = snapshot.PutUint16(data, offset, c)
	}
	offset = snapshot.PutBytes(data, offset, v.regs[:])
	offset = snapshot.PutBool(data, offset, v.pending)
	offset = snapshot.PutUint8(data, offset, v.code)
	offset = snapshot.PutUint32(data, offset, v.addr)
	offset = snapshot.PutUint16(data, offset, v.readBuffer)
	offset = snapshot.PutUint16(data, offset, v.status)
	offset = snapshot.PutBool(data, offset, v.fillPending)
	offset = snapshot.PutUint16(data, offset, uint16(v.line))
	offset = snapshot.PutUint16(data, offset, uint16(v.cycle))
	offset = snapshot.PutUint16(data, offset, uint16(v.hintCounter))
	offset = snapshot.PutBool(data, offset, v.pendingVInt)
	offset = snapshot.PutBool(data, offset, v.pendingHInt)
	_ = snapshot.PutBool(data, offset, v.pendingZInt)
}

func (v *vdp) deserialize(data []byte) {
	var v16 uint16

	offset := snapshot.Bytes(data, 0, v.vram[:])
	for i := range v.cram {
		v.cram[i], offset = snapshot.Uint16(data, offset)
	}
	for i := range v.vsram {
		v.vsram[i], offset = snapshot.Uint16(data, offset)
	}
	offset = snapshot.Bytes(data, offset, v.regs[:])
	v.pending, offset = snapshot.Bool(data, offset)
	v.code, offset = snapshot.Uint8(data, offset)
	v.addr, offset = snapshot.Uint32(data, offset)
	v.readBuffer, offset = snapshot.Uint16(data, offset)
	v.status, offset = snapshot.Uint16(data, offset)
	v.fillPending, offset = snapshot.Bool(data, offset)
	v16, offset = snapshot.Uint16(data, offset)
	v.line = int(v16)
	v16, offset = snapshot.Uint16(data, offset)
	v.cycle = int(v16)
	v16, offset = snapshot.Uint16(data, offset)
	v.hintCounter = int(int16(v16))
	v.pendingVInt, offset = snapshot.Bool(data, offset)
	v.pendingHInt, offset = snapshot.Bool(data, offset)
	v.pendingZInt, _ = snapshot.Bool(data, offset)
}
