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

package mastersystem

import (
	"github.com/relicemu/relic/hardware/irq"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/hardware/television"
)

// NTSC line timing in CPU cycles. the line interrupt counter decrements
// early in the line so a handler can still affect the line being drawn;
// the vblank flag rises a little later on the first line past the active
// display.
const (
	vdpCyclesPerLine = 228
	vdpLinesTotal    = 262
	vdpActiveLines   = 192

	vdpLineIntCycle = 8
	vdpVBlankCycle  = 24
)

// status register flags
const (
	statusVBlank    = 0x80
	statusOverflow  = 0x40
	statusCollision = 0x20
)

// the Game Gear LCD is a 160x144 window centred in the Master System field
const (
	ggViewportX = 48
	ggViewportY = 24
	ggWidth     = 160
	ggHeight    = 144
)

// vdp is the 315-5124 video display processor in mode 4, which is the only
// mode the library supports. The Game Gear part is the same silicon with a
// wider CRAM and a cropped viewport.
type vdp struct {
	fb      *television.FrameBuffer
	intLine *irq.Line
	gg      bool

	vram [16384]uint8
	cram [64]uint8
	regs [16]uint8

	// control port state. a write latches the low address byte; the next
	// write completes the address and the code
	addr       uint16
	addrLatch  uint8
	writeLatch bool
	code       uint8
	readBuffer uint8

	status uint8

	line  int
	cycle int

	lineCounter    int
	lineIntPending bool

	// horizontal scroll latches per line, vertical scroll per frame
	hScrollLatch uint8
	vScrollLatch uint8

	frameDone bool
}

func newVDP(intLine *irq.Line, gg bool, fb *television.FrameBuffer) *vdp {
	return &vdp{
		fb:      fb,
		intLine: intLine,
		gg:      gg,
	}
}

func (v *vdp) reset() {
	v.vram = [16384]uint8{}
	v.cram = [64]uint8{}
	v.regs = [16]uint8{}
	v.addr = 0
	v.addrLatch = 0
	v.writeLatch = false
	v.code = 0
	v.readBuffer = 0
	v.status = 0
	v.line = 0
	v.cycle = 0
	v.lineCounter = 0xff
	v.lineIntPending = false
	v.hScrollLatch = 0
	v.vScrollLatch = 0
	v.frameDone = false
}

// pending is true while an enabled interrupt condition holds. the line is
// level sensitive: reading the status port or disabling the source drops it.
func (v *vdp) pending() bool {
	if v.status&statusVBlank != 0 && v.regs[1]&0x20 != 0 {
		return true
	}
	return v.lineIntPending && v.regs[0]&0x10 != 0
}

func (v *vdp) refreshInt() {
	v.intLine.Assert(v.pending())
}

// tick advances the VDP by CPU cycles.
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

	if prev < vdpLineIntCycle && v.cycle >= vdpLineIntCycle {
		v.updateLineCounter()
		v.hScrollLatch = v.regs[8]
	}

	if v.line == vdpActiveLines && prev < vdpVBlankCycle && v.cycle >= vdpVBlankCycle {
		v.status |= statusVBlank
	}

	v.refreshInt()

	if v.cycle >= vdpCyclesPerLine {
		v.cycle = 0
		v.endLine()
	}
}

// the line interrupt counter decrements on every active line and the one
// after; elsewhere it reloads from register 10
func (v *vdp) updateLineCounter() {
	if v.line <= vdpActiveLines {
		v.lineCounter--
		if v.lineCounter < 0 {
			v.lineCounter = int(v.regs[10])
			v.lineIntPending = true
		}
		return
	}
	v.lineCounter = int(v.regs[10])
}

func (v *vdp) endLine() {
	if v.line < vdpActiveLines {
		v.renderScanline()
	}

	v.line++
	if v.line >= vdpLinesTotal {
		v.line = 0
		v.vScrollLatch = v.regs[9]
		v.frameDone = true
	}
}

// vCounter as read through port 0x7e. the NTSC 192 line frame repeats the
// tail of the count to fit 262 lines in a byte.
func (v *vdp) vCounter() uint8 {
	if v.line <= 0xda {
		return uint8(v.line)
	}
	return uint8(v.line - 6)
}

// hCounter as read through port 0x7f: the dot position in half pixels.
func (v *vdp) hCounter() uint8 {
	return uint8(v.cycle * 342 / vdpCyclesPerLine >> 1)
}

func (v *vdp) readData() uint8 {
	v.writeLatch = false
	data := v.readBuffer
	v.readBuffer = v.vram[v.addr&0x3fff]
	v.addr++
	return data
}

// readStatus clears all three flags and the pending line interrupt.
func (v *vdp) readStatus() uint8 {
	v.writeLatch = false
	data := v.status
	v.status = 0
	v.lineIntPending = false
	v.refreshInt()
	return data
}

func (v *vdp) writeData(data uint8) {
	v.writeLatch = false
	v.readBuffer = data

	if v.code == 3 {
		if v.gg {
			v.cram[v.addr&0x3f] = data
		} else {
			v.cram[v.addr&0x1f] = data
		}
	} else {
		v.vram[v.addr&0x3fff] = data
	}
	v.addr++
}

func (v *vdp) writeControl(data uint8) {
	if !v.writeLatch {
		v.addrLatch = data
		v.writeLatch = true
		return
	}
	v.writeLatch = false

	v.addr = uint16(v.addrLatch) | uint16(data&0x3f)<<8
	v.code = data >> 6

	switch v.code {
	case 0:
		// a read setup primes the buffer
		v.readBuffer = v.vram[v.addr&0x3fff]
		v.addr++
	case 2:
		v.regs[data&0x0f] = v.addrLatch
		v.refreshInt()
	}
}

// colour resolves a CRAM index to RGB. the Master System stores 6 bit
// colour in one byte, the Game Gear 12 bit colour in two.
func (v *vdp) colour(idx uint8) uint32 {
	if v.gg {
		i := int(idx&0x1f) * 2
		entry := uint16(v.cram[i]) | uint16(v.cram[i+1])<<8
		r := uint32(entry&0x0f) * 17
		g := uint32(entry>>4&0x0f) * 17
		b := uint32(entry>>8&0x0f) * 17
		return r<<16 | g<<8 | b
	}

	c := v.cram[idx&0x1f]
	r := uint32(c&0x03) * 85
	g := uint32(c>>2&0x03) * 85
	b := uint32(c>>4&0x03) * 85
	return r<<16 | g<<8 | b
}

func (v *vdp) renderScanline() {
	y := v.line

	var lineColour [256]uint8
	var linePriority [256]bool

	backdrop := 0x10 | v.regs[7]&0x0f

	if v.regs[1]&0x40 == 0 {
		// display blanked. backdrop fills the line
		for x := range lineColour {
			lineColour[x] = backdrop
		}
	} else {
		v.renderBackground(y, &lineColour, &linePriority)
		v.renderSprites(y, &lineColour, &linePriority)

		// the leftmost column can be masked to hide scroll artefacts
		if v.regs[0]&0x20 != 0 {
			for x := 0; x < 8; x++ {
				lineColour[x] = backdrop
			}
		}
	}

	v.plot(y, &lineColour)
}

func (v *vdp) renderBackground(y int, lineColour *[256]uint8, linePriority *[256]bool) {
	nameBase := (uint16(v.regs[2]) & 0x0e) << 10

	hscroll := int(v.hScrollLatch)
	if v.regs[0]&0x40 != 0 && y < 16 {
		// top two rows pinned for status bars
		hscroll = 0
	}

	for x := 0; x < 256; x++ {
		vscroll := int(v.vScrollLatch)
		if v.regs[0]&0x80 != 0 && x >= 192 {
			// rightmost eight columns pinned
			vscroll = 0
		}

		row := (y + vscroll) % 224
		sx := (x - hscroll) & 0xff

		entryAddr := nameBase + uint16(row>>3)<<6 + uint16(sx>>3)<<1
		entry := uint16(v.vram[entryAddr&0x3fff]) | uint16(v.vram[(entryAddr+1)&0x3fff])<<8

		py := row & 7
		if entry&0x0400 != 0 {
			py = 7 - py
		}
		px := sx & 7
		if entry&0x0200 != 0 {
			px = 7 - px
		}

		colour := v.patternPixel(entry&0x01ff, py, px)
		if entry&0x0800 != 0 {
			colour |= 0x10
		}

		lineColour[x] = colour
		linePriority[x] = entry&0x1000 != 0 && colour&0x0f != 0
	}
}

// patternPixel reads one pixel of a 4bpp planar pattern.
func (v *vdp) patternPixel(tile uint16, py int, px int) uint8 {
	base := tile<<5 + uint16(py)<<2
	bit := uint(7 - px)
	return uint8((v.vram[base]>>bit)&1 |
		(v.vram[base+1]>>bit)&1<<1 |
		(v.vram[base+2]>>bit)&1<<2 |
		(v.vram[base+3]>>bit)&1<<3)
}

func (v *vdp) renderSprites(y int, lineColour *[256]uint8, linePriority *[256]bool) {
	satBase := (uint16(v.regs[5]) & 0x7e) << 7

	height := 8
	if v.regs[1]&0x02 != 0 {
		height = 16
	}

	var drawn [256]bool

	count := 0
	for i := uint16(0); i < 64; i++ {
		sy := v.vram[satBase+i]
		if sy == 0xd0 {
			// terminator in 192 line mode
			break
		}

		top := int(sy) + 1
		if y < top || y >= top+height {
			continue
		}

		count++
		if count > 8 {
			v.status |= statusOverflow
			break
		}

		sx := int(v.vram[satBase+0x80+i<<1])
		tile := uint16(v.vram[satBase+0x80+i<<1+1])
		if v.regs[0]&0x08 != 0 {
			sx -= 8
		}
		if height == 16 {
			tile &= 0xfe
		}
		if v.regs[6]&0x04 != 0 {
			tile |= 0x100
		}

		row := y - top
		for px := 0; px < 8; px++ {
			x := sx + px
			if x < 0 || x >= 256 {
				continue
			}

			colour := v.patternPixel(tile, row, px)
			if colour == 0 {
				continue
			}

			if drawn[x] {
				v.status |= statusCollision
				continue
			}
			drawn[x] = true

			if !linePriority[x] {
				lineColour[x] = 0x10 | colour
			}
		}
	}
}

func (v *vdp) plot(y int, lineColour *[256]uint8) {
	if v.gg {
		if y < ggViewportY || y >= ggViewportY+ggHeight {
			return
		}
		for x := 0; x < ggWidth; x++ {
			v.fb.SetPixelRGB(x, y-ggViewportY, v.colour(lineColour[x+ggViewportX]))
		}
		return
	}

	for x := 0; x < 256; x++ {
		v.fb.SetPixelRGB(x, y, v.colour(lineColour[x]))
	}
}

const vdpSerializeSize = 16384 + 64 + 16 + 16

func (v *vdp) serialize(data []byte) {
	offset := snapshot.PutBytes(data, 0, v.vram[:])
	offset = snapshot.PutBytes(data, offset, v.cram[:])
	offset = snapshot.PutBytes(data, offset, v.regs[:])
	offset = snapshot.PutUint16(data, offset, v.addr)
	offset = snapshot.PutUint8(data, offset, v.addrLatch)
	offset = snapshot.PutBool(data, offset, v.writeLatch)
	offset = snapshot.PutUint8(data, offset, v.code)
	offset = snapshot.PutUint8(data, offset, v.readBuffer)
	offset = snapshot.PutUint8(data, offset, v.status)
	offset = snapshot.PutUint16(data, offset, uint16(v.line))
	offset = snapshot.PutUint16(data, offset, uint16(v.cycle))
	offset = snapshot.PutUint16(data, offset, uint16(v.lineCounter))
	offset = snapshot.PutBool(data, offset, v.lineIntPending)
	offset = snapshot.PutUint8(data, offset, v.hScrollLatch)
	_ = snapshot.PutUint8(data, offset, v.vScrollLatch)
}

func (v *vdp) deserialize(data []byte) {
	var v16 uint16

	offset := snapshot.Bytes(data, 0, v.vram[:])
	offset = snapshot.Bytes(data, offset, v.cram[:])
	offset = snapshot.Bytes(data, offset, v.regs[:])
	v.addr, offset = snapshot.Uint16(data, offset)
	v.addrLatch, offset = snapshot.Uint8(data, offset)
	v.writeLatch, offset = snapshot.Bool(data, offset)
	v.code, offset = snapshot.Uint8(data, offset)
	v.readBuffer, offset = snapshot.Uint8(data, offset)
	v.status, offset = snapshot.Uint8(data, offset)
	v16, offset = snapshot.Uint16(data, offset)
	v.line = int(v16)
	v16, offset = snapshot.Uint16(data, offset)
	v.cycle = int(v16)
	v16, offset = snapshot.Uint16(data, offset)
	v.lineCounter = int(int16(v16))
	v.lineIntPending, offset = snapshot.Bool(data, offset)
	v.hScrollLatch, offset = snapshot.Uint8(data, offset)
	v.vScrollLatch, _ = snapshot.Uint8(data, offset)
}
