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

package snes

import (
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/hardware/television"
)

// NTSC line timing in dots of four master cycles each. The visible frame
// is 224 lines; vblank begins on the line after.
const (
	ppuDotsPerLine  = 341
	ppuLinesTotal   = 262
	ppuActiveLines  = 224
	ppuVBlankLine   = 225
	ppuVisibleWidth = 256
)

// layer indices for the per-mode draw order
const objLayer = 4

type layerPrio struct {
	layer int
	prio  int
}

// sprite dimensions per OBSEL size selection: small and large pairs
var objSizes = [8][2]int{
	{8, 16}, {8, 32}, {8, 64}, {16, 32},
	{16, 64}, {32, 64}, {16, 32}, {16, 32},
}

// ppu is the S-PPU pair: 64KB of VRAM holding character and tile map
// data, 256 words of palette CGRAM and 544 bytes of sprite OAM. Rendering
// is per scanline. Background modes 0 to 6 render with 8x8 tiles; mode 7
// and the 16x16 tile flag are not implemented and draw backdrop.
type ppu struct {
	fb *television.FrameBuffer

	vram  [0x8000]uint16
	cgram [256]uint16
	oam   [544]uint8

	// $2100
	brightness uint8
	forceBlank bool

	// $2101 sprite size and character base
	obsel uint8

	// OAM address as a byte address; writes to the low table commit in
	// pairs through a latch
	oamAddr       uint16
	oamReload     uint16
	oamLatch      uint8
	oamPriorityRotation bool

	// $2105
	mode        uint8
	bg3Priority bool
	bigTiles    uint8

	bgSC   [4]uint8
	bgNBA  [2]uint8
	bgHOfs [4]uint16
	bgVOfs [4]uint16

	// shared write-twice latch for the scroll registers
	ofsLatch uint8

	// mode 7 registers are stored but not rendered
	m7 [7]uint8

	// VRAM port
	vmain    uint8
	vaddr    uint16
	prefetch uint16

	// CGRAM port
	cgAddr   uint8
	cgLatch  uint8
	cgSecond bool

	// $212c main screen enable, bit per BG plus bit 4 for sprites
	tm uint8

	// beam position and software latches
	line    int
	dot     int
	hLatch  uint16
	vLatch  uint16
	hToggle bool
	vToggle bool

	rangeOver bool
	timeOver  bool

	vblank    bool
	frameDone bool

	// called at the start of every scanline with the new line number
	scanline func(line int)
}

func newPPU(fb *television.FrameBuffer) *ppu {
	return &ppu{fb: fb}
}

func (p *ppu) reset() {
	*p = ppu{fb: p.fb, scanline: p.scanline, forceBlank: true, brightness: 0x0f}
}

// tick advances the PPU by dots.
func (p *ppu) tick(dots int) {
	for dots > 0 {
		n := ppuDotsPerLine - p.dot
		if n > dots {
			n = dots
		}
		p.dot += n
		dots -= n

		if p.dot >= ppuDotsPerLine {
			p.dot = 0
			p.endLine()
		}
	}
}

func (p *ppu) endLine() {
	if p.line < ppuActiveLines {
		p.renderScanline()
	}

	p.line++

	if p.line == ppuVBlankLine {
		p.vblank = true
		p.oamAddr = p.oamReload
	}

	if p.line >= ppuLinesTotal {
		p.line = 0
		p.vblank = false
		p.rangeOver = false
		p.timeOver = false
		p.frameDone = true
	}

	if p.scanline != nil {
		p.scanline(p.line)
	}
}

// vramStep is the address increment selected by VMAIN.
func (p *ppu) vramStep() uint16 {
	switch p.vmain & 0x03 {
	case 0:
		return 1
	case 1:
		return 32
	}
	return 128
}

func (p *ppu) writeRegister(reg uint16, data uint8) {
	switch reg {
	case 0x00: // INIDISP
		p.brightness = data & 0x0f
		p.forceBlank = data&0x80 != 0
	case 0x01: // OBSEL
		p.obsel = data
	case 0x02: // OAMADDL
		p.oamReload = p.oamReload&0x0200 | uint16(data)<<1
		p.oamAddr = p.oamReload
	case 0x03: // OAMADDH
		p.oamReload = p.oamReload&0x01fe | uint16(data&0x01)<<9
		p.oamPriorityRotation = data&0x80 != 0
		p.oamAddr = p.oamReload
	case 0x04: // OAMDATA
		p.writeOAM(data)
	case 0x05: // BGMODE
		p.mode = data & 0x07
		p.bg3Priority = data&0x08 != 0
		p.bigTiles = data >> 4
	case 0x07, 0x08, 0x09, 0x0a: // BGnSC
		p.bgSC[reg-0x07] = data
	case 0x0b, 0x0c: // BGnNBA
		p.bgNBA[reg-0x0b] = data
	case 0x0d, 0x0f, 0x11, 0x13: // BGnHOFS
		bg := int(reg-0x0d) >> 1
		p.bgHOfs[bg] = uint16(data)<<8 | uint16(p.ofsLatch)
		p.ofsLatch = data
	case 0x0e, 0x10, 0x12, 0x14: // BGnVOFS
		bg := int(reg-0x0e) >> 1
		p.bgVOfs[bg] = uint16(data)<<8 | uint16(p.ofsLatch)
		p.ofsLatch = data
	case 0x15: // VMAIN
		p.vmain = data
	case 0x16: // VMADDL
		p.vaddr = p.vaddr&0xff00 | uint16(data)
		p.prefetch = p.vram[p.vaddr&0x7fff]
	case 0x17: // VMADDH
		p.vaddr = p.vaddr&0x00ff | uint16(data)<<8
		p.prefetch = p.vram[p.vaddr&0x7fff]
	case 0x18: // VMDATAL
		a := p.vaddr & 0x7fff
		p.vram[a] = p.vram[a]&0xff00 | uint16(data)
		if p.vmain&0x80 == 0 {
			p.vaddr += p.vramStep()
		}
	case 0x19: // VMDATAH
		a := p.vaddr & 0x7fff
		p.vram[a] = p.vram[a]&0x00ff | uint16(data)<<8
		if p.vmain&0x80 != 0 {
			p.vaddr += p.vramStep()
		}
	case 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f, 0x20:
		// mode 7 control and matrix
		p.m7[reg-0x1a] = data
	case 0x21: // CGADD
		p.cgAddr = data
		p.cgSecond = false
	case 0x22: // CGDATA
		if p.cgSecond {
			p.cgram[p.cgAddr] = uint16(data&0x7f)<<8 | uint16(p.cgLatch)
			p.cgAddr++
		} else {
			p.cgLatch = data
		}
		p.cgSecond = !p.cgSecond
	case 0x2c: // TM
		p.tm = data
	}
}

func (p *ppu) writeOAM(data uint8) {
	addr := p.oamAddr & 0x3ff
	if addr < 0x200 {
		if addr&1 == 0 {
			p.oamLatch = data
		} else {
			p.oam[addr-1] = p.oamLatch
			p.oam[addr] = data
		}
	} else {
		p.oam[0x200+(addr&0x1f)] = data
	}
	p.oamAddr++
}

func (p *ppu) readRegister(reg uint16) uint8 {
	switch reg {
	case 0x37: // SLHV
		p.hLatch = uint16(p.dot)
		p.vLatch = uint16(p.line)
		return 0
	case 0x38: // OAMDATAREAD
		addr := p.oamAddr & 0x3ff
		var v uint8
		if addr < 0x200 {
			v = p.oam[addr]
		} else {
			v = p.oam[0x200+(addr&0x1f)]
		}
		p.oamAddr++
		return v
	case 0x39: // VMDATALREAD
		v := uint8(p.prefetch)
		if p.vmain&0x80 == 0 {
			p.prefetch = p.vram[p.vaddr&0x7fff]
			p.vaddr += p.vramStep()
		}
		return v
	case 0x3a: // VMDATAHREAD
		v := uint8(p.prefetch >> 8)
		if p.vmain&0x80 != 0 {
			p.prefetch = p.vram[p.vaddr&0x7fff]
			p.vaddr += p.vramStep()
		}
		return v
	case 0x3b: // CGDATAREAD
		var v uint8
		if p.cgSecond {
			v = uint8(p.cgram[p.cgAddr] >> 8)
			p.cgAddr++
		} else {
			v = uint8(p.cgram[p.cgAddr])
		}
		p.cgSecond = !p.cgSecond
		return v
	case 0x3c: // OPHCT
		p.hToggle = !p.hToggle
		if p.hToggle {
			return uint8(p.hLatch)
		}
		return uint8(p.hLatch >> 8)
	case 0x3d: // OPVCT
		p.vToggle = !p.vToggle
		if p.vToggle {
			return uint8(p.vLatch)
		}
		return uint8(p.vLatch >> 8)
	case 0x3e: // STAT77
		var v uint8 = 0x01
		if p.rangeOver {
			v |= 0x40
		}
		if p.timeOver {
			v |= 0x80
		}
		return v
	case 0x3f: // STAT78
		p.hToggle = false
		p.vToggle = false
		return 0x03
	}
	return 0
}

// bgBPP returns the colour depth of a background for the current mode, or
// zero when the background does not exist in the mode.
func (p *ppu) bgBPP(bg int) int {
	switch p.mode {
	case 0:
		return 2
	case 1:
		switch bg {
		case 0, 1:
			return 4
		case 2:
			return 2
		}
	case 2:
		if bg < 2 {
			return 4
		}
	case 3:
		switch bg {
		case 0:
			return 8
		case 1:
			return 4
		}
	case 4:
		switch bg {
		case 0:
			return 8
		case 1:
			return 2
		}
	case 5:
		switch bg {
		case 0:
			return 4
		case 1:
			return 2
		}
	case 6:
		if bg == 0 {
			return 4
		}
	}
	return 0
}

// drawOrder is the back-to-front composition order for the current mode.
func (p *ppu) drawOrder() []layerPrio {
	switch p.mode {
	case 0:
		return []layerPrio{
			{3, 0}, {2, 0}, {objLayer, 0}, {3, 1}, {2, 1}, {objLayer, 1},
			{1, 0}, {0, 0}, {objLayer, 2}, {1, 1}, {0, 1}, {objLayer, 3},
		}
	case 1:
		order := []layerPrio{
			{2, 0}, {objLayer, 0},
		}
		if !p.bg3Priority {
			order = append(order, layerPrio{2, 1})
		}
		order = append(order,
			layerPrio{objLayer, 1}, layerPrio{1, 0}, layerPrio{0, 0},
			layerPrio{objLayer, 2}, layerPrio{1, 1}, layerPrio{0, 1},
			layerPrio{objLayer, 3},
		)
		if p.bg3Priority {
			order = append(order, layerPrio{2, 1})
		}
		return order
	}
	return []layerPrio{
		{1, 0}, {objLayer, 0}, {0, 0}, {objLayer, 1},
		{1, 1}, {objLayer, 2}, {0, 1}, {objLayer, 3},
	}
}

func (p *ppu) renderScanline() {
	y := p.line

	if p.forceBlank {
		for x := 0; x < ppuVisibleWidth; x++ {
			p.fb.SetPixelRGB(x, y, 0)
		}
		return
	}

	var bgColour [4][ppuVisibleWidth]uint8
	var bgPrio [4][ppuVisibleWidth]bool
	var objColour [ppuVisibleWidth]uint8
	var objPrio [ppuVisibleWidth]int8

	for bg := 0; bg < 4; bg++ {
		if p.tm&(1<<uint(bg)) != 0 && p.bgBPP(bg) > 0 {
			p.renderBG(bg, y, &bgColour[bg], &bgPrio[bg])
		}
	}
	for x := range objPrio {
		objPrio[x] = -1
	}
	if p.tm&0x10 != 0 {
		p.renderSprites(y, &objColour, &objPrio)
	}

	var out [ppuVisibleWidth]uint8
	for _, lp := range p.drawOrder() {
		if lp.layer == objLayer {
			for x := 0; x < ppuVisibleWidth; x++ {
				if int(objPrio[x]) == lp.prio {
					out[x] = objColour[x]
				}
			}
			continue
		}
		prio := lp.prio == 1
		for x := 0; x < ppuVisibleWidth; x++ {
			if bgColour[lp.layer][x] != 0 && bgPrio[lp.layer][x] == prio {
				out[x] = bgColour[lp.layer][x]
			}
		}
	}

	for x := 0; x < ppuVisibleWidth; x++ {
		p.fb.SetPixelRGB(x, y, p.colour(out[x]))
	}
}

// colour resolves a CGRAM index to RGB with the master brightness applied.
func (p *ppu) colour(idx uint8) uint32 {
	c := p.cgram[idx]
	scale := uint32(p.brightness)
	r := uint32(c&0x1f) * 8 * scale / 15
	g := uint32(c>>5&0x1f) * 8 * scale / 15
	b := uint32(c>>10&0x1f) * 8 * scale / 15
	return r<<16 | g<<8 | b
}

// bgMapEntry reads a tile map entry honouring the 32/64 screen layout.
func (p *ppu) bgMapEntry(bg int, tx, ty int) uint16 {
	sc := p.bgSC[bg]
	base := uint16(sc>>2) << 10

	tx &= 0x3f
	ty &= 0x3f

	var screen int
	if sc&0x01 != 0 && tx >= 32 {
		screen |= 1
	}
	if sc&0x02 != 0 && ty >= 32 {
		if sc&0x01 != 0 {
			screen |= 2
		} else {
			screen |= 1
		}
	}

	addr := base + uint16(screen)<<10 + uint16(ty&0x1f)<<5 + uint16(tx&0x1f)
	return p.vram[addr&0x7fff]
}

// bgCharBase is the character data base address in words.
func (p *ppu) bgCharBase(bg int) uint16 {
	nba := p.bgNBA[bg>>1]
	if bg&1 != 0 {
		nba >>= 4
	}
	return uint16(nba&0x0f) << 12
}

func (p *ppu) renderBG(bg int, y int, colour *[ppuVisibleWidth]uint8, prio *[ppuVisibleWidth]bool) {
	bpp := p.bgBPP(bg)
	charBase := p.bgCharBase(bg)

	vy := (y + int(p.bgVOfs[bg])) & 0x3ff
	hofs := int(p.bgHOfs[bg]) & 0x3ff

	for x := 0; x < ppuVisibleWidth; x++ {
		vx := (x + hofs) & 0x3ff

		entry := p.bgMapEntry(bg, vx>>3, vy>>3)
		tile := entry & 0x3ff
		pal := uint8(entry >> 10 & 0x07)

		px := vx & 7
		py := vy & 7
		if entry&0x4000 != 0 {
			px = 7 - px
		}
		if entry&0x8000 != 0 {
			py = 7 - py
		}

		pix := p.charPixel(charBase, tile, bpp, px, py)
		if pix == 0 {
			continue
		}

		switch bpp {
		case 2:
			if p.mode == 0 {
				colour[x] = uint8(bg)<<5 | pal<<2 | pix
			} else {
				colour[x] = pal<<2 | pix
			}
		case 4:
			colour[x] = pal<<4 | pix
		default:
			colour[x] = pix
		}
		prio[x] = entry&0x2000 != 0
	}
}

// charPixel reads one pixel of planar character data. 2bpp tiles are 8
// words, 4bpp are 16, 8bpp are 32, with plane pairs interleaved per row.
func (p *ppu) charPixel(base uint16, tile uint16, bpp int, px, py int) uint8 {
	addr := base + tile*uint16(bpp)*4 + uint16(py)

	var pix uint8
	for plane := 0; plane < bpp; plane += 2 {
		w := p.vram[(addr+uint16(plane)*4)&0x7fff]
		bit := uint(7 - px)
		pix |= uint8(w>>bit&1) << uint(plane)
		pix |= uint8(w>>(bit+8)&1) << uint(plane+1)
	}
	return pix
}

func (p *ppu) renderSprites(y int, colour *[ppuVisibleWidth]uint8, prio *[ppuVisibleWidth]int8) {
	sizes := objSizes[p.obsel>>5]
	nameBase := uint16(p.obsel&0x07) << 13
	nameGap := uint16(p.obsel>>3&0x03) << 12

	count := 0
	for i := 0; i < 128; i++ {
		high := p.oam[0x200+(i>>2)] >> uint((i&3)*2)

		size := sizes[0]
		if high&0x02 != 0 {
			size = sizes[1]
		}

		sy := int(p.oam[i*4+1])
		row := (y - sy) & 0xff
		if row >= size {
			continue
		}

		count++
		if count > 32 {
			p.rangeOver = true
			break
		}

		sx := int(p.oam[i*4])
		if high&0x01 != 0 {
			sx -= 256
		}

		tile := uint16(p.oam[i*4+2])
		attr := p.oam[i*4+3]
		pal := attr >> 1 & 0x07
		sprPrio := int8(attr >> 4 & 0x03)

		base := nameBase
		if attr&0x01 != 0 {
			base += 0x1000 + nameGap
		}

		if attr&0x80 != 0 {
			row = size - 1 - row
		}

		for px := 0; px < size; px++ {
			x := sx + px
			if x < 0 || x >= ppuVisibleWidth {
				continue
			}
			if prio[x] >= 0 {
				continue
			}

			col := px
			if attr&0x40 != 0 {
				col = size - 1 - col
			}

			// sprite characters tile through a 16x16 grid
			t := (tile&0xf0 + uint16(row>>3)<<4) & 0xf0
			t |= (tile + uint16(col>>3)) & 0x0f

			pix := p.charPixel(base, t, 4, col&7, row&7)
			if pix == 0 {
				continue
			}

			colour[x] = 0x80 | pal<<4 | pix
			prio[x] = sprPrio
		}
	}
}

const ppuSerializeSize = 0x8000*2 + // VRAM
	256*2 + // CGRAM
	544 + // OAM
	4*2*2 + // BG scroll registers
	4 + 2 + 7 + // BG tile map, char base and mode 7 registers
	29 // everything else

func (p *ppu) serialize(data []byte) {
	offset := 0
	for _, w := range p.vram {
		offset = snapshot.PutUint16(data, offset, w)
	}
	for _, w := range p.cgram {
		offset = snapshot.PutUint16(data, offset, w)
	}
	offset = snapshot.PutBytes(data, offset, p.oam[:])

	for bg := 0; bg < 4; bg++ {
		offset = snapshot.PutUint16(data, offset, p.bgHOfs[bg])
		offset = snapshot.PutUint16(data, offset, p.bgVOfs[bg])
	}
	offset = snapshot.PutBytes(data, offset, p.bgSC[:])
	offset = snapshot.PutBytes(data, offset, p.bgNBA[:])
	offset = snapshot.PutBytes(data, offset, p.m7[:])

	offset = snapshot.PutUint8(data, offset, p.brightness)
	offset = snapshot.PutBool(data, offset, p.forceBlank)
	offset = snapshot.PutUint8(data, offset, p.obsel)
	offset = snapshot.PutUint16(data, offset, p.oamAddr)
	offset = snapshot.PutUint16(data, offset, p.oamReload)
	offset = snapshot.PutUint8(data, offset, p.oamLatch)
	offset = snapshot.PutBool(data, offset, p.oamPriorityRotation)
	offset = snapshot.PutUint8(data, offset, p.mode)
	offset = snapshot.PutBool(data, offset, p.bg3Priority)
	offset = snapshot.PutUint8(data, offset, p.bigTiles)
	offset = snapshot.PutUint8(data, offset, p.ofsLatch)
	offset = snapshot.PutUint8(data, offset, p.vmain)
	offset = snapshot.PutUint16(data, offset, p.vaddr)
	offset = snapshot.PutUint16(data, offset, p.prefetch)
	offset = snapshot.PutUint8(data, offset, p.cgAddr)
	offset = snapshot.PutUint8(data, offset, p.cgLatch)
	offset = snapshot.PutBool(data, offset, p.cgSecond)
	offset = snapshot.PutUint8(data, offset, p.tm)
	offset = snapshot.PutUint16(data, offset, uint16(p.line))
	offset = snapshot.PutUint16(data, offset, uint16(p.dot))
	offset = snapshot.PutBool(data, offset, p.rangeOver)
	offset = snapshot.PutBool(data, offset, p.timeOver)
	_ = snapshot.PutBool(data, offset, p.vblank)
}

func (p *ppu) deserialize(data []byte) {
	var v16 uint16

	offset := 0
	for i := range p.vram {
		p.vram[i], offset = snapshot.Uint16(data, offset)
	}
	for i := range p.cgram {
		p.cgram[i], offset = snapshot.Uint16(data, offset)
	}
	offset = snapshot.Bytes(data, offset, p.oam[:])

	for bg := 0; bg < 4; bg++ {
		p.bgHOfs[bg], offset = snapshot.Uint16(data, offset)
		p.bgVOfs[bg], offset = snapshot.Uint16(data, offset)
	}
	offset = snapshot.Bytes(data, offset, p.bgSC[:])
	offset = snapshot.Bytes(data, offset, p.bgNBA[:])
	offset = snapshot.Bytes(data, offset, p.m7[:])

	p.brightness, offset = snapshot.Uint8(data, offset)
	p.forceBlank, offset = snapshot.Bool(data, offset)
	p.obsel, offset = snapshot.Uint8(data, offset)
	p.oamAddr, offset = snapshot.Uint16(data, offset)
	p.oamReload, offset = snapshot.Uint16(data, offset)
	p.oamLatch, offset = snapshot.Uint8(data, offset)
	p.oamPriorityRotation, offset = snapshot.Bool(data, offset)
	p.mode, offset = snapshot.Uint8(data, offset)
	p.bg3Priority, offset = snapshot.Bool(data, offset)
	p.bigTiles, offset = snapshot.Uint8(data, offset)
	p.ofsLatch, offset = snapshot.Uint8(data, offset)
	p.vmain, offset = snapshot.Uint8(data, offset)
	p.vaddr, offset = snapshot.Uint16(data, offset)
	p.prefetch, offset = snapshot.Uint16(data, offset)
	p.cgAddr, offset = snapshot.Uint8(data, offset)
	p.cgLatch, offset = snapshot.Uint8(data, offset)
	p.cgSecond, offset = snapshot.Bool(data, offset)
	p.tm, offset = snapshot.Uint8(data, offset)
	v16, offset = snapshot.Uint16(data, offset)
	p.line = int(v16)
	v16, offset = snapshot.Uint16(data, offset)
	p.dot = int(v16)
	p.rangeOver, offset = snapshot.Bool(data, offset)
	p.timeOver, offset = snapshot.Bool(data, offset)
	p.vblank, _ = snapshot.Bool(data, offset)

	p.frameDone = false
}
