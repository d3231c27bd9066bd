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

package nes

import (
	"github.com/relicemu/relic/hardware/irq"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/hardware/television"
)

// dots per scanline and scanlines per frame, NTSC
const (
	ppuDotsPerLine  = 341
	ppuPreRender    = 261
	ppuVBlankStart  = 241
	ppuVisibleLines = 240
)

// ppu is the 2C02 picture processor. It renders a scanline at a time: the
// scroll register arithmetic (the v/t/x/w model) is exact at scanline
// granularity, which is sufficient for everything except mid-scanline
// raster splits.
type ppu struct {
	mapper mapper
	nmi    *irq.Line
	fb     *television.FrameBuffer

	ctrl    uint8
	mask    uint8
	status  uint8
	oamAddr uint8

	// loopy registers
	v uint16
	t uint16
	x uint8
	w bool

	readBuffer uint8

	vram    [2048]uint8
	palette [32]uint8
	oam     [256]uint8

	dot      int
	scanline int

	// set when the pre-render line completes; consumed by the machine's
	// frameDone closure
	frameDone bool

	// scanline composition scratch. bg holds pattern index 0-3 shifted with
	// attribute bits; zero means transparent. lineSP marks pixels already
	// claimed by a lower-index sprite
	lineBG [256 + 8]uint8
	lineSP [256]bool
}

func newPPU(m mapper, nmi *irq.Line, fb *television.FrameBuffer) *ppu {
	return &ppu{mapper: m, nmi: nmi, fb: fb}
}

func (p *ppu) reset() {
	p.ctrl = 0
	p.mask = 0
	p.status = 0
	p.oamAddr = 0
	p.v = 0
	p.t = 0
	p.x = 0
	p.w = false
	p.readBuffer = 0
	p.dot = 0
	p.scanline = 0
	p.frameDone = false
}

func (p *ppu) renderingEnabled() bool {
	return p.mask&0x18 != 0
}

// tick advances the PPU by the given number of dots.
func (p *ppu) tick(dots int) {
	p.dot += dots
	for p.dot >= ppuDotsPerLine {
		p.dot -= ppuDotsPerLine
		p.endScanline()
	}
}

func (p *ppu) endScanline() {
	switch {
	case p.scanline < ppuVisibleLines:
		if p.renderingEnabled() {
			p.renderScanline(p.scanline)
			p.incrementY()
			p.copyX()
			p.mapper.scanlineTick()
		}

	case p.scanline == ppuVBlankStart-1:
		// vblank begins on the next line
		p.status |= 0x80
		if p.ctrl&0x80 != 0 {
			p.nmi.Assert(true)
		}

	case p.scanline == ppuPreRender:
		p.status &^= 0xe0
		p.nmi.Assert(false)
		if p.renderingEnabled() {
			p.copyY()
		}
		p.frameDone = true
		p.scanline = 0
		return
	}

	p.scanline++
}

// loopy v arithmetic

func (p *ppu) incrementX(v uint16) uint16 {
	if v&0x001f == 0x001f {
		return v&^0x001f ^ 0x0400
	}
	return v + 1
}

func (p *ppu) incrementY() {
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
		return
	}
	p.v &^= 0x7000
	y := (p.v >> 5) & 0x1f
	switch y {
	case 29:
		y = 0
		p.v ^= 0x0800
	case 31:
		y = 0
	default:
		y++
	}
	p.v = p.v&^0x03e0 | y<<5
}

func (p *ppu) copyX() {
	p.v = p.v&^0x041f | p.t&0x041f
}

func (p *ppu) copyY() {
	p.v = p.v&^0x7be0 | p.t&0x7be0
}

// nametable mirroring

func (p *ppu) ntIndex(addr uint16) int {
	addr &= 0x0fff
	table := addr / 0x0400
	offset := addr & 0x03ff

	switch p.mapper.mirror() {
	case mirrorHorizontal:
		table = table >> 1
	case mirrorVertical:
		table = table & 0x01
	case mirrorSingle0:
		table = 0
	case mirrorSingle1:
		table = 1
	}
	return int(table)*0x0400 + int(offset)
}

func paletteIndex(addr uint16) int {
	addr &= 0x1f
	// sprite palette backdrop entries mirror the background set
	if addr >= 0x10 && addr&0x03 == 0 {
		addr &= 0x0f
	}
	return int(addr)
}

// read from the PPU's own address space
func (p *ppu) read(addr uint16) uint8 {
	addr &= 0x3fff
	switch {
	case addr < 0x2000:
		return p.mapper.chrRead(addr)
	case addr < 0x3f00:
		return p.vram[p.ntIndex(addr)]
	}
	return p.palette[paletteIndex(addr)]
}

func (p *ppu) write(addr uint16, data uint8) {
	addr &= 0x3fff
	switch {
	case addr < 0x2000:
		p.mapper.chrWrite(addr, data)
	case addr < 0x3f00:
		p.vram[p.ntIndex(addr)] = data
	default:
		p.palette[paletteIndex(addr)] = data
	}
}

// readRegister handles CPU reads of 0x2000-0x2007 (reg is addr&7).
func (p *ppu) readRegister(reg uint16) uint8 {
	switch reg {
	case 0x02:
		v := p.status
		p.status &^= 0x80
		p.w = false
		return v
	case 0x04:
		return p.oam[p.oamAddr]
	case 0x07:
		var v uint8
		if p.v&0x3fff >= 0x3f00 {
			// palette reads are unbuffered; the buffer picks up the
			// nametable byte underneath
			v = p.palette[paletteIndex(p.v)]
			p.readBuffer = p.vram[p.ntIndex(p.v)]
		} else {
			v = p.readBuffer
			p.readBuffer = p.read(p.v)
		}
		p.v += p.vramIncrement()
		return v
	}
	return 0
}

func (p *ppu) vramIncrement() uint16 {
	if p.ctrl&0x04 != 0 {
		return 32
	}
	return 1
}

// writeRegister handles CPU writes to 0x2000-0x2007 (reg is addr&7).
func (p *ppu) writeRegister(reg uint16, data uint8) {
	switch reg {
	case 0x00:
		wasEnabled := p.ctrl&0x80 != 0
		p.ctrl = data
		p.t = p.t&^0x0c00 | uint16(data&0x03)<<10
		// enabling NMI during vblank raises it immediately
		if !wasEnabled && data&0x80 != 0 && p.status&0x80 != 0 {
			p.nmi.Assert(true)
		}
	case 0x01:
		p.mask = data
	case 0x03:
		p.oamAddr = data
	case 0x04:
		p.oam[p.oamAddr] = data
		p.oamAddr++
	case 0x05:
		if !p.w {
			p.t = p.t&^0x001f | uint16(data)>>3
			p.x = data & 0x07
		} else {
			p.t = p.t &^ 0x73e0
			p.t |= uint16(data&0x07) << 12
			p.t |= uint16(data&0xf8) << 2
		}
		p.w = !p.w
	case 0x06:
		if !p.w {
			p.t = p.t&0x00ff | uint16(data&0x3f)<<8
		} else {
			p.t = p.t&0xff00 | uint16(data)
			p.v = p.t
		}
		p.w = !p.w
	case 0x07:
		p.write(p.v, data)
		p.v += p.vramIncrement()
	}
}

// renderScanline composites background and sprites for line y into the
// framebuffer.
func (p *ppu) renderScanline(y int) {
	backdrop := nesPalette[p.palette[0]&0x3f]

	for i := range p.lineBG {
		p.lineBG[i] = 0
	}

	if p.mask&0x08 != 0 {
		p.renderBackground()
	}

	// start with background pixels, then let sprites overlay
	for x := 0; x < 256; x++ {
		bg := p.lineBG[x]
		if bg&0x03 != 0 {
			p.fb.SetPixelRGB(x, y, nesPalette[p.palette[bg]&0x3f])
		} else {
			p.fb.SetPixelRGB(x, y, backdrop)
		}
	}

	if p.mask&0x10 != 0 {
		for i := range p.lineSP {
			p.lineSP[i] = false
		}
		p.renderSprites(y)
	}
}

// renderBackground fills lineBG with palette indexes (attribute bits high,
// pattern bits low) using the current v register.
func (p *ppu) renderBackground() {
	rv := p.v
	fineY := (rv >> 12) & 0x07
	patternBase := uint16(0)
	if p.ctrl&0x10 != 0 {
		patternBase = 0x1000
	}

	// 33 tile fetches cover the line for any fine x scroll
	pos := -int(p.x)
	for i := 0; i < 33; i++ {
		ntByte := p.vram[p.ntIndex(0x2000|rv&0x0fff)]

		attrAddr := 0x23c0 | rv&0x0c00 | (rv>>4)&0x38 | (rv>>2)&0x07
		attr := p.vram[p.ntIndex(attrAddr)]
		shift := (rv>>4)&0x04 | rv&0x02
		pal := (attr >> shift) & 0x03

		row := patternBase + uint16(ntByte)*16 + fineY
		lo := p.mapper.chrRead(row)
		hi := p.mapper.chrRead(row + 8)

		for bit := 0; bit < 8; bit++ {
			px := pos + bit
			if px < 0 || px >= len(p.lineBG) {
				continue
			}
			b := uint8(7 - bit)
			pix := (lo>>b)&0x01 | ((hi>>b)&0x01)<<1
			if pix != 0 {
				p.lineBG[px] = pal<<2 | pix
			}
		}

		pos += 8
		rv = p.incrementX(rv)
	}

	// left column masking
	if p.mask&0x02 == 0 {
		for x := 0; x < 8; x++ {
			p.lineBG[x] = 0
		}
	}
}

// renderSprites overlays up to eight sprites on line y and detects sprite
// zero hits.
func (p *ppu) renderSprites(y int) {
	height := 8
	if p.ctrl&0x20 != 0 {
		height = 16
	}

	count := 0
	for s := 0; s < 64; s++ {
		sy := int(p.oam[s*4]) + 1
		if y < sy || y >= sy+height {
			continue
		}
		if count == 8 {
			p.status |= 0x20 // sprite overflow
			break
		}
		count++

		tile := p.oam[s*4+1]
		attr := p.oam[s*4+2]
		sx := int(p.oam[s*4+3])

		row := y - sy
		if attr&0x80 != 0 {
			row = height - 1 - row
		}

		var rowAddr uint16
		if height == 16 {
			table := uint16(tile&0x01) << 12
			t := uint16(tile &^ 0x01)
			if row >= 8 {
				t++
				row -= 8
			}
			rowAddr = table + t*16 + uint16(row)
		} else {
			table := uint16(0)
			if p.ctrl&0x08 != 0 {
				table = 0x1000
			}
			rowAddr = table + uint16(tile)*16 + uint16(row)
		}

		lo := p.mapper.chrRead(rowAddr)
		hi := p.mapper.chrRead(rowAddr + 8)

		for bit := 0; bit < 8; bit++ {
			var b uint8
			if attr&0x40 != 0 {
				b = uint8(bit)
			} else {
				b = uint8(7 - bit)
			}
			pix := (lo>>b)&0x01 | ((hi>>b)&0x01)<<1
			if pix == 0 {
				continue
			}

			x := sx + bit
			if x > 255 {
				continue
			}
			if x < 8 && p.mask&0x04 == 0 {
				continue
			}

			bgOpaque := p.lineBG[x]&0x03 != 0

			// column 255 never registers a sprite zero hit but the
			// pixel itself is still drawn
			if s == 0 && x != 255 && bgOpaque && p.mask&0x08 != 0 {
				p.status |= 0x40 // sprite zero hit
			}

			// the lowest-index sprite owns the pixel
			if p.lineSP[x] {
				continue
			}
			p.lineSP[x] = true

			// behind-background priority
			if attr&0x20 != 0 && bgOpaque {
				continue
			}

			pal := 0x10 | (attr&0x03)<<2 | pix
			p.fb.SetPixelRGB(x, y, nesPalette[p.palette[paletteIndex(uint16(pal))]&0x3f])
		}
	}
}

// ppuSerializeSize is the fixed size of serialized PPU state.
const ppuSerializeSize = 2048 + 32 + 256 + 15

func (p *ppu) serialize(data []byte) {
	offset := snapshot.PutBytes(data, 0, p.vram[:])
	offset = snapshot.PutBytes(data, offset, p.palette[:])
	offset = snapshot.PutBytes(data, offset, p.oam[:])
	offset = snapshot.PutUint8(data, offset, p.ctrl)
	offset = snapshot.PutUint8(data, offset, p.mask)
	offset = snapshot.PutUint8(data, offset, p.status)
	offset = snapshot.PutUint8(data, offset, p.oamAddr)
	offset = snapshot.PutUint8(data, offset, p.readBuffer)
	offset = snapshot.PutUint16(data, offset, p.v)
	offset = snapshot.PutUint16(data, offset, p.t)
	offset = snapshot.PutUint8(data, offset, p.x)
	offset = snapshot.PutBool(data, offset, p.w)
	offset = snapshot.PutUint16(data, offset, uint16(p.dot))
	_ = snapshot.PutUint16(data, offset, uint16(p.scanline))
}

func (p *ppu) deserialize(data []byte) {
	var offset int
	var v16 uint16
	offset = snapshot.Bytes(data, 0, p.vram[:])
	offset = snapshot.Bytes(data, offset, p.palette[:])
	offset = snapshot.Bytes(data, offset, p.oam[:])
	p.ctrl, offset = snapshot.Uint8(data, offset)
	p.mask, offset = snapshot.Uint8(data, offset)
	p.status, offset = snapshot.Uint8(data, offset)
	p.oamAddr, offset = snapshot.Uint8(data, offset)
	p.readBuffer, offset = snapshot.Uint8(data, offset)
	p.v, offset = snapshot.Uint16(data, offset)
	p.t, offset = snapshot.Uint16(data, offset)
	p.x, offset = snapshot.Uint8(data, offset)
	p.w, offset = snapshot.Bool(data, offset)
	v16, offset = snapshot.Uint16(data, offset)
	p.dot = int(v16)
	v16, _ = snapshot.Uint16(data, offset)
	p.scanline = int(v16)
	p.frameDone = false
}

// nesPalette is the 2C02 master palette as 0xRRGGBB.
var nesPalette = [64]uint32{
	0x666666, 0x002a88, 0x1412a7, 0x3b00a4, 0x5c007e, 0x6e0040, 0x6c0600, 0x561d00,
	0x333500, 0x0b4800, 0x005200, 0x004f08, 0x00404d, 0x000000, 0x000000, 0x000000,
	0xadadad, 0x155fd9, 0x4240ff, 0x7527fe, 0xa01acc, 0xb71e7b, 0xb53120, 0x994e00,
	0x6b6d00, 0x388700, 0x0c9300, 0x008f32, 0x007c8d, 0x000000, 0x000000, 0x000000,
	0xfffeff, 0x64b0ff, 0x9290ff, 0xc676ff, 0xf36aff, 0xfe6ecc, 0xfe8170, 0xea9e22,
	0xbcbe00, 0x88d800, 0x5ce430, 0x45e082, 0x48cdde, 0x4f4f4f, 0x000000, 0x000000,
	0xfffeff, 0xc0dfff, 0xd3d2ff, 0xe8c8ff, 0xfbc2ff, 0xfec4ea, 0xfeccc5, 0xf7d8a5,
	0xe4e594, 0xcfef96, 0xbdf4ab, 0xb3f3cc, 0xb5ebf2, 0xb8b8b8, 0x000000, 0x000000,
}
