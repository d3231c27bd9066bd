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

package gameboy

import (
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/hardware/television"
)

// DMG line timing in T-cycles
const (
	lcdDotsPerLine  = 456
	lcdVisibleLines = 144
	lcdTotalLines   = 154

	// mode boundaries within a visible line: OAM scan, then pixel
	// transfer, then hblank
	lcdMode3Start = 80
	lcdMode0Start = 252
)

// dmgShades maps the four DMG colour numbers to RGB.
var dmgShades = [4]uint32{0xffffff, 0xaaaaaa, 0x555555, 0x000000}

// ppu is the DMG picture processor, rendered a scanline at a time.
type ppu struct {
	fb      *television.FrameBuffer
	request func(bit uint8)

	vram [8192]uint8
	oam  [160]uint8

	lcdc uint8
	stat uint8
	scy  uint8
	scx  uint8
	ly   uint8
	lyc  uint8
	bgp  uint8
	obp0 uint8
	obp1 uint8
	wy   uint8
	wx   uint8

	dot int

	// the window keeps its own line counter; it only advances on lines
	// where the window was visible
	windowLine int

	frameDone bool

	// per-line sprite pixel ownership, lower x wins
	lineOwner [160]int
}

func newPPU(fb *television.FrameBuffer, request func(bit uint8)) *ppu {
	return &ppu{fb: fb, request: request}
}

func (p *ppu) reset() {
	p.lcdc = 0x91
	p.stat = 0
	p.scy = 0
	p.scx = 0
	p.ly = 0
	p.lyc = 0
	p.bgp = 0xfc
	p.obp0 = 0xff
	p.obp1 = 0xff
	p.wy = 0
	p.wx = 0
	p.dot = 0
	p.windowLine = 0
	p.frameDone = false
}

func (p *ppu) enabled() bool {
	return p.lcdc&0x80 != 0
}

// mode returns the current STAT mode from the line and dot position.
func (p *ppu) mode() uint8 {
	if !p.enabled() {
		return 0
	}
	if p.ly >= lcdVisibleLines {
		return 1
	}
	switch {
	case p.dot < lcdMode3Start:
		return 2
	case p.dot < lcdMode0Start:
		return 3
	}
	return 0
}

// tick advances the PPU by T-cycles.
func (p *ppu) tick(cycles int) {
	if !p.enabled() {
		return
	}

	for cycles > 0 {
		step := cycles
		if p.dot+step > lcdDotsPerLine {
			step = lcdDotsPerLine - p.dot
		}

		// hblank STAT interrupt on entering mode 0
		if p.ly < lcdVisibleLines && p.dot < lcdMode0Start && p.dot+step >= lcdMode0Start {
			if p.stat&0x08 != 0 {
				p.request(intSTAT)
			}
		}

		p.dot += step
		cycles -= step

		if p.dot == lcdDotsPerLine {
			p.dot = 0
			p.endLine()
		}
	}
}

func (p *ppu) endLine() {
	if p.ly < lcdVisibleLines {
		p.renderScanline(int(p.ly))
	}

	p.ly++
	switch {
	case p.ly == lcdVisibleLines:
		p.request(intVBlank)
		if p.stat&0x10 != 0 {
			p.request(intSTAT)
		}
	case p.ly == lcdTotalLines:
		p.ly = 0
		p.windowLine = 0
		p.frameDone = true
	}

	// LYC coincidence for the new line
	if p.ly == p.lyc {
		p.stat |= 0x04
		if p.stat&0x40 != 0 {
			p.request(intSTAT)
		}
	} else {
		p.stat &^= 0x04
	}

	// OAM scan STAT interrupt at the start of a visible line
	if p.ly < lcdVisibleLines && p.stat&0x20 != 0 {
		p.request(intSTAT)
	}
}

// register access, ff40-ff4b with DMA handled by the machine

func (p *ppu) readRegister(addr uint16) uint8 {
	switch addr {
	case 0xff40:
		return p.lcdc
	case 0xff41:
		return 0x80 | p.stat&0x78 | p.stat&0x04 | p.mode()
	case 0xff42:
		return p.scy
	case 0xff43:
		return p.scx
	case 0xff44:
		return p.ly
	case 0xff45:
		return p.lyc
	case 0xff47:
		return p.bgp
	case 0xff48:
		return p.obp0
	case 0xff49:
		return p.obp1
	case 0xff4a:
		return p.wy
	case 0xff4b:
		return p.wx
	}
	return 0xff
}

func (p *ppu) writeRegister(addr uint16, data uint8) {
	switch addr {
	case 0xff40:
		wasEnabled := p.enabled()
		p.lcdc = data
		if wasEnabled && !p.enabled() {
			// switching the LCD off resets the line counters
			p.ly = 0
			p.dot = 0
			p.windowLine = 0
		}
	case 0xff41:
		p.stat = p.stat&0x07 | data&0x78
	case 0xff42:
		p.scy = data
	case 0xff43:
		p.scx = data
	case 0xff45:
		p.lyc = data
	case 0xff47:
		p.bgp = data
	case 0xff48:
		p.obp0 = data
	case 0xff49:
		p.obp1 = data
	case 0xff4a:
		p.wy = data
	case 0xff4b:
		p.wx = data
	}
}

func shade(palette uint8, colour uint8) uint32 {
	return dmgShades[(palette>>(colour*2))&0x03]
}

// tileRow reads one row of a tile, honouring the LCDC tile data select for
// background tiles.
func (p *ppu) tileRow(tile uint8, row int, bgData bool) (uint8, uint8) {
	var base int
	if bgData && p.lcdc&0x10 == 0 {
		// signed indexing from 0x9000
		base = 0x1000 + int(int8(tile))*16
	} else {
		base = int(tile) * 16
	}
	return p.vram[base+row*2], p.vram[base+row*2+1]
}

// renderScanline composites background, window and sprites for line y.
func (p *ppu) renderScanline(y int) {
	// colour numbers for the line, pre-palette; sprite priority needs them
	var lineColour [160]uint8

	if p.lcdc&0x01 != 0 {
		mapBase := 0x1800
		if p.lcdc&0x08 != 0 {
			mapBase = 0x1c00
		}
		bgY := (y + int(p.scy)) & 0xff
		for x := 0; x < 160; x++ {
			bgX := (x + int(p.scx)) & 0xff
			tile := p.vram[mapBase+(bgY/8)*32+bgX/8]
			lo, hi := p.tileRow(tile, bgY&0x07, true)
			b := uint8(7 - bgX&0x07)
			lineColour[x] = (lo>>b)&0x01 | ((hi>>b)&0x01)<<1
		}
	}

	// the window overlays the background from WX-7 onwards
	windowVisible := false
	if p.lcdc&0x20 != 0 && p.lcdc&0x01 != 0 && y >= int(p.wy) && int(p.wx) <= 166 {
		mapBase := 0x1800
		if p.lcdc&0x40 != 0 {
			mapBase = 0x1c00
		}
		wy := p.windowLine
		for x := 0; x < 160; x++ {
			wx := x - (int(p.wx) - 7)
			if wx < 0 {
				continue
			}
			windowVisible = true
			tile := p.vram[mapBase+(wy/8)*32+wx/8]
			lo, hi := p.tileRow(tile, wy&0x07, true)
			b := uint8(7 - wx&0x07)
			lineColour[x] = (lo>>b)&0x01 | ((hi>>b)&0x01)<<1
		}
	}
	if windowVisible {
		p.windowLine++
	}

	for x := 0; x < 160; x++ {
		p.fb.SetPixelRGB(x, y, shade(p.bgp, lineColour[x]))
		p.lineOwner[x] = -1
	}

	if p.lcdc&0x02 != 0 {
		p.renderSprites(y, &lineColour)
	}
}

func (p *ppu) renderSprites(y int, lineColour *[160]uint8) {
	height := 8
	if p.lcdc&0x04 != 0 {
		height = 16
	}

	// the PPU considers the first ten sprites on the line, in OAM order
	count := 0
	for s := 0; s < 40 && count < 10; s++ {
		sy := int(p.oam[s*4]) - 16
		if y < sy || y >= sy+height {
			continue
		}
		count++

		sx := int(p.oam[s*4+1]) - 8
		tile := p.oam[s*4+2]
		attr := p.oam[s*4+3]

		row := y - sy
		if attr&0x40 != 0 {
			row = height - 1 - row
		}
		if height == 16 {
			tile &^= 0x01
		}

		lo, hi := p.tileRow(tile, row&0x07, false)
		if row >= 8 {
			lo, hi = p.tileRow(tile|0x01, row&0x07, false)
		}

		palette := p.obp0
		if attr&0x10 != 0 {
			palette = p.obp1
		}

		for bit := 0; bit < 8; bit++ {
			x := sx + bit
			if x < 0 || x >= 160 {
				continue
			}

			var b uint8
			if attr&0x20 != 0 {
				b = uint8(bit)
			} else {
				b = uint8(7 - bit)
			}
			colour := (lo>>b)&0x01 | ((hi>>b)&0x01)<<1
			if colour == 0 {
				continue
			}

			// the sprite with the smaller x coordinate wins; ties go to
			// the earlier OAM entry
			if owner := p.lineOwner[x]; owner >= 0 && int(p.oam[owner*4+1])-8 <= sx {
				continue
			}

			// behind-background flag hides the sprite under non-zero
			// background colours
			if attr&0x80 != 0 && lineColour[x] != 0 {
				continue
			}

			p.lineOwner[x] = s
			p.fb.SetPixelRGB(x, y, shade(palette, colour))
		}
	}
}

// ppuSerializeSize is the fixed size of serialized PPU state.
const ppuSerializeSize = 8192 + 160 + 11 + 2 + 2

func (p *ppu) serialize(data []byte) {
	offset := snapshot.PutBytes(data, 0, p.vram[:])
	offset = snapshot.PutBytes(data, offset, p.oam[:])
	offset = snapshot.PutUint8(data, offset, p.lcdc)
	offset = snapshot.PutUint8(data, offset, p.stat)
	offset = snapshot.PutUint8(data, offset, p.scy)
	offset = snapshot.PutUint8(data, offset, p.scx)
	offset = snapshot.PutUint8(data, offset, p.ly)
	offset = snapshot.PutUint8(data, offset, p.lyc)
	offset = snapshot.PutUint8(data, offset, p.bgp)
	offset = snapshot.PutUint8(data, offset, p.obp0)
	offset = snapshot.PutUint8(data, offset, p.obp1)
	offset = snapshot.PutUint8(data, offset, p.wy)
	offset = snapshot.PutUint8(data, offset, p.wx)
	offset = snapshot.PutUint16(data, offset, uint16(p.dot))
	_ = snapshot.PutUint16(data, offset, uint16(p.windowLine))
}

func (p *ppu) deserialize(data []byte) {
	var offset int
	var v16 uint16
	offset = snapshot.Bytes(data, 0, p.vram[:])
	offset = snapshot.Bytes(data, offset, p.oam[:])
	p.lcdc, offset = snapshot.Uint8(data, offset)
	p.stat, offset = snapshot.Uint8(data, offset)
	p.scy, offset = snapshot.Uint8(data, offset)
	p.scx, offset = snapshot.Uint8(data, offset)
	p.ly, offset = snapshot.Uint8(data, offset)
	p.lyc, offset = snapshot.Uint8(data, offset)
	p.bgp, offset = snapshot.Uint8(data, offset)
	p.obp0, offset = snapshot.Uint8(data, offset)
	p.obp1, offset = snapshot.Uint8(data, offset)
	p.wy, offset = snapshot.Uint8(data, offset)
	p.wx, offset = snapshot.Uint8(data, offset)
	v16, offset = snapshot.Uint16(data, offset)
	p.dot = int(v16)
	v16, _ = snapshot.Uint16(data, offset)
	p.windowLine = int(v16)
	p.frameDone = false
}
