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
	"github.com/relicemu/relic/hardware/ports"
	"github.com/relicemu/relic/hardware/snapshot"
)

// ioPort is one controller port. A 3-button pad multiplexes its buttons
// over the TH line; a 6-button pad additionally counts TH transitions to
// phase in the extra buttons, with the counter decaying at vblank.
type ioPort struct {
	state ports.State

	sixButton bool

	// control register: bits set are outputs and read back as written
	ctrl uint8
	data uint8

	thCount int
}

// write stores the data register and counts TH falling edges for the
// 6-button protocol.
func (p *ioPort) write(data uint8) {
	if p.data&0x40 != 0 && data&0x40 == 0 {
		p.thCount++
	}
	p.data = data
}

// read composes the pad lines with the written bits on output pins.
func (p *ioPort) read() uint8 {
	th := p.data&0x40 != 0
	lines := p.lines(th)

	return lines&^p.ctrl | p.data&p.ctrl
}

// lines is the pad's view for the current TH phase, active low.
func (p *ioPort) lines(th bool) uint8 {
	data := uint8(0xff)

	clear := func(mask ports.State, bit uint8) {
		if p.state.Pressed(mask) {
			data &^= bit
		}
	}

	phase := p.thCount
	if !p.sixButton {
		phase = 0
	}

	if th {
		if phase == 3 {
			// extra button phase
			clear(ports.Z, 0x01)
			clear(ports.Y, 0x02)
			clear(ports.X, 0x04)
			clear(ports.Mode, 0x08)
		} else {
			clear(ports.Up, 0x01)
			clear(ports.Down, 0x02)
			clear(ports.Left, 0x04)
			clear(ports.Right, 0x08)
		}
		clear(ports.B, 0x10)
		clear(ports.C, 0x20)
		return data
	}

	if phase == 3 {
		// all low announces the extra buttons
		data &^= 0x0f
	} else {
		clear(ports.Up, 0x01)
		clear(ports.Down, 0x02)
		data &^= 0x0c
	}
	clear(ports.A, 0x10)
	clear(ports.Start, 0x20)
	return data
}

// vblankDecay is the pad's TH counter timing out between frames.
func (p *ioPort) vblankDecay() {
	p.thCount = 0
}

const ioPortSerializeSize = 3

func (p *ioPort) serialize(data []byte) {
	offset := snapshot.PutUint8(data, 0, p.ctrl)
	offset = snapshot.PutUint8(data, offset, p.data)
	_ = snapshot.PutUint8(data, offset, uint8(p.thCount))
}

func (p *ioPort) deserialize(data []byte) {
	var v uint8
	offset := 0
	p.ctrl, offset = snapshot.Uint8(data, offset)
	p.data, offset = snapshot.Uint8(data, offset)
	v, _ = snapshot.Uint8(data, offset)
	p.thCount = int(v)
}
