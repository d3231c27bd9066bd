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

// Package bus implements the address decoding shared by every console's
// memory map. A bus is an ordered list of non-overlapping regions, each
// dispatching reads and writes to a handler. Regions are installed once at
// machine construction and never move; what moves at runtime is the bank
// selection inside a Banked handler.
//
// Mirroring is expressed as an address mask applied to the in-region offset
// before the handler sees it. A 2KB RAM mirrored across an 8KB window is a
// region of length 0x2000 with mirror mask 0x07ff.
//
// Writes to handler-backed regions may synchronously change chip state (a
// mapper bank register, an interrupt acknowledge). Such writes complete
// before the bus returns, so the calling chip never observes a partially
// applied write.
package bus

import "github.com/relicemu/relic/curated"

// Error patterns for bus construction.
const (
	RegionOverlap = "bus: region %s overlaps region %s"
)

// Handler is the read/write capability behind a region. The address passed
// to the handler is the offset within the region after mirroring.
type Handler interface {
	Read(offset uint32) uint8
	Write(offset uint32, data uint8)
}

// Region is an address range with read/write semantics.
type Region struct {
	Label   string
	Start   uint32
	Length  uint32
	Mirror  uint32 // mask applied to offset before dispatch; 0 means none
	Handler Handler
}

func (r Region) end() uint32 {
	return r.Start + r.Length - 1
}

// Bus is an ordered collection of regions covering (part of) an address
// space. Reads from unmapped addresses return the open bus value most
// hardware of the period floats to.
type Bus struct {
	regions []Region

	// the last value driven onto the bus. returned for unmapped reads
	openBus uint8
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Install a region. Regions must not overlap; insertion keeps the list
// ordered by start address so lookup can stop early.
func (b *Bus) Install(r Region) error {
	at := len(b.regions)
	for i, e := range b.regions {
		if r.Start <= e.end() && e.Start <= r.end() {
			return curated.Errorf(RegionOverlap, r.Label, e.Label)
		}
		if r.Start < e.Start {
			at = i
			break
		}
	}

	b.regions = append(b.regions, Region{})
	copy(b.regions[at+1:], b.regions[at:])
	b.regions[at] = r

	return nil
}

func (b *Bus) find(addr uint32) *Region {
	for i := range b.regions {
		r := &b.regions[i]
		if addr < r.Start {
			return nil
		}
		if addr <= r.end() {
			return r
		}
	}
	return nil
}

// Read a byte from the bus.
func (b *Bus) Read(addr uint32) uint8 {
	r := b.find(addr)
	if r == nil {
		return b.openBus
	}

	offset := addr - r.Start
	if r.Mirror != 0 {
		offset &= r.Mirror
	}

	b.openBus = r.Handler.Read(offset)
	return b.openBus
}

// Write a byte to the bus.
func (b *Bus) Write(addr uint32, data uint8) {
	b.openBus = data

	r := b.find(addr)
	if r == nil {
		return
	}

	offset := addr - r.Start
	if r.Mirror != 0 {
		offset &= r.Mirror
	}

	r.Handler.Write(offset, data)
}
