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

package bus_test

import (
	"testing"

	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware/bus"
	"github.com/relicemu/relic/test"
)

func TestMirroring(t *testing.T) {
	b := bus.NewBus()

	// 2KB of RAM mirrored across an 8KB window, as on the NES
	ram := bus.NewRAM(0x800)
	err := b.Install(bus.Region{
		Label:   "RAM",
		Start:   0x0000,
		Length:  0x2000,
		Mirror:  0x07ff,
		Handler: ram,
	})
	test.ExpectedSuccess(t, err)

	b.Write(0x0000, 0xab)
	test.Equate(t, b.Read(0x0800), 0xab)
	test.Equate(t, b.Read(0x1800), 0xab)

	b.Write(0x1fff, 0xcd)
	test.Equate(t, b.Read(0x07ff), 0xcd)
}

func TestOverlapRejected(t *testing.T) {
	b := bus.NewBus()

	err := b.Install(bus.Region{Label: "a", Start: 0x0000, Length: 0x100, Handler: bus.NewRAM(0x100)})
	test.ExpectedSuccess(t, err)

	err = b.Install(bus.Region{Label: "b", Start: 0x00ff, Length: 0x100, Handler: bus.NewRAM(0x100)})
	test.ExpectedFailure(t, err)
	test.ExpectedSuccess(t, curated.Is(err, bus.RegionOverlap))

	// adjacent is fine
	err = b.Install(bus.Region{Label: "c", Start: 0x0100, Length: 0x100, Handler: bus.NewRAM(0x100)})
	test.ExpectedSuccess(t, err)
}

func TestBankSwitch(t *testing.T) {
	b := bus.NewBus()

	// two 16KB banks with distinct content
	data := make([]byte, 0x8000)
	data[0x0000] = 0x11
	data[0x4000] = 0x22

	banked := bus.NewBanked(data, 0x4000, false)
	err := b.Install(bus.Region{Label: "PRG", Start: 0x8000, Length: 0x4000, Handler: banked})
	test.ExpectedSuccess(t, err)

	test.Equate(t, b.Read(0x8000), 0x11)

	// a bank switch followed by a read from the switched region returns the
	// newly selected bank's byte
	banked.Select(1)
	test.Equate(t, b.Read(0x8000), 0x22)

	// banks wrap rather than fault
	banked.Select(2)
	test.Equate(t, b.Read(0x8000), 0x11)
}

func TestOpenBus(t *testing.T) {
	b := bus.NewBus()
	_ = b.Install(bus.Region{Label: "RAM", Start: 0x0000, Length: 0x100, Handler: bus.NewRAM(0x100)})

	// unmapped reads return the last value driven onto the bus
	b.Write(0x0010, 0x5a)
	test.Equate(t, b.Read(0x4000), 0x5a)
}
