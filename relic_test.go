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

package relic_test

import (
	"testing"

	relic "github.com/relicemu/relic"
	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/test"
)

func TestUnknownConsole(t *testing.T) {
	_, err := relic.Create(image.Image{Console: image.Console(99)}, hardware.Preferences{})
	test.ExpectedFailure(t, err)
	test.Equate(t, curated.Is(err, hardware.InvalidImage), true)
}

func TestCreateDispatch(t *testing.T) {
	// a minimal iNES image is enough to prove dispatch reaches the
	// console implementation
	rom := make([]byte, 16+16384+8192)
	copy(rom, "NES\x1a")
	rom[4] = 1
	rom[5] = 1
	rom[16+0x3ffc] = 0x00
	rom[16+0x3ffd] = 0x80

	m, err := relic.Create(image.Image{Console: image.NES, Data: rom}, hardware.Preferences{})
	test.ExpectedSuccess(t, err)
	test.Equate(t, m.ConsoleID(), image.NES)
}
