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

package regression

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/test"
)

// writeNESRom writes a minimal iNES image whose program loops forever.
func writeNESRom(t *testing.T, dir string) string {
	t.Helper()

	rom := make([]byte, 16+16384+8192)
	copy(rom, "NES\x1a")
	rom[4] = 1 // one PRG bank
	rom[5] = 1 // one CHR bank

	// JMP $8000 at the reset vector
	prg := rom[16:]
	prg[0] = 0x4c
	prg[1] = 0x00
	prg[2] = 0x80
	prg[0x3ffc] = 0x00
	prg[0x3ffd] = 0x80

	path := filepath.Join(dir, "loop.nes")
	if err := os.WriteFile(path, rom, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFrameRegression(t *testing.T) {
	dir := t.TempDir()
	defer func(f func() (string, error)) { dbPathResolver = f }(dbPathResolver)
	dbPathResolver = func() (string, error) {
		return filepath.Join(dir, "regressionDB"), nil
	}

	rom := writeNESRom(t, dir)

	ent := NewFrameEntry(rom, image.NES, 0, 0, false, 2)
	test.ExpectedSuccess(t, RegressAdd(io.Discard, ent))

	// a fresh session must deserialise the entry and reproduce the digest
	test.ExpectedSuccess(t, RegressRun(io.Discard))

	var list strings.Builder
	test.ExpectedSuccess(t, RegressList(&list))
	test.Equate(t, strings.Contains(list.String(), "loop.nes"), true)

	test.ExpectedSuccess(t, RegressDelete(io.Discard, 0))
	test.ExpectedSuccess(t, RegressRun(io.Discard))
}
