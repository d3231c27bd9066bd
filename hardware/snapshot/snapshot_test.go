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

package snapshot_test

import (
	"testing"

	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/hardware/snapshot"
	"github.com/relicemu/relic/test"
)

// toy machine: 64 bytes of state and a counter.
type toy struct {
	console image.Console
	crc     uint32
	counter uint32
	mem     [60]byte
}

func (m *toy) ConsoleID() image.Console { return m.console }
func (m *toy) ImageCRC() uint32         { return m.crc }
func (m *toy) SerializeSize() int       { return 4 + len(m.mem) }

func (m *toy) Serialize(data []byte) error {
	offset := snapshot.PutUint32(data, 0, m.counter)
	_ = snapshot.PutBytes(data, offset, m.mem[:])
	return nil
}

func (m *toy) Deserialize(data []byte) error {
	var offset int
	m.counter, offset = snapshot.Uint32(data, 0)
	_ = snapshot.Bytes(data, offset, m.mem[:])
	return nil
}

func TestRoundTrip(t *testing.T) {
	m := &toy{console: image.NES, crc: 0x1234}
	m.counter = 99
	m.mem[17] = 0xab

	blob, err := snapshot.Save(m)
	test.ExpectedSuccess(t, err)

	// mutate the live session, then restore
	m.counter = 1000
	m.mem[17] = 0

	err = snapshot.Load(m, blob)
	test.ExpectedSuccess(t, err)
	test.Equate(t, m.counter, uint32(99))
	test.Equate(t, m.mem[17], 0xab)
}

func TestConsoleMismatch(t *testing.T) {
	m := &toy{console: image.NES}
	blob, err := snapshot.Save(m)
	test.ExpectedSuccess(t, err)

	other := &toy{console: image.GameBoy}
	err = snapshot.Load(other, blob)
	test.ExpectedSuccess(t, curated.Is(err, snapshot.Incompatible))
}

func TestImageMismatch(t *testing.T) {
	m := &toy{console: image.NES, crc: 1}
	blob, err := snapshot.Save(m)
	test.ExpectedSuccess(t, err)

	other := &toy{console: image.NES, crc: 2}
	err = snapshot.Load(other, blob)
	test.ExpectedSuccess(t, curated.Is(err, snapshot.Incompatible))
}

func TestCorruption(t *testing.T) {
	m := &toy{console: image.NES}
	blob, err := snapshot.Save(m)
	test.ExpectedSuccess(t, err)

	// flip a payload bit
	blob[len(blob)-1] ^= 0x01
	err = snapshot.Load(m, blob)
	test.ExpectedSuccess(t, curated.Is(err, snapshot.Corrupt))

	// truncation
	err = snapshot.Load(m, blob[:10])
	test.ExpectedSuccess(t, curated.Is(err, snapshot.Corrupt))

	// the failed loads must not have mutated the machine
	test.Equate(t, m.counter, uint32(0))
}
