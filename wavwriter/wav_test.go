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

package wavwriter_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"github.com/relicemu/relic/hardware/television"
	"github.com/relicemu/relic/test"
	"github.com/relicemu/relic/wavwriter"
)

func TestWriteAndReadBack(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out.wav")

	aw, err := wavwriter.New(file)
	test.ExpectedSuccess(t, err)

	samples := []int16{0, 100, -100, 32767, -32768, 7}
	test.ExpectedSuccess(t, aw.SetAudio(samples[:4]))
	test.ExpectedSuccess(t, aw.SetAudio(samples[4:]))
	test.ExpectedSuccess(t, aw.EndMixing())

	f, err := os.Open(file)
	test.ExpectedSuccess(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	test.ExpectedSuccess(t, err)

	test.Equate(t, int(dec.NumChans), 2)
	test.Equate(t, int(dec.SampleRate), television.SampleRate)
	test.Equate(t, int(dec.BitDepth), 16)

	test.Equate(t, len(buf.Data), len(samples))
	for i := range samples {
		test.Equate(t, buf.Data[i], int(samples[i]))
	}
}
