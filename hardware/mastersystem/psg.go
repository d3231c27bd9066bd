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

package mastersystem

import (
	"github.com/relicemu/relic/hardware/television"
	sn76489 "github.com/user-none/go-chip-sn76489"
)

// psg adapts the SN76489 library to the audio ring. The library resamples
// to 48kHz internally and hands back float32 mono; the ring wants stereo
// int16. Attenuate by half when duplicating to both speakers.
type psg struct {
	chip *sn76489.SN76489
	ring *television.AudioRing
}

func newPSG(cpuClock int, ring *television.AudioRing) *psg {
	samplesPerFrame := television.SampleRate / 60
	return &psg{
		chip: sn76489.New(cpuClock, television.SampleRate, samplesPerFrame*2, sn76489.Sega),
		ring: ring,
	}
}

func (p *psg) write(data uint8) {
	p.chip.Write(data)
}

// step advances the chip by CPU cycles and drains whatever samples fell
// out into the ring.
func (p *psg) step(cycles int) {
	p.chip.GenerateSamples(cycles)

	buffer, count := p.chip.GetBuffer()
	for _, s := range buffer[:count] {
		v := int16(s * 32767 * 0.5)
		p.ring.Push(v, v)
	}
	p.chip.ResetBuffer()
}

const psgSerializeSize = sn76489.SerializeSize

func (p *psg) serialize(data []byte) {
	p.chip.Serialize(data)
}

func (p *psg) deserialize(data []byte) {
	p.chip.Deserialize(data)
}
