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

// Package recorder writes controller input to a playback file, one event
// per input change, so a session can be replayed exactly. The file
// records which image it belongs to; playback refuses to drive a machine
// running anything else.
package recorder

import (
	"fmt"
	"os"

	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/ports"
)

// playback file header: magic, console and image CRC
const magicLine = "relic playback v1"

// Recorder transcribes the input stream of a running machine.
type Recorder struct {
	m      hardware.Machine
	output *os.File

	last [2]ports.State
}

// NewRecorder is the preferred method of initialisation for the Recorder
// type.
func NewRecorder(filename string, m hardware.Machine) (*Recorder, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, curated.Errorf("recorder: %v", err)
	}

	rec := &Recorder{m: m, output: f}

	_, err = fmt.Fprintf(f, "%s\n%d\n%08x\n", magicLine, m.ConsoleID(), m.ImageCRC())
	if err != nil {
		f.Close()
		return nil, curated.Errorf("recorder: %v", err)
	}

	return rec, nil
}

// SetInput passes input through to the machine, recording changes. Use in
// place of the machine's own SetInput.
func (rec *Recorder) SetInput(player int, state ports.State) error {
	if player < 0 || player >= len(rec.last) {
		return nil
	}

	rec.m.SetInput(player, state)

	if state == rec.last[player] {
		return nil
	}
	rec.last[player] = state

	frame := rec.m.Television().FrameNum()
	if _, err := fmt.Fprintf(rec.output, "%d,%d,%08x\n", frame, player, uint32(state)); err != nil {
		return curated.Errorf("recorder: %v", err)
	}

	return nil
}

// End closes the playback file.
func (rec *Recorder) End() error {
	if err := rec.output.Close(); err != nil {
		return curated.Errorf("recorder: %v", err)
	}
	return nil
}
