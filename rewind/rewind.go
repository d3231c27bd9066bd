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

// Package rewind keeps a rolling history of machine state so a driver
// can step the emulation backwards. A state is captured every frame (or
// every few frames at the driver's choosing); rewinding restores the
// nearest captured state at or before the target frame and re-runs the
// machine up to the target.
package rewind

import (
	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
)

// the maximum number of states to store before the earliest are
// forgotten
const maxEntries = 200

// State is one captured machine state.
type State struct {
	Frame int
	data  []byte
}

// Rewind records and restores machine state.
type Rewind struct {
	m        hardware.Machine
	interval int

	states []State
}

// New is the preferred method of initialisation for the Rewind type.
// interval is the number of frames between captures; 1 captures every
// frame.
func New(m hardware.Machine, interval int) *Rewind {
	if interval < 1 {
		interval = 1
	}
	return &Rewind{
		m:        m,
		interval: interval,
		states:   make([]State, 0, maxEntries),
	}
}

// Record captures the machine state if the current frame is on the
// capture interval. Call after every RunFrame.
func (r *Rewind) Record() error {
	frame := r.m.Television().FrameNum()
	if frame%r.interval != 0 {
		return nil
	}

	data := make([]byte, r.m.SerializeSize())
	if err := r.m.Serialize(data); err != nil {
		return curated.Errorf("rewind: %v", err)
	}

	if len(r.states) == cap(r.states) {
		copy(r.states, r.states[1:])
		r.states = r.states[:len(r.states)-1]
	}
	r.states = append(r.states, State{Frame: frame, data: data})

	return nil
}

// Span returns the earliest and latest frames the history can return to.
func (r *Rewind) Span() (int, int) {
	if len(r.states) == 0 {
		return 0, 0
	}
	return r.states[0].Frame, r.states[len(r.states)-1].Frame
}

// GotoFrame restores the machine to the specified frame, re-running the
// emulation from the nearest earlier capture when the frame falls
// between captures. States captured after the target are discarded.
func (r *Rewind) GotoFrame(frame int) error {
	idx := -1
	for i := len(r.states) - 1; i >= 0; i-- {
		if r.states[i].Frame <= frame {
			idx = i
			break
		}
	}
	if idx == -1 {
		return curated.Errorf("rewind: frame %d is before the earliest state", frame)
	}

	if err := r.m.Deserialize(r.states[idx].data); err != nil {
		return curated.Errorf("rewind: %v", err)
	}
	r.states = r.states[:idx+1]

	// the television's frame count is not part of the snapshot; the
	// machine is simply run forward to the target
	for f := r.states[idx].Frame; f < frame; f++ {
		if err := r.m.RunFrame(); err != nil {
			return curated.Errorf("rewind: %v", err)
		}
	}

	return nil
}
