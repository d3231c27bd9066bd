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

// Package scheduler is the master driver of a machine's chips. Each
// RunFrame() call repeatedly: collects any stall debt from the interrupt/DMA
// controller and pays it as elapsed time without stepping the CPU; otherwise
// steps the CPU by one instruction; converts the elapsed cycles into each
// chip's clock domain; and steps those chips. The loop ends when the video
// generator signals frame completion, leaving the machine positioned at the
// first cycle of the next frame.
//
// The scheduler owns nothing but the stepping discipline. Chips are handed
// to it as closures at machine construction, in the order hardware requires
// them to observe elapsed time.
package scheduler

import "github.com/relicemu/relic/curated"

// Error patterns. StallOverrun is always a bug in the machine's DMA
// accounting, never a recoverable condition.
const (
	StallOverrun = "scheduler: stall of %d cycles exceeds frame budget of %d"
)

// State of the scheduler between and during RunFrame() calls.
type State int

// The scheduler states. Idle between frames, RunningFrame during, and
// FrameComplete momentarily at the end of a successful RunFrame().
const (
	Idle State = iota
	RunningFrame
	FrameComplete
)

// Chip is one non-CPU chip's view of elapsed time.
type Chip struct {
	Label string

	// converts CPU cycles to this chip's ticks
	Ticks func(cycles int) int

	// advances the chip
	Step func(ticks int)
}

// Scheduler steps a machine's chips in correct relative proportion.
type Scheduler struct {
	// step the CPU by one instruction, returning elapsed CPU cycles
	cpu func() (int, error)

	// outstanding stall debt, collected and cleared
	stall func() int

	// has the video generator completed a frame since the last check
	frameDone func() bool

	chips []Chip

	// nominal CPU cycles per frame. used only to detect stall overruns;
	// actual frame length is decided by the video generator
	budget int

	state       State
	frameCycles int
	stallCycles int
	totalCycles uint64
}

// New creates a scheduler. The frameDone function must return true exactly
// once per completed frame and then reset itself.
func New(cpu func() (int, error), stall func() int, frameDone func() bool, budget int) *Scheduler {
	return &Scheduler{
		cpu:       cpu,
		stall:     stall,
		frameDone: frameDone,
		budget:    budget,
	}
}

// AddChip registers a chip. Chips are stepped in registration order after
// every CPU step and every stall.
func (sch *Scheduler) AddChip(c Chip) {
	sch.chips = append(sch.chips, c)
}

// State returns the scheduler's current state.
func (sch *Scheduler) State() State {
	return sch.state
}

// FrameCycles returns the CPU-domain cycles consumed by the most recent
// frame, stalls included.
func (sch *Scheduler) FrameCycles() int {
	return sch.frameCycles
}

// StallCycles returns how many of FrameCycles were stall debt.
func (sch *Scheduler) StallCycles() int {
	return sch.stallCycles
}

// TotalCycles returns cycles consumed since construction or Deserialize.
func (sch *Scheduler) TotalCycles() uint64 {
	return sch.totalCycles
}

func (sch *Scheduler) advance(cycles int) {
	sch.frameCycles += cycles
	sch.totalCycles += uint64(cycles)
	for i := range sch.chips {
		c := &sch.chips[i]
		c.Step(c.Ticks(cycles))
	}
}

// RunFrame drives the machine for one video frame. On error the scheduler
// returns to Idle without advancing any chip beyond the failed step.
func (sch *Scheduler) RunFrame() error {
	sch.state = RunningFrame
	sch.frameCycles = 0
	sch.stallCycles = 0

	for {
		if s := sch.stall(); s > 0 {
			if s > sch.budget {
				sch.state = Idle
				return curated.Errorf(StallOverrun, s, sch.budget)
			}
			sch.stallCycles += s
			sch.advance(s)
			if sch.frameDone() {
				break
			}
			continue
		}

		c, err := sch.cpu()
		if err != nil {
			sch.state = Idle
			return err
		}
		sch.advance(c)

		if sch.frameDone() {
			break
		}
	}

	sch.state = FrameComplete
	return nil
}

// Rearm returns the scheduler to Idle, ready for the next RunFrame().
func (sch *Scheduler) Rearm() {
	sch.state = Idle
}

// SetTotalCycles restores the cycle count when deserializing machine state.
func (sch *Scheduler) SetTotalCycles(n uint64) {
	sch.totalCycles = n
}
