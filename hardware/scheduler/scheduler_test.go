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

package scheduler_test

import (
	"testing"

	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware/clocks"
	"github.com/relicemu/relic/hardware/scheduler"
	"github.com/relicemu/relic/test"
)

// a minimal machine: a CPU that always takes 4 cycles, a video chip at 3
// ticks per cycle that completes a frame after 300 ticks, and a DMA source
// that stalls once.
type fixture struct {
	sch        *scheduler.Scheduler
	videoTicks int
	cpuSteps   int
	stallDebt  int
	frameAt    int
}

func newFixture(t *testing.T, frameAt int) *fixture {
	t.Helper()

	fix := &fixture{frameAt: frameAt}

	dom := clocks.NewDomain(3, 1)
	frameDone := func() bool {
		if fix.videoTicks >= fix.frameAt {
			fix.videoTicks -= fix.frameAt
			return true
		}
		return false
	}
	stall := func() int {
		s := fix.stallDebt
		fix.stallDebt = 0
		return s
	}
	cpu := func() (int, error) {
		fix.cpuSteps++
		return 4, nil
	}

	fix.sch = scheduler.New(cpu, stall, frameDone, 10000)
	fix.sch.AddChip(scheduler.Chip{
		Label: "video",
		Ticks: dom.Ticks,
		Step:  func(ticks int) { fix.videoTicks += ticks },
	})

	return fix
}

func TestRunFrame(t *testing.T) {
	fix := newFixture(t, 300)

	test.Equate(t, int(fix.sch.State()), int(scheduler.Idle))
	err := fix.sch.RunFrame()
	test.ExpectedSuccess(t, err)
	test.Equate(t, int(fix.sch.State()), int(scheduler.FrameComplete))

	// 300 video ticks at 3:1 is 100 CPU cycles; 25 steps of 4 cycles
	test.Equate(t, fix.cpuSteps, 25)
	test.Equate(t, fix.sch.FrameCycles(), 100)
	test.Equate(t, fix.sch.StallCycles(), 0)
}

func TestStallAccounting(t *testing.T) {
	fix := newFixture(t, 300)
	fix.stallDebt = 20

	err := fix.sch.RunFrame()
	test.ExpectedSuccess(t, err)

	// frame cycles = CPU-executed cycles plus stall cycles, no omission,
	// no double counting
	test.Equate(t, fix.sch.StallCycles(), 20)
	test.Equate(t, fix.sch.FrameCycles(), fix.cpuSteps*4+20)
	test.Equate(t, fix.sch.FrameCycles(), 100)
}

func TestStallOverrun(t *testing.T) {
	fix := newFixture(t, 300)
	fix.stallDebt = 20000

	err := fix.sch.RunFrame()
	test.ExpectedFailure(t, err)
	test.ExpectedSuccess(t, curated.Is(err, scheduler.StallOverrun))
	test.Equate(t, int(fix.sch.State()), int(scheduler.Idle))
}

func TestFramePositioning(t *testing.T) {
	// a frame boundary that doesn't divide evenly into instruction cycle
	// counts. the overshoot must carry into the next frame rather than
	// being discarded
	fix := newFixture(t, 301)

	err := fix.sch.RunFrame()
	test.ExpectedSuccess(t, err)
	first := fix.sch.FrameCycles()

	err = fix.sch.RunFrame()
	test.ExpectedSuccess(t, err)
	second := fix.sch.FrameCycles()

	// over two frames the total is exact even though each frame wobbles
	// around the nominal length
	test.Equate(t, int(fix.sch.TotalCycles()), first+second)
	total := 3 * (first + second)
	if total < 2*301 {
		t.Errorf("two frames produced %d video ticks - wanted at least %d", total, 2*301)
	}
}
