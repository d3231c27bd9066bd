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

package irq_test

import (
	"testing"

	"github.com/relicemu/relic/hardware/irq"
	"github.com/relicemu/relic/test"
)

func TestLevelLine(t *testing.T) {
	ln := irq.NewLine("IRQ", irq.Level, true)
	test.ExpectedFailure(t, ln.Pending())

	ln.Assert(true)
	test.ExpectedSuccess(t, ln.Pending())

	// acknowledging a level line does nothing; the source must deassert
	ln.Acknowledge()
	test.ExpectedSuccess(t, ln.Pending())

	ln.Assert(false)
	test.ExpectedFailure(t, ln.Pending())
}

func TestEdgeLine(t *testing.T) {
	ln := irq.NewLine("NMI", irq.Edge, false)

	ln.Assert(true)
	test.ExpectedSuccess(t, ln.Pending())

	// deasserting the input does not clear the latch
	ln.Assert(false)
	test.ExpectedSuccess(t, ln.Pending())

	ln.Acknowledge()
	test.ExpectedFailure(t, ln.Pending())

	// holding the input high produces no second edge
	ln.Assert(true)
	ln.Acknowledge()
	ln.Assert(true)
	test.ExpectedFailure(t, ln.Pending())
}

func TestStallAccounting(t *testing.T) {
	ct := irq.NewController()

	copied := false
	ct.Schedule(irq.Transfer{
		Label:         "OAM DMA",
		Units:         256,
		CyclesPerUnit: 2,
	}, func() { copied = true })

	// the copy happens at schedule time
	test.ExpectedSuccess(t, copied)

	ct.AddStall(1)
	test.Equate(t, ct.Stall(), 513)

	// the debt clears once collected
	test.Equate(t, ct.Stall(), 0)
}

func TestLineSerialize(t *testing.T) {
	ln := irq.NewLine("NMI", irq.Edge, false)
	ln.Assert(true)

	other := irq.NewLine("NMI", irq.Edge, false)
	other.Deserialize(ln.Serialize())
	test.ExpectedSuccess(t, other.Pending())
}
