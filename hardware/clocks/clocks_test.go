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

package clocks_test

import (
	"math/big"
	"testing"

	"github.com/relicemu/relic/hardware/clocks"
	"github.com/relicemu/relic/test"
)

func TestTicksExactness(t *testing.T) {
	// the NES PPU runs at three dots per CPU cycle; trivially exact
	dom := clocks.NewDomain(3, 1)
	test.Equate(t, dom.Ticks(10), 30)
	test.Equate(t, dom.Phase(), int64(0))

	// an awkward ratio. feed irregular cycle counts and compare the
	// accumulated tick count against exact rational arithmetic
	dom = clocks.NewDomain(7159090, 21477272)

	var totalCycles int64
	var totalTicks int64
	cycles := []int{2, 3, 5, 7, 4, 6, 2, 2, 3, 8, 513, 1}
	for i := 0; i < 10000; i++ {
		c := cycles[i%len(cycles)]
		totalCycles += int64(c)
		totalTicks += int64(dom.Ticks(c))
	}

	exact := new(big.Rat).SetFrac64(totalCycles*7159090, 21477272)
	expected := new(big.Int).Quo(exact.Num(), exact.Denom())
	test.Equate(t, totalTicks, expected.Int64())
}

func TestPhaseRoundTrip(t *testing.T) {
	a := clocks.NewDomain(7, 12)
	b := clocks.NewDomain(7, 12)

	_ = a.Ticks(5)
	b.SetPhase(a.Phase())

	// with identical phase the two domains must stay in lockstep
	for i := 1; i < 100; i++ {
		test.Equate(t, a.Ticks(i), b.Ticks(i))
	}
}
