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

package curated_test

import (
	"errors"
	"testing"

	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/test"
)

const (
	testPatternA = "chip: %v"
	testPatternB = "bank out of range: %d"
)

func TestSentinels(t *testing.T) {
	err := curated.Errorf(testPatternB, 12)
	test.ExpectedSuccess(t, curated.IsAny(err))
	test.ExpectedSuccess(t, curated.Is(err, testPatternB))
	test.ExpectedFailure(t, curated.Is(err, testPatternA))

	// wrap the error and check that Is() only matches the outer pattern
	// while Has() finds both
	wrapped := curated.Errorf(testPatternA, err)
	test.ExpectedFailure(t, curated.Is(wrapped, testPatternB))
	test.ExpectedSuccess(t, curated.Has(wrapped, testPatternB))
	test.ExpectedSuccess(t, curated.Has(wrapped, testPatternA))

	// plain errors are not curated errors
	plain := errors.New("plain")
	test.ExpectedFailure(t, curated.IsAny(plain))
	test.ExpectedFailure(t, curated.Has(plain, testPatternA))

	// nil is nothing at all
	test.ExpectedFailure(t, curated.IsAny(nil))
}

func TestDeduplication(t *testing.T) {
	// adjacent duplicate message parts are folded
	inner := curated.Errorf("mapper: %v", errors.New("bad bank"))
	outer := curated.Errorf("mapper: %v", inner)
	test.Equate(t, outer.Error(), "mapper: bad bank")
}
