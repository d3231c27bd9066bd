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

package version_test

import (
	"testing"

	"github.com/relicemu/relic/test"
	"github.com/relicemu/relic/version"
)

func TestVersion(t *testing.T) {
	ver, rev, _ := version.Version()

	// test builds carry no release number but the strings are always
	// populated
	test.Equate(t, ver != "", true)
	test.Equate(t, rev != "", true)
}
