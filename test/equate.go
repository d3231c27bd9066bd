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

package test

import (
	"testing"

	"github.com/relicemu/relic/hardware/image"
)

// Equate tests equality between a value and an expected value. Both values
// must be of the same type except that an expected literal int is accepted
// for any unsigned value. It is very convenient to write:
//
//	var r uint16
//	r = someFunction()
//	test.Equate(t, r, 10)
//
// without having to cast the literal.
func Equate(t *testing.T, value, expectedValue interface{}) {
	t.Helper()

	switch v := value.(type) {
	default:
		t.Fatalf("unhandled type for Equate() function (%T)", v)

	case nil:
		if expectedValue != nil {
			t.Errorf("equation of type %T failed (%v - wanted nil)", v, v)
		}

	case int:
		if ev, ok := expectedValue.(int); !ok || v != ev {
			t.Errorf("equation of type %T failed (%d - wanted %v)", v, v, expectedValue)
		}

	case int64:
		if ev, ok := expectedValue.(int64); !ok || v != ev {
			t.Errorf("equation of type %T failed (%d - wanted %v)", v, v, expectedValue)
		}

	case uint8:
		switch ev := expectedValue.(type) {
		case int:
			if v != uint8(ev) {
				t.Errorf("equation of type %T failed (%#02x - wanted %#02x)", v, v, ev)
			}
		case uint8:
			if v != ev {
				t.Errorf("equation of type %T failed (%#02x - wanted %#02x)", v, v, ev)
			}
		default:
			t.Fatalf("values for Equate() are not compatible (%T and %T)", v, ev)
		}

	case uint16:
		switch ev := expectedValue.(type) {
		case int:
			if v != uint16(ev) {
				t.Errorf("equation of type %T failed (%#04x - wanted %#04x)", v, v, ev)
			}
		case uint16:
			if v != ev {
				t.Errorf("equation of type %T failed (%#04x - wanted %#04x)", v, v, ev)
			}
		default:
			t.Fatalf("values for Equate() are not compatible (%T and %T)", v, ev)
		}

	case uint32:
		switch ev := expectedValue.(type) {
		case int:
			if v != uint32(ev) {
				t.Errorf("equation of type %T failed (%#08x - wanted %#08x)", v, v, ev)
			}
		case uint32:
			if v != ev {
				t.Errorf("equation of type %T failed (%#08x - wanted %#08x)", v, v, ev)
			}
		default:
			t.Fatalf("values for Equate() are not compatible (%T and %T)", v, ev)
		}

	case image.Console:
		if ev, ok := expectedValue.(image.Console); !ok || v != ev {
			t.Errorf("equation of type %T failed (%v - wanted %v)", v, v, expectedValue)
		}

	case string:
		if ev, ok := expectedValue.(string); !ok || v != ev {
			t.Errorf("equation of type %T failed (%s - wanted %v)", v, v, expectedValue)
		}

	case bool:
		if ev, ok := expectedValue.(bool); !ok || v != ev {
			t.Errorf("equation of type %T failed (%v - wanted %v)", v, v, expectedValue)
		}
	}
}
