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

// Package curated is how errors are created and passed around the emulation
// cores. Errors are created with the Errorf() function, which takes a pattern
// string in the manner of fmt.Errorf().
//
// The pattern string does double duty as a sentinel. Packages that can fail
// in interesting ways export their pattern strings as constants and callers
// test for them with the Is() and Has() functions. For example, the snapshot
// package exports the Corrupt pattern; a driver distinguishes a corrupt save
// state from any other error like so:
//
//	err := snapshot.Load(m, blob)
//	if curated.Is(err, snapshot.Corrupt) {
//		...
//	}
//
// Wrapping one curated error in another is done by passing the inner error as
// an argument to Errorf(). Has() walks the resulting chain, Is() only looks
// at the outermost error.
package curated
