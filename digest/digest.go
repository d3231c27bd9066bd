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

// Package digest contains implementations of the television protocol
// interfaces, PixelRenderer and AudioMixer, such that a cryptographic
// hash is produced of the frame and sample streams. The hash can then be
// used to compare output from subsequent emulation sessions - if a new
// hash differs from a previously recorded value then something has
// changed. We use this as the basis for regression tests.
package digest

// Digest implementations return a cryptographic hash of everything they
// have seen since creation or the last reset.
type Digest interface {
	Hash() string
	ResetDigest()
}
