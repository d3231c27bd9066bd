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

package digest

import (
	"crypto/sha1"
	"fmt"
)

// Audio is an implementation of the television.AudioMixer interface. It
// generates a SHA-1 value of the sample stream.
type Audio struct {
	digest [sha1.Size]byte
	chain  []byte
}

// NewAudio is the preferred method of initialisation for the Audio type.
func NewAudio() *Audio {
	return &Audio{}
}

// Hash implements the digest.Digest interface.
func (dig *Audio) Hash() string {
	return fmt.Sprintf("%x", dig.digest)
}

// ResetDigest implements the digest.Digest interface.
func (dig *Audio) ResetDigest() {
	dig.digest = [sha1.Size]byte{}
}

// SetAudio implements the television.AudioMixer interface. Hashes are
// chained the same way as video frames.
func (dig *Audio) SetAudio(samples []int16) error {
	dig.chain = dig.chain[:0]
	dig.chain = append(dig.chain, dig.digest[:]...)
	for _, s := range samples {
		dig.chain = append(dig.chain, uint8(s), uint8(s>>8))
	}
	dig.digest = sha1.Sum(dig.chain)
	return nil
}

// EndMixing implements the television.AudioMixer interface.
func (dig *Audio) EndMixing() error {
	return nil
}
