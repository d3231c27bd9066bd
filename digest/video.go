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

	"github.com/relicemu/relic/hardware/television"
)

// Video is an implementation of the television.PixelRenderer interface.
// It generates a SHA-1 value of the image every frame. It does not
// display the image anywhere.
//
// Note that the use of SHA-1 is fine for this application because this is
// not a cryptographic task.
type Video struct {
	digest [sha1.Size]byte
	chain  []byte
}

// NewVideo is the preferred method of initialisation for the Video type.
// The digest attaches itself to the television.
func NewVideo(tv *television.Television) *Video {
	dig := &Video{}
	tv.AddPixelRenderer(dig)
	return dig
}

// Hash implements the digest.Digest interface.
func (dig *Video) Hash() string {
	return fmt.Sprintf("%x", dig.digest)
}

// ResetDigest implements the digest.Digest interface.
func (dig *Video) ResetDigest() {
	dig.digest = [sha1.Size]byte{}
}

// NewFrame implements the television.PixelRenderer interface. Frame
// hashes are chained by prepending the previous digest to the new frame's
// pixel data.
func (dig *Video) NewFrame(frame *television.FrameBuffer) error {
	dig.chain = dig.chain[:0]
	dig.chain = append(dig.chain, dig.digest[:]...)
	dig.chain = append(dig.chain, frame.Pix...)
	dig.digest = sha1.Sum(dig.chain)
	return nil
}
