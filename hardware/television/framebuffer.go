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

package television

// FrameBuffer holds one frame of video as RGBA bytes at the console's native
// resolution. Scaling and aspect correction are the renderer's problem.
type FrameBuffer struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// NewFrameBuffer creates a framebuffer sized for the specification.
func NewFrameBuffer(spec Specification) *FrameBuffer {
	return &FrameBuffer{
		Width:  spec.Width,
		Height: spec.Height,
		Stride: spec.Width * 4,
		Pix:    make([]byte, spec.Width*spec.Height*4),
	}
}

// SetPixel plots an opaque pixel. Coordinates outside the framebuffer are
// ignored; video generators clip against overscan by simply plotting.
func (fb *FrameBuffer) SetPixel(x, y int, red, green, blue byte) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return
	}
	o := y*fb.Stride + x*4
	fb.Pix[o] = red
	fb.Pix[o+1] = green
	fb.Pix[o+2] = blue
	fb.Pix[o+3] = 0xff
}

// SetPixelRGB plots an opaque pixel from a packed 0x00RRGGBB value.
func (fb *FrameBuffer) SetPixelRGB(x, y int, rgb uint32) {
	fb.SetPixel(x, y, byte(rgb>>16), byte(rgb>>8), byte(rgb))
}

// Clear the framebuffer to opaque black.
func (fb *FrameBuffer) Clear() {
	for i := range fb.Pix {
		if i%4 == 3 {
			fb.Pix[i] = 0xff
		} else {
			fb.Pix[i] = 0x00
		}
	}
}
