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

// Package television is the output side of every machine: a framebuffer that
// the video generator renders scanlines into and an audio ring that the audio
// generator pushes samples into. The television does not present anything
// itself. Implementations of PixelRenderer and AudioMixer are added by the
// driver and are handed the completed frame and the accumulated samples by
// reference once per RunFrame().
//
// Neither the framebuffer nor the audio ring is part of machine state for
// snapshot purposes. They are presentation state and are rewritten in full
// every frame.
package television

import "github.com/relicemu/relic/curated"

// SampleRate is the rate at which every audio generator delivers samples to
// the audio ring, regardless of the chip's native rate. Chips resample by
// clock-domain conversion, not interpolation.
const SampleRate = 48000

// Specification describes the fixed output geometry and timing of a console
// model.
type Specification struct {
	ID string

	// visible pixel dimensions. the framebuffer is exactly this size
	Width  int
	Height int

	// total scanlines per frame including blanking, and frames per second
	ScanlinesTotal  int
	FramesPerSecond int
}

// PixelRenderer implementations display, or otherwise work with, completed
// frames. A digest-based renderer used for regression testing is just as
// valid an implementation as an actual display.
type PixelRenderer interface {
	NewFrame(frame *FrameBuffer) error
}

// AudioMixer implementations work with sound; most probably playing it. The
// samples slice is valid only for the duration of the call.
type AudioMixer interface {
	SetAudio(samples []int16) error
	EndMixing() error
}

// Television collects the output of one machine.
type Television struct {
	Spec Specification

	frame     *FrameBuffer
	ring      *AudioRing
	frameNum  int
	renderers []PixelRenderer
	mixers    []AudioMixer

	// scratch buffer for draining the ring to mixers
	drain []int16
}

// NewTelevision creates a television for the given specification.
func NewTelevision(spec Specification) *Television {
	return &Television{
		Spec:  spec,
		frame: NewFrameBuffer(spec),
		ring:  NewAudioRing(SampleRate / 4), // quarter of a second
		drain: make([]int16, 0, 4096),
	}
}

// AddPixelRenderer adds a renderer to be notified of every completed frame.
func (tv *Television) AddPixelRenderer(r PixelRenderer) {
	tv.renderers = append(tv.renderers, r)
}

// AddAudioMixer adds a mixer to be fed the audio accumulated each frame.
func (tv *Television) AddAudioMixer(m AudioMixer) {
	tv.mixers = append(tv.mixers, m)
}

// Frame returns the framebuffer. The reference is stable for the lifetime of
// the television; the contents are rewritten every frame.
func (tv *Television) Frame() *FrameBuffer {
	return tv.frame
}

// Audio returns the audio ring.
func (tv *Television) Audio() *AudioRing {
	return tv.ring
}

// FrameNum returns the number of completed frames since the last Reset().
func (tv *Television) FrameNum() int {
	return tv.frameNum
}

// EndFrame is called by the machine when the video generator has signalled
// frame completion. Renderers receive the framebuffer; mixers receive
// whatever the ring has accumulated.
func (tv *Television) EndFrame() error {
	tv.frameNum++

	for _, r := range tv.renderers {
		if err := r.NewFrame(tv.frame); err != nil {
			return curated.Errorf("television: %v", err)
		}
	}

	if len(tv.mixers) > 0 {
		tv.drain = tv.drain[:cap(tv.drain)]
		n := tv.ring.Drain(tv.drain)
		for _, m := range tv.mixers {
			if err := m.SetAudio(tv.drain[:n]); err != nil {
				return curated.Errorf("television: %v", err)
			}
		}
	}

	return nil
}

// Reset the television. Renderers and mixers remain attached.
func (tv *Television) Reset() {
	tv.frameNum = 0
	tv.frame.Clear()
	tv.ring.Reset()
}
