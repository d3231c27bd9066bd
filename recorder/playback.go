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

package recorder

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/hardware/ports"
)

type playbackEvent struct {
	frame  int
	player int
	state  ports.State
}

// Playback replays a recorded input stream into a machine.
type Playback struct {
	console image.Console
	crc     uint32

	events []playbackEvent
	next   int

	m hardware.Machine
}

// NewPlayback is the preferred method of initialisation for the Playback
// type.
func NewPlayback(filename string) (*Playback, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, curated.Errorf("playback: %v", err)
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) < 3 || lines[0] != magicLine {
		return nil, curated.Errorf("playback: not a playback file")
	}

	pb := &Playback{}

	console, err := strconv.Atoi(lines[1])
	if err != nil {
		return nil, curated.Errorf("playback: bad header: %v", err)
	}
	pb.console = image.Console(console)

	crc, err := strconv.ParseUint(lines[2], 16, 32)
	if err != nil {
		return nil, curated.Errorf("playback: bad header: %v", err)
	}
	pb.crc = uint32(crc)

	for i, line := range lines[3:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			return nil, curated.Errorf("playback: line %d: bad event", i+4)
		}

		var ev playbackEvent
		if ev.frame, err = strconv.Atoi(fields[0]); err != nil {
			return nil, curated.Errorf("playback: line %d: %v", i+4, err)
		}
		if ev.player, err = strconv.Atoi(fields[1]); err != nil {
			return nil, curated.Errorf("playback: line %d: %v", i+4, err)
		}
		state, err := strconv.ParseUint(fields[2], 16, 32)
		if err != nil {
			return nil, curated.Errorf("playback: line %d: %v", i+4, err)
		}
		ev.state = ports.State(state)

		pb.events = append(pb.events, ev)
	}

	return pb, nil
}

// AttachMachine checks that the machine is running the image the
// recording was made with.
func (pb *Playback) AttachMachine(m hardware.Machine) error {
	if m.ConsoleID() != pb.console {
		return curated.Errorf("playback: recording is for %v", pb.console)
	}
	if m.ImageCRC() != pb.crc {
		return curated.Errorf("playback: recording is for a different image (%s)", fmt.Sprintf("%08x", pb.crc))
	}
	pb.m = m
	pb.next = 0
	return nil
}

// Step applies the recorded input for the machine's current frame. Call
// before every RunFrame. Returns true while events remain.
func (pb *Playback) Step() bool {
	frame := pb.m.Television().FrameNum()
	for pb.next < len(pb.events) && pb.events[pb.next].frame <= frame {
		ev := pb.events[pb.next]
		pb.m.SetInput(ev.player, ev.state)
		pb.next++
	}
	return pb.next < len(pb.events)
}
