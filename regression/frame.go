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

package regression

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	relic "github.com/relicemu/relic"
	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/database"
	"github.com/relicemu/relic/digest"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/image"
)

const frameEntryType = "frame"

// FrameEntry runs a ROM for a number of frames and compares the chained
// video digest against the recorded value.
type FrameEntry struct {
	ROM       string
	Console   image.Console
	Mapper    int
	RAMSize   int
	Battery   bool
	NumFrames int

	videoDigest string
}

// NewFrameEntry is the preferred method of initialisation for the
// FrameEntry type. The mapper, RAM size and battery fields carry the
// header metadata the console's own image format does not record.
func NewFrameEntry(rom string, console image.Console, mapper int, ramSize int, battery bool, numFrames int) *FrameEntry {
	return &FrameEntry{
		ROM:       rom,
		Console:   console,
		Mapper:    mapper,
		RAMSize:   ramSize,
		Battery:   battery,
		NumFrames: numFrames,
	}
}

func deserialiseFrameEntry(fields []string) (database.Entry, error) {
	if len(fields) != 7 {
		return nil, curated.Errorf("frame entry: wrong number of fields")
	}

	ent := &FrameEntry{
		ROM:         fields[0],
		videoDigest: fields[6],
	}

	for _, c := range []struct {
		field int
		v     *int
	}{
		{2, &ent.Mapper},
		{3, &ent.RAMSize},
		{5, &ent.NumFrames},
	} {
		n, err := strconv.Atoi(fields[c.field])
		if err != nil {
			return nil, curated.Errorf("frame entry: %v", err)
		}
		*c.v = n
	}

	console, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, curated.Errorf("frame entry: %v", err)
	}
	ent.Console = image.Console(console)
	ent.Battery = fields[4] == "true"

	return ent, nil
}

// EntryType implements the database.Entry interface.
func (ent *FrameEntry) EntryType() string {
	return frameEntryType
}

// Serialise implements the database.Entry interface.
func (ent *FrameEntry) Serialise() (database.SerialisedEntry, error) {
	return database.SerialisedEntry{
		ent.ROM,
		strconv.Itoa(int(ent.Console)),
		strconv.Itoa(ent.Mapper),
		strconv.Itoa(ent.RAMSize),
		strconv.FormatBool(ent.Battery),
		strconv.Itoa(ent.NumFrames),
		ent.videoDigest,
	}, nil
}

// CleanUp implements the database.Entry interface.
func (ent *FrameEntry) CleanUp() {
}

func (ent *FrameEntry) String() string {
	return fmt.Sprintf("[%s] %s %s frames=%d", ent.EntryType(), ent.Console, filepath.Base(ent.ROM), ent.NumFrames)
}

// loadImage builds the image descriptor from the ROM file and the
// entry's header metadata. For the Sega CD the file is the BIOS.
func (ent *FrameEntry) loadImage() (image.Image, error) {
	data, err := os.ReadFile(ent.ROM)
	if err != nil {
		return image.Image{}, curated.Errorf("frame entry: %v", err)
	}

	img := image.Image{
		Console: ent.Console,
		Mapper:  ent.Mapper,
		RAMSize: ent.RAMSize,
		Battery: ent.Battery,
	}
	if ent.Console == image.SegaCD {
		img.BIOS = data
	} else {
		img.Data = data
	}

	return img, nil
}

func (ent *FrameEntry) regress(newEntry bool, output io.Writer) (bool, error) {
	img, err := ent.loadImage()
	if err != nil {
		return false, err
	}

	m, err := relic.Create(img, hardware.Preferences{})
	if err != nil {
		return false, curated.Errorf("frame entry: %v", err)
	}

	dig := digest.NewVideo(m.Television())

	for i := 0; i < ent.NumFrames; i++ {
		if err := m.RunFrame(); err != nil {
			return false, curated.Errorf("frame entry: %v", err)
		}
	}

	if newEntry {
		ent.videoDigest = dig.Hash()
		return true, nil
	}

	return dig.Hash() == ent.videoDigest, nil
}
