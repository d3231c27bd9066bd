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

// Package relic is a library of console emulation cores. Each core is a
// deterministic machine stepped one video frame at a time; the driver
// supplies a loaded image with parsed header metadata and consumes the
// framebuffer and audio ring between frames.
package relic

import (
	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware"
	"github.com/relicemu/relic/hardware/gameboy"
	"github.com/relicemu/relic/hardware/image"
	"github.com/relicemu/relic/hardware/mastersystem"
	"github.com/relicemu/relic/hardware/megadrive"
	"github.com/relicemu/relic/hardware/megadrive/segacd"
	"github.com/relicemu/relic/hardware/nes"
	"github.com/relicemu/relic/hardware/snes"
)

// Create builds the machine for the image's console.
func Create(img image.Image, prefs hardware.Preferences) (hardware.Machine, error) {
	switch img.Console {
	case image.NES:
		return nes.NewMachine(img, prefs)
	case image.SNES:
		return snes.NewMachine(img, prefs)
	case image.GameBoy:
		return gameboy.NewMachine(img, prefs)
	case image.MegaDrive:
		return megadrive.NewMachine(img, prefs)
	case image.SegaCD:
		return segacd.NewMachine(img, prefs)
	case image.MasterSystem, image.GameGear:
		return mastersystem.NewMachine(img, prefs)
	}
	return nil, curated.Errorf(hardware.InvalidImage, "unknown console %v", img.Console)
}
