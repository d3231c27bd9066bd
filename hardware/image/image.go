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

// Package image defines the construction input for a machine: the image
// bytes plus the header metadata the external loader has already parsed.
// File handling, archive extraction and header parsing are the loader's
// responsibility; this package only describes what the cores need to see.
package image

import "hash/crc32"

// Console identifies a supported console family.
type Console int

// The supported consoles.
const (
	NES Console = iota
	SNES
	GameBoy
	MegaDrive
	SegaCD
	MasterSystem
	GameGear
)

func (c Console) String() string {
	switch c {
	case NES:
		return "NES"
	case SNES:
		return "SNES"
	case GameBoy:
		return "Game Boy"
	case MegaDrive:
		return "Mega Drive"
	case SegaCD:
		return "Sega CD"
	case MasterSystem:
		return "Master System"
	case GameGear:
		return "Game Gear"
	}
	return "unknown"
}

// Region is the video timing region of the image.
type Region int

// The supported regions.
const (
	NTSC Region = iota
	PAL
)

func (r Region) String() string {
	if r == PAL {
		return "PAL"
	}
	return "NTSC"
}

// Image is a loaded ROM or disc image together with parsed header metadata.
type Image struct {
	Console Console
	Data    []byte

	// BIOS image for consoles that need one (Sega CD)
	BIOS []byte

	// console specific mapper/MBC number. the meaning depends on Console
	Mapper int

	Region Region

	// hardwired vertical nametable mirroring (NES)
	MirrorVertical bool

	// size of work/cartridge RAM declared by the header
	RAMSize int

	// the cartridge RAM is battery backed
	Battery bool

	// previously persisted battery RAM to install at construction. length
	// must match RAMSize if present
	PersistentRAM []byte
}

// CRC32 of the image data. Snapshots record it so that a save state cannot
// be loaded against a different image.
func (img *Image) CRC32() uint32 {
	return crc32.ChecksumIEEE(img.Data)
}
