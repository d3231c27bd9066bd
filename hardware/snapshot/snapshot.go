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

// Package snapshot serializes complete machine state to a self-describing
// binary blob and back. Loading a snapshot and calling RunFrame() produces
// output bit-identical to the session the snapshot was taken from.
//
// The blob is a fixed header followed by a zstd-compressed payload. The
// payload layout is decided by each machine's Serialize method: every chip
// writes its state at a fixed offset, so payload size is a constant for a
// given machine and format version.
//
// Header layout, little endian:
//
//	0  5 bytes  magic "RELIC"
//	5  uint16   format version
//	7  uint8    console id
//	8  uint32   image CRC32
//	12 uint32   uncompressed payload size
//	16 uint32   CRC32 of the compressed payload
//	20 ...      zstd stream
package snapshot

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/klauspost/compress/zstd"
	"github.com/relicemu/relic/curated"
	"github.com/relicemu/relic/hardware/image"
)

// Error patterns. Incompatible and Corrupt are recoverable: a failed Load
// leaves the running machine untouched.
const (
	Incompatible = "snapshot: incompatible: %v"
	Corrupt      = "snapshot: corrupt: %v"
)

const (
	magic      = "RELIC"
	version    = 1
	headerSize = 20
)

// Machine is the subset of hardware.Machine the snapshot package needs.
// Declared here to avoid a dependency cycle.
type Machine interface {
	ConsoleID() image.Console
	ImageCRC() uint32
	SerializeSize() int
	Serialize(data []byte) error
	Deserialize(data []byte) error
}

// Save serializes the machine to a snapshot blob.
func Save(m Machine) ([]byte, error) {
	raw := make([]byte, m.SerializeSize())
	if err := m.Serialize(raw); err != nil {
		return nil, curated.Errorf("snapshot: %v", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, curated.Errorf("snapshot: %v", err)
	}
	defer enc.Close()

	blob := make([]byte, headerSize)
	copy(blob[0:5], magic)
	binary.LittleEndian.PutUint16(blob[5:7], version)
	blob[7] = uint8(m.ConsoleID())
	binary.LittleEndian.PutUint32(blob[8:12], m.ImageCRC())
	binary.LittleEndian.PutUint32(blob[12:16], uint32(len(raw)))

	blob = enc.EncodeAll(raw, blob)
	binary.LittleEndian.PutUint32(blob[16:20], crc32.ChecksumIEEE(blob[headerSize:]))

	return blob, nil
}

// Load restores machine state from a snapshot blob. The machine is only
// mutated once the blob has fully validated and decompressed; on error the
// caller keeps its running session.
func Load(m Machine, blob []byte) error {
	if len(blob) < headerSize {
		return curated.Errorf(Corrupt, "too short")
	}
	if string(blob[0:5]) != magic {
		return curated.Errorf(Corrupt, "bad magic")
	}

	v := binary.LittleEndian.Uint16(blob[5:7])
	if v != version {
		return curated.Errorf(Incompatible, curated.Errorf("format version %d", v))
	}
	if image.Console(blob[7]) != m.ConsoleID() {
		return curated.Errorf(Incompatible, curated.Errorf("snapshot is for %v", image.Console(blob[7])))
	}
	if binary.LittleEndian.Uint32(blob[8:12]) != m.ImageCRC() {
		return curated.Errorf(Incompatible, "snapshot is for a different image")
	}

	if binary.LittleEndian.Uint32(blob[16:20]) != crc32.ChecksumIEEE(blob[headerSize:]) {
		return curated.Errorf(Corrupt, "payload checksum mismatch")
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return curated.Errorf("snapshot: %v", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(blob[headerSize:], nil)
	if err != nil {
		return curated.Errorf(Corrupt, err)
	}

	if len(raw) != int(binary.LittleEndian.Uint32(blob[12:16])) || len(raw) != m.SerializeSize() {
		return curated.Errorf(Corrupt, "payload size mismatch")
	}

	if err := m.Deserialize(raw); err != nil {
		return curated.Errorf(Corrupt, err)
	}

	return nil
}
